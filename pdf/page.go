package pdf

import (
	"bytes"
	"errors"
	"fmt"
)

// Page is one leaf of the page tree. Number is 1-based, matching how users
// and the run report refer to pages.
type Page struct {
	Number   int
	Ref      Ref
	MediaBox Rect

	doc  *Document
	dict Dict
	// inherited attributes resolved during the tree walk
	resources Dict
}

// Pages returns the document's pages in tree order.
func (d *Document) Pages() []*Page { return d.pages }

func (d *Document) buildPages() error {
	root, ok := d.DictVal(d.trailer["Root"])
	if !ok {
		return errors.New("pdf: trailer has no /Root catalog")
	}
	pagesRef, hasPages := root["Pages"]
	if !hasPages {
		return errors.New("pdf: catalog has no /Pages")
	}
	type frame struct {
		node      Object
		mediaBox  Object
		resources Object
	}
	stack := []frame{{node: pagesRef}}
	visited := make(map[Ref]bool)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ref, isRef := f.node.(Ref)
		if isRef {
			if visited[ref] {
				continue
			}
			visited[ref] = true
		}
		node, ok := d.DictVal(f.node)
		if !ok {
			continue
		}
		mediaBox := f.mediaBox
		if mb, ok := node["MediaBox"]; ok {
			mediaBox = mb
		}
		resources := f.resources
		if res, ok := node["Resources"]; ok {
			resources = res
		}
		typ, _ := d.NameVal(node["Type"])
		kids, hasKids := d.ArrayVal(node["Kids"])
		if typ == "Pages" || (typ == "" && hasKids) {
			// push kids in reverse so they pop in document order
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: kids[i], mediaBox: mediaBox, resources: resources})
			}
			continue
		}
		p := &Page{
			Number: len(d.pages) + 1,
			doc:    d,
			dict:   node,
		}
		if isRef {
			p.Ref = ref
		}
		p.MediaBox = d.rectFrom(mediaBox)
		if p.MediaBox.IsEmpty() {
			p.MediaBox = Rect{X1: 612, Y1: 792} // US Letter default
		}
		p.resources, _ = d.DictVal(resources)
		d.pages = append(d.pages, p)
	}
	if len(d.pages) == 0 {
		return errors.New("pdf: document has no pages")
	}
	return nil
}

func (d *Document) rectFrom(o Object) Rect {
	arr, ok := d.ArrayVal(o)
	if !ok || len(arr) < 4 {
		return Rect{}
	}
	var v [4]float64
	for i := 0; i < 4; i++ {
		f, ok := d.Float(arr[i])
		if !ok {
			return Rect{}
		}
		v[i] = f
	}
	return Rect{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}.normalized()
}

// Resources returns the page's (possibly inherited) resource dictionary.
func (p *Page) Resources() Dict { return p.resources }

// Contents returns the page's decoded content, with multiple streams joined
// by newlines as the PDF model requires.
func (p *Page) Contents() ([]byte, error) {
	var parts [][]byte
	var collect func(o Object) error
	collect = func(o Object) error {
		switch v := p.doc.Resolve(o).(type) {
		case Stream:
			data, full, err := p.doc.DecodeStream(v)
			if err != nil {
				return err
			}
			if !full {
				return fmt.Errorf("pdf: page %d content uses an image filter", p.Number)
			}
			parts = append(parts, data)
		case Array:
			for _, item := range v {
				if err := collect(item); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := collect(p.dict["Contents"]); err != nil {
		return nil, err
	}
	return bytes.Join(parts, []byte("\n")), nil
}

// SetContents replaces the page's content with a single new Flate-compressed
// stream object.
func (p *Page) SetContents(data []byte) {
	ref := p.doc.AddObject(Stream{
		Dict: Dict{"Filter": Name("FlateDecode")},
		Raw:  flateEncode(data),
	})
	p.dict["Contents"] = ref
}

// AddObject registers obj under a fresh object number and returns its
// reference.
func (d *Document) AddObject(obj Object) Ref {
	d.maxNum++
	d.objects[d.maxNum] = obj
	return Ref{Num: d.maxNum}
}
