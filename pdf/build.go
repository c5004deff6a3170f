package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Builder assembles simple PDFs: text in a standard font, full-page images.
// It exists for generating fixtures and probe documents; the redaction engine
// itself only rewrites parsed documents.
type Builder struct {
	pages []*pageDraft
}

type pageDraft struct {
	width, height float64
	content       bytes.Buffer
	images        []imageDraft
}

type imageDraft struct {
	img  image.Image
	rect Rect
}

// NewBuilder returns an empty document builder.
func NewBuilder() *Builder { return &Builder{} }

// PageDraft accumulates drawing commands for one page.
type PageDraft struct{ d *pageDraft }

// AddPage appends a page of the given size in points.
func (b *Builder) AddPage(width, height float64) PageDraft {
	d := &pageDraft{width: width, height: height}
	b.pages = append(b.pages, d)
	return PageDraft{d: d}
}

// Text draws one line of Helvetica text with its baseline at (x, y). Each
// call emits its own text object, so consecutive calls produce separate
// extraction spans.
func (p PageDraft) Text(x, y, size float64, text string) PageDraft {
	var s String
	s.Data = []byte(text)
	p.d.content.WriteString("BT\n/F1 ")
	fmt.Fprintf(&p.d.content, "%g Tf\n%g %g Td\n", size, x, y)
	p.d.content.Write(Serialize(s))
	p.d.content.WriteString(" Tj\nET\n")
	return p
}

// Image draws img into the given page rectangle.
func (p PageDraft) Image(img image.Image, rect Rect) PageDraft {
	p.d.images = append(p.d.images, imageDraft{img: img, rect: rect})
	return p
}

// Bytes serializes the built document.
func (b *Builder) Bytes() ([]byte, error) {
	doc := &Document{objects: make(map[int]Object)}

	fontRef := doc.AddObject(Dict{
		"Type":     Name("Font"),
		"Subtype":  Name("Type1"),
		"BaseFont": Name("Helvetica"),
	})

	var kids Array
	var pageRefs []Ref
	for _, d := range b.pages {
		resources := Dict{"Font": Dict{"F1": fontRef}}
		content := d.content.Bytes()
		if len(d.images) > 0 {
			xobjects := Dict{}
			var imgOps bytes.Buffer
			for i, im := range d.images {
				name := Name(fmt.Sprintf("Im%d", i))
				imgRef, err := doc.addImage(im.img)
				if err != nil {
					return nil, err
				}
				xobjects[name] = imgRef
				fmt.Fprintf(&imgOps, "q %g 0 0 %g %g %g cm /%s Do Q\n",
					im.rect.Width(), im.rect.Height(), im.rect.X0, im.rect.Y0, name)
			}
			resources["XObject"] = xobjects
			content = append(imgOps.Bytes(), content...)
		}
		contentRef := doc.AddObject(Stream{
			Dict: Dict{"Filter": Name("FlateDecode")},
			Raw:  flateEncode(content),
		})
		pageDict := Dict{
			"Type":      Name("Page"),
			"MediaBox":  Array{Real(0), Real(0), Real(d.width), Real(d.height)},
			"Resources": resources,
			"Contents":  contentRef,
		}
		pageRef := doc.AddObject(pageDict)
		pageRefs = append(pageRefs, pageRef)
		kids = append(kids, pageRef)
	}

	pagesRef := doc.AddObject(Dict{
		"Type":  Name("Pages"),
		"Kids":  kids,
		"Count": Integer(len(kids)),
	})
	for _, pr := range pageRefs {
		pageDict, _ := doc.objects[pr.Num].(Dict)
		pageDict["Parent"] = pagesRef
	}
	rootRef := doc.AddObject(Dict{
		"Type":  Name("Catalog"),
		"Pages": pagesRef,
	})
	doc.trailer = Dict{"Root": rootRef}
	return doc.Serialize()
}

// addImage stores img as an 8-bit raster XObject (gray for grayscale input,
// RGB otherwise), Flate-compressed.
func (d *Document) addImage(img image.Image) (Ref, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var colorSpace Name
	var samples []byte
	if g, ok := img.(*image.Gray); ok {
		colorSpace = "DeviceGray"
		samples = make([]byte, 0, w*h)
		for y := 0; y < h; y++ {
			samples = append(samples, g.Pix[y*g.Stride:y*g.Stride+w]...)
		}
	} else {
		colorSpace = "DeviceRGB"
		samples = make([]byte, 0, w*h*3)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				samples = append(samples, byte(r>>8), byte(g>>8), byte(bl>>8))
			}
		}
	}
	ref := d.AddObject(Stream{
		Dict: Dict{
			"Type":             Name("XObject"),
			"Subtype":          Name("Image"),
			"Width":            Integer(w),
			"Height":           Integer(h),
			"ColorSpace":       colorSpace,
			"BitsPerComponent": Integer(8),
			"Filter":           Name("FlateDecode"),
		},
		Raw: flateEncode(samples),
	})
	return ref, nil
}

// EncodePNG is a small convenience for tests that need raw PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
