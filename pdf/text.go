package pdf

import (
	"math"
	"unicode/utf16"
)

// matrix is a PDF transformation matrix [a b c d e f] in row-vector
// convention: x' = a*x + c*y + e, y' = b*x + d*y + f.
type matrix [6]float64

func identity() matrix { return matrix{1, 0, 0, 1, 0, 0} }

// mul concatenates m before n: apply(m.mul(n), p) == apply(n, apply(m, p)).
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func translation(tx, ty float64) matrix { return matrix{1, 0, 0, 1, tx, ty} }

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// transformRect maps the corners of r through m and returns the bounding box.
func (m matrix) transformRect(r Rect) Rect {
	x0, y0 := m.apply(r.X0, r.Y0)
	x1, y1 := m.apply(r.X1, r.Y1)
	x2, y2 := m.apply(r.X0, r.Y1)
	x3, y3 := m.apply(r.X1, r.Y0)
	return Rect{
		X0: math.Min(math.Min(x0, x1), math.Min(x2, x3)),
		Y0: math.Min(math.Min(y0, y1), math.Min(y2, y3)),
		X1: math.Max(math.Max(x0, x1), math.Max(x2, x3)),
		Y1: math.Max(math.Max(y0, y1), math.Max(y2, y3)),
	}
}

// Approximate glyph extents in em units, used when font metrics are absent.
const (
	glyphAscent  = 0.85
	glyphDescent = -0.22
	defaultWidth = 0.5
)

// Span is one positioned text fragment: the decoded text of a single show
// operator, its page-space bounding box, and the back-references needed to
// destroy individual glyphs in the content stream.
type Span struct {
	Text string
	Rect Rect
	// Line groups spans that share a baseline, in encounter order.
	Line int

	chars []charBox
}

type charBox struct {
	op   int // index into PageContent.Ops
	elem int // index into a TJ array operand, -1 otherwise
	off  int // byte offset of the glyph code inside the string operand
	n    int // byte length of the glyph code
	rect Rect
}

// CharRect returns the page-space box of the i-th rune of Text.
func (s *Span) CharRect(i int) Rect {
	if i < 0 || i >= len(s.chars) {
		return Rect{}
	}
	return s.chars[i].rect
}

// ImagePlacement records one image XObject invocation and the page-space
// rectangle it was painted into.
type ImagePlacement struct {
	Name Name
	Rect Rect
}

// PageContent is the decoded, interpreted content of one page. Mutating
// helpers rewrite Ops; Apply writes the result back to the page.
type PageContent struct {
	Ops    []Operation
	Spans  []Span
	Images []ImagePlacement

	page *Page
}

// Content parses and interprets the page's content streams.
func (p *Page) Content() (*PageContent, error) {
	data, err := p.Contents()
	if err != nil {
		return nil, err
	}
	ops, err := ParseContent(data)
	if err != nil {
		return nil, err
	}
	c := &PageContent{Ops: ops, page: p}
	c.interpret()
	return c, nil
}

// Text concatenates the page's span texts with line structure, for whole-page
// analysis such as classification or collaborator prompts.
func (c *PageContent) Text() string {
	var out []byte
	lastLine := -1
	for _, s := range c.Spans {
		if len(out) > 0 {
			if s.Line != lastLine {
				out = append(out, '\n')
			} else {
				out = append(out, ' ')
			}
		}
		out = append(out, s.Text...)
		lastLine = s.Line
	}
	return string(out)
}

// MaskChars overwrites the glyph codes behind runes [from, to) of span si
// with space characters. Equal-length substitution keeps every other
// back-reference into the stream valid.
func (c *PageContent) MaskChars(si, from, to int) {
	if si < 0 || si >= len(c.Spans) {
		return
	}
	s := &c.Spans[si]
	for i := from; i < to && i < len(s.chars); i++ {
		cb := s.chars[i]
		if cb.op < 0 || cb.op >= len(c.Ops) {
			continue
		}
		op := c.Ops[cb.op]
		if len(op.Operands) == 0 {
			continue
		}
		if cb.elem >= 0 {
			if arr, ok := op.Operands[len(op.Operands)-1].(Array); ok && cb.elem < len(arr) {
				if sv, ok := arr[cb.elem].(String); ok {
					maskBytes(sv.Data, cb.off, cb.n)
				}
			}
			continue
		}
		for oi := len(op.Operands) - 1; oi >= 0; oi-- {
			if sv, ok := op.Operands[oi].(String); ok {
				maskBytes(sv.Data, cb.off, cb.n)
				break
			}
		}
	}
	// Keep the in-memory span consistent with the stream.
	runes := []rune(s.Text)
	for i := from; i < to && i < len(runes); i++ {
		runes[i] = ' '
	}
	s.Text = string(runes)
}

func maskBytes(data []byte, off, n int) {
	if off < 0 || off+n > len(data) {
		return
	}
	if n == 2 {
		data[off] = 0x00
		data[off+1] = 0x20
		return
	}
	for i := 0; i < n; i++ {
		data[off+i] = 0x20
	}
}

// AppendOverlay adds opaque black fills over the given page-space rectangles,
// after all existing content.
func (c *PageContent) AppendOverlay(rects []Rect) {
	if len(rects) == 0 {
		return
	}
	c.Ops = append(c.Ops, Operation{Operator: "q"})
	c.Ops = append(c.Ops, Operation{Operator: "rg", Operands: []Object{Real(0), Real(0), Real(0)}})
	for _, r := range rects {
		c.Ops = append(c.Ops, Operation{
			Operator: "re",
			Operands: []Object{Real(r.X0), Real(r.Y0), Real(r.Width()), Real(r.Height())},
		})
		c.Ops = append(c.Ops, Operation{Operator: "f"})
	}
	c.Ops = append(c.Ops, Operation{Operator: "Q"})
}

// StripTextLayer drops every text object from the page content. Span
// back-references are invalidated, so spans are cleared as well.
func (c *PageContent) StripTextLayer() {
	c.Ops = StripText(c.Ops)
	c.Spans = nil
}

// Apply serializes the (possibly rewritten) operations back onto the page.
func (c *PageContent) Apply() {
	c.page.SetContents(SerializeContent(c.Ops))
}

type fontInfo struct {
	widths   map[int]float64 // glyph code -> width in em units
	missing  float64
	twoByte  bool
}

func (f *fontInfo) width(code int) float64 {
	if f == nil {
		return defaultWidth
	}
	if w, ok := f.widths[code]; ok {
		return w
	}
	return f.missing
}

func (p *Page) fontInfos() map[Name]*fontInfo {
	out := make(map[Name]*fontInfo)
	d := p.doc
	fonts, ok := d.DictVal(p.resources["Font"])
	if !ok {
		return out
	}
	for name, ref := range fonts {
		fd, ok := d.DictVal(ref)
		if !ok {
			continue
		}
		fi := &fontInfo{missing: defaultWidth, widths: make(map[int]float64)}
		if sub, _ := d.NameVal(fd["Subtype"]); sub == "Type0" {
			fi.twoByte = true
			fi.missing = 1.0
		}
		first, _ := d.Int(fd["FirstChar"])
		if widths, ok := d.ArrayVal(fd["Widths"]); ok {
			for i, w := range widths {
				if v, ok := d.Float(w); ok && v > 0 {
					fi.widths[int(first)+i] = v / 1000
				}
			}
		}
		if desc, ok := d.DictVal(fd["FontDescriptor"]); ok {
			if mw, ok := d.Float(desc["MissingWidth"]); ok && mw > 0 {
				fi.missing = mw / 1000
			}
		}
		out[name] = fi
	}
	return out
}

type textState struct {
	tm, tlm    matrix
	font       *fontInfo
	fontSize   float64
	charSpace  float64
	wordSpace  float64
	hscale     float64
	leading    float64
	rise       float64
}

func (c *PageContent) interpret() {
	fonts := c.page.fontInfos()
	xobjects, _ := c.page.doc.DictVal(c.page.Resources()["XObject"])

	ctm := identity()
	var ctmStack []matrix
	ts := textState{hscale: 1}
	line := 0
	lastBaseY := math.NaN()

	for opIdx, op := range c.Ops {
		switch op.Operator {
		case "q":
			ctmStack = append(ctmStack, ctm)
		case "Q":
			if n := len(ctmStack); n > 0 {
				ctm = ctmStack[n-1]
				ctmStack = ctmStack[:n-1]
			}
		case "cm":
			if m, ok := operandMatrix(op.Operands); ok {
				ctm = m.mul(ctm)
			}
		case "BT":
			ts.tm, ts.tlm = identity(), identity()
		case "Tf":
			if len(op.Operands) >= 2 {
				if name, ok := op.Operands[len(op.Operands)-2].(Name); ok {
					ts.font = fonts[name]
				}
				ts.fontSize, _ = numOperand(op.Operands[len(op.Operands)-1])
			}
		case "Td":
			if tx, ty, ok := twoNums(op.Operands); ok {
				ts.tlm = translation(tx, ty).mul(ts.tlm)
				ts.tm = ts.tlm
			}
		case "TD":
			if tx, ty, ok := twoNums(op.Operands); ok {
				ts.leading = -ty
				ts.tlm = translation(tx, ty).mul(ts.tlm)
				ts.tm = ts.tlm
			}
		case "Tm":
			if m, ok := operandMatrix(op.Operands); ok {
				ts.tm, ts.tlm = m, m
			}
		case "T*":
			ts.tlm = translation(0, -ts.leading).mul(ts.tlm)
			ts.tm = ts.tlm
		case "TL":
			ts.leading, _ = numOperand(lastOperand(op.Operands))
		case "Tc":
			ts.charSpace, _ = numOperand(lastOperand(op.Operands))
		case "Tw":
			ts.wordSpace, _ = numOperand(lastOperand(op.Operands))
		case "Tz":
			if v, ok := numOperand(lastOperand(op.Operands)); ok {
				ts.hscale = v / 100
			}
		case "Ts":
			ts.rise, _ = numOperand(lastOperand(op.Operands))
		case "Tj":
			if s, ok := lastString(op.Operands); ok {
				c.show(opIdx, -1, s, &ts, ctm, &line, &lastBaseY)
			}
		case "'":
			ts.tlm = translation(0, -ts.leading).mul(ts.tlm)
			ts.tm = ts.tlm
			if s, ok := lastString(op.Operands); ok {
				c.show(opIdx, -1, s, &ts, ctm, &line, &lastBaseY)
			}
		case "\"":
			if len(op.Operands) >= 3 {
				ts.wordSpace, _ = numOperand(op.Operands[len(op.Operands)-3])
				ts.charSpace, _ = numOperand(op.Operands[len(op.Operands)-2])
			}
			ts.tlm = translation(0, -ts.leading).mul(ts.tlm)
			ts.tm = ts.tlm
			if s, ok := lastString(op.Operands); ok {
				c.show(opIdx, -1, s, &ts, ctm, &line, &lastBaseY)
			}
		case "TJ":
			arr, ok := lastOperand(op.Operands).(Array)
			if !ok {
				break
			}
			for elem, item := range arr {
				switch v := item.(type) {
				case String:
					c.show(opIdx, elem, v, &ts, ctm, &line, &lastBaseY)
				case Integer:
					ts.tm = translation(-float64(v)/1000*ts.fontSize*ts.hscale, 0).mul(ts.tm)
				case Real:
					ts.tm = translation(-float64(v)/1000*ts.fontSize*ts.hscale, 0).mul(ts.tm)
				}
			}
		case "Do":
			if len(op.Operands) == 0 || xobjects == nil {
				break
			}
			name, ok := op.Operands[len(op.Operands)-1].(Name)
			if !ok {
				break
			}
			if xd, ok := c.page.doc.DictVal(xobjects[name]); ok {
				if sub, _ := c.page.doc.NameVal(xd["Subtype"]); sub == "Image" {
					c.Images = append(c.Images, ImagePlacement{
						Name: name,
						Rect: ctm.transformRect(Rect{X1: 1, Y1: 1}).normalized(),
					})
				}
			}
		}
	}
}

// show records one text-showing operation as a Span and advances the text
// matrix glyph by glyph.
func (c *PageContent) show(opIdx, elem int, s String, ts *textState, ctm matrix, line *int, lastBaseY *float64) {
	if len(s.Data) == 0 || ts.fontSize == 0 {
		return
	}
	span := Span{}
	var text []rune
	step := 1
	if ts.font != nil && ts.font.twoByte {
		step = 2
	}
	// New baseline means new line.
	base := matrix{ts.fontSize * ts.hscale, 0, 0, ts.fontSize, 0, ts.rise}.mul(ts.tm).mul(ctm)
	_, by := base.apply(0, 0)
	if !math.IsNaN(*lastBaseY) && math.Abs(by-*lastBaseY) > 0.5*math.Abs(ts.fontSize) {
		*line++
	}
	*lastBaseY = by

	for off := 0; off < len(s.Data); off += step {
		var code int
		n := step
		if step == 2 {
			if off+1 >= len(s.Data) {
				break
			}
			code = int(s.Data[off])<<8 | int(s.Data[off+1])
		} else {
			code = int(s.Data[off])
		}
		r := decodeRune(code, step)
		w0 := ts.font.width(code)

		trm := matrix{ts.fontSize * ts.hscale, 0, 0, ts.fontSize, 0, ts.rise}.mul(ts.tm).mul(ctm)
		glyph := trm.transformRect(Rect{X0: 0, Y0: glyphDescent, X1: w0, Y1: glyphAscent}).normalized()

		text = append(text, r)
		span.chars = append(span.chars, charBox{op: opIdx, elem: elem, off: off, n: n, rect: glyph})
		span.Rect = span.Rect.Union(glyph)

		adv := (w0*ts.fontSize + ts.charSpace) * ts.hscale
		if code == 32 && step == 1 {
			adv += ts.wordSpace * ts.hscale
		}
		ts.tm = translation(adv, 0).mul(ts.tm)
	}
	if len(text) == 0 {
		return
	}
	span.Text = string(text)
	span.Line = *line
	c.Spans = append(c.Spans, span)
}

func decodeRune(code, step int) rune {
	if step == 2 {
		if code >= 0xD800 && code <= 0xDFFF {
			return utf16.Decode([]uint16{uint16(code)})[0]
		}
		return rune(code)
	}
	return rune(code) // best-effort Latin-1 view of simple font codes
}

func operandMatrix(ops []Object) (matrix, bool) {
	if len(ops) < 6 {
		return matrix{}, false
	}
	var m matrix
	for i := 0; i < 6; i++ {
		v, ok := numOperand(ops[len(ops)-6+i])
		if !ok {
			return matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

func twoNums(ops []Object) (float64, float64, bool) {
	if len(ops) < 2 {
		return 0, 0, false
	}
	a, ok1 := numOperand(ops[len(ops)-2])
	b, ok2 := numOperand(ops[len(ops)-1])
	return a, b, ok1 && ok2
}

func lastOperand(ops []Object) Object {
	if len(ops) == 0 {
		return Null{}
	}
	return ops[len(ops)-1]
}

func lastString(ops []Object) (String, bool) {
	for i := len(ops) - 1; i >= 0; i-- {
		if s, ok := ops[i].(String); ok {
			return s, true
		}
	}
	return String{}, false
}

func numOperand(o Object) (float64, bool) {
	switch v := o.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}
