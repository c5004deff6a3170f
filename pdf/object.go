package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

// Object is the union of raw PDF object kinds. The set is closed: every
// implementation lives in this package.
type Object interface {
	writeTo(b *bytes.Buffer)
}

// Name is a PDF name object without the leading slash.
type Name string

// Integer is a PDF integer object.
type Integer int64

// Real is a PDF real number object.
type Real float64

// Boolean is a PDF boolean object.
type Boolean bool

// Null is the PDF null object.
type Null struct{}

// String is a PDF string object. Hex records the source notation so
// round-trips keep the original form.
type String struct {
	Data []byte
	Hex  bool
}

// Array is a PDF array object.
type Array []Object

// Dict is a PDF dictionary object keyed by name.
type Dict map[Name]Object

// Ref is an indirect object reference.
type Ref struct {
	Num int
	Gen int
}

// Stream is a PDF stream object. Raw holds the encoded payload exactly as it
// will appear between the stream/endstream keywords.
type Stream struct {
	Dict Dict
	Raw  []byte
}

func (n Name) writeTo(b *bytes.Buffer) {
	b.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c <= 0x20 || c >= 0x7f || bytes.IndexByte([]byte("()<>[]{}/%#"), c) >= 0 {
			fmt.Fprintf(b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
}

func (i Integer) writeTo(b *bytes.Buffer) { b.WriteString(strconv.FormatInt(int64(i), 10)) }

func (r Real) writeTo(b *bytes.Buffer) {
	s := strconv.FormatFloat(float64(r), 'f', -1, 64)
	b.WriteString(s)
}

func (v Boolean) writeTo(b *bytes.Buffer) {
	if v {
		b.WriteString("true")
		return
	}
	b.WriteString("false")
}

func (Null) writeTo(b *bytes.Buffer) { b.WriteString("null") }

func (s String) writeTo(b *bytes.Buffer) {
	if s.Hex {
		b.WriteByte('<')
		const hexdigits = "0123456789ABCDEF"
		for _, c := range s.Data {
			b.WriteByte(hexdigits[c>>4])
			b.WriteByte(hexdigits[c&0xf])
		}
		b.WriteByte('>')
		return
	}
	b.WriteByte('(')
	for _, c := range s.Data {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
}

func (a Array) writeTo(b *bytes.Buffer) {
	b.WriteByte('[')
	for i, item := range a {
		if i > 0 {
			b.WriteByte(' ')
		}
		item.writeTo(b)
	}
	b.WriteByte(']')
}

func (d Dict) writeTo(b *bytes.Buffer) {
	b.WriteString("<<")
	for _, k := range d.sortedKeys() {
		b.WriteByte(' ')
		k.writeTo(b)
		b.WriteByte(' ')
		d[k].writeTo(b)
	}
	b.WriteString(" >>")
}

func (r Ref) writeTo(b *bytes.Buffer) {
	fmt.Fprintf(b, "%d %d R", r.Num, r.Gen)
}

func (s Stream) writeTo(b *bytes.Buffer) {
	d := s.Dict
	if d == nil {
		d = Dict{}
	}
	d[Name("Length")] = Integer(len(s.Raw))
	d.writeTo(b)
	b.WriteString("\nstream\n")
	b.Write(s.Raw)
	b.WriteString("\nendstream")
}

func (d Dict) sortedKeys() []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// Serialize renders a single object in PDF syntax.
func Serialize(o Object) []byte {
	var b bytes.Buffer
	o.writeTo(&b)
	return b.Bytes()
}
