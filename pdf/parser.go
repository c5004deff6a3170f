package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrEncrypted marks documents with an /Encrypt dictionary. Decryption is out
// of scope; callers surface these as unsupported inputs.
var ErrEncrypted = errors.New("pdf: document is encrypted")

// Document is a parsed PDF: the loaded object set plus the trailer. One
// Document belongs to exactly one processing run and is not safe for
// concurrent mutation.
type Document struct {
	objects map[int]Object
	trailer Dict
	maxNum  int
	pages   []*Page
}

type xrefEntry struct {
	offset    int64
	inStream  int // object number of the holding object stream, 0 if none
	streamIdx int
}

// Parse reads a complete PDF from memory. Damaged cross-reference data is
// repaired by scanning for indirect objects, matching the tolerance of the
// usual viewers.
func Parse(data []byte) (*Document, error) {
	d := &Document{objects: make(map[int]Object)}
	if err := d.loadXref(data); err != nil {
		if rerr := d.rebuild(data); rerr != nil {
			return nil, fmt.Errorf("pdf: %w (repair failed: %v)", err, rerr)
		}
	}
	if d.trailer == nil {
		return nil, errors.New("pdf: no trailer found")
	}
	if _, ok := d.trailer["Encrypt"]; ok {
		return nil, ErrEncrypted
	}
	if err := d.buildPages(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) loadXref(data []byte) error {
	offset, err := findStartXref(data)
	if err != nil {
		return err
	}
	table := make(map[int]xrefEntry)
	seen := make(map[int64]bool)
	for offset >= 0 {
		if seen[offset] || offset >= int64(len(data)) {
			break
		}
		seen[offset] = true
		next, err := d.readXrefSection(data, offset, table)
		if err != nil {
			return err
		}
		offset = next
	}
	if d.trailer == nil {
		return errors.New("xref chain yielded no trailer")
	}
	return d.loadEntries(data, table)
}

func findStartXref(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("startxref not found")
	}
	l := newLexer(tail[idx+len("startxref"):])
	obj, err := l.next()
	if err != nil {
		return 0, err
	}
	n, ok := obj.(Integer)
	if !ok {
		return 0, errors.New("malformed startxref offset")
	}
	return int64(n), nil
}

// readXrefSection parses one xref table or stream at offset, merging entries
// that are not already present (earlier sections win), and returns the /Prev
// offset or -1.
func (d *Document) readXrefSection(data []byte, offset int64, table map[int]xrefEntry) (int64, error) {
	l := newLexer(data)
	l.pos = int(offset)
	l.skipSpace()
	if bytes.HasPrefix(data[l.pos:], []byte("xref")) {
		return d.readXrefTable(data, l, table)
	}
	return d.readXrefStream(data, l, table)
}

func (d *Document) readXrefTable(data []byte, l *lexer, table map[int]xrefEntry) (int64, error) {
	l.pos += len("xref")
	for {
		l.skipSpace()
		if bytes.HasPrefix(data[l.pos:], []byte("trailer")) {
			l.pos += len("trailer")
			break
		}
		startObj, err := l.next()
		if err != nil {
			return -1, err
		}
		countObj, err := l.next()
		if err != nil {
			return -1, err
		}
		start, ok1 := startObj.(Integer)
		count, ok2 := countObj.(Integer)
		if !ok1 || !ok2 {
			return -1, errors.New("malformed xref subsection header")
		}
		for i := 0; i < int(count); i++ {
			l.skipSpace()
			if l.pos+18 > len(data) {
				return -1, errors.New("truncated xref entry")
			}
			entry := data[l.pos : l.pos+18]
			l.pos += 18
			off, err1 := strconv.ParseInt(string(bytes.TrimSpace(entry[0:10])), 10, 64)
			kind := entry[17]
			if err1 != nil {
				return -1, errors.New("malformed xref entry")
			}
			num := int(start) + i
			if kind == 'n' {
				if _, exists := table[num]; !exists {
					table[num] = xrefEntry{offset: off}
				}
			}
		}
	}
	trailerObj, err := l.next()
	if err != nil {
		return -1, err
	}
	trailer, ok := trailerObj.(Dict)
	if !ok {
		return -1, errors.New("malformed trailer dictionary")
	}
	if d.trailer == nil {
		d.trailer = trailer
	}
	next := int64(-1)
	if prev, ok := trailer["Prev"].(Integer); ok {
		next = int64(prev)
	}
	// Hybrid-reference files keep the authoritative entries in /XRefStm.
	if stm, ok := trailer["XRefStm"].(Integer); ok {
		if _, err := d.readXrefSection(data, int64(stm), table); err == nil {
			return next, nil
		}
	}
	return next, nil
}

func (d *Document) readXrefStream(data []byte, l *lexer, table map[int]xrefEntry) (int64, error) {
	_, _, stream, err := parseIndirect(l)
	if err != nil {
		return -1, err
	}
	s, ok := stream.(Stream)
	if !ok {
		return -1, errors.New("xref offset does not point at a stream")
	}
	content, full, err := d.DecodeStream(s)
	if err != nil || !full {
		return -1, fmt.Errorf("decode xref stream: %w", err)
	}
	wArr, _ := s.Dict["W"].(Array)
	if len(wArr) < 3 {
		return -1, errors.New("xref stream missing W")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		n, ok := wArr[i].(Integer)
		if !ok {
			return -1, errors.New("malformed W array")
		}
		w[i] = int(n)
	}
	size, _ := s.Dict["Size"].(Integer)
	index := []int{0, int(size)}
	if idxArr, ok := s.Dict["Index"].(Array); ok {
		index = index[:0]
		for _, v := range idxArr {
			n, ok := v.(Integer)
			if !ok {
				return -1, errors.New("malformed Index array")
			}
			index = append(index, int(n))
		}
	}
	rowLen := w[0] + w[1] + w[2]
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(content) {
				return -1, errors.New("truncated xref stream")
			}
			row := content[pos : pos+rowLen]
			pos += rowLen
			typ := int64(1)
			if w[0] > 0 {
				typ = beInt(row[:w[0]])
			}
			f2 := beInt(row[w[0] : w[0]+w[1]])
			f3 := beInt(row[w[0]+w[1]:])
			num := start + j
			if _, exists := table[num]; exists {
				continue
			}
			switch typ {
			case 1:
				table[num] = xrefEntry{offset: f2}
			case 2:
				table[num] = xrefEntry{inStream: int(f2), streamIdx: int(f3)}
			}
		}
	}
	if d.trailer == nil {
		d.trailer = s.Dict
	}
	if prev, ok := s.Dict["Prev"].(Integer); ok {
		return int64(prev), nil
	}
	return -1, nil
}

func beInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// loadEntries materializes every object referenced by the xref table,
// including objects packed into object streams.
func (d *Document) loadEntries(data []byte, table map[int]xrefEntry) error {
	compressed := make(map[int][]int) // objstm number -> member object numbers
	for num, e := range table {
		if e.inStream != 0 {
			compressed[e.inStream] = append(compressed[e.inStream], num)
			continue
		}
		if e.offset <= 0 || e.offset >= int64(len(data)) {
			continue
		}
		l := newLexer(data)
		l.pos = int(e.offset)
		gotNum, _, obj, err := parseIndirect(l)
		if err != nil || gotNum != num {
			continue
		}
		d.put(num, obj)
	}
	for stmNum := range compressed {
		if err := d.loadObjectStream(stmNum); err != nil {
			return fmt.Errorf("object stream %d: %w", stmNum, err)
		}
	}
	return nil
}

func (d *Document) loadObjectStream(num int) error {
	s, ok := d.objects[num].(Stream)
	if !ok {
		return errors.New("referenced object is not a stream")
	}
	content, full, err := d.DecodeStream(s)
	if err != nil || !full {
		return fmt.Errorf("decode: %w", err)
	}
	n, _ := d.Int(s.Dict["N"])
	first, _ := d.Int(s.Dict["First"])
	head := newLexer(content)
	type member struct{ num, off int }
	members := make([]member, 0, n)
	for i := int64(0); i < n; i++ {
		numObj, err := head.next()
		if err != nil {
			return err
		}
		offObj, err := head.next()
		if err != nil {
			return err
		}
		mn, ok1 := numObj.(Integer)
		mo, ok2 := offObj.(Integer)
		if !ok1 || !ok2 {
			return errors.New("malformed object stream header")
		}
		members = append(members, member{int(mn), int(mo)})
	}
	for _, m := range members {
		pos := int(first) + m.off
		if pos < 0 || pos >= len(content) {
			continue
		}
		l := newLexer(content)
		l.pos = pos
		obj, err := l.next()
		if err != nil {
			continue
		}
		if _, exists := d.objects[m.num]; !exists {
			d.put(m.num, obj)
		}
	}
	return nil
}

// parseIndirect reads "num gen obj <object> [stream]" at the lexer position.
// For streams the raw payload is captured using /Length when it is a direct
// integer; otherwise the caller resolves it by scanning.
func parseIndirect(l *lexer) (num, gen int, obj Object, err error) {
	numObj, err := l.next()
	if err != nil {
		return 0, 0, nil, err
	}
	genObj, err := l.next()
	if err != nil {
		return 0, 0, nil, err
	}
	kw, err := l.next()
	if err != nil {
		return 0, 0, nil, err
	}
	n, ok1 := numObj.(Integer)
	g, ok2 := genObj.(Integer)
	if !ok1 || !ok2 || kw != keyword("obj") {
		return 0, 0, nil, fmt.Errorf("pdf: not an indirect object at %d", l.pos)
	}
	body, err := l.next()
	if err != nil {
		return 0, 0, nil, err
	}
	save := l.pos
	nextTok, err := l.next()
	if err == nil && nextTok == keyword("stream") {
		dict, ok := body.(Dict)
		if !ok {
			return 0, 0, nil, errors.New("pdf: stream keyword after non-dictionary")
		}
		// EOL after the stream keyword: CRLF or LF.
		if l.pos < len(l.data) && l.data[l.pos] == '\r' {
			l.pos++
		}
		if l.pos < len(l.data) && l.data[l.pos] == '\n' {
			l.pos++
		}
		start := l.pos
		end := -1
		if length, ok := dict["Length"].(Integer); ok {
			cand := start + int(length)
			if cand <= len(l.data) && validEndstream(l.data, cand) {
				end = cand
			}
		}
		if end < 0 {
			rel := bytes.Index(l.data[start:], []byte("endstream"))
			if rel < 0 {
				return 0, 0, nil, errLexEOF
			}
			end = start + rel
			for end > start && (l.data[end-1] == '\n' || l.data[end-1] == '\r') {
				end--
			}
		}
		raw := make([]byte, end-start)
		copy(raw, l.data[start:end])
		l.pos = end
		return int(n), int(g), Stream{Dict: dict, Raw: raw}, nil
	}
	l.pos = save
	return int(n), int(g), body, nil
}

func validEndstream(data []byte, pos int) bool {
	for pos < len(data) && (data[pos] == '\r' || data[pos] == '\n' || data[pos] == ' ') {
		pos++
	}
	return bytes.HasPrefix(data[pos:], []byte("endstream"))
}

var objPattern = regexp.MustCompile(`(?s)(\d+)\s+(\d+)\s+obj\b`)

// rebuild scans the whole file for indirect objects when the xref chain is
// unusable.
func (d *Document) rebuild(data []byte) error {
	d.objects = make(map[int]Object)
	d.trailer = nil
	d.maxNum = 0
	for _, loc := range objPattern.FindAllIndex(data, -1) {
		l := newLexer(data)
		l.pos = loc[0]
		num, _, obj, err := parseIndirect(l)
		if err != nil {
			continue
		}
		d.put(num, obj) // later definitions win during repair
	}
	if len(d.objects) == 0 {
		return errors.New("no indirect objects found")
	}
	// Prefer an explicit trailer, fall back to the catalog object.
	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		l := newLexer(data)
		l.pos = idx + len("trailer")
		if obj, err := l.next(); err == nil {
			if t, ok := obj.(Dict); ok {
				d.trailer = t
			}
		}
	}
	if d.trailer == nil {
		for num, obj := range d.objects {
			if dict, ok := obj.(Dict); ok {
				if t, _ := dict["Type"].(Name); t == "Catalog" {
					d.trailer = Dict{"Root": Ref{Num: num}, "Size": Integer(d.maxNum + 1)}
					break
				}
			}
		}
	}
	if d.trailer == nil {
		return errors.New("no trailer or catalog found")
	}
	return nil
}

func (d *Document) put(num int, obj Object) {
	d.objects[num] = obj
	if num > d.maxNum {
		d.maxNum = num
	}
}

// Resolve follows indirect references until a direct object is reached.
func (d *Document) Resolve(o Object) Object {
	for depth := 0; depth < 32; depth++ {
		ref, ok := o.(Ref)
		if !ok {
			return o
		}
		next, ok := d.objects[ref.Num]
		if !ok {
			return Null{}
		}
		o = next
	}
	return Null{}
}

// Int resolves o and returns its integer value.
func (d *Document) Int(o Object) (int64, bool) {
	switch v := d.Resolve(o).(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

// Float resolves o and returns its numeric value.
func (d *Document) Float(o Object) (float64, bool) {
	switch v := d.Resolve(o).(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// DictVal resolves o to a dictionary, unwrapping streams to their dictionary.
func (d *Document) DictVal(o Object) (Dict, bool) {
	switch v := d.Resolve(o).(type) {
	case Dict:
		return v, true
	case Stream:
		return v.Dict, true
	}
	return nil, false
}

// ArrayVal resolves o to an array.
func (d *Document) ArrayVal(o Object) (Array, bool) {
	v, ok := d.Resolve(o).(Array)
	return v, ok
}

// NameVal resolves o to a name.
func (d *Document) NameVal(o Object) (Name, bool) {
	v, ok := d.Resolve(o).(Name)
	return v, ok
}

// Trailer exposes the document trailer dictionary.
func (d *Document) Trailer() Dict { return d.trailer }
