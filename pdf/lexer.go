package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// keyword is a bare word read at object position (obj, endobj, stream, an
// operator inside a content stream, ...). It never escapes the package.
type keyword string

func (k keyword) writeTo(b *bytes.Buffer) { b.WriteString(string(k)) }

var errLexEOF = errors.New("pdf: unexpected end of input")

// lexer reads PDF syntax from an in-memory buffer. Documents are fully
// buffered for rewriting anyway, so there is no windowed IO here.
type lexer struct {
	data []byte
	pos  int
}

func newLexer(data []byte) *lexer { return &lexer{data: data} }

func isWhitespace(c byte) bool {
	switch c {
	case 0x00, 0x09, 0x0a, 0x0c, 0x0d, 0x20:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) peek() (byte, bool) {
	if l.pos >= len(l.data) {
		return 0, false
	}
	return l.data[l.pos], true
}

// next reads one object. Bare words come back as keyword values; indirect
// references are resolved by three-token lookahead on integers.
func (l *lexer) next() (Object, error) {
	l.skipSpace()
	c, ok := l.peek()
	if !ok {
		return nil, errLexEOF
	}
	switch {
	case c == '/':
		return l.readName()
	case c == '(':
		return l.readLiteralString()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			return l.readDict()
		}
		return l.readHexString()
	case c == '[':
		return l.readArray()
	case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
		l.pos++
		return keyword(string(c)), nil
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.readNumberOrRef()
	default:
		return l.readKeyword()
	}
}

func (l *lexer) readName() (Object, error) {
	l.pos++ // '/'
	var out []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' && l.pos+2 < len(l.data) {
			if v, err := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				l.pos += 3
				continue
			}
		}
		out = append(out, c)
		l.pos++
	}
	return Name(out), nil
}

func (l *lexer) readKeyword() (Object, error) {
	start := l.pos
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		return nil, fmt.Errorf("pdf: stray delimiter %q at %d", l.data[l.pos], l.pos)
	}
	word := string(l.data[start:l.pos])
	switch word {
	case "true":
		return Boolean(true), nil
	case "false":
		return Boolean(false), nil
	case "null":
		return Null{}, nil
	}
	return keyword(word), nil
}

func (l *lexer) readNumberOrRef() (Object, error) {
	num, isInt, err := l.readNumber()
	if err != nil {
		return nil, err
	}
	if !isInt || num < 0 {
		if isInt {
			return Integer(num), nil
		}
		return Real(num), nil
	}
	// Lookahead for "gen R".
	save := l.pos
	l.skipSpace()
	if c, ok := l.peek(); ok && c >= '0' && c <= '9' {
		gen, genInt, err := l.readNumber()
		if err == nil && genInt && gen >= 0 {
			l.skipSpace()
			if l.pos < len(l.data) && l.data[l.pos] == 'R' {
				boundary := l.pos+1 >= len(l.data) ||
					isWhitespace(l.data[l.pos+1]) || isDelimiter(l.data[l.pos+1])
				if boundary {
					l.pos++
					return Ref{Num: int(num), Gen: int(gen)}, nil
				}
			}
		}
	}
	l.pos = save
	return Integer(num), nil
}

func (l *lexer) readNumber() (float64, bool, error) {
	start := l.pos
	if c, ok := l.peek(); ok && (c == '+' || c == '-') {
		l.pos++
	}
	isInt := true
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '.' {
			isInt = false
			l.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		l.pos++
	}
	if l.pos == start {
		return 0, false, fmt.Errorf("pdf: malformed number at %d", start)
	}
	v, err := strconv.ParseFloat(string(l.data[start:l.pos]), 64)
	if err != nil {
		return 0, false, fmt.Errorf("pdf: malformed number at %d: %w", start, err)
	}
	return v, isInt, nil
}

func (l *lexer) readLiteralString() (Object, error) {
	l.pos++ // '('
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch c {
		case '\\':
			l.pos++
			if l.pos >= len(l.data) {
				return nil, errLexEOF
			}
			e := l.data[l.pos]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				if l.pos+1 < len(l.data) && l.data[l.pos+1] == '\n' {
					l.pos++
				}
			case '\n':
				// line continuation, emits nothing
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.pos+1 < len(l.data); k++ {
						d := l.data[l.pos+1]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			l.pos++
		case '(':
			depth++
			out = append(out, c)
			l.pos++
		case ')':
			depth--
			if depth == 0 {
				l.pos++
				return String{Data: out}, nil
			}
			out = append(out, c)
			l.pos++
		default:
			out = append(out, c)
			l.pos++
		}
	}
	return nil, errLexEOF
}

func (l *lexer) readHexString() (Object, error) {
	l.pos++ // '<'
	var out []byte
	var hi byte
	haveHi := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '>' {
			l.pos++
			if haveHi {
				out = append(out, hi<<4)
			}
			return String{Data: out, Hex: true}, nil
		}
		v, ok := hexVal(c)
		if ok {
			if haveHi {
				out = append(out, hi<<4|v)
				haveHi = false
			} else {
				hi = v
				haveHi = true
			}
		}
		l.pos++
	}
	return nil, errLexEOF
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *lexer) readArray() (Object, error) {
	l.pos++ // '['
	arr := Array{}
	for {
		l.skipSpace()
		if c, ok := l.peek(); ok && c == ']' {
			l.pos++
			return arr, nil
		}
		item, err := l.next()
		if err != nil {
			return nil, err
		}
		if kw, ok := item.(keyword); ok {
			return nil, fmt.Errorf("pdf: unexpected %q inside array", string(kw))
		}
		arr = append(arr, item)
	}
}

func (l *lexer) readDict() (Object, error) {
	l.pos += 2 // '<<'
	d := Dict{}
	for {
		l.skipSpace()
		if l.pos+1 < len(l.data) && l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			l.pos += 2
			return d, nil
		}
		key, err := l.next()
		if err != nil {
			return nil, err
		}
		name, ok := key.(Name)
		if !ok {
			return nil, fmt.Errorf("pdf: dictionary key is %T, want name", key)
		}
		val, err := l.next()
		if err != nil {
			return nil, err
		}
		if kw, ok := val.(keyword); ok {
			return nil, fmt.Errorf("pdf: unexpected %q as dictionary value", string(kw))
		}
		d[name] = val
	}
}
