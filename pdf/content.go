package pdf

import (
	"bytes"
	"errors"
)

// Operation is one content stream operator with its operands. Inline images
// (BI ... EI) are carried verbatim in Raw and re-emitted untouched.
type Operation struct {
	Operator string
	Operands []Object
	Raw      []byte
}

// ParseContent tokenizes a decoded content stream into operations. Unknown
// operators pass through untouched; only structurally broken streams fail.
func ParseContent(data []byte) ([]Operation, error) {
	l := newLexer(data)
	var ops []Operation
	var operands []Object
	for {
		l.skipSpace()
		if _, ok := l.peek(); !ok {
			break
		}
		obj, err := l.next()
		if err != nil {
			if errors.Is(err, errLexEOF) {
				break
			}
			return nil, err
		}
		kw, isOp := obj.(keyword)
		if !isOp {
			operands = append(operands, obj)
			continue
		}
		if kw == "BI" {
			raw, err := readInlineImage(l)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Operation{Operator: "BI", Raw: raw})
			operands = nil
			continue
		}
		ops = append(ops, Operation{Operator: string(kw), Operands: operands})
		operands = nil
	}
	return ops, nil
}

// readInlineImage captures everything from after BI through EI, verbatim.
func readInlineImage(l *lexer) ([]byte, error) {
	start := l.pos
	for {
		idx := bytes.Index(l.data[l.pos:], []byte("EI"))
		if idx < 0 {
			return nil, errLexEOF
		}
		end := l.pos + idx
		after := end + 2
		atBoundary := after >= len(l.data) || isWhitespace(l.data[after]) || isDelimiter(l.data[after])
		beforeOK := end == 0 || isWhitespace(l.data[end-1])
		if atBoundary && beforeOK {
			l.pos = after
			return l.data[start:after], nil
		}
		l.pos = end + 2
	}
}

// SerializeContent renders operations back into content stream syntax.
func SerializeContent(ops []Operation) []byte {
	var b bytes.Buffer
	for _, op := range ops {
		if op.Operator == "BI" {
			b.WriteString("BI")
			b.Write(op.Raw)
			b.WriteByte('\n')
			continue
		}
		for _, operand := range op.Operands {
			operand.writeTo(&b)
			b.WriteByte(' ')
		}
		b.WriteString(op.Operator)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// textOperators lists operators that belong to text objects. Stripping these
// from a page removes its entire text layer while leaving graphics intact.
var textOperators = map[string]bool{
	"BT": true, "ET": true, "Tj": true, "TJ": true, "'": true, "\"": true,
	"Td": true, "TD": true, "Tm": true, "T*": true,
	"Tc": true, "Tw": true, "Tz": true, "TL": true, "Tf": true, "Tr": true, "Ts": true,
}

// StripText removes every text object from the operation list. Used on
// scanned pages so a stale or partial text layer cannot leak into the output.
func StripText(ops []Operation) []Operation {
	out := make([]Operation, 0, len(ops))
	inText := false
	for _, op := range ops {
		switch {
		case op.Operator == "BT":
			inText = true
		case op.Operator == "ET":
			inText = false
		case !inText && !textOperators[op.Operator]:
			out = append(out, op)
		}
	}
	return out
}
