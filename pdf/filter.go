package pdf

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// imageFilters are stream filters whose output is compressed raster data that
// the object layer passes through untouched. Image decoding happens in
// ImageAsset, not here.
var imageFilters = map[Name]bool{
	"DCTDecode":      true,
	"JPXDecode":      true,
	"JBIG2Decode":    true,
	"CCITTFaxDecode": true,
}

// DecodeStream applies the stream's filter chain and returns the decoded
// payload. Image filters are left in place: the returned bool reports whether
// the data is fully decoded.
func (d *Document) DecodeStream(s Stream) ([]byte, bool, error) {
	filters, parms := d.filterChain(s.Dict)
	data := s.Raw
	for i, f := range filters {
		if imageFilters[f] {
			return data, false, nil
		}
		var parm Dict
		if i < len(parms) {
			parm = parms[i]
		}
		out, err := d.decodeOne(f, data, parm)
		if err != nil {
			return nil, false, fmt.Errorf("decode %s: %w", f, err)
		}
		data = out
	}
	return data, true, nil
}

func (d *Document) filterChain(dict Dict) ([]Name, []Dict) {
	var filters []Name
	var parms []Dict
	switch f := d.Resolve(dict["Filter"]).(type) {
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := d.Resolve(item).(Name); ok {
				filters = append(filters, n)
			}
		}
	}
	switch p := d.Resolve(dict["DecodeParms"]).(type) {
	case Dict:
		parms = []Dict{p}
	case Array:
		for _, item := range p {
			pd, _ := d.Resolve(item).(Dict)
			parms = append(parms, pd)
		}
	}
	return filters, parms
}

func (d *Document) decodeOne(filter Name, data []byte, parm Dict) ([]byte, error) {
	switch filter {
	case "FlateDecode", "Fl":
		out, err := flateDecode(data)
		if err != nil {
			return nil, err
		}
		return d.applyPredictor(out, parm)
	case "ASCIIHexDecode", "AHx":
		trimmed := strings.TrimSuffix(strings.Map(dropSpace, string(data)), ">")
		if len(trimmed)%2 == 1 {
			trimmed += "0"
		}
		return hex.DecodeString(trimmed)
	case "ASCII85Decode", "A85":
		src := bytes.TrimSuffix(bytes.TrimSpace(data), []byte("~>"))
		out := make([]byte, len(src))
		n, _, err := ascii85.Decode(out, src, true)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("unsupported filter %s", filter)
	}
}

func dropSpace(r rune) rune {
	if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
		return -1
	}
	return r
}

func flateDecode(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && len(out) == 0 {
		return nil, err
	}
	// Truncated deflate tails are tolerated; whatever decoded is returned.
	return out, nil
}

// flateEncode compresses data for stream rewriting.
func flateEncode(data []byte) []byte {
	var b bytes.Buffer
	zw := zlib.NewWriter(&b)
	zw.Write(data)
	zw.Close()
	return b.Bytes()
}

// applyPredictor undoes PNG row predictors used by cross-reference streams
// and some content streams.
func (d *Document) applyPredictor(data []byte, parm Dict) ([]byte, error) {
	if parm == nil {
		return data, nil
	}
	pred, _ := d.Int(parm["Predictor"])
	if pred < 2 {
		return data, nil
	}
	colors, ok := d.Int(parm["Colors"])
	if !ok {
		colors = 1
	}
	bpc, ok := d.Int(parm["BitsPerComponent"])
	if !ok {
		bpc = 8
	}
	columns, ok := d.Int(parm["Columns"])
	if !ok {
		columns = 1
	}
	if pred == 2 {
		// TIFF predictor on 8-bit samples only.
		if bpc != 8 {
			return data, nil
		}
		stride := int(colors)
		rowLen := int(columns) * stride
		for r := 0; r+rowLen <= len(data); r += rowLen {
			for i := stride; i < rowLen; i++ {
				data[r+i] += data[r+i-stride]
			}
		}
		return data, nil
	}
	// PNG predictors: each row is prefixed with a filter type byte.
	bpp := int(colors*bpc+7) / 8
	rowLen := (int(colors)*int(bpc)*int(columns) + 7) / 8
	if rowLen <= 0 {
		return nil, fmt.Errorf("bad predictor columns %d", columns)
	}
	var out []byte
	prev := make([]byte, rowLen)
	for r := 0; r+1 <= len(data); r += rowLen + 1 {
		ft := data[r]
		end := r + 1 + rowLen
		if end > len(data) {
			end = len(data)
		}
		row := make([]byte, rowLen)
		copy(row, data[r+1:end])
		switch ft {
		case 0:
		case 1:
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2:
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3:
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bpp {
					left = int(row[i-bpp])
				}
				row[i] += byte((left + int(prev[i])) / 2)
			}
		case 4:
			for i := 0; i < rowLen; i++ {
				left, up, ul := 0, int(prev[i]), 0
				if i >= bpp {
					left = int(row[i-bpp])
					ul = int(prev[i-bpp])
				}
				row[i] += byte(paeth(left, up, ul))
			}
		default:
			return nil, fmt.Errorf("bad PNG predictor row filter %d", ft)
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c int) int {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
