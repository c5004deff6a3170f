package pdf

import (
	"bytes"
	"fmt"
	"sort"
)

// Serialize writes the whole document as a fresh PDF: header, every live
// object in number order, a classic cross-reference table and trailer.
// Incremental update sections from the input are deliberately collapsed, so
// no pre-redaction object generations survive in the output.
func (d *Document) Serialize() ([]byte, error) {
	if d.trailer == nil {
		return nil, fmt.Errorf("pdf: cannot serialize document without trailer")
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	nums := make([]int, 0, len(d.objects))
	for num, obj := range d.objects {
		// Cross-reference and object streams from the input are carriers,
		// not content: their members are already flattened into the object
		// set and a fresh xref table is written below.
		if s, ok := obj.(Stream); ok {
			if t, _ := s.Dict["Type"].(Name); t == "XRef" || t == "ObjStm" {
				continue
			}
		}
		nums = append(nums, num)
	}
	sort.Ints(nums)

	offsets := make(map[int]int64, len(nums))
	for _, num := range nums {
		offsets[num] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n", num)
		zeroGen(d.objects[num]).writeTo(&buf)
		buf.WriteString("\nendobj\n")
	}

	xrefPos := int64(buf.Len())
	maxNum := 0
	if len(nums) > 0 {
		maxNum = nums[len(nums)-1]
	}
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := Dict{"Size": Integer(maxNum + 1)}
	for _, key := range []Name{"Root", "Info", "ID"} {
		if v, ok := d.trailer[key]; ok {
			trailer[key] = zeroGen(v)
		}
	}
	buf.WriteString("trailer\n")
	trailer.writeTo(&buf)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return buf.Bytes(), nil
}

// zeroGen rewrites every indirect reference to generation zero. Serialize
// emits all objects at generation zero, so a carried-over generation would
// point at an entry the fresh xref table never fills.
func zeroGen(o Object) Object {
	switch v := o.(type) {
	case Ref:
		v.Gen = 0
		return v
	case Array:
		for i, e := range v {
			v[i] = zeroGen(e)
		}
		return v
	case Dict:
		for k, e := range v {
			v[k] = zeroGen(e)
		}
		return v
	case Stream:
		v.Dict = zeroGen(v.Dict).(Dict)
		return v
	}
	return o
}
