package pdf

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
)

func TestLexerBasicObjects(t *testing.T) {
	l := newLexer([]byte(`<< /Type /Page /MediaBox [0 0 612 792] /Parent 3 0 R /N (hi\)there) /H <48 69> >>`))
	obj, err := l.next()
	if err != nil {
		t.Fatalf("next() error = %v", err)
	}
	d, ok := obj.(Dict)
	if !ok {
		t.Fatalf("expected dict, got %T", obj)
	}
	if d["Type"] != Name("Page") {
		t.Fatalf("unexpected Type: %v", d["Type"])
	}
	mb, ok := d["MediaBox"].(Array)
	if !ok || len(mb) != 4 {
		t.Fatalf("unexpected MediaBox: %#v", d["MediaBox"])
	}
	if mb[2] != Integer(612) {
		t.Fatalf("unexpected MediaBox width: %v", mb[2])
	}
	if d["Parent"] != (Ref{Num: 3, Gen: 0}) {
		t.Fatalf("unexpected Parent: %#v", d["Parent"])
	}
	if s := d["N"].(String); string(s.Data) != "hi)there" {
		t.Fatalf("unexpected literal string: %q", s.Data)
	}
	if s := d["H"].(String); string(s.Data) != "Hi" {
		t.Fatalf("unexpected hex string: %q", s.Data)
	}
}

func TestLexerNumberVsRef(t *testing.T) {
	l := newLexer([]byte("[1 2 3] [1 0 R] 4.5"))
	arr, err := l.next()
	if err != nil {
		t.Fatalf("next() error = %v", err)
	}
	if a := arr.(Array); len(a) != 3 || a[0] != Integer(1) {
		t.Fatalf("plain integers misparsed: %#v", a)
	}
	arr, err = l.next()
	if err != nil {
		t.Fatalf("next() error = %v", err)
	}
	if a := arr.(Array); len(a) != 1 || a[0] != (Ref{Num: 1}) {
		t.Fatalf("reference misparsed: %#v", a)
	}
	num, err := l.next()
	if err != nil {
		t.Fatalf("next() error = %v", err)
	}
	if num != Real(4.5) {
		t.Fatalf("real misparsed: %#v", num)
	}
}

func buildSimple(t *testing.T, lines ...string) *Document {
	t.Helper()
	b := NewBuilder()
	page := b.AddPage(612, 792)
	y := 700.0
	for _, line := range lines {
		page.Text(72, y, 12, line)
		y -= 20
	}
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestBuildParseRoundTrip(t *testing.T) {
	doc := buildSimple(t, "John Smith appeared in court.", "The hearing was adjourned.")
	pages := doc.Pages()
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].MediaBox.Width() != 612 {
		t.Fatalf("unexpected MediaBox: %+v", pages[0].MediaBox)
	}
	content, err := pages[0].Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if len(content.Spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(content.Spans))
	}
	if content.Spans[0].Text != "John Smith appeared in court." {
		t.Fatalf("unexpected span text: %q", content.Spans[0].Text)
	}
	if content.Spans[0].Line == content.Spans[1].Line {
		t.Fatalf("spans on different baselines share a line id")
	}
	if got := content.Text(); !strings.Contains(got, "hearing") {
		t.Fatalf("page text missing content: %q", got)
	}
}

func TestSerializeZeroesGenerations(t *testing.T) {
	doc := buildSimple(t, "John Smith appeared in court.")
	root, ok := doc.Trailer()["Root"].(Ref)
	if !ok {
		t.Fatalf("trailer Root is not a ref: %#v", doc.Trailer()["Root"])
	}
	doc.Trailer()["Root"] = Ref{Num: root.Num, Gen: 5}

	out, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if bytes.Contains(out, []byte(" 5 R")) {
		t.Fatalf("output still references generation 5")
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(reparsed.Pages()) != 1 {
		t.Fatalf("expected 1 page after reparse, got %d", len(reparsed.Pages()))
	}
}

func TestSpanGeometry(t *testing.T) {
	doc := buildSimple(t, "AB")
	content, err := doc.Pages()[0].Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	span := content.Spans[0]
	if span.Rect.X0 != 72 {
		t.Fatalf("span should start at x=72, got %g", span.Rect.X0)
	}
	if span.Rect.Y0 > 700 || span.Rect.Y1 < 700 {
		t.Fatalf("baseline 700 outside span rect %+v", span.Rect)
	}
	first := span.CharRect(0)
	second := span.CharRect(1)
	if second.X0 <= first.X0 {
		t.Fatalf("char boxes do not advance: %+v then %+v", first, second)
	}
	if !doc.Pages()[0].MediaBox.Contains(span.Rect.X0, span.Rect.Y0) {
		t.Fatalf("span rect escapes the page: %+v", span.Rect)
	}
}

func TestMaskCharsDestroysText(t *testing.T) {
	doc := buildSimple(t, "Defendant John Smith appeared")
	page := doc.Pages()[0]
	content, err := page.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	idx := strings.Index(content.Spans[0].Text, "John Smith")
	if idx < 0 {
		t.Fatalf("fixture text missing target")
	}
	content.MaskChars(0, idx, idx+len("John Smith"))
	content.Apply()

	out, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(rewritten) error = %v", err)
	}
	rc, err := reparsed.Pages()[0].Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	text := rc.Text()
	if strings.Contains(text, "John Smith") {
		t.Fatalf("masked text still extractable: %q", text)
	}
	if !strings.Contains(text, "Defendant") {
		t.Fatalf("untouched text lost: %q", text)
	}
}

func TestStripTextLayer(t *testing.T) {
	doc := buildSimple(t, "stale ocr layer")
	page := doc.Pages()[0]
	content, err := page.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	content.StripTextLayer()
	content.Apply()

	out, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(rewritten) error = %v", err)
	}
	rc, err := reparsed.Pages()[0].Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if len(rc.Spans) != 0 {
		t.Fatalf("text layer survived strip: %d spans", len(rc.Spans))
	}
}

func TestImageAssetRoundTrip(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 80))
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	b := NewBuilder()
	b.AddPage(612, 792).Image(img, Rect{X0: 0, Y0: 0, X1: 612, Y1: 792})
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	page := doc.Pages()[0]
	assets := page.ImageAssets()
	if len(assets) != 1 {
		t.Fatalf("expected 1 image asset, got %d", len(assets))
	}
	if assets[0].Width != 120 || assets[0].Height != 80 {
		t.Fatalf("unexpected asset dims: %dx%d", assets[0].Width, assets[0].Height)
	}
	decoded, err := assets[0].Image()
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if decoded.Bounds().Dx() != 120 {
		t.Fatalf("unexpected decoded width %d", decoded.Bounds().Dx())
	}

	pngData, err := assets[0].ToPNG(60)
	if err != nil {
		t.Fatalf("ToPNG() error = %v", err)
	}
	scaled, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if scaled.Bounds().Dx() != 60 {
		t.Fatalf("downscale produced width %d, want 60", scaled.Bounds().Dx())
	}

	content, err := page.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if len(content.Images) != 1 {
		t.Fatalf("expected 1 image placement, got %d", len(content.Images))
	}
	if w := content.Images[0].Rect.Width(); w < 611 || w > 613 {
		t.Fatalf("unexpected placement width %g", w)
	}
}

func TestOverlayAppended(t *testing.T) {
	doc := buildSimple(t, "cover me")
	page := doc.Pages()[0]
	content, err := page.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	before := len(content.Ops)
	content.AppendOverlay([]Rect{{X0: 72, Y0: 690, X1: 130, Y1: 712}})
	if len(content.Ops) <= before {
		t.Fatalf("overlay added no operations")
	}
	content.Apply()
	out, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	reparsed, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(rewritten) error = %v", err)
	}
	raw, err := reparsed.Pages()[0].Contents()
	if err != nil {
		t.Fatalf("Contents() error = %v", err)
	}
	if !bytes.Contains(raw, []byte("re")) || !bytes.Contains(raw, []byte("0 0 0 rg")) {
		t.Fatalf("overlay fill missing from rewritten content: %s", raw)
	}
}

func TestParseRepairsBrokenXref(t *testing.T) {
	b := NewBuilder()
	b.AddPage(612, 792).Text(72, 700, 12, "repairable")
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	idx := bytes.LastIndex(data, []byte("startxref"))
	corrupt := append([]byte{}, data[:idx]...)
	corrupt = append(corrupt, []byte("startxref\n999999999\n%%EOF\n")...)
	doc, err := Parse(corrupt)
	if err != nil {
		t.Fatalf("Parse(corrupt) error = %v", err)
	}
	content, err := doc.Pages()[0].Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if !strings.Contains(content.Text(), "repairable") {
		t.Fatalf("repaired document lost text: %q", content.Text())
	}
}

func TestEncryptedRejected(t *testing.T) {
	b := NewBuilder()
	b.AddPage(612, 792).Text(72, 700, 12, "secret")
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	// Splice an /Encrypt entry into the trailer dictionary.
	patched := bytes.Replace(data, []byte("trailer\n<<"), []byte("trailer\n<< /Encrypt 99 0 R"), 1)
	if _, err := Parse(patched); err == nil || !strings.Contains(err.Error(), "encrypted") {
		t.Fatalf("Parse(encrypted) error = %v, want ErrEncrypted", err)
	}
}

func TestContentSerializeRoundTrip(t *testing.T) {
	src := []byte("BT /F1 10 Tf 10 20 Td [(Hel) -20 (lo)] TJ ET q 1 0 0 1 5 5 cm Q")
	ops, err := ParseContent(src)
	if err != nil {
		t.Fatalf("ParseContent() error = %v", err)
	}
	out := SerializeContent(ops)
	reops, err := ParseContent(out)
	if err != nil {
		t.Fatalf("ParseContent(reserialized) error = %v", err)
	}
	if len(reops) != len(ops) {
		t.Fatalf("operation count changed: %d != %d", len(reops), len(ops))
	}
	var tj int
	for _, op := range reops {
		if op.Operator == "TJ" {
			tj++
			arr := op.Operands[len(op.Operands)-1].(Array)
			if len(arr) != 3 {
				t.Fatalf("TJ array reshaped: %#v", arr)
			}
		}
	}
	if tj != 1 {
		t.Fatalf("TJ operator lost in round trip")
	}
}
