package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/docsweep/docsweep/pdf"
)

type fakeEngine struct {
	name    string
	avail   bool
	results map[string]Result
	err     error
	calls   int
}

func (f *fakeEngine) Name() string    { return f.name }
func (f *fakeEngine) Available() bool { return f.avail }

func (f *fakeEngine) Recognize(_ context.Context, in Input) (Result, error) {
	f.calls++
	if f.err != nil {
		return Result{}, f.err
	}
	res := f.results[in.ID]
	res.InputID = in.ID
	return res, nil
}

func pageAsset(t *testing.T) pdf.ImageAsset {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	b := pdf.NewBuilder()
	b.AddPage(612, 792).Image(img, pdf.Rect{X1: 612, Y1: 792})
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	doc, err := pdf.Parse(data)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	assets := doc.Pages()[0].ImageAssets()
	if len(assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(assets))
	}
	return assets[0]
}

func TestInputFromImageAsset(t *testing.T) {
	in, err := InputFromImageAsset(3, pageAsset(t), WithLanguages("eng", "deu"), WithDPI(300))
	if err != nil {
		t.Fatalf("InputFromImageAsset() error = %v", err)
	}
	if in.ID != "page-3-Im0" {
		t.Fatalf("unexpected id: %s", in.ID)
	}
	if in.Format != ImageFormatPNG {
		t.Fatalf("unexpected format: %v", in.Format)
	}
	if in.PageNumber != 3 {
		t.Fatalf("unexpected page number: %d", in.PageNumber)
	}
	if in.DPI != 300 {
		t.Fatalf("unexpected dpi: %d", in.DPI)
	}
	if len(in.Languages) != 2 || in.Languages[0] != "eng" {
		t.Fatalf("unexpected languages: %v", in.Languages)
	}
	if img, err := png.Decode(bytes.NewReader(in.Image)); err != nil || img.Bounds().Dx() != 40 {
		t.Fatalf("payload is not the encoded asset: %v", err)
	}
	if in.PixelWidth != 40 || in.PixelHeight != 40 {
		t.Fatalf("unexpected pixel dims: %dx%d", in.PixelWidth, in.PixelHeight)
	}
}

func TestScaledDims(t *testing.T) {
	if w, h := scaledDims(7000, 3500, 3500); w != 3500 || h != 1750 {
		t.Fatalf("landscape downscale = %dx%d", w, h)
	}
	if w, h := scaledDims(1000, 2000, 3500); w != 1000 || h != 2000 {
		t.Fatalf("small raster must be untouched, got %dx%d", w, h)
	}
}

func TestWithRegionClearsEmpty(t *testing.T) {
	in := Input{Region: &Region{X: 1, Y: 1, Width: 2, Height: 2}}
	WithRegion(Region{})(&in)
	if in.Region != nil {
		t.Fatalf("expected nil region for empty input, got %#v", in.Region)
	}
}

func TestRecognizeUnavailable(t *testing.T) {
	engine := &fakeEngine{name: "down", avail: false}
	_, err := Recognize(context.Background(), engine, []Input{{ID: "x"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Recognize() error = %v, want ErrUnavailable", err)
	}
	if engine.calls != 0 {
		t.Fatalf("unavailable engine was invoked %d times", engine.calls)
	}
}

func TestRecognizeSequential(t *testing.T) {
	engine := &fakeEngine{
		name:  "fake",
		avail: true,
		results: map[string]Result{
			"a": {PlainText: "first"},
			"b": {PlainText: "second"},
		},
	}
	results, err := Recognize(context.Background(), engine, []Input{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if len(results) != 2 || results[1].PlainText != "second" || results[1].InputID != "b" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRecognizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := &fakeEngine{name: "fake", avail: true}
	_, err := Recognize(ctx, engine, []Input{{ID: "a"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Recognize() error = %v, want context.Canceled", err)
	}
}
