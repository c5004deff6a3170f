// Package tesseract provides the default OCR engine, backed by the gosseract
// client library.
package tesseract

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/docsweep/docsweep/ocr"
)

// Engine implements ocr.Engine and ocr.BatchEngine on top of gosseract.
type Engine struct {
	clientFactory func() *gosseract.Client

	availOnce sync.Once
	avail     bool
}

// New constructs a Tesseract-backed OCR engine.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Available probes for a working tesseract installation. gosseract links
// libtesseract at build time, but trained data and the support binaries are
// runtime artifacts that may be missing.
func (e *Engine) Available() bool {
	e.availOnce.Do(func() {
		if _, err := exec.LookPath("tesseract"); err == nil {
			e.avail = true
			return
		}
		c := e.clientFactory()
		defer c.Close()
		langs, err := gosseract.GetAvailableLanguages()
		e.avail = err == nil && len(langs) > 0
	})
	return e.avail
}

// Recognize performs OCR on a single image input.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	c := e.clientFactory()
	defer c.Close()
	return e.recognizeWithClient(ctx, c, in)
}

// RecognizeBatch processes inputs sequentially. Each input gets a fresh
// client: gosseract clients keep per-image state that is cheaper to recreate
// than to reset reliably.
func (e *Engine) RecognizeBatch(ctx context.Context, inputs []ocr.Input) ([]ocr.Result, error) {
	results := make([]ocr.Result, 0, len(inputs))
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res, err := e.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) recognizeWithClient(ctx context.Context, c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%w: %v", ocr.ErrNoText, err)
	}
	plain := strings.TrimSpace(text)
	words := extractWords(c, in.Region)
	if plain == "" && len(words) == 0 {
		return ocr.Result{}, fmt.Errorf("%w: empty output for %s", ocr.ErrNoText, in.ID)
	}
	return ocr.Result{
		InputID:   in.ID,
		PlainText: plain,
		Words:     words,
	}, nil
}

func extractWords(c *gosseract.Client, region *ocr.Region) []ocr.Word {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		w := ocr.Word{
			Text: strings.TrimSpace(b.Word),
			Bounds: ocr.Region{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
			Confidence: b.Confidence / 100.0,
		}
		if w.Text == "" {
			continue
		}
		if region != nil && !overlaps(w.Bounds, *region) {
			continue
		}
		words = append(words, w)
	}
	return words
}

func overlaps(a, b ocr.Region) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}
