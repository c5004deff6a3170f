// Package engine drives document redaction end to end: classify pages,
// recognize scanned ones, locate term occurrences, destroy and cover the
// matched content, and write the result. A run is all-or-nothing: the output
// file appears only after every page has been redacted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/docsweep/docsweep/docx"
	"github.com/docsweep/docsweep/observability"
	"github.com/docsweep/docsweep/ocr"
	"github.com/docsweep/docsweep/pdf"
	"github.com/docsweep/docsweep/terms"
)

const outputSuffix = "_redacted"

// OutputPath derives the default output location next to the input.
func OutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + outputSuffix + ext
}

// FormatOf maps an input path to its pipeline by extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Redact processes the document at inputPath and writes a redacted copy. The
// input file is never modified; on any error no output is written. An empty
// term list is a degenerate success: the output is a verbatim copy.
func Redact(ctx context.Context, inputPath string, list terms.List, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	format, err := FormatOf(inputPath)
	if err != nil {
		return nil, err
	}
	outPath := o.OutputPath
	if outPath == "" {
		outPath = OutputPath(inputPath)
	}
	log := o.Logger.With(observability.String("file", filepath.Base(inputPath)))

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("engine: read input: %w", err)
	}

	list = terms.Normalize(list)
	if len(list) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Warn("no redaction terms; writing unchanged copy")
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("engine: write output: %w", err)
		}
		return &Result{InputPath: inputPath, OutputPath: outPath, Format: format}, nil
	}

	switch format {
	case FormatPDF:
		return redactPDF(ctx, inputPath, outPath, data, list, o, log)
	default:
		return redactDocx(inputPath, outPath, data, list, o, log)
	}
}

// ExtractText returns the document's text for term identification: the text
// layer of native pages plus OCR output for scanned ones.
func ExtractText(ctx context.Context, inputPath string, opts ...Option) (string, error) {
	o := buildOptions(opts)
	format, err := FormatOf(inputPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("engine: read input: %w", err)
	}
	if format == FormatDOCX {
		return docx.Text(data)
	}
	doc, err := pdf.Parse(data)
	if err != nil {
		return "", fmt.Errorf("engine: parse pdf: %w", err)
	}
	run := newRun(doc, o, o.Logger)
	if err := run.prepare(ctx); err != nil {
		return "", err
	}
	var parts []string
	for _, w := range run.pages {
		if t := strings.TrimSpace(w.text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func redactDocx(inputPath, outPath string, data []byte, list terms.List, o Options, log observability.Logger) (*Result, error) {
	out, count, err := docx.RedactArchive(data, list, o.Placeholder)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return nil, fmt.Errorf("engine: write output: %w", err)
	}
	log.Info("document redacted",
		observability.String("format", string(FormatDOCX)),
		observability.Int("occurrences", count))
	return &Result{
		InputPath:  inputPath,
		OutputPath: outPath,
		Format:     FormatDOCX,
		Terms:      list,
		Total:      count,
	}, nil
}

func redactPDF(ctx context.Context, inputPath, outPath string, data []byte, list terms.List, o Options, log observability.Logger) (*Result, error) {
	doc, err := pdf.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("engine: parse pdf: %w", err)
	}
	run := newRun(doc, o, log)
	if err := run.prepare(ctx); err != nil {
		return nil, err
	}
	run.locate(list)
	run.apply()

	outData, err := doc.Serialize()
	if err != nil {
		return nil, fmt.Errorf("engine: serialize output: %w", err)
	}
	if err := os.WriteFile(outPath, outData, 0o644); err != nil {
		return nil, fmt.Errorf("engine: write output: %w", err)
	}

	result := &Result{
		InputPath:  inputPath,
		OutputPath: outPath,
		Format:     FormatPDF,
		Terms:      list,
	}
	for _, w := range run.pages {
		result.Pages = append(result.Pages, PageReport{
			Page:        w.page.Number,
			Kind:        w.kind,
			Ocr:         w.ocrUsed,
			Occurrences: len(w.occs),
		})
		result.Total += len(w.occs)
	}
	log.Info("document redacted",
		observability.String("format", string(FormatPDF)),
		observability.Int("pages", len(run.pages)),
		observability.Int("occurrences", result.Total))
	return result, nil
}

// pageState tracks a page through the pipeline. Transitions only move
// forward; stateAborted is terminal and fatal to the run.
type pageState int

const (
	stateUnclassified pageState = iota
	stateClassified
	stateOcrInProgress
	stateTextReady
	stateLocated
	stateRedacted
	stateAborted
)

type pageWork struct {
	page    *pdf.Page
	content *pdf.PageContent
	state   pageState
	kind    PageKind
	ocrUsed bool

	text    string
	words   []placedWord
	matches []match
	occs    []Occurrence
}

type runState struct {
	doc   *pdf.Document
	opts  Options
	log   observability.Logger
	pages []*pageWork
}

func newRun(doc *pdf.Document, o Options, log observability.Logger) *runState {
	r := &runState{doc: doc, opts: o, log: log}
	for _, p := range doc.Pages() {
		r.pages = append(r.pages, &pageWork{page: p})
	}
	return r
}

// prepare takes every page to stateTextReady: content extraction and
// classification, then OCR for scanned pages. Engine availability is checked
// once, after classification and before any recognition, so a document with
// no scanned pages never requires one.
func (r *runState) prepare(ctx context.Context) error {
	if err := r.forEachPage(ctx, func(ctx context.Context, w *pageWork) error {
		content, err := w.page.Content()
		if err != nil {
			w.state = stateAborted
			return pageErr(w.page.Number, StageExtract, err)
		}
		w.content = content
		w.kind = Classify(w.page, content)
		w.state = stateClassified
		r.log.Debug("page classified",
			observability.Int("page", w.page.Number),
			observability.String("kind", w.kind.String()))
		if w.kind == KindNative {
			w.text = content.Text()
			w.state = stateTextReady
		}
		return nil
	}); err != nil {
		return err
	}

	// A scanned page with no raster at all is a blank separator: nothing is
	// extractable from it, so nothing can need redaction and no engine is
	// required for it.
	needOCR := 0
	for _, w := range r.pages {
		if w.kind != KindScanned {
			continue
		}
		if _, _, ok := dominantImage(w.page, w.content); !ok {
			w.state = stateTextReady
			r.log.Debug("blank scanned page", observability.Int("page", w.page.Number))
			continue
		}
		needOCR++
	}
	if needOCR == 0 {
		return nil
	}
	if r.opts.OCR == nil || !r.opts.OCR.Available() {
		return fmt.Errorf("engine: document has %d scanned page(s): %w", needOCR, ocr.ErrUnavailable)
	}

	return r.forEachPage(ctx, func(ctx context.Context, w *pageWork) error {
		if w.kind != KindScanned || w.state == stateTextReady {
			return nil
		}
		w.state = stateOcrInProgress
		if err := r.ocrPage(ctx, w); err != nil {
			w.state = stateAborted
			return pageErr(w.page.Number, StageOcr, err)
		}
		w.ocrUsed = true
		w.state = stateTextReady
		return nil
	})
}

// forEachPage runs fn over all pages, bounded by Options.Parallelism.
func (r *runState) forEachPage(ctx context.Context, fn func(context.Context, *pageWork) error) error {
	if r.opts.Parallelism < 2 {
		for _, w := range r.pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, w); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)
	for _, w := range r.pages {
		w := w
		g.Go(func() error { return fn(gctx, w) })
	}
	return g.Wait()
}

// ocrPage recognizes the page's dominant image and maps the word boxes from
// raster pixels into page space. Empty recognition output means the raster
// holds no recoverable text, which is a valid result, not a failure.
func (r *runState) ocrPage(ctx context.Context, w *pageWork) error {
	placement, asset, ok := dominantImage(w.page, w.content)
	if !ok {
		return errors.New("scanned page has no image to recognize")
	}
	in, err := ocr.InputFromImageAsset(w.page.Number, asset,
		ocr.WithLanguages(r.opts.Languages...),
		ocr.WithDPI(r.opts.DPI))
	if err != nil {
		return err
	}
	results, err := ocr.Recognize(ctx, r.opts.OCR, []ocr.Input{in})
	if errors.Is(err, ocr.ErrNoText) {
		r.log.Debug("no text recognized", observability.Int("page", w.page.Number))
		return nil
	}
	if err != nil {
		return err
	}
	res := results[0]
	w.text = res.PlainText

	if in.PixelWidth <= 0 || in.PixelHeight <= 0 {
		return fmt.Errorf("image %s has no pixel dimensions", asset.Name)
	}
	sx := placement.Width() / float64(in.PixelWidth)
	sy := placement.Height() / float64(in.PixelHeight)
	for _, word := range res.Words {
		rect := pdf.Rect{
			X0: placement.X0 + word.Bounds.X*sx,
			X1: placement.X0 + (word.Bounds.X+word.Bounds.Width)*sx,
			Y0: placement.Y1 - (word.Bounds.Y+word.Bounds.Height)*sy,
			Y1: placement.Y1 - word.Bounds.Y*sy,
		}
		w.words = append(w.words, placedWord{text: word.Text, rect: rect})
	}
	return nil
}

// dominantImage picks the placement covering the most page area, falling
// back to the largest asset painted across the whole page box when the
// content stream recorded no placement.
func dominantImage(page *pdf.Page, content *pdf.PageContent) (pdf.Rect, pdf.ImageAsset, bool) {
	assets := page.ImageAssets()
	if len(assets) == 0 {
		return pdf.Rect{}, pdf.ImageAsset{}, false
	}
	byName := make(map[pdf.Name]pdf.ImageAsset, len(assets))
	for _, a := range assets {
		byName[a.Name] = a
	}

	var best *pdf.ImagePlacement
	for i := range content.Images {
		p := &content.Images[i]
		if _, ok := byName[p.Name]; !ok {
			continue
		}
		if best == nil || p.Rect.Area() > best.Rect.Area() {
			best = p
		}
	}
	if best != nil {
		return best.Rect, byName[best.Name], true
	}

	largest := assets[0]
	for _, a := range assets[1:] {
		if a.Width*a.Height > largest.Width*largest.Height {
			largest = a
		}
	}
	return page.MediaBox, largest, true
}

// locate resolves term occurrences on every page. Matching is total, so this
// phase cannot fail; it runs serialized in page order.
func (r *runState) locate(list terms.List) {
	for _, w := range r.pages {
		if w.kind == KindScanned {
			w.occs = locateWords(w.page.Number, w.words, list, w.page.MediaBox)
		} else {
			w.matches = locateSpans(w.page.Number, w.content.Spans, list, w.page.MediaBox)
			for _, m := range w.matches {
				w.occs = append(w.occs, m.occ)
			}
		}
		w.state = stateLocated
	}
}

// apply mutates the in-memory document in page order. Scanned pages are
// stripped of any stale text layer even when nothing matched on them.
func (r *runState) apply() {
	for _, w := range r.pages {
		if w.kind == KindScanned {
			applyScanned(w.content, w.occs)
		} else {
			applyNative(w.content, w.matches)
		}
		w.state = stateRedacted
	}
}
