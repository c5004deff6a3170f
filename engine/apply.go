package engine

import (
	"github.com/docsweep/docsweep/pdf"
)

// applyNative redacts a native page: every matched glyph is overwritten with
// a space in the content stream and an opaque black box is painted over each
// occurrence rect. Masking runs before the overlay is appended so the span
// back-references stay valid.
func applyNative(content *pdf.PageContent, matches []match) {
	rects := make([]pdf.Rect, 0, len(matches))
	for _, m := range matches {
		for _, seg := range m.segs {
			content.MaskChars(seg.span, seg.from, seg.to)
		}
		if !m.occ.Rect.IsEmpty() {
			rects = append(rects, m.occ.Rect)
		}
	}
	if len(rects) > 0 {
		content.AppendOverlay(rects)
	}
	content.Apply()
}

// applyScanned redacts a scanned page: any stale text layer is dropped
// outright and black boxes cover the occurrence rects on the page image. No
// OCR text is ever written back, so the output stays unsearchable.
func applyScanned(content *pdf.PageContent, occs []Occurrence) {
	content.StripTextLayer()
	rects := make([]pdf.Rect, 0, len(occs))
	for _, o := range occs {
		if !o.Rect.IsEmpty() {
			rects = append(rects, o.Rect)
		}
	}
	if len(rects) > 0 {
		content.AppendOverlay(rects)
	}
	content.Apply()
}
