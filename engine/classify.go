package engine

import (
	"strings"

	"github.com/docsweep/docsweep/pdf"
)

// PageKind is the resolved nature of a page. It is decided once per page and
// never revisited during a run.
type PageKind int

const (
	// KindNative marks a page whose text layer is authoritative.
	KindNative PageKind = iota
	// KindScanned marks a raster page whose text, if any, comes from OCR.
	KindScanned
)

func (k PageKind) String() string {
	if k == KindScanned {
		return "scanned"
	}
	return "native"
}

// Classification thresholds: pages with substantial extractable text are
// native unless an image covers nearly everything, in which case the text
// layer is presumed stale.
const (
	nativeTextLen   = 100
	marginalTextLen = 50
	scannedCoverage = 0.8
	nativeCoverage  = 0.5
)

// Classify resolves a page to native or scanned from its extractable text
// volume and the fraction of the page covered by images. It is total: every
// page gets a kind.
func Classify(page *pdf.Page, content *pdf.PageContent) PageKind {
	textLen := len(strings.TrimSpace(content.Text()))
	return classify(textLen, imageCoverage(page, content))
}

func classify(textLen int, coverage float64) PageKind {
	switch {
	case textLen > nativeTextLen && coverage < nativeCoverage:
		return KindNative
	case coverage > scannedCoverage:
		return KindScanned
	case textLen > marginalTextLen:
		return KindNative
	default:
		return KindScanned
	}
}

// imageCoverage sums the page-area fraction taken by image placements,
// clipped to the page box. Overlapping placements may push the sum past 1.
func imageCoverage(page *pdf.Page, content *pdf.PageContent) float64 {
	area := page.MediaBox.Area()
	if area <= 0 {
		return 0
	}
	var covered float64
	for _, img := range content.Images {
		covered += img.Rect.Intersect(page.MediaBox).Area()
	}
	return covered / area
}
