package engine

import (
	"unicode"

	"github.com/docsweep/docsweep/pdf"
	"github.com/docsweep/docsweep/terms"
)

// Occurrence is one located term instance on one page. The rect is clamped to
// the page box.
type Occurrence struct {
	Page int
	Rect pdf.Rect
	Term string
}

// segment is the slice of a match that falls inside one span, as a rune range
// the applier can destroy in place.
type segment struct {
	span     int
	from, to int
}

// match pairs an occurrence with the span segments that produced it.
type match struct {
	occ  Occurrence
	segs []segment
}

// charRef maps one rune of the joined page text back to its span, or marks an
// inserted separator with span -1.
type charRef struct {
	span, idx int
}

// Locate finds every case-insensitive occurrence of every term in the page's
// text layer. Overlapping matches are each reported.
func Locate(page *pdf.Page, content *pdf.PageContent, list terms.List) []Occurrence {
	ms := locateSpans(page.Number, content.Spans, list, page.MediaBox)
	occs := make([]Occurrence, 0, len(ms))
	for _, m := range ms {
		occs = append(occs, m.occ)
	}
	return occs
}

// locateSpans matches against the page's joined span text. Spans are
// concatenated in extraction order: directly when a span continues its
// predecessor on the same baseline with no visible gap, otherwise with a
// single space, so a term split across show operators or across a line break
// still matches.
func locateSpans(pageNum int, spans []pdf.Span, list terms.List, clamp pdf.Rect) []match {
	joined, refs := joinSpans(spans)
	if len(joined) == 0 {
		return nil
	}
	lower := lowerRunes(joined)

	var matches []match
	for _, term := range list {
		needle := lowerRunes([]rune(term))
		if len(needle) == 0 {
			continue
		}
		for _, start := range findAll(lower, needle) {
			m := resolveMatch(pageNum, term, spans, refs, start, start+len(needle), clamp)
			if len(m.segs) > 0 {
				matches = append(matches, m)
			}
		}
	}
	return matches
}

// resolveMatch converts a joined-text rune range back into per-span segments
// and the union rect of the covered glyph boxes.
func resolveMatch(pageNum int, term string, spans []pdf.Span, refs []charRef, start, end int, clamp pdf.Rect) match {
	m := match{occ: Occurrence{Page: pageNum, Term: term}}
	rect := pdf.Rect{}
	first := true
	for i := start; i < end; i++ {
		ref := refs[i]
		if ref.span < 0 {
			continue
		}
		box := spans[ref.span].CharRect(ref.idx)
		if first {
			rect = box
			first = false
		} else {
			rect = rect.Union(box)
		}
		if n := len(m.segs); n > 0 && m.segs[n-1].span == ref.span && m.segs[n-1].to == ref.idx {
			m.segs[n-1].to = ref.idx + 1
		} else {
			m.segs = append(m.segs, segment{span: ref.span, from: ref.idx, to: ref.idx + 1})
		}
	}
	m.occ.Rect = rect.Intersect(clamp)
	return m
}

// joinSpans builds the joined page text and the per-rune back-references.
func joinSpans(spans []pdf.Span) ([]rune, []charRef) {
	var joined []rune
	var refs []charRef
	for si, s := range spans {
		if si > 0 && !continuesDirectly(spans[si-1], s) {
			joined = append(joined, ' ')
			refs = append(refs, charRef{span: -1})
		}
		for i, r := range []rune(s.Text) {
			joined = append(joined, r)
			refs = append(refs, charRef{span: si, idx: i})
		}
	}
	return joined, refs
}

// continuesDirectly reports whether cur starts where prev left off on the
// same baseline, meaning the two show operators render one unbroken word.
func continuesDirectly(prev, cur pdf.Span) bool {
	if prev.Line != cur.Line {
		return false
	}
	gap := cur.Rect.X0 - prev.Rect.X1
	h := prev.Rect.Height()
	return gap > -0.5*h && gap < 0.3*h
}

// findAll returns every start index of needle in haystack, including
// overlapping hits.
func findAll(haystack, needle []rune) []int {
	var out []int
	for i := 0; i+len(needle) <= len(haystack); i++ {
		hit := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				hit = false
				break
			}
		}
		if hit {
			out = append(out, i)
		}
	}
	return out
}

func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// placedWord is an OCR word mapped into page space.
type placedWord struct {
	text string
	rect pdf.Rect
}

// locateWords matches terms over OCR output: words joined by single spaces,
// occurrence rects unioned from the covered word boxes.
func locateWords(pageNum int, words []placedWord, list terms.List, clamp pdf.Rect) []Occurrence {
	var joined []rune
	var wordOf []int
	for wi, w := range words {
		if wi > 0 {
			joined = append(joined, ' ')
			wordOf = append(wordOf, -1)
		}
		for _, r := range w.text {
			joined = append(joined, r)
			wordOf = append(wordOf, wi)
		}
	}
	if len(joined) == 0 {
		return nil
	}
	lower := lowerRunes(joined)

	var occs []Occurrence
	for _, term := range list {
		needle := lowerRunes([]rune(term))
		if len(needle) == 0 {
			continue
		}
		for _, start := range findAll(lower, needle) {
			rect := pdf.Rect{}
			first := true
			for i := start; i < start+len(needle); i++ {
				wi := wordOf[i]
				if wi < 0 {
					continue
				}
				if first {
					rect = words[wi].rect
					first = false
				} else {
					rect = rect.Union(words[wi].rect)
				}
			}
			if first {
				continue
			}
			occs = append(occs, Occurrence{Page: pageNum, Term: term, Rect: rect.Intersect(clamp)})
		}
	}
	return occs
}
