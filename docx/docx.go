// Package docx implements the flat-text substitution pipeline for OOXML word
// documents: every case-insensitive occurrence of a redaction term is
// replaced with a placeholder marker, with matching performed across run
// boundaries so that split formatting cannot hide a term. Only the text nodes
// of word/document.xml are rewritten; all other markup and archive entries
// pass through unchanged.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/docsweep/docsweep/terms"
)

// DefaultPlaceholder is substituted for each matched term.
const DefaultPlaceholder = "[REDACTED]"

const documentEntry = "word/document.xml"

// Redact reads the document at inputPath, applies the term list, and writes
// the result to outputPath. The input file is never modified. The returned
// count is the number of occurrences replaced.
func Redact(inputPath, outputPath string, list terms.List, placeholder string) (int, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, fmt.Errorf("docx: read input: %w", err)
	}
	out, count, err := RedactArchive(data, list, placeholder)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return 0, fmt.Errorf("docx: write output: %w", err)
	}
	return count, nil
}

// RedactArchive rewrites an in-memory .docx archive.
func RedactArchive(data []byte, list terms.List, placeholder string) ([]byte, int, error) {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("docx: not a zip archive: %w", err)
	}
	var found bool
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	count := 0
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			return nil, 0, fmt.Errorf("docx: open %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("docx: read %s: %w", file.Name, err)
		}
		if file.Name == documentEntry {
			found = true
			content, count = redactDocumentXML(content, list, placeholder)
		}
		hdr := &zip.FileHeader{Name: file.Name, Method: file.Method, Modified: file.Modified}
		fw, err := w.CreateHeader(hdr)
		if err != nil {
			return nil, 0, fmt.Errorf("docx: write %s: %w", file.Name, err)
		}
		if _, err := fw.Write(content); err != nil {
			return nil, 0, fmt.Errorf("docx: write %s: %w", file.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, 0, fmt.Errorf("docx: finalize archive: %w", err)
	}
	if !found {
		return nil, 0, fmt.Errorf("docx: archive has no %s", documentEntry)
	}
	return buf.Bytes(), count, nil
}

var (
	paragraphPattern = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	textPattern      = regexp.MustCompile(`(?s)(<w:t(?:\s[^>]*)?>)(.*?)(</w:t>)`)
)

// run is one w:t text node inside a paragraph, with its byte range in the
// source XML and its unescaped text.
type run struct {
	start, end int // byte range of the node content within the paragraph
	text       []rune
}

// redactDocumentXML rewrites every paragraph of the document body. Matching
// happens on the concatenated run text of a paragraph, so terms split across
// direct-formatting boundaries are still caught; replacements keep the
// formatting of the run where the match starts.
func redactDocumentXML(xml []byte, list terms.List, placeholder string) ([]byte, int) {
	total := 0
	out := paragraphPattern.ReplaceAllFunc(xml, func(para []byte) []byte {
		replaced, n := redactParagraph(para, list, placeholder)
		total += n
		return replaced
	})
	return out, total
}

func redactParagraph(para []byte, list terms.List, placeholder string) ([]byte, int) {
	locs := textPattern.FindAllSubmatchIndex(para, -1)
	if len(locs) == 0 {
		return para, 0
	}
	runs := make([]run, 0, len(locs))
	var joined []rune
	for _, loc := range locs {
		content := para[loc[4]:loc[5]]
		text := []rune(unescapeXML(string(content)))
		runs = append(runs, run{start: loc[4], end: loc[5], text: text})
		joined = append(joined, text...)
	}

	spans := matchSpans(joined, list)
	if len(spans) == 0 {
		return para, 0
	}

	// Distribute replacements back across the original runs: the run holding
	// a match's first rune receives the placeholder, every other matched rune
	// is dropped.
	newTexts := make([][]rune, len(runs))
	offset := 0
	for ri, r := range runs {
		for i := range r.text {
			global := offset + i
			if s := spanStartingAt(spans, global); s != nil {
				newTexts[ri] = append(newTexts[ri], []rune(placeholder)...)
				continue
			}
			if insideSpan(spans, global) {
				continue
			}
			newTexts[ri] = append(newTexts[ri], r.text[i])
		}
		offset += len(r.text)
	}

	var b bytes.Buffer
	prev := 0
	for ri, r := range runs {
		b.Write(para[prev:r.start])
		b.WriteString(escapeXML(string(newTexts[ri])))
		prev = r.end
	}
	b.Write(para[prev:])
	return b.Bytes(), len(spans)
}

// span is a matched term occurrence in paragraph rune space.
type span struct{ start, end int }

// matchSpans finds every case-insensitive occurrence of every term.
// Overlapping matches from different terms are collapsed into the covering
// region, which then receives a single placeholder.
func matchSpans(text []rune, list terms.List) []span {
	lower := lowerRunes(text)
	var spans []span
	for _, term := range list {
		needle := lowerRunes([]rune(term))
		if len(needle) == 0 {
			continue
		}
		for from := 0; from+len(needle) <= len(lower); {
			idx := runeIndex(lower[from:], needle)
			if idx < 0 {
				break
			}
			spans = append(spans, span{start: from + idx, end: from + idx + len(needle)})
			from += idx + 1
		}
	}
	return mergeForReplacement(spans)
}

// mergeForReplacement sorts spans and merges overlaps so the replacement
// walk sees disjoint regions.
func mergeForReplacement(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && less(spans[j], spans[j-1]); j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.start < last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func less(a, b span) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return a.end < b.end
}

func spanStartingAt(spans []span, pos int) *span {
	for i := range spans {
		if spans[i].start == pos {
			return &spans[i]
		}
	}
	return nil
}

func insideSpan(spans []span, pos int) bool {
	for _, s := range spans {
		if pos >= s.start && pos < s.end {
			return true
		}
	}
	return false
}
