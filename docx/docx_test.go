package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsweep/docsweep/terms"
)

const stylesXML = `<?xml version="1.0"?><w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`

// buildDocx assembles a minimal but valid .docx archive. Each paragraph is a
// slice of run texts, so tests can split a term across run boundaries.
func buildDocx(t *testing.T, paragraphs ...[]string) []byte {
	t.Helper()
	var body strings.Builder
	for _, runs := range paragraphs {
		body.WriteString(`<w:p w:rsidR="0">`)
		for _, text := range runs {
			body.WriteString(`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">`)
			body.WriteString(escapeXML(text))
			body.WriteString(`</w:t></w:r>`)
		}
		body.WriteString(`</w:p>`)
	}
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entries := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   document,
		"word/styles.xml":     stylesXML,
	}
	for name, content := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func readEntry(t *testing.T, data []byte, name string) []byte {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		return content
	}
	t.Fatalf("entry %s not found", name)
	return nil
}

var textNodePattern = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)

func extractText(t *testing.T, data []byte) string {
	t.Helper()
	doc := readEntry(t, data, "word/document.xml")
	var parts []string
	for _, m := range textNodePattern.FindAllSubmatch(doc, -1) {
		parts = append(parts, unescapeXML(string(m[1])))
	}
	return strings.Join(parts, "")
}

func TestRedactSingleRun(t *testing.T) {
	src := buildDocx(t, []string{"Client John Smith attended the hearing."})

	out, count, err := RedactArchive(src, terms.List{"John Smith"}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	text := extractText(t, out)
	assert.Equal(t, "Client [REDACTED] attended the hearing.", text)
	assert.NotContains(t, strings.ToLower(text), "john smith")
}

func TestRedactAcrossRuns(t *testing.T) {
	// A spell-check pass typically splits a name into several runs.
	src := buildDocx(t, []string{"Jo", "hn Sm", "ith called today."})

	out, count, err := RedactArchive(src, terms.List{"john smith"}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.Equal(t, "[REDACTED] called today.", extractText(t, out))

	// The placeholder lands in the run where the match starts so that run's
	// formatting carries over; the run structure itself is untouched.
	doc := readEntry(t, out, "word/document.xml")
	nodes := textNodePattern.FindAllSubmatch(doc, -1)
	require.Len(t, nodes, 3)
	assert.Equal(t, "[REDACTED]", string(nodes[0][1]))
	assert.Equal(t, "", string(nodes[1][1]))
	assert.Equal(t, " called today.", string(nodes[2][1]))
}

func TestRedactCaseInsensitive(t *testing.T) {
	src := buildDocx(t, []string{"JOHN SMITH and John Smith and john smith."})

	out, count, err := RedactArchive(src, terms.List{"John Smith"}, "")
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	assert.Equal(t, "[REDACTED] and [REDACTED] and [REDACTED].", extractText(t, out))
}

func TestRedactMultipleParagraphs(t *testing.T) {
	src := buildDocx(t,
		[]string{"Acme Corp retained counsel."},
		[]string{"Nothing of note."},
		[]string{"Billing for ", "Acme Corp", " continues."},
	)

	out, count, err := RedactArchive(src, terms.List{"acme corp"}, "")
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	text := extractText(t, out)
	assert.NotContains(t, strings.ToLower(text), "acme corp")
	assert.Contains(t, text, "Nothing of note.")
}

func TestRedactOverlappingTermsMerge(t *testing.T) {
	src := buildDocx(t, []string{"Contact John Smith Jones at once."})

	out, count, err := RedactArchive(src, terms.List{"John Smith", "Smith Jones"}, "")
	require.NoError(t, err)

	// Overlapping matches collapse into one covering replacement.
	assert.Equal(t, 1, count)
	assert.Equal(t, "Contact [REDACTED] at once.", extractText(t, out))
}

func TestRedactEscapedContent(t *testing.T) {
	src := buildDocx(t, []string{"Supplier A&B Ltd <confidential> invoice."})

	out, count, err := RedactArchive(src, terms.List{"A&B Ltd"}, "")
	require.NoError(t, err)

	assert.Equal(t, 1, count)
	assert.Equal(t, "Supplier [REDACTED] <confidential> invoice.", extractText(t, out))

	// The rewritten node must stay well-formed.
	doc := readEntry(t, out, "word/document.xml")
	assert.Contains(t, string(doc), "&lt;confidential&gt;")
}

func TestRedactCustomPlaceholder(t *testing.T) {
	src := buildDocx(t, []string{"Client John Smith attended."})

	out, _, err := RedactArchive(src, terms.List{"John Smith"}, "███")
	require.NoError(t, err)

	assert.Equal(t, "Client ███ attended.", extractText(t, out))
}

func TestRedactNoTermsIsPassThrough(t *testing.T) {
	src := buildDocx(t, []string{"Client John Smith attended."})

	out, count, err := RedactArchive(src, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 0, count)
	assert.Equal(t, readEntry(t, src, "word/document.xml"), readEntry(t, out, "word/document.xml"))
}

func TestRedactPreservesOtherEntries(t *testing.T) {
	src := buildDocx(t, []string{"John Smith"})

	out, _, err := RedactArchive(src, terms.List{"John Smith"}, "")
	require.NoError(t, err)

	assert.Equal(t, []byte(stylesXML), readEntry(t, out, "word/styles.xml"))
	readEntry(t, out, "[Content_Types].xml")
}

func TestRedactTableCell(t *testing.T) {
	// Table cells wrap their own paragraphs; splice the fixture body into a
	// table to make sure cell text is reached.
	src := buildDocx(t, []string{"John Smith owes $400."})
	doc := readEntry(t, src, "word/document.xml")
	tabled := bytes.Replace(doc, []byte("<w:body>"), []byte("<w:body><w:tbl><w:tr><w:tc>"), 1)
	tabled = bytes.Replace(tabled, []byte("</w:body>"), []byte("</w:tc></w:tr></w:tbl></w:body>"), 1)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = fw.Write(tabled)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, count, err := RedactArchive(buf.Bytes(), terms.List{"john smith"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "[REDACTED] owes $400.", extractText(t, out))
}

func TestRedactRejectsNonZip(t *testing.T) {
	_, _, err := RedactArchive([]byte("%PDF-1.7 not a docx"), terms.List{"x"}, "")
	assert.Error(t, err)
}

func TestRedactRejectsArchiveWithoutDocument(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("mimetype")
	require.NoError(t, err)
	_, err = fw.Write([]byte("application/epub+zip"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, _, err = RedactArchive(buf.Bytes(), terms.List{"x"}, "")
	assert.ErrorContains(t, err, "word/document.xml")
}

func TestRedactFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "brief.docx")
	out := filepath.Join(dir, "brief_redacted.docx")
	require.NoError(t, os.WriteFile(in, buildDocx(t, []string{"Client John Smith attended."}), 0o644))

	count, err := Redact(in, out, terms.List{"John Smith"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Client [REDACTED] attended.", extractText(t, data))

	// The source document is untouched.
	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Contains(t, extractText(t, orig), "John Smith")
}

func TestText(t *testing.T) {
	src := buildDocx(t,
		[]string{"First ", "paragraph."},
		[]string{"Second one."},
	)

	text, err := Text(src)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond one.", text)
}
