package cli

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsweep/docsweep/docx"
)

func resetFlags() {
	flagTerms = nil
	flagAddTerms = nil
	flagNoIdentify = false
	flagOut = ""
	flagLangs = nil
	flagParallel = 0
	flagProvider = ""
	flagModel = ""
	flagPlaceholder = ""
	flagVerbose = false
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func docxFixture(t *testing.T) string {
	t.Helper()
	document := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body><w:p><w:r><w:t>Client John Smith attended.</w:t></w:r></w:p></w:body></w:document>`
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = fw.Write([]byte(document))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "memo.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "docsweep version")
}

func TestRedactRequiresTermsWithNoIdentify(t *testing.T) {
	_, _, err := execute(t, "redact", "somefile.pdf", "--no-identify")

	assert.ErrorContains(t, err, "--no-identify requires --terms")
}

func TestRedactMissingArg(t *testing.T) {
	_, _, err := execute(t, "redact")

	assert.Error(t, err)
}

func TestRedactDocxEndToEnd(t *testing.T) {
	in := docxFixture(t)
	out := filepath.Join(filepath.Dir(in), "clean.docx")

	stdout, _, err := execute(t, "redact", in,
		"--terms", "John Smith", "--no-identify", "-o", out)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Redacted 1 occurrence(s).")
	assert.Contains(t, stdout, out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text, err := docx.Text(data)
	require.NoError(t, err)
	assert.Equal(t, "Client [REDACTED] attended.", text)
}

func TestRedactDocxNoMatches(t *testing.T) {
	in := docxFixture(t)

	stdout, _, err := execute(t, "redact", in, "--terms", "unrelated", "--no-identify")
	require.NoError(t, err)

	assert.Contains(t, stdout, "No matches found")
}
