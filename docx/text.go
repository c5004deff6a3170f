package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Text extracts the document body as plain text, one line per paragraph.
// Used to feed term identification.
func Text(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx: not a zip archive: %w", err)
	}
	for _, file := range reader.File {
		if file.Name != documentEntry {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("docx: open %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("docx: read %s: %w", file.Name, err)
		}
		return documentText(content), nil
	}
	return "", fmt.Errorf("docx: archive has no %s", documentEntry)
}

func documentText(xml []byte) string {
	var paragraphs []string
	for _, para := range paragraphPattern.FindAll(xml, -1) {
		var b strings.Builder
		for _, m := range textPattern.FindAllSubmatch(para, -1) {
			b.WriteString(unescapeXML(string(m[2])))
		}
		if b.Len() > 0 {
			paragraphs = append(paragraphs, b.String())
		}
	}
	return strings.Join(paragraphs, "\n")
}
