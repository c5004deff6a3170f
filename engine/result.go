package engine

import "github.com/docsweep/docsweep/terms"

// Format identifies which pipeline handled a document.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// PageReport summarizes one page of a completed run.
type PageReport struct {
	Page        int
	Kind        PageKind
	Ocr         bool
	Occurrences int
}

// Result is the outcome of a successful run. A run with zero occurrences is
// still a success; NoMatches distinguishes it in reporting.
type Result struct {
	InputPath  string
	OutputPath string
	Format     Format
	Terms      terms.List
	// Pages is per-page detail for paginated formats, nil for flat text.
	Pages []PageReport
	Total int
}

// NoMatches reports a clean run that found nothing to redact.
func (r *Result) NoMatches() bool { return r.Total == 0 }
