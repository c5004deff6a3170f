package engine

import (
	"github.com/docsweep/docsweep/observability"
	"github.com/docsweep/docsweep/ocr"
)

// Options configures a redaction run.
type Options struct {
	// OCR recognizes scanned pages. A document containing scanned pages
	// fails with ocr.ErrUnavailable when no operational engine is set.
	OCR ocr.Engine
	// Languages are trained-data hints passed to the OCR engine.
	Languages []string
	// DPI is the assumed resolution of scanned page images.
	DPI int
	// Parallelism bounds concurrent page classification and OCR. Values
	// below 2 mean sequential processing.
	Parallelism int
	// Placeholder replaces matched terms in flat-text documents.
	Placeholder string
	// OutputPath overrides the default <base>_redacted<ext> location.
	OutputPath string

	Logger observability.Logger
}

// Option mutates Options.
type Option func(*Options)

func WithOCR(engine ocr.Engine) Option     { return func(o *Options) { o.OCR = engine } }
func WithLanguages(langs ...string) Option { return func(o *Options) { o.Languages = langs } }
func WithDPI(dpi int) Option               { return func(o *Options) { o.DPI = dpi } }
func WithParallelism(n int) Option         { return func(o *Options) { o.Parallelism = n } }
func WithPlaceholder(p string) Option      { return func(o *Options) { o.Placeholder = p } }
func WithOutput(path string) Option        { return func(o *Options) { o.OutputPath = path } }

func WithLogger(l observability.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func buildOptions(opts []Option) Options {
	o := Options{
		DPI:         300,
		Parallelism: 1,
		Logger:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
