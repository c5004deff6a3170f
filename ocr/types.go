package ocr

import (
	"context"
	"errors"
)

// ErrUnavailable reports that no OCR engine can be invoked at all (library
// missing, binary not installed, service unreachable). The pipeline treats
// this as fatal for documents that contain scanned pages.
var ErrUnavailable = errors.New("ocr: engine unavailable")

// ErrNoText reports that the engine ran but produced no usable output, for
// example on a corrupt or blank raster.
var ErrNoText = errors.New("ocr: no usable text recognized")

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Region describes a rectangular area in pixel coordinates with the origin in
// the upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input encapsulates a single image submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier echoed back in the Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type.
	Format ImageFormat
	// PageNumber links the input back to the 1-based page it came from.
	PageNumber int
	// PixelWidth and PixelHeight are the dimensions of Image. Word bounding
	// boxes in the Result are expressed in this coordinate space.
	PixelWidth  int
	PixelHeight int
	// DPI carries the effective dots-per-inch; zero means unknown.
	DPI int
	// Languages lists trained-data hints (e.g. "eng", "deu").
	Languages []string
	// Region restricts recognition to a subsection of the image. Nil means
	// the full image is processed.
	Region *Region
}

// Word is a single recognized token with its pixel bounding box.
type Word struct {
	Text       string
	Bounds     Region
	Confidence float64
}

// Result captures OCR output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// PlainText contains the linearized text extracted from the image.
	PlainText string
	// Words carries per-token positions, the unit the term locator consumes.
	Words []Word
}

// Engine is the simplest OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	// Available reports whether the engine can be invoked at all. Probed once
	// per document run, before any page work starts.
	Available() bool
	Recognize(ctx context.Context, input Input) (Result, error)
}

// BatchEngine handles multiple images in one call, for providers that
// amortize setup costs.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, inputs []Input) ([]Result, error)
}
