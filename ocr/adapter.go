package ocr

import (
	"context"
	"fmt"

	"github.com/docsweep/docsweep/pdf"
)

// maxRasterDim caps the longer edge of OCR inputs. Scanned legal documents
// arrive anywhere between 150 and 1200 DPI; recognition quality plateaus
// around 300 DPI while runtime keeps growing.
const maxRasterDim = 3500

// InputFromImageAsset converts an embedded page image into an OCR input using
// PNG encoding. The generated ID is stable for the resource name on a page to
// simplify correlation with downstream results.
func InputFromImageAsset(pageNumber int, asset pdf.ImageAsset, opts ...InputOption) (Input, error) {
	data, err := asset.ToPNG(maxRasterDim)
	if err != nil {
		return Input{}, fmt.Errorf("encode image asset: %w", err)
	}
	w, h := scaledDims(asset.Width, asset.Height, maxRasterDim)
	in := Input{
		ID:          fmt.Sprintf("page-%d-%s", pageNumber, asset.Name),
		Image:       data,
		Format:      ImageFormatPNG,
		PageNumber:  pageNumber,
		PixelWidth:  w,
		PixelHeight: h,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}

// scaledDims mirrors the downscale applied by the PNG encoder so callers can
// map word boxes back into source coordinates.
func scaledDims(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	return int(float64(w) * scale), int(float64(h) * scale)
}

// Recognize runs engine on the inputs, using batch mode when supported and
// sequential calls otherwise.
func Recognize(ctx context.Context, engine Engine, inputs []Input) ([]Result, error) {
	if !engine.Available() {
		return nil, fmt.Errorf("%s: %w", engine.Name(), ErrUnavailable)
	}
	if b, ok := engine.(BatchEngine); ok {
		return b.RecognizeBatch(ctx, inputs)
	}
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res, err := engine.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}
