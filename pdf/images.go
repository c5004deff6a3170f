package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// ImageAsset is one embedded image XObject of a page.
type ImageAsset struct {
	Name   Name
	Width  int
	Height int

	doc    *Document
	stream Stream
}

// ImageAssets returns the page's image XObjects in resource order.
func (p *Page) ImageAssets() []ImageAsset {
	var out []ImageAsset
	xobjects, ok := p.doc.DictVal(p.resources["XObject"])
	if !ok {
		return nil
	}
	for name, ref := range xobjects {
		s, ok := p.doc.Resolve(ref).(Stream)
		if !ok {
			continue
		}
		if sub, _ := p.doc.NameVal(s.Dict["Subtype"]); sub != "Image" {
			continue
		}
		w, _ := p.doc.Int(s.Dict["Width"])
		h, _ := p.doc.Int(s.Dict["Height"])
		out = append(out, ImageAsset{
			Name:   name,
			Width:  int(w),
			Height: int(h),
			doc:    p.doc,
			stream: s,
		})
	}
	return out
}

// Image decodes the asset into an image.Image. DCT (JPEG) and Flate-encoded
// gray/RGB rasters are supported; other codecs fail with a descriptive error.
func (a *ImageAsset) Image() (image.Image, error) {
	filters, _ := a.doc.filterChain(a.stream.Dict)
	last := Name("")
	if len(filters) > 0 {
		last = filters[len(filters)-1]
	}
	switch last {
	case "DCTDecode":
		data := a.stream.Raw
		// A Flate layer sometimes wraps the JPEG payload.
		if len(filters) > 1 {
			decoded, full, err := a.doc.DecodeStream(Stream{
				Dict: Dict{"Filter": Name(filters[0])},
				Raw:  a.stream.Raw,
			})
			if err == nil && full {
				data = decoded
			}
		}
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("pdf: decode JPEG image %s: %w", a.Name, err)
		}
		return img, nil
	case "FlateDecode", "Fl", "ASCIIHexDecode", "AHx", "ASCII85Decode", "A85", "":
		data, full, err := a.doc.DecodeStream(a.stream)
		if err != nil || !full {
			return nil, fmt.Errorf("pdf: decode image %s: %w", a.Name, err)
		}
		return a.rawRaster(data)
	default:
		return nil, fmt.Errorf("pdf: image %s uses unsupported codec %s", a.Name, last)
	}
}

// rawRaster interprets decoded sample data as an 8-bit gray or RGB raster, or
// a 1-bit bilevel raster, the shapes scanners produce.
func (a *ImageAsset) rawRaster(data []byte) (image.Image, error) {
	bpc, ok := a.doc.Int(a.stream.Dict["BitsPerComponent"])
	if !ok {
		bpc = 8
	}
	cs, _ := a.doc.NameVal(a.stream.Dict["ColorSpace"])
	switch {
	case bpc == 1:
		return a.bilevel(data)
	case cs == "DeviceRGB" || len(data) >= a.Width*a.Height*3:
		img := image.NewRGBA(image.Rect(0, 0, a.Width, a.Height))
		for y := 0; y < a.Height; y++ {
			for x := 0; x < a.Width; x++ {
				i := (y*a.Width + x) * 3
				if i+2 >= len(data) {
					break
				}
				img.Set(x, y, color.RGBA{R: data[i], G: data[i+1], B: data[i+2], A: 255})
			}
		}
		return img, nil
	case len(data) >= a.Width*a.Height:
		img := image.NewGray(image.Rect(0, 0, a.Width, a.Height))
		copy(img.Pix, data[:a.Width*a.Height])
		return img, nil
	default:
		return nil, fmt.Errorf("pdf: image %s has %d bytes for %dx%d raster", a.Name, len(data), a.Width, a.Height)
	}
}

func (a *ImageAsset) bilevel(data []byte) (image.Image, error) {
	rowBytes := (a.Width + 7) / 8
	if len(data) < rowBytes*a.Height {
		return nil, fmt.Errorf("pdf: image %s bilevel data truncated", a.Name)
	}
	img := image.NewGray(image.Rect(0, 0, a.Width, a.Height))
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			// sample 0 is black in 1-bit DeviceGray
			bit := data[y*rowBytes+x/8] >> (7 - uint(x%8)) & 1
			img.SetGray(x, y, color.Gray{Y: bit * 255})
		}
	}
	return img, nil
}

// ToPNG encodes the asset as PNG, downscaling with a bilinear kernel when the
// longer edge exceeds maxDim (0 disables scaling). OCR engines gain nothing
// from rasters past roughly 300 DPI and slow down considerably.
func (a *ImageAsset) ToPNG(maxDim int) ([]byte, error) {
	img, err := a.Image()
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		scale := float64(maxDim) / float64(b.Dx())
		if b.Dy() > b.Dx() {
			scale = float64(maxDim) / float64(b.Dy())
		}
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		img = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("pdf: encode image %s: %w", a.Name, err)
	}
	return buf.Bytes(), nil
}
