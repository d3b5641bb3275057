package converter

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	defaultMaxImageDim  = 1200
	defaultJPEGQuality  = 85
	defaultMaxImageSize = 512 * 1024
	minJPEGQuality      = 60
	defaultMaxPixels    = 100 * 1000 * 1000 // 100 megapixels
)

// imageOptimizer bounds the pixel dimensions and encoded size of raster
// images before they enter the package.
type imageOptimizer struct {
	MaxDim         int
	JPEGQuality    int
	MaxFileSize    int
	MinJPEGQuality int
	MaxPixels      int // total pixel count limit for decode (width * height)
}

// optimizedImage holds optimized image data. Warning is set when the
// image was passed through unmodified or a size constraint could not be
// met; Data is usable either way.
type optimizedImage struct {
	Data    []byte
	Width   int
	Height  int
	Format  string // "jpeg", "png" or "gif"
	Warning string
}

func newImageOptimizer(maxDim, quality int) *imageOptimizer {
	if maxDim <= 0 {
		maxDim = defaultMaxImageDim
	}
	if quality <= 0 {
		quality = defaultJPEGQuality
	}
	if quality > 100 {
		quality = 100
	}
	return &imageOptimizer{
		MaxDim:         maxDim,
		JPEGQuality:    quality,
		MaxFileSize:    defaultMaxImageSize,
		MinJPEGQuality: minJPEGQuality,
		MaxPixels:      defaultMaxPixels,
	}
}

// optimize classifies input by content sniffing and re-encodes it within
// the configured bounds. It returns ErrUnsupportedImageFormat when the
// data is not one of the supported raster formats; any decodable input
// produces usable output.
func (o *imageOptimizer) optimize(input []byte) (optimizedImage, error) {
	cfg, sniffed, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		return optimizedImage{}, ErrUnsupportedImageFormat
	}

	out := optimizedImage{
		Data:   input,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: strings.ToLower(sniffed),
	}

	if pixels := uint64(cfg.Width) * uint64(cfg.Height); o.MaxPixels > 0 && pixels > uint64(o.MaxPixels) {
		out.Warning = "image too large to decode, passed through unmodified"
		return out, nil
	}

	if out.Format == "gif" {
		animated, err := isAnimatedGIF(input)
		if err == nil && animated {
			// Re-encoding would drop all frames but the first.
			return out, nil
		}
	}

	src, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		out.Warning = "image decode failed, passed through unmodified"
		return out, nil
	}

	processed := src
	bounds := src.Bounds()
	if o.MaxDim > 0 && (bounds.Dx() > o.MaxDim || bounds.Dy() > o.MaxDim) {
		processed = imaging.Fit(src, o.MaxDim, o.MaxDim, imaging.Lanczos)
	}

	target := chooseTargetFormat(out.Format, processed)
	var data []byte
	switch target {
	case "jpeg":
		data, err = o.encodeJPEGWithSizeLimit(processed)
	case "png":
		data, err = encodePNG(processed)
	default:
		data = input
	}
	if err != nil {
		return out, err
	}

	out.Data = data
	out.Width = processed.Bounds().Dx()
	out.Height = processed.Bounds().Dy()
	out.Format = target

	if o.MaxFileSize > 0 && len(out.Data) > o.MaxFileSize {
		out.Warning = "image exceeds size limit after recompression"
	}
	return out, nil
}

// encodeJPEGWithSizeLimit encodes at the configured quality and steps the
// quality down until the result fits MaxFileSize or MinJPEGQuality is
// reached.
func (o *imageOptimizer) encodeJPEGWithSizeLimit(img image.Image) ([]byte, error) {
	best, err := encodeJPEG(img, o.JPEGQuality)
	if err != nil {
		return nil, err
	}
	if o.MaxFileSize <= 0 || len(best) <= o.MaxFileSize {
		return best, nil
	}
	for q := o.JPEGQuality - 5; q >= o.MinJPEGQuality; q -= 5 {
		candidate, err := encodeJPEG(img, q)
		if err != nil {
			return nil, err
		}
		best = candidate
		if len(candidate) <= o.MaxFileSize {
			break
		}
	}
	return best, nil
}

// chooseTargetFormat keeps transparent PNGs as PNG to preserve alpha;
// everything else is converted to JPEG for smaller package size.
func chooseTargetFormat(sniffed string, img image.Image) string {
	switch sniffed {
	case "png":
		if hasAlpha(img) {
			return "png"
		}
		return "jpeg"
	case "gif":
		return "jpeg"
	default:
		return "jpeg"
	}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAnimatedGIF(data []byte) (bool, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return len(g.Image) > 1, nil
}

func hasAlpha(img image.Image) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}
