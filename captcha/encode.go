package captcha

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
)

// Supported output formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"

	DefaultQuality = 75
)

// Encoder turns a rasterized canvas into bytes of a single image format.
// ContentType is the MIME type declared for those bytes.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, img image.Image) error
}

// JPEGEncoder is the lossy codec used by default.
type JPEGEncoder struct {
	Quality int
}

func (JPEGEncoder) ContentType() string { return "image/jpeg" }

func (e JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: e.Quality})
}

// PNGEncoder is lossless; quality does not apply.
type PNGEncoder struct{}

func (PNGEncoder) ContentType() string { return "image/png" }

func (PNGEncoder) Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

// NewEncoder returns the encoder for format. quality only applies to jpeg.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch strings.ToLower(format) {
	case "", FormatJPEG, "jpg":
		if quality == 0 {
			quality = DefaultQuality
		}
		if quality < 1 || quality > 100 {
			return nil, fmt.Errorf("%w: jpeg quality %d out of [1,100]", ErrInvalidConfig, quality)
		}
		return JPEGEncoder{Quality: quality}, nil
	case FormatPNG:
		return PNGEncoder{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidConfig, format)
	}
}

// Image is an encoded captcha.
type Image struct {
	Data        []byte
	ContentType string
}

// DataURI wraps the image as data:<mime>;base64,<payload>.
func (img *Image) DataURI() string {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
