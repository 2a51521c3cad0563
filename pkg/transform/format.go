package transform

import (
	"github.com/yi-nology/mediaedge/pkg/validator"
)

// Format identifies an image codec.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	WEBP Format = "webp"
	AVIF Format = "avif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	SVG  Format = "svg"
)

// ParseFormat maps a requested format name onto an output format.
// Only jpeg, gif, webp, png and avif can be requested; anything else
// falls back to JPEG.
func ParseFormat(name string) Format {
	switch Format(name) {
	case JPEG, GIF, WEBP, PNG, AVIF:
		return Format(name)
	default:
		return JPEG
	}
}

// Lossy reports whether the encoder honours a quality setting.
func (f Format) Lossy() bool {
	switch f {
	case JPEG, WEBP, AVIF:
		return true
	default:
		return false
	}
}

// ContentType returns the MIME type written for f.
func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	case GIF:
		return "image/gif"
	case WEBP:
		return "image/webp"
	case AVIF:
		return "image/avif"
	case BMP:
		return "image/bmp"
	case TIFF:
		return "image/tiff"
	case SVG:
		return validator.SVGContentType
	default:
		return validator.DefaultContentType
	}
}

// defaultQuality is used for lossy formats when no quality was requested.
func (f Format) defaultQuality() int {
	switch f {
	case JPEG, WEBP:
		return 80
	case AVIF:
		return 50
	default:
		return 0
	}
}
