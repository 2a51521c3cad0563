package transform

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
)

// encode writes img in format f. A zero quality selects the format default.
func encode(img image.Image, f Format, quality int) ([]byte, error) {
	if quality == 0 {
		quality = f.defaultQuality()
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case GIF:
		err = imaging.Encode(&buf, img, imaging.GIF, imaging.GIFNumColors(256))
	case BMP:
		err = imaging.Encode(&buf, img, imaging.BMP)
	case TIFF:
		err = imaging.Encode(&buf, img, imaging.TIFF)
	case WEBP:
		err = webp.Encode(&buf, img, webp.Options{Quality: quality, Method: 4})
	case AVIF:
		err = avif.Encode(&buf, img, avif.Options{
			Quality:           quality,
			QualityAlpha:      quality,
			Speed:             8,
			ChromaSubsampling: image.YCbCrSubsampleRatio420,
		})
	default:
		return nil, fmt.Errorf("no encoder for format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}
