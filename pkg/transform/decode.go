package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/yi-nology/mediaedge/pkg/validator"
)

// source is a decoded original. animation is set only for multi-frame GIFs.
// salvaged marks an original that only decoded after repair.
type source struct {
	image     image.Image
	animation *gif.GIF
	format    Format
	salvaged  bool
}

func decode(data []byte, contentType string) (*source, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	if validator.IsSVG(contentType) {
		return decodeSVG(data)
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if validator.LooksLikeSVG(data) {
			return decodeSVG(data)
		}
		return nil, fmt.Errorf("unrecognized image data: %w", err)
	}

	src := &source{format: Format(name)}
	if src.format == GIF {
		anim, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			if trimmed, ok := trimGIF(data); ok {
				if anim, err = gif.DecodeAll(bytes.NewReader(trimmed)); err == nil {
					data, src.salvaged = trimmed, true
				}
			}
		}
		if err == nil && len(anim.Image) > 1 {
			src.animation = anim
		}
	}

	// Orientation is read from EXIF and applied here; an unreadable EXIF
	// block leaves the image as decoded.
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		repaired, ok := salvage(data, src.format)
		if !ok {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		salvagedImg, serr := imaging.Decode(repaired, imaging.AutoOrientation(true))
		if serr != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		img, src.salvaged = salvagedImg, true
	}
	src.image = img
	return src, nil
}

func decodeSVG(data []byte) (*source, error) {
	img, err := rasterizeSVG(data)
	if err != nil {
		return nil, err
	}
	return &source{image: img, format: SVG}, nil
}
