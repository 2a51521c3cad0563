// Package transform implements the image pipeline applied to originals:
// permissive decode, orientation normalization, resize, then encode to the
// requested format.
package transform

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/yi-nology/mediaedge/pkg/operations"
	"github.com/yi-nology/mediaedge/pkg/validator"
)

// Pipeline stages, used to tag errors.
const (
	StageDecode = "decode"
	StageResize = "resize"
	StageEncode = "encode"
)

// Error reports a pipeline failure and the stage it happened in.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Artifact is an encoded derivative. Salvaged is set when the original was
// damaged and only part of it could be decoded.
type Artifact struct {
	Data        []byte
	ContentType string
	Format      Format
	Salvaged    bool
}

// Len returns the encoded size in bytes.
func (a *Artifact) Len() int {
	return len(a.Data)
}

// plan captures the output decisions derived from the operations.
type plan struct {
	format      Format
	contentType string
	quality     int
	width       int
	height      int
}

// planOutput resolves the output codec, content type, quality and target
// size. contentType is the stored type of the original; source is the
// format the original decoded as.
func planOutput(ops operations.Set, source Format, contentType string) plan {
	p := plan{}
	p.width, _ = ops.Width()
	p.height, _ = ops.Height()

	if name, ok := ops.Format(); ok {
		p.format = ParseFormat(name)
		p.contentType = p.format.ContentType()
		if q, ok := ops.Quality(); ok && p.format.Lossy() {
			p.quality = clampQuality(q)
		}
		return p
	}

	switch {
	case source == SVG || validator.IsSVG(contentType):
		p.format = PNG
		p.contentType = PNG.ContentType()
	default:
		p.format = source
		p.contentType = contentType
		if p.contentType == "" {
			p.contentType = source.ContentType()
		}
	}
	return p
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// Transform runs the pipeline over the original bytes.
func Transform(data []byte, contentType string, ops operations.Set) (*Artifact, error) {
	src, err := decode(data, contentType)
	if err != nil {
		return nil, &Error{Stage: StageDecode, Err: err}
	}

	p := planOutput(ops, src.format, contentType)

	if src.animation != nil && p.format == GIF {
		anim, err := resizeAnimation(src.animation, func(img image.Image) image.Image {
			return resize(img, p.width, p.height)
		})
		if err != nil {
			return nil, &Error{Stage: StageResize, Err: err}
		}
		out, err := encodeAnimation(anim)
		if err != nil {
			return nil, &Error{Stage: StageEncode, Err: err}
		}
		return &Artifact{Data: out, ContentType: p.contentType, Format: p.format, Salvaged: src.salvaged}, nil
	}

	img := resize(src.image, p.width, p.height)

	out, err := encode(img, p.format, p.quality)
	if err != nil {
		return nil, &Error{Stage: StageEncode, Err: err}
	}
	return &Artifact{Data: out, ContentType: p.contentType, Format: p.format, Salvaged: src.salvaged}, nil
}

// resize applies the requested dimensions. With both set the image covers
// the box and is center-cropped to exactly width x height; with one set the
// other axis scales proportionally.
func resize(img image.Image, width, height int) image.Image {
	switch {
	case width > 0 && height > 0:
		return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	case width > 0 || height > 0:
		return imaging.Resize(img, width, height, imaging.Lanczos)
	default:
		return img
	}
}
