package transform

import (
	"bytes"
	"errors"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
)

// resizeAnimation composites every frame onto a full canvas, applies fn to
// the composite and re-quantizes it, so each output frame is self-contained
// and uses DisposalNone.
func resizeAnimation(g *gif.GIF, fn func(image.Image) image.Image) (*gif.GIF, error) {
	if len(g.Image) == 0 {
		return nil, errors.New("animation has no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	out := &gif.GIF{
		Image:     make([]*image.Paletted, 0, len(g.Image)),
		Delay:     make([]int, 0, len(g.Image)),
		Disposal:  make([]byte, 0, len(g.Image)),
		LoopCount: g.LoopCount,
	}

	for i, frame := range g.Image {
		var previous *image.RGBA
		disposal := disposalAt(g, i)
		if disposal == gif.DisposalPrevious {
			previous = image.NewRGBA(bounds)
			draw.Draw(previous, bounds, canvas, bounds.Min, draw.Src)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)

		scaled := fn(canvas)
		pal := frame.Palette
		if len(pal) == 0 {
			pal = palette.Plan9
		}
		dst := image.NewPaletted(scaled.Bounds(), pal)
		draw.FloydSteinberg.Draw(dst, dst.Bounds(), scaled, scaled.Bounds().Min)

		out.Image = append(out.Image, dst)
		out.Disposal = append(out.Disposal, gif.DisposalNone)
		if i < len(g.Delay) {
			out.Delay = append(out.Delay, g.Delay[i])
		} else {
			out.Delay = append(out.Delay, 0)
		}

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			draw.Draw(canvas, bounds, previous, bounds.Min, draw.Src)
		}
	}
	return out, nil
}

func disposalAt(g *gif.GIF, i int) byte {
	if i < len(g.Disposal) {
		return g.Disposal[i]
	}
	return gif.DisposalNone
}

func encodeAnimation(g *gif.GIF) ([]byte, error) {
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
