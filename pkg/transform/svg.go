package transform

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// maxSVGDimension bounds the raster size of a single SVG side.
const maxSVGDimension = 8192

// rasterizeSVG renders an SVG document at its intrinsic viewBox size.
// Unsupported elements are skipped rather than rejected.
func rasterizeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg has no usable viewBox (%vx%v)", icon.ViewBox.W, icon.ViewBox.H)
	}
	if w > maxSVGDimension || h > maxSVGDimension {
		return nil, fmt.Errorf("svg viewBox %dx%d exceeds %d", w, h, maxSVGDimension)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}
