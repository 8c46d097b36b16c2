package images

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// fitWithin scales (w, h) down to fit inside (maxW, maxH) keeping the aspect
// ratio. It never upscales; the bool reports whether scaling was needed.
func fitWithin(w, h, maxW, maxH int) (int, int, bool) {
	if w <= maxW && h <= maxH {
		return w, h, false
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return min(nw, maxW), min(nh, maxH), true
}

// hasAlpha reports whether img may contain non-opaque pixels.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// flatten composites img onto an opaque white background and scales it to
// (w, h) in one pass. JPEG has no alpha channel, so transparent areas would
// otherwise turn black.
func flatten(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, xdraw.Src)

	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Over)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
