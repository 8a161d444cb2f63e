package raster

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

// kappa places cubic control points so a quarter curve approximates a circle.
const kappa = 0.5522847498

// roundedPath adds a closed rounded rectangle to z in coordinates local to z.
// Clockwise and counter-clockwise paths cancel where they overlap, which is
// how rings are cut out of filled shapes.
func roundedPath(z *vector.Rasterizer, x0, y0, x1, y1, r float32, clockwise bool) {
	r = min(r, (x1-x0)/2, (y1-y0)/2)
	if r < 0 {
		r = 0
	}
	k := r * kappa

	z.MoveTo(x0+r, y0)
	if clockwise {
		z.LineTo(x1-r, y0)
		z.CubeTo(x1-r+k, y0, x1, y0+r-k, x1, y0+r)
		z.LineTo(x1, y1-r)
		z.CubeTo(x1, y1-r+k, x1-r+k, y1, x1-r, y1)
		z.LineTo(x0+r, y1)
		z.CubeTo(x0+r-k, y1, x0, y1-r+k, x0, y1-r)
		z.LineTo(x0, y0+r)
		z.CubeTo(x0, y0+r-k, x0+r-k, y0, x0+r, y0)
	} else {
		z.CubeTo(x0+r-k, y0, x0, y0+r-k, x0, y0+r)
		z.LineTo(x0, y1-r)
		z.CubeTo(x0, y1-r+k, x0+r-k, y1, x0+r, y1)
		z.LineTo(x1-r, y1)
		z.CubeTo(x1-r+k, y1, x1, y1-r+k, x1, y1-r)
		z.LineTo(x1, y0+r)
		z.CubeTo(x1, y0+r-k, x1-r+k, y0, x1-r, y0)
	}
	z.ClosePath()
}

func fillRoundedRect(dst draw.Image, box image.Rectangle, radius float64, c color.NRGBA) {
	if box.Empty() {
		return
	}
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	roundedPath(z, 0, 0, float32(box.Dx()), float32(box.Dy()), float32(radius), true)
	z.Draw(dst, box, uniform(c), image.Point{})
}

// strokeRoundedRect draws a ring of the given width inside box.
func strokeRoundedRect(dst draw.Image, box image.Rectangle, radius, width float64, c color.NRGBA) {
	if box.Empty() || width <= 0 {
		return
	}
	w, h := float32(box.Dx()), float32(box.Dy())
	bw := float32(width)
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	roundedPath(z, 0, 0, w, h, float32(radius), true)
	roundedPath(z, bw, bw, w-bw, h-bw, float32(radius)-bw, false)
	z.Draw(dst, box, uniform(c), image.Point{})
}

// drawClipboardIcon draws a board outline with a filled clip tab into slot.
func drawClipboardIcon(dst draw.Image, slot image.Rectangle, c color.NRGBA) {
	if slot.Empty() {
		return
	}
	s := float32(slot.Dx())
	stroke := max(1.5, s*0.09)
	z := vector.NewRasterizer(slot.Dx(), slot.Dy())

	// board
	bx0, by0, bx1, by1 := s*0.15, s*0.12, s*0.85, s*0.96
	roundedPath(z, bx0, by0, bx1, by1, s*0.1, true)
	roundedPath(z, bx0+stroke, by0+stroke, bx1-stroke, by1-stroke, s*0.1-stroke, false)

	// clip tab
	roundedPath(z, s*0.33, s*0.02, s*0.67, s*0.22, s*0.05, true)

	// two text rules
	roundedPath(z, s*0.32, s*0.45, s*0.68, s*0.45+stroke, 0, true)
	roundedPath(z, s*0.32, s*0.65, s*0.58, s*0.65+stroke, 0, true)

	z.Draw(dst, slot, uniform(c), image.Point{})
}
