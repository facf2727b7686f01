package raster

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points so four Béziers approximate a quarter
// ellipse each.
const kappa = 0.5522847498

// Ellipse rasterizes a filled, anti-aliased axis-aligned ellipse. The returned
// Alpha is positioned in absolute coordinates and covers the ellipse's
// bounding box plus one pixel of margin; each value is the pixel's coverage.
func Ellipse(cx, cy, rx, ry float64) *image.Alpha {
	if rx <= 0 || ry <= 0 || math.IsNaN(cx) || math.IsNaN(cy) {
		return image.NewAlpha(image.Rectangle{})
	}

	minX := int(math.Floor(cx-rx)) - 1
	minY := int(math.Floor(cy-ry)) - 1
	maxX := int(math.Ceil(cx+rx)) + 1
	maxY := int(math.Ceil(cy+ry)) + 1
	bounds := image.Rect(minX, minY, maxX, maxY)

	// Path coordinates are relative to the box origin.
	x := float32(cx - float64(minX))
	y := float32(cy - float64(minY))
	a := float32(rx)
	b := float32(ry)
	ka := float32(kappa * rx)
	kb := float32(kappa * ry)

	z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	z.DrawOp = draw.Src
	z.MoveTo(x+a, y)
	z.CubeTo(x+a, y+kb, x+ka, y+b, x, y+b)
	z.CubeTo(x-ka, y+b, x-a, y+kb, x-a, y)
	z.CubeTo(x-a, y-kb, x-ka, y-b, x, y-b)
	z.CubeTo(x+ka, y-b, x+a, y-kb, x+a, y)
	z.ClosePath()

	dst := image.NewAlpha(bounds)
	z.Draw(dst, bounds, image.Opaque, image.Point{})
	return dst
}

// Disc is Ellipse with equal radii.
func Disc(cx, cy, r float64) *image.Alpha {
	return Ellipse(cx, cy, r, r)
}
