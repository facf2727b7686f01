package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Contain scales src to fit inside a w×h canvas, preserving aspect ratio, and
// centers it on a transparent background. It returns the canvas and the
// rectangle the image occupies.
func Contain(src image.Image, w, h int) (*image.NRGBA, image.Rectangle) {
	canvas := imaging.New(w, h, color.NRGBA{})
	if src == nil || w <= 0 || h <= 0 {
		return canvas, image.Rectangle{}
	}

	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return canvas, image.Rectangle{}
	}

	scale := math.Min(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy()))
	nw := max(1, int(math.Round(float64(sb.Dx())*scale)))
	nh := max(1, int(math.Round(float64(sb.Dy())*scale)))

	resized := imaging.Resize(src, nw, nh, imaging.Lanczos)
	at := image.Pt((w-nw)/2, (h-nh)/2)
	return imaging.Paste(canvas, resized, at), image.Rectangle{Min: at, Max: at.Add(image.Pt(nw, nh))}
}

// Cover scales src so it fully covers a w×h canvas and crops the centered
// overflow.
func Cover(src image.Image, w, h int) *image.NRGBA {
	return imaging.Fill(src, w, h, imaging.Center, imaging.Lanczos)
}
