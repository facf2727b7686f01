package compose

import (
	"errors"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"carpet-studio/internal/apperr"
	"carpet-studio/internal/raster"
)

const (
	DefaultWatermarkText = "carpet aesthetic"

	vignetteInner = 0.25
	vignetteOuter = 0.75
	vignetteAlpha = 0.18

	shadowRings     = 18
	shadowBaseAlpha = 0.02
	shadowStepAlpha = 0.0035
	shadowGrowX     = 2.2
	shadowGrowY     = 1.2

	watermarkMargin = 16
)

var ErrBackgroundMissing = errors.New("no background image to compose on")

type Options struct {
	AspectRatio   string
	Resolution    int
	Stylization   int
	Watermark     bool
	WatermarkText string
}

// AspectToWH maps "a:b" and a base size to canvas dimensions. The longer side
// gets base. Unparseable or non-positive ratios give a square.
func AspectToWH(aspect string, base int) (int, int) {
	a, b, ok := parseAspect(aspect)
	if !ok {
		return base, base
	}
	if a >= b {
		return base, int(math.Round(float64(base) * b / a))
	}
	return int(math.Round(float64(base) * a / b)), base
}

func parseAspect(aspect string) (float64, float64, bool) {
	left, right, found := strings.Cut(strings.TrimSpace(aspect), ":")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return 0, 0, false
	}
	if a <= 0 || b <= 0 || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, 0, false
	}
	return a, b, true
}

// ProductScale is the product width as a fraction of the canvas width. More
// stylization leaves more room for the scene.
func ProductScale(stylization int) float64 {
	s := 0.62 - float64(stylization)/300
	return math.Min(0.68, math.Max(0.48, s))
}

// Compose lays the cutout over the background: cover fit, vignette, contact
// shadow, product, then the optional watermark.
func Compose(background image.Image, cut image.Image, opts Options) (*image.NRGBA, error) {
	if cut == nil {
		return nil, apperr.ErrCutoutMissing
	}
	if background == nil {
		return nil, ErrBackgroundMissing
	}

	w, h := AspectToWH(opts.AspectRatio, opts.Resolution)
	if w <= 0 || h <= 0 {
		return nil, errors.New("compose: canvas size must be positive")
	}

	out := raster.Cover(background, w, h)
	applyVignette(out)

	cb := cut.Bounds()
	if cb.Dx() == 0 || cb.Dy() == 0 {
		return nil, apperr.ErrCutoutMissing
	}
	pw := int(math.Round(float64(w) * ProductScale(opts.Stylization)))
	ph := int(math.Round(float64(pw) * float64(cb.Dy()) / float64(cb.Dx())))
	pw, ph = max(pw, 1), max(ph, 1)
	x := int(math.Round(float64(w-pw) / 2))
	y := int(math.Round(float64(h-ph) / 2))

	drawShadow(out, x, y, pw, ph)

	product := imaging.Resize(cut, pw, ph, imaging.Lanczos)
	out = imaging.Overlay(out, product, image.Pt(x, y), 1)

	if opts.Watermark {
		text := opts.WatermarkText
		if text == "" {
			text = DefaultWatermarkText
		}
		drawWatermark(out, text)
	}
	return out, nil
}

// applyVignette darkens toward the edges with a radial ramp from transparent
// at 0.25·min(w,h) to 18% black at 0.75·max(w,h).
func applyVignette(img *image.NRGBA) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	cx, cy := w/2, h/2
	inner := math.Min(w, h) * vignetteInner
	outer := math.Max(w, h) * vignetteOuter
	span := outer - inner

	for py := 0; py < b.Dy(); py++ {
		dy := float64(py) + 0.5 - cy
		row := img.Pix[py*img.Stride:]
		for px := 0; px < b.Dx(); px++ {
			d := math.Hypot(float64(px)+0.5-cx, dy)
			if d <= inner {
				continue
			}
			t := 1.0
			if span > 0 {
				t = math.Min(1, (d-inner)/span)
			}
			darken(row[px*4:px*4+3], vignetteAlpha*t)
		}
	}
}

// drawShadow multiplies black ellipse rings under the product's lower part.
// Each ring is larger and slightly darker than the last.
func drawShadow(img *image.NRGBA, x, y, pw, ph int) {
	cx := float64(x) + float64(pw)/2
	cy := float64(y) + 0.8*float64(ph)
	rx := 0.32 * float64(pw)
	ry := 0.10 * float64(ph)

	for i := 0; i < shadowRings; i++ {
		a := shadowBaseAlpha + float64(i)*shadowStepAlpha
		ring := raster.Ellipse(cx, cy, rx+float64(i)*shadowGrowX, ry+float64(i)*shadowGrowY)
		r := ring.Rect.Intersect(img.Rect)
		for py := r.Min.Y; py < r.Max.Y; py++ {
			for px := r.Min.X; px < r.Max.X; px++ {
				cov := ring.Pix[ring.PixOffset(px, py)]
				if cov == 0 {
					continue
				}
				i := img.PixOffset(px, py)
				darken(img.Pix[i:i+3], a*float64(cov)/255)
			}
		}
	}
}

func darken(rgb []uint8, a float64) {
	k := 1 - a
	for i := range rgb {
		rgb[i] = uint8(math.Round(float64(rgb[i]) * k))
	}
}

func drawWatermark(img *image.NRGBA, text string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 166}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(watermarkMargin, img.Bounds().Dy()-watermarkMargin),
	}
	d.DrawString(text)
}
