package mask

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"carpet-studio/internal/raster"
)

const (
	DefaultBrushRadius = 24
	MinBrushRadius     = 1
	MaxBrushRadius     = 200

	overlayOpacity = 0.35
	infoLabel      = "Brush: white = product"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Options struct {
	Width       int
	Height      int
	BrushRadius float64
	// Sparse disables stamping along the segment between consecutive stroke
	// points, leaving one disc per point.
	Sparse bool
}

// Painter owns the monochrome mask used for manual cutouts. 0 is background,
// 255 is product. Strokes only ever raise values; Clear is the only way back.
type Painter struct {
	buf    *image.Gray
	base   *image.NRGBA
	radius float64
	sparse bool

	drawing bool
	last    Point
}

// New fits source into the working canvas and starts with an all-background
// mask of the same size.
func New(source image.Image, opts Options) *Painter {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		b := source.Bounds()
		w, h = b.Dx(), b.Dy()
	}

	base, _ := raster.Contain(source, w, h)

	p := &Painter{
		buf:    image.NewGray(image.Rect(0, 0, w, h)),
		base:   base,
		sparse: opts.Sparse,
	}
	p.SetBrushRadius(opts.BrushRadius)
	return p
}

func (p *Painter) Size() image.Point {
	return p.buf.Rect.Size()
}

func (p *Painter) BrushRadius() float64 {
	return p.radius
}

func (p *Painter) SetBrushRadius(r float64) {
	switch {
	case r <= 0 || math.IsNaN(r):
		r = DefaultBrushRadius
	case r < MinBrushRadius:
		r = MinBrushRadius
	case r > MaxBrushRadius:
		r = MaxBrushRadius
	}
	p.radius = r
}

func (p *Painter) BeginStroke(pt Point) {
	p.drawing = true
	p.stamp(pt)
	p.last = pt
}

// ExtendStroke is a no-op unless a stroke is in progress.
func (p *Painter) ExtendStroke(pt Point) {
	if !p.drawing {
		return
	}
	if !p.sparse {
		p.stampSegment(p.last, pt)
	} else {
		p.stamp(pt)
	}
	p.last = pt
}

func (p *Painter) EndStroke() {
	p.drawing = false
}

// Clear resets every mask value to background.
func (p *Painter) Clear() {
	for i := range p.buf.Pix {
		p.buf.Pix[i] = 0
	}
}

// Mask returns a copy of the mask buffer.
func (p *Painter) Mask() *image.Gray {
	out := image.NewGray(p.buf.Rect)
	copy(out.Pix, p.buf.Pix)
	return out
}

// Base returns the source image as fitted into the working canvas.
func (p *Painter) Base() *image.NRGBA {
	return imaging.Clone(p.base)
}

// RenderPreview draws the fitted source, the mask at fixed translucency and a
// small legend. The overlay is feedback only and never feeds back into the mask.
func (p *Painter) RenderPreview() *image.NRGBA {
	out := imaging.Overlay(p.base, p.buf, image.Point{}, overlayOpacity)

	box := image.Rect(10, 10, 200, 36).Intersect(out.Bounds())
	draw.Draw(out, box, image.NewUniform(color.NRGBA{A: 89}), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(18, 28),
	}
	d.DrawString(infoLabel)
	return out
}

// MapPoint converts a point in display space (for example a scaled canvas
// element) into mask buffer space.
func (p *Painter) MapPoint(pt Point, displayW, displayH float64) Point {
	size := p.Size()
	if displayW <= 0 || displayH <= 0 {
		return pt
	}
	return Point{
		X: pt.X * float64(size.X) / displayW,
		Y: pt.Y * float64(size.Y) / displayH,
	}
}

func (p *Painter) stampSegment(from, to Point) {
	dist := math.Hypot(to.X-from.X, to.Y-from.Y)
	spacing := math.Max(p.radius/2, 0.5)
	steps := int(math.Ceil(dist / spacing))
	if steps < 1 {
		p.stamp(to)
		return
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p.stamp(Point{X: from.X + (to.X-from.X)*t, Y: from.Y + (to.Y-from.Y)*t})
	}
}

func (p *Painter) stamp(pt Point) {
	disc := raster.Disc(pt.X, pt.Y, p.radius)
	r := disc.Rect.Intersect(p.buf.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			a := disc.Pix[disc.PixOffset(x, y)]
			i := p.buf.PixOffset(x, y)
			if a > p.buf.Pix[i] {
				p.buf.Pix[i] = a
			}
		}
	}
}
