package mask

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPainter(t *testing.T, w, h int, sparse bool) *Painter {
	t.Helper()
	src := imaging.New(w, h, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
	return New(src, Options{Width: w, Height: h, BrushRadius: 10, Sparse: sparse})
}

func TestNewStartsAllBackground(t *testing.T) {
	p := newTestPainter(t, 64, 48, false)
	assert.Equal(t, image.Pt(64, 48), p.Size())
	for _, v := range p.Mask().Pix {
		require.Equal(t, uint8(0), v)
	}
}

func TestStrokeCoverage(t *testing.T) {
	p := newTestPainter(t, 120, 120, true)
	points := []Point{{30, 30}, {80, 35}, {60, 90}}

	p.BeginStroke(points[0])
	p.ExtendStroke(points[1])
	p.ExtendStroke(points[2])
	p.EndStroke()

	m := p.Mask()
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			nearest := math.Inf(1)
			for _, pt := range points {
				nearest = math.Min(nearest, math.Hypot(float64(x)+0.5-pt.X, float64(y)+0.5-pt.Y))
			}
			v := m.GrayAt(x, y).Y
			switch {
			case nearest < p.BrushRadius()-1:
				require.Equal(t, uint8(255), v, "inside %d,%d", x, y)
			case nearest > p.BrushRadius()+1:
				require.Equal(t, uint8(0), v, "outside %d,%d", x, y)
			}
		}
	}
}

func TestStrokeInterpolatesBetweenPoints(t *testing.T) {
	dense := newTestPainter(t, 200, 60, false)
	dense.BeginStroke(Point{20, 30})
	dense.ExtendStroke(Point{180, 30})
	dense.EndStroke()

	sparse := newTestPainter(t, 200, 60, true)
	sparse.BeginStroke(Point{20, 30})
	sparse.ExtendStroke(Point{180, 30})
	sparse.EndStroke()

	assert.Equal(t, uint8(255), dense.Mask().GrayAt(100, 30).Y)
	assert.Equal(t, uint8(0), sparse.Mask().GrayAt(100, 30).Y)
}

func TestExtendWithoutBeginIsIgnored(t *testing.T) {
	p := newTestPainter(t, 50, 50, false)
	p.ExtendStroke(Point{25, 25})
	assert.Equal(t, uint8(0), p.Mask().GrayAt(25, 25).Y)

	p.BeginStroke(Point{25, 25})
	p.EndStroke()
	p.ExtendStroke(Point{45, 45})
	assert.Equal(t, uint8(255), p.Mask().GrayAt(25, 25).Y)
	assert.Equal(t, uint8(0), p.Mask().GrayAt(45, 45).Y)
}

func TestPaintingIsMonotonic(t *testing.T) {
	p := newTestPainter(t, 80, 80, false)
	p.BeginStroke(Point{40, 40})
	p.EndStroke()
	before := p.Mask()

	p.SetBrushRadius(3)
	p.BeginStroke(Point{45, 40})
	p.ExtendStroke(Point{70, 70})
	p.EndStroke()
	after := p.Mask()

	for i := range before.Pix {
		require.GreaterOrEqual(t, after.Pix[i], before.Pix[i])
	}
}

func TestClearRestoresInitialPreview(t *testing.T) {
	p := newTestPainter(t, 96, 64, false)
	initial := p.RenderPreview()

	p.BeginStroke(Point{10, 10})
	p.ExtendStroke(Point{90, 60})
	p.EndStroke()
	assert.NotEqual(t, initial.Pix, p.RenderPreview().Pix)

	p.Clear()
	assert.Equal(t, initial.Pix, p.RenderPreview().Pix)
}

func TestBrushRadiusClamps(t *testing.T) {
	p := newTestPainter(t, 10, 10, false)
	p.SetBrushRadius(0)
	assert.Equal(t, float64(DefaultBrushRadius), p.BrushRadius())
	p.SetBrushRadius(0.2)
	assert.Equal(t, float64(MinBrushRadius), p.BrushRadius())
	p.SetBrushRadius(1000)
	assert.Equal(t, float64(MaxBrushRadius), p.BrushRadius())
}

func TestMapPoint(t *testing.T) {
	p := newTestPainter(t, 1000, 500, false)
	got := p.MapPoint(Point{X: 250, Y: 125}, 500, 250)
	assert.Equal(t, Point{X: 500, Y: 250}, got)
}

func TestBaseIsLetterboxed(t *testing.T) {
	src := imaging.New(100, 50, color.NRGBA{B: 255, A: 255})
	p := New(src, Options{Width: 100, Height: 100})
	base := p.Base()
	assert.Equal(t, uint8(0), base.NRGBAAt(50, 5).A)
	assert.Equal(t, uint8(255), base.NRGBAAt(50, 50).A)
}
