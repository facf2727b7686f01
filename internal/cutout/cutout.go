package cutout

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"carpet-studio/internal/apperr"
	"carpet-studio/internal/raster"
)

// Source selects where a cutout's alpha channel came from.
type Source string

const (
	SourceMask    Source = "mask"
	SourceRemoval Source = "removal"
)

// Cutout is an RGBA product image whose alpha isolates the product.
type Cutout struct {
	Image  *image.NRGBA
	Source Source
}

func (c *Cutout) Bounds() image.Rectangle {
	return c.Image.Bounds()
}

// PNG encodes the cutout, keeping the alpha channel.
func (c *Cutout) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, c.Image, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode cutout: %w", err)
	}
	return buf.Bytes(), nil
}

// FromMask combines source and a painted mask. The source is contain-fitted to
// the mask size exactly as the painter fitted it, so every output pixel keeps
// the fitted RGB and takes its alpha straight from the mask value.
func FromMask(source image.Image, mask *image.Gray) (*Cutout, error) {
	if source == nil {
		return nil, apperr.ErrInputMissing
	}
	if mask == nil {
		return nil, apperr.ErrMaskEmpty
	}

	size := mask.Rect.Size()
	fitted := toNRGBA(source)
	if fitted.Rect.Size() != size {
		fitted = Fit(source, size.X, size.Y)
	}

	out := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	for y := 0; y < size.Y; y++ {
		for x := 0; x < size.X; x++ {
			si := fitted.PixOffset(fitted.Rect.Min.X+x, fitted.Rect.Min.Y+y)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+3], fitted.Pix[si:si+3])
			out.Pix[di+3] = mask.Pix[mask.PixOffset(mask.Rect.Min.X+x, mask.Rect.Min.Y+y)]
		}
	}
	return &Cutout{Image: out, Source: SourceMask}, nil
}

// FromExternalRemoval decodes the alpha-matted image returned by the
// background-removal service.
func FromExternalRemoval(raw []byte) (*Cutout, error) {
	img, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode removal result: %w", err)
	}
	return &Cutout{Image: toNRGBA(img), Source: SourceRemoval}, nil
}

// Fit contain-fits source into a w×h transparent canvas, the same placement
// the mask painter uses for its base image.
func Fit(source image.Image, w, h int) *image.NRGBA {
	out, _ := raster.Contain(source, w, h)
	return out
}

// Decode reads any supported upload format and applies EXIF orientation.
func Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, apperr.ErrInputMissing
	}
	return imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
