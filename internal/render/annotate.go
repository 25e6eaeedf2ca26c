package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	dimg "github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/shape-vision/internal/detection"
)

// Style controls how shapes are drawn onto a frame.
type Style struct {
	// Thickness of contour outlines in pixels.
	Thickness int
	// MarkerRadius of the filled centroid dot.
	MarkerRadius int
	MarkerColor  color.RGBA
	TextColor    color.RGBA
	// CoordinateOffset is how far below the caption the "(dx, dy)" line sits.
	CoordinateOffset int
	// HideCoordinates drops the "(dx, dy)" line.
	HideCoordinates bool
}

// DefaultStyle draws 2px outlines in each shape's swatch color, a blue
// centroid dot and black captions.
func DefaultStyle() Style {
	return Style{
		Thickness:        2,
		MarkerRadius:     3,
		MarkerColor:      color.RGBA{0, 0, 255, 255},
		TextColor:        color.RGBA{0, 0, 0, 255},
		CoordinateOffset: 30,
	}
}

// Annotate returns a copy of img with every shape drawn on it. The input is
// never modified. Shape geometry is frame-local, so it is drawn relative to
// the copy's origin.
func Annotate(img image.Image, shapes []detection.IdentifiedShape, style Style) *image.NRGBA {
	out := dimg.Clone(img)
	if style.Thickness <= 0 {
		style.Thickness = 1
	}

	for _, s := range shapes {
		drawPolygon(out, s.Contour, style.Thickness, s.Swatch)
	}
	// Markers and text go on top of every outline.
	for _, s := range shapes {
		c := s.Centroid
		fillDisc(out, c, style.MarkerRadius, style.MarkerColor)
		drawText(out, c.X, c.Y, s.Caption(), style.TextColor)
		if !style.HideCoordinates {
			drawText(out, c.X, c.Y+style.CoordinateOffset,
				fmt.Sprintf("(%d, %d)", s.Coordinates.DX, s.Coordinates.DY), style.TextColor)
		}
	}
	return out
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := dimg.Encode(w, img, dimg.PNG); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// PNGBytes returns img encoded as PNG.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SavePNG writes img to path; the format follows the file extension.
func SavePNG(img image.Image, path string) error {
	if err := dimg.Save(img, path); err != nil {
		return fmt.Errorf("failed to save annotated image: %w", err)
	}
	return nil
}

// drawPolygon strokes the closed polygon through pts.
func drawPolygon(img *image.NRGBA, pts []image.Point, thickness int, c color.RGBA) {
	switch len(pts) {
	case 0:
		return
	case 1:
		stamp(img, pts[0], thickness, c)
		return
	}
	for i := range pts {
		drawLine(img, pts[i], pts[(i+1)%len(pts)], thickness, c)
	}
}

// drawLine is Bresenham with a square pen.
func drawLine(img *image.NRGBA, a, b image.Point, thickness int, c color.RGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	p := a
	for {
		stamp(img, p, thickness, c)
		if p == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

func stamp(img *image.NRGBA, p image.Point, size int, c color.RGBA) {
	origin := img.Bounds().Min
	half := (size - 1) / 2
	for y := p.Y - half; y < p.Y-half+size; y++ {
		for x := p.X - half; x < p.X-half+size; x++ {
			img.Set(origin.X+x, origin.Y+y, c)
		}
	}
}

func fillDisc(img *image.NRGBA, center image.Point, radius int, c color.RGBA) {
	if radius <= 0 {
		return
	}
	origin := img.Bounds().Min
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= r2 {
				img.Set(origin.X+center.X+x, origin.Y+center.Y+y, c)
			}
		}
	}
}

// drawText writes text with its baseline at (x, y).
func drawText(img *image.NRGBA, x, y int, text string, c color.RGBA) {
	origin := img.Bounds().Min
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(origin.X + x), Y: fixed.I(origin.Y + y)},
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
