package render

import (
	"fmt"
	"image/color"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/imaging"
)

// WriteSVG writes a width×height SVG overlay of shapes: one group per shape
// with its outline, centroid marker and captions. The frame itself is not
// embedded.
func WriteSVG(w io.Writer, width, height int, shapes []detection.IdentifiedShape, style Style) {
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title(fmt.Sprintf("%d shapes", len(shapes)))

	for i, s := range shapes {
		canvas.Gid(fmt.Sprintf("shape-%d", i))

		xs := make([]int, len(s.Contour))
		ys := make([]int, len(s.Contour))
		for j, p := range s.Contour {
			xs[j], ys[j] = p.X, p.Y
		}
		canvas.Polygon(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:%d", hex(s.Swatch), style.Thickness))

		c := s.Centroid
		canvas.Circle(c.X, c.Y, style.MarkerRadius, "fill:"+hex(style.MarkerColor))

		text := "font-family:monospace;font-size:13px;fill:" + hex(style.TextColor)
		canvas.Text(c.X, c.Y, s.Caption(), text)
		if !style.HideCoordinates {
			canvas.Text(c.X, c.Y+style.CoordinateOffset, fmt.Sprintf("(%d, %d)", s.Coordinates.DX, s.Coordinates.DY), text)
		}
		canvas.Gend()
	}
	canvas.End()
}

func hex(c color.RGBA) string {
	return imaging.RGBColor{R: c.R, G: c.G, B: c.B}.Hex()
}
