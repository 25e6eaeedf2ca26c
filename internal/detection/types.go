package detection

import (
	"image"
	"image/color"
)

// Contour is an ordered, closed sequence of frame-local boundary points.
// The last point connects back to the first.
type Contour []image.Point

// ShapeLabel names the geometric class of a detected shape.
type ShapeLabel string

const (
	Triangle  ShapeLabel = "Triangle"
	Square    ShapeLabel = "Square"
	Rectangle ShapeLabel = "Rectangle"
	Pentagon  ShapeLabel = "Pentagon"
	Hexagon   ShapeLabel = "Hexagon"
	Circle    ShapeLabel = "Circle"
	Unknown   ShapeLabel = "Unknown"
)

// ColorName is a display color name such as "Red". UnknownColor is returned
// when no table entry matches.
type ColorName string

// UnknownColor is the sentinel for an unmatched color.
const UnknownColor ColorName = "Unknown"

// RelativeCoordinate is a centroid offset from the frame center with the
// y axis pointing up: DY is positive above the center.
type RelativeCoordinate struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// DetectedShape holds the geometric features of one accepted contour.
//
// Every DetectedShape produced by BuildCandidate satisfies
// Area >= MinArea and has a defined centroid.
type DetectedShape struct {
	// Contour is the boundary the features were computed from.
	Contour Contour

	// Approx is the Douglas-Peucker simplification of Contour.
	Approx Contour

	// VertexCount is len(Approx).
	VertexCount int

	// Centroid is the area-moment center, truncated to integers.
	Centroid image.Point

	// Area is the enclosed polygon area in px².
	Area float64

	// Perimeter is the closed arc length of Contour in px.
	Perimeter float64

	// Circularity is 4π·Area/Perimeter², 1.0 for a perfect disc.
	Circularity float64

	// Bounds is the inclusive axis-aligned bounding box of Contour as a
	// half-open image.Rectangle, so Dx() is maxX-minX+1.
	Bounds image.Rectangle
}

// AspectRatio returns the bounding box width over height, or 0 for an
// empty box.
func (s DetectedShape) AspectRatio() float64 {
	if s.Bounds.Dy() == 0 {
		return 0
	}
	return float64(s.Bounds.Dx()) / float64(s.Bounds.Dy())
}

// IdentifiedShape is a DetectedShape with its label, color and frame-centred
// coordinate. Values are never modified after the pipeline returns them.
type IdentifiedShape struct {
	DetectedShape

	Label       ShapeLabel
	Color       ColorName
	Swatch      color.RGBA
	Coordinates RelativeCoordinate
}

// Caption is the human readable "Color Label" text, e.g. "Red Square".
func (s IdentifiedShape) Caption() string {
	return string(s.Color) + " " + string(s.Label)
}
