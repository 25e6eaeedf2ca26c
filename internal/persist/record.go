package persist

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ironsheep/shape-vision/internal/detection"
)

// Point is an [x, y] pair.
type Point [2]int

// ShapeRecord is the persisted geometry of one shape. Contours are plain
// nested integer arrays.
type ShapeRecord struct {
	Contour     []Point `json:"contour"`
	NumVertices int     `json:"num_vertices"`
	Center      Point   `json:"center"`
	Area        float64 `json:"area"`
	Perimeter   float64 `json:"perimeter"`
	Circularity float64 `json:"circularity"`
}

// Record is one identified shape in persisted form.
type Record struct {
	Shape       ShapeRecord `json:"shape"`
	Label       string      `json:"label"`
	Color       string      `json:"color"`
	Coordinates Point       `json:"coordinates"`
	Frame       int         `json:"frame"`
	Session     string      `json:"session,omitempty"`
}

// NewRecord converts s, found in frame number frame of session.
func NewRecord(s detection.IdentifiedShape, frame int, session string) Record {
	contour := make([]Point, len(s.Contour))
	for i, p := range s.Contour {
		contour[i] = Point{p.X, p.Y}
	}
	return Record{
		Shape: ShapeRecord{
			Contour:     contour,
			NumVertices: s.VertexCount,
			Center:      Point{s.Centroid.X, s.Centroid.Y},
			Area:        s.Area,
			Perimeter:   s.Perimeter,
			Circularity: s.Circularity,
		},
		Label:       string(s.Label),
		Color:       string(s.Color),
		Coordinates: Point{s.Coordinates.DX, s.Coordinates.DY},
		Frame:       frame,
		Session:     session,
	}
}

// Records converts every shape of one frame, preserving order.
func Records(shapes []detection.IdentifiedShape, frame int, session string) []Record {
	out := make([]Record, len(shapes))
	for i, s := range shapes {
		out[i] = NewRecord(s, frame, session)
	}
	return out
}

// FrameResult is the detection result for a single frame, as returned by
// the tool and HTTP interfaces.
type FrameResult struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Count  int      `json:"count"`
	Shapes []Record `json:"shapes"`
}

// NewFrameResult wraps the shapes found in a width×height frame.
func NewFrameResult(width, height int, shapes []detection.IdentifiedShape) FrameResult {
	return FrameResult{
		Width:  width,
		Height: height,
		Count:  len(shapes),
		Shapes: Records(shapes, 0, ""),
	}
}

// Encode writes records as an indented JSON array. A nil slice is written
// as [].
func Encode(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}

// Decode reads a JSON array written by Encode.
func Decode(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}
