package detection

// Shape classification thresholds.
const (
	DefaultSquareMin = 0.95
	DefaultSquareMax = 1.05
	DefaultCircleMin = 0.85
)

// ShapeClassifier maps geometric features to a ShapeLabel.
//
// A quadrilateral whose bounding-box aspect ratio lies in [SquareMin,
// SquareMax] (inclusive) is a Square. A shape with any other vertex count
// than 3 through 6 is a Circle when its circularity reaches CircleMin.
type ShapeClassifier struct {
	SquareMin float64
	SquareMax float64
	CircleMin float64
}

// DefaultShapeClassifier returns the 0.95/1.05/0.85 thresholds.
func DefaultShapeClassifier() ShapeClassifier {
	return ShapeClassifier{
		SquareMin: DefaultSquareMin,
		SquareMax: DefaultSquareMax,
		CircleMin: DefaultCircleMin,
	}
}

// Classify labels s. Rules are applied in this order and the first match wins:
//
//	3 vertices                         Triangle
//	4 vertices, aspect in band         Square
//	4 vertices, aspect outside band    Rectangle
//	5 vertices                         Pentagon
//	6 vertices                         Hexagon
//	circularity >= CircleMin           Circle
//	otherwise                          Unknown
//
// Vertex-count rules take precedence, so a round-ish hexagon is still a
// Hexagon. Classify never fails.
func (c ShapeClassifier) Classify(s DetectedShape) ShapeLabel {
	switch s.VertexCount {
	case 3:
		return Triangle
	case 4:
		if s.Bounds.Dy() == 0 {
			return Rectangle
		}
		ar := s.AspectRatio()
		if ar >= c.SquareMin && ar <= c.SquareMax {
			return Square
		}
		return Rectangle
	case 5:
		return Pentagon
	case 6:
		return Hexagon
	}

	if s.Circularity >= c.CircleMin {
		return Circle
	}
	return Unknown
}
