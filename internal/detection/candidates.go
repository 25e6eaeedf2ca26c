package detection

import (
	"image"
	"math"
)

// Candidate defaults.
const (
	DefaultMinShapeArea = 1000.0
	DefaultApproxFactor = 0.03
)

// CandidateOptions controls which contours become DetectedShapes.
type CandidateOptions struct {
	// MinArea is the smallest enclosed area (px²) kept. Contours below it
	// are noise.
	MinArea float64

	// ApproxFactor scales the perimeter into the Douglas-Peucker epsilon.
	ApproxFactor float64
}

// DefaultCandidateOptions returns MinArea 1000 and ApproxFactor 0.03.
func DefaultCandidateOptions() CandidateOptions {
	return CandidateOptions{MinArea: DefaultMinShapeArea, ApproxFactor: DefaultApproxFactor}
}

// BuildCandidate computes the geometric features of one contour.
//
// The second return value is false when the contour is discarded: its area
// is below opts.MinArea or its zeroth moment is zero (no centroid). Discards
// are silent and never affect other contours.
func BuildCandidate(c Contour, opts CandidateOptions) (DetectedShape, bool) {
	if len(c) < 3 {
		return DetectedShape{}, false
	}

	m := moments(c)
	area := math.Abs(m.m00)
	if area < opts.MinArea || m.a2 == 0 {
		return DetectedShape{}, false
	}

	perimeter := ArcLength(c)
	approx := ApproxPolyDP(c, opts.ApproxFactor*perimeter)

	circularity := 0.0
	if perimeter > 0 {
		circularity = 4 * math.Pi * area / (perimeter * perimeter)
	}

	return DetectedShape{
		Contour:     c,
		Approx:      approx,
		VertexCount: len(approx),
		Centroid:    m.centroid(),
		Area:        area,
		Perimeter:   perimeter,
		Circularity: circularity,
		Bounds:      BoundingRect(c),
	}, true
}

// BuildCandidates applies BuildCandidate to every contour and keeps the
// accepted ones in input order.
func BuildCandidates(contours []Contour, opts CandidateOptions) []DetectedShape {
	shapes := make([]DetectedShape, 0, len(contours))
	for _, c := range contours {
		if s, ok := BuildCandidate(c, opts); ok {
			shapes = append(shapes, s)
		}
	}
	return shapes
}

// ContourArea returns the absolute polygon area of a closed contour.
func ContourArea(c Contour) float64 {
	return math.Abs(moments(c).m00)
}

// ArcLength returns the closed perimeter of c.
func ArcLength(c Contour) float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += dist(c[i], c[(i+1)%n])
	}
	return total
}

// BoundingRect returns the smallest rectangle containing every point of c.
// Points are pixel centers, so a contour spanning x=10..19 yields Dx()==10.
func BoundingRect(c Contour) image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0]}
	for _, p := range c[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	r.Max = r.Max.Add(image.Point{X: 1, Y: 1})
	return r
}

// polygonMoments holds the exact shoelace sums of a closed polygon.
//
// a2 is twice the signed area; s10 and s01 are Σ(xi+xi+1)·cross and
// Σ(yi+yi+1)·cross. Integer accumulation keeps symmetric shapes exactly
// centred.
type polygonMoments struct {
	a2, s10, s01 int64
	m00          float64
}

func moments(c Contour) polygonMoments {
	var m polygonMoments
	n := len(c)
	for i := 0; i < n; i++ {
		p, q := c[i], c[(i+1)%n]
		cross := int64(p.X)*int64(q.Y) - int64(q.X)*int64(p.Y)
		m.a2 += cross
		m.s10 += int64(p.X+q.X) * cross
		m.s01 += int64(p.Y+q.Y) * cross
	}
	m.m00 = float64(m.a2) / 2
	return m
}

// centroid is m10/m00, m01/m00 truncated toward zero. Callers check a2 != 0.
func (m polygonMoments) centroid() image.Point {
	d := float64(3 * m.a2)
	return image.Point{
		X: int(float64(m.s10) / d),
		Y: int(float64(m.s01) / d),
	}
}

// ApproxPolyDP simplifies a closed contour with the Douglas-Peucker
// algorithm. Every point of c lies within epsilon of an edge of the result.
//
// The closed curve is split at two far-apart anchor points found by three
// rounds of farthest-point search from c[0]; each half is simplified as an
// open chain and the halves are joined. A final pass drops vertices that
// sit within epsilon/√2 of the chord between their neighbors, as long as the
// contour points that chord replaces stay within epsilon of it.
func ApproxPolyDP(c Contour, epsilon float64) Contour {
	n := len(c)
	if n < 3 {
		return append(Contour(nil), c...)
	}

	a := farthestFrom(c, 0)
	a = farthestFrom(c, a)
	b := farthestFrom(c, a)
	if dist(c[a], c[b]) <= epsilon {
		return Contour{c[a]}
	}

	// Indices into c, in contour order.
	idx := make([]int, 0, 16)
	for _, i := range simplifyChain(cyclicSlice(c, a, b), epsilon) {
		idx = append(idx, (a+i)%n)
	}
	idx = idx[:len(idx)-1]
	for _, i := range simplifyChain(cyclicSlice(c, b, a), epsilon) {
		idx = append(idx, (b+i)%n)
	}
	idx = idx[:len(idx)-1]

	idx = dropFlatVertices(c, idx, epsilon)
	out := make(Contour, len(idx))
	for i, j := range idx {
		out[i] = c[j]
	}
	return out
}

func farthestFrom(c Contour, from int) int {
	best, bestDist := from, -1.0
	for i, p := range c {
		if d := dist2(c[from], p); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// cyclicSlice returns c[from..to] inclusive, wrapping past the end.
func cyclicSlice(c Contour, from, to int) Contour {
	n := len(c)
	out := make(Contour, 0, (to-from+n)%n+1)
	for i := from; ; i = (i + 1) % n {
		out = append(out, c[i])
		if i == to {
			break
		}
	}
	return out
}

// simplifyChain is open-chain Douglas-Peucker. It returns the indices of the
// kept points; both end points are kept.
func simplifyChain(c Contour, epsilon float64) []int {
	keep := make([]bool, len(c))
	keep[0] = true
	keep[len(c)-1] = true

	type span struct{ lo, hi int }
	stack := []span{{0, len(c) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}

		idx, maxDist := -1, epsilon
		for i := s.lo + 1; i < s.hi; i++ {
			if d := segmentDistance(c[i], c[s.lo], c[s.hi]); d > maxDist {
				idx, maxDist = i, d
			}
		}
		if idx < 0 {
			continue
		}
		keep[idx] = true
		stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
	}

	out := make([]int, 0, 8)
	for i, k := range keep {
		if k {
			out = append(out, i)
		}
	}
	return out
}

// dropFlatVertices removes nearly collinear vertices from the polygon c[idx].
func dropFlatVertices(c Contour, idx []int, epsilon float64) []int {
	limit := epsilon / math.Sqrt2
	for len(idx) > 3 {
		removed := false
		for i := 0; i < len(idx) && len(idx) > 3; i++ {
			m := len(idx)
			prev, next := idx[(i-1+m)%m], idx[(i+1)%m]
			if lineDistance(c[idx[i]], c[prev], c[next]) <= limit && spanWithin(c, prev, next, epsilon) {
				idx = append(idx[:i], idx[i+1:]...)
				removed = true
				i--
			}
		}
		if !removed {
			break
		}
	}
	return idx
}

// spanWithin reports whether every point of c from index from to index to,
// walking forward, lies within epsilon of the segment between them.
func spanWithin(c Contour, from, to int, epsilon float64) bool {
	n := len(c)
	for i := from; i != to; i = (i + 1) % n {
		if segmentDistance(c[i], c[from], c[to]) > epsilon {
			return false
		}
	}
	return true
}

// segmentDistance is the distance from p to the closed segment ab.
func segmentDistance(p, a, b image.Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, a)
	}
	t := (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(float64(p.X)-(float64(a.X)+t*dx), float64(p.Y)-(float64(a.Y)+t*dy))
}

// lineDistance is the distance from p to the infinite line through a and b,
// or to a itself when a == b.
func lineDistance(p, a, b image.Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return dist(p, a)
	}
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / length
}

func dist(a, b image.Point) float64 {
	return math.Sqrt(dist2(a, b))
}

func dist2(a, b image.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return dx*dx + dy*dy
}
