package detection

import (
	"image"

	"github.com/ironsheep/shape-vision/internal/imaging"
)

// chainCode lists the 8 neighbor offsets clockwise on a y-down raster,
// starting east.
var chainCode = [8]image.Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: 1},   // SE
	{X: 0, Y: 1},   // S
	{X: -1, Y: 1},  // SW
	{X: -1, Y: 0},  // W
	{X: -1, Y: -1}, // NW
	{X: 0, Y: -1},  // N
	{X: 1, Y: -1},  // NE
}

const dirWest = 4

// FindContours returns the outer boundary of every edge component that is
// reachable from the frame's outside background.
//
// # Algorithm
//
//  1. Label 8-connected components of edge pixels with a BFS in raster order.
//  2. Flood the non-edge pixels 4-connected to the frame border; this is the
//     outside background.
//  3. A component is external when it touches the frame border or has a
//     4-neighbor in the outside background. Components inside another
//     component's hole are dropped, and holes produce no contour.
//  4. Each external component is traced with Suzuki-Abe border following from
//     its raster-first pixel, then compressed by collapsing straight runs to
//     their end points.
//
// Contours are returned in discovery order: by the raster position of each
// component's first pixel. The edge map is not modified.
func FindContours(edges *imaging.EdgeMap) []Contour {
	if edges == nil || edges.Width == 0 || edges.Height == 0 {
		return nil
	}

	labels, firsts := labelComponents(edges)
	outside := floodOutside(edges)
	external := externalComponents(edges, labels, outside, len(firsts))

	contours := make([]Contour, 0, len(firsts))
	for id, start := range firsts {
		if !external[id] {
			continue
		}
		traced := traceBorder(edges.Width, edges.Height, labels, int32(id+1), start)
		contours = append(contours, compressChain(traced))
	}
	return contours
}

// labelComponents assigns every edge pixel a 1-based component id.
// firsts[id-1] is the raster-first pixel of component id.
func labelComponents(edges *imaging.EdgeMap) ([]int32, []image.Point) {
	w, h := edges.Width, edges.Height
	labels := make([]int32, w*h)
	var firsts []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i0 := y*w + x
			if !edges.Pix[i0] || labels[i0] != 0 {
				continue
			}
			firsts = append(firsts, image.Point{X: x, Y: y})
			id := int32(len(firsts))

			labels[i0] = id
			queue := []int{i0}
			for qi := 0; qi < len(queue); qi++ {
				u := queue[qi]
				ux, uy := u%w, u/w
				for _, d := range chainCode {
					vx, vy := ux+d.X, uy+d.Y
					if vx < 0 || vy < 0 || vx >= w || vy >= h {
						continue
					}
					vi := vy*w + vx
					if edges.Pix[vi] && labels[vi] == 0 {
						labels[vi] = id
						queue = append(queue, vi)
					}
				}
			}
		}
	}
	return labels, firsts
}

// floodOutside marks background pixels 4-connected to the frame border.
func floodOutside(edges *imaging.EdgeMap) []bool {
	w, h := edges.Width, edges.Height
	outside := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))

	seed := func(x, y int) {
		i := y*w + x
		if !edges.Pix[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 0; y < h; y++ {
		seed(0, y)
		seed(w-1, y)
	}

	for qi := 0; qi < len(queue); qi++ {
		u := queue[qi]
		ux, uy := u%w, u/w
		for k := 0; k < 8; k += 2 {
			vx, vy := ux+chainCode[k].X, uy+chainCode[k].Y
			if vx < 0 || vy < 0 || vx >= w || vy >= h {
				continue
			}
			seed(vx, vy)
		}
	}
	return outside
}

func externalComponents(edges *imaging.EdgeMap, labels []int32, outside []bool, n int) []bool {
	w, h := edges.Width, edges.Height
	external := make([]bool, n)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := labels[y*w+x]
			if id == 0 || external[id-1] {
				continue
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				external[id-1] = true
				continue
			}
			for k := 0; k < 8; k += 2 {
				if outside[(y+chainCode[k].Y)*w+x+chainCode[k].X] {
					external[id-1] = true
					break
				}
			}
		}
	}
	return external
}

// traceBorder follows the outer border of component id starting at its
// raster-first pixel, whose west neighbor is always background.
func traceBorder(w, h int, labels []int32, id int32, start image.Point) Contour {
	inside := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == id
	}

	// Clockwise from west for the first neighbor.
	first := -1
	for k := 0; k < 8; k++ {
		d := (dirWest + k) % 8
		if inside(start.Add(chainCode[d])) {
			first = d
			break
		}
	}
	if first < 0 {
		return Contour{start}
	}

	p1 := start.Add(chainCode[first])
	prev, cur := p1, start
	contour := Contour{start}

	// Each pixel is entered at most once from each of its 8 neighbors.
	limit := 8*w*h + 8
	for step := 0; step < limit; step++ {
		back := directionTo(cur, prev)

		next := cur
		for k := 1; k <= 8; k++ {
			d := (back - k + 16) % 8
			if q := cur.Add(chainCode[d]); inside(q) {
				next = q
				break
			}
		}

		if next == start && cur == p1 {
			break
		}
		prev, cur = cur, next
		contour = append(contour, cur)
	}
	return contour
}

// directionTo returns the chain code index of the unit step from a to b.
func directionTo(a, b image.Point) int {
	d := b.Sub(a)
	for k, c := range chainCode {
		if c == d {
			return k
		}
	}
	return 0
}

// compressChain keeps only the points where the step direction changes.
func compressChain(c Contour) Contour {
	n := len(c)
	if n < 3 {
		return c
	}

	out := make(Contour, 0, n)
	for i := 0; i < n; i++ {
		prev := c[(i-1+n)%n]
		next := c[(i+1)%n]
		if c[i].Sub(prev) != next.Sub(c[i]) {
			out = append(out, c[i])
		}
	}
	if len(out) == 0 {
		return c[:1]
	}
	return out
}
