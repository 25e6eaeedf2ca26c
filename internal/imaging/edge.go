package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
)

// Default hysteresis thresholds, applied to the Sobel gradient magnitude.
const (
	DefaultEdgeLow  = 50
	DefaultEdgeHigh = 150
)

// EdgeOptions configures ExtractEdges.
type EdgeOptions struct {
	// Low is the weak-edge threshold on the raw Sobel magnitude of the
	// smoothed luminance.
	Low int

	// High is the strong-edge threshold on the same magnitude.
	High int
}

// DefaultEdgeOptions returns the 50/150 thresholds.
func DefaultEdgeOptions() EdgeOptions {
	return EdgeOptions{Low: DefaultEdgeLow, High: DefaultEdgeHigh}
}

// EdgeMap is a binary edge image with the same dimensions as its source frame.
//
// Coordinates are frame-local: (0,0) is the top-left pixel of the source image
// regardless of the source's Bounds().Min.
type EdgeMap struct {
	Width  int
	Height int
	Pix    []bool // row-major, len == Width*Height
}

// NewEdgeMap allocates an empty edge map.
func NewEdgeMap(width, height int) *EdgeMap {
	return &EdgeMap{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// At reports whether (x, y) is an edge pixel. Out-of-range coordinates are never edges.
func (m *EdgeMap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y) as an edge pixel or clears it.
func (m *EdgeMap) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of edge pixels.
func (m *EdgeMap) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Image renders the map as a grayscale image: edges 255, background 0.
func (m *EdgeMap) Image() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v {
			out.Pix[i/m.Width*out.Stride+i%m.Width] = 255
		}
	}
	return out
}

// ExtractEdges converts a color frame to a binary edge map.
//
// The steps are fixed and do not depend on the frame contents:
//
//  1. Luminance conversion (bild effect.Grayscale)
//  2. 5x5 Gaussian smoothing (sigma ≈ 1.4, replicated borders)
//  3. Sobel gradient magnitude and direction
//  4. Non-maximum suppression along the quantized gradient direction
//  5. Hysteresis: pixels at or above High are edges; pixels at or above Low
//     are edges when 8-connected, directly or through other weak pixels, to
//     a strong pixel
//
// The result always has the same width and height as img.
func ExtractEdges(img image.Image, opts EdgeOptions) *EdgeMap {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	edges := NewEdgeMap(width, height)
	if width == 0 || height == 0 {
		return edges
	}

	blurred := smooth(effect.Grayscale(img))
	magnitude, direction := sobel(blurred, width, height)
	suppressed := suppressNonMaxima(magnitude, direction, width, height)
	hysteresis(edges, suppressed, float64(opts.Low), float64(opts.High))
	return edges
}

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of pixels marked as edges.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs ExtractEdges and encodes the map as a PNG.
//
// This is the debugging view of the first pipeline stage: what the contour
// finder will see for the given thresholds.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh int) (*EdgeDetectResult, error) {
	edges := ExtractEdges(img, EdgeOptions{Low: thresholdLow, High: thresholdHigh})

	var buf bytes.Buffer
	if err := png.Encode(&buf, edges.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	return &EdgeDetectResult{
		Width:       edges.Width,
		Height:      edges.Height,
		EdgePixels:  edges.Count(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// gaussianKernel is the standard 5x5 Gaussian kernel with sigma ≈ 1.4:
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// Total kernel sum = 273; Normalized() divides it out.
func gaussianKernel() *convolution.Kernel {
	weights := []float64{
		1, 4, 7, 4, 1,
		4, 16, 26, 16, 4,
		7, 26, 41, 26, 7,
		4, 16, 26, 16, 4,
		1, 4, 7, 4, 1,
	}
	k := convolution.NewKernel(5, 5)
	copy(k.Matrix, weights)
	return k
}

// smooth blurs the output of effect.Grayscale and returns the luminance as a
// dense row-major float grid in frame-local coordinates. gray has equal R, G
// and B, so only the R sample of each pixel is read.
func smooth(gray image.Image) [][]float64 {
	blurred := convolution.Convolve(gray, gaussianKernel().Normalized(), &convolution.Options{Wrap: false})
	b := blurred.Bounds()

	out := make([][]float64, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		out[y] = make([]float64, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			out[y][x] = float64(blurred.Pix[blurred.PixOffset(x+b.Min.X, y+b.Min.Y)])
		}
	}
	return out
}

// sobel computes gradient magnitude and direction with replicated borders.
func sobel(src [][]float64, width, height int) ([][]float64, [][]float64) {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := src[clamp(y+ky, 0, height-1)][clamp(x+kx, 0, width-1)]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}
	return magnitude, direction
}

// suppressNonMaxima keeps only pixels that are local maxima along their
// gradient direction. Frame border pixels are always suppressed.
func suppressNonMaxima(magnitude, direction [][]float64, width, height int) [][]float64 {
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		if y == 0 || y == height-1 {
			continue
		}
		for x := 1; x < width-1; x++ {
			mag := magnitude[y][x]
			if mag == 0 {
				continue
			}
			angle := direction[y][x]

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			default:
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}
	return suppressed
}

// hysteresis marks strong pixels and grows them through connected weak pixels.
func hysteresis(edges *EdgeMap, suppressed [][]float64, low, high float64) {
	width, height := edges.Width, edges.Height
	stack := make([]image.Point, 0, 64)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] >= high && !edges.At(x, y) {
				edges.Set(x, y, true)
				stack = append(stack, image.Point{X: x, Y: y})
			}
		}
	}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height || edges.At(nx, ny) {
					continue
				}
				if s := suppressed[ny][nx]; s > 0 && s >= low {
					edges.Set(nx, ny, true)
					stack = append(stack, image.Point{X: nx, Y: ny})
				}
			}
		}
	}
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
