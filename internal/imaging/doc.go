// Package imaging holds the pixel-level stages of shape-vision: frame loading,
// the edge extractor and single-pixel color sampling.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X growing
// rightward and Y growing downward. EdgeMap coordinates are frame-local: they
// start at (0,0) even when the source image's Bounds().Min is not the origin.
//
// # Edge Extraction
//
// ExtractEdges is a fixed Canny-style chain (grayscale, 5x5 Gaussian, Sobel,
// non-maximum suppression, hysteresis). The grayscale conversion and the
// Gaussian convolution come from github.com/anthonynsimon/bild; the gradient,
// suppression and hysteresis stages run on float grids in this package.
//
// # Color Representation
//
// SampleColor reports a pixel as:
//   - Hex: "#RRGGBB" (alpha excluded)
//   - RGB: 8-bit components (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//   - HSV: 8-bit convention, Hue (0-180), Saturation (0-255), Value (0-255)
//
// Conversions go through github.com/lucasb-eyer/go-colorful.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Every other function is pure and
// never writes to its input image.
package imaging
