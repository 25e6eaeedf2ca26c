package imaging

import (
	"fmt"
	"image"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
//
// Each component ranges from 0 to 255, where:
//   - 0 represents no intensity (black for all components)
//   - 255 represents full intensity (white for all components)
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// Channels returns the components in R, G, B order.
func (c RGBColor) Channels() [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// HSVColor is a color in the 8-bit HSV convention used by the color-range
// tables: hue is halved to fit a byte.
//
//   - H: 0-180 (0=red, 60=green, 120=blue)
//   - S: 0-255 (0=gray, 255=vivid)
//   - V: 0-255 (0=black, 255=full brightness)
type HSVColor struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

// Channels returns the components in H, S, V order.
func (c HSVColor) Channels() [3]uint8 {
	return [3]uint8{c.H, c.S, c.V}
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex string   `json:"hex"` // Hex format "#RRGGBB" (no alpha)
	RGB RGBColor `json:"rgb"` // RGB components
	HSL HSLColor `json:"hsl"` // HSL representation
	HSV HSVColor `json:"hsv"` // 8-bit HSV, the space the range tables use
}

// PixelRGB reads one pixel as 8-bit RGB.
//
// Coordinates are absolute image coordinates (they include Bounds().Min).
// The second return value is false when (x, y) lies outside the image.
func PixelRGB(img image.Image, x, y int) (RGBColor, bool) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return RGBColor{}, false
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return RGBColor{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}, true
}

// ToHSV converts an 8-bit RGB color to the 8-bit HSV convention.
//
// Hue is computed in degrees by go-colorful and halved, so 359° maps to 180;
// saturation and value are scaled from [0,1] to [0,255]. All components are
// rounded to the nearest integer.
func ToHSV(c RGBColor) HSVColor {
	h, s, v := toColorful(c).Hsv()
	return HSVColor{
		H: uint8(math.Round(h / 2)),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

// ToHSL converts an 8-bit RGB color to integer HSL.
func ToHSL(c RGBColor) HSLColor {
	h, s, l := toColorful(c).Hsl()
	return HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)}
}

// Hex formats the color as "#RRGGBB".
func (c RGBColor) Hex() string {
	return strings.ToUpper(toColorful(c).Hex())
}

// ParseHex parses "#RRGGBB" (or "#RGB") into an RGB color.
func ParseHex(s string) (RGBColor, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return RGBColor{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGBColor{R: r, G: g, B: b}, nil
}

func toColorful(c RGBColor) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255.0, G: float64(c.G) / 255.0, B: float64(c.B) / 255.0}
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Parameters:
//   - img: The source image to sample from.
//   - x: X coordinate (0-based, 0 = leftmost pixel).
//   - y: Y coordinate (0-based, 0 = topmost pixel).
//
// Returns:
//   - *ColorResult: The color at (x, y) in hex, RGB, HSL and 8-bit HSV.
//   - error: Non-nil if coordinates are outside the image bounds.
//
// Exactly one pixel is read. No neighborhood averaging is applied, so a sample
// taken on an anti-aliased border returns the blended value.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	rgb, ok := PixelRGB(img, x, y)
	if !ok {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	return &ColorResult{
		Hex: rgb.Hex(),
		RGB: rgb,
		HSL: ToHSL(rgb),
		HSV: ToHSV(rgb),
	}, nil
}
