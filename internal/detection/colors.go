package detection

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/ironsheep/shape-vision/internal/imaging"
)

// Color strategy names accepted by NewColorClassifier.
const (
	StrategyHSV = "hsv"
	StrategyRGB = "rgb"
)

// ColorRange is an inclusive per-channel box in either RGB or 8-bit HSV.
type ColorRange struct {
	Name  ColorName `json:"name" yaml:"name"`
	Lower [3]uint8  `json:"lower" yaml:"lower"`
	Upper [3]uint8  `json:"upper" yaml:"upper"`
}

// Contains reports whether every channel of v lies within the range.
func (r ColorRange) Contains(v [3]uint8) bool {
	for i := 0; i < 3; i++ {
		if v[i] < r.Lower[i] || v[i] > r.Upper[i] {
			return false
		}
	}
	return true
}

// Validate rejects ranges whose lower bound exceeds the upper bound.
func (r ColorRange) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("color range has no name")
	}
	for i := 0; i < 3; i++ {
		if r.Lower[i] > r.Upper[i] {
			return fmt.Errorf("color range %q: lower[%d]=%d exceeds upper[%d]=%d",
				r.Name, i, r.Lower[i], i, r.Upper[i])
		}
	}
	return nil
}

// ColorTable is an ordered list of ranges. Ranges may overlap; the first
// containing range wins, so order is part of the table's meaning.
type ColorTable []ColorRange

// Match returns the name of the first range containing v, or UnknownColor.
func (t ColorTable) Match(v [3]uint8) ColorName {
	for _, r := range t {
		if r.Contains(v) {
			return r.Name
		}
	}
	return UnknownColor
}

// Validate checks every range in the table.
func (t ColorTable) Validate() error {
	for _, r := range t {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultHSVTable returns the 8-bit HSV ranges (H 0-180, S/V 0-255).
//
// Blue and Indigo overlap for H 100-120; Blue is listed first and wins for
// saturated pixels.
func DefaultHSVTable() ColorTable {
	return ColorTable{
		{Name: "Red", Lower: [3]uint8{0, 100, 100}, Upper: [3]uint8{10, 255, 255}},
		{Name: "Green", Lower: [3]uint8{35, 50, 50}, Upper: [3]uint8{85, 255, 255}},
		{Name: "Blue", Lower: [3]uint8{100, 100, 100}, Upper: [3]uint8{130, 255, 255}},
		{Name: "Violet", Lower: [3]uint8{130, 100, 100}, Upper: [3]uint8{160, 255, 255}},
		{Name: "Indigo", Lower: [3]uint8{100, 0, 0}, Upper: [3]uint8{120, 255, 255}},
		{Name: "Yellow", Lower: [3]uint8{20, 100, 100}, Upper: [3]uint8{35, 255, 255}},
		{Name: "Orange", Lower: [3]uint8{5, 100, 100}, Upper: [3]uint8{15, 255, 255}},
		{Name: "Black", Lower: [3]uint8{0, 0, 0}, Upper: [3]uint8{180, 255, 30}},
		{Name: "White", Lower: [3]uint8{0, 0, 200}, Upper: [3]uint8{180, 30, 255}},
		{Name: "Pink", Lower: [3]uint8{140, 100, 100}, Upper: [3]uint8{170, 255, 255}},
		{Name: "Brown", Lower: [3]uint8{0, 60, 60}, Upper: [3]uint8{20, 255, 255}},
		{Name: "Grey", Lower: [3]uint8{0, 0, 40}, Upper: [3]uint8{180, 30, 190}},
	}
}

// DefaultRGBTable returns the RGB rule ladder as inclusive ranges.
// A rule such as "r > 200, g < 50" becomes R 201-255, G 0-49.
func DefaultRGBTable() ColorTable {
	return ColorTable{
		{Name: "Red", Lower: [3]uint8{201, 0, 0}, Upper: [3]uint8{255, 49, 49}},
		{Name: "Violet", Lower: [3]uint8{201, 0, 201}, Upper: [3]uint8{255, 49, 255}},
		{Name: "Indigo", Lower: [3]uint8{151, 0, 51}, Upper: [3]uint8{255, 49, 255}},
		{Name: "Blue", Lower: [3]uint8{0, 0, 201}, Upper: [3]uint8{49, 49, 255}},
		{Name: "Green", Lower: [3]uint8{0, 201, 0}, Upper: [3]uint8{49, 255, 49}},
		{Name: "Yellow", Lower: [3]uint8{201, 201, 0}, Upper: [3]uint8{255, 255, 49}},
		{Name: "Orange", Lower: [3]uint8{201, 101, 0}, Upper: [3]uint8{255, 255, 49}},
		{Name: "Black", Lower: [3]uint8{0, 0, 0}, Upper: [3]uint8{49, 49, 49}},
		{Name: "White", Lower: [3]uint8{201, 201, 201}, Upper: [3]uint8{255, 255, 255}},
	}
}

// ColorClassifier names the color of a frame at one pixel.
//
// p is frame-local: (0,0) is the top-left pixel regardless of the image's
// Bounds().Min. Exactly one pixel is sampled; a point on an anti-aliased
// border or a noisy pixel yields that pixel's color. Points outside the
// frame resolve to UnknownColor.
type ColorClassifier interface {
	Classify(img image.Image, p image.Point) ColorName
}

// RGBRules classifies the raw RGB value of the sampled pixel.
type RGBRules struct {
	Table ColorTable
}

// Classify implements ColorClassifier.
func (c RGBRules) Classify(img image.Image, p image.Point) ColorName {
	rgb, ok := sample(img, p)
	if !ok {
		return UnknownColor
	}
	return c.Table.Match(rgb.Channels())
}

// HSVRanges converts the sampled pixel to 8-bit HSV and scans its table.
type HSVRanges struct {
	Table ColorTable
}

// Classify implements ColorClassifier.
func (c HSVRanges) Classify(img image.Image, p image.Point) ColorName {
	rgb, ok := sample(img, p)
	if !ok {
		return UnknownColor
	}
	return c.Table.Match(imaging.ToHSV(rgb).Channels())
}

func sample(img image.Image, p image.Point) (imaging.RGBColor, bool) {
	origin := img.Bounds().Min
	return imaging.PixelRGB(img, p.X+origin.X, p.Y+origin.Y)
}

// NewColorClassifier builds the classifier for strategy ("hsv" or "rgb").
// A nil table selects the strategy's default table.
func NewColorClassifier(strategy string, hsv, rgb ColorTable) (ColorClassifier, error) {
	switch strings.ToLower(strategy) {
	case StrategyHSV, "":
		if hsv == nil {
			hsv = DefaultHSVTable()
		}
		if err := hsv.Validate(); err != nil {
			return nil, fmt.Errorf("invalid hsv table: %w", err)
		}
		return HSVRanges{Table: hsv}, nil
	case StrategyRGB:
		if rgb == nil {
			rgb = DefaultRGBTable()
		}
		if err := rgb.Validate(); err != nil {
			return nil, fmt.Errorf("invalid rgb table: %w", err)
		}
		return RGBRules{Table: rgb}, nil
	default:
		return nil, fmt.Errorf("unknown color strategy %q (want %q or %q)", strategy, StrategyHSV, StrategyRGB)
	}
}

// Palette maps color names to the RGB used when drawing a shape.
// Lookups are case-insensitive.
type Palette map[ColorName]color.RGBA

// DefaultPalette returns display colors for every default table name.
func DefaultPalette() Palette {
	return Palette{
		"Red":    {R: 255, G: 0, B: 0, A: 255},
		"Green":  {R: 0, G: 255, B: 0, A: 255},
		"Blue":   {R: 0, G: 0, B: 255, A: 255},
		"Violet": {R: 255, G: 0, B: 255, A: 255},
		"Indigo": {R: 75, G: 0, B: 130, A: 255},
		"Yellow": {R: 255, G: 255, B: 0, A: 255},
		"Orange": {R: 255, G: 165, B: 0, A: 255},
		"Black":  {R: 0, G: 0, B: 0, A: 255},
		"White":  {R: 255, G: 255, B: 255, A: 255},
		"Pink":   {R: 255, G: 192, B: 203, A: 255},
		"Brown":  {R: 165, G: 42, B: 42, A: 255},
		"Grey":   {R: 128, G: 128, B: 128, A: 255},
	}
}

// Swatch returns the display color for name. Unknown and unmapped names
// are drawn black.
func (p Palette) Swatch(name ColorName) color.RGBA {
	if c, ok := p[name]; ok {
		return c
	}
	for k, c := range p {
		if strings.EqualFold(string(k), string(name)) {
			return c
		}
	}
	return color.RGBA{A: 255}
}
