package config

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"reflect"
	"runtime"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/imaging"
)

// EnvPrefix is prepended to every environment override, e.g.
// SHAPE_VISION_DETECTION_MIN_SHAPE_AREA=1500.
const EnvPrefix = "SHAPE_VISION"

// Capture source names.
const (
	SourceFile   = "file"
	SourceVideo  = "video"
	SourceScreen = "screen"
	SourceCamera = "camera"
)

// Config is the whole configuration surface. Everything here is read once at
// startup and never mutated afterwards.
type Config struct {
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level"`
	Detection DetectionConfig `mapstructure:"detection" yaml:"detection"`
	Color     ColorConfig     `mapstructure:"color" yaml:"color"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
}

// DetectionConfig holds the per-frame pipeline thresholds.
type DetectionConfig struct {
	MinShapeArea float64 `mapstructure:"min_shape_area" yaml:"min_shape_area"`
	CannyLow     int     `mapstructure:"canny_low" yaml:"canny_low"`
	CannyHigh    int     `mapstructure:"canny_high" yaml:"canny_high"`
	ApproxFactor float64 `mapstructure:"approx_factor" yaml:"approx_factor"`
	SquareMin    float64 `mapstructure:"square_min" yaml:"square_min"`
	SquareMax    float64 `mapstructure:"square_max" yaml:"square_max"`
	CircleMin    float64 `mapstructure:"circle_min" yaml:"circle_min"`
	Workers      int     `mapstructure:"workers" yaml:"workers"`
}

// ColorConfig selects the color strategy and its tables.
//
// Tables replace the built-in ones wholesale when set; palette entries are
// merged over the built-in palette.
type ColorConfig struct {
	Strategy  string              `mapstructure:"strategy" yaml:"strategy"`
	TableFile string              `mapstructure:"table_file" yaml:"table_file,omitempty"`
	HSVRanges []RangeConfig       `mapstructure:"hsv_ranges" yaml:"hsv_ranges"`
	RGBRules  []RangeConfig       `mapstructure:"rgb_rules" yaml:"rgb_rules"`
	Palette   map[string]HexColor `mapstructure:"palette" yaml:"palette"`
}

// RangeConfig is one color range as written in YAML:
//
//	- name: Red
//	  lower: [0, 100, 100]
//	  upper: [10, 255, 255]
type RangeConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Lower []int  `mapstructure:"lower" yaml:"lower,flow"`
	Upper []int  `mapstructure:"upper" yaml:"upper,flow"`
}

// CaptureConfig selects and configures the frame source.
type CaptureConfig struct {
	Source                 string   `mapstructure:"source" yaml:"source"`
	Paths                  []string `mapstructure:"paths" yaml:"paths,omitempty"`
	VideoPath              string   `mapstructure:"video_path" yaml:"video_path,omitempty"`
	VideoFPS               int      `mapstructure:"video_fps" yaml:"video_fps"`
	CameraIndex            int      `mapstructure:"camera_index" yaml:"camera_index"`
	ScreenRect             []int    `mapstructure:"screen_rect" yaml:"screen_rect,flow,omitempty"`
	MaxFrames              int      `mapstructure:"max_frames" yaml:"max_frames"`
	SkipFailedReads        bool     `mapstructure:"skip_failed_reads" yaml:"skip_failed_reads"`
	MaxConsecutiveFailures int      `mapstructure:"max_consecutive_failures" yaml:"max_consecutive_failures"`
}

// OutputConfig controls persistence and rendering.
type OutputConfig struct {
	JSONPath     string `mapstructure:"json_path" yaml:"json_path"`
	S3Bucket     string `mapstructure:"s3_bucket" yaml:"s3_bucket,omitempty"`
	S3Key        string `mapstructure:"s3_key" yaml:"s3_key,omitempty"`
	S3Region     string `mapstructure:"s3_region" yaml:"s3_region,omitempty"`
	AnnotatePath string `mapstructure:"annotate_path" yaml:"annotate_path,omitempty"`
	SVGPath      string `mapstructure:"svg_path" yaml:"svg_path,omitempty"`
	Display      bool   `mapstructure:"display" yaml:"display"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// HexColor is a palette color written as "#RRGGBB".
type HexColor color.RGBA

// MarshalYAML writes the color as "#RRGGBB".
func (h HexColor) MarshalYAML() (interface{}, error) {
	return imaging.RGBColor{R: h.R, G: h.G, B: h.B}.Hex(), nil
}

// UnmarshalYAML reads "#RRGGBB".
func (h *HexColor) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	c, err := parseHexColor(s)
	if err != nil {
		return err
	}
	*h = c
	return nil
}

func parseHexColor(s string) (HexColor, error) {
	rgb, err := imaging.ParseHex(strings.TrimSpace(s))
	if err != nil {
		return HexColor{}, err
	}
	return HexColor{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}, nil
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Detection: DetectionConfig{
			MinShapeArea: detection.DefaultMinShapeArea,
			CannyLow:     imaging.DefaultEdgeLow,
			CannyHigh:    imaging.DefaultEdgeHigh,
			ApproxFactor: detection.DefaultApproxFactor,
			SquareMin:    detection.DefaultSquareMin,
			SquareMax:    detection.DefaultSquareMax,
			CircleMin:    detection.DefaultCircleMin,
			Workers:      runtime.NumCPU(),
		},
		Color: ColorConfig{
			Strategy:  detection.StrategyHSV,
			HSVRanges: RangesFromTable(detection.DefaultHSVTable()),
			RGBRules:  RangesFromTable(detection.DefaultRGBTable()),
			Palette:   paletteToHex(detection.DefaultPalette()),
		},
		Capture: CaptureConfig{
			Source:                 SourceFile,
			VideoFPS:               5,
			MaxConsecutiveFailures: 10,
		},
		Output: OutputConfig{
			JSONPath: "detected_shapes.json",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// setDefaults registers every scalar default with viper so that env
// overrides work for keys absent from the file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("detection.min_shape_area", d.Detection.MinShapeArea)
	v.SetDefault("detection.canny_low", d.Detection.CannyLow)
	v.SetDefault("detection.canny_high", d.Detection.CannyHigh)
	v.SetDefault("detection.approx_factor", d.Detection.ApproxFactor)
	v.SetDefault("detection.square_min", d.Detection.SquareMin)
	v.SetDefault("detection.square_max", d.Detection.SquareMax)
	v.SetDefault("detection.circle_min", d.Detection.CircleMin)
	v.SetDefault("detection.workers", d.Detection.Workers)

	v.SetDefault("color.strategy", d.Color.Strategy)
	v.SetDefault("color.table_file", "")

	v.SetDefault("capture.source", d.Capture.Source)
	v.SetDefault("capture.video_path", "")
	v.SetDefault("capture.video_fps", d.Capture.VideoFPS)
	v.SetDefault("capture.camera_index", d.Capture.CameraIndex)
	v.SetDefault("capture.max_frames", d.Capture.MaxFrames)
	v.SetDefault("capture.skip_failed_reads", d.Capture.SkipFailedReads)
	v.SetDefault("capture.max_consecutive_failures", d.Capture.MaxConsecutiveFailures)

	v.SetDefault("output.json_path", d.Output.JSONPath)
	v.SetDefault("output.s3_bucket", "")
	v.SetDefault("output.s3_key", "")
	v.SetDefault("output.s3_region", "")
	v.SetDefault("output.annotate_path", "")
	v.SetDefault("output.svg_path", "")
	v.SetDefault("output.display", d.Output.Display)

	v.SetDefault("http.addr", d.HTTP.Addr)
}

// Load reads configuration from path (YAML, optional: "" skips the file),
// then applies SHAPE_VISION_* environment overrides, then validates.
//
// Nested keys map to env names by upper-casing and replacing dots with
// underscores: detection.canny_low becomes SHAPE_VISION_DETECTION_CANNY_LOW.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	setDefaults(v, def)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// Tables start nil so a configured table replaces the default instead
	// of being decoded over it element by element.
	cfg := Config{}
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		hexColorHook,
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Color.TableFile != "" {
		tables, err := LoadColorTable(cfg.Color.TableFile)
		if err != nil {
			return Config{}, err
		}
		if tables.HSVRanges != nil {
			cfg.Color.HSVRanges = tables.HSVRanges
		}
		if tables.RGBRules != nil {
			cfg.Color.RGBRules = tables.RGBRules
		}
	}
	cfg.Color.Palette = mergePalette(def.Color.Palette, cfg.Color.Palette)
	if cfg.Color.HSVRanges == nil {
		cfg.Color.HSVRanges = def.Color.HSVRanges
	}
	if cfg.Color.RGBRules == nil {
		cfg.Color.RGBRules = def.Color.RGBRules
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// hexColorHook decodes "#RRGGBB" strings into HexColor values.
func hexColorHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(HexColor{}) {
		return data, nil
	}
	return parseHexColor(reflect.ValueOf(data).String())
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	d := c.Detection

	if d.MinShapeArea <= 0 {
		errs = append(errs, fmt.Errorf("detection.min_shape_area must be positive, got %v", d.MinShapeArea))
	}
	if d.CannyLow < 0 || d.CannyLow >= d.CannyHigh {
		errs = append(errs, fmt.Errorf("detection.canny_low (%d) must be >= 0 and below canny_high (%d)", d.CannyLow, d.CannyHigh))
	}
	if d.ApproxFactor <= 0 {
		errs = append(errs, fmt.Errorf("detection.approx_factor must be positive, got %v", d.ApproxFactor))
	}
	if d.SquareMin > d.SquareMax {
		errs = append(errs, fmt.Errorf("detection.square_min (%v) exceeds square_max (%v)", d.SquareMin, d.SquareMax))
	}
	if d.Workers < 0 {
		errs = append(errs, fmt.Errorf("detection.workers must not be negative, got %d", d.Workers))
	}

	switch strings.ToLower(c.Color.Strategy) {
	case detection.StrategyHSV, detection.StrategyRGB:
	default:
		errs = append(errs, fmt.Errorf("color.strategy must be %q or %q, got %q",
			detection.StrategyHSV, detection.StrategyRGB, c.Color.Strategy))
	}
	if _, err := TableFromRanges(c.Color.HSVRanges); err != nil {
		errs = append(errs, fmt.Errorf("color.hsv_ranges: %w", err))
	}
	if _, err := TableFromRanges(c.Color.RGBRules); err != nil {
		errs = append(errs, fmt.Errorf("color.rgb_rules: %w", err))
	}

	switch c.Capture.Source {
	case SourceFile, SourceVideo, SourceScreen, SourceCamera:
	default:
		errs = append(errs, fmt.Errorf("capture.source %q is not one of file, video, screen, camera", c.Capture.Source))
	}
	if c.Capture.VideoFPS <= 0 {
		errs = append(errs, fmt.Errorf("capture.video_fps must be positive, got %d", c.Capture.VideoFPS))
	}
	if n := len(c.Capture.ScreenRect); n != 0 && n != 4 {
		errs = append(errs, fmt.Errorf("capture.screen_rect needs 4 values (x, y, width, height), got %d", n))
	}
	if c.Output.S3Bucket != "" && c.Output.S3Key == "" {
		errs = append(errs, errors.New("output.s3_key is required when output.s3_bucket is set"))
	}

	return errors.Join(errs...)
}

// Debug reports whether debug logging is on, either through log_level or
// the SHAPE_VISION_LOG_LEVEL environment variable.
func (c Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug") || strings.EqualFold(os.Getenv(EnvPrefix+"_LOG_LEVEL"), "debug")
}

// ScreenRectangle returns the configured capture rectangle, or the empty
// rectangle for "whole screen".
func (c CaptureConfig) ScreenRectangle() image.Rectangle {
	if len(c.ScreenRect) != 4 {
		return image.Rectangle{}
	}
	r := c.ScreenRect
	return image.Rect(r[0], r[1], r[0]+r[2], r[1]+r[3])
}

// PipelineOptions converts the configuration into detection options.
func (c Config) PipelineOptions() (detection.Options, error) {
	hsv, rgb, err := c.ColorTables()
	if err != nil {
		return detection.Options{}, err
	}
	colors, err := detection.NewColorClassifier(c.Color.Strategy, hsv, rgb)
	if err != nil {
		return detection.Options{}, err
	}

	return detection.Options{
		Edges: imaging.EdgeOptions{Low: c.Detection.CannyLow, High: c.Detection.CannyHigh},
		Candidates: detection.CandidateOptions{
			MinArea:      c.Detection.MinShapeArea,
			ApproxFactor: c.Detection.ApproxFactor,
		},
		Shapes: detection.ShapeClassifier{
			SquareMin: c.Detection.SquareMin,
			SquareMax: c.Detection.SquareMax,
			CircleMin: c.Detection.CircleMin,
		},
		Colors:  colors,
		Palette: c.Palette(),
		Workers: c.Detection.Workers,
	}, nil
}

// ColorTables converts the configured HSV and RGB tables.
func (c Config) ColorTables() (hsv, rgb detection.ColorTable, err error) {
	if hsv, err = TableFromRanges(c.Color.HSVRanges); err != nil {
		return nil, nil, fmt.Errorf("invalid hsv ranges: %w", err)
	}
	if rgb, err = TableFromRanges(c.Color.RGBRules); err != nil {
		return nil, nil, fmt.Errorf("invalid rgb rules: %w", err)
	}
	return hsv, rgb, nil
}

// NewPipeline builds a detection pipeline from the configuration.
func (c Config) NewPipeline() (*detection.Pipeline, error) {
	opts, err := c.PipelineOptions()
	if err != nil {
		return nil, err
	}
	return detection.NewPipeline(opts)
}

// Palette returns the display palette. Names keep the case they were
// configured with; lookups through detection.Palette ignore case.
func (c Config) Palette() detection.Palette {
	p := make(detection.Palette, len(c.Color.Palette))
	for name, h := range c.Color.Palette {
		p[detection.ColorName(name)] = color.RGBA(h)
	}
	return p
}

// mergePalette lays overrides over base. Viper lower-cases keys, so an
// override replaces any base entry that differs only in case.
func mergePalette(base, overrides map[string]HexColor) map[string]HexColor {
	out := make(map[string]HexColor, len(base)+len(overrides))
	for name, c := range base {
		out[name] = c
	}
	for name, c := range overrides {
		for existing := range out {
			if strings.EqualFold(existing, name) {
				delete(out, existing)
			}
		}
		out[name] = c
	}
	return out
}

func paletteToHex(p detection.Palette) map[string]HexColor {
	out := make(map[string]HexColor, len(p))
	for name, c := range p {
		out[string(name)] = HexColor(c)
	}
	return out
}

// TableFromRanges converts YAML ranges into an ordered detection table.
func TableFromRanges(ranges []RangeConfig) (detection.ColorTable, error) {
	table := make(detection.ColorTable, 0, len(ranges))
	for i, r := range ranges {
		lower, err := channels(r.Lower)
		if err != nil {
			return nil, fmt.Errorf("range %d (%s) lower: %w", i, r.Name, err)
		}
		upper, err := channels(r.Upper)
		if err != nil {
			return nil, fmt.Errorf("range %d (%s) upper: %w", i, r.Name, err)
		}
		cr := detection.ColorRange{Name: detection.ColorName(r.Name), Lower: lower, Upper: upper}
		if err := cr.Validate(); err != nil {
			return nil, err
		}
		table = append(table, cr)
	}
	return table, nil
}

// RangesFromTable is the inverse of TableFromRanges.
func RangesFromTable(t detection.ColorTable) []RangeConfig {
	out := make([]RangeConfig, len(t))
	for i, r := range t {
		out[i] = RangeConfig{
			Name:  string(r.Name),
			Lower: []int{int(r.Lower[0]), int(r.Lower[1]), int(r.Lower[2])},
			Upper: []int{int(r.Upper[0]), int(r.Upper[1]), int(r.Upper[2])},
		}
	}
	return out
}

func channels(v []int) ([3]uint8, error) {
	var out [3]uint8
	if len(v) != 3 {
		return out, fmt.Errorf("need 3 channel values, got %d", len(v))
	}
	for i, c := range v {
		if c < 0 || c > 255 {
			return out, fmt.Errorf("channel %d value %d outside 0-255", i, c)
		}
		out[i] = uint8(c)
	}
	return out, nil
}
