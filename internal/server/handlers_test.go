package server

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/imaging"
	"github.com/ironsheep/shape-vision/internal/persist"
)

// createTestImageFile writes a width×height image filled with c and returns
// its path.
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writePNG(t, img)
}

// createSquareImageFile writes a 200×200 black image with a centered 45px
// square of color c.
func createSquareImageFile(t *testing.T, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.Black)
		}
	}
	for y := 78; y <= 122; y++ {
		for x := 78; x <= 122; x++ {
			img.Set(x, y, c)
		}
	}
	return writePNG(t, img)
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) {
	t.Helper()

	resp := callToolResponse(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %+v", name, resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("%s: result should be a map", name)
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("%s: expected one content item, got %v", name, result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("%s: content type %v, want text", name, content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("%s: failed to decode result %q: %v", name, text, err)
	}
}

func callToolResponse(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	callTool(t, New(nil), "image_load", map[string]interface{}{"path": imgPath}, &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("file size: got %d", info.FileSizeBytes)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims imaging.DimensionsResult
	callTool(t, New(nil), "image_dimensions", map[string]interface{}{"path": imgPath}, &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_ImageSampleColor(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name     string
		x, y     int
		strategy string
		wantHex  string
		wantName string
	}{
		{"inside square", 100, 100, "", "#FF0000", "Red"},
		{"background", 5, 5, "", "#000000", "Black"},
		{"rgb strategy", 100, 100, "rgb", "#FF0000", "Red"},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SampleColorResult
			callTool(t, s, "image_sample_color", map[string]interface{}{
				"path":     imgPath,
				"x":        tt.x,
				"y":        tt.y,
				"strategy": tt.strategy,
			}, &got)

			if got.ColorResult == nil || got.Hex != tt.wantHex {
				t.Errorf("hex: got %+v, want %s", got.ColorResult, tt.wantHex)
			}
			if string(got.ColorName) != tt.wantName {
				t.Errorf("color name: got %s, want %s", got.ColorName, tt.wantName)
			}
		})
	}
}

func TestHandleToolsCall_ImageSampleColorOutOfBounds(t *testing.T) {
	imgPath := createTestImageFile(t, 10, 10, color.White)

	resp := callToolResponse(t, New(nil), "image_sample_color", map[string]interface{}{
		"path": imgPath, "x": 50, "y": 5,
	})
	if resp.Error == nil {
		t.Fatal("expected error for out of bounds sample")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_ShapesDetect(t *testing.T) {
	tests := []struct {
		name      string
		fill      color.RGBA
		strategy  string
		wantColor string
	}{
		{"red hsv", color.RGBA{255, 0, 0, 255}, "", "Red"},
		{"green hsv", color.RGBA{0, 255, 0, 255}, "hsv", "Green"},
		{"yellow rgb", color.RGBA{255, 255, 0, 255}, "rgb", "Yellow"},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imgPath := createSquareImageFile(t, tt.fill)

			var got persist.FrameResult
			callTool(t, s, "shapes_detect", map[string]interface{}{
				"path":     imgPath,
				"strategy": tt.strategy,
			}, &got)

			if got.Width != 200 || got.Height != 200 {
				t.Errorf("frame: got %dx%d", got.Width, got.Height)
			}
			if got.Count != 1 || len(got.Shapes) != 1 {
				t.Fatalf("count: got %d (%d shapes), want 1", got.Count, len(got.Shapes))
			}
			shape := got.Shapes[0]
			if shape.Label != "Square" {
				t.Errorf("label: got %s, want Square", shape.Label)
			}
			if shape.Color != tt.wantColor {
				t.Errorf("color: got %s, want %s", shape.Color, tt.wantColor)
			}
			if shape.Coordinates != (persist.Point{0, 0}) {
				t.Errorf("coordinates: got %v, want [0 0]", shape.Coordinates)
			}
			if shape.Shape.NumVertices != 4 {
				t.Errorf("vertices: got %d, want 4", shape.Shape.NumVertices)
			}
		})
	}
}

func TestHandleToolsCall_ShapesDetectMinArea(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{255, 0, 0, 255})

	var got persist.FrameResult
	callTool(t, New(nil), "shapes_detect", map[string]interface{}{
		"path":     imgPath,
		"min_area": 5000,
	}, &got)

	if got.Count != 0 || len(got.Shapes) != 0 {
		t.Errorf("a 45px square is below min_area 5000, got %d shapes", got.Count)
	}
	if got.Shapes == nil {
		t.Error("shapes should encode as [] not null")
	}
}

func TestHandleToolsCall_ShapesDetectZeroLowThreshold(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{255, 0, 0, 255})

	var got persist.FrameResult
	callTool(t, New(nil), "shapes_detect", map[string]interface{}{
		"path":           imgPath,
		"threshold_low":  0,
		"threshold_high": 100,
	}, &got)

	if got.Count != 1 || len(got.Shapes) != 1 || got.Shapes[0].Label != "Square" {
		t.Errorf("threshold_low 0: got %+v", got.Shapes)
	}
}

func TestHandleToolsCall_ShapesDetectBlank(t *testing.T) {
	imgPath := createTestImageFile(t, 64, 64, color.Black)

	var got persist.FrameResult
	callTool(t, New(nil), "shapes_detect", map[string]interface{}{"path": imgPath}, &got)

	if got.Count != 0 {
		t.Errorf("blank frame: got %d shapes", got.Count)
	}
}

func TestHandleToolsCall_ShapesDetectErrors(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing file", map[string]interface{}{"path": "/nonexistent/frame.png"}},
		{"unknown strategy", map[string]interface{}{"path": imgPath, "strategy": "lab"}},
		{"inverted thresholds", map[string]interface{}{"path": imgPath, "threshold_low": 200, "threshold_high": 100}},
		{"negative area", map[string]interface{}{"path": imgPath, "min_area": -1}},
		{"zero area", map[string]interface{}{"path": imgPath, "min_area": 0}},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callToolResponse(t, s, "shapes_detect", tt.args)
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("error code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_ShapesEdgeDetect(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{255, 255, 255, 255})

	var got imaging.EdgeDetectResult
	callTool(t, New(nil), "shapes_edge_detect", map[string]interface{}{"path": imgPath}, &got)

	if got.Width != 200 || got.Height != 200 {
		t.Errorf("got %dx%d", got.Width, got.Height)
	}
	if got.EdgePixels == 0 {
		t.Error("expected edge pixels around the square")
	}
	if got.MimeType != "image/png" {
		t.Errorf("mime type: got %s", got.MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(got.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	if _, err := png.Decode(strings.NewReader(string(data))); err != nil {
		t.Errorf("edge image is not a PNG: %v", err)
	}
}

func TestHandleToolsCall_ShapesAnnotate(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{0, 255, 0, 255})

	var got AnnotateResult
	callTool(t, New(nil), "shapes_annotate", map[string]interface{}{"path": imgPath}, &got)

	if got.Count != 1 {
		t.Fatalf("count: got %d, want 1", got.Count)
	}
	if got.MimeType != "image/png" || got.OutputPath != "" {
		t.Errorf("inline result: mime %q output %q", got.MimeType, got.OutputPath)
	}
	data, err := base64.StdEncoding.DecodeString(got.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("annotated image is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 200 {
		t.Errorf("annotated size: got %v", img.Bounds())
	}
}

func TestHandleToolsCall_ShapesAnnotateOutputPath(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{255, 0, 0, 255})
	outPath := filepath.Join(t.TempDir(), "annotated.png")

	var got AnnotateResult
	callTool(t, New(nil), "shapes_annotate", map[string]interface{}{
		"path":             imgPath,
		"output_path":      outPath,
		"hide_coordinates": true,
		"text_color":       "#FFFFFF",
	}, &got)

	if got.OutputPath != outPath {
		t.Errorf("output path: got %q, want %q", got.OutputPath, outPath)
	}
	if got.ImageBase64 != "" {
		t.Error("image should not be inlined when output_path is set")
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("annotated file not written: %v", err)
	}
}

func TestHandleToolsCall_ShapesAnnotateBadTextColor(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{255, 0, 0, 255})

	resp := callToolResponse(t, New(nil), "shapes_annotate", map[string]interface{}{
		"path":       imgPath,
		"text_color": "not-a-color",
	})
	if resp.Error == nil {
		t.Fatal("expected error for bad text_color")
	}
}

func TestHandleToolsCall_ShapesAnnotateSVG(t *testing.T) {
	imgPath := createSquareImageFile(t, color.RGBA{255, 0, 0, 255})

	var got SVGResult
	callTool(t, New(nil), "shapes_annotate_svg", map[string]interface{}{"path": imgPath}, &got)

	if got.MimeType != "image/svg+xml" {
		t.Errorf("mime type: got %s", got.MimeType)
	}
	if got.Count != 1 {
		t.Errorf("count: got %d, want 1", got.Count)
	}
	for _, want := range []string{"<svg", `width="200"`, "Red Square", "</svg>"} {
		if !strings.Contains(got.SVG, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestHandleToolsCall_ShapesClassifyColor(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]interface{}
		wantName   string
		wantHex    string
		wantSwatch string
	}{
		{"hex red", map[string]interface{}{"hex": "#FF0000"}, "Red", "#FF0000", "#FF0000"},
		{"hex blue", map[string]interface{}{"hex": "#0000FF"}, "Blue", "#0000FF", "#0000FF"},
		{"components green", map[string]interface{}{"r": 0, "g": 255, "b": 0}, "Green", "#00FF00", "#00FF00"},
		{"rgb strategy white", map[string]interface{}{"hex": "#FAFAFA", "strategy": "rgb"}, "White", "#FAFAFA", "#FFFFFF"},
		{"zero components are valid", map[string]interface{}{"r": 0, "g": 0, "b": 0}, "Black", "#000000", "#000000"},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ClassifyColorResult
			callTool(t, s, "shapes_classify_color", tt.args, &got)

			if string(got.ColorName) != tt.wantName {
				t.Errorf("color name: got %s, want %s", got.ColorName, tt.wantName)
			}
			if got.Hex != tt.wantHex {
				t.Errorf("hex: got %s, want %s", got.Hex, tt.wantHex)
			}
			if got.Swatch != tt.wantSwatch {
				t.Errorf("swatch: got %s, want %s", got.Swatch, tt.wantSwatch)
			}
		})
	}
}

func TestHandleToolsCall_StrategyUsesConfiguredTables(t *testing.T) {
	calibrated := detection.ColorTable{
		{Name: "Calibrated", Lower: [3]uint8{0, 0, 0}, Upper: [3]uint8{180, 255, 255}},
	}
	colors, err := detection.NewColorClassifier(detection.StrategyHSV, calibrated, nil)
	if err != nil {
		t.Fatalf("NewColorClassifier failed: %v", err)
	}
	p, err := detection.NewPipeline(detection.Options{Colors: colors, Workers: 1})
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	s := New(p, WithColorTables(calibrated, nil))

	tests := []struct {
		strategy string
		want     string
	}{
		{"", "Calibrated"},
		{"hsv", "Calibrated"},
		{"rgb", "Red"}, // no rgb table configured: built-in rules
	}
	for _, tt := range tests {
		t.Run("strategy "+tt.strategy, func(t *testing.T) {
			var got ClassifyColorResult
			callTool(t, s, "shapes_classify_color", map[string]interface{}{"hex": "#FF0000", "strategy": tt.strategy}, &got)
			if string(got.ColorName) != tt.want {
				t.Errorf("color name: got %s, want %s", got.ColorName, tt.want)
			}
		})
	}

	imgPath := createSquareImageFile(t, color.RGBA{255, 0, 0, 255})
	var frame persist.FrameResult
	callTool(t, s, "shapes_detect", map[string]interface{}{"path": imgPath, "strategy": "hsv"}, &frame)
	if len(frame.Shapes) != 1 || frame.Shapes[0].Color != "Calibrated" {
		t.Errorf("shapes_detect with strategy hsv: got %+v", frame.Shapes)
	}
}

func TestHandleToolsCall_ShapesClassifyColorErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"no input", map[string]interface{}{}},
		{"partial components", map[string]interface{}{"r": 10, "g": 10}},
		{"component out of range", map[string]interface{}{"r": 300, "g": 0, "b": 0}},
		{"bad hex", map[string]interface{}{"hex": "#GG0000"}},
	}

	s := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := callToolResponse(t, s, "shapes_classify_color", tt.args); resp.Error == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	resp := callToolResponse(t, New(nil), "image_crop", map[string]interface{}{})
	if resp.Error == nil {
		t.Fatal("expected error for unknown tool")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("error data: got %q", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	resp := New(nil).handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("error code: got %d, want -32602", resp.Error.Code)
	}
}
