package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/ironsheep/shape-vision/internal/detection"
	"github.com/ironsheep/shape-vision/internal/imaging"
	"github.com/ironsheep/shape-vision/internal/persist"
	"github.com/ironsheep/shape-vision/internal/render"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "shapes_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if s.debug {
		log.Printf("Tool call: %s", params.Name)
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Shape Detection
	case "shapes_detect":
		return s.handleShapesDetect(args)
	case "shapes_edge_detect":
		return s.handleShapesEdgeDetect(args)
	case "shapes_annotate":
		return s.handleShapesAnnotate(args)
	case "shapes_annotate_svg":
		return s.handleShapesAnnotateSVG(args)
	case "shapes_classify_color":
		return s.handleShapesClassifyColor(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path     string `json:"path"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Strategy string `json:"strategy,omitempty"`
}

// SampleColorResult is a pixel's color plus the name the color classifier
// gives it.
type SampleColorResult struct {
	*imaging.ColorResult
	ColorName detection.ColorName `json:"color_name"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	sample, err := imaging.SampleColor(img, a.X, a.Y)
	if err != nil {
		return nil, err
	}
	classifier, err := s.colorClassifier(a.Strategy)
	if err != nil {
		return nil, err
	}
	origin := img.Bounds().Min
	return &SampleColorResult{
		ColorResult: sample,
		ColorName:   classifier.Classify(img, image.Point{X: a.X - origin.X, Y: a.Y - origin.Y}),
	}, nil
}

// === Shape Detection Handlers ===

// detectArgs are the per-call overrides shared by the shape tools. Absent
// fields keep the server's configuration.
type detectArgs struct {
	Path          string   `json:"path"`
	MinArea       *float64 `json:"min_area,omitempty"`
	ThresholdLow  *int     `json:"threshold_low,omitempty"`
	ThresholdHigh *int     `json:"threshold_high,omitempty"`
	Strategy      string   `json:"strategy,omitempty"`
}

// detect loads the image and runs the (possibly overridden) pipeline.
func (s *Server) detect(a detectArgs) (image.Image, []detection.IdentifiedShape, error) {
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}

	p := s.pipeline
	override := detection.Overrides{
		EdgeLow:  a.ThresholdLow,
		EdgeHigh: a.ThresholdHigh,
		MinArea:  a.MinArea,
	}
	if a.Strategy != "" {
		if override.Colors, err = s.colorClassifier(a.Strategy); err != nil {
			return nil, nil, err
		}
	}
	if !override.Empty() {
		if p, err = s.pipeline.Override(override); err != nil {
			return nil, nil, err
		}
	}
	return img, p.Process(img), nil
}

// colorClassifier returns the pipeline's classifier for "", otherwise a
// classifier for strategy over the server's configured tables.
func (s *Server) colorClassifier(strategy string) (detection.ColorClassifier, error) {
	if strategy == "" {
		return s.pipeline.Options().Colors, nil
	}
	return detection.NewColorClassifier(strategy, s.hsvTable, s.rgbTable)
}

func (s *Server) handleShapesDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, shapes, err := s.detect(a)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return persist.NewFrameResult(b.Dx(), b.Dy(), shapes), nil
}

type edgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  *int   `json:"threshold_low"`
	ThresholdHigh *int   `json:"threshold_high"`
}

func (s *Server) handleShapesEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a edgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	edges := s.pipeline.Options().Edges
	if a.ThresholdLow != nil {
		edges.Low = *a.ThresholdLow
	}
	if a.ThresholdHigh != nil {
		edges.High = *a.ThresholdHigh
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, edges.Low, edges.High)
}

type annotateArgs struct {
	detectArgs
	OutputPath      string `json:"output_path,omitempty"`
	HideCoordinates bool   `json:"hide_coordinates,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

// AnnotateResult carries an annotated PNG inline, or the path it was saved
// to when output_path was given.
type AnnotateResult struct {
	persist.FrameResult
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
}

func (a annotateArgs) style() (render.Style, error) {
	style := render.DefaultStyle()
	style.HideCoordinates = a.HideCoordinates
	if a.TextColor != "" {
		c, err := imaging.ParseHex(a.TextColor)
		if err != nil {
			return style, err
		}
		style.TextColor = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	return style, nil
}

func (s *Server) handleShapesAnnotate(args json.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	style, err := a.style()
	if err != nil {
		return nil, err
	}
	img, shapes, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	result := &AnnotateResult{FrameResult: persist.NewFrameResult(b.Dx(), b.Dy(), shapes)}
	annotated := render.Annotate(img, shapes, style)

	if a.OutputPath != "" {
		if err := render.SavePNG(annotated, a.OutputPath); err != nil {
			return nil, err
		}
		result.OutputPath = a.OutputPath
		return result, nil
	}

	data, err := render.PNGBytes(annotated)
	if err != nil {
		return nil, err
	}
	result.ImageBase64 = base64.StdEncoding.EncodeToString(data)
	result.MimeType = "image/png"
	return result, nil
}

// SVGResult is an SVG overlay of the detected shapes.
type SVGResult struct {
	persist.FrameResult
	SVG      string `json:"svg"`
	MimeType string `json:"mime_type"`
}

func (s *Server) handleShapesAnnotateSVG(args json.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	style, err := a.style()
	if err != nil {
		return nil, err
	}
	img, shapes, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	var buf bytes.Buffer
	render.WriteSVG(&buf, b.Dx(), b.Dy(), shapes, style)
	return &SVGResult{
		FrameResult: persist.NewFrameResult(b.Dx(), b.Dy(), shapes),
		SVG:         buf.String(),
		MimeType:    "image/svg+xml",
	}, nil
}

type classifyColorArgs struct {
	Hex      string `json:"hex,omitempty"`
	R        *int   `json:"r,omitempty"`
	G        *int   `json:"g,omitempty"`
	B        *int   `json:"b,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// ClassifyColorResult names a single color.
type ClassifyColorResult struct {
	Hex       string              `json:"hex"`
	RGB       imaging.RGBColor    `json:"rgb"`
	HSV       imaging.HSVColor    `json:"hsv"`
	ColorName detection.ColorName `json:"color_name"`
	Swatch    string              `json:"swatch"`
}

func (s *Server) handleShapesClassifyColor(args json.RawMessage) (interface{}, error) {
	var a classifyColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var rgb imaging.RGBColor
	switch {
	case a.Hex != "":
		c, err := imaging.ParseHex(a.Hex)
		if err != nil {
			return nil, err
		}
		rgb = c
	case a.R != nil && a.G != nil && a.B != nil:
		for _, v := range []int{*a.R, *a.G, *a.B} {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("channel value %d outside 0-255", v)
			}
		}
		rgb = imaging.RGBColor{R: uint8(*a.R), G: uint8(*a.G), B: uint8(*a.B)}
	default:
		return nil, fmt.Errorf("either hex or all of r, g, b are required")
	}

	classifier, err := s.colorClassifier(a.Strategy)
	if err != nil {
		return nil, err
	}

	pixel := image.NewRGBA(image.Rect(0, 0, 1, 1))
	pixel.SetRGBA(0, 0, color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255})
	name := classifier.Classify(pixel, image.Point{})
	swatch := s.pipeline.Options().Palette.Swatch(name)

	return &ClassifyColorResult{
		Hex:       rgb.Hex(),
		RGB:       rgb,
		HSV:       imaging.ToHSV(rgb),
		ColorName: name,
		Swatch:    imaging.RGBColor{R: swatch.R, G: swatch.G, B: swatch.B}.Hex(),
	}, nil
}
