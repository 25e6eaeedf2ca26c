package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func strategyProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"hsv", "rgb"},
		"description": "Optional color strategy. Defaults to the server configuration",
	}
}

// detectProperties are the inputs shared by the shape tools.
func detectProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"min_area": map[string]interface{}{
			"type":        "number",
			"description": "Optional minimum enclosed area in px². Smaller contours are ignored. Default 1000",
		},
		"threshold_low": map[string]interface{}{
			"type":        "integer",
			"description": "Optional low edge threshold on the Sobel gradient magnitude. Default 50",
		},
		"threshold_high": map[string]interface{}{
			"type":        "integer",
			"description": "Optional high edge threshold on the Sobel gradient magnitude. Default 150",
		},
		"strategy": strategyProperty(),
	}
}

func annotateProperties() map[string]interface{} {
	props := detectProperties()
	props["hide_coordinates"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Omit the (dx, dy) caption under each shape",
	}
	props["text_color"] = map[string]interface{}{
		"type":        "string",
		"description": "Caption color as #RRGGBB. Default #000000",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	rasterProps := annotateProperties()
	rasterProps["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional path to save the annotated image to instead of returning it inline",
	}

	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color at a pixel in hex, RGB, HSL and 8-bit HSV, plus the color name the classifier assigns to it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
					"strategy": strategyProperty(),
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Shape Detection
		{
			Name:        "shapes_detect",
			Description: "Detect shapes in an image. Each shape reports its contour, vertex count, centroid, area, perimeter, circularity, label (Triangle, Square, Rectangle, Pentagon, Hexagon, Circle, Unknown), color name and its offset from the image center with y pointing up.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "shapes_edge_detect",
			Description: "Run the edge extractor used by shape detection and return the edge map as a base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Low threshold on the Sobel gradient magnitude. Default 50",
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "High threshold on the Sobel gradient magnitude. Default 150",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "shapes_annotate",
			Description: "Detect shapes and draw them on a copy of the image: outline in the shape's color, centroid marker, \"Color Label\" caption and relative coordinates. Returns a base64 PNG or saves it to output_path.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": rasterProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "shapes_annotate_svg",
			Description: "Detect shapes and return them as an SVG overlay with the image's dimensions.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": annotateProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "shapes_classify_color",
			Description: "Name a color with the configured color table. Give either hex or all of r, g, b.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"hex": map[string]interface{}{
						"type":        "string",
						"description": "Color as #RRGGBB",
					},
					"r": map[string]interface{}{
						"type":        "integer",
						"description": "Red component (0-255)",
					},
					"g": map[string]interface{}{
						"type":        "integer",
						"description": "Green component (0-255)",
					},
					"b": map[string]interface{}{
						"type":        "integer",
						"description": "Blue component (0-255)",
					},
					"strategy": strategyProperty(),
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
