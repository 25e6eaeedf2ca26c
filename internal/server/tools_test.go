package server

import (
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"image_sample_color",
		"shapes_detect",
		"shapes_edge_detect",
		"shapes_annotate",
		"shapes_annotate_svg",
		"shapes_classify_color",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || len(props) == 0 {
				t.Fatal("InputSchema properties missing")
			}

			// Every required field must be a declared property.
			required, _ := tool.InputSchema["required"].([]string)
			for _, field := range required {
				if _, ok := props[field]; !ok {
					t.Errorf("required field %s has no property", field)
				}
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	toolsRequiringPath := []string{
		"image_load",
		"image_dimensions",
		"image_sample_color",
		"shapes_detect",
		"shapes_edge_detect",
		"shapes_annotate",
		"shapes_annotate_svg",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, name := range toolsRequiringPath {
		required, _ := toolMap[name].InputSchema["required"].([]string)
		found := false
		for _, r := range required {
			if r == "path" {
				found = true
			}
		}
		if !found {
			t.Errorf("%s should require path", name)
		}
	}
}

func TestToolDefinitions_AnnotateOnlyRasterHasOutputPath(t *testing.T) {
	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	raster := toolMap["shapes_annotate"].InputSchema["properties"].(map[string]interface{})
	svg := toolMap["shapes_annotate_svg"].InputSchema["properties"].(map[string]interface{})
	if _, ok := raster["output_path"]; !ok {
		t.Error("shapes_annotate should accept output_path")
	}
	if _, ok := svg["output_path"]; ok {
		t.Error("shapes_annotate_svg should not accept output_path")
	}
}

func TestToolDefinitions_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(GetToolDefinitions())
	if err != nil {
		t.Fatalf("Failed to marshal tool definitions: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	for _, tool := range decoded {
		if _, ok := tool["inputSchema"]; !ok {
			t.Errorf("tool %v is missing inputSchema", tool["name"])
		}
	}
}
