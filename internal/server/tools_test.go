package server

import (
	"testing"
)

func toolMap() map[string]Tool {
	m := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		m[tool.Name] = tool
	}
	return m
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) != 6 {
		t.Fatalf("GetToolDefinitions returned %d tools, want 6", len(tools))
	}

	expectedTools := []string{
		"mining_detect",
		"mining_preview",
		"terrain_stats",
		"scene_list",
		"mining_export",
		"mining_export_status",
	}

	m := toolMap()
	for _, name := range expectedTools {
		if _, ok := m[name]; !ok {
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
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// Every required argument must be described
			required, ok := tool.InputSchema["required"].([]string)
			if !ok {
				t.Fatal("'required' should be a string slice")
			}
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required argument %q has no schema", r)
				}
			}
		})
	}
}

func TestToolDefinitions_RequiredROI(t *testing.T) {
	m := toolMap()
	for _, name := range []string{"mining_detect", "terrain_stats", "scene_list"} {
		t.Run(name, func(t *testing.T) {
			required := m[name].InputSchema["required"].([]string)
			hasROI := false
			for _, r := range required {
				if r == "roi" {
					hasROI = true
				}
			}
			if !hasROI {
				t.Errorf("%s should require roi", name)
			}
		})
	}
}

func TestToolDefinitions_ExportFormats(t *testing.T) {
	props := toolMap()["mining_export"].InputSchema["properties"].(map[string]interface{})
	format := props["format"].(map[string]interface{})
	enum, ok := format["enum"].([]string)
	if !ok {
		t.Fatal("format should declare an enum")
	}
	want := map[string]bool{"geojson": true, "sqlite": true, "postgis": true}
	if len(enum) != len(want) {
		t.Errorf("format enum = %v", enum)
	}
	for _, f := range enum {
		if !want[f] {
			t.Errorf("unexpected format %q", f)
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
	}

	resp := s.handleToolsList(req)

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}

	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}

	expected := GetToolDefinitions()
	if len(toolsList) != len(expected) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(expected))
	}
}
