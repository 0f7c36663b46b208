package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ironsheep/minesite-mcp/internal/service"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "mining_detect").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
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

// executeTool dispatches tool execution to the appropriate service call.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Detection
	case "mining_detect":
		return s.handleMiningDetect(ctx, args)
	case "mining_preview":
		return s.handleMiningPreview(args)

	// Inputs
	case "terrain_stats":
		return s.handleTerrainStats(ctx, args)
	case "scene_list":
		return s.handleSceneList(ctx, args)

	// Export
	case "mining_export":
		return s.handleMiningExport(args)
	case "mining_export_status":
		return s.handleMiningExportStatus(args)

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

// === Detection Handlers ===

func (s *Server) handleMiningDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a service.DetectRequest
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.svc.Detect(ctx, a)
}

func (s *Server) handleMiningPreview(args json.RawMessage) (interface{}, error) {
	var a service.PreviewRequest
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.svc.Preview(a)
}

// === Input Handlers ===

func (s *Server) handleTerrainStats(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a service.TerrainRequest
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.svc.TerrainStats(ctx, a)
}

type sceneListResult struct {
	Count  int         `json:"count"`
	Scenes interface{} `json:"scenes"`
}

func (s *Server) handleSceneList(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a service.Window
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	infos, err := s.svc.ListScenes(ctx, a)
	if err != nil {
		return nil, err
	}
	return &sceneListResult{Count: len(infos), Scenes: infos}, nil
}

// === Export Handlers ===

func (s *Server) handleMiningExport(args json.RawMessage) (interface{}, error) {
	var a service.ExportRequest
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.svc.Export(a)
}

type exportStatusArgs struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleMiningExportStatus(args json.RawMessage) (interface{}, error) {
	var a exportStatusArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.JobID == "" {
		return nil, fmt.Errorf("job_id is required")
	}
	return s.svc.ExportStatus(a.JobID)
}
