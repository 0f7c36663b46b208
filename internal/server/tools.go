package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// roiProperty describes the region argument shared by most tools.
var roiProperty = map[string]interface{}{
	"type":        "object",
	"description": "Region of interest as a GeoJSON Polygon, MultiPolygon, Feature or FeatureCollection in the archive's coordinates (lon/lat for geographic archives)",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Detection
		{
			Name:        "mining_detect",
			Description: "Detect surface-mining disturbance inside a region. Builds a cloud-masked median composite, combines vegetation, bare-soil and built-up indices with slope and depth below the rim, dilates the candidate mask and returns the polygons above the minimum area as GeoJSON. The returned run_id can be passed to mining_preview and mining_export.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"roi": roiProperty,
					"start": map[string]interface{}{
						"type":        "string",
						"description": "First acquisition date, inclusive (YYYY-MM-DD). Default 2021-01-01",
					},
					"end": map[string]interface{}{
						"type":        "string",
						"description": "Last acquisition date, exclusive (YYYY-MM-DD). Default 2023-12-31",
					},
					"max_cloud_cover": map[string]interface{}{
						"type":        "number",
						"description": "Highest scene cloud cover in percent. Default 30",
					},
					"thresholds": map[string]interface{}{
						"type":        "object",
						"description": "Per-pixel criteria: ndvi_max, bsi_min, ndbi_min, slope_min (degrees), depth_min (metres). Omitted fields keep their defaults",
						"properties": map[string]interface{}{
							"ndvi_max":  map[string]interface{}{"type": "number"},
							"bsi_min":   map[string]interface{}{"type": "number"},
							"ndbi_min":  map[string]interface{}{"type": "number"},
							"slope_min": map[string]interface{}{"type": "number"},
							"depth_min": map[string]interface{}{"type": "number"},
						},
					},
					"kernel_radius": map[string]interface{}{
						"type":        "number",
						"description": "Dilation radius in metres. Default 60",
					},
					"min_area": map[string]interface{}{
						"type":        "number",
						"description": "Smallest polygon kept, in square metres. Default 5000",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Vectorization pixel size in metres. Default 30",
					},
					"best_effort": map[string]interface{}{
						"type":        "boolean",
						"description": "Coarsen instead of failing when a region exceeds the pixel budget. Default true",
					},
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Tag polygons overlapping mapped OpenStreetMap quarries. Default true when the lookup is enabled",
					},
				},
				"required": []string{"roi"},
			},
		},
		{
			Name:        "mining_preview",
			Description: "Render a detection run as a PNG: dilated candidate mask in red, final polygons in orange over grey. Returns base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "run_id returned by mining_detect",
					},
					"max_size": map[string]interface{}{
						"type":        "integer",
						"description": "Longest side of the image in pixels. Default 512",
						"default":     512,
					},
				},
				"required": []string{"run_id"},
			},
		},

		// Inputs
		{
			Name:        "terrain_stats",
			Description: "Elevation statistics for a region: rim (95th percentile) and floor (5th percentile) elevation, relief, slope and depth below the rim.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"roi": roiProperty,
				},
				"required": []string{"roi"},
			},
		},
		{
			Name:        "scene_list",
			Description: "List the archive scenes a detection over this region and date window would composite.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"roi": roiProperty,
					"start": map[string]interface{}{
						"type":        "string",
						"description": "First acquisition date, inclusive (YYYY-MM-DD)",
					},
					"end": map[string]interface{}{
						"type":        "string",
						"description": "Last acquisition date, exclusive (YYYY-MM-DD)",
					},
					"max_cloud_cover": map[string]interface{}{
						"type":        "number",
						"description": "Highest scene cloud cover in percent",
					},
				},
				"required": []string{"roi"},
			},
		},

		// Export
		{
			Name:        "mining_export",
			Description: "Export the polygons of a detection run in the background. Returns a job id immediately; poll mining_export_status for the outcome.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "run_id returned by mining_detect",
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"geojson", "sqlite", "postgis"},
						"description": "Destination kind",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Output file for geojson and sqlite. Defaults to the configured output directory",
					},
					"table": map[string]interface{}{
						"type":        "string",
						"description": "Table name for sqlite and postgis. Default mining_detection",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "Export name stored with every feature. Default DEM_mining_detection_dilated",
					},
				},
				"required": []string{"run_id", "format"},
			},
		},
		{
			Name:        "mining_export_status",
			Description: "Get the state of an export job: submitted, running, done or failed (with the error).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"job_id": map[string]interface{}{
						"type":        "string",
						"description": "Job id returned by mining_export",
					},
				},
				"required": []string{"job_id"},
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
