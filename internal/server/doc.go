// Package server implements the MCP (Model Context Protocol) server for the
// mine-site disturbance detector.
//
// This package provides a JSON-RPC 2.0 server that exposes detection, terrain
// and export operations through the MCP protocol, so an assistant can map
// excavation inside a lease boundary and hand the polygons on to GIS tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Detection:
//   - mining_detect: Run the pipeline over a region, returns polygons and a run id
//   - mining_preview: PNG of a run's dilated and final masks
//
// Inputs:
//   - terrain_stats: Rim, floor, slope and depth statistics for a region
//   - scene_list: Scenes a detection would composite
//
// Export:
//   - mining_export: Queue a GeoJSON, SQLite or PostGIS export of a run
//   - mining_export_status: Poll an export job
//
// # Runs
//
// Detection results are kept in memory under their run id so preview and
// export do not recompute them. Only the most recent runs are retained.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Export failures are not tool errors: mining_export succeeds once the job is
// queued and mining_export_status reports the failure.
//
// # Usage
//
//	srv := server.New(svc, version, log)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Send()
//	}
package server
