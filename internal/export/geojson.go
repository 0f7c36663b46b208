package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironsheep/minesite-mcp/internal/detection"
)

// GeoJSONSink writes a FeatureCollection file.
//
// The file is written to a temporary sibling and renamed into place so a
// reader never sees a partial collection.
type GeoJSONSink struct{}

// Write encodes fc to dest.Path.
func (GeoJSONSink) Write(ctx context.Context, fc detection.FeatureCollection, dest Destination) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gfc := fc.GeoJSON()
	if dest.Description != "" {
		gfc.ExtraMembers = map[string]any{"name": dest.Description}
	}
	data, err := json.Marshal(gfc)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	dir := filepath.Dir(dest.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.geojson")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write features: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write features: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest.Path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
