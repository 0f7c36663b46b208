// Package config loads user-editable settings for the detector and its
// transports.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ironsheep/minesite-mcp/internal/detection"
	"github.com/ironsheep/minesite-mcp/internal/raster"
	"github.com/ironsheep/minesite-mcp/internal/scene"
)

const (
	defaultConfigPath = "~/.config/minesite/config.json"
	defaultWorkers    = 2
	defaultQueueSize  = 16
)

// Environment variables read by Load.
const (
	EnvConfig   = "MINESITE_CONFIG"
	EnvLogLevel = "MINESITE_LOG_LEVEL"
	EnvPostGIS  = "MINESITE_POSTGIS_DSN"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every tunable setting.
type Config struct {
	Detection Detection        `json:"detection"`
	Reduction detection.Limits `json:"reduction"`
	Vectorize detection.Limits `json:"vectorize"`
	Sources   Sources          `json:"sources"`
	Export    Export           `json:"export"`
	Reference Reference        `json:"reference"`
	Logging   Logging          `json:"logging"`
	HTTP      HTTP             `json:"http"`
}

// Detection holds the pipeline parameters that are not cost limits.
type Detection struct {
	Start          string               `json:"start"` // YYYY-MM-DD, inclusive
	End            string               `json:"end"`   // YYYY-MM-DD, exclusive
	MaxCloudCover  float64              `json:"max_cloud_cover"`
	Thresholds     detection.Thresholds `json:"thresholds"`
	Kernel         raster.Kernel        `json:"kernel"`
	Iterations     int                  `json:"iterations"`
	EightConnected bool                 `json:"eight_connected"`
	MaxError       float64              `json:"max_error"`
	MinArea        float64              `json:"min_area"`
}

// Sources locates the imagery archive and elevation model.
type Sources struct {
	ArchiveDir string `json:"archive_dir"`
	DEMPath    string `json:"dem_path"`
	Product    string `json:"product"`
	Watch      bool   `json:"watch"` // reload the archive when files change
}

// Export configures the export worker pool and its job ledger.
type Export struct {
	LedgerPath string `json:"ledger_path"`
	OutputDir  string `json:"output_dir"`
	Workers    int    `json:"workers"`
	QueueSize  int    `json:"queue_size"`
	PostGISDSN string `json:"postgis_dsn"`
}

// Reference configures the OpenStreetMap quarry lookup.
type Reference struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
	Timeout  string `json:"timeout"` // Go duration, e.g. "30s"
}

// Logging controls logging verbosity and format.
type Logging struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // console, json
}

// HTTP configures the HTTP API listener.
type HTTP struct {
	Addr string `json:"addr"`
}

// Load reads the file named by MINESITE_CONFIG, or the default path. A
// missing file yields the defaults.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfig)
	if configPath == "" {
		configPath = defaultConfigPath
	}
	return LoadFile(configPath)
}

// LoadFile reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied last.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	expanded, err := expandUser(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		cfg.applyEnv()
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", expanded, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPostGIS); v != "" {
		c.Export.PostGISDSN = v
	}
}

// Default returns the reference configuration.
func Default() *Config {
	p := detection.DefaultParams()
	return &Config{
		Detection: Detection{
			Start:          p.Start.Format(time.DateOnly),
			End:            p.End.Format(time.DateOnly),
			MaxCloudCover:  p.MaxCloudCover,
			Thresholds:     p.Thresholds,
			Kernel:         p.Kernel,
			Iterations:     p.Iterations,
			EightConnected: p.EightConnected,
			MaxError:       p.MaxError,
			MinArea:        p.MinArea,
		},
		Reduction: p.Reduce,
		Vectorize: p.Vectorize,
		Sources: Sources{
			ArchiveDir: "~/.local/share/minesite/scenes",
			DEMPath:    "~/.local/share/minesite/dem.tif",
			Product:    "landsat8",
			Watch:      true,
		},
		Export: Export{
			LedgerPath: filepath.Join(os.TempDir(), "minesite-exports.db"),
			OutputDir:  "./exports",
			Workers:    defaultWorkers,
			QueueSize:  defaultQueueSize,
		},
		Reference: Reference{
			Enabled:  false,
			Endpoint: "https://overpass-api.de/api/interpreter",
			Timeout:  "30s",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		HTTP: HTTP{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Params converts the detection, reduction and vectorize sections into
// pipeline parameters.
func (c *Config) Params() (detection.Params, error) {
	start, err := time.Parse(time.DateOnly, c.Detection.Start)
	if err != nil {
		return detection.Params{}, fmt.Errorf("%w: detection.start: %v", ErrInvalidConfig, err)
	}
	end, err := time.Parse(time.DateOnly, c.Detection.End)
	if err != nil {
		return detection.Params{}, fmt.Errorf("%w: detection.end: %v", ErrInvalidConfig, err)
	}
	d := c.Detection
	return detection.Params{
		Start:          start,
		End:            end,
		MaxCloudCover:  d.MaxCloudCover,
		Thresholds:     d.Thresholds,
		Kernel:         d.Kernel,
		Iterations:     d.Iterations,
		Reduce:         c.Reduction,
		Vectorize:      c.Vectorize,
		EightConnected: d.EightConnected,
		MaxError:       d.MaxError,
		MinArea:        d.MinArea,
	}, nil
}

// Product returns the configured imagery product.
func (c *Config) Product() (scene.Product, error) {
	p, ok := scene.LookupProduct(c.Sources.Product)
	if !ok {
		return scene.Product{}, fmt.Errorf("%w: unknown product %q", ErrInvalidConfig, c.Sources.Product)
	}
	return p, nil
}

// ReferenceTimeout parses the reference lookup timeout.
func (c *Config) ReferenceTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Reference.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: reference.timeout %q", ErrInvalidConfig, c.Reference.Timeout)
	}
	return d, nil
}

// Validate checks the configuration as a whole.
func (c *Config) Validate() error {
	p, err := c.Params()
	if err != nil {
		return err
	}
	if err := p.ValidateScenes(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Product(); err != nil {
		return err
	}
	if c.Export.Workers <= 0 {
		return fmt.Errorf("%w: export.workers must be positive", ErrInvalidConfig)
	}
	if c.Export.QueueSize <= 0 {
		return fmt.Errorf("%w: export.queue_size must be positive", ErrInvalidConfig)
	}
	if c.Reference.Enabled {
		if c.Reference.Endpoint == "" {
			return fmt.Errorf("%w: reference.endpoint is empty", ErrInvalidConfig)
		}
		if _, err := c.ReferenceTimeout(); err != nil {
			return err
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// ExpandPaths resolves a leading ~ in every path setting.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{
		&c.Sources.ArchiveDir,
		&c.Sources.DEMPath,
		&c.Export.LedgerPath,
		&c.Export.OutputDir,
	} {
		expanded, err := expandUser(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
