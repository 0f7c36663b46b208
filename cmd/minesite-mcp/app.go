package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ironsheep/minesite-mcp/internal/config"
	"github.com/ironsheep/minesite-mcp/internal/export"
	"github.com/ironsheep/minesite-mcp/internal/logging"
	"github.com/ironsheep/minesite-mcp/internal/reference"
	"github.com/ironsheep/minesite-mcp/internal/scene"
	"github.com/ironsheep/minesite-mcp/internal/service"
	"github.com/ironsheep/minesite-mcp/internal/terrain"
)

// app holds everything a command needs after start-up.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	svc      *service.Service
	exporter *export.Exporter
	ledger   *export.Ledger
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires the service from configuration. ctx bounds the archive
// watcher.
func newApp(ctx context.Context, configPath, logLevel string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, nil)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("starting")

	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	product, err := cfg.Product()
	if err != nil {
		return nil, err
	}

	archive, err := scene.NewDirArchive(cfg.Sources.ArchiveDir, log)
	if err != nil {
		return nil, err
	}
	if cfg.Sources.Watch {
		if err := archive.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("archive changes will not be picked up")
		}
	}

	ledger, err := export.OpenLedger(cfg.Export.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open export ledger: %w", err)
	}
	exporter := export.NewExporter(ledger, export.DefaultSinks(), cfg.Export.Workers, cfg.Export.QueueSize, log)

	var annotator *reference.Annotator
	if cfg.Reference.Enabled {
		timeout, err := cfg.ReferenceTimeout()
		if err != nil {
			exporter.Close()
			ledger.Close()
			return nil, err
		}
		annotator = reference.NewAnnotator(reference.NewOverpassSource(cfg.Reference.Endpoint, timeout), log)
	}

	svc := service.New(service.Options{
		Archive:    archive,
		Product:    product,
		DEM:        terrain.FileSource{Path: cfg.Sources.DEMPath},
		Exporter:   exporter,
		Annotator:  annotator,
		Defaults:   params,
		OutputDir:  cfg.Export.OutputDir,
		PostGISDSN: cfg.Export.PostGISDSN,
	}, log)

	return &app{cfg: cfg, log: log, svc: svc, exporter: exporter, ledger: ledger}, nil
}

// Close drains pending exports and closes the ledger.
func (a *app) Close() {
	a.svc.Close()
	if err := a.ledger.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close export ledger")
	}
}
