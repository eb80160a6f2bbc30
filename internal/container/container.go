package container

import (
	"context"
	"fmt"

	"kinlib/adapters/kinasedata"
	"kinlib/adapters/rng"
	"kinlib/adapters/stats/batch"
	"kinlib/adapters/stats/enrichment"
	"kinlib/adapters/stats/scoring"
	"kinlib/app"
	"kinlib/domain/kinase"
	"kinlib/internal"
	"kinlib/internal/config"
	"kinlib/internal/errors"
	"kinlib/ports"
)

// Container holds all application dependencies. The library and background
// index are loaded once and shared read-only by every component.
type Container struct {
	Config *config.Config

	// Shared lookup tables
	Library    *kinase.Library
	Background *kinase.BackgroundIndex

	// Engines
	RNG        ports.RNGPort
	Scoring    *scoring.Engine
	Processor  *batch.Processor
	Enrichment *enrichment.Engine

	// Services
	EnrichmentService *app.EnrichmentService
	ScanService       *app.ScanService
}

// New loads the configured matrices and backgrounds and wires every component
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	logger := internal.DefaultLogger.Component("Container")

	scale, err := kinasedata.ParseWeightScale(cfg.Data.MatrixScale)
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	src := &kinasedata.FileSource{Matrices: cfg.MatrixFiles(), Backgrounds: cfg.BackgroundFiles(), Scale: scale}
	lib, bg, err := kinasedata.Load(ctx, src, src, cfg.Types())
	if err != nil {
		return nil, errors.DataLoadError("failed to load kinase data", err)
	}
	for _, t := range lib.Types() {
		logger.Info("loaded %d %s kinases", len(lib.Kinases(t)), t)
	}

	opts := scoring.DefaultOptions()
	opts.CenterFavorability = cfg.Analysis.CenterFavorability
	c, err := NewFromTables(lib, bg, opts, cfg.Analysis.Workers)
	if err != nil {
		return nil, err
	}
	c.Config = cfg
	return c, nil
}

// NewFromTables wires every component around already built lookup tables
func NewFromTables(lib *kinase.Library, bg *kinase.BackgroundIndex, opts scoring.Options, workers int) (*Container, error) {
	engine, err := scoring.NewEngine(lib, bg, opts)
	if err != nil {
		return nil, errors.DataLoadError("failed to build scoring engine", err)
	}

	c := &Container{
		Library:    lib,
		Background: bg,
		RNG:        rng.New(),
		Scoring:    engine,
	}
	c.Processor = batch.NewProcessor(engine, workers)
	c.Enrichment = enrichment.NewEngine(c.Processor, c.RNG)
	c.EnrichmentService = app.NewEnrichmentService(c.Enrichment)
	c.ScanService = app.NewScanService(c.Processor)

	internal.DefaultLogger.Component("Container").Info("container initialized (%d kinases, %d workers)",
		lib.Len(), c.Processor.Workers())
	return c, nil
}
