// Package dataset is the single entry point that turns a snapshot directory
// into the combined player table, going through the cache gate first.
package dataset

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/freeeve/fmtrends/internal/cache"
	"github.com/freeeve/fmtrends/internal/config"
	"github.com/freeeve/fmtrends/internal/ingest"
	"github.com/freeeve/fmtrends/internal/schema"
	"github.com/freeeve/fmtrends/internal/table"
)

// DefaultCacheFile is the artifact name used when Options.CachePath is empty.
const DefaultCacheFile = "combined_data.fmt"

// Options configures Load.
type Options struct {
	Dir        string // Snapshot directory
	HeaderPath string // Header file with the ordered column names
	CachePath  string // Artifact path (default Dir/combined_data.fmt)
	Suffix     string
	Workers    int
	ChunkSize  int
	Rebuild    bool // Remove any existing artifact before loading
	Logger     zerolog.Logger
}

// FromConfig maps application configuration onto Options.
func FromConfig(cfg *config.Config, logger zerolog.Logger) Options {
	return Options{
		Dir:        cfg.ProjectDir(),
		HeaderPath: cfg.HeaderPath,
		CachePath:  cfg.CachePath(),
		Suffix:     cfg.Suffix,
		Workers:    cfg.Workers,
		ChunkSize:  cfg.ChunkSize,
		Logger:     logger,
	}
}

// Load returns the combined table for opts.Dir. An existing artifact at the
// cache path is returned as-is; otherwise the header file is read, every
// snapshot is parsed, and the result is persisted before being returned.
func Load(ctx context.Context, opts Options) (*table.Table, error) {
	if opts.Dir == "" {
		return nil, errors.New("dataset: no snapshot directory")
	}
	if opts.CachePath == "" {
		opts.CachePath = filepath.Join(opts.Dir, DefaultCacheFile)
	}

	gate, err := cache.NewGate(opts.CachePath, opts.Logger)
	if err != nil {
		return nil, err
	}
	defer gate.Close()

	if opts.Rebuild {
		if err := gate.Invalidate(); err != nil {
			return nil, err
		}
	}

	return gate.Load(ctx, func(ctx context.Context) (*table.Table, error) {
		names, err := schema.Load(opts.HeaderPath)
		if err != nil {
			return nil, err
		}
		loader, err := ingest.NewLoader(ingest.Config{
			Dir:       opts.Dir,
			Suffix:    opts.Suffix,
			Workers:   opts.Workers,
			ChunkSize: opts.ChunkSize,
			Logger:    opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return loader.Load(ctx, names)
	})
}
