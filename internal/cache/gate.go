// Package cache persists the combined table and short-circuits re-parsing.
//
// The gate trusts the artifact unconditionally: if a file exists at its path it
// is loaded and returned, with no check against the snapshot files it was built
// from. Delete the artifact (or call Invalidate) to force a rebuild.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/freeeve/fmtrends/internal/table"
)

// BuildFunc produces the table when no artifact exists.
type BuildFunc func(ctx context.Context) (*table.Table, error)

// Gate loads the artifact at a fixed path or builds and persists it.
type Gate struct {
	path  string
	codec *Codec
	log   zerolog.Logger
}

// NewGate creates a gate for the artifact at path.
func NewGate(path string, logger zerolog.Logger) (*Gate, error) {
	if path == "" {
		return nil, errors.New("cache: empty artifact path")
	}
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	return &Gate{
		path:  path,
		codec: codec,
		log:   logger.With().Str("component", "cache").Logger(),
	}, nil
}

// Path returns the artifact path.
func (g *Gate) Path() string { return g.path }

// Close releases the codec.
func (g *Gate) Close() error { return g.codec.Close() }

// Load returns the persisted table if the artifact exists. Otherwise it calls
// build, writes the result to the artifact path and returns it. A failed write
// is logged; the built table is still returned.
func (g *Gate) Load(ctx context.Context, build BuildFunc) (*table.Table, error) {
	_, err := os.Stat(g.path)
	switch {
	case err == nil:
		tbl, err := g.codec.Read(g.path)
		if err != nil {
			return nil, fmt.Errorf("read cache %s: %w", g.path, err)
		}
		g.log.Info().Str("path", g.path).Int("rows", tbl.Rows()).Msg("using cached data")
		return tbl, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("stat cache %s: %w", g.path, err)
	}

	tbl, err := build(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := g.codec.Write(g.path, tbl)
	if err != nil {
		g.log.Error().Err(err).Str("path", g.path).Msg("save cache failed")
		return tbl, nil
	}
	g.log.Info().
		Str("path", g.path).
		Int("rows", tbl.Rows()).
		Int("bytes", stats.CompressedSize).
		Int("raw_bytes", stats.UncompressedSize).
		Dur("compress", stats.CompressTime).
		Msg("data saved")
	return tbl, nil
}

// Invalidate removes the artifact so the next Load rebuilds it.
func (g *Gate) Invalidate() error {
	err := os.Remove(g.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
