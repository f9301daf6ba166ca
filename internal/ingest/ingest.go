package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/fmtrends/internal/position"
	"github.com/freeeve/fmtrends/internal/schema"
	"github.com/freeeve/fmtrends/internal/snapshot"
	"github.com/freeeve/fmtrends/internal/table"
)

// ErrNoData is returned when no snapshot file in the directory produced a table.
var ErrNoData = errors.New("no data loaded")

// DefaultWorkers is the number of snapshot files parsed at once.
const DefaultWorkers = 10

// DefaultPositionColumn is the column expanded into position tags.
const DefaultPositionColumn = "Position"

// Config configures the snapshot loader.
type Config struct {
	Dir            string         // Directory holding snapshot files
	Suffix         string         // Snapshot file suffix (default .html)
	Workers        int            // Files parsed in parallel (default 10)
	ChunkSize      int            // Rows per parse batch; 0 parses each document whole
	PositionColumn string         // Column expanded into position tags (default Position)
	Logger         zerolog.Logger // Logger
}

// Loader parses every snapshot file in a directory into one combined table.
type Loader struct {
	cfg       Config
	years     *snapshot.YearParser
	positions *position.Normalizer
	extractor snapshot.Extractor
	log       zerolog.Logger
}

// NewLoader creates a new snapshot loader.
func NewLoader(cfg Config) (*Loader, error) {
	if cfg.Dir == "" {
		return nil, errors.New("ingest: no snapshot directory")
	}
	if cfg.Suffix == "" {
		cfg.Suffix = snapshot.DefaultSuffix
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("ingest: negative chunk size %d", cfg.ChunkSize)
	}
	if cfg.PositionColumn == "" {
		cfg.PositionColumn = DefaultPositionColumn
	}

	return &Loader{
		cfg:       cfg,
		years:     snapshot.NewYearParser(cfg.Suffix),
		positions: position.NewNormalizer(),
		extractor: snapshot.Extractor{ChunkSize: cfg.ChunkSize},
		log:       cfg.Logger.With().Str("component", "ingest").Logger(),
	}, nil
}

type fileTask struct {
	name string
	path string
	year int
}

type fileResult struct {
	task    fileTask
	tbl     *table.Table
	dropped []string
	elapsed time.Duration
	err     error
}

// Load parses all snapshot files with the given column names and returns their
// rows merged in (year, file name) order. Files that fail to parse are logged and
// left out; if none succeed Load returns ErrNoData.
func (l *Loader) Load(ctx context.Context, names schema.Schema) (*table.Table, error) {
	if !names.Has(l.cfg.PositionColumn) {
		return nil, fmt.Errorf("%w: no %q column", schema.ErrInvalidSchema, l.cfg.PositionColumn)
	}

	tasks, err := l.findSnapshots()
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: no %s files with a year in %s", ErrNoData, l.cfg.Suffix, l.cfg.Dir)
	}

	l.log.Info().Int("files", len(tasks)).Int("workers", l.cfg.Workers).Msg("found snapshot files to process in parallel")

	// One slot per task; each goroutine writes only its own slot.
	results := make([]fileResult, len(tasks))
	var g errgroup.Group
	g.SetLimit(l.cfg.Workers)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = l.loadFile(ctx, names, task)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var loaded []*table.Table
	var rows, failed int
	for _, res := range results {
		for _, tok := range res.dropped {
			l.log.Warn().Str("file", res.task.name).Str("token", tok).Msg("position token dropped")
		}
		if res.err != nil {
			l.log.Error().Err(res.err).Str("file", res.task.name).Msg("snapshot failed")
			failed++
			continue
		}
		l.log.Info().
			Str("file", res.task.name).
			Int("year", res.task.year).
			Int("rows", res.tbl.Rows()).
			Dur("elapsed", res.elapsed).
			Msg("snapshot loaded")
		loaded = append(loaded, res.tbl)
		rows += res.tbl.Rows()
	}

	if len(loaded) == 0 {
		return nil, fmt.Errorf("%w: all %d snapshot files failed", ErrNoData, failed)
	}

	combined, err := table.Concat(loaded...)
	if err != nil {
		return nil, fmt.Errorf("merge snapshots: %w", err)
	}
	l.log.Info().Int("loaded", len(loaded)).Int("failed", failed).Int("rows", rows).Msg("snapshots merged")
	return combined, nil
}

// findSnapshots lists snapshot files sorted by (year, name). Files without a
// year in their name are skipped.
func (l *Loader) findSnapshots() ([]fileTask, error) {
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return nil, err
	}

	var tasks []fileTask
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !l.years.Match(name) {
			continue
		}
		year, ok := l.years.Year(name)
		if !ok {
			l.log.Debug().Str("file", name).Msg("snapshot skipped")
			continue
		}
		tasks = append(tasks, fileTask{name: name, path: filepath.Join(l.cfg.Dir, name), year: year})
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].year != tasks[j].year {
			return tasks[i].year < tasks[j].year
		}
		return tasks[i].name < tasks[j].name
	})
	return tasks, nil
}

// loadFile extracts one snapshot and expands its position column.
func (l *Loader) loadFile(ctx context.Context, names schema.Schema, task fileTask) fileResult {
	res := fileResult{task: task}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	start := time.Now()
	tbl, err := l.extractor.Extract(ctx, task.path, names, task.year)
	if err != nil {
		res.err = err
		return res
	}

	err = tbl.MapTags(l.cfg.PositionColumn, func(_ int, s string) []string {
		tags, dropped := l.positions.ExpandReport(s)
		res.dropped = append(res.dropped, dropped...)
		return tags
	})
	if err != nil {
		res.err = err
		return res
	}

	res.tbl = tbl
	res.elapsed = time.Since(start)
	return res
}
