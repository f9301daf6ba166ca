package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/freeeve/fmtrends/internal/config"
	"github.com/freeeve/fmtrends/internal/dataset"
	"github.com/freeeve/fmtrends/internal/export"
	"github.com/freeeve/fmtrends/internal/logx"
	"github.com/freeeve/fmtrends/internal/stats"
)

func main() {
	cfg, err := config.Load(os.Getenv("FMTRENDS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	cfg.BindFlags(flag.CommandLine)
	var (
		outputPath = flag.String("output", "players.csv", "Output file (.csv or .xlsx)")
		format     = flag.String("format", "", "Output format, csv or xlsx (default from the output extension)")
		positions  = flag.String("positions", "", "Comma-separated position tags to keep (empty = all)")
		from       = flag.Int("from", 0, "First year to keep (0 = no lower bound)")
		to         = flag.Int("to", 0, "Last year to keep (0 = no upper bound)")
		rebuild    = flag.Bool("rebuild", false, "Discard the cached table and parse the snapshots again")
	)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logx.NewLogger(logx.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	var f export.Format
	if *format != "" {
		f, err = export.ParseFormat(*format)
	} else {
		f, err = export.FormatFromPath(*outputPath)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("output format")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := dataset.FromConfig(cfg, logger)
	opts.Rebuild = *rebuild
	tbl, err := dataset.Load(ctx, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("load dataset")
	}

	lo, hi := *from, *to
	if lo == 0 {
		lo = math.MinInt
	}
	if hi == 0 {
		hi = math.MaxInt
	}
	var selected []string
	for _, p := range strings.Split(*positions, ",") {
		if p = strings.TrimSpace(p); p != "" {
			selected = append(selected, p)
		}
	}
	tbl = tbl.WhereYearBetween(lo, hi).WhereAnyTag(stats.PositionColumn, selected)

	if err := export.WriteFile(*outputPath, f, tbl); err != nil {
		logger.Fatal().Err(err).Msg("export")
	}
	logger.Info().
		Str("output", *outputPath).
		Str("format", f.String()).
		Int("rows", tbl.Rows()).
		Msg("export complete")
}
