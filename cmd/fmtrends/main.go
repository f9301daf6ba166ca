package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/freeeve/fmtrends/internal/config"
	"github.com/freeeve/fmtrends/internal/dataset"
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
		positions  = flag.String("positions", "", "Comma-separated position tags, e.g. \"ST(C),AM(L)\" (empty = all)")
		attributes = flag.String("attributes", "", "Comma-separated attributes to chart besides Current Ability")
		from       = flag.Int("from", 0, "First year (0 = earliest in data)")
		to         = flag.Int("to", 0, "Last year (0 = latest in data)")
		bins       = flag.Int("bins", 0, "Histogram bins (0 = Sturges)")
		points     = flag.Int("kde-points", stats.DefaultKDEPoints, "Density curve points")
		list       = flag.Bool("list", false, "Print the available years, positions and attributes and exit")
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
	logger.Info().
		Str("dir", cfg.ProjectDir()).
		Str("cache", cfg.CachePath()).
		Int("workers", cfg.Workers).
		Msg("starting fmtrends")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := dataset.FromConfig(cfg, logger)
	opts.Rebuild = *rebuild

	start := time.Now()
	tbl, err := dataset.Load(ctx, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("load dataset")
	}
	years := tbl.Years()
	logger.Info().
		Int("rows", tbl.Rows()).
		Ints("years", years).
		Dur("elapsed", time.Since(start)).
		Msg("dataset ready")

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	if *list {
		err := out.Encode(struct {
			Years      []int    `json:"years"`
			Positions  []string `json:"positions"`
			Attributes []string `json:"attributes"`
		}{years, tbl.DistinctTags(stats.PositionColumn), tbl.NumericColumns()})
		if err != nil {
			logger.Fatal().Err(err).Msg("write listing")
		}
		return
	}

	q := stats.Query{
		From:       *from,
		To:         *to,
		Positions:  splitList(*positions),
		Attributes: splitList(*attributes),
		Bins:       *bins,
		KDEPoints:  *points,
	}
	if q.From == 0 {
		q.From = years[0]
	}
	if q.To == 0 {
		q.To = years[len(years)-1]
	}

	report, err := stats.Build(tbl, q)
	if err != nil {
		logger.Fatal().Err(err).Msg("build report")
	}
	if err := out.Encode(report); err != nil {
		logger.Fatal().Err(err).Msg("write report")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
