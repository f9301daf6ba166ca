package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options configures NewLogger.
type Options struct {
	Level string    // zerolog level name; empty means info
	Out   io.Writer // defaults to stderr so stdout stays free for reports
	JSON  bool      // plain JSON lines instead of the console writer
}

// NewLogger returns a zerolog logger configured for console output.
func NewLogger(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = l
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		// Pad to 24 characters for alignment
		return fmt.Sprintf("%-24s", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	}
	return zerolog.New(out).Level(level).With().Timestamp().Caller().Logger(), nil
}
