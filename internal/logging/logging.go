// internal/logging/logging.go
//
// Central zerolog setup. The CLI logs human-readable lines to stderr and
// structured JSON to a run log file; the TUI logs to the file only, since
// stderr belongs to the rendered screen there.

package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// LogFileName is the structured run log, created under the output root.
const LogFileName = "flowscribe.log"

func level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func console() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// New returns a console-only logger on stderr.
func New(verbose bool) zerolog.Logger {
	return zerolog.New(console()).Level(level(verbose)).With().Timestamp().Logger()
}

// NewWithFile returns a logger writing to both stderr and the run log file
// under dir. When the file cannot be opened the console logger is returned
// alone; missing file logs never block a run.
func NewWithFile(verbose bool, dir string) (zerolog.Logger, io.Closer) {
	f, err := openLogFile(dir)
	if err != nil {
		log := New(verbose)
		log.Warn().Err(err).Msg("cannot open run log file, continuing without it")
		return log, nil
	}
	w := io.MultiWriter(console(), f)
	return zerolog.New(w).Level(level(verbose)).With().Timestamp().Logger(), f
}

// NewFileOnly returns a logger writing JSON entries to the run log file
// under dir, discarding everything when the file cannot be opened.
func NewFileOnly(verbose bool, dir string) (zerolog.Logger, io.Closer) {
	f, err := openLogFile(dir)
	if err != nil {
		return zerolog.Nop(), nil
	}
	return zerolog.New(f).Level(level(verbose)).With().Timestamp().Logger(), f
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, LogFileName)
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
