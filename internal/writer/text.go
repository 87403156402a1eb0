// Package writer persists aggregator snapshots. Each writer registers itself
// with the factory under its config type name.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/engine/stats"
	"HttpSpectra/internal/factory"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"
)

const timestampLayout = "2006-01-02_15-04-05"

func init() {
	factory.RegisterWriter("text", func(def config.WriterDef, interval time.Duration) (model.Writer, error) {
		return NewTextWriter(def.Text.Path, interval)
	})
}

// TextWriter appends the rendered summary of every snapshot to a file.
type TextWriter struct {
	mu       sync.Mutex
	file     *os.File
	interval time.Duration
}

// NewTextWriter opens (or creates) path for appending.
func NewTextWriter(path string, interval time.Duration) (*TextWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("text writer needs a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open summary file '%s': %w", path, err)
	}
	return &TextWriter{file: file, interval: interval}, nil
}

func (w *TextWriter) Name() string { return "text" }

// GetInterval returns the configured snapshot interval for this writer.
func (w *TextWriter) GetInterval() time.Duration {
	return w.interval
}

// Write appends a timestamp header followed by the summary lines.
func (w *TextWriter) Write(snapshot model.Snapshot, timestamp time.Time) error {
	lines := stats.RenderSummary(snapshot, model.Snapshot{})

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.file, "# %s\n", timestamp.Format(timestampLayout)); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w.file, line); err != nil {
			return fmt.Errorf("failed to write summary line: %w", err)
		}
	}
	logging.Debugf("Wrote %d summary lines to %s", len(lines), w.file.Name())
	return nil
}

func (w *TextWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
