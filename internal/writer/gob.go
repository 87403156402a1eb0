package writer

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/factory"
	"HttpSpectra/internal/model"
)

func init() {
	factory.RegisterWriter("gob", func(def config.WriterDef, interval time.Duration) (model.Writer, error) {
		if def.Gob.RootPath == "" {
			return nil, fmt.Errorf("gob writer needs a root_path")
		}
		return NewGobWriter(def.Gob.RootPath, interval), nil
	})
}

// SummaryData holds the metadata written next to each gob snapshot.
type SummaryData struct {
	TotalHosts    int    `json:"total_hosts"`
	TotalRequests uint64 `json:"total_requests"`
	TotalReplies  uint64 `json:"total_responses"`
	TotalBytes    uint64 `json:"total_bytes"`
	Timestamp     string `json:"timestamp"`
}

// GobWriter writes every snapshot into its own timestamped directory as
// hosts.dat (gob) plus summary.json.
type GobWriter struct {
	rootPath string
	interval time.Duration
}

// NewGobWriter creates a new gob snapshot writer.
func NewGobWriter(rootPath string, interval time.Duration) *GobWriter {
	return &GobWriter{rootPath: rootPath, interval: interval}
}

func (w *GobWriter) Name() string { return "gob" }

// GetInterval returns the configured snapshot interval for this writer.
func (w *GobWriter) GetInterval() time.Duration {
	return w.interval
}

// Write serializes the per-host view of a snapshot. Empty snapshots are skipped.
func (w *GobWriter) Write(snapshot model.Snapshot, timestamp time.Time) error {
	hosts := snapshot.HostList()
	if len(hosts) == 0 {
		return nil
	}

	snapshotDir := filepath.Join(w.rootPath, timestamp.Format(timestampLayout))
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	dataPath := filepath.Join(snapshotDir, "hosts.dat")
	file, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", dataPath, err)
	}
	defer file.Close()
	if err := gob.NewEncoder(file).Encode(hosts); err != nil {
		return fmt.Errorf("failed to encode hosts to gob for file '%s': %w", dataPath, err)
	}

	summary := SummaryData{
		TotalHosts: len(hosts),
		Timestamp:  timestamp.UTC().Format(time.RFC3339),
	}
	for _, h := range hosts {
		summary.TotalRequests += h.OutMessages
		summary.TotalReplies += h.InMessages
		summary.TotalBytes += h.TotalBytes()
	}

	summaryPath := filepath.Join(snapshotDir, "summary.json")
	summaryFile, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	enc := json.NewEncoder(summaryFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

func (w *GobWriter) Close() error { return nil }

// ReadHosts decodes a hosts.dat file written by GobWriter.
func ReadHosts(path string) ([]model.HostStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	defer file.Close()

	var hosts []model.HostStats
	if err := gob.NewDecoder(file).Decode(&hosts); err != nil {
		return nil, fmt.Errorf("failed to decode gob data: %w", err)
	}
	return hosts, nil
}
