package model

import "time"

// Writer defines a generic interface for persisting snapshots.
type Writer interface {
	// Name identifies the writer in logs.
	Name() string

	// Write persists one snapshot taken at the given time.
	Write(snapshot Snapshot, timestamp time.Time) error

	// GetInterval returns the configured snapshot interval for this writer.
	GetInterval() time.Duration

	// Close releases connections or files held by the writer.
	Close() error
}
