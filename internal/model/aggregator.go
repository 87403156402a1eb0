package model

// Aggregator defines the contract of the stats engine as seen by the drivers,
// the API and the writers.
type Aggregator interface {
	// Ingest attributes one event to a host and updates the counters.
	Ingest(ev Event)

	// Snapshot returns a deep copy of all counters.
	Snapshot() Snapshot
}

// Names of the response attribution strategies.
const (
	CorrelatorLastHost = "last_host"
	CorrelatorFlow     = "flow"
)
