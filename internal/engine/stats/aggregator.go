// Package stats attributes HTTP traffic to hosts and renders the accumulated
// counters.
package stats

import (
	"sync"
	"time"

	"HttpSpectra/internal/model"
)

// Aggregator owns the request and response counter tables of one capture
// session. A single lock guards the tables and the correlation state so a
// reader never sees a byte counter updated without its message counter.
type Aggregator struct {
	mu           sync.RWMutex
	requests     model.RequestStats
	responses    model.ResponseStats
	methods      map[string]uint64
	statusCodes  map[string]uint64
	contentTypes map[string]uint64
	correlator   Correlator
	ingested     uint64
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCorrelator replaces the default last-request-host correlation.
func WithCorrelator(c Correlator) Option {
	return func(a *Aggregator) {
		a.correlator = c
	}
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		requests:     model.NewRequestStats(),
		responses:    model.NewResponseStats(),
		methods:      make(map[string]uint64),
		statusCodes:  make(map[string]uint64),
		contentTypes: make(map[string]uint64),
		correlator:   NewLastHostCorrelator(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ingest attributes one classified event to a host. Requests are counted
// under their own Host header; responses under the host picked by the
// correlator. Ignore events are dropped.
func (a *Aggregator) Ingest(ev model.Event) {
	if ev.Kind != model.EventRequest && ev.Kind != model.EventResponse {
		return
	}
	size := uint64(0)
	if ev.ByteSize > 0 {
		size = uint64(ev.ByteSize)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.ingested++
	switch ev.Kind {
	case model.EventRequest:
		a.requests.OutByteCount[ev.Host] += size
		a.requests.OutMessageCount[ev.Host]++
		if ev.Method != "" {
			a.methods[ev.Method]++
		}
		a.correlator.Request(ev)
	case model.EventResponse:
		host := a.correlator.Response(ev)
		a.responses.InByteCount[host] += size
		a.responses.InMessageCount[host]++
		if ev.StatusCode != 0 {
			a.statusCodes[ev.Status()]++
		}
		if ev.ContentType != "" {
			a.contentTypes[ev.ContentType]++
		}
	}
}

// RequestStats returns a copy of the request tables.
func (a *Aggregator) RequestStats() model.RequestStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.requests.Clone()
}

// ResponseStats returns a copy of the response tables.
func (a *Aggregator) ResponseStats() model.ResponseStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.responses.Clone()
}

// LastRequestHost returns the host of the most recent request, "" before the first one.
func (a *Aggregator) LastRequestHost() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.correlator.LastRequestHost()
}

// Ingested returns the number of request and response events counted so far.
func (a *Aggregator) Ingested() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ingested
}

// Snapshot returns a deep copy of every table taken in one read pass.
func (a *Aggregator) Snapshot() model.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return model.Snapshot{
		Requests:     a.requests.Clone(),
		Responses:    a.responses.Clone(),
		Methods:      cloneTable(a.methods),
		StatusCodes:  cloneTable(a.statusCodes),
		ContentTypes: cloneTable(a.contentTypes),
		TakenAt:      time.Now(),
	}
}

func cloneTable(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
