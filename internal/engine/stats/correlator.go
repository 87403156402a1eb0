package stats

import (
	"fmt"

	"HttpSpectra/internal/model"
)

// Correlator decides which host a response belongs to. Implementations are
// called with the aggregator lock held and need no locking of their own.
type Correlator interface {
	// Request records a request event.
	Request(ev model.Event)
	// Response returns the host a response is attributed to.
	Response(ev model.Event) string
	// LastRequestHost returns the host of the most recent request.
	LastRequestHost() string
}

// NewCorrelator returns the correlator registered under name.
func NewCorrelator(name string) (Correlator, error) {
	switch name {
	case "", model.CorrelatorLastHost:
		return NewLastHostCorrelator(), nil
	case model.CorrelatorFlow:
		return NewFlowCorrelator(defaultMaxFlows), nil
	default:
		return nil, fmt.Errorf("unknown correlator: '%s'", name)
	}
}

// LastHostCorrelator attributes every response to the host of the most
// recent request, whatever connection either arrived on. Pipelined or
// concurrent exchanges to different hosts are misattributed.
type LastHostCorrelator struct {
	last string
}

func NewLastHostCorrelator() *LastHostCorrelator {
	return &LastHostCorrelator{}
}

func (c *LastHostCorrelator) Request(ev model.Event) {
	c.last = ev.Host
}

func (c *LastHostCorrelator) Response(model.Event) string {
	return c.last
}

func (c *LastHostCorrelator) LastRequestHost() string {
	return c.last
}

const (
	defaultMaxFlows   = 65536
	maxPendingPerFlow = 64
)

type flowState struct {
	pending []string
	last    string
}

// FlowCorrelator pairs responses with requests of the same TCP connection in
// FIFO order, which keeps pipelined requests apart. Events without a flow key,
// and responses on a connection that never showed a request, fall back to the
// global last request host.
type FlowCorrelator struct {
	flows    map[string]*flowState
	maxFlows int
	last     string
}

func NewFlowCorrelator(maxFlows int) *FlowCorrelator {
	if maxFlows <= 0 {
		maxFlows = defaultMaxFlows
	}
	return &FlowCorrelator{
		flows:    make(map[string]*flowState),
		maxFlows: maxFlows,
	}
}

func (c *FlowCorrelator) Request(ev model.Event) {
	c.last = ev.Host
	if ev.Flow == "" {
		return
	}
	st, ok := c.flows[ev.Flow]
	if !ok {
		if len(c.flows) >= c.maxFlows {
			// Table full: start over rather than grow without bound.
			c.flows = make(map[string]*flowState)
		}
		st = &flowState{}
		c.flows[ev.Flow] = st
	}
	if len(st.pending) >= maxPendingPerFlow {
		st.pending = st.pending[1:]
	}
	st.pending = append(st.pending, ev.Host)
	st.last = ev.Host
}

func (c *FlowCorrelator) Response(ev model.Event) string {
	st, ok := c.flows[ev.Flow]
	if ev.Flow == "" || !ok {
		return c.last
	}
	if len(st.pending) == 0 {
		return st.last
	}
	host := st.pending[0]
	st.pending = st.pending[1:]
	return host
}

func (c *FlowCorrelator) LastRequestHost() string {
	return c.last
}

// Flows returns the number of tracked connections.
func (c *FlowCorrelator) Flows() int {
	return len(c.flows)
}
