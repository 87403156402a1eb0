package model

import (
	"sort"
	"time"
)

// RequestStats holds per-host counters for request messages.
type RequestStats struct {
	OutByteCount    map[string]uint64
	OutMessageCount map[string]uint64
}

// ResponseStats holds per-host counters for response messages.
type ResponseStats struct {
	InByteCount    map[string]uint64
	InMessageCount map[string]uint64
}

// NewRequestStats returns empty request tables.
func NewRequestStats() RequestStats {
	return RequestStats{
		OutByteCount:    make(map[string]uint64),
		OutMessageCount: make(map[string]uint64),
	}
}

// NewResponseStats returns empty response tables.
func NewResponseStats() ResponseStats {
	return ResponseStats{
		InByteCount:    make(map[string]uint64),
		InMessageCount: make(map[string]uint64),
	}
}

// Clone returns a deep copy.
func (s RequestStats) Clone() RequestStats {
	return RequestStats{
		OutByteCount:    cloneCounters(s.OutByteCount),
		OutMessageCount: cloneCounters(s.OutMessageCount),
	}
}

// Clone returns a deep copy.
func (s ResponseStats) Clone() ResponseStats {
	return ResponseStats{
		InByteCount:    cloneCounters(s.InByteCount),
		InMessageCount: cloneCounters(s.InMessageCount),
	}
}

func cloneCounters(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HostStats is the combined view of one host.
type HostStats struct {
	Host        string `json:"host"`
	OutMessages uint64 `json:"out_messages"`
	InMessages  uint64 `json:"in_messages"`
	OutBytes    uint64 `json:"out_bytes"`
	InBytes     uint64 `json:"in_bytes"`
}

// TotalPackets is the number of messages in both directions.
func (h HostStats) TotalPackets() uint64 {
	return h.OutMessages + h.InMessages
}

// TotalBytes is the payload volume in both directions.
func (h HostStats) TotalBytes() uint64 {
	return h.OutBytes + h.InBytes
}

// Snapshot is a point-in-time copy of all counter tables of one session.
type Snapshot struct {
	Requests     RequestStats
	Responses    ResponseStats
	Methods      map[string]uint64
	StatusCodes  map[string]uint64
	ContentTypes map[string]uint64
	TakenAt      time.Time
}

// EmptySnapshot returns a snapshot with allocated, empty tables.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Requests:     NewRequestStats(),
		Responses:    NewResponseStats(),
		Methods:      make(map[string]uint64),
		StatusCodes:  make(map[string]uint64),
		ContentTypes: make(map[string]uint64),
	}
}

// Hosts returns the hosts that sent at least one request, sorted ascending.
// Hosts seen only through responses are not listed.
func (s Snapshot) Hosts() []string {
	hosts := make([]string, 0, len(s.Requests.OutByteCount))
	for h := range s.Requests.OutByteCount {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Host returns the combined counters of a host. Missing entries read as zero.
func (s Snapshot) Host(host string) HostStats {
	return HostStats{
		Host:        host,
		OutMessages: s.Requests.OutMessageCount[host],
		InMessages:  s.Responses.InMessageCount[host],
		OutBytes:    s.Requests.OutByteCount[host],
		InBytes:     s.Responses.InByteCount[host],
	}
}

// HostList returns Host for every entry of Hosts.
func (s Snapshot) HostList() []HostStats {
	hosts := s.Hosts()
	out := make([]HostStats, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, s.Host(h))
	}
	return out
}

// HasHost reports whether the host sent at least one request.
func (s Snapshot) HasHost(host string) bool {
	_, ok := s.Requests.OutByteCount[host]
	return ok
}

// SnapshotFromHosts rebuilds the counter tables from a per-host list.
func SnapshotFromHosts(hosts []HostStats) Snapshot {
	s := EmptySnapshot()
	for _, h := range hosts {
		s.Requests.OutByteCount[h.Host] = h.OutBytes
		s.Requests.OutMessageCount[h.Host] = h.OutMessages
		s.Responses.InByteCount[h.Host] = h.InBytes
		s.Responses.InMessageCount[h.Host] = h.InMessages
	}
	return s
}
