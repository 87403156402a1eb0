package stats

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"HttpSpectra/internal/model"
)

// RenderSummary renders one line per host that sent a request, sorted by
// host. previous is accepted for rate computations and not used here.
func RenderSummary(current, previous model.Snapshot) []string {
	hosts := current.Hosts()
	lines := make([]string, 0, len(hosts))
	for _, host := range hosts {
		lines = append(lines, summaryLine(current.Host(host)))
	}
	return lines
}

func summaryLine(h model.HostStats) string {
	return fmt.Sprintf("%s: %d packets (%d OUT / %d IN) Traffic: %dB (%dB OUT / %dB IN)",
		h.Host, h.TotalPackets(), h.OutMessages, h.InMessages,
		h.TotalBytes(), h.OutBytes, h.InBytes)
}

// RenderRates renders per-host message and byte rates over elapsed, computed
// from the difference between the two snapshots.
func RenderRates(current, previous model.Snapshot, elapsed time.Duration) []string {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return nil
	}
	hosts := current.Hosts()
	lines := make([]string, 0, len(hosts))
	for _, host := range hosts {
		cur, prev := current.Host(host), previous.Host(host)
		out := float64(delta(cur.OutMessages, prev.OutMessages)) / secs
		in := float64(delta(cur.InMessages, prev.InMessages)) / secs
		outB := float64(delta(cur.OutBytes, prev.OutBytes)) / secs
		inB := float64(delta(cur.InBytes, prev.InBytes)) / secs
		lines = append(lines, fmt.Sprintf("%s: %.3f packets/s (%.3f OUT / %.3f IN) Traffic: %.3fB/s (%.3fB/s OUT / %.3fB/s IN)",
			host, out+in, out, in, outB+inB, outB, inB))
	}
	return lines
}

func delta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// RenderMethods renders the request method table, most frequent first.
func RenderMethods(s model.Snapshot) []string {
	return newTablePrinter([]string{"Method", "Count"}, []int{9, 5}).render(byCount(s.Methods))
}

// RenderStatusCodes renders the response status table ordered by status.
func RenderStatusCodes(s model.Snapshot) []string {
	rows := make([][]string, 0, len(s.StatusCodes))
	keys := make([]string, 0, len(s.StatusCodes))
	for k := range s.StatusCodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprintf("%d", s.StatusCodes[k])})
	}
	return newTablePrinter([]string{"Status Code", "Count"}, []int{28, 5}).render(rows)
}

// RenderContentTypes renders the response content type table ordered by type.
func RenderContentTypes(s model.Snapshot) []string {
	keys := make([]string, 0, len(s.ContentTypes))
	for k := range s.ContentTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprintf("%d", s.ContentTypes[k])})
	}
	return newTablePrinter([]string{"Content-type", "Count"}, []int{30, 5}).render(rows)
}

// RenderHostnames renders the request count per host, most requested first.
// Ties are ordered by host descending. Requests without a Host header are
// not listed.
func RenderHostnames(s model.Snapshot) []string {
	counts := s.Requests.OutMessageCount
	hosts := make([]string, 0, len(counts))
	for h := range counts {
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	sort.Slice(hosts, func(i, j int) bool {
		if counts[hosts[i]] == counts[hosts[j]] {
			return hosts[i] > hosts[j]
		}
		return counts[hosts[i]] > counts[hosts[j]]
	})
	rows := make([][]string, 0, len(hosts))
	for _, h := range hosts {
		rows = append(rows, []string{h, fmt.Sprintf("%d", counts[h])})
	}
	return newTablePrinter([]string{"Hostname", "Count"}, []int{40, 5}).render(rows)
}

// byCount orders a table by descending count, then by key.
func byCount(m map[string]uint64) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] == m[keys[j]] {
			return keys[i] < keys[j]
		}
		return m[keys[i]] > m[keys[j]]
	})
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprintf("%d", m[k])})
	}
	return rows
}

// Reporter renders the aggregator's counters on each tick and keeps the
// previous snapshot as the baseline for rate lines.
type Reporter struct {
	mu       sync.Mutex
	previous model.Snapshot
}

// NewReporter creates a reporter with an empty baseline.
func NewReporter() *Reporter {
	return &Reporter{previous: model.EmptySnapshot()}
}

// Report renders the summary of src and advances the baseline.
func (r *Reporter) Report(src model.Aggregator) []string {
	current := src.Snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()
	lines := RenderSummary(current, r.previous)
	r.previous = current
	return lines
}

// ReportRates renders the rates since the last Report or ReportRates call and
// advances the baseline. The first call has no baseline and returns nil.
func (r *Reporter) ReportRates(src model.Aggregator) []string {
	current := src.Snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()
	var lines []string
	if !r.previous.TakenAt.IsZero() {
		lines = RenderRates(current, r.previous, current.TakenAt.Sub(r.previous.TakenAt))
	}
	r.previous = current
	return lines
}

// Previous returns the current baseline.
func (r *Reporter) Previous() model.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.previous
}
