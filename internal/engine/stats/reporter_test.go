package stats

import (
	"testing"
	"time"

	"HttpSpectra/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSummary_Scenario(t *testing.T) {
	agg := NewAggregator()
	ingestAll(agg,
		model.RequestEvent("example.com", 120),
		model.ResponseEvent(340),
		model.RequestEvent("example.com", 80),
		model.ResponseEvent(600),
	)

	lines := RenderSummary(agg.Snapshot(), model.EmptySnapshot())
	require.Len(t, lines, 1)
	assert.Equal(t, "example.com: 4 packets (2 OUT / 2 IN) Traffic: 1140B (200B OUT / 940B IN)", lines[0])
}

func TestRenderSummary_SortedAndZeroFilled(t *testing.T) {
	agg := NewAggregator()
	ingestAll(agg,
		model.RequestEvent("zeta.io", 5),
		model.RequestEvent("alpha.io", 7),
		model.ResponseEvent(3),
		model.RequestEvent("mid.io", 1),
	)
	// zeta.io has no response at all

	lines := RenderSummary(agg.Snapshot(), model.EmptySnapshot())
	assert.Equal(t, []string{
		"alpha.io: 2 packets (1 OUT / 1 IN) Traffic: 10B (7B OUT / 3B IN)",
		"mid.io: 1 packets (1 OUT / 0 IN) Traffic: 1B (1B OUT / 0B IN)",
		"zeta.io: 1 packets (1 OUT / 0 IN) Traffic: 5B (5B OUT / 0B IN)",
	}, lines)
}

func TestRenderSummary_Empty(t *testing.T) {
	assert.Empty(t, RenderSummary(model.EmptySnapshot(), model.EmptySnapshot()))
	assert.Empty(t, RenderSummary(model.Snapshot{}, model.Snapshot{}))
}

func TestReporter_Idempotent(t *testing.T) {
	agg := NewAggregator()
	ingestAll(agg, model.RequestEvent("a", 1), model.ResponseEvent(2), model.RequestEvent("b", 3))

	reporter := NewReporter()
	first := reporter.Report(agg)
	second := reporter.Report(agg)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestReporter_AdvancesBaseline(t *testing.T) {
	agg := NewAggregator()
	reporter := NewReporter()
	assert.Empty(t, reporter.Previous().Hosts())

	agg.Ingest(model.RequestEvent("a", 10))
	reporter.Report(agg)
	assert.Equal(t, uint64(10), reporter.Previous().Host("a").OutBytes)

	agg.Ingest(model.RequestEvent("a", 5))
	assert.Equal(t, uint64(10), reporter.Previous().Host("a").OutBytes)
	reporter.Report(agg)
	assert.Equal(t, uint64(15), reporter.Previous().Host("a").OutBytes)
}

func TestRenderRates(t *testing.T) {
	previous := model.EmptySnapshot()
	previous.Requests.OutByteCount["a"] = 100
	previous.Requests.OutMessageCount["a"] = 1

	current := model.EmptySnapshot()
	current.Requests.OutByteCount["a"] = 300
	current.Requests.OutMessageCount["a"] = 3
	current.Responses.InByteCount["a"] = 1000
	current.Responses.InMessageCount["a"] = 2

	lines := RenderRates(current, previous, 2*time.Second)
	require.Len(t, lines, 1)
	assert.Equal(t, "a: 2.000 packets/s (1.000 OUT / 1.000 IN) Traffic: 600.000B/s (100.000B/s OUT / 500.000B/s IN)", lines[0])

	assert.Nil(t, RenderRates(current, previous, 0))
}

func TestReporter_ReportRates(t *testing.T) {
	agg := NewAggregator()
	reporter := NewReporter()
	agg.Ingest(model.RequestEvent("a", 10))

	assert.Nil(t, reporter.ReportRates(agg))

	time.Sleep(10 * time.Millisecond)
	agg.Ingest(model.RequestEvent("a", 10))
	lines := reporter.ReportRates(agg)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "a: ")
	assert.Contains(t, lines[0], "packets/s")
}

func TestRenderMethodsAndStatusCodes(t *testing.T) {
	snap := model.EmptySnapshot()
	snap.Methods["GET"] = 3
	snap.Methods["POST"] = 5
	snap.Methods["PUT"] = 3
	snap.StatusCodes["404 Not Found"] = 1
	snap.StatusCodes["200 OK"] = 7

	methods := RenderMethods(snap)
	require.Len(t, methods, 7)
	assert.Equal(t, "| Method    | Count |", methods[1])
	assert.Equal(t, "| POST      | 5     |", methods[3])
	assert.Equal(t, "| GET       | 3     |", methods[4])
	assert.Equal(t, "| PUT       | 3     |", methods[5])
	assert.Equal(t, methods[0], methods[len(methods)-1])

	codes := RenderStatusCodes(snap)
	require.Len(t, codes, 6)
	assert.Contains(t, codes[3], "200 OK")
	assert.Contains(t, codes[4], "404 Not Found")
}

func TestRenderContentTypes(t *testing.T) {
	snap := model.EmptySnapshot()
	snap.ContentTypes["text/html"] = 4
	snap.ContentTypes["application/json"] = 9

	lines := RenderContentTypes(snap)
	require.Len(t, lines, 6)
	assert.Equal(t, "| Content-type                   | Count |", lines[1])
	assert.Equal(t, "| application/json               | 9     |", lines[3])
	assert.Equal(t, "| text/html                      | 4     |", lines[4])
}

func TestRenderHostnames(t *testing.T) {
	snap := model.EmptySnapshot()
	snap.Requests.OutMessageCount["a.com"] = 2
	snap.Requests.OutMessageCount["b.com"] = 2
	snap.Requests.OutMessageCount["c.com"] = 5
	snap.Requests.OutMessageCount[""] = 9

	lines := RenderHostnames(snap)
	require.Len(t, lines, 7)
	assert.Equal(t, "| Hostname                                 | Count |", lines[1])
	// Most requested first, ties by host descending, no Host-less row.
	assert.Contains(t, lines[3], "| c.com ")
	assert.Contains(t, lines[4], "| b.com ")
	assert.Contains(t, lines[5], "| a.com ")
}
