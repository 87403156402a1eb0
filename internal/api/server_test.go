package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"HttpSpectra/internal/engine/stats"
	"HttpSpectra/internal/model"
	"HttpSpectra/internal/query"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func scenarioAggregator() *stats.Aggregator {
	agg := stats.NewAggregator()
	for _, ev := range []model.Event{
		{Kind: model.EventRequest, Host: "example.com", ByteSize: 100, Method: "GET"},
		{Kind: model.EventResponse, ByteSize: 500, StatusCode: 200, StatusText: "OK", ContentType: "text/html"},
		{Kind: model.EventRequest, Host: "example.com", ByteSize: 100, Method: "GET"},
		{Kind: model.EventResponse, ByteSize: 440, StatusCode: 304, StatusText: "Not Modified"},
	} {
		agg.Ingest(ev)
	}
	return agg
}

type fakeQuerier struct {
	got    query.HistoryRequest
	points []query.HostPoint
	err    error
}

func (f *fakeQuerier) HostHistory(_ context.Context, req query.HistoryRequest) ([]query.HostPoint, error) {
	f.got = req
	return f.points, f.err
}

func (f *fakeQuerier) Close() error { return nil }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSummaryEndpoint(t *testing.T) {
	s := NewServer(":0", scenarioAggregator(), nil)
	rec := get(t, s.Handler(), "/api/v1/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"example.com: 4 packets (2 OUT / 2 IN) Traffic: 1140B (200B OUT / 940B IN)"}, body.Lines)
}

func TestSummaryEndpoint_Empty(t *testing.T) {
	s := NewServer(":0", stats.NewAggregator(), nil)
	rec := get(t, s.Handler(), "/api/v1/summary")
	assert.JSONEq(t, `[]`, mustField(t, rec.Body.Bytes(), "lines"))
}

func mustField(t *testing.T, data []byte, field string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	return string(m[field])
}

func TestHostsEndpoints(t *testing.T) {
	agg := scenarioAggregator()
	agg.Ingest(model.RequestEvent("api.example.com", 10))
	s := NewServer(":0", agg, nil)

	rec := get(t, s.Handler(), "/api/v1/hosts")
	require.Equal(t, http.StatusOK, rec.Code)
	var hosts []model.HostStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hosts))
	require.Len(t, hosts, 2)
	assert.Equal(t, "api.example.com", hosts[0].Host)
	assert.Equal(t, "example.com", hosts[1].Host)

	rec = get(t, s.Handler(), "/api/v1/hosts/example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"host":"example.com","out_messages":2,"in_messages":2,"out_bytes":200,"in_bytes":940}`,
		rec.Body.String())

	rec = get(t, s.Handler(), "/api/v1/hosts/unknown.org")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodAndStatusEndpoints(t *testing.T) {
	s := NewServer(":0", scenarioAggregator(), nil)

	rec := get(t, s.Handler(), "/api/v1/methods")
	assert.JSONEq(t, `{"GET":2}`, rec.Body.String())

	rec = get(t, s.Handler(), "/api/v1/status")
	assert.JSONEq(t, `{"200 OK":1,"304 Not Modified":1}`, rec.Body.String())

	rec = get(t, s.Handler(), "/api/v1/content-types")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text/html":1}`, rec.Body.String())
}

func TestHistoryEndpoint(t *testing.T) {
	s := NewServer(":0", scenarioAggregator(), nil)
	rec := get(t, s.Handler(), "/api/v1/hosts/example.com/history")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	q := &fakeQuerier{points: []query.HostPoint{{Timestamp: ts, HostStats: model.HostStats{Host: "example.com", OutBytes: 5}}}}
	s = NewServer(":0", scenarioAggregator(), q)

	rec = get(t, s.Handler(), "/api/v1/hosts/example.com/history?since=2024-05-01T00:00:00Z&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "example.com", q.got.Host)
	assert.Equal(t, 5, q.got.Limit)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), q.got.Since)
	assert.Contains(t, rec.Body.String(), `"out_bytes":5`)
	assert.Contains(t, rec.Body.String(), `"timestamp":"2024-05-01T12:00:00Z"`)

	rec = get(t, s.Handler(), "/api/v1/hosts/example.com/history?since=yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s.Handler(), "/api/v1/hosts/example.com/history?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	q.err = errors.New("boom")
	rec = get(t, s.Handler(), "/api/v1/hosts/example.com/history")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	agg := scenarioAggregator()
	s := NewServer(":0", agg, nil)

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `httpspectra_host_bytes_total{direction="in",host="example.com"} 940`)
	assert.Contains(t, text, `httpspectra_host_messages_total{direction="out",host="example.com"} 2`)
	assert.Contains(t, text, `httpspectra_requests_by_method_total{method="GET"} 2`)
	assert.True(t, strings.Contains(text, `httpspectra_responses_by_status_total{status="200 OK"} 1`))
}

func seriesCount(t *testing.T, c prometheus.Collector) int {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)
	n := 0
	for _, f := range families {
		n += len(f.GetMetric())
	}
	return n
}

func TestHostCollector_Count(t *testing.T) {
	// 4 series per host, 1 method, 2 status lines.
	assert.Equal(t, 7, seriesCount(t, NewHostCollector(scenarioAggregator())))
	assert.Equal(t, 0, seriesCount(t, NewHostCollector(stats.NewAggregator())))
}

func TestHealthServer(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	h := NewHealthServer("bufnet")
	go func() { _ = h.Serve(lis) }()
	defer h.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(""))
	h.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ServiceName))
	h.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(ServiceName))
}
