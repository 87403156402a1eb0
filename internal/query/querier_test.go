package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/model"
	"HttpSpectra/internal/writer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHistoryQuery(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildHistoryQuery(clickhouseDialect, HistoryRequest{Host: "example.com", Since: since, Limit: 10})

	assert.Equal(t,
		"SELECT Timestamp, Host, OutMessages, InMessages, OutBytes, InBytes FROM host_metrics"+
			" WHERE Host = ? AND Timestamp >= ? ORDER BY Timestamp ASC LIMIT 10",
		query)
	assert.Equal(t, []interface{}{"example.com", since}, args)

	query, args = buildHistoryQuery(sqliteDialect, HistoryRequest{Host: "", Until: since})
	assert.Contains(t, query, "FROM host_traffic WHERE host = ? AND timestamp <= ?")
	assert.Contains(t, query, "LIMIT 1000")
	assert.Equal(t, []interface{}{"", since.Unix()}, args)
}

func TestSQLiteQuerier_HostHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.db")
	w, err := writer.NewSQLiteWriter(path, time.Minute)
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		s := model.EmptySnapshot()
		s.Requests.OutByteCount["example.com"] = uint64(100 * i)
		s.Requests.OutMessageCount["example.com"] = uint64(i)
		s.Responses.InByteCount["example.com"] = uint64(470 * i)
		s.Responses.InMessageCount["example.com"] = uint64(i)
		s.Requests.OutByteCount["other"] = 1
		s.Requests.OutMessageCount["other"] = 1
		require.NoError(t, w.Write(s, base.Add(time.Duration(i)*time.Minute)))
	}
	require.NoError(t, w.Close())

	q, err := NewSQLiteQuerier(path)
	require.NoError(t, err)
	defer q.Close()

	points, err := q.HostHistory(context.Background(), HistoryRequest{Host: "example.com", Since: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, base.Add(2*time.Minute), points[0].Timestamp)
	assert.Equal(t, uint64(200), points[0].OutBytes)
	assert.Equal(t, uint64(1410), points[1].InBytes)
	assert.Equal(t, uint64(6), points[1].TotalPackets())
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewFromConfig(cfg)
	assert.ErrorIs(t, err, ErrNoBackend)

	path := filepath.Join(t.TempDir(), "traffic.db")
	cfg.Writers = []config.WriterDef{
		{Type: "sqlite", Enabled: false, SQLite: config.SQLiteConfig{Path: "ignored.db"}},
		{Type: "sqlite", Enabled: true, SQLite: config.SQLiteConfig{Path: path}},
	}
	q, err := NewFromConfig(cfg)
	require.NoError(t, err)
	require.NoError(t, q.Close())
}
