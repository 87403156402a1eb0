package writer

import (
	"context"
	"fmt"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/factory"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createHostMetricsTable = `
CREATE TABLE IF NOT EXISTS host_metrics (
    Timestamp   DateTime,
    Host        String,
    OutMessages UInt64,
    InMessages  UInt64,
    OutBytes    UInt64,
    InBytes     UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Host, Timestamp);
`

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, interval time.Duration) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse, interval)
	})
}

// ClickHouseWriter inserts one row per host and snapshot into host_metrics.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter connects and makes sure the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration) (*ClickHouseWriter, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	if err := conn.Exec(ctx, createHostMetricsTable); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	logging.Infof("Connected to ClickHouse at %s:%d", cfg.Host, cfg.Port)

	return &ClickHouseWriter{conn: conn, interval: interval}, nil
}

func (w *ClickHouseWriter) Name() string { return "clickhouse" }

// GetInterval returns the configured snapshot interval for this writer.
func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

// Write sends one batch with a row per host.
func (w *ClickHouseWriter) Write(snapshot model.Snapshot, timestamp time.Time) error {
	rows := hostRows(snapshot, timestamp)
	if len(rows) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO host_metrics")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, r := range rows {
		if err := batch.Append(r.Timestamp, r.Host, r.OutMessages, r.InMessages, r.OutBytes, r.InBytes); err != nil {
			return fmt.Errorf("failed to append host to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	logging.Debugf("Wrote %d hosts to ClickHouse", len(rows))
	return nil
}

func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// hostRow is the flat row layout shared by the SQL writers.
type hostRow struct {
	Timestamp time.Time
	model.HostStats
}

func hostRows(snapshot model.Snapshot, timestamp time.Time) []hostRow {
	hosts := snapshot.HostList()
	rows := make([]hostRow, 0, len(hosts))
	for _, h := range hosts {
		rows = append(rows, hostRow{Timestamp: timestamp.UTC().Truncate(time.Second), HostStats: h})
	}
	return rows
}
