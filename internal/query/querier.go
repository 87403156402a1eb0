package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoBackend is returned by NewFromConfig when no queryable writer is enabled.
var ErrNoBackend = errors.New("no enabled clickhouse or sqlite writer")

const defaultLimit = 1000

// HistoryRequest selects the stored snapshots of one host.
type HistoryRequest struct {
	Host  string
	Since time.Time
	Until time.Time
	Limit int
}

// HostPoint is one stored snapshot row of a host.
type HostPoint struct {
	Timestamp time.Time `json:"timestamp"`
	model.HostStats
}

// Querier defines the interface for reading host history back from storage.
type Querier interface {
	HostHistory(ctx context.Context, req HistoryRequest) ([]HostPoint, error)
	Close() error
}

// dialect captures the differences between the host_metrics (ClickHouse) and
// host_traffic (SQLite) layouts.
type dialect struct {
	table   string
	columns [6]string // timestamp, host, out msgs, in msgs, out bytes, in bytes
	timeArg func(time.Time) interface{}
}

var clickhouseDialect = dialect{
	table:   "host_metrics",
	columns: [6]string{"Timestamp", "Host", "OutMessages", "InMessages", "OutBytes", "InBytes"},
	timeArg: func(t time.Time) interface{} { return t.UTC() },
}

var sqliteDialect = dialect{
	table:   "host_traffic",
	columns: [6]string{"timestamp", "host", "out_messages", "in_messages", "out_bytes", "in_bytes"},
	timeArg: func(t time.Time) interface{} { return t.Unix() },
}

// buildHistoryQuery builds the SELECT for a history request.
func buildHistoryQuery(d dialect, req HistoryRequest) (string, []interface{}) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + strings.Join(d.columns[:], ", ") + " FROM " + d.table)

	whereClauses := []string{d.columns[1] + " = ?"}
	args := []interface{}{req.Host}

	if !req.Since.IsZero() {
		whereClauses = append(whereClauses, d.columns[0]+" >= ?")
		args = append(args, d.timeArg(req.Since))
	}
	if !req.Until.IsZero() {
		whereClauses = append(whereClauses, d.columns[0]+" <= ?")
		args = append(args, d.timeArg(req.Until))
	}
	queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s ASC LIMIT %d", d.columns[0], limit))
	return queryBuilder.String(), args
}

// NewFromConfig opens a querier on the first enabled writer that stores rows,
// preferring ClickHouse.
func NewFromConfig(cfg *config.Config) (Querier, error) {
	var sqliteDef *config.WriterDef
	for i := range cfg.Writers {
		def := &cfg.Writers[i]
		if !def.Enabled {
			continue
		}
		switch def.Type {
		case "clickhouse":
			return NewClickHouseQuerier(def.ClickHouse)
		case "sqlite":
			if sqliteDef == nil {
				sqliteDef = def
			}
		}
	}
	if sqliteDef != nil {
		return NewSQLiteQuerier(sqliteDef.SQLite.Path)
	}
	return nil, ErrNoBackend
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func (q *clickhouseQuerier) HostHistory(ctx context.Context, req HistoryRequest) ([]HostPoint, error) {
	query, args := buildHistoryQuery(clickhouseDialect, req)
	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var points []HostPoint
	for rows.Next() {
		var p HostPoint
		if err := rows.Scan(&p.Timestamp, &p.Host, &p.OutMessages, &p.InMessages, &p.OutBytes, &p.InBytes); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (q *clickhouseQuerier) Close() error {
	return q.conn.Close()
}

// sqliteQuerier implements the Querier interface for the sqlite writer's database.
type sqliteQuerier struct {
	db *sql.DB
}

// NewSQLiteQuerier opens the database file written by the sqlite writer.
func NewSQLiteQuerier(path string) (Querier, error) {
	if path == "" {
		path = "data/traffic.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return &sqliteQuerier{db: db}, nil
}

func (q *sqliteQuerier) HostHistory(ctx context.Context, req HistoryRequest) ([]HostPoint, error) {
	query, args := buildHistoryQuery(sqliteDialect, req)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var points []HostPoint
	for rows.Next() {
		var (
			p                                  HostPoint
			ts, outMsg, inMsg, outByte, inByte int64
		)
		if err := rows.Scan(&ts, &p.Host, &outMsg, &inMsg, &outByte, &inByte); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		p.OutMessages, p.InMessages = uint64(outMsg), uint64(inMsg)
		p.OutBytes, p.InBytes = uint64(outByte), uint64(inByte)
		points = append(points, p)
	}
	return points, rows.Err()
}

func (q *sqliteQuerier) Close() error {
	return q.db.Close()
}
