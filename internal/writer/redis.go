package writer

import (
	"context"
	"fmt"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/factory"
	"HttpSpectra/internal/model"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "httpspectra"

func init() {
	factory.RegisterWriter("redis", func(def config.WriterDef, interval time.Duration) (model.Writer, error) {
		return NewRedisWriter(def.Redis, interval)
	})
}

// RedisWriter keeps the latest counters of every host in a hash
// "<prefix>:host:<host>" so other services can read them without the API.
type RedisWriter struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	interval time.Duration
}

// NewRedisWriter connects to Redis and verifies the connection.
func NewRedisWriter(cfg config.RedisConfig, interval time.Duration) (*RedisWriter, error) {
	var ttl time.Duration
	if cfg.TTL != "" {
		d, err := time.ParseDuration(cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis ttl: %w", err)
		}
		ttl = d
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return &RedisWriter{client: client, prefix: prefix, ttl: ttl, interval: interval}, nil
}

func (w *RedisWriter) Name() string { return "redis" }

// GetInterval returns the configured snapshot interval for this writer.
func (w *RedisWriter) GetInterval() time.Duration {
	return w.interval
}

// Write stores every host hash in one pipeline.
func (w *RedisWriter) Write(snapshot model.Snapshot, timestamp time.Time) error {
	hosts := snapshot.HostList()
	if len(hosts) == 0 {
		return nil
	}

	ctx := context.Background()
	pipe := w.client.Pipeline()
	for _, h := range hosts {
		key := hostKey(w.prefix, h.Host)
		pipe.HSet(ctx, key, hostFields(h, timestamp))
		if w.ttl > 0 {
			pipe.Expire(ctx, key, w.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write hosts to redis: %w", err)
	}
	return nil
}

func (w *RedisWriter) Close() error {
	return w.client.Close()
}

func hostKey(prefix, host string) string {
	return fmt.Sprintf("%s:host:%s", prefix, host)
}

func hostFields(h model.HostStats, timestamp time.Time) map[string]interface{} {
	return map[string]interface{}{
		"out_messages": h.OutMessages,
		"in_messages":  h.InMessages,
		"out_bytes":    h.OutBytes,
		"in_bytes":     h.InBytes,
		"updated_at":   timestamp.Unix(),
	}
}
