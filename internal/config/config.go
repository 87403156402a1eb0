package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"HttpSpectra/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CorrelatorLastHost = model.CorrelatorLastHost
	CorrelatorFlow     = model.CorrelatorFlow
)

// Metrics an alerter rule can watch.
const (
	MetricOutBytes     = "out_bytes"
	MetricInBytes      = "in_bytes"
	MetricTotalBytes   = "total_bytes"
	MetricOutMessages  = "out_messages"
	MetricInMessages   = "in_messages"
	MetricTotalPackets = "total_packets"
)

// AnalyzerConfig holds the settings of the stats engine and its report loop.
type AnalyzerConfig struct {
	Port               int    `yaml:"port"`
	ReportInterval     string `yaml:"report_interval"`
	DisableReport      bool   `yaml:"disable_report"`
	Detailed           bool   `yaml:"detailed"`
	Correlator         string `yaml:"correlator"`
	OutputFile         string `yaml:"output_file"`
	SizeOfEventChannel int    `yaml:"size_of_event_channel"`
}

// LoggingConfig controls the logrus logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// ProbeConfig holds the NATS settings shared by the publisher and subscriber.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds the HTTP and gRPC listener settings.
type APIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
}

// AlerterRule fires when Metric of a matching host exceeds Threshold.
// An empty Host matches every host.
type AlerterRule struct {
	Name      string `yaml:"name"`
	Host      string `yaml:"host"`
	Metric    string `yaml:"metric"`
	Threshold uint64 `yaml:"threshold"`
}

// SMTPConfig holds the mail relay used by the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// AlerterConfig holds the threshold rules and where alerts are sent.
type AlerterConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval string        `yaml:"check_interval"`
	Rules         []AlerterRule `yaml:"rules"`
	SMTP          SMTPConfig    `yaml:"smtp"`
}

// GobConfig holds settings for the gob snapshot writer.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// TextConfig holds settings for the text summary writer.
type TextConfig struct {
	Path string `yaml:"path"`
}

// ClickHouseConfig holds the connection settings for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SQLiteConfig holds the database file of the sqlite writer.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds the connection settings for Redis.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTL       string `yaml:"ttl"`
}

// WriterDef defines a single snapshot writer from the config file.
type WriterDef struct {
	Type             string           `yaml:"type"`
	Enabled          bool             `yaml:"enabled"`
	SnapshotInterval string           `yaml:"snapshot_interval"`
	Gob              GobConfig        `yaml:"gob"`
	Text             TextConfig       `yaml:"text"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
	SQLite           SQLiteConfig     `yaml:"sqlite"`
	Redis            RedisConfig      `yaml:"redis"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Logging  LoggingConfig  `yaml:"logging"`
	Probe    ProbeConfig    `yaml:"probe"`
	API      APIConfig      `yaml:"api"`
	Alerter  AlerterConfig  `yaml:"alerter"`
	Writers  []WriterDef    `yaml:"writers"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Analyzer: AnalyzerConfig{
			Port:               80,
			ReportInterval:     "2s",
			Correlator:         CorrelatorLastHost,
			SizeOfEventChannel: 1024,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Probe: ProbeConfig{
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "httpspectra.events",
		},
		API: APIConfig{
			ListenAddr: ":8080",
			GRPCAddr:   ":9090",
		},
		Alerter: AlerterConfig{
			CheckInterval: "30s",
		},
	}
}

// LoadConfig reads the configuration from a YAML file on top of the defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv applies HTTPSPECTRA_* environment overrides. When envFile
// exists it is loaded first; variables already set in the process win.
func LoadFromEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if val := os.Getenv("HTTPSPECTRA_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid HTTPSPECTRA_PORT %q: %w", val, err)
		}
		cfg.Analyzer.Port = port
	}
	if val := os.Getenv("HTTPSPECTRA_REPORT_INTERVAL"); val != "" {
		cfg.Analyzer.ReportInterval = val
	}
	if val := os.Getenv("HTTPSPECTRA_CORRELATOR"); val != "" {
		cfg.Analyzer.Correlator = val
	}
	if val := os.Getenv("HTTPSPECTRA_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("HTTPSPECTRA_LOG_FILE"); val != "" {
		cfg.Logging.File = val
	}
	if val := os.Getenv("HTTPSPECTRA_NATS_URL"); val != "" {
		cfg.Probe.NATSURL = val
	}
	if val := os.Getenv("HTTPSPECTRA_NATS_SUBJECT"); val != "" {
		cfg.Probe.Subject = val
	}
	if val := os.Getenv("HTTPSPECTRA_API_ADDR"); val != "" {
		cfg.API.ListenAddr = val
	}
	if val := os.Getenv("HTTPSPECTRA_GRPC_ADDR"); val != "" {
		cfg.API.GRPCAddr = val
	}
	return nil
}

// ReportPeriod parses the report interval.
func (c *Config) ReportPeriod() (time.Duration, error) {
	d, err := time.ParseDuration(c.Analyzer.ReportInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid report_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("report_interval must be a positive duration")
	}
	return d, nil
}

// Validate checks the values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	if c.Analyzer.Port <= 0 || c.Analyzer.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Analyzer.Port)
	}
	if _, err := c.ReportPeriod(); err != nil {
		return err
	}
	switch c.Analyzer.Correlator {
	case "", CorrelatorLastHost, CorrelatorFlow:
	default:
		return fmt.Errorf("unknown correlator: '%s'", c.Analyzer.Correlator)
	}
	if c.Analyzer.SizeOfEventChannel < 0 {
		return fmt.Errorf("size_of_event_channel must not be negative")
	}
	if c.Alerter.Enabled {
		d, err := time.ParseDuration(c.Alerter.CheckInterval)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid alerter check_interval: '%s'", c.Alerter.CheckInterval)
		}
		for _, r := range c.Alerter.Rules {
			switch r.Metric {
			case MetricOutBytes, MetricInBytes, MetricTotalBytes, MetricOutMessages, MetricInMessages, MetricTotalPackets:
			default:
				return fmt.Errorf("alerter rule '%s': unknown metric '%s'", r.Name, r.Metric)
			}
		}
	}
	for i, w := range c.Writers {
		if !w.Enabled {
			continue
		}
		if w.Type == "" {
			return fmt.Errorf("writer %d has no type", i)
		}
		if _, err := w.Interval(); err != nil {
			return fmt.Errorf("writer '%s': %w", w.Type, err)
		}
	}
	return nil
}

// Interval parses the snapshot interval of a writer.
func (w WriterDef) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(w.SnapshotInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid snapshot_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("snapshot_interval must be a positive duration")
	}
	return d, nil
}
