// Package config loads and validates scraper configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/lto-plan-scraper/internal/aggregate"
	"github.com/JakeFAU/lto-plan-scraper/internal/export"
)

// EnvPrefix namespaces environment overrides, e.g. PLANSCRAPER_SOURCE_BASE_URL.
const EnvPrefix = "PLANSCRAPER"

// Progress modes.
const (
	ProgressSpinner = "spinner"
	ProgressLog     = "log"
	ProgressNone    = "none"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Export   ExportConfig   `mapstructure:"export"`
	DB       DBConfig       `mapstructure:"db"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Progress ProgressConfig `mapstructure:"progress"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// SourceConfig describes the registry site and how the browser talks to it.
type SourceConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	UserAgent           string `mapstructure:"user_agent"`
	NavTimeoutSeconds   int    `mapstructure:"nav_timeout_seconds"`
	Headless            bool   `mapstructure:"headless"`
	ProbeTimeoutSeconds int    `mapstructure:"probe_timeout_seconds"`
	SkipProbe           bool   `mapstructure:"skip_probe"`

	// RequestsPerSecond caps navigations against the registry host. Zero
	// disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// SweepConfig governs merge and dedup behavior.
type SweepConfig struct {
	MergePolicy      string `mapstructure:"merge_policy"`
	DedupAcrossCells bool   `mapstructure:"dedup_across_cells"`
	IncludeLot       bool   `mapstructure:"include_lot"`
}

// ExportConfig selects the output encoding and destination.
type ExportConfig struct {
	Format    string `mapstructure:"format"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	// DryRun keeps exports in memory instead of writing them anywhere.
	DryRun bool `mapstructure:"dry_run"`
}

// DBConfig controls optional Postgres persistence. An empty DSN disables it.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	RunsTable    string `mapstructure:"runs_table"`
	RecordsTable string `mapstructure:"records_table"`
	MaxConns     int32  `mapstructure:"max_conns"`
}

// MetricsConfig enables the ops HTTP server when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ProgressConfig selects the interactive reporter and sizes the event hub.
type ProgressConfig struct {
	Mode           string `mapstructure:"mode"`
	BufferSize     int    `mapstructure:"buffer_size"`
	MaxBatchEvents int    `mapstructure:"max_batch_events"`
	MaxBatchWaitMs int    `mapstructure:"max_batch_wait_ms"`
	SinkTimeoutMs  int    `mapstructure:"sink_timeout_ms"`
}

// TracingConfig turns on OpenTelemetry spans around registry searches.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	// ProjectID exports spans to Google Cloud Trace.
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. With an empty path it looks
// for planscraper.yaml in the working directory and in $HOME/.planscraper;
// a missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("planscraper")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.planscraper")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://tprmb.ca")
	v.SetDefault("source.user_agent", "")
	v.SetDefault("source.nav_timeout_seconds", 45)
	v.SetDefault("source.headless", true)
	v.SetDefault("source.probe_timeout_seconds", 15)
	v.SetDefault("source.skip_probe", false)
	v.SetDefault("source.requests_per_second", 1.0)
	v.SetDefault("source.burst", 2)
	v.SetDefault("sweep.merge_policy", "longest_comments")
	v.SetDefault("sweep.dedup_across_cells", false)
	v.SetDefault("sweep.include_lot", false)
	v.SetDefault("export.format", "csv")
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.gcs_bucket", "")
	v.SetDefault("export.prefix", "")
	v.SetDefault("export.dry_run", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.runs_table", "sweep_runs")
	v.SetDefault("db.records_table", "plan_records")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("progress.mode", ProgressSpinner)
	v.SetDefault("progress.buffer_size", 256)
	v.SetDefault("progress.max_batch_events", 32)
	v.SetDefault("progress.max_batch_wait_ms", 500)
	v.SetDefault("progress.sink_timeout_ms", 2000)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "lto-plan-scraper")
	v.SetDefault("tracing.project_id", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source.base_url must be an absolute URL, got %q", c.Source.BaseURL)
	}
	if c.Source.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("source.nav_timeout_seconds must be > 0")
	}
	if c.Source.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("source.probe_timeout_seconds must be > 0")
	}
	if c.Source.RequestsPerSecond < 0 {
		return fmt.Errorf("source.requests_per_second must be >= 0")
	}
	if _, err := aggregate.ParseMergePolicy(c.Sweep.MergePolicy); err != nil {
		return fmt.Errorf("sweep.merge_policy: %w", err)
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return fmt.Errorf("export.format: %w", err)
	}
	if !c.Export.DryRun && c.Export.GCSBucket == "" && strings.TrimSpace(c.Export.Dir) == "" {
		return fmt.Errorf("export.dir must be set when export.gcs_bucket is empty")
	}
	if c.DB.DSN != "" && c.DB.MaxConns <= 0 {
		return fmt.Errorf("db.max_conns must be > 0 when db.dsn is set")
	}
	switch c.Progress.Mode {
	case ProgressSpinner, ProgressLog, ProgressNone:
	default:
		return fmt.Errorf("progress.mode must be one of spinner, log, none; got %q", c.Progress.Mode)
	}
	if c.Progress.BufferSize <= 0 {
		return fmt.Errorf("progress.buffer_size must be > 0")
	}
	if c.Tracing.Enabled && strings.TrimSpace(c.Tracing.ServiceName) == "" {
		return fmt.Errorf("tracing.service_name must be set when tracing is enabled")
	}
	return nil
}

// NavTimeout converts the navigation timeout into a duration.
func (c SourceConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// ProbeTimeout converts the probe timeout into a duration.
func (c SourceConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// MaxBatchWait converts the hub batch window into a duration.
func (c ProgressConfig) MaxBatchWait() time.Duration {
	return time.Duration(c.MaxBatchWaitMs) * time.Millisecond
}

// SinkTimeout converts the per-batch sink deadline into a duration.
func (c ProgressConfig) SinkTimeout() time.Duration {
	return time.Duration(c.SinkTimeoutMs) * time.Millisecond
}
