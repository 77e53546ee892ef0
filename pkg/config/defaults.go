package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittoio/pkg/cache"
	"github.com/marmos91/dittoio/pkg/scheduler"
	"github.com/marmos91/dittoio/pkg/transfer/store/sqldb"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(cfg)
	cfg.API.ApplyDefaults()
	applyCacheDefaults(&cfg.Cache)
	applyIODefaults(&cfg.IO)
	applyRecordsDefaults(&cfg.Records, cfg.Cache.Root)
	applyHandlersDefaults(&cfg.Handlers)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets the port only when metrics are on.
func applyMetricsDefaults(cfg *Config) {
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	// Root has no default outside GetDefaultConfig: it must be chosen.
	if cfg.Layout == "" {
		cfg.Layout = string(cache.LayoutHashed)
	}
}

func applyIODefaults(cfg *IOConfig) {
	d := scheduler.DefaultConfig()
	if cfg.Workers == 0 {
		cfg.Workers = d.Workers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = d.QueueSize
	}
	if cfg.TaskTimeout == 0 {
		cfg.TaskTimeout = d.TaskTimeout
	}
}

// applyRecordsDefaults places on-disk backends next to the cache unless a
// path is given.
func applyRecordsDefaults(cfg *RecordsConfig, cacheRoot string) {
	if cfg.Backend == "" {
		cfg.Backend = RecordsMemory
	}
	if cfg.Retention > 0 && cfg.PruneInterval == 0 {
		cfg.PruneInterval = 10 * time.Minute
	}

	base := filepath.Dir(filepath.Clean(cacheRoot))
	switch cfg.Backend {
	case RecordsBadger:
		if cfg.Badger.Path == "" && !cfg.Badger.InMemory && cacheRoot != "" {
			cfg.Badger.Path = filepath.Join(base, "records")
		}
	case RecordsSQL:
		cfg.SQL.ApplyDefaults()
		if cfg.SQL.Type == sqldb.DatabaseTypeSQLite && cfg.SQL.SQLite.Path == "" && cacheRoot != "" {
			cfg.SQL.SQLite.Path = filepath.Join(base, "records.db")
		}
	}
}

func applyHandlersDefaults(cfg *HandlersConfig) {
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = "dittoio"
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 10 * time.Minute
	}
	if cfg.S3.MaxRetries == 0 {
		cfg.S3.MaxRetries = 3
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Cache: CacheConfig{
			Root: filepath.Join("/tmp", "dittoio", "cache"),
		},
		IO: IOConfig{
			Async: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
