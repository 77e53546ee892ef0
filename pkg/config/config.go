package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/dittoio/pkg/api"
	"github.com/marmos91/dittoio/pkg/handler/http"
	"github.com/marmos91/dittoio/pkg/handler/s3"
	"github.com/marmos91/dittoio/pkg/metrics"
	"github.com/marmos91/dittoio/pkg/transfer/store/badger"
	"github.com/marmos91/dittoio/pkg/transfer/store/sqldb"
)

// EnvPrefix is the prefix of environment variable overrides
// (DITTOIO_LOGGING_LEVEL, DITTOIO_IO_ASYNC, ...).
const EnvPrefix = "DITTOIO"

// Config represents the dittoio configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOIO_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics metrics.Config `mapstructure:"metrics" yaml:"metrics"`

	// API contains REST API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Cache configures where fetched resources land locally
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// IO controls how transfers are executed
	IO IOConfig `mapstructure:"io" yaml:"io"`

	// Records selects where transfer records are persisted
	Records RecordsConfig `mapstructure:"records" yaml:"records"`

	// Handlers configures the transfer handlers by scheme
	Handlers HandlersConfig `mapstructure:"handlers" yaml:"handlers"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// CacheConfig configures the local cache directory.
type CacheConfig struct {
	// Root is the directory fetched resources are written below (required)
	// Example: /var/lib/dittoio/cache
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// Layout selects how locators map to file names below Root
	// Valid values: flat, host, hashed
	// Default: hashed
	Layout string `mapstructure:"layout" validate:"omitempty,oneof=flat host hashed" yaml:"layout"`
}

// IOConfig controls transfer execution.
type IOConfig struct {
	// Async runs transfers on the worker pool instead of the caller.
	// Can be flipped at runtime through the API or by editing the file.
	// Default: false
	Async bool `mapstructure:"async" yaml:"async"`

	// RejectDuplicates refuses a request while another transfer for the
	// same entity and direction has not finished.
	// Default: false
	RejectDuplicates bool `mapstructure:"reject_duplicates" yaml:"reject_duplicates"`

	// Workers is the number of pool workers
	// Default: 4
	Workers int `mapstructure:"workers" validate:"omitempty,min=1,max=1024" yaml:"workers"`

	// QueueSize bounds each priority queue of the pool
	// Default: 1000
	QueueSize int `mapstructure:"queue_size" validate:"omitempty,min=1" yaml:"queue_size"`

	// TaskTimeout bounds a single asynchronous transfer
	// Default: 30m
	TaskTimeout time.Duration `mapstructure:"task_timeout" validate:"gte=0" yaml:"task_timeout"`
}

// RecordsBackend selects where transfer records are persisted.
type RecordsBackend string

const (
	RecordsMemory RecordsBackend = "memory"
	RecordsBadger RecordsBackend = "badger"
	RecordsSQL    RecordsBackend = "sqldb"
)

// RecordsConfig configures transfer record persistence and retention.
type RecordsConfig struct {
	// Backend is one of memory, badger, sqldb
	// Default: memory
	Backend RecordsBackend `mapstructure:"backend" validate:"omitempty,oneof=memory badger sqldb" yaml:"backend"`

	// Badger configures the embedded key-value backend
	Badger badger.Config `mapstructure:"badger" yaml:"badger"`

	// SQL configures the SQLite or PostgreSQL backend
	SQL sqldb.Config `mapstructure:"sql" yaml:"sql"`

	// Retention is how long terminal records are kept. Zero keeps them forever.
	Retention time.Duration `mapstructure:"retention" validate:"gte=0" yaml:"retention"`

	// PruneInterval is how often expired records are removed
	// Default: 10m (only used when Retention is set)
	PruneInterval time.Duration `mapstructure:"prune_interval" validate:"gte=0" yaml:"prune_interval"`
}

// HandlersConfig enables and configures handlers. Entities are bound to a
// handler by the scheme of their locator.
type HandlersConfig struct {
	FS   FSHandlerConfig   `mapstructure:"fs" yaml:"fs"`
	HTTP HTTPHandlerConfig `mapstructure:"http" yaml:"http"`
	S3   S3HandlerConfig   `mapstructure:"s3" yaml:"s3"`
}

// FSHandlerConfig configures the file:// handler.
type FSHandlerConfig struct {
	// Enabled defaults to true
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`
}

// HTTPHandlerConfig configures the http:// and https:// handler.
type HTTPHandlerConfig struct {
	// Enabled defaults to true
	Enabled *bool `mapstructure:"enabled" yaml:"enabled"`

	http.Config `mapstructure:",squash" yaml:",inline"`
}

// S3HandlerConfig configures the s3:// handler.
type S3HandlerConfig struct {
	// Enabled defaults to false: the handler needs credentials
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	s3.Config `mapstructure:",squash" yaml:",inline"`
}

// IsEnabled reports whether the fs handler is registered.
func (c FSHandlerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsEnabled reports whether the http handler is registered.
func (c HTTPHandlerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOIO_*)
//  2. Configuration file
//  3. Default values
//
// A missing file is not an error: GetDefaultConfig is used as the base and
// environment overrides still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if !found {
		cfg = GetDefaultConfig()
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  dittoio config init\n\n"+
				"Or specify a custom config file:\n"+
				"  dittoio <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  dittoio config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold database passwords and S3 keys.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers every leaf key with viper. AutomaticEnv only
// consults keys viper already knows, so without this an override of a key
// absent from the file would be ignored by Unmarshal.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("mapstructure")
		name, opts, _ := strings.Cut(tag, ",")

		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}

		if opts == "squash" {
			bindEnvKeys(v, ft, prefix)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Duration(0)) {
			bindEnvKeys(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Raw integers are nanoseconds
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittoio")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittoio")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
