package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/internal/telemetry"
	"github.com/marmos91/dittoio/pkg/config"
	"github.com/marmos91/dittoio/pkg/runtime"
)

var (
	pidFile  string
	noReload bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dittoio server",
	Long: `Start the dittoio server in the foreground.

The server exposes the REST API, runs transfers and, when enabled, serves
Prometheus metrics. Editing io.async or logging.level in the configuration
file takes effect without a restart.

Examples:
  # Start with the default config location
  dittoio start

  # Start with a custom config file
  dittoio start --config /etc/dittoio/config.yaml

  # Override settings through the environment
  DITTOIO_LOGGING_LEVEL=DEBUG DITTOIO_IO_ASYNC=true dittoio start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process id to this file")
	startCmd.Flags().BoolVar(&noReload, "no-reload", false, "Do not watch the config file for changes")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	source := getConfigSource(GetConfigFile())
	logger.Info("Configuration loaded", "source", source)
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	var opts []runtime.Option
	if !noReload && source != "defaults" {
		opts = append(opts, runtime.WithConfigPath(source))
	}

	rt, err := runtime.New(ctx, cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}

	if cfg.Metrics.Enabled {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}
	if cfg.API.IsEnabled() {
		logger.Info("API server configured", "port", cfg.API.Port)
	} else {
		logger.Info("API server disabled")
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
			_ = rt.Close()
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")
	if err := rt.Serve(ctx); err != nil {
		logger.Error("Server error", logger.Err(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// initTelemetry starts tracing and profiling as configured and returns a
// function that flushes both.
func initTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittoio",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	stopProfiling, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "dittoio",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	return func() {
		// ctx is cancelled by now; exporters need a live one to flush.
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
		if err := stopProfiling(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}, nil
}

// getConfigSource returns the file the config was loaded from, or
// "defaults".
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
