package config

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the dittoio configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  dittoio config validate

  # Validate specific config file
  dittoio config validate --config /etc/dittoio/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	printSummary(cmd.OutOrStdout(), path, cfg)
	return nil
}

// warnings lists settings that load fine but are probably not intended.
func warnings(cfg *config.Config) []string {
	var out []string
	if !cfg.Handlers.FS.IsEnabled() && !cfg.Handlers.HTTP.IsEnabled() && !cfg.Handlers.S3.Enabled {
		out = append(out, "No handler enabled: the server will refuse to start")
	}
	if cfg.Records.Backend == config.RecordsMemory && cfg.Records.Retention > 0 {
		out = append(out, "records.retention has little effect with the memory backend")
	}
	if cfg.Handlers.S3.Enabled && cfg.Handlers.S3.AccessKeyID == "" {
		out = append(out, "S3 handler uses the default AWS credential chain")
	}
	if _, err := os.Stat(cfg.Cache.Root); os.IsNotExist(err) {
		out = append(out, fmt.Sprintf("Cache root %s does not exist yet; it will be created", cfg.Cache.Root))
	}
	return out
}

func printSummary(w io.Writer, path string, cfg *config.Config) {
	_, _ = fmt.Fprintf(w, "Configuration file: %s\n", path)
	_, _ = fmt.Fprintln(w, "Validation: OK")

	if warns := warnings(cfg); len(warns) > 0 {
		_, _ = fmt.Fprintln(w, "\nWarnings:")
		for _, msg := range warns {
			_, _ = fmt.Fprintf(w, "  - %s\n", msg)
		}
	}

	mode := "sync"
	if cfg.IO.Async {
		mode = "async"
	}

	_, _ = fmt.Fprintf(w, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(w, "  Cache root:      %s (%s)\n", cfg.Cache.Root, cfg.Cache.Layout)
	_, _ = fmt.Fprintf(w, "  IO mode:         %s, %d workers\n", mode, cfg.IO.Workers)
	_, _ = fmt.Fprintf(w, "  Records:         %s\n", cfg.Records.Backend)
	if cfg.API.IsEnabled() {
		_, _ = fmt.Fprintf(w, "  API port:        %d\n", cfg.API.Port)
	}
	_, _ = fmt.Fprintf(w, "  Log level:       %s\n", cfg.Logging.Level)
}
