package config

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/dittoio/cmd/dittoio/cmdutil"
	"github.com/marmos91/dittoio/internal/cli/output"
	"github.com/marmos91/dittoio/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective dittoio configuration, defaults included.

Outputs YAML unless --output json is given. Environment overrides
(DITTOIO_*) are applied.

Examples:
  dittoio config show
  dittoio config show -o json
  dittoio config show --config /etc/dittoio/config.yaml`,
	RunE: runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(path)
	if err != nil {
		return err
	}

	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}

	data, err := renderConfig(cfg, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// renderConfig encodes cfg with its yaml keys. JSON goes through the YAML
// tree so both formats share key names.
func renderConfig(cfg *config.Config, format output.Format) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if format != output.FormatJSON {
		return data, nil
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
