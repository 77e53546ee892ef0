// Package commands implements the dittoio command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/cmd/dittoio/cmdutil"
	configcmd "github.com/marmos91/dittoio/cmd/dittoio/commands/config"
	entitycmd "github.com/marmos91/dittoio/cmd/dittoio/commands/entities"
	transfercmd "github.com/marmos91/dittoio/cmd/dittoio/commands/transfers"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dittoio",
	Short: "dittoio - Remote resource transfer orchestrator",
	Long: `dittoio fetches remote resources into a local cache and pushes cached
files back, tracking every transfer. Entities bind an id to a locator
(file://, http(s)://, s3://); read and write requests on an entity become
transfers run inline or on a worker pool.

Run "dittoio start" for the server, "dittoio fetch" for a one-shot
transfer, or use the transfers, entities and async commands against a
running server.

Use "dittoio [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: $XDG_CONFIG_HOME/dittoio/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "API server URL (default: $DITTOIO_SERVER or "+cmdutil.DefaultServerURL+")")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(asyncCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(transfercmd.Cmd)
	rootCmd.AddCommand(entitycmd.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cmdutil.Flags.ConfigFile
}
