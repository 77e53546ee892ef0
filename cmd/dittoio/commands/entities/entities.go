// Package entities implements the entities subcommands.
package entities

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/cmd/dittoio/cmdutil"
	"github.com/marmos91/dittoio/internal/cli/output"
	"github.com/marmos91/dittoio/pkg/apiclient"
)

// Cmd is the entities subcommand.
var Cmd = &cobra.Command{
	Use:     "entities",
	Aliases: []string{"entity", "en"},
	Short:   "Manage entities and request transfers",
	Long: `Manage the entities of a running dittoio server and request transfers
on them.

An entity binds an id to a locator; the handler is picked by the locator
scheme. Reading an entity downloads its resource into the cache; writing
uploads the cached file back.

Subcommands:
  list   List entities
  get    Show one entity
  add    Register an entity
  rm     Remove an entity
  read   Request a download
  write  Request an upload`,
}

var requestTimeout time.Duration

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(rmCmd)
	Cmd.AddCommand(readCmd)
	Cmd.AddCommand(writeCmd)

	for _, c := range []*cobra.Command{readCmd, writeCmd} {
		c.Flags().DurationVar(&requestTimeout, "timeout", 0,
			"Give up waiting after this long (0 waits for synchronous transfers to finish)")
	}
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Do not ask for confirmation")
}

// EntityList renders entities as a table.
type EntityList []apiclient.Entity

// Headers implements output.TableRenderer.
func (l EntityList) Headers() []string {
	return []string{"ID", "HANDLER", "WRITABLE", "LOCATOR"}
}

// Rows implements output.TableRenderer.
func (l EntityList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		handler := e.Handler
		if handler == "" {
			handler = "-"
		}
		rows = append(rows, []string{e.ID, handler, strconv.FormatBool(e.Writable), e.Locator})
	}
	return rows
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		entities, err := cmdutil.Client().ListEntities()
		if err != nil {
			return err
		}
		return cmdutil.PrintOutput(cmd.OutOrStdout(), entities, len(entities) == 0,
			"No entities registered.", EntityList(entities))
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := cmdutil.Client().GetEntity(args[0])
		if err != nil {
			return err
		}
		return cmdutil.PrintResource(cmd.OutOrStdout(), e, entityPairs(e))
	},
}

var addCmd = &cobra.Command{
	Use:   "add <id> <locator>",
	Short: "Register an entity",
	Long: `Register an entity bound to a locator.

Examples:
  dittoio entities add E42 https://example.com/data/mesh.vtk
  dittoio entities add scan-7 s3://bucket/scans/7.nii
  dittoio entities add local file:///srv/data/a.obj`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := cmdutil.Client().CreateEntity(args[0], args[1])
		if err != nil {
			return err
		}
		cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Entity '%s' added", e.ID))
		return cmdutil.PrintResource(cmd.OutOrStdout(), e, entityPairs(e))
	},
}

var rmForce bool

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove an entity",
	Long: `Remove an entity. Its transfer records are kept.

Examples:
  dittoio entities rm E42
  dittoio entities rm E42 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.RunDeleteWithConfirmation(cmd.OutOrStdout(), "Entity", args[0], rmForce, func() error {
			return cmdutil.Client().DeleteEntity(args[0])
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Request a download of an entity",
	Long: `Ask the server to download the entity's resource into its cache.

In synchronous mode the command returns once the transfer has finished; in
asynchronous mode once it is queued. Follow it with "dittoio transfers list
--entity <id>".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := cmdutil.ClientWithTimeout(requestTimeout)
		accepted, err := client.RequestRead(args[0])
		if err != nil {
			return err
		}
		return printAccepted(cmd, accepted)
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <id>",
	Short: "Request an upload of an entity",
	Long: `Ask the server to upload the entity's cached file to its locator.

Fails when the entity's handler cannot write.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := cmdutil.ClientWithTimeout(requestTimeout)
		accepted, err := client.RequestWrite(args[0])
		if err != nil {
			return err
		}
		return printAccepted(cmd, accepted)
	},
}

func entityPairs(e *apiclient.Entity) [][2]string {
	return [][2]string{
		{"ID", e.ID},
		{"Locator", e.Locator},
		{"Handler", e.Handler},
		{"Writable", strconv.FormatBool(e.Writable)},
	}
}

func printAccepted(cmd *cobra.Command, a *apiclient.RequestAccepted) error {
	if f, _ := cmdutil.OutputFormat(); f != output.FormatTable {
		return cmdutil.PrintResource(cmd.OutOrStdout(), a, nil)
	}
	if a.Listeners == 0 {
		cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Request %s for '%s' published, but nothing is listening", a.Event, a.EntityID))
		return nil
	}
	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Request %s for '%s' accepted", a.Event, a.EntityID))
	return nil
}
