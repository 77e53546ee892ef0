// Package transfers implements the transfers subcommands.
package transfers

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/cmd/dittoio/cmdutil"
	"github.com/marmos91/dittoio/pkg/apiclient"
	"github.com/marmos91/dittoio/pkg/transfer"
)

// Cmd is the transfers subcommand.
var Cmd = &cobra.Command{
	Use:     "transfers",
	Aliases: []string{"transfer", "tr"},
	Short:   "Inspect transfer records",
	Long: `Inspect the transfer records of a running dittoio server.

Subcommands:
  list     List transfers, optionally filtered
  get      Show one transfer
  summary  Count transfers by status`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(getCmd)
	Cmd.AddCommand(summaryCmd)
}

// RecordList renders records as a table.
type RecordList []transfer.Record

// Headers implements output.TableRenderer.
func (l RecordList) Headers() []string {
	return []string{"ID", "ENTITY", "DIRECTION", "STATUS", "HANDLER", "DURATION", "ERROR"}
}

// Rows implements output.TableRenderer.
func (l RecordList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			r.ID.String(),
			r.EntityID,
			r.Direction.String(),
			r.Status.String(),
			r.HandlerName,
			cmdutil.FormatDuration(r.Duration()),
			r.Error,
		})
	}
	return rows
}

var (
	listEntity    string
	listStatus    string
	listDirection string
	listLimit     int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transfers",
	Long: `List transfers, oldest first.

Examples:
  dittoio transfers list
  dittoio transfers list --entity E42 --status failed
  dittoio transfers list --direction upload --limit 20 -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listEntity, "entity", "", "Only transfers of this entity")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only transfers in this status (unspecified|scheduled|in_progress|completed|failed)")
	listCmd.Flags().StringVar(&listDirection, "direction", "", "Only transfers in this direction (download|upload)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Show at most this many")
}

func runList(cmd *cobra.Command, args []string) error {
	// Reject bad values before asking the server.
	if listStatus != "" {
		if _, err := transfer.ParseStatus(listStatus); err != nil {
			return err
		}
	}
	if listDirection != "" {
		if _, err := transfer.ParseDirection(listDirection); err != nil {
			return err
		}
	}

	records, err := cmdutil.Client().ListTransfers(apiclient.TransferFilter{
		EntityID:  listEntity,
		Status:    listStatus,
		Direction: listDirection,
		Limit:     listLimit,
	})
	if err != nil {
		return err
	}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), records, len(records) == 0,
		"No transfers found.", RecordList(records))
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one transfer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := cmdutil.Client().GetTransfer(args[0])
		if err != nil {
			return err
		}
		return cmdutil.PrintResource(cmd.OutOrStdout(), rec, details(*rec))
	},
}

func details(r transfer.Record) [][2]string {
	pairs := [][2]string{
		{"ID", r.ID.String()},
		{"Entity", r.EntityID},
		{"Direction", r.Direction.String()},
		{"Status", r.Status.String()},
		{"Handler", r.HandlerName},
		{"Source", r.SourceLocator},
		{"Destination", r.DestinationPath},
		{"Created", cmdutil.FormatTime(&r.CreatedAt)},
		{"Started", cmdutil.FormatTime(r.StartedAt)},
		{"Finished", cmdutil.FormatTime(r.FinishedAt)},
		{"Duration", cmdutil.FormatDuration(r.Duration())},
	}
	if r.Error != "" {
		pairs = append(pairs, [2]string{"Error", r.Error})
	}
	return pairs
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count transfers by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		counts, err := cmdutil.Client().TransferSummary()
		if err != nil {
			return err
		}
		return cmdutil.PrintResource(cmd.OutOrStdout(), counts, summaryPairs(counts))
	},
}

// summaryPairs lists statuses in lifecycle order, then any unknown names.
func summaryPairs(counts map[string]int) [][2]string {
	order := []transfer.Status{transfer.Unspecified, transfer.Scheduled, transfer.InProgress, transfer.Completed, transfer.Failed}
	seen := make(map[string]bool, len(order))
	pairs := make([][2]string, 0, len(counts))
	total := 0
	for _, s := range order {
		name := s.String()
		seen[name] = true
		pairs = append(pairs, [2]string{name, strconv.Itoa(counts[name])})
		total += counts[name]
	}

	var extra []string
	for name := range counts {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		pairs = append(pairs, [2]string{name, strconv.Itoa(counts[name])})
		total += counts[name]
	}
	return append(pairs, [2]string{"total", strconv.Itoa(total)})
}
