package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/cmd/dittoio/cmdutil"
	"github.com/marmos91/dittoio/internal/cli/output"
	"github.com/marmos91/dittoio/pkg/apiclient"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the readiness of a running dittoio server and of each of its
components.

Examples:
  # Check the local server
  dittoio status

  # Check a remote server as JSON
  dittoio status --server http://transfers:8080 -o json`,
	RunE: runStatus,
}

// ServerStatus is the status report of a server.
type ServerStatus struct {
	Server     string                `json:"server"`
	Running    bool                  `json:"running"`
	Ready      bool                  `json:"ready"`
	Async      *bool                 `json:"async,omitempty"`
	Message    string                `json:"message,omitempty"`
	Components []apiclient.Component `json:"components,omitempty"`
}

// Headers implements output.TableRenderer.
func (s ServerStatus) Headers() []string {
	return []string{"COMPONENT", "STATUS", "LATENCY", "ERROR"}
}

// Rows implements output.TableRenderer.
func (s ServerStatus) Rows() [][]string {
	rows := make([][]string, 0, len(s.Components))
	for _, c := range s.Components {
		rows = append(rows, []string{c.Name, c.Status, c.Latency, c.Error})
	}
	return rows
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := cmdutil.ClientWithTimeout(5 * time.Second)
	status := ServerStatus{Server: client.BaseURL()}

	if err := client.Health(); err != nil {
		status.Message = err.Error()
	} else {
		status.Running = true
		components, err := client.Ready()
		status.Components = components
		status.Ready = err == nil
		if err != nil {
			status.Message = err.Error()
		}
		if on, err := client.GetAsync(); err == nil {
			status.Async = &on
		}
	}

	p, err := cmdutil.Printer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if p.Format() != output.FormatTable {
		return p.Print(status)
	}

	switch {
	case !status.Running:
		p.Error("Server at " + status.Server + " is not reachable: " + status.Message)
		return nil
	case status.Ready:
		p.Success("Server at " + status.Server + " is ready")
	default:
		p.Warning("Server at " + status.Server + " is running but not ready")
	}
	if status.Async != nil {
		mode := "sync"
		if *status.Async {
			mode = "async"
		}
		p.Printf("Execution mode: %s\n\n", mode)
	}
	if len(status.Components) > 0 {
		return output.PrintTable(cmd.OutOrStdout(), status)
	}
	return nil
}
