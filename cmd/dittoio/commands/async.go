package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/cmd/dittoio/cmdutil"
	"github.com/marmos91/dittoio/internal/cli/output"
)

var asyncCmd = &cobra.Command{
	Use:   "async [on|off]",
	Short: "Show or switch the execution mode of a server",
	Long: `Without an argument, show whether the server runs transfers
asynchronously on its worker pool or inline in the request.
With an argument, switch the mode for subsequent requests.

The switch lasts until the server restarts or io.async changes in its
configuration file.

Examples:
  dittoio async
  dittoio async on
  dittoio async off`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runAsync,
}

type asyncResult struct {
	Async bool `json:"async"`
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid mode %q (use on or off)", s)
	}
	return b, nil
}

func runAsync(cmd *cobra.Command, args []string) error {
	client := cmdutil.Client()

	var (
		on  bool
		err error
	)
	if len(args) == 0 {
		on, err = client.GetAsync()
	} else {
		var want bool
		if want, err = parseSwitch(args[0]); err != nil {
			return err
		}
		on, err = client.SetAsync(want)
	}
	if err != nil {
		return err
	}

	p, err := cmdutil.Printer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if p.Format() != output.FormatTable {
		return p.Print(asyncResult{Async: on})
	}
	if on {
		p.Printf("Transfers run asynchronously\n")
	} else {
		p.Printf("Transfers run synchronously\n")
	}
	return nil
}
