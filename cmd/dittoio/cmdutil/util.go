// Package cmdutil holds what dittoio subcommands share: global flags, the
// API client and output helpers.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marmos91/dittoio/internal/cli/output"
	"github.com/marmos91/dittoio/internal/cli/prompt"
	"github.com/marmos91/dittoio/pkg/apiclient"
)

// DefaultServerURL is used when --server and DITTOIO_SERVER are unset.
const DefaultServerURL = "http://localhost:8080"

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	ServerURL  string
	Output     string
	NoColor    bool
}

// ServerURL returns the API address from --server, DITTOIO_SERVER or the
// default.
func ServerURL() string {
	if Flags.ServerURL != "" {
		return Flags.ServerURL
	}
	if env := os.Getenv("DITTOIO_SERVER"); env != "" {
		return env
	}
	return DefaultServerURL
}

// Client returns an API client for the selected server.
func Client() *apiclient.Client {
	return apiclient.New(ServerURL())
}

// ClientWithTimeout returns a client whose requests time out after d. Zero
// means no timeout, for synchronous transfers.
func ClientWithTimeout(d time.Duration) *apiclient.Client {
	return Client().WithTimeout(d)
}

// OutputFormat returns the parsed --output flag.
func OutputFormat() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// Printer returns a printer for w honoring --output and --no-color.
func Printer(w io.Writer) (*output.Printer, error) {
	format, err := OutputFormat()
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format, !Flags.NoColor), nil
}

// PrintOutput prints a list. In table format an empty list prints emptyMsg.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, table output.TableRenderer) error {
	p, err := Printer(w)
	if err != nil {
		return err
	}
	if p.Format() == output.FormatTable {
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, table)
	}
	return p.Print(data)
}

// PrintResource prints one resource: as key/value pairs in table format,
// as the resource itself otherwise.
func PrintResource(w io.Writer, data any, pairs [][2]string) error {
	p, err := Printer(w)
	if err != nil {
		return err
	}
	if p.Format() == output.FormatTable {
		return output.KeyValue(w, pairs)
	}
	return p.Print(data)
}

// PrintSuccess prints msg in table format only, so JSON and YAML output
// stay machine-readable.
func PrintSuccess(w io.Writer, msg string) {
	p, err := Printer(w)
	if err != nil || p.Format() != output.FormatTable {
		return
	}
	p.Success(msg)
}

// RunDeleteWithConfirmation asks before calling deleteFn unless force is set.
func RunDeleteWithConfirmation(w io.Writer, resourceType, name string, force bool, deleteFn func() error) error {
	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Remove %s '%s'?", resourceType, name), force)
	if err != nil {
		if prompt.IsAborted(err) {
			_, _ = fmt.Fprintln(w, "Aborted.")
			return nil
		}
		return err
	}
	if !ok {
		_, _ = fmt.Fprintln(w, "Cancelled.")
		return nil
	}
	if err := deleteFn(); err != nil {
		return err
	}
	PrintSuccess(w, fmt.Sprintf("%s '%s' removed", resourceType, name))
	return nil
}

// FormatTime renders t for tables; the zero time prints as "-".
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

// FormatDuration renders d rounded for tables; zero prints as "-".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
