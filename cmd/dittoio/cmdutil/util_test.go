package cmdutil

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/internal/cli/output"
)

func withFlags(t *testing.T, f GlobalFlags) {
	t.Helper()
	saved := *Flags
	*Flags = f
	t.Cleanup(func() { *Flags = saved })
}

func TestServerURL(t *testing.T) {
	withFlags(t, GlobalFlags{})
	t.Setenv("DITTOIO_SERVER", "")
	assert.Equal(t, DefaultServerURL, ServerURL())

	t.Setenv("DITTOIO_SERVER", "http://env:1")
	assert.Equal(t, "http://env:1", ServerURL())

	Flags.ServerURL = "http://flag:2"
	assert.Equal(t, "http://flag:2", ServerURL())
	assert.Equal(t, "http://flag:2", Client().BaseURL())
}

func TestPrintOutput(t *testing.T) {
	table := output.NewTable("ID")
	table.AddRow("a")

	withFlags(t, GlobalFlags{Output: "table"})
	var buf bytes.Buffer
	require.NoError(t, PrintOutput(&buf, []string{}, true, "No entities.", table))
	assert.Equal(t, "No entities.\n", buf.String())

	withFlags(t, GlobalFlags{Output: "json"})
	buf.Reset()
	require.NoError(t, PrintOutput(&buf, []string{"a"}, false, "No entities.", table))
	assert.JSONEq(t, `["a"]`, buf.String())

	withFlags(t, GlobalFlags{Output: "xml"})
	assert.Error(t, PrintOutput(&buf, nil, true, "", table))
}

func TestPrintSuccessOnlyInTable(t *testing.T) {
	withFlags(t, GlobalFlags{Output: "json", NoColor: true})
	var buf bytes.Buffer
	PrintSuccess(&buf, "done")
	assert.Empty(t, buf.String())

	withFlags(t, GlobalFlags{Output: "table", NoColor: true})
	PrintSuccess(&buf, "done")
	assert.Equal(t, "done\n", buf.String())
}

func TestRunDeleteWithConfirmationForced(t *testing.T) {
	withFlags(t, GlobalFlags{NoColor: true})
	var buf bytes.Buffer
	called := false
	err := RunDeleteWithConfirmation(&buf, "Entity", "E1", true, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, buf.String(), "Entity 'E1' removed")

	err = RunDeleteWithConfirmation(&buf, "Entity", "E1", true, func() error { return errors.New("gone") })
	assert.EqualError(t, err, "gone")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", FormatTime(nil))
	assert.Equal(t, "-", FormatDuration(0))
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1m30s", FormatDuration(90*time.Second+400*time.Millisecond))
}
