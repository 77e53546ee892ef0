package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoio/cmd/dittoio/cmdutil"
	"github.com/marmos91/dittoio/cmd/dittoio/commands/transfers"
	"github.com/marmos91/dittoio/pkg/config"
	"github.com/marmos91/dittoio/pkg/entity/memory"
	"github.com/marmos91/dittoio/pkg/orchestrator"
	"github.com/marmos91/dittoio/pkg/runtime"
	"github.com/marmos91/dittoio/pkg/transfer"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <locator>...",
	Short: "Download resources into the cache",
	Long: `Download one or more resources into the local cache without a server.

Each locator becomes an entity whose id is the locator itself. Transfers run
one after another and are recorded in the configured records backend, so
they show up in the history of a server sharing that backend.

Examples:
  # Fetch over HTTP
  dittoio fetch https://example.com/data/mesh.vtk

  # Fetch from S3 and print the records as JSON
  dittoio fetch s3://bucket/models/a.obj s3://bucket/models/b.obj -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd, args, transfer.Download)
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <locator>...",
	Short: "Upload cached files to their locators",
	Long: `Upload the cached copy of one or more resources back to their locators
without a server. The cached file is the one "dittoio fetch" wrote for the
same locator.

Examples:
  # Push an edited file back to S3
  dittoio push s3://bucket/models/a.obj`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOneShot(cmd, args, transfer.Upload)
	},
}

// loadOneShotConfig loads the config file when there is one and falls back
// to defaults otherwise; servers are turned off.
func loadOneShotConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if GetConfigFile() != "" || config.DefaultConfigExists() {
		cfg, err = config.MustLoad(GetConfigFile())
	} else {
		cfg, err = config.Load("")
	}
	if err != nil {
		return nil, err
	}

	off := false
	cfg.API.Enabled = &off
	cfg.Metrics.Enabled = false
	return cfg, nil
}

func runOneShot(cmd *cobra.Command, locators []string, dir transfer.Direction) error {
	cfg, err := loadOneShotConfig()
	if err != nil {
		return err
	}
	cfg.Logging.Output = "stderr"
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := runtime.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	// The command waits for each transfer.
	rt.Logic().SetAsync(false)

	var (
		records []transfer.Record
		failed  int
	)
	for _, locator := range locators {
		rec, err := transferOne(ctx, rt, locator, dir)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", locator, err)
			failed++
			continue
		}
		if rec.Status != transfer.Completed {
			failed++
		}
		records = append(records, rec)
	}

	if err := cmdutil.PrintOutput(cmd.OutOrStdout(), records, len(records) == 0,
		"No transfers ran.", transfers.RecordList(records)); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d transfers failed", failed, len(locators))
	}
	return nil
}

func transferOne(ctx context.Context, rt *runtime.Runtime, locator string, dir transfer.Direction) (transfer.Record, error) {
	h, err := rt.Handlers().Lookup(locator)
	if err != nil {
		return transfer.Record{}, err
	}

	node := memory.NewNode(locator, locator, h)
	if err := rt.Scene().Add(node); err != nil && !errors.Is(err, memory.ErrDuplicateID) {
		return transfer.Record{}, err
	}

	var res orchestrator.Result
	if dir == transfer.Download {
		res = rt.Logic().QueueRead(ctx, node)
	} else {
		res = rt.Logic().QueueWrite(ctx, node)
	}

	switch res {
	case orchestrator.Unsupported:
		return transfer.Record{}, fmt.Errorf("handler %s cannot %s", h.Name(), dir)
	case orchestrator.Rejected:
		return transfer.Record{}, errors.New("request rejected")
	}

	d := dir
	recs := rt.Tracker().List(transfer.Filter{EntityID: locator, Direction: &d})
	if len(recs) == 0 {
		return transfer.Record{}, errors.New("no transfer recorded")
	}
	return recs[len(recs)-1], nil
}
