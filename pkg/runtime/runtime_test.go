package runtime

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/config"
	"github.com/marmos91/dittoio/pkg/entity/memory"
	"github.com/marmos91/dittoio/pkg/iomanager"
	"github.com/marmos91/dittoio/pkg/scheduler"
	"github.com/marmos91/dittoio/pkg/transfer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Cache.Root = filepath.Join(t.TempDir(), "cache")
	cfg.IO.Async = false
	cfg.ShutdownTimeout = 5 * time.Second
	off := false
	cfg.API.Enabled = &off
	return cfg
}

// addFileEntity creates a source file and registers an entity pointing at it.
func addFileEntity(t *testing.T, rt *Runtime, id, content string) *memory.Node {
	t.Helper()
	src := filepath.Join(t.TempDir(), id+".vtk")
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))

	locator := "file://" + src
	h, err := rt.Handlers().Lookup(locator)
	require.NoError(t, err)

	n := memory.NewNode(id, locator, h)
	require.NoError(t, rt.Scene().Add(n))
	return n
}

func TestRuntime_InlineFetch(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	n := addFileEntity(t, rt, "E1", "payload")

	listeners, err := rt.Manager().RequestRead(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, 1, listeners)

	recs := rt.Tracker().List(transfer.Filter{EntityID: "E1"})
	require.Len(t, recs, 1)
	assert.Equal(t, transfer.Completed, recs[0].Status)
	assert.Equal(t, "fs", recs[0].HandlerName)

	data, err := os.ReadFile(recs[0].DestinationPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Contains(t, recs[0].DestinationPath, rt.CacheDir().Root())
}

func TestRuntime_AsyncOnPool(t *testing.T) {
	cfg := testConfig(t)
	cfg.IO.Async = true

	rt, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx) }()

	n := addFileEntity(t, rt, "E1", "async")
	_, err = rt.Manager().RequestRead(ctx, n)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		recs := rt.Tracker().List(transfer.Filter{EntityID: "E1"})
		return len(recs) == 1 && recs[0].Status == transfer.Completed
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	_, err = rt.Manager().RequestRead(context.Background(), n)
	assert.ErrorIs(t, err, iomanager.ErrClosed)
	assert.Error(t, rt.Serve(context.Background()))
}

func TestRuntime_ServeAPI(t *testing.T) {
	cfg := testConfig(t)
	on := true
	cfg.API.Enabled = &on
	cfg.API.Port = 18383

	rt, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, rt.APIServer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health/ready", cfg.API.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestRuntime_BadgerRecordsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Records.Backend = config.RecordsBadger
	cfg.Records.Badger.Path = filepath.Join(t.TempDir(), "records")

	rt, err := New(ctx, cfg)
	require.NoError(t, err)
	n := addFileEntity(t, rt, "E1", "kept")
	_, err = rt.Manager().RequestRead(ctx, n)
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	rt2, err := New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = rt2.Close() }()

	recs := rt2.Tracker().List(transfer.Filter{})
	require.Len(t, recs, 1)
	assert.Equal(t, "E1", recs[0].EntityID)
	assert.Equal(t, transfer.Completed, recs[0].Status)
}

// slowCancelHandler blocks until cancelled, then takes a while to unwind.
type slowCancelHandler struct{}

func (slowCancelHandler) Name() string { return "slow" }

func (slowCancelHandler) StageRead(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	time.Sleep(150 * time.Millisecond)
	return ctx.Err()
}

func TestRuntime_ShutdownTimeoutKeepsFinalStatus(t *testing.T) {
	cfg := testConfig(t)
	cfg.IO.Async = true
	cfg.ShutdownTimeout = 20 * time.Millisecond
	cfg.Records.Backend = config.RecordsBadger
	cfg.Records.Badger.Path = filepath.Join(t.TempDir(), "records")

	rt, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx) }()

	n := memory.NewNode("E1", "slow://host/a.vtk", slowCancelHandler{})
	require.NoError(t, rt.Scene().Add(n))
	_, err = rt.Manager().RequestRead(ctx, n)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		recs := rt.Tracker().List(transfer.Filter{EntityID: "E1"})
		return len(recs) == 1 && recs[0].Status == transfer.InProgress
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, scheduler.ErrStopTimeout)

	cfg.ShutdownTimeout = 5 * time.Second
	rt2, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = rt2.Close() }()

	recs := rt2.Tracker().List(transfer.Filter{EntityID: "E1"})
	require.Len(t, recs, 1)
	assert.Equal(t, transfer.Failed, recs[0].Status)
}

func TestRuntime_NoHandlers(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Handlers.FS.Enabled = &off
	cfg.Handlers.HTTP.Enabled = &off

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "no handler enabled")
}

func TestRuntime_ApplyConfig(t *testing.T) {
	rt, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	next := testConfig(t)
	next.IO.Async = true
	rt.ApplyConfig(next)
	assert.True(t, rt.Logic().Async())

	// Switched back through the API; an unrelated edit keeps it.
	rt.Logic().SetAsync(false)
	rt.ApplyConfig(next)
	assert.False(t, rt.Logic().Async())
}

func TestRuntime_ReloadsConfigFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, path))

	rt, err := New(context.Background(), cfg, WithConfigPath(path))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx) }()

	// Give the watcher goroutine a moment to start consuming events.
	time.Sleep(50 * time.Millisecond)

	cfg.IO.Async = true
	require.NoError(t, config.SaveConfig(cfg, path))

	require.Eventually(t, rt.Logic().Async, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
