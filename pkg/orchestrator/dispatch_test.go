package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/marmos91/dittoio/internal/telemetry"
	"github.com/marmos91/dittoio/pkg/cache"
	"github.com/marmos91/dittoio/pkg/entity/memory"
	"github.com/marmos91/dittoio/pkg/scheduler"
	"github.com/marmos91/dittoio/pkg/transfer"
	recordmem "github.com/marmos91/dittoio/pkg/transfer/store/memory"
)

func TestDispatch_NilRecord(t *testing.T) {
	f := newFixture(t, nil)
	assert.ErrorIs(t, f.logic.Dispatch(context.Background(), nil), ErrNilRecord)
}

func TestDispatch_EntityRemovedBeforeRun(t *testing.T) {
	sched := &captureScheduler{accept: true}
	f := newFixture(t, sched, WithAsync(true))
	h := &recordingHandler{}
	e := f.add(t, memory.NewNode("E1", "http://host/a.vtk", h))

	require.Equal(t, Queued, f.logic.QueueRead(context.Background(), e))
	require.True(t, f.scene.Remove("E1"))

	rec := f.only(t)
	err := f.logic.Dispatch(context.Background(), &rec)
	assert.ErrorIs(t, err, ErrEntityNotFound)

	assert.Empty(t, h.Calls())
	assert.Equal(t, transfer.Scheduled, f.only(t).Status, "status must not change")
}

func TestDispatch_IncompleteRecord(t *testing.T) {
	f := newFixture(t, nil)
	h := &recordingHandler{}
	f.add(t, memory.NewNode("E1", "http://host/a.vtk", h))

	rec, err := f.tracker.Create(context.Background(), transfer.Spec{
		EntityID:        "E1",
		SourceLocator:   "http://host/a.vtk",
		DestinationPath: "/cache/a.vtk",
		Direction:       transfer.Upload,
		Handler:         h, // cannot write
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.logic.Dispatch(context.Background(), &rec), ErrIncompleteRecord)
	assert.Equal(t, transfer.Unspecified, f.only(t).Status)

	// Records restored from a store carry no handler.
	noHandler := rec
	noHandler.Handler = nil
	noHandler.Direction = transfer.Download
	assert.ErrorIs(t, f.logic.Dispatch(context.Background(), &noHandler), ErrIncompleteRecord)
	assert.Empty(t, h.Calls())
}

func TestDispatch_TerminalRecordIsNotRerun(t *testing.T) {
	f := newFixture(t, nil)
	h := &recordingHandler{}
	e := f.add(t, memory.NewNode("E1", "http://host/a.vtk", h))

	require.Equal(t, Queued, f.logic.QueueRead(context.Background(), e))
	rec := f.only(t)
	require.Equal(t, transfer.Completed, rec.Status)

	err := f.logic.Dispatch(context.Background(), &rec)
	assert.ErrorIs(t, err, transfer.ErrInvalidTransition)
	assert.Len(t, h.Calls(), 1)
}

func TestDispatch_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	telemetry.SetTracerProvider(tp)
	t.Cleanup(func() { telemetry.SetTracerProvider(nil) })

	f := newFixture(t, nil)
	e := f.add(t, memory.NewNode("E1", "http://host/a.vtk", &recordingHandler{}))
	require.Equal(t, Queued, f.logic.QueueRead(context.Background(), e))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	names := []string{spans[0].Name(), spans[1].Name()}
	assert.Contains(t, names, "transfer.dispatch")
	assert.Contains(t, names, "handler.recording.stage_read")
}

// stallingHandler blocks until its context ends.
type stallingHandler struct{}

func (stallingHandler) Name() string { return "stalling" }

func (stallingHandler) StageRead(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatch_TaskTimeoutPersistsTerminalStatus(t *testing.T) {
	ctx := context.Background()
	pool := scheduler.NewPool(scheduler.Config{Workers: 1, QueueSize: 4, TaskTimeout: 50 * time.Millisecond})
	pool.Start()

	store := recordmem.New()
	tracker := transfer.NewTracker(transfer.WithStore(store))
	resolver, err := cache.NewDir("/cache", cache.LayoutFlat)
	require.NoError(t, err)
	scene := memory.NewScene()
	e := memory.NewNode("E1", "http://host/a.vtk", stallingHandler{})
	require.NoError(t, scene.Add(e))

	logic := New(scene, resolver, tracker, pool, WithAsync(true))
	assert.Equal(t, Queued, logic.QueueRead(ctx, e))
	require.NoError(t, pool.Stop(5*time.Second))

	recs := tracker.List(transfer.Filter{})
	require.Len(t, recs, 1)
	assert.Equal(t, transfer.Failed, recs[0].Status)

	persisted, err := store.Get(ctx, recs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, recs[0].Status, persisted.Status)
	assert.Equal(t, recs[0].Error, persisted.Error)
}
