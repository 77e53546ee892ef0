package iomanager_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/entity/memory"
	"github.com/marmos91/dittoio/pkg/iomanager"
)

func TestPublishByKind(t *testing.T) {
	m := iomanager.New()
	ctx := context.Background()

	var reads, writes, both atomic.Int32
	m.Subscribe(func(context.Context, iomanager.Event) { reads.Add(1) }, iomanager.RemoteReadRequested)
	m.Subscribe(func(context.Context, iomanager.Event) { writes.Add(1) }, iomanager.RemoteWriteRequested)
	m.Subscribe(func(context.Context, iomanager.Event) { both.Add(1) },
		iomanager.RemoteReadRequested, iomanager.RemoteWriteRequested)

	node := memory.NewNode("n1", "http://host/a.vtk", nil)

	n, err := m.RequestRead(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = m.RequestWrite(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, int32(1), reads.Load())
	assert.Equal(t, int32(1), writes.Load())
	assert.Equal(t, int32(2), both.Load())
}

func TestEventCarriesEntity(t *testing.T) {
	m := iomanager.New()
	var got iomanager.Event
	m.Subscribe(func(_ context.Context, ev iomanager.Event) { got = ev }, iomanager.RemoteReadRequested)

	node := memory.NewNode("n1", "http://host/a.vtk", nil)
	_, err := m.RequestRead(context.Background(), node)
	require.NoError(t, err)

	assert.Equal(t, iomanager.RemoteReadRequested, got.Kind)
	require.NotNil(t, got.Entity)
	assert.Equal(t, "n1", got.Entity.ID())

	// nil entities are still delivered; interpreting them is the listener's job.
	_, err = m.RequestRead(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got.Entity)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	m := iomanager.New()
	var calls atomic.Int32
	sub := m.Subscribe(func(context.Context, iomanager.Event) { calls.Add(1) }, iomanager.RemoteReadRequested)
	assert.Equal(t, 1, m.Subscribers())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, m.Subscribers())

	n, err := m.RequestRead(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(0), calls.Load())
}

func TestUnsubscribeWaitsForInFlightDelivery(t *testing.T) {
	m := iomanager.New()

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	sub := m.Subscribe(func(context.Context, iomanager.Event) {
		close(entered)
		<-release
		finished.Store(true)
	}, iomanager.RemoteReadRequested)

	go func() { _, _ = m.RequestRead(context.Background(), nil) }()
	<-entered

	unsubscribed := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(unsubscribed)
	}()

	select {
	case <-unsubscribed:
		t.Fatal("Unsubscribe returned while a delivery was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("Unsubscribe never returned")
	}
	assert.True(t, finished.Load())
}

func TestNoDeliveryAfterUnsubscribe(t *testing.T) {
	m := iomanager.New()
	var (
		mu     sync.Mutex
		closed bool
		late   int
	)
	sub := m.Subscribe(func(context.Context, iomanager.Event) {
		mu.Lock()
		if closed {
			late++
		}
		mu.Unlock()
	}, iomanager.RemoteReadRequested)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_, _ = m.RequestRead(context.Background(), nil)
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	sub.Unsubscribe()
	mu.Lock()
	closed = true
	mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Zero(t, late)
}

func TestClose(t *testing.T) {
	m := iomanager.New()
	var calls atomic.Int32
	m.Subscribe(func(context.Context, iomanager.Event) { calls.Add(1) }, iomanager.RemoteReadRequested)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.RequestRead(context.Background(), nil)
	assert.ErrorIs(t, err, iomanager.ErrClosed)
	assert.Equal(t, 0, m.Subscribers())
	assert.Equal(t, int32(0), calls.Load())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "remote_read_requested", iomanager.RemoteReadRequested.String())
	assert.Equal(t, "remote_write_requested", iomanager.RemoteWriteRequested.String())
	assert.Equal(t, "unknown", iomanager.Kind(0).String())
}
