package badger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/transfer"
	"github.com/marmos91/dittoio/pkg/transfer/store/badger"
	"github.com/marmos91/dittoio/pkg/transfer/storetest"
)

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) transfer.RecordStore {
		store, err := badger.Open(badger.Config{InMemory: true})
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "records")

	store, err := badger.Open(badger.Config{Path: dir})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := transfer.Record{
		ID:              "r1",
		EntityID:        "volume-3",
		SourceLocator:   "https://data.example.org/volume-3.nrrd",
		DestinationPath: "/var/cache/dittoio/volume-3.nrrd",
		Direction:       transfer.Download,
		Status:          transfer.Scheduled,
		HandlerName:     "http",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, store.Save(ctx, rec))
	require.NoError(t, store.Close())

	store, err = badger.Open(badger.Config{Path: dir})
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, transfer.Scheduled, got.Status)
	assert.True(t, now.Equal(got.CreatedAt))

	tr := transfer.NewTracker(transfer.WithStore(store))
	n, err := tr.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	restored, err := tr.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, transfer.Failed, restored.Status)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	assert.Error(t, err)
}
