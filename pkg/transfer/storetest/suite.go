// Package storetest provides a conformance suite for transfer.RecordStore
// implementations.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) transfer.RecordStore {
//	        return memory.New()
//	    })
//	}
//
// The factory receives *testing.T so it can use t.TempDir() and t.Cleanup().
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marmos91/dittoio/pkg/transfer"
)

// StoreFactory creates a fresh, empty store for each test.
type StoreFactory func(t *testing.T) transfer.RecordStore

// RunConformanceSuite runs every conformance test against factory.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, factory(t)) })
	t.Run("SaveOverwrites", func(t *testing.T) { testSaveOverwrites(t, factory(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory(t)) })
	t.Run("ListOrderAndFilter", func(t *testing.T) { testList(t, factory(t)) })
	t.Run("DeleteFinishedBefore", func(t *testing.T) { testDeleteFinishedBefore(t, factory(t)) })
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id string, entity string, dir transfer.Direction, status transfer.Status, created time.Time) transfer.Record {
	rec := transfer.Record{
		ID:              transfer.ID(id),
		EntityID:        entity,
		SourceLocator:   "s3://bucket/" + entity,
		DestinationPath: "/cache/" + entity,
		Direction:       dir,
		Status:          status,
		HandlerName:     "s3",
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	if status >= transfer.InProgress {
		started := created.Add(time.Second)
		rec.StartedAt = &started
	}
	if status.IsTerminal() {
		finished := created.Add(3 * time.Second)
		rec.FinishedAt = &finished
	}
	if status == transfer.Failed {
		rec.Error = "remote returned 503"
	}
	return rec
}

func save(t *testing.T, s transfer.RecordStore, recs ...transfer.Record) {
	t.Helper()
	for _, r := range recs {
		if err := s.Save(context.Background(), r); err != nil {
			t.Fatalf("Save(%s) failed: %v", r.ID, err)
		}
	}
}

func assertEqualRecord(t *testing.T, want, got transfer.Record) {
	t.Helper()
	if got.ID != want.ID || got.EntityID != want.EntityID ||
		got.SourceLocator != want.SourceLocator || got.DestinationPath != want.DestinationPath ||
		got.Direction != want.Direction || got.Status != want.Status ||
		got.HandlerName != want.HandlerName || got.Error != want.Error {
		t.Fatalf("record mismatch:\n got  %+v\n want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("timestamps mismatch: got %v/%v want %v/%v", got.CreatedAt, got.UpdatedAt, want.CreatedAt, want.UpdatedAt)
	}
	if !equalTimePtr(got.StartedAt, want.StartedAt) || !equalTimePtr(got.FinishedAt, want.FinishedAt) {
		t.Fatalf("start/finish mismatch: got %v/%v want %v/%v", got.StartedAt, got.FinishedAt, want.StartedAt, want.FinishedAt)
	}
	if got.Handler != nil {
		t.Fatalf("store returned a live handler")
	}
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func testSaveAndGet(t *testing.T, s transfer.RecordStore) {
	ctx := context.Background()
	want := record("a", "node-1", transfer.Download, transfer.Failed, base)
	save(t, s, want)

	got, err := s.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assertEqualRecord(t, want, got)
}

func testSaveOverwrites(t *testing.T, s transfer.RecordStore) {
	ctx := context.Background()
	rec := record("a", "node-1", transfer.Upload, transfer.Unspecified, base)
	save(t, s, rec)

	updated := record("a", "node-1", transfer.Upload, transfer.Completed, base)
	updated.UpdatedAt = base.Add(5 * time.Second)
	save(t, s, updated)

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assertEqualRecord(t, updated, got)

	all, err := s.List(ctx, transfer.Filter{})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("List() returned %d records after overwrite, want 1", len(all))
	}
}

func testGetMissing(t *testing.T, s transfer.RecordStore) {
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, transfer.ErrRecordNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrRecordNotFound", err)
	}
}

func testList(t *testing.T, s transfer.RecordStore) {
	ctx := context.Background()
	// Saved out of creation order on purpose.
	c := record("c", "node-2", transfer.Upload, transfer.Scheduled, base.Add(2*time.Minute))
	a := record("a", "node-1", transfer.Download, transfer.Completed, base)
	b := record("b", "node-1", transfer.Upload, transfer.Failed, base.Add(time.Minute))
	save(t, s, c, a, b)

	ids := func(recs []transfer.Record) []transfer.ID {
		out := make([]transfer.ID, len(recs))
		for i, r := range recs {
			out[i] = r.ID
		}
		return out
	}
	check := func(name string, f transfer.Filter, want ...transfer.ID) {
		t.Helper()
		got, err := s.List(ctx, f)
		if err != nil {
			t.Fatalf("%s: List() failed: %v", name, err)
		}
		gotIDs := ids(got)
		if len(gotIDs) != len(want) {
			t.Fatalf("%s: List() = %v, want %v", name, gotIDs, want)
		}
		for i := range want {
			if gotIDs[i] != want[i] {
				t.Fatalf("%s: List() = %v, want %v", name, gotIDs, want)
			}
		}
	}

	up := transfer.Upload
	failed := transfer.Failed
	check("all", transfer.Filter{}, "a", "b", "c")
	check("entity", transfer.Filter{EntityID: "node-1"}, "a", "b")
	check("direction", transfer.Filter{Direction: &up}, "b", "c")
	check("status", transfer.Filter{Status: &failed}, "b")
	check("combined", transfer.Filter{EntityID: "node-2", Direction: &up}, "c")
	check("limit", transfer.Filter{Limit: 2}, "a", "b")
	check("none", transfer.Filter{EntityID: "node-9"})
}

func testDeleteFinishedBefore(t *testing.T, s transfer.RecordStore) {
	ctx := context.Background()
	old := record("old", "n", transfer.Download, transfer.Completed, base)
	oldPending := record("old-pending", "n", transfer.Download, transfer.Scheduled, base)
	recent := record("recent", "n", transfer.Download, transfer.Failed, base.Add(time.Hour))
	save(t, s, old, oldPending, recent)

	n, err := s.DeleteFinishedBefore(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("DeleteFinishedBefore() failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteFinishedBefore() removed %d, want 1", n)
	}
	if _, err := s.Get(ctx, old.ID); !errors.Is(err, transfer.ErrRecordNotFound) {
		t.Fatalf("old record still present: %v", err)
	}
	for _, id := range []transfer.ID{oldPending.ID, recent.ID} {
		if _, err := s.Get(ctx, id); err != nil {
			t.Fatalf("Get(%s) failed after prune: %v", id, err)
		}
	}
}
