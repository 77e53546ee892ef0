// Package memory implements transfer.RecordStore in process memory. Records
// are lost on exit; this is the default backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/dittoio/pkg/transfer"
)

// Store is an in-memory RecordStore.
type Store struct {
	mu   sync.RWMutex
	recs map[transfer.ID]transfer.Record
}

var _ transfer.RecordStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{recs: make(map[transfer.ID]transfer.Record)}
}

func (s *Store) Save(ctx context.Context, rec transfer.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.Handler = nil
	rec = copyTimes(rec)

	s.mu.Lock()
	s.recs[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, id transfer.ID) (transfer.Record, error) {
	if err := ctx.Err(); err != nil {
		return transfer.Record{}, err
	}
	s.mu.RLock()
	rec, ok := s.recs[id]
	s.mu.RUnlock()
	if !ok {
		return transfer.Record{}, fmt.Errorf("%w: %s", transfer.ErrRecordNotFound, id)
	}
	return copyTimes(rec), nil
}

func (s *Store) List(ctx context.Context, f transfer.Filter) ([]transfer.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]transfer.Record, 0, len(s.recs))
	for _, rec := range s.recs {
		if f.Match(rec) {
			out = append(out, copyTimes(rec))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, rec := range s.recs {
		if rec.Status.IsTerminal() && rec.FinishedAt != nil && rec.FinishedAt.Before(cutoff) {
			delete(s.recs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) Close() error { return nil }

func copyTimes(rec transfer.Record) transfer.Record {
	if rec.StartedAt != nil {
		t := *rec.StartedAt
		rec.StartedAt = &t
	}
	if rec.FinishedAt != nil {
		t := *rec.FinishedAt
		rec.FinishedAt = &t
	}
	return rec
}
