// Package badger implements transfer.RecordStore on an embedded BadgerDB.
//
// Records are stored as JSON under the key "xfer:<id>".
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittoio/internal/logger"
	"github.com/marmos91/dittoio/pkg/transfer"
)

const prefixRecord = "xfer:"

// Config configures the Badger store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory keeps the database in RAM, for tests.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// SyncWrites fsyncs every write.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes"`
}

// Store is a Badger-backed RecordStore.
type Store struct {
	db *badgerdb.DB
}

var _ transfer.RecordStore = (*Store)(nil)

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger: path is required")
		}
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug("Opened transfer record store", logger.Backend("badger"), logger.Path(cfg.Path))
	return &Store{db: db}, nil
}

func recordKey(id transfer.ID) []byte {
	return []byte(prefixRecord + string(id))
}

func (s *Store) Save(ctx context.Context, rec transfer.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode transfer %s: %w", rec.ID, err)
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
}

func (s *Store) Get(ctx context.Context, id transfer.ID) (transfer.Record, error) {
	if err := ctx.Err(); err != nil {
		return transfer.Record{}, err
	}

	var rec transfer.Record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", transfer.ErrRecordNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return transfer.Record{}, err
	}
	return rec, nil
}

// scan calls fn for every stored record.
func (s *Store) scan(txn *badgerdb.Txn, fn func(key []byte, rec transfer.Record) error) error {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = []byte(prefixRecord)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		var rec transfer.Record
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("failed to decode %s: %w", item.Key(), err)
		}
		if err := fn(item.KeyCopy(nil), rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) List(ctx context.Context, f transfer.Filter) ([]transfer.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []transfer.Record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return s.scan(txn, func(_ []byte, rec transfer.Record) error {
			if f.Match(rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

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

	var expired [][]byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		return s.scan(txn, func(key []byte, rec transfer.Record) error {
			if rec.Status.IsTerminal() && rec.FinishedAt != nil && rec.FinishedAt.Before(cutoff) {
				expired = append(expired, key)
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan transfers: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range expired {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("failed to delete transfer: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("failed to delete transfers: %w", err)
	}
	return len(expired), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
