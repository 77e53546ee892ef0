// Package watch reloads a file when it changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/dittoio/internal/logger"
)

// DefaultDebounce lets editors finish writing before a reload.
const DefaultDebounce = 250 * time.Millisecond

// File calls a function after the watched file is written, created or
// renamed into place. Bursts of events within the debounce window produce
// a single call.
//
// The parent directory is watched rather than the file itself, since many
// editors and config tools replace files by rename.
type File struct {
	path     string
	debounce time.Duration
	onChange func()

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewFile starts watching path. Run must be called to deliver changes.
func NewFile(path string, debounce time.Duration, onChange func()) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &File{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		watcher:  w,
		done:     make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (f *File) Path() string { return f.path }

// Run delivers change notifications until ctx is cancelled or Close is
// called.
func (f *File) Run(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return

		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("Watched file changed", logger.Path(f.path), "op", ev.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(f.debounce, f.onChange)

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error", logger.Path(f.path), logger.Err(err))
		}
	}
}

// Close stops the watcher. Safe to call more than once.
func (f *File) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.watcher.Close()
	})
	return err
}
