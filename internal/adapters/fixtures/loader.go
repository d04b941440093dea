package fixtures

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/mocksrv/pkg/logger"
	"github.com/okian/mocksrv/pkg/metrics"
)

// Writer is the write side of the response store.
type Writer interface {
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) (bool, error)
}

// Loader applies fixture files to a store. It remembers which keys it wrote
// so that keys dropped from the file are removed on the next apply; keys set
// through other channels are left alone.
type Loader struct {
	store Writer
	log   logger.Logger

	mu      sync.Mutex
	applied map[string]struct{}
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// NewLoader creates a Loader writing to store.
func NewLoader(store Writer, opts ...Option) *Loader {
	l := &Loader{
		store:   store,
		log:     logger.Nop(),
		applied: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply writes every entry of f and deletes keys a previous Apply wrote that
// f no longer has. It returns the number of entries written.
func (l *Loader) Apply(ctx context.Context, f *File) (int, error) {
	entries, err := f.Entries()
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, value := range entries {
		if err := l.store.Set(ctx, key, value); err != nil {
			return 0, fmt.Errorf("%w: set %q: %w", ErrApply, key, err)
		}
		l.applied[key] = struct{}{}
	}
	for key := range l.applied {
		if _, keep := entries[key]; keep {
			continue
		}
		if _, err := l.store.Delete(ctx, key); err != nil {
			return 0, fmt.Errorf("%w: delete %q: %w", ErrApply, key, err)
		}
		delete(l.applied, key)
	}
	return len(entries), nil
}

// ApplyFile loads path and applies it.
func (l *Loader) ApplyFile(ctx context.Context, path string) error {
	f, err := Load(path)
	if err == nil {
		var n int
		n, err = l.Apply(ctx, f)
		if err == nil {
			metrics.RecordFixtureReload("ok")
			l.log.Info(ctx, "fixtures applied", logger.String("path", path), logger.Int("responses", n))
			return nil
		}
	}
	metrics.RecordFixtureReload("error")
	return err
}

// Reload re-applies path after a change. Unlike ApplyFile, an empty file
// leaves the applied responses in place: editors truncate before writing, and
// the write that follows triggers another reload. Clearing a file on purpose
// is done with an empty section such as "responses: {}".
func (l *Loader) Reload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		metrics.RecordFixtureReload("error")
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		l.log.Info(ctx, "fixtures file empty, keeping previous responses", logger.String("path", path))
		return nil
	}
	f, err := Parse(data)
	if err == nil {
		var n int
		n, err = l.Apply(ctx, f)
		if err == nil {
			metrics.RecordFixtureReload("ok")
			l.log.Info(ctx, "fixtures reloaded", logger.String("path", path), logger.Int("responses", n))
			return nil
		}
	}
	metrics.RecordFixtureReload("error")
	return err
}

// Watch reloads path every time it is written until ctx is cancelled. A
// reload that fails is logged and the previously applied responses stay in
// place. The parent directory is watched so atomic saves that replace the
// file are seen.
func (l *Loader) Watch(ctx context.Context, path string) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrRead, path, err)
	}
	l.log.Info(ctx, "watching fixtures", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := l.Reload(ctx, path); err != nil {
				l.log.Error(ctx, "fixtures reload failed, keeping previous responses",
					logger.String("path", path), logger.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Error(ctx, "fixtures watcher error", logger.Error(err))
		}
	}
}
