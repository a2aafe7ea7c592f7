// Package surface provides an editing surface backed by a JSON file in the
// block editor's save format. Any text editor can be used to change it.
package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/debemdeboas/blockpress/internal/editor"
	"github.com/debemdeboas/blockpress/internal/model"
)

const DefaultWriteDebounce = 150 * time.Millisecond

var ErrAlreadyDestroyed = errors.New("surface already destroyed")

type File struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()

	mu        sync.Mutex
	destroyed bool
	done      chan struct{}
	stopped   chan struct{}
}

// Factory returns an editor.Factory that treats the holder as a file path.
func Factory(debounce time.Duration) editor.Factory {
	return func(ctx context.Context, opts editor.Options, cb editor.Callbacks) (editor.Instance, error) {
		return Open(ctx, opts, cb, debounce)
	}
}

// Open creates the file with opts.Data if it does not exist, starts
// watching it and signals readiness.
func Open(ctx context.Context, opts editor.Options, cb editor.Callbacks, debounce time.Duration) (*File, error) {
	path, err := filepath.Abs(opts.Holder)
	if err != nil {
		return nil, fmt.Errorf("resolving holder path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultWriteDebounce
	}

	if err := seed(path, opts.Data); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory; editors often replace the file on save.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	f := &File{
		path:     path,
		watcher:  w,
		debounce: debounce,
		onChange: cb.OnChange,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go f.loop(ctx)

	surfaceLogger.Info().Str("path", path).Msg("Watching draft file")
	if cb.OnReady != nil {
		cb.OnReady()
	}
	return f, nil
}

func seed(path string, d model.Draft) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking draft file: %w", err)
	}

	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding initial draft: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("creating draft file: %w", err)
	}
	return nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) loop(ctx context.Context) {
	defer close(f.stopped)

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
			if f.onChange == nil {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(f.debounce, f.onChange)
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			surfaceLogger.Error().Err(err).Str("path", f.path).Msg("Watcher error")
		}
	}
}

// Save reads and decodes the file. A blank file is an empty draft.
func (f *File) Save(ctx context.Context) (model.Draft, error) {
	if err := ctx.Err(); err != nil {
		return model.Draft{}, err
	}

	f.mu.Lock()
	destroyed := f.destroyed
	f.mu.Unlock()
	if destroyed {
		return model.Draft{}, ErrAlreadyDestroyed
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return model.Draft{}, fmt.Errorf("reading draft file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return model.Draft{}, nil
	}

	var d model.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.Draft{}, fmt.Errorf("decoding draft file: %w", err)
	}
	return d, nil
}

// Destroy stops watching. The file itself is left in place.
func (f *File) Destroy() error {
	f.mu.Lock()
	if f.destroyed {
		f.mu.Unlock()
		return ErrAlreadyDestroyed
	}
	f.destroyed = true
	close(f.done)
	f.mu.Unlock()

	err := f.watcher.Close()
	<-f.stopped
	if err != nil {
		return fmt.Errorf("closing watcher: %w", err)
	}
	surfaceLogger.Debug().Str("path", f.path).Msg("Stopped watching draft file")
	return nil
}
