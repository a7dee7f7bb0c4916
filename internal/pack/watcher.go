package pack

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"pathing/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a pack manifest and calls OnChange once a burst of writes
// has settled. Editors often save through rename, so the containing
// directory is watched and events are filtered by file name.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	debounceDur time.Duration
	onChange    func(ctx context.Context, path string)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for the manifest at path.
func NewWatcher(path string, debounce time.Duration, onChange func(ctx context.Context, path string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		path:        abs,
		debounceDur: debounce,
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.running = true
	logging.Watcher("watching pack %s", w.path)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatcherWarn("error closing watcher: %v", err)
	}
	logging.Watcher("stopped watching %s", w.path)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounceDur)
			} else {
				timer.Reset(w.debounceDur)
			}
			timerCh = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatcherWarn("watch error: %v", err)

		case <-timerCh:
			timerCh = nil
			logging.Watcher("pack changed: %s", w.path)
			w.onChange(ctx, w.path)
		}
	}
}
