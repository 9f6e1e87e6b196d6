package imagewatch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xADE/nas-game/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const DefaultDebounce = 500 * time.Millisecond

var watchedExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// Handler is called once per settled image file
type Handler func(path string)

// Watcher reports images that appear in a directory after their writes settle
type Watcher struct {
	dir      string
	handler  Handler
	debounce time.Duration
	log      *logrus.Entry

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timers  map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// New watches dir; the watch is active once New returns
func New(dir string, handler Handler, debounce time.Duration, log logrus.FieldLogger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		dir:      dir,
		handler:  handler,
		debounce: debounce,
		log:      logging.Component(log, "imagewatch"),
		watcher:  fw,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Run dispatches events until ctx is done, then stops pending timers and
// waits for running handlers.
func (w *Watcher) Run(ctx context.Context) {
	defer w.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("watcher error")
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		w.log.WithField("file", filepath.Base(path)).Debug("image settled")
		w.handler(path)
	})
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
	if err := w.watcher.Close(); err != nil {
		w.log.WithError(err).Warn("failed to close watcher")
	}
}
