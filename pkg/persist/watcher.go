package persist

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last filesystem
// event before reporting a change. Atomic saves land as create+rename
// bursts; one callback per burst is enough.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports external modifications of the tree document, so a second
// window sharing the same profile picks up structural changes written by
// the first. It watches the parent directory rather than the file itself
// because atomic rename-over replaces the file's inode.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()

	mu      sync.Mutex
	fw      *fsnotify.Watcher
	timer   *time.Timer
	stopped chan struct{}
	once    sync.Once
}

// NewWatcher creates a watcher for the given document path. onChange fires
// on the watcher's goroutine after the debounce window closes.
func NewWatcher(path string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("persist: watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("persist: watch %s: %w", filepath.Dir(path), err)
	}
	w := &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		onChange: onChange,
		fw:       fw,
		stopped:  make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.once.Do(func() {
		w.fw.Close()
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
	<-w.stopped
}

func (w *Watcher) run() {
	defer close(w.stopped)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.bump()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Non-fatal; the next save from this window still lands, only
			// cross-window refresh degrades.
			log.Printf("persist: watch: %v", err)
		}
	}
}

// bump restarts the debounce timer.
func (w *Watcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
