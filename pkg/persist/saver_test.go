package persist

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

func TestSaverWritesOnRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree-tabs.json")
	fs := NewFileStore(path)
	s := buildSession(t)

	sv := NewSaver(fs, func() Document { return Capture(s) })
	sv.Request()
	sv.Close()

	doc := fs.Load()
	if len(doc.Tabs) != 3 {
		t.Errorf("loaded %d tabs, want 3", len(doc.Tabs))
	}
}

func TestSaverCoalescesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree-tabs.json")
	fs := NewFileStore(path)

	var captures atomic.Int64
	block := make(chan struct{})
	sv := NewSaver(fs, func() Document {
		captures.Add(1)
		<-block
		return Document{Version: FormatVersion}
	})

	// First request starts a capture; the rest arrive while it is blocked
	// and must fold into a single follow-up.
	sv.Request()
	for i := 0; i < 20; i++ {
		sv.Request()
	}
	close(block)
	time.Sleep(50 * time.Millisecond)
	sv.Close()

	if n := captures.Load(); n > 2 {
		t.Errorf("captures = %d, want at most 2 for a burst", n)
	}
}

func TestSaverCloseFlushesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree-tabs.json")
	fs := NewFileStore(path)
	s := tabtree.NewSession(tabtree.DefaultPolicies())
	s.CreateTabNode("last", "Last Change", "reader", tabtree.ZeroID)

	sv := NewSaver(fs, func() Document { return Capture(s) })
	sv.Request()
	sv.Close() // must not lose the request racing with shutdown

	if doc := fs.Load(); len(doc.Tabs) != 1 {
		t.Errorf("pending save lost on close: %d tabs", len(doc.Tabs))
	}
}

func TestWatcherSeesAtomicReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree-tabs.json")
	fs := NewFileStore(path)
	if err := fs.Save(Document{Version: FormatVersion}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	fired := make(chan struct{}, 1)
	w, err := NewWatcher(path, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := fs.Save(Capture(buildSession(t))); err != nil {
		t.Fatalf("Save: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report the external write")
	}
}
