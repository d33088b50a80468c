// Package host defines the narrow contract with the application that owns
// the real tabs. The host is the sole source of truth for which tabs exist;
// the sidebar only mirrors them and never invents or destroys one on its
// own.
package host

import "context"

// TabInfo describes one host-reported tab.
type TabInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// Snapshot is an authoritative, ordered view of the host's tab strip.
type Snapshot struct {
	Tabs       []TabInfo `json:"tabs"`
	SelectedID string    `json:"selectedId"`
}

// EventKind enumerates host tab lifecycle notifications.
type EventKind int

const (
	TabsAdded EventKind = iota
	TabsClosed
	TabsSelected
)

func (k EventKind) String() string {
	switch k {
	case TabsAdded:
		return "added"
	case TabsClosed:
		return "closed"
	case TabsSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// Event is a single host notification. Events are delivered one at a time,
// in emission order, and each is processed to completion before the next.
type Event struct {
	Kind EventKind
	IDs  []string
}

// Host is the interface the sidebar core calls into. Implementations wrap
// whatever bridge connects to the live application; tests use Memory.
type Host interface {
	// ListCurrentTabs returns the full authoritative tab snapshot.
	ListCurrentTabs(ctx context.Context) (Snapshot, error)
	// SelectTab asks the host to focus the given tab.
	SelectTab(ctx context.Context, id string) error
	// CloseTab asks the host to close the given tab. The resulting
	// TabsClosed event, not the return value, is what removes the node.
	CloseTab(ctx context.Context, id string) error
	// Events returns the channel on which lifecycle notifications arrive.
	Events() <-chan Event
}
