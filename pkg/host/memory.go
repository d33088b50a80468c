package host

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Host. It backs tests and the development shell,
// and doubles as the reference for how a real bridge is expected to behave:
// every mutation emits the matching event, and CloseTab removes the tab
// before the TabsClosed event is observed.
type Memory struct {
	mu       sync.Mutex
	tabs     []TabInfo
	selected string
	events   chan Event
}

// NewMemory creates an empty in-memory host. The event channel is buffered
// so test code can interleave mutations and drains freely.
func NewMemory() *Memory {
	return &Memory{events: make(chan Event, 64)}
}

// ListCurrentTabs implements Host.
func (m *Memory) ListCurrentTabs(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Tabs:       append([]TabInfo(nil), m.tabs...),
		SelectedID: m.selected,
	}, nil
}

// SelectTab implements Host.
func (m *Memory) SelectTab(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.indexLocked(id) < 0 {
		m.mu.Unlock()
		return fmt.Errorf("host: no tab %q", id)
	}
	m.selected = id
	m.mu.Unlock()
	m.events <- Event{Kind: TabsSelected, IDs: []string{id}}
	return nil
}

// CloseTab implements Host.
func (m *Memory) CloseTab(ctx context.Context, id string) error {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("host: no tab %q", id)
	}
	m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
	if m.selected == id {
		m.selected = ""
		if len(m.tabs) > 0 {
			m.selected = m.tabs[len(m.tabs)-1].ID
		}
	}
	m.mu.Unlock()
	m.events <- Event{Kind: TabsClosed, IDs: []string{id}}
	return nil
}

// Events implements Host.
func (m *Memory) Events() <-chan Event { return m.events }

// Open adds a tab to the strip and emits TabsAdded. Test scaffolding.
func (m *Memory) Open(id, title, typ string) {
	m.mu.Lock()
	m.tabs = append(m.tabs, TabInfo{ID: id, Title: title, Type: typ})
	m.mu.Unlock()
	m.events <- Event{Kind: TabsAdded, IDs: []string{id}}
}

// Retitle changes a tab's title without emitting an event, the way the
// host renames a tab in place when its content loads.
func (m *Memory) Retitle(id, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		m.tabs[i].Title = title
	}
}

// Recycle simulates the host regenerating a tab's identifier across an
// unload/reload cycle: the old id disappears and the same logical tab
// reappears under a fresh one, title intact.
func (m *Memory) Recycle(oldID, newID string) {
	m.mu.Lock()
	i := m.indexLocked(oldID)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	m.tabs[i].ID = newID
	if m.selected == oldID {
		m.selected = newID
	}
	m.mu.Unlock()
	m.events <- Event{Kind: TabsClosed, IDs: []string{oldID}}
	m.events <- Event{Kind: TabsAdded, IDs: []string{newID}}
}

func (m *Memory) indexLocked(id string) int {
	for i, t := range m.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}
