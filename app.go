package main

import (
	"context"
	"log"

	"github.com/colobas/zotero-tree-style-tabs/pkg/config"
	"github.com/colobas/zotero-tree-style-tabs/pkg/host"
	"github.com/colobas/zotero-tree-style-tabs/pkg/persist"
	"github.com/colobas/zotero-tree-style-tabs/pkg/reconcile"
	"github.com/colobas/zotero-tree-style-tabs/pkg/script"
	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

// App is the Wails backend. It exposes methods to the frontend via bindings
// and owns the long-lived pieces: the session, the reconciler, the save
// loop and the host event pump.
type App struct {
	ctx     context.Context
	cfg     config.Config
	session *tabtree.Session
	tabs    host.Host
	rec     *reconcile.Reconciler
	console *script.Console
	store   *persist.FileStore
	saver   *persist.Saver
	watcher *persist.Watcher
	cancel  context.CancelFunc
}

// TreeRow is the JSON-serializable display row sent to the frontend. Rows
// arrive pre-flattened in display order with their indentation level, so
// the frontend renders a list, not a recursive tree.
type TreeRow struct {
	ID          string `json:"id"`
	ParentID    string `json:"parentId"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Kind        string `json:"kind"`
	Level       int    `json:"level"`
	Collapsed   bool   `json:"collapsed"`
	HasChildren bool   `json:"hasChildren"`
	Selected    bool   `json:"selected"`
}

// ScriptErrorData is a JSON-serializable console error for the frontend.
type ScriptErrorData struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ScriptResult is the console output returned to the frontend.
type ScriptResult struct {
	Output string            `json:"output"`
	Errors []ScriptErrorData `json:"errors"`
}

// Preferences is the JSON shape of the user-facing settings.
type Preferences struct {
	PromoteChildrenOnClose bool `json:"promoteChildrenOnClose"`
	AutoCollapseSiblings   bool `json:"autoCollapseSiblings"`
}

// NewApp creates the App around a host connection. The session and console
// exist immediately; everything touching the filesystem waits for startup.
func NewApp(tabs host.Host) *App {
	session := tabtree.NewSession(tabtree.DefaultPolicies())
	return &App{
		session: session,
		tabs:    tabs,
		rec:     reconcile.New(session),
		console: script.New(session),
	}
}

// startup is called by Wails on app startup. It loads preferences and the
// persisted tree, runs the first sync pass against the live host state and
// starts the save loop, the file watcher and the event pump.
func (a *App) startup(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	cfg, err := config.Load()
	if err != nil {
		log.Printf("config load: %v, using defaults", err)
		cfg = config.Default()
	}
	a.cfg = cfg
	a.session.SetPolicies(cfg.Policies())

	a.store = persist.NewFileStore(cfg.TreePath())
	if err := persist.Apply(a.store.Load(), a.session); err != nil {
		log.Printf("restore persisted tree: %v, starting empty", err)
	}

	if snap, err := a.tabs.ListCurrentTabs(a.ctx); err != nil {
		log.Printf("initial tab listing: %v", err)
	} else if err := a.rec.Sync(snap); err != nil {
		log.Printf("initial sync: %v", err)
	}

	a.saver = persist.NewSaver(a.store, func() persist.Document {
		return persist.Capture(a.session)
	})
	a.session.SetOnChange(a.saver.Request)

	w, err := persist.NewWatcher(a.store.Path(), a.reloadFromDisk)
	if err != nil {
		log.Printf("file watcher: %v, cross-window reload disabled", err)
	} else {
		a.watcher = w
	}

	go a.pumpEvents()
}

// shutdown stops the background loops. The saver flushes any pending write
// before returning, so a mutation made just before quit still lands.
func (a *App) shutdown(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.saver != nil {
		a.saver.Close()
	}
}

// pumpEvents drives reconciliation. Every host event triggers a fresh
// snapshot and a full sync pass; passes are serialized by this single
// goroutine, never run concurrently.
func (a *App) pumpEvents() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev, ok := <-a.tabs.Events():
			if !ok {
				return
			}
			snap, err := a.tabs.ListCurrentTabs(a.ctx)
			if err != nil {
				log.Printf("list tabs after %s: %v", ev.Kind, err)
				continue
			}
			if err := a.rec.Sync(snap); err != nil {
				log.Printf("sync after %s: %v", ev.Kind, err)
			}
		}
	}
}

// reloadFromDisk picks up a tree written by another window. Restore swaps
// the store without firing the write-through hook, so reloading our own
// save is harmless and cannot loop back into another write.
func (a *App) reloadFromDisk() {
	if err := persist.Apply(a.store.Load(), a.session); err != nil {
		log.Printf("reload persisted tree: %v, keeping in-memory state", err)
	}
}

// guard runs a binding body and contains panics. A bug in a tree operation
// must cost at most that one operation, never the sidebar process.
func guard(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: panic: %v", op, r)
		}
	}()
	fn()
}

// ---------------------------------------------------------------------------
// Frontend bindings
// ---------------------------------------------------------------------------

// GetTree returns the visible rows in display order: depth-first, roots in
// root order, children in child order, skipping the subtrees of collapsed
// nodes.
func (a *App) GetTree() []TreeRow {
	rows := []TreeRow{}
	guard("GetTree", func() {
		for _, n := range a.session.TabsInTreeOrder() {
			if !a.session.IsVisible(n.ID) {
				continue
			}
			rows = append(rows, TreeRow{
				ID:          string(n.ID),
				ParentID:    string(n.ParentID),
				Title:       n.Title,
				Type:        n.Type,
				Kind:        n.Kind.String(),
				Level:       n.Level,
				Collapsed:   n.Collapsed,
				HasChildren: len(n.ChildIDs) > 0,
				Selected:    n.Selected,
			})
		}
	})
	return rows
}

// ActivateTab asks the host to focus the given tab.
func (a *App) ActivateTab(id string) {
	guard("ActivateTab", func() {
		if err := a.tabs.SelectTab(a.ctx, id); err != nil {
			log.Printf("ActivateTab %s: %v", id, err)
		}
	})
}

// ToggleCollapsed flips the collapse state of a node.
func (a *App) ToggleCollapsed(id string) {
	guard("ToggleCollapsed", func() {
		a.session.ToggleCollapsed(tabtree.NodeID(id))
	})
}

// CollapseAll collapses every node that has children.
func (a *App) CollapseAll() {
	guard("CollapseAll", func() { a.session.CollapseAll() })
}

// ExpandAll expands the whole tree.
func (a *App) ExpandAll() {
	guard("ExpandAll", func() { a.session.ExpandAll() })
}

// NewGroup creates a group node under parentID (or at the root when empty)
// and returns its id.
func (a *App) NewGroup(title, parentID string) string {
	var id string
	guard("NewGroup", func() {
		g := a.session.CreateGroupNode(title, tabtree.NodeID(parentID))
		id = string(g.ID)
	})
	return id
}

// Rename sets a node's title.
func (a *App) Rename(id, title string) {
	guard("Rename", func() {
		a.session.Rename(tabtree.NodeID(id), title)
	})
}

// RemoveGroup deletes a group node, promoting its children into its place.
// Tab nodes are refused; closing tabs goes through the host.
func (a *App) RemoveGroup(id string) {
	guard("RemoveGroup", func() {
		n := a.session.Get(tabtree.NodeID(id))
		if n == nil || n.Kind != tabtree.KindGroup {
			log.Printf("RemoveGroup %s: not a group", id)
			return
		}
		a.session.RemoveNode(n.ID, true)
	})
}

// MoveUnder makes child the last child of parent. Moves that would create
// a cycle are silently refused.
func (a *App) MoveUnder(childID, parentID string) {
	guard("MoveUnder", func() {
		a.session.Reparent(tabtree.NodeID(childID), tabtree.NodeID(parentID))
	})
}

// MoveToRoot detaches a node from its parent and appends it to the roots.
func (a *App) MoveToRoot(id string) {
	guard("MoveToRoot", func() {
		a.session.Reparent(tabtree.NodeID(id), tabtree.ZeroID)
	})
}

// MoveUp swaps a node with its previous sibling.
func (a *App) MoveUp(id string) {
	guard("MoveUp", func() {
		a.session.MoveWithinSiblings(tabtree.NodeID(id), tabtree.Up)
	})
}

// MoveDown swaps a node with its next sibling.
func (a *App) MoveDown(id string) {
	guard("MoveDown", func() {
		a.session.MoveWithinSiblings(tabtree.NodeID(id), tabtree.Down)
	})
}

// CloseSubtree closes every tab in a node's subtree, deepest first, then
// the node itself if it is a tab. The tree updates arrive back through the
// host event pump; groups left empty stay in place.
func (a *App) CloseSubtree(id string) {
	guard("CloseSubtree", func() {
		nid := tabtree.NodeID(id)
		for _, did := range a.session.DescendantsDeepestFirst(nid) {
			if n := a.session.Get(did); n != nil && n.Kind == tabtree.KindTab {
				if err := a.tabs.CloseTab(a.ctx, string(did)); err != nil {
					log.Printf("CloseSubtree %s: close %s: %v", id, did, err)
				}
			}
		}
		if n := a.session.Get(nid); n != nil && n.Kind == tabtree.KindTab {
			if err := a.tabs.CloseTab(a.ctx, id); err != nil {
				log.Printf("CloseSubtree %s: close %s: %v", id, id, err)
			}
		}
	})
}

// RunScript evaluates console source against the live tree.
func (a *App) RunScript(source string) ScriptResult {
	result := ScriptResult{Errors: []ScriptErrorData{}}
	guard("RunScript", func() {
		res := a.console.Run(source)
		result.Output = res.Output
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, ScriptErrorData{Line: e.Line, Message: e.Message})
		}
	})
	return result
}

// GetPreferences returns the current settings.
func (a *App) GetPreferences() Preferences {
	p := a.session.Policies()
	return Preferences{
		PromoteChildrenOnClose: p.PromoteChildrenOnClose,
		AutoCollapseSiblings:   p.AutoCollapseSiblings,
	}
}

// SetPreferences applies and persists new settings.
func (a *App) SetPreferences(prefs Preferences) {
	guard("SetPreferences", func() {
		a.session.SetPolicies(tabtree.Policies{
			PromoteChildrenOnClose: prefs.PromoteChildrenOnClose,
			AutoCollapseSiblings:   prefs.AutoCollapseSiblings,
		})
		a.cfg.PromoteChildrenOnClose = &prefs.PromoteChildrenOnClose
		a.cfg.AutoCollapseSiblings = prefs.AutoCollapseSiblings
		if err := config.Save(a.cfg); err != nil {
			log.Printf("SetPreferences: save: %v", err)
		}
	})
}
