// Package reconcile brings the stored tab tree into agreement with the
// host's authoritative tab snapshot. The host regenerates tab identifiers
// across unload/reload cycles and restarts, so a sync pass has to decide,
// for every reported id it has never seen, whether it is a genuinely new
// tab or an old node reappearing under a fresh id.
package reconcile

import (
	"fmt"
	"log"

	"github.com/colobas/zotero-tree-style-tabs/pkg/host"
	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

// Reconciler synchronizes a session against host snapshots. Passes are
// serialized: the migration step scans and mutates shared state, so two
// passes must never overlap. Callers drive Sync from a single event loop.
type Reconciler struct {
	session *tabtree.Session
}

// New creates a Reconciler over the given session.
func New(session *tabtree.Session) *Reconciler {
	return &Reconciler{session: session}
}

// Sync runs one reconciliation pass. It is idempotent: running it twice
// with the same snapshot leaves the tree unchanged the second time. Any
// panic inside the pass is recovered and returned as an error; in-memory
// state may then be partially updated, but no persistence write fires and
// the next pass self-corrects since it starts again from the authoritative
// snapshot.
func (r *Reconciler) Sync(snap host.Snapshot) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reconcile: pass aborted: %v", rec)
			log.Printf("reconcile: %v", err)
		}
	}()

	return r.session.Batch(func() error {
		r.apply(snap)
		return nil
	})
}

func (r *Reconciler) apply(snap host.Snapshot) {
	s := r.session

	// Step 1: the set of ids the host currently reports.
	reported := make(map[tabtree.NodeID]struct{}, len(snap.Tabs))
	for _, tab := range snap.Tabs {
		reported[tabtree.NodeID(tab.ID)] = struct{}{}
	}

	// Steps 2-4: walk the reported tabs in host order. Known ids get their
	// metadata refreshed; unknown ids are first tried as migrations and
	// only then created. A node already migrated this pass carries an id
	// the host reports, so it can never be claimed twice.
	for _, tab := range snap.Tabs {
		id := tabtree.NodeID(tab.ID)
		if s.Get(id) != nil {
			s.RefreshTab(id, tab.Title, tab.Type)
			continue
		}
		if old := r.findMigrationSource(tab, reported); !old.IsZero() {
			if s.MigrateID(old, id) {
				s.RefreshTab(id, tab.Title, tab.Type)
				continue
			}
		}
		// Genuinely new: always a root. Auto-parenting under the last
		// selection reads close-and-reopen churn as deliberate nesting and
		// cascades, so new tabs never inherit a parent here.
		s.CreateTabNode(id, tab.Title, tab.Type, tabtree.ZeroID)
	}

	// Step 5: drop tab nodes the host no longer reports. Group nodes are
	// local containers and are never removed by the host's lifecycle.
	// The no-promote policy only applies when nothing beneath the removed
	// node survives the pass: a still-reported tab, or a group, must be
	// reattached rather than stranded with a dangling parent.
	promote := s.Policies().PromoteChildrenOnClose
	for _, n := range s.TabsInTreeOrder() {
		if n.Kind != tabtree.KindTab {
			continue
		}
		if _, ok := reported[n.ID]; ok {
			continue
		}
		keep := promote
		if !keep {
			for _, did := range s.Descendants(n.ID) {
				if _, live := reported[did]; live {
					keep = true
					break
				}
				if d := s.Get(did); d != nil && d.Kind == tabtree.KindGroup {
					keep = true
					break
				}
			}
		}
		s.RemoveNode(n.ID, keep)
	}

	// Steps 6-7: selection flags and a global level recompute.
	s.SetSelected(tabtree.NodeID(snap.SelectedID))
	s.RecomputeLevels()
}

// findMigrationSource looks for a stored tab node that is plausibly the
// same logical tab as the reported one: a tab-kind node the host is not
// reporting, whose stored title exactly equals the reported title. Exact
// title equality is a weak identity signal (it can misfire on duplicate
// titles and miss a tab renamed while closed) but it is the only signal
// the host leaves us, and hierarchy loss on every reload is the worse
// failure.
func (r *Reconciler) findMigrationSource(
	tab host.TabInfo,
	reported map[tabtree.NodeID]struct{},
) tabtree.NodeID {
	for _, n := range r.session.TabsInTreeOrder() {
		if n.Kind != tabtree.KindTab || n.Title != tab.Title {
			continue
		}
		if _, stillLive := reported[n.ID]; stillLive {
			continue
		}
		return n.ID
	}
	return tabtree.ZeroID
}
