package tabtree

import (
	"strings"
	"sync"
)

// Policies holds the user-configurable behaviors of the mutation engine.
type Policies struct {
	// PromoteChildrenOnClose controls what happens to the children of a tab
	// node removed because the host closed the tab. When true (the default)
	// they are reattached to the removed node's parent; when false the
	// whole subtree goes away with it.
	PromoteChildrenOnClose bool
	// AutoCollapseSiblings enables accordion behavior: expanding a node
	// collapses every sibling that itself has children.
	AutoCollapseSiblings bool
}

// DefaultPolicies returns the out-of-the-box policy set.
func DefaultPolicies() Policies {
	return Policies{PromoteChildrenOnClose: true}
}

// Direction selects a sibling-reorder direction.
type Direction int

const (
	Up Direction = iota
	Down
)

// Session owns one window's tab tree: the node store, the root ordering and
// the collapsed set, together with every operation that may mutate them.
// All access is serialized through a single session-wide mutex; multi-node
// invariants must be checked atomically, so there is deliberately no
// per-node locking.
//
// A Session is an explicit value, not a package global, so tests and
// multi-window setups can hold independent instances.
type Session struct {
	mu       sync.Mutex
	store    *Store
	policies Policies
	onChange func()
	mute     int
}

// NewSession creates an empty session with the given policies.
func NewSession(p Policies) *Session {
	return &Session{store: NewStore(), policies: p}
}

// Policies returns the session's policy set.
func (s *Session) Policies() Policies {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policies
}

// SetPolicies replaces the session's policy set.
func (s *Session) SetPolicies(p Policies) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies = p
}

// SetOnChange installs the write-through hook fired after every structural
// mutation. The hook runs outside the session lock but must still return
// quickly and must not call back into the session; hand the work to a
// channel or goroutine.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Batch runs fn with change notification suspended and fires a single
// notification afterwards if fn succeeds. The reconciler uses this so a
// sync pass produces one persistence write instead of one per step, and
// none at all when the pass aborts.
func (s *Session) Batch(fn func() error) error {
	s.mu.Lock()
	s.mute++
	s.mu.Unlock()

	// The decrement must survive a panicking fn, or notifications stay
	// muted for the life of the session. It also has to land before the
	// success-path notify, so it cannot live only in the defer.
	unmuted := false
	unmute := func() {
		if unmuted {
			return
		}
		unmuted = true
		s.mu.Lock()
		s.mute--
		s.mu.Unlock()
	}
	defer unmute()

	err := fn()
	unmute()

	if err == nil {
		s.notify()
	}
	return err
}

// notify fires the write-through hook unless notifications are suspended.
func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	muted := s.mute > 0
	s.mu.Unlock()
	if !muted && fn != nil {
		fn()
	}
}

// CreateTabNode creates a node mirroring a host tab and returns a clone of
// it. If parentID resolves to a live node the new node becomes its last
// child; otherwise it becomes a root. If the id already exists the existing
// node is returned unchanged.
func (s *Session) CreateTabNode(id NodeID, title, typ string, parentID NodeID) *Node {
	s.mu.Lock()
	if existing := s.store.Get(id); existing != nil {
		c := existing.Clone()
		s.mu.Unlock()
		return c
	}
	n := &Node{ID: id, Title: title, Type: typ, Kind: KindTab}
	s.store.Upsert(n)
	s.attachLocked(n, parentID)
	c := n.Clone()
	s.mu.Unlock()
	s.notify()
	return c
}

// CreateGroupNode creates a local grouping container with a generated id
// and returns a clone of it.
func (s *Session) CreateGroupNode(title string, parentID NodeID) *Node {
	if strings.TrimSpace(title) == "" {
		title = "New Group"
	}
	s.mu.Lock()
	n := &Node{ID: NewGroupID(), Title: title, Kind: KindGroup}
	s.store.Upsert(n)
	s.attachLocked(n, parentID)
	c := n.Clone()
	s.mu.Unlock()
	s.notify()
	return c
}

// Rename sets a node's title. Whitespace is trimmed; an empty result keeps
// the old title. Unknown ids are a no-op.
func (s *Session) Rename(id NodeID, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	s.mu.Lock()
	n := s.store.Get(id)
	if n == nil || n.Title == title {
		s.mu.Unlock()
		return
	}
	n.Title = title
	s.mu.Unlock()
	s.notify()
}

// RemoveNode deletes a node. With promoteChildren the children are spliced
// into the removed node's former position in its parent's child list (or
// the root list), preserving their relative order; without it the caller
// is asserting the children are already gone. Group nodes always promote:
// a pure organizational container must never take its children down with
// it. The id is cleared from the root list, the collapsed set and the
// former parent's child list in every case.
func (s *Session) RemoveNode(id NodeID, promoteChildren bool) {
	s.mu.Lock()
	n := s.store.Get(id)
	if n == nil {
		s.mu.Unlock()
		return
	}
	if n.Kind == KindGroup {
		promoteChildren = true
	}
	s.removeLocked(n, promoteChildren)
	s.mu.Unlock()
	s.notify()
}

// ToggleCollapsed flips a node's collapse state. Collapsing a childless
// node is meaningless and does not toggle the flag. On expand, when the
// accordion policy is enabled, every sibling that itself has children is
// forced collapsed.
func (s *Session) ToggleCollapsed(id NodeID) {
	s.mu.Lock()
	n := s.store.Get(id)
	if n == nil || len(n.ChildIDs) == 0 {
		s.mu.Unlock()
		return
	}
	expanding := n.Collapsed
	s.store.setCollapsed(id, !n.Collapsed)
	if expanding && s.policies.AutoCollapseSiblings {
		for _, sib := range s.siblingsLocked(n) {
			if sib != id {
				if sn := s.store.Get(sib); sn != nil && len(sn.ChildIDs) > 0 {
					s.store.setCollapsed(sib, true)
				}
			}
		}
	}
	s.mu.Unlock()
	s.notify()
}

// CollapseAll collapses every node that has children.
func (s *Session) CollapseAll() {
	s.mu.Lock()
	s.store.walk(func(n *Node) {
		if len(n.ChildIDs) > 0 {
			s.store.setCollapsed(n.ID, true)
		}
	})
	s.mu.Unlock()
	s.notify()
}

// ExpandAll clears the collapsed set wholesale rather than visiting each
// node; the result is the same and the set is the cheaper handle.
func (s *Session) ExpandAll() {
	s.mu.Lock()
	s.store.clearCollapsed()
	s.mu.Unlock()
	s.notify()
}

// Reparent detaches a node from its current position and attaches it as the
// last child of newParentID, or as the last root when newParentID is zero.
// The move is refused when it would create a cycle, i.e. when newParentID
// is the node itself or one of its descendants, and when either id is
// unknown. Levels of the moved subtree are recomputed.
func (s *Session) Reparent(id, newParentID NodeID) {
	s.mu.Lock()
	n := s.store.Get(id)
	if n == nil {
		s.mu.Unlock()
		return
	}
	if !newParentID.IsZero() {
		if newParentID == id || s.store.Get(newParentID) == nil {
			s.mu.Unlock()
			return
		}
		if _, isDesc := s.descendantSetLocked(id)[newParentID]; isDesc {
			s.mu.Unlock()
			return
		}
	}
	s.detachLocked(n)
	s.attachLocked(n, newParentID)
	s.mu.Unlock()
	s.notify()
}

// MoveWithinSiblings swaps a node with its immediate neighbor in whichever
// ordered sequence currently contains it. At either boundary it is a no-op.
func (s *Session) MoveWithinSiblings(id NodeID, dir Direction) {
	s.mu.Lock()
	n := s.store.Get(id)
	if n == nil {
		s.mu.Unlock()
		return
	}
	seq := s.containerLocked(n)
	i := indexOf(seq, id)
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if i < 0 || j < 0 || j >= len(seq) {
		s.mu.Unlock()
		return
	}
	seq[i], seq[j] = seq[j], seq[i]
	s.mu.Unlock()
	s.notify()
}

// MigrateID relabels a stored node from oldID to newID, rewriting every
// cross-reference: the former parent's child list, each child's parent
// link, the root list and the collapsed set. This is how a user-built
// hierarchy survives the host regenerating tab identifiers across
// unload/reload cycles. It reports whether a relabel happened; it refuses
// when oldID is unknown or newID is already taken.
func (s *Session) MigrateID(oldID, newID NodeID) bool {
	s.mu.Lock()
	n := s.store.Get(oldID)
	if n == nil || s.store.Get(newID) != nil || oldID == newID {
		s.mu.Unlock()
		return false
	}

	delete(s.store.nodes, oldID)
	n.ID = newID
	s.store.nodes[newID] = n

	if parent := s.store.Get(n.ParentID); parent != nil {
		if i := indexOf(parent.ChildIDs, oldID); i >= 0 {
			parent.ChildIDs[i] = newID
		}
	}
	for _, cid := range n.ChildIDs {
		if c := s.store.Get(cid); c != nil {
			c.ParentID = newID
		}
	}
	if i := s.store.rootIndex(oldID); i >= 0 {
		s.store.roots[i] = newID
	}
	if _, ok := s.store.collapsed[oldID]; ok {
		delete(s.store.collapsed, oldID)
		s.store.collapsed[newID] = struct{}{}
	}

	s.mu.Unlock()
	s.notify()
	return true
}

// RefreshTab updates the display metadata of a tab node in place. It
// reports whether anything changed. Group nodes are untouched; their
// metadata belongs to the user.
func (s *Session) RefreshTab(id NodeID, title, typ string) bool {
	s.mu.Lock()
	n := s.store.Get(id)
	if n == nil || n.Kind != KindTab || (n.Title == title && n.Type == typ) {
		s.mu.Unlock()
		return false
	}
	n.Title = title
	n.Type = typ
	s.mu.Unlock()
	s.notify()
	return true
}

// SetSelected recomputes the selection flag on every node: true iff the id
// equals selectedID. Group nodes are never selected. Selection is transient
// state and does not fire the write-through hook.
func (s *Session) SetSelected(selectedID NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.store.nodes {
		n.Selected = n.Kind == KindTab && n.ID == selectedID
	}
}

// RecomputeLevels rewrites every cached level from the roots downward.
// A full pass is cheap at realistic tab counts (tens, not thousands).
func (s *Session) RecomputeLevels() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, root := range s.store.roots {
		s.setLevelsLocked(root, 0)
	}
}

// ---------------------------------------------------------------------------
// Internal helpers. All assume s.mu is held.
// ---------------------------------------------------------------------------

// attachLocked links n under parentID, or into the root list when parentID
// is zero or unknown, and recomputes the subtree's levels.
func (s *Session) attachLocked(n *Node, parentID NodeID) {
	parent := s.store.Get(parentID)
	if parent == nil {
		n.ParentID = ZeroID
		s.store.addRoot(n.ID)
		s.setLevelsLocked(n.ID, 0)
		return
	}
	n.ParentID = parentID
	parent.ChildIDs = append(parent.ChildIDs, n.ID)
	s.setLevelsLocked(n.ID, parent.Level+1)
}

// detachLocked unlinks n from its parent's child list or the root list.
// The node record itself stays in the store.
func (s *Session) detachLocked(n *Node) {
	if parent := s.store.Get(n.ParentID); parent != nil {
		if i := indexOf(parent.ChildIDs, n.ID); i >= 0 {
			parent.ChildIDs = append(parent.ChildIDs[:i], parent.ChildIDs[i+1:]...)
		}
	} else {
		s.store.removeRoot(n.ID)
	}
	n.ParentID = ZeroID
}

// removeLocked deletes n, splicing its children into its former position
// when promoting.
func (s *Session) removeLocked(n *Node, promoteChildren bool) {
	parent := s.store.Get(n.ParentID)
	children := append([]NodeID(nil), n.ChildIDs...)

	if parent != nil {
		if i := indexOf(parent.ChildIDs, n.ID); i >= 0 {
			rest := append([]NodeID(nil), parent.ChildIDs[i+1:]...)
			parent.ChildIDs = parent.ChildIDs[:i]
			if promoteChildren {
				parent.ChildIDs = append(parent.ChildIDs, children...)
			}
			parent.ChildIDs = append(parent.ChildIDs, rest...)
		}
	} else {
		if i := s.store.rootIndex(n.ID); i >= 0 {
			rest := append([]NodeID(nil), s.store.roots[i+1:]...)
			s.store.roots = s.store.roots[:i]
			if promoteChildren {
				s.store.roots = append(s.store.roots, children...)
			}
			s.store.roots = append(s.store.roots, rest...)
		}
	}

	if promoteChildren {
		newLevel := 0
		newParent := ZeroID
		if parent != nil {
			newLevel = parent.Level + 1
			newParent = parent.ID
		}
		for _, cid := range children {
			if c := s.store.Get(cid); c != nil {
				c.ParentID = newParent
				s.setLevelsLocked(cid, newLevel)
			}
		}
	}

	s.store.Delete(n.ID)
}

// setLevelsLocked assigns level to id and level+1 to its children,
// recursively.
func (s *Session) setLevelsLocked(id NodeID, level int) {
	n := s.store.Get(id)
	if n == nil {
		return
	}
	n.Level = level
	for _, cid := range n.ChildIDs {
		s.setLevelsLocked(cid, level+1)
	}
}

// descendantSetLocked returns the set of all descendants of id.
func (s *Session) descendantSetLocked(id NodeID) map[NodeID]struct{} {
	set := make(map[NodeID]struct{})
	var rec func(NodeID)
	rec = func(cur NodeID) {
		n := s.store.Get(cur)
		if n == nil {
			return
		}
		for _, cid := range n.ChildIDs {
			if _, seen := set[cid]; seen {
				continue
			}
			set[cid] = struct{}{}
			rec(cid)
		}
	}
	rec(id)
	return set
}

// containerLocked returns the ordered sequence that currently holds n:
// its parent's child list, or the root list.
func (s *Session) containerLocked(n *Node) []NodeID {
	if parent := s.store.Get(n.ParentID); parent != nil {
		return parent.ChildIDs
	}
	return s.store.roots
}

// siblingsLocked returns a copy of the sequence containing n.
func (s *Session) siblingsLocked(n *Node) []NodeID {
	return append([]NodeID(nil), s.containerLocked(n)...)
}

func indexOf(ids []NodeID, id NodeID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
