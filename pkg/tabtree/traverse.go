package tabtree

import "fmt"

// Get returns a clone of the node, or nil if the id is unknown.
func (s *Session) Get(id NodeID) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.store.Get(id)
	if n == nil {
		return nil
	}
	return n.Clone()
}

// Len returns the number of nodes in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Roots returns a copy of the root ordering.
func (s *Session) Roots() []NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Roots()
}

// CollapsedIDs returns the collapsed set in tree order.
func (s *Session) CollapsedIDs() []NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CollapsedIDs()
}

// TabsInTreeOrder returns clones of every node depth-first: roots in root
// order, children in child order. This is the canonical display order and
// is deterministic for any given tree state.
func (s *Session) TabsInTreeOrder() []*Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Node
	s.store.walk(func(n *Node) {
		out = append(out, n.Clone())
	})
	return out
}

// IsVisible reports whether a node is shown by the display traversal:
// false iff any strict ancestor is collapsed. The node's own collapse
// state does not affect its visibility, only its children's.
func (s *Session) IsVisible(id NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.store.Get(id)
	if n == nil {
		return false
	}
	for cur := s.store.Get(n.ParentID); cur != nil; cur = s.store.Get(cur.ParentID) {
		if cur.Collapsed {
			return false
		}
	}
	return true
}

// Descendants returns every descendant of id, depth-first preorder,
// excluding the node itself.
func (s *Session) Descendants(id NodeID) []NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []NodeID
	var rec func(NodeID)
	rec = func(cur NodeID) {
		n := s.store.Get(cur)
		if n == nil {
			return
		}
		for _, cid := range n.ChildIDs {
			out = append(out, cid)
			rec(cid)
		}
	}
	rec(id)
	return out
}

// DescendantsDeepestFirst returns every descendant of id in post-order, so
// children always precede their parents. Cascade-close walks this order:
// each descendant tab is closed before the node that contains it.
func (s *Session) DescendantsDeepestFirst(id NodeID) []NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []NodeID
	var rec func(NodeID)
	rec = func(cur NodeID) {
		n := s.store.Get(cur)
		if n == nil {
			return
		}
		for _, cid := range n.ChildIDs {
			rec(cid)
			out = append(out, cid)
		}
	}
	rec(id)
	return out
}

// Restore replaces the session contents with a previously persisted tree.
// The records are validated first; a structurally broken snapshot is
// rejected wholesale and the session is left empty, which the caller
// treats the same as a missing file. Levels are recomputed rather than
// trusted, and the collapsed set is rebuilt from the union of the per-node
// flags and the persisted set, skipping leaves.
func (s *Session) Restore(nodes []*Node, roots []NodeID, collapsed []NodeID) error {
	st := NewStore()
	for _, n := range nodes {
		if n.ID.IsZero() {
			return fmt.Errorf("restore: record with empty id")
		}
		if st.Get(n.ID) != nil {
			return fmt.Errorf("restore: duplicate id %q", n.ID)
		}
		st.Upsert(n.Clone())
	}
	st.roots = append([]NodeID(nil), roots...)

	// Persisted levels are not trusted; recompute before validating so the
	// level check exercises the fresh values. The seen set keeps a cyclic
	// snapshot from recursing forever; the cycle check below rejects it.
	seen := make(map[NodeID]struct{})
	var setLevels func(id NodeID, level int)
	setLevels = func(id NodeID, level int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		n := st.Get(id)
		if n == nil {
			return
		}
		n.Level = level
		for _, cid := range n.ChildIDs {
			setLevels(cid, level+1)
		}
	}
	for _, root := range st.roots {
		setLevels(root, 0)
	}

	// Collapse state is rebuilt through the single setter so the flag and
	// the set stay in lockstep; stale flags from the records are dropped.
	for _, n := range st.nodes {
		n.Collapsed = false
	}
	apply := func(id NodeID) {
		if n := st.Get(id); n != nil && len(n.ChildIDs) > 0 {
			st.setCollapsed(id, true)
		}
	}
	for _, n := range nodes {
		if n.Collapsed {
			apply(n.ID)
		}
	}
	for _, id := range collapsed {
		apply(id)
	}

	if errs := validateStore(st); len(errs) > 0 {
		return fmt.Errorf("restore: %v", errs[0])
	}

	s.mu.Lock()
	s.store = st
	s.mu.Unlock()
	return nil
}
