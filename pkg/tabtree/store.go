package tabtree

// Store is the canonical owner of every node record plus the root ordering
// and the collapsed set. It is a plain container: all invariant enforcement
// lives in Session. Operations that reference unknown ids are no-ops.
type Store struct {
	nodes     map[NodeID]*Node
	roots     []NodeID
	collapsed map[NodeID]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:     make(map[NodeID]*Node),
		collapsed: make(map[NodeID]struct{}),
	}
}

// Get returns the live node record, or nil.
func (st *Store) Get(id NodeID) *Node {
	return st.nodes[id]
}

// Upsert inserts or replaces a node record.
func (st *Store) Upsert(n *Node) {
	st.nodes[n.ID] = n
}

// Delete removes a node record and its collapsed-set entry. It does not
// touch other nodes' child lists; that is the mutation engine's job.
func (st *Store) Delete(id NodeID) {
	delete(st.nodes, id)
	delete(st.collapsed, id)
}

// Len returns the number of nodes in the store.
func (st *Store) Len() int { return len(st.nodes) }

// Roots returns a copy of the root ordering.
func (st *Store) Roots() []NodeID {
	return append([]NodeID(nil), st.roots...)
}

// CollapsedIDs returns the ids currently in the collapsed set, in tree
// order so the result is deterministic.
func (st *Store) CollapsedIDs() []NodeID {
	var out []NodeID
	st.walk(func(n *Node) {
		if _, ok := st.collapsed[n.ID]; ok {
			out = append(out, n.ID)
		}
	})
	return out
}

// IsCollapsed reports whether the id is in the collapsed set.
func (st *Store) IsCollapsed(id NodeID) bool {
	_, ok := st.collapsed[id]
	return ok
}

// setCollapsed is the single mutator for collapse state. The node flag and
// the collapsed set must never be updated separately: the flag drives
// runtime visibility checks, the set drives persistence, and this is the
// only place where either changes.
func (st *Store) setCollapsed(id NodeID, collapsed bool) {
	n := st.nodes[id]
	if n == nil {
		return
	}
	n.Collapsed = collapsed
	if collapsed {
		st.collapsed[id] = struct{}{}
	} else {
		delete(st.collapsed, id)
	}
}

// clearCollapsed empties the collapsed set and every node flag at once.
func (st *Store) clearCollapsed() {
	for id := range st.collapsed {
		if n := st.nodes[id]; n != nil {
			n.Collapsed = false
		}
	}
	st.collapsed = make(map[NodeID]struct{})
}

// addRoot appends an id to the root ordering.
func (st *Store) addRoot(id NodeID) {
	st.roots = append(st.roots, id)
}

// removeRoot deletes an id from the root ordering, preserving order.
func (st *Store) removeRoot(id NodeID) {
	for i, r := range st.roots {
		if r == id {
			st.roots = append(st.roots[:i], st.roots[i+1:]...)
			return
		}
	}
}

// rootIndex returns the position of id in the root ordering, or -1.
func (st *Store) rootIndex(id NodeID) int {
	for i, r := range st.roots {
		if r == id {
			return i
		}
	}
	return -1
}

// walk visits every node depth-first: roots in root order, children in
// child order. This is the canonical display order.
func (st *Store) walk(visit func(*Node)) {
	var rec func(id NodeID)
	rec = func(id NodeID) {
		n := st.nodes[id]
		if n == nil {
			return
		}
		visit(n)
		for _, cid := range n.ChildIDs {
			rec(cid)
		}
	}
	for _, root := range st.roots {
		rec(root)
	}
}
