package tabtree

import "fmt"

// ValidationError describes a single structural finding.
type ValidationError struct {
	NodeID  NodeID // which node has the problem (zero if tree-level)
	Message string
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Message)
}

// Validate runs every structural check on the session's tree and returns a
// slice of findings. An empty slice means all invariants hold. The check is
// read-only and never mutates the tree; tests and the debug binding call it
// after mutations to assert the engine left the structure intact.
func (s *Session) Validate() []ValidationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validateStore(s.store)
}

func validateStore(st *Store) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateCycles(st)...)
	errs = append(errs, validateReferences(st)...)
	errs = append(errs, validateRoots(st)...)
	errs = append(errs, validateExclusivity(st)...)
	errs = append(errs, validateLevels(st)...)
	errs = append(errs, validateCollapsed(st)...)
	return errs
}

// validateCycles checks the child edges with DFS 3-color marking.
// White (0) = unvisited, gray (1) = in the current path, black (2) = done.
// Hitting a gray node means a node is its own ancestor.
func validateCycles(st *Store) []ValidationError {
	const (
		white = iota
		gray
		black
	)
	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID)
	visit = func(id NodeID) {
		switch color[id] {
		case black:
			return
		case gray:
			errs = append(errs, ValidationError{
				NodeID:  id,
				Message: "cycle: node is its own ancestor",
			})
			return
		}
		color[id] = gray
		if n := st.Get(id); n != nil {
			for _, cid := range n.ChildIDs {
				visit(cid)
			}
		}
		color[id] = black
	}

	for id := range st.nodes {
		visit(id)
	}
	return errs
}

// validateReferences checks that every parent/child link resolves and is
// mirrored on the other side.
func validateReferences(st *Store) []ValidationError {
	var errs []ValidationError
	for id, n := range st.nodes {
		for _, cid := range n.ChildIDs {
			c := st.Get(cid)
			if c == nil {
				errs = append(errs, ValidationError{
					NodeID:  id,
					Message: fmt.Sprintf("child %q does not resolve", cid),
				})
				continue
			}
			if c.ParentID != id {
				errs = append(errs, ValidationError{
					NodeID:  cid,
					Message: fmt.Sprintf("parent link %q does not match owner %q", c.ParentID, id),
				})
			}
		}
		if !n.ParentID.IsZero() {
			p := st.Get(n.ParentID)
			if p == nil {
				errs = append(errs, ValidationError{
					NodeID:  id,
					Message: fmt.Sprintf("parent %q does not resolve", n.ParentID),
				})
			} else if indexOf(p.ChildIDs, id) < 0 {
				errs = append(errs, ValidationError{
					NodeID:  id,
					Message: fmt.Sprintf("missing from parent %q child list", n.ParentID),
				})
			}
		}
	}
	return errs
}

// validateRoots checks that every root entry resolves to a live parentless
// node and appears only once.
func validateRoots(st *Store) []ValidationError {
	var errs []ValidationError
	seen := make(map[NodeID]struct{})
	for _, id := range st.roots {
		if _, dup := seen[id]; dup {
			errs = append(errs, ValidationError{
				NodeID:  id,
				Message: "duplicate root entry",
			})
			continue
		}
		seen[id] = struct{}{}
		n := st.Get(id)
		if n == nil {
			errs = append(errs, ValidationError{
				NodeID:  id,
				Message: "root entry does not resolve",
			})
			continue
		}
		if !n.ParentID.IsZero() {
			errs = append(errs, ValidationError{
				NodeID:  id,
				Message: fmt.Sprintf("root has parent %q", n.ParentID),
			})
		}
	}
	return errs
}

// validateExclusivity checks that every node is held by exactly one ordered
// sequence: the root list, or a single parent's child list. Never both,
// never neither, never twice.
func validateExclusivity(st *Store) []ValidationError {
	holders := make(map[NodeID]int)
	for _, id := range st.roots {
		holders[id]++
	}
	for _, n := range st.nodes {
		for _, cid := range n.ChildIDs {
			holders[cid]++
		}
	}
	var errs []ValidationError
	for id := range st.nodes {
		if holders[id] != 1 {
			errs = append(errs, ValidationError{
				NodeID:  id,
				Message: fmt.Sprintf("held by %d sequences, want exactly 1", holders[id]),
			})
		}
	}
	return errs
}

// validateLevels checks the cached depth against the parent chain.
func validateLevels(st *Store) []ValidationError {
	var errs []ValidationError
	for id, n := range st.nodes {
		want := 0
		if p := st.Get(n.ParentID); p != nil {
			want = p.Level + 1
		}
		if n.Level != want {
			errs = append(errs, ValidationError{
				NodeID:  id,
				Message: fmt.Sprintf("level %d, want %d", n.Level, want),
			})
		}
	}
	return errs
}

// validateCollapsed checks that the per-node flag and the collapsed set are
// in lockstep.
func validateCollapsed(st *Store) []ValidationError {
	var errs []ValidationError
	for id := range st.collapsed {
		n := st.Get(id)
		if n == nil {
			errs = append(errs, ValidationError{
				NodeID:  id,
				Message: "collapsed set entry does not resolve",
			})
			continue
		}
		if !n.Collapsed {
			errs = append(errs, ValidationError{
				NodeID:  id,
				Message: "in collapsed set but flag is clear",
			})
		}
	}
	for id, n := range st.nodes {
		if n.Collapsed {
			if _, ok := st.collapsed[id]; !ok {
				errs = append(errs, ValidationError{
					NodeID:  id,
					Message: "flag set but missing from collapsed set",
				})
			}
		}
	}
	return errs
}
