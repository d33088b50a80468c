package script

import (
	"fmt"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpNodeRef is a Lisp handle to a tree node, printed with its title so a
// console user can tell which node a form returned.
type sexpNodeRef struct {
	id    tabtree.NodeID
	title string
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q %q)", string(n.id), n.title)
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toNodeID accepts either a node reference or a raw id string, so scripts
// can paste ids straight from the sidebar.
func toNodeID(s zygo.Sexp) (tabtree.NodeID, error) {
	switch v := s.(type) {
	case *sexpNodeRef:
		return v.id, nil
	case *zygo.SexpStr:
		return tabtree.NodeID(v.S), nil
	}
	return tabtree.ZeroID, fmt.Errorf("expected node reference or id string, got %T (%s)", s, s.SexpString(nil))
}

// mustRef resolves id to a node reference, failing on unknown ids. The
// session's mutators silently ignore unknown ids; the console reports them
// instead, because a script author wants to know their lookup missed.
func mustRef(session *tabtree.Session, id tabtree.NodeID) (*sexpNodeRef, error) {
	node := session.Get(id)
	if node == nil {
		return nil, fmt.Errorf("no node with id %q", string(id))
	}
	return &sexpNodeRef{id: node.ID, title: node.Title}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the tree builtins into a zygomys environment.
// The builtins operate on the provided session. Source code must be
// preprocessed with preprocessSource() before evaluation so that the
// kebab-case builtin names resolve.
func registerBuiltins(env *zygo.Zlisp, session *tabtree.Session) {

	// -----------------------------------------------------------------------
	// (tabs) -> array of node refs in tree order
	// -----------------------------------------------------------------------
	env.AddFunction("tabs", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		nodes := session.TabsInTreeOrder()
		refs := make([]zygo.Sexp, 0, len(nodes))
		for _, n := range nodes {
			refs = append(refs, &sexpNodeRef{id: n.ID, title: n.Title})
		}
		return env.NewSexpArray(refs), nil
	})

	// -----------------------------------------------------------------------
	// (find-tab "title") -> first tab whose title matches exactly, or nil
	// -----------------------------------------------------------------------
	env.AddFunction("find_tab", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("find-tab requires a title argument")
		}
		title, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("find-tab: %w", err)
		}
		for _, n := range session.TabsInTreeOrder() {
			if n.Kind == tabtree.KindTab && n.Title == title {
				return &sexpNodeRef{id: n.ID, title: n.Title}, nil
			}
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (node "id") -> node ref by id
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("node requires an id argument")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: %w", err)
		}
		ref, err := mustRef(session, id)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: %w", err)
		}
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (title ref) -> title string
	// -----------------------------------------------------------------------
	env.AddFunction("title", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("title requires a node argument")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("title: %w", err)
		}
		n := session.Get(id)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("title: no node with id %q", string(id))
		}
		return &zygo.SexpStr{S: n.Title}, nil
	})

	// -----------------------------------------------------------------------
	// (children ref) -> array of node refs
	// -----------------------------------------------------------------------
	env.AddFunction("children", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("children requires a node argument")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("children: %w", err)
		}
		n := session.Get(id)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("children: no node with id %q", string(id))
		}
		refs := make([]zygo.Sexp, 0, len(n.ChildIDs))
		for _, cid := range n.ChildIDs {
			if child := session.Get(cid); child != nil {
				refs = append(refs, &sexpNodeRef{id: child.ID, title: child.Title})
			}
		}
		return env.NewSexpArray(refs), nil
	})

	// -----------------------------------------------------------------------
	// (make-group "name") or (make-group "name" parent) -> group ref
	// -----------------------------------------------------------------------
	env.AddFunction("make_group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("make-group requires a name argument")
		}
		title, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("make-group: name: %w", err)
		}
		parent := tabtree.ZeroID
		if len(args) > 1 {
			parent, err = toNodeID(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("make-group: parent: %w", err)
			}
		}
		group := session.CreateGroupNode(title, parent)
		return &sexpNodeRef{id: group.ID, title: group.Title}, nil
	})

	// -----------------------------------------------------------------------
	// (move-under child parent)
	// -----------------------------------------------------------------------
	env.AddFunction("move_under", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("move-under requires child and parent arguments")
		}
		child, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move-under: child: %w", err)
		}
		parent, err := toNodeID(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move-under: parent: %w", err)
		}
		if session.Get(child) == nil {
			return zygo.SexpNull, fmt.Errorf("move-under: no node with id %q", string(child))
		}
		if session.Get(parent) == nil {
			return zygo.SexpNull, fmt.Errorf("move-under: no node with id %q", string(parent))
		}
		session.Reparent(child, parent)
		n := session.Get(child)
		if n.ParentID != parent {
			return zygo.SexpNull, fmt.Errorf("move-under: refused, %q is inside the subtree of %q", string(parent), string(child))
		}
		return &sexpNodeRef{id: n.ID, title: n.Title}, nil
	})

	// -----------------------------------------------------------------------
	// (move-to-root ref)
	// -----------------------------------------------------------------------
	env.AddFunction("move_to_root", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("move-to-root requires a node argument")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("move-to-root: %w", err)
		}
		if _, err := mustRef(session, id); err != nil {
			return zygo.SexpNull, fmt.Errorf("move-to-root: %w", err)
		}
		session.Reparent(id, tabtree.ZeroID)
		ref, _ := mustRef(session, id)
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (rename ref "new title")
	// -----------------------------------------------------------------------
	env.AddFunction("rename", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rename requires node and title arguments")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rename: %w", err)
		}
		title, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rename: title: %w", err)
		}
		if _, err := mustRef(session, id); err != nil {
			return zygo.SexpNull, fmt.Errorf("rename: %w", err)
		}
		session.Rename(id, title)
		ref, _ := mustRef(session, id)
		return ref, nil
	})

	// -----------------------------------------------------------------------
	// (remove-group ref) -- children are promoted into the group's place
	// -----------------------------------------------------------------------
	env.AddFunction("remove_group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove-group requires a node argument")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-group: %w", err)
		}
		n := session.Get(id)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("remove-group: no node with id %q", string(id))
		}
		if n.Kind != tabtree.KindGroup {
			return zygo.SexpNull, fmt.Errorf("remove-group: %q is not a group", string(id))
		}
		session.RemoveNode(id, true)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (toggle ref), (collapse-all), (expand-all)
	// -----------------------------------------------------------------------
	env.AddFunction("toggle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("toggle requires a node argument")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("toggle: %w", err)
		}
		if _, err := mustRef(session, id); err != nil {
			return zygo.SexpNull, fmt.Errorf("toggle: %w", err)
		}
		session.ToggleCollapsed(id)
		return zygo.SexpNull, nil
	})

	env.AddFunction("collapse_all", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		session.CollapseAll()
		return zygo.SexpNull, nil
	})

	env.AddFunction("expand_all", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		session.ExpandAll()
		return zygo.SexpNull, nil
	})
}
