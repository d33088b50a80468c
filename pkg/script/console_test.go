package script

import (
	"strings"
	"testing"

	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

func newPopulatedSession(t *testing.T) *tabtree.Session {
	t.Helper()
	s := tabtree.NewSession(tabtree.DefaultPolicies())
	s.CreateTabNode("tab-1", "Attention Is All You Need", "reader", tabtree.ZeroID)
	s.CreateTabNode("tab-2", "BERT", "reader", "tab-1")
	s.CreateTabNode("tab-3", "Library Catalog", "library", tabtree.ZeroID)
	return s
}

func TestRunEmptySource(t *testing.T) {
	c := New(newPopulatedSession(t))

	res := c.Run("   \n\t  ")
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Output != "" {
		t.Errorf("expected empty output, got %q", res.Output)
	}
}

func TestRunPlainLisp(t *testing.T) {
	c := New(newPopulatedSession(t))

	res := c.Run("(+ 1 2)")
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Output != "3" {
		t.Errorf("expected output 3, got %q", res.Output)
	}
}

func TestRunSyntaxError(t *testing.T) {
	c := New(newPopulatedSession(t))

	res := c.Run("(+ 1 2")
	if len(res.Errors) == 0 {
		t.Fatal("expected an error for unmatched paren")
	}
}

func TestFindTabReturnsRef(t *testing.T) {
	c := New(newPopulatedSession(t))

	res := c.Run(`(find-tab "BERT")`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if !strings.Contains(res.Output, "tab-2") {
		t.Errorf("expected ref to tab-2, got %q", res.Output)
	}
}

func TestFindTabMissReturnsNil(t *testing.T) {
	c := New(newPopulatedSession(t))

	res := c.Run(`(find-tab "No Such Paper")`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}

func TestMakeGroupAndMoveUnder(t *testing.T) {
	session := newPopulatedSession(t)
	c := New(session)

	res := c.Run(`(move-under (find-tab "Library Catalog") (make-group "Admin"))`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	moved := session.Get("tab-3")
	if moved == nil {
		t.Fatal("tab-3 disappeared")
	}
	if moved.ParentID.IsZero() {
		t.Fatal("tab-3 still a root, expected it under the new group")
	}
	group := session.Get(moved.ParentID)
	if group == nil || group.Kind != tabtree.KindGroup || group.Title != "Admin" {
		t.Errorf("unexpected parent %+v", group)
	}
}

func TestMakeGroupUnderParent(t *testing.T) {
	session := newPopulatedSession(t)
	c := New(session)

	res := c.Run(`(make-group "Refs" (node "tab-1"))`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	parent := session.Get("tab-1")
	found := false
	for _, cid := range parent.ChildIDs {
		if n := session.Get(cid); n != nil && n.Title == "Refs" {
			found = true
		}
	}
	if !found {
		t.Error("expected group Refs under tab-1")
	}
}

func TestRenameBuiltin(t *testing.T) {
	session := newPopulatedSession(t)
	c := New(session)

	res := c.Run(`(rename (node "tab-1") "Transformers")`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if got := session.Get("tab-1").Title; got != "Transformers" {
		t.Errorf("expected renamed title, got %q", got)
	}
}

func TestRemoveGroupRefusesTab(t *testing.T) {
	session := newPopulatedSession(t)
	c := New(session)

	res := c.Run(`(remove-group (node "tab-1"))`)
	if len(res.Errors) == 0 {
		t.Fatal("expected error removing a tab via remove-group")
	}
	if session.Get("tab-1") == nil {
		t.Error("tab-1 should not have been removed")
	}
}

func TestRemoveGroupPromotesChildren(t *testing.T) {
	session := newPopulatedSession(t)
	c := New(session)

	res := c.Run(`
(def g (make-group "Tmp"))
(move-under (node "tab-3") g)
(remove-group g)
`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	n := session.Get("tab-3")
	if n == nil {
		t.Fatal("tab-3 disappeared with its group")
	}
	if !n.ParentID.IsZero() {
		t.Errorf("expected tab-3 promoted to root, parent %q", n.ParentID)
	}
}

func TestMoveUnderRefusesCycle(t *testing.T) {
	session := newPopulatedSession(t)
	c := New(session)

	res := c.Run(`(move-under (node "tab-1") (node "tab-2"))`)
	if len(res.Errors) == 0 {
		t.Fatal("expected error moving a node under its own descendant")
	}
	if errs := session.Validate(); len(errs) > 0 {
		t.Fatalf("tree corrupted: %v", errs)
	}
}

func TestUnknownIDReported(t *testing.T) {
	c := New(newPopulatedSession(t))

	res := c.Run(`(node "tab-99")`)
	if len(res.Errors) == 0 {
		t.Fatal("expected error for unknown id")
	}
	if !strings.Contains(res.Errors[0].Message, "tab-99") {
		t.Errorf("error should name the id, got %q", res.Errors[0].Message)
	}
}

func TestCollapseAndExpandAll(t *testing.T) {
	session := newPopulatedSession(t)
	c := New(session)

	if res := c.Run(`(collapse-all)`); len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if got := len(session.CollapsedIDs()); got != 1 {
		t.Fatalf("expected 1 collapsed node, got %d", got)
	}
	if res := c.Run(`(expand-all)`); len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if got := len(session.CollapsedIDs()); got != 0 {
		t.Errorf("expected no collapsed nodes, got %d", got)
	}
}

func TestSemicolonComments(t *testing.T) {
	c := New(newPopulatedSession(t))

	res := c.Run(`
; group the admin tabs
(+ 1 2) ; trailing comment
`)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.Output != "3" {
		t.Errorf("expected output 3, got %q", res.Output)
	}
}

func TestPreprocessSource(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`(collapse-all)`, `(collapse_all)`},
		{`(find-tab "a-b")`, `(find_tab "a-b")`},
		{`(- 3 1)`, `(- 3 1)`},
		{`(+ x -1)`, `(+ x -1)`},
		{`; note`, `// note`},
		{`"keep ; this"`, `"keep ; this"`},
	}
	for _, tc := range cases {
		if got := preprocessSource(tc.in); got != tc.want {
			t.Errorf("preprocessSource(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScriptsDoNotShareState(t *testing.T) {
	c := New(newPopulatedSession(t))

	if res := c.Run(`(def leaked 42)`); len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	res := c.Run(`leaked`)
	if len(res.Errors) == 0 {
		t.Error("expected unknown symbol error, state leaked across runs")
	}
}
