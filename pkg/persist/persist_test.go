package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

func buildSession(t *testing.T) *tabtree.Session {
	t.Helper()
	s := tabtree.NewSession(tabtree.DefaultPolicies())
	s.CreateTabNode("t1", "Library", "library", tabtree.ZeroID)
	s.CreateTabNode("t2", "Paper.pdf", "reader", "t1")
	s.CreateGroupNode("Thesis", tabtree.ZeroID)
	s.ToggleCollapsed("t1")
	return s
}

func TestCaptureApplyRoundTrip(t *testing.T) {
	s := buildSession(t)
	doc := Capture(s)

	restored := tabtree.NewSession(tabtree.DefaultPolicies())
	if err := Apply(doc, restored); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	orig := s.TabsInTreeOrder()
	got := restored.TabsInTreeOrder()
	if len(got) != len(orig) {
		t.Fatalf("node count = %d, want %d", len(got), len(orig))
	}
	for i := range orig {
		a, b := orig[i], got[i]
		if a.ID != b.ID || a.ParentID != b.ParentID || a.Title != b.Title ||
			a.Kind != b.Kind || a.Collapsed != b.Collapsed || a.Level != b.Level {
			t.Errorf("node %d: %+v != %+v", i, a, b)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := Capture(buildSession(t))

	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Version != FormatVersion || len(back.Tabs) != len(doc.Tabs) {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestEncodeKeepsExplicitNullParent(t *testing.T) {
	s := tabtree.NewSession(tabtree.DefaultPolicies())
	s.CreateTabNode("root", "R", "reader", tabtree.ZeroID)

	data, err := Encode(Capture(s))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"parentId": null`) {
		t.Errorf("root parentId not serialized as null:\n%s", data)
	}
}

func TestDecodeAppliesRecordDefaults(t *testing.T) {
	// Record fields beyond id may be absent entirely.
	data := []byte(`{
		"version": 1,
		"tabs": [{"id": "bare", "parentId": null}],
		"roots": ["bare"],
		"collapsed": []
	}`)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	s := tabtree.NewSession(tabtree.DefaultPolicies())
	if err := Apply(doc, s); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	n := s.Get("bare")
	if n == nil {
		t.Fatal("bare record not restored")
	}
	if n.Kind != tabtree.KindTab || n.Title != "" || n.Type != "" ||
		n.Collapsed || len(n.ChildIDs) != 0 {
		t.Errorf("defaults wrong: %+v", n)
	}
}

func TestApplyRejectsUnknownVersion(t *testing.T) {
	s := tabtree.NewSession(tabtree.DefaultPolicies())
	if err := Apply(Document{Version: 2}, s); err == nil {
		t.Fatal("Apply accepted an unknown version")
	}
}

func TestApplyRejectsBrokenDocument(t *testing.T) {
	doc := Document{
		Version: FormatVersion,
		Tabs:    []TabRecord{{ID: "a", ChildIDs: []string{"ghost"}}},
		Roots:   []string{"a"},
	}
	s := tabtree.NewSession(tabtree.DefaultPolicies())
	if err := Apply(doc, s); err == nil {
		t.Fatal("Apply accepted a dangling child reference")
	}
	if s.Len() != 0 {
		t.Errorf("failed apply left %d nodes", s.Len())
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nope", "tree-tabs.json"))
	doc := fs.Load()
	if doc.Version != FormatVersion || len(doc.Tabs) != 0 {
		t.Errorf("missing file should load empty, got %+v", doc)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree-tabs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := NewFileStore(path).Load()
	if len(doc.Tabs) != 0 {
		t.Errorf("corrupt file should load empty, got %+v", doc)
	}
}

func TestFileStoreWrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree-tabs.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "tabs": [{"id":"x","parentId":null}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := NewFileStore(path).Load()
	if len(doc.Tabs) != 0 {
		t.Errorf("unknown version should be discarded, got %+v", doc)
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "dir", "tree-tabs.json")
	fs := NewFileStore(path)

	doc := Capture(buildSession(t))
	if err := fs.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	back := fs.Load()
	if len(back.Tabs) != len(doc.Tabs) {
		t.Errorf("loaded %d tabs, want %d", len(back.Tabs), len(doc.Tabs))
	}

	// No temp files left behind by the atomic write.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
