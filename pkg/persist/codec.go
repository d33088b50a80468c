// Package persist serializes the tab tree to its durable JSON document and
// back. Storage is best-effort: a missing or unreadable document means an
// empty tree, never a fatal error, and writes happen off the mutation path.
package persist

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/colobas/zotero-tree-style-tabs/pkg/tabtree"
)

// FormatVersion is the persisted document version this build reads and
// writes. Anything else is discarded rather than migrated by guesswork.
const FormatVersion = 1

// Document is the on-disk layout, one per profile.
type Document struct {
	Version   int         `json:"version"`
	Tabs      []TabRecord `json:"tabs"`
	Roots     []string    `json:"roots"`
	Collapsed []string    `json:"collapsed"`
}

// TabRecord is one persisted node. ParentID is a pointer so the document
// keeps the explicit null of the original format for roots.
type TabRecord struct {
	ID        string   `json:"id"`
	ParentID  *string  `json:"parentId"`
	ChildIDs  []string `json:"childIds,omitempty"`
	Collapsed bool     `json:"collapsed,omitempty"`
	NodeType  string   `json:"nodeType,omitempty"`
	Title     string   `json:"title,omitempty"`
	Type      string   `json:"type,omitempty"`
}

// Capture snapshots a session into a Document. Transient state (selection,
// cached levels) is deliberately not captured; levels are recomputed on
// restore.
func Capture(s *tabtree.Session) Document {
	doc := Document{Version: FormatVersion, Tabs: []TabRecord{}, Roots: []string{}, Collapsed: []string{}}
	for _, n := range s.TabsInTreeOrder() {
		rec := TabRecord{
			ID:        string(n.ID),
			Collapsed: n.Collapsed,
			NodeType:  n.Kind.String(),
			Title:     n.Title,
			Type:      n.Type,
		}
		if !n.ParentID.IsZero() {
			p := string(n.ParentID)
			rec.ParentID = &p
		}
		for _, cid := range n.ChildIDs {
			rec.ChildIDs = append(rec.ChildIDs, string(cid))
		}
		doc.Tabs = append(doc.Tabs, rec)
	}
	for _, id := range s.Roots() {
		doc.Roots = append(doc.Roots, string(id))
	}
	for _, id := range s.CollapsedIDs() {
		doc.Collapsed = append(doc.Collapsed, string(id))
	}
	return doc
}

// Apply loads a Document into the session, replacing its contents. A
// structurally broken document is rejected and the session is left empty;
// callers treat that the same as no document at all.
func Apply(doc Document, s *tabtree.Session) error {
	if doc.Version != FormatVersion {
		return fmt.Errorf("persist: unsupported document version %d", doc.Version)
	}
	nodes := make([]*tabtree.Node, 0, len(doc.Tabs))
	for _, rec := range doc.Tabs {
		n := &tabtree.Node{
			ID:        tabtree.NodeID(rec.ID),
			Collapsed: rec.Collapsed,
			Title:     rec.Title,
			Type:      rec.Type,
			Kind:      tabtree.ParseNodeKind(rec.NodeType),
		}
		if rec.ParentID != nil {
			n.ParentID = tabtree.NodeID(*rec.ParentID)
		}
		for _, cid := range rec.ChildIDs {
			n.ChildIDs = append(n.ChildIDs, tabtree.NodeID(cid))
		}
		nodes = append(nodes, n)
	}
	roots := make([]tabtree.NodeID, len(doc.Roots))
	for i, id := range doc.Roots {
		roots[i] = tabtree.NodeID(id)
	}
	collapsed := make([]tabtree.NodeID, len(doc.Collapsed))
	for i, id := range doc.Collapsed {
		collapsed[i] = tabtree.NodeID(id)
	}
	return s.Restore(nodes, roots, collapsed)
}

// Encode marshals a Document.
func Encode(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("persist: encode: %w", err)
	}
	return data, nil
}

// Decode unmarshals a Document. Empty input decodes to an empty current-
// version document, matching the "missing file means empty tree" rule.
func Decode(data []byte) (Document, error) {
	if len(data) == 0 {
		return Document{Version: FormatVersion}, nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("persist: decode: %w", err)
	}
	return doc, nil
}
