package tabtree

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NodeID identifies a node in the tree. For tab nodes it mirrors the host's
// tab identifier; for group nodes it is generated locally.
type NodeID string

// ZeroID is the absent-node identifier. A node whose ParentID is ZeroID
// is a root.
const ZeroID NodeID = ""

// IsZero reports whether the id is the absent marker.
func (id NodeID) IsZero() bool { return id == ZeroID }

// NodeKind distinguishes host-backed tab nodes from local grouping containers.
type NodeKind int

const (
	// KindTab mirrors a live host tab. The host's lifecycle governs its
	// existence: when the host stops reporting the tab, the node goes away.
	KindTab NodeKind = iota
	// KindGroup is a purely local container. Only an explicit user action
	// removes it.
	KindGroup
)

func (k NodeKind) String() string {
	switch k {
	case KindTab:
		return "tab"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// ParseNodeKind converts the persisted string form back to a NodeKind.
// Unknown strings default to KindTab, matching the loader tolerance rules.
func ParseNodeKind(s string) NodeKind {
	if s == "group" {
		return KindGroup
	}
	return KindTab
}

// Node is a single entry in the tab tree.
type Node struct {
	ID        NodeID
	ParentID  NodeID   // ZeroID means root
	ChildIDs  []NodeID // display order, owned by the mutation engine
	Level     int      // cached depth, root = 0
	Collapsed bool     // meaningful only when ChildIDs is non-empty
	Title     string
	Type      string // host tab type, e.g. "reader", "library"
	Kind      NodeKind
	Selected  bool // transient, recomputed on every selection change
}

// Clone returns a deep copy of the node. The presentation layer only ever
// sees clones; live records never leave the store.
func (n *Node) Clone() *Node {
	c := *n
	c.ChildIDs = append([]NodeID(nil), n.ChildIDs...)
	return &c
}

// groupIDPrefix namespaces locally generated ids away from host tab ids.
// Zotero tab ids are short alphanumeric tokens and never contain a hyphen
// prefix like this, so the two spaces cannot collide in the store.
const groupIDPrefix = "group-"

// NewGroupID generates a locally unique group node identifier.
func NewGroupID() NodeID {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return NodeID(fmt.Sprintf("%s%d-%s", groupIDPrefix, time.Now().UnixNano(), suffix))
}

// IsGroupID reports whether an identifier belongs to the local group
// namespace.
func IsGroupID(id NodeID) bool {
	return strings.HasPrefix(string(id), groupIDPrefix)
}
