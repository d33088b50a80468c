// Package tabtree maintains the tree of tab nodes for the sidebar.
// The host application owns a flat, volatile list of tabs; this package
// owns the persistent parent/child structure layered on top of it.
package tabtree
