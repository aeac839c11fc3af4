package filter

import "fmt"

// MalformedTreeError reports a tree that cannot be traversed safely: a
// missing node, a revisited node (cycle or duplicate id) or a category set
// whose parent links do not form a tree.
type MalformedTreeError struct {
	ID     int    // Node at which the problem was detected
	Reason string // Human-readable description
}

func (e *MalformedTreeError) Error() string {
	return fmt.Sprintf("malformed category tree at node %d: %s", e.ID, e.Reason)
}

// UnknownNodeError reports a toggle of an id that is not part of the tree.
type UnknownNodeError struct {
	ID int
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown category node %d", e.ID)
}
