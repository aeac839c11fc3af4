// Package filter implements the category filter tree used by the storefront:
// a read-only tree arena built from category rows, and the selection/highlight
// propagation that runs when a category checkbox is toggled.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

// RootID is the id of the synthetic root created by BuildFromCategories.
// Category ids must be positive so they never collide with it.
const RootID = 0

// RootName is the display name of the synthetic root.
const RootName = "All categories"

// Node is the nested input form of a tree, as supplied by a tree provider.
// Parent links are not part of the input; Build derives them.
type Node struct {
	ID       int
	Name     string
	Children []*Node
}

// treeNode is the arena entry for one node.
type treeNode struct {
	id        int
	name      string
	children  []int
	parent    int
	hasParent bool
	depth     int
}

// Tree is an immutable arena of nodes indexed by id. Child order is preserved
// from the input and parent ids are stored explicitly, so no traversal ever
// mutates shared node data.
type Tree struct {
	root  int
	nodes map[int]*treeNode
	order []int // preorder, used by Walk
}

// Build constructs a Tree from a nested node structure. A nil node, or a node
// id seen twice during the walk (a cycle, a shared subtree or a duplicate id),
// fails with a *MalformedTreeError.
func Build(root *Node) (*Tree, error) {
	if root == nil {
		return nil, &MalformedTreeError{ID: RootID, Reason: "missing root node"}
	}

	t := &Tree{
		root:  root.ID,
		nodes: make(map[int]*treeNode),
	}
	visited := make(map[int]bool)

	var walk func(n *Node, parent int, hasParent bool, depth int) error
	walk = func(n *Node, parent int, hasParent bool, depth int) error {
		if n == nil {
			return &MalformedTreeError{ID: parent, Reason: "child node is missing"}
		}
		if visited[n.ID] {
			return &MalformedTreeError{ID: n.ID, Reason: "node revisited (cycle or duplicate id)"}
		}
		visited[n.ID] = true

		tn := &treeNode{
			id:        n.ID,
			name:      n.Name,
			parent:    parent,
			hasParent: hasParent,
			depth:     depth,
		}
		t.nodes[n.ID] = tn
		t.order = append(t.order, n.ID)

		for _, child := range n.Children {
			if err := walk(child, n.ID, true, depth+1); err != nil {
				return err
			}
			tn.children = append(tn.children, child.ID)
		}
		return nil
	}

	if err := walk(root, 0, false, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// BuildFromCategories constructs a Tree from flat category rows. Every
// category without a parent, or whose parent does not exist in the set,
// hangs directly under a synthetic root with id RootID. Children keep the
// order in which they appear in cats.
//
// Categories that cannot be reached from the root (their parent chain loops
// back on itself) make the whole set malformed.
func BuildFromCategories(cats []model.Category) (*Tree, error) {
	byID := make(map[int]*model.Category, len(cats))
	for i := range cats {
		c := &cats[i]
		if c.ID <= RootID {
			return nil, &MalformedTreeError{ID: c.ID, Reason: "category id must be positive"}
		}
		if _, dup := byID[c.ID]; dup {
			return nil, &MalformedTreeError{ID: c.ID, Reason: "duplicate category id"}
		}
		byID[c.ID] = c
	}

	childrenOf := make(map[int][]*model.Category)
	for i := range cats {
		c := &cats[i]
		parent := RootID
		if c.ParentID != nil {
			if _, ok := byID[*c.ParentID]; ok {
				parent = *c.ParentID
			}
		}
		childrenOf[parent] = append(childrenOf[parent], c)
	}

	var toNode func(id int, name string, visited map[int]bool) (*Node, error)
	toNode = func(id int, name string, visited map[int]bool) (*Node, error) {
		if visited[id] {
			return nil, &MalformedTreeError{ID: id, Reason: "node revisited (cycle or duplicate id)"}
		}
		visited[id] = true
		n := &Node{ID: id, Name: name}
		for _, c := range childrenOf[id] {
			child, err := toNode(c.ID, c.Name, visited)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil
	}

	visited := make(map[int]bool, len(cats)+1)
	root, err := toNode(RootID, RootName, visited)
	if err != nil {
		return nil, err
	}

	if len(visited) != len(cats)+1 {
		var unreachable []int
		for id := range byID {
			if !visited[id] {
				unreachable = append(unreachable, id)
			}
		}
		sort.Ints(unreachable)
		return nil, &MalformedTreeError{
			ID:     unreachable[0],
			Reason: fmt.Sprintf("unreachable from root, parent cycle among %s", joinIDs(unreachable)),
		}
	}

	return Build(root)
}

// Root returns the root id.
func (t *Tree) Root() int {
	return t.root
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Has reports whether id is a node of the tree.
func (t *Tree) Has(id int) bool {
	_, ok := t.nodes[id]
	return ok
}

// Name returns the display name of id, or "" if unknown.
func (t *Tree) Name(id int) string {
	if n, ok := t.nodes[id]; ok {
		return n.name
	}
	return ""
}

// Depth returns the nesting level of id (root = 0).
func (t *Tree) Depth(id int) int {
	if n, ok := t.nodes[id]; ok {
		return n.depth
	}
	return 0
}

// Children returns a copy of the child ids of id in input order.
func (t *Tree) Children(id int) []int {
	n, ok := t.nodes[id]
	if !ok || len(n.children) == 0 {
		return nil
	}
	out := make([]int, len(n.children))
	copy(out, n.children)
	return out
}

// Parent returns the parent id. The second result is false for the root and
// for unknown ids.
func (t *Tree) Parent(id int) (int, bool) {
	n, ok := t.nodes[id]
	if !ok || !n.hasParent {
		return 0, false
	}
	return n.parent, true
}

// IsLeaf reports whether id has no children.
func (t *Tree) IsLeaf(id int) bool {
	n, ok := t.nodes[id]
	return ok && len(n.children) == 0
}

// Ancestors returns the ancestors of id, nearest first, ending at the root.
// The walk stops at the first node without a parent.
func (t *Tree) Ancestors(id int) []int {
	var out []int
	n, ok := t.nodes[id]
	for ok && n.hasParent {
		out = append(out, n.parent)
		n, ok = t.nodes[n.parent]
	}
	return out
}

// LeafCount returns the number of leaves in the subtree rooted at id.
func (t *Tree) LeafCount(id int) int {
	leaves, _, err := t.CollectLeaves(id)
	if err != nil {
		return 0
	}
	return len(leaves)
}

// Walk visits every node in preorder.
func (t *Tree) Walk(fn func(id, depth int)) {
	for _, id := range t.order {
		fn(id, t.nodes[id].depth)
	}
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
