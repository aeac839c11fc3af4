package filter

import (
	"maps"
	"sort"
)

// State is the derived selection of one filter tree: the set of checked node
// ids and the highlight multiset, stored as id -> count.
//
// A State is never mutated after it is returned; Toggle always produces a
// fresh value. The zero value is the empty state.
type State struct {
	selected  map[int]struct{}
	highlight map[int]int
}

// EmptyState returns a state with nothing selected and nothing highlighted.
func EmptyState() State {
	return State{
		selected:  make(map[int]struct{}),
		highlight: make(map[int]int),
	}
}

// IsSelected reports whether id is checked.
func (s State) IsSelected(id int) bool {
	_, ok := s.selected[id]
	return ok
}

// Selected returns the checked ids in ascending order.
func (s State) Selected() []int {
	out := make([]int, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of checked ids.
func (s State) Len() int {
	return len(s.selected)
}

// Highlight returns the highlight count of id (0 if absent).
func (s State) Highlight(id int) int {
	return s.highlight[id]
}

// Highlights returns a copy of the highlight multiset.
func (s State) Highlights() map[int]int {
	return maps.Clone(s.highlight)
}

// IsPartial reports whether id renders as partially selected: it carries a
// highlight count but is not itself checked.
func (s State) IsPartial(id int) bool {
	return s.highlight[id] > 0 && !s.IsSelected(id)
}

// Partial returns the ids that render as partially selected, ascending.
func (s State) Partial() []int {
	var out []int
	for id, n := range s.highlight {
		if n > 0 && !s.IsSelected(id) {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// SameSelection reports whether both states check exactly the same ids.
func (s State) SameSelection(other State) bool {
	if len(s.selected) != len(other.selected) {
		return false
	}
	for id := range s.selected {
		if !other.IsSelected(id) {
			return false
		}
	}
	return true
}

// Equal reports whether both the selection and the highlight multiset match.
func (s State) Equal(other State) bool {
	return s.SameSelection(other) && maps.Equal(s.highlight, other.highlight)
}

func (s State) clone() State {
	c := EmptyState()
	for id := range s.selected {
		c.selected[id] = struct{}{}
	}
	for id, n := range s.highlight {
		c.highlight[id] = n
	}
	return c
}

func (s State) addHighlight(id, n int) {
	if n <= 0 {
		return
	}
	s.highlight[id] += n
}

// subtractHighlight removes up to n occurrences of id.
func (s State) subtractHighlight(id, n int) {
	left := s.highlight[id] - n
	if left <= 0 {
		delete(s.highlight, id)
		return
	}
	s.highlight[id] = left
}

// Coverage describes how much of a node's subtree is selected.
type Coverage int

const (
	CoverageNone    Coverage = iota // no leaf below is selected
	CoveragePartial                 // some but not all leaves are selected
	CoverageFull                    // every leaf below is selected
)

func (c Coverage) String() string {
	switch c {
	case CoveragePartial:
		return "partial"
	case CoverageFull:
		return "full"
	default:
		return "none"
	}
}

// Coverage reports how many of the leaves under id are selected in s.
func (t *Tree) Coverage(s State, id int) Coverage {
	leaves, _, err := t.CollectLeaves(id)
	if err != nil || len(leaves) == 0 {
		return CoverageNone
	}
	n := 0
	for _, l := range leaves {
		if s.IsSelected(l) {
			n++
		}
	}
	switch {
	case n == 0:
		return CoverageNone
	case n == len(leaves):
		return CoverageFull
	default:
		return CoveragePartial
	}
}

// SelectedLeaves returns the selected ids that are leaves of t, ascending.
// These are the category ids a listing query filters by.
func (t *Tree) SelectedLeaves(s State) []int {
	var out []int
	for id := range s.selected {
		if t.IsLeaf(id) {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}
