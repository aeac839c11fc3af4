package filter

import (
	"testing"

	"github.com/vanderheijden86/kanvas/pkg/model"
	"pgregory.net/rapid"
)

// drawTree generates a random category tree with 1..14 categories under the
// synthetic root. Category i may only hang under a category with a smaller id,
// which keeps the input acyclic.
func drawTree(t *rapid.T) *Tree {
	n := rapid.IntRange(1, 14).Draw(t, "categories")
	cats := make([]model.Category, 0, n)
	for id := 1; id <= n; id++ {
		c := model.Category{ID: id, Name: "c"}
		parent := rapid.IntRange(0, id-1).Draw(t, "parent")
		if parent > 0 {
			c.ParentID = &parent
		}
		cats = append(cats, c)
	}
	tree, err := BuildFromCategories(cats)
	if err != nil {
		t.Fatalf("BuildFromCategories failed: %v", err)
	}
	return tree
}

func allIDs(tree *Tree) []int {
	var ids []int
	tree.Walk(func(id, _ int) { ids = append(ids, id) })
	return ids
}

// drawReachableState applies a random sequence of toggles to the empty state.
func drawReachableState(t *rapid.T, tree *Tree) State {
	ids := allIDs(tree)
	s := EmptyState()
	steps := rapid.IntRange(0, 12).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		id := rapid.SampledFrom(ids).Draw(t, "toggle")
		next, err := tree.Toggle(s, id)
		if err != nil {
			t.Fatalf("Toggle(%d) failed: %v", id, err)
		}
		checkInvariants(t, tree, next)
		s = next
	}
	return s
}

func subtree(tree *Tree, id int) []int {
	out := []int{id}
	for _, c := range tree.Children(id) {
		out = append(out, subtree(tree, c)...)
	}
	return out
}

// checkInvariants verifies the relations every reachable state keeps:
// highlight counts equal the selected leaves below each non-root internal
// node, and a selected node implies its whole subtree is selected.
func checkInvariants(t *rapid.T, tree *Tree, s State) {
	if n := s.Highlight(tree.Root()); n != 0 {
		t.Fatalf("root highlighted with count %d", n)
	}
	for id, n := range s.Highlights() {
		if n <= 0 {
			t.Fatalf("highlight entry %d kept at non-positive count %d", id, n)
		}
	}
	for _, id := range allIDs(tree) {
		if id == tree.Root() || tree.IsLeaf(id) {
			continue
		}
		leaves, _, _ := tree.CollectLeaves(id)
		selected := 0
		for _, l := range leaves {
			if s.IsSelected(l) {
				selected++
			}
		}
		if got := s.Highlight(id); got != selected {
			t.Fatalf("node %d: highlight %d, selected leaves below %d", id, got, selected)
		}
		if s.Highlight(id) > len(leaves) {
			t.Fatalf("node %d: highlight %d exceeds leaf count %d", id, s.Highlight(id), len(leaves))
		}
	}
	for _, id := range s.Selected() {
		for _, d := range subtree(tree, id) {
			if !s.IsSelected(d) {
				t.Fatalf("node %d selected but descendant %d is not", id, d)
			}
		}
	}
}

func TestPropertyInvariantsHold(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := drawTree(t)
		_ = drawReachableState(t, tree)
	})
}

func TestPropertyLeafCompleteness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := drawTree(t)
		s := drawReachableState(t, tree)
		id := rapid.SampledFrom(allIDs(tree)).Draw(t, "node")

		wasSelected := s.IsSelected(id)
		next, err := tree.Toggle(s, id)
		if err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
		leaves, _, _ := tree.CollectLeaves(id)
		for _, l := range leaves {
			if wasSelected && next.IsSelected(l) {
				t.Fatalf("leaf %d still selected after deselecting %d", l, id)
			}
			if !wasSelected && !next.IsSelected(l) {
				t.Fatalf("leaf %d not selected after selecting %d", l, id)
			}
		}
		if wasSelected {
			for _, a := range tree.Ancestors(id) {
				if next.IsSelected(a) {
					t.Fatalf("ancestor %d still selected after deselecting %d", a, id)
				}
			}
		}
	})
}

// TestPropertyRoundTrip checks select-then-deselect on untouched subtrees and
// deselect-then-select on nodes whose ancestors are not selected.
func TestPropertyRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := drawTree(t)
		s := drawReachableState(t, tree)
		id := rapid.SampledFrom(allIDs(tree)).Draw(t, "node")

		if s.IsSelected(id) {
			for _, a := range tree.Ancestors(id) {
				if s.IsSelected(a) {
					return // deselecting clears the selected ancestor
				}
			}
		} else {
			for _, d := range subtree(tree, id) {
				if s.IsSelected(d) {
					return // deselecting clears the pre-selected descendants
				}
			}
		}

		once, err := tree.Toggle(s, id)
		if err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
		twice, err := tree.Toggle(once, id)
		if err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
		if !twice.Equal(s) {
			t.Fatalf("round trip through %d changed state: selected %v -> %v, highlight %v -> %v",
				id, s.Selected(), twice.Selected(), s.Highlights(), twice.Highlights())
		}
	})
}

func TestPropertyRootToggle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := drawTree(t)
		s := drawReachableState(t, tree)
		next, err := tree.Toggle(s, tree.Root())
		if err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
		if s.IsSelected(tree.Root()) {
			if next.Len() != 0 || len(next.Highlights()) != 0 {
				t.Fatalf("root deselect left selected=%v highlight=%v", next.Selected(), next.Highlights())
			}
			return
		}
		if next.Len() != tree.Len() {
			t.Fatalf("root select covered %d of %d nodes", next.Len(), tree.Len())
		}
	})
}
