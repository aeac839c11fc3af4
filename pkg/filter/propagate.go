package filter

// Contribution is the highlight contribution of one internal node found by
// CollectLeaves: the node id and the number of leaves beneath it.
type Contribution struct {
	ID    int
	Count int
}

// CollectLeaves returns the leaf ids of the subtree rooted at id in child
// order, and one contribution per internal node of that subtree. Children
// are reported before their parent, so the last contribution belongs to id
// itself when id is internal.
func (t *Tree) CollectLeaves(id int) ([]int, []Contribution, error) {
	if !t.Has(id) {
		return nil, nil, &UnknownNodeError{ID: id}
	}
	var (
		leaves        []int
		contributions []Contribution
	)
	visited := make(map[int]bool)

	var walk func(id int) (int, error)
	walk = func(id int) (int, error) {
		if visited[id] {
			return 0, &MalformedTreeError{ID: id, Reason: "node revisited (cycle or duplicate id)"}
		}
		visited[id] = true

		n, ok := t.nodes[id]
		if !ok {
			return 0, &MalformedTreeError{ID: id, Reason: "child node is missing"}
		}
		if len(n.children) == 0 {
			leaves = append(leaves, id)
			return 1, nil
		}

		total := 0
		for _, child := range n.children {
			c, err := walk(child)
			if err != nil {
				return 0, err
			}
			total += c
		}
		contributions = append(contributions, Contribution{ID: id, Count: total})
		return total, nil
	}

	if _, err := walk(id); err != nil {
		return nil, nil, err
	}
	return leaves, contributions, nil
}

// Toggle flips the checkbox of id and returns the next state. s is left
// untouched.
//
// Selecting a node checks every node of its subtree, sets the highlight count
// of each internal node in the subtree to its leaf count, and adds to every
// ancestor the number of newly selected leaves. Ancestors are not checked.
//
// Deselecting a node unchecks its subtree and all of its ancestors, and
// subtracts the same amounts from the highlight multiset.
//
// The root never receives a highlight count. An ancestor whose leaves all end
// up selected one by one is not promoted to selected; it keeps a highlight
// count equal to its leaf count until it is toggled itself.
func (t *Tree) Toggle(s State, id int) (State, error) {
	leaves, contributions, err := t.CollectLeaves(id)
	if err != nil {
		return State{}, err
	}

	internal := make([]int, 0, len(contributions))
	increments := make(map[int]int, len(contributions))
	for _, c := range contributions {
		internal = append(internal, c.ID)
		if c.ID != t.root {
			increments[c.ID] += c.Count
		}
	}

	candidates := make(map[int]struct{}, len(leaves)+len(internal))
	for _, l := range leaves {
		candidates[l] = struct{}{}
	}
	for _, i := range internal {
		candidates[i] = struct{}{}
	}

	deselect := s.IsSelected(id)

	// Leaves that were already selected on their own have been counted into
	// the ancestors when they were toggled.
	adjusted := len(leaves)
	if !deselect {
		for _, l := range leaves {
			if l != id && s.IsSelected(l) {
				adjusted--
			}
		}
	}

	for _, a := range t.Ancestors(id) {
		if deselect {
			candidates[a] = struct{}{}
		}
		if a != t.root && adjusted > 0 {
			increments[a] += adjusted
		}
	}

	next := s.clone()
	if deselect {
		for c := range candidates {
			delete(next.selected, c)
		}
		for hid, n := range increments {
			next.subtractHighlight(hid, n)
		}
		return next, nil
	}

	for c := range candidates {
		next.selected[c] = struct{}{}
	}
	for _, i := range internal {
		delete(next.highlight, i)
	}
	for hid, n := range increments {
		next.addHighlight(hid, n)
	}
	return next, nil
}
