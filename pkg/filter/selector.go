package filter

// Selector owns the filter state of one tree. It replaces the state
// wholesale on every toggle and calls onChange exactly once whenever the set
// of checked ids actually changes, so dependent listings can be refetched.
//
// A Selector is not safe for concurrent use; it is driven from the UI event
// loop, one interaction at a time.
type Selector struct {
	tree     *Tree
	state    State
	onChange func()
}

// NewSelector creates a selector over tree with an empty state. onChange may
// be nil.
func NewSelector(tree *Tree, onChange func()) *Selector {
	return &Selector{
		tree:     tree,
		state:    EmptyState(),
		onChange: onChange,
	}
}

// Tree returns the current tree (may be nil).
func (s *Selector) Tree() *Tree {
	return s.tree
}

// State returns the current state. The returned value is never mutated by
// the selector afterwards.
func (s *Selector) State() State {
	return s.state
}

// OnChange replaces the change callback.
func (s *Selector) OnChange(fn func()) {
	s.onChange = fn
}

// Toggle flips id and reports whether the selection changed. On error the
// state is left as it was.
func (s *Selector) Toggle(id int) (bool, error) {
	if s.tree == nil {
		return false, &UnknownNodeError{ID: id}
	}
	next, err := s.tree.Toggle(s.state, id)
	if err != nil {
		return false, err
	}
	return s.replace(next), nil
}

// Reset clears selection and highlight. It reports whether anything was
// selected before.
func (s *Selector) Reset() bool {
	return s.replace(EmptyState())
}

// SetTree swaps in a new tree and resets the state, since ids of the old
// tree mean nothing for the new one.
func (s *Selector) SetTree(tree *Tree) bool {
	s.tree = tree
	return s.Reset()
}

// SelectedLeaves returns the checked leaf ids of the current tree.
func (s *Selector) SelectedLeaves() []int {
	if s.tree == nil {
		return nil
	}
	return s.tree.SelectedLeaves(s.state)
}

func (s *Selector) replace(next State) bool {
	changed := !s.state.SameSelection(next)
	s.state = next
	if changed && s.onChange != nil {
		s.onChange()
	}
	return changed
}
