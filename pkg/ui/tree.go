// tree.go - Category filter tree with tri-state checkboxes
package ui

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/kanvas/pkg/filter"
	"github.com/vanderheijden86/kanvas/pkg/logging/events"
)

// TreeState is the persisted expand/collapse state of the filter tree.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "open": [3, 7, 12]
//	}
//
// A missing file means first run: the categories of the initial selection
// start open. A corrupted file is ignored.
type TreeState struct {
	Version int   `json:"version"`
	Open    []int `json:"open"`
}

// TreeStateVersion is the current schema version for tree persistence
const TreeStateVersion = 1

// Checkbox glyphs.
const (
	checkboxOn      = "[x]"
	checkboxPartial = "[~]"
	checkboxOff     = "[ ]"
)

// FilterTreeModel renders a filter.Tree and routes checkbox toggles through
// a filter.Selector. Which nodes are open is tracked separately from what is
// selected; toggling never opens or closes anything.
type FilterTreeModel struct {
	selector *filter.Selector
	open     map[int]bool
	flatList []int // visible node ids in display order
	cursor   int
	offset   int // index of the first rendered row
	width    int
	height   int
	theme    Theme

	statePath string
	lastErr   error
}

// NewFilterTreeModel creates the tree view. Nodes in initialOpen start
// expanded unless a saved state at statePath says otherwise. An empty
// statePath disables persistence.
func NewFilterTreeModel(theme Theme, selector *filter.Selector, statePath string, initialOpen []int) FilterTreeModel {
	t := FilterTreeModel{
		selector:  selector,
		open:      make(map[int]bool),
		theme:     theme,
		statePath: statePath,
	}
	if !t.loadState() {
		for _, id := range initialOpen {
			t.open[id] = true
		}
	}
	t.rebuildFlatList()
	return t
}

// loadState restores the open set. It reports whether a saved state was
// applied.
func (t *FilterTreeModel) loadState() bool {
	if t.statePath == "" {
		return false
	}
	data, err := os.ReadFile(t.statePath)
	if err != nil {
		// File doesn't exist = first run, use defaults
		return false
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("warning: invalid tree state file, using defaults: %v", err)
		return false
	}
	if state.Version != TreeStateVersion {
		log.Printf("warning: tree state version %d not supported, using defaults", state.Version)
		return false
	}
	for _, id := range state.Open {
		t.open[id] = true
	}
	return true
}

// saveState persists the open set. Errors are logged but do not interrupt
// the user.
func (t *FilterTreeModel) saveState() {
	if t.statePath == "" {
		return
	}
	state := TreeState{Version: TreeStateVersion, Open: t.OpenIDs()}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("warning: failed to marshal tree state: %v", err)
		return
	}
	dir := filepath.Dir(t.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("warning: failed to create state directory %s: %v", dir, err)
		return
	}
	if err := os.WriteFile(t.statePath, data, 0o644); err != nil {
		log.Printf("warning: failed to write tree state to %s: %v", t.statePath, err)
	}
}

// OpenIDs returns the expanded node ids in ascending order.
func (t *FilterTreeModel) OpenIDs() []int {
	ids := make([]int, 0, len(t.open))
	for id, open := range t.open {
		if open {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// IsOpen reports whether id is expanded. The root is always open.
func (t *FilterTreeModel) IsOpen(id int) bool {
	tree := t.tree()
	if tree != nil && id == tree.Root() {
		return true
	}
	return t.open[id]
}

func (t *FilterTreeModel) tree() *filter.Tree {
	if t.selector == nil {
		return nil
	}
	return t.selector.Tree()
}

// SetSize sets the pane size in cells.
func (t *FilterTreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Refresh recomputes the visible rows, e.g. after the selector got a new
// tree. Open ids that no longer exist are kept; they match again if the
// category comes back.
func (t *FilterTreeModel) Refresh() {
	t.rebuildFlatList()
}

// Toggle flips the checkbox under the cursor and reports whether the
// selection changed.
func (t *FilterTreeModel) Toggle() (bool, error) {
	id, ok := t.SelectedID()
	if !ok {
		return false, nil
	}
	changed, err := t.selector.Toggle(id)
	if err != nil {
		t.lastErr = err
		return false, err
	}
	t.lastErr = nil
	events.Filter.Toggle(id, t.selector.State().IsSelected(id), t.selector.State().Selected())
	return changed, nil
}

// SelectedID returns the node under the cursor.
func (t *FilterTreeModel) SelectedID() (int, bool) {
	if t.cursor >= 0 && t.cursor < len(t.flatList) {
		return t.flatList[t.cursor], true
	}
	return 0, false
}

// SelectByID moves the cursor to id if it is visible.
func (t *FilterTreeModel) SelectByID(id int) bool {
	for i, n := range t.flatList {
		if n == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

// MoveDown moves to the next visible row.
func (t *FilterTreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves to the previous visible row.
func (t *FilterTreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

// JumpToTop selects the root row.
func (t *FilterTreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom selects the last visible row.
func (t *FilterTreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
		t.ensureCursorVisible()
	}
}

// ToggleExpand expands or collapses the node under the cursor.
func (t *FilterTreeModel) ToggleExpand() {
	id, ok := t.SelectedID()
	tree := t.tree()
	if !ok || tree == nil || tree.IsLeaf(id) || id == tree.Root() {
		return
	}
	t.setOpen(id, !t.open[id])
}

// ExpandOrMoveToChild opens a closed category, or steps into the first
// child of an open one. Leaves are left alone.
func (t *FilterTreeModel) ExpandOrMoveToChild() {
	id, ok := t.SelectedID()
	tree := t.tree()
	if !ok || tree == nil || tree.IsLeaf(id) {
		return
	}
	if !t.IsOpen(id) {
		t.setOpen(id, true)
		return
	}
	t.SelectByID(tree.Children(id)[0])
}

// CollapseOrJumpToParent closes an open category; from a closed one or a
// leaf it moves to the parent row.
func (t *FilterTreeModel) CollapseOrJumpToParent() {
	id, ok := t.SelectedID()
	tree := t.tree()
	if !ok || tree == nil {
		return
	}
	if !tree.IsLeaf(id) && id != tree.Root() && t.open[id] {
		t.setOpen(id, false)
		return
	}
	if parent, ok := tree.Parent(id); ok {
		t.SelectByID(parent)
	}
}

// ExpandAll opens every internal node.
func (t *FilterTreeModel) ExpandAll() {
	tree := t.tree()
	if tree == nil {
		return
	}
	tree.Walk(func(id, _ int) {
		if !tree.IsLeaf(id) && id != tree.Root() {
			t.open[id] = true
		}
	})
	t.rebuildFlatList()
	t.saveState()
}

// CollapseAll closes every node.
func (t *FilterTreeModel) CollapseAll() {
	t.open = make(map[int]bool)
	t.rebuildFlatList()
	t.saveState()
}

func (t *FilterTreeModel) setOpen(id int, open bool) {
	current, _ := t.SelectedID()
	if open {
		t.open[id] = true
	} else {
		delete(t.open, id)
	}
	events.Filter.Expand(id, open)
	t.rebuildFlatList()
	t.SelectByID(current)
	t.saveState()
}

// rebuildFlatList recomputes the visible rows from the open set.
func (t *FilterTreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	if tree := t.tree(); tree != nil {
		t.appendVisible(tree, tree.Root())
	}
	// Clamp after a collapse or a smaller tree.
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

// appendVisible adds a node and its visible descendants to flatList.
func (t *FilterTreeModel) appendVisible(tree *filter.Tree, id int) {
	t.flatList = append(t.flatList, id)
	if !t.IsOpen(id) {
		return
	}
	for _, child := range tree.Children(id) {
		t.appendVisible(tree, child)
	}
}

func (t *FilterTreeModel) visibleRows() int {
	if t.height <= 0 {
		return 20 // Default
	}
	return t.height
}

func (t *FilterTreeModel) ensureCursorVisible() {
	rows := t.visibleRows()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+rows {
		t.offset = t.cursor - rows + 1
	}
	if last := len(t.flatList) - rows; t.offset > last {
		t.offset = last
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// NodeCount returns the number of visible rows.
func (t *FilterTreeModel) NodeCount() int {
	return len(t.flatList)
}

// LastError returns the error of the last failed toggle, if any.
func (t *FilterTreeModel) LastError() error {
	return t.lastErr
}

// Checkbox returns the glyph shown for id in the current state.
func (t *FilterTreeModel) Checkbox(id int) string {
	tree := t.tree()
	if tree == nil {
		return checkboxOff
	}
	state := t.selector.State()
	switch {
	case state.IsSelected(id):
		return checkboxOn
	case state.IsPartial(id):
		return checkboxPartial
	case id == tree.Root() && state.Len() > 0:
		return checkboxPartial
	default:
		return checkboxOff
	}
}

// View renders the visible window of the tree.
func (t *FilterTreeModel) View() string {
	tree := t.tree()
	if tree == nil || len(t.flatList) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	end := t.offset + t.visibleRows()
	if end > len(t.flatList) {
		end = len(t.flatList)
	}
	for i := t.offset; i < end; i++ {
		line := t.renderNode(tree, t.flatList[i])
		if i == t.cursor {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (t *FilterTreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	muted := r.NewStyle().Foreground(t.theme.Muted)
	return muted.Render("No categories.")
}

// renderNode renders a single row: branch prefix, expand indicator,
// checkbox, name and leaf count for internal nodes.
func (t *FilterTreeModel) renderNode(tree *filter.Tree, id int) string {
	r := t.theme.Renderer
	var sb strings.Builder

	prefix := t.buildTreePrefix(tree, id)
	sb.WriteString(prefix)

	indicatorStyle := r.NewStyle().Foreground(t.theme.Secondary)
	sb.WriteString(indicatorStyle.Render(t.expandIndicator(tree, id)))
	sb.WriteString(" ")

	box := t.Checkbox(id)
	boxStyle := r.NewStyle().Foreground(t.theme.Muted)
	switch box {
	case checkboxOn:
		boxStyle = r.NewStyle().Foreground(t.theme.Primary).Bold(true)
	case checkboxPartial:
		boxStyle = r.NewStyle().Foreground(t.theme.Highlight)
	}
	sb.WriteString(boxStyle.Render(box))
	sb.WriteString(" ")

	suffix := ""
	if !tree.IsLeaf(id) {
		suffix = fmt.Sprintf(" (%d)", tree.LeafCount(id))
	}
	used := runewidth.StringWidth(stripTreePrefix(tree, id)) + 2 + len(box) + 1 + len(suffix)
	name := truncate(tree.Name(id), t.width-used)
	sb.WriteString(name)
	if suffix != "" {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(suffix))
	}
	return sb.String()
}

// stripTreePrefix is the unstyled prefix, used for width accounting.
func stripTreePrefix(tree *filter.Tree, id int) string {
	depth := tree.Depth(id)
	if depth == 0 {
		return ""
	}
	return strings.Repeat("    ", depth)
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (t *FilterTreeModel) buildTreePrefix(tree *filter.Tree, id int) string {
	if id == tree.Root() {
		return ""
	}
	treeStyle := t.theme.Renderer.NewStyle().Foreground(t.theme.Muted)

	// Ancestors nearest first; the root draws no column.
	ancestors := tree.Ancestors(id)
	var parts []string
	for i := len(ancestors) - 2; i >= 0; i-- {
		if isLastChild(tree, ancestors[i]) {
			parts = append(parts, "    ")
		} else {
			parts = append(parts, "│   ")
		}
	}
	if isLastChild(tree, id) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}
	return treeStyle.Render(strings.Join(parts, ""))
}

func isLastChild(tree *filter.Tree, id int) bool {
	parent, ok := tree.Parent(id)
	if !ok {
		return true
	}
	siblings := tree.Children(parent)
	return len(siblings) > 0 && siblings[len(siblings)-1] == id
}

func (t *FilterTreeModel) expandIndicator(tree *filter.Tree, id int) string {
	if tree.IsLeaf(id) {
		return "•" // Leaf node
	}
	if t.IsOpen(id) {
		return "▾" // Expanded
	}
	return "▸" // Collapsed
}

// truncate shortens s to at most width display cells, ending in an
// ellipsis when cut.
func truncate(s string, width int) string {
	if width < 4 {
		width = 4
	}
	return runewidth.Truncate(s, width, "…")
}
