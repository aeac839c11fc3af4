package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/kanvas/pkg/filter"
	"github.com/vanderheijden86/kanvas/pkg/logging/events"
	"github.com/vanderheijden86/kanvas/pkg/model"
)

// Message sources of the two listing fetchers.
const (
	sourceStore   = "store"
	sourceProfile = "profile"
)

// SplitViewThreshold is the terminal width from which the tree and the
// listings are shown side by side.
const SplitViewThreshold = 90

type focus int

const (
	focusTree focus = iota
	focusListings
)

// CopiedMsg reports the outcome of a clipboard copy.
type CopiedMsg struct {
	Text string
	Err  error
}

// Options configures the storefront model.
type Options struct {
	Catalog          Catalog
	Tree             *filter.Tree
	Worker           *BackgroundWorker // optional; stopped on quit
	TreeStatePath    string
	InitialSelection []int
	PageSize         int
	Sort             model.ListingSort
	Renderer         *lipgloss.Renderer
}

// selectionFlag is shared by every copy of Model; the selector sets it and
// the update loop turns it into one refetch.
type selectionFlag struct {
	changed bool
}

// Model is the storefront: the category filter tree, the listings it
// filters and the profile page of an owner.
type Model struct {
	catalog  Catalog
	worker   *BackgroundWorker
	theme    Theme
	selector *filter.Selector
	flag     *selectionFlag

	tree     FilterTreeModel
	listings ListingsModel
	fetcher  *ListingFetcher

	profile        *ProfileModel
	profileFetcher *ListingFetcher
	profilePage    int

	picker     SortPickerModel
	showPicker bool

	focused  focus
	sort     model.ListingSort
	pageSize int
	page     int

	status    string
	statusErr bool
	width     int
	height    int
	ready     bool
}

// NewModel builds the storefront over opts.Tree. Ids in
// opts.InitialSelection are checked before the first fetch; unknown ids are
// logged and skipped.
func NewModel(opts Options) Model {
	r := opts.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	theme := DefaultTheme(r)
	if opts.PageSize <= 0 {
		opts.PageSize = model.DefaultPageSize
	}
	if !opts.Sort.IsValid() {
		opts.Sort = model.SortNewest
	}

	flag := &selectionFlag{}
	selector := filter.NewSelector(opts.Tree, func() { flag.changed = true })

	var initialOpen []int
	for _, id := range opts.InitialSelection {
		if _, err := selector.Toggle(id); err != nil {
			log.Printf("warning: initial selection: %v", err)
			continue
		}
		if !selector.State().IsSelected(id) {
			// Listed twice or covered by an ancestor listed earlier; keep it checked.
			if _, err := selector.Toggle(id); err != nil {
				log.Printf("warning: initial selection: %v", err)
			}
		}
		if opts.Tree != nil {
			initialOpen = append(initialOpen, opts.Tree.Ancestors(id)...)
		}
	}
	flag.changed = false

	m := Model{
		catalog:        opts.Catalog,
		worker:         opts.Worker,
		theme:          theme,
		selector:       selector,
		flag:           flag,
		tree:           NewFilterTreeModel(theme, selector, opts.TreeStatePath, initialOpen),
		listings:       NewListingsModel(theme, opts.PageSize),
		fetcher:        NewListingFetcher(sourceStore, opts.Catalog, 0),
		profileFetcher: NewListingFetcher(sourceProfile, opts.Catalog, 0),
		picker:         NewSortPickerModel(opts.Sort, theme),
		sort:           opts.Sort,
		pageSize:       opts.PageSize,
		page:           1,
	}
	m.listings.SetCategoryNames(categoryNames(opts.Tree))
	return m
}

// Init fetches the first page.
func (m Model) Init() tea.Cmd {
	return m.fetcher.Fetch(m.query())
}

// Selector exposes the filter state, mainly for tests.
func (m Model) Selector() *filter.Selector {
	return m.selector
}

// Query returns the listing query for the current filter, sort and page.
func (m Model) Query() model.ListingQuery {
	return m.query()
}

func (m Model) query() model.ListingQuery {
	return model.ListingQuery{
		CategoryIDs: m.selector.SelectedLeaves(),
		Sort:        m.sort,
		Page:        m.page,
		PageSize:    m.pageSize,
	}
}

// refetch starts a fetch of the current query.
func (m *Model) refetch() tea.Cmd {
	m.listings.SetLoading()
	return m.fetcher.Fetch(m.query())
}

// afterSelection turns a selection change into a single refetch of page 1.
func (m *Model) afterSelection() tea.Cmd {
	if !m.flag.changed {
		return nil
	}
	m.flag.changed = false
	m.page = 1
	return m.refetch()
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()

	case ListingsLoadedMsg:
		m.applyLoaded(msg)

	case ListingsErrorMsg:
		m.applyError(msg)

	case ProfileLoadedMsg:
		if m.profile != nil && m.profile.Address() == msg.Address {
			m.profile.SetUser(msg.User)
		}

	case ProfileErrorMsg:
		if m.profile != nil && m.profile.Address() == msg.Address {
			m.profile.SetUserError(msg.Err)
		}

	case CatalogReadyMsg:
		m.selector.SetTree(msg.Snapshot.Tree)
		m.flag.changed = false
		m.tree.Refresh()
		m.listings.SetCategoryNames(categoryNames(msg.Snapshot.Tree))
		m.page = 1
		events.Filter.Reset("catalog reloaded")
		m.setStatus(fmt.Sprintf("Categories reloaded (%d)", len(msg.Snapshot.Categories)), false)
		cmds = append(cmds, m.refetch())

	case CatalogTouchedMsg:
		cmds = append(cmds, m.refetch())
		if m.profile != nil {
			cmds = append(cmds, m.fetchProfilePage())
		}

	case CatalogErrorMsg:
		text := msg.Err.Error()
		if msg.Report != nil {
			text = msg.Report.Summary()
		}
		m.setStatus(text, true)

	case CopiedMsg:
		if msg.Err != nil {
			m.setStatus("Copy failed: "+msg.Err.Error(), true)
		} else {
			m.setStatus("Copied "+msg.Text, false)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) applyLoaded(msg ListingsLoadedMsg) {
	switch msg.Source {
	case sourceStore:
		if !m.fetcher.IsCurrent(msg.Generation) {
			return
		}
		m.listings.SetPage(msg.Page)
	case sourceProfile:
		if m.profile == nil || !m.profileFetcher.IsCurrent(msg.Generation) {
			return
		}
		m.profile.Listings().SetPage(msg.Page)
	default:
		return
	}
	events.Listing.Loaded(msg.Generation, msg.Page.Total)
}

func (m *Model) applyError(msg ListingsErrorMsg) {
	fetcher := m.fetcher
	pane := &m.listings
	if msg.Source == sourceProfile {
		if m.profile == nil {
			return
		}
		fetcher = m.profileFetcher
		pane = m.profile.Listings()
	}
	if !fetcher.IsCurrent(msg.Err.Generation) || errors.Is(msg.Err, context.Canceled) {
		return
	}
	log.Printf("warning: %v", msg.Err)
	pane.SetError(msg.Err)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, m.quit()
	}

	if m.showPicker {
		return m.handlePickerKey(key)
	}
	if m.profile != nil {
		return m.handleProfileKey(key)
	}

	switch key {
	case "q":
		return m, m.quit()
	case "tab":
		if m.focused == focusTree {
			m.focused = focusListings
		} else {
			m.focused = focusTree
		}
		return m, nil
	case "s":
		m.picker = NewSortPickerModel(m.sort, m.theme)
		m.picker.SetSize(m.width, m.height-1)
		m.showPicker = true
		return m, nil
	case "r":
		if m.selector.Reset() {
			events.Filter.Reset("user")
			m.setStatus("Filter cleared", false)
		}
		return m, m.afterSelection()
	case "n", "right":
		if m.focused == focusListings || key == "n" {
			if m.listings.HasNextPage() {
				m.page = m.listings.PageNumber() + 1
				return m, m.refetch()
			}
			return m, nil
		}
	case "p", "left":
		if m.focused == focusListings || key == "p" {
			if m.listings.HasPrevPage() {
				m.page = m.listings.PageNumber() - 1
				return m, m.refetch()
			}
			return m, nil
		}
	}

	if m.focused == focusTree {
		return m.handleTreeKey(key)
	}
	return m.handleListingsKey(key)
}

func (m Model) handleTreeKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "j", "down":
		m.tree.MoveDown()
	case "k", "up":
		m.tree.MoveUp()
	case "g", "home":
		m.tree.JumpToTop()
	case "G", "end":
		m.tree.JumpToBottom()
	case " ", "x":
		if _, err := m.tree.Toggle(); err != nil {
			m.setStatus(err.Error(), true)
		}
	case "enter":
		m.tree.ToggleExpand()
	case "l", "right":
		m.tree.ExpandOrMoveToChild()
	case "h", "left":
		m.tree.CollapseOrJumpToParent()
	case "E":
		m.tree.ExpandAll()
	case "C":
		m.tree.CollapseAll()
	}
	return m, m.afterSelection()
}

func (m Model) handleListingsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "j", "down":
		m.listings.MoveDown()
	case "k", "up":
		m.listings.MoveUp()
	case "ctrl+d":
		m.listings.ScrollDetail(5)
	case "ctrl+u":
		m.listings.ScrollDetail(-5)
	case "y":
		if nft, ok := m.listings.Selected(); ok && nft.OwnerAddress != "" {
			return m, copyCmd(nft.OwnerAddress)
		}
	case "o", "enter":
		if nft, ok := m.listings.Selected(); ok && nft.OwnerAddress != "" {
			return m, m.openProfile(nft.OwnerAddress)
		}
	}
	return m, nil
}

func (m Model) handlePickerKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "j", "down":
		m.picker.MoveDown()
	case "k", "up":
		m.picker.MoveUp()
	case "esc", "q":
		m.showPicker = false
	case "enter":
		m.showPicker = false
		if next := m.picker.Selected(); next != m.sort {
			m.sort = next
			m.page = 1
			return m, m.refetch()
		}
	}
	return m, nil
}

func (m Model) handleProfileKey(key string) (tea.Model, tea.Cmd) {
	pane := m.profile.Listings()
	switch key {
	case "q":
		return m, m.quit()
	case "esc", "backspace":
		m.profileFetcher.Cancel()
		m.profile = nil
	case "j", "down":
		pane.MoveDown()
	case "k", "up":
		pane.MoveUp()
	case "y":
		return m, copyCmd(m.profile.Address())
	case "n", "right":
		if pane.HasNextPage() {
			m.profilePage = pane.PageNumber() + 1
			return m, m.fetchProfilePage()
		}
	case "p", "left":
		if pane.HasPrevPage() {
			m.profilePage = pane.PageNumber() - 1
			return m, m.fetchProfilePage()
		}
	}
	return m, nil
}

func (m *Model) openProfile(address string) tea.Cmd {
	p := NewProfileModel(m.theme, address, m.pageSize)
	p.SetSize(m.width, m.height-1)
	p.Listings().SetCategoryNames(categoryNames(m.selector.Tree()))
	m.profile = &p
	m.profilePage = 1
	m.setStatus(profileTitle(address), false)
	return tea.Batch(LoadProfileCmd(m.catalog, address), m.fetchProfilePage())
}

func (m *Model) fetchProfilePage() tea.Cmd {
	m.profile.Listings().SetLoading()
	return m.profileFetcher.Fetch(m.profile.Query(m.profilePage, m.pageSize, m.sort))
}

func (m *Model) quit() tea.Cmd {
	m.fetcher.Cancel()
	m.profileFetcher.Cancel()
	if m.worker != nil {
		m.worker.Stop()
	}
	return tea.Quit
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Text: text, Err: clipboard.WriteAll(text)}
	}
}

// layout sizes the panes for the current terminal.
func (m *Model) layout() {
	bodyHeight := m.height - 1 // status bar
	if m.width > SplitViewThreshold {
		treeWidth := m.width * 35 / 100
		m.tree.SetSize(treeWidth-2, bodyHeight-2)
		m.listings.SetSize(m.width-treeWidth-2, bodyHeight-2)
	} else {
		m.tree.SetSize(m.width-2, bodyHeight/2-2)
		m.listings.SetSize(m.width-2, bodyHeight-bodyHeight/2-2)
	}
	m.picker.SetSize(m.width, bodyHeight)
	if m.profile != nil {
		m.profile.SetSize(m.width, bodyHeight)
	}
}

// View renders the storefront.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch {
	case m.showPicker:
		body = m.picker.View()
	case m.profile != nil:
		body = m.profile.View()
	default:
		treeView := m.theme.Panel(m.focused == focusTree).Render(m.tree.View())
		listView := m.theme.Panel(m.focused == focusListings).Render(m.listings.View())
		if m.width > SplitViewThreshold {
			body = lipgloss.JoinHorizontal(lipgloss.Top, treeView, listView)
		} else {
			body = lipgloss.JoinVertical(lipgloss.Left, treeView, listView)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m *Model) renderFooter() string {
	t := m.theme
	r := t.Renderer

	filterTxt := "all categories"
	if leaves := m.selector.SelectedLeaves(); len(leaves) > 0 {
		filterTxt = fmt.Sprintf("%d categories", len(leaves))
	}
	left := r.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1).
		Render(fmt.Sprintf("Filter: %s", filterTxt))
	sortSection := r.NewStyle().Foreground(t.Secondary).Padding(0, 1).Render(sortLabel(m.sort))

	statusSection := ""
	if m.status != "" {
		style := r.NewStyle().Foreground(t.Muted).Padding(0, 1)
		if m.statusErr {
			style = style.Foreground(t.Danger)
		}
		statusSection = style.Render(truncate(m.status, max(m.width/3, 10)))
	}

	var keys string
	switch {
	case m.showPicker:
		keys = "j/k: navigate • enter: apply • esc: cancel"
	case m.profile != nil:
		keys = "esc: back • n/p: page • y: copy address • q: quit"
	case m.focused == focusTree:
		keys = "space: toggle • enter: expand • r: reset • s: sort • tab: listings • q: quit"
	default:
		keys = "j/k: move • n/p: page • o: owner • y: copy • tab: filter • q: quit"
	}
	keysSection := r.NewStyle().Foreground(t.Muted).Padding(0, 1).Render(keys)

	used := lipgloss.Width(left) + lipgloss.Width(sortSection) + lipgloss.Width(statusSection) + lipgloss.Width(keysSection)
	filler := strings.Repeat(" ", max(m.width-used, 0))
	return left + sortSection + statusSection + filler + keysSection
}

// categoryNames maps category ids of tree to their names.
func categoryNames(tree *filter.Tree) map[int]string {
	names := map[int]string{}
	if tree == nil {
		return names
	}
	tree.Walk(func(id, _ int) {
		if id != tree.Root() {
			names[id] = tree.Name(id)
		}
	})
	return names
}
