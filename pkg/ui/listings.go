package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

// ListingsModel shows one page of NFT listings plus a detail pane for the
// row under the cursor.
type ListingsModel struct {
	page      model.ListingPage
	loaded    bool
	loading   bool
	cursor    int
	width     int
	height    int
	theme     Theme
	pager     paginator.Model
	detail    viewport.Model
	markdown  *MarkdownRenderer
	names     map[int]string // category id -> display name
	errorText string
}

// NewListingsModel creates an empty listings pane.
func NewListingsModel(theme Theme, pageSize int) ListingsModel {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	p := paginator.New()
	p.Type = paginator.Arabic
	p.PerPage = pageSize
	return ListingsModel{
		theme:    theme,
		pager:    p,
		detail:   viewport.New(40, 10),
		markdown: NewMarkdownRendererWithTheme(40, theme),
		names:    map[int]string{},
	}
}

// SetCategoryNames sets the names used in the category column.
func (m *ListingsModel) SetCategoryNames(names map[int]string) {
	m.names = names
	m.updateDetail()
}

// SetSize updates the list and detail dimensions.
func (m *ListingsModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	detailHeight := height / 3
	if detailHeight < 3 {
		detailHeight = 3
	}
	m.detail.Width = width
	m.detail.Height = detailHeight
	m.markdown.SetWidthWithTheme(width, m.theme)
	m.updateDetail()
}

// SetLoading marks a fetch as in flight.
func (m *ListingsModel) SetLoading() {
	m.loading = true
}

// SetPage replaces the shown page. The cursor is kept when possible.
func (m *ListingsModel) SetPage(page model.ListingPage) {
	m.page = page
	m.loaded = true
	m.loading = false
	m.errorText = ""
	if page.PageSize > 0 {
		m.pager.PerPage = page.PageSize
	}
	if page.Total > 0 {
		m.pager.SetTotalPages(page.Total)
	} else {
		m.pager.TotalPages = 1
	}
	m.pager.Page = 0
	if page.Page > 0 {
		m.pager.Page = page.Page - 1
	}
	if m.cursor >= len(page.NFTs) {
		m.cursor = len(page.NFTs) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.updateDetail()
}

// SetError shows a fetch failure in place of the rows.
func (m *ListingsModel) SetError(err error) {
	m.loading = false
	m.errorText = err.Error()
}

// Page returns the page on display.
func (m *ListingsModel) Page() model.ListingPage {
	return m.page
}

// PageNumber returns the 1-based page on display.
func (m *ListingsModel) PageNumber() int {
	return m.pager.Page + 1
}

// TotalPages returns the page count of the current result.
func (m *ListingsModel) TotalPages() int {
	return m.pager.TotalPages
}

// HasNextPage reports whether a page follows the current one.
func (m *ListingsModel) HasNextPage() bool {
	return m.loaded && !m.pager.OnLastPage() && m.page.Total > 0
}

// HasPrevPage reports whether a page precedes the current one.
func (m *ListingsModel) HasPrevPage() bool {
	return m.pager.Page > 0
}

// MoveDown moves the cursor to the next row.
func (m *ListingsModel) MoveDown() {
	if m.cursor < len(m.page.NFTs)-1 {
		m.cursor++
		m.updateDetail()
	}
}

// MoveUp moves the cursor to the previous row.
func (m *ListingsModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		m.updateDetail()
	}
}

// Selected returns the NFT under the cursor.
func (m *ListingsModel) Selected() (model.NFT, bool) {
	if m.cursor >= 0 && m.cursor < len(m.page.NFTs) {
		return m.page.NFTs[m.cursor], true
	}
	return model.NFT{}, false
}

// ScrollDetail scrolls the detail pane by n lines.
func (m *ListingsModel) ScrollDetail(n int) {
	m.detail.SetYOffset(m.detail.YOffset + n)
}

func (m *ListingsModel) updateDetail() {
	nft, ok := m.Selected()
	if !ok {
		m.detail.SetContent("No listing selected")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", nft.Name)
	sb.WriteString("| Price | Category | Owner | Listed |\n|---|---|---|---|\n")
	fmt.Fprintf(&sb, "| **%s** | %s | %s | %s |\n\n",
		formatPrice(nft.Price),
		m.categoryName(nft.CategoryID),
		ownerLabel(nft.OwnerAddress),
		nft.CreatedAt.Format("2006-01-02"),
	)
	if nft.Description != "" {
		sb.WriteString(nft.Description + "\n")
	}

	rendered, err := m.markdown.Render(sb.String())
	if err != nil {
		m.detail.SetContent(fmt.Sprintf("Error rendering markdown: %v", err))
		return
	}
	m.detail.SetContent(rendered)
	m.detail.GotoTop()
}

func (m *ListingsModel) categoryName(id int) string {
	if name, ok := m.names[id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

// View renders the rows, the pager and the detail pane.
func (m *ListingsModel) View() string {
	t := m.theme
	r := t.Renderer
	muted := r.NewStyle().Foreground(t.Muted)

	switch {
	case m.errorText != "":
		return r.NewStyle().Foreground(t.Danger).Render("Error: " + m.errorText)
	case !m.loaded && m.loading:
		return muted.Render("Loading listings…")
	case !m.loaded:
		return muted.Render("No listings loaded.")
	case len(m.page.NFTs) == 0:
		return muted.Render("No NFTs match the selected categories.")
	}

	var lines []string
	for i, nft := range m.page.NFTs {
		line := m.renderRow(nft)
		if i == m.cursor {
			line = t.Selected.Render(line)
		}
		lines = append(lines, line)
	}

	status := fmt.Sprintf("%s  %d NFTs", m.pager.View(), m.page.Total)
	if m.loading {
		status += "  (refreshing)"
	}
	lines = append(lines, "", muted.Render(status), "", m.detail.View())
	return strings.Join(lines, "\n")
}

// renderRow renders one listing: name, price, category and owner columns.
func (m *ListingsModel) renderRow(nft model.NFT) string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	price := formatPrice(nft.Price)
	category := truncate(m.categoryName(nft.CategoryID), 16)
	owner := truncate(ownerLabel(nft.OwnerAddress), 14)

	fixed := 10 + 16 + 14 + 6
	name := runewidth.FillRight(truncate(nft.Name, width-fixed), max(width-fixed, 4))
	return fmt.Sprintf("%s  %s  %s  %s",
		name,
		runewidth.FillLeft(price, 10),
		runewidth.FillRight(category, 16),
		owner,
	)
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.2f ꜩ", p)
}

func ownerLabel(address string) string {
	if address == "" {
		return "unowned"
	}
	return address
}
