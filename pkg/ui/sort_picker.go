package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

// SortPickerModel is the modal for choosing the listing order.
type SortPickerModel struct {
	sorts         []model.ListingSort
	current       model.ListingSort
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewSortPickerModel creates a picker with current preselected.
func NewSortPickerModel(current model.ListingSort, theme Theme) SortPickerModel {
	sorts := model.ListingSorts()
	selectedIdx := 0
	for i, s := range sorts {
		if s == current {
			selectedIdx = i
			break
		}
	}
	return SortPickerModel{
		sorts:         sorts,
		current:       current,
		selectedIndex: selectedIdx,
		theme:         theme,
	}
}

// SetSize updates the picker dimensions
func (m *SortPickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *SortPickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *SortPickerModel) MoveDown() {
	if m.selectedIndex < len(m.sorts)-1 {
		m.selectedIndex++
	}
}

// Selected returns the highlighted sort.
func (m *SortPickerModel) Selected() model.ListingSort {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.sorts) {
		return m.sorts[m.selectedIndex]
	}
	return model.SortNewest
}

// View renders the picker centered in its area.
func (m *SortPickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 35
	if m.width < 45 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	var lines []string
	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		MarginBottom(1)
	lines = append(lines, titleStyle.Render("Sort Listings"))
	lines = append(lines, "")

	for i, s := range m.sorts {
		isSelected := i == m.selectedIndex

		itemStyle := t.Renderer.NewStyle()
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}

		prefix := "  "
		if isSelected {
			prefix = "> "
		}

		suffix := ""
		if s == m.current {
			checkStyle := t.Renderer.NewStyle().Foreground(t.Secondary)
			suffix = " " + checkStyle.Render("✓")
		}
		lines = append(lines, itemStyle.Render(prefix+sortLabel(s))+suffix)
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: apply | esc: cancel"))

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(strings.Join(lines, "\n")),
	)
}

// sortLabel converts a sort value to a display name.
// For instance "price_asc" -> "Price ↑"
func sortLabel(s model.ListingSort) string {
	switch s {
	case model.SortNewest:
		return "Newest"
	case model.SortPriceAsc:
		return "Price ↑"
	case model.SortPriceDesc:
		return "Price ↓"
	case model.SortName:
		return "Name"
	}
	return string(s)
}
