// Package picker provides the data-source picker shown while a new chat is
// waiting for its data source: catalog categories that expand to sources,
// and a widget checklist.
package picker

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/devdeck/internal/catalog"
	"github.com/zjrosen/devdeck/internal/keys"
	"github.com/zjrosen/devdeck/internal/ui/overlay"
	"github.com/zjrosen/devdeck/internal/ui/styles"
)

const defaultBoxWidth = 48

// Zone IDs for mouse clicks. The caller must zone.Scan the rendered screen
// for clicks to register.
func (m Model) rowZoneID(i int) string    { return fmt.Sprintf("%srow:%d", m.zonePrefix, i) }
func (m Model) widgetZoneID(i int) string { return fmt.Sprintf("%swidget:%d", m.zonePrefix, i) }

// ConfirmMsg is sent when the user picks a source.
type ConfirmMsg struct {
	SourceID string
	Widgets  []string
}

// CancelMsg is sent when the picker is dismissed.
type CancelMsg struct{}

type row struct {
	category int
	source   int // -1 for a category header
}

type widgetRow struct {
	widget   catalog.Widget
	selected bool
}

// Model holds the picker state.
type Model struct {
	categories []catalog.Category
	expanded   []bool
	rows       []row
	cursor     int

	widgets     []widgetRow
	widgetMode  bool
	widgetIndex int

	keys           keys.PickerKeyMap
	zonePrefix     string
	boxWidth       int
	viewportWidth  int
	viewportHeight int
}

// New creates a picker over cat. Categories marked expanded start open and
// enabled widgets start selected.
func New(cat *catalog.Catalog) Model {
	m := Model{
		categories: cat.Categories,
		expanded:   make([]bool, len(cat.Categories)),
		keys:       keys.DefaultPickerKeyMap(),
		zonePrefix: zone.NewPrefix(),
		boxWidth:   defaultBoxWidth,
	}
	for i, c := range cat.Categories {
		m.expanded[i] = c.Expanded
	}
	for _, w := range cat.Widgets {
		m.widgets = append(m.widgets, widgetRow{widget: w, selected: w.Enabled || w.Required})
	}
	m.rebuild()
	return m
}

// SetSize sets the viewport dimensions for overlay rendering.
func (m Model) SetSize(width, height int) Model {
	m.viewportWidth = width
	m.viewportHeight = height
	return m
}

// Highlighted returns the source under the cursor, if any.
func (m Model) Highlighted() (catalog.Source, bool) {
	if m.cursor >= len(m.rows) {
		return catalog.Source{}, false
	}
	r := m.rows[m.cursor]
	if r.source < 0 {
		return catalog.Source{}, false
	}
	return m.categories[r.category].Sources[r.source], true
}

// SelectedWidgets returns the checked widget ids in catalog order.
func (m Model) SelectedWidgets() []string {
	var ids []string
	for _, w := range m.widgets {
		if w.selected {
			ids = append(ids, w.widget.ID)
		}
	}
	return ids
}

// Update handles key presses and mouse clicks.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if mouse, ok := msg.(tea.MouseMsg); ok {
		return m.handleMouse(mouse)
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		return m, func() tea.Msg { return CancelMsg{} }
	case key.Matches(keyMsg, m.keys.Widgets):
		m.widgetMode = !m.widgetMode
		return m, nil
	}

	if m.widgetMode {
		return m.updateWidgets(keyMsg)
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Toggle):
		m.toggleCategory()
	case key.Matches(keyMsg, m.keys.Confirm):
		src, ok := m.Highlighted()
		if !ok {
			m.toggleCategory()
			return m, nil
		}
		return m, m.confirm(src)
	}
	return m, nil
}

func (m Model) confirm(src catalog.Source) tea.Cmd {
	msg := ConfirmMsg{SourceID: src.ID, Widgets: m.SelectedWidgets()}
	return func() tea.Msg { return msg }
}

// handleMouse maps a left click to the row under it. Clicking a header
// expands or collapses it, clicking a source highlights it and clicking the
// highlighted source again connects. Clicking a widget toggles it.
func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if msg.Button != tea.MouseButtonLeft || msg.Action != tea.MouseActionRelease {
		return m, nil
	}
	for i := range m.rows {
		if z := zone.Get(m.rowZoneID(i)); z != nil && z.InBounds(msg) {
			m.widgetMode = false
			if m.rows[i].source < 0 {
				m.cursor = i
				m.toggleCategory()
				return m, nil
			}
			if m.cursor == i {
				src, _ := m.Highlighted()
				return m, m.confirm(src)
			}
			m.cursor = i
			return m, nil
		}
	}
	for i := range m.widgets {
		if z := zone.Get(m.widgetZoneID(i)); z != nil && z.InBounds(msg) {
			m.widgetMode = true
			m.widgetIndex = i
			m.toggleWidget()
			return m, nil
		}
	}
	return m, nil
}

func (m Model) updateWidgets(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.widgetIndex > 0 {
			m.widgetIndex--
		}
	case key.Matches(msg, m.keys.Down):
		if m.widgetIndex < len(m.widgets)-1 {
			m.widgetIndex++
		}
	case key.Matches(msg, m.keys.Toggle), key.Matches(msg, m.keys.Confirm):
		m.toggleWidget()
	}
	return m, nil
}

func (m *Model) toggleWidget() {
	if m.widgetIndex >= len(m.widgets) || m.widgets[m.widgetIndex].widget.Required {
		return
	}
	// Copy before writing: Model is a value and shares the slice.
	m.widgets = append([]widgetRow(nil), m.widgets...)
	m.widgets[m.widgetIndex].selected = !m.widgets[m.widgetIndex].selected
}

func (m *Model) toggleCategory() {
	if m.cursor >= len(m.rows) {
		return
	}
	cat := m.rows[m.cursor].category
	m.expanded = append([]bool(nil), m.expanded...)
	m.expanded[cat] = !m.expanded[cat]
	m.rebuild()
	for i, r := range m.rows {
		if r.category == cat && r.source < 0 {
			m.cursor = i
			break
		}
	}
}

func (m *Model) rebuild() {
	m.rows = m.rows[:0:0]
	for ci, c := range m.categories {
		m.rows = append(m.rows, row{category: ci, source: -1})
		if !m.expanded[ci] {
			continue
		}
		for si := range c.Sources {
			m.rows = append(m.rows, row{category: ci, source: si})
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

// View renders the picker box.
func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(styles.OverlayTitleColor).PaddingLeft(1)
	divider := lipgloss.NewStyle().Foreground(styles.OverlayBorderColor).Render(strings.Repeat("─", m.boxWidth))

	var b strings.Builder
	b.WriteString(title.Render("Connect a data source"))
	b.WriteString("\n" + divider + "\n")

	for i, r := range m.rows {
		cursor := " "
		if i == m.cursor && !m.widgetMode {
			cursor = styles.SelectionIndicatorStyle.Render(">")
		}
		c := m.categories[r.category]
		if r.source < 0 {
			arrow := "▸"
			if m.expanded[r.category] {
				arrow = "▾"
			}
			b.WriteString(zone.Mark(m.rowZoneID(i), cursor+lipgloss.NewStyle().Bold(true).Render(arrow+" "+c.Name)) + "\n")
			continue
		}
		src := c.Sources[r.source]
		b.WriteString(zone.Mark(m.rowZoneID(i), cursor+"   "+src.Name+" "+styles.MutedStyle.Render(src.Description)) + "\n")
	}
	if src, ok := m.Highlighted(); ok && src.Location != "" {
		b.WriteString(styles.SecondaryStyle.Render("  "+src.DisplayLocation()) + "\n")
	}

	b.WriteString(divider + "\n")
	b.WriteString(title.Render("Widgets") + "\n")
	for i, w := range m.widgets {
		cursor := " "
		if i == m.widgetIndex && m.widgetMode {
			cursor = styles.SelectionIndicatorStyle.Render(">")
		}
		box := "[ ]"
		if w.selected {
			box = "[x]"
		}
		label := w.widget.Name
		if w.widget.Required {
			label += styles.MutedStyle.Render(" (required)")
		}
		b.WriteString(zone.Mark(m.widgetZoneID(i), cursor+box+" "+label) + "\n")
	}
	b.WriteString(styles.MutedStyle.Render("enter/click connect · space expand · w widgets · esc cancel"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(m.boxWidth).
		Render(b.String())
}

// Overlay renders the picker centered over background.
func (m Model) Overlay(background string) string {
	box := m.View()
	if background == "" {
		return lipgloss.Place(m.viewportWidth, m.viewportHeight, lipgloss.Center, lipgloss.Center, box)
	}
	return overlay.Place(overlay.Config{
		Width:    m.viewportWidth,
		Height:   m.viewportHeight,
		Position: overlay.Center,
	}, box, background)
}
