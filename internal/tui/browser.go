// Package tui is the terminal browser over the published result set.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vista360/internal/dashboard"
	"github.com/sells-group/vista360/internal/model"
)

// Tab titles, in display order.
var tabs = []string{"Análisis", "CENTRA", "FLOW360", "Gestor Leads"}

const (
	tabAnalysis = iota
	tabPolicy
	tabMultiPolicy
	tabLead
)

type screen int

const (
	screenList screen = iota
	screenDetail
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#00A859")).
			Padding(0, 1).
			Bold(true)
	activeTabStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00A859")).Bold(true).Underline(true)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

type profileItem struct {
	p model.AnalyzedProfile
}

// Marker by source count: three sources, two, one.
func marker(n int) string {
	switch {
	case n >= 3:
		return "●●●"
	case n == 2:
		return "●● "
	default:
		return "●  "
	}
}

func (i profileItem) Title() string {
	return fmt.Sprintf("%s %s — %s", marker(len(i.p.Sources)), i.p.DisplayName, i.p.City)
}

func (i profileItem) Description() string {
	names := make([]string, len(i.p.Sources))
	for k, s := range i.p.Sources {
		names[k] = string(s)
	}
	return fmt.Sprintf("%s · %s", i.p.Identifier, strings.Join(names, ", "))
}

func (i profileItem) FilterValue() string { return i.p.DisplayName }

// Model is the bubbletea model of the browser.
type Model struct {
	all     []model.AnalyzedProfile
	visible []model.AnalyzedProfile
	summary dashboard.Summary
	err     error

	screen    screen
	list      list.Model
	search    textinput.Model
	searching bool
	selected  model.AnalyzedProfile
	tab       int
	viewport  viewport.Model

	width  int
	height int
}

// New creates a browser over profiles. A non-nil err (typically
// dashboard.ErrNoData) is shown instead of the list.
func New(profiles []model.AnalyzedProfile, err error) Model {
	search := textinput.New()
	search.Placeholder = "nombre o cédula"
	search.Prompt = "Buscar: "

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "VISTA 360"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)

	m := Model{
		all:      profiles,
		summary:  dashboard.Summarize(profiles),
		err:      err,
		list:     l,
		search:   search,
		viewport: viewport.New(0, 0),
	}
	m.applyFilter()
	return m
}

// Run loads the active result set and starts the browser.
func Run(ctx context.Context, svc *dashboard.Service) error {
	profiles, err := svc.Profiles(ctx)
	if err != nil && !errors.Is(err, dashboard.ErrNoData) {
		return err
	}
	p := tea.NewProgram(New(profiles, err), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return eris.Wrap(err, "tui: run")
	}
	return nil
}

func (m *Model) applyFilter() {
	m.visible = dashboard.Filter(m.all, m.search.Value())
	items := make([]list.Item, len(m.visible))
	for i, p := range m.visible {
		items[i] = profileItem{p: p}
	}
	m.list.SetItems(items)
	m.list.ResetSelected()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, max(1, msg.Height-4))
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-6)
		if m.screen == screenDetail {
			m.viewport.SetContent(m.tabContent())
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.err != nil {
			if msg.String() == "q" || msg.String() == "esc" {
				return m, tea.Quit
			}
			return m, nil
		}
		switch {
		case m.searching:
			return m.updateSearch(msg)
		case m.screen == screenDetail:
			return m.updateDetail(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		return m, m.search.Focus()
	case "enter":
		idx := m.list.Index()
		if idx < 0 || idx >= len(m.visible) {
			return m, nil
		}
		m.selected = m.visible[idx]
		m.screen = screenDetail
		m.tab = tabAnalysis
		m.viewport.SetContent(m.tabContent())
		m.viewport.GotoTop()
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = screenList
		return m, nil
	case "tab", "right", "l":
		m.tab = (m.tab + 1) % len(tabs)
	case "shift+tab", "left", "h":
		m.tab = (m.tab + len(tabs) - 1) % len(tabs)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	m.viewport.SetContent(m.tabContent())
	m.viewport.GotoTop()
	return m, nil
}

func (m Model) tabContent() string {
	p := m.selected
	switch m.tab {
	case tabPolicy:
		return renderPolicy(p.Profile.PolicyRecord)
	case tabMultiPolicy:
		return renderPolicies(p.Profile.MultiPolicyRecords)
	case tabLead:
		return renderLeads(p.Profile.LeadRecords)
	default:
		return renderAnalysis(p, m.width-2)
	}
}

func (m Model) View() string {
	if m.err != nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("VISTA 360"),
			"",
			errorStyle.Render(m.err.Error()),
			"",
			hintStyle.Render("q: salir"),
		)
	}
	if m.screen == screenDetail {
		return m.detailView()
	}
	return m.listView()
}

func (m Model) listView() string {
	s := m.summary
	header := fmt.Sprintf("Clientes: %d · En varios CRMs: %d · En los 3 CRMs: %d · Ciudades: %d",
		s.Total, s.MultiSource, s.AllSources, s.Cities)
	var b strings.Builder
	b.WriteString(m.truncate(header))
	b.WriteString("\n")
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	if len(m.visible) == 0 {
		b.WriteString(mutedStyle.Render("No se encontraron clientes con ese criterio."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("/: buscar · enter: ver detalle · q: salir"))
	return b.String()
}

func (m Model) detailView() string {
	p := m.selected
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.truncate(p.DisplayName)))
	b.WriteString("\n")
	names := make([]string, len(p.Sources))
	for i, s := range p.Sources {
		names[i] = string(s)
	}
	b.WriteString(m.truncate(fmt.Sprintf("Ciudad: %s · Cédula: %s · Fuentes: %s", p.City, p.Identifier, strings.Join(names, ", "))))
	b.WriteString("\n\n")

	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		if i == m.tab {
			rendered[i] = activeTabStyle.Render(t)
		} else {
			rendered[i] = inactiveTabStyle.Render(t)
		}
	}
	b.WriteString(strings.Join(rendered, "  │  "))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("tab/←→: cambiar pestaña · ↑↓: desplazar · esc: volver · q: salir"))
	return b.String()
}

// truncate fits s to the terminal width, counting wide runes.
func (m Model) truncate(s string) string {
	if m.width <= 0 {
		return s
	}
	return runewidth.Truncate(s, m.width, "…")
}
