package reports

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/worklog/internal/keys"
	"github.com/nhle/worklog/internal/report"
	"github.com/nhle/worklog/internal/store"
	"github.com/nhle/worklog/internal/theme"
)

// ReportsCloseMsg signals the parent to close the reports view.
type ReportsCloseMsg struct{}

type page int

const (
	pageOverview page = iota
	pageByCustomer
	pageByDepartment
	pageByDescription
	pageTracked
	pageCount
)

type reportDataMsg struct {
	overview      report.Overview
	byCustomer    []report.Row
	byDepartment  []report.Row
	byDescription []report.Row
	tracked       []report.TrackedRow
}

// Model is the Bubble Tea model for the report pages. Tab cycles through
// the overview and the per-dimension breakdowns.
type Model struct {
	stores *store.Stores
	keys   *keys.KeyMap
	page   page
	data   reportDataMsg
	loaded bool
	width  int
	height int
}

// New creates a new reports model.
func New(st *store.Stores, k *keys.KeyMap, width, height int) Model {
	return Model{
		stores: st,
		keys:   k,
		width:  width, height: height,
	}
}

// Init loads all report data.
func (m Model) Init() tea.Cmd {
	return m.loadReports()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case reportDataMsg:
		m.data = msg
		m.loaded = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return ReportsCloseMsg{} }
		case key.Matches(msg, m.keys.NextReport):
			m.page = (m.page + 1) % pageCount
			return m, nil
		case key.Matches(msg, m.keys.Select):
			m.page = (m.page + 1) % pageCount
			return m, nil
		}
	}
	return m, nil
}

func (m Model) loadReports() tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		return reportDataMsg{
			overview:      report.BuildOverview(st),
			byCustomer:    report.ByCustomer(st),
			byDepartment:  report.ByDepartment(st),
			byDescription: report.ByDescription(st),
			tracked:       report.TrackedByTask(st),
		}
	}
}

// View renders the active report page.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Reports: " + m.pageTitle()))
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString(theme.EmptyStyle.Render("Loading…"))
	} else {
		switch m.page {
		case pageOverview:
			b.WriteString(m.viewOverview())
		case pageByCustomer:
			b.WriteString(m.viewRows(m.data.byCustomer))
		case pageByDepartment:
			b.WriteString(m.viewRows(m.data.byDepartment))
		case pageByDescription:
			b.WriteString(m.viewRows(m.data.byDescription))
		case pageTracked:
			b.WriteString(m.viewTracked())
		}
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render("tab next report | esc back"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) pageTitle() string {
	switch m.page {
	case pageByCustomer:
		return "By Customer"
	case pageByDepartment:
		return "By Department"
	case pageByDescription:
		return "By Description"
	case pageTracked:
		return "Tracked Time"
	default:
		return "Overview"
	}
}

func (m Model) viewOverview() string {
	var b strings.Builder
	o := m.data.overview

	b.WriteString(fmt.Sprintf("Tasks:        %d\n", o.TotalTasks))
	b.WriteString(fmt.Sprintf("Hours:        %.1f\n", o.TotalHours))
	b.WriteString(fmt.Sprintf("Customers:    %d\n", o.TotalCustomers))
	b.WriteString(fmt.Sprintf("Departments:  %d\n", o.TotalDepartments))

	if len(o.RecentTasks) > 0 {
		b.WriteString("\n")
		b.WriteString(theme.TitleStyle.Render("Recent tasks"))
		b.WriteString("\n")
		for _, t := range o.RecentTasks {
			hours := theme.HoursStyle(t.Hours).Render(fmt.Sprintf("%.1fh", t.Hours))
			b.WriteString(theme.ListItemStyle.Render(
				fmt.Sprintf("%s  %s  %s", t.Date, hours, t.Description)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) viewRows(rows []report.Row) string {
	if len(rows) == 0 {
		return theme.EmptyStyle.Render("No tasks logged yet.")
	}

	var b strings.Builder
	for _, r := range rows {
		bar := percentBar(r.Percent, 20)
		b.WriteString(theme.ListItemStyle.Render(
			fmt.Sprintf("%-30s %6.1fh  %5.1f%%  %s  (%d tasks)",
				truncate(r.Name, 30), r.Hours, r.Percent, bar, r.Tasks)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewTracked() string {
	if len(m.data.tracked) == 0 {
		return theme.EmptyStyle.Render("No time tracked yet.")
	}

	var b strings.Builder
	for _, r := range m.data.tracked {
		h := r.Seconds / 3600
		min := (r.Seconds % 3600) / 60
		sec := r.Seconds % 60
		b.WriteString(theme.ListItemStyle.Render(
			fmt.Sprintf("%02d:%02d:%02d  %s", h, min, sec, truncate(r.Description, 50))))
		b.WriteString("\n")
	}
	return b.String()
}

func percentBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
