package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/worklog/internal/keys"
	"github.com/nhle/worklog/internal/store"
	"github.com/nhle/worklog/internal/theme"
	"github.com/nhle/worklog/internal/ui"
	"github.com/nhle/worklog/internal/ui/customermgr"
	"github.com/nhle/worklog/internal/ui/deptmgr"
	helpview "github.com/nhle/worklog/internal/ui/help"
	"github.com/nhle/worklog/internal/ui/reports"
	"github.com/nhle/worklog/internal/ui/taskmgr"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewMenu ViewState = iota
	ViewTasks
	ViewCustomers
	ViewDepartments
	ViewReports
	ViewHelp
)

// tickMsg drives the live elapsed display in the header while a timer
// is running.
type tickMsg time.Time

type menuEntry struct {
	label string
	view  ViewState
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and access to the persistence layer.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	stores       *store.Stores
	keys         *keys.KeyMap
	menu         []menuEntry
	menuIdx      int
	taskView     taskmgr.Model
	customerView customermgr.Model
	deptView     deptmgr.Model
	reportsView  reports.Model
	helpView     helpview.Model
	ready        bool
}

// New creates a new root application model with the given stores.
func New(st *store.Stores) Model {
	k := keys.DefaultKeyMap()

	return Model{
		currentView: ViewMenu,
		stores:      st,
		keys:        k,
		menu: []menuEntry{
			{label: "Tasks", view: ViewTasks},
			{label: "Customers", view: ViewCustomers},
			{label: "Departments", view: ViewDepartments},
			{label: "Reports", view: ViewReports},
		},
		taskView:     taskmgr.New(st, k, 80, 24),
		customerView: customermgr.New(st, k, 80, 24),
		deptView:     deptmgr.New(st, k, 80, 24),
		reportsView:  reports.New(st, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
	}
}

// Init starts the header tick.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.taskView.SetSize(contentWidth, contentHeight)
		m.customerView.SetSize(contentWidth, contentHeight)
		m.deptView.SetSize(contentWidth, contentHeight)
		m.reportsView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tickMsg:
		// Only the header badge depends on wall time; re-arm and repaint.
		return m, m.tick()

	case taskmgr.TaskListCloseMsg, customermgr.CustomerListCloseMsg,
		deptmgr.DepartmentListCloseMsg, reports.ReportsCloseMsg:
		m.currentView = ViewMenu
		return m, nil

	case taskmgr.TimerChangedMsg:
		return m, nil

	case taskmgr.TaskChangedMsg, customermgr.CustomerChangedMsg,
		deptmgr.DepartmentChangedMsg:
		// Reports and task rows are rebuilt lazily when those views open.
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys that work regardless of view.
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.currentView {
	case ViewMenu:
		return m.handleMenuKey(msg)

	case ViewHelp:
		if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Help) {
			m.currentView = m.previousView
			return m, nil
		}
		return m, nil

	default:
		// Subviews own their keys so form inputs see every character.
		// Help opens from the menu, where no text field can swallow '?'.
		return m.updateActiveView(msg)
	}
}

func (m Model) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Back):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.menuIdx = (m.menuIdx + 1) % len(m.menu)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.menuIdx--
		if m.menuIdx < 0 {
			m.menuIdx = len(m.menu) - 1
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		return m.openView(m.menu[m.menuIdx].view)

	case key.Matches(msg, m.keys.StopTimer):
		// Stopping the timer works from the menu too.
		st := m.stores
		return m, func() tea.Msg {
			st.Entries.Stop()
			return taskmgr.TimerChangedMsg{}
		}
	}
	return m, nil
}

func (m Model) openView(v ViewState) (tea.Model, tea.Cmd) {
	m.currentView = v
	switch v {
	case ViewTasks:
		return m, m.taskView.Init()
	case ViewCustomers:
		return m, m.customerView.Init()
	case ViewDepartments:
		return m, m.deptView.Init()
	case ViewReports:
		return m, m.reportsView.Init()
	}
	return m, nil
}

func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewTasks:
		m.taskView, cmd = m.taskView.Update(msg)
	case ViewCustomers:
		m.customerView, cmd = m.customerView.Update(msg)
	case ViewDepartments:
		m.deptView, cmd = m.deptView.Update(msg)
	case ViewReports:
		m.reportsView, cmd = m.reportsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}
	return m, cmd
}

// View renders the header, the active view, and the status bar.
func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}

	header := m.layout.RenderHeader("worklog", m.timerBadge())

	var content string
	switch m.currentView {
	case ViewTasks:
		content = m.taskView.View()
	case ViewCustomers:
		content = m.customerView.View()
	case ViewDepartments:
		content = m.deptView.View()
	case ViewReports:
		content = m.reportsView.View()
	case ViewHelp:
		content = m.helpView.View()
	default:
		content = m.viewMenu()
	}

	content = lipgloss.NewStyle().
		Width(m.layout.ContentWidth()).
		Height(m.layout.ContentHeight()).
		Render(content)

	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (m Model) viewMenu() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("worklog"))
	b.WriteString("\n\n")

	for i, entry := range m.menu {
		if i == m.menuIdx {
			b.WriteString(theme.SelectedItemStyle.Render(entry.label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(entry.label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("enter open | j/k move | x stop timer | q quit"))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// timerBadge renders the running-timer indicator for the header.
func (m Model) timerBadge() string {
	entry, ok := m.stores.Entries.Active()
	if !ok {
		return theme.TimerStyle(false).Render("timer idle")
	}

	elapsed := int64(time.Since(entry.StartTime).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	label := fmt.Sprintf("● %02d:%02d:%02d", elapsed/3600, (elapsed%3600)/60, elapsed%60)

	if task, ok := m.stores.Tasks.Get(entry.TaskID); ok {
		desc := task.Description
		if runes := []rune(desc); len(runes) > 24 {
			desc = string(runes[:23]) + "…"
		}
		label += " " + desc
	}
	return theme.TimerStyle(true).Render(label)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewTasks:
		return "n new | e edit | d delete | s start timer | x stop | esc back"
	case ViewCustomers, ViewDepartments:
		return "n new | e edit | d delete | esc back"
	case ViewReports:
		return "tab next report | esc back"
	default:
		return "enter open | j/k move | ? help | q quit"
	}
}
