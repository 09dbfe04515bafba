package taskmgr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/worklog/internal/keys"
	"github.com/nhle/worklog/internal/model"
	"github.com/nhle/worklog/internal/report"
	"github.com/nhle/worklog/internal/store"
	"github.com/nhle/worklog/internal/theme"
)

// TaskListCloseMsg signals the parent to close the task view.
type TaskListCloseMsg struct{}

// TaskChangedMsg signals that tasks were modified (created/updated/deleted).
type TaskChangedMsg struct{}

// TimerChangedMsg signals that the timer was started or stopped, so the
// parent can refresh the header badge.
type TimerChangedMsg struct{}

type taskMode int

const (
	modeList taskMode = iota
	modeForm
	modeConfirmDelete
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	departmentID string
	date         string
	hours        string
	description  string
	confirm      bool
}

type deptOption struct {
	department model.Department
	label      string
}

type row struct {
	task       model.Task
	customer   string
	department string
	trackedSec int64
}

type tasksLoadedMsg struct {
	rows        []row
	departments []deptOption
	activeTask  string
}

type taskSavedMsg struct{ err error }
type taskDeletedMsg struct{ err error }
type timerToggledMsg struct{ err error }

// Model is the Bubble Tea model for the task list and task forms.
type Model struct {
	mode        taskMode
	stores      *store.Stores
	keys        *keys.KeyMap
	rows        []row
	departments []deptOption
	activeTask  string
	selectedIdx int
	editingID   string
	isNew       bool
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates a new task manager model.
func New(st *store.Stores, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		stores: st,
		keys:   k,
		fb:     &formBindings{},
		width:  width, height: height,
	}
}

// Init loads tasks from the store.
func (m Model) Init() tea.Cmd {
	return m.loadTasks()
}

// Refresh reloads the task rows, keeping the current selection.
func (m Model) Refresh() tea.Cmd {
	return m.loadTasks()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksLoadedMsg:
		m.rows = msg.rows
		m.departments = msg.departments
		m.activeTask = msg.activeTask
		if m.selectedIdx >= len(m.rows) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.rows) - 1
		}
		return m, nil

	case taskSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Task saved"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadTasks(), func() tea.Msg { return TaskChangedMsg{} })

	case taskDeletedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Task deleted"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadTasks(), func() tea.Msg { return TaskChangedMsg{} })

	case timerToggledMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		}
		return m, tea.Batch(m.loadTasks(), func() tea.Msg { return TimerChangedMsg{} })

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeList:
		return m.handleListKey(msg)
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return TaskListCloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.rows) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.rows)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.rows) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.rows) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		if len(m.departments) == 0 {
			m.statusMsg = "Create a customer and department first"
			return m, nil
		}
		m.isNew = true
		m.editingID = ""
		m.fb.departmentID = m.departments[0].department.ID
		m.fb.date = ""
		m.fb.hours = "1"
		m.fb.description = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		if len(m.rows) == 0 {
			return m, nil
		}
		t := m.rows[m.selectedIdx].task
		m.isNew = false
		m.editingID = t.ID
		m.fb.departmentID = t.DepartmentID
		m.fb.date = t.Date
		m.fb.hours = strconv.FormatFloat(t.Hours, 'f', -1, 64)
		m.fb.description = t.Description
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if len(m.rows) == 0 {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()

	case key.Matches(msg, m.keys.StartTimer):
		if len(m.rows) == 0 {
			return m, nil
		}
		return m, m.startTimer(m.rows[m.selectedIdx].task.ID)

	case key.Matches(msg, m.keys.StopTimer):
		return m, m.stopTimer()
	}
	return m, nil
}

func (m Model) departmentOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(m.departments))
	for _, d := range m.departments {
		opts = append(opts, huh.NewOption(d.label, d.department.ID))
	}
	return opts
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Department").
				Options(m.departmentOptions()...).
				Value(&m.fb.departmentID),
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD (today if empty)").
				Value(&m.fb.date).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					if _, err := model.ParseDate(strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("date must be YYYY-MM-DD")
					}
					return nil
				}),
			huh.NewInput().
				Title("Hours").
				Placeholder("1.5").
				Value(&m.fb.hours).
				Validate(func(s string) error {
					v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
					if err != nil || v <= 0 {
						return fmt.Errorf("hours must be a positive number")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Placeholder("What was the work?").
				Value(&m.fb.description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("description is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	desc := ""
	if m.selectedIdx < len(m.rows) {
		desc = m.rows[m.selectedIdx].task.Description
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete task %q?", desc)).
				Description("Time entries tracked against it are removed too.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		return m, m.saveTask()
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		if m.fb.confirm {
			t := m.rows[m.selectedIdx].task
			return m, m.deleteTask(t.ID)
		}
		m.mode = modeList
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) loadTasks() tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		customerNames := make(map[string]string)
		for _, c := range st.Customers.List() {
			customerNames[c.ID] = c.Name
		}

		departments := st.Departments.List()
		deptNames := make(map[string]string, len(departments))
		opts := make([]deptOption, 0, len(departments))
		for _, d := range departments {
			deptNames[d.ID] = d.Name
			opts = append(opts, deptOption{
				department: d,
				label:      fmt.Sprintf("%s / %s", customerNames[d.CustomerID], d.Name),
			})
		}
		sort.Slice(opts, func(i, j int) bool { return opts[i].label < opts[j].label })

		tasks := st.Tasks.List()
		report.SortByDateDesc(tasks)
		rows := make([]row, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, row{
				task:       t,
				customer:   customerNames[t.CustomerID],
				department: deptNames[t.DepartmentID],
				trackedSec: st.Entries.ElapsedSeconds(t.ID),
			})
		}

		activeTask := ""
		if e, ok := st.Entries.Active(); ok {
			activeTask = e.TaskID
		}
		return tasksLoadedMsg{rows: rows, departments: opts, activeTask: activeTask}
	}
}

func (m Model) saveTask() tea.Cmd {
	st := m.stores
	departmentID := m.fb.departmentID
	date := strings.TrimSpace(m.fb.date)
	if date == "" {
		date = time.Now().UTC().Format(model.DateFormat)
	}
	hours, _ := strconv.ParseFloat(strings.TrimSpace(m.fb.hours), 64)
	description := strings.TrimSpace(m.fb.description)
	isNew := m.isNew
	id := m.editingID

	customerID := ""
	for _, d := range m.departments {
		if d.department.ID == departmentID {
			customerID = d.department.CustomerID
			break
		}
	}

	return func() tea.Msg {
		var err error
		if isNew {
			_, err = st.CreateTask(customerID, departmentID, date, hours, description)
		} else {
			patch := model.TaskPatch{
				Date:        &date,
				Hours:       &hours,
				Description: &description,
			}
			if customerID != "" {
				patch.CustomerID = &customerID
				patch.DepartmentID = &departmentID
			}
			_, err = st.Tasks.Update(id, patch)
		}
		return taskSavedMsg{err: err}
	}
}

func (m Model) deleteTask(id string) tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		_, err := st.DeleteTask(id)
		return taskDeletedMsg{err: err}
	}
}

func (m Model) startTimer(taskID string) tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		_, err := st.StartTimer(taskID, "")
		return timerToggledMsg{err: err}
	}
}

func (m Model) stopTimer() tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		_, err := st.Entries.Stop()
		return timerToggledMsg{err: err}
	}
}

// View renders the task manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Tasks"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(theme.EmptyStyle.Render("No tasks yet. Press 'n' to log one."))
	} else {
		visible := m.visibleRows()
		for i, r := range m.rows {
			if i >= visible {
				b.WriteString(theme.HelpStyle.Render(fmt.Sprintf("  … %d more", len(m.rows)-visible)))
				b.WriteString("\n")
				break
			}

			marker := " "
			if r.task.ID == m.activeTask {
				marker = "●"
			}
			hours := theme.HoursStyle(r.task.Hours).Render(fmt.Sprintf("%.1fh", r.task.Hours))
			label := fmt.Sprintf("%s %s  %s / %s  %s  %s",
				marker, r.task.Date, r.customer, r.department, hours, r.task.Description)
			if r.trackedSec > 0 {
				label += theme.HelpStyle.Render(fmt.Sprintf("  [%s tracked]", formatDuration(r.trackedSec)))
			}

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.StatusMsgStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render(
		"n new | e edit | d delete | s start timer | x stop timer | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

func (m Model) visibleRows() int {
	n := m.height - 8
	if n < 5 {
		n = 5
	}
	return n
}

func formatDuration(seconds int64) string {
	h := seconds / 3600
	min := (seconds % 3600) / 60
	sec := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, min, sec)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}
