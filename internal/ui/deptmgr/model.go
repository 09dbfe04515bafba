package deptmgr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/worklog/internal/keys"
	"github.com/nhle/worklog/internal/model"
	"github.com/nhle/worklog/internal/store"
	"github.com/nhle/worklog/internal/theme"
)

// DepartmentListCloseMsg signals the parent to close the department view.
type DepartmentListCloseMsg struct{}

// DepartmentChangedMsg signals that departments were modified
// (created/updated/deleted).
type DepartmentChangedMsg struct{}

type deptMode int

const (
	modeList deptMode = iota
	modeForm
	modeConfirmDelete
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	customerID  string
	name        string
	description string
	confirm     bool
}

type row struct {
	department model.Department
	customer   string
	tasks      int
}

type departmentsLoadedMsg struct {
	rows      []row
	customers []model.Customer
}

type departmentSavedMsg struct{ err error }
type departmentDeletedMsg struct{ err error }

// Model is the Bubble Tea model for department management.
type Model struct {
	mode        deptMode
	stores      *store.Stores
	keys        *keys.KeyMap
	rows        []row
	customers   []model.Customer
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

// New creates a new department manager model.
func New(st *store.Stores, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		stores: st,
		keys:   k,
		fb:     &formBindings{},
		width:  width, height: height,
	}
}

// Init loads departments from the store.
func (m Model) Init() tea.Cmd {
	return m.loadDepartments()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case departmentsLoadedMsg:
		m.rows = msg.rows
		m.customers = msg.customers
		if m.selectedIdx >= len(m.rows) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.rows) - 1
		}
		return m, nil

	case departmentSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Department saved"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadDepartments(), func() tea.Msg { return DepartmentChangedMsg{} })

	case departmentDeletedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Department deleted"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadDepartments(), func() tea.Msg { return DepartmentChangedMsg{} })

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
		return m, func() tea.Msg { return DepartmentListCloseMsg{} }

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
		if len(m.customers) == 0 {
			m.statusMsg = "Create a customer first"
			return m, nil
		}
		m.isNew = true
		m.editingID = ""
		m.fb.customerID = m.customers[0].ID
		m.fb.name = ""
		m.fb.description = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		if len(m.rows) == 0 {
			return m, nil
		}
		d := m.rows[m.selectedIdx].department
		m.isNew = false
		m.editingID = d.ID
		m.fb.customerID = d.CustomerID
		m.fb.name = d.Name
		m.fb.description = d.Description
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
	}
	return m, nil
}

func (m Model) customerOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(m.customers))
	for _, c := range m.customers {
		opts = append(opts, huh.NewOption(c.Name, c.ID))
	}
	return opts
}

func (m Model) buildForm() *huh.Form {
	nameInput := huh.NewInput().
		Title("Name").
		Placeholder("Department name").
		Value(&m.fb.name).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("name is required")
			}
			return nil
		})
	descInput := huh.NewText().
		Title("Description").
		Placeholder("Optional description").
		Value(&m.fb.description)

	// The owning customer is fixed once a department exists; only new
	// departments get the customer selector.
	if m.isNew {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Customer").
					Options(m.customerOptions()...).
					Value(&m.fb.customerID),
				nameInput,
				descInput,
			),
		).WithWidth(m.formWidth()).WithHeight(m.formHeight())
	}

	return huh.NewForm(
		huh.NewGroup(nameInput, descInput),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	name := ""
	if m.selectedIdx < len(m.rows) {
		name = m.rows[m.selectedIdx].department.Name
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete department %q?", name)).
				Description("Departments with tasks cannot be deleted.").
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
		return m, m.saveDepartment()
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
			d := m.rows[m.selectedIdx].department
			return m, m.deleteDepartment(d.ID)
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

func (m Model) loadDepartments() tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		customers := st.Customers.List()
		sort.Slice(customers, func(i, j int) bool {
			return customers[i].Name < customers[j].Name
		})
		names := make(map[string]string, len(customers))
		for _, c := range customers {
			names[c.ID] = c.Name
		}

		departments := st.Departments.List()
		rows := make([]row, 0, len(departments))
		for _, d := range departments {
			rows = append(rows, row{
				department: d,
				customer:   names[d.CustomerID],
				tasks:      len(st.Tasks.ListByDepartment(d.ID)),
			})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].customer != rows[j].customer {
				return rows[i].customer < rows[j].customer
			}
			return rows[i].department.Name < rows[j].department.Name
		})
		return departmentsLoadedMsg{rows: rows, customers: customers}
	}
}

func (m Model) saveDepartment() tea.Cmd {
	st := m.stores
	name := strings.TrimSpace(m.fb.name)
	description := strings.TrimSpace(m.fb.description)
	customerID := m.fb.customerID
	isNew := m.isNew
	id := m.editingID
	return func() tea.Msg {
		var err error
		if isNew {
			_, err = st.CreateDepartment(name, customerID, description)
		} else {
			_, err = st.Departments.Update(id, model.DepartmentPatch{
				Name:        &name,
				Description: &description,
			})
		}
		return departmentSavedMsg{err: err}
	}
}

func (m Model) deleteDepartment(id string) tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		_, err := st.DeleteDepartment(id)
		return departmentDeletedMsg{err: err}
	}
}

// View renders the department manager.
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

	b.WriteString(theme.TitleStyle.Render("Departments"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(theme.EmptyStyle.Render("No departments yet. Press 'n' to create one."))
	} else {
		for i, r := range m.rows {
			label := fmt.Sprintf("%s / %s  (%d tasks)",
				r.customer, r.department.Name, r.tasks)

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
	b.WriteString(theme.HelpStyle.Render("n new | e edit | d delete | esc back"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
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
