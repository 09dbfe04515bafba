package customermgr

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

// CustomerListCloseMsg signals the parent to close the customer view.
type CustomerListCloseMsg struct{}

// CustomerChangedMsg signals that customers were modified
// (created/updated/deleted).
type CustomerChangedMsg struct{}

type customerMode int

const (
	modeList customerMode = iota
	modeForm
	modeConfirmDelete
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name    string
	email   string
	phone   string
	address string
	confirm bool
}

type row struct {
	customer    model.Customer
	departments int
	tasks       int
}

type customersLoadedMsg struct {
	rows []row
}

type customerSavedMsg struct{ err error }
type customerDeletedMsg struct{ err error }

// Model is the Bubble Tea model for customer management.
type Model struct {
	mode        customerMode
	stores      *store.Stores
	keys        *keys.KeyMap
	rows        []row
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

// New creates a new customer manager model.
func New(st *store.Stores, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		stores: st,
		keys:   k,
		fb:     &formBindings{},
		width:  width, height: height,
	}
}

// Init loads customers from the store.
func (m Model) Init() tea.Cmd {
	return m.loadCustomers()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case customersLoadedMsg:
		m.rows = msg.rows
		if m.selectedIdx >= len(m.rows) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.rows) - 1
		}
		return m, nil

	case customerSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Customer saved"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadCustomers(), func() tea.Msg { return CustomerChangedMsg{} })

	case customerDeletedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Customer deleted"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadCustomers(), func() tea.Msg { return CustomerChangedMsg{} })

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
		return m, func() tea.Msg { return CustomerListCloseMsg{} }

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
		m.isNew = true
		m.editingID = ""
		m.fb.name = ""
		m.fb.email = ""
		m.fb.phone = ""
		m.fb.address = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		if len(m.rows) == 0 {
			return m, nil
		}
		c := m.rows[m.selectedIdx].customer
		m.isNew = false
		m.editingID = c.ID
		m.fb.name = c.Name
		m.fb.email = c.Email
		m.fb.phone = c.Phone
		m.fb.address = c.Address
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

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Customer name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Email").
				Placeholder("billing@example.com").
				Value(&m.fb.email),
			huh.NewInput().
				Title("Phone").
				Placeholder("Optional").
				Value(&m.fb.phone),
			huh.NewInput().
				Title("Address").
				Placeholder("Optional").
				Value(&m.fb.address),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	name := ""
	if m.selectedIdx < len(m.rows) {
		name = m.rows[m.selectedIdx].customer.Name
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete customer %q?", name)).
				Description("Customers with departments or tasks cannot be deleted.").
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
		return m, m.saveCustomer()
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
			c := m.rows[m.selectedIdx].customer
			return m, m.deleteCustomer(c.ID)
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

func (m Model) loadCustomers() tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		customers := st.Customers.List()
		sort.Slice(customers, func(i, j int) bool {
			return customers[i].Name < customers[j].Name
		})
		rows := make([]row, 0, len(customers))
		for _, c := range customers {
			rows = append(rows, row{
				customer:    c,
				departments: len(st.Departments.ListByCustomer(c.ID)),
				tasks:       len(st.Tasks.ListByCustomer(c.ID)),
			})
		}
		return customersLoadedMsg{rows: rows}
	}
}

func (m Model) saveCustomer() tea.Cmd {
	st := m.stores
	name := strings.TrimSpace(m.fb.name)
	email := strings.TrimSpace(m.fb.email)
	phone := strings.TrimSpace(m.fb.phone)
	address := strings.TrimSpace(m.fb.address)
	isNew := m.isNew
	id := m.editingID
	return func() tea.Msg {
		var err error
		if isNew {
			_, err = st.Customers.Create(name, email, phone, address)
		} else {
			_, err = st.Customers.Update(id, model.CustomerPatch{
				Name:    &name,
				Email:   &email,
				Phone:   &phone,
				Address: &address,
			})
		}
		return customerSavedMsg{err: err}
	}
}

func (m Model) deleteCustomer(id string) tea.Cmd {
	st := m.stores
	return func() tea.Msg {
		_, err := st.DeleteCustomer(id)
		return customerDeletedMsg{err: err}
	}
}

// View renders the customer manager.
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

	b.WriteString(theme.TitleStyle.Render("Customers"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(theme.EmptyStyle.Render("No customers yet. Press 'n' to create one."))
	} else {
		for i, r := range m.rows {
			label := fmt.Sprintf("%s  (%d departments, %d tasks)",
				r.customer.Name, r.departments, r.tasks)

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
