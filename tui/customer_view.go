// ABOUTME: Customer directory view for the TUI
// ABOUTME: Filterable table with multi-select and bulk activate, deactivate and delete
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/pipeboard/bulk"
)

func (m Model) renderCustomerView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPEBOARD"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.searching || m.searchInput.Value() != "" {
		s.WriteString(m.searchInput.View())
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderCustomerTable())
	s.WriteString("\n")
	if n := len(m.sess.Selected()); n > 0 {
		s.WriteString(fmt.Sprintf("%d selected\n", n))
	}
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderCustomerHelp())

	return s.String()
}

func (m Model) renderCustomerTable() string {
	visible := m.sess.VisibleCustomers()
	if len(visible) == 0 {
		return "No customers match"
	}

	selected := make(map[string]bool)
	for _, id := range m.sess.Selected() {
		selected[id] = true
	}

	columns := []table.Column{
		{Title: " ", Width: 3},
		{Title: "Company", Width: 28},
		{Title: "Contact", Width: 20},
		{Title: "Industry", Width: 14},
		{Title: "Status", Width: 10},
		{Title: "Score", Width: 6},
		{Title: "Tags", Width: 18},
	}

	var rows []table.Row
	for _, c := range visible {
		mark := "[ ]"
		if selected[c.ID] {
			mark = "[x]"
		}
		rows = append(rows, table.Row{
			mark,
			c.Company,
			c.ContactName,
			c.Industry,
			string(c.Status),
			strconv.Itoa(c.RelationshipScore),
			strings.Join(c.Tags, ","),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 5)),
	)

	if m.custRow < len(rows) {
		t.SetCursor(m.custRow)
	}

	return t.View()
}

func (m Model) renderCustomerHelp() string {
	help := []string{
		"j/k: Navigate",
		"Space: Select",
		"a: Select all",
		"x: Clear",
		"A/D: Activate/Deactivate",
		"d: Delete",
		"/: Search",
		"Tab: Board",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleCustomerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	visible := m.sess.VisibleCustomers()
	if m.busy != "" {
		switch msg.String() {
		case " ", "a", "x", "A", "D", "d":
			m.status = fmt.Sprintf("Still working on %s…", m.busy)
			return m, nil
		}
	}
	switch msg.String() {
	case "up", "k":
		if m.custRow > 0 {
			m.custRow--
		}
	case "down", "j":
		if m.custRow < len(visible)-1 {
			m.custRow++
		}
	case " ":
		if m.custRow < len(visible) {
			if _, err := m.sess.Toggle(visible[m.custRow].ID); err != nil {
				m.fail(err)
			}
		}
	case "a":
		m.sess.SelectAllVisible()
	case "x":
		m.sess.ClearSelection()
	case "A":
		cmd := m.runBulk(string(bulk.KindActivate), false)
		return m, cmd
	case "D":
		cmd := m.runBulk(string(bulk.KindDeactivate), false)
		return m, cmd
	case "d":
		if len(m.sess.Selected()) == 0 {
			m.status = "Select customers first"
			return m, nil
		}
		m.viewMode = ViewConfirmDelete
	case "/":
		m.searching = true
		m.searchInput.Focus()
		return m, nil
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.applySearch()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applySearch()
	return m, cmd
}

// applySearch narrows the visible list. The session drops the selection if the
// visible set changes.
func (m *Model) applySearch() {
	filter, key, dir := m.sess.CustomerFilter()
	filter.Search = m.searchInput.Value()
	visible := m.sess.SetCustomerFilter(filter, key, dir)
	m.custRow = min(m.custRow, max(len(visible)-1, 0))
}

// bulkDoneMsg carries a finished bulk action back to Update.
type bulkDoneMsg struct {
	action string
	res    bulk.Result
	err    error
}

// runBulk starts action in the background. The customer selection is
// suspended until bulkDoneMsg arrives; the board and navigation stay live.
func (m *Model) runBulk(action string, confirmed bool) tea.Cmd {
	if len(m.sess.Selected()) == 0 {
		m.status = "Select customers first"
		return nil
	}
	m.busy = action
	m.status = fmt.Sprintf("Working on %s…", action)

	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		res, err := sess.Bulk(ctx, action, confirmed)
		return bulkDoneMsg{action: action, res: res, err: err}
	}
}

func (m Model) handleBulkDone(msg bulkDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	m.status = bulkSummary(msg.res)
	m.custRow = min(m.custRow, max(len(m.sess.VisibleCustomers())-1, 0))
	return m, nil
}

func bulkSummary(res bulk.Result) string {
	var msg string
	switch {
	case len(res.Deleted) > 0:
		msg = fmt.Sprintf("Deleted %d customer(s)", len(res.Deleted))
	default:
		msg = fmt.Sprintf("%s applied to %d customer(s)", res.Action, len(res.Updated))
	}
	if res.Partial() {
		msg += fmt.Sprintf(", %d skipped", len(res.Failures))
	}
	return msg
}

// selectedCompanies names the selection for the delete modal.
func (m Model) selectedCompanies() []string {
	ids := make(map[string]bool)
	for _, id := range m.sess.Selected() {
		ids[id] = true
	}
	var names []string
	for _, c := range m.sess.Customers() {
		if ids[c.ID] {
			names = append(names, c.Company)
		}
	}
	return names
}
