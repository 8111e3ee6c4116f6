// ABOUTME: Lead detail and note entry views for the TUI
// ABOUTME: Shows a lead's fields and history and appends notes to it
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/models"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) selectedLead() (models.Lead, bool) {
	board := m.sess.Board()
	stage, idx, ok := board.Find(m.selectedID)
	if !ok {
		return models.Lead{}, false
	}
	return board.List(stage)[idx], true
}

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("LEAD"))
	s.WriteString("\n\n")

	lead, ok := m.selectedLead()
	if !ok {
		s.WriteString("Lead no longer on the board\n")
	} else {
		s.WriteString(m.renderLeadDetail(lead))
	}

	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderLeadDetail(lead models.Lead) string {
	var s strings.Builder

	s.WriteString(m.renderField("Name", lead.Name))
	s.WriteString(m.renderField("Company", lead.Company))
	s.WriteString(m.renderField("Email", lead.Email))
	s.WriteString(m.renderField("Phone", lead.Phone))
	s.WriteString(m.renderField("Stage", lead.Stage.Label()))
	s.WriteString(m.renderField("Priority", string(lead.Priority)))
	s.WriteString(m.renderField("Value", export.FormatCents(lead.DealValue)))
	s.WriteString(m.renderField("Probability", fmt.Sprintf("%d%%", lead.Probability)))
	s.WriteString(m.renderField("Tags", strings.Join(lead.Tags, ", ")))
	if !lead.LastActivityDate.IsZero() {
		s.WriteString(m.renderField("Last Activity", fmt.Sprintf("%s (%s)", lead.LastActivity, lead.LastActivityDate.Format("2006-01-02"))))
	}

	if len(lead.Activities) > 0 {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Bold(true).Render("ACTIVITIES"))
		s.WriteString("\n")
		for _, a := range lead.Activities {
			s.WriteString(fmt.Sprintf("  • %s %s: %s\n", a.CreatedAt.Format("2006-01-02"), a.Type.Label(), a.Body))
		}
	}

	if len(lead.Notes) > 0 {
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Bold(true).Render("NOTES"))
		s.WriteString("\n")
		for _, n := range lead.Notes {
			s.WriteString(fmt.Sprintf("  • %s %s\n", n.CreatedAt.Format("2006-01-02"), n.Body))
		}
	}

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		return ""
	}
	return fieldLabelStyle.Render(label+":") + " " + fieldValueStyle.Render(value) + "\n"
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"n: Add note",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewMain
		m.selectedID = ""
	case "n":
		if m.entries == nil {
			return m, nil
		}
		m.viewMode = ViewNote
		m.noteInput.SetValue("")
		m.noteInput.Focus()
	}

	return m, nil
}

func (m Model) renderNoteView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("ADD NOTE"))
	s.WriteString("\n\n")
	s.WriteString("> ")
	s.WriteString(m.noteInput.View())
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Enter: Save • Esc: Cancel"))

	return s.String()
}

func (m Model) handleNoteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.noteInput.Blur()
		m.viewMode = ViewDetail
		return m, nil
	case "enter":
		body := strings.TrimSpace(m.noteInput.Value())
		m.noteInput.Blur()
		m.viewMode = ViewDetail
		if body == "" {
			return m, nil
		}
		if _, err := m.entries.AddLeadEntry(m.ctx, m.selectedID, models.Entry{Kind: models.EntryNote, Body: body}); err != nil {
			m.fail(err)
			return m, nil
		}
		m.status = "Note added"
		return m, nil
	}

	var cmd tea.Cmd
	m.noteInput, cmd = m.noteInput.Update(msg)
	return m, cmd
}
