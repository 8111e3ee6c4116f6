// ABOUTME: Kanban board view for the TUI
// ABOUTME: Renders stage columns with live aggregates and moves cards with the keyboard
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/pipeboard/export"
	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/pipeline"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("170"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	cursorCardStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))
)

func (m Model) renderBoardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPEBOARD"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")
	s.WriteString(m.renderBoard())
	s.WriteString("\n")
	s.WriteString(m.renderStatus())
	s.WriteString(m.renderBoardHelp())

	return s.String()
}

func (m Model) renderBoard() string {
	board := m.sess.Board()
	stages := board.Stages()
	width := max(m.width/len(stages)-4, 16)

	var columns []string
	for i, stage := range stages {
		agg := board.Aggregate(stage)

		var col strings.Builder
		col.WriteString(columnHeaderStyle.Render(fmt.Sprintf("%s (%d)", stage.Label(), agg.Count)))
		col.WriteString("\n")
		col.WriteString(fmt.Sprintf("%s · %.0f%%\n\n", export.FormatCents(agg.TotalValue), agg.AverageProbability))

		for j, lead := range board.List(stage) {
			card := truncate(lead.Name, width-2)
			if lead.DealValue > 0 {
				card += "\n  " + export.FormatCents(lead.DealValue)
			}
			if i == m.col && j == m.row {
				col.WriteString(cursorCardStyle.Render(card))
			} else {
				col.WriteString(cardStyle.Render(card))
			}
			col.WriteString("\n")
		}

		style := columnStyle
		if i == m.col {
			style = activeColumnStyle
		}
		columns = append(columns, style.Width(width).Render(col.String()))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func (m Model) renderBoardHelp() string {
	help := []string{
		"h/l: Column",
		"j/k: Card",
		"H/L: Move stage",
		"K/J: Reorder",
		"Enter: Details",
		"Tab: Customers",
		"v: Dashboard",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	board := m.sess.Board()
	stages := board.Stages()
	m.clampCursor(board)

	switch msg.String() {
	case "left", "h":
		if m.col > 0 {
			m.col--
		}
	case "right", "l":
		if m.col < len(stages)-1 {
			m.col++
		}
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		m.row++
	case "H":
		if m.col > 0 {
			m.moveCard(board, stages[m.col-1], 0)
		}
	case "L":
		if m.col < len(stages)-1 {
			m.moveCard(board, stages[m.col+1], 0)
		}
	case "K":
		if m.row > 0 {
			m.moveCard(board, stages[m.col], m.row-1)
		}
	case "J":
		m.moveCard(board, stages[m.col], m.row+1)
	case "enter":
		if lead, ok := m.cursorLead(board); ok {
			m.selectedID = lead.ID
			m.viewMode = ViewDetail
		}
	}

	m.clampCursor(m.sess.Board())
	return m, nil
}

// moveCard drags the card under the cursor and keeps the cursor on it. A failed
// move leaves the board as the session reverted it.
func (m *Model) moveCard(board *pipeline.Board, dst models.Stage, dstIndex int) {
	src := board.Stages()[m.col]
	if m.row >= board.Len(src) {
		return
	}
	if src == dst && dstIndex >= board.Len(src) {
		return
	}

	res, err := m.sess.Move(m.ctx, src, m.row, dst, dstIndex)
	if err != nil {
		m.fail(err)
		return
	}
	if !res.Moved {
		return
	}
	for i, st := range board.Stages() {
		if st == res.To {
			m.col = i
		}
	}
	m.row = res.Index
	lead := m.sess.Board().List(res.To)[res.Index]
	m.status = fmt.Sprintf("Moved %s to %s", lead.Name, res.To.Label())
}

func (m Model) cursorLead(board *pipeline.Board) (models.Lead, bool) {
	stages := board.Stages()
	if m.col >= len(stages) {
		return models.Lead{}, false
	}
	list := board.List(stages[m.col])
	if m.row >= len(list) {
		return models.Lead{}, false
	}
	return list[m.row], true
}

func (m *Model) clampCursor(board *pipeline.Board) {
	stages := board.Stages()
	m.col = min(max(m.col, 0), len(stages)-1)
	n := board.Len(stages[m.col])
	m.row = min(m.row, n-1)
	m.row = max(m.row, 0)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
