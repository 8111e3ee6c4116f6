// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Kanban board and customer directory driven by one view session
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/pipeboard/models"
	"github.com/harperreed/pipeboard/view"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewMain ViewMode = iota
	ViewDetail
	ViewNote
	ViewDashboard
	ViewConfirmDelete
)

// Tab selects which collection the main view shows
type Tab int

const (
	TabBoard Tab = iota
	TabCustomers
)

// EntryWriter appends notes to a lead. *db.Store satisfies it.
type EntryWriter interface {
	AddLeadEntry(ctx context.Context, leadID string, entry models.Entry) (*models.Lead, error)
}

// Model is the main bubbletea model
type Model struct {
	ctx      context.Context
	sess     *view.Session
	entries  EntryWriter
	viewMode ViewMode
	tab      Tab

	// Board cursor
	col int
	row int

	// Lead shown in the detail and note views
	selectedID string
	noteInput  textinput.Model

	// Customer directory state
	custRow     int
	searchInput textinput.Model
	searching   bool

	// Status line, last toast or error
	status string
	// Bulk action running in the background, if any
	busy string

	// UI state
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model over a mounted session. The caller closes the session.
func NewModel(ctx context.Context, sess *view.Session, entries EntryWriter) Model {
	search := textinput.New()
	search.Placeholder = "search company, contact or email"
	search.CharLimit = 100

	note := textinput.New()
	note.Placeholder = "note"
	note.CharLimit = 500

	return Model{
		ctx:         ctx,
		sess:        sess,
		entries:     entries,
		viewMode:    ViewMain,
		tab:         TabBoard,
		searchInput: search,
		noteInput:   note,
		width:       120,
		height:      30,
	}
}

// Run starts the program full-screen and blocks until the user quits.
func Run(ctx context.Context, sess *view.Session, entries EntryWriter) error {
	_, err := tea.NewProgram(NewModel(ctx, sess, entries), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case bulkDoneMsg:
		return m.handleBulkDone(msg)
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewMain:
		if m.tab == TabCustomers {
			return m.renderCustomerView()
		}
		return m.renderBoardView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewNote:
		return m.renderNoteView()
	case ViewDashboard:
		return m.renderDashboardView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// text inputs own every key but esc/enter while focused
	typing := m.viewMode == ViewNote || (m.viewMode == ViewMain && m.searching)
	if msg.String() == "ctrl+c" || (!typing && msg.String() == "q") {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewMain:
		if !m.searching && msg.String() == "tab" {
			m.tab = (m.tab + 1) % 2
			m.status = ""
			return m, nil
		}
		if !m.searching && msg.String() == "v" {
			m.viewMode = ViewDashboard
			return m, nil
		}
		if m.tab == TabCustomers {
			return m.handleCustomerKeys(msg)
		}
		return m.handleBoardKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewNote:
		return m.handleNoteKeys(msg)
	case ViewDashboard:
		return m.handleDashboardKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

func (m *Model) fail(err error) {
	m.err = err
	m.status = "Error: " + err.Error()
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

func (m Model) renderTabs() string {
	tabs := []string{"Board", "Customers"}
	var rendered []string

	for i, tab := range tabs {
		if Tab(i) == m.tab {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	return statusStyle.Render(m.status) + "\n"
}
