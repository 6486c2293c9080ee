package app

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lingobot/internal/ui/theme"
	statusview "lingobot/internal/ui/views/status"
)

const refreshInterval = 2 * time.Second

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Refresh},
		{k.Help, k.Quit},
	}
}

// ─── messages ────────────────────────────────────────────────────────────────

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model of the live status dashboard. It owns
// the refresh cadence and the help overlay; rendering the status board is
// delegated to the status view.
type Model struct {
	statusView statusview.Model
	keys       keyMap
	help       help.Model
	showHelp   bool
	width      int
	height     int
}

func NewModel(status statusview.StatusPort) Model {
	return Model{
		statusView: statusview.New(status),
		keys:       defaultKeys(),
		help:       help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.statusView.Init(), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.statusView.SetSize(msg.Width-6, msg.Height-6)
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.statusView.Reload(), tick())
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.statusView.Reload()
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.statusView, cmd = m.statusView.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	title := theme.Title.Render("lingobot") + theme.Muted.Render("  hours board")
	body := theme.Pane.Width(max(m.width-6, 20)).Render(m.statusView.View())

	var footer string
	if m.showHelp {
		footer = m.help.FullHelpView(m.keys.FullHelp())
	} else {
		footer = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	return theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, title, body, footer))
}
