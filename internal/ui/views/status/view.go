package status

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lingobot/internal/modules/tracking/dto"
	"lingobot/internal/platform/timefmt"
	"lingobot/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type StatusPort interface {
	StatusAll(ctx context.Context) ([]dto.StatusOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type LoadedMsg struct {
	Rows []dto.StatusOutput
	Err  error
}

// ─── model ───────────────────────────────────────────────────────────────────

type Model struct {
	port    StatusPort
	bar     progress.Model
	spinner spinner.Model
	rows    []dto.StatusOutput
	err     error
	loading bool
	width   int
	height  int
}

func New(port StatusPort) Model {
	bar := progress.New(progress.WithGradient(string(theme.Sapphire), string(theme.Green)))
	bar.ShowPercentage = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:    port,
		bar:     bar,
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Reload(), m.spinner.Tick)
}

func (m Model) Reload() tea.Cmd {
	return func() tea.Msg {
		if m.port == nil {
			return LoadedMsg{Err: fmt.Errorf("status port not wired")}
		}
		rows, err := m.port.StatusAll(context.Background())
		return LoadedMsg{Rows: rows, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Err == nil {
			rows := msg.Rows
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalSeconds > rows[j].TotalSeconds })
			m.rows = rows
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	barWidth := width - 58
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 40 {
		barWidth = 40
	}
	m.bar.Width = barWidth
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.loading {
		return theme.Muted.Render(m.spinner.View() + " loading status...")
	}
	if m.err != nil {
		return theme.Bad.Render("status unavailable: " + m.err.Error())
	}
	if len(m.rows) == 0 {
		return theme.Muted.Render("no tracked users yet. run `lingobot run` to start practicing.")
	}

	lines := make([]string, 0, len(m.rows))
	for _, row := range m.rows {
		lines = append(lines, m.renderRow(row))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderRow(row dto.StatusOutput) string {
	user := lipgloss.NewStyle().Width(28).Render(truncate(row.UserID, 27))
	bar := m.bar.ViewAs(row.PercentComplete / 100)
	percent := fmt.Sprintf("%5.1f%%", row.PercentComplete)

	hours := fmt.Sprintf("%.1fh/%.0fh", row.TotalHours, row.TargetHours)
	detail := theme.Muted.Render(fmt.Sprintf("%-14s %s  %d sessions", hours, timefmt.Clock(row.TotalSeconds), row.SessionCount))

	badge := theme.Hot.Render(fmt.Sprintf("%.1fh left", row.HoursRemaining))
	if row.Completed {
		badge = theme.Done.Render("done")
		if row.CompletedAt != nil {
			badge = theme.Done.Render("done " + row.CompletedAt.Format("2006-01-02"))
		}
	} else if stale(row.LastUpdatedAt) {
		badge = theme.Bad.Render(fmt.Sprintf("%.1fh left, idle", row.HoursRemaining))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, user, " ", bar, " ", percent, "  ", detail, "  ", badge)
}

func stale(last time.Time) bool {
	return !last.IsZero() && time.Since(last) > 7*24*time.Hour
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
