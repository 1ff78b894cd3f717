// Package tui provides the Bubble Tea trial interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/memspan/internal/engine"
	"github.com/verte-zerg/memspan/internal/model"
	"github.com/verte-zerg/memspan/internal/stats"
	"github.com/verte-zerg/memspan/internal/store"
)

const historyLimit = 5

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	phaseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	digitStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	countdownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	feedbackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	cardStyle      = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

type engineUpdateMsg struct{}

type tickMsg time.Time

// Model implements the Bubble Tea trial UI.
type Model struct {
	engine *engine.Engine
	store  *store.Store
	snap   engine.Snapshot

	input        textinput.Model
	history      []model.HistoryEntry
	historyTable table.Model
	showHistory  bool

	notice string
	saved  bool

	now     time.Time
	ticking bool

	width  int
	height int
}

// NewModel constructs the trial TUI model.
func NewModel(eng *engine.Engine, st *store.Store) *Model {
	input := textinput.New()
	input.Placeholder = "type the digits"
	input.Prompt = "> "
	input.CharLimit = 32

	m := &Model{
		engine: eng,
		store:  st,
		input:  input,
		now:    time.Now(),
	}
	m.snap = eng.Snapshot()
	m.reloadHistory()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForUpdate(m.engine.Updates())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case engineUpdateMsg:
		return m.handleEngineUpdate()
	case tickMsg:
		m.now = time.Time(msg)
		if m.snap.State == engine.StatePresenting {
			return m, tickCmd()
		}
		m.ticking = false
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleEngineUpdate() (tea.Model, tea.Cmd) {
	m.snap = m.engine.Snapshot()
	m.syncInput()
	if m.snap.Summary != nil && !m.saved {
		m.saved = true
		m.saveSummary()
		m.reloadHistory()
	}
	cmds := []tea.Cmd{waitForUpdate(m.engine.Updates())}
	if m.snap.State == engine.StatePresenting && !m.ticking {
		m.ticking = true
		m.now = time.Now()
		cmds = append(cmds, tickCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.engine.Abort()
		return m, tea.Quit
	}

	if m.showHistory {
		switch msg.String() {
		case "esc", "h", "q":
			m.showHistory = false
			return m, nil
		}
		var cmd tea.Cmd
		m.historyTable, cmd = m.historyTable.Update(msg)
		return m, cmd
	}

	if m.snap.InProgress {
		return m.handleSessionKey(msg)
	}
	return m.handleIdleKey(msg)
}

func (m *Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.engine.Abort()
		return m, nil
	case tea.KeyEnter:
		if m.snap.AwaitingInput {
			m.engine.Submit(m.input.Value())
			m.input.Reset()
		}
		return m, nil
	}
	if !m.snap.AwaitingInput {
		// Input lock: keystrokes are dropped outside the response window.
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleIdleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "enter":
		m.notice = ""
		m.saved = false
		m.engine.Start()
		return m, nil
	case "s":
		m.notice = m.engine.Settings()
		return m, nil
	case "h":
		m.showHistory = true
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch {
	case m.showHistory:
		content = m.viewHistory()
	case m.snap.InProgress:
		content = m.viewSession()
	default:
		content = m.viewIdle()
	}
	footer := footerStyle.Render(m.footerText())
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	bodyHeight := m.height - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) viewSession() string {
	header := phaseStyle.Render(sessionHeader(m.snap))
	switch m.snap.State {
	case engine.StatePresenting:
		countdown := countdownStyle.Render(fmt.Sprintf("%ds", countdownSeconds(m.snap.ExposureDeadline, m.now)))
		return lipgloss.JoinVertical(lipgloss.Center,
			header,
			"",
			digitStyle.Render(m.snap.Display),
			"",
			countdown,
		)
	case engine.StateAwaitingResponse:
		return lipgloss.JoinVertical(lipgloss.Center,
			header,
			"",
			"Enter the sequence:",
			m.input.View(),
		)
	default:
		return lipgloss.JoinVertical(lipgloss.Center,
			header,
			"",
			feedbackStyle.Render(m.snap.Feedback),
		)
	}
}

func (m *Model) viewIdle() string {
	lines := []string{titleStyle.Render("memspan"), ""}
	if m.snap.Summary != nil {
		lines = append(lines, cardStyle.Render(scoreboard(*m.snap.Summary, m.snap.Rounds)), "")
	} else {
		lines = append(lines, "Memorize the digits, then type them back.", "")
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice), "")
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) viewHistory() string {
	if len(m.history) == 0 {
		return lipgloss.JoinVertical(lipgloss.Center,
			titleStyle.Render("Recent Sessions"),
			"",
			"No finished sessions yet.",
		)
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Recent Sessions"),
		"",
		m.historyTable.View(),
	)
}

func (m *Model) footerText() string {
	switch {
	case m.showHistory:
		return "esc close"
	case m.snap.InProgress && m.snap.AwaitingInput:
		return "enter submit  esc abort"
	case m.snap.InProgress:
		return "esc abort"
	default:
		return "enter start  h history  s settings  q quit"
	}
}

func (m *Model) syncInput() {
	if m.snap.AwaitingInput {
		m.input.Focus()
		return
	}
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) saveSummary() {
	ctx := context.Background()
	if _, err := m.store.InsertSession(ctx, *m.snap.Summary, m.snap.Rounds); err != nil {
		logErrf("failed to save session: %v\n", err)
	}
}

func (m *Model) reloadHistory() {
	ctx := context.Background()
	entries, err := m.store.RecentSummaries(ctx, historyLimit)
	if err != nil {
		logErrf("failed to load history: %v\n", err)
		return
	}
	m.history = entries
	m.historyTable = buildHistoryTable(entries)
}

func buildHistoryTable(entries []model.HistoryEntry) table.Model {
	columns := []table.Column{
		{Title: "Finished", Width: 19},
		{Title: "Rounds", Width: 6},
		{Title: "Baseline", Width: 8},
		{Title: "Chunked", Width: 8},
		{Title: "Overall", Width: 8},
	}
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			e.Summary.EndedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%d", e.Summary.Rounds),
			stats.FormatPercent(e.Summary.BaselineAcc),
			stats.FormatPercent(e.Summary.ChunkedAcc),
			stats.FormatPercent(e.Summary.OverallAcc),
		})
	}
	height := len(rows) + 1
	if height < 2 {
		height = 2
	}
	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(height),
	)
}

func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return engineUpdateMsg{}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
