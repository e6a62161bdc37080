package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Config
const (
	defaultDaemonURL = "http://localhost:8090"
	pollRate         = time.Second
	maxEvents        = 20
	maxRounds        = 15
	viewportHeight   = 20
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Layout styles
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	// Event styles
	eventTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(12)
	eventRoundStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")) // Purple

	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // Red
	solvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // Green
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))  // Blue
)

// API Types (mirrored from pkg/store and pkg/api to avoid CGO deps)

type Event struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	TsEvent   time.Time       `json:"ts_event"`
	RoundID   string          `json:"round_id"`
	Payload   json.RawMessage `json:"payload"`
}

type RoundSummary struct {
	RoundID    string    `json:"round_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	Seats      int       `json:"seats"`
	Candidates int       `json:"candidates"`
	Voters     int       `json:"voters"`
}

type tickMsg time.Time

type dataMsg struct {
	events []Event
	rounds []RoundSummary
	err    error
}

type model struct {
	spinner  spinner.Model
	viewport viewport.Model
	events   []Event
	rounds   []RoundSummary
	err      error
	ready    bool
}

func initialModel() model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	vp := viewport.New(100, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	return model{
		spinner: s,
		events:  []Event{},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(),
		tick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// Pass key messages to viewport
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(), tick())

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.events = msg.events
			m.rounds = msg.rounds
			m.updateViewportContent()
		}

		if !m.ready {
			m.ready = true
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.viewport.Style = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				PaddingRight(2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewportContent() {
	var sb strings.Builder

	for _, e := range m.events {
		ts := e.TsEvent.Format("15:04:05")

		// Colorize based on event type
		var typeStr string
		switch {
		case strings.Contains(e.EventType, "failed"):
			typeStr = failedStyle.Render(e.EventType)
		case strings.Contains(e.EventType, "completed") || strings.Contains(e.EventType, "applied"):
			typeStr = solvedStyle.Render(e.EventType)
		default:
			typeStr = infoStyle.Render(e.EventType)
		}

		line := fmt.Sprintf("%s %s %s\n",
			eventTimeStyle.Render(ts),
			typeStr,
			eventRoundStyle.Render(fmt.Sprintf("Round: %s", e.RoundID)),
		)
		sb.WriteString(line)
	}

	m.viewport.SetContent(sb.String())
}

func renderStatus(status string) string {
	switch status {
	case "solved":
		return solvedStyle.Render(status)
	case "failed":
		return failedStyle.Render(status)
	default:
		return infoStyle.Render(status)
	}
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Initializing...", m.spinner.View())
	}

	// Top Pane: Rounds
	var roundList strings.Builder
	roundList.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Rounds") + "\n\n")

	if len(m.rounds) == 0 {
		roundList.WriteString(subtleStyle.Render("No rounds yet."))
	} else {
		for _, r := range m.rounds {
			roundList.WriteString(fmt.Sprintf("• %s  %s  seats=%d candidates=%d voters=%d\n",
				r.RoundID, renderStatus(r.Status), r.Seats, r.Candidates, r.Voters))
		}
	}

	topPane := paneStyle.Render(roundList.String())

	// Bottom Pane: Event Stream
	header := headerStyle.Render(fmt.Sprintf("%s Activity Stream", m.spinner.View()))
	bottomPane := m.viewport.View()

	// Status Footer
	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d Events • %d Rounds", len(m.events), len(m.rounds)))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\nPress q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func daemonURL() string {
	if url := os.Getenv("TALLY_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return defaultDaemonURL
}

func fetchData() tea.Cmd {
	return func() tea.Msg {
		events, err := getEvents()
		if err != nil {
			return dataMsg{err: err}
		}

		rounds, err := getRounds()
		if err != nil {
			return dataMsg{err: err}
		}

		return dataMsg{
			events: events,
			rounds: rounds,
			err:    nil,
		}
	}
}

func getEvents() ([]Event, error) {
	c := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := c.Get(fmt.Sprintf("%s/v1/events?limit=%d", daemonURL(), maxEvents))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("events status %d", resp.StatusCode)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, err
	}
	return events, nil
}

func getRounds() ([]RoundSummary, error) {
	c := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := c.Get(fmt.Sprintf("%s/v1/rounds?limit=%d", daemonURL(), maxRounds))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rounds status %d", resp.StatusCode)
	}

	var rounds []RoundSummary
	if err := json.NewDecoder(resp.Body).Decode(&rounds); err != nil {
		return nil, err
	}
	return rounds, nil
}

func tick() tea.Cmd {
	return tea.Tick(pollRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
