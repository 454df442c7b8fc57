// Package tui implements the live command monitor for the watch subcommand.
package tui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/events"
)

// --- Styles ---

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD"))

	statusOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	statusRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	statusFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)
)

// --- Types ---

// commandRow tracks one exchange observed on the event stream.
type commandRow struct {
	ID         string
	Operation  string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        string
}

type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	commands map[string]*commandRow
	order    []string
	eventLog []events.Event

	hubEvents chan events.Event

	health struct {
		Status           string
		UptimeSeconds    int64
		CommandsInFlight int
		OperationsLoaded int
		BridgeDir        string
	}
	connected bool
	lastError string

	cmdTable table.Model
}

type eventMsg events.Event

type healthMsg struct {
	Status           string `json:"status"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	CommandsInFlight int    `json:"commands_in_flight"`
	OperationsLoaded int    `json:"operations_loaded"`
	BridgeDir        string `json:"bridge_dir"`
}

type errMsg error

type sseDisconnectedMsg struct{}
type reconnectMsg struct{}

// --- Init ---

func NewMonitor(apiURL, apiKey string) *Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ST", Width: 2},
			{Title: "Operation", Width: 24},
			{Title: "ID", Width: 10},
			{Title: "Duration", Width: 10},
			{Title: "Error", Width: 36},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return &Model{
		apiURL:    apiURL,
		apiKey:    apiKey,
		commands:  make(map[string]*commandRow),
		eventLog:  make([]events.Event, 0),
		hubEvents: make(chan events.Event, 100),
		cmdTable:  t,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.subscribeToEvents(),
		m.pollHealth(),
		m.receiveNextEvent(),
		tea.EnterAltScreen,
	)
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.cmdTable.SetWidth(m.width - 6)

	case eventMsg:
		m.handleEvent(events.Event(msg))
		m.updateTable()
		m.connected = true
		m.lastError = ""
		return m, m.receiveNextEvent()

	case healthMsg:
		m.health.Status = msg.Status
		m.health.UptimeSeconds = msg.UptimeSeconds
		m.health.CommandsInFlight = msg.CommandsInFlight
		m.health.OperationsLoaded = msg.OperationsLoaded
		m.health.BridgeDir = msg.BridgeDir
		m.connected = true
		m.lastError = ""
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return m.fetchHealth()
		})

	case sseDisconnectedMsg:
		m.connected = false
		m.lastError = "event stream disconnected, reconnecting..."
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case reconnectMsg:
		return m, m.subscribeToEvents()

	case errMsg:
		m.lastError = msg.Error()
		return m, tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
			return m.fetchHealth()
		})
	}

	m.cmdTable, cmd = m.cmdTable.Update(msg)
	return m, cmd
}

func (m *Model) handleEvent(e events.Event) {
	m.eventLog = append([]events.Event{e}, m.eventLog...)
	if len(m.eventLog) > 50 {
		m.eventLog = m.eventLog[:50]
	}

	var data events.CommandEvent
	_ = json.Unmarshal(e.Data, &data)
	if data.CommandID == "" {
		return
	}

	row, ok := m.commands[data.CommandID]
	if !ok {
		row = &commandRow{ID: data.CommandID}
		m.commands[data.CommandID] = row
		m.order = append([]string{data.CommandID}, m.order...)
		if len(m.order) > 100 {
			evicted := m.order[100:]
			m.order = m.order[:100]
			for _, id := range evicted {
				delete(m.commands, id)
			}
		}
	}
	if data.Operation != "" {
		row.Operation = data.Operation
	}

	switch e.Type {
	case events.TypeCommandDispatched:
		row.Status = "dispatched"
		row.StartedAt = time.Now()
	case events.TypeCommandSucceeded:
		row.Status = "succeeded"
		row.FinishedAt = time.Now()
	case events.TypeCommandFailed:
		row.Status = "failed"
		row.FinishedAt = time.Now()
		row.Err = data.Error
	case events.TypeCommandTimedOut:
		row.Status = "timed_out"
		row.FinishedAt = time.Now()
		row.Err = data.Error
	}
}

func (m *Model) updateTable() {
	rows := make([]table.Row, 0, len(m.order))
	for _, id := range m.order {
		rows = append(rows, m.rowFor(m.commands[id]))
	}
	m.cmdTable.SetRows(rows)
}

func (m *Model) rowFor(c *commandRow) table.Row {
	statusSym := "○"
	switch c.Status {
	case "dispatched":
		statusSym = statusRunning.Render("◉")
	case "succeeded":
		statusSym = statusOK.Render("●")
	case "failed":
		statusSym = statusFailed.Render("∅")
	case "timed_out":
		statusSym = statusFailed.Render("◑")
	}

	duration := "-"
	if !c.StartedAt.IsZero() {
		end := c.FinishedAt
		if end.IsZero() {
			end = time.Now()
		}
		duration = end.Sub(c.StartedAt).Round(time.Millisecond).String()
	}

	id := c.ID
	if len(id) > 8 {
		id = id[:8]
	}

	return table.Row{statusSym, c.Operation, id, duration, c.Err}
}

// --- View ---

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := m.renderHeader()
	commandsView := borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Commands"),
			m.cmdTable.View(),
		),
	)

	eventsView := borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Event Stream"),
			m.renderEvents(),
		),
	)

	parts := []string{header, commandsView, eventsView}
	if m.lastError != "" {
		parts = append(parts, statusFailed.Render(" ⚠ "+m.lastError))
	}
	parts = append(parts, dimStyle.Render(" [q] Quit • [↑/↓] Scroll Commands"))

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderHeader() string {
	status := statusOK.Render("RUNNING")
	if !m.connected {
		status = statusFailed.Render("CONNECTING")
	} else if m.health.Status != "ok" && m.health.Status != "" {
		status = statusFailed.Render("DEGRADED")
	}

	uptime := time.Duration(m.health.UptimeSeconds) * time.Second

	items := []string{
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Uptime: %s", uptime.String()),
		fmt.Sprintf("In flight: %d", m.health.CommandsInFlight),
		fmt.Sprintf("Operations: %d", m.health.OperationsLoaded),
	}

	return borderStyle.Width(m.width - 4).Render(
		lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width((m.width-4)/4).Render(items[0]),
			lipgloss.NewStyle().Width((m.width-4)/4).Render(items[1]),
			lipgloss.NewStyle().Width((m.width-4)/4).Render(items[2]),
			lipgloss.NewStyle().Width((m.width-4)/4).Render(items[3]),
		),
	)
}

func (m Model) renderEvents() string {
	var lines []string
	for i, e := range m.eventLog {
		if i >= 10 {
			break
		}
		ts := dimStyle.Render(e.At.Format("15:04:05"))
		lines = append(lines, fmt.Sprintf("%s | %-18s | %s", ts, e.Type, string(e.Data)))
	}
	if len(lines) == 0 {
		return "  No events yet..."
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// --- Commands ---

// subscribeToEvents connects to the SSE /events endpoint and feeds events
// into the model channel. Returns sseDisconnectedMsg when the stream drops.
func (m Model) subscribeToEvents() tea.Cmd {
	return func() tea.Msg {
		client := &http.Client{}
		req, err := http.NewRequest("GET", m.apiURL+"/events", nil)
		if err != nil {
			return errMsg(err)
		}
		req.Header.Set("Authorization", "Bearer "+m.apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return sseDisconnectedMsg{}
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var current events.Event
		for scanner.Scan() {
			line := scanner.Text()

			if line == "" {
				if len(current.Data) > 0 {
					if current.At.IsZero() {
						current.At = time.Now()
					}
					m.hubEvents <- current
					current = events.Event{}
				}
				continue
			}

			switch {
			case strings.HasPrefix(line, "id: "):
				fmt.Sscanf(line[4:], "%d", &current.ID)
			case strings.HasPrefix(line, "event: "):
				current.Type = line[7:]
			case strings.HasPrefix(line, "data: "):
				current.Data = []byte(line[6:])
			}
		}
		return sseDisconnectedMsg{}
	}
}

func (m Model) receiveNextEvent() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-m.hubEvents)
	}
}

func (m Model) pollHealth() tea.Cmd {
	return func() tea.Msg {
		return m.fetchHealth()
	}
}

func (m Model) fetchHealth() tea.Msg {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest("GET", m.apiURL+"/healthz", nil)
	if err != nil {
		return errMsg(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errMsg(err)
	}
	defer resp.Body.Close()

	var h healthMsg
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return errMsg(err)
	}
	return h
}
