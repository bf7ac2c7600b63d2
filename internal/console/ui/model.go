package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/wkarma/internal/console/client"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

const maxLogLines = 200

// Feed is the part of the daemon client the model drives.
type Feed interface {
	Connect() tea.Cmd
	Reconnect() tea.Cmd
	WaitForEvent() tea.Cmd
	SendCommand(name string) tea.Cmd
}

type logLine struct {
	at      time.Time
	level   string
	message string
}

type Model struct {
	feed             Feed
	stats            domain.EngineStats
	sessions         []handlers.SessionView
	logs             []logLine
	width            int
	height           int
	connected        bool
	connectionStatus string
	confirmExit      bool
	showHelp         bool
	now              func() time.Time
}

type reconnectMsg struct{}

func NewModel(feed Feed) Model {
	return Model{
		feed:             feed,
		connectionStatus: "Connecting to daemon...",
		now:              time.Now,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.feed.Connect(),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case reconnectMsg:
		m.connectionStatus = "Reconnecting..."
		return m, m.feed.Reconnect()

	case client.ConnectionStatusMsg:
		m.connected = msg.Connected
		if msg.Connected {
			m.connectionStatus = "Connected"
			return m, m.feed.WaitForEvent()
		}
		if msg.Error != nil {
			m.connectionStatus = fmt.Sprintf("Disconnected: %s", msg.Error)
		}
		return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
			return reconnectMsg{}
		})

	case client.StatsMsg:
		m.stats = domain.EngineStats(msg)
		return m, m.feed.WaitForEvent()

	case client.SessionsMsg:
		m.sessions = []handlers.SessionView(msg)
		sort.Slice(m.sessions, func(i, j int) bool {
			return m.sessions[i].LaunchedAt.After(m.sessions[j].LaunchedAt)
		})
		return m, m.feed.WaitForEvent()

	case client.LogMsg:
		m.addLog(msg.Level, msg.Message)
		return m, m.feed.WaitForEvent()

	case client.CommandResultMsg:
		if msg.Err != nil {
			m.addLog("error", msg.Err.Error())
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) addLog(level, message string) {
	m.logs = append(m.logs, logLine{at: m.now(), level: level, message: message})
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirmExit {
		m.confirmExit = false
		if key == "y" {
			return m, m.feed.SendCommand(domain.CommandExit.String())
		}
		m.addLog("info", "exit cancelled")
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?", "h":
		m.showHelp = !m.showHelp
		return m, nil
	case "p", " ":
		return m, m.feed.SendCommand(domain.CommandPause.String())
	case "n", "right":
		return m, m.feed.SendCommand(domain.CommandNextChannel.String())
	case "b", "left":
		return m, m.feed.SendCommand(domain.CommandPrevChannel.String())
	case "X":
		m.confirmExit = true
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(m.renderStats())
	s.WriteString("\n\n")
	s.WriteString(m.renderSessions())
	s.WriteString("\n")
	s.WriteString(m.renderLogs())
	s.WriteString("\n")
	s.WriteString(m.renderFooter())
	return s.String()
}

func (m Model) renderHeader() string {
	title := " wkarma console "

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	if m.connected {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	} else if strings.Contains(m.connectionStatus, "onnecting") {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	}

	status := m.connectionStatus
	if m.stats.Paused {
		status = "PAUSED | " + status
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Padding(0, 1).
		Render(title)
	statusText := statusStyle.Padding(0, 1).Render(truncate(status, m.width/2))

	gap := m.width - lipgloss.Width(header) - lipgloss.Width(statusText)
	if gap < 0 {
		gap = 0
	}
	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		header,
		lipgloss.NewStyle().Width(gap).Render(""),
		statusText,
	)

	return lipgloss.NewStyle().
		Width(m.width).
		Background(lipgloss.Color("235")).
		Render(headerLine)
}

func (m Model) renderStats() string {
	s := m.stats
	channel := fmt.Sprintf("ch %d (%s)", s.Channel, s.Owner)
	if s.LockedChannel != 0 {
		channel += fmt.Sprintf(" locked %d", s.LockedChannel)
	}

	lines := []string{
		fmt.Sprintf(" %s | probes %d (dup %d, dropped %d) | clients %d | vulnerable %d",
			channel, s.ProbesTotal, s.ProbesDuplicate, s.ProbesDropped, s.Clients, s.VulnerableCount),
		fmt.Sprintf(" queue %d | sessions %d | credentials %d | handshakes %s | tx %d (throttled %d)",
			s.QueueDepth, s.Sessions, s.Credentials, handshakeSummary(s.Handshakes), s.FramesSent, s.FramesThrottled),
	}
	if s.BroadcastSSID != "" {
		lines = append(lines, fmt.Sprintf(" broadcasting %q", s.BroadcastSSID))
	}

	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Width(m.width).
		Render(strings.Join(lines, "\n"))
}

func handshakeSummary(h map[string]uint64) string {
	if len(h) == 0 {
		return "-"
	}
	parts := make([]string, 0, 4)
	for _, k := range []string{"M1", "M2", "M3", "M4"} {
		parts = append(parts, fmt.Sprintf("%s:%d", k, h[k]))
	}
	return strings.Join(parts, " ")
}

func (m Model) renderSessions() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	lines := []string{headerStyle.Render(fmt.Sprintf("%-4s %-32s %-4s %-18s %-8s %-8s %-10s %s",
		"Slot", "SSID", "Ch", "BSSID", "Security", "Tier", "State", "Age"))}

	if len(m.sessions) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(" no live portal sessions"))
		return strings.Join(lines, "\n")
	}

	now := m.now()
	for _, sess := range m.sessions {
		style := lipgloss.NewStyle()
		switch {
		case sess.Captured:
			style = style.Foreground(lipgloss.Color("46"))
		case sess.VictimConnected:
			style = style.Foreground(lipgloss.Color("226"))
		}
		age := now.Sub(sess.LaunchedAt).Truncate(time.Second)
		lines = append(lines, style.Render(fmt.Sprintf("%-4d %-32s %-4d %-18s %-8s %-8s %-10s %s",
			sess.Slot, truncate(sess.SSID, 32), sess.Channel, sess.BSSID, sess.Security, sess.Tier, sess.State, age)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLogs() string {
	// header, stats, blank, sessions block, footer
	room := m.height - 6 - (len(m.sessions) + 1)
	if room < 3 {
		room = 3
	}
	start := len(m.logs) - room
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, l := range m.logs[start:] {
		color := lipgloss.Color("250")
		switch l.level {
		case "error":
			color = lipgloss.Color("196")
		case "warn", "warning":
			color = lipgloss.Color("214")
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(color).
			Render(fmt.Sprintf("%s %s", l.at.Format("15:04:05"), truncate(l.message, m.width-10))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	help := " q:quit | p:pause | n/b:channel | X:exit engine | ?:help "
	if m.confirmExit {
		help = " Stop the engine and tear down every session? y/N "
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Width(m.width).
		Align(lipgloss.Center).
		Background(lipgloss.Color("235")).
		Render(help)
}

func (m Model) renderHelp() string {
	helpText := `
 wkarma console - Help

 p, space     Pause or resume the engine
 n, right     Lock the next scan channel
 b, left      Lock the previous scan channel
 X            Exit the engine (asks for confirmation)
 ?, h         Toggle this help
 q, ctrl+c    Quit the console (the engine keeps running)
`
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Width(m.width).
		Render(helpText)
}

func truncate(s string, n int) string {
	if n <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
