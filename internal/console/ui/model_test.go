package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/wkarma/internal/console/client"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	sent  []string
	waits int
}

func (f *fakeFeed) Connect() tea.Cmd   { return func() tea.Msg { return nil } }
func (f *fakeFeed) Reconnect() tea.Cmd { return func() tea.Msg { return nil } }
func (f *fakeFeed) WaitForEvent() tea.Cmd {
	f.waits++
	return func() tea.Msg { return nil }
}
func (f *fakeFeed) SendCommand(name string) tea.Cmd {
	f.sent = append(f.sent, name)
	return func() tea.Msg { return client.CommandResultMsg{Command: name} }
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestModel_CommandsFromKeys(t *testing.T) {
	feed := &fakeFeed{}
	m := NewModel(feed)

	for _, k := range []string{"p", "n", "right", "b"} {
		var cmd tea.Cmd
		m, cmd = update(t, m, key(k))
		require.NotNil(t, cmd)
	}
	assert.Equal(t, []string{"pause", "next-channel", "next-channel", "prev-channel"}, feed.sent)
}

func TestModel_ExitNeedsConfirmation(t *testing.T) {
	feed := &fakeFeed{}
	m := NewModel(feed)

	m, _ = update(t, m, key("X"))
	assert.True(t, m.confirmExit)
	m, _ = update(t, m, key("n"))
	assert.False(t, m.confirmExit)
	assert.Empty(t, feed.sent)

	m, _ = update(t, m, key("X"))
	_, cmd := update(t, m, key("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"exit"}, feed.sent)
}

func TestModel_QuitLeavesEngineAlone(t *testing.T) {
	feed := &fakeFeed{}
	_, cmd := update(t, NewModel(feed), key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, feed.sent)
}

func TestModel_FeedMessages(t *testing.T) {
	feed := &fakeFeed{}
	m := NewModel(feed)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	m, _ = update(t, m, client.ConnectionStatusMsg{Connected: true})
	m, _ = update(t, m, client.StatsMsg(domain.EngineStats{
		ProbesTotal: 42,
		Channel:     11,
		Owner:       "portal",
		Paused:      true,
		Handshakes:  map[string]uint64{"M1": 2},
	}))
	m, _ = update(t, m, client.SessionsMsg([]handlers.SessionView{
		{SSID: "Older", LaunchedAt: now.Add(-time.Minute)},
		{SSID: "CoffeeShop", Channel: 11, LaunchedAt: now.Add(-5 * time.Second), Captured: true},
	}))
	m, _ = update(t, m, client.LogMsg{Message: "operator queued pause", Level: "info"})

	assert.Equal(t, 4, feed.waits)
	require.Len(t, m.sessions, 2)
	assert.Equal(t, "CoffeeShop", m.sessions[0].SSID)

	view := m.View()
	assert.Contains(t, view, "PAUSED")
	assert.Contains(t, view, "probes 42")
	assert.Contains(t, view, "ch 11 (portal)")
	assert.Contains(t, view, "M1:2")
	assert.Contains(t, view, "CoffeeShop")
	assert.Contains(t, view, "operator queued pause")
}

func TestModel_DisconnectSchedulesReconnect(t *testing.T) {
	m := NewModel(&fakeFeed{})
	m, cmd := update(t, m, client.ConnectionStatusMsg{Error: errors.New("connection lost: EOF")})
	assert.False(t, m.connected)
	assert.Contains(t, m.connectionStatus, "connection lost")
	assert.NotNil(t, cmd)

	m, cmd = update(t, m, reconnectMsg{})
	assert.Equal(t, "Reconnecting...", m.connectionStatus)
	assert.NotNil(t, cmd)
}

func TestModel_CommandErrorLogged(t *testing.T) {
	m := NewModel(&fakeFeed{})
	m, _ = update(t, m, client.CommandResultMsg{Command: "pause", Err: errors.New("pause: Engine stopped")})
	require.Len(t, m.logs, 1)
	assert.Equal(t, "error", m.logs[0].level)
}

func TestModel_LogBounded(t *testing.T) {
	m := NewModel(&fakeFeed{})
	for i := 0; i < maxLogLines+25; i++ {
		m.addLog("info", "line")
	}
	assert.Len(t, m.logs, maxLogLines)
}

func TestModel_ViewBeforeSize(t *testing.T) {
	assert.Equal(t, "Initializing...", NewModel(&fakeFeed{}).View())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a much ...", truncate("a much longer value", 10))
}
