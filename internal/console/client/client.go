package client

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// Client follows the daemon's websocket feed and posts operator commands.
type Client struct {
	base     url.URL
	user     string
	password string
	http     *http.Client

	mu       sync.Mutex
	conn     *websocket.Conn
	messages chan tea.Msg
}

type StatsMsg domain.EngineStats
type SessionsMsg []handlers.SessionView
type LogMsg struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}
type ConnectionStatusMsg struct {
	Connected bool
	Error     error
}
type CommandResultMsg struct {
	Command string
	Err     error
}

// NewClient targets the daemon at addr (host:port).
func NewClient(addr, user, password string) *Client {
	return &Client{
		base:     url.URL{Scheme: "http", Host: addr},
		user:     user,
		password: password,
		http:     &http.Client{Timeout: 5 * time.Second},
		messages: make(chan tea.Msg, 100),
	}
}

func (c *Client) authHeader() http.Header {
	token := base64.StdEncoding.EncodeToString([]byte(c.user + ":" + c.password))
	return http.Header{"Authorization": {"Basic " + token}}
}

// Connect dials the websocket feed.
func (c *Client) Connect() tea.Cmd {
	return func() tea.Msg {
		u := c.base
		u.Scheme = "ws"
		u.Path = "/ws"

		conn, resp, err := websocket.DefaultDialer.Dial(u.String(), c.authHeader())
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				err = errors.New("authentication failed")
			}
			return ConnectionStatusMsg{Connected: false, Error: err}
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		go c.readMessages(conn)

		return ConnectionStatusMsg{Connected: true}
	}
}

func (c *Client) readMessages(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.push(ConnectionStatusMsg{Connected: false, Error: fmt.Errorf("connection lost: %w", err)})
			return
		}

		msg, err := Decode(message)
		if err != nil || msg == nil {
			continue
		}
		c.push(msg)
	}
}

// push drops the message if the console is not keeping up, except for
// connection changes.
func (c *Client) push(msg tea.Msg) {
	if _, ok := msg.(ConnectionStatusMsg); ok {
		c.messages <- msg
		return
	}
	select {
	case c.messages <- msg:
	default:
	}
}

// Decode turns one websocket frame into a console message. Unknown types
// decode to nil.
func Decode(data []byte) (tea.Msg, error) {
	var typed struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, err
	}

	switch typed.Type {
	case "stats":
		var s domain.EngineStats
		if err := json.Unmarshal(typed.Payload, &s); err != nil {
			return nil, err
		}
		return StatsMsg(s), nil
	case "sessions":
		var sessions []handlers.SessionView
		if err := json.Unmarshal(typed.Payload, &sessions); err != nil {
			return nil, err
		}
		return SessionsMsg(sessions), nil
	case "log":
		var l LogMsg
		if err := json.Unmarshal(typed.Payload, &l); err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, nil
}

// WaitForEvent blocks for the next message from the feed.
func (c *Client) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-c.messages
	}
}

// SendCommand posts a command by its wire name.
func (c *Client) SendCommand(name string) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Command: name, Err: c.Post(name)}
	}
}

// Post sends the command synchronously.
func (c *Client) Post(name string) error {
	u := c.base
	u.Path = "/api/commands/" + url.PathEscape(name)

	req, err := http.NewRequest(http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header = c.authHeader()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	reason := strings.TrimSpace(string(body))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%s: %s", name, reason)
}

func (c *Client) Reconnect() tea.Cmd {
	return tea.Sequence(
		tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
			return nil
		}),
		c.Connect(),
	)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
