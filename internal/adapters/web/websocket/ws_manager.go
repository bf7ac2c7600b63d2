package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Non-browser clients send no Origin
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err == nil && u.Host == r.Host {
			return true
		}

		log.Printf("WebSocket: Rejected origin: %s", origin)
		return false
	},
}

// Message types pushed to clients.
const (
	TypeStats    = "stats"
	TypeSessions = "sessions"
	TypeLog      = "log"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSManager pushes engine snapshots to every connected console.
type WSManager struct {
	Engine   ports.EngineControl
	Interval time.Duration
	Clients  map[*websocket.Conn]string
	mu       sync.Mutex
}

func NewWSManager(engine ports.EngineControl, interval time.Duration) *WSManager {
	if interval <= 0 {
		interval = time.Second
	}
	return &WSManager{
		Engine:   engine,
		Interval: interval,
		Clients:  make(map[*websocket.Conn]string),
	}
}

func (m *WSManager) Start(ctx context.Context) {
	go m.processAndBroadcast(ctx)
}

func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	operator := middleware.Operator(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	// First snapshot goes out before the connection joins the broadcast set
	// so the client never waits a full interval.
	for _, msg := range m.snapshot() {
		if err := writeMessage(conn, msg); err != nil {
			conn.Close()
			return
		}
	}

	m.mu.Lock()
	m.Clients[conn] = operator
	m.mu.Unlock()

	log.Printf("WebSocket connected: operator=%s", operator)

	go func() {
		defer conn.Close()
		defer func() {
			m.mu.Lock()
			delete(m.Clients, conn)
			m.mu.Unlock()
			log.Printf("WebSocket disconnected: operator=%s", operator)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// ClientCount reports connected consoles.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Clients)
}

func (m *WSManager) processAndBroadcast(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			for _, msg := range m.snapshot() {
				m.broadcastMessage(msg)
			}
		}
	}
}

func (m *WSManager) snapshot() []WSMessage {
	sessions := m.Engine.Sessions()
	views := make([]handlers.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, handlers.NewSessionView(s))
	}
	return []WSMessage{
		{Type: TypeStats, Payload: m.Engine.Stats()},
		{Type: TypeSessions, Payload: views},
	}
}

// BroadcastLog sends a log message to all connected clients
func (m *WSManager) BroadcastLog(message string, level string) {
	m.broadcastMessage(WSMessage{
		Type: TypeLog,
		Payload: map[string]string{
			"message": message,
			"level":   level,
		},
	})
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.Clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(m.Clients, conn)
		}
	}
}

func (m *WSManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.Clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(m.Clients, conn)
	}
}

func writeMessage(conn *websocket.Conn, msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}
