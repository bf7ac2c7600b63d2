package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "op" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		// Hold the connection until the client leaves
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func addr(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestClient_ReceivesFeed(t *testing.T) {
	srv := feedServer(t,
		`{"type":"stats","payload":{"probes_total":12,"channel":6,"owner":"scan"}}`,
		`{"type":"sessions","payload":[{"ssid":"HomeNet","channel":6,"tier":"fast"}]}`,
		`{"type":"log","payload":{"message":"op queued pause","level":"info"}}`,
	)
	c := NewClient(addr(srv), "op", "secret")
	defer c.Close()

	status := c.Connect()().(ConnectionStatusMsg)
	require.True(t, status.Connected, "%v", status.Error)

	stats := c.WaitForEvent()().(StatsMsg)
	assert.EqualValues(t, 12, stats.ProbesTotal)
	assert.Equal(t, "scan", stats.Owner)

	sessions := c.WaitForEvent()().(SessionsMsg)
	require.Len(t, sessions, 1)
	assert.Equal(t, "HomeNet", sessions[0].SSID)

	logMsg := c.WaitForEvent()().(LogMsg)
	assert.Equal(t, "op queued pause", logMsg.Message)
}

func TestClient_BadCredentials(t *testing.T) {
	srv := feedServer(t)
	c := NewClient(addr(srv), "op", "wrong")

	status := c.Connect()().(ConnectionStatusMsg)
	assert.False(t, status.Connected)
	assert.EqualError(t, status.Error, "authentication failed")
}

func TestClient_ConnectionRefused(t *testing.T) {
	c := NewClient("127.0.0.1:1", "op", "secret")
	status := c.Connect()().(ConnectionStatusMsg)
	assert.False(t, status.Connected)
	assert.Error(t, status.Error)
}

func TestClient_ConnectionLost(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := NewClient(addr(srv), "op", "secret")
	require.True(t, c.Connect()().(ConnectionStatusMsg).Connected)

	select {
	case msg := <-c.messages:
		status := msg.(ConnectionStatusMsg)
		assert.False(t, status.Connected)
		assert.Contains(t, status.Error.Error(), "connection lost")
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect reported")
	}
}

func TestClient_Post(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if _, _, ok := r.BasicAuth(); !ok || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/api/commands/pause":
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "Engine stopped", http.StatusConflict)
		}
	}))
	defer srv.Close()

	c := NewClient(addr(srv), "op", "secret")

	res := c.SendCommand("pause")().(CommandResultMsg)
	assert.NoError(t, res.Err)
	assert.Equal(t, "/api/commands/pause", gotPath)

	err := c.Post("exit")
	assert.EqualError(t, err, "exit: Engine stopped")
}

func TestDecode_UnknownType(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"alert","payload":{}}`))
	assert.NoError(t, err)
	assert.Nil(t, msg)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
