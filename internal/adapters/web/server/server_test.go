package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/server"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Stats() domain.EngineStats {
	return m.Called().Get(0).(domain.EngineStats)
}

func (m *MockEngine) RecentProbes() []domain.ProbeEvent {
	return m.Called().Get(0).([]domain.ProbeEvent)
}

func (m *MockEngine) Sessions() []domain.PortalSession {
	return m.Called().Get(0).([]domain.PortalSession)
}

func (m *MockEngine) Submit(cmd domain.Command) error {
	return m.Called(cmd).Error(0)
}

type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListCredentials(ctx context.Context, limit int) ([]domain.Credential, error) {
	args := m.Called(limit)
	return args.Get(0).([]domain.Credential), args.Error(1)
}

const password = "hunter2"

func setupServer(t *testing.T) (*server.Server, *MockEngine, *MockLister) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	engine := new(MockEngine)
	lister := new(MockLister)
	srv := server.NewServer(server.Options{
		Addr:         ":0",
		Interface:    "wlan1mon",
		Operator:     "operator",
		PasswordHash: hash,
		PushInterval: 50 * time.Millisecond,
	}, engine, lister, nil)
	return srv, engine, lister
}

func request(t *testing.T, h http.Handler, method, target string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "127.0.0.1:50000"
	if auth {
		req.SetBasicAuth("operator", password)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthzIsPublic(t *testing.T) {
	srv, _, _ := setupServer(t)
	rec := request(t, srv.Handler(), http.MethodGet, "/healthz", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequiresOperator(t *testing.T) {
	srv, _, _ := setupServer(t)
	for _, path := range []string{"/api/stats", "/api/probes", "/api/sessions", "/api/credentials", "/metrics", "/ws"} {
		rec := request(t, srv.Handler(), http.MethodGet, path, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestServer_Stats(t *testing.T) {
	srv, engine, _ := setupServer(t)
	engine.On("Stats").Return(domain.EngineStats{ProbesTotal: 42, Channel: 6, Owner: "scan", Running: true})

	rec := request(t, srv.Handler(), http.MethodGet, "/api/stats", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got domain.EngineStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(42), got.ProbesTotal)
	assert.Equal(t, 6, got.Channel)
}

func TestServer_ProbesAndSessions(t *testing.T) {
	srv, engine, _ := setupServer(t)
	mac := net.HardwareAddr{0xda, 0xa1, 0x19, 0x00, 0x00, 0x01}
	engine.On("RecentProbes").Return([]domain.ProbeEvent{{MAC: mac, SSID: "HomeNet", RSSI: -48, Channel: 6, Fingerprint: 0xbeef}})
	engine.On("Sessions").Return([]domain.PortalSession{{ID: "s1", SSID: "HomeNet", Channel: 6, Tier: domain.TierHigh, State: domain.PortalLocked}})

	rec := request(t, srv.Handler(), http.MethodGet, "/api/probes", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mac":"da:a1:19:00:00:01"`)
	assert.Contains(t, rec.Body.String(), `"fingerprint":"0000beef"`)

	rec = request(t, srv.Handler(), http.MethodGet, "/api/sessions", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"locked"`)
	assert.Contains(t, rec.Body.String(), `"tier":"high"`)
}

func TestServer_Commands(t *testing.T) {
	tests := []struct {
		name       string
		command    string
		submitErr  error
		submitted  bool
		wantStatus int
	}{
		{name: "pause", command: "pause", submitted: true, wantStatus: http.StatusAccepted},
		{name: "next channel", command: "next-channel", submitted: true, wantStatus: http.StatusAccepted},
		{name: "mailbox full", command: "prev-channel", submitErr: domain.ErrCommandsFull, submitted: true, wantStatus: http.StatusServiceUnavailable},
		{name: "engine stopped", command: "exit", submitErr: domain.ErrStopped, submitted: true, wantStatus: http.StatusConflict},
		{name: "other error", command: "exit", submitErr: errors.New("boom"), submitted: true, wantStatus: http.StatusInternalServerError},
		{name: "unknown", command: "reboot", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, engine, _ := setupServer(t)
			if tt.submitted {
				cmd, ok := domain.ParseCommand(tt.command)
				require.True(t, ok)
				engine.On("Submit", cmd).Return(tt.submitErr).Once()
			}

			rec := request(t, srv.Handler(), http.MethodPost, "/api/commands/"+tt.command, true)
			assert.Equal(t, tt.wantStatus, rec.Code)
			engine.AssertExpectations(t)
		})
	}
}

func TestServer_CommandRequiresPost(t *testing.T) {
	srv, engine, _ := setupServer(t)
	rec := request(t, srv.Handler(), http.MethodGet, "/api/commands/pause", true)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	engine.AssertNotCalled(t, "Submit", mock.Anything)
}

func TestServer_Credentials(t *testing.T) {
	srv, _, lister := setupServer(t)
	lister.On("ListCredentials", 5).Return([]domain.Credential{
		{ID: "c1", SSID: "HomeNet", Password: "pw", CapturedAt: time.Now()},
	}, nil)

	rec := request(t, srv.Handler(), http.MethodGet, "/api/credentials?limit=5", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ssid":"HomeNet"`)

	rec = request(t, srv.Handler(), http.MethodGet, "/api/credentials?limit=-1", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	lister.AssertExpectations(t)
}

func TestServer_CredentialsStoreError(t *testing.T) {
	srv, _, lister := setupServer(t)
	lister.On("ListCredentials", 100).Return([]domain.Credential(nil), errors.New("db locked"))

	rec := request(t, srv.Handler(), http.MethodGet, "/api/credentials", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_ReportPDF(t *testing.T) {
	srv, engine, lister := setupServer(t)
	engine.On("Stats").Return(domain.EngineStats{Running: true, Credentials: 1})
	engine.On("Sessions").Return([]domain.PortalSession{})
	lister.On("ListCredentials", mock.Anything).Return([]domain.Credential{{SSID: "HomeNet", Password: "pw"}}, nil)

	rec := request(t, srv.Handler(), http.MethodGet, "/api/report.pdf", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "wkarma-report-")
}

func TestServer_Metrics(t *testing.T) {
	srv, _, _ := setupServer(t)
	rec := request(t, srv.Handler(), http.MethodGet, "/metrics", true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_WebSocketPushesSnapshots(t *testing.T) {
	srv, engine, _ := setupServer(t)
	engine.On("Stats").Return(domain.EngineStats{ProbesTotal: 7, Running: true})
	engine.On("Sessions").Return([]domain.PortalSession{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.WSManager.Start(ctx)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	header := http.Header{}
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	req.SetBasicAuth("operator", password)
	header.Set("Authorization", req.Header.Get("Authorization"))

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.TypeStats, msg.Type)

	var stats domain.EngineStats
	require.NoError(t, json.Unmarshal(msg.Payload, &stats))
	assert.Equal(t, uint64(7), stats.ProbesTotal)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.TypeSessions, msg.Type)

	assert.Eventually(t, func() bool { return srv.WSManager.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServer_CommandBroadcastsLog(t *testing.T) {
	srv, engine, _ := setupServer(t)
	engine.On("Stats").Return(domain.EngineStats{})
	engine.On("Sessions").Return([]domain.PortalSession{})
	engine.On("Submit", domain.CommandPause).Return(nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	header := http.Header{}
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	req.SetBasicAuth("operator", password)
	header.Set("Authorization", req.Header.Get("Authorization"))

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.WSManager.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	rec := request(t, srv.Handler(), http.MethodPost, "/api/commands/pause", true)
	require.Equal(t, http.StatusAccepted, rec.Code)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	for {
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == websocket.TypeLog {
			break
		}
	}
	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "operator queued pause", payload["message"])
}
