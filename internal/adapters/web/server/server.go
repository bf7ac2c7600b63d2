package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/adapters/reporting"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configure the operator API.
type Options struct {
	Addr         string
	Interface    string
	Operator     string
	PasswordHash []byte
	PushInterval time.Duration
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr string

	WSManager     *websocket.WSManager
	EngineHandler *handlers.EngineHandler
	ReportHandler *handlers.ReportHandler

	operator     string
	passwordHash []byte
	commandLimit *middleware.RateLimiter
	srv          *http.Server
}

// NewServer creates a new web server.
func NewServer(opts Options, engine ports.EngineControl, creds ports.CredentialLister, pdfExporter *reporting.PDFExporter) *Server {
	if opts.Operator == "" {
		opts.Operator = "operator"
	}
	s := &Server{
		Addr:          opts.Addr,
		WSManager:     websocket.NewWSManager(engine, opts.PushInterval),
		EngineHandler: handlers.NewEngineHandler(engine),
		ReportHandler: handlers.NewReportHandler(engine, creds, pdfExporter, opts.Interface),
		operator:      opts.Operator,
		passwordHash:  opts.PasswordHash,
		commandLimit:  middleware.NewRateLimiter(30, time.Minute),
	}
	s.EngineHandler.OnCommand = func(cmd domain.Command, operator string) {
		s.WSManager.BroadcastLog(fmt.Sprintf("%s queued %s", operator, cmd), "info")
	}
	return s
}

// Handler is the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(SetupRoutes(s), "wkarma-api")
}

// Run starts the server and the broadcaster.
func (s *Server) Run(ctx context.Context) error {
	s.WSManager.Start(ctx)
	go s.commandLimit.Run(ctx, time.Minute)

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Web Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Web Server shutdown error: %v", err)
		}
	}()

	log.Printf("Web server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
