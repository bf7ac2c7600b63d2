package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// Everything else requires the operator
	api := r.NewRoute().Subrouter()
	api.Use(mux.MiddlewareFunc(middleware.BasicAuth(s.operator, s.passwordHash)))

	api.Handle("/ws", http.HandlerFunc(s.WSManager.HandleWebSocket))
	api.Handle("/metrics", promhttp.Handler())

	api.HandleFunc("/api/stats", s.EngineHandler.HandleStats).Methods(http.MethodGet)
	api.HandleFunc("/api/probes", s.EngineHandler.HandleProbes).Methods(http.MethodGet)
	api.HandleFunc("/api/sessions", s.EngineHandler.HandleSessions).Methods(http.MethodGet)
	api.Handle("/api/commands/{name}",
		middleware.RateLimitMiddleware(s.commandLimit)(http.HandlerFunc(s.EngineHandler.HandleCommand)),
	).Methods(http.MethodPost)

	api.HandleFunc("/api/credentials", s.ReportHandler.HandleCredentials).Methods(http.MethodGet)
	api.HandleFunc("/api/report.pdf", s.ReportHandler.HandleReport).Methods(http.MethodGet)

	return r
}
