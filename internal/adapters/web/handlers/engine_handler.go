package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

// EngineHandler serves engine snapshots and accepts operator commands.
type EngineHandler struct {
	Engine ports.EngineControl
	// OnCommand, when set, is told about every queued command.
	OnCommand func(cmd domain.Command, operator string)
}

// NewEngineHandler creates a new EngineHandler
func NewEngineHandler(engine ports.EngineControl) *EngineHandler {
	return &EngineHandler{Engine: engine}
}

// HandleStats returns the latest stats snapshot
func (h *EngineHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.Stats())
}

// HandleProbes returns the recent probe history, oldest first
func (h *EngineHandler) HandleProbes(w http.ResponseWriter, r *http.Request) {
	probes := h.Engine.RecentProbes()
	views := make([]ProbeView, 0, len(probes))
	for _, p := range probes {
		views = append(views, NewProbeView(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"probes": views})
}

// HandleSessions returns the live portal sessions
func (h *EngineHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.Engine.Sessions()
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, NewSessionView(s))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": views})
}

// HandleCommand pushes {name} into the engine's command mailbox
func (h *EngineHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cmd, ok := domain.ParseCommand(name)
	if !ok {
		http.Error(w, "Unknown command: "+name, http.StatusBadRequest)
		return
	}

	err := h.Engine.Submit(cmd)
	switch {
	case errors.Is(err, domain.ErrCommandsFull):
		http.Error(w, "Command mailbox full, retry", http.StatusServiceUnavailable)
		return
	case errors.Is(err, domain.ErrStopped):
		http.Error(w, "Engine stopped", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Command failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	operator := middleware.Operator(r.Context())
	log.Printf("[WEB] command %s queued by %s", cmd, operator)
	if h.OnCommand != nil {
		h.OnCommand(cmd, operator)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "command": cmd.String()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WEB] encode response: %v", err)
	}
}
