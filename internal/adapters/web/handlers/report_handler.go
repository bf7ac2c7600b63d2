package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/wkarma/internal/adapters/reporting"
	"github.com/lcalzada-xor/wkarma/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

const (
	defaultCredentialLimit = 100
	maxCredentialLimit     = 1000
)

// ReportHandler exposes captured credentials and the PDF engagement report.
type ReportHandler struct {
	Engine      ports.EngineControl
	Credentials ports.CredentialLister
	PDFExporter *reporting.PDFExporter
	Interface   string
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(engine ports.EngineControl, creds ports.CredentialLister, exporter *reporting.PDFExporter, iface string) *ReportHandler {
	if exporter == nil {
		exporter = reporting.NewPDFExporter()
	}
	return &ReportHandler{
		Engine:      engine,
		Credentials: creds,
		PDFExporter: exporter,
		Interface:   iface,
	}
}

// HandleCredentials lists stored credentials, newest first. ?limit=N caps the list.
func (h *ReportHandler) HandleCredentials(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	creds, err := h.Credentials.ListCredentials(r.Context(), limit)
	if err != nil {
		log.Printf("[WEB] list credentials: %v", err)
		http.Error(w, "Failed to read credentials", http.StatusInternalServerError)
		return
	}

	views := make([]CredentialView, 0, len(creds))
	for _, c := range creds {
		views = append(views, NewCredentialView(c))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"credentials": views})
}

// HandleReport renders the engagement report as PDF. ?reveal=true prints passwords.
func (h *ReportHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Credentials.ListCredentials(r.Context(), maxCredentialLimit)
	if err != nil {
		log.Printf("[WEB] report credentials: %v", err)
		creds = nil
	}

	report := &domain.EngagementReport{
		ID:            uuid.NewString(),
		Title:         "Wireless Engagement Report",
		GeneratedAt:   time.Now(),
		GeneratedBy:   middleware.Operator(r.Context()),
		Interface:     h.Interface,
		Stats:         h.Engine.Stats(),
		Sessions:      h.Engine.Sessions(),
		Credentials:   creds,
		RevealSecrets: r.URL.Query().Get("reveal") == "true",
	}

	data, err := h.PDFExporter.ExportEngagement(report)
	if err != nil {
		log.Printf("[WEB] report export: %v", err)
		http.Error(w, "Failed to generate report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=wkarma-report-%s.pdf", report.GeneratedAt.Format("20060102-150405")))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultCredentialLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if n > maxCredentialLimit {
		n = maxCredentialLimit
	}
	return n, nil
}
