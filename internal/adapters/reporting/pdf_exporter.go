package reporting

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// PDFExporter exports reports to PDF format
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportEngagement renders the engagement report.
func (e *PDFExporter) ExportEngagement(report *domain.EngagementReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("nil report")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	e.addHeader(pdf, tr, report)
	e.addStatistics(pdf, report)
	e.addTiers(pdf, report)
	e.addSessions(pdf, tr, report)
	e.addCredentials(pdf, tr, report)
	e.addFooter(pdf, report)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// addHeader adds the report header
func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, tr func(string) string, report *domain.EngagementReport) {
	title := report.Title
	if title == "" {
		title = "Wireless Engagement Report"
	}
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 14, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	if report.Interface != "" {
		pdf.CellFormat(0, 6, "Interface: "+tr(report.Interface), "", 1, "L", false, 0, "")
	}
	state := "running"
	switch {
	case !report.Stats.Running:
		state = "stopped"
	case report.Stats.Paused:
		state = "paused"
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Engine: %s, channel %d (%s)", state, report.Stats.Channel, report.Stats.Owner), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (e *PDFExporter) section(pdf *gofpdf.Fpdf, title string) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

// addStatistics adds the counter grid
func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, report *domain.EngagementReport) {
	e.section(pdf, "Activity Overview")
	s := report.Stats

	stats := []struct {
		label string
		value string
		color []int
	}{
		{"Probe Requests", fmt.Sprintf("%d", s.ProbesTotal), []int{0, 102, 204}},
		{"Inbox Drops", fmt.Sprintf("%d", s.ProbesDropped), []int{150, 150, 150}},
		{"Tracked Clients", fmt.Sprintf("%d", s.Clients), []int{0, 102, 204}},
		{"Vulnerable Clients", fmt.Sprintf("%d", s.VulnerableCount), []int{255, 149, 0}},
		{"Live Sessions", fmt.Sprintf("%d", s.Sessions), []int{0, 102, 204}},
		{"Credentials", fmt.Sprintf("%d", s.Credentials), []int{220, 53, 69}},
		{"Frames Sent", fmt.Sprintf("%d", s.FramesSent), []int{0, 102, 204}},
		{"Frames Throttled", fmt.Sprintf("%d", s.FramesThrottled), []int{150, 150, 150}},
		{"Requests Rejected", fmt.Sprintf("%d", s.Rejected), []int{150, 150, 150}},
		{"Beacons Observed", fmt.Sprintf("%d", s.BeaconsObserved), []int{0, 102, 204}},
	}
	for _, msg := range []string{"M1", "M2", "M3", "M4"} {
		stats = append(stats, struct {
			label string
			value string
			color []int
		}{"Handshake " + msg, fmt.Sprintf("%d", s.Handshakes[msg]), []int{52, 199, 89}})
	}

	// Display in 2 columns
	colWidth := 85.0
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(stat.color[0], stat.color[1], stat.color[2])
		pdf.CellFormat(colWidth-50, 7, stat.value, "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(10)
}

// addTiers adds queued and launched counts per tier
func (e *PDFExporter) addTiers(pdf *gofpdf.Fpdf, report *domain.EngagementReport) {
	e.section(pdf, "Attack Tiers")

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(50, 8, "Tier", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Queued", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Launched", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, tier := range []domain.Tier{domain.TierClone, domain.TierHigh, domain.TierMedium, domain.TierFast} {
		r, g, b := e.getTierColor(tier)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(50, 7, tier.String(), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(40, 7, fmt.Sprintf("%d", report.Stats.QueuedByTier[tier.String()]), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("%d", report.Stats.LaunchedByTier[tier.String()]), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

// getTierColor returns RGB color based on tier
func (e *PDFExporter) getTierColor(tier domain.Tier) (r, g, b int) {
	switch tier {
	case domain.TierClone:
		return 220, 53, 69 // Red
	case domain.TierHigh:
		return 255, 149, 0 // Orange
	case domain.TierMedium:
		return 204, 163, 0 // Amber
	default:
		return 52, 199, 89 // Green
	}
}

// addSessions lists the sessions live when the report was taken
func (e *PDFExporter) addSessions(pdf *gofpdf.Fpdf, tr func(string) string, report *domain.EngagementReport) {
	e.section(pdf, "Live Portal Sessions")

	if len(report.Sessions) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No live sessions", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(55, 8, "SSID", "1", 0, "L", true, 0, "")
	pdf.CellFormat(15, 8, "Ch", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Tier", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "State", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Launched", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, s := range report.Sessions {
		pdf.CellFormat(55, 7, tr(truncate(s.SSID, 28)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", s.Channel), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 7, s.Tier.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, s.State.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, s.LaunchedAt.Format("15:04:05"), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

// addCredentials adds the captured credential table, newest first
func (e *PDFExporter) addCredentials(pdf *gofpdf.Fpdf, tr func(string) string, report *domain.EngagementReport) {
	e.section(pdf, "Captured Credentials")

	if len(report.Credentials) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No credentials captured", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	creds := append([]domain.Credential(nil), report.Credentials...)
	sort.SliceStable(creds, func(i, j int) bool { return creds[i].CapturedAt.After(creds[j].CapturedAt) })

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(32, 8, "Captured", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 8, "SSID", "1", 0, "L", true, 0, "")
	pdf.CellFormat(28, 8, "Client", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Username", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Password", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, c := range creds {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		password := c.Password
		if !report.RevealSecrets {
			password = maskSecret(password)
		}
		pdf.CellFormat(32, 7, c.CapturedAt.Format("01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 7, tr(truncate(c.SSID, 22)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 7, truncate(c.ClientAddr, 15), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, tr(truncate(c.Username, 22)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, tr(truncate(password, 14)), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

// addFooter adds the report footer
func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report *domain.EngagementReport) {
	pdf.SetY(-20)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	id := report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated by %s | Report ID: %s", report.GeneratedBy, id), "", 1, "C", false, 0, "")
}

// maskSecret keeps the first character and the length.
func maskSecret(s string) string {
	r := []rune(s)
	switch len(r) {
	case 0:
		return ""
	case 1:
		return "*"
	}
	return string(r[0]) + strings.Repeat("*", len(r)-1)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
