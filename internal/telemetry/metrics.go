package telemetry

import (
	"sync"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PacketsCaptured counts total frames received by the radio
	PacketsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wkarma",
			Name:      "packets_captured_total",
			Help:      "Total number of frames captured by the radio",
		},
		[]string{"interface"},
	)

	// PacketsDropped counts frames the radio could not decode
	PacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wkarma",
			Name:      "packets_dropped_total",
			Help:      "Total number of frames dropped",
		},
		[]string{"interface", "reason"},
	)

	// InjectionsTotal counts total injection attempts
	InjectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wkarma",
			Name:      "injection_total",
			Help:      "Total number of frame injection attempts",
		},
		[]string{"interface"},
	)

	// InjectionErrors counts failed injection attempts
	InjectionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wkarma",
			Name:      "injection_errors_total",
			Help:      "Total number of failed frame injection attempts",
		},
		[]string{"interface"},
	)

	// EngineGauges mirrors the engine stats snapshot
	EngineGauges = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wkarma",
			Subsystem: "engine",
			Name:      "state",
			Help:      "Engine counters and levels from the last tick",
		},
		[]string{"name"},
	)

	// QueuedRequests is the attack queue depth per tier
	QueuedRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wkarma",
			Subsystem: "scheduler",
			Name:      "queued_requests",
			Help:      "Queued attack requests by tier",
		},
		[]string{"tier"},
	)

	// LaunchedRequests is the number of launched sessions per tier
	LaunchedRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wkarma",
			Subsystem: "scheduler",
			Name:      "launched_requests",
			Help:      "Launched attack requests by tier",
		},
		[]string{"tier"},
	)

	// HandshakeMessages counts classified EAPOL-Key frames per message
	HandshakeMessages = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wkarma",
			Subsystem: "handshake",
			Name:      "messages",
			Help:      "Classified handshake frames by message",
		},
		[]string{"message"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(PacketsCaptured)
		prometheus.DefaultRegisterer.Register(PacketsDropped)
		prometheus.DefaultRegisterer.Register(InjectionsTotal)
		prometheus.DefaultRegisterer.Register(InjectionErrors)
		prometheus.DefaultRegisterer.Register(EngineGauges)
		prometheus.DefaultRegisterer.Register(QueuedRequests)
		prometheus.DefaultRegisterer.Register(LaunchedRequests)
		prometheus.DefaultRegisterer.Register(HandshakeMessages)
	})
}

// ObserveStats copies an engine snapshot into the gauges.
func ObserveStats(s domain.EngineStats) {
	g := EngineGauges
	g.WithLabelValues("probes_total").Set(float64(s.ProbesTotal))
	g.WithLabelValues("probes_dropped").Set(float64(s.ProbesDropped))
	g.WithLabelValues("probes_duplicate").Set(float64(s.ProbesDuplicate))
	g.WithLabelValues("beacons_observed").Set(float64(s.BeaconsObserved))
	g.WithLabelValues("clients").Set(float64(s.Clients))
	g.WithLabelValues("vulnerable_clients").Set(float64(s.VulnerableCount))
	g.WithLabelValues("queue_depth").Set(float64(s.QueueDepth))
	g.WithLabelValues("rejected").Set(float64(s.Rejected))
	g.WithLabelValues("sessions").Set(float64(s.Sessions))
	g.WithLabelValues("credentials").Set(float64(s.Credentials))
	g.WithLabelValues("frames_sent").Set(float64(s.FramesSent))
	g.WithLabelValues("frames_throttled").Set(float64(s.FramesThrottled))
	g.WithLabelValues("channel").Set(float64(s.Channel))
	g.WithLabelValues("locked_channel").Set(float64(s.LockedChannel))
	paused := 0.0
	if s.Paused {
		paused = 1
	}
	g.WithLabelValues("paused").Set(paused)

	for tier, n := range s.QueuedByTier {
		QueuedRequests.WithLabelValues(tier).Set(float64(n))
	}
	for tier, n := range s.LaunchedByTier {
		LaunchedRequests.WithLabelValues(tier).Set(float64(n))
	}
	for msg, n := range s.Handshakes {
		HandshakeMessages.WithLabelValues(msg).Set(float64(n))
	}
}
