// Package engine drives the Karma orchestration loop. One goroutine calls
// Tick; the radio driver feeds frames through preallocated mailboxes; the UI
// pushes commands and reads published snapshots. Nothing else touches engine
// state.
package engine

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/injection"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
	"github.com/lcalzada-xor/wkarma/internal/core/ring"
	"github.com/lcalzada-xor/wkarma/internal/core/services/airtime"
	"github.com/lcalzada-xor/wkarma/internal/core/services/broadcast"
	"github.com/lcalzada-xor/wkarma/internal/core/services/dedup"
	"github.com/lcalzada-xor/wkarma/internal/core/services/portal"
	"github.com/lcalzada-xor/wkarma/internal/core/services/scheduler"
	"github.com/lcalzada-xor/wkarma/internal/core/services/tracker"
	"github.com/lcalzada-xor/wkarma/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrCommandsFull = domain.ErrCommandsFull
	ErrStopped      = domain.ErrStopped
)

// Options configures an Engine. Zero values fall back to the tuning tables.
type Options struct {
	ScanChannels      []int
	BroadcastChannels []int
	Seed              int64
	Logger            *slog.Logger
}

// Engine owns every piece of core state.
type Engine struct {
	radio      ports.Radio
	handshakes ports.HandshakeWriter
	logger     *slog.Logger
	tracer     trace.Tracer

	builder *injection.PacketBuilder
	tracker *tracker.Tracker
	dedup   *dedup.Cache
	sched   *scheduler.Scheduler
	mux     *portal.Multiplexer
	limiter *airtime.Limiter
	coord   *airtime.Coordinator
	rotator *airtime.Rotator
	batcher *broadcast.Batcher

	probes   *ring.Mailbox[rxSlot]
	beacons  *ring.Mailbox[rxSlot]
	eapol    *ring.Mailbox[rxSlot]
	history  *ring.Ring[domain.ProbeEvent]
	commands chan domain.Command

	clones map[string]*cloneCounter

	paused  atomic.Bool
	running atomic.Bool
	exited  atomic.Bool

	probesTotal  uint64
	duplicates   uint64
	malformed    uint64
	beaconsSeen  uint64
	handshakeN   map[domain.HandshakeMessage]uint64
	framesSent   uint64
	txErrors     uint64
	historyDirty bool

	stats    atomic.Pointer[domain.EngineStats]
	recent   atomic.Pointer[[]domain.ProbeEvent]
	sessions atomic.Pointer[[]domain.PortalSession]
}

// New assembles an engine over its collaborators. handshakes and dict may be
// nil to disable handshake capture and dictionary broadcast.
func New(radio ports.Radio, cp ports.CaptivePortal, creds ports.CredentialWriter, handshakes ports.HandshakeWriter, dict ports.SSIDDictionary, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	e := &Engine{
		radio:      radio,
		handshakes: handshakes,
		logger:     logger.With("component", "engine"),
		tracer:     otel.Tracer("wkarma/engine"),
		builder:    injection.NewPacketBuilder(),
		tracker:    tracker.New(domain.MaxClients),
		dedup:      dedup.New(domain.DedupCapacity, domain.DedupWindow),
		sched:      scheduler.New(domain.RequestQueueCapacity),
		mux:        portal.New(cp, creds, domain.MaxSessions, logger),
		limiter:    airtime.NewLimiter(domain.RateCeiling, domain.RateWindow),
		coord:      airtime.NewCoordinator(radio, opts.ScanChannels, opts.BroadcastChannels, logger),
		rotator:    airtime.NewRotator(domain.APRotationInterval, opts.Seed),
		batcher:    broadcast.New(dict, logger),
		probes:     ring.NewMailbox[rxSlot](domain.ProbeInboxCapacity),
		beacons:    ring.NewMailbox[rxSlot](domain.ProbeInboxCapacity),
		eapol:      ring.NewMailbox[rxSlot](domain.HandshakeInboxCapacity),
		history:    ring.New[domain.ProbeEvent](domain.ProbeHistoryCapacity),
		commands:   make(chan domain.Command, domain.CommandMailboxCapacity),
		clones:     make(map[string]*cloneCounter),
		handshakeN: make(map[domain.HandshakeMessage]uint64),
	}
	e.publish(time.Time{})
	return e
}

// Start installs the receive callback. Clone counters start empty on every
// start; a pause keeps them.
func (e *Engine) Start() {
	e.clones = make(map[string]*cloneCounter)
	e.coord.Reset()
	e.limiter.Reset()
	e.exited.Store(false)
	e.running.Store(true)
	e.radio.SetReceiver(e.receive)
	e.logger.Info("engine started")
}

// Run starts the engine and ticks every interval until ctx is done or an
// Exit command arrives. Teardown has completed when Run returns.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	e.Start()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Teardown()
			return ctx.Err()
		case now := <-ticker.C:
			if !e.Tick(ctx, now) {
				return nil
			}
		}
	}
}

// Submit queues a command for the next tick. It never blocks.
func (e *Engine) Submit(cmd domain.Command) error {
	if e.exited.Load() {
		return ErrStopped
	}
	select {
	case e.commands <- cmd:
		return nil
	default:
		return ErrCommandsFull
	}
}

// Tick runs one pass of the loop at now: commands, ingestion, scheduling,
// rate bookkeeping, portal service, channel coordination. It reports false
// once the engine has exited.
func (e *Engine) Tick(ctx context.Context, now time.Time) bool {
	if e.exited.Load() {
		return false
	}
	if !e.applyCommands(now) {
		return false
	}

	if !e.paused.Load() {
		e.ingest(ctx, now)
		e.schedule(ctx, now)
	}

	e.limiter.Prune(now)

	e.coord.Unlock()
	res := e.mux.Service(ctx, now, e.coord.PortalSetter())
	if res.Locked {
		e.coord.Lock(res.Channel)
	}
	if res.Serviced != "" {
		e.upkeep(now)
	}

	broadcasting := e.broadcasting()
	e.coord.Step(now, broadcasting)
	if broadcasting {
		e.advertise(now)
	}
	e.upkeep(now)

	e.publish(now)
	return true
}

func (e *Engine) broadcasting() bool {
	return !e.paused.Load() && e.coord.Locked() == 0 && e.batcher.Active()
}

// applyCommands drains the command mailbox. It reports false after Exit.
func (e *Engine) applyCommands(now time.Time) bool {
	for {
		select {
		case cmd := <-e.commands:
			switch cmd {
			case domain.CommandPause:
				paused := !e.paused.Load()
				e.paused.Store(paused)
				e.logger.Info("pause toggled", "paused", paused)
			case domain.CommandNextChannel, domain.CommandPrevChannel:
				delta := 1
				if cmd == domain.CommandPrevChannel {
					delta = -1
				}
				if err := e.coord.Nudge(delta, now, e.broadcasting()); err != nil {
					e.logger.Debug("channel change refused", "command", cmd.String(), "error", err)
				}
			case domain.CommandExit:
				e.logger.Info("exit requested")
				e.Teardown()
				return false
			}
		default:
			return true
		}
	}
}

// Teardown stops reception, destroys every session and drains every queue
// before returning. Call it from the goroutine that drives Tick.
func (e *Engine) Teardown() {
	if e.exited.Swap(true) {
		return
	}
	_, span := e.tracer.Start(context.Background(), "Teardown",
		trace.WithAttributes(attribute.Int("sessions", e.mux.Len())))
	defer span.End()

	e.radio.SetReceiver(nil)
	e.mux.Teardown()
	e.probes.Reset()
	e.beacons.Reset()
	e.eapol.Reset()
	e.sched.Clear()
	for len(e.commands) > 0 {
		<-e.commands
	}
	e.coord.Unlock()
	e.running.Store(false)
	e.publish(time.Now())
	e.logger.Info("engine stopped")
}

// Paused reports whether ingestion and scheduling are suspended.
func (e *Engine) Paused() bool { return e.paused.Load() }

// Running reports whether the engine is between Start and Teardown.
func (e *Engine) Running() bool { return e.running.Load() }

// Stats returns the snapshot published by the last tick.
func (e *Engine) Stats() domain.EngineStats {
	return *e.stats.Load()
}

// RecentProbes returns the probe history as of the last tick, oldest first.
func (e *Engine) RecentProbes() []domain.ProbeEvent {
	if p := e.recent.Load(); p != nil {
		return *p
	}
	return nil
}

// Sessions returns the live portal sessions as of the last tick.
func (e *Engine) Sessions() []domain.PortalSession {
	if p := e.sessions.Load(); p != nil {
		return *p
	}
	return nil
}

func (e *Engine) publish(now time.Time) {
	s := &domain.EngineStats{
		ProbesTotal:      e.probesTotal,
		ProbesDropped:    e.probes.Dropped(),
		ProbesDuplicate:  e.duplicates,
		BeaconsObserved:  e.beaconsSeen,
		Clients:          e.tracker.Len(),
		VulnerableCount:  e.tracker.VulnerableCount(),
		QueueDepth:       e.sched.Len(),
		QueuedByTier:     make(map[string]int),
		LaunchedByTier:   make(map[string]uint64),
		Rejected:         e.sched.Rejected(),
		Sessions:         e.mux.Len(),
		Credentials:      e.mux.Captured(),
		Handshakes:       make(map[string]uint64),
		FramesSent:       e.framesSent,
		FramesThrottled:  e.limiter.Throttled(),
		Channel:          e.coord.Channel(),
		Owner:            e.coord.Owner().String(),
		LockedChannel:    e.coord.Locked(),
		BroadcastSSID:    e.batcher.Current(),
		HighPrioritySSID: e.batcher.HighPriority(),
		Paused:           e.paused.Load(),
		Running:          e.running.Load(),
		UpdatedAt:        now,
	}
	for tier, n := range e.sched.CountByTier() {
		s.QueuedByTier[tier.String()] = n
	}
	for _, tier := range domain.Tiers {
		s.LaunchedByTier[tier.String()] = e.sched.Launched(tier)
	}
	for msg, n := range e.handshakeN {
		s.Handshakes[msg.String()] = n
	}
	e.stats.Store(s)
	telemetry.ObserveStats(*s)

	if e.historyDirty || e.recent.Load() == nil {
		probes := make([]domain.ProbeEvent, 0, e.history.Len())
		e.history.Each(func(p domain.ProbeEvent) bool {
			probes = append(probes, p)
			return true
		})
		e.recent.Store(&probes)
		e.historyDirty = false
	}
	sessions := e.mux.Sessions()
	e.sessions.Store(&sessions)
}

// sessionBSSID derives the bait address for a new non-clone session from the
// rotating base address, offset by the launch count.
func (e *Engine) sessionBSSID(now time.Time) net.HardwareAddr {
	bssid := append(net.HardwareAddr(nil), e.rotator.BSSID(now)...)
	bssid[5] += byte(e.mux.Launched())
	return bssid
}
