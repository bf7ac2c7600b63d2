package engine

import (
	"bytes"
	"context"
	"errors"
	"net"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/handshake"
	"github.com/lcalzada-xor/wkarma/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/services/dedup"
	"github.com/lcalzada-xor/wkarma/internal/core/services/scheduler"
	"github.com/lcalzada-xor/wkarma/internal/core/services/tracker"
)

// cloneCounter counts beacons of one SSID within a CloneWindow.
type cloneCounter struct {
	count       int
	windowStart time.Time
	emitted     bool
	last        domain.BeaconEvent
}

// ingest drains the three inboxes.
func (e *Engine) ingest(ctx context.Context, now time.Time) {
	for slot := e.probes.Peek(); slot != nil; slot = e.probes.Peek() {
		e.handleProbe(slot, now)
		e.probes.Release()
	}
	for slot := e.beacons.Peek(); slot != nil; slot = e.beacons.Peek() {
		e.handleBeacon(slot, now)
		e.beacons.Release()
	}
	for slot := e.eapol.Peek(); slot != nil; slot = e.eapol.Peek() {
		e.handleEAPOL(slot, now)
		e.eapol.Release()
	}
}

func (e *Engine) handleProbe(slot *rxSlot, now time.Time) {
	raw := slot.frame()
	p, err := ie.ParseProbe(raw)
	if err != nil {
		e.malformed++
		return
	}
	if len(raw) > domain.MaxRawFrameLen {
		raw = raw[:domain.MaxRawFrameLen]
	}
	ev := domain.ProbeEvent{
		MAC:         append(net.HardwareAddr(nil), p.MAC...),
		SSID:        p.SSID,
		RSSI:        slot.rssi,
		Timestamp:   now,
		Channel:     slot.channel,
		RawFrame:    append([]byte(nil), raw...),
		Fingerprint: tracker.Fingerprint(p.IEs),
	}
	e.probesTotal++
	e.history.Push(ev)
	e.historyDirty = true

	if e.dedup.Seen(dedup.Key(ev), now) {
		e.duplicates++
		return
	}
	prof := e.tracker.Ingest(ev)
	if ev.Wildcard() {
		return
	}

	bait := e.batcher.RecordResponse(ev.SSID, now)
	e.answerProbe(ev, bait, now)

	score := tracker.PriorityScore(prof, ev)
	tier := tracker.TierOf(score)
	if tier == domain.TierNone || tracker.InCooldown(prof, now) {
		return
	}
	if _, live := e.mux.Find(ev.SSID); live {
		return
	}

	req := scheduler.NewRequest(ev, tier, score)
	if req.Channel == 0 {
		req.Channel = prof.FavoriteChannel
	}
	switch err := e.sched.Admit(req); {
	case err == nil:
		e.tracker.MarkAttempt(prof.Fingerprint, now)
		e.logger.Debug("request admitted", "ssid", req.SSID, "tier", tier.String(), "score", score, "target", ev.MAC.String())
	case errors.Is(err, scheduler.ErrQueueFull):
		e.logger.Debug("request rejected", "ssid", req.SSID, "tier", tier.String(), "reason", err)
	}
}

func (e *Engine) handleBeacon(slot *rxSlot, now time.Time) {
	raw := slot.frame()
	p, err := ie.ParseProbe(raw)
	if err != nil {
		e.malformed++
		return
	}
	if ie.IsHidden(p.SSID) {
		return // hidden network
	}
	if _, live := e.mux.Find(p.SSID); live || bytes.Equal(p.MAC, e.rotator.BSSID(now)) {
		return // our own bait
	}
	e.beaconsSeen++

	sec, err := ie.ParseSecuritySummary(raw)
	if err != nil {
		e.malformed++
		return
	}
	ch, err := ie.ParseChannel(p.IEs)
	if err != nil || ch == 0 {
		ch = slot.channel
	}

	c, ok := e.clones[p.SSID]
	if !ok {
		if len(e.clones) >= domain.MaxCloneCandidates {
			e.pruneClones(now)
			if len(e.clones) >= domain.MaxCloneCandidates {
				return
			}
		}
		c = &cloneCounter{windowStart: now}
		e.clones[p.SSID] = c
	}
	if now.Sub(c.windowStart) >= domain.CloneWindow {
		c.count, c.windowStart, c.emitted = 0, now, false
	}
	c.count++
	c.last = domain.BeaconEvent{
		BSSID:     append(c.last.BSSID[:0], p.MAC...),
		SSID:      p.SSID,
		Channel:   ch,
		RSSI:      slot.rssi,
		Security:  sec,
		Timestamp: now,
	}

	if c.count >= domain.CloneThreshold && !c.emitted {
		c.emitted = true
		req := scheduler.NewCloneRequest(c.last, now)
		req.BSSID = append(net.HardwareAddr(nil), c.last.BSSID...)
		if err := e.sched.Admit(req); err != nil {
			e.logger.Debug("clone request rejected", "ssid", req.SSID, "reason", err)
			return
		}
		e.logger.Info("clone candidate", "ssid", req.SSID, "bssid", req.BSSID.String(), "channel", ch, "security", sec.String())
	}
}

// pruneClones drops counters whose window has elapsed.
func (e *Engine) pruneClones(now time.Time) {
	for ssid, c := range e.clones {
		if now.Sub(c.windowStart) >= domain.CloneWindow {
			delete(e.clones, ssid)
		}
	}
}

func (e *Engine) handleEAPOL(slot *rxSlot, now time.Time) {
	hs, err := handshake.ClassifyFrame(slot.frame(), slot.channel, now)
	if err != nil {
		return
	}
	e.handshakeN[hs.Message]++
	if e.handshakes == nil {
		return
	}
	hs.Frame = append([]byte(nil), hs.Frame...)
	hs.BSSID = append(net.HardwareAddr(nil), hs.BSSID...)
	hs.Station = append(net.HardwareAddr(nil), hs.Station...)
	if err := e.handshakes.WriteHandshake(hs); err != nil {
		e.logger.Warn("handshake write failed", "bssid", hs.BSSID.String(), "message", hs.Message.String(), "error", err)
	}
}
