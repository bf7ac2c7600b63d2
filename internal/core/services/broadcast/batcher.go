// Package broadcast streams a large SSID dictionary as bait networks. Only a
// bounded batch of the dictionary is held in memory at any time, and SSIDs
// that draw probe traffic are promoted into a short list advertised more
// often.
package broadcast

import (
	"log/slog"
	"time"

	"github.com/lcalzada-xor/wkarma/internal/core/domain"
	"github.com/lcalzada-xor/wkarma/internal/core/ports"
)

// Batcher owns the dictionary cursor and the high-priority list. Not safe
// for concurrent use.
type Batcher struct {
	dict   ports.SSIDDictionary
	logger *slog.Logger

	batch      []string
	batchStart int // dictionary index of batch[0]
	pos        int
	loaded     bool
	empty      bool

	high      []string
	hiIdx     int
	responses map[string]int

	advertised map[string]time.Time
	lastSent   time.Time
	sent       uint64
	current    string
	readErrors uint64
}

// New creates a batcher over dict. A nil dictionary disables broadcasting.
func New(dict ports.SSIDDictionary, logger *slog.Logger) *Batcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		dict:       dict,
		logger:     logger.With("component", "broadcast"),
		responses:  make(map[string]int),
		advertised: make(map[string]time.Time),
	}
}

// Active reports whether there is anything to broadcast.
func (b *Batcher) Active() bool {
	if len(b.high) > 0 {
		return true
	}
	if b.dict == nil {
		return false
	}
	if !b.loaded {
		b.load(0)
	}
	return !b.empty
}

// Next returns the SSID to advertise at now, or false when the broadcast
// interval has not elapsed or nothing is available. Every HighPriorityEvery-th
// broadcast is drawn from the high-priority list when it is not empty.
func (b *Batcher) Next(now time.Time) (string, bool) {
	if !b.lastSent.IsZero() && now.Sub(b.lastSent) < domain.BroadcastInterval {
		return "", false
	}
	b.prune(now)

	var ssid string
	if len(b.high) > 0 && (b.sent+1)%domain.HighPriorityEvery == 0 {
		ssid = b.high[b.hiIdx%len(b.high)]
		b.hiIdx++
	} else if s, ok := b.fromDictionary(); ok {
		ssid = s
	} else if len(b.high) > 0 {
		ssid = b.high[b.hiIdx%len(b.high)]
		b.hiIdx++
	} else {
		return "", false
	}

	b.sent++
	b.lastSent = now
	b.current = ssid
	b.advertised[ssid] = now
	return ssid, true
}

func (b *Batcher) fromDictionary() (string, bool) {
	if b.dict == nil || (b.loaded && b.empty) {
		return "", false
	}
	if !b.loaded || b.pos >= len(b.batch) {
		next := 0
		if b.loaded && len(b.batch) == domain.BatchSize {
			next = b.batchStart + len(b.batch)
		}
		if !b.load(next) || b.empty {
			return "", false
		}
	}
	ssid := b.batch[b.pos]
	b.pos++
	return ssid, true
}

// load reads the batch starting at start, wrapping to the beginning of the
// dictionary when start is past its end.
func (b *Batcher) load(start int) bool {
	batch, err := b.dict.ReadBatch(start, domain.BatchSize)
	if err != nil {
		b.readErrors++
		b.logger.Warn("dictionary read failed", "start", start, "error", err)
		return false
	}
	if len(batch) == 0 && start > 0 {
		start = 0
		if batch, err = b.dict.ReadBatch(0, domain.BatchSize); err != nil {
			b.readErrors++
			b.logger.Warn("dictionary read failed", "start", 0, "error", err)
			return false
		}
	}
	b.loaded = true
	b.empty = len(batch) == 0
	b.batch = append(b.batch[:0], batch...)
	b.batchStart = start
	b.pos = 0
	return true
}

func (b *Batcher) prune(now time.Time) {
	for ssid, at := range b.advertised {
		if now.Sub(at) > domain.BaitResponseWindow {
			delete(b.advertised, ssid)
		}
	}
}

// RecordResponse credits ssid with a response when it was advertised within
// BaitResponseWindow of now, promoting it into the high-priority list.
// Reports whether the probe counted as a response.
func (b *Batcher) RecordResponse(ssid string, now time.Time) bool {
	at, ok := b.advertised[ssid]
	if !ok || now.Sub(at) > domain.BaitResponseWindow {
		return false
	}
	b.responses[ssid]++
	b.promote(ssid)
	return true
}

// promote adds ssid to the high-priority list, evicting the entry with the
// fewest responses when full.
func (b *Batcher) promote(ssid string) {
	for _, s := range b.high {
		if s == ssid {
			return
		}
	}
	if len(b.high) < domain.HighPriorityCapacity {
		b.high = append(b.high, ssid)
		b.logger.Info("SSID promoted", "ssid", ssid, "responses", b.responses[ssid])
		return
	}
	victim := 0
	for i, s := range b.high {
		if b.responses[s] < b.responses[b.high[victim]] {
			victim = i
		}
	}
	if b.responses[b.high[victim]] >= b.responses[ssid] {
		return
	}
	delete(b.responses, b.high[victim])
	b.high[victim] = ssid
	b.logger.Info("SSID promoted", "ssid", ssid, "responses", b.responses[ssid])
}

// Current returns the SSID advertised last.
func (b *Batcher) Current() string { return b.current }

// Sent returns how many broadcasts were issued.
func (b *Batcher) Sent() uint64 { return b.sent }

// Responses returns the response count recorded for ssid.
func (b *Batcher) Responses(ssid string) int { return b.responses[ssid] }

// HighPriority returns a copy of the high-priority list.
func (b *Batcher) HighPriority() []string {
	out := make([]string, len(b.high))
	copy(out, b.high)
	return out
}

// Cursor returns the dictionary index of the next SSID.
func (b *Batcher) Cursor() int { return b.batchStart + b.pos }

// Reset rewinds the dictionary and forgets promotions.
func (b *Batcher) Reset() {
	b.batch = b.batch[:0]
	b.batchStart, b.pos = 0, 0
	b.loaded, b.empty = false, false
	b.high = nil
	b.hiIdx = 0
	b.responses = make(map[string]int)
	b.advertised = make(map[string]time.Time)
	b.lastSent = time.Time{}
	b.sent = 0
	b.current = ""
}
