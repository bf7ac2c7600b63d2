package tracker

import (
	"github.com/lcalzada-xor/wkarma/internal/core/domain"
)

// PriorityScore weighs signal strength, probe frequency, vulnerability and
// the gap since the previous sighting. Wildcard probes always score zero.
func PriorityScore(prof *domain.ClientProfile, p domain.ProbeEvent) int {
	if prof == nil || p.Wildcard() {
		return 0
	}

	score := 0
	switch {
	case p.RSSI > -50:
		score += domain.ScoreRSSIStrong
	case p.RSSI > -65:
		score += domain.ScoreRSSIGood
	case p.RSSI > -75:
		score += domain.ScoreRSSIFair
	}

	freq := prof.ProbeCount * domain.ScorePerProbe
	if freq > domain.ScoreProbeMax {
		freq = domain.ScoreProbeMax
	}
	score += freq

	if prof.Vulnerable {
		score += domain.ScoreVulnerable
	}

	if !prof.PreviousSeen.IsZero() {
		gap := p.Timestamp.Sub(prof.PreviousSeen)
		switch {
		case gap <= domain.RecencyNear:
			score += domain.ScoreRecentNear
		case gap <= domain.RecencyFar:
			score += domain.ScoreRecentFar
		}
	}
	return score
}

// TierOf maps a score to a tier. Clone is never returned; it is assigned
// from beacon observation.
func TierOf(score int) domain.Tier {
	switch {
	case score >= domain.TierCutoffHigh:
		return domain.TierHigh
	case score >= domain.TierCutoffMedium:
		return domain.TierMedium
	case score >= domain.TierCutoffFast:
		return domain.TierFast
	}
	return domain.TierNone
}
