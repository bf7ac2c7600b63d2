package domain

import "time"

// Capacities. Every core structure is bounded by one of these.
const (
	ProbeInboxCapacity     = 64
	HandshakeInboxCapacity = 32
	ProbeHistoryCapacity   = 64
	CommandMailboxCapacity = 8

	MaxRawFrameLen = 256 // bytes of a received frame retained on a ProbeEvent
	MaxFrameLen    = 256 // upper bound for every synthesized frame
	MaxSSIDLen     = 32

	MaxClients              = 150
	MaxProbedSSIDs          = 5
	VulnerableSSIDThreshold = 3

	DedupCapacity = 100

	RequestQueueCapacity = 10
	MaxConcurrentMedium  = 2

	MaxSessions = 4

	MaxCloneCandidates = 64 // SSIDs with a live beacon counter

	HighPriorityCapacity = 8
	BatchSize            = 50
)

// Windows, horizons and intervals.
const (
	DedupWindow    = 500 * time.Millisecond
	RequestHorizon = 30 * time.Second
	AttackCooldown = 30 * time.Second

	CloneWindow    = 60 * time.Second
	CloneThreshold = 20

	VictimActivityWindow = 5 * time.Second
	SessionIdleCeiling   = 180 * time.Second

	RateWindow  = 1 * time.Second
	RateCeiling = 20
	DeauthBurst = 5

	ScanHopInterval         = 500 * time.Millisecond
	BroadcastRotateInterval = 2 * time.Second
	BroadcastInterval       = 100 * time.Millisecond
	HighPriorityEvery       = 3
	BaitResponseWindow      = 10 * time.Second
	BeaconUpkeepInterval    = 100 * time.Millisecond
	APRotationInterval      = 30 * time.Second
)

// Priority score weights and tier cutoffs. Values are empirical; keep them as-is.
const (
	ScoreRSSIStrong   = 30 // rssi > -50
	ScoreRSSIGood     = 20 // rssi > -65
	ScoreRSSIFair     = 10 // rssi > -75
	ScorePerProbe     = 2
	ScoreProbeMax     = 30
	ScoreVulnerable   = 25
	ScoreRecentNear   = 15 // last sighting within RecencyNear
	ScoreRecentFar    = 5  // last sighting within RecencyFar
	RecencyNear       = 10 * time.Second
	RecencyFar        = 60 * time.Second
	TierCutoffFast    = 20
	TierCutoffMedium  = 45
	TierCutoffHigh    = 70
	DurationFast      = 15 * time.Second
	DurationMedium    = 30 * time.Second
	DurationHigh      = 60 * time.Second
	DurationClone     = 90 * time.Second
	DefaultDeauthCode = 7 // class 3 frame received from nonassociated station
)

// Channel tables.
var (
	ScanChannels      = []int{1, 6, 11, 2, 7, 3, 8, 4, 9, 5, 10}
	BroadcastChannels = []int{1, 6, 11}
)
