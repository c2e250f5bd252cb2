package server

// Wire messages crossing the authority boundary. Every authority-to-client
// message carries a monotonically increasing Seq so consumers can detect
// and discard out-of-order delivery; the transport itself makes no
// ordering promise.

// ClientFireMessage is the client-to-authority fire intent envelope.
type ClientFireMessage struct {
	Ver     int         `json:"ver,omitempty" jsonschema:"description=Protocol version"`
	Type    string      `json:"type" jsonschema:"description=Always fire"`
	Request ShotRequest `json:"request" jsonschema:"description=The shot intent; shooterId must match the sender"`
}

// ClientHeartbeatMessage keeps a subscriber connection alive.
type ClientHeartbeatMessage struct {
	Ver    int    `json:"ver,omitempty"`
	Type   string `json:"type" jsonschema:"description=Always heartbeat"`
	SentAt int64  `json:"sentAt" jsonschema:"description=Client clock in unix milliseconds"`
}

// WelcomeMessage is the snapshot a subscriber receives on attach.
type WelcomeMessage struct {
	Ver     int                 `json:"ver"`
	Type    string              `json:"type"`
	Seq     uint64              `json:"seq"`
	ID      string              `json:"id"`
	Running bool                `json:"running"`
	Scoring ScoringTable        `json:"scoring"`
	Ledger  []PlayerLedgerEntry `json:"ledger"`
}

// MatchStartedMessage replicates the fresh ledger when a match begins.
type MatchStartedMessage struct {
	Ver    int                 `json:"ver"`
	Type   string              `json:"type"`
	Seq    uint64              `json:"seq"`
	Ammo   int                 `json:"ammo"`
	Ledger []PlayerLedgerEntry `json:"ledger"`
}

// ShotFiredMessage relays an accepted fire intent to every participant so
// clients can spawn the visual projectile. It precedes hit resolution.
type ShotFiredMessage struct {
	Ver     int         `json:"ver"`
	Type    string      `json:"type"`
	Seq     uint64      `json:"seq"`
	ShotID  string      `json:"shotId"`
	Request ShotRequest `json:"request"`
}

// HitRegisteredMessage relays one resolved outcome, misses included.
type HitRegisteredMessage struct {
	Ver     int         `json:"ver"`
	Type    string      `json:"type"`
	Seq     uint64      `json:"seq"`
	ShotID  string      `json:"shotId"`
	Outcome ShotOutcome `json:"outcome"`
}

// ScoreChangedMessage replicates a single mutated ledger entry's score.
type ScoreChangedMessage struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	Seq      uint64 `json:"seq"`
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

// MatchEndedMessage announces the winner. The ledger stays queryable.
type MatchEndedMessage struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	Seq      uint64 `json:"seq"`
	WinnerID string `json:"winnerId"`
}

// ScoringTableMessage replicates a wholesale scoring table replacement.
type ScoringTableMessage struct {
	Ver     int          `json:"ver"`
	Type    string       `json:"type"`
	Seq     uint64       `json:"seq"`
	Scoring ScoringTable `json:"scoring"`
}

// HeartbeatAckMessage answers a client heartbeat.
type HeartbeatAckMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

// JoinResponse is returned by the HTTP join endpoint.
type JoinResponse struct {
	Ver     int                 `json:"ver"`
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Running bool                `json:"running"`
	Scoring ScoringTable        `json:"scoring"`
	Ledger  []PlayerLedgerEntry `json:"ledger"`
}

// MatchResult is the final ledger handed to the archive boundary when a
// match ends. Persistence itself stays outside the core.
type MatchResult struct {
	WinnerID string              `json:"winnerId"`
	EndedAt  int64               `json:"endedAt"`
	Entries  []PlayerLedgerEntry `json:"entries"`
}

// WireContract enumerates every message shape crossing the authority
// boundary. The protoschema tool reflects over it to emit a
// machine-readable contract for client tooling.
type WireContract struct {
	Fire          ClientFireMessage      `json:"fire"`
	Heartbeat     ClientHeartbeatMessage `json:"heartbeat"`
	Welcome       WelcomeMessage         `json:"welcome"`
	MatchStarted  MatchStartedMessage    `json:"matchStarted"`
	ShotFired     ShotFiredMessage       `json:"shotFired"`
	HitRegistered HitRegisteredMessage   `json:"hitRegistered"`
	ScoreChanged  ScoreChangedMessage    `json:"scoreChanged"`
	MatchEnded    MatchEndedMessage      `json:"matchEnded"`
	ScoringTable  ScoringTableMessage    `json:"scoringTable"`
	HeartbeatAck  HeartbeatAckMessage    `json:"heartbeatAck"`
}
