package server

import (
	"context"
	"errors"
	"sync"

	"nock-and-loose/server/internal/feed"
	"nock-and-loose/server/logging"
	matchlog "nock-and-loose/server/logging/match"
)

// EventSink receives every broadcast the session emits. The hub implements
// it by fanning wire messages out to subscribers; tests use a memory sink.
// Callbacks run with the session serialized and must not call back into it.
type EventSink interface {
	MatchStarted(entries []PlayerLedgerEntry, ammo int)
	ShotFired(req ShotRequest)
	HitRegistered(out ShotOutcome)
	ScoreChanged(playerID string, score int)
	MatchEnded(winnerID string)
	ScoringTableChanged(table ScoringTable)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) MatchStarted([]PlayerLedgerEntry, int) {}
func (NopSink) ShotFired(ShotRequest)                 {}
func (NopSink) HitRegistered(ShotOutcome)             {}
func (NopSink) ScoreChanged(string, int)              {}
func (NopSink) MatchEnded(string)                     {}
func (NopSink) ScoringTableChanged(ScoringTable)      {}

// ErrInvalidAmmo rejects a start request with a non-positive allowance.
var ErrInvalidAmmo = errors.New("ammunition per player must be positive")

// SessionConfig wires the session collaborators. Sink and Publisher may be
// nil; the resolver is required for shots to ever land.
type SessionConfig struct {
	Scoring   ScoringTable
	Sink      EventSink
	Publisher logging.Publisher
}

// Session owns the match ledger, scoring table and running flag. It is the
// single authority boundary: every ledger mutation funnels through one of
// its entry points, each processed to completion before the next.
type Session struct {
	mu        sync.Mutex
	running   bool
	scoring   ScoringTable
	ledger    ledger
	resolver  *Resolver
	sink      EventSink
	pub       logging.Publisher
	changes   *feed.Feed[PlayerLedgerEntry]
	processed uint64
}

// Authority is the capability required to mutate match state outside the
// shot path. NewSession hands it out exactly once; code without it only
// sees the read surface.
type Authority struct {
	session *Session
}

// NewSession constructs a session and its authority capability.
func NewSession(resolver *Resolver, cfg SessionConfig) (*Session, *Authority) {
	scoring := cfg.Scoring
	if scoring == (ScoringTable{}) {
		scoring = DefaultScoringTable()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	s := &Session{
		scoring:  scoring,
		ledger:   newLedger(),
		resolver: resolver,
		sink:     sink,
		pub:      pub,
		changes:  feed.New[PlayerLedgerEntry](),
	}
	return s, &Authority{session: s}
}

// SetSink replaces the event sink before the session goes live. The hub
// uses it because hub and session reference each other.
func (s *Session) SetSink(sink EventSink) {
	if sink == nil {
		sink = NopSink{}
	}
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

// Changes exposes the ledger change feed for replica consumers.
func (s *Session) Changes() *feed.Feed[PlayerLedgerEntry] {
	return s.changes
}

// Running reports the match state flag.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Scoring returns the current scoring table.
func (s *Session) Scoring() ScoringTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoring
}

// Entry returns a copy of one ledger entry.
func (s *Session) Entry(playerID string) (PlayerLedgerEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.ledger.entry(playerID)
	if entry == nil {
		return PlayerLedgerEntry{}, false
	}
	return *entry, true
}

// Entries returns the ledger in roster order.
func (s *Session) Entries() []PlayerLedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.snapshot()
}

// SubmitShot validates and resolves one fire request on behalf of the
// verified sender. Rejected requests are dropped without any broadcast;
// the reason is reported to the caller and logged, never to the client.
func (s *Session) SubmitShot(req ShotRequest, senderID string) (ShotOutcome, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor := logging.EntityRef{ID: senderID, Kind: logging.EntityKindPlayer}

	// Anti-spoof: the claimed shooter must be the verified sender. Forged
	// requests get no acknowledgement of any kind.
	if req.ShooterID != senderID {
		matchlog.ShotRejected(context.Background(), s.pub, actor, matchlog.ShotRejectedPayload{
			Reason:    ShotRejectSpoofedShooter,
			ClaimedID: req.ShooterID,
		})
		return ShotOutcome{}, false, ShotRejectSpoofedShooter
	}

	entry := s.ledger.entry(senderID)
	if entry == nil {
		matchlog.ShotRejected(context.Background(), s.pub, actor, matchlog.ShotRejectedPayload{
			Reason: ShotRejectUnknownPlayer,
		})
		return ShotOutcome{}, false, ShotRejectUnknownPlayer
	}

	if entry.Ammo <= 0 {
		matchlog.ShotRejected(context.Background(), s.pub, actor, matchlog.ShotRejectedPayload{
			Reason: ShotRejectOutOfAmmo,
		})
		return ShotOutcome{}, false, ShotRejectOutOfAmmo
	}

	entry.Ammo--
	entry.ShotsFired++
	s.processed++
	shot := s.processed

	matchlog.ShotFired(context.Background(), s.pub, shot, actor)

	// The projectile broadcast precedes resolution and fires regardless of
	// outcome so every client can spawn the visual.
	s.sink.ShotFired(req)

	outcome := s.resolver.Resolve(req, s.scoring)

	if outcome.Valid {
		// Score and the hit counter are credited to the shooter; the
		// target identity is carried for display only.
		entry.Score += outcome.Score
		entry.HitsLanded++
	}

	target := logging.EntityRef{ID: outcome.TargetID, Kind: logging.EntityKindPlayer}
	matchlog.HitRegistered(context.Background(), s.pub, shot, actor, target, matchlog.HitPayload{
		Region: string(outcome.Region),
		Score:  outcome.Score,
		Valid:  outcome.Valid,
	})

	s.sink.HitRegistered(outcome)
	if outcome.Valid {
		s.sink.ScoreChanged(entry.PlayerID, entry.Score)
	}

	s.changes.Publish(entry.PlayerID, *entry)

	return outcome, true, ""
}

// Start populates a fresh ledger from the roster and flips the session to
// running. Calling it while a match is running resets and restarts.
func (a *Authority) Start(roster []RosterSlot, ammoPerPlayer int) error {
	s := a.session
	if ammoPerPlayer <= 0 {
		matchlog.StartRejected(context.Background(), s.pub, matchlog.StartRejectedPayload{
			Reason: "invalid_ammo",
			Ammo:   ammoPerPlayer,
		})
		return ErrInvalidAmmo
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.reset(roster, ammoPerPlayer)
	s.changes.Reset()
	s.running = true

	entries := s.ledger.snapshot()
	matchlog.Started(context.Background(), s.pub, matchlog.StartedPayload{
		Players: len(entries),
		Ammo:    ammoPerPlayer,
	})

	s.sink.MatchStarted(entries, ammoPerPlayer)
	for _, entry := range entries {
		s.changes.Publish(entry.PlayerID, entry)
	}
	return nil
}

// End flips the session out of running and announces the winner. The
// ledger is left intact for post-match display. End is idempotent: a
// second call changes nothing and broadcasts nothing.
func (a *Authority) End(winnerID string) bool {
	s := a.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	s.running = false

	matchlog.Ended(context.Background(), s.pub, matchlog.EndedPayload{WinnerID: winnerID})
	s.sink.MatchEnded(winnerID)
	return true
}

// UpdateScoringTable replaces the table wholesale and replicates it.
func (a *Authority) UpdateScoringTable(table ScoringTable) {
	s := a.session
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scoring = table
	matchlog.ScoringUpdated(context.Background(), s.pub)
	s.sink.ScoringTableChanged(table)
}

// Session exposes the read surface behind the capability, for hosts that
// hold only the authority.
func (a *Authority) Session() *Session {
	return a.session
}

// Result snapshots the final state of the most recent match for archival.
func (s *Session) Result(winnerID string) MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MatchResult{
		WinnerID: winnerID,
		Entries:  s.ledger.snapshot(),
	}
}
