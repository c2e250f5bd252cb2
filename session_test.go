package server

import (
	"context"
	"testing"

	"nock-and-loose/server/logging"
	matchlog "nock-and-loose/server/logging/match"
)

type startedEvent struct {
	entries []PlayerLedgerEntry
	ammo    int
}

type scoreEvent struct {
	playerID string
	score    int
}

// recordingSink captures every broadcast in order.
type recordingSink struct {
	started []startedEvent
	shots   []ShotRequest
	hits    []ShotOutcome
	scores  []scoreEvent
	ended   []string
	tables  []ScoringTable
}

func (r *recordingSink) MatchStarted(entries []PlayerLedgerEntry, ammo int) {
	copied := append([]PlayerLedgerEntry(nil), entries...)
	r.started = append(r.started, startedEvent{entries: copied, ammo: ammo})
}

func (r *recordingSink) ShotFired(req ShotRequest)       { r.shots = append(r.shots, req) }
func (r *recordingSink) HitRegistered(out ShotOutcome)   { r.hits = append(r.hits, out) }
func (r *recordingSink) MatchEnded(winnerID string)      { r.ended = append(r.ended, winnerID) }
func (r *recordingSink) ScoringTableChanged(t ScoringTable) { r.tables = append(r.tables, t) }

func (r *recordingSink) ScoreChanged(playerID string, score int) {
	r.scores = append(r.scores, scoreEvent{playerID: playerID, score: score})
}

func (r *recordingSink) eventCount() int {
	return len(r.started) + len(r.shots) + len(r.hits) + len(r.scores) + len(r.ended) + len(r.tables)
}

type stubCaster struct {
	hit RayHit
	ok  bool
}

func (c stubCaster) Cast(Vec3, Vec3, float64, uint32) (RayHit, bool) {
	return c.hit, c.ok
}

type stubSurfaces struct {
	owners  map[SurfaceHandle]string
	regions map[SurfaceHandle]RegionCategory
}

func (s stubSurfaces) Owner(surface SurfaceHandle) (string, bool) {
	owner, ok := s.owners[surface]
	return owner, ok
}

func (s stubSurfaces) Region(surface SurfaceHandle) (RegionCategory, bool) {
	region, ok := s.regions[surface]
	return region, ok
}

func hitResolver(targetID string, region RegionCategory) *Resolver {
	surface := SurfaceHandle("test-surface")
	return NewResolver(
		stubCaster{hit: RayHit{Surface: surface}, ok: true},
		stubSurfaces{
			owners:  map[SurfaceHandle]string{surface: targetID},
			regions: map[SurfaceHandle]RegionCategory{surface: region},
		},
		ResolverConfig{},
	)
}

func missResolver() *Resolver {
	return NewResolver(stubCaster{}, stubSurfaces{}, ResolverConfig{})
}

func twoPlayerRoster() []RosterSlot {
	return []RosterSlot{
		{PlayerID: "p1", Name: "Robin", TeamIndex: 0},
		{PlayerID: "p2", Name: "Tell", TeamIndex: 1},
	}
}

func newTestSession(t *testing.T, resolver *Resolver) (*Session, *Authority, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	session, authority := NewSession(resolver, SessionConfig{Sink: sink})
	return session, authority, sink
}

func fireReq(shooterID string) ShotRequest {
	return ShotRequest{
		Origin:    Vec3{Y: 1.5},
		Direction: Vec3{Z: 1},
		Speed:     60,
		ShooterID: shooterID,
	}
}

func TestStartSeedsLedgerFromRoster(t *testing.T) {
	session, authority, sink := newTestSession(t, missResolver())

	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if !session.Running() {
		t.Fatalf("expected session to be running")
	}
	entries := session.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Ammo != 5 {
			t.Errorf("player %s: expected 5 ammo, got %d", entry.PlayerID, entry.Ammo)
		}
		if entry.ShotsFired != 0 || entry.HitsLanded != 0 || entry.Score != 0 {
			t.Errorf("player %s: expected zeroed counters, got %+v", entry.PlayerID, entry)
		}
	}
	if entries[0].PlayerID != "p1" || entries[1].PlayerID != "p2" {
		t.Errorf("expected roster order preserved, got %s, %s", entries[0].PlayerID, entries[1].PlayerID)
	}

	if len(sink.started) != 1 {
		t.Fatalf("expected one matchStarted broadcast, got %d", len(sink.started))
	}
	if sink.started[0].ammo != 5 {
		t.Errorf("expected matchStarted ammo 5, got %d", sink.started[0].ammo)
	}
}

func TestStartSkipsEmptyAndAISlots(t *testing.T) {
	session, authority, _ := newTestSession(t, missResolver())

	roster := []RosterSlot{
		{Empty: true},
		{AI: true, PlayerID: "bot", Name: "Bot"},
		{PlayerID: "p1", Name: "Robin"},
	}
	if err := authority.Start(roster, 3); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	entries := session.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	if entries[0].PlayerID != "p1" {
		t.Errorf("expected entry for p1, got %s", entries[0].PlayerID)
	}
}

func TestStartRejectsNonPositiveAmmo(t *testing.T) {
	session, authority, sink := newTestSession(t, missResolver())

	if err := authority.Start(twoPlayerRoster(), 0); err != ErrInvalidAmmo {
		t.Fatalf("expected ErrInvalidAmmo, got %v", err)
	}
	if session.Running() {
		t.Fatalf("session must not run after rejected start")
	}
	if sink.eventCount() != 0 {
		t.Fatalf("rejected start must not broadcast, got %d events", sink.eventCount())
	}
}

func TestSpoofedShooterIsDroppedSilently(t *testing.T) {
	session, authority, sink := newTestSession(t, hitResolver("p1", RegionHead))
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	before := session.Entries()
	sinkBefore := sink.eventCount()

	req := fireReq("p2")
	_, ok, reason := session.SubmitShot(req, "p1")
	if ok {
		t.Fatalf("expected spoofed request to be rejected")
	}
	if reason != ShotRejectSpoofedShooter {
		t.Fatalf("expected reason %q, got %q", ShotRejectSpoofedShooter, reason)
	}

	after := session.Entries()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("ledger entry %s changed after rejected shot", before[i].PlayerID)
		}
	}
	if sink.eventCount() != sinkBefore {
		t.Fatalf("rejected shot must not broadcast anything")
	}
}

func TestUnknownShooterIsDropped(t *testing.T) {
	session, authority, sink := newTestSession(t, missResolver())
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	events := sink.eventCount()

	_, ok, reason := session.SubmitShot(fireReq("ghost"), "ghost")
	if ok {
		t.Fatalf("expected unknown shooter to be rejected")
	}
	if reason != ShotRejectUnknownPlayer {
		t.Fatalf("expected reason %q, got %q", ShotRejectUnknownPlayer, reason)
	}
	if sink.eventCount() != events {
		t.Fatalf("rejected shot must not broadcast anything")
	}
}

func TestHeadHitCreditsShooter(t *testing.T) {
	session, authority, sink := newTestSession(t, hitResolver("p2", RegionHead))
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	outcome, ok, _ := session.SubmitShot(fireReq("p1"), "p1")
	if !ok {
		t.Fatalf("expected shot to be accepted")
	}
	if !outcome.Valid {
		t.Fatalf("expected a valid hit")
	}
	if outcome.Region != RegionHead {
		t.Errorf("expected head region, got %s", outcome.Region)
	}
	if outcome.Score != 50 {
		t.Errorf("expected default head score 50, got %d", outcome.Score)
	}
	if outcome.TargetID != "p2" {
		t.Errorf("expected target p2, got %s", outcome.TargetID)
	}

	shooter, _ := session.Entry("p1")
	if shooter.Score != 50 {
		t.Errorf("expected shooter score 50, got %d", shooter.Score)
	}
	if shooter.Ammo != 4 {
		t.Errorf("expected 4 ammo remaining, got %d", shooter.Ammo)
	}
	if shooter.ShotsFired != 1 || shooter.HitsLanded != 1 {
		t.Errorf("expected 1 shot / 1 hit, got %d / %d", shooter.ShotsFired, shooter.HitsLanded)
	}

	target, _ := session.Entry("p2")
	if target.Score != 0 {
		t.Errorf("target must not be credited, got score %d", target.Score)
	}

	if len(sink.shots) != 1 {
		t.Fatalf("expected one shotFired broadcast, got %d", len(sink.shots))
	}
	if len(sink.hits) != 1 {
		t.Fatalf("expected one hitRegistered broadcast, got %d", len(sink.hits))
	}
	if len(sink.scores) != 1 {
		t.Fatalf("expected one scoreChanged broadcast, got %d", len(sink.scores))
	}
	if sink.scores[0] != (scoreEvent{playerID: "p1", score: 50}) {
		t.Errorf("unexpected scoreChanged payload %+v", sink.scores[0])
	}
}

func TestMissConsumesAmmoWithoutScore(t *testing.T) {
	session, authority, sink := newTestSession(t, missResolver())
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	outcome, ok, _ := session.SubmitShot(fireReq("p1"), "p1")
	if !ok {
		t.Fatalf("a miss is still an accepted shot")
	}
	if outcome.Valid {
		t.Fatalf("expected an invalid outcome for a miss")
	}
	if outcome.Score != 0 {
		t.Errorf("expected zero score, got %d", outcome.Score)
	}

	shooter, _ := session.Entry("p1")
	if shooter.Ammo != 4 {
		t.Errorf("a miss still consumes ammo, got %d", shooter.Ammo)
	}
	if shooter.ShotsFired != 1 {
		t.Errorf("expected 1 shot fired, got %d", shooter.ShotsFired)
	}
	if shooter.HitsLanded != 0 || shooter.Score != 0 {
		t.Errorf("a miss must not credit anything, got %+v", shooter)
	}

	if len(sink.shots) != 1 || len(sink.hits) != 1 {
		t.Fatalf("expected shotFired and hitRegistered, got %d / %d", len(sink.shots), len(sink.hits))
	}
	if sink.hits[0].Valid {
		t.Errorf("hitRegistered must carry the invalid outcome")
	}
	if len(sink.scores) != 0 {
		t.Fatalf("a miss must not broadcast scoreChanged")
	}
}

func TestSceneryHitResolvesToMiss(t *testing.T) {
	surface := SurfaceHandle("wall")
	resolver := NewResolver(
		stubCaster{hit: RayHit{Surface: surface}, ok: true},
		stubSurfaces{},
		ResolverConfig{},
	)
	session, authority, _ := newTestSession(t, resolver)
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	outcome, ok, _ := session.SubmitShot(fireReq("p1"), "p1")
	if !ok || outcome.Valid {
		t.Fatalf("a surface with no owner must resolve to a miss, got valid=%v ok=%v", outcome.Valid, ok)
	}
}

func TestOutOfAmmoDropsWithoutBroadcast(t *testing.T) {
	session, authority, sink := newTestSession(t, missResolver())
	if err := authority.Start(twoPlayerRoster(), 1); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if _, ok, _ := session.SubmitShot(fireReq("p1"), "p1"); !ok {
		t.Fatalf("first shot should be accepted")
	}
	shots := len(sink.shots)

	_, ok, reason := session.SubmitShot(fireReq("p1"), "p1")
	if ok {
		t.Fatalf("expected empty-quiver shot to be rejected")
	}
	if reason != ShotRejectOutOfAmmo {
		t.Fatalf("expected reason %q, got %q", ShotRejectOutOfAmmo, reason)
	}
	if len(sink.shots) != shots {
		t.Fatalf("rejected shot must not broadcast shotFired")
	}

	shooter, _ := session.Entry("p1")
	if shooter.Ammo != 0 {
		t.Errorf("ammo must never go negative, got %d", shooter.Ammo)
	}
	if shooter.ShotsFired != 1 {
		t.Errorf("rejected shot must not count as fired, got %d", shooter.ShotsFired)
	}
}

func TestLedgerCountersStayConsistent(t *testing.T) {
	session, authority, _ := newTestSession(t, hitResolver("p2", RegionTorso))
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 7; i++ {
		session.SubmitShot(fireReq("p1"), "p1")
	}

	shooter, _ := session.Entry("p1")
	if shooter.Ammo != 0 {
		t.Errorf("expected empty quiver, got %d", shooter.Ammo)
	}
	if shooter.ShotsFired != 5 {
		t.Errorf("expected 5 shots fired, got %d", shooter.ShotsFired)
	}
	if shooter.HitsLanded > shooter.ShotsFired {
		t.Errorf("hits landed %d exceeds shots fired %d", shooter.HitsLanded, shooter.ShotsFired)
	}
	if shooter.Score != 5*25 {
		t.Errorf("expected 125 points from torso hits, got %d", shooter.Score)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	session, authority, sink := newTestSession(t, missResolver())
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if !authority.End("p1") {
		t.Fatalf("first end should report true")
	}
	if authority.End("p2") {
		t.Fatalf("second end should be a no-op")
	}
	if session.Running() {
		t.Fatalf("session must not be running after end")
	}
	if len(sink.ended) != 1 {
		t.Fatalf("expected exactly one matchEnded broadcast, got %d", len(sink.ended))
	}
	if sink.ended[0] != "p1" {
		t.Errorf("expected winner p1, got %s", sink.ended[0])
	}

	entries := session.Entries()
	if len(entries) != 2 {
		t.Fatalf("ledger must survive the end for post-match display, got %d entries", len(entries))
	}
}

func TestEndWithoutStartIsNoop(t *testing.T) {
	_, authority, sink := newTestSession(t, missResolver())
	if authority.End("p1") {
		t.Fatalf("ending an idle session should report false")
	}
	if len(sink.ended) != 0 {
		t.Fatalf("idle end must not broadcast")
	}
}

func TestRestartReplacesLedger(t *testing.T) {
	session, authority, _ := newTestSession(t, hitResolver("p2", RegionLimb))
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	session.SubmitShot(fireReq("p1"), "p1")
	authority.End("p1")

	roster := []RosterSlot{{PlayerID: "p3", Name: "Hood"}}
	if err := authority.Start(roster, 2); err != nil {
		t.Fatalf("restart failed: %v", err)
	}

	entries := session.Entries()
	if len(entries) != 1 || entries[0].PlayerID != "p3" {
		t.Fatalf("expected fresh single-player ledger, got %+v", entries)
	}
	if _, ok := session.Entry("p1"); ok {
		t.Fatalf("old entries must not survive a restart")
	}
}

func TestUpdateScoringTableTakesEffect(t *testing.T) {
	session, authority, sink := newTestSession(t, hitResolver("p2", RegionHead))
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	table := ScoringTable{Critical: 200, Head: 75, Torso: 30, Limb: 5}
	authority.UpdateScoringTable(table)

	if len(sink.tables) != 1 || sink.tables[0] != table {
		t.Fatalf("expected scoring table broadcast, got %+v", sink.tables)
	}
	if session.Scoring() != table {
		t.Fatalf("expected scoring snapshot to match update")
	}

	outcome, _, _ := session.SubmitShot(fireReq("p1"), "p1")
	if outcome.Score != 75 {
		t.Errorf("expected updated head score 75, got %d", outcome.Score)
	}
}

func TestRejectedShotLogsWarning(t *testing.T) {
	var events []logging.Event
	recorder := logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		events = append(events, event)
	})
	session, authority := NewSession(missResolver(), SessionConfig{Publisher: recorder})
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	events = events[:0]

	session.SubmitShot(fireReq("p2"), "p1")

	if len(events) != 1 {
		t.Fatalf("expected one log event for the drop, got %d", len(events))
	}
	if events[0].Type != matchlog.EventShotRejected {
		t.Errorf("expected shot_rejected event, got %s", events[0].Type)
	}
	if events[0].Severity != logging.SeverityWarn {
		t.Errorf("drops log at warning severity, got %v", events[0].Severity)
	}
	payload, ok := events[0].Payload.(matchlog.ShotRejectedPayload)
	if !ok {
		t.Fatalf("unexpected payload %T", events[0].Payload)
	}
	if payload.Reason != ShotRejectSpoofedShooter || payload.ClaimedID != "p2" {
		t.Errorf("unexpected rejection payload %+v", payload)
	}
}

func TestStartPublishesLedgerToFeed(t *testing.T) {
	session, authority, _ := newTestSession(t, hitResolver("p2", RegionTorso))
	sub := session.Changes().Subscribe()
	defer sub.Close()

	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	changes := sub.Drain()
	if len(changes) != 2 {
		t.Fatalf("expected a change per roster entry, got %d", len(changes))
	}

	session.SubmitShot(fireReq("p1"), "p1")
	changes = sub.Drain()
	if len(changes) != 1 {
		t.Fatalf("expected one change for the shot, got %d", len(changes))
	}
	if changes[0].EntryID != "p1" {
		t.Errorf("expected change for shooter, got %s", changes[0].EntryID)
	}
	if changes[0].Entry.Ammo != 4 || changes[0].Entry.Score != 25 {
		t.Errorf("unexpected replicated entry %+v", changes[0].Entry)
	}
}
