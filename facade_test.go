package server

import "testing"

func newAttachedFacade(t *testing.T) (*Facade, *Session, *Authority) {
	t.Helper()
	session, authority, _ := newTestSession(t, hitResolver("p2", RegionTorso))
	facade := NewFacade()
	facade.Attach(session)
	return facade, session, authority
}

func TestFacadeStartsUnavailable(t *testing.T) {
	facade := NewFacade()
	if facade.Available() {
		t.Fatalf("a fresh facade must not be available")
	}
	if facade.Running() {
		t.Fatalf("a detached facade reports not running")
	}
	if entries := facade.Entries(); entries != nil {
		t.Fatalf("a detached facade has no entries, got %v", entries)
	}
}

func TestFacadeDropsShotsWhileDetached(t *testing.T) {
	facade := NewFacade()
	_, ok, reason := facade.SubmitShot(fireReq("p1"), "p1")
	if ok {
		t.Fatalf("detached facade must drop shots")
	}
	if reason != ShotRejectUnknownPlayer {
		t.Fatalf("expected reason %q, got %q", ShotRejectUnknownPlayer, reason)
	}
}

func TestFacadeForwardsAfterAttach(t *testing.T) {
	facade, _, authority := newAttachedFacade(t)
	if err := authority.Start(twoPlayerRoster(), 5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if !facade.Running() {
		t.Fatalf("expected facade to report running")
	}
	outcome, ok, _ := facade.SubmitShot(fireReq("p1"), "p1")
	if !ok || !outcome.Valid {
		t.Fatalf("expected forwarded shot to land, ok=%v valid=%v", ok, outcome.Valid)
	}
	entry, found := facade.Entry("p1")
	if !found || entry.ShotsFired != 1 {
		t.Fatalf("expected forwarded entry lookup, found=%v entry=%+v", found, entry)
	}
}

func TestFacadeAvailabilityCallbacks(t *testing.T) {
	session, _, _ := newTestSession(t, missResolver())
	facade := NewFacade()

	var attached, detached int
	facade.OnAvailable(func(s *Session) {
		if s != session {
			t.Errorf("callback received a different session")
		}
		attached++
	})
	facade.OnUnavailable(func() { detached++ })

	facade.Attach(session)
	if attached != 1 {
		t.Fatalf("expected one availability callback, got %d", attached)
	}

	facade.Detach()
	if detached != 1 {
		t.Fatalf("expected one unavailability callback, got %d", detached)
	}

	// Late registration against an attached facade fires immediately.
	facade.Attach(session)
	var late int
	facade.OnAvailable(func(*Session) { late++ })
	if late != 1 {
		t.Fatalf("expected immediate callback for late registration, got %d", late)
	}
}

func TestFacadeDetachIsIdempotent(t *testing.T) {
	session, _, _ := newTestSession(t, missResolver())
	facade := NewFacade()

	var detached int
	facade.OnUnavailable(func() { detached++ })

	facade.Attach(session)
	facade.Detach()
	facade.Detach()
	if detached != 1 {
		t.Fatalf("repeated detach must not refire callbacks, got %d", detached)
	}
}

func TestFacadeAttachNilDetaches(t *testing.T) {
	session, _, _ := newTestSession(t, missResolver())
	facade := NewFacade()
	facade.Attach(session)

	facade.Attach(nil)
	if facade.Available() {
		t.Fatalf("attaching nil must detach")
	}
}
