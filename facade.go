package server

import "sync"

// Facade is the process-local indirection presentation code talks to
// instead of holding the session directly. The session reference is handed
// to it explicitly; availability changes fire callbacks rather than being
// polled.
type Facade struct {
	mu          sync.RWMutex
	session     *Session
	available   []func(*Session)
	unavailable []func()
}

// NewFacade constructs a façade with no session attached.
func NewFacade() *Facade {
	return &Facade{}
}

// Attach hands the live session to the façade and fires the availability
// callbacks. Attaching a nil session is equivalent to Detach.
func (f *Facade) Attach(session *Session) {
	if session == nil {
		f.Detach()
		return
	}
	f.mu.Lock()
	f.session = session
	callbacks := append(([]func(*Session))(nil), f.available...)
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(session)
	}
}

// Detach drops the session reference and fires the unavailability
// callbacks. Detaching twice is harmless.
func (f *Facade) Detach() {
	f.mu.Lock()
	had := f.session != nil
	f.session = nil
	callbacks := append(([]func())(nil), f.unavailable...)
	f.mu.Unlock()

	if !had {
		return
	}
	for _, fn := range callbacks {
		fn()
	}
}

// OnAvailable registers a callback for session attachment. If a session is
// already attached the callback fires immediately.
func (f *Facade) OnAvailable(fn func(*Session)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	f.available = append(f.available, fn)
	session := f.session
	f.mu.Unlock()

	if session != nil {
		fn(session)
	}
}

// OnUnavailable registers a callback for session detachment.
func (f *Facade) OnUnavailable(fn func()) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	f.unavailable = append(f.unavailable, fn)
	f.mu.Unlock()
}

// Available reports whether a session is currently attached.
func (f *Facade) Available() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session != nil
}

// SubmitShot forwards to the attached session. Without one the request is
// dropped like any other rejection.
func (f *Facade) SubmitShot(req ShotRequest, senderID string) (ShotOutcome, bool, string) {
	f.mu.RLock()
	session := f.session
	f.mu.RUnlock()
	if session == nil {
		return ShotOutcome{}, false, ShotRejectUnknownPlayer
	}
	return session.SubmitShot(req, senderID)
}

// Entry forwards to the attached session.
func (f *Facade) Entry(playerID string) (PlayerLedgerEntry, bool) {
	f.mu.RLock()
	session := f.session
	f.mu.RUnlock()
	if session == nil {
		return PlayerLedgerEntry{}, false
	}
	return session.Entry(playerID)
}

// Entries forwards to the attached session.
func (f *Facade) Entries() []PlayerLedgerEntry {
	f.mu.RLock()
	session := f.session
	f.mu.RUnlock()
	if session == nil {
		return nil
	}
	return session.Entries()
}

// Running forwards to the attached session.
func (f *Facade) Running() bool {
	f.mu.RLock()
	session := f.session
	f.mu.RUnlock()
	if session == nil {
		return false
	}
	return session.Running()
}
