// Package feed delivers ordered per-entry change notifications to
// subscribers so replicas can converge without diffing whole collections.
package feed

import "sync"

// Change is one replicated update for a single entry. Seq orders changes
// across the whole feed; EntrySeq orders changes for one entry.
type Change[T any] struct {
	Seq      uint64 `json:"seq"`
	EntrySeq uint64 `json:"entrySeq"`
	EntryID  string `json:"entryId"`
	Entry    T      `json:"entry"`
}

// Feed fans entry changes out to subscriptions. Publish preserves order;
// every subscription sees each change at least once and never out of order.
type Feed[T any] struct {
	mu       sync.Mutex
	seq      uint64
	entrySeq map[string]uint64
	subs     []*Subscription[T]
}

// New constructs an empty feed.
func New[T any]() *Feed[T] {
	return &Feed[T]{entrySeq: make(map[string]uint64)}
}

// Publish records a change for the given entry and wakes every
// subscription. The stamped change is returned for callers that embed the
// sequence numbers in their own broadcasts.
func (f *Feed[T]) Publish(entryID string, entry T) Change[T] {
	f.mu.Lock()
	f.seq++
	f.entrySeq[entryID]++
	change := Change[T]{
		Seq:      f.seq,
		EntrySeq: f.entrySeq[entryID],
		EntryID:  entryID,
		Entry:    entry,
	}
	subs := make([]*Subscription[T], len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, sub := range subs {
		sub.push(change)
	}
	return change
}

// Reset clears the per-entry counters. Called when a new match replaces the
// ledger; the global sequence keeps climbing so subscribers can still order
// changes across matches.
func (f *Feed[T]) Reset() {
	f.mu.Lock()
	f.entrySeq = make(map[string]uint64)
	f.mu.Unlock()
}

// Subscribe registers a new subscription. The subscription buffers pending
// changes until drained and must be closed when no longer needed.
func (f *Feed[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		feed:   f,
		notify: make(chan struct{}, 1),
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub
}

func (f *Feed[T]) unsubscribe(target *Subscription[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subs {
		if sub == target {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return
		}
	}
}

// Subscription accumulates changes for one consumer.
type Subscription[T any] struct {
	feed   *Feed[T]
	mu     sync.Mutex
	pend   []Change[T]
	closed bool
	notify chan struct{}
}

func (s *Subscription[T]) push(change Change[T]) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pend = append(s.pend, change)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Ready signals when pending changes may be available.
func (s *Subscription[T]) Ready() <-chan struct{} {
	return s.notify
}

// Drain returns all pending changes in publish order and clears the buffer.
func (s *Subscription[T]) Drain() []Change[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pend) == 0 {
		return nil
	}
	changes := make([]Change[T], len(s.pend))
	copy(changes, s.pend)
	s.pend = s.pend[:0]
	return changes
}

// Close detaches the subscription from the feed and discards anything still
// pending.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pend = nil
	s.mu.Unlock()
	if s.feed != nil {
		s.feed.unsubscribe(s)
	}
}
