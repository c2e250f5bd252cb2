package feed

import "testing"

func TestPublishStampsSequences(t *testing.T) {
	f := New[int]()

	first := f.Publish("a", 1)
	second := f.Publish("b", 2)
	third := f.Publish("a", 3)

	if first.Seq != 1 || second.Seq != 2 || third.Seq != 3 {
		t.Fatalf("global sequence must be monotonic, got %d %d %d",
			first.Seq, second.Seq, third.Seq)
	}
	if first.EntrySeq != 1 || third.EntrySeq != 2 {
		t.Fatalf("per-entry sequence must count per entry, got %d %d",
			first.EntrySeq, third.EntrySeq)
	}
	if second.EntrySeq != 1 {
		t.Fatalf("a fresh entry starts at 1, got %d", second.EntrySeq)
	}
}

func TestSubscriptionReceivesInPublishOrder(t *testing.T) {
	f := New[string]()
	sub := f.Subscribe()
	defer sub.Close()

	f.Publish("a", "one")
	f.Publish("b", "two")
	f.Publish("a", "three")

	changes := sub.Drain()
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}
	for i, want := range []string{"one", "two", "three"} {
		if changes[i].Entry != want {
			t.Errorf("change %d: expected %q, got %q", i, want, changes[i].Entry)
		}
	}
	if changes[0].Seq >= changes[1].Seq || changes[1].Seq >= changes[2].Seq {
		t.Errorf("drained changes must preserve publish order")
	}
}

func TestDrainClearsPending(t *testing.T) {
	f := New[int]()
	sub := f.Subscribe()
	defer sub.Close()

	f.Publish("a", 1)
	if changes := sub.Drain(); len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes := sub.Drain(); changes != nil {
		t.Fatalf("second drain must be empty, got %v", changes)
	}
}

func TestReadySignalsPendingChanges(t *testing.T) {
	f := New[int]()
	sub := f.Subscribe()
	defer sub.Close()

	f.Publish("a", 1)
	select {
	case <-sub.Ready():
	default:
		t.Fatalf("expected ready signal after publish")
	}

	// Multiple publishes coalesce into one signal; the drain still sees all.
	f.Publish("a", 2)
	f.Publish("a", 3)
	select {
	case <-sub.Ready():
	default:
		t.Fatalf("expected ready signal after further publishes")
	}
	if changes := sub.Drain(); len(changes) != 2 {
		t.Fatalf("expected 2 pending changes, got %d", len(changes))
	}
}

func TestResetRestartsEntryCounters(t *testing.T) {
	f := New[int]()

	before := f.Publish("a", 1)
	f.Reset()
	after := f.Publish("a", 2)

	if after.EntrySeq != 1 {
		t.Fatalf("reset must restart per-entry counters, got %d", after.EntrySeq)
	}
	if after.Seq <= before.Seq {
		t.Fatalf("global sequence must keep climbing across resets, got %d then %d",
			before.Seq, after.Seq)
	}
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	f := New[int]()
	sub := f.Subscribe()

	f.Publish("a", 1)
	sub.Close()
	f.Publish("a", 2)

	if changes := sub.Drain(); changes != nil {
		t.Fatalf("closed subscription must not retain changes, got %v", changes)
	}
}

func TestSubscribersAreIndependent(t *testing.T) {
	f := New[int]()
	first := f.Subscribe()
	second := f.Subscribe()
	defer second.Close()

	f.Publish("a", 1)
	first.Close()
	f.Publish("a", 2)

	if changes := second.Drain(); len(changes) != 2 {
		t.Fatalf("surviving subscriber expected 2 changes, got %d", len(changes))
	}
}
