package server

// RosterSlot describes one seat handed to Authority.Start. Empty and
// AI-controlled slots never receive ledger entries.
type RosterSlot struct {
	Empty     bool   `json:"empty"`
	AI        bool   `json:"ai"`
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	TeamIndex int    `json:"teamIndex"`
}

// PlayerLedgerEntry is one participant's authoritative match record.
// Ammo only decreases; ShotsFired, HitsLanded and Score only increase, and
// HitsLanded never exceeds ShotsFired.
type PlayerLedgerEntry struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	TeamIndex  int    `json:"teamIndex"`
	Ammo       int    `json:"ammo"`
	ShotsFired int    `json:"shotsFired"`
	HitsLanded int    `json:"hitsLanded"`
	Score      int    `json:"score"`
}

// ledger holds the ordered set of entries for the current (or most recent)
// match. Only the session mutates it.
type ledger struct {
	order   []string
	entries map[string]*PlayerLedgerEntry
}

func newLedger() ledger {
	return ledger{
		order:   make([]string, 0),
		entries: make(map[string]*PlayerLedgerEntry),
	}
}

// reset replaces all entries from the roster, one per non-empty non-AI
// slot, each seeded with the ammunition allowance.
func (l *ledger) reset(roster []RosterSlot, ammo int) {
	l.order = l.order[:0]
	l.entries = make(map[string]*PlayerLedgerEntry, len(roster))
	for _, slot := range roster {
		if slot.Empty || slot.AI || slot.PlayerID == "" {
			continue
		}
		if _, exists := l.entries[slot.PlayerID]; exists {
			continue
		}
		l.order = append(l.order, slot.PlayerID)
		l.entries[slot.PlayerID] = &PlayerLedgerEntry{
			PlayerID:  slot.PlayerID,
			Name:      slot.Name,
			TeamIndex: slot.TeamIndex,
			Ammo:      ammo,
		}
	}
}

func (l *ledger) entry(id string) *PlayerLedgerEntry {
	return l.entries[id]
}

// snapshot copies every entry in roster order.
func (l *ledger) snapshot() []PlayerLedgerEntry {
	entries := make([]PlayerLedgerEntry, 0, len(l.order))
	for _, id := range l.order {
		if entry := l.entries[id]; entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries
}

func (l *ledger) len() int {
	return len(l.entries)
}
