package logging

import "sync"

// Metrics is a coarse counter store shared by server components. Keys are
// free-form; consumers read a full snapshot for diagnostics.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]uint64)}
}

// TelemetryAdd increments a counter by delta.
func (m *Metrics) TelemetryAdd(key string, delta uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	m.counters[key] += delta
	m.mu.Unlock()
}

// TelemetryStore overwrites a gauge-style value.
func (m *Metrics) TelemetryStore(key string, value uint64) {
	if m == nil || key == "" {
		return
	}
	m.mu.Lock()
	m.counters[key] = value
	m.mu.Unlock()
}

// Snapshot copies every counter for the diagnostics endpoint.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]uint64, len(m.counters))
	for k, v := range m.counters {
		copied[k] = v
	}
	return copied
}
