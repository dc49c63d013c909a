// Package stats counts contact form outcomes.
//
// Recording is best-effort: callers log a failed Record and move on.
package stats

import (
	"context"
	"sync"
	"time"
)

// Event is one processed submission.
type Event struct {
	// Outcome is delivered, received, invalid or failed.
	Outcome string
	At      time.Time
}

// Recorder persists events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Reader exposes cumulative counters keyed by outcome.
type Reader interface {
	Totals(ctx context.Context) (map[string]int64, error)
}

// Nop discards every event.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Event) error { return nil }

// Memory keeps counters in process. Useful for tests and single-node
// development; counters do not expire.
type Memory struct {
	mu     sync.Mutex
	totals map[string]int64
}

// NewMemory creates an empty Memory recorder.
func NewMemory() *Memory {
	return &Memory{totals: make(map[string]int64)}
}

// Record implements Recorder.
func (m *Memory) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[ev.Outcome]++
	return nil
}

// Totals implements Reader.
func (m *Memory) Totals(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.totals))
	for k, v := range m.totals {
		out[k] = v
	}
	return out, nil
}
