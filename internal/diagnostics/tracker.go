package diagnostics

import (
	"context"
	"sync"
	"time"

	"github.com/mirzahilmi/lora-orion-bridge/internal/ingest"
	"github.com/mirzahilmi/lora-orion-bridge/internal/orion"
	"github.com/mirzahilmi/lora-orion-bridge/internal/reading"
)

type Snapshot struct {
	StartedAt   time.Time              `json:"startedAt"`
	Cycles      uint64                 `json:"cycles"`
	Counts      map[string]uint64      `json:"counts"`
	LastCycleId string                 `json:"lastCycleId,omitempty"`
	LastAt      *time.Time             `json:"lastAt,omitempty"`
	LastRaw     string                 `json:"lastRaw,omitempty"`
	LastOutcome *orion.Outcome         `json:"lastOutcome,omitempty"`
	LastReading *reading.SensorReading `json:"lastReading,omitempty"`
}

// Tracker keeps what the state machine reported last. The machine writes from
// its own goroutine while HTTP handlers read snapshots.
type Tracker struct {
	mu        sync.RWMutex
	startedAt time.Time
	cycles    uint64
	counts    map[orion.OutcomeKind]uint64
	last      *ingest.Report
	reading   *reading.SensorReading
}

func NewTracker(now time.Time) *Tracker {
	return &Tracker{startedAt: now, counts: map[orion.OutcomeKind]uint64{}}
}

func (t *Tracker) Observe(_ context.Context, report ingest.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cycles++
	t.counts[report.Outcome.Kind]++
	t.last = &report
	if report.Reading != nil {
		r := *report.Reading
		t.reading = &r
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := Snapshot{
		StartedAt: t.startedAt,
		Cycles:    t.cycles,
		Counts:    make(map[string]uint64, len(t.counts)),
	}
	for kind, count := range t.counts {
		snapshot.Counts[kind.String()] = count
	}
	if t.last != nil {
		at := t.last.At
		outcome := t.last.Outcome
		snapshot.LastCycleId = t.last.CycleId
		snapshot.LastAt = &at
		snapshot.LastRaw = t.last.Raw
		snapshot.LastOutcome = &outcome
	}
	if t.reading != nil {
		r := *t.reading
		snapshot.LastReading = &r
	}
	return snapshot
}
