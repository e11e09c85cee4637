package indicator

import (
	"context"
	"sync"
	"time"

	"github.com/mirzahilmi/lora-orion-bridge/internal/common/clock"
	"github.com/rs/zerolog/log"
)

// Indicator is the status LED of the receiver.
type Indicator interface {
	Set(on bool)
	Toggle()
	Blink(ctx context.Context, d time.Duration)
	On() bool
}

// LogIndicator keeps the LED level in memory and reports transitions at debug level.
type LogIndicator struct {
	mu      sync.Mutex
	on      bool
	sleeper clock.Sleeper
}

func NewLogIndicator(sleeper clock.Sleeper) *LogIndicator {
	if sleeper == nil {
		sleeper = clock.Real{}
	}
	return &LogIndicator{sleeper: sleeper}
}

func (l *LogIndicator) Set(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(on)
}

func (l *LogIndicator) Toggle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(!l.on)
}

// Blink pulls the LED low for d and brings it back high.
func (l *LogIndicator) Blink(ctx context.Context, d time.Duration) {
	l.Set(false)
	l.sleeper.Sleep(ctx, d)
	l.Set(true)
}

func (l *LogIndicator) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

func (l *LogIndicator) set(on bool) {
	if l.on == on {
		return
	}
	l.on = on
	log.Debug().Bool("on", on).Msg("indicator: led changed")
}
