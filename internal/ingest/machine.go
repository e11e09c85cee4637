package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/clock"
	"github.com/mirzahilmi/lora-orion-bridge/internal/indicator"
	"github.com/mirzahilmi/lora-orion-bridge/internal/network"
	"github.com/mirzahilmi/lora-orion-bridge/internal/orion"
	"github.com/mirzahilmi/lora-orion-bridge/internal/radio"
	"github.com/mirzahilmi/lora-orion-bridge/internal/reading"
	"github.com/rs/zerolog/log"
)

type State int

const (
	Receive State = iota + 1
	Send
	Wait
)

func (s State) String() string {
	switch s {
	case Receive:
		return "receive"
	case Send:
		return "send"
	case Wait:
		return "wait"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Syncer interface {
	Sync(ctx context.Context, payload orion.UpdatePayload) orion.Outcome
}

// Report describes how one cycle ended.
type Report struct {
	CycleId string                 `json:"cycleId"`
	At      time.Time              `json:"at"`
	State   State                  `json:"state"`
	Raw     string                 `json:"raw,omitempty"`
	Reading *reading.SensorReading `json:"reading,omitempty"`
	Outcome orion.Outcome          `json:"outcome"`
}

type Observer interface {
	Observe(ctx context.Context, report Report)
}

type Timing struct {
	Quiescence      time.Duration
	ReconnectSettle time.Duration
	Blink           time.Duration
	Tick            time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Quiescence:      5 * time.Second,
		ReconnectSettle: time.Second,
		Blink:           100 * time.Millisecond,
		Tick:            50 * time.Millisecond,
	}
}

// Machine is the receive, send, wait loop. It is not safe for concurrent use;
// exactly one goroutine drives it.
type Machine struct {
	state   State
	pending *orion.UpdatePayload
	reading *reading.SensorReading
	raw     string
	cycleId string
	last    *Report

	source    radio.Source
	parse     func(string) (reading.SensorReading, error)
	syncer    Syncer
	gate      *network.Gate
	indicator indicator.Indicator
	sleeper   clock.Sleeper
	timing    Timing
	observers []Observer
	now       func() time.Time
}

type Option func(*Machine)

func WithObservers(observers ...Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, observers...) }
}

func WithSleeper(sleeper clock.Sleeper) Option {
	return func(m *Machine) { m.sleeper = sleeper }
}

func WithTiming(timing Timing) Option {
	return func(m *Machine) { m.timing = timing }
}

func WithParser(parse func(string) (reading.SensorReading, error)) Option {
	return func(m *Machine) { m.parse = parse }
}

// NewMachine wires the machine. gate must be the same gate the syncer checks
// connectivity through, so one send cycle reconnects at most once.
func NewMachine(
	source radio.Source,
	syncer Syncer,
	gate *network.Gate,
	led indicator.Indicator,
	opts ...Option,
) *Machine {
	m := &Machine{
		state:     Receive,
		source:    source,
		parse:     reading.Parse,
		syncer:    syncer,
		gate:      gate,
		indicator: led,
		sleeper:   clock.Real{},
		timing:    DefaultTiming(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	return m.state
}

// Last returns the report of the most recent finished cycle, nil before the first.
func (m *Machine) Last() *Report {
	return m.last
}

// Run drives the machine until ctx is done. Cancellation is only observed
// between steps.
func (m *Machine) Run(ctx context.Context) error {
	log.Info().Str("state", m.state.String()).Msg("ingest: state machine started")
	for {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("ingest: state machine stopped")
			return err
		}
		m.Step(ctx)
		m.sleeper.Sleep(ctx, m.timing.Tick)
	}
}

// Step executes the current state once and returns the next one.
func (m *Machine) Step(ctx context.Context) State {
	switch m.state {
	case Receive:
		m.state = m.receive(ctx)
	case Send:
		m.state = m.send(ctx)
	case Wait:
		m.state = m.wait(ctx)
	default:
		log.Error().Int("state", int(m.state)).Msg("ingest: unknown state, resetting to receive")
		m.pending = nil
		m.state = Receive
	}
	return m.state
}

func (m *Machine) receive(ctx context.Context) State {
	size := m.source.PacketAvailable()
	if size == 0 {
		return Receive
	}

	m.cycleId = uuid.NewString()
	m.raw = string(radio.ReadPacket(m.source, size))
	logger := log.With().Str("cycle", m.cycleId).Logger()
	logger.Info().Str("message", m.raw).Msg("ingest: packet received")

	r, err := m.parse(m.raw)
	if err != nil {
		logger.Warn().Err(err).Msg("ingest: cannot extract reading, skipping send")
		m.finish(ctx, nil, orion.RejectedOutcome(err.Error()))
		return Wait
	}

	logger.Info().
		Float64("lat", r.Latitude).
		Float64("lon", r.Longitude).
		Float64("temp", r.Temperature).
		Float64("hum", r.Humidity).
		Msg("ingest: reading extracted")

	payload := orion.EncodeUpdate(r)
	m.pending = &payload
	m.reading = &r
	m.indicator.Blink(ctx, m.timing.Blink)
	return Send
}

func (m *Machine) send(ctx context.Context) State {
	logger := log.With().Str("cycle", m.cycleId).Logger()

	if m.pending == nil {
		logger.Error().Msg("ingest: send without pending reading")
		m.finish(ctx, nil, orion.RejectedOutcome("no pending reading"))
		return Wait
	}

	m.gate.Reset()
	if !m.gate.IsConnected(ctx) {
		logger.Warn().Msg("ingest: uplink down, reconnecting")
		if !m.gate.Reconnect(ctx) {
			logger.Warn().Msg("ingest: reconnect failed, sending best effort")
		}
		m.sleeper.Sleep(ctx, m.timing.ReconnectSettle)
	}

	logger.Info().Msg("ingest: sending reading to orion")
	outcome := m.syncer.Sync(ctx, *m.pending)
	if outcome.Ok() {
		logger.Info().Str("outcome", outcome.String()).Msg("ingest: reading stored")
	} else {
		logger.Error().Str("outcome", outcome.String()).Msg("ingest: reading not stored, dropping it")
	}

	m.finish(ctx, m.reading, outcome)
	return Wait
}

func (m *Machine) wait(ctx context.Context) State {
	log.Debug().Dur("interval", m.timing.Quiescence).Msg("ingest: waiting before next reception")
	m.sleeper.Sleep(ctx, m.timing.Quiescence)
	return Receive
}

// finish clears the cycle buffers and hands the report to every observer.
func (m *Machine) finish(ctx context.Context, r *reading.SensorReading, outcome orion.Outcome) {
	report := Report{
		CycleId: m.cycleId,
		At:      m.now(),
		State:   m.state,
		Raw:     m.raw,
		Reading: r,
		Outcome: outcome,
	}
	m.last = &report
	m.pending = nil
	m.reading = nil
	m.raw = ""

	for _, observer := range m.observers {
		observer.Observe(ctx, report)
	}
}
