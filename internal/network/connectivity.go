package network

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/mirzahilmi/lora-orion-bridge/internal/common/clock"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/config"
	"github.com/mirzahilmi/lora-orion-bridge/internal/indicator"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Connectivity interface {
	IsConnected(ctx context.Context) bool
	Reconnect(ctx context.Context) bool
}

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Probe treats the uplink as up when the Orion host accepts a TCP connection.
type Probe struct {
	address     string
	ssid        string
	attempts    int
	interval    time.Duration
	dialTimeout time.Duration
	indicator   indicator.Indicator
	sleeper     clock.Sleeper
	dial        DialFunc
	reconnects  metric.Int64Counter
}

func NewProbe(cfg config.Network, baseURL string, led indicator.Indicator, sleeper clock.Sleeper) (*Probe, error) {
	address, err := hostPort(baseURL)
	if err != nil {
		return nil, err
	}

	reconnects, err := otel.Meter("bridge").Int64Counter(
		"bridge.reconnects",
		metric.WithDescription("Reconnect attempts by result"),
	)
	if err != nil {
		log.Error().
			Err(err).
			Msg("network: cannot create reconnect counter")
		return nil, err
	}

	if sleeper == nil {
		sleeper = clock.Real{}
	}
	dialer := &net.Dialer{}

	return &Probe{
		address:     address,
		ssid:        cfg.Ssid,
		attempts:    max(cfg.Attempts, 1),
		interval:    cfg.Interval(),
		dialTimeout: cfg.DialTimeout(),
		indicator:   led,
		sleeper:     sleeper,
		dial:        dialer.DialContext,
		reconnects:  reconnects,
	}, nil
}

func (p *Probe) Address() string {
	return p.address
}

func (p *Probe) IsConnected(ctx context.Context) bool {
	dialCtx := ctx
	if p.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, p.dialTimeout)
		defer cancel()
	}

	conn, err := p.dial(dialCtx, "tcp", p.address)
	if err != nil {
		log.Debug().Err(err).Str("address", p.address).Msg("network: probe failed")
		return false
	}
	_ = conn.Close()
	return true
}

// Reconnect polls the uplink up to the configured number of attempts, pulsing
// the indicator between attempts. It reports whether the uplink came back.
func (p *Probe) Reconnect(ctx context.Context) bool {
	log.Info().Str("ssid", p.ssid).Str("address", p.address).Msg("network: connecting")

	for attempt := 1; attempt <= p.attempts; attempt++ {
		if p.IsConnected(ctx) {
			p.indicator.Set(true)
			p.reconnects.Add(ctx, 1, metric.WithAttributes(attribute.Bool("connected", true)))
			log.Info().Int("attempt", attempt).Str("address", p.address).Msg("network: connected")
			return true
		}
		if ctx.Err() != nil {
			break
		}
		p.sleeper.Sleep(ctx, p.interval)
		p.indicator.Toggle()
	}

	p.indicator.Set(false)
	p.reconnects.Add(ctx, 1, metric.WithAttributes(attribute.Bool("connected", false)))
	log.Error().Int("attempts", p.attempts).Str("ssid", p.ssid).Msg("network: cannot connect")
	return false
}

// Gate lets several callers ask for a reconnect within one send cycle while
// the underlying reconnect runs at most once until Reset.
type Gate struct {
	conn      Connectivity
	attempted bool
	result    bool
}

func NewGate(conn Connectivity) *Gate {
	return &Gate{conn: conn}
}

func (g *Gate) IsConnected(ctx context.Context) bool {
	return g.conn.IsConnected(ctx)
}

func (g *Gate) Reconnect(ctx context.Context) bool {
	if g.attempted {
		return g.result
	}
	g.attempted = true
	g.result = g.conn.Reconnect(ctx)
	return g.result
}

func (g *Gate) Reset() {
	g.attempted = false
	g.result = false
}

func hostPort(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("network: invalid base url %q: %w", baseURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("network: base url %q has no host", baseURL)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
