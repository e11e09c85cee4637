package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/mirzahilmi/lora-orion-bridge/internal/common/config"
	"github.com/mirzahilmi/lora-orion-bridge/internal/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

type countingSleeper struct {
	calls int
}

func (s *countingSleeper) Sleep(context.Context, time.Duration) {
	s.calls++
}

func testNetwork(attempts int) config.Network {
	return config.Network{Ssid: "field-ap", Attempts: attempts, IntervalMs: 1, DialTimeoutMs: 200}
}

func TestHostPort(t *testing.T) {
	cases := map[string]string{
		"http://10.199.26.8:1026/v2/entities": "10.199.26.8:1026",
		"http://orion.local/v2/entities":      "orion.local:80",
		"https://orion.example.com/v2":        "orion.example.com:443",
		"http://[::1]:1026/v2":                "[::1]:1026",
	}
	for in, want := range cases {
		got, err := hostPort(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := hostPort("/v2/entities")
	assert.Error(t, err)
}

func TestProbe_ConnectedListener(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	probe, err := NewProbe(testNetwork(3), "http://"+listener.Addr().String()+"/v2/entities",
		indicator.NewLogIndicator(nil), &countingSleeper{})
	require.NoError(t, err)
	assert.Equal(t, listener.Addr().String(), probe.Address())

	assert.True(t, probe.IsConnected(context.Background()))
	assert.True(t, probe.Reconnect(context.Background()))
}

func TestProbe_ReconnectGivesUpAfterBudget(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	led := indicator.NewLogIndicator(nil)
	led.Set(true)
	sleeper := &countingSleeper{}
	probe, err := NewProbe(testNetwork(4), "http://"+address, led, sleeper)
	require.NoError(t, err)

	dials := 0
	probe.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		dials++
		return nil, &net.OpError{Op: "dial", Net: network, Err: errRefused}
	}

	assert.False(t, probe.Reconnect(context.Background()))
	assert.Equal(t, 4, dials)
	assert.Equal(t, 4, sleeper.calls)
	assert.False(t, led.On())
}

func TestProbe_ReconnectSucceedsMidway(t *testing.T) {
	led := indicator.NewLogIndicator(nil)
	probe, err := NewProbe(testNetwork(5), "http://orion.local:1026", led, &countingSleeper{})
	require.NoError(t, err)

	server, client := net.Pipe()
	defer server.Close()

	dials := 0
	probe.dial = func(context.Context, string, string) (net.Conn, error) {
		dials++
		if dials < 3 {
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errRefused}
		}
		return client, nil
	}

	assert.True(t, probe.Reconnect(context.Background()))
	assert.Equal(t, 3, dials)
	assert.True(t, led.On())
}

type fakeConnectivity struct {
	connected  bool
	reconnects int
	result     bool
}

func (f *fakeConnectivity) IsConnected(context.Context) bool { return f.connected }

func (f *fakeConnectivity) Reconnect(context.Context) bool {
	f.reconnects++
	return f.result
}

func TestGate_ReconnectOncePerCycle(t *testing.T) {
	conn := &fakeConnectivity{result: false}
	gate := NewGate(conn)
	ctx := context.Background()

	assert.False(t, gate.IsConnected(ctx))
	assert.False(t, gate.Reconnect(ctx))
	assert.False(t, gate.Reconnect(ctx))
	assert.Equal(t, 1, conn.reconnects)

	gate.Reset()
	conn.result = true
	assert.True(t, gate.Reconnect(ctx))
	assert.Equal(t, 2, conn.reconnects)
}
