package port

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/config"
	"github.com/mirzahilmi/lora-orion-bridge/internal/common/middleware"
	"github.com/mirzahilmi/lora-orion-bridge/internal/diagnostics"
	"github.com/mirzahilmi/lora-orion-bridge/internal/ingest"
	"github.com/mirzahilmi/lora-orion-bridge/internal/orion"
	"github.com/mirzahilmi/lora-orion-bridge/internal/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server  *httptest.Server
	tracker *diagnostics.Tracker
	hub     *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Bridge diagnostics", "1.0.0"))
	tracker := diagnostics.NewTracker(time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC))

	hub := RegisterHandler(ctx, api, router, middleware.NewMiddleware(api, config.Config{}), tracker,
		Entity{Id: "sensor001", Type: "sensorTempHum"})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{server, tracker, hub}
}

func TestGetStatus(t *testing.T) {
	ts := newTestServer(t)
	r := reading.SensorReading{Latitude: 40.7128, Longitude: -74.006, Temperature: 25.5, Humidity: 60.5}
	ts.tracker.Observe(context.Background(), ingest.Report{
		CycleId: "c-1",
		Reading: &r,
		Outcome: orion.Outcome{Kind: orion.Updated, Code: 204},
	})

	resp, err := http.Get(ts.server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(1), body["cycles"])
	assert.Equal(t, "c-1", body["lastCycleId"])
	assert.Equal(t, map[string]any{"kind": "updated", "code": float64(204)}, body["lastOutcome"])
}

func TestPostParse(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.server.URL+"/readings/parse", "application/json",
		strings.NewReader(`{"payload":"Lat: 40.712800, Lon: -74.006000, Temp: 25.5, Hum: 60.5"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Reading reading.SensorReading `json:"reading"`
		Update  map[string]any        `json:"update"`
		Entity  map[string]any        `json:"entity"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 40.7128, body.Reading.Latitude)
	assert.Equal(t, "40.712800,-74.006000", body.Update["location"].(map[string]any)["value"])
	assert.Equal(t, "sensor001", body.Entity["id"])
	assert.Equal(t, "sensorTempHum", body.Entity["type"])
}

func TestPostParse_RejectsNoFix(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.server.URL+"/readings/parse", "application/json",
		strings.NewReader(`{"payload":"Lat: 0, Lon: 0, Temp: 22.0, Hum: 50.0"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no gps fix")
	assert.Contains(t, buf.String(), "body.payload")
}

func TestOutcomeFeed(t *testing.T) {
	ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/diagnostics/outcomes"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	ts.hub.Observe(context.Background(), ingest.Report{
		CycleId: "c-2",
		Outcome: orion.Outcome{Kind: orion.TransportFailure, Code: 500, Body: "boom"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal(message, &report))
	assert.Equal(t, "c-2", report["cycleId"])
	outcome := report["outcome"].(map[string]any)
	assert.Equal(t, "transport_failure", outcome["kind"])
	assert.Equal(t, float64(500), outcome["code"])
}
