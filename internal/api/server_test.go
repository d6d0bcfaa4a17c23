package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"hexpi/internal/coordinator"
	"hexpi/internal/events"
	"hexpi/internal/logger"
	"hexpi/internal/metrics"
	"hexpi/internal/trigger"
)

type fixture struct {
	server *Server
	http   *httptest.Server
	bus    *events.Bus
	events *events.Subscription
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelError)
	bus := events.NewBus()
	reg := prometheus.NewRegistry()
	manual := trigger.NewManual()

	coord := coordinator.New(coordinator.Config{
		Trigger:  manual,
		EventBus: bus,
		Metrics:  metrics.NewPrometheus(reg, "hexpi"),
		Logger:   log,
	})

	s := NewServer(Config{
		Coordinator: coord,
		Trigger:     manual,
		EventBus:    bus,
		Gatherer:    reg,
		Workers:     2,
		Logger:      log,
	})

	f := &fixture{
		server: s,
		http:   httptest.NewServer(s.Handler()),
		bus:    bus,
		events: bus.Subscribe(),
		reg:    reg,
	}
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(f.http.URL+path, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.http.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) waitFor(t *testing.T, typ events.EventType) {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case e := <-f.events.C:
			if e.Type == typ {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestRunAndResult(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/result")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.post(t, "/api/run", RunRequest{Start: 0, Count: 16})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	f.server.Wait()

	resp = f.get(t, "/api/result")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result coordinator.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "243F6A8885A308D3", result.Hex)
	assert.Len(t, result.Shards, 2)
	assert.NotZero(t, result.Checksum)
}

func TestRunValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", "{"},
		{"negative start", `{"start": -1, "count": 8}`},
		{"negative count", `{"start": 0, "count": -8}`},
		{"negative workers", `{"start": 0, "count": 8, "workers": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(f.http.URL+"/api/run", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	assert.False(t, f.server.status().Running)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusMethodNotAllowed, f.get(t, "/api/run").StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, f.get(t, "/api/pause").StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, f.post(t, "/api/status", nil).StatusCode)
}

func TestPauseResumeWhileIdle(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusConflict, f.post(t, "/api/pause", nil).StatusCode)
	assert.Equal(t, http.StatusConflict, f.post(t, "/api/resume", nil).StatusCode)
	assert.Equal(t, http.StatusConflict, f.post(t, "/api/cancel", nil).StatusCode)
}

func TestPauseStatusResume(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusAccepted, f.post(t, "/api/run", RunRequest{Start: 200000, Count: 32, Workers: 2}).StatusCode)
	f.waitFor(t, events.EventRunStarted)

	require.Equal(t, http.StatusOK, f.post(t, "/api/pause", nil).StatusCode)
	f.waitFor(t, events.EventWorkersPaused)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(f.get(t, "/api/status").Body).Decode(&status))
	assert.True(t, status.Running)
	assert.True(t, status.Paused)
	assert.Len(t, status.Progress, 2)

	assert.Equal(t, http.StatusConflict, f.post(t, "/api/run", RunRequest{Start: 0, Count: 8}).StatusCode)

	require.Equal(t, http.StatusOK, f.post(t, "/api/resume", nil).StatusCode)
	f.server.Wait()

	require.NoError(t, json.NewDecoder(f.get(t, "/api/status").Body).Decode(&status))
	assert.False(t, status.Running)
	assert.Empty(t, status.LastErr)
	assert.Equal(t, http.StatusOK, f.get(t, "/api/result").StatusCode)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusAccepted, f.post(t, "/api/run", RunRequest{Start: 200000, Count: 32}).StatusCode)
	f.waitFor(t, events.EventRunStarted)
	require.Equal(t, http.StatusOK, f.post(t, "/api/pause", nil).StatusCode)
	f.waitFor(t, events.EventWorkersPaused)

	require.Equal(t, http.StatusOK, f.post(t, "/api/cancel", nil).StatusCode)
	f.server.Wait()

	status := f.server.status()
	assert.False(t, status.Running)
	assert.Contains(t, status.LastErr, "interrupted")
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/result").StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusAccepted, f.post(t, "/api/run", RunRequest{Start: 0, Count: 8}).StatusCode)
	f.server.Wait()

	resp := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hexpi_runs_total{result="success"} 1`)
}

func TestWebSocketBroadcast(t *testing.T) {
	f := newFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	ws, err := websocket.Dial(wsURL, "", f.http.URL)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return f.server.wsClients.Size() == 1 }, 5*time.Second, 5*time.Millisecond)

	f.server.broadcast(map[string]any{"type": "event", "event": events.NewRunStartedEvent(0, 8, 1)})

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg string
	require.NoError(t, websocket.Message.Receive(ws, &msg))

	var decoded struct {
		Type  string       `json:"type"`
		Event events.Event `json:"event"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg), &decoded))
	assert.Equal(t, "event", decoded.Type)
	assert.Equal(t, events.EventRunStarted, decoded.Event.Type)
	assert.Equal(t, int64(8), decoded.Event.Data.Count)

	_ = ws.Close()
	require.Eventually(t, func() bool { return f.server.wsClients.Size() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestStatusReportsDroppedEvents(t *testing.T) {
	f := newFixture(t)

	// The fixture's own subscription is never drained here.
	for range 101 {
		f.bus.Publish(events.NewWorkerDoneEvent(0, 1))
	}

	var status StatusResponse
	require.NoError(t, json.NewDecoder(f.get(t, "/api/status").Body).Decode(&status))
	assert.Equal(t, uint64(1), status.DroppedEvents)
}

func TestRunConflictsWithRunOutsideAPI(t *testing.T) {
	f := newFixture(t)
	coord := f.server.config.Coordinator

	done := make(chan error, 1)
	go func() {
		_, err := coord.Run(context.Background(), 200000, 16, 2)
		done <- err
	}()
	f.waitFor(t, events.EventRunStarted)
	require.True(t, coord.PauseNow())
	f.waitFor(t, events.EventWorkersPaused)

	resp := f.post(t, "/api/run", RunRequest{Start: 0, Count: 8})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.True(t, f.server.status().Running)

	require.True(t, coord.Resume())
	require.NoError(t, <-done)
}
