package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/net/websocket"

	"hexpi/internal/coordinator"
	"hexpi/internal/digits"
	"hexpi/internal/events"
	"hexpi/internal/logger"
	"hexpi/internal/trigger"
)

const source = "api"

// Config configures a Server.
type Config struct {
	Addr        string
	Coordinator *coordinator.Coordinator
	Trigger     *trigger.Manual     // fired by /api/resume; optional
	EventBus    *events.Bus         // forwarded to /ws clients; optional
	Gatherer    prometheus.Gatherer // served on /metrics; optional
	Workers     int                 // used when a run request omits workers
	Logger      *logger.Logger
}

// Server exposes a Coordinator over HTTP and WebSocket.
type Server struct {
	config Config
	log    *logger.Logger

	mu      sync.RWMutex
	baseCtx context.Context
	running bool
	cancel  context.CancelFunc
	last    *coordinator.Result
	lastErr error
	runDone chan struct{}

	wsClients *xsync.Map[*websocket.Conn, struct{}]

	server *http.Server
}

// NewServer creates a server. It does not listen until Start is called.
func NewServer(config Config) *Server {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	log := config.Logger
	if log == nil {
		log = logger.Default
	}
	return &Server{
		config:    config,
		log:       log,
		baseCtx:   context.Background(),
		wsClients: xsync.NewMap[*websocket.Conn, struct{}](),
	}
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/result", s.handleResult)
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/pause", s.handlePause)
	mux.HandleFunc("/api/resume", s.handleResume)
	mux.HandleFunc("/api/cancel", s.handleCancel)

	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

// Start serves until ctx is done. Runs started through the API are cancelled
// along with ctx.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.broadcastLoop(ctx)

	s.log.Info(source, "API server starting on http://%s", s.config.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StatusResponse describes the coordinator state.
type StatusResponse struct {
	Running  bool              `json:"running"`
	Paused   bool              `json:"paused"`
	Progress []digits.Progress `json:"progress,omitempty"`
	LastErr  string            `json:"last_error,omitempty"`

	// DroppedEvents counts events a slow subscriber missed.
	DroppedEvents uint64 `json:"dropped_events"`
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{
		Running:  s.running || s.config.Coordinator.Running(),
		Paused:   s.config.Coordinator.Paused(),
		Progress: s.config.Coordinator.Progress(),
	}
	if s.lastErr != nil {
		resp.LastErr = s.lastErr.Error()
	}
	if s.config.EventBus != nil {
		resp.DroppedEvents = s.config.EventBus.Dropped()
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.status())
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	result := s.last
	s.mu.RUnlock()

	if result == nil {
		http.Error(w, "No result available", http.StatusNotFound)
		return
	}
	s.writeJSON(w, result)
}

// RunRequest starts a computation.
type RunRequest struct {
	Start   int64 `json:"start"`
	Count   int64 `json:"count"`
	Workers int   `json:"workers,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Workers == 0 {
		req.Workers = s.config.Workers
	}
	if _, err := coordinator.Partition(req.Start, req.Count, req.Workers); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	// The coordinator may also be driven outside the API, e.g. by a one-shot CLI run.
	if s.running || s.config.Coordinator.Running() {
		s.mu.Unlock()
		http.Error(w, "Computation already running", http.StatusConflict)
		return
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.running = true
	s.cancel = cancel
	s.lastErr = nil
	done := make(chan struct{})
	s.runDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		result, err := s.config.Coordinator.Run(ctx, req.Start, req.Count, req.Workers)

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		if err != nil {
			s.lastErr = err
		} else {
			s.last = result
		}
		s.mu.Unlock()

		if err != nil {
			s.log.Error(source, "Run failed: %v", err)
			return
		}
		s.broadcast(map[string]any{
			"type":   "result",
			"result": result,
		})
	}()

	s.writeJSONStatus(w, http.StatusAccepted, map[string]any{"status": "started", "start": req.Start, "count": req.Count, "workers": req.Workers})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.config.Coordinator.PauseNow() {
		http.Error(w, "Nothing to pause", http.StatusConflict)
		return
	}
	s.writeJSON(w, map[string]string{"status": "pause requested"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resumed := s.config.Trigger != nil && s.config.Trigger.Fire()
	if !resumed {
		resumed = s.config.Coordinator.Resume()
	}
	if !resumed {
		http.Error(w, "Nothing to resume", http.StatusConflict)
		return
	}
	s.writeJSON(w, map[string]string{"status": "resume requested"})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		http.Error(w, "No computation running", http.StatusConflict)
		return
	}
	cancel()
	s.writeJSON(w, map[string]string{"status": "cancel requested"})
}

// Wait blocks until the run started by the last /api/run request has finished.
func (s *Server) Wait() {
	s.mu.RLock()
	done := s.runDone
	s.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.wsClients.Store(ws, struct{}{})
	defer func() {
		s.wsClients.Delete(ws)
		_ = ws.Close()
	}()

	// Clients only listen; a read error means they went away.
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		s.log.Error(source, "Failed to encode broadcast: %v", err)
		return
	}

	s.wsClients.Range(func(ws *websocket.Conn, _ struct{}) bool {
		if err := websocket.Message.Send(ws, string(jsonData)); err != nil {
			s.log.Debug(source, "Dropping websocket client: %v", err)
			s.wsClients.Delete(ws)
		}
		return true
	})
}

// broadcastLoop forwards coordinator events to WebSocket clients and sends a
// progress snapshot every second while a run is active.
func (s *Server) broadcastLoop(ctx context.Context) {
	var eventC <-chan events.Event
	if s.config.EventBus != nil {
		sub := s.config.EventBus.Subscribe()
		defer s.config.EventBus.Unsubscribe(sub)
		eventC = sub.C
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventC:
			if !ok {
				eventC = nil
				continue
			}
			s.broadcast(map[string]any{
				"type":  "event",
				"event": event,
			})
		case <-ticker.C:
			status := s.status()
			if !status.Running {
				continue
			}
			s.broadcast(map[string]any{
				"type":   "status",
				"status": status,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	s.writeJSONStatus(w, http.StatusOK, data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error(source, "Failed to encode JSON: %v", err)
	}
}
