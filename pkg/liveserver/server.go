package liveserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/tracked/pkg/observable"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// Gatherer enables GET /metrics when set.
	Gatherer prometheus.Gatherer

	// CheckOrigin validates WebSocket origins. Nil allows all origins.
	CheckOrigin func(*http.Request) bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ReadHeaderTimeout bounds request header reads (default 10s).
	ReadHeaderTimeout time.Duration

	// WriteTimeout bounds each WebSocket write (default 10s). A client
	// that cannot take a message in time is disconnected.
	WriteTimeout time.Duration
}

// Server serves one tracked object.
type Server struct {
	obj      *observable.Object
	config   Config
	logger   *slog.Logger
	hub      *hub
	router   chi.Router
	reaction *observable.Reaction

	// writeMu serializes writes so notification runs one write at a time.
	writeMu sync.Mutex

	// latest is the most recent encoded state message.
	latest   []byte
	latestMu sync.RWMutex

	httpServer *http.Server
}

// New creates a server over obj and starts its broadcast reaction.
func New(obj *observable.Object, config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.ReadHeaderTimeout == 0 {
		config.ReadHeaderTimeout = 10 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		obj:    obj,
		config: config,
		logger: logger.With("component", "liveserver"),
		hub:    newHub(config.CheckOrigin, config.WriteTimeout),
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	s.reaction = obj.Runtime().Autorun(s.publish, observable.WithName("liveserver"))
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/state", s.handleState)
	r.Get("/state/{key}", s.handleGet)
	r.Put("/state/{key}", s.handlePut)
	r.Get("/graph", s.handleGraph)
	r.Get("/ws", s.handleWebSocket)
	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int {
	return s.hub.count()
}

// publish reads every field, which subscribes the broadcast reaction to
// all of them, and pushes the state to clients.
func (s *Server) publish() {
	state := make(map[string]any, len(s.obj.Keys()))
	for _, key := range s.obj.Keys() {
		state[key] = s.obj.Get(key)
	}

	data, err := json.Marshal(Message{Type: MessageState, State: state})
	if err != nil {
		s.logger.Error("encode state", "error", err)
		data, _ = json.Marshal(Message{Type: MessageError, Error: err.Error()})
	}

	s.latestMu.Lock()
	s.latest = data
	s.latestMu.Unlock()

	s.hub.broadcast(data)
}

func (s *Server) greeting() []byte {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return s.latest
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.obj.Snapshot())
}

type fieldResponse struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := s.obj.PropertyID(key); !ok {
		writeError(w, http.StatusNotFound, "unknown field "+key)
		return
	}
	writeJSON(w, http.StatusOK, fieldResponse{Key: key, Value: s.obj.Peek(key)})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := s.obj.PropertyID(key); !ok {
		writeError(w, http.StatusNotFound, "unknown field "+key)
		return
	}

	var value any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	s.writeMu.Lock()
	err := s.obj.Set(key, value)
	s.writeMu.Unlock()

	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, observable.ErrTypeMismatch) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	s.logger.Debug("field written", "key", key)
	writeJSON(w, http.StatusOK, fieldResponse{Key: key, Value: s.obj.Peek(key)})
}

func (s *Server) handleGraph(w http.ResponseWriter, _ *http.Request) {
	graph := s.obj.Runtime().Graph()
	out := make(map[string][]uint64, len(graph))
	for id, subs := range graph {
		out[string(id)] = subs
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.serve(w, r, s.greeting); err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
	}
}

// ListenAndServe serves on the configured address until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.config.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the broadcast reaction, disconnects WebSocket clients
// and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.reaction.Dispose()
	s.hub.closeAll()
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
