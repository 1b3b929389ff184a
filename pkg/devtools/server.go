package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/reactor/pkg/reactive"
)

// AtomInfo describes one mirrored atom.
type AtomInfo struct {
	ID        reactive.ID   `json:"id"`
	Name      string        `json:"name"`
	Kind      reactive.Kind `json:"kind"`
	Hash      string        `json:"hash"`
	Value     any           `json:"value,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Message is sent to WebSocket clients.
type Message struct {
	Type      reactive.EventType `json:"type"`
	ID        reactive.ID        `json:"id"`
	Name      string             `json:"name"`
	Kind      reactive.Kind      `json:"kind"`
	Paths     []string           `json:"paths,omitempty"`
	Value     any                `json:"value,omitempty"`
	Hash      string             `json:"hash,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Option configures a Server.
type Option func(*Server)

// WithAllAtoms mirrors every atom, not only those created with Devtools().
func WithAllAtoms() Option {
	return func(s *Server) { s.allAtoms = true }
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithWriteTimeout bounds each write to a WebSocket client.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.hub.writeTimeout = d
		}
	}
}

// WithSendBuffer sets how many messages may queue for one WebSocket client
// before it is disconnected.
func WithSendBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.hub.sendBuffer = n
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server is the devtools inspector.
type Server struct {
	allAtoms bool
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	mu     sync.RWMutex
	mirror map[reactive.ID]*AtomInfo

	hub       *hub
	router    chi.Router
	unobserve func()
}

// NewServer starts observing u. Must be called on u's goroutine.
func NewServer(u *reactive.Universe, opts ...Option) *Server {
	s := &Server{
		mirror: make(map[reactive.ID]*AtomInfo),
		hub:    newHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = u.Logger()
	}

	for _, st := range u.States() {
		if s.allAtoms || st.Devtools() {
			s.mirror[st.ID()] = &AtomInfo{
				ID:        st.ID(),
				Name:      st.Name(),
				Kind:      st.Kind(),
				Hash:      st.Hash(),
				Value:     st.Peek(),
				UpdatedAt: time.Now(),
			}
		}
	}
	s.unobserve = u.Observe(s.observe)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/atoms", s.handleList)
	r.Get("/atoms/{id}", s.handleAtom)
	r.Get("/ws", s.handleWS)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("devtools listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int { return s.hub.count() }

// Atoms returns the mirrored atoms ordered by id, without values.
func (s *Server) Atoms() []AtomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AtomInfo, 0, len(s.mirror))
	for _, info := range s.mirror {
		cp := *info
		cp.Value = nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops observing and disconnects clients.
func (s *Server) Close() {
	if s.unobserve != nil {
		s.unobserve()
	}
	s.hub.close()
}

// observe runs on the universe goroutine.
func (s *Server) observe(ev reactive.Event) {
	if !s.allAtoms && !ev.Devtools {
		return
	}

	s.mu.Lock()
	switch ev.Type {
	case reactive.EventDisposed:
		delete(s.mirror, ev.ID)
	default:
		s.mirror[ev.ID] = &AtomInfo{
			ID:        ev.ID,
			Name:      ev.Name,
			Kind:      ev.Kind,
			Hash:      ev.Hash,
			Value:     ev.Value,
			UpdatedAt: ev.Time,
		}
	}
	s.mu.Unlock()

	msg := Message{
		Type:      ev.Type,
		ID:        ev.ID,
		Name:      ev.Name,
		Kind:      ev.Kind,
		Hash:      ev.Hash,
		Timestamp: ev.Time,
	}
	if ev.Type != reactive.EventDisposed {
		msg.Value = ev.Value
	}
	for _, p := range ev.Paths {
		msg.Paths = append(msg.Paths, p.String())
	}
	s.hub.broadcast(msg)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Atoms())
}

func (s *Server) handleAtom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid atom id"})
		return
	}
	s.mu.RLock()
	info, ok := s.mirror[id]
	var cp AtomInfo
	if ok {
		cp = *info
	}
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "atom not found"})
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.serve(w, r, s.greeting)
}

// greeting describes every mirrored atom as a created message.
func (s *Server) greeting() []Message {
	atoms := s.snapshot()
	out := make([]Message, 0, len(atoms))
	for _, info := range atoms {
		out = append(out, Message{
			Type:      reactive.EventCreated,
			ID:        info.ID,
			Name:      info.Name,
			Kind:      info.Kind,
			Value:     info.Value,
			Hash:      info.Hash,
			Timestamp: info.UpdatedAt,
		})
	}
	return out
}

// snapshot copies the mirror including values, ordered by id.
func (s *Server) snapshot() []AtomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AtomInfo, 0, len(s.mirror))
	for _, info := range s.mirror {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
