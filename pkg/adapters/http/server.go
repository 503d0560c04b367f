// Package http exposes an exhibit to remote hosts over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/exhibit"
	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/dispatch"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/trigger"
)

// Engine is the part of an exhibit the API drives. *exhibit.Exhibit implements it.
type Engine interface {
	State() exhibit.State
	Player() trigger.Actor
	Fire(ctx context.Context, volume string, phase trigger.Phase, actor trigger.Actor) (bool, error)
	SwitchTo(ctx context.Context, ref string) (domain.Outcome, error)
	Back(ctx context.Context) (domain.Outcome, error)
	ClearHistory(ctx context.Context)
	Dispatcher() *dispatch.Dispatcher
}

// Server holds the handlers of the API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams publishes the events of s on GET /events.
func WithStreams(s *StreamManager) Option {
	return func(srv *Server) {
		srv.Streams = s
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(srv *Server) {
		srv.metrics = h
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		srv.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/state", s.GetState)
	r.Get("/events", s.SubscribeEvents)
	r.Post("/triggers/{volume}/{phase}", s.FireTrigger)
	r.Route("/navigation", func(r chi.Router) {
		r.Post("/switch", s.Switch)
		r.Post("/back", s.Back)
		r.Delete("/history", s.ClearHistory)
	})
	r.Post("/messages/{key}", s.SendMessage)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NavigationResponse is returned by the navigation endpoints.
type NavigationResponse struct {
	Outcome domain.Outcome `json:"outcome"`
	State   exhibit.State  `json:"state"`
}

// TriggerRequest optionally names the actor crossing a volume. The player is assumed otherwise.
type TriggerRequest struct {
	Actor *trigger.Actor `json:"actor,omitempty"`
}

// TriggerResponse reports whether the actor passed the volume's tag filter.
type TriggerResponse struct {
	Volume    string        `json:"volume"`
	Phase     trigger.Phase `json:"phase"`
	Delivered bool          `json:"delivered"`
}

// SwitchRequest names the node to switch to ("region/node").
type SwitchRequest struct {
	Node string `json:"node"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetState handles the GET /state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.State())
}

// FireTrigger handles POST /triggers/{volume}/{phase}. Volume names holding a slash must be
// escaped ("Hall%2FA.enter").
func (s *Server) FireTrigger(w http.ResponseWriter, r *http.Request) {
	volume, err := url.PathUnescape(chi.URLParam(r, "volume"))
	if err != nil {
		http.Error(w, "Invalid volume name", http.StatusBadRequest)
		return
	}
	phase, err := trigger.ParsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var body TriggerRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	actor := s.Engine.Player()
	if body.Actor != nil {
		actor = *body.Actor
	}

	delivered, err := s.Engine.Fire(r.Context(), volume, phase, actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TriggerResponse{Volume: volume, Phase: phase, Delivered: delivered})
}

// Switch handles POST /navigation/switch.
func (s *Server) Switch(w http.ResponseWriter, r *http.Request) {
	var body SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Node == "" {
		http.Error(w, "Invalid request body: node is required", http.StatusBadRequest)
		return
	}
	outcome, err := s.Engine.SwitchTo(r.Context(), body.Node)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NavigationResponse{Outcome: outcome, State: s.Engine.State()})
}

// Back handles POST /navigation/back.
func (s *Server) Back(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.Engine.Back(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NavigationResponse{Outcome: outcome, State: s.Engine.State()})
}

// ClearHistory handles DELETE /navigation/history.
func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	s.Engine.ClearHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage handles POST /messages/{key}. The body is a JSON array of arguments, checked
// against the signature registered for key.
func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var args []any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			http.Error(w, "Invalid request body: expected a JSON array", http.StatusBadRequest)
			return
		}
	}

	d := s.Engine.Dispatcher()
	listeners := d.Len(key)
	if err := d.SendDynamic(key, args...); err != nil {
		var panicErr *dispatch.PanicError
		switch {
		case errors.Is(err, dispatch.ErrSignatureMismatch):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.As(err, &panicErr):
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"key": key, "listeners": listeners})
}

// SubscribeEvents handles the GET /events request (SSE). The optional "types" query parameter
// filters events by type ("node_switch,region_exit").
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var filter map[domain.EventType]bool
	if types := r.URL.Query().Get("types"); types != "" {
		filter = make(map[domain.EventType]bool)
		for _, t := range strings.Split(types, ",") {
			filter[domain.EventType(strings.TrimSpace(t))] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if filter != nil && !filter[ev.Type] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrVolumeNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrRegionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error("Request failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
