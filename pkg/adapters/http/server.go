package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/internal/logging"
	"github.com/aretw0/animgraph/internal/presentation/graph"
	"github.com/aretw0/animgraph/internal/presentation/tui"
	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/observability"
	"github.com/aretw0/animgraph/pkg/ports"
	"github.com/aretw0/animgraph/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the controller catalogue the server exposes.
type Engine interface {
	// ListControllers returns the names of every available definition.
	ListControllers() ([]string, error)
	// Controller compiles or reuses the named controller. Every successful
	// call must be paired with Release.
	Controller(name string) (*domain.Controller, error)
	Release(name string)
	// Watch reports the names of definitions that changed.
	Watch(ctx context.Context) (<-chan string, error)
}

// Server serves controllers and animator sessions over HTTP.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Events   *observability.Stream
	Clips    ports.ClipSource
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSessions enables the /sessions routes.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.Sessions = m
	}
}

// WithEvents enables lifecycle events on /events.
func WithEvents(stream *observability.Stream) Option {
	return func(s *Server) {
		s.Events = stream
	}
}

// WithClips sets the clip source used for durations in /controllers/{name}.
func WithClips(clips ports.ClipSource) Option {
	return func(s *Server) {
		s.Clips = clips
	}
}

// WithMetrics times every tick and serves g on /metrics.
func WithMetrics(m *observability.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Metrics = m
		s.Gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return enableCORS(s.routes())
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/swagger", s.GetSwaggerUI)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/controllers", func(r chi.Router) {
		r.Get("/", s.ListControllers)
		r.Get("/{name}", s.GetController)
		r.Get("/{name}/graph", s.GetGraph)
	})

	if s.Sessions != nil {
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.ListSessions)
			r.Post("/{id}", s.CreateSession)
			r.Get("/{id}", s.GetSession)
			r.Delete("/{id}", s.DeleteSession)
			r.Put("/{id}/parameters", s.SetParameters)
			r.Post("/{id}/tick", s.Tick)
			r.Post("/{id}/transit", s.Transit)
			r.Get("/{id}/pose", s.GetPose)
		})
	}

	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "animgraph-http",
		"version":     strings.TrimSpace(animgraph.Version),
		"api_version": apiVersion,
	})
}

// --- Controllers ---

// ControllerInfo is the JSON summary of a compiled controller.
type ControllerInfo struct {
	Name       string             `json:"name"`
	Skeleton   string             `json:"skeleton,omitempty"`
	Parameters []domain.Parameter `json:"parameters"`
	Layers     []LayerInfo        `json:"layers"`
}

// LayerInfo summarizes one layer.
type LayerInfo struct {
	Name         string           `json:"name"`
	Blending     string           `json:"blending"`
	Weight       float32          `json:"weight"`
	DefaultState string           `json:"default_state,omitempty"`
	States       []string         `json:"states"`
	Transitions  []TransitionInfo `json:"transitions"`
}

// TransitionInfo summarizes one transition.
type TransitionInfo struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Duration float32 `json:"duration"`
	Fixed    bool    `json:"fixed"`
	ExitTime float32 `json:"exit_time,omitempty"`
	Atomic   bool    `json:"atomic,omitempty"`
}

func describe(c *domain.Controller) ControllerInfo {
	info := ControllerInfo{
		Name:       c.Name,
		Skeleton:   c.SkeletonGUID,
		Parameters: c.Parameters(),
	}
	for _, l := range c.Layers() {
		li := LayerInfo{
			Name:         l.Name,
			Blending:     l.Blending.String(),
			Weight:       l.Weight,
			DefaultState: l.DefaultStateName(),
			States:       []string{},
			Transitions:  []TransitionInfo{},
		}
		for _, st := range l.States() {
			li.States = append(li.States, st.Name)
		}
		for _, t := range l.Transitions() {
			ti := TransitionInfo{From: t.Src, To: t.Dst, Duration: t.Duration, Fixed: t.FixedDuration, Atomic: t.Atomic}
			if t.HasExitTime {
				ti.ExitTime = t.ExitTime
			}
			li.Transitions = append(li.Transitions, ti)
		}
		info.Layers = append(info.Layers, li)
	}
	return info
}

// ListControllers handles GET /controllers.
func (s *Server) ListControllers(w http.ResponseWriter, r *http.Request) {
	names, err := s.Engine.ListControllers()
	if err != nil {
		s.writeError(w, fmt.Errorf("list controllers: %w", err))
		return
	}
	slices.Sort(names)
	s.writeJSON(w, http.StatusOK, names)
}

// GetController handles GET /controllers/{name}. With ?format=markdown it
// returns the inspection report instead of JSON.
func (s *Server) GetController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctrl, err := s.Engine.Controller(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer s.Engine.Release(name)

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, tui.InspectMarkdown(ctrl, s.Clips))
		return
	}
	s.writeJSON(w, http.StatusOK, describe(ctrl))
}

// GetGraph handles GET /controllers/{name}/graph. With ?session=id the
// diagram highlights that session's current and blending states.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctrl, err := s.Engine.Controller(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer s.Engine.Release(name)

	var overlay *graph.Overlay
	if id := r.URL.Query().Get("session"); id != "" && s.Sessions != nil {
		snap, err := s.Sessions.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		overlay = graph.OverlayFromSnapshot(snap)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(ctrl, overlay))
}

// --- Sessions ---

// CreateSessionRequest is the body of POST /sessions/{id}.
type CreateSessionRequest struct {
	Controller string `json:"controller"`
}

// TickRequest is the body of POST /sessions/{id}/tick. Steps defaults to 1.
type TickRequest struct {
	DT    float32 `json:"dt"`
	Steps int     `json:"steps,omitempty"`
}

// TransitRequest is the body of POST /sessions/{id}/transit.
type TransitRequest struct {
	Layer    string  `json:"layer"`
	State    string  `json:"state"`
	Offset   float32 `json:"offset,omitempty"`
	Duration float32 `json:"duration"`
	Atomic   bool    `json:"atomic,omitempty"`
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// CreateSession handles POST /sessions/{id}.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Controller == "" {
		http.Error(w, "controller is required", http.StatusBadRequest)
		return
	}
	snap, err := s.Sessions.Create(r.Context(), chi.URLParam(r, "id"), body.Controller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, snap)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetParameters handles PUT /sessions/{id}/parameters with a name to value
// object. Either every parameter is applied or none is.
func (s *Server) SetParameters(w http.ResponseWriter, r *http.Request) {
	var body map[string]float32
	if !s.decode(w, r, &body) {
		return
	}
	s.update(w, r, func(sess *session.Session) error {
		for name := range body {
			if _, ok := sess.Animator.Parameter(name); !ok {
				return fmt.Errorf("%w: %s", domain.ErrParameterNotFound, name)
			}
		}
		for name, v := range body {
			_ = sess.Animator.SetParameter(name, v)
		}
		return nil
	})
}

// Tick handles POST /sessions/{id}/tick.
func (s *Server) Tick(w http.ResponseWriter, r *http.Request) {
	var body TickRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.DT < 0 {
		http.Error(w, "dt must not be negative", http.StatusBadRequest)
		return
	}
	steps := max(body.Steps, 1)
	s.update(w, r, func(sess *session.Session) error {
		for range steps {
			s.advance(r.Context(), sess.Animator, body.DT)
		}
		return nil
	})
}

func (s *Server) advance(ctx context.Context, a *runtime.Animator, dt float32) {
	if s.Metrics == nil {
		a.UpdateContext(ctx, dt)
		return
	}
	s.Metrics.Time(func() { a.UpdateContext(ctx, dt) })
}

// Transit handles POST /sessions/{id}/transit, forcing a layer into a state.
func (s *Server) Transit(w http.ResponseWriter, r *http.Request) {
	var body TransitRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.update(w, r, func(sess *session.Session) error {
		layer := domain.BaseLayerName
		if body.Layer != "" {
			layer = body.Layer
		}
		li := sess.Animator.Controller().LayerIndex(layer)
		if li < 0 {
			return fmt.Errorf("%w: %s", domain.ErrLayerNotFound, layer)
		}
		return sess.Animator.TransitStateContext(r.Context(), li, body.State, body.Offset, body.Duration, body.Atomic)
	})
}

// PoseResponse is the body of GET /sessions/{id}/pose.
type PoseResponse struct {
	Joints []string           `json:"joints"`
	Local  []domain.JointPose `json:"local"`
	Model  []domain.JointPose `json:"model"`
}

// GetPose handles GET /sessions/{id}/pose.
func (s *Server) GetPose(w http.ResponseWriter, r *http.Request) {
	var resp PoseResponse
	_, err := s.Sessions.Update(r.Context(), chi.URLParam(r, "id"), func(sess *session.Session) error {
		a := sess.Animator
		if skel := a.Controller().Skeleton; skel != nil {
			for _, j := range skel.Joints {
				resp.Joints = append(resp.Joints, j.Name)
			}
		}
		resp.Local = slices.Clone(a.Pose())
		resp.Model = slices.Clone(a.ModelPose())
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	snap, err := s.Sessions.Update(r.Context(), chi.URLParam(r, "id"), fn)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// --- Helpers ---

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDefinitionNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrParameterNotFound),
		errors.Is(err, domain.ErrStateNotFound),
		errors.Is(err, domain.ErrLayerNotFound):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}
