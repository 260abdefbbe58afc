package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/internal/logging"
	"github.com/aretw0/animgraph/internal/presentation/graph"
	"github.com/aretw0/animgraph/internal/validator"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ControllersURI is the resource listing every controller name.
const ControllersURI = "animgraph://controllers"

// Engine is the controller catalogue the MCP server exposes.
type Engine interface {
	ListControllers() ([]string, error)
	Controller(name string) (*domain.Controller, error)
	Release(name string)
	Inspect(name string) (string, error)
	Validate(name string) (*validator.Report, error)
}

// Server exposes controllers and, optionally, animator sessions as MCP tools.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithSessions registers the session tools.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithLogger sets the logger. It must not write to stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("animgraph-mcp", strings.TrimSpace(animgraph.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	if s.sessions != nil {
		s.registerSessionTools()
	}
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ControllerArgs names a controller.
type ControllerArgs struct {
	Name string `json:"name"`
}

// GraphArgs selects a controller and an optional session to highlight.
type GraphArgs struct {
	Name      string `json:"name"`
	SessionID string `json:"session_id,omitempty"`
}

// SessionArgs identifies a session.
type SessionArgs struct {
	SessionID  string `json:"session_id"`
	Controller string `json:"controller,omitempty"`
}

// StepArgs sets parameters on a session and advances it.
type StepArgs struct {
	SessionID  string             `json:"session_id"`
	Parameters map[string]float32 `json:"parameters,omitempty"`
	DT         float32            `json:"dt"`
	Steps      int                `json:"steps,omitempty"`
}

// TransitArgs forces a layer of a session into a state.
type TransitArgs struct {
	SessionID string  `json:"session_id"`
	Layer     string  `json:"layer,omitempty"`
	State     string  `json:"state"`
	Offset    float32 `json:"offset,omitempty"`
	Duration  float32 `json:"duration,omitempty"`
	Atomic    bool    `json:"atomic,omitempty"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_controllers",
		mcp.WithDescription("List the names of every animation controller."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := s.engine.ListControllers()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		return mcp.NewToolResultText(strings.Join(names, "\n")), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("inspect_controller",
		mcp.WithDescription("Describe a controller in markdown: parameters, layers, states and transitions."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Controller name")),
	), mcp.NewTypedToolHandler(s.handleInspect))

	s.mcpServer.AddTool(mcp.NewTool("validate_controller",
		mcp.WithDescription("Report unreachable states, missing clips, unbound blend parameters and other issues."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Controller name")),
	), mcp.NewTypedToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("graph_controller",
		mcp.WithDescription("Render the state machines of a controller as a Mermaid diagram."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Controller name")),
		mcp.WithString("session_id", mcp.Description("Highlight the current states of this session (optional)")),
	), mcp.NewTypedToolHandler(s.handleGraph))
}

func (s *Server) registerSessionTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Start an animator session for a controller."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("New session ID")),
		mcp.WithString("controller", mcp.Required(), mcp.Description("Controller name")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleCreateSession))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Return the snapshot of a session: time, parameters and each layer's crossfade stack."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("step_session",
		mcp.WithDescription("Set parameters on a session, then advance it by dt seconds, steps times."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithObject("parameters", mcp.Description("Parameter name to value (optional)")),
		mcp.WithNumber("dt", mcp.Required(), mcp.Description("Seconds per step")),
		mcp.WithNumber("steps", mcp.Description("Number of steps (default 1)")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleStep))

	s.mcpServer.AddTool(mcp.NewTool("transit_session",
		mcp.WithDescription("Crossfade a layer of a session into a state."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("layer", mcp.Description("Layer name (default Base Layer)")),
		mcp.WithString("state", mcp.Required(), mcp.Description("Target state")),
		mcp.WithNumber("offset", mcp.Description("Normalized start time of the target")),
		mcp.WithNumber("duration", mcp.Description("Crossfade seconds")),
		mcp.WithBoolean("atomic", mcp.Description("Block transitions until the crossfade ends")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleTransit))
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest, args ControllerArgs) (*mcp.CallToolResult, error) {
	md, err := s.engine.Inspect(args.Name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args ControllerArgs) (*mcp.CallToolResult, error) {
	report, err := s.engine.Validate(args.Name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validate failed: %v", err)), nil
	}
	if len(report.Issues) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s: ok", report.Controller)), nil
	}
	lines := make([]string, len(report.Issues))
	for i, issue := range report.Issues {
		lines[i] = issue.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (*mcp.CallToolResult, error) {
	ctrl, err := s.engine.Controller(args.Name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph failed: %v", err)), nil
	}
	defer s.engine.Release(args.Name)

	var overlay *graph.Overlay
	if args.SessionID != "" && s.sessions != nil {
		snap, err := s.sessions.Get(ctx, args.SessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("session %q: %v", args.SessionID, err)), nil
		}
		overlay = graph.OverlayFromSnapshot(snap)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(ctrl, overlay)), nil
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (domain.Snapshot, error) {
	if args.SessionID == "" || args.Controller == "" {
		return domain.Snapshot{}, errors.New("session_id and controller are required")
	}
	return deref(s.sessions.Create(ctx, args.SessionID, args.Controller))
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (domain.Snapshot, error) {
	return deref(s.sessions.Get(ctx, args.SessionID))
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args StepArgs) (domain.Snapshot, error) {
	if args.DT < 0 {
		return domain.Snapshot{}, errors.New("dt must not be negative")
	}
	steps := max(args.Steps, 1)
	return deref(s.sessions.Update(ctx, args.SessionID, func(sess *session.Session) error {
		for name := range args.Parameters {
			if _, ok := sess.Animator.Parameter(name); !ok {
				return fmt.Errorf("%w: %s", domain.ErrParameterNotFound, name)
			}
		}
		for name, v := range args.Parameters {
			_ = sess.Animator.SetParameter(name, v)
		}
		for range steps {
			sess.Animator.UpdateContext(ctx, args.DT)
		}
		s.logger.Debug("mcp step", "session_id", args.SessionID, "dt", args.DT, "steps", steps)
		return nil
	}))
}

func (s *Server) handleTransit(ctx context.Context, request mcp.CallToolRequest, args TransitArgs) (domain.Snapshot, error) {
	layer := domain.BaseLayerName
	if args.Layer != "" {
		layer = args.Layer
	}
	return deref(s.sessions.Update(ctx, args.SessionID, func(sess *session.Session) error {
		li := sess.Animator.Controller().LayerIndex(layer)
		if li < 0 {
			return fmt.Errorf("%w: %s", domain.ErrLayerNotFound, layer)
		}
		return sess.Animator.TransitStateContext(ctx, li, args.State, args.Offset, args.Duration, args.Atomic)
	}))
}

func deref(snap *domain.Snapshot, err error) (domain.Snapshot, error) {
	if err != nil {
		return domain.Snapshot{}, err
	}
	return *snap, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ControllersURI, "Animation controllers",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.engine.ListControllers()
		if err != nil {
			return nil, fmt.Errorf("failed to list controllers: %w", err)
		}
		data, err := json.Marshal(names)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ControllersURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
