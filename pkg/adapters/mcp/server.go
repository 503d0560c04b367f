// Package mcp exposes an exhibit to AI agents as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/exhibit"
	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/trigger"
)

const stateURI = "exhibit://state"

// Engine is the part of an exhibit the tools drive. *exhibit.Exhibit implements it.
type Engine interface {
	State() exhibit.State
	Player() trigger.Actor
	Fire(ctx context.Context, volume string, phase trigger.Phase, actor trigger.Actor) (bool, error)
	SwitchTo(ctx context.Context, ref string) (domain.Outcome, error)
	Back(ctx context.Context) (domain.Outcome, error)
	ClearHistory(ctx context.Context)
}

// NavigationResponse is the structured result of the navigation tools.
type NavigationResponse struct {
	Outcome domain.Outcome `json:"outcome" jsonschema_description:"applied, skipped or cancelled"`
	State   exhibit.State  `json:"state" jsonschema_description:"The navigation state after the call"`
}

// TriggerResponse is the structured result of fire_trigger.
type TriggerResponse struct {
	Delivered bool          `json:"delivered" jsonschema_description:"False when the actor did not pass the volume tag filter"`
	State     exhibit.State `json:"state" jsonschema_description:"The navigation state after the call"`
}

// SwitchArgs are the arguments of switch_node.
type SwitchArgs struct {
	Node string `json:"node"`
}

// TriggerArgs are the arguments of fire_trigger.
type TriggerArgs struct {
	Volume   string `json:"volume"`
	Phase    string `json:"phase"`
	ActorID  string `json:"actor_id,omitempty"`
	ActorTag string `json:"actor_tag,omitempty"`
}

// Server wraps an exhibit and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("exhibit-mcp", strings.TrimSpace(exhibit.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the tools over SSE on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
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

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the current node, the navigation history and the state of every region."),
		mcp.WithOutputSchema[exhibit.State](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("switch_node",
		mcp.WithDescription("Make a node current. The previous node is closed and pushed onto the history."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node reference, as region/node")),
		mcp.WithOutputSchema[NavigationResponse](),
	), mcp.NewStructuredToolHandler(s.handleSwitch))

	s.mcpServer.AddTool(mcp.NewTool("back",
		mcp.WithDescription("Return to the previous node. Does nothing when the history is empty."),
		mcp.WithOutputSchema[NavigationResponse](),
	), mcp.NewStructuredToolHandler(s.handleBack))

	s.mcpServer.AddTool(mcp.NewTool("clear_history",
		mcp.WithDescription("Forget the navigation history. The current node is kept."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.engine.ClearHistory(ctx)
		return mcp.NewToolResultText("history cleared"), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("fire_trigger",
		mcp.WithDescription("Simulate an actor entering, staying in or leaving a trigger volume."),
		mcp.WithString("volume", mcp.Required(), mcp.Description("Volume name, e.g. Hall.enter or Hall/A.exit")),
		mcp.WithString("phase", mcp.Required(), mcp.Description("enter, stay or exit")),
		mcp.WithString("actor_id", mcp.Description("Actor id (defaults to the player)")),
		mcp.WithString("actor_tag", mcp.Description("Actor tag (defaults to the player tag)")),
		mcp.WithOutputSchema[TriggerResponse](),
	), mcp.NewStructuredToolHandler(s.handleFireTrigger))
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (exhibit.State, error) {
	return s.engine.State(), nil
}

func (s *Server) handleSwitch(ctx context.Context, request mcp.CallToolRequest, args SwitchArgs) (NavigationResponse, error) {
	if args.Node == "" {
		return NavigationResponse{}, fmt.Errorf("node is required")
	}
	outcome, err := s.engine.SwitchTo(ctx, args.Node)
	if err != nil {
		s.logger.Warn("MCP switch_node failed", "node", args.Node, "err", err)
		return NavigationResponse{}, fmt.Errorf("switch failed: %w", err)
	}
	return NavigationResponse{Outcome: outcome, State: s.engine.State()}, nil
}

func (s *Server) handleBack(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (NavigationResponse, error) {
	outcome, err := s.engine.Back(ctx)
	if err != nil {
		return NavigationResponse{}, fmt.Errorf("back failed: %w", err)
	}
	return NavigationResponse{Outcome: outcome, State: s.engine.State()}, nil
}

func (s *Server) handleFireTrigger(ctx context.Context, request mcp.CallToolRequest, args TriggerArgs) (TriggerResponse, error) {
	phase, err := trigger.ParsePhase(args.Phase)
	if err != nil {
		return TriggerResponse{}, err
	}
	actor := s.engine.Player()
	if args.ActorID != "" {
		actor.ID = args.ActorID
	}
	if args.ActorTag != "" {
		actor.Tag = args.ActorTag
	}

	delivered, err := s.engine.Fire(ctx, args.Volume, phase, actor)
	if err != nil {
		return TriggerResponse{}, fmt.Errorf("fire failed: %w", err)
	}
	return TriggerResponse{Delivered: delivered, State: s.engine.State()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(stateURI, "Navigation State",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.State())
		if err != nil {
			return nil, fmt.Errorf("failed to encode state: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      stateURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
