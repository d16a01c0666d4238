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

	"github.com/aretw0/flowengine"
	"github.com/aretw0/flowengine/internal/logging"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphsResourceURI lists every stored graph.
const GraphsResourceURI = "flowengine://graphs"

// Tool names.
const (
	ToolCreateGraph           = "create_graph"
	ToolRunGraph              = "run_graph"
	ToolGetRun                = "get_run"
	ToolListGraphs            = "list_graphs"
	ToolCreateCodeReviewGraph = "create_code_review_graph"
)

// Server exposes the graph service as an MCP Server.
type Server struct {
	svc       *service.Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used by the transports and tool handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc *service.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("flowengine-mcp", strings.TrimSpace(flowengine.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer.AddTools(s.tools()...)
	s.registerResources()
	return s
}

// MCPServer returns the underlying MCPServer for custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
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
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
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

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolCreateGraph,
				mcp.WithDescription("Store a graph definition (nodes, edges, conditional_edges) and return its ID."),
				mcp.WithString("name", mcp.Description("Graph name (defaults to Graph-<id prefix>)")),
				mcp.WithObject("definition", mcp.Required(), mcp.Description("Object with nodes, edges and optional conditional_edges; give each condition group as an array to fix its order")),
				mcp.WithBoolean("strict", mcp.Description("Reject graphs with validation errors")),
			),
			Handler: s.handleCreateGraph,
		},
		{
			Tool: mcp.NewTool(ToolRunGraph,
				mcp.WithDescription("Execute a stored graph and return the final state and execution log."),
				mcp.WithString("graph_id", mcp.Required(), mcp.Description("ID returned by create_graph")),
				mcp.WithObject("initial_state", mcp.Description("Initial key-value state")),
				mcp.WithNumber("max_iterations", mcp.Description("Iteration cap (default 10)")),
			),
			Handler: s.handleRunGraph,
		},
		{
			Tool: mcp.NewTool(ToolGetRun,
				mcp.WithDescription("Get a recorded run by ID."),
				mcp.WithString("run_id", mcp.Required(), mcp.Description("ID returned by run_graph")),
			),
			Handler: s.handleGetRun,
		},
		{
			Tool: mcp.NewTool(ToolListGraphs,
				mcp.WithDescription("List all stored graphs."),
			),
			Handler: s.handleListGraphs,
		},
		{
			Tool: mcp.NewTool(ToolCreateCodeReviewGraph,
				mcp.WithDescription("Store the prebuilt code review workflow. Run it with initial_state {\"code\": \"...\"}."),
			),
			Handler: s.handleCreateCodeReview,
		},
	}
}

func (s *Server) handleCreateGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := mcp.ParseStringMap(req, "definition", nil)
	if raw == nil {
		return mcp.NewToolResultError("definition is required"), nil
	}

	var def domain.Definition
	if err := remarshal(raw, &def); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}

	g, issues, err := s.svc.CreateGraph(ctx, req.GetString("name", ""), def, req.GetBool("strict", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create graph failed: %v", err)), nil
	}
	return marshalResult(map[string]any{
		"graph_id": g.ID,
		"name":     g.Name,
		"warnings": issues,
	})
}

func (s *Server) handleRunGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphID, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}
	maxIterations := req.GetInt("max_iterations", 0)
	if maxIterations < 0 {
		return mcp.NewToolResultError("max_iterations must be positive"), nil
	}

	initial := domain.State(mcp.ParseStringMap(req, "initial_state", map[string]any{}))
	run, err := s.svc.RunGraph(ctx, graphID, initial, maxIterations)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
	}
	s.logger.Debug("MCP run finished", "run_id", run.ID, "graph_id", graphID)
	return marshalResult(run)
}

func (s *Server) handleGetRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := req.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("run_id is required"), nil
	}
	run, err := s.svc.GetRun(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get run failed: %v", err)), nil
	}
	return marshalResult(run)
}

func (s *Server) handleListGraphs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphs, err := s.svc.ListGraphs(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list graphs failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"graphs": graphs})
}

func (s *Server) handleCreateCodeReview(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := s.svc.CreateCodeReviewGraph(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create graph failed: %v", err)), nil
	}
	return marshalResult(map[string]any{
		"graph_id": g.ID,
		"name":     g.Name,
	})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphsResourceURI, "Stored Graphs",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		graphs, err := s.svc.ListGraphs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list graphs: %w", err)
		}
		jsonBytes, err := json.Marshal(graphs)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphsResourceURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// remarshal converts a decoded JSON object into a typed value.
func remarshal(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
