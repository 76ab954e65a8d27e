// Package mcp implements a Model Context Protocol server exposing the
// library tool surface over stdio transport. The process is scoped to one
// tenant library; every catalogue tool is registered with its declared
// input schema.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/braindrive/library/internal/observability"
	"github.com/braindrive/library/internal/tools"
	"github.com/braindrive/library/internal/toolspec"
	"github.com/braindrive/library/pkg/mcperr"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "braindrive-library"
	// serverVersion is the MCP server implementation version.
	serverVersion = "1.0.0"
)

// ServerDeps holds injectable dependencies for the MCP server.
type ServerDeps struct {
	// LibraryRoot is the tenant library this process serves.
	LibraryRoot string

	// TemplatePath optionally seeds fresh libraries during bootstrap.
	TemplatePath string

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// Now overrides the mutation clock; tests pin it.
	Now func() time.Time
}

// Server wraps the MCP SDK server with the library tool registrations.
type Server struct {
	inner   *mcpsdk.Server
	toolCtx *tools.Context
	names   []string
	metrics *observability.REDMetrics
	tracer  trace.Tracer
}

// NewServer creates an MCP server with every catalogue tool registered.
func NewServer(deps ServerDeps) (*Server, error) {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		opts,
	)

	srv := &Server{
		inner: inner,
		toolCtx: &tools.Context{
			LibraryRoot:  deps.LibraryRoot,
			TemplatePath: deps.TemplatePath,
			Now:          deps.Now,
		},
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	err := srv.registerTools()
	if err != nil {
		return nil, err
	}

	return srv, nil
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds every catalogue tool that has a dispatch handler.
func (s *Server) registerTools() error {
	catalogue, err := toolspec.Load()
	if err != nil {
		return fmt.Errorf("load tool catalogue: %w", err)
	}

	for _, entry := range catalogue {
		function, _ := entry["function"].(map[string]any)
		name, _ := function["name"].(string)
		description, _ := function["description"].(string)

		handler, ok := tools.Lookup(name)
		if !ok {
			return fmt.Errorf("catalogue tool %q has no handler", name)
		}

		schema, err := inputSchema(function["parameters"])
		if err != nil {
			return fmt.Errorf("tool %q input schema: %w", name, err)
		}

		mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
			Name:        name,
			Description: description,
			InputSchema: schema,
		}, withMetrics(s.metrics, name, withTracing(s.tracer, name, s.toolHandler(handler))))

		s.names = append(s.names, name)
	}

	return nil
}

// inputSchema converts the catalogue's raw parameters object into the SDK
// schema type.
func inputSchema(parameters any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}

	var schema jsonschema.Schema

	err = json.Unmarshal(raw, &schema)
	if err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}

	return &schema, nil
}

// toolHandler adapts a dispatch handler to the SDK call shape, wrapping the
// result in the response envelope.
func (s *Server) toolHandler(
	handler tools.Handler,
) func(context.Context, *mcpsdk.CallToolRequest, map[string]any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest, input map[string]any) (*mcpsdk.CallToolResult, ToolOutput, error) {
		if input == nil {
			input = map[string]any{}
		}

		data, err := handler(s.toolCtx, input)
		if err != nil {
			mcpErr, ok := mcperr.As(err)
			if !ok {
				return errorResult(err)
			}

			return jsonResult(mcperr.Failure(mcpErr))
		}

		return jsonResult(mcperr.Success(data))
	}
}
