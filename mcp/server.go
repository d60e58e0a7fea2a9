package mcp

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"promptbuddies/tools"
)

// ServerName is the implementation name announced to MCP clients.
const ServerName = "promptbuddies-tools"

// NewServer exposes every tool of backend on an MCP server. Tool failures
// are reported as error results carrying the same JSON payload the
// generator would see.
func NewServer(backend *tools.Backend, version string, logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mcp")

	s := server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false))
	for _, schema := range backend.Schemas() {
		s.AddTool(schema, toolHandler(backend, logger))
	}
	return s
}

func toolHandler(backend *tools.Backend, logger *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		res := backend.Call(ctx, req.Params.Name, req.GetArguments())
		if res.Failed() {
			logger.Debug("tool call failed", zap.String("tool", res.ToolName), zap.String("error", res.Error))
			return mcptypes.NewToolResultError(res.JSON()), nil
		}
		return mcptypes.NewToolResultText(res.JSON()), nil
	}
}

// ServeStdio serves backend over stdin/stdout until the client disconnects.
func ServeStdio(backend *tools.Backend, version string, logger *zap.Logger) error {
	return server.ServeStdio(NewServer(backend, version, logger))
}
