package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"promptbuddies/tools"
)

// Client calls tools hosted by an MCP server, either an external process
// speaking stdio or an in-process server.
type Client struct {
	c     *client.Client
	tools []mcptypes.Tool
}

// DialStdio starts command and performs the MCP handshake with it.
func DialStdio(ctx context.Context, command string, args []string, env map[string]string) (*Client, error) {
	environ := os.Environ()
	for k, v := range env {
		environ = append(environ, fmt.Sprintf("%s=%s", k, v))
	}
	c, err := client.NewStdioMCPClient(command, environ, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start tool server %s: %w", command, err)
	}
	return handshake(ctx, c)
}

// DialInProcess connects to s without a transport process.
func DialInProcess(ctx context.Context, s *server.MCPServer) (*Client, error) {
	c, err := client.NewInProcessClient(s)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start in-process client: %w", err)
	}
	return handshake(ctx, c)
}

func handshake(ctx context.Context, c *client.Client) (*Client, error) {
	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: mcptypes.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "promptbuddies",
				Version: "1.0.0",
			},
		},
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize tool server: %w", err)
	}

	listed, err := c.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return &Client{c: c, tools: listed.Tools}, nil
}

// Schemas returns the tools announced by the server during the handshake.
func (c *Client) Schemas() []mcptypes.Tool {
	out := make([]mcptypes.Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Call invokes a tool. Transport failures are folded into the payload so
// the generator can hand them to the model like any other tool error.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) tools.Result {
	req := mcptypes.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.c.CallTool(ctx, req)
	if err != nil {
		return tools.Result{ToolName: name, Error: err.Error()}
	}
	return decodeResult(name, res)
}

// decodeResult turns a server reply back into a tools.Result. Servers built
// with NewServer reply with the payload JSON; anything else is kept as text.
func decodeResult(name string, res *mcptypes.CallToolResult) tools.Result {
	var parts []string
	for _, content := range res.Content {
		if text, ok := content.(mcptypes.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	text := strings.Join(parts, "\n")

	var payload struct {
		ToolName string          `json:"tool_name"`
		Result   json.RawMessage `json:"result"`
		Error    *string         `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err == nil && payload.ToolName != "" {
		if payload.Error != nil {
			return tools.Result{ToolName: payload.ToolName, Error: *payload.Error}
		}
		// RawMessage keeps the column order of tabular results.
		return tools.Result{ToolName: payload.ToolName, Result: payload.Result}
	}

	if res.IsError {
		return tools.Result{ToolName: name, Error: text}
	}
	return tools.Result{ToolName: name, Result: text}
}

// Close stops the server process, if any.
func (c *Client) Close() error {
	return c.c.Close()
}
