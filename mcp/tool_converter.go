// Package mcp exposes the banking tool set over the Model Context Protocol
// and converts MCP tool schemas into the request formats of each LLM
// backend.
package mcp

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// schemaMap renders an MCP input schema as a plain JSON Schema object.
func schemaMap(in mcptypes.ToolInputSchema) map[string]any {
	typ := in.Type
	if typ == "" {
		typ = "object"
	}
	props := in.Properties
	if props == nil {
		props = map[string]any{}
	}
	out := map[string]any{
		"type":       typ,
		"properties": props,
	}
	if len(in.Required) > 0 {
		out["required"] = in.Required
	}
	if in.Defs != nil {
		out["$defs"] = in.Defs
	}
	return out
}

// ConvertMCPToolsToOllama converts MCP tools to Ollama API tools. The schema
// goes through JSON so that Ollama's own decoders handle union types.
func ConvertMCPToolsToOllama(mcpTools []mcptypes.Tool) []api.Tool {
	out := make([]api.Tool, 0, len(mcpTools))
	for _, t := range mcpTools {
		out = append(out, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  ollamaParameters(t.InputSchema),
			},
		})
	}
	return out
}

func ollamaParameters(in mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	var params api.ToolFunctionParameters
	raw, err := json.Marshal(schemaMap(in))
	if err == nil {
		err = json.Unmarshal(raw, &params)
	}
	if err != nil {
		params = api.ToolFunctionParameters{Type: "object", Required: in.Required}
	}
	if params.Properties == nil {
		params.Properties = map[string]api.ToolProperty{}
	}
	return params
}

// ConvertMCPToolsToOpenAIFormat converts MCP tools to function tools for
// OpenAI compatible endpoints (OpenAI, Together, OpenRouter).
func ConvertMCPToolsToOpenAIFormat(mcpTools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(mcpTools))
	for _, t := range mcpTools {
		fn := openai.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: openai.FunctionParameters(schemaMap(t.InputSchema)),
		}
		if t.Description != "" {
			fn.Description = openai.String(t.Description)
		}
		out = append(out, openai.ChatCompletionFunctionTool(fn))
	}
	return out
}

// ConvertMCPToolsToAnthropicFormat converts MCP tools to Anthropic tool
// definitions.
func ConvertMCPToolsToAnthropicFormat(mcpTools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(mcpTools))
	for _, t := range mcpTools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.InputSchema.Properties,
			Required:   t.InputSchema.Required,
		}
		if t.InputSchema.Defs != nil {
			schema.ExtraFields = map[string]any{"$defs": t.InputSchema.Defs}
		}
		tool := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if t.Description != "" {
			tool.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, tool)
	}
	return out
}
