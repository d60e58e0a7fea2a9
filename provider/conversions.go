package provider

import (
	"encoding/json"

	"promptbuddies/model"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ConvertToOllamaMessages converts model.Message to Ollama api.Message.
//
// Ollama matches tool results to calls by position, so ToolCallID is not
// carried over.
func ConvertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		result[i] = api.Message{
			Role:      msg.Role,
			Content:   msg.Content,
			ToolCalls: ConvertFromProviderToolCalls(msg.ToolCalls),
		}
	}
	return result
}

// ConvertFromOllamaMessages converts Ollama api.Message to model.Message.
func ConvertFromOllamaMessages(messages []api.Message) []model.Message {
	result := make([]model.Message, len(messages))
	for i, msg := range messages {
		result[i] = model.Message{
			Role:      msg.Role,
			Content:   msg.Content,
			ToolCalls: ConvertToProviderToolCalls(msg.ToolCalls),
		}
	}
	return result
}

// ParseToolArguments parses a JSON arguments string into a map.
// Malformed input yields an empty map.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || args == nil {
		return make(map[string]any)
	}
	return args
}

// EncodeToolArguments is the inverse of ParseToolArguments.
func EncodeToolArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ConvertToProviderToolCalls converts Ollama api.ToolCall to model.ToolCall.
// Ollama does not identify calls, so each gets a generated ID.
//
// Returns nil if the input is nil or empty.
func ConvertToProviderToolCalls(ollamaCalls []api.ToolCall) []model.ToolCall {
	if len(ollamaCalls) == 0 {
		return nil
	}

	result := make([]model.ToolCall, len(ollamaCalls))
	for i, call := range ollamaCalls {
		result[i] = model.ToolCall{
			ID:        uuid.NewString(),
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
	}
	return result
}

// ConvertFromProviderToolCalls converts model.ToolCall to Ollama api.ToolCall.
//
// Returns nil if the input is nil or empty.
func ConvertFromProviderToolCalls(providerCalls []model.ToolCall) []api.ToolCall {
	if len(providerCalls) == 0 {
		return nil
	}

	result := make([]api.ToolCall, len(providerCalls))
	for i, call := range providerCalls {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Index:     i,
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		}
	}
	return result
}

// ConvertToOpenAIMessages converts messages to OpenAI chat completion params.
// Assistant messages keep their tool calls and tool messages their call ID,
// which the API needs to pair results with requests.
func ConvertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))

	for i, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result[i] = openai.SystemMessage(msg.Content)
		case model.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				result[i] = openai.AssistantMessage(msg.Content)
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: EncodeToolArguments(call.Arguments),
						},
					},
				})
			}
			result[i] = openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
		case model.RoleTool:
			if msg.ToolCallID == "" {
				result[i] = openai.UserMessage(msg.Content)
				continue
			}
			result[i] = openai.ToolMessage(msg.Content, msg.ToolCallID)
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}

	return result
}
