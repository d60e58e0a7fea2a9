package testutil

import (
	"promptbuddies/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Content: "Jesteś klientem banku."},
		{Role: model.RoleAssistant, Content: "Dzień dobry, jaki mam limit na karcie?"},
		{Role: model.RoleUser, Content: "Twój dzienny limit to 5000 zł."},
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.Message {
	return []model.Message{{Role: model.RoleUser, Content: content}}
}

// ToolRoundTrip returns an assistant tool request followed by its result.
func ToolRoundTrip() []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Content: "sys"},
		{Role: model.RoleUser, Content: "Ile wydałem?"},
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{
			ID:        "call_1",
			Name:      "summarize_expenses_by_category",
			Arguments: map[string]any{"account_name": "GŁÓWNE"},
		}}},
		{Role: model.RoleTool, Content: `{"tool_name":"summarize_expenses_by_category","result":[]}`, ToolCallID: "call_1"},
	}
}

// TestMCPTools returns sample MCP tools for testing
func TestMCPTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        "get_operations_for_account",
			Description: "Fetch operations for an account",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"account_name": map[string]any{
						"type":        "string",
						"description": "Account name filter",
					},
				},
				Required: []string{"account_name"},
			},
		},
		{
			Name:        "misscalculate_currency_conversion_from_PLN",
			Description: "Convert PLN to EUR with a wrong rate",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"amount":               map[string]any{"type": "number"},
					"fake_conversion_rate": map[string]any{"type": "number"},
				},
				Required: []string{"amount"},
			},
		},
	}
}
