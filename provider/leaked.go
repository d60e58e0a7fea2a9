package provider

import (
	"encoding/json"
	"regexp"
	"strings"

	"promptbuddies/model"

	"github.com/google/uuid"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// functionTagPattern matches the Llama style <function=name>{...}</function>.
var functionTagPattern = regexp.MustCompile(`(?s)<function=([A-Za-z0-9_\-]+)>(.*?)</function>`)

type leakedCall struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
	Arguments  map[string]any `json:"arguments"`
	Function   *struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

// ParseLeakedToolCalls recovers tool calls that a model wrote into its text
// output instead of the tool_calls field. Only names present in tools are
// accepted, so ordinary prose that happens to be JSON is ignored.
func ParseLeakedToolCalls(content string, tools []mcptypes.Tool) []model.ToolCall {
	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}

	var calls []model.ToolCall
	for _, m := range functionTagPattern.FindAllStringSubmatch(content, -1) {
		if !known[m[1]] {
			continue
		}
		calls = append(calls, model.ToolCall{
			ID:        uuid.NewString(),
			Name:      m[1],
			Arguments: ParseToolArguments(strings.TrimSpace(m[2])),
		})
	}
	if len(calls) > 0 {
		return calls
	}

	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "<|python_tag|>")
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var many []leakedCall
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &many); err != nil {
			return nil
		}
	} else if strings.HasPrefix(text, "{") {
		var one leakedCall
		if err := json.Unmarshal([]byte(text), &one); err != nil {
			return nil
		}
		many = []leakedCall{one}
	}

	for _, c := range many {
		name, args := c.Name, c.Parameters
		if args == nil {
			args = c.Arguments
		}
		if c.Function != nil {
			name, args = c.Function.Name, c.Function.Arguments
		}
		if !known[name] {
			continue
		}
		if args == nil {
			args = make(map[string]any)
		}
		calls = append(calls, model.ToolCall{ID: uuid.NewString(), Name: name, Arguments: args})
	}
	return calls
}
