package persona

import mcptypes "github.com/mark3labs/mcp-go/mcp"

// Persona is one behavioral mode of the generator. It is fixed for the
// lifetime of a session.
type Persona struct {
	Name         string
	Category     string
	SystemPrompt string
	Tools        []mcptypes.Tool
}

// Build renders a persona from the catalog. The tool list is copied so
// personas never share a backing array.
func (c *Catalog) Build(name, category string, addExamples bool, tools []mcptypes.Tool) (Persona, error) {
	prompt, err := c.SystemPrompt(category, addExamples)
	if err != nil {
		return Persona{}, err
	}
	var own []mcptypes.Tool
	if len(tools) > 0 {
		own = make([]mcptypes.Tool, len(tools))
		copy(own, tools)
	}
	return Persona{
		Name:         name,
		Category:     category,
		SystemPrompt: prompt,
		Tools:        own,
	}, nil
}
