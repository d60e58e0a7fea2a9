// Package generator writes the next outbound utterance for one persona,
// resolving tool calls and shrinking the request when the backend reports
// a context overflow.
package generator

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"promptbuddies/model"
	"promptbuddies/persona"
	"promptbuddies/tools"
)

// FailureSentinel is returned instead of an utterance when generation
// fails. Callers compare against it; it must never reach the target.
const FailureSentinel = "Error: Unable to generate summary."

// ToolRunner resolves tool calls requested by the model. Both
// *tools.Backend and *mcp.Client satisfy it.
type ToolRunner interface {
	Call(ctx context.Context, name string, args map[string]any) tools.Result
}

// Options tunes a Generator.
type Options struct {
	// Window keeps only the last Window non-system turns of the history.
	// Zero sends everything.
	Window int
	// MaxToolRounds caps tool resolution rounds per utterance. Zero leaves
	// the loop bounded by the backend's context limit only.
	MaxToolRounds int
	Logger        *zap.Logger
}

// Generator produces utterances for a single persona.
type Generator struct {
	persona  persona.Persona
	provider model.Provider
	tools    ToolRunner
	opts     Options
	logger   *zap.Logger
}

// New creates a generator. tools may be nil when the persona carries no
// tool schema.
func New(p persona.Persona, provider model.Provider, tools ToolRunner, opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		persona:  p,
		provider: provider,
		tools:    tools,
		opts:     opts,
		logger:   logger.Named("generator").With(zap.String("persona", p.Name)),
	}
}

// Persona returns the persona this generator speaks for.
func (g *Generator) Persona() persona.Persona {
	return g.persona
}

// GenerateFirst writes the session's opening utterance from seed, which
// plays the part of the target's greeting.
func (g *Generator) GenerateFirst(ctx context.Context, seed string) string {
	turns := []model.Turn{
		{Author: model.System, Content: g.persona.SystemPrompt},
		{Author: model.Theirs, Content: seed},
	}
	text, _, err := g.complete(ctx, turns, false)
	if err != nil {
		g.logger.Error("opening generation failed", zap.Error(err))
		return FailureSentinel
	}
	return strings.TrimSpace(text)
}

// GenerateNext writes the next utterance for history. The persona's system
// prompt replaces any system turn in history. history itself is never
// modified.
func (g *Generator) GenerateNext(ctx context.Context, history []model.Turn) string {
	turns := g.prepare(history)

	rounds := 0
	for {
		text, calls, err := g.complete(ctx, turns, true)

		if errors.Is(err, model.ErrContextOverflow) {
			if len(turns) <= 2 {
				g.logger.Error("context overflow with nothing left to drop", zap.Error(err))
				return FailureSentinel
			}
			turns = dropOldest(turns)
			g.logger.Warn("context overflow, dropped oldest turn", zap.Int("turns", len(turns)))
			continue
		}
		if err != nil {
			g.logger.Error("generation failed", zap.Error(err))
			return FailureSentinel
		}

		if len(calls) == 0 {
			return strings.TrimSpace(text)
		}

		rounds++
		if g.opts.MaxToolRounds > 0 && rounds > g.opts.MaxToolRounds {
			g.logger.Error("tool rounds exhausted", zap.Int("rounds", rounds-1))
			return FailureSentinel
		}
		turns = g.resolveTools(ctx, turns, text, calls)
	}
}

// prepare builds the request turns: the persona prompt followed by the
// last Window non-system turns of history.
func (g *Generator) prepare(history []model.Turn) []model.Turn {
	rest := model.WithoutSystem(history)
	if w := g.opts.Window; w > 0 && len(rest) > w {
		rest = rest[len(rest)-w:]
	}
	for len(rest) > 0 && rest[0].Author == model.ToolResult {
		rest = rest[1:]
	}
	turns := make([]model.Turn, 0, len(rest)+1)
	turns = append(turns, model.Turn{Author: model.System, Content: g.persona.SystemPrompt})
	return append(turns, rest...)
}

// dropOldest removes the turn after the system turn, together with any
// tool results left without the call that produced them.
func dropOldest(turns []model.Turn) []model.Turn {
	out := make([]model.Turn, 0, len(turns)-1)
	out = append(out, turns[0])
	rest := turns[2:]
	for len(rest) > 1 && rest[0].Author == model.ToolResult {
		rest = rest[1:]
	}
	return append(out, rest...)
}

// resolveTools appends the model's tool request and one result turn per
// call, in call order.
func (g *Generator) resolveTools(ctx context.Context, turns []model.Turn, text string, calls []model.ToolCall) []model.Turn {
	turns = append(turns, model.Turn{
		Author:    model.Ours,
		Content:   text,
		ToolCalls: calls,
	})

	for i, call := range calls {
		g.logger.Debug("executing tool call",
			zap.Int("index", i+1),
			zap.String("tool", call.Name),
			zap.Any("arguments", call.Arguments))

		var res tools.Result
		if g.tools == nil {
			res = tools.Result{ToolName: call.Name, Result: "Unknown tool: " + call.Name}
		} else {
			res = g.tools.Call(ctx, call.Name, call.Arguments)
		}

		content := res.JSON()
		g.logger.Debug("tool result", zap.String("tool", call.Name), zap.Int("chars", len(content)))
		turns = append(turns, model.Turn{
			Author:     model.ToolResult,
			Content:    content,
			ToolCallID: call.ID,
		})
	}
	return turns
}

// complete runs one backend request and collects the streamed text and
// tool calls.
func (g *Generator) complete(ctx context.Context, turns []model.Turn, withTools bool) (string, []model.ToolCall, error) {
	var sb strings.Builder
	var calls []model.ToolCall
	cb := func(chunk string, toolCalls []model.ToolCall) error {
		sb.WriteString(chunk)
		calls = append(calls, toolCalls...)
		return nil
	}

	msgs := model.ToMessages(turns)
	var err error
	if withTools && len(g.persona.Tools) > 0 {
		err = g.provider.ChatWithTools(ctx, msgs, g.persona.Tools, cb)
	} else {
		err = g.provider.Chat(ctx, msgs, cb)
	}
	return sb.String(), calls, err
}
