package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"promptbuddies/model"
	"promptbuddies/persona"
	"promptbuddies/provider/testutil"
	"promptbuddies/tools"
)

type recordingRunner struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingRunner) Call(_ context.Context, name string, args map[string]any) tools.Result {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	return tools.Result{ToolName: name, Result: fmt.Sprintf("ok:%v", args["n"])}
}

func testPersona() persona.Persona {
	return persona.Persona{
		Name:         "adversarial",
		SystemPrompt: "Jesteś klientem banku.",
		Tools:        testutil.TestMCPTools(),
	}
}

func history(n int) []model.Turn {
	turns := []model.Turn{{Author: model.System, Content: "stary prompt"}}
	for i := 1; i < n; i++ {
		author := model.Theirs
		if i%2 == 0 {
			author = model.Ours
		}
		turns = append(turns, model.Turn{Author: author, Content: fmt.Sprintf("turn %d", i)})
	}
	return turns
}

func overflow() testutil.Response {
	return testutil.Response{Err: fmt.Errorf("together: %w", model.ErrContextOverflow)}
}

func TestGenerateFirst(t *testing.T) {
	mock := testutil.NewMockProvider("m").Script(testutil.Response{Text: "  Dzień dobry!\n"})
	g := New(testPersona(), mock, nil, Options{Logger: zaptest.NewLogger(t)})

	got := g.GenerateFirst(context.Background(), "W czym mogę pomóc?")
	assert.Equal(t, "Dzień dobry!", got)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	msgs := calls[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, model.Message{Role: model.RoleSystem, Content: "Jesteś klientem banku."}, msgs[0])
	assert.Equal(t, model.Message{Role: model.RoleUser, Content: "W czym mogę pomóc?"}, msgs[1])
	assert.Nil(t, calls[0].Tools, "opening request offers no tools")
}

func TestGenerateFirstFailure(t *testing.T) {
	mock := testutil.NewMockProvider("m").Script(testutil.Response{Err: errors.New("503")})
	g := New(testPersona(), mock, nil, Options{Logger: zaptest.NewLogger(t)})

	assert.Equal(t, FailureSentinel, g.GenerateFirst(context.Background(), "seed"))
}

func TestGenerateNextReplacesSystemTurn(t *testing.T) {
	mock := testutil.NewMockProvider("m").Script(testutil.Response{Text: "Następne pytanie"})
	g := New(testPersona(), mock, nil, Options{Logger: zaptest.NewLogger(t)})

	in := history(4)
	in = append(in, model.Turn{Author: model.System, Content: "drugi system"})
	got := g.GenerateNext(context.Background(), in)
	assert.Equal(t, "Następne pytanie", got)

	msgs := mock.Calls()[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "Jesteś klientem banku.", msgs[0].Content)
	systems := 0
	for _, m := range msgs {
		if m.Role == model.RoleSystem {
			systems++
		}
	}
	assert.Equal(t, 1, systems)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, model.RoleAssistant, msgs[2].Role)
	assert.Len(t, mock.Calls()[0].Tools, 2)
}

func TestGenerateNextContextShrink(t *testing.T) {
	tests := []struct {
		n, m int
	}{
		{n: 6, m: 0},
		{n: 6, m: 1},
		{n: 6, m: 4},
		{n: 10, m: 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("N=%d/M=%d", tt.n, tt.m), func(t *testing.T) {
			var script []testutil.Response
			for i := 0; i < tt.m; i++ {
				script = append(script, overflow())
			}
			script = append(script, testutil.Response{Text: "krótsza odpowiedź"})
			mock := testutil.NewMockProvider("m").Script(script...)
			g := New(testPersona(), mock, nil, Options{Logger: zaptest.NewLogger(t)})

			in := history(tt.n)
			got := g.GenerateNext(context.Background(), in)
			assert.Equal(t, "krótsza odpowiedź", got)

			calls := mock.Calls()
			require.Len(t, calls, tt.m+1)
			for i, c := range calls {
				assert.Len(t, c.Messages, tt.n-i)
				assert.Equal(t, model.RoleSystem, c.Messages[0].Role)
				assert.Equal(t, "Jesteś klientem banku.", c.Messages[0].Content)
			}
			last := calls[tt.m].Messages
			assert.Equal(t, in[len(in)-1].Content, last[len(last)-1].Content, "newest turn survives")
			if tt.m > 0 {
				assert.Equal(t, fmt.Sprintf("turn %d", tt.m+1), last[1].Content, "oldest turns dropped first")
			}
			assert.Len(t, in, tt.n, "caller history untouched")
		})
	}
}

func TestGenerateNextContextShrinkGivesUp(t *testing.T) {
	script := []testutil.Response{overflow(), overflow(), overflow(), overflow()}
	mock := testutil.NewMockProvider("m").Script(script...)
	g := New(testPersona(), mock, nil, Options{Logger: zaptest.NewLogger(t)})

	got := g.GenerateNext(context.Background(), history(3))
	assert.Equal(t, FailureSentinel, got)
	assert.Len(t, mock.Calls(), 2, "stops once only system and one turn remain")
}

func TestGenerateNextOtherErrorStops(t *testing.T) {
	mock := testutil.NewMockProvider("m").Script(overflow(), testutil.Response{Err: errors.New("401 unauthorized")})
	g := New(testPersona(), mock, nil, Options{Logger: zaptest.NewLogger(t)})

	assert.Equal(t, FailureSentinel, g.GenerateNext(context.Background(), history(6)))
	assert.Len(t, mock.Calls(), 2)
}

func TestGenerateNextResolvesToolCallsInOrder(t *testing.T) {
	runner := &recordingRunner{}
	mock := testutil.NewMockProvider("m").Script(
		testutil.Response{ToolCalls: []model.ToolCall{
			{ID: "a", Name: "get_operations_for_account", Arguments: map[string]any{"n": 1}},
			{ID: "b", Name: "misscalculate_currency_conversion_from_PLN", Arguments: map[string]any{"n": 2}},
		}},
		testutil.Response{Text: "Widzę przelew na 23,70 EUR, czy to się zgadza?"},
	)
	g := New(testPersona(), mock, runner, Options{Logger: zaptest.NewLogger(t)})

	in := history(3)
	got := g.GenerateNext(context.Background(), in)
	assert.Equal(t, "Widzę przelew na 23,70 EUR, czy to się zgadza?", got)
	assert.Equal(t, []string{"get_operations_for_account", "misscalculate_currency_conversion_from_PLN"}, runner.names)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	first, second := calls[0].Messages, calls[1].Messages
	require.Len(t, second, len(first)+3)

	request := second[len(first)]
	assert.Equal(t, model.RoleAssistant, request.Role)
	require.Len(t, request.ToolCalls, 2)

	toolTurns := second[len(first)+1:]
	assert.Equal(t, model.RoleTool, toolTurns[0].Role)
	assert.Equal(t, "a", toolTurns[0].ToolCallID)
	assert.JSONEq(t, `{"tool_name":"get_operations_for_account","result":"ok:1"}`, toolTurns[0].Content)
	assert.Equal(t, model.RoleTool, toolTurns[1].Role)
	assert.Equal(t, "b", toolTurns[1].ToolCallID)
	assert.JSONEq(t, `{"tool_name":"misscalculate_currency_conversion_from_PLN","result":"ok:2"}`, toolTurns[1].Content)

	assert.Len(t, in, 3, "tool turns stay out of the caller's history")
}

func TestGenerateNextWithoutRunnerReportsUnknownTool(t *testing.T) {
	mock := testutil.NewMockProvider("m").Script(
		testutil.Response{ToolCalls: []model.ToolCall{{ID: "x", Name: "rm"}}},
		testutil.Response{Text: "ok"},
	)
	g := New(testPersona(), mock, nil, Options{Logger: zaptest.NewLogger(t)})

	require.Equal(t, "ok", g.GenerateNext(context.Background(), history(2)))
	msgs := mock.Calls()[1].Messages
	assert.JSONEq(t, `{"tool_name":"rm","result":"Unknown tool: rm"}`, msgs[len(msgs)-1].Content)
}

func TestGenerateNextMaxToolRounds(t *testing.T) {
	loop := testutil.Response{ToolCalls: []model.ToolCall{{ID: "x", Name: "get_operations_for_account"}}}
	mock := testutil.NewMockProvider("m").Script(loop, loop, loop)
	g := New(testPersona(), mock, &recordingRunner{}, Options{MaxToolRounds: 2, Logger: zaptest.NewLogger(t)})

	assert.Equal(t, FailureSentinel, g.GenerateNext(context.Background(), history(2)))
	assert.Len(t, mock.Calls(), 3)
}

func TestGenerateNextWindow(t *testing.T) {
	mock := testutil.NewMockProvider("m").Script(testutil.Response{Text: "ok"})
	g := New(testPersona(), mock, nil, Options{Window: 2, Logger: zaptest.NewLogger(t)})

	g.GenerateNext(context.Background(), history(8))

	msgs := mock.Calls()[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Equal(t, "turn 6", msgs[1].Content)
	assert.Equal(t, "turn 7", msgs[2].Content)
}

func TestGenerateNextIdempotent(t *testing.T) {
	mock := testutil.NewMockProvider("m")
	mock.ChatWithToolsFunc = func(_ context.Context, msgs []model.Message, _ []mcptypes.Tool, cb model.StreamCallback) error {
		return cb(fmt.Sprintf("odpowiedź na %q", msgs[len(msgs)-1].Content), nil)
	}
	g := New(testPersona(), mock, nil, Options{Logger: zaptest.NewLogger(t)})

	in := history(5)
	first := g.GenerateNext(context.Background(), in)
	second := g.GenerateNext(context.Background(), in)
	assert.Equal(t, first, second)
	assert.Equal(t, `odpowiedź na "turn 4"`, first)
}

func TestDropOldestRemovesOrphanedToolResults(t *testing.T) {
	turns := []model.Turn{
		{Author: model.System, Content: "s"},
		{Author: model.Ours, ToolCalls: []model.ToolCall{{ID: "1"}, {ID: "2"}}},
		{Author: model.ToolResult, Content: "r1", ToolCallID: "1"},
		{Author: model.ToolResult, Content: "r2", ToolCallID: "2"},
		{Author: model.Theirs, Content: "t"},
	}
	got := dropOldest(turns)
	require.Len(t, got, 2)
	assert.Equal(t, "s", got[0].Content)
	assert.Equal(t, "t", got[1].Content)
	assert.Len(t, turns, 5)
}
