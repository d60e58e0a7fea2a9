package testutil

import (
	"context"
	"fmt"
	"sync"

	"promptbuddies/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Call records one request received by a MockProvider.
type Call struct {
	Messages []model.Message
	Tools    []mcptypes.Tool
}

// Response is one scripted reply of a MockProvider.
type Response struct {
	Text      string
	ToolCalls []model.ToolCall
	Err       error
}

// MockProvider implements model.Provider for testing. Behavior is set with
// the function fields or with Script; every request is recorded.
type MockProvider struct {
	ChatFunc          func(ctx context.Context, messages []model.Message, callback model.StreamCallback) error
	ChatWithToolsFunc func(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error
	PingFunc          func(ctx context.Context) error

	mu           sync.Mutex
	calls        []Call
	script       []Response
	currentModel string
}

// NewMockProvider creates a mock provider with default implementations
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
	}
	mock.ChatFunc = mock.defaultChat
	mock.ChatWithToolsFunc = mock.defaultChatWithTools
	mock.PingFunc = mock.defaultPing
	return mock
}

// Script makes the mock answer requests with the given responses in order.
// Requests beyond the script fail.
func (m *MockProvider) Script(responses ...Response) *MockProvider {
	m.mu.Lock()
	m.script = append(m.script, responses...)
	m.mu.Unlock()
	m.ChatWithToolsFunc = m.scripted
	m.ChatFunc = func(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
		return m.scripted(ctx, messages, nil, callback)
	}
	return m
}

func (m *MockProvider) scripted(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	m.mu.Lock()
	if len(m.script) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("mock provider: no scripted response left")
	}
	resp := m.script[0]
	m.script = m.script[1:]
	m.mu.Unlock()

	if resp.Err != nil {
		return resp.Err
	}
	if resp.Text != "" {
		if err := callback(resp.Text, nil); err != nil {
			return err
		}
	}
	if len(resp.ToolCalls) > 0 {
		return callback("", resp.ToolCalls)
	}
	return nil
}

func (m *MockProvider) defaultChat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	if len(messages) > 0 {
		return callback("Mock response", nil)
	}
	return nil
}

func (m *MockProvider) defaultChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	return callback("Mock response with tools", nil)
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) record(messages []model.Message, tools []mcptypes.Tool) {
	msgs := make([]model.Message, len(messages))
	copy(msgs, messages)
	m.mu.Lock()
	m.calls = append(m.calls, Call{Messages: msgs, Tools: tools})
	m.mu.Unlock()
}

// Calls returns the requests received so far.
func (m *MockProvider) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	m.record(messages, nil)
	return m.ChatFunc(ctx, messages, callback)
}

func (m *MockProvider) ChatWithTools(ctx context.Context, messages []model.Message, tools []mcptypes.Tool, callback model.StreamCallback) error {
	m.record(messages, tools)
	return m.ChatWithToolsFunc(ctx, messages, tools, callback)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(model string) {
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
