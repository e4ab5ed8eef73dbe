package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexschlessinger/pollytool/llm"
	"github.com/alexschlessinger/pollytool/messages"
	ptools "github.com/alexschlessinger/pollytool/tools"

	"pkdindustries/retort/internal/core"
)

// ScriptStep is one scripted provider response: either a message or an
// error.
type ScriptStep struct {
	Message messages.ChatMessage
	Err     error
}

// Text returns a step carrying a plain assistant reply.
func Text(content string) ScriptStep {
	return ScriptStep{Message: messages.ChatMessage{
		Role:    messages.MessageRoleAssistant,
		Content: content,
	}}
}

// ToolCall returns a step where the assistant requests one tool call.
func ToolCall(id, name, arguments string) ScriptStep {
	return ScriptStep{Message: messages.ChatMessage{
		Role: messages.MessageRoleAssistant,
		ToolCalls: []messages.ChatMessageToolCall{
			{ID: id, Name: name, Arguments: arguments},
		},
	}}
}

// Fail returns a step producing an error.
func Fail(err error) ScriptStep {
	return ScriptStep{Err: err}
}

// MockProvider implements core.Provider by replaying a script. It records
// every request for assertions. When the script runs out, the last step
// repeats.
type MockProvider struct {
	mu       sync.Mutex
	Script   []ScriptStep
	Requests []*llm.CompletionRequest
}

var _ core.Provider = (*MockProvider)(nil)

func NewMockProvider(script ...ScriptStep) *MockProvider {
	return &MockProvider{Script: script}
}

func (m *MockProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (messages.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Snapshot the request; callers mutate Messages between rounds.
	snapshot := *req
	snapshot.Messages = make([]messages.ChatMessage, len(req.Messages))
	copy(snapshot.Messages, req.Messages)
	m.Requests = append(m.Requests, &snapshot)

	if err := ctx.Err(); err != nil {
		return messages.ChatMessage{}, err
	}
	if len(m.Script) == 0 {
		return messages.ChatMessage{Role: messages.MessageRoleAssistant}, nil
	}
	idx := len(m.Requests) - 1
	if idx >= len(m.Script) {
		idx = len(m.Script) - 1
	}
	step := m.Script[idx]
	if step.Err != nil {
		return messages.ChatMessage{}, step.Err
	}
	return step.Message, nil
}

// CallCount returns how many completions were requested.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockToolSource implements engine.ToolSource with canned results per
// tool name.
type MockToolSource struct {
	mu      sync.Mutex
	Results map[string]string
	Errs    map[string]error
	Calls   []string
	Tools   []ptools.Tool
}

func NewMockToolSource() *MockToolSource {
	return &MockToolSource{
		Results: make(map[string]string),
		Errs:    make(map[string]error),
	}
}

func (m *MockToolSource) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
	if err, ok := m.Errs[name]; ok {
		return "", err
	}
	if result, ok := m.Results[name]; ok {
		return result, nil
	}
	return "", fmt.Errorf("tool not found: %s", name)
}

func (m *MockToolSource) Available() []string {
	names := make([]string, 0, len(m.Results))
	for name := range m.Results {
		names = append(names, name)
	}
	for name := range m.Errs {
		names = append(names, name)
	}
	return names
}

func (m *MockToolSource) All() []ptools.Tool {
	return m.Tools
}

// CallNames returns the executed tool names in order.
func (m *MockToolSource) CallNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}
