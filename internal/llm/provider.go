// Package llm wraps pollytool's multi-provider client behind the
// request/response interface the orchestrator consumes.
package llm

import (
	"context"
	"fmt"

	"github.com/alexschlessinger/pollytool/llm"
	"github.com/alexschlessinger/pollytool/messages"

	"pkdindustries/retort/internal/config"
	"pkdindustries/retort/internal/core"
)

type CompletionRequest = llm.CompletionRequest

// PollyProvider implements core.Provider on top of pollytool's MultiPass.
type PollyProvider struct {
	client          *llm.MultiPass
	streamProcessor *messages.StreamProcessor
}

var _ core.Provider = (*PollyProvider)(nil)

// NewPollyProvider creates a provider routing by model prefix
// (e.g. "openai/gpt-4o", "anthropic/claude-sonnet-4-0").
func NewPollyProvider(apiConfig config.APIConfig) *PollyProvider {
	apiKeys := map[string]string{
		"openai":    apiConfig.OpenAIKey,
		"anthropic": apiConfig.AnthropicKey,
		"gemini":    apiConfig.GeminiKey,
		"ollama":    apiConfig.OllamaKey,
	}
	return &PollyProvider{
		client:          llm.NewMultiPass(apiKeys),
		streamProcessor: messages.NewStreamProcessor(),
	}
}

// Complete runs one completion and blocks until the stream finishes.
// MultiPass strips the provider prefix from req.Model, so the original is
// restored before returning; callers reuse the request across rounds.
func (p *PollyProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (messages.ChatMessage, error) {
	originalModel := req.Model
	defer func() { req.Model = originalModel }()

	c := &collector{}
	eventChan := p.client.ChatCompletionStream(ctx, req, p.streamProcessor)
	response := messages.ProcessEventStream(ctx, eventChan, c)

	if c.err != nil {
		return messages.ChatMessage{}, fmt.Errorf("completion: %w", c.err)
	}
	if err := ctx.Err(); err != nil {
		return messages.ChatMessage{}, err
	}
	return response, nil
}
