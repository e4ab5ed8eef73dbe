package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pllm "github.com/alexschlessinger/pollytool/llm"
	"github.com/alexschlessinger/pollytool/messages"

	"pkdindustries/retort/internal/core"
	"pkdindustries/retort/internal/llm"
)

// truncationNote is appended when the round budget ran out before the
// model stopped asking for tools.
const truncationNote = "\n\n(I ran out of time for tool calls, so this answer may be incomplete.)"

// converse runs the bounded tool-calling loop and returns the final reply
// text. Each round trims the window, calls the model, and either returns
// the text or executes the requested tools and continues. The last round
// runs without tools, so the model has to answer in prose.
func (e *Engine) converse(ctx context.Context, user string, msgs []messages.ChatMessage) (string, error) {
	log := core.WithUser(core.GetLogger(), user)
	toolCtx := e.toolContext(ctx, user)

	var artifacts []string

	for round := 0; round < e.opts.MaxRounds; round++ {
		trimmed, wasTrimmed := TrimMessages(msgs, e.opts.ContextBudget)
		if wasTrimmed {
			log.Debugw("context_trimmed", "round", round, "messages", len(trimmed))
		}
		msgs = trimmed

		finalRound := round == e.opts.MaxRounds-1
		req := &pllm.CompletionRequest{
			BaseURL:     e.opts.BaseURL,
			Timeout:     e.opts.Timeout,
			Model:       e.opts.Model,
			MaxTokens:   e.opts.MaxTokens,
			Messages:    msgs,
			Temperature: e.opts.Temperature,
		}
		if e.opts.ThinkingEffort != "" {
			req.ThinkingEffort = pllm.ThinkingEffort(e.opts.ThinkingEffort)
		}
		if !finalRound && e.toolSrc != nil {
			req.Tools = e.toolSrc.All()
		}

		// The first call fails fast; only follow-ups earn retries, the
		// conversation already has tool work invested by then.
		retries := 0
		if round > 0 {
			retries = e.opts.FollowUpRetries
		}

		response, err := e.callModel(ctx, req, retries)
		if err != nil {
			return "", err
		}

		content := response.Content
		toolCalls := response.ToolCalls

		// Some models write the call into the reply body instead of the
		// structured field.
		if len(toolCalls) == 0 && !finalRound && e.toolSrc != nil {
			cleaned, extracted := llm.ExtractToolCalls(content, e.toolSrc.Available())
			if len(extracted) > 0 {
				log.Debugw("tool_calls_extracted_from_text", "count", len(extracted))
				content = cleaned
				toolCalls = extracted
				response.Content = cleaned
				response.ToolCalls = extracted
			}
		}

		if len(toolCalls) == 0 || finalRound {
			reply := strings.TrimSpace(content)
			if finalRound && round > 0 {
				log.Infow("round_budget_exhausted", "rounds", e.opts.MaxRounds, "dropped_tool_calls", len(toolCalls))
				if reply != "" {
					reply += truncationNote
				}
			}
			return ReattachArtifacts(reply, artifacts), nil
		}

		// The request preamble ("let me check...") must not leak into the
		// window; only the calls matter.
		response.Content = ""
		msgs = append(msgs, response)
		msgs = append(msgs, e.executeToolCalls(toolCtx, toolCalls, &artifacts)...)
	}

	// Unreachable: the final round always returns above.
	return "", fmt.Errorf("conversation exceeded %d rounds", e.opts.MaxRounds)
}

// executeToolCalls runs each call and returns the tool result messages,
// keyed back to their calls by ToolCallID. Failures become result text so
// the model can recover instead of the reply aborting.
func (e *Engine) executeToolCalls(ctx context.Context, calls []messages.ChatMessageToolCall, artifacts *[]string) []messages.ChatMessage {
	results := make([]messages.ChatMessage, 0, len(calls))
	for _, call := range calls {
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			results = append(results, messages.ChatMessage{
				Role:       messages.MessageRoleTool,
				Content:    fmt.Sprintf("Error parsing arguments: %v", err),
				ToolCallID: call.ID,
			})
			continue
		}

		result, err := e.toolSrc.Execute(ctx, call.Name, args)
		if err != nil {
			result = fmt.Sprintf("Error: %v", err)
		}
		*artifacts = append(*artifacts, ExtractArtifacts(result)...)

		results = append(results, messages.ChatMessage{
			Role:       messages.MessageRoleTool,
			Content:    result,
			ToolCallID: call.ID,
		})
	}
	return results
}

// callModel invokes the provider, retrying transient failures up to
// retries extra times with doubling delay.
func (e *Engine) callModel(ctx context.Context, req *pllm.CompletionRequest, retries int) (messages.ChatMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return messages.ChatMessage{}, ctx.Err()
			default:
			}
			e.sleep(llm.Delay(attempt-1, e.opts.RetryBase))
		}

		response, err := e.provider.Complete(ctx, req)
		if err == nil {
			return response, nil
		}
		lastErr = err
		if !llm.IsTransient(err) {
			return messages.ChatMessage{}, err
		}
		core.GetLogger().Warnw("model_call_transient_failure", "attempt", attempt+1, "error", err)
	}
	return messages.ChatMessage{}, lastErr
}
