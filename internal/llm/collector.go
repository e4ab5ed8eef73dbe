package llm

import (
	"github.com/alexschlessinger/pollytool/messages"

	"pkdindustries/retort/internal/core"
)

// collector is an EventStreamProcessor that accumulates a stream into a
// single message instead of emitting chunks. The orchestrator wants whole
// replies; streaming granularity is an upstream concern.
type collector struct {
	response messages.ChatMessage
	err      error
}

var _ messages.EventProcessor = (*collector)(nil)

func (c *collector) OnReasoning(content string, totalLength int) {
	core.GetLogger().Debugw("reasoning_update", "total_len", totalLength)
}

func (c *collector) OnContent(content string, firstChunk bool) {
	// Content arrives fully assembled in OnComplete.
}

func (c *collector) OnToolCall(toolCall messages.ChatMessageToolCall) {
	core.GetLogger().Debugw("tool_call_event", "tool", toolCall.Name, "id", toolCall.ID)
}

func (c *collector) OnComplete(message *messages.ChatMessage) {
	if message != nil {
		c.response = *message
	}
}

func (c *collector) OnError(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

func (c *collector) GetResponse() messages.ChatMessage {
	return c.response
}
