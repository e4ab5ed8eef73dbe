package engine

import (
	"strings"
	"testing"

	"github.com/alexschlessinger/pollytool/messages"
)

func sys(content string) messages.ChatMessage {
	return messages.ChatMessage{Role: messages.MessageRoleSystem, Content: content}
}

func userMsg(content string) messages.ChatMessage {
	return messages.ChatMessage{Role: messages.MessageRoleUser, Content: content}
}

func asst(content string) messages.ChatMessage {
	return messages.ChatMessage{Role: messages.MessageRoleAssistant, Content: content}
}

func asstTool(id, name, args string) messages.ChatMessage {
	return messages.ChatMessage{
		Role: messages.MessageRoleAssistant,
		ToolCalls: []messages.ChatMessageToolCall{
			{ID: id, Name: name, Arguments: args},
		},
	}
}

func toolResult(id, content string) messages.ChatMessage {
	return messages.ChatMessage{
		Role:       messages.MessageRoleTool,
		Content:    content,
		ToolCallID: id,
	}
}

func TestTrimUnderBudgetUntouched(t *testing.T) {
	msgs := []messages.ChatMessage{sys("prompt"), userMsg("hello")}
	out, trimmed := TrimMessages(msgs, 1000)
	if trimmed {
		t.Error("trim reported on under-budget window")
	}
	if len(out) != 2 {
		t.Errorf("messages dropped: %d", len(out))
	}
}

func TestTrimTruncatesBoundaryAndDropsOlder(t *testing.T) {
	msgs := []messages.ChatMessage{
		sys("prompt"),
		userMsg("ancient " + strings.Repeat("x", 500)),
		asst("old reply " + strings.Repeat("y", 800)),
		userMsg("current question"),
	}
	out, trimmed := TrimMessages(msgs, 700)
	if !trimmed {
		t.Fatal("expected trimming")
	}
	if out[0].Role != messages.MessageRoleSystem {
		t.Error("system message lost")
	}
	last := out[len(out)-1]
	if last.Content != "current question" {
		t.Errorf("newest message lost: %q", last.Content)
	}
	boundaryKept := false
	for _, m := range out {
		if strings.HasPrefix(m.Content, "ancient") {
			t.Error("message older than the boundary survived")
		}
		if strings.HasPrefix(m.Content, "old reply") {
			boundaryKept = true
			if len(m.Content) >= 810 {
				t.Error("boundary message not truncated")
			}
		}
	}
	if !boundaryKept {
		t.Error("boundary message dropped instead of truncated")
	}
}

func TestTrimFillsLeftoverBudget(t *testing.T) {
	msgs := []messages.ChatMessage{
		sys(strings.Repeat("s", 100)),
		userMsg(strings.Repeat("o", 500)),
		userMsg(strings.Repeat("n", 300)),
	}
	out, trimmed := TrimMessages(msgs, 500)
	if !trimmed {
		t.Fatal("expected trimming")
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(out))
	}
	if len(out[1].Content) != 100 {
		t.Errorf("boundary message should fill the leftover 100 chars, got %d", len(out[1].Content))
	}
	if len(out[2].Content) != 300 {
		t.Errorf("newest message altered: %d chars", len(out[2].Content))
	}
}

func TestTrimKeepsToolPairsTogether(t *testing.T) {
	long := strings.Repeat("y", 400)
	msgs := []messages.ChatMessage{
		sys("prompt"),
		asstTool("call_1", "lookup", `{"q":"`+long+`"}`),
		toolResult("call_1", "result "+long),
		userMsg("current question"),
	}
	out, trimmed := TrimMessages(msgs, 300)
	if !trimmed {
		t.Fatal("expected trimming")
	}
	// Either both halves of the pair remain or neither does.
	hasCall, hasResult := false, false
	for _, m := range out {
		if len(m.ToolCalls) > 0 {
			hasCall = true
		}
		if m.Role == messages.MessageRoleTool {
			hasResult = true
		}
	}
	if hasCall != hasResult {
		t.Errorf("tool pair split: call=%v result=%v", hasCall, hasResult)
	}
}

func TestTrimTruncatesRequiredPairOverBudget(t *testing.T) {
	msgs := []messages.ChatMessage{
		asstTool("call_1", "lookup", "{}"),
		toolResult("call_1", strings.Repeat("r", 900)),
		userMsg("now"),
	}
	out, trimmed := TrimMessages(msgs, 500)
	if !trimmed {
		t.Fatal("expected trimming")
	}
	var call, result *messages.ChatMessage
	for i := range out {
		if len(out[i].ToolCalls) > 0 {
			call = &out[i]
		}
		if out[i].Role == messages.MessageRoleTool {
			result = &out[i]
		}
	}
	if call == nil || result == nil {
		t.Fatalf("oversized pair dropped instead of truncated: call=%v result=%v", call != nil, result != nil)
	}
	if len(result.Content) >= 900 {
		t.Error("tool result not truncated")
	}
	if len(result.Content) < minTruncatedLen {
		t.Errorf("tool result truncated below floor: %d", len(result.Content))
	}
}

func TestTrimTruncatesSingleOversizedMessage(t *testing.T) {
	msgs := []messages.ChatMessage{
		sys("prompt"),
		userMsg(strings.Repeat("z", 9000)),
	}
	out, trimmed := TrimMessages(msgs, 500)
	if !trimmed {
		t.Fatal("expected truncation")
	}
	if len(out) != 2 {
		t.Fatalf("expected both messages kept, got %d", len(out))
	}
	if len(out[1].Content) >= 9000 {
		t.Error("oversized message not truncated")
	}
	if len(out[1].Content) < minTruncatedLen {
		t.Errorf("truncated below floor: %d", len(out[1].Content))
	}
}

func TestTrimTruncationFloor(t *testing.T) {
	msgs := []messages.ChatMessage{
		sys(strings.Repeat("s", 200)),
		userMsg(strings.Repeat("u", 200)),
	}
	out, _ := TrimMessages(msgs, 15)
	for _, m := range out {
		if len(m.Content) < minTruncatedLen {
			t.Errorf("content truncated below %d chars: %d", minTruncatedLen, len(m.Content))
		}
	}
}

func TestTrimDoesNotMutateInput(t *testing.T) {
	original := userMsg(strings.Repeat("k", 1000))
	msgs := []messages.ChatMessage{sys("prompt"), original, userMsg("now")}
	TrimMessages(msgs, 100)
	if len(msgs[1].Content) != 1000 {
		t.Error("input slice mutated")
	}
}
