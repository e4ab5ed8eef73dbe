package core

import (
	"context"
	"time"

	"github.com/alexschlessinger/pollytool/llm"
	"github.com/alexschlessinger/pollytool/messages"
)

// Provider is the language model client. Complete performs one request and
// returns the assembled assistant message once the stream finishes.
type Provider interface {
	Complete(ctx context.Context, req *llm.CompletionRequest) (messages.ChatMessage, error)
}

// ToolExecutor runs a named tool with already-decoded arguments and returns
// the textual result to feed back into the conversation.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
	Available() []string
}

// ContextProvider supplies per-user background context for prompt assembly.
// Implementations are best-effort; an error means the reply proceeds without
// the extra context.
type ContextProvider interface {
	RetrieveContext(ctx context.Context, user, query string) (string, error)
}

// HistoryStore tracks recently delivered replies per user for repetition
// detection.
type HistoryStore interface {
	Record(user, text string)
	IsRepetitive(user, text string) (bool, string)
	Recent(user string, n int) []string
	Clear(user string)
}

// ConversationStore persists user/bot exchanges across requests.
type ConversationStore interface {
	Append(ctx context.Context, user string, ex Exchange) error
	Recent(ctx context.Context, user string, n int) ([]Exchange, error)
	Clear(ctx context.Context, user string) error
}

// Exchange is one user message and the reply it produced.
type Exchange struct {
	UserName string    `json:"user_name"`
	UserText string    `json:"user_text"`
	BotText  string    `json:"bot_text"`
	At       time.Time `json:"at"`
}
