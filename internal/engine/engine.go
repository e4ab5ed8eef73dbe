// Package engine turns one inbound user message into one reply through a
// bounded tool-calling conversation with the model, with context trimming,
// repetition control, and per-user rate limiting.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/alexschlessinger/pollytool/messages"
	ptools "github.com/alexschlessinger/pollytool/tools"

	"pkdindustries/retort/internal/core"
	"pkdindustries/retort/internal/llm"
	"pkdindustries/retort/internal/ratelimit"
	rtools "pkdindustries/retort/internal/tools"
)

const (
	DefaultMaxRounds       = 5
	DefaultFollowUpRetries = 2
	DefaultSessionDepth    = 10
)

// ToolSource provides the tool schemas for completion requests and runs
// the calls the model makes.
type ToolSource interface {
	core.ToolExecutor
	All() []ptools.Tool
}

// Options holds the knobs for one engine instance.
type Options struct {
	Model          string
	MaxTokens      int
	Temperature    float32
	Timeout        time.Duration
	BaseURL        string
	ThinkingEffort string

	// MaxRounds bounds the tool-calling conversation; the final round
	// runs without tools so it must produce text.
	MaxRounds int

	// ContextBudget is the character budget for the message window.
	ContextBudget int

	// FollowUpRetries is how many extra attempts a follow-up model call
	// gets on transient failure. The initial call is never retried.
	// Zero means the default; set negative to disable retries.
	FollowUpRetries int

	// RetryBase is the delay before the first retry; it doubles per
	// attempt.
	RetryBase time.Duration

	// SessionDepth is how many prior exchanges are replayed into the
	// window.
	SessionDepth int
}

func (o *Options) fillDefaults() {
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.ContextBudget <= 0 {
		o.ContextBudget = DefaultContextBudget
	}
	if o.FollowUpRetries == 0 {
		o.FollowUpRetries = DefaultFollowUpRetries
	}
	if o.FollowUpRetries < 0 {
		o.FollowUpRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = llm.DefaultRetryBase
	}
	if o.SessionDepth <= 0 {
		o.SessionDepth = DefaultSessionDepth
	}
}

// Engine owns the reply pipeline for all users. Per-user requests are
// serialized through the lock map; different users proceed concurrently.
type Engine struct {
	provider core.Provider
	toolSrc  ToolSource
	history  core.HistoryStore
	sessions core.ConversationStore
	contexts []core.ContextProvider
	limiter  *ratelimit.Limiter
	locks    *core.LockMap
	opts     Options

	// sleep is swappable so retry tests need no clock.
	sleep func(time.Duration)
}

func New(
	provider core.Provider,
	toolSrc ToolSource,
	history core.HistoryStore,
	sessions core.ConversationStore,
	limiter *ratelimit.Limiter,
	contexts []core.ContextProvider,
	opts Options,
) *Engine {
	opts.fillDefaults()
	return &Engine{
		provider: provider,
		toolSrc:  toolSrc,
		history:  history,
		sessions: sessions,
		contexts: contexts,
		limiter:  limiter,
		locks:    core.NewLockMap(),
		opts:     opts,
		sleep:    time.Sleep,
	}
}

// GenerateReply handles one inbound message and returns the reply text.
// Returns RateLimitedError when the user is over quota and BusyError when
// a prior request for the same user is still running and ctx expires
// waiting for it.
func (e *Engine) GenerateReply(ctx context.Context, user, text, systemPrompt string) (string, error) {
	log := core.WithUser(core.GetLogger(), user)

	if e.limiter != nil {
		if allowed, retryAfter := e.limiter.Admit(user); !allowed {
			log.Infow("rate_limited", "retry_after", retryAfter)
			return "", &core.RateLimitedError{User: user, RetryAfter: retryAfter}
		}
	}

	release, ok := e.locks.Acquire(ctx, user)
	if !ok {
		return "", &core.BusyError{User: user}
	}
	defer release()
	defer core.LogDuration(log, "generate_reply", time.Now())

	msgs := e.assembleMessages(ctx, user, text, systemPrompt)

	reply, err := e.converse(ctx, user, msgs)
	if err != nil {
		return "", err
	}
	if reply == "" {
		reply = e.fallbackReply(user)
	}

	// The truncation note is boilerplate; the repetition verdict and any
	// regeneration run on the reply body, then the note goes back on.
	body, truncated := strings.CutSuffix(reply, truncationNote)
	if repetitive, reason := e.history.IsRepetitive(user, body); repetitive {
		log.Infow("repetitive_reply", "reason", reason)
		body = e.regenerate(ctx, user, body, msgs)
	}
	reply = body
	if truncated {
		reply += truncationNote
	}

	// A cancelled request never delivered its reply; recording it would
	// poison future repetition checks.
	if ctx.Err() == nil {
		e.history.Record(user, reply)
		if e.sessions != nil {
			ex := core.Exchange{
				UserName: user,
				UserText: text,
				BotText:  reply,
				At:       time.Now(),
			}
			if err := e.sessions.Append(ctx, user, ex); err != nil {
				log.Warnw("session_append_failed", "error", err)
			}
		}
	}

	return reply, nil
}

// assembleMessages builds the window: system prompt enriched with context
// blocks and anti-repetition directives, replayed exchanges, then the
// current message.
func (e *Engine) assembleMessages(ctx context.Context, user, text, systemPrompt string) []messages.ChatMessage {
	log := core.WithUser(core.GetLogger(), user)

	var system strings.Builder
	system.WriteString(systemPrompt)

	for _, cp := range e.contexts {
		block, err := cp.RetrieveContext(ctx, user, text)
		if err != nil {
			log.Warnw("context_retrieval_failed", "error", err)
			continue
		}
		if block != "" {
			system.WriteString("\n\n")
			system.WriteString(block)
		}
	}

	if recent := e.history.Recent(user, avoidListMax); len(recent) > 0 {
		system.WriteString("\n\n")
		system.WriteString(antiRepetitionDirective(recent))
	}

	msgs := []messages.ChatMessage{{
		Role:    messages.MessageRoleSystem,
		Content: system.String(),
	}}

	if e.sessions != nil {
		exchanges, err := e.sessions.Recent(ctx, user, e.opts.SessionDepth)
		if err != nil {
			log.Warnw("session_load_failed", "error", err)
		}
		for _, ex := range exchanges {
			msgs = append(msgs,
				messages.ChatMessage{Role: messages.MessageRoleUser, Content: ex.UserText},
				messages.ChatMessage{Role: messages.MessageRoleAssistant, Content: ex.BotText},
			)
		}
	}

	return append(msgs, messages.ChatMessage{
		Role:    messages.MessageRoleUser,
		Content: text,
	})
}

// antiRepetitionDirective renders recent reply snippets as an instruction
// not to retread them.
func antiRepetitionDirective(recent []string) string {
	var b strings.Builder
	b.WriteString("Do not repeat yourself. Your most recent replies to this user were:\n")
	for _, r := range recent {
		b.WriteString("- ")
		b.WriteString(snippet(r, avoidSnippetLen))
		b.WriteString("\n")
	}
	b.WriteString("Say something substantively different.")
	return b.String()
}

func snippet(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// toolContext returns the context tools run under, carrying the
// requesting user's identity.
func (e *Engine) toolContext(ctx context.Context, user string) context.Context {
	return rtools.InjectRequest(ctx, rtools.RequestInfo{User: user})
}
