package engine

import (
	"context"
	"math/rand/v2"
	"strings"

	pllm "github.com/alexschlessinger/pollytool/llm"
	"github.com/alexschlessinger/pollytool/messages"

	"pkdindustries/retort/internal/core"
	"pkdindustries/retort/internal/similarity"
)

const (
	avoidListMax    = 5
	avoidSnippetLen = 150

	rephraseAttempts      = 3
	rephraseAcceptScore   = 0.5
	rephraseBestScore     = 0.75
	transformAcceptScore  = 0.85
	freshAttempts         = 3
	freshAcceptScore      = 0.70
	freshPrefixLen        = 100
	rephraseBaseTemp      = 0.9
	freshBaseTemp         = 1.2
	regenTemperatureStep  = 0.1
)

// fallbackPool is the last resort when every regeneration stage produces
// another repeat.
var fallbackPool = []string{
	"Let me come at that from a different angle next time. What else is on your mind?",
	"I keep circling the same answer, so I'll stop there. Anything else I can help with?",
	"I don't have a fresh take on that right now. Want to try a different question?",
	"That one seems to pull me into a loop. Ask me again later or try rephrasing it.",
}

// regenerate replaces a repetitive reply. Stages run cheapest-acceptable
// first: ask the model to rephrase, apply deterministic transforms, ask
// for a fresh reply steered away from recent output, and finally fall
// back to a stock line. Always returns something deliverable.
func (e *Engine) regenerate(ctx context.Context, user, offending string, base []messages.ChatMessage) string {
	log := core.WithUser(core.GetLogger(), user)

	if candidate, ok := e.rephrase(ctx, offending); ok {
		log.Debugw("regenerated_reply", "stage", "rephrase")
		return candidate
	}
	if candidate, ok := applyTransforms(offending); ok {
		log.Debugw("regenerated_reply", "stage", "transform")
		return candidate
	}
	if candidate, ok := e.freshGenerate(ctx, user, offending, base); ok {
		log.Debugw("regenerated_reply", "stage", "fresh")
		return candidate
	}
	log.Debugw("regenerated_reply", "stage", "fallback")
	return e.fallbackReply(user)
}

// rephraseInstructions give each attempt a different angle of attack.
var rephraseInstructions = []string{
	"You rewrite replies. Completely restructure this one: reorder the ideas and use none of the original sentence shapes.",
	"You rewrite replies. Flip the style and tone of this one while keeping its meaning.",
	"You rewrite replies. Say the same thing at a noticeably different length, shorter or longer.",
}

// rephrase asks the model to reword the offending reply, each attempt with
// a different instruction and a higher temperature. A candidate well clear
// of the original wins outright; otherwise the best candidate is kept if
// it moved far enough.
func (e *Engine) rephrase(ctx context.Context, offending string) (string, bool) {
	best := ""
	bestScore := 1.0
	for i := 0; i < rephraseAttempts; i++ {
		if ctx.Err() != nil {
			break
		}
		msgs := []messages.ChatMessage{
			{
				Role:    messages.MessageRoleSystem,
				Content: rephraseInstructions[i%len(rephraseInstructions)],
			},
			{
				Role:    messages.MessageRoleUser,
				Content: "Rewrite this reply:\n\n" + offending,
			},
		}
		candidate := e.oneShot(ctx, msgs, rephraseBaseTemp+regenTemperatureStep*float32(i))
		if candidate == "" {
			continue
		}
		score := similarity.Jaccard(candidate, offending)
		if score < rephraseAcceptScore {
			return candidate, true
		}
		if score < bestScore {
			best, bestScore = candidate, score
		}
	}
	if best != "" && bestScore < rephraseBestScore {
		return best, true
	}
	return "", false
}

// applyTransforms runs every deterministic transform and keeps the result
// that moved furthest from the original, accepted if it moved far enough.
func applyTransforms(offending string) (string, bool) {
	best := ""
	bestScore := 1.0
	for _, tr := range transforms {
		candidate := tr.apply(offending)
		if candidate == offending {
			continue
		}
		if score := similarity.Jaccard(candidate, offending); score < bestScore {
			best, bestScore = candidate, score
		}
	}
	if best != "" && bestScore < transformAcceptScore {
		return best, true
	}
	return "", false
}

// freshGenerate re-runs the original conversation with an avoid-list of
// recent replies and a high temperature. A candidate must differ from
// every avoided snippet both as a whole and in its opening, since replies
// that start identically read as repeats regardless of the tail.
func (e *Engine) freshGenerate(ctx context.Context, user, offending string, base []messages.ChatMessage) (string, bool) {
	avoid := e.buildAvoidList(user, offending)

	msgs := make([]messages.ChatMessage, len(base))
	copy(msgs, base)
	if len(msgs) > 0 && msgs[0].Role == messages.MessageRoleSystem {
		msgs[0].Content += "\n\n" + avoidDirective(avoid)
	}

	for i := 0; i < freshAttempts; i++ {
		if ctx.Err() != nil {
			break
		}
		candidate := e.oneShot(ctx, msgs, freshBaseTemp+regenTemperatureStep*float32(i))
		if candidate == "" {
			continue
		}
		if acceptFresh(candidate, offending) {
			return candidate, true
		}
	}
	return "", false
}

// acceptFresh screens a candidate against the full reply being replaced:
// both the whole text and the opening must be clearly different, since
// replies that start identically read as repeats regardless of the tail.
func acceptFresh(candidate, offending string) bool {
	if similarity.Jaccard(candidate, offending) >= freshAcceptScore {
		return false
	}
	if similarity.Jaccard(snippet(candidate, freshPrefixLen), snippet(offending, freshPrefixLen)) >= freshAcceptScore {
		return false
	}
	return true
}

// buildAvoidList collects the offending reply plus up to avoidListMax
// recent replies as short snippets for the avoid directive.
func (e *Engine) buildAvoidList(user, offending string) []string {
	avoid := []string{snippet(offending, avoidSnippetLen)}
	for _, r := range e.history.Recent(user, avoidListMax) {
		avoid = append(avoid, snippet(r, avoidSnippetLen))
	}
	return avoid
}

func avoidDirective(avoid []string) string {
	var b strings.Builder
	b.WriteString("Do NOT produce anything resembling these previous replies:\n")
	for _, a := range avoid {
		b.WriteString("- ")
		b.WriteString(a)
		b.WriteString("\n")
	}
	b.WriteString("Answer with entirely different wording and structure.")
	return b.String()
}

// oneShot makes a single no-tools model call and returns the trimmed
// content, or empty on failure. Regeneration attempts are themselves
// retries, so each call fails fast.
func (e *Engine) oneShot(ctx context.Context, msgs []messages.ChatMessage, temperature float32) string {
	req := &pllm.CompletionRequest{
		BaseURL:     e.opts.BaseURL,
		Timeout:     e.opts.Timeout,
		Model:       e.opts.Model,
		MaxTokens:   e.opts.MaxTokens,
		Messages:    msgs,
		Temperature: temperature,
	}
	response, err := e.provider.Complete(ctx, req)
	if err != nil {
		core.GetLogger().Debugw("regen_call_failed", "error", err)
		return ""
	}
	return strings.TrimSpace(response.Content)
}

// fallbackReply picks a stock line at random among those the user has not
// seen recently.
func (e *Engine) fallbackReply(user string) string {
	fresh := make([]string, 0, len(fallbackPool))
	for _, candidate := range fallbackPool {
		if repetitive, _ := e.history.IsRepetitive(user, candidate); !repetitive {
			fresh = append(fresh, candidate)
		}
	}
	if len(fresh) == 0 {
		fresh = fallbackPool
	}
	return fresh[rand.IntN(len(fresh))]
}
