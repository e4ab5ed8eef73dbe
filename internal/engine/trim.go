package engine

import (
	"github.com/alexschlessinger/pollytool/messages"
)

const (
	// DefaultContextBudget is the character budget for the message window
	// sent to the model.
	DefaultContextBudget = 6000

	// minTruncatedLen is the floor below which message content is never
	// truncated.
	minTruncatedLen = 10
)

// messageWeight is the cost of one message against the context budget.
func messageWeight(m messages.ChatMessage) int {
	w := len(m.Content)
	for _, tc := range m.ToolCalls {
		w += len(tc.Name) + len(tc.Arguments)
	}
	return w
}

func totalWeight(msgs []messages.ChatMessage) int {
	total := 0
	for _, m := range msgs {
		total += messageWeight(m)
	}
	return total
}

// msgGroup is the unit the trimmer keeps or drops. An assistant message
// carrying tool calls travels with its tool results so the window never
// contains an orphaned half of a pair; everything else is a group of one.
type msgGroup struct {
	msgs     []messages.ChatMessage
	required bool
}

// requiredCallIDs returns the tool call ids that have both the requesting
// assistant message and a tool result present in the window.
func requiredCallIDs(msgs []messages.ChatMessage) map[string]struct{} {
	requested := make(map[string]struct{})
	for _, m := range msgs {
		if m.Role == messages.MessageRoleAssistant {
			for _, tc := range m.ToolCalls {
				requested[tc.ID] = struct{}{}
			}
		}
	}
	required := make(map[string]struct{})
	for _, m := range msgs {
		if m.Role == messages.MessageRoleTool {
			if _, ok := requested[m.ToolCallID]; ok {
				required[m.ToolCallID] = struct{}{}
			}
		}
	}
	return required
}

func groupMessages(msgs []messages.ChatMessage, required map[string]struct{}) []msgGroup {
	var groups []msgGroup
	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		if m.Role == messages.MessageRoleAssistant && len(m.ToolCalls) > 0 {
			ids := make(map[string]struct{}, len(m.ToolCalls))
			req := false
			for _, tc := range m.ToolCalls {
				ids[tc.ID] = struct{}{}
				if _, ok := required[tc.ID]; ok {
					req = true
				}
			}
			g := msgGroup{msgs: []messages.ChatMessage{m}, required: req}
			for i+1 < len(msgs) && msgs[i+1].Role == messages.MessageRoleTool {
				if _, ok := ids[msgs[i+1].ToolCallID]; !ok {
					break
				}
				g.msgs = append(g.msgs, msgs[i+1])
				i++
			}
			groups = append(groups, g)
			continue
		}
		groups = append(groups, msgGroup{msgs: []messages.ChatMessage{m}})
	}
	return groups
}

// truncateGroup cuts excess characters out of a group kept over budget,
// longest content first, never below minTruncatedLen per message.
func truncateGroup(group []messages.ChatMessage, excess int) []messages.ChatMessage {
	out := make([]messages.ChatMessage, len(group))
	copy(out, group)
	for excess > 0 {
		longest := -1
		for i := range out {
			if len(out[i].Content) > minTruncatedLen {
				if longest == -1 || len(out[i].Content) > len(out[longest].Content) {
					longest = i
				}
			}
		}
		if longest == -1 {
			break
		}
		keep := len(out[longest].Content) - excess
		if keep < minTruncatedLen {
			keep = minTruncatedLen
		}
		excess -= len(out[longest].Content) - keep
		out[longest].Content = out[longest].Content[:keep]
	}
	return out
}

// TrimMessages fits the window into the character budget. A leading system
// message always survives and its weight is deducted first. The walk runs
// newest to oldest keeping whole groups while they fit; a tool pair is kept
// even over budget by truncating its content (floor minTruncatedLen per
// message, dropped whole when no budget remains); the first non-pair
// message that does not fit is truncated to the leftover budget and the
// walk stops, dropping everything older. Result order is chronological.
// Reports whether anything was dropped or truncated.
func TrimMessages(msgs []messages.ChatMessage, budget int) ([]messages.ChatMessage, bool) {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	if totalWeight(msgs) <= budget {
		return msgs, false
	}

	out := make([]messages.ChatMessage, 0, len(msgs))
	remaining := budget
	start := 0
	if len(msgs) > 0 && msgs[0].Role == messages.MessageRoleSystem {
		out = append(out, msgs[0])
		remaining -= messageWeight(msgs[0])
		start = 1
	}

	rest := msgs[start:]
	groups := groupMessages(rest, requiredCallIDs(rest))

	keptRev := make([]messages.ChatMessage, 0, len(rest))
	trimmed := false
	for gi := len(groups) - 1; gi >= 0; gi-- {
		g := groups[gi]
		gw := 0
		for _, m := range g.msgs {
			gw += messageWeight(m)
		}

		if gw <= remaining {
			for i := len(g.msgs) - 1; i >= 0; i-- {
				keptRev = append(keptRev, g.msgs[i])
			}
			remaining -= gw
			continue
		}

		if g.required {
			trimmed = true
			if remaining < minTruncatedLen {
				continue
			}
			shrunk := truncateGroup(g.msgs, gw-remaining)
			for i := len(shrunk) - 1; i >= 0; i-- {
				keptRev = append(keptRev, shrunk[i])
			}
			remaining = 0
			continue
		}

		// First non-pair misfit: fill whatever budget is left and stop.
		trimmed = true
		if remaining >= minTruncatedLen && len(g.msgs) == 1 {
			m := g.msgs[0]
			if keep := len(m.Content) - (messageWeight(m) - remaining); keep >= minTruncatedLen {
				m.Content = m.Content[:keep]
				keptRev = append(keptRev, m)
			}
		}
		break
	}

	for i, j := 0, len(keptRev)-1; i < j; i, j = i+1, j-1 {
		keptRev[i], keptRev[j] = keptRev[j], keptRev[i]
	}
	return append(out, keptRev...), trimmed
}
