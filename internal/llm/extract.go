package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/alexschlessinger/pollytool/messages"
)

// Some models emit tool calls as text in the reply body instead of using
// the structured tool_calls field. The matchers below recover them. Each
// matcher has a name, a way to find one candidate call in text, and returns
// the span to strip on success. Matchers run in order; the first one that
// matches at a position wins.

type textMatch struct {
	call  messages.ChatMessageToolCall
	start int
	end   int
}

type textMatcher struct {
	name string
	find func(text string, known map[string]struct{}) (textMatch, bool)
}

var textMatchers = []textMatcher{
	{name: "json-function-object", find: findJSONFunctionObject},
	{name: "bare-call", find: findBareCall},
}

// ExtractToolCalls scans assistant text for embedded tool calls against the
// set of known tool names. It returns the text with matched spans removed
// and the recovered calls in order of appearance. Text without matches is
// returned unchanged. Call ids are unique within one invocation, which is
// all the tool result pairing needs.
func ExtractToolCalls(text string, knownTools []string) (string, []messages.ChatMessageToolCall) {
	known := make(map[string]struct{}, len(knownTools))
	for _, name := range knownTools {
		known[name] = struct{}{}
	}

	var calls []messages.ChatMessageToolCall
	for {
		best := textMatch{start: -1}
		for _, m := range textMatchers {
			found, ok := m.find(text, known)
			if !ok {
				continue
			}
			if best.start == -1 || found.start < best.start {
				best = found
			}
		}
		if best.start == -1 {
			break
		}
		best.call.ID = fmt.Sprintf("textcall_%d", len(calls)+1)
		calls = append(calls, best.call)
		text = strings.TrimSpace(text[:best.start] + text[best.end:])
	}
	return text, calls
}

// findJSONFunctionObject matches an inline JSON object of the form
// {"type":"function","name":"...","parameters":{...}} ("arguments" also
// accepted). The name must be a known tool.
func findJSONFunctionObject(text string, known map[string]struct{}) (textMatch, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := findMatchingBrace(text, start)
		if end == start {
			continue
		}
		var obj struct {
			Type       string          `json:"type"`
			Name       string          `json:"name"`
			Parameters json.RawMessage `json:"parameters"`
			Arguments  json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal([]byte(text[start:end]), &obj); err != nil {
			continue
		}
		if obj.Name == "" {
			continue
		}
		if _, ok := known[obj.Name]; !ok {
			continue
		}
		params := obj.Parameters
		if params == nil {
			params = obj.Arguments
		}
		if params == nil {
			params = json.RawMessage("{}")
		}
		// Arguments must decode to an object.
		var check map[string]any
		if err := json.Unmarshal(params, &check); err != nil {
			continue
		}
		return textMatch{
			call: messages.ChatMessageToolCall{
				Name:      obj.Name,
				Arguments: string(params),
			},
			start: start,
			end:   end,
		}, true
	}
	return textMatch{}, false
}

var bareCallPattern = regexp.MustCompile(`\b([a-z][a-z0-9_]*)\s*\{`)

// findBareCall matches "tool_name {json args}" where tool_name is known.
func findBareCall(text string, known map[string]struct{}) (textMatch, bool) {
	for _, loc := range bareCallPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[loc[2]:loc[3]]
		if _, ok := known[name]; !ok {
			continue
		}
		braceStart := loc[1] - 1
		end := findMatchingBrace(text, braceStart)
		if end == braceStart {
			continue
		}
		args := text[braceStart:end]
		var check map[string]any
		if err := json.Unmarshal([]byte(args), &check); err != nil {
			continue
		}
		return textMatch{
			call: messages.ChatMessageToolCall{
				Name:      name,
				Arguments: args,
			},
			start: loc[2],
			end:   end,
		}, true
	}
	return textMatch{}, false
}

// findMatchingBrace returns the index one past the brace matching the one
// at start, honoring strings and escapes. Returns start when unbalanced.
func findMatchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return i + 1
				}
			}
		}
	}
	return start
}
