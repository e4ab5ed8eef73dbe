package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexschlessinger/pollytool/tools"

	"pkdindustries/retort/internal/core"
)

// numericArgKeys lists argument names that are coerced from string to
// number when the schema expects one. Models sometimes quote numbers;
// coercion applies only to this allowlist, never to arbitrary keys.
var numericArgKeys = map[string]struct{}{
	"amount":   {},
	"limit":    {},
	"count":    {},
	"quantity": {},
	"days":     {},
	"hours":    {},
	"top_n":    {},
}

// callerPlaceholders are literal argument values some models emit instead
// of the requesting user's identity.
var callerPlaceholders = map[string]struct{}{
	"current_user":     {},
	"current user":     {},
	"this user":        {},
	"the current user": {},
}

// ResolvePlaceholders returns args with caller-identity placeholder values
// replaced by the actual user id.
func ResolvePlaceholders(args map[string]any, user string) map[string]any {
	if user == "" {
		return args
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, listed := callerPlaceholders[strings.ToLower(strings.TrimSpace(s))]; listed {
			out[k] = user
		}
	}
	return out
}

// NormalizeArgs returns args with allowlisted numeric keys coerced from
// string form. Non-numeric strings are left untouched.
func NormalizeArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
		if _, listed := numericArgKeys[k]; !listed {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			out[k] = f
		}
	}
	return out
}

// Executor runs tool calls against a polly registry with logging and
// context plumbing.
type Executor struct {
	registry *tools.ToolRegistry
}

var _ core.ToolExecutor = (*Executor)(nil)

func NewExecutor(registry *tools.ToolRegistry) *Executor {
	return &Executor{registry: registry}
}

// Available returns the names of registered tools.
func (e *Executor) Available() []string {
	all := e.registry.All()
	names := make([]string, 0, len(all))
	for _, tool := range all {
		names = append(names, tool.GetName())
	}
	return names
}

// All exposes the registered tools for completion requests.
func (e *Executor) All() []tools.Tool {
	return e.registry.All()
}

// Execute looks up and runs a tool. Errors from the tool itself are
// returned to the caller, which feeds them back to the model as result
// text rather than aborting the reply.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, exists := e.registry.Get(name)
	if !exists {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	if info, err := GetRequest(ctx); err == nil {
		args = ResolvePlaceholders(args, info.User)
	}
	args = NormalizeArgs(args)
	toolLogger := core.WithTool(core.GetLogger(), name, args)

	startTime := time.Now()
	toolLogger.Info("Executing tool")
	result, err := tool.Execute(ctx, args)
	duration := time.Since(startTime)

	if err != nil {
		toolLogger.With(
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		).Error("Tool execution failed")
		return "", err
	}

	outputPreview := result
	if len(outputPreview) > 200 {
		outputPreview = outputPreview[:200] + "..."
	}
	toolLogger.With(
		"duration_ms", duration.Milliseconds(),
		"result_size", len(result),
	).Infof("Tool execution completed: %s", outputPreview)
	return result, nil
}
