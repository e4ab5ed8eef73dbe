// Package tools provides retort's native tools and the executor that runs
// tool calls issued by the model.
package tools

import (
	"context"
	"fmt"

	"github.com/alexschlessinger/pollytool/tools"

	"pkdindustries/retort/internal/config"
	"pkdindustries/retort/internal/core"
	"pkdindustries/retort/internal/memory"
)

type contextKey string

const kRequestKey contextKey = "request_info"

// RequestInfo identifies the user whose message is being handled. Tools
// that act on user identity retrieve it from the context.
type RequestInfo struct {
	User string
}

// InjectRequest stores request info for tools to retrieve.
// This must be used (rather than direct context.WithValue) to ensure
// the correct key type is used.
func InjectRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, kRequestKey, info)
}

func GetRequest(ctx context.Context) (RequestInfo, error) {
	if info, ok := ctx.Value(kRequestKey).(RequestInfo); ok {
		return info, nil
	}
	return RequestInfo{}, fmt.Errorf("no request info available")
}

// BaseNativeTool provides common functionality for all native tools
type BaseNativeTool struct{}

func (t *BaseNativeTool) SetContext(ctx any) {}
func (t *BaseNativeTool) GetType() string    { return "native" }
func (t *BaseNativeTool) GetSource() string  { return "builtin" }

// RegisterNativeTools registers retort's tools with polly's registry and
// loads them. Registering only stores the factory; a tool is offered to
// the model once loaded.
func RegisterNativeTools(registry *tools.ToolRegistry, facts *memory.Facts, cfg config.ToolsConfig) {
	registry.RegisterNative("calculate", func() tools.Tool {
		return &CalculateTool{}
	})
	registry.RegisterNative("crypto_price", func() tools.Tool {
		return NewCryptoPriceTool(cfg)
	})
	registry.RegisterNative("remember_user_info", func() tools.Tool {
		return &RememberUserInfoTool{facts: facts}
	})
	names := []string{"calculate", "crypto_price", "remember_user_info"}
	if cfg.ImageURL != "" {
		registry.RegisterNative("generate_image", func() tools.Tool {
			return NewGenerateImageTool(cfg)
		})
		names = append(names, "generate_image")
	}

	for _, name := range names {
		if _, err := registry.LoadToolAuto(name); err != nil {
			core.GetLogger().Warnw("tool_load_failed", "tool", name, "error", err)
		}
	}
}
