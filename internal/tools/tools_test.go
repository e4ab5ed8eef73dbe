package tools

import (
	"testing"

	ptools "github.com/alexschlessinger/pollytool/tools"

	"pkdindustries/retort/internal/memory"
	mocktest "pkdindustries/retort/internal/testing"
)

func TestRegisterNativeTools(t *testing.T) {
	cfg := mocktest.DefaultTestConfig()
	registry := ptools.NewToolRegistry([]ptools.Tool{})
	RegisterNativeTools(registry, memory.NewFacts(), *cfg.Tools)

	executor := NewExecutor(registry)
	names := executor.Available()

	for _, want := range []string{"calculate", "crypto_price", "remember_user_info"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("tool %q not registered, got %v", want, names)
		}
	}

	// generate_image needs an endpoint configured
	for _, n := range names {
		if n == "generate_image" {
			t.Error("generate_image registered without an image endpoint")
		}
	}
}

func TestRegisterImageToolWithEndpoint(t *testing.T) {
	cfg := mocktest.DefaultTestConfig()
	cfg.Tools.ImageURL = "http://localhost:8080/generate"
	registry := ptools.NewToolRegistry([]ptools.Tool{})
	RegisterNativeTools(registry, memory.NewFacts(), *cfg.Tools)

	if _, exists := ptools.NewToolRegistry([]ptools.Tool{}).Get("generate_image"); exists {
		t.Error("empty registry should not have generate_image")
	}
	if _, exists := registry.Get("generate_image"); !exists {
		t.Error("generate_image missing")
	}
}
