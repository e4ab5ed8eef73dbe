package testing

import (
	"time"

	"pkdindustries/retort/internal/config"
)

// DefaultTestConfig returns a minimal configuration for testing
func DefaultTestConfig() *config.Configuration {
	return &config.Configuration{
		Bot: &config.BotConfig{
			Name:    "testbot",
			Verbose: false,
			Prompt:  "You are a test bot.",
		},
		Model: &config.ModelConfig{
			Model:       "test/model",
			MaxTokens:   100,
			Temperature: 0.7,
			Thinking:    false,
		},
		API: &config.APIConfig{
			Timeout: time.Second * 30,
		},
		Engine: &config.EngineConfig{
			MaxRounds:       5,
			ContextBudget:   6000,
			FollowUpRetries: 2,
			RetryBase:       time.Millisecond,
			SessionDepth:    10,
		},
		History: &config.HistoryConfig{
			Capacity: 10,
		},
		RateLimit: &config.RateLimitConfig{
			Window: time.Minute,
			Limit:  5,
		},
		Redis: &config.RedisConfig{
			TTL: time.Minute * 10,
		},
		Tools: &config.ToolsConfig{
			HTTPTimeout: time.Second * 5,
		},
	}
}
