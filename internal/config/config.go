package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	Bot       *BotConfig
	Model     *ModelConfig
	API       *APIConfig
	Engine    *EngineConfig
	History   *HistoryConfig
	RateLimit *RateLimitConfig
	Redis     *RedisConfig
	Tools     *ToolsConfig
}

type BotConfig struct {
	Name    string
	Verbose bool
	Prompt  string
}

type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Thinking    bool
}

type APIConfig struct {
	Timeout      time.Duration
	OpenAIKey    string
	OpenAIURL    string
	AnthropicKey string
	GeminiKey    string
	OllamaURL    string
	OllamaKey    string
}

type EngineConfig struct {
	MaxRounds       int
	ContextBudget   int
	FollowUpRetries int
	RetryBase       time.Duration
	SessionDepth    int
}

type HistoryConfig struct {
	Capacity int
}

type RateLimitConfig struct {
	Window time.Duration
	Limit  int
}

type RedisConfig struct {
	URL string
	TTL time.Duration
}

type ToolsConfig struct {
	PriceURL    string
	ImageURL    string
	ImageKey    string
	HTTPTimeout time.Duration
}

// YamlSource implements cli.ValueSource for a map loaded from YAML
type YamlSource struct {
	data map[string]any
	key  string
}

func (y *YamlSource) Lookup() (string, bool) {
	if v, ok := y.data[y.key]; ok {
		// Handle slices by joining with comma
		if slice, ok := v.([]any); ok {
			var strs []string
			for _, item := range slice {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
			return strings.Join(strs, ","), true
		}
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func (y *YamlSource) String() string   { return "yaml" }
func (y *YamlSource) GoString() string { return "yaml" }

func GetFlags() []cli.Flag {
	// Pre-parse config path
	configPath := getConfigPath()
	var configData map[string]any
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			_ = yaml.Unmarshal(data, &configData)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", configPath, err)
		}
	}

	// Helper to create sources: EnvVar > YAML > Default
	src := func(key string, env ...string) cli.ValueSourceChain {
		chain := cli.ValueSourceChain{}
		for _, e := range env {
			chain.Chain = append(chain.Chain, cli.EnvVar(e))
		}
		if configData != nil {
			chain.Chain = append(chain.Chain, &YamlSource{data: configData, key: key})
		}
		return chain
	}

	return []cli.Flag{
		// Config file
		&cli.StringFlag{Name: "config", Aliases: []string{"b"}, Usage: "use the named configuration file", Sources: cli.EnvVars("RETORT_CONFIG")},

		// Bot
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Value: "retort", Usage: "bot's display name", Sources: src("name", "RETORT_NAME")},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "enable verbose logging", Sources: src("verbose", "RETORT_VERBOSE")},
		&cli.StringFlag{Name: "prompt", Value: "you are a helpful assistant. be concise. do not use emoji.", Usage: "initial system prompt", Sources: src("prompt", "RETORT_PROMPT")},

		// Model
		&cli.StringFlag{Name: "model", Value: "ollama/llama3.2", Usage: "model to be used for responses", Sources: src("model", "RETORT_MODEL")},
		&cli.IntFlag{Name: "maxtokens", Value: 4096, Usage: "maximum number of tokens to generate", Sources: src("maxtokens", "RETORT_MAXTOKENS")},
		&cli.FloatFlag{Name: "temperature", Value: 0.7, Usage: "temperature for the completion", Sources: src("temperature", "RETORT_TEMPERATURE")},
		&cli.BoolFlag{Name: "thinking", Usage: "enable thinking/reasoning for models that support it", Sources: src("thinking", "RETORT_THINKING")},

		// API
		&cli.StringFlag{Name: "openaikey", Usage: "OpenAI API key", Sources: src("openaikey", "RETORT_OPENAIKEY")},
		&cli.StringFlag{Name: "openaiurl", Usage: "OpenAI API URL (for custom endpoints)", Sources: src("openaiurl", "RETORT_OPENAIURL")},
		&cli.StringFlag{Name: "anthropickey", Usage: "Anthropic API key", Sources: src("anthropickey", "RETORT_ANTHROPICKEY")},
		&cli.StringFlag{Name: "geminikey", Usage: "Google Gemini API key", Sources: src("geminikey", "RETORT_GEMINIKEY")},
		&cli.StringFlag{Name: "ollamaurl", Value: "http://localhost:11434", Usage: "Ollama API URL", Sources: src("ollamaurl", "RETORT_OLLAMAURL")},
		&cli.StringFlag{Name: "ollamakey", Usage: "Ollama API key (Bearer token for authentication)", Sources: src("ollamakey", "RETORT_OLLAMAKEY")},
		&cli.DurationFlag{Name: "apitimeout", Aliases: []string{"t"}, Value: time.Minute * 5, Usage: "timeout for each completion request", Sources: src("apitimeout", "RETORT_APITIMEOUT")},

		// Engine
		&cli.IntFlag{Name: "maxrounds", Value: 5, Usage: "maximum tool-calling rounds per reply", Sources: src("maxrounds", "RETORT_MAXROUNDS")},
		&cli.IntFlag{Name: "contextbudget", Value: 6000, Usage: "character budget for the model's message window", Sources: src("contextbudget", "RETORT_CONTEXTBUDGET")},
		&cli.IntFlag{Name: "followupretries", Value: 2, Usage: "extra attempts for follow-up model calls on transient failure", Sources: src("followupretries", "RETORT_FOLLOWUPRETRIES")},
		&cli.DurationFlag{Name: "retrybase", Value: 2 * time.Second, Usage: "base delay before retrying a model call, doubling per attempt", Sources: src("retrybase", "RETORT_RETRYBASE")},
		&cli.IntFlag{Name: "sessiondepth", Value: 10, Usage: "prior exchanges replayed into the model's window", Sources: src("sessiondepth", "RETORT_SESSIONDEPTH")},

		// History / repetition
		&cli.IntFlag{Name: "historysize", Value: 10, Usage: "replies remembered per user for repetition detection", Sources: src("historysize", "RETORT_HISTORYSIZE")},

		// Rate limiting
		&cli.DurationFlag{Name: "ratewindow", Value: time.Minute, Usage: "rate limit window per user", Sources: src("ratewindow", "RETORT_RATEWINDOW")},
		&cli.IntFlag{Name: "ratelimit", Value: 5, Usage: "requests allowed per user per window", Sources: src("ratelimit", "RETORT_RATELIMIT")},

		// Storage
		&cli.StringFlag{Name: "redisurl", Usage: "redis URL for conversation persistence (empty = in-memory)", Sources: src("redisurl", "RETORT_REDISURL")},
		&cli.DurationFlag{Name: "redisttl", Value: 24 * time.Hour, Usage: "idle TTL for persisted conversations", Sources: src("redisttl", "RETORT_REDISTTL")},

		// Tools
		&cli.StringFlag{Name: "priceurl", Usage: "override for the crypto price API endpoint", Sources: src("priceurl", "RETORT_PRICEURL")},
		&cli.StringFlag{Name: "imageurl", Usage: "image generation endpoint (empty disables the tool)", Sources: src("imageurl", "RETORT_IMAGEURL")},
		&cli.StringFlag{Name: "imagekey", Usage: "bearer token for the image generation endpoint", Sources: src("imagekey", "RETORT_IMAGEKEY")},
		&cli.DurationFlag{Name: "tooltimeout", Value: 30 * time.Second, Usage: "timeout for tool HTTP requests", Sources: src("tooltimeout", "RETORT_TOOLTIMEOUT")},
	}
}

func getConfigPath() string {
	// Check env first
	if v := os.Getenv("RETORT_CONFIG"); v != "" {
		return v
	}
	// Check args
	for i, arg := range os.Args {
		if arg == "--config" || arg == "-b" {
			if i+1 < len(os.Args) {
				return os.Args[i+1]
			}
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func maskKey(key string) string {
	if len(key) > 3 {
		return strings.Repeat("*", len(key)-3) + key[len(key)-3:]
	}
	return key
}

func (c *Configuration) PrintConfig() {
	fmt.Printf("name: %s\n", c.Bot.Name)
	fmt.Printf("verbose: %t\n", c.Bot.Verbose)
	fmt.Printf("prompt: %s\n", c.Bot.Prompt)
	fmt.Printf("model: %s\n", c.Model.Model)
	fmt.Printf("maxtokens: %d\n", c.Model.MaxTokens)
	fmt.Printf("temperature: %f\n", c.Model.Temperature)
	fmt.Printf("thinking: %t\n", c.Model.Thinking)
	fmt.Printf("apitimeout: %s\n", c.API.Timeout)
	fmt.Printf("openaikey: %s\n", maskKey(c.API.OpenAIKey))
	fmt.Printf("anthropickey: %s\n", maskKey(c.API.AnthropicKey))
	fmt.Printf("geminikey: %s\n", maskKey(c.API.GeminiKey))
	fmt.Printf("openaiurl: %s\n", c.API.OpenAIURL)
	fmt.Printf("ollamaurl: %s\n", c.API.OllamaURL)
	fmt.Printf("maxrounds: %d\n", c.Engine.MaxRounds)
	fmt.Printf("contextbudget: %d\n", c.Engine.ContextBudget)
	fmt.Printf("followupretries: %d\n", c.Engine.FollowUpRetries)
	fmt.Printf("retrybase: %s\n", c.Engine.RetryBase)
	fmt.Printf("sessiondepth: %d\n", c.Engine.SessionDepth)
	fmt.Printf("historysize: %d\n", c.History.Capacity)
	fmt.Printf("ratewindow: %s\n", c.RateLimit.Window)
	fmt.Printf("ratelimit: %d\n", c.RateLimit.Limit)
	fmt.Printf("redisurl: %s\n", c.Redis.URL)
	fmt.Printf("redisttl: %s\n", c.Redis.TTL)
	fmt.Printf("imageurl: %s\n", c.Tools.ImageURL)
}

func NewConfiguration(c *cli.Command) *Configuration {
	if c.IsSet("config") {
		zap.S().Infow("Using config file", "path", c.String("config"))
	}

	return &Configuration{
		Bot: &BotConfig{
			Name:    c.String("name"),
			Verbose: c.Bool("verbose"),
			Prompt:  c.String("prompt"),
		},
		Model: &ModelConfig{
			Model:       c.String("model"),
			MaxTokens:   c.Int("maxtokens"),
			Temperature: float32(c.Float("temperature")),
			Thinking:    c.Bool("thinking"),
		},
		API: &APIConfig{
			Timeout:      c.Duration("apitimeout"),
			OpenAIKey:    c.String("openaikey"),
			OpenAIURL:    c.String("openaiurl"),
			AnthropicKey: c.String("anthropickey"),
			GeminiKey:    c.String("geminikey"),
			OllamaURL:    c.String("ollamaurl"),
			OllamaKey:    c.String("ollamakey"),
		},
		Engine: &EngineConfig{
			MaxRounds:       c.Int("maxrounds"),
			ContextBudget:   c.Int("contextbudget"),
			FollowUpRetries: c.Int("followupretries"),
			RetryBase:       c.Duration("retrybase"),
			SessionDepth:    c.Int("sessiondepth"),
		},
		History: &HistoryConfig{
			Capacity: c.Int("historysize"),
		},
		RateLimit: &RateLimitConfig{
			Window: c.Duration("ratewindow"),
			Limit:  c.Int("ratelimit"),
		},
		Redis: &RedisConfig{
			URL: c.String("redisurl"),
			TTL: c.Duration("redisttl"),
		},
		Tools: &ToolsConfig{
			PriceURL:    c.String("priceurl"),
			ImageURL:    c.String("imageurl"),
			ImageKey:    c.String("imagekey"),
			HTTPTimeout: c.Duration("tooltimeout"),
		},
	}
}
