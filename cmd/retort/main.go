package main

//  ____           _                  _
// |  _ \    ___  | |_    ___   _ __ | |_
// | |_) |  / _ \ | __|  / _ \ | '__|| __|
// |  _ <  |  __/ | |_  | (_) || |   | |_
// |_| \_\  \___|  \__|  \___/ |_|    \__|
//  .  .  .  one  message  in,  one  reply  out

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ptools "github.com/alexschlessinger/pollytool/tools"
	"github.com/mazznoer/colorgrad"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pkdindustries/retort/internal/config"
	"pkdindustries/retort/internal/core"
	"pkdindustries/retort/internal/engine"
	"pkdindustries/retort/internal/history"
	"pkdindustries/retort/internal/llm"
	"pkdindustries/retort/internal/memory"
	"pkdindustries/retort/internal/ratelimit"
	"pkdindustries/retort/internal/session"
	retorttools "pkdindustries/retort/internal/tools"
)

const version = "0.9"

func main() {
	fmt.Printf("%s\n", getBanner())

	cmd := &cli.Command{
		Name:    "retort",
		Usage:   "one message in, one reply out",
		Version: version,
		Flags:   config.GetFlags(),
		Action:  run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		// Print to stderr first in case logger isn't initialized
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		zap.S().Fatal(err)
	}
}

func getBanner() string {
	banner := `
 ____           _                  _
|  _ \    ___  | |_    ___   _ __ | |_
| |_) |  / _ \ | __|  / _ \ | '__|| __|
|  _ <  |  __/ | |_  | (_) || |   | |_
|_| \_\  \___|  \__|  \___/ |_|    \__|
 .  .  .  one  message  in,  one  reply  out  [v` + version + `]
`
	grad, _ := colorgrad.NewGradient().
		HtmlColors("#1115f0ff", "#fdfdfdff").
		Build()

	lines := strings.Split(banner, "\n")

	// Find max line length for gradient spread
	maxLen := 0
	for _, line := range lines {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}

	colors := grad.Colors(uint(maxLen))
	var coloredBanner strings.Builder

	for _, line := range lines {
		for i, ch := range line {
			r, g, b, _ := colors[i].RGBA255()
			coloredBanner.WriteString(fmt.Sprintf("\x1b[38;2;%d;%d;%dm%c", r, g, b, ch))
		}
		coloredBanner.WriteString("\x1b[0m\n")
	}

	return coloredBanner.String()
}

func run(ctx context.Context, c *cli.Command) error {
	cfg := config.NewConfiguration(c)
	core.InitLogger(cfg.Bot.Verbose)
	defer zap.L().Sync()

	if cfg.Bot.Verbose {
		cfg.PrintConfig()
	}

	var sessions core.ConversationStore
	if cfg.Redis.URL != "" {
		rs, err := session.NewRedisStore(ctx, cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		zap.S().Infow("Using redis conversation store", "url", cfg.Redis.URL)
		sessions = rs
	} else {
		sessions = session.NewMemoryStore(cfg.Engine.SessionDepth)
	}

	facts := memory.NewFacts()

	registry := ptools.NewToolRegistry([]ptools.Tool{})
	retorttools.RegisterNativeTools(registry, facts, *cfg.Tools)
	executor := retorttools.NewExecutor(registry)
	zap.S().Infow("Tools registered", "tools", executor.Available())

	provider := llm.NewPollyProvider(*cfg.API)

	hist := history.NewStore(cfg.History.Capacity)
	hist.StartSweeper(ctx)

	limiter := ratelimit.NewLimiter(cfg.RateLimit.Window, cfg.RateLimit.Limit)

	thinking := ""
	if cfg.Model.Thinking {
		thinking = "medium"
	}

	eng := engine.New(provider, executor, hist, sessions, limiter,
		[]core.ContextProvider{facts},
		engine.Options{
			Model:           cfg.Model.Model,
			MaxTokens:       cfg.Model.MaxTokens,
			Temperature:     cfg.Model.Temperature,
			Timeout:         cfg.API.Timeout,
			BaseURL:         cfg.API.OpenAIURL,
			ThinkingEffort:  thinking,
			MaxRounds:       cfg.Engine.MaxRounds,
			ContextBudget:   cfg.Engine.ContextBudget,
			FollowUpRetries: cfg.Engine.FollowUpRetries,
			RetryBase:       cfg.Engine.RetryBase,
			SessionDepth:    cfg.Engine.SessionDepth,
		})

	return console(ctx, cfg, eng, hist, sessions)
}

// console reads lines from stdin and replies on stdout. Each line is one
// inbound message from the console user.
func console(ctx context.Context, cfg *config.Configuration, eng *engine.Engine, hist *history.Store, sessions core.ConversationStore) error {
	const user = "console"

	zap.S().Infow("Ready", "model", cfg.Model.Model, "name", cfg.Bot.Name)
	fmt.Printf("type a message, /history, /stats, /clear, or /quit\n")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Printf("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/clear":
			hist.Clear(user)
			if err := sessions.Clear(ctx, user); err != nil {
				zap.S().Warnw("Clear failed", "error", err)
			}
			fmt.Printf("%s: conversation cleared\n", cfg.Bot.Name)
			continue
		case "/stats":
			st := hist.Stats()
			fmt.Printf("%s: %d replies remembered for you, %d total across %d users\n",
				cfg.Bot.Name, hist.UserStats(user), st.Entries, st.Users)
			continue
		case "/history":
			exchanges, err := sessions.Recent(ctx, user, cfg.Engine.SessionDepth)
			if err != nil {
				fmt.Printf("%s: history unavailable: %v\n", cfg.Bot.Name, err)
				continue
			}
			for _, ex := range exchanges {
				fmt.Printf("[%s] %s: %s\n", ex.At.Format("15:04:05"), ex.UserName, ex.UserText)
				fmt.Printf("[%s] %s: %s\n", ex.At.Format("15:04:05"), cfg.Bot.Name, ex.BotText)
			}
			continue
		}

		reply, err := eng.GenerateReply(ctx, user, line, cfg.Bot.Prompt)
		if err != nil {
			var rle *core.RateLimitedError
			var busy *core.BusyError
			switch {
			case errors.As(err, &rle):
				fmt.Printf("%s: slow down, try again in %s\n", cfg.Bot.Name, rle.RetryAfter.Round(time.Second))
			case errors.As(err, &busy):
				fmt.Printf("%s: still working on your last message\n", cfg.Bot.Name)
			default:
				zap.S().Errorw("Reply failed", "error", err)
				fmt.Printf("%s: something went wrong: %v\n", cfg.Bot.Name, err)
			}
			continue
		}

		fmt.Printf("%s: %s\n", cfg.Bot.Name, reply)
	}
}
