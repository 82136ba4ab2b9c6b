// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/chat"
	"github.com/jeranaias/parley/internal/config"
	"github.com/jeranaias/parley/internal/registry"
	"github.com/jeranaias/parley/internal/storage"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// APP STATE
// =============================================================================

// App holds the wired-up application for one invocation. The model and
// session are mutable between turns (REPL commands switch them); a turn
// in flight is never shared.
type App struct {
	cfg        *config.Config
	store      *storage.Store
	registry   *registry.Registry
	dispatcher *chat.Dispatcher

	modelName string
	maxTokens int
	session   storage.Session
	firstUse  bool
	quiet     bool
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Run executes the command line and returns the process exit code.
func Run(argv []string) int {
	args, err := ParseArgs(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render(err.Error()))
		fmt.Fprintln(os.Stderr, "Run 'parley --help' for usage.")
		return 2
	}
	if args.Help {
		fmt.Print(Usage())
		return 0
	}

	if err := run(args); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render(err.Error()))
		return 1
	}
	return 0
}

func run(args Args) error {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	modelName := cfg.DefaultModel
	if args.Model != "" {
		modelName = args.Model
	}

	reg, err := registry.New(cfg.ModelConfigs())
	if err != nil {
		return err
	}
	m, err := reg.Lookup(modelName)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	// Checked before this invocation's session is created, so the hint
	// banner shows exactly once per database.
	first := firstUse(ctx, store)

	session, err := resolveSession(ctx, store, args.Session)
	if err != nil {
		return err
	}

	app := &App{
		cfg:        cfg,
		store:      store,
		registry:   reg,
		dispatcher: buildDispatcher(reg, cfg, config.LoadCredentials()),
		modelName:  m.Name,
		maxTokens:  m.MaxTokens,
		session:    session,
		firstUse:   first,
		quiet:      args.Quiet,
	}

	switch {
	case args.File != "":
		content, err := os.ReadFile(args.File)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args.File, err)
		}
		return app.askOnce(ctx, strings.TrimSpace(string(content)))
	case args.Question != "":
		return app.askOnce(ctx, args.Question)
	default:
		return app.repl(ctx)
	}
}

// resolveSession picks the session for this invocation: a named one when
// --session was given, otherwise a fresh one.
func resolveSession(ctx context.Context, store *storage.Store, name string) (storage.Session, error) {
	if name == "" {
		return store.CreateSession(ctx, "")
	}
	return store.FindSession(ctx, name)
}

// firstUse reports whether the database holds no session yet.
func firstUse(ctx context.Context, store *storage.Store) bool {
	_, err := store.LastSession(ctx)
	return errors.Is(err, storage.ErrSessionNotFound)
}

// buildDispatcher wires the three adapters. The cloud adapters retry
// transient connection failures; Ollama is local, so a failure there is
// immediately actionable and never retried. The shared limiter keeps
// rapid REPL turns from bursting into provider rate limits.
func buildDispatcher(reg *registry.Registry, cfg *config.Config, creds config.Credentials) *chat.Dispatcher {
	policy := backend.DefaultRetryPolicy()
	adapters := map[registry.Kind]backend.Adapter{
		registry.KindOpenAI:    backend.WithRetry(backend.NewOpenAIAdapter(creds.OpenAIKey), policy),
		registry.KindAnthropic: backend.WithRetry(backend.NewAnthropicAdapter(creds.AnthropicKey), policy),
		registry.KindOllama:    backend.NewOllamaAdapter(cfg.Ollama.URL),
	}
	limiter := rate.NewLimiter(rate.Every(time.Second), 4)
	return chat.New(reg, adapters).WithLimiter(limiter)
}

// =============================================================================
// ONE-OFF MODE
// =============================================================================

// askOnce runs a single turn against a fresh or resumed session and
// exits. Used by -q and -f.
func (app *App) askOnce(ctx context.Context, question string) error {
	if question == "" {
		return backend.ConfigError("question is empty")
	}
	return app.turn(ctx, question)
}

// =============================================================================
// TURNS
// =============================================================================

// turn streams one exchange to stdout. A terminal bell marks the end of
// the reply, matching long-running-answer habits.
func (app *App) turn(ctx context.Context, question string) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Println()
	fmt.Print(styles.Answer.Render("answer: "))

	_, err := app.dispatcher.Turn(turnCtx, app.store, app.session.ID, app.modelName, question, func(fragment string) {
		fmt.Print(fragment)
	})
	fmt.Print("\a\n")
	if err != nil {
		return err
	}
	return nil
}
