// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/parley/internal/backend"
	"github.com/jeranaias/parley/internal/storage"
	"github.com/jeranaias/parley/internal/ui/styles"
)

// =============================================================================
// REPL
// =============================================================================

// repl runs the interactive loop until the user quits.
func (app *App) repl(ctx context.Context) error {
	in := NewInput()
	defer in.Close()

	if !app.quiet {
		fmt.Println(styles.Info.Render(fmt.Sprintf(
			"Using model: %s. Context length: %d.", app.modelName, app.maxTokens)))
		if app.firstUse {
			fmt.Println(styles.Info.Render(
				`\help for help. \model to change model. \session to go to a previous session. Ctrl+C to quit.`))
		}
	}

	for {
		line, err := in.ReadLine(styles.Prompt.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, `\`) {
			if quit := app.handleCommand(ctx, line); quit {
				return nil
			}
			continue
		}

		if err := app.turn(ctx, line); err != nil {
			app.printTurnError(err)
		}
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

// handleCommand dispatches a backslash command. Returns true to quit.
func (app *App) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, arg := fields[0], ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch cmd {
	case `\help`, `\h`:
		app.printHelp()
	case `\model`:
		app.switchModel(arg)
	case `\session`:
		app.switchSession(ctx, arg)
	case `\sessions`:
		app.listSessions(ctx)
	case `\rename_session`:
		app.renameSession(ctx, arg)
	case `\quit`, `\q`:
		return true
	default:
		fmt.Println(styles.Error.Render("unknown command: " + cmd))
		fmt.Println(styles.Info.Render(`\help lists the available commands`))
	}
	return false
}

func (app *App) printHelp() {
	rows := []struct{ cmd, desc string }{
		{`\model NAME`, "switch model for following turns"},
		{`\session NAME`, "switch to a previous session by name"},
		{`\sessions`, "list sessions, newest first"},
		{`\rename_session NAME`, "rename the current session"},
		{`\quit`, "exit (also Ctrl+C / Ctrl+D)"},
	}
	for _, r := range rows {
		fmt.Printf("  %s  %s\n", styles.Command.Render(fmt.Sprintf("%-22s", r.cmd)), r.desc)
	}
}

// switchModel changes the model used by following turns. Without an
// argument it shows the current model and the available names.
func (app *App) switchModel(name string) {
	if name == "" {
		fmt.Println(styles.Info.Render("current model: " + app.modelName))
		fmt.Println(styles.Info.Render("available: " + strings.Join(app.registry.Names(), ", ")))
		return
	}

	m, err := app.registry.Lookup(name)
	if err != nil {
		fmt.Println(styles.Error.Render(err.Error()))
		return
	}
	app.modelName = m.Name
	app.maxTokens = m.MaxTokens
	fmt.Println(styles.Info.Render(fmt.Sprintf(
		"Using model: %s. Context length: %d.", app.modelName, app.maxTokens)))
}

// switchSession resumes a previous session by name, so its recent
// entries feed the prompt window again.
func (app *App) switchSession(ctx context.Context, name string) {
	if name == "" {
		fmt.Println(styles.Info.Render("current session: " + app.session.Name))
		return
	}

	sess, err := app.store.FindSession(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			fmt.Println(styles.Error.Render("no session named " + name))
		} else {
			fmt.Println(styles.Error.Render(err.Error()))
		}
		return
	}
	app.session = sess
	fmt.Println(styles.Info.Render("switched to session: " + sess.Name))
}

func (app *App) listSessions(ctx context.Context) {
	sessions, err := app.store.Sessions(ctx)
	if err != nil {
		fmt.Println(styles.Error.Render(err.Error()))
		return
	}
	for _, s := range sessions {
		marker := "  "
		if s.ID == app.session.ID {
			marker = "* "
		}
		fmt.Printf("%s%s  %s\n", marker, s.Name,
			styles.Info.Render(s.CreatedAt.Format("2006-01-02 15:04")))
	}
}

func (app *App) renameSession(ctx context.Context, newName string) {
	if newName == "" {
		fmt.Println(styles.Error.Render(`usage: \rename_session NAME`))
		return
	}
	if err := app.store.RenameSession(ctx, app.session.ID, newName); err != nil {
		fmt.Println(styles.Error.Render(err.Error()))
		return
	}
	app.session.Name = newName
	fmt.Println(styles.Info.Render("session renamed to: " + newName))
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

// printTurnError reports a failed turn without leaving the REPL. The
// message leads with what the user can do about it.
func (app *App) printTurnError(err error) {
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println(styles.Info.Render("(canceled)"))
	case backend.IsEmptyHistory(err):
		fmt.Println(styles.Error.Render("Your message is too long for this model's context window."))
	default:
		fmt.Println(styles.Error.Render(err.Error()))
	}
}
