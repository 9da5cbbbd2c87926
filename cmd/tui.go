package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/topspot/internal/shared"
	"github.com/desertthunder/topspot/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for the stored session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	session, err := r.currentSession()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	store := r.sessions
	model := ui.NewModel(ctx, ui.Options{
		Fetcher: r.aggregator(),
		Token:   session.Token(),
		User:    session.DisplayName(),
		Logout: func() error {
			r.logger.Info("logging out from TUI", "session", session.ID())
			return store.Delete(session.ID())
		},
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
