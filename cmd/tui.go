package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/ui"
	"github.com/urfave/cli/v3"
)

// TokensUI launches the interactive terminal UI for token management.
func (r *Runner) TokensUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireFlow(); err != nil {
		return err
	}
	if r.dbRepo == nil {
		return fmt.Errorf("%w: the TUI requires tokens.repository = \"database\"", shared.ErrInvalidConfig)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/spotauth-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.dbRepo, r.flow)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
