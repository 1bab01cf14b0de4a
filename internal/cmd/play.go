package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/ui"
)

// PlayCmd runs the interactive story TUI
type PlayCmd struct {
	Dev   bool   `help:"Enable development mode (shows version info in the header)"`
	Style string `help:"Art style preselected for a new story"`
}

// Run executes the TUI
func (p *PlayCmd) Run(cli *CLI) error {
	ctx := context.Background()

	style, err := resolveStyle(p.Style, cli.settings)
	if err != nil {
		return err
	}

	container, state, err := resume(ctx, cli)
	if err != nil {
		// A failed finalize retry leaves the session usable from the TUI
		logging.Logger.Warn("Resume reported an error", "error", err)
		if container == nil {
			container, err = cli.open(ctx)
			if err != nil {
				return err
			}
		}
	}
	logging.Logger.Info("Starting itory TUI", "slot", cli.Slot, "state", state.String())

	program := tea.NewProgram(
		ui.NewPlayModel(container.Controller, domain.ArtStyle(style), p.Dev),
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	if _, err := program.Run(); err != nil {
		logging.Logger.Error("TUI program error", "error", err)
		return fmt.Errorf("error running program: %w", err)
	}

	logging.Logger.Info("TUI program exited normally")
	return nil
}
