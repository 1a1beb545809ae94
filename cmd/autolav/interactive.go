package main

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"autolav/cmd/autolav/ui"
	"autolav/internal/collect"
	"autolav/internal/export"
	"autolav/internal/ux"
)

// runInteractive starts the full-screen collection UI.
func runInteractive() error {
	cfg, client, gate, err := loadClient()
	if err != nil {
		return err
	}

	forms := ux.NewFormStore(filepath.Dir(configPath))
	if err := forms.Load(); err != nil {
		return err
	}

	runner := collect.NewRunner(client, gate, cfg.PacingDelayDuration(), logger)
	sink := export.NewFileSink(cfg.ReportsDir, logger)

	model := ui.New(ui.Deps{
		Client: client,
		Gate:   gate,
		Runner: runner,
		Forms:  forms,
		Sink:   sink,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive UI failed: %w", err)
	}
	return nil
}
