package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"autolav/internal/config"
	"autolav/internal/ux"
)

// configCmd groups settings and saved-form operations.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect settings and saved form values",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration and saved form values",
	RunE:  configShow,
}

var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the saved form values",
	RunE:  configClear,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  configInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configClearCmd)
	configCmd.AddCommand(configInitCmd)
}

func configShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Println("Config file:", configPath)
	fmt.Println("Backend URL:", cfg.BaseURL)
	token := "(not set)"
	if cfg.APIToken != "" {
		token = "(set)"
	}
	fmt.Println("API token:  ", token)
	fmt.Println("Timeout:    ", cfg.RequestTimeoutDuration())
	fmt.Println("Pacing:     ", cfg.PacingDelayDuration())
	fmt.Println("Reports dir:", cfg.ReportsDir)

	store := ux.NewFormStore(filepath.Dir(configPath))
	if err := store.Load(); err != nil {
		return err
	}
	form := store.Get()
	if form == (ux.FormState{}) {
		fmt.Println("\nNo saved form values.")
		return nil
	}
	fmt.Println("\nSaved form values:")
	fmt.Println("  Units:", form.Units)
	fmt.Println("  Start:", form.StartDate)
	fmt.Println("  End:  ", form.EndDate)
	return nil
}

func configClear(cmd *cobra.Command, args []string) error {
	store := ux.NewFormStore(filepath.Dir(configPath))
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("Saved form values cleared.")
	return nil
}

func configInit(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return err
	}
	fmt.Println("Wrote", configPath)
	return nil
}
