package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"autolav/internal/collect"
	"autolav/internal/export"
)

var (
	runUnits  string
	runStart  string
	runEnd    string
	runOutput string
)

// runCmd executes one collection run straight to a CSV file.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a collection and export the result as CSV",
	Long: `Collects weight data for the given units and date range in one
batched backend call, prints a per-unit summary, and writes the
flattened CSV report.

Example:
  autolav run --units 101,102,103 --start 2025-01-01 --end 2025-01-07`,
	RunE: runCollection,
}

func init() {
	runCmd.Flags().StringVar(&runUnits, "units", "", "unit IDs separated by comma, semicolon, or newline")
	runCmd.Flags().StringVar(&runStart, "start", "", "start date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runEnd, "end", "", "end date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output file path (default: reports dir with generated name)")
	_ = runCmd.MarkFlagRequired("units")
	_ = runCmd.MarkFlagRequired("start")
	_ = runCmd.MarkFlagRequired("end")
}

func runCollection(cmd *cobra.Command, args []string) error {
	cfg, client, gate, err := loadClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// Health and credential probes are independent; run them together.
	g, probeCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := client.Health(probeCtx)
		if err != nil {
			return fmt.Errorf("backend health check failed: %w", err)
		}
		logger.Info("backend reachable", zap.String("version", h.Version))
		return nil
	})
	g.Go(func() error {
		_, err := gate.Refresh(probeCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if !gate.Require() {
		return fmt.Errorf("backend has no portal credentials; run 'autolav auth login' first")
	}

	// No pacing for the one-shot mode; results are still reported one
	// at a time.
	runner := collect.NewRunner(client, gate, 0, logger)
	events, err := runner.Start(ctx, runUnits, collect.DateRange{Start: runStart, End: runEnd})
	if err != nil {
		return err
	}

	for ev := range events {
		switch ev.Type {
		case collect.EventDelivery:
			mark := "✓"
			detail := fmt.Sprintf("%s kg (%d days)", ev.Result.Total.StringFixed(2), len(ev.Result.Rows))
			if ev.Result.Failed() {
				mark = "✗"
				detail = ev.Result.Error
			}
			fmt.Printf("[%d/%d] %s unit %s: %s\n", ev.Current, ev.Total, mark, ev.Result.UnitID, detail)
		case collect.EventFailed:
			return fmt.Errorf("collection failed: %w", ev.Err)
		}
	}

	snap := runner.Snapshot()
	summary := collect.Summarize(snap.Results)

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Units: %d   Succeeded: %d   Failed: %d\n", summary.Units, summary.Succeeded, summary.Failed)
	fmt.Printf("Grand total: %s kg\n", summary.GrandTotal.StringFixed(2))
	fmt.Println(strings.Repeat("=", 60))

	data, err := export.Render(snap.Results)
	if err != nil {
		return err
	}

	if runOutput != "" {
		if err := os.MkdirAll(filepath.Dir(runOutput), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(runOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Println("Report saved to", runOutput)
		return nil
	}

	sink := export.NewFileSink(cfg.ReportsDir, logger)
	path, err := sink.Save(export.Filename(snap.Range, time.Now()), data)
	if err != nil {
		return err
	}
	fmt.Println("Report saved to", path)
	return nil
}
