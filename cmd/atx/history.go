package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/db"
	"github.com/automatix-sh/automatix/internal/models"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		scriptName string
		status     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show run history",
		Long:  "Lists recent runs from the history store, or shows one run with its step results when a run ID is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistoryDetail(cmd, configPath, args[0])
			}
			return runHistoryList(cmd, configPath, db.RunFilter{
				Script: scriptName,
				Status: status,
				Limit:  limit,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	cmd.Flags().StringVar(&scriptName, "script", "", "filter by script name")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (running, success, failed, aborted)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func runHistoryList(cmd *cobra.Command, configPath string, filter db.RunFilter) error {
	_, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	runs, err := db.RecentRuns(gormDB, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	fmt.Fprintf(out, "%-12s %-20s %-8s %-5s %-8s %-19s %s\n",
		"RUN", "SCRIPT", "STATUS", "EXIT", "TRIGGER", "STARTED", "DURATION")
	for _, run := range runs {
		fmt.Fprintf(out, "%-12s %-20s %-8s %-5d %-8s %-19s %s\n",
			run.ID,
			truncate(run.Script, 20),
			run.Status,
			run.ExitCode,
			run.Trigger,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			formatRunDuration(run))
	}
	return nil
}

func runHistoryDetail(cmd *cobra.Command, configPath, runID string) error {
	_, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	run, err := db.GetRun(gormDB, runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Script:   %s\n", run.Script)
	fmt.Fprintf(out, "Status:   %s (exit %d)\n", run.Status, run.ExitCode)
	fmt.Fprintf(out, "Trigger:  %s\n", run.Trigger)
	if run.BatchTotal > 0 {
		fmt.Fprintf(out, "Batch:    item %d of %d\n", run.BatchIndex, run.BatchTotal)
	}
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Duration: %s\n", formatRunDuration(*run))

	if len(run.Steps) == 0 {
		fmt.Fprintln(out, "\nNo step results recorded.")
		return nil
	}

	fmt.Fprintln(out, "\nSteps:")
	for _, step := range run.Steps {
		fmt.Fprintf(out, "  [%s %d] %-7s %s", step.Phase, step.StepIndex, stepMarker(step), truncate(step.Command, 70))
		if step.Outcome == models.StepOutcomeFailed {
			fmt.Fprintf(out, " (exit %d, %d attempts)", step.ExitCode, step.Attempts)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func stepMarker(step models.StepResult) string {
	switch step.Outcome {
	case models.StepOutcomeOK:
		return "ok"
	case models.StepOutcomeFailed:
		return "FAILED"
	case models.StepOutcomeSkipped:
		return "skipped"
	default:
		return step.Outcome
	}
}
