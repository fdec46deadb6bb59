package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/db"
	"github.com/automatix-sh/automatix/internal/models"
)

func newLogsCmd() *cobra.Command {
	var (
		configPath string
		follow     bool
		raw        bool
	)

	cmd := &cobra.Command{
		Use:   "logs <run-id>",
		Short: "Show captured command output for a run",
		Long:  "Displays the stdout/stderr chunks recorded for a run. --follow polls for new output while the run is still in progress.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, configPath, args[0], follow, raw)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "tail mode, poll for new output every 2s")
	cmd.Flags().BoolVar(&raw, "raw", false, "print content without the phase/step prefix")
	return cmd
}

func runLogs(cmd *cobra.Command, configPath, runID string, follow, raw bool) error {
	_, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	logs, err := db.RunLogs(gormDB, runID)
	if err != nil {
		return err
	}
	if len(logs) == 0 && !follow {
		fmt.Fprintln(out, "No output recorded for this run.")
		return nil
	}

	var lastID uint
	for _, entry := range logs {
		printLogEntry(out, entry, raw)
		lastID = entry.ID
	}

	if !follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var entries []models.CommandLog
			err := gormDB.Where("run_id = ? AND id > ?", runID, lastID).
				Order("id ASC").Find(&entries).Error
			if err != nil {
				fmt.Fprintf(out, "poll error: %v\n", err)
				continue
			}
			for _, entry := range entries {
				printLogEntry(out, entry, raw)
				lastID = entry.ID
			}
			if len(entries) == 0 && runFinished(gormDB, runID) {
				return nil
			}
		}
	}
}

func printLogEntry(out io.Writer, entry models.CommandLog, raw bool) {
	if raw {
		fmt.Fprint(out, entry.Content)
		return
	}
	prefix := fmt.Sprintf("[%s %d %s]", entry.Phase, entry.StepIndex, entry.Direction)
	for _, line := range strings.Split(strings.TrimRight(entry.Content, "\n"), "\n") {
		fmt.Fprintf(out, "%s %s\n", prefix, line)
	}
}

// runFinished reports whether the run has left the running state, ending
// follow mode.
func runFinished(gormDB *gorm.DB, runID string) bool {
	var run models.Run
	if err := gormDB.Select("status").Where("id = ?", runID).First(&run).Error; err != nil {
		return false
	}
	return run.Status != models.RunStatusRunning
}
