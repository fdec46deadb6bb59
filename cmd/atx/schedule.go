package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/models"
	"github.com/automatix-sh/automatix/internal/runner"
	"github.com/automatix-sh/automatix/internal/schedule"
	"github.com/automatix-sh/automatix/internal/script"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage cron-scheduled script runs",
	}

	cmd.AddCommand(newScheduleAddCmd())
	cmd.AddCommand(newScheduleListCmd())
	cmd.AddCommand(newScheduleRemoveCmd())
	cmd.AddCommand(newScheduleDaemonCmd())
	return cmd
}

func newScheduleAddCmd() *cobra.Command {
	var (
		configPath string
		expr       string
		vars       []string
	)

	cmd := &cobra.Command{
		Use:   "add <script>",
		Short: "Schedule a script",
		Long:  "Registers a script to run on a 5-field cron expression. The schedule daemon executes due entries in force mode.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduleAdd(cmd, configPath, args[0], expr, vars)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	cmd.Flags().StringVarP(&expr, "cron", "e", "", "5-field cron expression, e.g. \"0 3 * * *\" (required)")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable override, key=value (repeatable)")
	cmd.MarkFlagRequired("cron")
	return cmd
}

func runScheduleAdd(cmd *cobra.Command, configPath, name, expr string, varPairs []string) error {
	cfg, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	// Fail early if the script cannot be found.
	if _, err := script.Find(name, cfg.ScriptDirs); err != nil {
		return err
	}

	extraVars := map[string]string{}
	for _, pair := range varPairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		extraVars[key] = value
	}

	entry, err := schedule.Add(gormDB, name, expr, extraVars)
	if err != nil {
		return err
	}

	next, err := schedule.Next(expr, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scheduled %s (entry %d), next run %s\n",
		name, entry.ID, next.Format("2006-01-02 15:04"))
	return nil
}

func newScheduleListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduleList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	return cmd
}

func runScheduleList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	entries, err := schedule.List(gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No scheduled scripts.")
		return nil
	}

	now := time.Now()
	fmt.Fprintf(out, "%-4s %-20s %-16s %-8s %-17s %s\n",
		"ID", "SCRIPT", "CRON", "ENABLED", "NEXT RUN", "LAST RUN")
	for _, entry := range entries {
		nextStr := "-"
		if entry.Enabled {
			if next, err := schedule.Next(entry.CronExpr, now); err == nil {
				nextStr = next.Format("2006-01-02 15:04")
			}
		}
		lastStr := "never"
		if entry.LastRunAt != nil {
			lastStr = entry.LastRunAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%-4d %-20s %-16s %-8t %-17s %s\n",
			entry.ID, truncate(entry.Script, 20), entry.CronExpr, entry.Enabled, nextStr, lastStr)
	}
	return nil
}

func newScheduleRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a scheduled script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduleRemove(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	return cmd
}

func runScheduleRemove(cmd *cobra.Command, configPath, idArg string) error {
	id, err := strconv.ParseUint(idArg, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", idArg)
	}

	_, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	if err := schedule.Remove(gormDB, uint(id)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed entry %d\n", id)
	return nil
}

func newScheduleDaemonCmd() *cobra.Command {
	var (
		configPath string
		tick       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the schedule daemon",
		Long:  "Polls the scheduled scripts table and runs entries whose cron time has come due. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduleDaemon(cmd, configPath, tick)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	cmd.Flags().DurationVar(&tick, "tick", 30*time.Second, "schedule poll interval")
	return cmd
}

func runScheduleDaemon(cmd *cobra.Command, configPath string, tick time.Duration) error {
	cfg, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	run := func(ctx context.Context, entry models.ScheduledScript, vars map[string]string) error {
		path, err := script.Find(entry.Script, cfg.ScriptDirs)
		if err != nil {
			return err
		}
		s, err := script.Load(path)
		if err != nil {
			return err
		}

		r, err := runner.New(gormDB, s, runner.Options{
			Force:       true,
			StepTimeout: cfg.Defaults.StepTimeout,
			Trigger:     runner.TriggerSchedule,
			Out:         out,
			Dial:        dialFunc(cfg, gormDB),
		})
		if err != nil {
			return err
		}
		for key, value := range vars {
			r.SetVar(key, value)
		}

		res, runErr := r.Run(ctx)
		notifyResult(notifiers, res, 0, 0)
		return runErr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(out, "Schedule daemon running (tick %s), Ctrl-C to stop\n", tick)
	err = schedule.Daemon(ctx, schedule.DaemonOpts{DB: gormDB, Run: run, Tick: tick})
	if err == context.Canceled {
		return nil
	}
	return err
}
