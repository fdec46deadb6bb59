package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/automatix-sh/automatix/internal/batch"
	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/notify"
	"github.com/automatix-sh/automatix/internal/runner"
	"github.com/automatix-sh/automatix/internal/script"
)

func newBatchCmd() *cobra.Command {
	var (
		configPath  string
		varsFile    string
		parallel    bool
		maxParallel int
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "batch <script>",
		Short: "Run a script once per CSV row",
		Long:  "Runs the script for every row of a CSV vars file. Rows run sequentially by default, or concurrently with --parallel.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, configPath, args[0], batchOpts{
				varsFile:    varsFile,
				parallel:    parallel,
				maxParallel: maxParallel,
				force:       force,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	cmd.Flags().StringVar(&varsFile, "vars-file", "", "CSV file of per-item variable overrides (required)")
	cmd.Flags().BoolVarP(&parallel, "parallel", "p", false, "run items concurrently")
	cmd.Flags().IntVar(&maxParallel, "max-parallel", 0, "worker count for --parallel (default from config)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "proceed past failures without stopping the item")
	cmd.MarkFlagRequired("vars-file")
	return cmd
}

type batchOpts struct {
	varsFile    string
	parallel    bool
	maxParallel int
	force       bool
}

func runBatch(cmd *cobra.Command, configPath, name string, opts batchOpts) error {
	cfg, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	path, err := script.Find(name, cfg.ScriptDirs)
	if err != nil {
		return err
	}
	base, err := script.Load(path)
	if err != nil {
		return err
	}

	items, err := script.LoadBatchCSV(opts.varsFile)
	if err != nil {
		return err
	}

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	maxWorkers := opts.maxParallel
	if maxWorkers == 0 {
		maxWorkers = cfg.Defaults.MaxParallel
	}

	// Parallel items must not share a console; their output goes to the
	// history store only.
	itemOut := out
	if opts.parallel {
		itemOut = io.Discard
	}

	runItem := func(ctx context.Context, item script.BatchItem, index int) (*runner.Result, error) {
		s := item.Apply(base)
		r, err := runner.New(gormDB, s, runner.Options{
			Force:       opts.force,
			StepTimeout: cfg.Defaults.StepTimeout,
			Trigger:     runner.TriggerBatch,
			BatchIndex:  index,
			BatchTotal:  len(items),
			Out:         itemOut,
			Dial:        dialFunc(cfg, gormDB),
		})
		if err != nil {
			return nil, err
		}
		res, runErr := r.Run(ctx)
		notifyResult(notifiers, res, index, len(items))
		return res, runErr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(out, "batch: %s, %d items (%s)\n", base.Name, len(items), mode(opts.parallel))
	results, batchErr := batch.Run(ctx, items, batch.Options{
		Parallel:    opts.parallel,
		MaxParallel: maxWorkers,
		Out:         out,
	}, runItem)

	failed := batch.Summary(results, out)
	notify.Fanout(notifiers, batchSummary(base.Name, len(items), failed))

	if errors.Is(batchErr, runner.ErrAborted) || errors.Is(batchErr, context.Canceled) {
		return &exitError{code: 130, msg: "batch aborted"}
	}
	if batchErr != nil {
		return batchErr
	}
	if failed > 0 {
		return &exitError{code: 1, msg: fmt.Sprintf("%d of %d items failed", failed, len(items))}
	}
	return nil
}

func mode(parallel bool) string {
	if parallel {
		return "parallel"
	}
	return "sequential"
}

// batchSummary builds the end-of-batch notification.
func batchSummary(scriptName string, total, failed int) notify.Summary {
	status := "success"
	exitCode := 0
	if failed > 0 {
		status = "failed"
		exitCode = 1
	}
	return notify.Summary{
		RunID:    "batch",
		Script:   fmt.Sprintf("%s (%d items, %d failed)", scriptName, total, failed),
		Status:   status,
		ExitCode: exitCode,
	}
}
