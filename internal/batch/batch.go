// Package batch drives CSV-based batch and parallel processing: one run
// of the same script per CSV row.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/automatix-sh/automatix/internal/runner"
	"github.com/automatix-sh/automatix/internal/script"
)

// RunFunc executes one batch item (1-based index) and returns its result.
type RunFunc func(ctx context.Context, item script.BatchItem, index int) (*runner.Result, error)

// ItemResult pairs a batch item index with its run outcome.
type ItemResult struct {
	Index  int
	Result *runner.Result
	Err    error
}

// Options configures batch execution.
type Options struct {
	Parallel    bool
	MaxParallel int
	Out         io.Writer // nil discards
}

// Run executes all items. Sequential mode stops on operator abort and
// carries on after per-item failures; parallel mode runs items through a
// bounded worker pool. Results come back ordered by item index.
func Run(ctx context.Context, items []script.BatchItem, opts Options, fn RunFunc) ([]ItemResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("batch: no items")
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Parallel {
		return runParallel(ctx, items, opts, fn)
	}
	return runSequential(ctx, items, opts, fn)
}

func runSequential(ctx context.Context, items []script.BatchItem, opts Options, fn RunFunc) ([]ItemResult, error) {
	results := make([]ItemResult, 0, len(items))
	for i, item := range items {
		idx := i + 1
		fmt.Fprintf(opts.Out, "batch item %d/%d\n", idx, len(items))
		res, err := fn(ctx, item, idx)
		results = append(results, ItemResult{Index: idx, Result: res, Err: err})
		if errors.Is(err, runner.ErrAborted) {
			fmt.Fprintf(opts.Out, "batch aborted at item %d\n", idx)
			return results, err
		}
		if err != nil {
			fmt.Fprintf(opts.Out, "batch item %d failed: %v; continuing with next item\n", idx, err)
		}
	}
	return results, nil
}

func runParallel(ctx context.Context, items []script.BatchItem, opts Options, fn RunFunc) ([]ItemResult, error) {
	workers := opts.MaxParallel
	if workers <= 0 {
		workers = 4
	}
	if workers > len(items) {
		workers = len(items)
	}

	type job struct {
		item  script.BatchItem
		index int
	}

	jobs := make(chan job)
	results := make([]ItemResult, len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res, err := fn(ctx, j.item, j.index)
				results[j.index-1] = ItemResult{Index: j.index, Result: res, Err: err}
			}
		}()
	}

	for i, item := range items {
		select {
		case <-ctx.Done():
			// Unscheduled items are recorded as cancelled.
			for k := i; k < len(items); k++ {
				results[k] = ItemResult{Index: k + 1, Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return results, ctx.Err()
		case jobs <- job{item: item, index: i + 1}:
		}
	}
	close(jobs)
	wg.Wait()
	return results, nil
}

// Summary formats a per-item outcome table after a batch finishes.
func Summary(results []ItemResult, out io.Writer) (failed int) {
	for _, r := range results {
		switch {
		case r.Err != nil && r.Result == nil:
			fmt.Fprintf(out, "item %d: error: %v\n", r.Index, r.Err)
			failed++
		case r.Result != nil && r.Result.ExitCode != 0:
			fmt.Fprintf(out, "item %d: %s (run %s, exit %d)\n", r.Index, r.Result.Status, r.Result.RunID, r.Result.ExitCode)
			failed++
		case r.Result != nil:
			fmt.Fprintf(out, "item %d: %s (run %s)\n", r.Index, r.Result.Status, r.Result.RunID)
		}
	}
	return failed
}
