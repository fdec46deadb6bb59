// Package runner executes Automatix scripts: phases, step selection,
// interactive stepping, failure handling, and run recording.
package runner

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/automatix-sh/automatix/internal/models"
	"github.com/automatix-sh/automatix/internal/script"
	"gorm.io/gorm"
)

// ErrAborted is returned when the operator aborts a run.
var ErrAborted = errors.New("runner: aborted")

// errHalted stops the remaining steps of a run after an unrecoverable
// step failure; the run finishes as failed, not aborted.
var errHalted = errors.New("runner: halted on failure")

// Run triggers recorded on the run row.
const (
	TriggerManual   = "manual"
	TriggerBatch    = "batch"
	TriggerSchedule = "schedule"
)

// RemoteExecutor runs commands and transfers files on one remote system.
// Implemented by remote.Client; tests inject fakes.
type RemoteExecutor interface {
	Run(ctx context.Context, command string, stdout, stderr io.Writer) (int, error)
	Put(localPath, remotePath string) error
	Get(remotePath, localPath string) error
	Close()
}

// DialFunc connects to a system host.
type DialFunc func(host string) (RemoteExecutor, error)

// Options configures a run.
type Options struct {
	Interactive bool
	Force       bool
	Selection   script.Selection
	StepTimeout time.Duration
	Trigger     string
	BatchIndex  int
	BatchTotal  int
	Out         io.Writer // console output; nil discards
	In          io.Reader // console input for prompts
	Dial        DialFunc  // required when the script has remote steps
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Script   string
	Status   string
	ExitCode int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Runner executes one script against one variable set.
type Runner struct {
	db      *gorm.DB
	script  *script.Script
	vars    map[string]string
	opts    Options
	prompt  prompter
	remotes map[string]RemoteExecutor
}

// New prepares a Runner: collects variables and picks the prompter.
func New(db *gorm.DB, s *script.Script, opts Options) (*Runner, error) {
	vars, err := script.CollectVars(s)
	if err != nil {
		return nil, err
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Trigger == "" {
		opts.Trigger = TriggerManual
	}
	if opts.StepTimeout == 0 {
		opts.StepTimeout = 1 * time.Hour
	}

	var p prompter
	if opts.In != nil && (opts.Interactive || !opts.Force) {
		p = newConsolePrompter(opts.In, opts.Out)
	} else {
		p = autoPrompter{force: opts.Force}
	}

	return &Runner{
		db:      db,
		script:  s,
		vars:    vars,
		opts:    opts,
		prompt:  p,
		remotes: map[string]RemoteExecutor{},
	}, nil
}

// SetVar overrides a variable before the run starts (--var flags, batch
// rows, scheduled extra vars).
func (r *Runner) SetVar(name, value string) {
	r.vars[name] = value
}

// GenerateRunID creates a unique run ID in run-xxxxxxxx format (8-char hex).
func GenerateRunID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("runner: generate run ID: %w", err)
	}
	return "run-" + hex.EncodeToString(b), nil
}

// Run executes the script. The returned Result is valid even when err is
// non-nil; err is ErrAborted for operator aborts.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID, err := GenerateRunID()
	if err != nil {
		return nil, err
	}
	started := time.Now()

	res := &Result{RunID: runID, Script: r.script.Name, Status: models.RunStatusRunning}
	r.recordRun(res, started, nil)
	defer func() {
		for _, c := range r.remotes {
			c.Close()
		}
	}()

	fmt.Fprintf(r.opts.Out, "run %s: %s\n", runID, r.script.Name)

	var aborted, halted bool
	mark := func(err error) {
		switch {
		case err == nil:
		case errors.Is(err, ErrAborted):
			aborted = true
		default:
			halted = true
		}
	}

	mark(r.runPhase(ctx, runID, "always", r.script.Always, script.Selection{}, res))
	if !aborted && !halted {
		mark(r.runPhase(ctx, runID, "pipeline", r.script.Pipeline, r.opts.Selection, res))
	}
	// Cleanup always runs, even after failure or abort.
	mark(r.runPhase(ctx, runID, "cleanup", r.script.Cleanup, script.Selection{}, res))

	res.Duration = time.Since(started)
	finished := time.Now()
	switch {
	case aborted:
		res.Status = models.RunStatusAborted
		res.ExitCode = 130
	case res.Failed > 0:
		res.Status = models.RunStatusFailed
		res.ExitCode = 1
	default:
		res.Status = models.RunStatusSuccess
		res.ExitCode = 0
	}
	r.recordRun(res, started, &finished)

	fmt.Fprintf(r.opts.Out, "run %s: %s in %s\n", runID, res.Status, res.Duration.Round(time.Millisecond))
	if aborted {
		return res, ErrAborted
	}
	return res, nil
}

// runPhase executes the commands of one phase. It returns ErrAborted on
// operator abort and the first hard execution error otherwise; individual
// step failures are counted in res, not returned.
func (r *Runner) runPhase(ctx context.Context, runID, phase string, cmds []script.Command, sel script.Selection, res *Result) error {
	for i, cmd := range cmds {
		if ctx.Err() != nil {
			return ErrAborted
		}
		idx := i + 1
		if !sel.Includes(idx) {
			continue
		}
		if cmd.Condition != "" && !script.ConditionMet(cmd.Condition, r.vars) {
			fmt.Fprintf(r.opts.Out, "[%s %d] skipped (condition %q not met)\n", phase, idx, cmd.Condition)
			r.recordStep(runID, phase, idx, cmd.String(), models.StepOutcomeSkipped, 0, 0, 0, time.Now())
			res.Skipped++
			continue
		}

		if r.opts.Interactive {
			d, err := r.prompt.BeforeStep(fmt.Sprintf("[%s %d] %s", phase, idx, cmd.String()))
			if err != nil {
				return err
			}
			switch d {
			case decisionSkip:
				r.recordStep(runID, phase, idx, cmd.String(), models.StepOutcomeSkipped, 0, 0, 0, time.Now())
				res.Skipped++
				continue
			case decisionAbort:
				return ErrAborted
			}
		}

		if err := r.runStep(ctx, runID, phase, idx, cmd, res); err != nil {
			return err
		}
	}
	return nil
}

// runStep executes one command with retry/proceed/abort handling.
func (r *Runner) runStep(ctx context.Context, runID, phase string, idx int, cmd script.Command, res *Result) error {
	label := cmd.String()
	started := time.Now()
	attempts := 0

	if cmd.Action == script.ActionManual {
		rendered, err := script.Render(cmd.Body, r.vars)
		if err != nil {
			return r.failStep(runID, phase, idx, label, res, started, 1, err)
		}
		if r.opts.Force {
			fmt.Fprintf(r.opts.Out, "[%s %d] manual step skipped (force): %s\n", phase, idx, rendered)
			r.recordStep(runID, phase, idx, label, models.StepOutcomeSkipped, 0, 1, time.Since(started).Milliseconds(), started)
			res.Skipped++
			return nil
		}
		d, err := r.prompt.Confirm(rendered)
		if err != nil {
			return err
		}
		if d == decisionAbort {
			r.recordStep(runID, phase, idx, label, models.StepOutcomeSkipped, 0, 1, time.Since(started).Milliseconds(), started)
			return ErrAborted
		}
		r.recordStep(runID, phase, idx, label, models.StepOutcomeOK, 0, 1, time.Since(started).Milliseconds(), started)
		return nil
	}

	for {
		attempts++
		exitCode, err := r.executeOnce(ctx, runID, phase, idx, cmd)
		if err != nil {
			// An interrupt cancels the run context; the step timeout only
			// cancels the step context and stays an ordinary failure.
			if ctx.Err() != nil {
				fmt.Fprintf(r.opts.Out, "[%s %d] interrupted\n", phase, idx)
				r.recordStep(runID, phase, idx, label, models.StepOutcomeFailed, -1, attempts, time.Since(started).Milliseconds(), started)
				return ErrAborted
			}
			return r.failStep(runID, phase, idx, label, res, started, attempts, err)
		}
		if exitCode == 0 {
			r.recordStep(runID, phase, idx, label, models.StepOutcomeOK, 0, attempts, time.Since(started).Milliseconds(), started)
			return nil
		}

		d, perr := r.prompt.OnFailure(fmt.Sprintf("[%s %d] %s", phase, idx, label), exitCode)
		if perr != nil {
			return perr
		}
		switch d {
		case decisionRetry:
			continue
		case decisionProceed:
			fmt.Fprintf(r.opts.Out, "[%s %d] proceeding past failure (exit %d)\n", phase, idx, exitCode)
			r.recordStep(runID, phase, idx, label, models.StepOutcomeFailed, exitCode, attempts, time.Since(started).Milliseconds(), started)
			res.Failed++
			return nil
		case decisionHalt:
			r.recordStep(runID, phase, idx, label, models.StepOutcomeFailed, exitCode, attempts, time.Since(started).Milliseconds(), started)
			res.Failed++
			return errHalted
		default:
			r.recordStep(runID, phase, idx, label, models.StepOutcomeFailed, exitCode, attempts, time.Since(started).Milliseconds(), started)
			res.Failed++
			return ErrAborted
		}
	}
}

// failStep records a hard execution error (render failure, unreachable
// host, timeout) as a failed step and aborts unless force mode is on.
func (r *Runner) failStep(runID, phase string, idx int, label string, res *Result, started time.Time, attempts int, cause error) error {
	fmt.Fprintf(r.opts.Out, "[%s %d] error: %v\n", phase, idx, cause)
	r.recordStep(runID, phase, idx, label, models.StepOutcomeFailed, -1, attempts, time.Since(started).Milliseconds(), started)
	res.Failed++
	if r.opts.Force {
		return nil
	}
	return errHalted
}

// executeOnce renders and runs a command once, streaming output to the
// console and the history store, and applying assignment capture.
func (r *Runner) executeOnce(ctx context.Context, runID, phase string, idx int, cmd script.Command) (int, error) {
	stepCtx, cancel := context.WithTimeout(ctx, r.opts.StepTimeout)
	defer cancel()

	switch cmd.Action {
	case script.ActionPut, script.ActionGet:
		body, err := script.Render(cmd.Body, r.vars)
		if err != nil {
			return -1, err
		}
		src, dst, err := script.Command{Action: cmd.Action, Body: body}.TransferSpec()
		if err != nil {
			return -1, err
		}
		client, err := r.remote(cmd.System)
		if err != nil {
			return -1, err
		}
		fmt.Fprintf(r.opts.Out, "[%s %d] %s@%s: %s -> %s\n", phase, idx, cmd.Action, cmd.System, src, dst)
		if cmd.Action == script.ActionPut {
			err = client.Put(src, dst)
		} else {
			err = client.Get(src, dst)
		}
		if err != nil {
			return -1, err
		}
		return 0, nil
	}

	command, err := script.Render(cmd.Body, r.vars)
	if err != nil {
		return -1, err
	}

	outWriter := newLogWriter(r.db, runID, phase, idx, "out")
	errWriter := newLogWriter(r.db, runID, phase, idx, "err")
	flushCtx, flushCancel := context.WithCancel(stepCtx)
	startFlusher(flushCtx, outWriter, DefaultFlushInterval)
	startFlusher(flushCtx, errWriter, DefaultFlushInterval)
	defer func() {
		flushCancel()
		outWriter.Close()
		errWriter.Close()
	}()

	var capture bytes.Buffer
	stdout := io.Writer(io.MultiWriter(outWriter, r.opts.Out))
	if cmd.AssignTo != "" {
		stdout = io.MultiWriter(outWriter, r.opts.Out, &capture)
	}
	stderr := io.MultiWriter(errWriter, r.opts.Out)

	var exitCode int
	switch cmd.Action {
	case script.ActionLocal:
		fmt.Fprintf(r.opts.Out, "[%s %d] local: %s\n", phase, idx, command)
		exitCode, err = runLocal(stepCtx, command, stdout, stderr)
	case script.ActionRemote:
		client, cerr := r.remote(cmd.System)
		if cerr != nil {
			return -1, cerr
		}
		fmt.Fprintf(r.opts.Out, "[%s %d] remote@%s: %s\n", phase, idx, cmd.System, command)
		exitCode, err = client.Run(stepCtx, command, stdout, stderr)
	default:
		return -1, fmt.Errorf("runner: unsupported action %q", cmd.Action)
	}
	if err != nil {
		return -1, err
	}

	if cmd.AssignTo != "" && exitCode == 0 {
		r.vars[cmd.AssignTo] = strings.TrimSpace(capture.String())
	}
	return exitCode, nil
}

// remote returns the cached connection for a system, dialing on first use.
func (r *Runner) remote(system string) (RemoteExecutor, error) {
	if c, ok := r.remotes[system]; ok {
		return c, nil
	}
	if r.opts.Dial == nil {
		return nil, fmt.Errorf("runner: no dialer configured for remote step on %q", system)
	}
	host, ok := r.script.Systems[system]
	if !ok {
		return nil, fmt.Errorf("runner: unknown system %q", system)
	}
	c, err := r.opts.Dial(host)
	if err != nil {
		return nil, err
	}
	r.remotes[system] = c
	return c, nil
}

// recordRun creates or updates the run row. A nil db is allowed for dry runs.
func (r *Runner) recordRun(res *Result, started time.Time, finished *time.Time) {
	if r.db == nil {
		return
	}
	run := models.Run{
		ID:         res.RunID,
		Script:     res.Script,
		Status:     res.Status,
		BatchIndex: r.opts.BatchIndex,
		BatchTotal: r.opts.BatchTotal,
		Trigger:    r.opts.Trigger,
		ExitCode:   res.ExitCode,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if finished == nil {
		if err := r.db.Create(&run).Error; err != nil {
			fmt.Fprintf(r.opts.Out, "warning: record run: %v\n", err)
		}
		return
	}
	if err := r.db.Model(&models.Run{}).Where("id = ?", res.RunID).
		Updates(map[string]interface{}{
			"status":      res.Status,
			"exit_code":   res.ExitCode,
			"finished_at": finished,
		}).Error; err != nil {
		fmt.Fprintf(r.opts.Out, "warning: update run: %v\n", err)
	}
}

// recordStep inserts a step result row. Best-effort.
func (r *Runner) recordStep(runID, phase string, idx int, command, outcome string, exitCode, attempts int, durationMs int64, started time.Time) {
	if r.db == nil {
		return
	}
	step := models.StepResult{
		RunID:      runID,
		Phase:      phase,
		StepIndex:  idx,
		Command:    command,
		Outcome:    outcome,
		ExitCode:   exitCode,
		Attempts:   attempts,
		DurationMs: durationMs,
		StartedAt:  started,
	}
	if err := r.db.Create(&step).Error; err != nil {
		fmt.Fprintf(r.opts.Out, "warning: record step: %v\n", err)
	}
}
