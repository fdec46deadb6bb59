package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/automatix-sh/automatix/internal/config"
	"github.com/automatix-sh/automatix/internal/runner"
	"github.com/automatix-sh/automatix/internal/script"
)

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		interactive bool
		force       bool
		steps       string
		jump        int
		vars        []string
		secrets     []string
	)

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script",
		Long:  "Executes a script's always, pipeline, and cleanup phases, recording the run in the history store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, configPath, args[0], runOpts{
				interactive: interactive,
				force:       force,
				steps:       steps,
				jump:        jump,
				vars:        vars,
				secrets:     secrets,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "path to Automatix config file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "confirm each step before running it")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "proceed past failures and manual steps without asking")
	cmd.Flags().StringVarP(&steps, "steps", "s", "", "pipeline steps to run, e.g. \"3,5\" or \"e3,5\" to exclude")
	cmd.Flags().IntVarP(&jump, "jump", "j", 0, "start the pipeline at this step")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable override, key=value (repeatable)")
	cmd.Flags().StringArrayVar(&secrets, "secret", nil, "variable to prompt for with hidden input (repeatable)")
	return cmd
}

type runOpts struct {
	interactive bool
	force       bool
	steps       string
	jump        int
	vars        []string
	secrets     []string
}

func runRun(cmd *cobra.Command, configPath, name string, opts runOpts) error {
	if opts.interactive && opts.force {
		return fmt.Errorf("--interactive and --force are mutually exclusive")
	}

	cfg, gormDB, err := openStore(configPath)
	if err != nil {
		return err
	}

	path, err := script.Find(name, cfg.ScriptDirs)
	if err != nil {
		return err
	}
	s, err := script.Load(path)
	if err != nil {
		return err
	}

	sel, err := script.ParseSelection(opts.steps)
	if err != nil {
		return err
	}
	if opts.jump > 0 {
		sel = sel.WithJump(opts.jump)
	}

	out := cmd.OutOrStdout()

	r, err := runner.New(gormDB, s, runner.Options{
		Interactive: opts.interactive,
		Force:       opts.force,
		Selection:   sel,
		StepTimeout: cfg.Defaults.StepTimeout,
		Trigger:     runner.TriggerManual,
		Out:         out,
		In:          cmd.InOrStdin(),
		Dial:        dialFunc(cfg, gormDB),
	})
	if err != nil {
		return err
	}

	if err := applyVarFlags(r, opts.vars); err != nil {
		return err
	}
	if err := promptSecrets(r, opts.secrets, out); err != nil {
		return err
	}

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, runErr := r.Run(ctx)
	notifyResult(notifiers, res, 0, 0)

	if errors.Is(runErr, runner.ErrAborted) {
		return &exitError{code: 130, msg: "run aborted"}
	}
	if runErr != nil {
		return runErr
	}
	if res.ExitCode != 0 {
		return &exitError{code: res.ExitCode, msg: fmt.Sprintf("run %s %s", res.RunID, res.Status)}
	}
	return nil
}

// applyVarFlags parses --var key=value overrides.
func applyVarFlags(r *runner.Runner, pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		r.SetVar(key, value)
	}
	return nil
}

// promptSecrets reads hidden values for --secret variables. Requires a
// terminal; piping a secret in defeats the point of hidden input.
func promptSecrets(r *runner.Runner, names []string, out io.Writer) error {
	if len(names) == 0 {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("--secret requires an interactive terminal")
	}
	for _, name := range names {
		fmt.Fprintf(out, "value for %s: ", name)
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("read secret %s: %w", name, err)
		}
		r.SetVar(name, string(value))
	}
	return nil
}
