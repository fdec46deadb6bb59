package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "atx dev") {
		t.Errorf("expected output to contain 'atx dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "atx 1.0.0") {
		t.Errorf("expected output to contain 'atx 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Automatix") {
		t.Errorf("expected help output to contain 'Automatix', got: %s", out)
	}
	for _, sub := range []string{"run", "batch", "history", "schedule", "dashboard", "doctor"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestExecute_ExitCodes(t *testing.T) {
	newCmd := func(err error) *cobra.Command {
		return &cobra.Command{
			Use:           "test",
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE:          func(cmd *cobra.Command, args []string) error { return err },
		}
	}

	if code := execute(newCmd(nil)); code != 0 {
		t.Errorf("success exit code = %d, want 0", code)
	}
	if code := execute(newCmd(&exitError{code: 130, msg: "aborted"})); code != 130 {
		t.Errorf("abort exit code = %d, want 130", code)
	}
	if code := execute(newCmd(&exitError{code: 1, msg: "failed"})); code != 1 {
		t.Errorf("failure exit code = %d, want 1", code)
	}
	if code := execute(newCmd(errPlain)); code != 1 {
		t.Errorf("plain error exit code = %d, want 1", code)
	}
}

var errPlain = &plainError{}

type plainError struct{}

func (*plainError) Error() string { return "plain" }
