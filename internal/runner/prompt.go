package runner

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Step decisions returned by prompts.
type decision int

const (
	decisionRun decision = iota
	decisionSkip
	decisionRetry
	decisionProceed
	decisionAbort
	decisionHalt // stop the run as failed, without operator involvement
)

// prompter asks the operator how to proceed. The default implementation
// reads stdin; batch and scheduled runs use autoPrompter instead.
type prompter interface {
	// BeforeStep is asked in interactive mode before each step.
	BeforeStep(label string) (decision, error)
	// OnFailure is asked when a step exits non-zero.
	OnFailure(label string, exitCode int) (decision, error)
	// Confirm is asked for manual steps.
	Confirm(message string) (decision, error)
}

// consolePrompter prompts on the runner's output writer and reads answers
// from the input reader.
type consolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsolePrompter(in io.Reader, out io.Writer) *consolePrompter {
	return &consolePrompter{in: bufio.NewReader(in), out: out}
}

func (p *consolePrompter) BeforeStep(label string) (decision, error) {
	for {
		fmt.Fprintf(p.out, "next: %s\n[R]un / [s]kip / [a]bort? ", label)
		answer, err := p.read()
		if err != nil {
			return decisionAbort, err
		}
		switch answer {
		case "", "r", "run":
			return decisionRun, nil
		case "s", "skip":
			return decisionSkip, nil
		case "a", "abort":
			return decisionAbort, nil
		}
	}
}

func (p *consolePrompter) OnFailure(label string, exitCode int) (decision, error) {
	for {
		fmt.Fprintf(p.out, "step failed (exit %d): %s\n[r]etry / [p]roceed / [A]bort? ", exitCode, label)
		answer, err := p.read()
		if err != nil {
			return decisionAbort, err
		}
		switch answer {
		case "r", "retry":
			return decisionRetry, nil
		case "p", "proceed":
			return decisionProceed, nil
		case "", "a", "abort":
			return decisionAbort, nil
		}
	}
}

func (p *consolePrompter) Confirm(message string) (decision, error) {
	fmt.Fprintf(p.out, "MANUAL: %s\npress ENTER to continue, or [a]bort: ", message)
	answer, err := p.read()
	if err != nil {
		return decisionAbort, err
	}
	if answer == "a" || answer == "abort" {
		return decisionAbort, nil
	}
	return decisionProceed, nil
}

func (p *consolePrompter) read() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("runner: read answer: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// autoPrompter answers without asking: force mode proceeds past failures
// and manual steps, non-force aborts on failure. Used for batch, parallel,
// and scheduled runs where no operator is present.
type autoPrompter struct {
	force bool
}

func (p autoPrompter) BeforeStep(string) (decision, error) {
	return decisionRun, nil
}

func (p autoPrompter) OnFailure(string, int) (decision, error) {
	if p.force {
		return decisionProceed, nil
	}
	return decisionHalt, nil
}

func (p autoPrompter) Confirm(string) (decision, error) {
	return decisionProceed, nil
}
