package notify

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CommandNotifier runs a shell command template for each summary, e.g.
// a desktop notification hook: "notify-send 'Automatix' '{{.Subject}}'".
type CommandNotifier struct {
	Command string
}

// Name implements Notifier.
func (c CommandNotifier) Name() string { return "command" }

// Notify renders the template and runs it through the shell.
func (c CommandNotifier) Notify(s Summary) error {
	if c.Command == "" {
		return nil
	}
	cmdStr := templateSummary(c.Command, s)
	cmd := exec.Command("sh", "-c", cmdStr)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run %q: %w: %s", cmdStr, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// templateSummary replaces placeholders in the command template with
// summary values.
func templateSummary(command string, s Summary) string {
	r := strings.NewReplacer(
		"{{.Subject}}", s.Subject(),
		"{{.Body}}", s.Body(),
		"{{.Script}}", s.Script,
		"{{.RunID}}", s.RunID,
		"{{.Status}}", s.Status,
		"{{.ExitCode}}", strconv.Itoa(s.ExitCode),
	)
	return r.Replace(command)
}
