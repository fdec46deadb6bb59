package script

import (
	"fmt"
	"regexp"
	"strings"
)

// Action is the execution type of a pipeline entry.
type Action string

// Pipeline entry actions.
const (
	ActionLocal  Action = "local"  // run via the local shell
	ActionRemote Action = "remote" // run over SSH on a system
	ActionManual Action = "manual" // print a message and wait for confirmation
	ActionPut    Action = "put"    // upload a file to a system via SFTP
	ActionGet    Action = "get"    // download a file from a system via SFTP
)

// Command is a single parsed pipeline entry.
type Command struct {
	Action    Action
	System    string // target system for remote/put/get
	AssignTo  string // variable receiving trimmed stdout, empty if none
	Condition string // variable gating execution, empty if unconditional
	Body      string // command line, manual message, or transfer spec
}

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseKey parses an entry key of the form
//
//	[cond?][name=]action[@system]
//
// e.g. "local", "remote@web", "checksum=local", "has_backup?remote@db".
func ParseKey(key string) (Command, error) {
	var cmd Command
	rest := key

	if idx := strings.Index(rest, "?"); idx >= 0 {
		cmd.Condition = rest[:idx]
		rest = rest[idx+1:]
		if !nameRe.MatchString(cmd.Condition) {
			return Command{}, fmt.Errorf("parse key %q: invalid condition variable %q", key, cmd.Condition)
		}
	}

	if idx := strings.Index(rest, "="); idx >= 0 {
		cmd.AssignTo = rest[:idx]
		rest = rest[idx+1:]
		if !nameRe.MatchString(cmd.AssignTo) {
			return Command{}, fmt.Errorf("parse key %q: invalid assignment variable %q", key, cmd.AssignTo)
		}
	}

	action := rest
	if idx := strings.Index(rest, "@"); idx >= 0 {
		action = rest[:idx]
		cmd.System = rest[idx+1:]
		if cmd.System == "" {
			return Command{}, fmt.Errorf("parse key %q: missing system after @", key)
		}
	}

	switch Action(action) {
	case ActionLocal:
		cmd.Action = ActionLocal
		if cmd.System != "" {
			return Command{}, fmt.Errorf("parse key %q: local commands take no system", key)
		}
	case ActionRemote:
		cmd.Action = ActionRemote
		if cmd.System == "" {
			return Command{}, fmt.Errorf("parse key %q: remote requires @system", key)
		}
	case ActionManual:
		cmd.Action = ActionManual
		if cmd.System != "" || cmd.AssignTo != "" {
			return Command{}, fmt.Errorf("parse key %q: manual entries take no system or assignment", key)
		}
	case ActionPut, ActionGet:
		cmd.Action = Action(action)
		if cmd.System == "" {
			return Command{}, fmt.Errorf("parse key %q: %s requires @system", key, action)
		}
		if cmd.AssignTo != "" {
			return Command{}, fmt.Errorf("parse key %q: %s entries take no assignment", key, action)
		}
	default:
		return Command{}, fmt.Errorf("parse key %q: unknown action %q", key, action)
	}

	return cmd, nil
}

// TransferSpec splits a put/get body of the form "src -> dst".
func (c Command) TransferSpec() (src, dst string, err error) {
	parts := strings.SplitN(c.Body, "->", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("transfer spec %q: expected \"src -> dst\"", c.Body)
	}
	src = strings.TrimSpace(parts[0])
	dst = strings.TrimSpace(parts[1])
	if src == "" || dst == "" {
		return "", "", fmt.Errorf("transfer spec %q: empty source or destination", c.Body)
	}
	return src, dst, nil
}

// String renders the command back into key form for display and logging.
func (c Command) String() string {
	var b strings.Builder
	if c.Condition != "" {
		b.WriteString(c.Condition)
		b.WriteByte('?')
	}
	if c.AssignTo != "" {
		b.WriteString(c.AssignTo)
		b.WriteByte('=')
	}
	b.WriteString(string(c.Action))
	if c.System != "" {
		b.WriteByte('@')
		b.WriteString(c.System)
	}
	b.WriteString(": ")
	b.WriteString(c.Body)
	return b.String()
}
