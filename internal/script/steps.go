package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Selection restricts which pipeline steps run. The zero value selects
// every step.
type Selection struct {
	steps   map[int]bool
	exclude bool
	jump    int
}

// ParseSelection parses a --steps value: a comma-separated list of 1-based
// step numbers, optionally prefixed with "e" to exclude instead of include.
func ParseSelection(spec string) (Selection, error) {
	if spec == "" {
		return Selection{}, nil
	}
	sel := Selection{steps: map[int]bool{}}
	if strings.HasPrefix(spec, "e") {
		sel.exclude = true
		spec = spec[1:]
	}
	for _, part := range strings.Split(spec, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return Selection{}, fmt.Errorf("script: steps %q: %q is not a positive step number", spec, part)
		}
		sel.steps[n] = true
	}
	return sel, nil
}

// WithJump returns a copy of the selection that also skips pipeline steps
// before step n.
func (s Selection) WithJump(n int) Selection {
	s.jump = n
	return s
}

// Includes reports whether 1-based pipeline step n should run.
func (s Selection) Includes(n int) bool {
	if s.jump > 0 && n < s.jump {
		return false
	}
	if s.steps == nil {
		return true
	}
	if s.exclude {
		return !s.steps[n]
	}
	return s.steps[n]
}
