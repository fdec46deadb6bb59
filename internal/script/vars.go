package script

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// filePrefix marks a variable whose value should be read from a file.
const filePrefix = "FILE_"

// CollectVars builds the initial variable map for a run: declared vars
// (with FILE_ indirection resolved) plus system_<name> entries for every
// declared system.
func CollectVars(s *Script) (map[string]string, error) {
	vars := make(map[string]string, len(s.Vars)+len(s.Systems))
	for k, v := range s.Vars {
		if strings.HasPrefix(v, filePrefix) {
			path := strings.TrimPrefix(v, filePrefix)
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("script: var %q: read %s: %w", k, path, err)
			}
			v = strings.TrimSpace(string(data))
		}
		vars[k] = v
	}
	for name, host := range s.Systems {
		vars["system_"+name] = host
	}
	return vars, nil
}

// Render substitutes {name} placeholders in s with values from vars.
// Doubled braces escape literals. Unknown placeholders are an error so a
// typo fails the step before anything executes.
func Render(s string, vars map[string]string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "{{"):
			b.WriteByte('{')
			i += 2
		case strings.HasPrefix(s[i:], "}}"):
			b.WriteByte('}')
			i += 2
		case s[i] == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("script: render %q: unterminated placeholder", s)
			}
			name := s[i+1 : i+end]
			val, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("script: render %q: unknown variable %q (known: %s)", s, name, knownNames(vars))
			}
			b.WriteString(val)
			i += end + 1
		case s[i] == '}':
			return "", fmt.Errorf("script: render %q: unmatched }", s)
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), nil
}

// ConditionMet reports whether a condition variable enables its command.
// Unset, empty, and "false" (any case) all disable it.
func ConditionMet(name string, vars map[string]string) bool {
	v, ok := vars[name]
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "false")
}

// knownNames returns a sorted comma-separated list of variable names for
// error messages.
func knownNames(vars map[string]string) string {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
