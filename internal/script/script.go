// Package script defines the Automatix script format: a YAML document
// describing systems, variables, and a pipeline of local, remote, and
// manual commands.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Script is a parsed Automatix script.
type Script struct {
	Name     string
	Systems  map[string]string // logical name -> host[:port]
	Vars     map[string]string
	Always   []Command
	Pipeline []Command
	Cleanup  []Command
}

// rawScript mirrors the YAML document structure before entry parsing.
type rawScript struct {
	Name     string              `yaml:"name"`
	Systems  map[string]string   `yaml:"systems"`
	Vars     map[string]string   `yaml:"vars"`
	Always   []map[string]string `yaml:"always"`
	Pipeline []map[string]string `yaml:"pipeline"`
	Cleanup  []map[string]string `yaml:"cleanup"`
}

// Load reads a script YAML file from path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("script: %s: %w", path, err)
	}
	return s, nil
}

// Find locates a script by name in the given directories. A name with a
// path separator or .yaml suffix is treated as a direct path.
func Find(name string, dirs []string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) || strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("script: %s: %w", name, err)
		}
		return name, nil
	}
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			p := filepath.Join(dir, name+ext)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("script: %q not found in %s", name, strings.Join(dirs, ", "))
}

// List returns the paths of all scripts found in the given directories,
// in directory order then filename order. When the same script name
// appears in several directories the first one wins, matching Find.
func List(dirs []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("script: list %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ext)
			if !seen[name] {
				seen[name] = true
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}
	return paths, nil
}

// Parse unmarshals YAML bytes into a validated Script.
func Parse(data []byte) (*Script, error) {
	var raw rawScript
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	s := &Script{
		Name:    raw.Name,
		Systems: raw.Systems,
		Vars:    raw.Vars,
	}
	if s.Systems == nil {
		s.Systems = map[string]string{}
	}
	if s.Vars == nil {
		s.Vars = map[string]string{}
	}

	var err error
	if s.Always, err = parseEntries("always", raw.Always); err != nil {
		return nil, err
	}
	if s.Pipeline, err = parseEntries("pipeline", raw.Pipeline); err != nil {
		return nil, err
	}
	if s.Cleanup, err = parseEntries("cleanup", raw.Cleanup); err != nil {
		return nil, err
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// parseEntries converts raw single-key maps into Commands.
func parseEntries(phase string, entries []map[string]string) ([]Command, error) {
	cmds := make([]Command, 0, len(entries))
	for i, entry := range entries {
		if len(entry) != 1 {
			return nil, fmt.Errorf("%s[%d]: each entry must have exactly one key, got %d", phase, i, len(entry))
		}
		for key, body := range entry {
			cmd, err := ParseKey(key)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", phase, i, err)
			}
			cmd.Body = body
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

// validate checks cross-references between pipeline entries, systems, and vars.
func (s *Script) validate() error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "name is required")
	}
	if len(s.Pipeline) == 0 {
		errs = append(errs, "at least one pipeline entry is required")
	}
	for _, phase := range []struct {
		name string
		cmds []Command
	}{{"always", s.Always}, {"pipeline", s.Pipeline}, {"cleanup", s.Cleanup}} {
		for i, cmd := range phase.cmds {
			if cmd.System != "" {
				if _, ok := s.Systems[cmd.System]; !ok {
					errs = append(errs, fmt.Sprintf("%s[%d]: unknown system %q", phase.name, i, cmd.System))
				}
			}
			if cmd.AssignTo != "" {
				if _, ok := s.Vars[cmd.AssignTo]; ok {
					errs = append(errs, fmt.Sprintf("%s[%d]: assignment %q collides with a declared var", phase.name, i, cmd.AssignTo))
				}
			}
			if strings.TrimSpace(cmd.Body) == "" {
				errs = append(errs, fmt.Sprintf("%s[%d]: empty command body", phase.name, i))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
