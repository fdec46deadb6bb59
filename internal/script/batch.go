package script

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// BatchItem is one CSV row of variable overrides for a batch run.
type BatchItem map[string]string

// LoadBatchCSV reads a vars file: the header row names variables, each
// following row is one batch item. A column named system_<name> overrides
// that system's host for the item.
func LoadBatchCSV(path string) ([]BatchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("script: open vars file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("script: parse vars file %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("script: vars file %s: need a header row and at least one item", path)
	}

	header := records[0]
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
		if header[i] == "" {
			return nil, fmt.Errorf("script: vars file %s: empty column name at position %d", path, i+1)
		}
	}

	items := make([]BatchItem, 0, len(records)-1)
	for _, rec := range records[1:] {
		item := make(BatchItem, len(header))
		for i, col := range header {
			if i < len(rec) {
				item[col] = rec[i]
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Apply overlays the batch item onto a copy of the script: system_<name>
// columns replace system hosts, everything else replaces or adds vars.
func (b BatchItem) Apply(s *Script) *Script {
	out := &Script{
		Name:     s.Name,
		Systems:  make(map[string]string, len(s.Systems)),
		Vars:     make(map[string]string, len(s.Vars)+len(b)),
		Always:   s.Always,
		Pipeline: s.Pipeline,
		Cleanup:  s.Cleanup,
	}
	for k, v := range s.Systems {
		out.Systems[k] = v
	}
	for k, v := range s.Vars {
		out.Vars[k] = v
	}
	for k, v := range b {
		if name, ok := strings.CutPrefix(k, "system_"); ok {
			if _, exists := out.Systems[name]; exists {
				out.Systems[name] = v
				continue
			}
		}
		out.Vars[k] = v
	}
	return out
}
