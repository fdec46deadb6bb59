package script

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBatchCSV(t *testing.T) {
	path := writeCSV(t, "customer,system_web\nacme,web-acme.example.com\nglobex,web-globex.example.com\n")

	items, err := LoadBatchCSV(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0]["customer"] != "acme" {
		t.Errorf("items[0][customer] = %q, want acme", items[0]["customer"])
	}
	if items[1]["system_web"] != "web-globex.example.com" {
		t.Errorf("items[1][system_web] = %q", items[1]["system_web"])
	}
}

func TestLoadBatchCSV_Invalid(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		path := writeCSV(t, "customer\n")
		if _, err := LoadBatchCSV(path); err == nil {
			t.Error("expected error for header-only file")
		}
	})

	t.Run("empty column name", func(t *testing.T) {
		path := writeCSV(t, "customer,\nacme,x\n")
		if _, err := LoadBatchCSV(path); err == nil {
			t.Error("expected error for empty column name")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadBatchCSV("/does/not/exist.csv"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestBatchItemApply(t *testing.T) {
	base := &Script{
		Name:    "provision",
		Systems: map[string]string{"web": "default.example.com"},
		Vars:    map[string]string{"tier": "basic"},
		Pipeline: []Command{
			{Action: ActionLocal, Body: "echo {customer}"},
		},
	}

	item := BatchItem{
		"customer":   "acme",
		"tier":       "premium",
		"system_web": "web-acme.example.com",
	}

	s := item.Apply(base)

	if s.Systems["web"] != "web-acme.example.com" {
		t.Errorf("Systems[web] = %q, want the item override", s.Systems["web"])
	}
	if s.Vars["tier"] != "premium" {
		t.Errorf("Vars[tier] = %q, want premium", s.Vars["tier"])
	}
	if s.Vars["customer"] != "acme" {
		t.Errorf("Vars[customer] = %q, want acme", s.Vars["customer"])
	}

	// The base script must not be mutated.
	if base.Systems["web"] != "default.example.com" {
		t.Error("Apply mutated the base script's systems")
	}
	if base.Vars["tier"] != "basic" {
		t.Error("Apply mutated the base script's vars")
	}

	// A system_ column with no matching system becomes a plain var.
	s2 := BatchItem{"system_db": "db1"}.Apply(base)
	if s2.Vars["system_db"] != "db1" {
		t.Errorf("unmatched system_ column should land in vars, got %q", s2.Vars["system_db"])
	}
}
