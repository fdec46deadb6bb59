package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/automatix-sh/automatix/internal/models"
)

// testDB creates an in-memory SQLite database with the schedule table.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.ScheduledScript{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func TestValidateExpr(t *testing.T) {
	valid := []string{"* * * * *", "0 3 * * *", "*/15 * * * 1-5", "30 2 1 * *"}
	for _, expr := range valid {
		if err := ValidateExpr(expr); err != nil {
			t.Errorf("ValidateExpr(%q) = %v, want nil", expr, err)
		}
	}

	invalid := []string{"", "* * * *", "61 * * * *", "@nonsense", "* * * * * *"}
	for _, expr := range invalid {
		if err := ValidateExpr(expr); err == nil {
			t.Errorf("ValidateExpr(%q) = nil, want error", expr)
		}
	}
}

func TestNext(t *testing.T) {
	base := time.Date(2026, 8, 23, 2, 30, 0, 0, time.UTC)
	next, err := Next("0 3 * * *", base)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 8, 23, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next = %v, want %v", next, want)
	}
}

func TestAddListRemove(t *testing.T) {
	db := testDB(t)

	entry, err := Add(db, "nightly-backup", "0 3 * * *", map[string]string{"target": "s3"})
	if err != nil {
		t.Fatal(err)
	}
	if entry.ID == 0 || !entry.Enabled {
		t.Errorf("entry = %+v, want persisted and enabled", entry)
	}

	vars, err := ExtraVars(*entry)
	if err != nil {
		t.Fatal(err)
	}
	if vars["target"] != "s3" {
		t.Errorf("ExtraVars = %v, want target=s3", vars)
	}

	if _, err := Add(db, "", "0 3 * * *", nil); err == nil {
		t.Error("expected error for empty script name")
	}
	if _, err := Add(db, "x", "not-cron", nil); err == nil {
		t.Error("expected error for invalid cron expression")
	}

	entries, err := List(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}

	if err := Remove(db, entry.ID); err != nil {
		t.Fatal(err)
	}
	if err := Remove(db, entry.ID); err == nil {
		t.Error("expected error removing a missing entry")
	}
}

func TestExtraVars_Empty(t *testing.T) {
	for _, raw := range []string{"", "{}"} {
		vars, err := ExtraVars(models.ScheduledScript{ExtraVars: raw})
		if err != nil {
			t.Errorf("ExtraVars(%q) error: %v", raw, err)
		}
		if len(vars) != 0 {
			t.Errorf("ExtraVars(%q) = %v, want empty", raw, vars)
		}
	}

	if _, err := ExtraVars(models.ScheduledScript{ExtraVars: "not-json"}); err == nil {
		t.Error("expected error for malformed extra vars")
	}
}

func TestFireDue(t *testing.T) {
	db := testDB(t)

	now := time.Date(2026, 8, 23, 12, 0, 30, 0, time.UTC)

	// Due: created an hour ago, fires every minute, never run.
	due := models.ScheduledScript{Script: "due", CronExpr: "* * * * *", Enabled: true, ExtraVars: `{"k":"v"}`}
	if err := db.Create(&due).Error; err != nil {
		t.Fatal(err)
	}
	db.Model(&due).Update("created_at", now.Add(-time.Hour))

	// Not due: ran seconds ago.
	recent := now.Add(-5 * time.Second)
	notDue := models.ScheduledScript{Script: "not-due", CronExpr: "* * * * *", Enabled: true, LastRunAt: &recent}
	if err := db.Create(&notDue).Error; err != nil {
		t.Fatal(err)
	}

	// Disabled entries never fire.
	disabled := models.ScheduledScript{Script: "disabled", CronExpr: "* * * * *", Enabled: false}
	if err := db.Create(&disabled).Error; err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var fired []string
	var gotVars map[string]string
	run := func(ctx context.Context, entry models.ScheduledScript, vars map[string]string) error {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, entry.Script)
		gotVars = vars
		return nil
	}

	fireDue(context.Background(), DaemonOpts{DB: db, Run: run}, now)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != "due" {
		t.Fatalf("fired = %v, want [due]", fired)
	}
	if gotVars["k"] != "v" {
		t.Errorf("vars = %v, want extra vars decoded", gotVars)
	}

	// The entry is marked before running so the next tick skips it.
	var reloaded models.ScheduledScript
	if err := db.First(&reloaded, due.ID).Error; err != nil {
		t.Fatal(err)
	}
	if reloaded.LastRunAt == nil {
		t.Fatal("last_run_at should be set after firing")
	}

	fired = nil
	fireDue(context.Background(), DaemonOpts{DB: db, Run: run}, now.Add(10*time.Second))
	if len(fired) != 0 {
		t.Errorf("second tick fired %v, want nothing", fired)
	}
}
