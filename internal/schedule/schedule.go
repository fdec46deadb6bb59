// Package schedule manages cron-scheduled script runs and the daemon
// that executes them.
package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/automatix-sh/automatix/internal/models"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateExpr checks a 5-field cron expression.
func ValidateExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("schedule: invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Next returns the next fire time of expr after t.
func Next(expr string, t time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: invalid cron expression %q: %w", expr, err)
	}
	return sched.Next(t), nil
}

// Add registers a scheduled script.
func Add(db *gorm.DB, scriptName, expr string, extraVars map[string]string) (*models.ScheduledScript, error) {
	if scriptName == "" {
		return nil, fmt.Errorf("schedule: script name is required")
	}
	if err := ValidateExpr(expr); err != nil {
		return nil, err
	}
	varsJSON := "{}"
	if len(extraVars) > 0 {
		data, err := json.Marshal(extraVars)
		if err != nil {
			return nil, fmt.Errorf("schedule: marshal extra vars: %w", err)
		}
		varsJSON = string(data)
	}
	s := models.ScheduledScript{
		Script:    scriptName,
		CronExpr:  expr,
		Enabled:   true,
		ExtraVars: varsJSON,
	}
	if err := db.Create(&s).Error; err != nil {
		return nil, fmt.Errorf("schedule: add %s: %w", scriptName, err)
	}
	return &s, nil
}

// List returns all scheduled scripts, enabled first, newest last.
func List(db *gorm.DB) ([]models.ScheduledScript, error) {
	var entries []models.ScheduledScript
	if err := db.Order("enabled DESC, id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("schedule: list: %w", err)
	}
	return entries, nil
}

// Remove deletes a scheduled script by ID.
func Remove(db *gorm.DB, id uint) error {
	res := db.Delete(&models.ScheduledScript{}, id)
	if res.Error != nil {
		return fmt.Errorf("schedule: remove %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("schedule: no entry with id %d", id)
	}
	return nil
}

// ExtraVars decodes the JSON var overrides of an entry.
func ExtraVars(s models.ScheduledScript) (map[string]string, error) {
	vars := map[string]string{}
	if s.ExtraVars == "" || s.ExtraVars == "{}" {
		return vars, nil
	}
	if err := json.Unmarshal([]byte(s.ExtraVars), &vars); err != nil {
		return nil, fmt.Errorf("schedule: entry %d: decode extra vars: %w", s.ID, err)
	}
	return vars, nil
}
