package models

import "time"

// Step outcome constants.
const (
	StepOutcomeOK      = "ok"
	StepOutcomeFailed  = "failed"
	StepOutcomeSkipped = "skipped"
)

// StepResult records one executed pipeline step within a run.
type StepResult struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"size:32;index:idx_run_step"`
	Phase      string `gorm:"size:8;index:idx_run_step"` // always, pipeline, cleanup
	StepIndex  int    `gorm:"index:idx_run_step"`
	Command    string `gorm:"type:text"` // rendered key form, e.g. "remote@web: systemctl stop webapp"
	Outcome    string `gorm:"size:8"`
	ExitCode   int
	Attempts   int `gorm:"default:1"`
	DurationMs int64
	StartedAt  time.Time
}
