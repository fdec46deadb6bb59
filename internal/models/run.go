package models

import "time"

// Run status constants.
const (
	RunStatusRunning  = "running"
	RunStatusSuccess  = "success"
	RunStatusFailed   = "failed"
	RunStatusAborted  = "aborted"
)

// Run records one execution of a script.
type Run struct {
	ID         string `gorm:"primaryKey;size:32"`
	Script     string `gorm:"size:128;index"`
	Status     string `gorm:"size:16;index"`
	BatchIndex int    `gorm:"default:0"`
	BatchTotal int    `gorm:"default:0"`
	Trigger    string `gorm:"size:16;default:manual"` // manual, batch, schedule
	ExitCode   int
	StartedAt  time.Time `gorm:"index"`
	FinishedAt *time.Time

	Steps []StepResult `gorm:"foreignKey:RunID"`
}
