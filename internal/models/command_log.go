package models

import "time"

// CommandLog captures streamed command output for debugging. Output is
// flushed in chunks while the command runs, so long steps stay inspectable.
type CommandLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"size:32;index:idx_run_phase_step"`
	Phase     string `gorm:"size:8;index:idx_run_phase_step"`
	StepIndex int    `gorm:"index:idx_run_phase_step"`
	Direction string `gorm:"size:4"` // "out" or "err"
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}
