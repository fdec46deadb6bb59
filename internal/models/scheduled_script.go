package models

import "time"

// ScheduledScript is a cron-scheduled script run executed by the schedule
// daemon in force mode.
type ScheduledScript struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Script    string `gorm:"size:128;not null;index"`
	CronExpr  string `gorm:"size:64;not null"` // 5-field cron expression
	Enabled   bool   `gorm:"default:true;index"`
	ExtraVars string `gorm:"type:json"` // JSON object of var overrides
	LastRunAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
