package db

import (
	"fmt"

	"github.com/automatix-sh/automatix/internal/models"
	"gorm.io/gorm"
)

// RunFilter narrows RecentRuns results.
type RunFilter struct {
	Script string
	Status string
	Limit  int
}

// RecentRuns returns runs ordered newest first.
func RecentRuns(db *gorm.DB, f RunFilter) ([]models.Run, error) {
	q := db.Order("started_at DESC")
	if f.Script != "" {
		q = q.Where("script = ?", f.Script)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	var runs []models.Run
	if err := q.Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("db: list runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run with its step results, ordered by phase execution
// order then step index.
func GetRun(db *gorm.DB, runID string) (*models.Run, error) {
	var run models.Run
	if err := db.Where("id = ?", runID).First(&run).Error; err != nil {
		return nil, fmt.Errorf("db: run %s: %w", runID, err)
	}
	if err := db.Where("run_id = ?", runID).
		Order("id ASC").
		Find(&run.Steps).Error; err != nil {
		return nil, fmt.Errorf("db: steps for %s: %w", runID, err)
	}
	return &run, nil
}

// RunLogs returns the streamed output chunks for one run in capture order.
func RunLogs(db *gorm.DB, runID string) ([]models.CommandLog, error) {
	var logs []models.CommandLog
	if err := db.Where("run_id = ?", runID).Order("id ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("db: logs for %s: %w", runID, err)
	}
	return logs, nil
}

// RunningRuns returns runs still in progress, oldest first.
func RunningRuns(db *gorm.DB) ([]models.Run, error) {
	var runs []models.Run
	if err := db.Where("status = ?", models.RunStatusRunning).
		Order("started_at ASC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("db: running runs: %w", err)
	}
	return runs, nil
}
