package schedule

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/automatix-sh/automatix/internal/models"
)

// RunFunc executes one scheduled script with var overrides.
type RunFunc func(ctx context.Context, entry models.ScheduledScript, vars map[string]string) error

// DaemonOpts configures the schedule daemon.
type DaemonOpts struct {
	DB   *gorm.DB
	Run  RunFunc
	Tick time.Duration // poll interval, default 30s
}

// Daemon polls the scheduled_scripts table and fires entries whose next
// cron time has passed. Schedules are re-read every tick, so edits take
// effect without a restart.
func Daemon(ctx context.Context, opts DaemonOpts) error {
	tick := opts.Tick
	if tick == 0 {
		tick = 30 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			fireDue(ctx, opts, now)
		}
	}
}

// fireDue runs every enabled entry whose schedule has come due since its
// last run (or since creation, for entries never run).
func fireDue(ctx context.Context, opts DaemonOpts, now time.Time) {
	var entries []models.ScheduledScript
	if err := opts.DB.Where("enabled = ?", true).Find(&entries).Error; err != nil {
		log.Printf("schedule: load entries: %v", err)
		return
	}

	for _, entry := range entries {
		since := entry.CreatedAt
		if entry.LastRunAt != nil {
			since = *entry.LastRunAt
		}
		next, err := Next(entry.CronExpr, since)
		if err != nil {
			log.Printf("schedule: entry %d: %v", entry.ID, err)
			continue
		}
		if next.After(now) {
			continue
		}

		vars, err := ExtraVars(entry)
		if err != nil {
			log.Printf("schedule: %v", err)
			continue
		}

		// Mark before running so a long script is not double-fired by the
		// next tick.
		if err := opts.DB.Model(&models.ScheduledScript{}).Where("id = ?", entry.ID).
			Update("last_run_at", now).Error; err != nil {
			log.Printf("schedule: entry %d: mark run: %v", entry.ID, err)
			continue
		}

		if err := opts.Run(ctx, entry, vars); err != nil {
			log.Printf("schedule: entry %d (%s): %v", entry.ID, entry.Script, err)
		}
	}
}
