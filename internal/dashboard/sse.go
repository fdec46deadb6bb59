package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/automatix-sh/automatix/internal/models"
)

// runEvent holds data for a run-finished SSE event.
type runEvent struct {
	RunID    string `json:"run_id"`
	Script   string `json:"script"`
	Status   string `json:"status"`
	ExitCode int    `json:"exit_code"`
}

// handleSSE streams run completions: it polls for runs that left the
// running state since the last check and emits one event per run.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		// Send connected event.
		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if db == nil {
			return
		}

		lastCheck := time.Now()

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case now := <-ticker.C:
				var finished []models.Run
				db.Where("status <> ? AND finished_at >= ?", models.RunStatusRunning, lastCheck).
					Order("finished_at ASC").
					Find(&finished)
				lastCheck = now

				for _, run := range finished {
					writeSSE(c.Writer, "run-finished", runEvent{
						RunID:    run.ID,
						Script:   run.Script,
						Status:   run.Status,
						ExitCode: run.ExitCode,
					})
				}
				if len(finished) > 0 {
					c.Writer.Flush()
				}
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
