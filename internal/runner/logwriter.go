package runner

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/automatix-sh/automatix/internal/models"
	"gorm.io/gorm"
)

// DefaultFlushInterval is the interval between periodic log flushes.
const DefaultFlushInterval = 5 * time.Second

// logWriter implements io.Writer, buffering command output and
// periodically flushing it to command_logs via an injected writeFn.
type logWriter struct {
	runID     string
	phase     string
	stepIndex int
	direction string // "out" or "err"

	mu      sync.Mutex
	buf     bytes.Buffer
	writeFn func(models.CommandLog) error
	onWrite func([]byte) // optional callback invoked on each Write
}

// newLogWriter creates a logWriter that flushes to the DB via db.Create.
// A nil db makes flushing a no-op, which keeps dry runs and tests cheap.
func newLogWriter(db *gorm.DB, runID, phase string, stepIndex int, direction string) *logWriter {
	w := &logWriter{
		runID:     runID,
		phase:     phase,
		stepIndex: stepIndex,
		direction: direction,
	}
	if db != nil {
		w.writeFn = func(entry models.CommandLog) error {
			return db.Create(&entry).Error
		}
	}
	return w
}

// Write appends bytes to the internal buffer (implements io.Writer).
func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if w.onWrite != nil {
		w.onWrite(p)
	}
	return n, err
}

// Flush writes accumulated buffer contents to command_logs and resets the buffer.
func (w *logWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 || w.writeFn == nil {
		w.buf.Reset()
		return nil
	}

	content := w.buf.String()
	w.buf.Reset()

	return w.writeFn(models.CommandLog{
		RunID:     w.runID,
		Phase:     w.phase,
		StepIndex: w.stepIndex,
		Direction: w.direction,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// Close performs a final flush.
func (w *logWriter) Close() error {
	return w.Flush()
}

// startFlusher launches a goroutine that periodically flushes the logWriter.
func startFlusher(ctx context.Context, w *logWriter, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Flush()
			}
		}
	}()
}
