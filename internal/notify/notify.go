// Package notify delivers run-completion summaries to configured
// channels. Delivery is best-effort: failures are logged, never returned
// to the run path.
package notify

import (
	"fmt"
	"log"
	"time"
)

// Summary describes a finished run for notification purposes.
type Summary struct {
	RunID      string
	Script     string
	Status     string
	ExitCode   int
	Failed     int
	Duration   time.Duration
	BatchIndex int
	BatchTotal int
}

// Subject renders a one-line summary.
func (s Summary) Subject() string {
	batch := ""
	if s.BatchTotal > 0 {
		batch = fmt.Sprintf(" [item %d/%d]", s.BatchIndex, s.BatchTotal)
	}
	return fmt.Sprintf("%s%s: %s in %s", s.Script, batch, s.Status, s.Duration.Round(time.Second))
}

// Body renders the detail lines.
func (s Summary) Body() string {
	b := fmt.Sprintf("run %s finished with exit code %d", s.RunID, s.ExitCode)
	if s.Failed > 0 {
		b += fmt.Sprintf(" (%d failed steps)", s.Failed)
	}
	return b
}

// Notifier delivers one run summary.
type Notifier interface {
	Notify(s Summary) error
	Name() string
}

// Fanout sends the summary through every notifier, logging failures.
func Fanout(notifiers []Notifier, s Summary) {
	for _, n := range notifiers {
		if err := n.Notify(s); err != nil {
			log.Printf("notify: %s: %v", n.Name(), err)
		}
	}
}
