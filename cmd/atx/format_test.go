package main

import (
	"testing"
	"time"

	"github.com/automatix-sh/automatix/internal/models"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 20, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a longer string that gets cut", 10, "a longe..."},
		{"abc", 3, "abc"},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1200 * time.Millisecond, "1.2s"},
		{59 * time.Second, "59.0s"},
		{3*time.Minute + 5*time.Second, "3m05s"},
		{time.Hour + 2*time.Minute, "1h02m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatRunDuration(t *testing.T) {
	started := time.Now()
	run := models.Run{StartedAt: started}
	if got := formatRunDuration(run); got != "-" {
		t.Errorf("running run duration = %q, want -", got)
	}

	finished := started.Add(90 * time.Second)
	run.FinishedAt = &finished
	if got := formatRunDuration(run); got != "1m30s" {
		t.Errorf("finished run duration = %q, want 1m30s", got)
	}
}
