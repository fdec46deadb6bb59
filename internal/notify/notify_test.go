package notify

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSummarySubject(t *testing.T) {
	s := Summary{
		RunID:    "run-aabbccdd",
		Script:   "deploy webapp",
		Status:   "success",
		Duration: 83*time.Second + 400*time.Millisecond,
	}
	got := s.Subject()
	if !strings.Contains(got, "deploy webapp") || !strings.Contains(got, "success") {
		t.Errorf("Subject() = %q", got)
	}
	if strings.Contains(got, "item") {
		t.Errorf("non-batch subject should omit the item marker: %q", got)
	}

	s.BatchIndex = 3
	s.BatchTotal = 10
	got = s.Subject()
	if !strings.Contains(got, "[item 3/10]") {
		t.Errorf("batch subject = %q, want item marker", got)
	}
}

func TestSummaryBody(t *testing.T) {
	s := Summary{RunID: "run-aabbccdd", ExitCode: 0}
	if got := s.Body(); strings.Contains(got, "failed steps") {
		t.Errorf("clean body should omit failed steps: %q", got)
	}

	s.ExitCode = 1
	s.Failed = 2
	got := s.Body()
	if !strings.Contains(got, "exit code 1") || !strings.Contains(got, "2 failed steps") {
		t.Errorf("Body() = %q", got)
	}
}

type recordingNotifier struct {
	name string
	got  []Summary
	err  error
}

func (r *recordingNotifier) Notify(s Summary) error {
	r.got = append(r.got, s)
	return r.err
}

func (r *recordingNotifier) Name() string { return r.name }

func TestFanout(t *testing.T) {
	a := &recordingNotifier{name: "a"}
	b := &recordingNotifier{name: "b", err: errors.New("boom")}
	c := &recordingNotifier{name: "c"}

	Fanout([]Notifier{a, b, c}, Summary{RunID: "run-00000001"})

	// A failing notifier must not stop the others.
	for _, n := range []*recordingNotifier{a, b, c} {
		if len(n.got) != 1 {
			t.Errorf("notifier %s received %d summaries, want 1", n.name, len(n.got))
		}
	}
}

func TestTemplateSummary(t *testing.T) {
	s := Summary{
		RunID:    "run-aabbccdd",
		Script:   "deploy",
		Status:   "failed",
		ExitCode: 1,
		Duration: time.Minute,
	}
	got := templateSummary("notify-send '{{.Script}}' '{{.Status}} ({{.ExitCode}})'", s)
	want := "notify-send 'deploy' 'failed (1)'"
	if got != want {
		t.Errorf("templateSummary = %q, want %q", got, want)
	}

	got = templateSummary("echo {{.Subject}}", s)
	if !strings.Contains(got, "deploy: failed") {
		t.Errorf("subject substitution = %q", got)
	}
}

func TestCommandNotifier(t *testing.T) {
	n := CommandNotifier{Command: "true"}
	if err := n.Notify(Summary{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	n = CommandNotifier{Command: "exit 3"}
	if err := n.Notify(Summary{}); err == nil {
		t.Error("expected error for failing command")
	}

	n = CommandNotifier{}
	if err := n.Notify(Summary{}); err != nil {
		t.Errorf("empty command should be a no-op, got %v", err)
	}
}
