package script

import (
	"strings"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		key  string
		want Command
	}{
		{"local", Command{Action: ActionLocal}},
		{"remote@web", Command{Action: ActionRemote, System: "web"}},
		{"manual", Command{Action: ActionManual}},
		{"put@web", Command{Action: ActionPut, System: "web"}},
		{"get@db", Command{Action: ActionGet, System: "db"}},
		{"checksum=local", Command{Action: ActionLocal, AssignTo: "checksum"}},
		{"out=remote@db", Command{Action: ActionRemote, System: "db", AssignTo: "out"}},
		{"has_backup?remote@db", Command{Action: ActionRemote, System: "db", Condition: "has_backup"}},
		{"debug?v=local", Command{Action: ActionLocal, AssignTo: "v", Condition: "debug"}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ParseKey(tt.key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseKey(%q) = %+v, want %+v", tt.key, got, tt.want)
			}
		})
	}
}

func TestParseKey_Invalid(t *testing.T) {
	tests := []struct {
		key     string
		wantErr string
	}{
		{"ssh@web", "unknown action"},
		{"remote", "remote requires @system"},
		{"remote@", "missing system after @"},
		{"local@web", "local commands take no system"},
		{"manual@web", "manual entries take no system"},
		{"x=manual", "manual entries take no system or assignment"},
		{"put@", "missing system after @"},
		{"put", "put requires @system"},
		{"x=put@web", "put entries take no assignment"},
		{"1bad=local", "invalid assignment variable"},
		{"no-dash?local", "invalid condition variable"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := ParseKey(tt.key)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestTransferSpec(t *testing.T) {
	cmd := Command{Action: ActionPut, System: "web", Body: " /tmp/app.tgz ->  /opt/app/release.tgz "}
	src, dst, err := cmd.TransferSpec()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != "/tmp/app.tgz" {
		t.Errorf("src = %q, want /tmp/app.tgz", src)
	}
	if dst != "/opt/app/release.tgz" {
		t.Errorf("dst = %q, want /opt/app/release.tgz", dst)
	}

	for _, body := range []string{"no-arrow", "-> dst", "src ->"} {
		cmd.Body = body
		if _, _, err := cmd.TransferSpec(); err == nil {
			t.Errorf("TransferSpec(%q): expected error", body)
		}
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Action: ActionLocal, Body: "echo hi"}, "local: echo hi"},
		{Command{Action: ActionRemote, System: "web", Body: "uptime"}, "remote@web: uptime"},
		{Command{Action: ActionLocal, AssignTo: "v", Condition: "dbg", Body: "date"}, "dbg?v=local: date"},
	}
	for _, tt := range tests {
		if got := tt.cmd.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
