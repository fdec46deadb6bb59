package remote

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// integrationOptions returns connection settings for the dockerized sshd
// described in docker/docker-compose.example.yml, or skips the test when
// AUTOMATIX_SSH_TEST is unset.
func integrationOptions(t *testing.T) (host string, opts Options) {
	t.Helper()
	if os.Getenv("AUTOMATIX_SSH_TEST") == "" {
		t.Skip("set AUTOMATIX_SSH_TEST to run SSH integration tests (see README)")
	}

	host = os.Getenv("AUTOMATIX_SSH_HOST")
	if host == "" {
		host = "127.0.0.1:2222"
	}
	user := os.Getenv("AUTOMATIX_SSH_USER")
	if user == "" {
		user = "atx"
	}
	keyFile := os.Getenv("AUTOMATIX_SSH_KEY")
	if keyFile == "" {
		keyFile = filepath.Join("..", "..", "docker", "keys", "automatix")
	}
	if _, err := os.Stat(keyFile); err != nil {
		t.Fatalf("test key %s not found; generate it per the README (%v)", keyFile, err)
	}

	return host, Options{
		User:                  user,
		KeyFile:               keyFile,
		ConnectTimeout:        5 * time.Second,
		InsecureIgnoreHostKey: true,
	}
}

func TestIntegration_RunCommand(t *testing.T) {
	host, opts := integrationOptions(t)
	client, err := Dial(host, opts)
	if err != nil {
		t.Fatalf("dial %s: %v", host, err)
	}
	defer client.Close()

	var stdout, stderr bytes.Buffer
	exit, err := client.Run(context.Background(), "echo hello from $USER", &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if exit != 0 {
		t.Errorf("exit code = %d, stderr: %s", exit, stderr.String())
	}
	if !strings.Contains(stdout.String(), "hello from") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestIntegration_ExitCode(t *testing.T) {
	host, opts := integrationOptions(t)
	client, err := Dial(host, opts)
	if err != nil {
		t.Fatalf("dial %s: %v", host, err)
	}
	defer client.Close()

	exit, err := client.Run(context.Background(), "exit 42", new(bytes.Buffer), new(bytes.Buffer))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if exit != 42 {
		t.Errorf("exit code = %d, want 42", exit)
	}
}

func TestIntegration_PutGetRoundTrip(t *testing.T) {
	host, opts := integrationOptions(t)
	client, err := Dial(host, opts)
	if err != nil {
		t.Fatalf("dial %s: %v", host, err)
	}
	defer client.Close()

	dir := t.TempDir()
	local := filepath.Join(dir, "payload.txt")
	content := []byte("automatix transfer test\n")
	if err := os.WriteFile(local, content, 0o644); err != nil {
		t.Fatal(err)
	}

	remote := "/tmp/automatix-test/payload.txt"
	if err := client.Put(local, remote); err != nil {
		t.Fatalf("put: %v", err)
	}
	defer client.Run(context.Background(), "rm -rf /tmp/automatix-test", new(bytes.Buffer), new(bytes.Buffer))

	fetched := filepath.Join(dir, "fetched.txt")
	if err := client.Get(remote, fetched); err != nil {
		t.Fatalf("get: %v", err)
	}
	got, err := os.ReadFile(fetched)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("round trip = %q, want %q", got, content)
	}
}

func TestIntegration_Cancellation(t *testing.T) {
	host, opts := integrationOptions(t)
	client, err := Dial(host, opts)
	if err != nil {
		t.Fatalf("dial %s: %v", host, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	_, err = client.Run(ctx, "sleep 30", new(bytes.Buffer), new(bytes.Buffer))
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}
