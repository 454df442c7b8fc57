package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileTransport_SendWritesOwnerOnly(t *testing.T) {
	dir := t.TempDir()
	tr := NewFileTransport(dir, 10*time.Millisecond)

	cmd := CommandRecord{ID: "abc", Script: "1+1", Timestamp: time.Now().UTC()}
	if err := tr.Send(context.Background(), cmd); err != nil {
		t.Fatalf("Send: %v", err)
	}

	path := filepath.Join(dir, "command-abc.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("command file mode = %o, want 600", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got CommandRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal command record: %v", err)
	}
	if got.ID != "abc" || got.Script != "1+1" {
		t.Errorf("record round trip = %+v", got)
	}
}

func TestFileTransport_AwaitUsesInjectedClock(t *testing.T) {
	dir := t.TempDir()
	tr := NewFileTransport(dir, 100*time.Millisecond)

	// Fake clock: each sleep advances simulated time without real waiting.
	var elapsed time.Duration
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base.Add(elapsed) }
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		elapsed += d
		return nil
	}

	start := time.Now()
	_, err := tr.Await(context.Background(), "nope", base.Add(30*time.Second))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Await error = %v, want ErrTimeout", err)
	}
	if wall := time.Since(start); wall > time.Second {
		t.Errorf("fake clock still slept for %v", wall)
	}
	if elapsed < 30*time.Second {
		t.Errorf("simulated elapsed = %v, want >= 30s", elapsed)
	}
}

func TestFileTransport_AwaitParseError(t *testing.T) {
	dir := t.TempDir()
	tr := NewFileTransport(dir, 10*time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, ResponseFilename("bad")), []byte("{broken"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := tr.Await(context.Background(), "bad", time.Now().Add(time.Second))
	if err == nil || errors.Is(err, ErrTimeout) {
		t.Fatalf("Await error = %v, want parse error", err)
	}
}

func TestFileTransport_DiscardToleratesMissing(t *testing.T) {
	dir := t.TempDir()
	tr := NewFileTransport(dir, 10*time.Millisecond)

	// Only the response exists; the executor already consumed the command.
	if err := os.WriteFile(filepath.Join(dir, ResponseFilename("x")), []byte("{}"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tr.Discard("x")

	if _, err := os.Stat(filepath.Join(dir, ResponseFilename("x"))); !os.IsNotExist(err) {
		t.Errorf("response file survived Discard")
	}
	// Calling again with nothing left must not panic or error.
	tr.Discard("x")
}
