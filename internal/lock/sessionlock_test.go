package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.TrimSpace(string(b)) != fmt.Sprintf("%d", os.Getpid()) {
		t.Fatalf("expected own PID in lock file, got %q", b)
	}
}

func TestAcquireCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "scratch")
	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected directory created: %v", err)
	}
}

func TestReleaseNil(t *testing.T) {
	t.Parallel()

	var l *SessionLock
	if err := l.Release(); err != nil {
		t.Fatalf("Release on nil: %v", err)
	}
}

func TestAcquireEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := Acquire(""); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
