package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hetpatel-11/Adobe-Premiere-Pro-MCP-sub000/internal/script"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func TestRunCLIUnknownCommand(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runCLI([]string{"frobnicate"})
	})
	if code != 1 {
		t.Fatalf("runCLI() code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Unknown command: frobnicate") {
		t.Fatalf("stderr missing unknown command message: %s", stderr)
	}
}

func TestRunCLIHelp(t *testing.T) {
	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runCLI([]string{"help"})
	})
	if code != 0 {
		t.Fatalf("runCLI() code = %d, want 0", code)
	}
	if !strings.Contains(stdout, "premiere-bridge <command> [flags]") {
		t.Fatalf("usage missing command line: %s", stdout)
	}
}

func TestRunVersionJSON(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runVersion([]string{"--json"})
	})
	if code != 0 {
		t.Fatalf("runVersion() code = %d, stderr: %s", code, stderr)
	}

	var info versionInfo
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("version output is not JSON: %v\n%s", err, stdout)
	}
	if info.Version == "" {
		t.Fatal("expected a version string")
	}
}

func TestRunOpsListsBuiltins(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runOps(nil)
	})
	if code != 0 {
		t.Fatalf("runOps() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "project.open") {
		t.Fatalf("ops output missing project.open: %s", stdout)
	}
	if !strings.Contains(stdout, "required") {
		t.Fatalf("ops output missing parameter detail: %s", stdout)
	}
}

func TestRunOpsJSON(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runOps([]string{"--json"})
	})
	if code != 0 {
		t.Fatalf("runOps() code = %d, stderr: %s", code, stderr)
	}

	var out []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("ops output is not JSON: %v\n%s", err, stdout)
	}
	if len(out) == 0 {
		t.Fatal("expected at least one operation")
	}
}

func TestRunOpPrint(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runOp([]string{"--print", "project.open", "path=/tmp/edit.prproj"})
	})
	if code != 0 {
		t.Fatalf("runOp() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, `app.openDocument("/tmp/edit.prproj")`) {
		t.Fatalf("rendered script missing call: %s", stdout)
	}
}

func TestRunOpUnknownOperation(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runOp([]string{"--print", "does.not.exist"})
	})
	if code != 1 {
		t.Fatalf("runOp() code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Unknown operation") {
		t.Fatalf("stderr missing unknown operation message: %s", stderr)
	}
}

func TestRunOpBadArgument(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runOp([]string{"--print", "sequence.addMarker", "seconds=abc"})
	})
	if code != 1 {
		t.Fatalf("runOp() code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "must be a number") {
		t.Fatalf("stderr missing type error: %s", stderr)
	}
}

func TestRunSweepRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "command-stale.json")
	if err := os.WriteFile(stale, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runSweep([]string{"--dir", dir, "--older-than", "1ns"})
	})
	if code != 0 {
		t.Fatalf("runSweep() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Removed 1") {
		t.Fatalf("stdout missing removal count: %s", stdout)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale command file should be removed")
	}
}

func TestDispatchOnceRequiresDir(t *testing.T) {
	t.Setenv("PREMIERE_BRIDGE_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return dispatchOnce("", "", 0, "1")
	})
	if code != 1 {
		t.Fatalf("dispatchOnce() code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "No scratch directory configured") {
		t.Fatalf("stderr missing directory error: %s", stderr)
	}
}

func mustGet(t *testing.T, name string) script.Operation {
	t.Helper()
	op, ok := script.Builtins().Get(name)
	if !ok {
		t.Fatalf("builtin %q not registered", name)
	}
	return op
}

func TestParseOpArgs(t *testing.T) {
	reg := mustGet(t, "sequence.addMarker")

	args, err := parseOpArgs(reg, []string{"seconds=12.5", "note=check audio"})
	if err != nil {
		t.Fatalf("parseOpArgs: %v", err)
	}
	if args["seconds"] != 12.5 {
		t.Fatalf("seconds = %v, want 12.5", args["seconds"])
	}
	if args["note"] != "check audio" {
		t.Fatalf("note = %v", args["note"])
	}

	if _, err := parseOpArgs(reg, []string{"malformed"}); err == nil {
		t.Fatal("expected error for token without =")
	}
}
