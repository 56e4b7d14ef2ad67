package invoker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
)

// fakeCLI writes an executable shell script standing in for the
// blocksecops binary and returns its path.
func fakeCLI(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocksecops")
	content := "#!/bin/sh\n" + script + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_CapturesStdoutOnExitZero(t *testing.T) {
	bin := fakeCLI(t, `echo '{"version":"2.1.0","runs":[]}'`)
	inv := New(bin, nil)

	result, err := inv.Run(context.Background(), "/tmp/contract.sol")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if !result.Parseable() {
		t.Error("exit 0 should be parseable")
	}
	if !strings.Contains(string(result.Stdout), `"runs"`) {
		t.Errorf("stdout not captured: %q", result.Stdout)
	}
	if result.ScanID == "" {
		t.Error("scan ID should be assigned")
	}
}

func TestRun_ExitOneIsParseable(t *testing.T) {
	bin := fakeCLI(t, `echo '{"runs":[]}'; exit 1`)
	inv := New(bin, nil)

	result, err := inv.Run(context.Background(), "/tmp/contract.sol")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", result.ExitCode)
	}
	if !result.Parseable() {
		t.Error("exit 1 means findings present, still parseable")
	}
}

func TestRun_ToolFailure(t *testing.T) {
	bin := fakeCLI(t, `echo "boom" >&2; exit 2`)
	inv := New(bin, nil)

	result, err := inv.Run(context.Background(), "/tmp/contract.sol")
	if err == nil {
		t.Fatal("exit 2 should be a tool failure")
	}
	if sdkerrors.GetKind(err) != sdkerrors.KindToolFailed {
		t.Errorf("kind = %v, want KindToolFailed", sdkerrors.GetKind(err))
	}
	if result == nil {
		t.Fatal("result should still be returned for diagnosis")
	}
	if result.Parseable() {
		t.Error("exit 2 output must not be parseable")
	}
	if !strings.Contains(result.Stderr, "boom") {
		t.Errorf("stderr not captured: %q", result.Stderr)
	}
}

func TestRun_ExecutableNotFound(t *testing.T) {
	inv := New("blocksecops-definitely-not-installed", nil)

	_, err := inv.Run(context.Background(), "/tmp/contract.sol")
	if err == nil {
		t.Fatal("missing binary should fail")
	}
	if !sdkerrors.IsExecutableNotFound(err) {
		t.Errorf("kind = %v, want KindExecutableNotFound", sdkerrors.GetKind(err))
	}
}

func TestRun_Timeout(t *testing.T) {
	bin := fakeCLI(t, `sleep 5`)
	inv := New(bin, nil)
	inv.Timeout = 50 * time.Millisecond

	_, err := inv.Run(context.Background(), "/tmp/contract.sol")
	if err == nil {
		t.Fatal("slow scan should time out")
	}
	if !sdkerrors.IsTimeout(err) {
		t.Errorf("kind = %v, want KindTimeout", sdkerrors.GetKind(err))
	}
}

func TestRun_EmptyTarget(t *testing.T) {
	inv := New("blocksecops", nil)
	_, err := inv.Run(context.Background(), "")
	if sdkerrors.GetKind(err) != sdkerrors.KindInvalidInput {
		t.Errorf("kind = %v, want KindInvalidInput", sdkerrors.GetKind(err))
	}
}

func TestIsInstalled(t *testing.T) {
	bin := fakeCLI(t, `echo "blocksecops 1.4.0"`)
	inv := New(bin, nil)

	installed, version, err := inv.IsInstalled(context.Background())
	if err != nil {
		t.Fatalf("IsInstalled failed: %v", err)
	}
	if !installed {
		t.Error("fake CLI should be installed")
	}
	if version != "blocksecops 1.4.0" {
		t.Errorf("version = %q", version)
	}
	if inv.Version() != version {
		t.Error("Version() should return the probed version")
	}

	missing := New("blocksecops-definitely-not-installed", nil)
	installed, _, err = missing.IsInstalled(context.Background())
	if err != nil {
		t.Fatalf("missing binary probe should not error: %v", err)
	}
	if installed {
		t.Error("missing binary should report not installed")
	}
}

func TestWorkDirForTarget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "c.sol")
	if err := os.WriteFile(file, []byte("contract C {}"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := workDirForTarget(dir); got != dir {
		t.Errorf("directory target workdir = %q, want %q", got, dir)
	}
	if got := workDirForTarget(file); got != dir {
		t.Errorf("file target workdir = %q, want %q", got, dir)
	}
}
