// Package invoker runs the external blocksecops CLI and captures its
// output for the normalizer. It owns the subprocess boundary: argument
// construction, working directory, timeout, buffered capture, and the
// exit-code taxonomy. It never parses SARIF itself.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blocksecops/editor-sdk/pkg/core"
	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
)

const (
	// DefaultBinary is the default CLI binary name.
	DefaultBinary = "blocksecops"

	// DefaultTimeout bounds a single scan. The IntelliJ annotator used
	// 60 seconds; expiry is an invocation error, never a parse error.
	DefaultTimeout = 60 * time.Second
)

// parseableExitCodes are the exit codes whose stdout is valid SARIF:
// 0 = clean scan, 1 = findings present.
var parseableExitCodes = []int{0, 1}

// Invoker executes blocksecops scans.
type Invoker struct {
	// Binary is the CLI path (default: "blocksecops"). Front ends
	// override it from their settings or BLOCKSECOPS_CLI_PATH.
	Binary string

	// Timeout bounds each scan (default: 60s).
	Timeout time.Duration

	// WorkDir is the working directory for the CLI; the project or
	// workspace root. Defaults to the target itself when empty.
	WorkDir string

	// Env holds extra environment variables for the CLI process.
	Env map[string]string

	logger  core.Logger
	version string
}

// New creates an Invoker with defaults applied.
func New(binary string, logger core.Logger) *Invoker {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Invoker{
		Binary:  binary,
		Timeout: DefaultTimeout,
		logger:  core.LoggerOrNop(logger),
	}
}

// Result is the outcome of one CLI invocation. The process handle and
// streams are fully released before Result is returned, on every exit
// path including cancellation.
type Result struct {
	// ScanID uniquely identifies this invocation across the session,
	// history store, and results API.
	ScanID string

	Target   string
	ExitCode int
	Stdout   []byte
	Stderr   string

	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
}

// Parseable reports whether stdout may be handed to the normalizer.
func (r *Result) Parseable() bool {
	return slices.Contains(parseableExitCodes, r.ExitCode)
}

// Run executes `<binary> scan run <target> --output sarif` and returns
// the buffered result.
//
// A non-{0,1} exit code returns the populated Result together with a
// KindToolFailed error: stdout may be partial and must not be parsed.
// A missing binary is KindExecutableNotFound; deadline expiry is
// KindTimeout.
func (inv *Invoker) Run(ctx context.Context, target string) (*Result, error) {
	const op = "invoker.Run"

	if target == "" {
		return nil, sdkerrors.E(sdkerrors.KindInvalidInput, op, "scan target is required")
	}

	timeout := inv.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"scan", "run", target, "--output", "sarif"}
	inv.logger.Debug("running: %s %s", inv.Binary, strings.Join(args, " "))

	cmd := exec.CommandContext(execCtx, inv.Binary, args...)
	if inv.WorkDir != "" {
		cmd.Dir = inv.WorkDir
	} else {
		cmd.Dir = workDirForTarget(target)
	}
	cmd.Env = os.Environ()
	for k, v := range inv.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := &Result{
		ScanID:    uuid.NewString(),
		Target:    target,
		StartedAt: time.Now(),
	}

	err := cmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.String()

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist):
			return nil, sdkerrors.E(sdkerrors.KindExecutableNotFound, op,
				fmt.Sprintf("%s not found; install it and ensure it is on your PATH", inv.Binary), err)
		case execCtx.Err() == context.DeadlineExceeded:
			return result, sdkerrors.E(sdkerrors.KindTimeout, op,
				fmt.Sprintf("scan of %s exceeded %s", target, timeout), err)
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			return result, sdkerrors.E(sdkerrors.KindInternal, op, "failed to execute scanner", err)
		}
	}

	if !result.Parseable() {
		inv.logger.Warn("scan of %s failed (exit %d): %s", target, result.ExitCode, result.Stderr)
		return result, sdkerrors.E(sdkerrors.KindToolFailed, op,
			fmt.Sprintf("scanner exited with code %d", result.ExitCode))
	}

	inv.logger.Debug("scan of %s completed in %dms (exit %d)", target, result.Duration.Milliseconds(), result.ExitCode)
	return result, nil
}

// IsInstalled checks whether the CLI binary is available and returns its
// version string. Front ends call this once per attempt to surface
// actionable guidance instead of retrying automatically.
func (inv *Invoker) IsInstalled(ctx context.Context) (bool, string, error) {
	cmd := exec.CommandContext(ctx, inv.Binary, "--version")
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("%s version probe: %w", inv.Binary, err)
	}
	inv.version = strings.TrimSpace(string(output))
	return true, inv.version, nil
}

// Version returns the version captured by the last IsInstalled probe.
func (inv *Invoker) Version() string {
	return inv.version
}

// workDirForTarget returns the directory containing the target so the
// CLI resolves relative imports the same way for file and directory
// scans.
func workDirForTarget(target string) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return target
	}
	return filepath.Dir(target)
}
