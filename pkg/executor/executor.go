// Package executor runs item scripts in isolated child processes
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/types"
)

// DefaultTimeout bounds a single script execution.
const DefaultTimeout = 300 * time.Second

// TimeoutExitCode is the engine-assigned exit code for timed-out scripts.
// It mirrors the shell `timeout` convention but is set by the executor,
// not the OS.
const TimeoutExitCode = 124

// pipeWaitDelay bounds how long Run waits for the output pipes to close
// after the script exits or the deadline kills it. Background children
// inherit the pipes and would otherwise hold Run open past the timeout.
const pipeWaitDelay = 2 * time.Second

// Environment variable names exposed to every script. These are a stable
// contract that user-authored scripts depend on.
const (
	EnvConfigDir = "ITEM_CONFIG_DIR"
	EnvItemID    = "ITEM_ID"
	EnvItemName  = "ITEM_NAME"
	EnvItemType  = "ITEM_TYPE"
	EnvCategory  = "ITEM_CATEGORY"
)

// extraPathDirs are prepended to PATH so package managers installed
// outside the default search path resolve inside scripts.
var extraPathDirs = []string{"/opt/homebrew/bin", "/usr/local/bin"}

// ScriptExecutor materializes script bodies into temporary files and runs
// them under a bounded timeout with an injected environment.
type ScriptExecutor struct {
	timeout time.Duration
	logger  logger.Logger
}

// Option configures a ScriptExecutor
type Option func(*ScriptExecutor)

// WithTimeout overrides the default per-script timeout
func WithTimeout(d time.Duration) Option {
	return func(e *ScriptExecutor) {
		e.timeout = d
	}
}

// New creates a new script executor
func New(log logger.Logger, opts ...Option) *ScriptExecutor {
	e := &ScriptExecutor{
		timeout: DefaultTimeout,
		logger:  log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the configured per-script timeout.
func (e *ScriptExecutor) Timeout() time.Duration {
	return e.timeout
}

// Run executes the script body for the given slot and returns a structured
// result. Per-slot semantics for an absent body:
//   - validate: Failed (the item is assumed not installed)
//   - install: Failed (an install without a script cannot proceed)
//   - configure, uninstall: Skipped
func (e *ScriptExecutor) Run(ctx context.Context, item *types.ConfigItem, slot types.ScriptSlot, body string) types.ExecutionResult {
	op := types.Operation(slot)

	if strings.TrimSpace(body) == "" {
		return absentScriptResult(op, item.ID, slot)
	}

	start := time.Now()

	scriptPath, err := e.materialize(body)
	if err != nil {
		return types.ExecutionResult{
			Operation:    op,
			ItemID:       item.ID,
			Outcome:      types.OutcomeFailed,
			ExitCode:     1,
			Stderr:       err.Error(),
			Duration:     time.Since(start),
			ErrorMessage: err.Error(),
		}
	}
	defer os.Remove(scriptPath)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "/bin/bash", scriptPath)
	cmd.Env = e.buildEnvironment(item)
	cmd.WaitDelay = pipeWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	// ErrWaitDelay means the script itself exited 0 but a background child
	// kept the pipes open; that is a success, not a timeout.
	if errors.Is(runErr, exec.ErrWaitDelay) {
		runErr = nil
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Launch failure rather than a nonzero exit
			return types.ExecutionResult{
				Operation:    op,
				ItemID:       item.ID,
				Outcome:      types.OutcomeFailed,
				ExitCode:     1,
				Stdout:       stdout.String(),
				Stderr:       runErr.Error(),
				Duration:     duration,
				ErrorMessage: runErr.Error(),
			}
		}
	}

	// A timeout is reported only when the deadline actually killed the
	// script (signal exit), not when it finished on its own near the limit.
	if runCtx.Err() == context.DeadlineExceeded && exitCode == -1 {
		if e.logger != nil {
			e.logger.WithItem(item.ID).Error("Script timed out",
				logger.WithField("slot", slot),
				logger.WithField("timeout", e.timeout))
		}
		return types.ExecutionResult{
			Operation:    op,
			ItemID:       item.ID,
			Outcome:      types.OutcomeFailed,
			ExitCode:     TimeoutExitCode,
			Stdout:       stdout.String(),
			Stderr:       fmt.Sprintf("Script execution timed out after %s", e.timeout),
			Duration:     duration,
			ErrorMessage: "execution timeout",
		}
	}

	e.logOutput(item.ID, slot, stdout.String(), stderr.String(), exitCode)

	outcome := types.OutcomeSuccess
	if exitCode != 0 {
		outcome = types.OutcomeFailed
	}

	return types.ExecutionResult{
		Operation: op,
		ItemID:    item.ID,
		Outcome:   outcome,
		ExitCode:  exitCode,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  duration,
	}
}

// materialize writes the script body to a unique executable temp file with
// a shebang and fail-fast directive prepended. The caller owns removal.
func (e *ScriptExecutor) materialize(body string) (string, error) {
	f, err := os.CreateTemp("", "macsnap-*.sh")
	if err != nil {
		return "", fmt.Errorf("failed to create script file: %w", err)
	}

	if _, err := f.WriteString("#!/bin/bash\nset -e\n" + body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write script file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close script file: %w", err)
	}

	if err := os.Chmod(f.Name(), 0o700); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to mark script executable: %w", err)
	}

	return f.Name(), nil
}

// buildEnvironment returns the inherited environment plus the item contract
// variables, with package-manager locations forced onto the search path.
func (e *ScriptExecutor) buildEnvironment(item *types.ConfigItem) []string {
	env := os.Environ()

	env = append(env,
		fmt.Sprintf("%s=%s", EnvConfigDir, item.ConfigDir),
		fmt.Sprintf("%s=%s", EnvItemID, item.ID),
		fmt.Sprintf("%s=%s", EnvItemName, item.Name),
		fmt.Sprintf("%s=%s", EnvItemType, item.Type),
		fmt.Sprintf("%s=%s", EnvCategory, item.Category),
	)

	path := os.Getenv("PATH")
	missing := make([]string, 0, len(extraPathDirs))
	for _, dir := range extraPathDirs {
		if !pathContains(path, dir) {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		env = append(env, fmt.Sprintf("PATH=%s:%s", strings.Join(missing, ":"), path))
	}

	return env
}

func (e *ScriptExecutor) logOutput(itemID string, slot types.ScriptSlot, stdout, stderr string, exitCode int) {
	if e.logger == nil {
		return
	}
	log := e.logger.WithItem(itemID)
	log.Debug("Script finished",
		logger.WithField("slot", slot),
		logger.WithField("exitCode", exitCode))
	if stdout != "" {
		log.Debug("Script stdout", logger.WithField("output", stdout))
	}
	if stderr != "" {
		log.Debug("Script stderr", logger.WithField("output", stderr))
	}
}

func absentScriptResult(op types.Operation, itemID string, slot types.ScriptSlot) types.ExecutionResult {
	switch slot {
	case types.SlotValidate:
		return types.ExecutionResult{
			Operation: op,
			ItemID:    itemID,
			Outcome:   types.OutcomeFailed,
			ExitCode:  1,
			Stderr:    "No validation script provided",
		}
	case types.SlotInstall:
		return types.ExecutionResult{
			Operation:    op,
			ItemID:       itemID,
			Outcome:      types.OutcomeFailed,
			ExitCode:     1,
			Stderr:       "No installation script provided",
			ErrorMessage: "Missing install script",
		}
	default:
		return types.ExecutionResult{
			Operation: op,
			ItemID:    itemID,
			Outcome:   types.OutcomeSkipped,
			Stderr:    fmt.Sprintf("No %s script provided", slot),
		}
	}
}

func pathContains(path, dir string) bool {
	for _, p := range strings.Split(path, ":") {
		if p == dir {
			return true
		}
	}
	return false
}
