package executor_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/macsnap/macsnap/pkg/executor"
	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/types"
)

func testLogger() logger.Logger {
	return logger.CreateLoggerWithOutput("error", &bytes.Buffer{})
}

func testItem(t *testing.T) *types.ConfigItem {
	t.Helper()
	return &types.ConfigItem{
		ID:        "test-item",
		Name:      "Test Item",
		Type:      types.ItemTypeShellScript,
		Category:  "Testing",
		ConfigDir: t.TempDir(),
	}
}

func scriptFileCount(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "macsnap-*.sh"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	return len(matches)
}

func TestRun_Success(t *testing.T) {
	e := executor.New(testLogger())

	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "echo hello")

	if result.Outcome != types.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.Stderr)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, "hello") {
		t.Errorf("expected stdout to contain 'hello', got %q", result.Stdout)
	}
	if result.Operation != types.OperationInstall {
		t.Errorf("expected install operation, got %s", result.Operation)
	}
}

func TestRun_NonzeroExit(t *testing.T) {
	e := executor.New(testLogger())

	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "exit 3")

	if result.Outcome != types.OutcomeFailed {
		t.Fatalf("expected failure, got %s", result.Outcome)
	}
	if result.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", result.ExitCode)
	}
}

func TestRun_FailFastDirective(t *testing.T) {
	e := executor.New(testLogger())

	// set -e must stop the script at the first failing command
	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "false\necho reached")

	if result.Outcome != types.OutcomeFailed {
		t.Fatalf("expected failure, got %s", result.Outcome)
	}
	if strings.Contains(result.Stdout, "reached") {
		t.Error("script continued past a failing command")
	}
}

func TestRun_EnvironmentContract(t *testing.T) {
	e := executor.New(testLogger())
	item := testItem(t)

	script := `echo "$ITEM_ID/$ITEM_NAME/$ITEM_TYPE/$ITEM_CATEGORY/$ITEM_CONFIG_DIR"`
	result := e.Run(context.Background(), item, types.SlotInstall, script)

	if result.Outcome != types.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.Stderr)
	}

	want := strings.Join([]string{
		item.ID, item.Name, string(item.Type), item.Category, item.ConfigDir,
	}, "/")
	if !strings.Contains(result.Stdout, want) {
		t.Errorf("expected environment %q in output, got %q", want, result.Stdout)
	}
}

func TestRun_PathIncludesPackageManagerDirs(t *testing.T) {
	e := executor.New(testLogger())

	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "echo $PATH")

	if !strings.Contains(result.Stdout, "/usr/local/bin") {
		t.Errorf("expected /usr/local/bin on PATH, got %q", result.Stdout)
	}
	if !strings.Contains(result.Stdout, "/opt/homebrew/bin") {
		t.Errorf("expected /opt/homebrew/bin on PATH, got %q", result.Stdout)
	}
}

func TestRun_Timeout(t *testing.T) {
	timeout := 200 * time.Millisecond
	e := executor.New(testLogger(), executor.WithTimeout(timeout))

	start := time.Now()
	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "sleep 5")
	elapsed := time.Since(start)

	if result.Outcome != types.OutcomeFailed {
		t.Fatalf("expected failure, got %s", result.Outcome)
	}
	if result.ExitCode != executor.TimeoutExitCode {
		t.Errorf("expected exit code %d, got %d", executor.TimeoutExitCode, result.ExitCode)
	}
	if result.ErrorMessage != "execution timeout" {
		t.Errorf("expected timeout error message, got %q", result.ErrorMessage)
	}
	if elapsed < timeout {
		t.Errorf("returned before the timeout elapsed: %s", elapsed)
	}
	if elapsed > 5*time.Second {
		t.Errorf("timeout did not interrupt the script: %s", elapsed)
	}
	if result.Duration < timeout {
		t.Errorf("expected duration >= timeout, got %s", result.Duration)
	}
}

func TestRun_BackgroundChildDoesNotHoldRunOpen(t *testing.T) {
	timeout := 200 * time.Millisecond
	e := executor.New(testLogger(), executor.WithTimeout(timeout))

	// A daemonizing script exits 0 immediately while its child inherits
	// the output pipes; the child must not stretch Run or flip the outcome.
	start := time.Now()
	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "sleep 5 &\nexit 0")
	elapsed := time.Since(start)

	if result.Outcome != types.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.ErrorMessage)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if elapsed > 4*time.Second {
		t.Errorf("Run blocked on the background child: %s", elapsed)
	}
}

func TestRun_TempFileCleanup(t *testing.T) {
	e := executor.New(testLogger(), executor.WithTimeout(200*time.Millisecond))
	before := scriptFileCount(t)

	e.Run(context.Background(), testItem(t), types.SlotInstall, "echo ok")
	e.Run(context.Background(), testItem(t), types.SlotInstall, "exit 1")
	e.Run(context.Background(), testItem(t), types.SlotInstall, "sleep 5")

	if after := scriptFileCount(t); after != before {
		t.Errorf("temp script files leaked: %d before, %d after", before, after)
	}
}

func TestRun_AbsentValidateScript(t *testing.T) {
	e := executor.New(testLogger())

	result := e.Run(context.Background(), testItem(t), types.SlotValidate, "")

	if result.Outcome != types.OutcomeFailed {
		t.Fatalf("expected failure for absent validate script, got %s", result.Outcome)
	}
	if result.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %d", result.ExitCode)
	}
}

func TestRun_AbsentInstallScript(t *testing.T) {
	e := executor.New(testLogger())

	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "")

	if result.Outcome != types.OutcomeFailed {
		t.Fatalf("expected failure for absent install script, got %s", result.Outcome)
	}
	if result.ErrorMessage == "" {
		t.Error("expected an error message for the missing install script")
	}
}

func TestRun_AbsentConfigureAndUninstallScripts(t *testing.T) {
	e := executor.New(testLogger())

	for _, slot := range []types.ScriptSlot{types.SlotConfigure, types.SlotUninstall} {
		result := e.Run(context.Background(), testItem(t), slot, "")
		if result.Outcome != types.OutcomeSkipped {
			t.Errorf("expected skipped for absent %s script, got %s", slot, result.Outcome)
		}
	}
}

func TestRun_CapturesStderr(t *testing.T) {
	e := executor.New(testLogger())

	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "echo oops >&2")

	if !strings.Contains(result.Stderr, "oops") {
		t.Errorf("expected stderr capture, got %q", result.Stderr)
	}
}

func TestRun_DurationRecorded(t *testing.T) {
	e := executor.New(testLogger())

	result := e.Run(context.Background(), testItem(t), types.SlotInstall, "sleep 0.1")

	if result.Duration < 100*time.Millisecond {
		t.Errorf("expected duration >= 100ms, got %s", result.Duration)
	}
}
