package engine_test

import (
	"testing"

	"github.com/macsnap/macsnap/pkg/engine"
)

func TestRunState_InstallLifecycle(t *testing.T) {
	s := engine.NewRunState()

	if s.IsInstalled("git") {
		t.Error("fresh state must not report items installed")
	}

	s.MarkInstalled("git")
	if !s.IsInstalled("git") {
		t.Error("expected git installed after MarkInstalled")
	}
	if s.InstalledCount() != 1 {
		t.Errorf("expected 1 installed, got %d", s.InstalledCount())
	}

	s.ClearInstalled("git")
	if s.IsInstalled("git") {
		t.Error("expected git cleared after ClearInstalled")
	}
}

func TestRunState_InstallClearsEarlierFailure(t *testing.T) {
	s := engine.NewRunState()

	s.MarkFailed("node")
	if !s.Unsatisfied([]string{"node"}) {
		t.Error("expected node to block dependents while failed")
	}

	s.MarkInstalled("node")
	if s.Unsatisfied([]string{"node"}) {
		t.Error("a successful install must clear an earlier failure")
	}
}

func TestRunState_Unsatisfied(t *testing.T) {
	s := engine.NewRunState()
	s.MarkFailed("a")
	s.MarkSkipped("b")

	if !s.Unsatisfied([]string{"a"}) {
		t.Error("failed dependency must be unsatisfied")
	}
	if !s.Unsatisfied([]string{"b"}) {
		t.Error("skipped dependency must be unsatisfied")
	}
	if s.Unsatisfied([]string{"c"}) {
		t.Error("untouched dependency must be satisfied")
	}
	if s.Unsatisfied(nil) {
		t.Error("no dependencies means satisfied")
	}
}

func TestRunState_Reset(t *testing.T) {
	s := engine.NewRunState()
	s.MarkInstalled("a")
	s.MarkFailed("b")
	s.MarkSkipped("c")

	s.Reset()

	if s.InstalledCount() != 0 || len(s.FailedIDs()) != 0 || len(s.SkippedIDs()) != 0 {
		t.Error("expected empty state after reset")
	}
	if s.Unsatisfied([]string{"b", "c"}) {
		t.Error("reset must unblock previously failed dependencies")
	}
}
