package engine

// RunState tracks cross-batch item outcomes on one engine instance. It is
// in-memory only and scoped to the engine's lifetime; failure propagation
// within a batch is its sole consumer.
type RunState struct {
	installed map[string]bool
	failed    map[string]bool
	skipped   map[string]bool
}

// NewRunState creates an empty run state
func NewRunState() *RunState {
	return &RunState{
		installed: make(map[string]bool),
		failed:    make(map[string]bool),
		skipped:   make(map[string]bool),
	}
}

// MarkInstalled records a successful install for the item.
func (s *RunState) MarkInstalled(itemID string) {
	s.installed[itemID] = true
	delete(s.failed, itemID)
}

// MarkFailed records a failed operation for the item.
func (s *RunState) MarkFailed(itemID string) {
	s.failed[itemID] = true
}

// MarkSkipped records a propagation skip for the item.
func (s *RunState) MarkSkipped(itemID string) {
	s.skipped[itemID] = true
}

// ClearInstalled removes the item from the installed set, if present.
func (s *RunState) ClearInstalled(itemID string) {
	delete(s.installed, itemID)
}

// IsInstalled reports whether the item installed successfully this run.
func (s *RunState) IsInstalled(itemID string) bool {
	return s.installed[itemID]
}

// Unsatisfied reports whether any of the given dependencies failed or was
// skipped earlier in this run.
func (s *RunState) Unsatisfied(deps []string) bool {
	for _, depID := range deps {
		if s.failed[depID] || s.skipped[depID] {
			return true
		}
	}
	return false
}

// InstalledCount returns the number of successfully installed items.
func (s *RunState) InstalledCount() int {
	return len(s.installed)
}

// FailedIDs returns the failed item ids in unspecified order.
func (s *RunState) FailedIDs() []string {
	return keys(s.failed)
}

// SkippedIDs returns the skipped item ids in unspecified order.
func (s *RunState) SkippedIDs() []string {
	return keys(s.skipped)
}

// Reset clears all tracked outcomes.
func (s *RunState) Reset() {
	s.installed = make(map[string]bool)
	s.failed = make(map[string]bool)
	s.skipped = make(map[string]bool)
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
