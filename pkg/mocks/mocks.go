// Package mocks provides mock implementations of interfaces for testing.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/macsnap/macsnap/pkg/types"
)

// MockScriptRunner is a scriptable ScriptRunner for engine tests. Results
// are keyed by item id and slot; unkeyed runs succeed by default.
type MockScriptRunner struct {
	mu      sync.Mutex
	results map[string]types.ExecutionResult
	calls   []RunCall
	timeout time.Duration
}

// RunCall records one invocation of Run
type RunCall struct {
	ItemID string
	Slot   types.ScriptSlot
	Body   string
}

// NewMockScriptRunner creates a new mock runner
func NewMockScriptRunner() *MockScriptRunner {
	return &MockScriptRunner{
		results: make(map[string]types.ExecutionResult),
		timeout: 300 * time.Second,
	}
}

// StubResult sets the result returned for an item/slot pair.
func (m *MockScriptRunner) StubResult(itemID string, slot types.ScriptSlot, result types.ExecutionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key(itemID, slot)] = result
}

// Run returns the stubbed result for the item/slot, falling back to the
// executor's absent-script semantics for empty bodies and success otherwise.
func (m *MockScriptRunner) Run(_ context.Context, item *types.ConfigItem, slot types.ScriptSlot, body string) types.ExecutionResult {
	m.mu.Lock()
	m.calls = append(m.calls, RunCall{ItemID: item.ID, Slot: slot, Body: body})
	stub, ok := m.results[key(item.ID, slot)]
	m.mu.Unlock()

	if ok {
		return stub
	}

	if body == "" {
		switch slot {
		case types.SlotValidate, types.SlotInstall:
			return types.ExecutionResult{
				Operation: types.Operation(slot),
				ItemID:    item.ID,
				Outcome:   types.OutcomeFailed,
				ExitCode:  1,
			}
		default:
			return types.ExecutionResult{
				Operation: types.Operation(slot),
				ItemID:    item.ID,
				Outcome:   types.OutcomeSkipped,
			}
		}
	}

	return types.ExecutionResult{
		Operation: types.Operation(slot),
		ItemID:    item.ID,
		Outcome:   types.OutcomeSuccess,
	}
}

// Timeout returns the mock timeout.
func (m *MockScriptRunner) Timeout() time.Duration {
	return m.timeout
}

// Calls returns a copy of the recorded invocations.
func (m *MockScriptRunner) Calls() []RunCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RunCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor returns the slots invoked for one item, in order.
func (m *MockScriptRunner) CallsFor(itemID string) []types.ScriptSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ScriptSlot
	for _, c := range m.calls {
		if c.ItemID == itemID {
			out = append(out, c.Slot)
		}
	}
	return out
}

func key(itemID string, slot types.ScriptSlot) string {
	return itemID + "/" + string(slot)
}

// MockNotifier records batch notifications
type MockNotifier struct {
	mu        sync.Mutex
	Starts    []types.Operation
	Completes []types.BatchSummary
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// NotifyBatchStart records a batch start
func (m *MockNotifier) NotifyBatchStart(operation types.Operation, itemCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Starts = append(m.Starts, operation)
}

// NotifyBatchComplete records a batch completion
func (m *MockNotifier) NotifyBatchComplete(operation types.Operation, summary types.BatchSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completes = append(m.Completes, summary)
}
