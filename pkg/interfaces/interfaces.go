// Package interfaces provides abstractions for dependency injection and testability
package interfaces

import (
	"context"
	"time"

	"github.com/macsnap/macsnap/pkg/types"
	"github.com/macsnap/macsnap/pkg/validation"
)

// ScriptRunner abstracts script execution for a single item slot
type ScriptRunner interface {
	Run(ctx context.Context, item *types.ConfigItem, slot types.ScriptSlot, body string) types.ExecutionResult
	Timeout() time.Duration
}

// ConfigValidator abstracts validation and dependency ordering
type ConfigValidator interface {
	ValidateAll(items map[string]*types.ConfigItem) (errors, warnings []validation.Issue)
	DependencyOrder(items map[string]*types.ConfigItem) ([]string, error)
}

// BatchNotifier receives batch lifecycle notifications
type BatchNotifier interface {
	NotifyBatchStart(operation types.Operation, itemCount int)
	NotifyBatchComplete(operation types.Operation, summary types.BatchSummary)
}
