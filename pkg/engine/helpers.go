package engine

import (
	"context"

	"github.com/macsnap/macsnap/pkg/executor"
	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/types"
	"github.com/macsnap/macsnap/pkg/validation"
)

// InstallItems installs the given items with a throwaway engine instance.
func InstallItems(ctx context.Context, items map[string]*types.ConfigItem, itemIDs []string, log logger.Logger) []types.ExecutionResult {
	e := New(executor.New(log), validation.New(), log)
	return e.BatchProcess(ctx, items, itemIDs, types.OperationInstall)
}

// CheckStatuses runs the validate slot for each requested item without
// touching run state. Unknown ids are ignored.
func CheckStatuses(ctx context.Context, items map[string]*types.ConfigItem, itemIDs []string, log logger.Logger) []types.ExecutionResult {
	e := New(executor.New(log), validation.New(), log)

	results := make([]types.ExecutionResult, 0, len(itemIDs))
	for _, id := range itemIDs {
		if item, ok := items[id]; ok {
			results = append(results, e.CheckStatus(ctx, item))
		}
	}
	return results
}
