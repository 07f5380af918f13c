// Package engine orchestrates validation and script execution across batches
// of configuration items, walking selections in dependency order and
// propagating failures to dependents.
package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/macsnap/macsnap/pkg/interfaces"
	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/types"
)

// Engine handles installation, configuration, and management of items.
// An Engine instance is not safe for concurrent batches; callers must
// serialize access or use separate instances.
type Engine struct {
	runner    interfaces.ScriptRunner
	validator interfaces.ConfigValidator
	notifier  interfaces.BatchNotifier
	logger    logger.Logger

	state   *RunState
	results []types.ExecutionResult
}

// Option configures an Engine
type Option func(*Engine)

// WithNotifier attaches a batch notifier
func WithNotifier(n interfaces.BatchNotifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// New creates a new engine
func New(runner interfaces.ScriptRunner, validator interfaces.ConfigValidator, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		runner:    runner,
		validator: validator,
		logger:    log,
		state:     NewRunState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckStatus checks whether an item is already installed by running its
// validate script. An absent validate script means the item is assumed not
// installed.
func (e *Engine) CheckStatus(ctx context.Context, item *types.ConfigItem) types.ExecutionResult {
	e.logger.WithItem(item.ID).Debug("Checking installation status")
	return e.runner.Run(ctx, item, types.SlotValidate, item.ValidateScript)
}

// InstallItem installs an item using its install script and records the
// outcome in the run state.
func (e *Engine) InstallItem(ctx context.Context, item *types.ConfigItem) types.ExecutionResult {
	e.logger.WithItem(item.ID).Info("Installing " + item.Name)
	result := e.runner.Run(ctx, item, types.SlotInstall, item.InstallScript)

	if result.Outcome == types.OutcomeSuccess {
		e.state.MarkInstalled(item.ID)
	} else {
		e.state.MarkFailed(item.ID)
	}

	return result
}

// ConfigureItem configures an item using its configure script. A missing
// script yields a Skipped result, not an error.
func (e *Engine) ConfigureItem(ctx context.Context, item *types.ConfigItem) types.ExecutionResult {
	e.logger.WithItem(item.ID).Info("Configuring " + item.Name)
	return e.runner.Run(ctx, item, types.SlotConfigure, item.ConfigureScript)
}

// UninstallItem uninstalls an item using its uninstall script. On success
// the item leaves the installed set.
func (e *Engine) UninstallItem(ctx context.Context, item *types.ConfigItem) types.ExecutionResult {
	e.logger.WithItem(item.ID).Info("Uninstalling " + item.Name)
	result := e.runner.Run(ctx, item, types.SlotUninstall, item.UninstallScript)

	if result.Outcome == types.OutcomeSuccess {
		e.state.ClearInstalled(item.ID)
	}

	return result
}

// BatchProcess processes the selected items plus their transitive
// dependencies in dependency order, dispatching the requested operation per
// item. Per-item script failures never abort the batch; they only cause
// dependents within the same closure to be skipped. The batch aborts (with
// an empty result list) only when validation errors exist or the dependency
// graph contains a cycle.
func (e *Engine) BatchProcess(ctx context.Context, items map[string]*types.ConfigItem, selectedIDs []string, operation types.Operation) []types.ExecutionResult {
	runID := uuid.NewString()
	log := e.logger
	log.Info("Starting batch operation",
		logger.WithField("run", runID),
		logger.WithField("operation", operation),
		logger.WithField("selected", len(selectedIDs)),
		logger.WithField("scriptTimeout", e.runner.Timeout()))

	// Defensive re-check; callers are expected to have validated already
	errs, _ := e.validator.ValidateAll(items)
	if len(errs) > 0 {
		log.Error("Configuration errors found, aborting batch",
			logger.WithField("run", runID),
			logger.WithField("errors", len(errs)))
		for _, issue := range errs {
			log.Error(issue.String())
		}
		return []types.ExecutionResult{}
	}

	order, err := e.validator.DependencyOrder(items)
	if err != nil {
		log.Error("Cannot determine dependency order",
			logger.WithField("run", runID),
			logger.WithField("error", err))
		return []types.ExecutionResult{}
	}

	toProcess := closureOrder(items, selectedIDs, order)
	log.Info("Processing items in dependency order",
		logger.WithField("run", runID),
		logger.WithField("count", len(toProcess)))

	if e.notifier != nil {
		e.notifier.NotifyBatchStart(operation, len(toProcess))
	}

	results := make([]types.ExecutionResult, 0, len(toProcess))

	for _, itemID := range toProcess {
		item, ok := items[itemID]
		if !ok {
			continue
		}

		if e.state.Unsatisfied(item.Dependencies) {
			result := types.ExecutionResult{
				Operation:    operation,
				ItemID:       itemID,
				Outcome:      types.OutcomeSkipped,
				Stderr:       "Dependencies not satisfied",
				ErrorMessage: "Skipped due to failed dependencies",
			}
			e.state.MarkSkipped(itemID)
			results = append(results, result)
			e.results = append(e.results, result)
			continue
		}

		var result types.ExecutionResult
		switch operation {
		case types.OperationInstall:
			result = e.handleInstall(ctx, item)
		case types.OperationUninstall:
			result = e.UninstallItem(ctx, item)
		case types.OperationConfigure:
			result = e.ConfigureItem(ctx, item)
		default:
			result = types.ExecutionResult{
				Operation:    operation,
				ItemID:       itemID,
				Outcome:      types.OutcomeFailed,
				ExitCode:     1,
				ErrorMessage: "unknown operation: " + string(operation),
			}
			e.state.MarkFailed(itemID)
		}

		results = append(results, result)
		e.results = append(e.results, result)
	}

	summary := summarize(results, e.state)
	log.Info("Batch operation completed",
		logger.WithField("run", runID),
		logger.WithField("operation", operation),
		logger.WithField("total", summary.TotalOperations),
		logger.WithField("failed", summary.ByOutcome[types.OutcomeFailed]),
		logger.WithField("skipped", summary.ByOutcome[types.OutcomeSkipped]))

	if e.notifier != nil {
		e.notifier.NotifyBatchComplete(operation, summary)
	}

	return results
}

// handleInstall runs the full install pipeline: validate, install, then
// configure. A passing validate script short-circuits to AlreadyInstalled.
// A configure failure becomes the item's final result and marks the item
// failed for propagation even though the install itself succeeded.
func (e *Engine) handleInstall(ctx context.Context, item *types.ConfigItem) types.ExecutionResult {
	validateResult := e.CheckStatus(ctx, item)
	if validateResult.Outcome == types.OutcomeSuccess {
		e.logger.WithItem(item.ID).Debug("Already installed, skipping installation")
		return types.ExecutionResult{
			Operation: types.OperationInstall,
			ItemID:    item.ID,
			Outcome:   types.OutcomeAlreadyInstalled,
			Stdout:    validateResult.Stdout,
			Stderr:    "Already installed",
			Duration:  validateResult.Duration,
		}
	}

	installResult := e.InstallItem(ctx, item)
	if installResult.Outcome != types.OutcomeSuccess {
		return installResult
	}

	if item.HasScript(types.SlotConfigure) {
		configureResult := e.ConfigureItem(ctx, item)
		if configureResult.Outcome != types.OutcomeSuccess {
			e.state.MarkFailed(item.ID)
			return configureResult
		}
	}

	return installResult
}

// Summary aggregates every result recorded by this engine instance.
func (e *Engine) Summary() types.BatchSummary {
	return summarize(e.results, e.state)
}

// Results returns a copy of the cumulative result log.
func (e *Engine) Results() []types.ExecutionResult {
	out := make([]types.ExecutionResult, len(e.results))
	copy(out, e.results)
	return out
}

// Reset clears the cumulative results and the run state.
func (e *Engine) Reset() {
	e.results = nil
	e.state.Reset()
}

// closureOrder expands the selection to its transitive dependency closure
// and returns the members filtered from the global order, preserving
// relative order so dependencies precede dependents.
func closureOrder(items map[string]*types.ConfigItem, selectedIDs []string, order []string) []string {
	needed := make(map[string]bool, len(selectedIDs))
	worklist := make([]string, 0, len(selectedIDs))

	for _, id := range selectedIDs {
		if !needed[id] {
			needed[id] = true
			worklist = append(worklist, id)
		}
	}

	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		item, ok := items[id]
		if !ok {
			continue
		}
		for _, depID := range item.Dependencies {
			if !needed[depID] {
				needed[depID] = true
				worklist = append(worklist, depID)
			}
		}
	}

	out := make([]string, 0, len(needed))
	for _, id := range order {
		if needed[id] {
			out = append(out, id)
		}
	}
	return out
}

func summarize(results []types.ExecutionResult, state *RunState) types.BatchSummary {
	s := types.BatchSummary{
		TotalOperations: len(results),
		ByOutcome:       make(map[types.Outcome]int),
		ByOperation:     make(map[types.Operation]int),
		InstalledItems:  state.InstalledCount(),
		FailedItemIDs:   state.FailedIDs(),
		SkippedItemIDs:  state.SkippedIDs(),
	}
	for _, r := range results {
		s.ByOutcome[r.Outcome]++
		s.ByOperation[r.Operation]++
		s.TotalDuration += r.Duration
	}
	return s
}
