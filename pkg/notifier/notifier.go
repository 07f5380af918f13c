// Package notifier provides desktop notifications for batch operations
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/types"
)

// BatchNotifier sends one desktop notification per batch lifecycle event
type BatchNotifier struct {
	enabled bool
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
}

// New creates a new batch notifier
func New(config Config, log logger.Logger) *BatchNotifier {
	return &BatchNotifier{
		enabled: config.Enabled,
		logger:  log,
	}
}

// NotifyBatchStart notifies that a batch operation has started
func (n *BatchNotifier) NotifyBatchStart(operation types.Operation, itemCount int) {
	if !n.enabled {
		return
	}

	title := "MacSnap"
	message := fmt.Sprintf("Running %s for %d items...", operation, itemCount)
	n.send(title, message)
}

// NotifyBatchComplete notifies that a batch operation has finished
func (n *BatchNotifier) NotifyBatchComplete(operation types.Operation, summary types.BatchSummary) {
	if !n.enabled {
		return
	}

	failed := summary.ByOutcome[types.OutcomeFailed]
	skipped := summary.ByOutcome[types.OutcomeSkipped]

	var title string
	if failed > 0 {
		title = "❌ MacSnap: batch finished with failures"
	} else {
		title = "✅ MacSnap: batch complete"
	}

	message := fmt.Sprintf("%s: %d operations in %s (%d failed, %d skipped)",
		operation, summary.TotalOperations, formatDuration(summary.TotalDuration), failed, skipped)

	n.send(title, message)
}

func (n *BatchNotifier) send(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		if n.logger != nil {
			n.logger.Debug("Failed to send notification", logger.WithField("error", err))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
