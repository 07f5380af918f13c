package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/macsnap/macsnap/pkg/config"
	"github.com/macsnap/macsnap/pkg/engine"
	"github.com/macsnap/macsnap/pkg/executor"
	"github.com/macsnap/macsnap/pkg/logger"
	"github.com/macsnap/macsnap/pkg/notifier"
	"github.com/macsnap/macsnap/pkg/types"
	"github.com/macsnap/macsnap/pkg/validation"
)

// timeRounding keeps printed durations readable
const timeRounding = 10 * time.Millisecond

func newLogger() logger.Logger {
	return logger.CreateLogger(logFile, verbosity)
}

// console is the user-facing output channel, distinct from the log stream
var console = logger.NewConsoleLogger()

func loadItems(log logger.Logger) (*config.Loader, map[string]*types.ConfigItem, error) {
	loader := config.NewLoader(configsDir, log)
	items, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return loader, items, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("macsnap v%s\n", version)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available items grouped by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			loader, _, err := loadItems(log)
			if err != nil {
				return err
			}

			for _, category := range loader.Categories() {
				fmt.Println(color.New(color.Bold).Sprint(category))
				for _, item := range loader.ItemsByCategory(category) {
					marker := " "
					if item.SelectedByDefault {
						marker = "*"
					}
					fmt.Printf("  [%s] %-30s %s (%s)\n", marker, item.ID, item.Name, item.Type)
				}
			}

			stats := loader.Stats()
			fmt.Printf("\n%d items in %d categories (%d selected by default)\n",
				stats.TotalItems, stats.TotalCategories, stats.SelectedByDefault)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate item definitions and their dependency graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			_, items, err := loadItems(log)
			if err != nil {
				return err
			}

			v := validation.New()
			errs, warnings := v.ValidateAll(items)

			for _, w := range warnings {
				console.Warn(w.String())
			}
			for _, e := range errs {
				console.Error(e.String())
			}

			summary := validation.Summarize(errs, warnings)
			if !summary.IsValid {
				return fmt.Errorf("validation failed: %d errors, %d warnings",
					summary.TotalErrors, summary.TotalWarnings)
			}

			if _, err := v.DependencyOrder(items); err != nil {
				return err
			}

			console.Success(fmt.Sprintf("%d items valid (%d warnings)",
				len(items), summary.TotalWarnings))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [item-id...]",
		Short: "Check installation status via each item's validate script",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			loader, items, err := loadItems(log)
			if err != nil {
				return err
			}

			ids := args
			if len(ids) == 0 {
				ids = loader.SelectedByDefault()
			}

			results := engine.CheckStatuses(cmd.Context(), items, ids, log)
			for _, r := range results {
				if r.Outcome == types.OutcomeSuccess {
					fmt.Printf("%s %s\n", color.GreenString("installed"), r.ItemID)
				} else {
					fmt.Printf("%s %s\n", color.YellowString("not installed"), r.ItemID)
				}
			}
			return nil
		},
	}
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [item-id...]",
		Short: "Install items and their dependencies",
		Long: `Install the given items (or every item marked selected_by_default when
no ids are given) together with their transitive dependencies, in dependency
order. Items whose validate script reports success are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), args, types.OperationInstall)
		},
	}
}

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall [item-id...]",
		Short: "Uninstall items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), args, types.OperationUninstall)
		},
	}
}

func newConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure [item-id...]",
		Short: "Run configure scripts for items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), args, types.OperationConfigure)
		},
	}
}

func runBatch(ctx context.Context, args []string, operation types.Operation) error {
	log := newLogger()
	loader, items, err := loadItems(log)
	if err != nil {
		return err
	}

	v := validation.New()
	if errs, _ := v.ValidateAll(items); len(errs) > 0 {
		for _, e := range errs {
			console.Error(e.String())
		}
		return fmt.Errorf("validation failed: %d errors", len(errs))
	}

	ids := args
	if len(ids) == 0 {
		ids = loader.SelectedByDefault()
	}
	if len(ids) == 0 {
		return fmt.Errorf("no items selected: pass item ids or mark items selected_by_default")
	}

	opts := []engine.Option{}
	if notify {
		opts = append(opts, engine.WithNotifier(notifier.New(notifier.Config{Enabled: true}, log)))
	}

	eng := engine.New(executor.New(log, executor.WithTimeout(timeout)), v, log, opts...)
	results := eng.BatchProcess(ctx, items, ids, operation)

	printResults(results)
	printSummary(eng.Summary())

	for _, r := range results {
		if r.Outcome == types.OutcomeFailed {
			return fmt.Errorf("batch %s finished with failures", operation)
		}
	}
	return nil
}

func printResults(results []types.ExecutionResult) {
	for _, r := range results {
		var label string
		switch r.Outcome {
		case types.OutcomeSuccess:
			label = color.GreenString("ok      ")
		case types.OutcomeAlreadyInstalled:
			label = color.CyanString("present ")
		case types.OutcomeSkipped:
			label = color.YellowString("skipped ")
		case types.OutcomeFailed:
			label = color.RedString("failed  ")
		}

		fmt.Printf("%s %s (%s)\n", label, r.ItemID, r.Duration.Round(timeRounding))
		if r.Outcome == types.OutcomeFailed && r.ErrorMessage != "" {
			fmt.Printf("         %s\n", color.RedString(r.ErrorMessage))
		}
	}
}

func printSummary(s types.BatchSummary) {
	console.Info(fmt.Sprintf("%d operations in %s: %d ok, %d present, %d failed, %d skipped",
		s.TotalOperations,
		s.TotalDuration.Round(timeRounding),
		s.ByOutcome[types.OutcomeSuccess],
		s.ByOutcome[types.OutcomeAlreadyInstalled],
		s.ByOutcome[types.OutcomeFailed],
		s.ByOutcome[types.OutcomeSkipped]))
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the configs directory and re-validate on changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			loader, items, err := loadItems(log)
			if err != nil {
				return err
			}

			v := validation.New()
			reportValidation(log, v, items)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			group, ctx := NewSafeGroup(ctx, log)

			reload := config.NewReloadManager(loader, log)
			reload.AddCallback(func(items map[string]*types.ConfigItem, err error) {
				if err != nil {
					return
				}
				reportValidation(log, v, items)
			})

			if err := reload.Start(ctx); err != nil {
				return err
			}
			defer reload.Stop()

			group.Go(func() error {
				<-ctx.Done()
				return nil
			})

			return group.Wait()
		},
	}
}

func reportValidation(log logger.Logger, v *validation.Validator, items map[string]*types.ConfigItem) {
	errs, warnings := v.ValidateAll(items)
	if len(errs) > 0 {
		log.Error("Validation errors", logger.WithField("count", len(errs)))
		for _, e := range errs {
			log.Error(e.String())
		}
		return
	}
	log.Success(fmt.Sprintf("%d items valid (%d warnings)", len(items), len(warnings)))
}
