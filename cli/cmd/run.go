package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/kewos554321/blaze4harbor/cli/render"
	"github.com/kewos554321/blaze4harbor/metrics"
	"github.com/kewos554321/blaze4harbor/runtime"
	"github.com/kewos554321/blaze4harbor/types"
)

// HarborAction runs harbor with the remaining arguments and publishes its results.
// It is the application's default action: any argument list that does not
// start with a blaze4harbor command is passed to harbor verbatim.
//
// Exit codes:
//   - 0: success, or publishing skipped/failed after a successful run
//   - harbor's own code when harbor fails
//   - 130: interrupted
//   - 1: configuration or unexpected error
func HarborAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}
	if err := cfg.ValidateEnvironment(); err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}

	meta := &types.RunMeta{
		RunID:     uuid.NewString(),
		Tool:      cfg.HarborPath,
		StartedAt: time.Now(),
	}
	logger, err := newLogger(meta, cfg)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}
	defer func() { _ = logger.Sync() }()

	args, err := ensureOutputArg(c.Args().Slice(), cfg.OutputPath(), logger)
	if err != nil {
		logger.Error("cannot prepare harbor arguments", map[string]any{"error": err})
		return cli.Exit("", runtime.ExitCodeFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(cfg.Structured.Backend, cfg.Blob.Backend, meta.RunID)
	pubs, err := openPublishers(ctx, cfg, collector, logger)
	if err != nil {
		logger.Error("cannot open stores", map[string]any{"error": err})
		return cli.Exit("", runtime.ExitCodeFailure)
	}
	defer func() {
		if err := pubs.Close(); err != nil {
			logger.Warn("failed to close stores", map[string]any{"error": err})
		}
	}()

	b := newBanner(os.Stdout, !c.Bool(NoColorFlag.Name) && render.IsTerminal(os.Stdout))
	orchestrator, err := runtime.NewRunOrchestrator(&runtime.RunConfig{
		Command:    cfg.HarborPath,
		Args:       args,
		RunMeta:    meta,
		Runner:     &runtime.ProcessRunner{Strategy: cfg.Capture, Logger: logger},
		Structured: pubs.structured,
		Blob:       pubs.blob,
		Collector:  collector,
		Logger:     logger,
		Announce:   b.Announce,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	// The orchestrator logs why a run aborted; the exit code carries the rest.
	result, _ := orchestrator.Execute(ctx)
	if result.Publish != nil {
		printRunSummary(os.Stdout, b, result)
	}
	notify(ctx, pubs.notifier,
		newRunCompletedEvent(meta, result.State, result.ExitCode, result.ResultDir, result.Publish),
		cfg.DryRun, logger)

	return cli.Exit("", result.ExitCode)
}
