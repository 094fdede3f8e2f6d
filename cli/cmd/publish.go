package cmd

import (
	"context"
	"errors"
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

// PublishCommand returns the publish command.
// It publishes an existing harbor result directory without running harbor.
func PublishCommand() *cli.Command {
	flags := append(storeFlags(),
		&cli.BoolFlag{
			Name:  "skip-structured",
			Usage: "Do not insert the result row",
		},
		&cli.BoolFlag{
			Name:  "skip-blob",
			Usage: "Do not upload result files",
		},
		&cli.IntFlag{
			Name:  "schema-version",
			Usage: "Results schema version (0 selects the latest)",
		},
		FormatFlag,
	)
	return &cli.Command{
		Name:      "publish",
		Usage:     "Upload an existing harbor result directory",
		ArgsUsage: "<task_dir>",
		Flags:     flags,
		Action:    publishAction,
	}
}

func publishAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("publish requires exactly one <task_dir> argument", runtime.ExitCodeFailure)
	}
	dir := c.Args().First()
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return cli.Exit(fmt.Sprintf("task directory not found: %s", dir), runtime.ExitCodeFailure)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}

	tool := cfg.HarborPath
	if tool == "" {
		tool = "harbor"
	}
	meta := &types.RunMeta{RunID: uuid.NewString(), Tool: tool, StartedAt: time.Now()}
	logger, err := newLogger(meta, cfg)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeFailure)
	}
	defer func() { _ = logger.Sync() }()

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
	phase := &runtime.PublishPhase{
		Structured: pubs.structured,
		Blob:       pubs.blob,
		Collector:  collector,
		Logger:     logger,
	}
	if !c.IsSet(FormatFlag.Name) {
		phase.Announce = b.Announce
	}
	result := phase.Run(ctx, dir)
	snapshot := collector.Snapshot()

	if c.IsSet(FormatFlag.Name) {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeFailure)
		}
		if err := r.Render(newPublishReport(meta.RunID, dir, result, snapshot)); err != nil {
			return err
		}
	} else {
		printPublishSummary(os.Stdout, b, result, snapshot)
	}

	code := publishExitCode(ctx, pubs.structured != nil, result)
	notify(ctx, pubs.notifier, newRunCompletedEvent(meta, runtime.StateDone, code, dir, result), cfg.DryRun, logger)

	return cli.Exit("", code)
}

// publishExitCode maps a standalone publish to an exit code. Unlike the
// wrapped flow, any failed branch, or a structured branch left without a
// result.json, is a failure.
func publishExitCode(ctx context.Context, structuredEnabled bool, result *runtime.PublishResult) int {
	if errors.Is(ctx.Err(), context.Canceled) {
		return runtime.ExitCodeInterrupted
	}
	if result.Failed() {
		return runtime.ExitCodeFailure
	}
	if structuredEnabled && result.Artifact == nil {
		return runtime.ExitCodeFailure
	}
	return runtime.ExitCodeSuccess
}
