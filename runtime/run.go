package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kewos554321/blaze4harbor/iox"
	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/metrics"
	"github.com/kewos554321/blaze4harbor/types"
)

// captureFilePattern names the temporary capture file.
const captureFilePattern = "blaze4harbor-*.log"

// RunConfig configures a single wrap-and-publish run.
type RunConfig struct {
	// Command is the wrapped tool executable.
	Command string
	// Args are passed to Command verbatim.
	Args []string
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Runner overrides process execution (for testing).
	// If nil, uses a ProcessRunner bound to the process's stdio.
	Runner Runner
	// Structured publishes the artifact row. Nil skips the branch.
	Structured StructuredPublisher
	// Blob publishes the result directory. Nil skips the branch.
	Blob BlobPublisher
	// Collector is the metrics collector for this run.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Logger defaults to a logger carrying RunMeta.
	Logger *log.Logger
	// Announce is called with each phase banner. May be nil.
	Announce func(Phase)
}

// RunResult represents the result of a run.
type RunResult struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// State is the terminal state: DONE or ABORTED.
	State State
	// ExitCode is the process exit code to propagate.
	ExitCode int
	// Captured is the wrapped tool execution, nil if it never started.
	Captured *types.CapturedRun
	// ResultDir is the located result directory, empty if not found.
	ResultDir string
	// Publish is nil unless the run reached PUBLISHING.
	Publish *PublishResult
	// Metrics is the publish counter snapshot at the end of the run.
	Metrics metrics.Snapshot
	// Duration is the total run duration.
	Duration time.Duration
}

// RunOrchestrator sequences ProcessRunner → Locate → LoadArtifact → publishers.
type RunOrchestrator struct {
	config    *RunConfig
	logger    *log.Logger
	state     State
	startTime time.Time
}

// NewRunOrchestrator creates a new run orchestrator.
// Returns error if run metadata is invalid.
func NewRunOrchestrator(config *RunConfig) (*RunOrchestrator, error) {
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = log.NewLogger(config.RunMeta, log.Options{})
		if err != nil {
			return nil, err
		}
	}
	return &RunOrchestrator{
		config: config,
		logger: logger,
		state:  StateRunning,
	}, nil
}

// Execute runs the wrapped tool and publishes its results.
//
// The returned RunResult is never nil; its ExitCode is authoritative. The
// error is non-nil only for ABORTED runs and explains the abort.
// The temporary capture file is removed on every path.
func (r *RunOrchestrator) Execute(ctx context.Context) (*RunResult, error) {
	r.startTime = time.Now()
	result := &RunResult{RunMeta: r.config.RunMeta}

	capture, err := iox.CreateTemp(captureFilePattern)
	if err != nil {
		return r.abort(result, ExitCodeFailure, fmt.Errorf("create capture file: %w", err))
	}
	defer func() {
		if rmErr := capture.Remove(); rmErr != nil {
			r.logger.Warn("failed to remove capture file", map[string]any{
				"path":  capture.Path(),
				"error": rmErr,
			})
		}
	}()

	// RUNNING
	r.announce(PhaseRun)
	r.logger.Info("starting wrapped tool", map[string]any{
		"command": r.config.Command,
		"args":    r.config.Args,
	})
	captured, err := r.runner().Run(ctx, r.config.Command, r.config.Args, capture.Path())
	result.Captured = captured
	if err != nil {
		var toolErr *ToolFailureError
		switch {
		case errors.Is(err, ErrInterrupted):
			return r.abort(result, ExitCodeInterrupted, err)
		case errors.As(err, &toolErr):
			return r.abort(result, toolErr.ExitStatus, err)
		default:
			return r.abort(result, ExitCodeFailure, err)
		}
	}

	// LOCATING
	r.transition(StateLocating)
	r.announce(PhaseLocate)
	dir, err := LocateCaptured(captured)
	if err != nil {
		r.logger.Warn("could not extract results directory from output, skipping publish", map[string]any{
			"error": err,
		})
		return r.finish(result), nil
	}
	result.ResultDir = dir
	r.logger.Info("found results directory", map[string]any{"dir": dir})
	if err := ctx.Err(); err != nil {
		return r.abort(result, ExitCodeInterrupted, fmt.Errorf("%w: %v", ErrInterrupted, err))
	}

	// LOADING
	r.transition(StateLoading)
	phase := &PublishPhase{
		Structured: r.config.Structured,
		Blob:       r.config.Blob,
		Collector:  r.config.Collector,
		Logger:     r.logger,
		Announce:   r.config.Announce,
	}
	published := &PublishResult{}
	published.Artifact, published.ArtifactErr = phase.Load(dir)

	// PUBLISHING
	r.transition(StatePublishing)
	phase.Publish(ctx, dir, published)
	result.Publish = published
	if err := ctx.Err(); err != nil {
		return r.abort(result, ExitCodeInterrupted, fmt.Errorf("%w: %v", ErrInterrupted, err))
	}

	return r.finish(result), nil
}

func (r *RunOrchestrator) runner() Runner {
	if r.config.Runner != nil {
		return r.config.Runner
	}
	return NewProcessRunner(r.logger)
}

func (r *RunOrchestrator) announce(phase Phase) {
	if r.config.Announce != nil {
		r.config.Announce(phase)
	}
}

func (r *RunOrchestrator) transition(to State) {
	if !next(r.state, to) {
		panic(fmt.Sprintf("runtime: illegal transition %s → %s", r.state, to))
	}
	r.logger.Debug("state transition", map[string]any{
		"from": string(r.state),
		"to":   string(to),
	})
	r.state = to
}

func (r *RunOrchestrator) finish(result *RunResult) *RunResult {
	r.transition(StateDone)
	result.State = StateDone
	result.ExitCode = ExitCodeSuccess
	return r.seal(result)
}

func (r *RunOrchestrator) abort(result *RunResult, code int, err error) (*RunResult, error) {
	r.transition(StateAborted)
	result.State = StateAborted
	result.ExitCode = code

	fields := map[string]any{"exit_code": code, "error": err}
	switch code {
	case ExitCodeInterrupted:
		r.logger.Warn("execution interrupted by user", fields)
	default:
		r.logger.Error("run aborted", fields)
	}
	return r.seal(result), err
}

func (r *RunOrchestrator) seal(result *RunResult) *RunResult {
	result.Duration = time.Since(r.startTime)
	result.Metrics = r.config.Collector.Snapshot()
	if result.Publish != nil {
		r.logger.Info("publish summary", result.Metrics.Fields())
	}
	return result
}
