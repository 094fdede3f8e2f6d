package cmd

import (
	"context"
	"time"

	"github.com/kewos554321/blaze4harbor/adapter"
	"github.com/kewos554321/blaze4harbor/adapter/redis"
	"github.com/kewos554321/blaze4harbor/adapter/webhook"
	"github.com/kewos554321/blaze4harbor/cli/config"
	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/runtime"
	"github.com/kewos554321/blaze4harbor/types"
)

// notifyTimeout bounds delivery of the completion event.
const notifyTimeout = 30 * time.Second

// openNotifier builds the configured notifiers. It returns nil when none is configured.
func openNotifier(cfg config.NotifyConfig) (adapter.Adapter, error) {
	var f adapter.Fanout
	if cfg.Webhook.URL != "" {
		a, err := webhook.New(webhook.Config{
			URL:     cfg.Webhook.URL,
			Headers: cfg.Webhook.Headers,
			Timeout: cfg.Webhook.Timeout.Duration,
			Retries: cfg.Webhook.Retries,
		})
		if err != nil {
			return nil, err
		}
		f = append(f, a)
	}
	if cfg.Redis.URL != "" {
		a, err := redis.New(redis.Config{
			URL:     cfg.Redis.URL,
			Channel: cfg.Redis.Channel,
			Timeout: cfg.Redis.Timeout.Duration,
			Retries: cfg.Redis.Retries,
		})
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		f = append(f, a)
	}
	if len(f) == 0 {
		return nil, nil
	}
	return f, nil
}

// newRunCompletedEvent describes a finished run or publish.
func newRunCompletedEvent(meta *types.RunMeta, state runtime.State, exitCode int, resultDir string, p *runtime.PublishResult) *adapter.RunCompletedEvent {
	event := &adapter.RunCompletedEvent{
		EventType:  adapter.EventType,
		RunID:      meta.RunID,
		Tool:       meta.Tool,
		Version:    types.Version,
		State:      string(state),
		ExitCode:   exitCode,
		ResultDir:  resultDir,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		DurationMs: time.Since(meta.StartedAt).Milliseconds(),
	}
	if p != nil {
		event.Structured = adapter.NewBranchStatus(p.Structured)
		event.Blob = adapter.NewBranchStatus(p.Blob)
	}
	return event
}

// notify delivers event. Delivery outlives an interrupted run and its
// failures are only logged.
func notify(ctx context.Context, n adapter.Adapter, event *adapter.RunCompletedEvent, dryRun bool, logger *log.Logger) {
	if n == nil {
		return
	}
	if dryRun {
		logger.Info("dry-run: would send run completion event", map[string]any{
			"state":     event.State,
			"exit_code": event.ExitCode,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.Publish(ctx, event); err != nil {
		logger.Warn("run completion notification failed", map[string]any{"error": err})
		return
	}
	logger.Debug("run completion notification sent", nil)
}
