package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kewos554321/blaze4harbor/adapter"
	"github.com/kewos554321/blaze4harbor/cli/config"
	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/runtime"
	"github.com/kewos554321/blaze4harbor/types"
)

type recordingNotifier struct {
	events []*adapter.RunCompletedEvent
	ctxErr error
	err    error
}

func (r *recordingNotifier) Publish(ctx context.Context, e *adapter.RunCompletedEvent) error {
	r.events = append(r.events, e)
	r.ctxErr = ctx.Err()
	return r.err
}

func (r *recordingNotifier) Close() error { return nil }

func TestOpenNotifier(t *testing.T) {
	n, err := openNotifier(config.NotifyConfig{})
	if err != nil || n != nil {
		t.Fatalf("openNotifier(empty) = %v, %v; want nil, nil", n, err)
	}

	n, err = openNotifier(config.NotifyConfig{
		Webhook: config.WebhookConfig{URL: "https://hooks.example.com/runs"},
		Redis:   config.RedisConfig{URL: "redis://localhost:6379/0"},
	})
	if err != nil {
		t.Fatalf("openNotifier() error = %v", err)
	}
	defer func() { _ = n.Close() }()
	f, ok := n.(adapter.Fanout)
	if !ok || len(f) != 2 {
		t.Errorf("expected fanout of 2 adapters, got %T %v", n, n)
	}
}

func TestOpenNotifier_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NotifyConfig
	}{
		{"bad webhook url", config.NotifyConfig{Webhook: config.WebhookConfig{URL: "ftp://x"}}},
		{"bad redis url", config.NotifyConfig{Redis: config.RedisConfig{URL: "not-a-redis-url"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := openNotifier(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewRunCompletedEvent(t *testing.T) {
	meta := &types.RunMeta{RunID: "run-1", Tool: "/bin/harbor", StartedAt: time.Now().Add(-2 * time.Second)}
	p := &runtime.PublishResult{
		Structured: &types.UploadOutcome{Target: "ds.tbl", Succeeded: true, Attempted: 1},
	}

	e := newRunCompletedEvent(meta, runtime.StateDone, 0, "jobs/run1", p)

	if e.EventType != adapter.EventType || e.RunID != "run-1" || e.Tool != "/bin/harbor" {
		t.Errorf("unexpected identity fields: %+v", e)
	}
	if e.State != "DONE" || e.ResultDir != "jobs/run1" {
		t.Errorf("unexpected state fields: %+v", e)
	}
	if e.Structured == nil || e.Structured.Target != "ds.tbl" {
		t.Errorf("Structured = %+v", e.Structured)
	}
	if e.Blob != nil {
		t.Errorf("skipped blob branch should be nil, got %+v", e.Blob)
	}
	if e.DurationMs < 2000 {
		t.Errorf("DurationMs = %d, want >= 2000", e.DurationMs)
	}
	if _, err := time.Parse(time.RFC3339, e.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC 3339: %v", e.Timestamp, err)
	}

	aborted := newRunCompletedEvent(meta, runtime.StateAborted, 2, "", nil)
	if aborted.Structured != nil || aborted.Blob != nil || aborted.ExitCode != 2 {
		t.Errorf("unexpected aborted event: %+v", aborted)
	}
}

func TestNotify_DeliversAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := &recordingNotifier{}
	notify(ctx, n, &adapter.RunCompletedEvent{RunID: "run-1"}, false, log.Nop())

	if len(n.events) != 1 {
		t.Fatalf("events = %d, want 1", len(n.events))
	}
	if n.ctxErr != nil {
		t.Errorf("delivery context should not inherit cancellation, got %v", n.ctxErr)
	}
}

func TestNotify_DryRunAndNil(t *testing.T) {
	n := &recordingNotifier{}
	notify(context.Background(), n, &adapter.RunCompletedEvent{}, true, log.Nop())
	if len(n.events) != 0 {
		t.Errorf("dry run should not deliver, got %d events", len(n.events))
	}

	// Must not panic.
	notify(context.Background(), nil, &adapter.RunCompletedEvent{}, false, log.Nop())
}

func TestNotify_FailureIsLogged(t *testing.T) {
	n := &recordingNotifier{err: errors.New("unreachable")}
	notify(context.Background(), n, &adapter.RunCompletedEvent{}, false, log.Nop())
	if len(n.events) != 1 {
		t.Errorf("events = %d, want 1", len(n.events))
	}
}
