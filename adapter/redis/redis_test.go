package redis

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kewos554321/blaze4harbor/adapter"
	"github.com/kewos554321/blaze4harbor/types"
)

// abortedEvent is a run interrupted with SIGINT before any result was located.
func abortedEvent() *adapter.RunCompletedEvent {
	return &adapter.RunCompletedEvent{
		EventType:  adapter.EventType,
		RunID:      "run-interrupted",
		Tool:       "/usr/local/bin/harbor",
		Version:    types.Version,
		State:      "ABORTED",
		ExitCode:   130,
		Timestamp:  "2026-02-07T12:00:00Z",
		DurationMs: 4100,
	}
}

// subscribe returns a channel receiving the next message on channel.
// The receiving goroutine must start before Publish: miniredis delivers
// pub/sub messages synchronously.
func subscribe(t *testing.T, mr *miniredis.Miniredis, channel string) <-chan miniredis.PubsubMessage {
	t.Helper()
	sub := mr.NewSubscriber()
	sub.Subscribe(channel)
	ch := make(chan miniredis.PubsubMessage, 1)
	go func() {
		ch <- <-sub.Messages()
	}()
	return ch
}

func receive(t *testing.T, ch <-chan miniredis.PubsubMessage) map[string]any {
	t.Helper()
	select {
	case msg := <-ch:
		var body map[string]any
		if err := json.Unmarshal([]byte(msg.Message), &body); err != nil {
			t.Fatalf("unmarshal %q: %v", msg.Message, err)
		}
		return body
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return nil
	}
}

func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestPublish_AbortedEventOnDefaultChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newAdapter(t, Config{URL: "redis://" + mr.Addr()})
	ch := subscribe(t, mr, DefaultChannel)

	if err := a.Publish(t.Context(), abortedEvent()); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	body := receive(t, ch)

	if body["event_type"] != "run_completed" || body["run_id"] != "run-interrupted" {
		t.Errorf("body = %v", body)
	}
	if body["state"] != "ABORTED" || body["exit_code"] != float64(130) {
		t.Errorf("state/exit_code = %v/%v, want ABORTED/130", body["state"], body["exit_code"])
	}
	for _, key := range []string{"result_dir", "structured", "blob"} {
		if _, ok := body[key]; ok {
			t.Errorf("aborted run should omit %q: %v", key, body)
		}
	}
}

func TestPublish_FailedBranchStatus(t *testing.T) {
	mr := miniredis.RunT(t)
	channel := "bench:results"
	a := newAdapter(t, Config{URL: "redis://" + mr.Addr(), Channel: channel})
	ch := subscribe(t, mr, channel)

	rows := &types.UploadOutcome{Target: "tb_results.tb_results_table", Attempted: 1}
	rows.AddError("row-1", errors.New("no such field: stats.evals.extra"))
	files := types.FailedOutcome("tb-results", errors.New("bucket tb-results: access denied"))
	event := &adapter.RunCompletedEvent{
		EventType:  adapter.EventType,
		RunID:      "run-partial",
		Tool:       "harbor",
		Version:    types.Version,
		State:      "DONE",
		ResultDir:  "jobs/2026-02-07__12-00-00",
		Structured: adapter.NewBranchStatus(rows),
		Blob:       adapter.NewBranchStatus(files),
		Timestamp:  "2026-02-07T12:00:00Z",
	}
	if err := a.Publish(t.Context(), event); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	body := receive(t, ch)

	structured, _ := body["structured"].(map[string]any)
	if structured["succeeded"] != false || structured["attempted"] != float64(1) || structured["failed"] != float64(1) {
		t.Errorf("structured = %v", structured)
	}
	blob, _ := body["blob"].(map[string]any)
	if blob["succeeded"] != false || blob["target"] != "tb-results" || blob["error"] != "bucket tb-results: access denied" {
		t.Errorf("blob = %v", blob)
	}
	if body["exit_code"] != float64(0) {
		t.Errorf("exit_code = %v, upload failures must not change it", body["exit_code"])
	}
}

func TestPublish_DefaultIsSingleAttempt(t *testing.T) {
	a := newAdapter(t, Config{URL: "redis://127.0.0.1:1", Timeout: 200 * time.Millisecond})

	err := a.Publish(t.Context(), abortedEvent())
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if !strings.Contains(err.Error(), "failed after 1 attempts") {
		t.Errorf("err = %v, want a single attempt", err)
	}
	if !strings.Contains(err.Error(), DefaultChannel) {
		t.Errorf("err = %v, want the channel named", err)
	}
}

func TestPublish_ClosedClientIsPermanent(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := New(Config{URL: "redis://" + mr.Addr(), Retries: 3})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	start := time.Now()
	err = a.Publish(t.Context(), abortedEvent())
	if err == nil {
		t.Fatal("expected error after Close")
	}
	if !strings.Contains(err.Error(), "non-retriable") {
		t.Errorf("err = %v, want non-retriable", err)
	}
	if elapsed := time.Since(start); elapsed >= adapter.Backoff(1) {
		t.Errorf("took %v, want no backoff", elapsed)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantErr     bool
		wantChannel string
	}{
		{name: "missing url", cfg: Config{}, wantErr: true},
		{name: "not a redis url", cfg: Config{URL: "not-a-redis-url"}, wantErr: true},
		{name: "negative retries", cfg: Config{URL: "redis://localhost:6379", Retries: -1}, wantErr: true},
		{name: "defaults", cfg: Config{URL: "redis://localhost:6379"}, wantChannel: DefaultChannel},
		{name: "custom channel and db", cfg: Config{URL: "redis://:secret@localhost:6379/2", Channel: "bench:results"}, wantChannel: "bench:results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			defer func() { _ = a.Close() }()
			if a.config.Channel != tt.wantChannel {
				t.Errorf("Channel = %q, want %q", a.config.Channel, tt.wantChannel)
			}
			if a.config.Timeout != DefaultTimeout {
				t.Errorf("Timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
			}
			if a.config.Retries != 0 {
				t.Errorf("Retries = %d, want 0", a.config.Retries)
			}
		})
	}
}
