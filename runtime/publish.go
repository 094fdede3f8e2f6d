package runtime

import (
	"context"
	"errors"

	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/metrics"
	"github.com/kewos554321/blaze4harbor/types"
)

// StructuredPublisher provisions the structured collection and inserts one row
// derived from the artifact loaded from dir.
type StructuredPublisher interface {
	Publish(ctx context.Context, dir string, artifact types.Artifact) *types.UploadOutcome
}

// BlobPublisher uploads every regular file under dir.
type BlobPublisher interface {
	UploadTree(ctx context.Context, dir string) *types.UploadOutcome
}

// PublishPhase runs LOADING → PUBLISHING for a result directory.
// A nil publisher skips its branch.
type PublishPhase struct {
	Structured StructuredPublisher
	Blob       BlobPublisher
	Collector  *metrics.Collector
	Logger     *log.Logger
	// Announce is called with each phase banner. May be nil.
	Announce func(Phase)
}

// PublishResult collects what the publish phase did.
type PublishResult struct {
	// Artifact is the loaded result.json, nil when absent or malformed.
	Artifact types.Artifact
	// ArtifactErr explains why Artifact is nil.
	ArtifactErr error
	// Structured is nil when the structured branch was skipped.
	Structured *types.UploadOutcome
	// Blob is nil when the blob branch was skipped.
	Blob *types.UploadOutcome
}

// Failed reports whether any attempted upload did not fully succeed.
func (r *PublishResult) Failed() bool {
	if r.Structured != nil && !r.Structured.Succeeded {
		return true
	}
	return r.Blob != nil && !r.Blob.Succeeded
}

// Load reads the artifact in dir, logging absence and malformation.
// It never fails the pipeline: a nil artifact only skips the structured branch.
func (p *PublishPhase) Load(dir string) (types.Artifact, error) {
	logger := p.logger()
	artifact, err := LoadArtifact(dir)
	switch {
	case err == nil:
		logger.Info("loaded result.json", map[string]any{"dir": dir})
	case errors.Is(err, ErrArtifactAbsent):
		logger.Warn("result.json not found", map[string]any{"dir": dir, "error": err})
	default:
		logger.Error("result.json unreadable, treating as missing", map[string]any{"dir": dir, "error": err})
	}
	return artifact, err
}

// Run loads the artifact in dir and publishes it to both stores.
// Upload failures are logged and recorded, never returned.
func (p *PublishPhase) Run(ctx context.Context, dir string) *PublishResult {
	result := &PublishResult{}
	result.Artifact, result.ArtifactErr = p.Load(dir)
	p.Publish(ctx, dir, result)
	return result
}

// Publish runs both upload branches for an already loaded result.
func (p *PublishPhase) Publish(ctx context.Context, dir string, result *PublishResult) {
	logger := p.logger()

	p.announce(PhaseStructured)
	switch {
	case p.Structured == nil:
		logger.Info("skipping structured upload (disabled)", nil)
	case result.Artifact == nil:
		logger.Info("skipping structured upload (no result data)", map[string]any{"dir": dir})
	default:
		result.Structured = p.Structured.Publish(ctx, dir, result.Artifact)
		p.Collector.AbsorbStructured(result.Structured)
		p.report("structured upload", result.Structured)
	}

	p.announce(PhaseBlob)
	if p.Blob == nil {
		logger.Info("skipping blob upload (disabled)", nil)
		return
	}
	result.Blob = p.Blob.UploadTree(ctx, dir)
	p.Collector.AbsorbBlob(result.Blob)
	p.report("blob upload", result.Blob)
}

func (p *PublishPhase) report(what string, o *types.UploadOutcome) {
	logger := p.logger()
	if o.Succeeded {
		logger.Info(what+" succeeded", map[string]any{
			"target":    o.Target,
			"attempted": o.Attempted,
			"bytes":     o.Bytes,
		})
		return
	}
	for _, ie := range o.Errors {
		logger.Error(what+" item failed", map[string]any{
			"target": o.Target,
			"item":   ie.Item,
			"error":  ie.Message,
		})
	}
	fields := map[string]any{
		"target":    o.Target,
		"attempted": o.Attempted,
		"failed":    o.Failed(),
	}
	if msg := o.ErrorMessage(); msg != "" {
		fields["error"] = msg
	}
	logger.Error(what+" failed", fields)
}

func (p *PublishPhase) announce(phase Phase) {
	if p.Announce != nil {
		p.Announce(phase)
	}
}

func (p *PublishPhase) logger() *log.Logger {
	if p.Logger == nil {
		return log.Nop()
	}
	return p.Logger
}
