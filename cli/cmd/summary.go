package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/kewos554321/blaze4harbor/metrics"
	"github.com/kewos554321/blaze4harbor/runtime"
	"github.com/kewos554321/blaze4harbor/types"
)

// Outcome words in summaries.
const (
	statusOK      = "ok"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// publishReport is the machine-readable publish result.
type publishReport struct {
	RunID      string               `json:"run_id" yaml:"run_id"`
	ResultDir  string               `json:"result_dir" yaml:"result_dir"`
	Artifact   string               `json:"artifact" yaml:"artifact"`
	Structured *types.UploadOutcome `json:"structured,omitempty" yaml:"structured,omitempty"`
	Blob       *types.UploadOutcome `json:"blob,omitempty" yaml:"blob,omitempty"`
	Metrics    metrics.Snapshot     `json:"metrics" yaml:"metrics"`
}

func newPublishReport(runID, dir string, p *runtime.PublishResult, m metrics.Snapshot) publishReport {
	artifact := statusOK
	if p.ArtifactErr != nil {
		artifact = p.ArtifactErr.Error()
	}
	return publishReport{
		RunID:      runID,
		ResultDir:  dir,
		Artifact:   artifact,
		Structured: p.Structured,
		Blob:       p.Blob,
		Metrics:    m,
	}
}

// printRunSummary prints the human-readable end-of-run summary.
func printRunSummary(w io.Writer, b *banner, result *runtime.RunResult) {
	fmt.Fprintf(w, "\n=== Run Result ===\n")
	fmt.Fprintf(w, "Run ID:       %s\n", result.RunMeta.RunID)
	fmt.Fprintf(w, "State:        %s\n", result.State)
	fmt.Fprintf(w, "Exit Code:    %d\n", result.ExitCode)
	if result.Captured != nil {
		fmt.Fprintf(w, "Capture:      %s\n", result.Captured.Strategy)
	}
	if result.ResultDir != "" {
		fmt.Fprintf(w, "Result Dir:   %s\n", result.ResultDir)
	}
	fmt.Fprintf(w, "Duration:     %s\n", result.Duration.Round(time.Millisecond))

	if result.Publish != nil {
		printPublishSummary(w, b, result.Publish, result.Metrics)
	}
}

// printPublishSummary prints one line per branch and the counters.
func printPublishSummary(w io.Writer, b *banner, p *runtime.PublishResult, m metrics.Snapshot) {
	fmt.Fprintf(w, "\n=== Publish ===\n")
	fmt.Fprintf(w, "Structured:   %s\n", describeOutcome(b, p.Structured))
	fmt.Fprintf(w, "Blob:         %s\n", describeOutcome(b, p.Blob))
	fmt.Fprintf(w, "Rows:         %d inserted, %d failed\n", m.RowsInserted, m.RowsFailed)
	fmt.Fprintf(w, "Files:        %d uploaded, %d failed (%d bytes)\n", m.FilesUploaded, m.FilesFailed, m.BytesUploaded)
	if m.NamespacesCreated > 0 || m.CollectionsCreated > 0 {
		fmt.Fprintf(w, "Created:      %d namespace(s), %d collection(s)\n", m.NamespacesCreated, m.CollectionsCreated)
	}
	for _, o := range []*types.UploadOutcome{p.Structured, p.Blob} {
		if o == nil {
			continue
		}
		for _, e := range o.Errors {
			fmt.Fprintf(w, "  - %s: %s\n", e.Item, e.Message)
		}
	}
}

func describeOutcome(b *banner, o *types.UploadOutcome) string {
	if o == nil {
		return b.status(statusSkipped)
	}
	if o.Succeeded {
		return fmt.Sprintf("%s (%s, %d item(s))", b.status(statusOK), o.Target, o.Attempted)
	}
	if o.Err != nil {
		return fmt.Sprintf("%s (%s: %v)", b.status(statusFailed), o.Target, o.Err)
	}
	return fmt.Sprintf("%s (%s, %d of %d item(s) failed)", b.status(statusFailed), o.Target, o.Failed(), o.Attempted)
}
