package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kewos554321/blaze4harbor/log"
)

// commandsRequiringOutput lists harbor invocations that write a jobs directory.
// Each entry is a leading argument sequence, except single words which may
// appear anywhere.
var commandsRequiringOutput = [][]string{
	{"run"},
	{"jobs", "start"},
}

// helpArgs suppress output injection: harbor only prints usage.
var helpArgs = []string{"--help"}

// outputFlags already select an output directory.
var outputFlags = []string{"-o", "--output", "--jobs-dir"}

// needsOutputArg reports whether the harbor invocation writes results.
func needsOutputArg(args []string) bool {
	for _, a := range args {
		for _, h := range helpArgs {
			if a == h {
				return false
			}
		}
	}

	for _, cmd := range commandsRequiringOutput {
		if len(cmd) == 1 {
			for _, a := range args {
				if a == cmd[0] {
					return true
				}
			}
			continue
		}
		if len(args) >= len(cmd) && equalPrefix(args, cmd) {
			return true
		}
	}
	return false
}

// hasOutputArg reports whether an output directory was already given.
func hasOutputArg(args []string) bool {
	for _, a := range args {
		for _, f := range outputFlags {
			if a == f || strings.HasPrefix(a, f+"=") {
				return true
			}
		}
	}
	return false
}

// ensureOutputArg appends "-o outputDir" when harbor will write results and
// no output directory was given. outputDir is created if absent.
// The input slice is never modified.
func ensureOutputArg(args []string, outputDir string, logger *log.Logger) ([]string, error) {
	if !needsOutputArg(args) || hasOutputArg(args) {
		return args, nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create default output directory: %w", err)
	}
	logger.Info("no output directory specified, using default", map[string]any{"output_dir": outputDir})

	out := make([]string, 0, len(args)+2)
	out = append(out, args...)
	return append(out, "-o", outputDir), nil
}

func equalPrefix(args, prefix []string) bool {
	for i := range prefix {
		if args[i] != prefix[i] {
			return false
		}
	}
	return true
}
