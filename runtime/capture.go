package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/alessio/shellescape"

	"github.com/kewos554321/blaze4harbor/log"
	"github.com/kewos554321/blaze4harbor/types"
)

// Capture strategies.
const (
	// StrategyScript records the session through script(1), which gives the
	// wrapped tool a pseudo-terminal while relaying output live.
	StrategyScript = "script"
	// StrategyPipe tees stdout/stderr into the capture file. The tool sees a
	// pipe, so interactive formatting may differ.
	StrategyPipe = "pipe"
)

// interruptGrace bounds how long a cancelled tool may take to exit after SIGINT.
const interruptGrace = 10 * time.Second

// Runner executes the wrapped tool and records its output to logPath.
type Runner interface {
	Run(ctx context.Context, command string, args []string, logPath string) (*types.CapturedRun, error)
}

// ProcessRunner is the default Runner.
// Zero value is usable: it relays to the process's own stdio and picks the
// strategy from the host platform.
type ProcessRunner struct {
	// Stdin, Stdout and Stderr default to the process's own streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Strategy forces a capture strategy. Empty selects by platform.
	Strategy string
	// GOOS overrides the detected platform (testing).
	GOOS string
	// LookPath resolves the script utility. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
	// Logger receives strategy decisions. Nil disables logging.
	Logger *log.Logger
}

// NewProcessRunner creates a runner bound to the process's stdio.
func NewProcessRunner(logger *log.Logger) *ProcessRunner {
	return &ProcessRunner{Logger: logger}
}

// selectStrategy picks the capture strategy for goos.
//
// linux, darwin, freebsd and dragonfly record through script(1) when it is
// installed. openbsd and netbsd ship a script(1) that takes the command only
// through -c and does not return the child's status, so they use the pipe
// strategy, as does windows.
func selectStrategy(goos string, scriptAvailable bool) (string, error) {
	switch goos {
	case "linux", "darwin", "freebsd", "dragonfly":
		if !scriptAvailable {
			return StrategyPipe, nil
		}
		return StrategyScript, nil
	case "windows", "openbsd", "netbsd":
		return StrategyPipe, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// bsdScript reports whether goos ships the BSD script(1) that takes the
// command as trailing arguments.
func bsdScript(goos string) bool {
	switch goos {
	case "darwin", "freebsd", "dragonfly":
		return true
	}
	return false
}

// scriptArgv builds the script(1) invocation for goos.
// BSD script takes the command as trailing arguments; util-linux script takes
// a single shell string via -c and needs -e to return the child's status.
func scriptArgv(goos, logPath, command string, args []string) []string {
	if bsdScript(goos) {
		argv := []string{"-q", logPath, command}
		return append(argv, args...)
	}
	cmdline := shellescape.QuoteCommand(append([]string{command}, args...))
	return []string{"-q", "-e", "-c", cmdline, logPath}
}

// Run executes command with args, relaying output live and recording it to logPath.
//
// A non-zero exit returns the CapturedRun together with a *ToolFailureError.
// Cancellation of ctx interrupts the tool and returns ErrInterrupted.
func (p *ProcessRunner) Run(ctx context.Context, command string, args []string, logPath string) (*types.CapturedRun, error) {
	goos := p.GOOS
	if goos == "" {
		goos = goruntime.GOOS
	}

	strategy := p.Strategy
	var scriptPath string
	if strategy == "" {
		lookPath := p.LookPath
		if lookPath == nil {
			lookPath = exec.LookPath
		}
		path, lookErr := lookPath("script")
		var err error
		strategy, err = selectStrategy(goos, lookErr == nil)
		if err != nil {
			return nil, err
		}
		scriptPath = path
		if strategy == StrategyPipe && goos != "windows" && p.Logger != nil {
			msg := "script utility not usable on this platform, using pipe capture"
			if lookErr != nil {
				msg = "script utility not found, falling back to pipe capture"
			}
			p.Logger.Warn(msg, map[string]any{"platform": goos})
		}
	} else if strategy == StrategyScript {
		scriptPath = "script"
	}

	run := &types.CapturedRun{
		Command:  command,
		Args:     append([]string(nil), args...),
		LogPath:  logPath,
		Strategy: strategy,
	}

	var (
		cmd     *exec.Cmd
		logFile *os.File
	)
	switch strategy {
	case StrategyScript:
		cmd = exec.CommandContext(ctx, scriptPath, scriptArgv(goos, logPath, command, args)...)
		cmd.Stdout = p.stdout()
		cmd.Stderr = p.stderr()
	case StrategyPipe:
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open capture file: %w", err)
		}
		logFile = f
		sink := &lockedWriter{w: f}
		cmd = exec.CommandContext(ctx, command, args...)
		cmd.Stdout = io.MultiWriter(p.stdout(), sink)
		cmd.Stderr = io.MultiWriter(p.stderr(), sink)
	default:
		return nil, fmt.Errorf("unknown capture strategy %q", strategy)
	}
	cmd.Stdin = p.stdin()
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = interruptGrace

	if p.Logger != nil {
		p.Logger.Debug("starting wrapped tool", map[string]any{
			"command":  command,
			"args":     args,
			"strategy": strategy,
		})
	}

	start := time.Now()
	err := cmd.Run()
	run.Duration = time.Since(start)
	if logFile != nil {
		if cerr := logFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close capture file: %w", cerr)
		}
	}

	if ctx.Err() != nil {
		run.ExitStatus = exitStatus(err)
		return run, fmt.Errorf("%s: %w", command, ErrInterrupted)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("start %s: %w", command, err)
		}
		run.ExitStatus = exitStatus(err)
		return run, &ToolFailureError{Command: command, ExitStatus: run.ExitStatus}
	}
	return run, nil
}

func (p *ProcessRunner) stdin() io.Reader {
	if p.Stdin != nil {
		return p.Stdin
	}
	return os.Stdin
}

func (p *ProcessRunner) stdout() io.Writer {
	if p.Stdout != nil {
		return p.Stdout
	}
	return os.Stdout
}

func (p *ProcessRunner) stderr() io.Writer {
	if p.Stderr != nil {
		return p.Stderr
	}
	return os.Stderr
}

// lockedWriter serializes writes from the stdout and stderr copy goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}
