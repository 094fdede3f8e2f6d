// Package log provides structured logging with run context.
//
// Two logger variants are available:
//   - Logger: non-sugared zap.Logger for the pipeline (structured fields)
//   - SugaredLogger: printf-style logging for CLI surfaces
//
// Logs go to stderr by default so that the wrapped tool's relayed stdout stays clean.
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kewos554321/blaze4harbor/types"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures logger construction.
type Options struct {
	// Format is "console" (default) or "json".
	Format string
	// Level is debug, info (default), warn or error.
	Level string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Validate checks format and level.
func (o Options) Validate() error {
	switch o.Format {
	case "", FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q (must be console or json)", o.Format)
	}
	if _, err := parseLevel(o.Level); err != nil {
		return err
	}
	return nil
}

// Logger provides structured logging with run context.
// All entries carry run_id and tool.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging for CLI surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a logger with run context.
func NewLogger(runMeta *types.RunMeta, opts Options) (*Logger, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	level, _ := parseLevel(opts.Level)
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	core := zapcore.NewCore(newEncoder(opts.Format), zapcore.AddSync(w), level)

	var contextFields []zap.Field
	if runMeta != nil {
		contextFields = append(contextFields, zap.String("run_id", runMeta.RunID))
		if runMeta.Tool != "" {
			contextFields = append(contextFields, zap.String("tool", runMeta.Tool))
		}
	}

	return &Logger{zap: zap.New(core).With(contextFields...)}, nil
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func newEncoder(format string) zapcore.Encoder {
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:     "timestamp",
			LevelKey:    "level",
			MessageKey:  "message",
			EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
			EncodeLevel: zapcore.LowercaseLevelEncoder,
		})
	}
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "message",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: " ",
	})
}

func parseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// toFields converts a field map into zap fields in key order.
func toFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, toFields(fields)...)
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, toFields(fields)...)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, toFields(fields)...)
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, toFields(fields)...)
}

// With returns a logger with additional context fields.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{zap: l.zap.With(toFields(fields)...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}
