// Package logger adapts github.com/charmbracelet/log to the engine's
// logger-sink contract (§6): log(line), debug(line), and an optional
// get_worker_init_info hook for collaborators that need per-worker setup
// (e.g. a file logger reopening its handle inside a goroutine pool).
package logger

import (
	"io"
	"os"
	"sort"
	"strings"

	cblog "github.com/charmbracelet/log"
)

// Options configures a Logger instance.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
}

// Logger is the sink the executor and engine write progress lines to.
type Logger struct {
	base   *cblog.Logger
	fields []interface{}
}

// New constructs a Logger from Options. An unrecognised Level falls back
// to info rather than failing construction.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		if parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level)); err == nil {
			level = parsed
		}
	}

	cblogOpts := cblog.Options{
		Level:           level,
		ReportTimestamp: true,
	}
	if !opts.HumanReadable {
		cblogOpts.Formatter = cblog.JSONFormatter
	}

	base := cblog.NewWithOptions(writer, cblogOpts)
	return &Logger{base: base}, nil
}

// WithFields returns a derived Logger that always attaches the supplied
// key/value pairs; keys are sorted so the emitted payload is deterministic.
// The executor uses this to prefix each subprocess's output lines with its
// step name (§4.5: "each line prefixed with the step name").
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	if l == nil || len(fields) == 0 {
		return l
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := make([]interface{}, len(l.fields), len(l.fields)+len(fields)*2)
	copy(next, l.fields)
	for _, k := range keys {
		next = append(next, k, fields[k])
	}

	return &Logger{base: l.base, fields: next}
}

// Log writes an informational line, e.g. one streamed line of a
// subprocess's combined stdout/stderr.
func (l *Logger) Log(line string) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Info(strings.TrimRight(line, "\n"), l.fields...)
}

// Debug writes a debug-level line, used for planner/generator tracing.
func (l *Logger) Debug(line string) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Debug(strings.TrimRight(line, "\n"), l.fields...)
}

// Error writes an error-level line with the failing step's error attached.
func (l *Logger) Error(err error, msg string) {
	if l == nil || l.base == nil {
		return
	}
	fields := append(append([]interface{}{}, l.fields...), "error", err)
	l.base.Error(msg, fields...)
}

// WorkerInit is a zero-argument initializer a worker pool may run once per
// goroutine before executing tasks.
type WorkerInit func()

// GetWorkerInitInfo returns an optional per-worker initializer. The
// stdout/stderr-backed Logger needs no per-worker setup (unlike a file
// logger that must reopen its handle per OS process), so it returns nil.
func (l *Logger) GetWorkerInitInfo() (WorkerInit, []interface{}) {
	return nil, nil
}
