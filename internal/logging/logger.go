// Package logging provides leveled logging and verdict tracing for simverify.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A VerdictLogger for structured JSONL verdict traces (~/.simverify/verdicts.jsonl)
//
// Neither output touches stdout, which carries the console report.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/simverify/internal/constants"
)

// LevelTrace is a custom slog level below Debug for full content logging.
// At this level extracted facts and report excerpts are included.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// VerdictEvent is one line of the verdict trace.
type VerdictEvent struct {
	Time     time.Time `json:"time"`
	RunID    string    `json:"run_id"`
	Artifact string    `json:"artifact"`
	Category string    `json:"category"`
	Outcome  string    `json:"outcome"`
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
}

// VerdictLogger writes verdict events to a JSONL file.
// It is safe for concurrent use. A nil VerdictLogger is safe to use;
// all methods are no-ops on nil receiver.
type VerdictLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewVerdictLogger creates a verdict logger writing to dir/verdicts.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewVerdictLogger(dir string, level string) *VerdictLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, constants.VerdictLogName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &VerdictLogger{file: f}
}

// Log writes an event as a single JSONL line, stamping Time when unset.
// Safe to call on nil receiver.
func (vl *VerdictLogger) Log(ev VerdictEvent) {
	if vl == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	data = append(data, '\n')

	vl.mu.Lock()
	defer vl.mu.Unlock()
	if vl.file == nil {
		return
	}
	_, _ = vl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (vl *VerdictLogger) Close() {
	if vl == nil {
		return
	}

	vl.mu.Lock()
	defer vl.mu.Unlock()
	if vl.file == nil {
		return
	}
	vl.file.Close()
	vl.file = nil
}
