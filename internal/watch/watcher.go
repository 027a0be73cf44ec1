// Package watch re-triggers validation when files in a results directory
// change. Bursts of filesystem events are coalesced into one batch per
// debounce window.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/logging"
)

// Op is the kind of change observed.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file event.
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler is called once per debounced batch, from the watcher's goroutine.
// Each path appears at most once, with its most recent Op.
type Handler func(ctx context.Context, changes []Change)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a batch is delivered.
	// Zero means constants.DefaultWatchDebounce.
	Debounce time.Duration

	// IgnorePatterns are filepath.Match globs against the base name.
	IgnorePatterns []string

	Logger *slog.Logger
}

// DefaultIgnorePatterns skips editor and partial-write files.
var DefaultIgnorePatterns = []string{".*", "*.swp", "*.tmp", "*~"}

// Watcher watches a single directory (not recursive; results are flat).
type Watcher struct {
	dir     string
	opts    Options
	watcher *fsnotify.Watcher
}

// New creates a Watcher for dir. The directory must exist.
func New(dir string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = constants.DefaultWatchDebounce
	}
	if opts.IgnorePatterns == nil {
		opts.IgnorePatterns = DefaultIgnorePatterns
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	return &Watcher{dir: dir, opts: opts, watcher: fw}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run delivers batches to h until ctx is cancelled. Watcher errors are
// logged and do not stop the loop. A pending batch is dropped on
// cancellation. Run closes the Watcher when it returns.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	defer w.watcher.Close()

	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.shouldIgnore(event.Name) {
				continue
			}
			op, ok := convertOp(event.Op)
			if !ok {
				continue
			}
			batch = append(batch, Change{Path: event.Name, Op: op, Time: time.Now()})
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			changes := deduplicate(batch)
			batch = batch[:0]
			if len(changes) > 0 {
				w.opts.Logger.Debug("results changed", "files", len(changes))
				h(ctx, changes)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.opts.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// convertOp maps an fsnotify op to an Op. Attribute-only events (chmod,
// touch) report false: file contents did not change.
func convertOp(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	case op.Has(fsnotify.Remove):
		return OpRemove, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	default:
		return 0, false
	}
}

// deduplicate keeps one Change per path, in first-seen order, carrying the
// latest Op and Time.
func deduplicate(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if idx, ok := seen[c.Path]; ok {
			out[idx] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}

// Names returns the base names of changes, for log and console output.
func Names(changes []Change) string {
	names := make([]string, len(changes))
	for i, c := range changes {
		names[i] = filepath.Base(c.Path)
	}
	return strings.Join(names, ", ")
}
