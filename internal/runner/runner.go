// Package runner drives a manifest through the report reader and validators,
// streams per-test lines and produces the run Summary.
//
// Traversal is strictly sequential. Every entry yields exactly one Result:
// missing and unreadable artifacts, and validator panics, become failed
// verdicts for that entry only and never abort the run. Cancellation is
// checked between entries.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/logging"
	"github.com/nvandessel/simverify/internal/manifest"
	"github.com/nvandessel/simverify/internal/report"
	"github.com/nvandessel/simverify/internal/ux"
	"github.com/nvandessel/simverify/internal/validate"
)

// ArtifactReader loads artifacts by name.
type ArtifactReader interface {
	Read(name string) (report.Artifact, error)
}

// Observer is notified once with each finished Summary. Observer errors are
// logged and never change verdicts or the exit status.
type Observer interface {
	Observe(ctx context.Context, s Summary) error
}

// Options configures a Runner.
type Options struct {
	// Threshold is the partial-success pass rate. Zero means
	// constants.DefaultPassThreshold.
	Threshold float64

	// Out receives the console report. Nil discards it.
	Out io.Writer

	// Renderer styles the console report. Nil means plain text.
	Renderer *ux.Renderer

	Logger    *slog.Logger
	Verdicts  *logging.VerdictLogger
	Observers []Observer

	// ResultsDir is recorded in the Summary.
	ResultsDir string
}

// Runner validates one manifest against one results directory.
type Runner struct {
	reader   ArtifactReader
	manifest manifest.Manifest
	opts     Options
}

// New creates a Runner.
func New(reader ArtifactReader, m manifest.Manifest, opts Options) *Runner {
	if opts.Threshold == 0 {
		opts.Threshold = constants.DefaultPassThreshold
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Renderer == nil {
		opts.Renderer = ux.Plain()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Runner{reader: reader, manifest: m, opts: opts}
}

// Run validates every manifest entry in order and prints the report.
// If ctx is cancelled the run stops before the next entry and Run returns
// the partial Summary (Interrupted set) together with ctx.Err().
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	s := Summary{
		RunID:      uuid.NewString(),
		ResultsDir: r.opts.ResultsDir,
		StartedAt:  time.Now().UTC(),
		Threshold:  r.opts.Threshold,
	}
	log := r.opts.Logger.With("run_id", s.RunID)

	r.printf("Validating Test Results...\n")
	r.printf("%s\n", r.opts.Renderer.Rule(constants.SeparatorWidth))

	var acc tally
	var runErr error
	for _, entry := range r.manifest.Entries {
		if err := ctx.Err(); err != nil {
			s.Interrupted = true
			runErr = err
			log.Warn("run interrupted", "evaluated", acc.total, "remaining", r.manifest.Len()-acc.total)
			break
		}

		res := r.evaluate(entry)
		acc.add(res)
		r.printResult(res)

		log.Debug("verdict",
			"artifact", entry.Artifact,
			"category", entry.Category.String(),
			"outcome", string(res.Outcome),
			"success", res.Verdict.Success)
		r.opts.Verdicts.Log(logging.VerdictEvent{
			RunID:    s.RunID,
			Artifact: entry.Artifact,
			Category: entry.Category.String(),
			Outcome:  string(res.Outcome),
			Success:  res.Verdict.Success,
			Message:  res.Verdict.Message,
		})
	}

	s.Passed = acc.passed
	s.Total = acc.total
	s.Results = acc.results
	s.Tier = Classify(s.Passed, s.Total, s.Threshold)
	s.Duration = time.Since(s.StartedAt)

	r.printSummary(s)
	log.Info("validation finished", "passed", s.Passed, "total", s.Total, "tier", string(s.Tier))

	for _, o := range r.opts.Observers {
		if err := o.Observe(context.WithoutCancel(ctx), s); err != nil {
			log.Warn("observer failed", "error", err)
		}
	}

	return s, runErr
}

// evaluate produces the single Result for one entry.
func (r *Runner) evaluate(entry manifest.Entry) (res Result) {
	res.Entry = entry

	defer func() {
		if p := recover(); p != nil {
			r.opts.Logger.Error("validator panicked", "artifact", entry.Artifact, "panic", fmt.Sprint(p))
			res.Outcome = OutcomeCrashed
			res.Verdict = validate.Fail("validation error: %v", p)
		}
	}()

	artifact, err := r.reader.Read(entry.Artifact)
	if err != nil {
		if errors.Is(err, report.ErrMissing) {
			res.Outcome = OutcomeMissing
			res.Verdict = validate.Fail("%s - Result file not found", entry.Artifact)
			return res
		}
		res.Outcome = OutcomeUnreadable
		res.Verdict = validate.Fail("%v", err)
		return res
	}
	res.Digest = artifact.Digest

	v, err := validate.For(entry.Category)
	if err != nil {
		res.Outcome = OutcomeCrashed
		res.Verdict = validate.Fail("%v", err)
		return res
	}

	r.opts.Logger.Log(context.Background(), logging.LevelTrace, "validating artifact",
		"artifact", entry.Artifact, "bytes", len(artifact.Text))

	res.Outcome = OutcomeValidated
	res.Verdict = v.Validate(artifact.Text)
	return res
}

func (r *Runner) printResult(res Result) {
	if res.Outcome == OutcomeMissing {
		r.printf("%s\n", r.opts.Renderer.Line(false, res.Verdict.Message))
		return
	}
	r.printf("%s\n", r.opts.Renderer.Line(res.Verdict.Success, res.Entry.Label+": "+res.Verdict.Message))
}

func (r *Runner) printSummary(s Summary) {
	rd := r.opts.Renderer
	r.printf("%s\n", rd.Rule(constants.SeparatorWidth))
	r.printf("%s\n", rd.Bold(fmt.Sprintf("Validation Summary: %d/%d tests passed", s.Passed, s.Total)))
	r.printf("%s\n", TierMessage(s, rd))
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.opts.Out, format, args...)
}

// TierMessage returns the final line of the console report.
func TierMessage(s Summary, rd *ux.Renderer) string {
	if s.Interrupted {
		return fmt.Sprintf("%s Validation interrupted after %d artifacts", rd.Warning(), s.Total)
	}
	switch s.Tier {
	case TierFull:
		return fmt.Sprintf("%s All tests passed!", rd.Status(true))
	case TierPartial:
		return fmt.Sprintf("%s Partial success - %.0f%% of tests passed (threshold %.0f%%)",
			rd.Warning(), s.PassRate()*100, s.Threshold*100)
	default:
		return fmt.Sprintf("%s Some tests failed - check individual results", rd.Status(false))
	}
}
