package runner

import (
	"time"

	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/manifest"
	"github.com/nvandessel/simverify/internal/validate"
)

// Outcome says how an entry's verdict was reached.
type Outcome string

const (
	// OutcomeValidated means the artifact was read and judged by its validator.
	OutcomeValidated Outcome = "validated"

	// OutcomeMissing means the artifact file does not exist.
	OutcomeMissing Outcome = "missing"

	// OutcomeUnreadable means the artifact exists but could not be read.
	OutcomeUnreadable Outcome = "unreadable"

	// OutcomeCrashed means validation panicked and was contained.
	OutcomeCrashed Outcome = "crashed"
)

// Result is one manifest entry's verdict.
type Result struct {
	Entry   manifest.Entry   `json:"entry"`
	Outcome Outcome          `json:"outcome"`
	Verdict validate.Verdict `json:"verdict"`

	// Digest is the SHA-256 of the artifact bytes; empty unless it was read.
	Digest string `json:"digest,omitempty"`
}

// Tier classifies a run's aggregate outcome.
type Tier string

const (
	TierFull    Tier = "full"
	TierPartial Tier = "partial"
	TierFailure Tier = "failure"
)

// Succeeded reports whether the tier counts as an overall success.
func (t Tier) Succeeded() bool {
	return t == TierFull || t == TierPartial
}

// thresholdEpsilon absorbs float error in threshold*total, so that exactly
// ceil(threshold*total) passes always reaches the partial tier.
const thresholdEpsilon = 1e-9

// Classify returns the tier for passed out of total at the given threshold.
func Classify(passed, total int, threshold float64) Tier {
	if passed == total {
		return TierFull
	}
	if float64(passed) >= threshold*float64(total)-thresholdEpsilon {
		return TierPartial
	}
	return TierFailure
}

// Summary is the finalised outcome of one run.
type Summary struct {
	RunID       string        `json:"run_id"`
	ResultsDir  string        `json:"results_dir"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Passed      int           `json:"passed"`
	Total       int           `json:"total"`
	Threshold   float64       `json:"threshold"`
	Tier        Tier          `json:"tier"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Results     []Result      `json:"results"`
}

// PassRate returns passed/total, or 1 for an empty run.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Passed) / float64(s.Total)
}

// ExitCode maps the summary to a process exit status.
func (s Summary) ExitCode() int {
	switch {
	case s.Interrupted:
		return constants.ExitInterrupted
	case s.Tier.Succeeded():
		return constants.ExitOK
	default:
		return constants.ExitFailure
	}
}

// tally accumulates passed/total across one traversal.
type tally struct {
	passed  int
	total   int
	results []Result
}

func (t *tally) add(r Result) {
	t.total++
	if r.Verdict.Success {
		t.passed++
	}
	t.results = append(t.results, r)
}
