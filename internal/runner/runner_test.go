package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/manifest"
	"github.com/nvandessel/simverify/internal/report"
	"github.com/nvandessel/simverify/internal/simulation"
	"github.com/nvandessel/simverify/internal/validate"
)

// writeScenario writes sc into a fresh results directory.
func writeScenario(t *testing.T, sc simulation.Scenario) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "results")
	if err := sc.WriteTo(dir); err != nil {
		t.Fatalf("writing scenario: %v", err)
	}
	return dir
}

func runDir(t *testing.T, dir string, opts Options) (Summary, string) {
	t.Helper()
	var out bytes.Buffer
	opts.Out = &out
	opts.ResultsDir = dir
	s, err := New(report.NewReader(dir), manifest.Default(), opts).Run(t.Context())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return s, out.String()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		passed    int
		total     int
		threshold float64
		want      Tier
	}{
		{"all passed", 11, 11, 0.7, TierFull},
		{"empty run", 0, 0, 0.7, TierFull},
		{"exactly ceil of threshold", 8, 11, 0.7, TierPartial},
		{"one below ceil", 7, 11, 0.7, TierFailure},
		{"exact threshold of ten", 7, 10, 0.7, TierPartial},
		{"below threshold of ten", 6, 10, 0.7, TierFailure},
		{"zero passed", 0, 11, 0.7, TierFailure},
		{"threshold one requires all", 10, 11, 1.0, TierFailure},
		{"threshold zero accepts none passed", 0, 5, 0, TierPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.passed, tt.total, tt.threshold); got != tt.want {
				t.Errorf("Classify(%d, %d, %v) = %s, want %s", tt.passed, tt.total, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestSummary_ExitCode(t *testing.T) {
	tests := []struct {
		name string
		s    Summary
		want int
	}{
		{"full", Summary{Tier: TierFull}, constants.ExitOK},
		{"partial", Summary{Tier: TierPartial}, constants.ExitOK},
		{"failure", Summary{Tier: TierFailure}, constants.ExitFailure},
		{"interrupted", Summary{Tier: TierFull, Interrupted: true}, constants.ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.ExitCode(); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRun_FullTier(t *testing.T) {
	dir := writeScenario(t, simulation.DefaultScenario())
	s, out := runDir(t, dir, Options{})

	if s.Passed != 11 || s.Total != 11 {
		t.Errorf("got %d/%d, want 11/11", s.Passed, s.Total)
	}
	if s.Tier != TierFull {
		t.Errorf("Tier = %s, want full", s.Tier)
	}
	if s.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0", s.ExitCode())
	}
	for _, want := range []string{
		"Validating Test Results...",
		strings.Repeat("=", constants.SeparatorWidth),
		"✓ Sequential Allocation: Allocation test passed - Total: 1024, Free: 768, Used: 256",
		"Validation Summary: 11/11 tests passed",
		"✓ All tests passed!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if s.RunID == "" {
		t.Error("expected a run ID")
	}
	for _, r := range s.Results {
		if r.Digest == "" {
			t.Errorf("%s: expected digest", r.Entry.Artifact)
		}
	}
}

func TestRun_PartialTierAtThreshold(t *testing.T) {
	// 8 of 11 is exactly ceil(0.7*11).
	sc := simulation.DefaultScenario().Without(
		constants.LRUArtifact,
		constants.PageFaultArtifact,
		constants.StressAllocationArtifact,
	)
	s, out := runDir(t, writeScenario(t, sc), Options{})

	if s.Passed != 8 || s.Total != 11 {
		t.Fatalf("got %d/%d, want 8/11", s.Passed, s.Total)
	}
	if s.Tier != TierPartial {
		t.Errorf("Tier = %s, want partial", s.Tier)
	}
	if s.ExitCode() != 0 {
		t.Errorf("ExitCode() = %d, want 0", s.ExitCode())
	}
	if !strings.Contains(out, "⚠ Partial success - 73% of tests passed (threshold 70%)") {
		t.Errorf("missing partial banner:\n%s", out)
	}
}

func TestRun_FailureTier(t *testing.T) {
	sc := simulation.DefaultScenario().Without(
		constants.LRUArtifact,
		constants.PageFaultArtifact,
		constants.StressAllocationArtifact,
		constants.CacheHitArtifact,
	)
	s, out := runDir(t, writeScenario(t, sc), Options{})

	if s.Passed != 7 {
		t.Errorf("Passed = %d, want 7", s.Passed)
	}
	if s.Tier != TierFailure || s.ExitCode() != 1 {
		t.Errorf("Tier = %s exit %d, want failure exit 1", s.Tier, s.ExitCode())
	}
	if !strings.Contains(out, "✗ Some tests failed - check individual results") {
		t.Errorf("missing failure banner:\n%s", out)
	}
}

func TestRun_ThresholdOption(t *testing.T) {
	sc := simulation.DefaultScenario().Without(constants.LRUArtifact)
	s, _ := runDir(t, writeScenario(t, sc), Options{Threshold: 1.0})
	if s.Tier != TierFailure {
		t.Errorf("Tier = %s, want failure at threshold 1.0", s.Tier)
	}
}

func TestRun_MissingCountsAgainstTotal(t *testing.T) {
	sc := simulation.DefaultScenario().Without(constants.LRUArtifact)
	s, out := runDir(t, writeScenario(t, sc), Options{})

	if s.Total != 11 || s.Passed != 10 {
		t.Errorf("got %d/%d, want 10/11", s.Passed, s.Total)
	}
	if !strings.Contains(out, "✗ lru_result.txt - Result file not found") {
		t.Errorf("missing not-found line:\n%s", out)
	}
	r := s.Results[3]
	if r.Outcome != OutcomeMissing || r.Verdict.Success {
		t.Errorf("LRU result = %+v, want failed missing", r)
	}
}

func TestRun_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	s, _ := runDir(t, dir, Options{})

	if s.Passed != 0 || s.Total != 11 {
		t.Errorf("got %d/%d, want 0/11", s.Passed, s.Total)
	}
	if s.ExitCode() != 1 {
		t.Errorf("ExitCode() = %d, want 1", s.ExitCode())
	}
}

func TestRun_UnreadableArtifact(t *testing.T) {
	dir := writeScenario(t, simulation.DefaultScenario())
	if err := os.WriteFile(filepath.Join(dir, constants.CacheHitArtifact), []byte{0xff, 0xfe, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}

	s, out := runDir(t, dir, Options{})
	if s.Passed != 10 {
		t.Errorf("Passed = %d, want 10", s.Passed)
	}
	if s.Results[2].Outcome != OutcomeUnreadable {
		t.Errorf("Outcome = %s, want unreadable", s.Results[2].Outcome)
	}
	if !strings.Contains(out, "✗ Cache Hit:") {
		t.Errorf("missing unreadable line:\n%s", out)
	}
}

func TestRun_ContentFailure(t *testing.T) {
	sc := simulation.DefaultScenario().With(constants.SeqAllocArtifact,
		simulation.AllocationReport(simulation.AllocationSpec{
			Total: 100, Free: 30, UsedOverride: simulation.Int64(80), Exit: true,
		}))
	s, out := runDir(t, writeScenario(t, sc), Options{})

	if s.Results[0].Verdict.Success {
		t.Error("unconserved triple should fail")
	}
	if !strings.Contains(out, "✗ Sequential Allocation: Allocation test failed - Total 100 != Free 30 + Used 80") {
		t.Errorf("missing failure line:\n%s", out)
	}
}

type panicReader struct {
	inner ArtifactReader
	name  string
}

func (p panicReader) Read(name string) (report.Artifact, error) {
	if name == p.name {
		panic("boom")
	}
	return p.inner.Read(name)
}

func TestRun_PanicContained(t *testing.T) {
	dir := writeScenario(t, simulation.DefaultScenario())
	reader := panicReader{inner: report.NewReader(dir), name: constants.TranslationArtifact}

	var out bytes.Buffer
	s, err := New(reader, manifest.Default(), Options{Out: &out}).Run(t.Context())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if s.Total != 11 || s.Passed != 10 {
		t.Errorf("got %d/%d, want 10/11", s.Passed, s.Total)
	}
	r := s.Results[5]
	if r.Outcome != OutcomeCrashed || r.Verdict.Success {
		t.Errorf("translation result = %+v, want failed crashed", r)
	}
	if !strings.Contains(r.Verdict.Message, "boom") {
		t.Errorf("Message = %q, want panic value", r.Verdict.Message)
	}
}

type cancelAfter struct {
	inner  ArtifactReader
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Read(name string) (report.Artifact, error) {
	c.n--
	if c.n == 0 {
		c.cancel()
	}
	return c.inner.Read(name)
}

func TestRun_Cancellation(t *testing.T) {
	dir := writeScenario(t, simulation.DefaultScenario())
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	reader := &cancelAfter{inner: report.NewReader(dir), n: 3, cancel: cancel}
	var out bytes.Buffer
	s, err := New(reader, manifest.Default(), Options{Out: &out}).Run(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if !s.Interrupted {
		t.Error("expected Interrupted")
	}
	if s.Total != 3 {
		t.Errorf("Total = %d, want 3 evaluated before stop", s.Total)
	}
	if s.ExitCode() != constants.ExitInterrupted {
		t.Errorf("ExitCode() = %d, want %d", s.ExitCode(), constants.ExitInterrupted)
	}
	if !strings.Contains(out.String(), "⚠ Validation interrupted after 3 artifacts") {
		t.Errorf("missing interrupted banner:\n%s", out.String())
	}
}

type recordingObserver struct {
	got []Summary
	err error
}

func (o *recordingObserver) Observe(_ context.Context, s Summary) error {
	o.got = append(o.got, s)
	return o.err
}

func TestRun_ObserversNotified(t *testing.T) {
	dir := writeScenario(t, simulation.DefaultScenario())
	failing := &recordingObserver{err: errors.New("disk full")}
	ok := &recordingObserver{}

	s, _ := runDir(t, dir, Options{Observers: []Observer{failing, ok}})

	if len(failing.got) != 1 || len(ok.got) != 1 {
		t.Fatalf("observers called %d and %d times, want 1 each", len(failing.got), len(ok.got))
	}
	if ok.got[0].RunID != s.RunID {
		t.Error("observer saw a different summary")
	}
	if s.ExitCode() != 0 {
		t.Error("observer error must not change the exit code")
	}
}

func TestRun_Idempotent(t *testing.T) {
	sc := simulation.DefaultScenario().Without(constants.IntegrationArtifact)
	dir := writeScenario(t, sc)

	first, out1 := runDir(t, dir, Options{})
	second, out2 := runDir(t, dir, Options{})

	if first.Passed != second.Passed || first.Tier != second.Tier {
		t.Errorf("runs differ: %d/%s vs %d/%s", first.Passed, first.Tier, second.Passed, second.Tier)
	}
	if out1 != out2 {
		t.Errorf("console output differs:\n%s\n---\n%s", out1, out2)
	}
}

func TestRun_CustomManifest(t *testing.T) {
	dir := writeScenario(t, simulation.DefaultScenario())
	m := manifest.Manifest{Entries: []manifest.Entry{
		{Artifact: constants.CacheHitArtifact, Category: validate.CategoryCache, Label: "Cache"},
	}}

	s, err := New(report.NewReader(dir), m, Options{}).Run(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 1 || s.Tier != TierFull {
		t.Errorf("got total %d tier %s, want 1 full", s.Total, s.Tier)
	}
}
