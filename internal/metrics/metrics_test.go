package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/simverify/internal/manifest"
	"github.com/nvandessel/simverify/internal/runner"
	"github.com/nvandessel/simverify/internal/validate"
)

func testSummary() runner.Summary {
	entry := func(c validate.Category) manifest.Entry {
		return manifest.Entry{Artifact: c.String() + ".txt", Category: c, Label: c.String()}
	}
	return runner.Summary{
		RunID:     "run-1",
		StartedAt: time.Unix(1700000000, 0),
		Passed:    3,
		Total:     4,
		Threshold: 0.7,
		Tier:      runner.TierPartial,
		Results: []runner.Result{
			{Entry: entry(validate.CategoryAllocation), Verdict: validate.Pass("ok")},
			{Entry: entry(validate.CategoryAllocation), Verdict: validate.Pass("ok")},
			{Entry: entry(validate.CategoryCache), Verdict: validate.Fail("bad")},
			{Entry: entry(validate.CategoryIntegration), Verdict: validate.Pass("ok")},
		},
	}
}

func TestExporter_WriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "simverify.prom")
	e := NewExporter(path)

	if err := e.Observe(t.Context(), testSummary()); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	text := string(data)

	for _, want := range []string{
		"simverify_tests_total 4",
		"simverify_tests_passed 3",
		"simverify_pass_ratio 0.75",
		`simverify_verdicts{category="allocation",result="pass"} 2`,
		`simverify_verdicts{category="cache",result="fail"} 1`,
		`simverify_verdicts{category="virtual_memory",result="pass"} 0`,
		`simverify_tier{tier="partial"} 1`,
		`simverify_tier{tier="full"} 0`,
		"simverify_last_run_timestamp_seconds 1.7e+09",
		"# HELP simverify_tests_total",
		"# TYPE simverify_tier gauge",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestExporter_RecordResetsPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simverify.prom")
	e := NewExporter(path)

	e.Record(testSummary())
	e.Record(runner.Summary{Tier: runner.TierFull})
	if err := e.Write(); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	if !strings.Contains(text, `simverify_verdicts{category="allocation",result="pass"} 0`) {
		t.Errorf("verdicts were not reset:\n%s", text)
	}
	if !strings.Contains(text, `simverify_tier{tier="full"} 1`) || !strings.Contains(text, `simverify_tier{tier="partial"} 0`) {
		t.Errorf("tier not updated:\n%s", text)
	}
	if !strings.Contains(text, "simverify_pass_ratio 1") {
		t.Errorf("empty run should report ratio 1:\n%s", text)
	}
}

func TestExporter_WriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	e := NewExporter(filepath.Join(blocker, "sub", "m.prom"))
	e.Record(testSummary())
	if err := e.Write(); err == nil {
		t.Error("expected error when parent path is a file")
	}
}
