package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/simverify/internal/manifest"
	"github.com/nvandessel/simverify/internal/runner"
	"github.com/nvandessel/simverify/internal/validate"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := NewHistoryStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSummary(id string, started time.Time) runner.Summary {
	return runner.Summary{
		RunID:      id,
		ResultsDir: "results",
		StartedAt:  started,
		Duration:   1500 * time.Millisecond,
		Passed:     1,
		Total:      2,
		Threshold:  0.7,
		Tier:       runner.TierFailure,
		Results: []runner.Result{
			{
				Entry:   manifest.Entry{Artifact: "seq_alloc_result.txt", Category: validate.CategoryAllocation, Label: "Sequential Allocation"},
				Outcome: runner.OutcomeValidated,
				Verdict: validate.Pass("Allocation test passed"),
				Digest:  "abc123",
			},
			{
				Entry:   manifest.Entry{Artifact: "lru_result.txt", Category: validate.CategoryCache, Label: "LRU Replacement"},
				Outcome: runner.OutcomeMissing,
				Verdict: validate.Fail("lru_result.txt - Result file not found"),
			},
		},
	}
}

func TestNewHistoryStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	s, err := NewHistoryStore(dir)
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	defer s.Close()

	if s.Path() != filepath.Join(dir, "history.db") {
		t.Errorf("Path() = %s", s.Path())
	}

	version, err := getSchemaVersion(context.Background(), s.db)
	if err != nil {
		t.Fatalf("getSchemaVersion() error = %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestNewHistoryStore_EmptyDir(t *testing.T) {
	if _, err := NewHistoryStore(""); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestNewHistoryStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewHistoryStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, testSummary("run-1", time.Now())); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := NewHistoryStore(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()

	runs, err := s2.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs after reopen, want 1", len(runs))
	}
}

func TestRecordRun_GetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)

	if err := s.RecordRun(ctx, testSummary("run-1", started)); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	run, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}

	if !run.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
	}
	if run.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", run.Duration)
	}
	if run.Passed != 1 || run.Total != 2 || run.Tier != "failure" {
		t.Errorf("unexpected run: %+v", run)
	}
	if len(run.Verdicts) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(run.Verdicts))
	}

	first := run.Verdicts[0]
	if first.Artifact != "seq_alloc_result.txt" || first.Category != "allocation" || !first.Success || first.SHA256 != "abc123" {
		t.Errorf("unexpected first verdict: %+v", first)
	}
	second := run.Verdicts[1]
	if second.Outcome != "missing" || second.Success || second.SHA256 != "" {
		t.Errorf("unexpected second verdict: %+v", second)
	}
}

func TestRecordRun_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordRun(ctx, testSummary("run-1", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, testSummary("run-1", time.Now())); err == nil {
		t.Error("expected error for duplicate run ID")
	}

	run, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Verdicts) != 2 {
		t.Errorf("failed insert should roll back, got %d verdicts", len(run.Verdicts))
	}
}

func TestRecordRun_RequiresID(t *testing.T) {
	s := newTestStore(t)
	if err := s.RecordRun(context.Background(), runner.Summary{}); err == nil {
		t.Error("expected error for empty run ID")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Sub-second offsets exercise lexical ordering of the stored times.
	offsets := []time.Duration{0, 500 * time.Millisecond, time.Second, 2 * time.Second}
	for i, off := range offsets {
		id := string(rune('a' + i))
		if err := s.RecordRun(ctx, testSummary(id, base.Add(off))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	want := []string{"d", "c", "b"}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("runs[%d].ID = %s, want %s", i, runs[i].ID, id)
		}
		if runs[i].Verdicts != nil {
			t.Error("ListRuns should not load verdicts")
		}
	}

	all, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("got %d runs with no limit, want 4", len(all))
	}
}

func TestObserve_RecordsRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var obs runner.Observer = s
	if err := obs.Observe(ctx, testSummary("observed", time.Now())); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if _, err := s.GetRun(ctx, "observed"); err != nil {
		t.Errorf("observed run not stored: %v", err)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("first InitSchema() error = %v", err)
	}
	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("second InitSchema() error = %v", err)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}
}

func TestInitSchema_RejectsNewerVersion(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	if err := InitSchema(ctx, db); err == nil {
		t.Error("expected error for newer schema version")
	}
}

func TestInitSchema_RejectsOlderVersion(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, `UPDATE schema_version SET version = ?`, SchemaVersion-1); err != nil {
		t.Fatal(err)
	}
	err = InitSchema(ctx, db)
	if err == nil || !strings.Contains(err.Error(), "older than supported") {
		t.Errorf("InitSchema() error = %v, want older-version error", err)
	}
}
