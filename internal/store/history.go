package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/simverify/internal/constants"
	"github.com/nvandessel/simverify/internal/runner"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeFormat is fixed-width so stored times sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one stored validation run.
type RunRecord struct {
	ID          string        `json:"id" yaml:"id"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	ResultsDir  string        `json:"results_dir" yaml:"results_dir"`
	Passed      int           `json:"passed" yaml:"passed"`
	Total       int           `json:"total" yaml:"total"`
	Threshold   float64       `json:"threshold" yaml:"threshold"`
	Tier        string        `json:"tier" yaml:"tier"`
	Interrupted bool          `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`

	// Verdicts is populated by GetRun only.
	Verdicts []VerdictRecord `json:"verdicts,omitempty" yaml:"verdicts,omitempty"`
}

// VerdictRecord is one stored per-artifact verdict.
type VerdictRecord struct {
	Artifact string `json:"artifact" yaml:"artifact"`
	Category string `json:"category" yaml:"category"`
	Label    string `json:"label" yaml:"label"`
	Outcome  string `json:"outcome" yaml:"outcome"`
	Success  bool   `json:"success" yaml:"success"`
	Message  string `json:"message" yaml:"message"`
	SHA256   string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
}

// HistoryStore persists run summaries in SQLite.
type HistoryStore struct {
	mu        sync.Mutex
	db        *sql.DB
	dbPath    string
	retention RetentionPolicy
}

// NewHistoryStore opens (creating if needed) dir/history.db.
func NewHistoryStore(dir string) (*HistoryStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("history directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dbPath := filepath.Join(dir, constants.HistoryDBName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &HistoryStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *HistoryStore) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// RecordRun stores a finished run and its verdicts in one transaction.
func (s *HistoryStore) RecordRun(ctx context.Context, sum runner.Summary) error {
	if sum.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, duration_ms, results_dir, passed, total, threshold, tier, interrupted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID,
		sum.StartedAt.UTC().Format(timeFormat),
		sum.Duration.Milliseconds(),
		sum.ResultsDir,
		sum.Passed,
		sum.Total,
		sum.Threshold,
		string(sum.Tier),
		boolToInt(sum.Interrupted),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verdicts (run_id, position, artifact, category, label, outcome, success, message, sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare verdict insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range sum.Results {
		digest := sql.NullString{String: r.Digest, Valid: r.Digest != ""}
		if _, err := stmt.ExecContext(ctx,
			sum.RunID, i,
			r.Entry.Artifact,
			r.Entry.Category.String(),
			r.Entry.Label,
			string(r.Outcome),
			boolToInt(r.Verdict.Success),
			r.Verdict.Message,
			digest,
		); err != nil {
			return fmt.Errorf("failed to insert verdict for %s: %w", r.Entry.Artifact, err)
		}
	}

	return tx.Commit()
}

// Observe implements runner.Observer by recording the run, then applying the
// retention policy if one is set.
func (s *HistoryStore) Observe(ctx context.Context, sum runner.Summary) error {
	if err := s.RecordRun(ctx, sum); err != nil {
		return err
	}

	s.mu.Lock()
	policy := s.retention
	s.mu.Unlock()
	if policy == nil {
		return nil
	}
	_, err := s.Prune(ctx, policy)
	return err
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *HistoryStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, started_at, duration_ms, results_dir, passed, total, threshold, tier, interrupted
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its verdicts in manifest order.
func (s *HistoryStore) GetRun(ctx context.Context, id string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, duration_ms, results_dir, passed, total, threshold, tier, interrupted
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT artifact, category, label, outcome, success, message, sha256
		FROM verdicts WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v VerdictRecord
		var success int
		var digest sql.NullString
		if err := rows.Scan(&v.Artifact, &v.Category, &v.Label, &v.Outcome, &success, &v.Message, &digest); err != nil {
			return RunRecord{}, fmt.Errorf("failed to scan verdict: %w", err)
		}
		v.Success = success != 0
		v.SHA256 = digest.String
		run.Verdicts = append(run.Verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return RunRecord{}, fmt.Errorf("failed to iterate verdicts: %w", err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var run RunRecord
	var startedAt string
	var durationMs int64
	var interrupted int
	err := row.Scan(&run.ID, &startedAt, &durationMs, &run.ResultsDir,
		&run.Passed, &run.Total, &run.Threshold, &run.Tier, &interrupted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt, err = time.Parse(timeFormat, startedAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to parse started_at for run %s: %w", run.ID, err)
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.Interrupted = interrupted != 0
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
