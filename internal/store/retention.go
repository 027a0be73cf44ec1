package store

import (
	"context"
	"fmt"
	"time"
)

// RetentionPolicy decides which recorded runs to keep.
type RetentionPolicy interface {
	// Apply receives runs newest first and returns the ones to keep.
	Apply(runs []RunRecord) (keep []RunRecord)
}

// CountPolicy keeps the N most recent runs.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount runs (assumed sorted newest-first).
func (p *CountPolicy) Apply(runs []RunRecord) []RunRecord {
	if len(runs) <= p.MaxCount {
		return runs
	}
	return runs[:p.MaxCount]
}

// AgePolicy keeps runs started within MaxAge of now.
type AgePolicy struct {
	MaxAge time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Apply keeps runs whose StartedAt is after the cutoff.
func (p *AgePolicy) Apply(runs []RunRecord) []RunRecord {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().Add(-p.MaxAge)
	var keep []RunRecord
	for _, r := range runs {
		if r.StartedAt.After(cutoff) {
			keep = append(keep, r)
		}
	}
	return keep
}

// CompositePolicy keeps a run only if EVERY sub-policy keeps it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Apply returns the intersection of the runs kept by each sub-policy.
func (p *CompositePolicy) Apply(runs []RunRecord) []RunRecord {
	votes := make(map[string]int, len(runs))
	for _, policy := range p.Policies {
		for _, r := range policy.Apply(runs) {
			votes[r.ID]++
		}
	}

	var keep []RunRecord
	for _, r := range runs {
		if votes[r.ID] == len(p.Policies) {
			keep = append(keep, r)
		}
	}
	return keep
}

// NewRetentionPolicy combines a run count and an age limit. Zero disables a
// limit; nil is returned when both are zero.
func NewRetentionPolicy(maxRuns int, maxAge time.Duration) RetentionPolicy {
	var policies []RetentionPolicy
	if maxRuns > 0 {
		policies = append(policies, &CountPolicy{MaxCount: maxRuns})
	}
	if maxAge > 0 {
		policies = append(policies, &AgePolicy{MaxAge: maxAge})
	}
	switch len(policies) {
	case 0:
		return nil
	case 1:
		return policies[0]
	}
	return &CompositePolicy{Policies: policies}
}

// SetRetention makes Observe prune after each recorded run. nil disables pruning.
func (s *HistoryStore) SetRetention(p RetentionPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retention = p
}

// Prune deletes every run the policy does not keep, with its verdicts, and
// returns the deleted run IDs.
func (s *HistoryStore) Prune(ctx context.Context, policy RetentionPolicy) (deleted []string, err error) {
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return nil, err
	}

	keep := policy.Apply(runs)
	keepSet := make(map[string]bool, len(keep))
	for _, r := range keep {
		keepSet[r.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range runs {
		if keepSet[r.ID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, r.ID); err != nil {
			return nil, fmt.Errorf("removing run %s: %w", r.ID, err)
		}
		deleted = append(deleted, r.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit prune: %w", err)
	}
	return deleted, nil
}
