package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lease-audit/internal/domain"
)

type storedRun struct {
	meta     domain.RunMetadata
	buckets  []domain.BucketResult
	findings []domain.Finding
}

type exceptionKey struct {
	runID    string
	property int64
	lease    int64
	arCode   string
	month    int64
}

// MemoryStore keeps runs and resolutions in process memory. It serves tests
// and one-shot CLI runs that do not need persistence.
type MemoryStore struct {
	runs       map[string]*storedRun
	exceptions map[exceptionKey]domain.ExceptionMonth
	mu         sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:       make(map[string]*storedRun),
		exceptions: make(map[exceptionKey]domain.ExceptionMonth),
	}
}

func (s *MemoryStore) SaveRun(_ context.Context, meta domain.RunMetadata, buckets []domain.BucketResult, findings []domain.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.runs[meta.RunID]; dup {
		return fmt.Errorf("run %s already saved", meta.RunID)
	}
	s.runs[meta.RunID] = &storedRun{
		meta:     meta,
		buckets:  append([]domain.BucketResult(nil), buckets...),
		findings: append([]domain.Finding(nil), findings...),
	}
	return nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]domain.RunMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RunMetadata, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.meta)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].RunID > out[j].RunID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) LoadBuckets(_ context.Context, runID string) ([]domain.BucketResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	return append([]domain.BucketResult(nil), r.buckets...), nil
}

func (s *MemoryStore) LoadFindings(_ context.Context, runID string) ([]domain.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	return append([]domain.Finding(nil), r.findings...), nil
}

// FindResolutions scans every run's records for the entity key.
func (s *MemoryStore) FindResolutions(_ context.Context, q domain.ExceptionQuery) ([]domain.ExceptionMonth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ExceptionMonth, 0)
	for _, m := range s.exceptions {
		if q.Matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Key.AuditMonth.Equal(out[j].Key.AuditMonth) {
			return out[i].Key.AuditMonth.Before(out[j].Key.AuditMonth)
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

// UpsertException replaces any record with the same run and key.
func (s *MemoryStore) UpsertException(_ context.Context, m domain.ExceptionMonth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exceptions[exceptionKey{
		runID:    m.RunID,
		property: m.Key.PropertyID,
		lease:    m.Key.LeaseIntervalID,
		arCode:   m.Key.ARCodeID,
		month:    m.Key.AuditMonth.Unix(),
	}] = m
	return nil
}
