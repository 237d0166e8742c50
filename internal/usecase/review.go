package usecase

import (
	"context"
	"fmt"

	"lease-audit/internal/domain"
)

// ReviewUseCase serves persisted runs with the current resolution state laid
// over them.
type ReviewUseCase struct {
	runs    RunLister
	reader  RunReader
	tracker *Tracker
}

func NewReviewUseCase(runs RunLister, reader RunReader, tracker *Tracker) *ReviewUseCase {
	return &ReviewUseCase{runs: runs, reader: reader, tracker: tracker}
}

func (uc *ReviewUseCase) ListRuns(ctx context.Context, limit int) ([]domain.RunMetadata, error) {
	if limit <= 0 {
		limit = 50
	}
	return uc.runs.ListRuns(ctx, limit)
}

func (uc *ReviewUseCase) Findings(ctx context.Context, runID string) ([]domain.Finding, error) {
	return uc.reader.LoadFindings(ctx, runID)
}

// Exceptions returns every exception bucket of a run with its resolution state.
func (uc *ReviewUseCase) Exceptions(ctx context.Context, runID string) ([]domain.ExceptionView, error) {
	buckets, err := uc.reader.LoadBuckets(ctx, runID)
	if err != nil {
		return nil, err
	}
	return uc.tracker.Overlay(ctx, runID, buckets)
}

// ChargeCodes returns the aggregate status of every charge code in a run.
func (uc *ReviewUseCase) ChargeCodes(ctx context.Context, runID string) ([]ChargeCodeSummary, error) {
	buckets, err := uc.reader.LoadBuckets(ctx, runID)
	if err != nil {
		return nil, err
	}
	return uc.tracker.Summaries(ctx, runID, buckets)
}

// ChargeCode returns the aggregate status of one charge code in a run.
func (uc *ReviewUseCase) ChargeCode(ctx context.Context, runID string, cc domain.ChargeCodeKey) (ChargeCodeSummary, error) {
	buckets, err := uc.reader.LoadBuckets(ctx, runID)
	if err != nil {
		return ChargeCodeSummary{}, err
	}
	return uc.tracker.ChargeCodeStatus(ctx, runID, cc, buckets)
}

// Resolve records a fix for a bucket of a run. The bucket must exist in the run
// and be an exception; its variance is snapshotted from the run.
func (uc *ReviewUseCase) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	buckets, err := uc.reader.LoadBuckets(ctx, req.RunID)
	if err != nil {
		return ResolveResult{}, err
	}
	for _, b := range buckets {
		if !b.Key.Equal(req.Key) {
			continue
		}
		if !b.Status.IsException() {
			return ResolveResult{}, fmt.Errorf("%w: bucket %s is %s", domain.ErrInvalidTransition, b.Key, b.Status)
		}
		req.Variance = b.Variance
		return uc.tracker.Resolve(ctx, req)
	}
	return ResolveResult{}, fmt.Errorf("bucket %s in run %s: %w", req.Key, req.RunID, domain.ErrNotFound)
}
