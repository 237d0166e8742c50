package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lease-audit/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ResolveRequest records a user's fix for one exception month.
type ResolveRequest struct {
	RunID string
	Key   domain.BucketKey
	// Status defaults to Resolved; no other target state is accepted.
	Status     domain.ExceptionStatus
	FixLabel   string
	ActionType string
	ResolvedBy string
	Variance   decimal.Decimal
}

func (r ResolveRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.RunID) == "" {
		missing = append(missing, "run_id")
	}
	if strings.TrimSpace(r.FixLabel) == "" {
		missing = append(missing, "fix_label")
	}
	if strings.TrimSpace(r.ActionType) == "" {
		missing = append(missing, "action_type")
	}
	if strings.TrimSpace(r.ResolvedBy) == "" {
		missing = append(missing, "resolved_by")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	if err := r.Key.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if r.Status != "" && r.Status != domain.ExceptionResolved {
		return fmt.Errorf("%w: Open -> %s", domain.ErrInvalidTransition, r.Status)
	}
	return nil
}

// ResolveResult is the record that now covers the key. Created is false when
// an earlier resolution already covered it; Historical is true when that
// resolution belongs to another run.
type ResolveResult struct {
	Record     domain.ExceptionMonth `json:"record"`
	Created    bool                  `json:"created"`
	Historical bool                  `json:"historical"`
}

// ChargeCodeSummary is the aggregate status of one AR code on one lease in a run.
type ChargeCodeSummary struct {
	Key    domain.ChargeCodeKey   `json:"key"`
	Status domain.AggregateStatus `json:"status"`
	Months []domain.ExceptionView `json:"months"`
}

// Tracker overlays stored resolutions on bucket results. It never caches:
// every read goes to the store so a resolution written by another session is
// visible to the next read.
type Tracker struct {
	store  ExceptionStore
	now    func() time.Time
	logger zerolog.Logger
}

func NewTracker(store ExceptionStore, now func() time.Time, logger zerolog.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, now: now, logger: logger}
}

// Resolve moves an exception month from Open to Resolved. Existing resolutions
// are looked up across all runs first; when one is found it is returned as is
// and nothing is written.
func (t *Tracker) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	if err := req.validate(); err != nil {
		return ResolveResult{}, err
	}

	existing, err := t.Lookup(ctx, req.Key)
	switch {
	case err == nil && existing.Resolved():
		t.logger.Info().
			Str("key", req.Key.String()).
			Str("run_id", req.RunID).
			Str("resolved_in", existing.RunID).
			Msg("exception already resolved")
		return ResolveResult{Record: existing, Historical: existing.RunID != req.RunID}, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return ResolveResult{}, err
	}

	now := t.now().UTC()
	m := domain.ExceptionMonth{
		RunID:      req.RunID,
		Key:        req.Key,
		Status:     domain.ExceptionResolved,
		FixLabel:   req.FixLabel,
		ActionType: req.ActionType,
		Variance:   req.Variance,
		ResolvedAt: &now,
		ResolvedBy: req.ResolvedBy,
		UpdatedAt:  now,
	}
	if err := t.store.UpsertException(ctx, m); err != nil {
		return ResolveResult{}, fmt.Errorf("failed to save resolution for %s: %w", req.Key, err)
	}
	t.logger.Info().Str("key", req.Key.String()).Str("run_id", req.RunID).Str("by", req.ResolvedBy).Msg("exception resolved")
	return ResolveResult{Record: m, Created: true}, nil
}

// Lookup returns the record that decides the state of key, searching every
// run. A resolved record beats an unresolved one; among resolved records the
// latest ResolvedAt wins.
func (t *Tracker) Lookup(ctx context.Context, key domain.BucketKey) (domain.ExceptionMonth, error) {
	records, err := t.store.FindResolutions(ctx, domain.QueryFor(key))
	if err != nil {
		return domain.ExceptionMonth{}, fmt.Errorf("failed to find resolutions for %s: %w", key, err)
	}
	best, ok := latest(records)
	if !ok {
		return domain.ExceptionMonth{}, fmt.Errorf("exception %s: %w", key, domain.ErrNotFound)
	}
	return best, nil
}

// Overlay returns the exception buckets of a run with their resolution state.
// The store is queried once per charge code rather than once per month.
func (t *Tracker) Overlay(ctx context.Context, runID string, results []domain.BucketResult) ([]domain.ExceptionView, error) {
	byCode := make(map[domain.ChargeCodeKey][]domain.ExceptionMonth)
	views := make([]domain.ExceptionView, 0)
	for _, res := range results {
		if !res.Status.IsException() {
			continue
		}
		cc := res.Key.ChargeCode()
		records, seen := byCode[cc]
		if !seen {
			var err error
			records, err = t.store.FindResolutions(ctx, domain.ExceptionQuery{
				PropertyID:      cc.PropertyID,
				LeaseIntervalID: cc.LeaseIntervalID,
				ARCodeID:        cc.ARCodeID,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to find resolutions for %d/%d/%s: %w",
					cc.PropertyID, cc.LeaseIntervalID, cc.ARCodeID, err)
			}
			byCode[cc] = records
		}
		views = append(views, view(runID, res, records))
	}
	return views, nil
}

// ChargeCodeStatus folds the exception months of one charge code in a run.
func (t *Tracker) ChargeCodeStatus(ctx context.Context, runID string, cc domain.ChargeCodeKey, results []domain.BucketResult) (ChargeCodeSummary, error) {
	var scoped []domain.BucketResult
	for _, res := range results {
		if res.Key.ChargeCode() == cc {
			scoped = append(scoped, res)
		}
	}
	views, err := t.Overlay(ctx, runID, scoped)
	if err != nil {
		return ChargeCodeSummary{}, err
	}
	return summarize(cc, views), nil
}

// Summaries folds every charge code of a run, in key order.
func (t *Tracker) Summaries(ctx context.Context, runID string, results []domain.BucketResult) ([]ChargeCodeSummary, error) {
	views, err := t.Overlay(ctx, runID, results)
	if err != nil {
		return nil, err
	}

	var order []domain.ChargeCodeKey
	grouped := make(map[domain.ChargeCodeKey][]domain.ExceptionView)
	for _, res := range results {
		cc := res.Key.ChargeCode()
		if _, ok := grouped[cc]; !ok {
			order = append(order, cc)
			grouped[cc] = nil
		}
	}
	for _, v := range views {
		cc := v.Result.Key.ChargeCode()
		grouped[cc] = append(grouped[cc], v)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.PropertyID != b.PropertyID {
			return a.PropertyID < b.PropertyID
		}
		if a.LeaseIntervalID != b.LeaseIntervalID {
			return a.LeaseIntervalID < b.LeaseIntervalID
		}
		return a.ARCodeID < b.ARCodeID
	})

	out := make([]ChargeCodeSummary, 0, len(order))
	for _, cc := range order {
		out = append(out, summarize(cc, grouped[cc]))
	}
	return out, nil
}

// AggregateStatus folds month statuses: no months is Passed, all Resolved is
// Resolved, anything else is Open.
func AggregateStatus(statuses []domain.ExceptionStatus) domain.AggregateStatus {
	if len(statuses) == 0 {
		return domain.AggregatePassed
	}
	for _, s := range statuses {
		if s != domain.ExceptionResolved {
			return domain.AggregateOpen
		}
	}
	return domain.AggregateResolved
}

func summarize(cc domain.ChargeCodeKey, views []domain.ExceptionView) ChargeCodeSummary {
	statuses := make([]domain.ExceptionStatus, len(views))
	for i, v := range views {
		statuses[i] = v.Status
	}
	if views == nil {
		views = []domain.ExceptionView{}
	}
	return ChargeCodeSummary{Key: cc, Status: AggregateStatus(statuses), Months: views}
}

func view(runID string, res domain.BucketResult, records []domain.ExceptionMonth) domain.ExceptionView {
	q := domain.QueryFor(res.Key)
	var matching []domain.ExceptionMonth
	for _, m := range records {
		if q.Matches(m) {
			matching = append(matching, m)
		}
	}

	v := domain.ExceptionView{Result: res, Status: domain.ExceptionOpen}
	if m, ok := latest(matching); ok && m.Resolved() {
		v.Status = domain.ExceptionResolved
		v.Historical = m.RunID != runID
		v.Record = &m
	}
	return v
}

// latest picks the deciding record: resolved before unresolved, then the most
// recent ResolvedAt (UpdatedAt for unresolved), then the greater run id.
func latest(records []domain.ExceptionMonth) (domain.ExceptionMonth, bool) {
	if len(records) == 0 {
		return domain.ExceptionMonth{}, false
	}
	when := func(m domain.ExceptionMonth) time.Time {
		if m.ResolvedAt != nil {
			return *m.ResolvedAt
		}
		return m.UpdatedAt
	}
	best := records[0]
	for _, m := range records[1:] {
		switch {
		case m.Resolved() != best.Resolved():
			if m.Resolved() {
				best = m
			}
		case when(m).After(when(best)):
			best = m
		case when(m).Equal(when(best)) && m.RunID > best.RunID:
			best = m
		}
	}
	return best, true
}
