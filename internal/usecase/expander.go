package usecase

import (
	"fmt"
	"time"

	"lease-audit/internal/domain"

	"github.com/shopspring/decimal"
)

// InvariantPolicy decides what a run does with a record that breaks a domain
// invariant. Either way the violation is reported.
type InvariantPolicy string

const (
	PolicyFail InvariantPolicy = "fail"
	PolicySkip InvariantPolicy = "skip"
)

// ExpandResult is the monthly output of the scheduled side.
type ExpandResult struct {
	Records    []domain.MonthlyRecord
	Violations []error
}

// Expand turns one normalized scheduled charge into one record per calendar
// month from PERIOD_START through PERIOD_END. A null end is a one-time charge.
// Every month carries the full amount.
func Expand(rec domain.Record) ([]domain.MonthlyRecord, error) {
	start, ok := rec.Date(domain.FieldPeriodStart)
	if !ok {
		return nil, invariant(rec, domain.FieldPeriodStart, "period start is null")
	}
	amount, ok := rec.Decimal(domain.FieldExpectedAmount)
	if !ok {
		return nil, invariant(rec, domain.FieldExpectedAmount, "expected amount is null")
	}

	first := domain.MonthStart(start)
	last := first
	var endPtr *time.Time
	if end, ok := rec.Date(domain.FieldPeriodEnd); ok {
		if end.Before(start) {
			return nil, invariant(rec, domain.FieldPeriodEnd, fmt.Sprintf("period end %s is before period start %s",
				end.Format(time.DateOnly), start.Format(time.DateOnly)))
		}
		last = domain.MonthStart(end)
		endPtr = &end
	}

	base := domain.MonthlyRecord{
		Key: domain.BucketKey{
			PropertyID:      intOf(rec, domain.FieldPropertyID),
			LeaseIntervalID: intOf(rec, domain.FieldLeaseIntervalID),
			ARCodeID:        stringOf(rec, domain.FieldARCodeID),
		},
		Amount:      amount,
		SourceID:    stringOf(rec, domain.FieldScheduledChargesID),
		PeriodStart: &start,
		PeriodEnd:   endPtr,
	}

	months := domain.MonthsBetween(first, last) + 1
	out := make([]domain.MonthlyRecord, 0, months)
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		r := base
		r.Key.AuditMonth = m
		out = append(out, r)
	}
	return out, nil
}

// ExpandAll expands every scheduled charge. Under PolicyFail the first
// violation stops the batch; under PolicySkip the charge is left out and the
// violation returned alongside the records.
func ExpandAll(records []domain.Record, policy InvariantPolicy) (ExpandResult, error) {
	var result ExpandResult
	for _, rec := range records {
		months, err := Expand(rec)
		if err != nil {
			if policy != PolicySkip {
				return ExpandResult{}, err
			}
			result.Violations = append(result.Violations, err)
			continue
		}
		result.Records = append(result.Records, months...)
	}
	return result, nil
}

// ActualMonthly places normalized AR transactions in their buckets. The audit
// month is taken as delivered; a month that is not normalized is caught by the
// reconciler rather than silently corrected here.
func ActualMonthly(records []domain.Record) []domain.MonthlyRecord {
	out := make([]domain.MonthlyRecord, 0, len(records))
	for _, rec := range records {
		month, _ := rec.Date(domain.FieldAuditMonth)
		amount, ok := rec.Decimal(domain.FieldActualAmount)
		if !ok {
			amount = decimal.Zero
		}
		r := domain.MonthlyRecord{
			Key: domain.BucketKey{
				PropertyID:      intOf(rec, domain.FieldPropertyID),
				LeaseIntervalID: intOf(rec, domain.FieldLeaseIntervalID),
				ARCodeID:        stringOf(rec, domain.FieldARCodeID),
				AuditMonth:      month,
			},
			Amount:   amount,
			SourceID: stringOf(rec, domain.FieldARTransactionID),
		}
		if post, ok := rec.Date(domain.FieldPostDate); ok {
			r.PostDate = &post
		}
		if rev, ok := rec.Bool(domain.FieldIsReversal); ok {
			r.IsReversal = rev
		}
		out = append(out, r)
	}
	return out
}

func invariant(rec domain.Record, f domain.Field, reason string) error {
	ids := make(map[domain.Field]string)
	for _, id := range []domain.Field{
		domain.FieldScheduledChargesID,
		domain.FieldPropertyID,
		domain.FieldLeaseIntervalID,
		domain.FieldARCodeID,
		domain.FieldSourceRowID,
	} {
		if rec.Has(id) {
			ids[id], _ = domain.ParseString(rec[id])
		}
	}
	return &domain.InvariantError{Field: f, Reason: reason, Identifiers: ids}
}

func intOf(rec domain.Record, f domain.Field) int64 {
	v, _ := rec.Int(f)
	return v
}

func stringOf(rec domain.Record, f domain.Field) string {
	v, _ := rec.String(f)
	return v
}
