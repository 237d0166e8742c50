package usecase

import (
	"errors"
	"fmt"
	"sort"

	"lease-audit/internal/domain"

	"github.com/shopspring/decimal"
)

// ReconcileConfig tunes classification and the annotation passes.
type ReconcileConfig struct {
	// AmountTolerance is the largest |variance| still classified as MATCHED.
	AmountTolerance decimal.Decimal
	// SecondaryMatching pairs one-sided buckets that differ only in AR code.
	SecondaryMatching bool
	// TertiaryMatching pairs one-sided buckets that differ only in month.
	TertiaryMatching bool
	// MaxMonthDrift bounds how far apart a timing shift pair may be.
	MaxMonthDrift int
}

// DefaultReconcileConfig matches exactly and runs both annotation passes.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		AmountTolerance:   decimal.Zero,
		SecondaryMatching: true,
		TertiaryMatching:  true,
		MaxMonthDrift:     2,
	}
}

// Validate rejects settings that cannot classify consistently.
func (c ReconcileConfig) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance must not be negative, got %s", c.AmountTolerance)
	}
	if c.MaxMonthDrift < 0 {
		return fmt.Errorf("max month drift must not be negative, got %d", c.MaxMonthDrift)
	}
	return nil
}

type Reconciler struct {
	cfg ReconcileConfig
}

func NewReconciler(cfg ReconcileConfig) *Reconciler {
	return &Reconciler{cfg: cfg}
}

type bucketTotals struct {
	amount    decimal.Decimal
	sourceIDs map[string]struct{}
}

// Reconcile sums both sides per bucket key, outer-joins the totals and
// classifies every key. The output is sorted by key and does not depend on
// the order of either input.
func (r *Reconciler) Reconcile(expected, actual []domain.MonthlyRecord) ([]domain.BucketResult, error) {
	exp, err := groupByKey(expected, domain.FieldScheduledChargesID)
	if err != nil {
		return nil, err
	}
	act, err := groupByKey(actual, domain.FieldARTransactionID)
	if err != nil {
		return nil, err
	}

	keys := make([]domain.BucketKey, 0, len(exp)+len(act))
	for k := range exp {
		keys = append(keys, k)
	}
	for k := range act {
		if _, ok := exp[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	results := make([]domain.BucketResult, 0, len(keys))
	for _, k := range keys {
		e, inExp := exp[k]
		a, inAct := act[k]

		res := domain.BucketResult{
			Key:           k,
			ExpectedTotal: decimal.Zero,
			ActualTotal:   decimal.Zero,
		}
		if inExp {
			res.ExpectedTotal = e.amount
			res.ExpectedSourceIDs = sortedIDs(e.sourceIDs)
		}
		if inAct {
			res.ActualTotal = a.amount
			res.ActualSourceIDs = sortedIDs(a.sourceIDs)
		}
		res.Variance = res.ActualTotal.Sub(res.ExpectedTotal)

		switch {
		case inExp && inAct:
			res.MatchRule = domain.MatchExactKey
		case inExp:
			res.MatchRule = domain.MatchExpectedOnly
		default:
			res.MatchRule = domain.MatchActualOnly
		}
		res.Status = r.classify(res.Variance, inExp, inAct)
		results = append(results, res)
	}

	if r.cfg.SecondaryMatching {
		r.annotateMiscoded(results)
	}
	if r.cfg.TertiaryMatching {
		r.annotateTimingShift(results)
	}
	return results, nil
}

func (r *Reconciler) classify(variance decimal.Decimal, inExp, inAct bool) domain.Status {
	switch {
	case variance.Abs().LessThanOrEqual(r.cfg.AmountTolerance):
		return domain.StatusMatched
	case inExp && !inAct:
		return domain.StatusScheduledNotBilled
	case inAct && !inExp:
		return domain.StatusBilledNotScheduled
	default:
		return domain.StatusAmountMismatch
	}
}

func groupByKey(records []domain.MonthlyRecord, idField domain.Field) (map[domain.BucketKey]*bucketTotals, error) {
	out := make(map[domain.BucketKey]*bucketTotals)
	for _, rec := range records {
		if err := rec.Key.Validate(); err != nil {
			var ke *domain.KeyError
			if errors.As(err, &ke) {
				ke.Locator = fmt.Sprintf("%s=%s", idField, rec.SourceID)
			}
			return nil, err
		}
		t, ok := out[rec.Key]
		if !ok {
			t = &bucketTotals{amount: decimal.Zero, sourceIDs: make(map[string]struct{})}
			out[rec.Key] = t
		}
		t.amount = t.amount.Add(rec.Amount)
		if rec.SourceID != "" {
			t.sourceIDs[rec.SourceID] = struct{}{}
		}
	}
	return out, nil
}

func sortedIDs(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// oneSided splits the unannotated one-sided results into scheduled-not-billed
// and billed-not-scheduled index lists, both in key order.
func oneSided(results []domain.BucketResult) (snb, bns []int) {
	for i, res := range results {
		if len(res.Annotations) > 0 {
			continue
		}
		switch res.Status {
		case domain.StatusScheduledNotBilled:
			snb = append(snb, i)
		case domain.StatusBilledNotScheduled:
			bns = append(bns, i)
		}
	}
	return snb, bns
}

type leaseMonth struct {
	property int64
	lease    int64
	month    int64
}

// annotateMiscoded pairs a scheduled-not-billed bucket with a
// billed-not-scheduled bucket on the same lease and month under a different AR
// code when the amounts agree within tolerance. Candidates are taken by
// smallest amount delta, then key order.
func (r *Reconciler) annotateMiscoded(results []domain.BucketResult) {
	snb, bns := oneSided(results)
	if len(snb) == 0 || len(bns) == 0 {
		return
	}

	byLeaseMonth := make(map[leaseMonth][]int)
	for _, i := range bns {
		k := results[i].Key
		lm := leaseMonth{k.PropertyID, k.LeaseIntervalID, k.AuditMonth.Unix()}
		byLeaseMonth[lm] = append(byLeaseMonth[lm], i)
	}

	paired := make(map[int]bool)
	for _, i := range snb {
		k := results[i].Key
		want := results[i].ExpectedTotal

		best := -1
		var bestDelta decimal.Decimal
		for _, j := range byLeaseMonth[leaseMonth{k.PropertyID, k.LeaseIntervalID, k.AuditMonth.Unix()}] {
			if paired[j] || results[j].Key.ARCodeID == k.ARCodeID {
				continue
			}
			delta := results[j].ActualTotal.Sub(want).Abs()
			if delta.GreaterThan(r.cfg.AmountTolerance) {
				continue
			}
			if best < 0 || delta.LessThan(bestDelta) {
				best, bestDelta = j, delta
			}
		}
		if best < 0 {
			continue
		}
		paired[best] = true

		billed := results[best]
		delta := billed.ActualTotal.Sub(want)
		results[i].Annotations = append(results[i].Annotations, domain.Annotation{
			Kind:        domain.AnnotationMiscodedCharge,
			Counterpart: billed.Key,
			AmountDelta: delta,
			Detail:      fmt.Sprintf("billed under AR code %s instead of %s", billed.Key.ARCodeID, k.ARCodeID),
		})
		results[best].Annotations = append(results[best].Annotations, domain.Annotation{
			Kind:        domain.AnnotationMiscodedCharge,
			Counterpart: k,
			AmountDelta: delta.Neg(),
			Detail:      fmt.Sprintf("scheduled under AR code %s instead of %s", k.ARCodeID, billed.Key.ARCodeID),
		})
	}
}

// annotateTimingShift pairs a scheduled-not-billed bucket with a
// billed-not-scheduled bucket for the same AR code in a different month no
// more than MaxMonthDrift away. Candidates are taken by nearest month, then
// smallest amount delta, then earlier month.
func (r *Reconciler) annotateTimingShift(results []domain.BucketResult) {
	snb, bns := oneSided(results)
	if len(snb) == 0 || len(bns) == 0 {
		return
	}

	byCode := make(map[domain.ChargeCodeKey][]int)
	for _, i := range bns {
		cc := results[i].Key.ChargeCode()
		byCode[cc] = append(byCode[cc], i)
	}

	paired := make(map[int]bool)
	for _, i := range snb {
		k := results[i].Key
		want := results[i].ExpectedTotal

		best, bestDist := -1, 0
		var bestDelta decimal.Decimal
		for _, j := range byCode[k.ChargeCode()] {
			if paired[j] {
				continue
			}
			offset := domain.MonthsBetween(k.AuditMonth, results[j].Key.AuditMonth)
			dist := abs(offset)
			if dist == 0 || dist > r.cfg.MaxMonthDrift {
				continue
			}
			delta := results[j].ActualTotal.Sub(want).Abs()
			// bns is in key order, so on a full tie the earlier month is kept.
			if best < 0 || dist < bestDist || (dist == bestDist && delta.LessThan(bestDelta)) {
				best, bestDist, bestDelta = j, dist, delta
			}
		}
		if best < 0 {
			continue
		}
		paired[best] = true

		billed := results[best]
		offset := domain.MonthsBetween(k.AuditMonth, billed.Key.AuditMonth)
		delta := billed.ActualTotal.Sub(want)
		results[i].Annotations = append(results[i].Annotations, domain.Annotation{
			Kind:        domain.AnnotationTimingShift,
			Counterpart: billed.Key,
			AmountDelta: delta,
			MonthOffset: offset,
			Detail:      fmt.Sprintf("billed in %s instead of %s", billed.Key.AuditMonth.Format("2006-01"), k.AuditMonth.Format("2006-01")),
		})
		results[best].Annotations = append(results[best].Annotations, domain.Annotation{
			Kind:        domain.AnnotationTimingShift,
			Counterpart: k,
			AmountDelta: delta.Neg(),
			MonthOffset: -offset,
			Detail:      fmt.Sprintf("scheduled for %s, billed %s", k.AuditMonth.Format("2006-01"), billed.Key.AuditMonth.Format("2006-01")),
		})
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
