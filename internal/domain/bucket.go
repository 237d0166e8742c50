package domain

import (
	"github.com/shopspring/decimal"
)

// Status classifies a reconciled bucket.
type Status string

const (
	StatusMatched            Status = "MATCHED"
	StatusScheduledNotBilled Status = "SCHEDULED_NOT_BILLED"
	StatusBilledNotScheduled Status = "BILLED_NOT_SCHEDULED"
	StatusAmountMismatch     Status = "AMOUNT_MISMATCH"
)

// Statuses lists every bucket status.
var Statuses = []Status{StatusMatched, StatusScheduledNotBilled, StatusBilledNotScheduled, StatusAmountMismatch}

// IsException reports whether a bucket in this status needs review.
func (s Status) IsException() bool {
	return s != StatusMatched
}

// MatchRule records which join partition produced a bucket result.
type MatchRule string

const (
	MatchExactKey     MatchRule = "EXACT_KEY"
	MatchExpectedOnly MatchRule = "EXPECTED_ONLY"
	MatchActualOnly   MatchRule = "ACTUAL_ONLY"
)

// AnnotationKind names a secondary explanation for a one-sided bucket.
type AnnotationKind string

const (
	// AnnotationMiscodedCharge pairs a scheduled-not-billed bucket with a
	// billed-not-scheduled bucket for the same lease and month under another AR code.
	AnnotationMiscodedCharge AnnotationKind = "MISCODED_CHARGE"
	// AnnotationTimingShift pairs one-sided buckets for the same AR code that
	// landed in different months.
	AnnotationTimingShift AnnotationKind = "TIMING_SHIFT"
)

// Annotation explains a bucket without replacing its classification.
type Annotation struct {
	Kind        AnnotationKind  `json:"kind"`
	Counterpart BucketKey       `json:"counterpart"`
	AmountDelta decimal.Decimal `json:"amount_delta"`
	MonthOffset int             `json:"month_offset,omitempty"`
	Detail      string          `json:"detail"`
}

// BucketResult is the outcome for one bucket in one run. It is never mutated
// after the run completes.
type BucketResult struct {
	Key               BucketKey       `json:"key"`
	ExpectedTotal     decimal.Decimal `json:"expected_total"`
	ActualTotal       decimal.Decimal `json:"actual_total"`
	Variance          decimal.Decimal `json:"variance"`
	Status            Status          `json:"status"`
	MatchRule         MatchRule       `json:"match_rule"`
	ExpectedSourceIDs []string        `json:"expected_source_ids,omitempty"`
	ActualSourceIDs   []string        `json:"actual_source_ids,omitempty"`
	Annotations       []Annotation    `json:"annotations,omitempty"`
}

// HasAnnotation reports whether r carries an annotation of kind k.
func (r BucketResult) HasAnnotation(k AnnotationKind) bool {
	for _, a := range r.Annotations {
		if a.Kind == k {
			return true
		}
	}
	return false
}
