package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is one untyped row as delivered by a record source, keyed by raw
// source column name.
type RawRecord map[string]any

// RawBatch is the rows of one source. Columns is the header as delivered; when
// empty the header is inferred from the rows.
type RawBatch struct {
	Source  string      `json:"source"`
	Columns []string    `json:"columns"`
	Rows    []RawRecord `json:"rows"`
}

// Header returns the set of columns present in the batch.
func (b RawBatch) Header() map[string]bool {
	header := make(map[string]bool, len(b.Columns))
	for _, c := range b.Columns {
		header[c] = true
	}
	if len(b.Columns) == 0 {
		for _, row := range b.Rows {
			for c := range row {
				header[c] = true
			}
		}
	}
	return header
}

// Record is a canonical record. Values are untyped after mapping and typed
// (int64, string, decimal.Decimal, time.Time, bool) after normalization.
// A missing key and a nil value both mean null.
type Record map[Field]any

// Has reports whether f holds a non-nil value.
func (r Record) Has(f Field) bool {
	v, ok := r[f]
	return ok && v != nil
}

func (r Record) Int(f Field) (int64, bool) {
	v, ok := r[f].(int64)
	return v, ok
}

func (r Record) String(f Field) (string, bool) {
	v, ok := r[f].(string)
	return v, ok
}

func (r Record) Decimal(f Field) (decimal.Decimal, bool) {
	v, ok := r[f].(decimal.Decimal)
	return v, ok
}

func (r Record) Date(f Field) (time.Time, bool) {
	v, ok := r[f].(time.Time)
	return v, ok
}

func (r Record) Bool(f Field) (bool, bool) {
	v, ok := r[f].(bool)
	return v, ok
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Locator describes where a record came from, for error messages.
func (r Record) Locator() string {
	src, _ := r[FieldSourceSystem].(string)
	row, _ := r[FieldSourceRowID].(string)
	if src == "" && row == "" {
		return "unknown source row"
	}
	return fmt.Sprintf("%s row %s", src, row)
}

// MonthStart truncates t to the first day of its month at midnight UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// IsMonthStart reports whether t is already normalized to a month bucket.
func IsMonthStart(t time.Time) bool {
	return !t.IsZero() && t.Equal(MonthStart(t)) && t.Location() == time.UTC
}

// MonthsBetween returns the signed number of calendar months from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// BucketKey is the reconciliation grain.
type BucketKey struct {
	PropertyID      int64     `json:"property_id"`
	LeaseIntervalID int64     `json:"lease_interval_id"`
	ARCodeID        string    `json:"ar_code_id"`
	AuditMonth      time.Time `json:"audit_month"`
}

// Validate rejects keys that would group incorrectly: identifiers outside the
// positive id space or a month that is not normalized to its first day.
// Property and lease interval ids are source-system surrogate keys, so zero
// and negative values never name a real entity.
func (k BucketKey) Validate() error {
	var problems []string
	if k.PropertyID <= 0 {
		problems = append(problems, fmt.Sprintf("%s must be a positive id, got %d", FieldPropertyID, k.PropertyID))
	}
	if k.LeaseIntervalID <= 0 {
		problems = append(problems, fmt.Sprintf("%s must be a positive id, got %d", FieldLeaseIntervalID, k.LeaseIntervalID))
	}
	if strings.TrimSpace(k.ARCodeID) == "" {
		problems = append(problems, fmt.Sprintf("%s is null", FieldARCodeID))
	}
	if !IsMonthStart(k.AuditMonth) {
		problems = append(problems, fmt.Sprintf("%s %s is not a normalized month", FieldAuditMonth, k.AuditMonth.Format(time.RFC3339)))
	}
	if len(problems) > 0 {
		return &KeyError{Key: k, Reason: strings.Join(problems, "; ")}
	}
	return nil
}

// Less orders keys by property, lease interval, AR code, then month.
func (k BucketKey) Less(o BucketKey) bool {
	if k.PropertyID != o.PropertyID {
		return k.PropertyID < o.PropertyID
	}
	if k.LeaseIntervalID != o.LeaseIntervalID {
		return k.LeaseIntervalID < o.LeaseIntervalID
	}
	if k.ARCodeID != o.ARCodeID {
		return k.ARCodeID < o.ARCodeID
	}
	return k.AuditMonth.Before(o.AuditMonth)
}

// Equal compares keys by instant rather than by time representation.
func (k BucketKey) Equal(o BucketKey) bool {
	return k.PropertyID == o.PropertyID && k.LeaseIntervalID == o.LeaseIntervalID &&
		k.ARCodeID == o.ARCodeID && k.AuditMonth.Equal(o.AuditMonth)
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%d/%d/%s/%s", k.PropertyID, k.LeaseIntervalID, k.ARCodeID, k.AuditMonth.Format("2006-01"))
}

// ChargeCode drops the month from the key.
func (k BucketKey) ChargeCode() ChargeCodeKey {
	return ChargeCodeKey{PropertyID: k.PropertyID, LeaseIntervalID: k.LeaseIntervalID, ARCodeID: k.ARCodeID}
}

// ChargeCodeKey identifies one AR code on one lease interval, the grain of the
// aggregate exception status.
type ChargeCodeKey struct {
	PropertyID      int64  `json:"property_id"`
	LeaseIntervalID int64  `json:"lease_interval_id"`
	ARCodeID        string `json:"ar_code_id"`
}

// MonthlyRecord is an expected or actual amount already placed in a bucket.
type MonthlyRecord struct {
	Key         BucketKey       `json:"key"`
	Amount      decimal.Decimal `json:"amount"`
	SourceID    string          `json:"source_id,omitempty"`
	PeriodStart *time.Time      `json:"period_start,omitempty"`
	PeriodEnd   *time.Time      `json:"period_end,omitempty"`
	PostDate    *time.Time      `json:"post_date,omitempty"`
	IsReversal  bool            `json:"is_reversal,omitempty"`
}
