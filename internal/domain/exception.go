package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExceptionStatus is the month-level resolution state.
type ExceptionStatus string

const (
	ExceptionOpen ExceptionStatus = "Open"
	// ExceptionInProgress is only shown at the AR code grain; month records never carry it.
	ExceptionInProgress ExceptionStatus = "InProgress"
	ExceptionResolved   ExceptionStatus = "Resolved"
)

// AggregateStatus is the status of one AR code on one lease, folded from its months.
type AggregateStatus string

const (
	AggregatePassed   AggregateStatus = "Passed"
	AggregateResolved AggregateStatus = "Resolved"
	AggregateOpen     AggregateStatus = "Open"
)

// ExceptionMonth is the persisted resolution record for one bucket. RunID is the
// run the resolution was recorded against; matching across runs ignores it.
type ExceptionMonth struct {
	RunID      string          `json:"run_id"`
	Key        BucketKey       `json:"key"`
	Status     ExceptionStatus `json:"status"`
	FixLabel   string          `json:"fix_label"`
	ActionType string          `json:"action_type"`
	Variance   decimal.Decimal `json:"variance"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy string          `json:"resolved_by,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Resolved reports whether m is in the terminal state.
func (m ExceptionMonth) Resolved() bool {
	return m.Status == ExceptionResolved
}

// ExceptionQuery selects exception months by entity key. Month narrows the
// query when set. There is deliberately no run filter.
type ExceptionQuery struct {
	PropertyID      int64
	LeaseIntervalID int64
	ARCodeID        string
	Month           *time.Time
}

// QueryFor builds the month-narrowed query for a bucket key.
func QueryFor(k BucketKey) ExceptionQuery {
	m := k.AuditMonth
	return ExceptionQuery{
		PropertyID:      k.PropertyID,
		LeaseIntervalID: k.LeaseIntervalID,
		ARCodeID:        k.ARCodeID,
		Month:           &m,
	}
}

// Matches reports whether m falls under q.
func (q ExceptionQuery) Matches(m ExceptionMonth) bool {
	if m.Key.PropertyID != q.PropertyID || m.Key.LeaseIntervalID != q.LeaseIntervalID || m.Key.ARCodeID != q.ARCodeID {
		return false
	}
	return q.Month == nil || m.Key.AuditMonth.Equal(*q.Month)
}

// ExceptionView is a bucket result seen through the resolution store.
type ExceptionView struct {
	Result     BucketResult    `json:"result"`
	Status     ExceptionStatus `json:"status"`
	Historical bool            `json:"historical"`
	Record     *ExceptionMonth `json:"record,omitempty"`
}
