package domain

import (
	"github.com/shopspring/decimal"
)

// Severity of a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is as severe as o.
func (s Severity) AtLeast(o Severity) bool {
	return severityRank[s] >= severityRank[o]
}

// Category groups findings for reporting.
type Category string

const (
	CategoryFinancial   Category = "financial"
	CategoryTiming      Category = "timing"
	CategoryDataQuality Category = "data_quality"
)

// Evidence links a finding to the source rows behind its bucket.
type Evidence struct {
	ScheduledChargeIDs []string `json:"scheduled_charge_ids"`
	ARTransactionIDs   []string `json:"ar_transaction_ids"`
}

// Finding is a rule's verdict on a bucket. Immutable once generated.
type Finding struct {
	ID            string          `json:"finding_id"`
	RunID         string          `json:"run_id"`
	RuleID        string          `json:"rule_id"`
	Key           BucketKey       `json:"key"`
	Category      Category        `json:"category"`
	Severity      Severity        `json:"severity"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	ExpectedValue decimal.Decimal `json:"expected_value"`
	ActualValue   decimal.Decimal `json:"actual_value"`
	Variance      decimal.Decimal `json:"variance"`
	ImpactAmount  decimal.Decimal `json:"impact_amount"`
	Evidence      Evidence        `json:"evidence"`
}
