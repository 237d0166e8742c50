package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Stage names a pipeline step. Errors and rejections are tagged with it.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageMap       Stage = "map"
	StageNormalize Stage = "normalize"
	StageExpand    Stage = "expand"
	StageReconcile Stage = "reconcile"
	StageRules     Stage = "rules"
	StagePersist   Stage = "persist"
)

// Rejection records a row excluded for data quality, for auditability.
type Rejection struct {
	Stage       Stage  `json:"stage"`
	Source      string `json:"source"`
	SourceRowID string `json:"source_row_id,omitempty"`
	Field       Field  `json:"field,omitempty"`
	Reason      string `json:"reason"`
}

// Metrics are the KPIs of one run, optionally narrowed to a property.
type Metrics struct {
	TotalBuckets        int             `json:"total_buckets"`
	MatchedBuckets      int             `json:"matched_buckets"`
	ExceptionBuckets    int             `json:"exception_buckets"`
	MatchRate           float64         `json:"match_rate"`
	TotalExpected       decimal.Decimal `json:"total_expected"`
	TotalActual         decimal.Decimal `json:"total_actual"`
	TotalVariance       decimal.Decimal `json:"total_variance"`
	TotalFindings       int             `json:"total_findings"`
	HighSeverityCount   int             `json:"high_severity_count"`
	MediumSeverityCount int             `json:"medium_severity_count"`
	TotalImpact         decimal.Decimal `json:"total_impact"`
}

// PropertyMetrics is Metrics for a single property.
type PropertyMetrics struct {
	PropertyID int64 `json:"property_id"`
	Metrics
}

// RunMetadata describes a persisted run.
type RunMetadata struct {
	RunID             string    `json:"run_id"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at"`
	InitiatedBy       string    `json:"initiated_by"`
	SourceFingerprint string    `json:"source_fingerprint,omitempty"`
	ConfigVersion     string    `json:"config_version"`
	Metrics           Metrics   `json:"metrics"`
}

// StageCounts tracks rows through the pipeline for one source.
type StageCounts struct {
	Raw        int `json:"raw"`
	Filtered   int `json:"filtered"`
	Mapped     int `json:"mapped"`
	Rejected   int `json:"rejected"`
	Normalized int `json:"normalized"`
	Monthly    int `json:"monthly"`
}

// AuditPeriod narrows a run to a year and/or a calendar month. Zero fields
// do not filter, so a Month alone selects that month in every year.
type AuditPeriod struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
}

// IsZero reports whether p selects every month.
func (p AuditPeriod) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p AuditPeriod) Validate() error {
	if p.Year < 0 || p.Year > 9999 {
		return fmt.Errorf("%w: audit year %d is out of range", ErrInvalidArgument, p.Year)
	}
	if p.Month < 0 || p.Month > 12 {
		return fmt.Errorf("%w: audit month %d is not between 1 and 12", ErrInvalidArgument, p.Month)
	}
	return nil
}

// Contains reports whether the audit month m falls in p.
func (p AuditPeriod) Contains(m time.Time) bool {
	if p.Year != 0 && m.Year() != p.Year {
		return false
	}
	return p.Month == 0 || int(m.Month()) == p.Month
}

// RunReport is everything one audit run produced.
type RunReport struct {
	Metadata        RunMetadata            `json:"metadata"`
	Period          AuditPeriod            `json:"audit_period"`
	Sources         map[string]StageCounts `json:"sources"`
	Buckets         []BucketResult         `json:"buckets"`
	Findings        []Finding              `json:"findings"`
	PropertySummary []PropertyMetrics      `json:"property_summary"`
	Rejections      []Rejection            `json:"rejections"`
	InvariantErrors []string               `json:"invariant_errors,omitempty"`
}
