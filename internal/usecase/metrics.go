package usecase

import (
	"sort"

	"lease-audit/internal/domain"

	"github.com/shopspring/decimal"
)

// CalculateKPIs summarizes a run. A non-nil property narrows both buckets and
// findings to that property. MatchRate is a percentage.
func CalculateKPIs(results []domain.BucketResult, findings []domain.Finding, property *int64) domain.Metrics {
	m := domain.Metrics{
		TotalExpected: decimal.Zero,
		TotalActual:   decimal.Zero,
		TotalVariance: decimal.Zero,
		TotalImpact:   decimal.Zero,
	}

	for _, res := range results {
		if property != nil && res.Key.PropertyID != *property {
			continue
		}
		m.TotalBuckets++
		if res.Status == domain.StatusMatched {
			m.MatchedBuckets++
		}
		m.TotalExpected = m.TotalExpected.Add(res.ExpectedTotal)
		m.TotalActual = m.TotalActual.Add(res.ActualTotal)
		m.TotalVariance = m.TotalVariance.Add(res.Variance)
	}
	m.ExceptionBuckets = m.TotalBuckets - m.MatchedBuckets
	if m.TotalBuckets > 0 {
		m.MatchRate = float64(m.MatchedBuckets) / float64(m.TotalBuckets) * 100
	}

	for _, f := range findings {
		if property != nil && f.Key.PropertyID != *property {
			continue
		}
		m.TotalFindings++
		switch f.Severity {
		case domain.SeverityHigh:
			m.HighSeverityCount++
		case domain.SeverityMedium:
			m.MediumSeverityCount++
		}
		m.TotalImpact = m.TotalImpact.Add(f.ImpactAmount)
	}
	return m
}

// PropertySummary returns KPIs per property, ordered by property id.
func PropertySummary(results []domain.BucketResult, findings []domain.Finding) []domain.PropertyMetrics {
	seen := make(map[int64]bool)
	var ids []int64
	for _, res := range results {
		if !seen[res.Key.PropertyID] {
			seen[res.Key.PropertyID] = true
			ids = append(ids, res.Key.PropertyID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.PropertyMetrics, 0, len(ids))
	for _, id := range ids {
		id := id
		out = append(out, domain.PropertyMetrics{PropertyID: id, Metrics: CalculateKPIs(results, findings, &id)})
	}
	return out
}
