package usecase_test

import (
	"testing"

	"lease-audit/internal/domain"
	"lease-audit/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bucket(code string, m int, expected, actual string, status domain.Status) domain.BucketResult {
	res := domain.BucketResult{
		Key:           key(code, month(2025, 1).AddDate(0, m-1, 0)),
		ExpectedTotal: dec(expected),
		ActualTotal:   dec(actual),
		Status:        status,
	}
	res.Variance = res.ActualTotal.Sub(res.ExpectedTotal)
	if !res.ExpectedTotal.IsZero() {
		res.ExpectedSourceIDs = []string{"SC-" + code}
	}
	if !res.ActualTotal.IsZero() {
		res.ActualSourceIDs = []string{"T-" + code}
	}
	return res
}

func findingsFor(findings []domain.Finding, ruleID string) []domain.Finding {
	var out []domain.Finding
	for _, f := range findings {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}
	return out
}

func TestScheduledMatchRule(t *testing.T) {
	results := []domain.BucketResult{
		bucket("RENT", 1, "1000", "1000", domain.StatusMatched),
		bucket("PARK", 1, "75", "0", domain.StatusScheduledNotBilled),
		bucket("PET", 1, "0", "40", domain.StatusBilledNotScheduled),
		bucket("STOR", 1, "100", "120", domain.StatusAmountMismatch),
	}

	rule := usecase.ScheduledMatchRule(usecase.DefaultSeverityByStatus())
	got := rule.Evaluate(usecase.RuleContext{RunID: "run-1", Results: results})
	require.Len(t, got, 3)

	tests := []struct {
		code     string
		severity domain.Severity
		title    string
		desc     string
		impact   string
	}{
		{"PARK", domain.SeverityHigh, "Scheduled Charge Not Billed", "Scheduled amount $75.00 was not billed.", "75"},
		{"PET", domain.SeverityMedium, "Billed Without Schedule", "Amount $40.00 was billed without a schedule.", "40"},
		{"STOR", domain.SeverityHigh, "Amount Mismatch", "Expected $100.00, actual $120.00, variance $20.00.", "20"},
	}
	for i, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			f := got[i]
			assert.Equal(t, tt.code, f.Key.ARCodeID)
			assert.Equal(t, usecase.RuleARScheduledMatch, f.RuleID)
			assert.Equal(t, domain.CategoryFinancial, f.Category)
			assert.Equal(t, tt.severity, f.Severity)
			assert.Equal(t, tt.title, f.Title)
			assert.Equal(t, tt.desc, f.Description)
			assert.True(t, dec(tt.impact).Equal(f.ImpactAmount))
			assert.NotNil(t, f.Evidence.ScheduledChargeIDs)
			assert.NotNil(t, f.Evidence.ARTransactionIDs)
		})
	}
}

func TestMaterialVarianceRule(t *testing.T) {
	results := []domain.BucketResult{
		bucket("A", 1, "1000", "100", domain.StatusAmountMismatch),
		bucket("B", 1, "999.99", "0", domain.StatusScheduledNotBilled),
		bucket("C", 1, "0", "1000", domain.StatusBilledNotScheduled),
		bucket("D", 1, "0", "7500", domain.StatusBilledNotScheduled),
		bucket("E", 1, "5000", "0", domain.StatusScheduledNotBilled),
	}

	got := usecase.MaterialVarianceRule(usecase.DefaultVarianceBands()).
		Evaluate(usecase.RuleContext{RunID: "run-1", Results: results})

	severities := make(map[string]domain.Severity)
	for _, f := range got {
		severities[f.Key.ARCodeID] = f.Severity
		assert.True(t, f.ImpactAmount.IsZero(), "impact of %s", f.Key.ARCodeID)
	}
	assert.Equal(t, map[string]domain.Severity{
		"C": domain.SeverityHigh,
		"D": domain.SeverityCritical,
		"E": domain.SeverityCritical,
	}, severities)
}

func TestAnnotationRules(t *testing.T) {
	park := bucket("PARK", 1, "75", "0", domain.StatusScheduledNotBilled)
	stor := bucket("STOR", 1, "0", "70", domain.StatusBilledNotScheduled)
	park.Annotations = []domain.Annotation{{
		Kind: domain.AnnotationMiscodedCharge, Counterpart: stor.Key, AmountDelta: dec("-5"),
	}}
	stor.Annotations = []domain.Annotation{{
		Kind: domain.AnnotationMiscodedCharge, Counterpart: park.Key, AmountDelta: dec("5"),
	}}

	rent := bucket("RENT", 3, "1000", "0", domain.StatusScheduledNotBilled)
	late := bucket("RENT", 4, "0", "1000", domain.StatusBilledNotScheduled)
	rent.Annotations = []domain.Annotation{{
		Kind: domain.AnnotationTimingShift, Counterpart: late.Key, AmountDelta: decimal.Zero, MonthOffset: 1,
	}}
	late.Annotations = []domain.Annotation{{
		Kind: domain.AnnotationTimingShift, Counterpart: rent.Key, AmountDelta: decimal.Zero, MonthOffset: -1,
	}}

	ctx := usecase.RuleContext{RunID: "run-1", Results: []domain.BucketResult{park, rent, late, stor}}

	miscoded := usecase.MiscodedChargeRule().Evaluate(ctx)
	require.Len(t, miscoded, 1, "one finding per pair, on the scheduled side")
	assert.Equal(t, park.Key, miscoded[0].Key)
	assert.Equal(t, domain.SeverityLow, miscoded[0].Severity)
	assert.Equal(t, domain.CategoryDataQuality, miscoded[0].Category)
	assert.True(t, dec("5").Equal(miscoded[0].ImpactAmount))
	assert.Contains(t, miscoded[0].Description, "billed under AR code STOR")

	timing := usecase.TimingShiftRule().Evaluate(ctx)
	require.Len(t, timing, 1)
	assert.Equal(t, rent.Key, timing[0].Key)
	assert.Equal(t, domain.CategoryTiming, timing[0].Category)
	assert.True(t, timing[0].ImpactAmount.IsZero())
	assert.Equal(t, "Scheduled for 2025-03 but billed in 2025-04 (+1 months, amount delta $0.00).", timing[0].Description)
}

func TestEvaluator(t *testing.T) {
	results := []domain.BucketResult{
		bucket("PARK", 1, "7500", "0", domain.StatusScheduledNotBilled),
		bucket("RENT", 1, "1000", "1000", domain.StatusMatched),
	}
	e, err := usecase.NewEvaluator(usecase.DefaultRules(usecase.DefaultRulesConfig())...)
	require.NoError(t, err)
	assert.Len(t, e.Rules(), 4)

	got := e.Evaluate("run-1", results)
	require.Len(t, got, 2)
	// Findings follow rule registration order.
	assert.Equal(t, usecase.RuleARScheduledMatch, got[0].RuleID)
	assert.Equal(t, usecase.RuleMaterialVariance, got[1].RuleID)

	again := e.Evaluate("run-1", results)
	assert.Equal(t, got, again)

	for _, f := range got {
		assert.Equal(t, usecase.FindingID("run-1", f.RuleID, f.Key), f.ID)
		_, err := uuid.Parse(f.ID)
		assert.NoError(t, err)
	}
	assert.NotEqual(t, got[0].ID, usecase.FindingID("run-2", got[0].RuleID, got[0].Key))
	assert.NotEqual(t, got[0].ID, got[1].ID)

	assert.Empty(t, e.Evaluate("run-1", nil))
	assert.NotNil(t, e.Evaluate("run-1", nil))
}

func TestNewEvaluator_RejectsBadRules(t *testing.T) {
	complete := usecase.StatusRule{
		RuleID:   "CUSTOM",
		On:       []domain.Status{domain.StatusAmountMismatch},
		Severity: func(domain.BucketResult) domain.Severity { return domain.SeverityLow },
		Title:    func(domain.BucketResult) string { return "Custom" },
		Describe: func(domain.BucketResult) string { return "custom" },
	}
	noSeverity := complete
	noSeverity.Severity = nil
	noRenderers := complete
	noRenderers.Title = nil
	noRenderers.Describe = nil
	noID := complete
	noID.RuleID = ""

	tests := []struct {
		name    string
		rules   []usecase.Rule
		wantErr string
	}{
		{name: "complete custom rule", rules: []usecase.Rule{complete}},
		{name: "duplicate id", rules: []usecase.Rule{usecase.MiscodedChargeRule(), usecase.MiscodedChargeRule()}, wantErr: "duplicate rule id"},
		{name: "nil severity", rules: []usecase.Rule{noSeverity}, wantErr: `rule "CUSTOM" has no Severity`},
		{name: "nil title and description", rules: []usecase.Rule{noRenderers}, wantErr: "has no Title, Describe"},
		{name: "empty id", rules: []usecase.Rule{noID}, wantErr: "empty id"},
		{name: "nil rule", rules: []usecase.Rule{nil}, wantErr: "is nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := usecase.NewEvaluator(tt.rules...)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			results := []domain.BucketResult{bucket("RENT", 1, "100", "90", domain.StatusAmountMismatch)}
			assert.Len(t, e.Evaluate("run-1", results), 1)
		})
	}
}

func TestDefaultRules_Selection(t *testing.T) {
	cfg := usecase.DefaultRulesConfig()
	cfg.MiscodedCharge = false
	cfg.VarianceBands = nil

	var ids []string
	for _, r := range usecase.DefaultRules(cfg) {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{usecase.RuleARScheduledMatch, usecase.RuleTimingShift}, ids)
}
