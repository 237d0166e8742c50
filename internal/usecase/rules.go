package usecase

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"lease-audit/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RuleARScheduledMatch = "AR_SCHEDULED_MATCH"
	RuleMaterialVariance = "MATERIAL_VARIANCE"
	RuleMiscodedCharge   = "MISCODED_CHARGE"
	RuleTimingShift      = "TIMING_SHIFT"
)

// findingNamespace scopes finding ids so the same run, rule and bucket always
// produce the same id.
var findingNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("lease-audit/finding"))

// FindingID returns the deterministic id of a finding.
func FindingID(runID, ruleID string, key domain.BucketKey) string {
	return uuid.NewSHA1(findingNamespace, []byte(runID+"|"+ruleID+"|"+key.String())).String()
}

// RuleContext is what every rule sees. Rules must treat it as read only.
type RuleContext struct {
	RunID   string
	Results []domain.BucketResult
}

// Rule turns bucket results into findings. A rule must not depend on any other
// rule having run and returns an empty slice when nothing applies.
type Rule interface {
	ID() string
	Statuses() []domain.Status
	Evaluate(ctx RuleContext) []domain.Finding
}

// StatusRule is a declarative rule: it fires on every bucket whose status is
// listed and, when set, whose Match returns true.
type StatusRule struct {
	RuleID   string
	On       []domain.Status
	Category domain.Category
	Match    func(domain.BucketResult) bool
	Severity func(domain.BucketResult) domain.Severity
	Title    func(domain.BucketResult) string
	Describe func(domain.BucketResult) string
	// Impact defaults to |variance|.
	Impact func(domain.BucketResult) decimal.Decimal
}

func (r StatusRule) ID() string { return r.RuleID }

// Validate reports renderers a finding cannot be built without.
func (r StatusRule) Validate() error {
	var missing []string
	if r.Severity == nil {
		missing = append(missing, "Severity")
	}
	if r.Title == nil {
		missing = append(missing, "Title")
	}
	if r.Describe == nil {
		missing = append(missing, "Describe")
	}
	if len(missing) > 0 {
		return fmt.Errorf("rule %q has no %s", r.RuleID, strings.Join(missing, ", "))
	}
	return nil
}

func (r StatusRule) Statuses() []domain.Status { return r.On }

func (r StatusRule) Evaluate(ctx RuleContext) []domain.Finding {
	on := make(map[domain.Status]bool, len(r.On))
	for _, s := range r.On {
		on[s] = true
	}

	findings := make([]domain.Finding, 0)
	for _, res := range ctx.Results {
		if !on[res.Status] {
			continue
		}
		if r.Match != nil && !r.Match(res) {
			continue
		}
		impact := res.Variance.Abs()
		if r.Impact != nil {
			impact = r.Impact(res)
		}
		findings = append(findings, domain.Finding{
			ID:            FindingID(ctx.RunID, r.RuleID, res.Key),
			RunID:         ctx.RunID,
			RuleID:        r.RuleID,
			Key:           res.Key,
			Category:      r.Category,
			Severity:      r.Severity(res),
			Title:         r.Title(res),
			Description:   r.Describe(res),
			ExpectedValue: res.ExpectedTotal,
			ActualValue:   res.ActualTotal,
			Variance:      res.Variance,
			ImpactAmount:  impact,
			Evidence: domain.Evidence{
				ScheduledChargeIDs: nonNil(res.ExpectedSourceIDs),
				ARTransactionIDs:   nonNil(res.ActualSourceIDs),
			},
		})
	}
	return findings
}

// DefaultSeverityByStatus is the severity of a reconciliation exception when
// nothing else is configured.
func DefaultSeverityByStatus() map[domain.Status]domain.Severity {
	return map[domain.Status]domain.Severity{
		domain.StatusMatched:            domain.SeverityInfo,
		domain.StatusScheduledNotBilled: domain.SeverityHigh,
		domain.StatusBilledNotScheduled: domain.SeverityMedium,
		domain.StatusAmountMismatch:     domain.SeverityHigh,
	}
}

// VarianceBand assigns Severity to every |variance| of at least Min.
type VarianceBand struct {
	Min      decimal.Decimal
	Severity domain.Severity
}

func DefaultVarianceBands() []VarianceBand {
	return []VarianceBand{
		{Min: decimal.NewFromInt(1000), Severity: domain.SeverityHigh},
		{Min: decimal.NewFromInt(5000), Severity: domain.SeverityCritical},
	}
}

// RulesConfig selects and tunes the built-in rules.
type RulesConfig struct {
	SeverityByStatus map[domain.Status]domain.Severity
	VarianceBands    []VarianceBand
	MiscodedCharge   bool
	TimingShift      bool
}

func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		SeverityByStatus: DefaultSeverityByStatus(),
		VarianceBands:    DefaultVarianceBands(),
		MiscodedCharge:   true,
		TimingShift:      true,
	}
}

// DefaultRules builds the built-in rule set in registration order.
func DefaultRules(cfg RulesConfig) []Rule {
	rules := []Rule{ScheduledMatchRule(cfg.SeverityByStatus)}
	if len(cfg.VarianceBands) > 0 {
		rules = append(rules, MaterialVarianceRule(cfg.VarianceBands))
	}
	if cfg.MiscodedCharge {
		rules = append(rules, MiscodedChargeRule())
	}
	if cfg.TimingShift {
		rules = append(rules, TimingShiftRule())
	}
	return rules
}

var exceptionStatuses = []domain.Status{
	domain.StatusScheduledNotBilled,
	domain.StatusBilledNotScheduled,
	domain.StatusAmountMismatch,
}

// ScheduledMatchRule reports every bucket that did not reconcile.
func ScheduledMatchRule(severity map[domain.Status]domain.Severity) Rule {
	return StatusRule{
		RuleID:   RuleARScheduledMatch,
		On:       exceptionStatuses,
		Category: domain.CategoryFinancial,
		Severity: func(res domain.BucketResult) domain.Severity {
			if s, ok := severity[res.Status]; ok {
				return s
			}
			return domain.SeverityMedium
		},
		Title: func(res domain.BucketResult) string {
			switch res.Status {
			case domain.StatusScheduledNotBilled:
				return "Scheduled Charge Not Billed"
			case domain.StatusBilledNotScheduled:
				return "Billed Without Schedule"
			case domain.StatusAmountMismatch:
				return "Amount Mismatch"
			}
			return "Reconciliation Exception"
		},
		Describe: func(res domain.BucketResult) string {
			switch res.Status {
			case domain.StatusScheduledNotBilled:
				return fmt.Sprintf("Scheduled amount %s was not billed.", money(res.ExpectedTotal))
			case domain.StatusBilledNotScheduled:
				return fmt.Sprintf("Amount %s was billed without a schedule.", money(res.ActualTotal))
			}
			return fmt.Sprintf("Expected %s, actual %s, variance %s.",
				money(res.ExpectedTotal), money(res.ActualTotal), money(res.Variance))
		},
	}
}

// MaterialVarianceRule flags exceptions whose |variance| reaches a band. The
// highest band reached sets the severity.
func MaterialVarianceRule(bands []VarianceBand) Rule {
	sorted := make([]VarianceBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min.GreaterThan(sorted[j].Min) })

	band := func(v decimal.Decimal) (VarianceBand, bool) {
		abs := v.Abs()
		for _, b := range sorted {
			if abs.GreaterThanOrEqual(b.Min) {
				return b, true
			}
		}
		return VarianceBand{}, false
	}

	return StatusRule{
		RuleID:   RuleMaterialVariance,
		On:       exceptionStatuses,
		Category: domain.CategoryFinancial,
		Match: func(res domain.BucketResult) bool {
			_, ok := band(res.Variance)
			return ok
		},
		Severity: func(res domain.BucketResult) domain.Severity {
			b, _ := band(res.Variance)
			return b.Severity
		},
		Title: func(domain.BucketResult) string { return "Material Variance" },
		Describe: func(res domain.BucketResult) string {
			b, _ := band(res.Variance)
			return fmt.Sprintf("Variance %s is at or above the %s threshold.", money(res.Variance), money(b.Min))
		},
		// Escalation only; the reconciliation finding carries the bucket's variance.
		Impact: func(domain.BucketResult) decimal.Decimal { return decimal.Zero },
	}
}

// MiscodedChargeRule reports each miscoded pair once, on its scheduled side.
func MiscodedChargeRule() Rule {
	return annotationRule(RuleMiscodedCharge, domain.AnnotationMiscodedCharge, domain.CategoryDataQuality,
		"Possible Miscoded Charge",
		func(res domain.BucketResult, a domain.Annotation) string {
			return fmt.Sprintf("Scheduled %s under AR code %s was billed under AR code %s in the same month.",
				money(res.ExpectedTotal), res.Key.ARCodeID, a.Counterpart.ARCodeID)
		})
}

// TimingShiftRule reports each timing shift pair once, on its scheduled side.
func TimingShiftRule() Rule {
	return annotationRule(RuleTimingShift, domain.AnnotationTimingShift, domain.CategoryTiming,
		"Billing Timing Shift",
		func(res domain.BucketResult, a domain.Annotation) string {
			return fmt.Sprintf("Scheduled for %s but billed in %s (%+d months, amount delta %s).",
				res.Key.AuditMonth.Format("2006-01"), a.Counterpart.AuditMonth.Format("2006-01"), a.MonthOffset, money(a.AmountDelta))
		})
}

func annotationRule(id string, kind domain.AnnotationKind, cat domain.Category, title string,
	describe func(domain.BucketResult, domain.Annotation) string) Rule {
	annotation := func(res domain.BucketResult) domain.Annotation {
		for _, a := range res.Annotations {
			if a.Kind == kind {
				return a
			}
		}
		return domain.Annotation{}
	}
	return StatusRule{
		RuleID:   id,
		On:       []domain.Status{domain.StatusScheduledNotBilled},
		Category: cat,
		Match:    func(res domain.BucketResult) bool { return res.HasAnnotation(kind) },
		Severity: func(domain.BucketResult) domain.Severity { return domain.SeverityLow },
		Title:    func(domain.BucketResult) string { return title },
		Describe: func(res domain.BucketResult) string { return describe(res, annotation(res)) },
		// The bucket variance is already counted by the reconciliation
		// finding; only the unexplained remainder is impact here.
		Impact: func(res domain.BucketResult) decimal.Decimal { return annotation(res).AmountDelta.Abs() },
	}
}

// Evaluator runs a fixed, ordered rule set.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator rejects nil rules, empty and duplicate rule ids, and rules
// whose Validate fails.
func NewEvaluator(rules ...Rule) (*Evaluator, error) {
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r == nil {
			return nil, fmt.Errorf("rule %d is nil", i)
		}
		if r.ID() == "" {
			return nil, fmt.Errorf("rule %d has an empty id", i)
		}
		if seen[r.ID()] {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID())
		}
		seen[r.ID()] = true
		if v, ok := r.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
	}
	return &Evaluator{rules: rules}, nil
}

func (e *Evaluator) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every rule concurrently and concatenates their findings in
// registration order, so the output is the same however the rules are scheduled.
func (e *Evaluator) Evaluate(runID string, results []domain.BucketResult) []domain.Finding {
	ctx := RuleContext{RunID: runID, Results: results}
	perRule := make([][]domain.Finding, len(e.rules))

	var wg sync.WaitGroup
	for i, rule := range e.rules {
		wg.Add(1)
		go func(i int, rule Rule) {
			defer wg.Done()
			perRule[i] = rule.Evaluate(ctx)
		}(i, rule)
	}
	wg.Wait()

	total := 0
	for _, f := range perRule {
		total += len(f)
	}
	findings := make([]domain.Finding, 0, total)
	for _, f := range perRule {
		findings = append(findings, f...)
	}
	return findings
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
