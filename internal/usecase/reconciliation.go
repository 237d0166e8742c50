package usecase

import (
	"context"
	"fmt"
	"time"

	"lease-audit/internal/domain"
	"lease-audit/internal/mapping"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures a ReconciliationUseCase.
type Options struct {
	Reconcile     ReconcileConfig
	Rules         []Rule
	Policy        InvariantPolicy
	ConfigVersion string
	// Now and NewRunID default to time.Now and uuid.NewString.
	Now      func() time.Time
	NewRunID func() string
}

// RunRequest starts one audit run.
type RunRequest struct {
	InitiatedBy string
	// RunID is generated when empty.
	RunID string
	// Period narrows both sides to an audit year and/or month after they are
	// placed in monthly buckets. The zero value audits every month.
	Period domain.AuditPeriod
}

// ReconciliationUseCase orchestrates an audit run: fetch, map, normalize,
// expand, reconcile, evaluate rules and persist.
type ReconciliationUseCase struct {
	source        RecordSource
	mappings      MappingStore
	sink          ResultSink
	reconciler    *Reconciler
	evaluator     *Evaluator
	policy        InvariantPolicy
	configVersion string
	now           func() time.Time
	newRunID      func() string
	logger        zerolog.Logger
}

// NewReconciliationUseCase wires the pipeline. An empty rule set means the
// built-in rules with default settings.
func NewReconciliationUseCase(source RecordSource, mappings MappingStore, sink ResultSink, opts Options, logger zerolog.Logger) (*ReconciliationUseCase, error) {
	if err := opts.Reconcile.Validate(); err != nil {
		return nil, err
	}
	switch opts.Policy {
	case "":
		opts.Policy = PolicyFail
	case PolicyFail, PolicySkip:
	default:
		return nil, fmt.Errorf("unknown invariant policy %q", opts.Policy)
	}
	if len(opts.Rules) == 0 {
		opts.Rules = DefaultRules(DefaultRulesConfig())
	}
	evaluator, err := NewEvaluator(opts.Rules...)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &ReconciliationUseCase{
		source:        source,
		mappings:      mappings,
		sink:          sink,
		reconciler:    NewReconciler(opts.Reconcile),
		evaluator:     evaluator,
		policy:        opts.Policy,
		configVersion: opts.ConfigVersion,
		now:           opts.Now,
		newRunID:      opts.NewRunID,
		logger:        logger,
	}, nil
}

// Run executes one audit run. A fatal error is a *domain.StageError naming
// the stage that failed; nothing is persisted in that case.
func (uc *ReconciliationUseCase) Run(ctx context.Context, req RunRequest) (*domain.RunReport, error) {
	if err := req.Period.Validate(); err != nil {
		return nil, err
	}
	runID := req.RunID
	if runID == "" {
		runID = uc.newRunID()
	}
	logger := uc.logger.With().Str("run_id", runID).Logger()
	started := uc.now().UTC()

	report := &domain.RunReport{
		Period:     req.Period,
		Sources:    make(map[string]domain.StageCounts),
		Rejections: make([]domain.Rejection, 0),
	}

	// Step 1: ingest both sides into normalized canonical records
	scheduled, err := uc.prepare(ctx, logger, report, mapping.SourceScheduledCharges, ScheduledRequirement)
	if err != nil {
		return nil, err
	}
	posted, err := uc.prepare(ctx, logger, report, mapping.SourceARTransactions, ActualRequirement)
	if err != nil {
		return nil, err
	}

	// Step 2: place both sides in monthly buckets
	expanded, err := ExpandAll(scheduled, uc.policy)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageExpand, Source: mapping.SourceScheduledCharges, Err: err}
	}
	for _, v := range expanded.Violations {
		logger.Warn().Err(v).Msg("scheduled charge skipped")
		report.InvariantErrors = append(report.InvariantErrors, v.Error())
	}
	expected := FilterPeriod(expanded.Records, req.Period)
	actual := FilterPeriod(ActualMonthly(posted), req.Period)
	if !req.Period.IsZero() {
		logger.Info().
			Int("year", req.Period.Year).
			Int("month", req.Period.Month).
			Int("expected", len(expected)).
			Int("actual", len(actual)).
			Msg("audit period applied")
	}
	uc.count(report, mapping.SourceScheduledCharges, func(c *domain.StageCounts) { c.Monthly = len(expected) })
	uc.count(report, mapping.SourceARTransactions, func(c *domain.StageCounts) { c.Monthly = len(actual) })

	// Step 3: reconcile
	buckets, err := uc.reconciler.Reconcile(expected, actual)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageReconcile, Err: err}
	}
	logger.Info().Int("buckets", len(buckets)).Msg("reconciled")

	// Step 4: rules
	findings := uc.evaluator.Evaluate(runID, buckets)
	logger.Info().Int("rules", len(uc.evaluator.rules)).Int("findings", len(findings)).Msg("rules evaluated")

	report.Buckets = buckets
	report.Findings = findings
	report.PropertySummary = PropertySummary(buckets, findings)
	report.Metadata = domain.RunMetadata{
		RunID:         runID,
		StartedAt:     started,
		CompletedAt:   uc.now().UTC(),
		InitiatedBy:   req.InitiatedBy,
		ConfigVersion: uc.configVersion,
		Metrics:       CalculateKPIs(buckets, findings, nil),
	}
	if fp, ok := uc.source.(Fingerprinter); ok {
		sum, err := fp.Fingerprint(ctx, []string{mapping.SourceScheduledCharges, mapping.SourceARTransactions})
		if err != nil {
			logger.Warn().Err(err).Msg("source fingerprint unavailable")
		}
		report.Metadata.SourceFingerprint = sum
	}

	// Step 5: persist
	if err := uc.sink.SaveRun(ctx, report.Metadata, buckets, findings); err != nil {
		return nil, &domain.StageError{Stage: domain.StagePersist, Err: err}
	}
	logger.Info().
		Int("matched", report.Metadata.Metrics.MatchedBuckets).
		Int("exceptions", report.Metadata.Metrics.ExceptionBuckets).
		Int("rejections", len(report.Rejections)).
		Msg("run saved")
	return report, nil
}

// prepare fetches, maps and normalizes one source.
func (uc *ReconciliationUseCase) prepare(ctx context.Context, logger zerolog.Logger, report *domain.RunReport, source string, req Requirement) ([]domain.Record, error) {
	batch, err := uc.source.FetchRecords(ctx, source)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageFetch, Source: source, Err: err}
	}
	spec, err := uc.mappings.MappingFor(source)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageMap, Source: source, Err: err}
	}
	mapped, err := MapRecords(spec, batch)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageMap, Source: source, Err: err}
	}
	normalized, err := Normalize(source, mapped.Records, req)
	if err != nil {
		return nil, &domain.StageError{Stage: domain.StageNormalize, Source: source, Err: err}
	}

	report.Sources[source] = domain.StageCounts{
		Raw:        len(batch.Rows),
		Filtered:   mapped.Filtered,
		Mapped:     len(mapped.Records),
		Rejected:   len(normalized.Rejections),
		Normalized: len(normalized.Records),
	}
	report.Rejections = append(report.Rejections, normalized.Rejections...)
	logger.Info().
		Str("source", source).
		Int("raw", len(batch.Rows)).
		Int("filtered", mapped.Filtered).
		Int("rejected", len(normalized.Rejections)).
		Int("normalized", len(normalized.Records)).
		Msg("source prepared")
	return normalized.Records, nil
}

// FilterPeriod keeps the monthly records whose audit month falls in p.
func FilterPeriod(records []domain.MonthlyRecord, p domain.AuditPeriod) []domain.MonthlyRecord {
	if p.IsZero() {
		return records
	}
	out := make([]domain.MonthlyRecord, 0, len(records))
	for _, r := range records {
		if p.Contains(r.Key.AuditMonth) {
			out = append(out, r)
		}
	}
	return out
}

func (uc *ReconciliationUseCase) count(report *domain.RunReport, source string, set func(*domain.StageCounts)) {
	c := report.Sources[source]
	set(&c)
	report.Sources[source] = c
}
