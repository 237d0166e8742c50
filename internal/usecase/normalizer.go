package usecase

import (
	"fmt"

	"lease-audit/internal/domain"
)

// Requirement lists the canonical fields a source must carry. Columns must exist
// in the batch schema; NonNull must also hold a parseable value on every row.
type Requirement struct {
	Columns []domain.Field
	NonNull []domain.Field
}

// ScheduledRequirement covers scheduled charges. PERIOD_END may be null for
// one-time charges but the column itself must be present.
var ScheduledRequirement = Requirement{
	Columns: []domain.Field{
		domain.FieldScheduledChargesID,
		domain.FieldPropertyID,
		domain.FieldLeaseIntervalID,
		domain.FieldARCodeID,
		domain.FieldExpectedAmount,
		domain.FieldPeriodStart,
		domain.FieldPeriodEnd,
	},
	NonNull: []domain.Field{
		domain.FieldScheduledChargesID,
		domain.FieldPropertyID,
		domain.FieldLeaseIntervalID,
		domain.FieldARCodeID,
		domain.FieldExpectedAmount,
		domain.FieldPeriodStart,
	},
}

// ActualRequirement covers posted AR transactions.
var ActualRequirement = Requirement{
	Columns: []domain.Field{
		domain.FieldPropertyID,
		domain.FieldLeaseIntervalID,
		domain.FieldARCodeID,
		domain.FieldAuditMonth,
		domain.FieldActualAmount,
		domain.FieldARTransactionID,
		domain.FieldPostDate,
		domain.FieldIsReversal,
	},
	NonNull: []domain.Field{
		domain.FieldPropertyID,
		domain.FieldLeaseIntervalID,
		domain.FieldARCodeID,
		domain.FieldAuditMonth,
		domain.FieldActualAmount,
		domain.FieldARTransactionID,
		domain.FieldPostDate,
	},
}

// keyIDs are the integer bucket key fields; their id space is positive.
var keyIDs = map[domain.Field]bool{
	domain.FieldPropertyID:      true,
	domain.FieldLeaseIntervalID: true,
}

// NormalizeResult holds the rows that survived plus a reason for each that did not.
type NormalizeResult struct {
	Records    []domain.Record
	Rejections []domain.Rejection
}

// Normalize coerces every field to its catalog type and drops rows whose
// required values are null or unparseable, or whose nullable columns hold a
// value that does not parse. Only a missing column fails the batch.
func Normalize(source string, records []domain.Record, req Requirement) (NormalizeResult, error) {
	if len(records) > 0 {
		present := make(map[domain.Field]bool)
		for _, rec := range records {
			for f := range rec {
				present[f] = true
			}
		}
		var missing []domain.Field
		for _, f := range req.Columns {
			if !present[f] {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return NormalizeResult{}, &domain.SchemaError{Source: source, Missing: missing}
		}
	}

	nonNull := make(map[domain.Field]bool, len(req.NonNull))
	for _, f := range req.NonNull {
		nonNull[f] = true
	}

	result := NormalizeResult{Records: make([]domain.Record, 0, len(records))}
	for _, rec := range records {
		out, rej := normalizeRecord(rec, req, nonNull)
		if rej != nil {
			rej.Source = source
			result.Rejections = append(result.Rejections, *rej)
			continue
		}
		result.Records = append(result.Records, out)
	}
	return result, nil
}

func normalizeRecord(rec domain.Record, req Requirement, nonNull map[domain.Field]bool) (domain.Record, *domain.Rejection) {
	rowID, _ := domain.ParseString(rec[domain.FieldSourceRowID])
	reject := func(f domain.Field, reason string) *domain.Rejection {
		return &domain.Rejection{
			Stage:       domain.StageNormalize,
			SourceRowID: rowID,
			Field:       f,
			Reason:      fmt.Sprintf("%s: %s", f, reason),
		}
	}

	out := make(domain.Record, len(rec))

	// Required fields first, in declaration order, so the reported reason is
	// the same on every run.
	for _, f := range req.NonNull {
		v, err := coerceField(f, rec[f])
		if err != nil {
			return nil, reject(f, err.Error())
		}
		if v == nil {
			return nil, reject(f, "required value is null")
		}
		if s, ok := v.(string); ok && s == "" {
			return nil, reject(f, "required value is empty")
		}
		if id, ok := v.(int64); ok && keyIDs[f] && id <= 0 {
			return nil, reject(f, fmt.Sprintf("must be a positive id, got %d", id))
		}
		out[f] = v
	}

	// Nullable columns the pipeline reads: blank is null, anything else must parse.
	for _, f := range req.Columns {
		if nonNull[f] {
			continue
		}
		v, err := coerceField(f, rec[f])
		if err != nil {
			return nil, reject(f, err.Error())
		}
		out[f] = v
	}

	for f, raw := range rec {
		if _, done := out[f]; done {
			continue
		}
		v, err := coerceField(f, raw)
		if err != nil {
			// Extra values that do not parse are dropped; the row stays.
			v = nil
		}
		out[f] = v
	}
	return out, nil
}

func coerceField(f domain.Field, v any) (any, error) {
	if domain.IsBlank(v) {
		return nil, nil
	}
	kind, ok := f.Kind()
	if !ok {
		return nil, fmt.Errorf("not a canonical field")
	}
	return domain.Coerce(kind, v)
}
