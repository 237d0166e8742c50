package usecase

import (
	"strconv"

	"lease-audit/internal/domain"
	"lease-audit/internal/mapping"
)

// MapResult is the canonical output of one source batch.
type MapResult struct {
	Records  []domain.Record
	Filtered int
}

// MapRecords converts a raw batch into canonical records. A batch missing any
// required column fails as a whole with every missing field listed; rows
// rejected by the spec's predicate are dropped without error.
func MapRecords(spec mapping.Spec, batch domain.RawBatch) (MapResult, error) {
	header := batch.Header()

	var missing []domain.Field
	for _, r := range spec.Required {
		if !header[r.Column] {
			missing = append(missing, r.Field)
		}
	}
	for _, d := range spec.Derived {
		if !d.Required {
			continue
		}
		for _, c := range d.Columns {
			if !header[c] {
				missing = append(missing, d.Field)
				break
			}
		}
	}
	if len(missing) > 0 {
		return MapResult{}, &domain.SchemaError{Source: spec.Source, Missing: missing}
	}

	optional := make([]mapping.Rename, 0, len(spec.Optional))
	for _, r := range spec.Optional {
		if header[r.Column] {
			optional = append(optional, r)
		}
	}

	result := MapResult{Records: make([]domain.Record, 0, len(batch.Rows))}
	for i, row := range batch.Rows {
		if spec.Predicate != nil && !spec.Predicate(row) {
			result.Filtered++
			continue
		}

		rec := make(domain.Record, len(spec.Required)+len(optional)+len(spec.Derived)+2)
		for _, r := range spec.Required {
			rec[r.Field] = blankToNil(row[r.Column])
		}
		for _, r := range optional {
			rec[r.Field] = blankToNil(row[r.Column])
		}
		for _, d := range spec.Derived {
			rec[d.Field] = d.Func(row)
		}

		rec[domain.FieldSourceSystem] = spec.Source
		rec[domain.FieldSourceRowID] = rowID(spec, row, i)
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func rowID(spec mapping.Spec, row domain.RawRecord, index int) string {
	if spec.RowID != "" && !domain.IsBlank(row[spec.RowID]) {
		if s, err := domain.ParseString(row[spec.RowID]); err == nil && s != "" {
			return s
		}
	}
	return "#" + strconv.Itoa(index+1)
}

func blankToNil(v any) any {
	if domain.IsBlank(v) {
		return nil
	}
	return v
}
