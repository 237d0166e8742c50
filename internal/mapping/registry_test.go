package mapping

import (
	"errors"
	"testing"
	"time"

	"lease-audit/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	reg := Builtin()
	assert.Equal(t, []string{SourceARTransactions, SourceScheduledCharges}, reg.Sources())

	spec, err := reg.MappingFor(SourceScheduledCharges)
	require.NoError(t, err)
	assert.Equal(t, SourceScheduledCharges, spec.Source)
	assert.Equal(t, "SCHEDULED_CHARGES_ID", spec.RowID)

	_, err = reg.MappingFor("gl_entries")
	assert.True(t, errors.Is(err, domain.ErrUnknownSource))
}

func TestNewRegistry_RejectsBadSpecs(t *testing.T) {
	tests := []struct {
		name  string
		specs []Spec
	}{
		{
			name:  "unknown canonical field",
			specs: []Spec{{Source: "s", Required: []Rename{{Column: "X", Field: "NOT_A_FIELD"}}}},
		},
		{
			name: "field produced twice",
			specs: []Spec{{Source: "s", Required: []Rename{
				{Column: "A", Field: domain.FieldPropertyID},
				{Column: "B", Field: domain.FieldPropertyID},
			}}},
		},
		{
			name:  "derivation without formula",
			specs: []Spec{{Source: "s", Derived: []Derivation{{Field: domain.FieldAuditMonth}}}},
		},
		{
			name:  "duplicate source",
			specs: []Spec{{Source: "s"}, {Source: "s"}},
		},
		{
			name:  "no source name",
			specs: []Spec{{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.specs...)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_Configure(t *testing.T) {
	reg := Builtin()
	err := reg.Configure(map[string]Override{
		SourceARTransactions: {
			Columns: map[string]string{"POST_MONTH_DATE": "POST_MONTH", "IS_POSTED": "POSTED"},
			Extra:   map[string]string{"UNIT": "UNIT_ID"},
		},
	})
	require.NoError(t, err)

	spec, err := reg.MappingFor(SourceARTransactions)
	require.NoError(t, err)

	var cols []string
	for _, r := range spec.Required {
		cols = append(cols, r.Column)
	}
	assert.Contains(t, cols, "POSTED")
	assert.NotContains(t, cols, "IS_POSTED")
	assert.Contains(t, spec.Optional, Rename{Column: "UNIT", Field: domain.FieldUnitID})

	// Formulas still see the columns under the names they were written for.
	row := domain.RawRecord{"POSTED": "1", "IS_DELETED": "0", "POST_MONTH": "2025-03-17"}
	assert.True(t, spec.Predicate(row))
	for _, d := range spec.Derived {
		if d.Field == domain.FieldAuditMonth {
			assert.Equal(t, []string{"POST_MONTH"}, d.Columns)
			assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), d.Func(row))
		}
	}
}

func TestRegistry_ConfigureRejectsUnknown(t *testing.T) {
	err := Builtin().Configure(map[string]Override{"gl_entries": {}})
	assert.True(t, errors.Is(err, domain.ErrUnknownSource))

	err = Builtin().Configure(map[string]Override{
		SourceScheduledCharges: {Extra: map[string]string{"FOO": "NOT_A_FIELD"}},
	})
	assert.Error(t, err)
}

func TestARTransactionsPredicate(t *testing.T) {
	pred := ARTransactions().Predicate
	tests := []struct {
		name string
		row  domain.RawRecord
		want bool
	}{
		{name: "posted", row: domain.RawRecord{"IS_POSTED": "1", "IS_DELETED": "0"}, want: true},
		{name: "unposted", row: domain.RawRecord{"IS_POSTED": "0", "IS_DELETED": "0"}, want: false},
		{name: "deleted", row: domain.RawRecord{"IS_POSTED": "1", "IS_DELETED": "1"}, want: false},
		{name: "unparseable posted flag", row: domain.RawRecord{"IS_POSTED": "?", "IS_DELETED": "0"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pred(tt.row))
		})
	}
}
