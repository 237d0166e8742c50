package usecase_test

import (
	"errors"
	"testing"
	"time"

	"lease-audit/internal/domain"
	"lease-audit/internal/mapping"
	"lease-audit/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var arColumns = []string{
	"ID", "PROPERTY_ID", "LEASE_INTERVAL_ID", "AR_CODE_ID", "TRANSACTION_AMOUNT",
	"POST_DATE", "POST_MONTH_DATE", "IS_POSTED", "IS_DELETED", "IS_REVERSAL",
}

func arRow(id, code, amount, postDate, posted string) domain.RawRecord {
	return domain.RawRecord{
		"ID": id, "PROPERTY_ID": "100", "LEASE_INTERVAL_ID": "200", "AR_CODE_ID": code,
		"TRANSACTION_AMOUNT": amount, "POST_DATE": postDate, "POST_MONTH_DATE": postDate,
		"IS_POSTED": posted, "IS_DELETED": "0", "IS_REVERSAL": "0",
	}
}

func TestMapRecords(t *testing.T) {
	batch := domain.RawBatch{
		Source:  mapping.SourceARTransactions,
		Columns: append(arColumns, "CUSTOMER_NAME"),
		Rows: []domain.RawRecord{
			arRow("T1", "154771", "1,000.00", "2025-01-15", "1"),
			arRow("T2", "154771", "50", "2025-01-20", "0"),
			arRow("", "154771", "75", "2025-02-03", "1"),
		},
	}
	batch.Rows[0]["CUSTOMER_NAME"] = "  "

	got, err := usecase.MapRecords(mapping.ARTransactions(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Filtered)
	require.Len(t, got.Records, 2)

	first := got.Records[0]
	assert.Equal(t, "T1", first[domain.FieldSourceRowID])
	assert.Equal(t, mapping.SourceARTransactions, first[domain.FieldSourceSystem])
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), first[domain.FieldAuditMonth])
	assert.Equal(t, "1,000.00", first[domain.FieldActualAmount])
	assert.Nil(t, first[domain.FieldCustomerName])
	assert.Equal(t, false, first[domain.FieldHasScheduleLink])

	// A row without an id falls back to its position in the batch.
	assert.Equal(t, "#3", got.Records[1][domain.FieldSourceRowID])
}

func TestMapRecords_MissingColumns(t *testing.T) {
	batch := domain.RawBatch{
		Columns: []string{"ID", "PROPERTY_ID", "LEASE_INTERVAL_ID", "AR_CODE_ID", "IS_POSTED", "IS_DELETED", "IS_REVERSAL"},
	}

	_, err := usecase.MapRecords(mapping.ARTransactions(), batch)

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.ElementsMatch(t, []domain.Field{
		domain.FieldActualAmount, domain.FieldPostDate, domain.FieldAuditMonth,
	}, schemaErr.Missing)
}

func TestMapRecords_EmptyBatch(t *testing.T) {
	got, err := usecase.MapRecords(mapping.ScheduledCharges(), domain.RawBatch{Columns: []string{
		"SCHEDULED_CHARGES_ID", "PROPERTY_ID", "LEASE_INTERVAL_ID", "AR_CODE_ID",
		"CHARGE_AMOUNT", "DATE_CHARGE_START", "DATE_CHARGE_END",
	}})
	require.NoError(t, err)
	assert.Empty(t, got.Records)
	assert.Zero(t, got.Filtered)
}

func TestNormalize(t *testing.T) {
	records := []domain.Record{
		{
			domain.FieldSourceRowID:        "SC1",
			domain.FieldScheduledChargesID: "SC1",
			domain.FieldPropertyID:         "100",
			domain.FieldLeaseIntervalID:    "200.0",
			domain.FieldARCodeID:           154771.0,
			domain.FieldExpectedAmount:     "1250.00",
			domain.FieldPeriodStart:        "20250115",
			domain.FieldPeriodEnd:          nil,
			domain.FieldLeaseID:            "not a number",
		},
		{
			domain.FieldSourceRowID:        "SC2",
			domain.FieldScheduledChargesID: "SC2",
			domain.FieldPropertyID:         "100",
			domain.FieldLeaseIntervalID:    "200",
			domain.FieldARCodeID:           "154771",
			domain.FieldExpectedAmount:     "abc",
			domain.FieldPeriodStart:        "2025-01-01",
			domain.FieldPeriodEnd:          "2025-03-31",
		},
		{
			domain.FieldSourceRowID:        "SC3",
			domain.FieldScheduledChargesID: "SC3",
			domain.FieldPropertyID:         nil,
			domain.FieldLeaseIntervalID:    "200",
			domain.FieldARCodeID:           "154771",
			domain.FieldExpectedAmount:     "10",
			domain.FieldPeriodStart:        "2025-01-01",
			domain.FieldPeriodEnd:          nil,
		},
	}

	got, err := usecase.Normalize(mapping.SourceScheduledCharges, records, usecase.ScheduledRequirement)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	require.Len(t, got.Rejections, 2)

	rec := got.Records[0]
	assert.Equal(t, int64(100), rec[domain.FieldPropertyID])
	assert.Equal(t, int64(200), rec[domain.FieldLeaseIntervalID])
	assert.Equal(t, "154771", rec[domain.FieldARCodeID])
	assert.True(t, decimal.RequireFromString("1250").Equal(rec[domain.FieldExpectedAmount].(decimal.Decimal)))
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), rec[domain.FieldPeriodStart])
	assert.Nil(t, rec[domain.FieldPeriodEnd])
	assert.Nil(t, rec[domain.FieldLeaseID])

	assert.Equal(t, domain.Rejection{
		Stage:       domain.StageNormalize,
		Source:      mapping.SourceScheduledCharges,
		SourceRowID: "SC2",
		Field:       domain.FieldExpectedAmount,
		Reason:      `EXPECTED_AMOUNT: unparseable amount "abc"`,
	}, got.Rejections[0])
	assert.Equal(t, domain.FieldPropertyID, got.Rejections[1].Field)
	assert.Equal(t, "PROPERTY_ID: required value is null", got.Rejections[1].Reason)
}

func TestNormalize_NullableColumns(t *testing.T) {
	row := func(id string, end any) domain.Record {
		return domain.Record{
			domain.FieldSourceRowID:        id,
			domain.FieldScheduledChargesID: id,
			domain.FieldPropertyID:         "100",
			domain.FieldLeaseIntervalID:    "200",
			domain.FieldARCodeID:           "RENT",
			domain.FieldExpectedAmount:     "1000",
			domain.FieldPeriodStart:        "2025-01-15",
			domain.FieldPeriodEnd:          end,
		}
	}

	tests := []struct {
		name         string
		end          any
		wantRejected bool
		wantEnd      any
	}{
		{name: "blank end is a one-time charge", end: "  ", wantEnd: nil},
		{name: "null end is a one-time charge", end: nil, wantEnd: nil},
		{name: "valid end is kept", end: "2025-03-31", wantEnd: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		{name: "unparseable end rejects the row", end: "2025-13-45", wantRejected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := usecase.Normalize(mapping.SourceScheduledCharges, []domain.Record{row("SC1", tt.end)}, usecase.ScheduledRequirement)
			require.NoError(t, err)

			if tt.wantRejected {
				assert.Empty(t, got.Records)
				require.Len(t, got.Rejections, 1)
				assert.Equal(t, domain.FieldPeriodEnd, got.Rejections[0].Field)
				assert.Equal(t, "SC1", got.Rejections[0].SourceRowID)
				assert.Contains(t, got.Rejections[0].Reason, "2025-13-45")
				return
			}
			assert.Empty(t, got.Rejections)
			require.Len(t, got.Records, 1)
			assert.Equal(t, tt.wantEnd, got.Records[0][domain.FieldPeriodEnd])
		})
	}
}

func TestNormalize_NonPositiveIDs(t *testing.T) {
	records := []domain.Record{
		{
			domain.FieldSourceRowID:     "T1",
			domain.FieldPropertyID:      "0",
			domain.FieldLeaseIntervalID: "200",
		},
		{
			domain.FieldSourceRowID:     "T2",
			domain.FieldPropertyID:      "100",
			domain.FieldLeaseIntervalID: "-7",
		},
		{
			domain.FieldSourceRowID:     "T3",
			domain.FieldPropertyID:      "100",
			domain.FieldLeaseIntervalID: "200",
		},
	}
	req := usecase.Requirement{
		Columns: []domain.Field{domain.FieldPropertyID, domain.FieldLeaseIntervalID},
		NonNull: []domain.Field{domain.FieldPropertyID, domain.FieldLeaseIntervalID},
	}

	got, err := usecase.Normalize(mapping.SourceARTransactions, records, req)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	require.Len(t, got.Rejections, 2)
	assert.Equal(t, "PROPERTY_ID: must be a positive id, got 0", got.Rejections[0].Reason)
	assert.Equal(t, "LEASE_INTERVAL_ID: must be a positive id, got -7", got.Rejections[1].Reason)
}

func TestNormalize_MissingColumn(t *testing.T) {
	records := []domain.Record{{
		domain.FieldScheduledChargesID: "SC1",
		domain.FieldPropertyID:         "100",
		domain.FieldLeaseIntervalID:    "200",
		domain.FieldARCodeID:           "154771",
		domain.FieldExpectedAmount:     "10",
		domain.FieldPeriodStart:        "2025-01-01",
	}}

	_, err := usecase.Normalize(mapping.SourceScheduledCharges, records, usecase.ScheduledRequirement)

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []domain.Field{domain.FieldPeriodEnd}, schemaErr.Missing)
}
