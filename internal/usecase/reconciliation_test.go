package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"lease-audit/internal/domain"
	"lease-audit/internal/mapping"
	"lease-audit/internal/usecase"
	mock_usecase "lease-audit/internal/usecase/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scheduledColumns = []string{
	"SCHEDULED_CHARGES_ID", "PROPERTY_ID", "LEASE_INTERVAL_ID", "AR_CODE_ID",
	"CHARGE_AMOUNT", "DATE_CHARGE_START", "DATE_CHARGE_END",
}

func scheduledBatch() domain.RawBatch {
	return domain.RawBatch{
		Source:  mapping.SourceScheduledCharges,
		Columns: scheduledColumns,
		Rows: []domain.RawRecord{
			{"SCHEDULED_CHARGES_ID": "SC1", "PROPERTY_ID": "100", "LEASE_INTERVAL_ID": "200", "AR_CODE_ID": "RENT",
				"CHARGE_AMOUNT": "1000", "DATE_CHARGE_START": "20250101", "DATE_CHARGE_END": "20250331"},
			{"SCHEDULED_CHARGES_ID": "SC2", "PROPERTY_ID": "100", "LEASE_INTERVAL_ID": "200", "AR_CODE_ID": "PARK",
				"CHARGE_AMOUNT": "75", "DATE_CHARGE_START": "20250201", "DATE_CHARGE_END": ""},
			{"SCHEDULED_CHARGES_ID": "SC3", "PROPERTY_ID": "100", "LEASE_INTERVAL_ID": "200", "AR_CODE_ID": "PET",
				"CHARGE_AMOUNT": "oops", "DATE_CHARGE_START": "20250101", "DATE_CHARGE_END": ""},
		},
	}
}

func actualBatch() domain.RawBatch {
	return domain.RawBatch{
		Source:  mapping.SourceARTransactions,
		Columns: arColumns,
		Rows: []domain.RawRecord{
			arRow("T1", "RENT", "1000", "2025-01-03", "1"),
			arRow("T2", "RENT", "1000", "2025-02-03", "1"),
			arRow("T3", "PARK", "75", "2025-02-03", "0"),
			arRow("T4", "LATE", "50", "2025-03-05", "1"),
		},
	}
}

func TestReconciliationUseCase_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mock_usecase.NewMockRecordSource(ctrl)
	sink := mock_usecase.NewMockResultSink(ctrl)

	source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceScheduledCharges).Return(scheduledBatch(), nil)
	source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceARTransactions).Return(actualBatch(), nil)

	var savedMeta domain.RunMetadata
	var savedBuckets []domain.BucketResult
	sink.EXPECT().SaveRun(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, meta domain.RunMetadata, buckets []domain.BucketResult, _ []domain.Finding) error {
			savedMeta, savedBuckets = meta, buckets
			return nil
		})

	uc, err := usecase.NewReconciliationUseCase(source, mapping.Builtin(), sink, usecase.Options{
		Reconcile:     usecase.DefaultReconcileConfig(),
		ConfigVersion: "test",
		Now:           func() time.Time { return fixedNow },
		NewRunID:      func() string { return "run-1" },
	}, quietLog)
	require.NoError(t, err)

	report, err := uc.Run(context.Background(), usecase.RunRequest{InitiatedBy: "tester"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.Metadata.RunID)
	assert.Equal(t, "tester", report.Metadata.InitiatedBy)
	assert.Equal(t, "test", report.Metadata.ConfigVersion)
	assert.Equal(t, savedMeta, report.Metadata)
	assert.Equal(t, savedBuckets, report.Buckets)

	assert.Equal(t, domain.StageCounts{Raw: 3, Mapped: 3, Rejected: 1, Normalized: 2, Monthly: 4},
		report.Sources[mapping.SourceScheduledCharges])
	assert.Equal(t, domain.StageCounts{Raw: 4, Filtered: 1, Mapped: 3, Normalized: 3, Monthly: 3},
		report.Sources[mapping.SourceARTransactions])
	require.Len(t, report.Rejections, 1)
	assert.Equal(t, "SC3", report.Rejections[0].SourceRowID)

	statuses := make(map[string]domain.Status)
	for _, b := range report.Buckets {
		statuses[b.Key.String()] = b.Status
	}
	assert.Equal(t, map[string]domain.Status{
		"100/200/LATE/2025-03": domain.StatusBilledNotScheduled,
		"100/200/PARK/2025-02": domain.StatusScheduledNotBilled,
		"100/200/RENT/2025-01": domain.StatusMatched,
		"100/200/RENT/2025-02": domain.StatusMatched,
		"100/200/RENT/2025-03": domain.StatusScheduledNotBilled,
	}, statuses)

	// RENT in March was not billed; LATE was billed the same month for a
	// different amount, so it is not a miscode.
	assert.Equal(t, 5, report.Metadata.Metrics.TotalBuckets)
	assert.Equal(t, 2, report.Metadata.Metrics.MatchedBuckets)
	assert.Len(t, findingsFor(report.Findings, usecase.RuleARScheduledMatch), 3)
	assert.Len(t, findingsFor(report.Findings, usecase.RuleMaterialVariance), 1)
	require.Len(t, report.PropertySummary, 1)
	assert.Equal(t, int64(100), report.PropertySummary[0].PropertyID)
}

func TestReconciliationUseCase_RunAuditPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mock_usecase.NewMockRecordSource(ctrl)
	sink := mock_usecase.NewMockResultSink(ctrl)
	source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceScheduledCharges).Return(scheduledBatch(), nil)
	source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceARTransactions).Return(actualBatch(), nil)
	sink.EXPECT().SaveRun(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	uc, err := usecase.NewReconciliationUseCase(source, mapping.Builtin(), sink, usecase.Options{
		Reconcile: usecase.DefaultReconcileConfig(),
		NewRunID:  func() string { return "run-1" },
	}, quietLog)
	require.NoError(t, err)

	period := domain.AuditPeriod{Year: 2025, Month: 2}
	report, err := uc.Run(context.Background(), usecase.RunRequest{Period: period})
	require.NoError(t, err)

	assert.Equal(t, period, report.Period)
	assert.Equal(t, 2, report.Sources[mapping.SourceScheduledCharges].Monthly)
	assert.Equal(t, 1, report.Sources[mapping.SourceARTransactions].Monthly)

	statuses := make(map[string]domain.Status)
	for _, b := range report.Buckets {
		statuses[b.Key.String()] = b.Status
	}
	assert.Equal(t, map[string]domain.Status{
		"100/200/PARK/2025-02": domain.StatusScheduledNotBilled,
		"100/200/RENT/2025-02": domain.StatusMatched,
	}, statuses)
}

func TestReconciliationUseCase_RunInvalidPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Nothing is fetched for a request that cannot be satisfied.
	uc, err := usecase.NewReconciliationUseCase(mock_usecase.NewMockRecordSource(ctrl), mapping.Builtin(),
		mock_usecase.NewMockResultSink(ctrl), usecase.Options{Reconcile: usecase.DefaultReconcileConfig()}, quietLog)
	require.NoError(t, err)

	_, err = uc.Run(context.Background(), usecase.RunRequest{Period: domain.AuditPeriod{Month: 13}})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
}

func TestFilterPeriod(t *testing.T) {
	records := []domain.MonthlyRecord{
		{Key: key("RENT", month(2024, 2))},
		{Key: key("RENT", month(2025, 1))},
		{Key: key("RENT", month(2025, 2))},
	}

	tests := []struct {
		name   string
		period domain.AuditPeriod
		want   int
	}{
		{name: "no filter", period: domain.AuditPeriod{}, want: 3},
		{name: "year", period: domain.AuditPeriod{Year: 2025}, want: 2},
		{name: "month in every year", period: domain.AuditPeriod{Month: 2}, want: 2},
		{name: "year and month", period: domain.AuditPeriod{Year: 2024, Month: 2}, want: 1},
		{name: "nothing in period", period: domain.AuditPeriod{Year: 2023}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.FilterPeriod(records, tt.period)
			assert.Len(t, got, tt.want)
			for _, r := range got {
				assert.True(t, tt.period.Contains(r.Key.AuditMonth))
			}
		})
	}
}

func TestReconciliationUseCase_RunFailures(t *testing.T) {
	badDates := scheduledBatch()
	badDates.Rows = badDates.Rows[:1]
	badDates.Rows[0]["DATE_CHARGE_END"] = "20241231"

	tests := []struct {
		name      string
		setup     func(source *mock_usecase.MockRecordSource, sink *mock_usecase.MockResultSink)
		wantStage domain.Stage
		wantErr   error
	}{
		{
			name: "fetch fails",
			setup: func(source *mock_usecase.MockRecordSource, _ *mock_usecase.MockResultSink) {
				source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceScheduledCharges).
					Return(domain.RawBatch{}, domain.ErrUnknownSource)
			},
			wantStage: domain.StageFetch,
			wantErr:   domain.ErrUnknownSource,
		},
		{
			name: "required column missing",
			setup: func(source *mock_usecase.MockRecordSource, _ *mock_usecase.MockResultSink) {
				batch := scheduledBatch()
				batch.Columns = batch.Columns[:4]
				source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceScheduledCharges).Return(batch, nil)
			},
			wantStage: domain.StageMap,
		},
		{
			name: "period ends before it starts",
			setup: func(source *mock_usecase.MockRecordSource, _ *mock_usecase.MockResultSink) {
				source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceScheduledCharges).Return(badDates, nil)
				source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceARTransactions).Return(actualBatch(), nil)
			},
			wantStage: domain.StageExpand,
		},
		{
			name: "persist fails",
			setup: func(source *mock_usecase.MockRecordSource, sink *mock_usecase.MockResultSink) {
				source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceScheduledCharges).Return(scheduledBatch(), nil)
				source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceARTransactions).Return(actualBatch(), nil)
				sink.EXPECT().SaveRun(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
			},
			wantStage: domain.StagePersist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			source := mock_usecase.NewMockRecordSource(ctrl)
			sink := mock_usecase.NewMockResultSink(ctrl)
			tt.setup(source, sink)

			uc, err := usecase.NewReconciliationUseCase(source, mapping.Builtin(), sink, usecase.Options{
				Reconcile: usecase.DefaultReconcileConfig(),
			}, quietLog)
			require.NoError(t, err)

			report, err := uc.Run(context.Background(), usecase.RunRequest{InitiatedBy: "tester"})
			assert.Nil(t, report)

			var stageErr *domain.StageError
			require.True(t, errors.As(err, &stageErr), "got %v", err)
			assert.Equal(t, tt.wantStage, stageErr.Stage)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestReconciliationUseCase_SkipPolicy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	batch := scheduledBatch()
	batch.Rows[0]["DATE_CHARGE_END"] = "20241231"

	source := mock_usecase.NewMockRecordSource(ctrl)
	source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceScheduledCharges).Return(batch, nil)
	source.EXPECT().FetchRecords(gomock.Any(), mapping.SourceARTransactions).Return(actualBatch(), nil)
	sink := mock_usecase.NewMockResultSink(ctrl)
	sink.EXPECT().SaveRun(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	uc, err := usecase.NewReconciliationUseCase(source, mapping.Builtin(), sink, usecase.Options{
		Reconcile: usecase.DefaultReconcileConfig(),
		Policy:    usecase.PolicySkip,
	}, quietLog)
	require.NoError(t, err)

	report, err := uc.Run(context.Background(), usecase.RunRequest{})
	require.NoError(t, err)
	require.Len(t, report.InvariantErrors, 1)
	assert.Contains(t, report.InvariantErrors[0], "SCHEDULED_CHARGES_ID=SC1")
	assert.Equal(t, 1, report.Sources[mapping.SourceScheduledCharges].Monthly)
}

// fingerprintSource is a record source that can also digest its input.
type fingerprintSource struct {
	*mock_usecase.MockRecordSource
	*mock_usecase.MockFingerprinter
}

func TestReconciliationUseCase_Fingerprint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := fingerprintSource{mock_usecase.NewMockRecordSource(ctrl), mock_usecase.NewMockFingerprinter(ctrl)}
	source.MockRecordSource.EXPECT().FetchRecords(gomock.Any(), mapping.SourceScheduledCharges).Return(scheduledBatch(), nil)
	source.MockRecordSource.EXPECT().FetchRecords(gomock.Any(), mapping.SourceARTransactions).Return(actualBatch(), nil)
	source.MockFingerprinter.EXPECT().
		Fingerprint(gomock.Any(), []string{mapping.SourceScheduledCharges, mapping.SourceARTransactions}).
		Return("abc123", nil)
	sink := mock_usecase.NewMockResultSink(ctrl)
	sink.EXPECT().SaveRun(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	uc, err := usecase.NewReconciliationUseCase(source, mapping.Builtin(), sink, usecase.Options{
		Reconcile: usecase.DefaultReconcileConfig(),
	}, quietLog)
	require.NoError(t, err)

	report, err := uc.Run(context.Background(), usecase.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, "abc123", report.Metadata.SourceFingerprint)
	assert.NotEmpty(t, report.Metadata.RunID)
}

func TestNewReconciliationUseCase_InvalidOptions(t *testing.T) {
	cfg := usecase.DefaultReconcileConfig()
	cfg.AmountTolerance = dec("-1")
	_, err := usecase.NewReconciliationUseCase(nil, mapping.Builtin(), nil, usecase.Options{Reconcile: cfg}, quietLog)
	assert.Error(t, err)

	_, err = usecase.NewReconciliationUseCase(nil, mapping.Builtin(), nil, usecase.Options{
		Reconcile: usecase.DefaultReconcileConfig(),
		Policy:    "ignore",
	}, quietLog)
	assert.Error(t, err)
}
