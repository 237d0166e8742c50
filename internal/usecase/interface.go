package usecase

import (
	"context"

	"lease-audit/internal/domain"
	"lease-audit/internal/mapping"
)

// The usecase layer depends on these interfaces, not on concrete gateways.
//
//go:generate mockgen -destination=mocks/mock_interface.go -package=mock_usecase -source=interface.go

// RecordSource supplies raw rows for a source identifier such as
// "ar_transactions" or "scheduled_charges".
type RecordSource interface {
	FetchRecords(ctx context.Context, source string) (domain.RawBatch, error)
}

// Fingerprinter is implemented by record sources that can digest their raw
// input, so a run records exactly what it read.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, sources []string) (string, error)
}

// MappingStore supplies the static mapping spec of a source.
type MappingStore interface {
	MappingFor(source string) (mapping.Spec, error)
}

// ResultSink persists the outputs of a run.
type ResultSink interface {
	SaveRun(ctx context.Context, meta domain.RunMetadata, buckets []domain.BucketResult, findings []domain.Finding) error
}

// ExceptionStore holds exception resolutions. Lookup and write are separate
// capabilities: FindResolutions never filters by run.
type ExceptionStore interface {
	FindResolutions(ctx context.Context, q domain.ExceptionQuery) ([]domain.ExceptionMonth, error)
	UpsertException(ctx context.Context, m domain.ExceptionMonth) error
}

// RunLister supplies metadata and metrics of prior runs, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunMetadata, error)
}

// RunReader loads the persisted outputs of a run.
type RunReader interface {
	LoadBuckets(ctx context.Context, runID string) ([]domain.BucketResult, error)
	LoadFindings(ctx context.Context, runID string) ([]domain.Finding, error)
}
