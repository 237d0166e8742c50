package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"lease-audit/internal/domain"
)

// CSVRecordSource reads each source from one or more CSV files with a header
// row. Files of the same source are concatenated in the order given.
type CSVRecordSource struct {
	paths map[string][]string
}

// NewCSVRecordSource creates a record source from source -> file paths.
func NewCSVRecordSource(paths map[string][]string) *CSVRecordSource {
	return &CSVRecordSource{paths: paths}
}

// FetchRecords reads every file registered for source. Values are returned as
// raw strings; typing happens in the normalizer.
func (r *CSVRecordSource) FetchRecords(ctx context.Context, source string) (domain.RawBatch, error) {
	paths, ok := r.paths[source]
	if !ok || len(paths) == 0 {
		return domain.RawBatch{}, fmt.Errorf("no csv files for %q: %w", source, domain.ErrUnknownSource)
	}

	batch := domain.RawBatch{Source: source}
	seen := make(map[string]bool)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return domain.RawBatch{}, err
		}
		header, rows, err := readCSV(path)
		if err != nil {
			return domain.RawBatch{}, err
		}
		for _, c := range header {
			if !seen[c] {
				seen[c] = true
				batch.Columns = append(batch.Columns, c)
			}
		}
		batch.Rows = append(batch.Rows, rows...)
	}
	return batch, nil
}

// Paths lists the files behind source.
func (r *CSVRecordSource) Paths(source string) []string {
	return r.paths[source]
}

// Fingerprint digests the files behind sources.
func (r *CSVRecordSource) Fingerprint(ctx context.Context, sources []string) (string, error) {
	return fingerprint(ctx, sources, r.Paths)
}

func readCSV(path string) ([]string, []domain.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open csv file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	header = cleanHeader(header)

	var rows []domain.RawRecord
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}
		rows = append(rows, toRaw(header, record))
	}
	return header, rows, nil
}

// cleanHeader trims whitespace and a UTF-8 byte order mark from column names.
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// toRaw zips a row with its header. Short rows are padded with empty values.
func toRaw(header, values []string) domain.RawRecord {
	row := make(domain.RawRecord, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = ""
		}
	}
	return row
}
