package gateway

import (
	"context"
	"fmt"
	"strings"

	"lease-audit/internal/domain"

	"github.com/xuri/excelize/v2"
)

// SheetRef names one worksheet of one workbook. The sheet must be named
// explicitly; workbooks are never searched for a likely sheet.
type SheetRef struct {
	Path  string
	Sheet string
}

// XLSXRecordSource reads each source from a named worksheet. The first row
// of the sheet is the header.
type XLSXRecordSource struct {
	sheets map[string]SheetRef
}

func NewXLSXRecordSource(sheets map[string]SheetRef) *XLSXRecordSource {
	return &XLSXRecordSource{sheets: sheets}
}

func (r *XLSXRecordSource) FetchRecords(ctx context.Context, source string) (domain.RawBatch, error) {
	ref, ok := r.sheets[source]
	if !ok {
		return domain.RawBatch{}, fmt.Errorf("no worksheet for %q: %w", source, domain.ErrUnknownSource)
	}
	if strings.TrimSpace(ref.Sheet) == "" {
		return domain.RawBatch{}, fmt.Errorf("worksheet name for %q is empty", source)
	}
	if err := ctx.Err(); err != nil {
		return domain.RawBatch{}, err
	}

	f, err := excelize.OpenFile(ref.Path)
	if err != nil {
		return domain.RawBatch{}, fmt.Errorf("failed to open workbook %s: %w", ref.Path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(ref.Sheet); err != nil || idx < 0 {
		return domain.RawBatch{}, fmt.Errorf("workbook %s has no sheet %q", ref.Path, ref.Sheet)
	}
	rows, err := f.GetRows(ref.Sheet)
	if err != nil {
		return domain.RawBatch{}, fmt.Errorf("failed to read sheet %q of %s: %w", ref.Sheet, ref.Path, err)
	}
	if len(rows) == 0 {
		return domain.RawBatch{}, fmt.Errorf("sheet %q of %s has no header row", ref.Sheet, ref.Path)
	}

	header := cleanHeader(rows[0])
	batch := domain.RawBatch{Source: source, Columns: nonEmpty(header)}
	for _, values := range rows[1:] {
		if blankRow(values) {
			continue
		}
		batch.Rows = append(batch.Rows, toRaw(header, values))
	}
	return batch, nil
}

func (r *XLSXRecordSource) Paths(source string) []string {
	if ref, ok := r.sheets[source]; ok {
		return []string{ref.Path}
	}
	return nil
}

func (r *XLSXRecordSource) Fingerprint(ctx context.Context, sources []string) (string, error) {
	return fingerprint(ctx, sources, r.Paths)
}

func nonEmpty(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// blankRow reports trailing rows excelize returns for formatted but empty cells.
func blankRow(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
