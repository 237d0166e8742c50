package gateway

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lease-audit/internal/domain"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaFS embed.FS

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	monthLayout = "2006-01-02"
)

// SQLStore persists runs, their outputs and exception resolutions in SQLite
// or Postgres. Every statement is written in the dialect both accept.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens the database and applies the schema. For SQLite the dsn
// is a file path (its directory is created) or ":memory:".
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite serializes writers; one connection also keeps :memory: alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Driver names the database/sql driver in use.
func (s *SQLStore) Driver() string {
	return s.driver
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun writes a run and its outputs in one transaction. A run id can only
// be saved once.
func (s *SQLStore) SaveRun(ctx context.Context, meta domain.RunMetadata, buckets []domain.BucketResult, findings []domain.Finding) error {
	metrics, err := json.Marshal(meta.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_runs (run_id, started_at, completed_at, initiated_by, source_fingerprint, config_version, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		meta.RunID, formatTime(meta.StartedAt), formatTime(meta.CompletedAt), meta.InitiatedBy,
		meta.SourceFingerprint, meta.ConfigVersion, string(metrics),
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", meta.RunID, err)
	}

	bucketStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bucket_results (run_id, property_id, lease_interval_id, ar_code_id, audit_month,
			expected_total, actual_total, variance, status, match_rule,
			expected_source_ids, actual_source_ids, annotations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("failed to prepare bucket insert: %w", err)
	}
	defer bucketStmt.Close()

	for _, b := range buckets {
		expIDs, _ := json.Marshal(nonNilStrings(b.ExpectedSourceIDs))
		actIDs, _ := json.Marshal(nonNilStrings(b.ActualSourceIDs))
		annotations, err := json.Marshal(nonNilAnnotations(b.Annotations))
		if err != nil {
			return fmt.Errorf("failed to encode annotations of %s: %w", b.Key, err)
		}
		if _, err := bucketStmt.ExecContext(ctx,
			meta.RunID, b.Key.PropertyID, b.Key.LeaseIntervalID, b.Key.ARCodeID, b.Key.AuditMonth.Format(monthLayout),
			b.ExpectedTotal.String(), b.ActualTotal.String(), b.Variance.String(), string(b.Status), string(b.MatchRule),
			string(expIDs), string(actIDs), string(annotations),
		); err != nil {
			return fmt.Errorf("failed to insert bucket %s: %w", b.Key, err)
		}
	}

	findingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (finding_id, run_id, seq, rule_id, property_id, lease_interval_id, ar_code_id, audit_month,
			category, severity, title, description, expected_value, actual_value, variance, impact_amount, evidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`)
	if err != nil {
		return fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer findingStmt.Close()

	for i, f := range findings {
		evidence, err := json.Marshal(f.Evidence)
		if err != nil {
			return fmt.Errorf("failed to encode evidence of %s: %w", f.ID, err)
		}
		if _, err := findingStmt.ExecContext(ctx,
			f.ID, meta.RunID, i, f.RuleID, f.Key.PropertyID, f.Key.LeaseIntervalID, f.Key.ARCodeID, f.Key.AuditMonth.Format(monthLayout),
			string(f.Category), string(f.Severity), f.Title, f.Description,
			f.ExpectedValue.String(), f.ActualValue.String(), f.Variance.String(), f.ImpactAmount.String(), string(evidence),
		); err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", meta.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero lists every run.
func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]domain.RunMetadata, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, completed_at, initiated_by, source_fingerprint, config_version, metrics
		FROM audit_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.RunMetadata, 0)
	for rows.Next() {
		var (
			meta           domain.RunMetadata
			started, ended string
			metrics        string
		)
		if err := rows.Scan(&meta.RunID, &started, &ended, &meta.InitiatedBy, &meta.SourceFingerprint, &meta.ConfigVersion, &metrics); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if meta.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if meta.CompletedAt, err = parseTime(ended); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(metrics), &meta.Metrics); err != nil {
			return nil, fmt.Errorf("failed to decode metrics of run %s: %w", meta.RunID, err)
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// LoadBuckets returns the bucket results of a run in key order.
func (s *SQLStore) LoadBuckets(ctx context.Context, runID string) ([]domain.BucketResult, error) {
	if err := s.runExists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT property_id, lease_interval_id, ar_code_id, audit_month, expected_total, actual_total, variance,
			status, match_rule, expected_source_ids, actual_source_ids, annotations
		FROM bucket_results
		WHERE run_id = $1
		ORDER BY property_id, lease_interval_id, ar_code_id, audit_month`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load buckets of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := make([]domain.BucketResult, 0)
	for rows.Next() {
		var (
			b                           domain.BucketResult
			month, exp, act, variance   string
			status, rule                string
			expIDs, actIDs, annotations string
		)
		if err := rows.Scan(&b.Key.PropertyID, &b.Key.LeaseIntervalID, &b.Key.ARCodeID, &month, &exp, &act, &variance,
			&status, &rule, &expIDs, &actIDs, &annotations); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		if b.Key.AuditMonth, err = parseMonth(month); err != nil {
			return nil, err
		}
		if b.ExpectedTotal, err = decimal.NewFromString(exp); err != nil {
			return nil, fmt.Errorf("bad expected total %q: %w", exp, err)
		}
		if b.ActualTotal, err = decimal.NewFromString(act); err != nil {
			return nil, fmt.Errorf("bad actual total %q: %w", act, err)
		}
		if b.Variance, err = decimal.NewFromString(variance); err != nil {
			return nil, fmt.Errorf("bad variance %q: %w", variance, err)
		}
		b.Status = domain.Status(status)
		b.MatchRule = domain.MatchRule(rule)
		if err := decodeJSON(expIDs, &b.ExpectedSourceIDs); err != nil {
			return nil, err
		}
		if err := decodeJSON(actIDs, &b.ActualSourceIDs); err != nil {
			return nil, err
		}
		if err := decodeJSON(annotations, &b.Annotations); err != nil {
			return nil, err
		}
		if len(b.ExpectedSourceIDs) == 0 {
			b.ExpectedSourceIDs = nil
		}
		if len(b.ActualSourceIDs) == 0 {
			b.ActualSourceIDs = nil
		}
		if len(b.Annotations) == 0 {
			b.Annotations = nil
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LoadFindings returns the findings of a run in the order they were generated.
func (s *SQLStore) LoadFindings(ctx context.Context, runID string) ([]domain.Finding, error) {
	if err := s.runExists(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT finding_id, rule_id, property_id, lease_interval_id, ar_code_id, audit_month, category, severity,
			title, description, expected_value, actual_value, variance, impact_amount, evidence
		FROM findings
		WHERE run_id = $1
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load findings of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := make([]domain.Finding, 0)
	for rows.Next() {
		var (
			f                                domain.Finding
			month, category, severity        string
			exp, act, variance, impact, evid string
		)
		if err := rows.Scan(&f.ID, &f.RuleID, &f.Key.PropertyID, &f.Key.LeaseIntervalID, &f.Key.ARCodeID, &month,
			&category, &severity, &f.Title, &f.Description, &exp, &act, &variance, &impact, &evid); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.RunID = runID
		f.Category = domain.Category(category)
		f.Severity = domain.Severity(severity)
		if f.Key.AuditMonth, err = parseMonth(month); err != nil {
			return nil, err
		}
		for _, d := range []struct {
			dst *decimal.Decimal
			src string
		}{{&f.ExpectedValue, exp}, {&f.ActualValue, act}, {&f.Variance, variance}, {&f.ImpactAmount, impact}} {
			if *d.dst, err = decimal.NewFromString(d.src); err != nil {
				return nil, fmt.Errorf("bad amount %q on finding %s: %w", d.src, f.ID, err)
			}
		}
		if err := decodeJSON(evid, &f.Evidence); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FindResolutions searches every run; it never filters by run id.
func (s *SQLStore) FindResolutions(ctx context.Context, q domain.ExceptionQuery) ([]domain.ExceptionMonth, error) {
	query := `
		SELECT run_id, property_id, lease_interval_id, ar_code_id, audit_month, status, fix_label, action_type,
			variance, resolved_at, resolved_by, updated_at
		FROM exception_months
		WHERE property_id = $1 AND lease_interval_id = $2 AND ar_code_id = $3`
	args := []any{q.PropertyID, q.LeaseIntervalID, q.ARCodeID}
	if q.Month != nil {
		query += ` AND audit_month = $4`
		args = append(args, q.Month.Format(monthLayout))
	}
	query += ` ORDER BY audit_month, run_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exception months: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExceptionMonth, 0)
	for rows.Next() {
		var (
			m                       domain.ExceptionMonth
			month, status, variance string
			resolvedAt              sql.NullString
			updatedAt               string
		)
		if err := rows.Scan(&m.RunID, &m.Key.PropertyID, &m.Key.LeaseIntervalID, &m.Key.ARCodeID, &month, &status,
			&m.FixLabel, &m.ActionType, &variance, &resolvedAt, &m.ResolvedBy, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exception month: %w", err)
		}
		m.Status = domain.ExceptionStatus(status)
		if m.Key.AuditMonth, err = parseMonth(month); err != nil {
			return nil, err
		}
		if m.Variance, err = decimal.NewFromString(variance); err != nil {
			return nil, fmt.Errorf("bad variance %q: %w", variance, err)
		}
		if resolvedAt.Valid && resolvedAt.String != "" {
			t, err := parseTime(resolvedAt.String)
			if err != nil {
				return nil, err
			}
			m.ResolvedAt = &t
		}
		if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertException writes m under its run and key. A second write to the same
// run and key replaces the first.
func (s *SQLStore) UpsertException(ctx context.Context, m domain.ExceptionMonth) error {
	var resolvedAt sql.NullString
	if m.ResolvedAt != nil {
		resolvedAt = sql.NullString{String: formatTime(*m.ResolvedAt), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exception_months (run_id, property_id, lease_interval_id, ar_code_id, audit_month, status,
			fix_label, action_type, variance, resolved_at, resolved_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id, property_id, lease_interval_id, ar_code_id, audit_month) DO UPDATE SET
			status = excluded.status,
			fix_label = excluded.fix_label,
			action_type = excluded.action_type,
			variance = excluded.variance,
			resolved_at = excluded.resolved_at,
			resolved_by = excluded.resolved_by,
			updated_at = excluded.updated_at`,
		m.RunID, m.Key.PropertyID, m.Key.LeaseIntervalID, m.Key.ARCodeID, m.Key.AuditMonth.Format(monthLayout),
		string(m.Status), m.FixLabel, m.ActionType, m.Variance.String(), resolvedAt, m.ResolvedBy, formatTime(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exception %s: %w", m.Key, err)
	}
	return nil
}

func (s *SQLStore) runExists(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM audit_runs WHERE run_id = $1`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up run %s: %w", runID, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseMonth(s string) (time.Time, error) {
	t, err := time.ParseInLocation(monthLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad audit month %q: %w", s, err)
	}
	return t, nil
}

func decodeJSON(s string, v any) error {
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("failed to decode %q: %w", s, err)
	}
	return nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilAnnotations(v []domain.Annotation) []domain.Annotation {
	if v == nil {
		return []domain.Annotation{}
	}
	return v
}
