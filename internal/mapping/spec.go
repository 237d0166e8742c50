// Package mapping holds the source-to-canonical mapping specifications. It is
// the only package that knows raw source column names.
package mapping

import (
	"fmt"

	"lease-audit/internal/domain"
)

// Rename copies a raw column into a canonical field unchanged.
type Rename struct {
	Column string
	Field  domain.Field
}

// Derivation computes a canonical field from the raw row. Columns lists the raw
// columns it reads; when Required is set their absence fails the batch.
type Derivation struct {
	Field    domain.Field
	Columns  []string
	Required bool
	Func     func(row domain.RawRecord) any
}

// Spec describes how one source becomes canonical records.
type Spec struct {
	Source string
	// Required columns must be present in the batch header.
	Required []Rename
	// Optional columns are copied when present and ignored otherwise.
	Optional []Rename
	// Predicate excludes rows silently when it returns false. Nil keeps every row.
	Predicate func(row domain.RawRecord) bool
	Derived   []Derivation
	// RowID names the raw column used as provenance for SOURCE_ROW_ID.
	RowID string
}

// Validate checks every target against the field catalog.
func (s Spec) Validate() error {
	if s.Source == "" {
		return fmt.Errorf("mapping spec has no source name")
	}
	seen := make(map[domain.Field]string)
	check := func(f domain.Field, origin string) error {
		if !f.Valid() {
			return fmt.Errorf("mapping %q: %s targets unknown canonical field %q", s.Source, origin, f)
		}
		if prev, dup := seen[f]; dup {
			return fmt.Errorf("mapping %q: canonical field %s produced by both %s and %s", s.Source, f, prev, origin)
		}
		seen[f] = origin
		return nil
	}
	for _, r := range s.Required {
		if err := check(r.Field, "column "+r.Column); err != nil {
			return err
		}
	}
	for _, r := range s.Optional {
		if err := check(r.Field, "column "+r.Column); err != nil {
			return err
		}
	}
	for _, d := range s.Derived {
		if d.Func == nil {
			return fmt.Errorf("mapping %q: derived field %s has no formula", s.Source, d.Field)
		}
		if err := check(d.Field, "derivation"); err != nil {
			return err
		}
	}
	return nil
}

// WithColumnAliases returns a copy of s that reads renamed raw columns. aliases
// maps the column name the spec expects to the name the source actually uses.
func (s Spec) WithColumnAliases(aliases map[string]string) Spec {
	if len(aliases) == 0 {
		return s
	}
	alias := func(c string) string {
		if a, ok := aliases[c]; ok && a != "" {
			return a
		}
		return c
	}
	out := s
	out.Required = make([]Rename, len(s.Required))
	for i, r := range s.Required {
		out.Required[i] = Rename{Column: alias(r.Column), Field: r.Field}
	}
	out.Optional = make([]Rename, len(s.Optional))
	for i, r := range s.Optional {
		out.Optional[i] = Rename{Column: alias(r.Column), Field: r.Field}
	}
	out.Derived = make([]Derivation, len(s.Derived))
	for i, d := range s.Derived {
		cols := make([]string, len(d.Columns))
		for j, c := range d.Columns {
			cols[j] = alias(c)
		}
		fn := d.Func
		out.Derived[i] = Derivation{
			Field:    d.Field,
			Columns:  cols,
			Required: d.Required,
			Func:     func(row domain.RawRecord) any { return fn(unalias(row, aliases)) },
		}
	}
	if s.Predicate != nil {
		pred := s.Predicate
		out.Predicate = func(row domain.RawRecord) bool { return pred(unalias(row, aliases)) }
	}
	out.RowID = alias(s.RowID)
	return out
}

// WithExtraFields returns a copy of s that also copies the given raw columns
// into canonical fields when present. Field names are validated.
func (s Spec) WithExtraFields(extra map[string]string) (Spec, error) {
	out := s
	out.Optional = append([]Rename(nil), s.Optional...)
	for column, name := range extra {
		f, err := domain.LookupField(name)
		if err != nil {
			return Spec{}, fmt.Errorf("mapping %q: column %s: %w", s.Source, column, err)
		}
		out.Optional = append(out.Optional, Rename{Column: column, Field: f})
	}
	return out, out.Validate()
}

// unalias presents a row under the column names the formulas were written against.
func unalias(row domain.RawRecord, aliases map[string]string) domain.RawRecord {
	out := make(domain.RawRecord, len(row))
	for k, v := range row {
		out[k] = v
	}
	for expected, actual := range aliases {
		if v, ok := row[actual]; ok {
			out[expected] = v
		}
	}
	return out
}
