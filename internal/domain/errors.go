package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid exception status transition")
	ErrUnknownSource     = errors.New("unknown source")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// SchemaError is a structural failure: required columns or canonical fields are
// absent from the batch. Every missing name is listed.
type SchemaError struct {
	Source  string
	Missing []Field
}

func (e *SchemaError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	sort.Strings(names)
	return fmt.Sprintf("source %q is missing required fields: %s", e.Source, strings.Join(names, ", "))
}

// InvariantError is a domain rule broken by a single record, for example a
// charge period that ends before it starts.
type InvariantError struct {
	Field       Field
	Reason      string
	Identifiers map[Field]string
}

func (e *InvariantError) Error() string {
	keys := make([]string, 0, len(e.Identifiers))
	for f := range e.Identifiers {
		keys = append(keys, string(f))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Identifiers[Field(k)]
	}
	return fmt.Sprintf("%s: %s [%s]", e.Field, e.Reason, strings.Join(parts, " "))
}

// KeyError reports a bucket key that cannot be grouped safely.
type KeyError struct {
	Key     BucketKey
	Locator string
	Reason  string
}

func (e *KeyError) Error() string {
	if e.Locator != "" {
		return fmt.Sprintf("malformed bucket key (%s): %s", e.Locator, e.Reason)
	}
	return fmt.Sprintf("malformed bucket key: %s", e.Reason)
}

// StageError tags a fatal error with the pipeline stage that raised it.
type StageError struct {
	Stage  Stage
	Source string
	Err    error
}

func (e *StageError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.Source, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
