package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"lease-audit/internal/domain"
)

type recordSource interface {
	FetchRecords(ctx context.Context, source string) (domain.RawBatch, error)
	Paths(source string) []string
}

// SourceRouter sends each source to the reader configured for it, so one run
// can mix CSV and XLSX inputs.
type SourceRouter struct {
	routes map[string]recordSource
}

func NewSourceRouter() *SourceRouter {
	return &SourceRouter{routes: make(map[string]recordSource)}
}

// Route registers the reader of source, replacing any earlier route.
func (r *SourceRouter) Route(source string, reader recordSource) *SourceRouter {
	r.routes[source] = reader
	return r
}

func (r *SourceRouter) FetchRecords(ctx context.Context, source string) (domain.RawBatch, error) {
	reader, ok := r.routes[source]
	if !ok {
		return domain.RawBatch{}, fmt.Errorf("no reader for %q: %w", source, domain.ErrUnknownSource)
	}
	return reader.FetchRecords(ctx, source)
}

func (r *SourceRouter) Paths(source string) []string {
	if reader, ok := r.routes[source]; ok {
		return reader.Paths(source)
	}
	return nil
}

func (r *SourceRouter) Fingerprint(ctx context.Context, sources []string) (string, error) {
	return fingerprint(ctx, sources, r.Paths)
}

// fingerprint is the hex sha256 of every file behind sources, each prefixed
// by its source name, in the order given.
func fingerprint(ctx context.Context, sources []string, paths func(string) []string) (string, error) {
	h := sha256.New()
	for _, source := range sources {
		for _, path := range paths(source) {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			fmt.Fprintf(h, "%s\x00", source)
			if err := hashFile(h, path); err != nil {
				return "", err
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for fingerprint: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read %s for fingerprint: %w", path, err)
	}
	return nil
}
