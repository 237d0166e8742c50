package mapping

import (
	"fmt"
	"sort"
	"sync"

	"lease-audit/internal/domain"
)

// Override adjusts a built-in spec from configuration.
type Override struct {
	// Columns maps an expected raw column to the header actually delivered.
	Columns map[string]string `toml:"columns"`
	// Extra copies additional raw columns into canonical fields.
	Extra map[string]string `toml:"extra"`
}

// Registry is a static, validated set of mapping specs keyed by source.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry validates specs and indexes them by source.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.specs[s.Source]; dup {
			return nil, fmt.Errorf("duplicate mapping for source %q", s.Source)
		}
		r.specs[s.Source] = s
	}
	return r, nil
}

// Builtin returns the registry of the AR transaction and scheduled charge mappings.
func Builtin() *Registry {
	r, err := NewRegistry(ARTransactions(), ScheduledCharges())
	if err != nil {
		panic(err)
	}
	return r
}

// Configure applies overrides keyed by source. Unknown sources and unknown
// canonical fields are rejected here rather than at run time.
func (r *Registry) Configure(overrides map[string]Override) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for source, o := range overrides {
		spec, ok := r.specs[source]
		if !ok {
			return fmt.Errorf("mapping override for %q: %w", source, domain.ErrUnknownSource)
		}
		spec = spec.WithColumnAliases(o.Columns)
		spec, err := spec.WithExtraFields(o.Extra)
		if err != nil {
			return err
		}
		r.specs[source] = spec
	}
	return nil
}

// MappingFor returns the spec for source.
func (r *Registry) MappingFor(source string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.specs[source]
	if !ok {
		return Spec{}, fmt.Errorf("mapping for %q: %w", source, domain.ErrUnknownSource)
	}
	return s, nil
}

// Sources lists registered sources in name order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.specs))
	for s := range r.specs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
