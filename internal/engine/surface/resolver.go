// Package surface decides which identifiers of a library form its public API.
//
// An identifier is Public when it matches at least one include pattern and no
// exclude pattern. Everything else is Internal. Patterns use a glob dialect in
// which `*` stays inside one segment and `**` crosses segments; both `.` and `/`
// delimit segments. A `**` that fills whole segments may also match none, so
// `a.**.b` matches `a.b`. Patterns are trimmed of surrounding whitespace before
// compiling. All functions here are pure and safe for concurrent use.
package surface

import (
	"sort"

	coreerrors "apisurface/internal/core/errors"
)

type Classification string

const (
	Public   Classification = "PUBLIC"
	Internal Classification = "INTERNAL"
)

// ModuleRecord pairs an identifier with its computed classification.
type ModuleRecord struct {
	Identifier     string         `json:"identifier"`
	Classification Classification `json:"classification"`
}

// Classify maps every identifier to its classification. A nil set classifies
// everything as Internal.
func Classify(ps *PatternSet, identifiers []string) map[string]Classification {
	out := make(map[string]Classification, len(identifiers))
	for _, id := range identifiers {
		out[id] = ps.Classify(id)
	}
	return out
}

type Option func(*Resolver)

// WithRequireIdentifiers makes an empty identifier set an EMPTY_INPUT error.
func WithRequireIdentifiers(required bool) Option {
	return func(r *Resolver) {
		r.requireIdentifiers = required
	}
}

type Resolver struct {
	patterns           *PatternSet
	requireIdentifiers bool
}

func NewResolver(patterns *PatternSet, opts ...Option) *Resolver {
	r := &Resolver{patterns: patterns}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Patterns() *PatternSet {
	return r.patterns
}

func (r *Resolver) Resolve(identifiers []string) (map[string]Classification, error) {
	if r.requireIdentifiers && len(identifiers) == 0 {
		return nil, coreerrors.EmptyInput("identifier set must not be empty")
	}
	return Classify(r.patterns, identifiers), nil
}

// Records returns one record per distinct identifier, sorted by identifier.
func (r *Resolver) Records(identifiers []string) ([]ModuleRecord, error) {
	classified, err := r.Resolve(identifiers)
	if err != nil {
		return nil, err
	}
	return SortedRecords(classified), nil
}

// Public returns the sorted Public identifiers.
func (r *Resolver) Public(identifiers []string) ([]string, error) {
	classified, err := r.Resolve(identifiers)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(classified))
	for id, c := range classified {
		if c == Public {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func SortedRecords(classified map[string]Classification) []ModuleRecord {
	out := make([]ModuleRecord, 0, len(classified))
	for id, c := range classified {
		out = append(out, ModuleRecord{Identifier: id, Classification: c})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

// Count returns the number of Public and Internal records.
func Count(records []ModuleRecord) (public, internal int) {
	for _, rec := range records {
		if rec.Classification == Public {
			public++
		} else {
			internal++
		}
	}
	return public, internal
}
