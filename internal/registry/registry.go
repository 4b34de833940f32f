package registry

import (
	"context"
	"fmt"
	"iter"

	"github.com/specialistvlad/poolsweep/internal/ctxlog"
	"github.com/specialistvlad/poolsweep/internal/experiment"
)

// Policy decides which record survives when two share a key.
type Policy int

const (
	// KeepFirst keeps the first record registered under a key.
	KeepFirst Policy = iota
	// KeepLast lets a later record replace an earlier one. The replaced
	// record keeps its position in registration order.
	KeepLast
)

func (p Policy) String() string {
	switch p {
	case KeepFirst:
		return "keep-first"
	case KeepLast:
		return "keep-last"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "keep-first":
		return KeepFirst, nil
	case "keep-last":
		return KeepLast, nil
	}
	return KeepFirst, fmt.Errorf("unknown collision policy %q: must be 'keep-first' or 'keep-last'", s)
}

// Registry holds one experiment record per key. It is not safe for
// concurrent use.
type Registry struct {
	policy     Policy
	order      []string
	records    map[string]experiment.Record
	collisions int
	divergent  int
}

// New creates an empty registry with the given collision policy.
func New(policy Policy) *Registry {
	return &Registry{
		policy:  policy,
		records: make(map[string]experiment.Record),
	}
}

// Register inserts rec. It reports whether rec is now the stored record for
// its key.
//
// A collision between records whose canonical parameters differ means the
// override rules failed to make them equivalent; it is logged at WARN since
// one of the two experiments will never run.
func (r *Registry) Register(ctx context.Context, rec experiment.Record) bool {
	logger := ctxlog.FromContext(ctx)

	existing, ok := r.records[rec.Key]
	if !ok {
		r.order = append(r.order, rec.Key)
		r.records[rec.Key] = rec
		return true
	}

	r.collisions++
	if experiment.Canonical(existing.Params) != experiment.Canonical(rec.Params) {
		r.divergent++
		logger.Warn("Experiment key collision between non-equivalent parameter sets.",
			"key", rec.Key,
			"policy", r.policy.String(),
			"kept", r.survivor(existing, rec).Params,
			"dropped", r.loser(existing, rec).Params,
		)
	}

	if r.policy == KeepLast {
		r.records[rec.Key] = rec
		return true
	}
	return false
}

func (r *Registry) survivor(existing, incoming experiment.Record) experiment.Record {
	if r.policy == KeepLast {
		return incoming
	}
	return existing
}

func (r *Registry) loser(existing, incoming experiment.Record) experiment.Record {
	if r.policy == KeepLast {
		return existing
	}
	return incoming
}

// RegisterAll registers every record yielded by seq. The first error from
// seq stops registration and is returned.
func (r *Registry) RegisterAll(ctx context.Context, seq iter.Seq2[experiment.Record, error]) error {
	seen := 0
	for rec, err := range seq {
		if err != nil {
			return err
		}
		r.Register(ctx, rec)
		seen++
	}
	ctxlog.FromContext(ctx).Debug("Experiments registered.",
		"combinations", seen,
		"unique", r.Len(),
		"collisions", r.collisions,
		"divergent_collisions", r.divergent,
	)
	return nil
}

// Len returns the number of distinct keys.
func (r *Registry) Len() int {
	return len(r.order)
}

// Collisions returns how many registrations hit an existing key, and how
// many of those were between non-equivalent parameter sets.
func (r *Registry) Collisions() (total, divergent int) {
	return r.collisions, r.divergent
}

// Get returns the record stored under key.
func (r *Registry) Get(key string) (experiment.Record, bool) {
	rec, ok := r.records[key]
	return rec, ok
}

// Records returns every stored record in registration order.
func (r *Registry) Records() []experiment.Record {
	out := make([]experiment.Record, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.records[key])
	}
	return out
}
