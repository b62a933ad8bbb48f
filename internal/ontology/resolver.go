package ontology

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInconsistentAnnotation is returned by a strict Resolver when a subject
// excludes a term it implies present.
var ErrInconsistentAnnotation = errors.New("inconsistent annotation")

// DefaultClosureCacheSize is the default number of memoised closures.
const DefaultClosureCacheSize = 4096

type closureKey struct {
	subject string
	version string
}

// Resolver computes and memoises annotation closures. A Resolver is owned by
// the analysis that creates it; it is safe for concurrent use.
type Resolver struct {
	graph  Graph
	memo   *lru.Cache[closureKey, *Closure]
	strict bool
	logger *zap.Logger
}

// NewResolver returns a resolver over g memoising up to size closures.
func NewResolver(g Graph, size int) (*Resolver, error) {
	if size <= 0 {
		size = DefaultClosureCacheSize
	}
	memo, err := lru.New[closureKey, *Closure](size)
	if err != nil {
		return nil, fmt.Errorf("create closure cache: %w", err)
	}
	return &Resolver{graph: g, memo: memo, logger: zap.NewNop()}, nil
}

// SetLogger sets the logger used to report annotation conflicts.
func (r *Resolver) SetLogger(l *zap.Logger) { r.logger = l }

// SetStrict makes Resolve fail on contradictory annotations instead of
// dropping the contradictory exclusions.
func (r *Resolver) SetStrict(strict bool) { r.strict = strict }

// Graph returns the ontology the resolver expands against.
func (r *Resolver) Graph() Graph { return r.graph }

// Resolve returns the closure of s, computing it on first use.
func (r *Resolver) Resolve(s Annotated) (*Closure, error) {
	key := closureKey{subject: s.Identifier(), version: r.graph.Version()}
	if c, ok := r.memo.Get(key); ok {
		return c, nil
	}
	c, err := r.compute(s)
	if err != nil {
		return nil, err
	}
	r.memo.Add(key, c)
	return c, nil
}

func (r *Resolver) compute(s Annotated) (*Closure, error) {
	c := &Closure{
		Present:  make(map[TermID]struct{}),
		Excluded: make(map[TermID]struct{}),
	}
	for _, t := range s.ObservedTerms() {
		t = r.primary(t)
		c.Present[t] = struct{}{}
		for _, a := range r.graph.Ancestors(t) {
			c.Present[a] = struct{}{}
		}
	}

	for _, t := range s.ExcludedTerms() {
		t = r.primary(t)
		if _, contradicts := c.Present[t]; contradicts {
			if r.strict {
				return nil, fmt.Errorf("%w: %s excludes %s which it implies present",
					ErrInconsistentAnnotation, s.Identifier(), t)
			}
			r.logger.Warn("dropping excluded term implied present by an observed term",
				zap.String("subject", s.Identifier()),
				zap.String("term", string(t)))
			c.Conflicts = append(c.Conflicts, t)
			continue
		}
		c.Excluded[t] = struct{}{}
		for _, d := range r.graph.Descendants(t) {
			c.Excluded[d] = struct{}{}
		}
	}
	return c, nil
}

func (r *Resolver) primary(t TermID) TermID {
	if p, ok := r.graph.(interface{ Primary(TermID) TermID }); ok {
		return p.Primary(t)
	}
	return t
}

// Warm resolves every subject using up to workers goroutines so that later
// lookups hit the memo.
func (r *Resolver) Warm(ctx context.Context, subjects []Annotated, workers int) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, s := range subjects {
		s := s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Resolve(s)
			return err
		})
	}
	return g.Wait()
}

// Len returns the number of memoised closures.
func (r *Resolver) Len() int { return r.memo.Len() }
