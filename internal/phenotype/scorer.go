package phenotype

import (
	"fmt"
	"math"
	"strings"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/ontology"
)

// Scorer computes a numeric phenotype score. Score returns false when the
// score cannot be computed for the individual; such individuals are left
// out of score-based tests.
type Scorer interface {
	Name() string
	Description() string
	Score(ind *cohort.Individual) (float64, bool)
}

// CountingScorer counts how many of a set of disjoint categories have at
// least one implied-present term. Each category contributes at most 1.
type CountingScorer struct {
	categories []ontology.TermID
	names      []string
	resolver   *ontology.Resolver
}

// NewCountingScorer validates that no category is an ancestor of another.
func NewCountingScorer(categories []ontology.TermID, r *ontology.Resolver) (*CountingScorer, error) {
	if len(categories) == 0 {
		return nil, configError("counting scorer needs at least one category")
	}
	if r == nil {
		return nil, configError("counting scorer needs a resolver")
	}
	g := r.Graph()
	cs := &CountingScorer{resolver: r}
	for i, c := range categories {
		t, ok := g.Term(c)
		if !ok {
			return nil, configError("category %s is not in ontology %s", c, g.Version())
		}
		for _, other := range categories[:i] {
			if t.ID == other || g.IsDescendantOf(t.ID, other) || g.IsDescendantOf(other, t.ID) {
				return nil, configError("categories %s and %s overlap", other, t.ID)
			}
		}
		cs.categories = append(cs.categories, t.ID)
		cs.names = append(cs.names, t.Name)
	}
	return cs, nil
}

func (cs *CountingScorer) Name() string { return "Phenotype group count" }

func (cs *CountingScorer) Description() string {
	return "Number of affected categories among " + strings.Join(cs.names, ", ")
}

func (cs *CountingScorer) Score(ind *cohort.Individual) (float64, bool) {
	c, err := cs.resolver.Resolve(ind)
	if err != nil {
		return 0, false
	}
	n := 0
	for _, cat := range cs.categories {
		if c.IsPresent(cat) {
			n++
		}
	}
	return float64(n), true
}

// MeasurementScorer scores individuals by a recorded measurement value.
type MeasurementScorer struct {
	id    string
	label string
}

// NewMeasurementScorer returns a scorer for measurement concept id
// (e.g. LOINC:2986-8).
func NewMeasurementScorer(id, label string) (*MeasurementScorer, error) {
	if id == "" {
		return nil, configError("measurement scorer needs a measurement ID")
	}
	if label == "" {
		label = id
	}
	return &MeasurementScorer{id: id, label: label}, nil
}

func (m *MeasurementScorer) Name() string { return m.label }

func (m *MeasurementScorer) Description() string {
	return fmt.Sprintf("Value of %s (%s)", m.label, m.id)
}

func (m *MeasurementScorer) Score(ind *cohort.Individual) (float64, bool) {
	v, ok := ind.Measurement(m.id)
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
