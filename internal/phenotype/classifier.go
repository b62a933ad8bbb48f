// Package phenotype classifies and scores individuals by their ontology
// annotations, diagnoses and measurements.
package phenotype

import (
	"errors"
	"fmt"
	"sort"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/ontology"
)

// ErrInvalidConfig is wrapped by every scorer or classifier construction error.
var ErrInvalidConfig = errors.New("invalid phenotype configuration")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Class is a phenotype category.
type Class struct {
	ID    int
	Label string
}

func (c Class) String() string { return c.Label }

// Presence classes.
var (
	Yes = Class{ID: 0, Label: "Yes"}
	No  = Class{ID: 1, Label: "No"}
)

// Classifier assigns an individual to Yes or No for one phenotype, or
// reports false when the individual's status is unknown.
type Classifier interface {
	// Key identifies the tested phenotype, e.g. a term or disease ID.
	Key() string
	Name() string
	Description() string
	Classes() []Class
	Classify(ind *cohort.Individual) (Class, bool)
}

// TermClassifier is a Classifier for an ontology term. Multiple-testing
// filters use the term to reason about the ontology topology.
type TermClassifier interface {
	Classifier
	Term() ontology.TermID
}

// Presence classifies an individual as Yes when the term is implied present,
// No when it is implied excluded, and omits the individual otherwise. With
// missingImpliesExcluded, unknown status counts as No.
type Presence struct {
	term                   ontology.TermID
	name                   string
	resolver               *ontology.Resolver
	missingImpliesExcluded bool
}

// NewPresence returns a presence classifier for term.
func NewPresence(term ontology.TermID, r *ontology.Resolver, missingImpliesExcluded bool) (*Presence, error) {
	if r == nil {
		return nil, configError("presence classifier needs a resolver")
	}
	t, ok := r.Graph().Term(term)
	if !ok {
		return nil, configError("term %s is not in ontology %s", term, r.Graph().Version())
	}
	return &Presence{
		term:                   t.ID,
		name:                   t.Name,
		resolver:               r,
		missingImpliesExcluded: missingImpliesExcluded,
	}, nil
}

func (p *Presence) Term() ontology.TermID { return p.term }
func (p *Presence) Key() string           { return string(p.term) }
func (p *Presence) Name() string          { return p.name }
func (p *Presence) Classes() []Class      { return []Class{Yes, No} }

func (p *Presence) Description() string {
	return fmt.Sprintf("Presence of %s (%s)", p.name, p.term)
}

// Classify resolves the individual's closure. Resolution only fails for a
// strict resolver; such individuals are omitted, and callers that need the
// error warm the resolver first.
func (p *Presence) Classify(ind *cohort.Individual) (Class, bool) {
	c, err := p.resolver.Resolve(ind)
	if err != nil {
		return Class{}, false
	}
	switch c.Status(p.term, p.missingImpliesExcluded) {
	case ontology.Present:
		return Yes, true
	case ontology.Excluded:
		return No, true
	}
	return Class{}, false
}

// DiseasePresence classifies individuals as Yes when diagnosed with a
// disease and No otherwise.
type DiseasePresence struct {
	id string
}

// NewDiseasePresence returns a classifier for a disease ID, e.g. OMIM:148050.
func NewDiseasePresence(id string) (*DiseasePresence, error) {
	if id == "" {
		return nil, configError("disease presence classifier needs a disease ID")
	}
	return &DiseasePresence{id: id}, nil
}

func (d *DiseasePresence) Key() string         { return d.id }
func (d *DiseasePresence) Name() string        { return d.id }
func (d *DiseasePresence) Description() string { return "Diagnosis of " + d.id }
func (d *DiseasePresence) Classes() []Class    { return []Class{Yes, No} }

func (d *DiseasePresence) Classify(ind *cohort.Individual) (Class, bool) {
	if ind.HasDiagnosis(d.id) {
		return Yes, true
	}
	return No, true
}

// TermOptions controls candidate term enumeration.
type TermOptions struct {
	// MinIndividuals is the minimum number of individuals in which a term
	// must be implied present. Values below 1 mean 1.
	MinIndividuals         int
	MissingImpliesExcluded bool
}

// CandidateTerms returns every term implied present in at least
// opts.MinIndividuals individuals, sorted by ID. Terms unknown to the
// resolver's ontology are skipped.
func CandidateTerms(c *cohort.Cohort, r *ontology.Resolver, opts TermOptions) ([]ontology.TermID, error) {
	threshold := opts.MinIndividuals
	if threshold < 1 {
		threshold = 1
	}
	counts := make(map[ontology.TermID]int)
	for _, ind := range c.Individuals {
		closure, err := r.Resolve(ind)
		if err != nil {
			return nil, err
		}
		for t := range closure.Present {
			counts[t]++
		}
	}
	var out []ontology.TermID
	for t, n := range counts {
		if n < threshold {
			continue
		}
		if _, ok := r.Graph().Term(t); !ok {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// PrepareTermClassifiers builds one Presence classifier per candidate term.
func PrepareTermClassifiers(c *cohort.Cohort, r *ontology.Resolver, opts TermOptions) ([]TermClassifier, error) {
	terms, err := CandidateTerms(c, r, opts)
	if err != nil {
		return nil, err
	}
	out := make([]TermClassifier, 0, len(terms))
	for _, t := range terms {
		p, err := NewPresence(t, r, opts.MissingImpliesExcluded)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
