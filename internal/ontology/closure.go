package ontology

import "sort"

// Annotated is anything carrying direct observed and excluded terms.
type Annotated interface {
	Identifier() string
	ObservedTerms() []TermID
	ExcludedTerms() []TermID
}

// Status is the resolved state of a term for one subject.
type Status int

const (
	Unknown Status = iota
	Present
	Excluded
)

func (s Status) String() string {
	switch s {
	case Present:
		return "present"
	case Excluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Closure is the true-path-rule expansion of a subject's annotations:
// observed terms plus all ancestors, excluded terms plus all descendants.
// Present and Excluded are disjoint.
type Closure struct {
	Present  map[TermID]struct{}
	Excluded map[TermID]struct{}
	// Conflicts lists directly excluded terms dropped because they are an
	// observed term or one of its ancestors.
	Conflicts []TermID
}

// Status returns the resolved state of term. With missingImpliesExcluded,
// terms that are neither present nor excluded are reported as Excluded.
func (c *Closure) Status(term TermID, missingImpliesExcluded bool) Status {
	if _, ok := c.Present[term]; ok {
		return Present
	}
	if _, ok := c.Excluded[term]; ok {
		return Excluded
	}
	if missingImpliesExcluded {
		return Excluded
	}
	return Unknown
}

// IsPresent reports whether term is implied present.
func (c *Closure) IsPresent(term TermID) bool {
	_, ok := c.Present[term]
	return ok
}

// PresentTerms returns the implied-present terms sorted by ID.
func (c *Closure) PresentTerms() []TermID { return sortedKeys(c.Present) }

// ExcludedTerms returns the implied-excluded terms sorted by ID.
func (c *Closure) ExcludedTerms() []TermID { return sortedKeys(c.Excluded) }

func sortedKeys(m map[TermID]struct{}) []TermID {
	out := make([]TermID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
