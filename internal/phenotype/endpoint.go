package phenotype

import (
	"fmt"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/ontology"
)

// Survival is a time-to-event observation in days since birth. Censored
// observations record the last time the individual was known event-free.
type Survival struct {
	Days     float64
	Censored bool
}

func (s Survival) String() string {
	if s.Censored {
		return fmt.Sprintf("%g+", s.Days)
	}
	return fmt.Sprintf("%g", s.Days)
}

// Endpoint computes a survival observation for an individual. Compute
// returns false when no time can be determined.
type Endpoint interface {
	Name() string
	Description() string
	Compute(ind *cohort.Individual) (Survival, bool)
}

func censoredAtLastEncounter(ind *cohort.Individual) (Survival, bool) {
	if ind.AgeAtLastEncounter == nil {
		return Survival{}, false
	}
	return Survival{Days: ind.AgeAtLastEncounter.Days, Censored: true}, true
}

type death struct{}

// Death is the age at death, censored at the last encounter for individuals
// not known to have died.
func Death() Endpoint { return death{} }

func (death) Name() string        { return "Death" }
func (death) Description() string { return "Age of death" }

func (death) Compute(ind *cohort.Individual) (Survival, bool) {
	if ind.VitalStatus.IsDeceased() {
		if ind.VitalStatus.AgeOfDeath == nil {
			return Survival{}, false
		}
		return Survival{Days: ind.VitalStatus.AgeOfDeath.Days}, true
	}
	return censoredAtLastEncounter(ind)
}

type diseaseOnset struct {
	id string
}

// DiseaseOnset is the age of onset of a disease, censored at the last
// encounter for individuals without the diagnosis.
func DiseaseOnset(id string) Endpoint { return diseaseOnset{id: id} }

func (d diseaseOnset) Name() string        { return "Onset of " + d.id }
func (d diseaseOnset) Description() string { return "Age of onset of " + d.id }

func (d diseaseOnset) Compute(ind *cohort.Individual) (Survival, bool) {
	for _, dis := range ind.Diseases {
		if dis.ID != d.id || !dis.Present {
			continue
		}
		if dis.Onset == nil {
			return Survival{}, false
		}
		return Survival{Days: dis.Onset.Days}, true
	}
	return censoredAtLastEncounter(ind)
}

type phenotypeOnset struct {
	term  ontology.Term
	graph ontology.Graph
}

// PhenotypeOnset is the earliest onset of term or any of its descendants.
// Individuals in which the term is not observed are censored at the last
// encounter; observations without an onset make the time unknown.
func PhenotypeOnset(term ontology.TermID, g ontology.Graph) (Endpoint, error) {
	t, ok := g.Term(term)
	if !ok {
		return nil, configError("term %s is not in ontology %s", term, g.Version())
	}
	return phenotypeOnset{term: t, graph: g}, nil
}

func (p phenotypeOnset) Name() string { return "Onset of " + p.term.Name }

func (p phenotypeOnset) Description() string {
	return fmt.Sprintf("Age of onset of %s (%s)", p.term.Name, p.term.ID)
}

func (p phenotypeOnset) Compute(ind *cohort.Individual) (Survival, bool) {
	var earliest *cohort.Age
	found := false
	for _, ph := range ind.Phenotypes {
		if !ph.Present {
			continue
		}
		id := ph.TermID
		if t, ok := p.graph.Term(id); ok {
			id = t.ID
		}
		if id != p.term.ID && !p.graph.IsDescendantOf(id, p.term.ID) {
			continue
		}
		found = true
		if ph.Onset != nil && (earliest == nil || ph.Onset.Days < earliest.Days) {
			earliest = ph.Onset
		}
	}
	if !found {
		return censoredAtLastEncounter(ind)
	}
	if earliest == nil {
		return Survival{}, false
	}
	return Survival{Days: earliest.Days}, true
}
