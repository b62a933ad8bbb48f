// Package cohort describes the individuals whose genotypes and phenotypes
// are analysed.
package cohort

import (
	"fmt"

	"github.com/inodb/vibe-gpa/internal/ontology"
	"github.com/inodb/vibe-gpa/internal/variant"
)

// GenotypedVariant is a variant carried by an individual with its zygosity.
type GenotypedVariant struct {
	Variant  *variant.Variant
	Zygosity Zygosity
}

// AlleleCount returns the number of alternate alleles carried.
func (g GenotypedVariant) AlleleCount() int {
	return g.Zygosity.AlleleCount()
}

// Phenotype is a single HPO annotation. Present is false for explicitly
// excluded features.
type Phenotype struct {
	TermID  ontology.TermID `json:"term_id"`
	Present bool            `json:"present"`
	Onset   *Age            `json:"onset,omitempty"`
}

// Disease is a diagnosis (e.g. OMIM:123456).
type Disease struct {
	ID      string `json:"id"`
	Label   string `json:"label,omitempty"`
	Present bool   `json:"present"`
	Onset   *Age   `json:"onset,omitempty"`
}

// Measurement is a numeric lab or clinical measurement.
type Measurement struct {
	ID    string  `json:"id"` // measurement concept, e.g. LOINC:2986-8
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Individual is a cohort member. Individuals are immutable once loaded.
type Individual struct {
	ID                 string
	Sex                Sex
	AgeAtLastEncounter *Age
	VitalStatus        VitalStatus
	Variants           []GenotypedVariant
	Phenotypes         []Phenotype
	Diseases           []Disease
	Measurements       []Measurement
}

// Identifier returns the individual ID.
func (i *Individual) Identifier() string { return i.ID }

// ObservedTerms returns the directly observed HPO terms.
func (i *Individual) ObservedTerms() []ontology.TermID {
	var out []ontology.TermID
	for _, p := range i.Phenotypes {
		if p.Present {
			out = append(out, p.TermID)
		}
	}
	return out
}

// ExcludedTerms returns the directly excluded HPO terms.
func (i *Individual) ExcludedTerms() []ontology.TermID {
	var out []ontology.TermID
	for _, p := range i.Phenotypes {
		if !p.Present {
			out = append(out, p.TermID)
		}
	}
	return out
}

// DiagnosisIDs returns the IDs of diseases the individual was diagnosed with.
func (i *Individual) DiagnosisIDs() []string {
	var out []string
	for _, d := range i.Diseases {
		if d.Present {
			out = append(out, d.ID)
		}
	}
	return out
}

// HasDiagnosis returns true if the individual carries the diagnosis.
func (i *Individual) HasDiagnosis(id string) bool {
	for _, d := range i.Diseases {
		if d.Present && d.ID == id {
			return true
		}
	}
	return false
}

// Measurement returns the recorded value for a measurement concept.
func (i *Individual) Measurement(id string) (float64, bool) {
	for _, m := range i.Measurements {
		if m.ID == id {
			return m.Value, true
		}
	}
	return 0, false
}

// Validate checks that no term is both directly observed and directly excluded.
func (i *Individual) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("individual without ID")
	}
	observed := make(map[ontology.TermID]struct{})
	for _, t := range i.ObservedTerms() {
		observed[t] = struct{}{}
	}
	for _, t := range i.ExcludedTerms() {
		if _, ok := observed[t]; ok {
			return fmt.Errorf("individual %s: term %s is both observed and excluded", i.ID, t)
		}
	}
	for _, gv := range i.Variants {
		if gv.Variant == nil {
			return fmt.Errorf("individual %s: genotype without variant", i.ID)
		}
	}
	return nil
}

// Cohort is an ordered collection of individuals.
type Cohort struct {
	Individuals []*Individual
}

// New creates a cohort from individuals.
func New(individuals ...*Individual) *Cohort {
	return &Cohort{Individuals: individuals}
}

// Len returns the number of individuals.
func (c *Cohort) Len() int { return len(c.Individuals) }

// ByID returns the individual with the given ID, or nil.
func (c *Cohort) ByID(id string) *Individual {
	for _, ind := range c.Individuals {
		if ind.ID == id {
			return ind
		}
	}
	return nil
}

// Annotated returns the individuals as ontology annotation subjects.
func (c *Cohort) Annotated() []ontology.Annotated {
	out := make([]ontology.Annotated, len(c.Individuals))
	for i, ind := range c.Individuals {
		out[i] = ind
	}
	return out
}

// Validate validates every individual and checks IDs are unique.
func (c *Cohort) Validate() error {
	seen := make(map[string]bool, len(c.Individuals))
	for _, ind := range c.Individuals {
		if err := ind.Validate(); err != nil {
			return err
		}
		if seen[ind.ID] {
			return fmt.Errorf("duplicate individual ID %q", ind.ID)
		}
		seen[ind.ID] = true
	}
	return nil
}
