package cohort

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/inodb/vibe-gpa/internal/variant"
)

// document is the plain-data form of a cohort. Variants are stored once and
// referenced by key from each individual's genotypes.
type document struct {
	Variants    []*variant.Variant `json:"variants"`
	Individuals []individualDoc    `json:"individuals"`
}

type individualDoc struct {
	ID                 string        `json:"id"`
	Sex                Sex           `json:"sex"`
	AgeAtLastEncounter *Age          `json:"age_at_last_encounter,omitempty"`
	VitalStatus        *VitalStatus  `json:"vital_status,omitempty"`
	Genotypes          []genotypeDoc `json:"genotypes,omitempty"`
	Phenotypes         []Phenotype   `json:"phenotypes,omitempty"`
	Diseases           []Disease     `json:"diseases,omitempty"`
	Measurements       []Measurement `json:"measurements,omitempty"`
}

type genotypeDoc struct {
	VariantKey string   `json:"variant"`
	Zygosity   Zygosity `json:"zygosity"`
}

// Load reads a cohort from a JSON file.
func Load(path string) (*Cohort, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read cohort %s: %w", path, err)
	}
	return c, nil
}

// Read decodes and validates a cohort.
func Read(r io.Reader) (*Cohort, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode cohort: %w", err)
	}

	variants := make(map[string]*variant.Variant, len(doc.Variants))
	for i, v := range doc.Variants {
		if v == nil {
			return nil, fmt.Errorf("variant %d is null", i)
		}
		key := v.Key()
		if _, dup := variants[key]; dup {
			return nil, fmt.Errorf("duplicate variant %s", key)
		}
		variants[key] = v
	}

	c := &Cohort{Individuals: make([]*Individual, 0, len(doc.Individuals))}
	for _, d := range doc.Individuals {
		ind := &Individual{
			ID:                 d.ID,
			Sex:                d.Sex,
			AgeAtLastEncounter: d.AgeAtLastEncounter,
			Phenotypes:         d.Phenotypes,
			Diseases:           d.Diseases,
			Measurements:       d.Measurements,
		}
		if d.VitalStatus != nil {
			ind.VitalStatus = *d.VitalStatus
		}
		for _, g := range d.Genotypes {
			v, ok := variants[g.VariantKey]
			if !ok {
				return nil, fmt.Errorf("individual %s: unknown variant %s", d.ID, g.VariantKey)
			}
			ind.Variants = append(ind.Variants, GenotypedVariant{Variant: v, Zygosity: g.Zygosity})
		}
		c.Individuals = append(c.Individuals, ind)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Write encodes a cohort so that Read returns an equivalent cohort.
func Write(w io.Writer, c *Cohort) error {
	doc := document{Individuals: make([]individualDoc, 0, len(c.Individuals))}
	seen := make(map[string]bool)

	for _, ind := range c.Individuals {
		d := individualDoc{
			ID:                 ind.ID,
			Sex:                ind.Sex,
			AgeAtLastEncounter: ind.AgeAtLastEncounter,
			Phenotypes:         ind.Phenotypes,
			Diseases:           ind.Diseases,
			Measurements:       ind.Measurements,
		}
		if ind.VitalStatus != (VitalStatus{}) {
			vs := ind.VitalStatus
			d.VitalStatus = &vs
		}
		for _, gv := range ind.Variants {
			key := gv.Variant.Key()
			if !seen[key] {
				seen[key] = true
				doc.Variants = append(doc.Variants, gv.Variant)
			}
			d.Genotypes = append(d.Genotypes, genotypeDoc{VariantKey: key, Zygosity: gv.Zygosity})
		}
		doc.Individuals = append(doc.Individuals, d)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
