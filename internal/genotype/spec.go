package genotype

import (
	"fmt"

	"github.com/inodb/vibe-gpa/internal/predicate"
	"github.com/inodb/vibe-gpa/internal/variant"
)

// Spec is the configuration-file form of a genotype classifier.
//
//	type: monoallelic
//	predicates:
//	  - {effect: missense_variant, transcript: NM_013275.6}
//	  - {effect: frameshift_variant, transcript: NM_013275.6}
//	labels: [Missense, Frameshift]
type Spec struct {
	Type              string           `mapstructure:"type"`
	Predicates        []predicate.Spec `mapstructure:"predicates"`
	Labels            []string         `mapstructure:"labels"`
	Partitions        [][]int          `mapstructure:"partitions"`
	Counts            [][]int          `mapstructure:"counts"`
	ModeOfInheritance string           `mapstructure:"mode_of_inheritance"`
	Diagnoses         []string         `mapstructure:"diagnoses"`
	Keep              []int            `mapstructure:"keep"`
}

// Build constructs the classifier described by s. Keep wraps the result in a
// Filtering classifier.
func (s Spec) Build(proteins map[string]*variant.ProteinMetadata) (Classifier, error) {
	preds := make([]predicate.Predicate, len(s.Predicates))
	for i, ps := range s.Predicates {
		p, err := ps.Build(proteins)
		if err != nil {
			return nil, fmt.Errorf("%w: predicate %d: %v", ErrInvalidConfig, i, err)
		}
		preds[i] = p
	}
	label := func(i int) string {
		if i < len(s.Labels) {
			return s.Labels[i]
		}
		return ""
	}
	wantPreds := func(n int) error {
		if len(preds) != n {
			return configError("%s classifier needs %d predicates, got %d", s.Type, n, len(preds))
		}
		return nil
	}

	var (
		c   Classifier
		err error
	)
	switch s.Type {
	case "monoallelic":
		if err := wantPreds(2); err != nil {
			return nil, err
		}
		c, err = NewMonoallelic(preds[0], preds[1], label(0), label(1))
	case "biallelic":
		if err := wantPreds(2); err != nil {
			return nil, err
		}
		c, err = NewBiallelic(preds[0], preds[1], label(0), label(1), s.Partitions)
	case "allele_count":
		if err := wantPreds(1); err != nil {
			return nil, err
		}
		c, err = NewAlleleCount(preds[0], s.Counts)
	case "mode_of_inheritance", "moi":
		if err := wantPreds(1); err != nil {
			return nil, err
		}
		moi, perr := ParseModeOfInheritance(s.ModeOfInheritance)
		if perr != nil {
			return nil, perr
		}
		c, err = NewModeOfInheritance(preds[0], moi)
	case "sex":
		c = NewSex()
	case "diagnosis":
		var labels []string
		if len(s.Labels) > 0 {
			labels = s.Labels
		}
		c, err = NewDiagnosis(s.Diagnoses, labels)
	case "groups":
		c, err = NewGroups(preds, s.Labels)
	default:
		return nil, configError("unknown genotype classifier type %q", s.Type)
	}
	if err != nil {
		return nil, err
	}
	if len(s.Keep) > 0 {
		return NewFiltering(c, s.Keep)
	}
	return c, nil
}
