package predicate

import (
	"fmt"

	"github.com/inodb/vibe-gpa/internal/variant"
)

// LengthSpec is a comparator and threshold, e.g. {op: ">=", value: 3}.
type LengthSpec struct {
	Op    string `mapstructure:"op"`
	Value int    `mapstructure:"value"`
}

// Spec is the configuration-file form of a predicate. All conditions set on
// one Spec are combined with AND; All, Any and Not nest further specs.
//
//	all:
//	  - effect: missense_variant
//	    transcript: NM_013275.6
//	  - not:
//	      exon: 9
//	      transcript: NM_013275.6
type Spec struct {
	Gene           string          `mapstructure:"gene"`
	Transcript     string          `mapstructure:"transcript"`
	Effect         string          `mapstructure:"effect"`
	Exon           int             `mapstructure:"exon"`
	VariantClass   string          `mapstructure:"variant_class"`
	StructuralType string          `mapstructure:"structural_type"`
	Structural     bool            `mapstructure:"structural"`
	VariantKey     string          `mapstructure:"variant_key"`
	ChangeLength   *LengthSpec     `mapstructure:"change_length"`
	RefLength      *LengthSpec     `mapstructure:"ref_length"`
	ProteinRegion  *variant.Region `mapstructure:"protein_region"`
	Protein        string          `mapstructure:"protein"`
	FeatureType    string          `mapstructure:"feature_type"`
	Feature        string          `mapstructure:"feature"`

	All []Spec `mapstructure:"all"`
	Any []Spec `mapstructure:"any"`
	Not *Spec  `mapstructure:"not"`
}

// Build constructs the predicate. proteins maps protein IDs to metadata and
// is only consulted for feature and feature_type conditions.
func (s Spec) Build(proteins map[string]*variant.ProteinMetadata) (Predicate, error) {
	var parts []Predicate
	add := func(p Predicate) { parts = append(parts, p) }

	needsTx := s.Effect != "" || s.Exon != 0 || s.ProteinRegion != nil || s.FeatureType != "" || s.Feature != ""
	if needsTx && s.Transcript == "" {
		return nil, fmt.Errorf("transcript is required with effect, exon, protein_region, feature or feature_type")
	}
	if s.Transcript != "" && !needsTx {
		add(Transcript(s.Transcript))
	}

	if s.Gene != "" {
		add(Gene(s.Gene))
	}
	if s.Effect != "" {
		e, ok := variant.ParseEffect(s.Effect)
		if !ok {
			return nil, fmt.Errorf("unknown variant effect %q", s.Effect)
		}
		add(VariantEffect(e, s.Transcript))
	}
	if s.Exon != 0 {
		if s.Exon < 0 {
			return nil, fmt.Errorf("exon must be positive, got %d", s.Exon)
		}
		add(Exon(s.Exon, s.Transcript))
	}
	if s.VariantClass != "" {
		add(VariantClass(variant.Class(s.VariantClass)))
	}
	if s.StructuralType != "" {
		add(StructuralType(s.StructuralType))
	}
	if s.Structural {
		add(IsStructural())
	}
	if s.VariantKey != "" {
		add(VariantKey(s.VariantKey))
	}
	for _, l := range []struct {
		spec *LengthSpec
		mk   func(Comparator, int) Predicate
	}{{s.ChangeLength, ChangeLength}, {s.RefLength, RefLength}} {
		if l.spec == nil {
			continue
		}
		cmp, err := ParseComparator(l.spec.Op)
		if err != nil {
			return nil, err
		}
		add(l.mk(cmp, l.spec.Value))
	}
	if s.ProteinRegion != nil {
		if s.ProteinRegion.Start <= 0 || s.ProteinRegion.End < s.ProteinRegion.Start {
			return nil, fmt.Errorf("invalid protein region [%d,%d]", s.ProteinRegion.Start, s.ProteinRegion.End)
		}
		add(ProteinRegion(*s.ProteinRegion, s.Transcript))
	}
	if s.FeatureType != "" || s.Feature != "" {
		meta, ok := proteins[s.Protein]
		if !ok {
			return nil, fmt.Errorf("unknown protein %q", s.Protein)
		}
		if s.FeatureType != "" {
			add(ProteinFeatureType(variant.FeatureType(s.FeatureType), s.Transcript, meta))
		}
		if s.Feature != "" {
			add(ProteinFeature(s.Feature, s.Transcript, meta))
		}
	}

	if len(s.All) > 0 {
		p, err := buildAll(s.All, proteins, And)
		if err != nil {
			return nil, fmt.Errorf("all: %w", err)
		}
		add(p)
	}
	if len(s.Any) > 0 {
		p, err := buildAll(s.Any, proteins, Or)
		if err != nil {
			return nil, fmt.Errorf("any: %w", err)
		}
		add(p)
	}
	if s.Not != nil {
		p, err := s.Not.Build(proteins)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		add(Not(p))
	}

	switch len(parts) {
	case 0:
		return nil, fmt.Errorf("empty predicate")
	case 1:
		return parts[0], nil
	default:
		return And(parts[0], parts[1], parts[2:]...), nil
	}
}

func buildAll(specs []Spec, proteins map[string]*variant.ProteinMetadata,
	combine func(p, q Predicate, more ...Predicate) Predicate) (Predicate, error) {
	ps := make([]Predicate, len(specs))
	for i, s := range specs {
		p, err := s.Build(proteins)
		if err != nil {
			return nil, err
		}
		ps[i] = p
	}
	if len(ps) == 1 {
		return ps[0], nil
	}
	return combine(ps[0], ps[1], ps[2:]...), nil
}
