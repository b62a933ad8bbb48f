package predicate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gpa/internal/variant"
)

func newLeaf(kind string, params []string, name, desc string, test func(*variant.Variant) bool) Predicate {
	quoted := make([]string, len(params))
	for i, p := range params {
		quoted[i] = quote(p)
	}
	key := kind + "(" + strings.Join(quoted, ",") + ")"
	return &leaf{key: key, name: name, desc: desc, test: test}
}

// Gene tests whether any transcript annotation belongs to symbol.
func Gene(symbol string) Predicate {
	return newLeaf("gene", []string{symbol}, symbol,
		fmt.Sprintf("affects %s", symbol),
		func(v *variant.Variant) bool {
			for _, a := range v.Annotations {
				if a.GeneSymbol == symbol {
					return true
				}
			}
			return false
		})
}

// Transcript tests whether the variant is annotated on txID.
func Transcript(txID string) Predicate {
	return newLeaf("transcript", []string{txID}, txID,
		fmt.Sprintf("overlaps %s", txID),
		func(v *variant.Variant) bool {
			return v.Annotation(txID) != nil
		})
}

// Exon tests whether the variant affects exon n (1-based) of txID.
func Exon(n int, txID string) Predicate {
	return newLeaf("exon", []string{strconv.Itoa(n), txID},
		fmt.Sprintf("Exon %d", n),
		fmt.Sprintf("overlaps exon %d of %s", n, txID),
		func(v *variant.Variant) bool {
			a := v.Annotation(txID)
			return a != nil && a.AffectsExon(n)
		})
}

// VariantEffect tests whether the variant has effect on txID.
func VariantEffect(effect variant.Effect, txID string) Predicate {
	return newLeaf("effect", []string{string(effect), txID},
		string(effect),
		fmt.Sprintf("%s on %s", effect, txID),
		func(v *variant.Variant) bool {
			a := v.Annotation(txID)
			return a != nil && a.HasEffect(effect)
		})
}

// VariantClass tests the (possibly inferred) variant class.
func VariantClass(c variant.Class) Predicate {
	return newLeaf("class", []string{string(c)}, string(c),
		fmt.Sprintf("variant class is %s", c),
		func(v *variant.Variant) bool {
			return v.InferClass() == c
		})
}

// StructuralType tests the structural variant SO type, e.g. SO:1000029
// (chromosomal deletion).
func StructuralType(soID string) Predicate {
	return newLeaf("structural_type", []string{soID}, soID,
		fmt.Sprintf("structural type is %s", soID),
		func(v *variant.Variant) bool {
			return v.StructuralType == soID
		})
}

// IsStructural tests whether the variant is a structural variant.
func IsStructural() Predicate {
	return newLeaf("structural", nil, "Structural variant",
		"is a structural variant",
		func(v *variant.Variant) bool {
			return v.IsStructural()
		})
}

// VariantKey tests the variant key (chrom_pos_ref/alt).
func VariantKey(key string) Predicate {
	return newLeaf("key", []string{key}, key,
		fmt.Sprintf("variant is %s", key),
		func(v *variant.Variant) bool {
			return v.Key() == key
		})
}

// ProteinRegion tests whether the protein change on txID overlaps region.
func ProteinRegion(region variant.Region, txID string) Predicate {
	return newLeaf("protein_region", []string{strconv.Itoa(region.Start), strconv.Itoa(region.End), txID},
		fmt.Sprintf("[%d,%d]", region.Start, region.End),
		fmt.Sprintf("overlaps residues %d-%d on %s", region.Start, region.End, txID),
		func(v *variant.Variant) bool {
			a := v.Annotation(txID)
			return a != nil && a.ProteinRegion != nil && a.ProteinRegion.Overlaps(region)
		})
}

// ProteinFeatureType tests whether the protein change on txID overlaps any
// feature of type ft in the protein meta. A nil meta matches no variant.
func ProteinFeatureType(ft variant.FeatureType, txID string, meta *variant.ProteinMetadata) Predicate {
	id := proteinID(meta)
	return newLeaf("feature_type", []string{string(ft), txID, id},
		string(ft),
		fmt.Sprintf("overlaps a %s of %s on %s", ft, id, txID),
		func(v *variant.Variant) bool {
			return meta != nil && overlapsAny(v, txID, meta.FeaturesOfType(ft))
		})
}

// ProteinFeature tests whether the protein change on txID overlaps the
// feature with the given name. A nil meta matches no variant.
func ProteinFeature(name, txID string, meta *variant.ProteinMetadata) Predicate {
	id := proteinID(meta)
	return newLeaf("feature", []string{name, txID, id},
		name,
		fmt.Sprintf("overlaps %s of %s on %s", name, id, txID),
		func(v *variant.Variant) bool {
			return meta != nil && overlapsAny(v, txID, meta.FeaturesNamed(name))
		})
}

func proteinID(meta *variant.ProteinMetadata) string {
	if meta == nil {
		return ""
	}
	return meta.ID
}

func overlapsAny(v *variant.Variant, txID string, features []variant.ProteinFeature) bool {
	a := v.Annotation(txID)
	if a == nil || a.ProteinRegion == nil {
		return false
	}
	for _, f := range features {
		if a.ProteinRegion.Overlaps(f.Region) {
			return true
		}
	}
	return false
}

// ChangeLength compares the alt minus ref length against value.
func ChangeLength(cmp Comparator, value int) Predicate {
	return newLeaf("change_length", []string{cmp.String(), strconv.Itoa(value)},
		fmt.Sprintf("Change length %s %d", cmp, value),
		fmt.Sprintf("change length %s %d", cmp, value),
		func(v *variant.Variant) bool {
			return cmp.Compare(v.ChangeLength(), value)
		})
}

// RefLength compares the reference allele length against value.
func RefLength(cmp Comparator, value int) Predicate {
	return newLeaf("ref_length", []string{cmp.String(), strconv.Itoa(value)},
		fmt.Sprintf("Ref length %s %d", cmp, value),
		fmt.Sprintf("reference length %s %d", cmp, value),
		func(v *variant.Variant) bool {
			return cmp.Compare(v.RefLength(), value)
		})
}

// Comparator is a binary integer comparison.
type Comparator int

const (
	LT Comparator = iota
	LE
	EQ
	NE
	GT
	GE
)

var comparatorSymbols = [...]string{"<", "<=", "==", "!=", ">", ">="}

func (c Comparator) String() string {
	if c < LT || c > GE {
		return "?"
	}
	return comparatorSymbols[c]
}

// Compare applies the comparison to a and b.
func (c Comparator) Compare(a, b int) bool {
	switch c {
	case LT:
		return a < b
	case LE:
		return a <= b
	case EQ:
		return a == b
	case NE:
		return a != b
	case GT:
		return a > b
	case GE:
		return a >= b
	}
	return false
}

// ParseComparator accepts symbolic (">=") or named ("ge") comparators.
func ParseComparator(s string) (Comparator, error) {
	switch s {
	case "<", "lt":
		return LT, nil
	case "<=", "le":
		return LE, nil
	case "==", "=", "eq":
		return EQ, nil
	case "!=", "ne":
		return NE, nil
	case ">", "gt":
		return GT, nil
	case ">=", "ge":
		return GE, nil
	}
	return 0, fmt.Errorf("unknown comparator %q", s)
}
