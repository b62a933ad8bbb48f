package variant

import (
	"strconv"
	"strings"
)

// Class is the broad shape of a variant.
type Class string

// Variant classes.
const (
	ClassSNV           = Class("SNV")
	ClassMNV           = Class("MNV")
	ClassDeletion      = Class("DEL")
	ClassInsertion     = Class("INS")
	ClassDuplication   = Class("DUP")
	ClassInversion     = Class("INV")
	ClassTranslocation = Class("TRANSLOCATION")
	ClassCNV           = Class("CNV")
	ClassSV            = Class("SV")
)

// Region is a 1-based, inclusive interval in protein coordinates.
type Region struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps returns true if the two regions share at least one residue.
func (r Region) Overlaps(o Region) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Contains returns true if pos falls inside the region.
func (r Region) Contains(pos int) bool {
	return pos >= r.Start && pos <= r.End
}

// Len returns the number of residues in the region.
func (r Region) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// TranscriptAnnotation is the predicted effect of a variant on one transcript.
type TranscriptAnnotation struct {
	GeneSymbol    string   `json:"gene_symbol"`
	TranscriptID  string   `json:"transcript_id"`
	IsPreferred   bool     `json:"is_preferred,omitempty"` // MANE Select or canonical
	Effects       []Effect `json:"effects"`
	AffectedExons []int    `json:"affected_exons,omitempty"` // 1-based exon numbers
	ProteinID     string   `json:"protein_id,omitempty"`
	ProteinRegion *Region  `json:"protein_region,omitempty"` // nil for non-coding transcripts
}

// HasEffect returns true if the annotation lists the effect.
func (a *TranscriptAnnotation) HasEffect(e Effect) bool {
	for _, x := range a.Effects {
		if x == e {
			return true
		}
	}
	return false
}

// AffectsExon returns true if the variant overlaps the given exon.
func (a *TranscriptAnnotation) AffectsExon(n int) bool {
	for _, x := range a.AffectedExons {
		if x == n {
			return true
		}
	}
	return false
}

// Variant is a single genomic alteration with its functional annotations.
type Variant struct {
	Chrom          string                  `json:"chrom"`
	Pos            int64                   `json:"pos"` // 1-based genomic position
	Ref            string                  `json:"ref"`
	Alt            string                  `json:"alt"`
	Class          Class                   `json:"class,omitempty"`
	StructuralType string                  `json:"structural_type,omitempty"` // SO id, e.g. SO:1000029
	Length         int                     `json:"length,omitempty"`          // signed change length for symbolic SVs
	Annotations    []*TranscriptAnnotation `json:"annotations,omitempty"`
}

// Key returns the variant identifier (chrom_pos_ref/alt).
func (v *Variant) Key() string {
	return FormatKey(v.Chrom, v.Pos, v.Ref, v.Alt)
}

// FormatKey creates a variant identifier from components.
func FormatKey(chrom string, pos int64, ref, alt string) string {
	return chrom + "_" + strconv.FormatInt(pos, 10) + "_" + ref + "/" + alt
}

// IsStructural returns true for variants described by a structural type
// or a symbolic allele such as <DEL>.
func (v *Variant) IsStructural() bool {
	return v.StructuralType != "" || strings.HasPrefix(v.Alt, "<")
}

// RefLength returns the length of the reference allele.
func (v *Variant) RefLength() int {
	if v.IsStructural() && v.Length != 0 {
		if v.Length < 0 {
			return -v.Length
		}
		return 1
	}
	return len(v.Ref)
}

// ChangeLength returns alt length minus ref length. Symbolic structural
// variants report the explicit Length instead.
func (v *Variant) ChangeLength() int {
	if v.IsStructural() {
		return v.Length
	}
	return len(v.Alt) - len(v.Ref)
}

// Annotation returns the annotation for a transcript, or nil if the variant
// does not overlap it.
func (v *Variant) Annotation(txID string) *TranscriptAnnotation {
	for _, a := range v.Annotations {
		if a.TranscriptID == txID {
			return a
		}
	}
	return nil
}

// InferClass derives the variant class from allele shape when Class is unset.
func (v *Variant) InferClass() Class {
	if v.Class != "" {
		return v.Class
	}
	if v.IsStructural() {
		return ClassSV
	}
	switch {
	case len(v.Ref) == 1 && len(v.Alt) == 1:
		return ClassSNV
	case len(v.Ref) == len(v.Alt):
		return ClassMNV
	case len(v.Ref) > len(v.Alt):
		return ClassDeletion
	default:
		return ClassInsertion
	}
}
