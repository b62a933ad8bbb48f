package genotype

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/predicate"
)

// ModeOfInheritance is a Mendelian inheritance pattern.
type ModeOfInheritance int

const (
	AutosomalDominant ModeOfInheritance = iota + 1
	AutosomalRecessive
	XLinkedDominant
	XLinkedRecessive
)

func (m ModeOfInheritance) String() string {
	switch m {
	case AutosomalDominant:
		return "AD"
	case AutosomalRecessive:
		return "AR"
	case XLinkedDominant:
		return "XD"
	case XLinkedRecessive:
		return "XR"
	}
	return fmt.Sprintf("ModeOfInheritance(%d)", int(m))
}

// ParseModeOfInheritance accepts abbreviations (AD, AR, XD, XR) and long
// forms such as autosomal_dominant.
func ParseModeOfInheritance(s string) (ModeOfInheritance, error) {
	switch strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(s)) {
	case "ad", "autosomal_dominant":
		return AutosomalDominant, nil
	case "ar", "autosomal_recessive":
		return AutosomalRecessive, nil
	case "xd", "x_linked_dominant":
		return XLinkedDominant, nil
	case "xr", "x_linked_recessive":
		return XLinkedRecessive, nil
	}
	return 0, configError("unknown mode of inheritance %q", s)
}

// Mode-of-inheritance class labels.
const (
	HomRef       = "HOM_REF"
	Het          = "HET"
	BiallelicAlt = "BIALLELIC_ALT"
	Hemi         = "HEMI"
)

// MendelianClassifier assigns HOM_REF, HET, BIALLELIC_ALT or HEMI from the
// allele count, and sex for X-linked recessive inheritance.
//
//	AD, XD: 0 -> HOM_REF, 1 -> HET
//	AR:     0 -> HOM_REF, 1 -> HET, 2 -> BIALLELIC_ALT
//	XR:     0 -> HOM_REF; female 1 -> HET, female 2 -> BIALLELIC_ALT;
//	        male 1 -> HEMI; unknown sex with any allele is omitted
//
// Counts above the modelled maximum are omitted.
type MendelianClassifier struct {
	base
	moi     ModeOfInheritance
	counter *AlleleCounter
	byLabel map[string]Class
}

// NewModeOfInheritance builds a classifier for moi counting alleles matching p.
func NewModeOfInheritance(p predicate.Predicate, moi ModeOfInheritance) (*MendelianClassifier, error) {
	if p == nil {
		return nil, configError("mode of inheritance classifier needs a predicate")
	}
	var labels []string
	switch moi {
	case AutosomalDominant, XLinkedDominant:
		labels = []string{HomRef, Het}
	case AutosomalRecessive:
		labels = []string{HomRef, Het, BiallelicAlt}
	case XLinkedRecessive:
		labels = []string{HomRef, Het, BiallelicAlt, Hemi}
	default:
		return nil, configError("unsupported mode of inheritance %v", moi)
	}
	mc := &MendelianClassifier{
		base: base{
			name:    "Mode of inheritance",
			desc:    fmt.Sprintf("%s genotypes of %s", moi, p.Name()),
			classes: newClasses(labels...),
		},
		moi:     moi,
		counter: NewAlleleCounter(p),
		byLabel: make(map[string]Class, len(labels)),
	}
	for _, c := range mc.classes {
		mc.byLabel[c.Label] = c
	}
	return mc, nil
}

// Mode returns the modelled mode of inheritance.
func (mc *MendelianClassifier) Mode() ModeOfInheritance { return mc.moi }

func (mc *MendelianClassifier) Classify(ind *cohort.Individual) (Class, bool) {
	label := mc.label(mc.counter.Count(ind), ind.Sex)
	if label == "" {
		return Class{}, false
	}
	return mc.byLabel[label], true
}

func (mc *MendelianClassifier) label(ac int, sex cohort.Sex) string {
	if ac == 0 {
		return HomRef
	}
	switch mc.moi {
	case AutosomalDominant, XLinkedDominant:
		if ac == 1 {
			return Het
		}
	case AutosomalRecessive:
		switch ac {
		case 1:
			return Het
		case 2:
			return BiallelicAlt
		}
	case XLinkedRecessive:
		switch {
		case sex == cohort.SexFemale && ac == 1:
			return Het
		case sex == cohort.SexFemale && ac == 2:
			return BiallelicAlt
		case sex == cohort.SexMale && ac == 1:
			return Hemi
		}
	}
	return ""
}

// SexClassifier splits individuals into FEMALE and MALE. Individuals of
// unknown sex are omitted.
type SexClassifier struct {
	base
}

// NewSex returns a sex classifier.
func NewSex() *SexClassifier {
	return &SexClassifier{base{
		name:    "Sex",
		desc:    "Compare females and males",
		classes: newClasses(cohort.SexFemale.String(), cohort.SexMale.String()),
	}}
}

func (s *SexClassifier) Classify(ind *cohort.Individual) (Class, bool) {
	switch ind.Sex {
	case cohort.SexFemale:
		return s.classes[0], true
	case cohort.SexMale:
		return s.classes[1], true
	}
	return Class{}, false
}

// DiagnosisClassifier assigns the class of the single target diagnosis an
// individual carries. Individuals with none or several of the target
// diagnoses are omitted: ambiguity is not an error.
type DiagnosisClassifier struct {
	base
	ids []string
}

// NewDiagnosis builds a classifier over diagnosis IDs (e.g. OMIM:148050).
// labels may be nil to use the IDs.
func NewDiagnosis(ids, labels []string) (*DiagnosisClassifier, error) {
	if len(ids) < 2 {
		return nil, configError("diagnosis classifier needs at least two diagnoses, got %d", len(ids))
	}
	if labels == nil {
		labels = ids
	}
	if len(labels) != len(ids) {
		return nil, configError("diagnosis classifier has %d ids but %d labels", len(ids), len(labels))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, configError("duplicate diagnosis %s", id)
		}
		seen[id] = true
	}
	dc := &DiagnosisClassifier{
		base: base{
			name:    "Diagnosis",
			desc:    "Compare individuals diagnosed with " + strings.Join(ids, ", "),
			classes: newClasses(labels...),
		},
		ids: append([]string(nil), ids...),
	}
	for i := range dc.classes {
		dc.classes[i].Description = ids[i]
	}
	return dc, nil
}

func (dc *DiagnosisClassifier) Classify(ind *cohort.Individual) (Class, bool) {
	match := -1
	for i, id := range dc.ids {
		if !ind.HasDiagnosis(id) {
			continue
		}
		if match >= 0 {
			return Class{}, false
		}
		match = i
	}
	if match < 0 {
		return Class{}, false
	}
	return dc.classes[match], true
}

// GroupsClassifier assigns the class of the single predicate for which an
// individual carries any allele. Individuals matching none or several
// predicates are omitted.
type GroupsClassifier struct {
	base
	counters []*AlleleCounter
}

// NewGroups builds a classifier with one class per predicate.
func NewGroups(preds []predicate.Predicate, labels []string) (*GroupsClassifier, error) {
	if len(preds) < 2 {
		return nil, configError("groups classifier needs at least two predicates, got %d", len(preds))
	}
	if len(labels) != len(preds) {
		return nil, configError("groups classifier has %d predicates but %d labels", len(preds), len(labels))
	}
	gc := &GroupsClassifier{
		base: base{
			name:    "Groups",
			desc:    "Compare groups " + strings.Join(labels, ", "),
			classes: newClasses(labels...),
		},
	}
	seen := make(map[string]bool, len(labels))
	for i, p := range preds {
		if p == nil {
			return nil, configError("groups predicate %d is nil", i)
		}
		if seen[labels[i]] {
			return nil, configError("duplicate group label %q", labels[i])
		}
		seen[labels[i]] = true
		gc.classes[i].Description = p.Description()
		gc.counters = append(gc.counters, NewAlleleCounter(p))
	}
	return gc, nil
}

func (gc *GroupsClassifier) Classify(ind *cohort.Individual) (Class, bool) {
	match := -1
	for i, c := range gc.counters {
		if c.Count(ind) == 0 {
			continue
		}
		if match >= 0 {
			return Class{}, false
		}
		match = i
	}
	if match < 0 {
		return Class{}, false
	}
	return gc.classes[match], true
}

// Filtering restricts another classifier to a subset of its classes.
// Individuals assigned to any other class are omitted; retained classes keep
// their IDs and labels.
type Filtering struct {
	inner Classifier
	keep  map[int]bool
	kept  []Class
}

// NewFiltering keeps only the classes of inner whose IDs are listed.
func NewFiltering(inner Classifier, keepIDs []int) (*Filtering, error) {
	if inner == nil {
		return nil, configError("filtering classifier needs an inner classifier")
	}
	if len(keepIDs) == 0 {
		return nil, configError("filtering classifier must keep at least one class")
	}
	f := &Filtering{inner: inner, keep: make(map[int]bool, len(keepIDs))}
	byID := make(map[int]Class)
	for _, c := range inner.Classes() {
		byID[c.ID] = c
	}
	for _, id := range keepIDs {
		if _, ok := byID[id]; !ok {
			return nil, configError("%s has no class %d", inner.Name(), id)
		}
		f.keep[id] = true
	}
	for _, c := range inner.Classes() {
		if f.keep[c.ID] {
			f.kept = append(f.kept, c)
		}
	}
	return f, nil
}

func (f *Filtering) Name() string        { return f.inner.Name() }
func (f *Filtering) Description() string { return f.inner.Description() }

func (f *Filtering) Classes() []Class {
	out := make([]Class, len(f.kept))
	copy(out, f.kept)
	return out
}

func (f *Filtering) Classify(ind *cohort.Individual) (Class, bool) {
	c, ok := f.inner.Classify(ind)
	if !ok || !f.keep[c.ID] {
		return Class{}, false
	}
	return c, true
}
