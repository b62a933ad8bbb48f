package genotype

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/predicate"
	"github.com/inodb/vibe-gpa/internal/variant"
)

const tx = "NM_1234.5"

var (
	isMissense   = predicate.VariantEffect(variant.EffectMissense, tx)
	isFrameshift = predicate.VariantEffect(variant.EffectFrameshift, tx)
)

func annotated(pos int64, effect variant.Effect) *variant.Variant {
	return &variant.Variant{
		Chrom: "1", Pos: pos, Ref: "A", Alt: "G",
		Annotations: []*variant.TranscriptAnnotation{{
			GeneSymbol: "GENE1", TranscriptID: tx, Effects: []variant.Effect{effect},
		}},
	}
}

// individual builds an individual carrying the given number of missense and
// frameshift alleles as heterozygous calls at distinct positions.
func individual(id string, sex cohort.Sex, missense, frameshift int) *cohort.Individual {
	ind := &cohort.Individual{ID: id, Sex: sex}
	pos := int64(1000)
	add := func(n int, effect variant.Effect) {
		for i := 0; i < n; i++ {
			pos++
			ind.Variants = append(ind.Variants, cohort.GenotypedVariant{
				Variant: annotated(pos, effect), Zygosity: cohort.Heterozygous,
			})
		}
	}
	add(missense, variant.EffectMissense)
	add(frameshift, variant.EffectFrameshift)
	return ind
}

func TestAlleleCounter(t *testing.T) {
	counter := NewAlleleCounter(isMissense)

	ind := &cohort.Individual{ID: "P1", Variants: []cohort.GenotypedVariant{
		{Variant: annotated(1, variant.EffectMissense), Zygosity: cohort.Heterozygous},
		{Variant: annotated(2, variant.EffectMissense), Zygosity: cohort.HomozygousAlternate},
		{Variant: annotated(3, variant.EffectFrameshift), Zygosity: cohort.HomozygousAlternate},
		{Variant: annotated(4, variant.EffectMissense), Zygosity: cohort.HomozygousReference},
	}}
	assert.Equal(t, 3, counter.Count(ind))
	assert.Equal(t, 0, counter.Count(&cohort.Individual{ID: "P2"}))

	hemi := &cohort.Individual{ID: "P3", Variants: []cohort.GenotypedVariant{
		{Variant: annotated(1, variant.EffectMissense), Zygosity: cohort.Hemizygous},
	}}
	assert.Equal(t, 1, counter.Count(hemi))
}

func TestMonoallelic(t *testing.T) {
	c, err := NewMonoallelic(isMissense, isFrameshift, "Missense", "Frameshift")
	require.NoError(t, err)
	require.Len(t, c.Classes(), 2)

	tests := []struct {
		missense, frameshift int
		want                 string // "" means omitted
	}{
		{1, 0, "Missense"},
		{0, 1, "Frameshift"},
		{0, 0, ""},
		{1, 1, ""},
		{2, 0, ""},
		{3, 0, ""},
		{0, 2, ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d,%d", tt.missense, tt.frameshift), func(t *testing.T) {
			got, ok := c.Classify(individual("P", cohort.SexUnknown, tt.missense, tt.frameshift))
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Label)
			assert.Contains(t, c.Classes(), got)
		})
	}

	_, err = NewMonoallelic(isMissense, isFrameshift, "X", "X")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewMonoallelic(nil, isFrameshift, "A", "B")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBiallelic(t *testing.T) {
	c, err := NewBiallelic(isMissense, isFrameshift, "Mis", "FS", nil)
	require.NoError(t, err)
	assert.Equal(t, []Class{
		{ID: 0, Label: "Mis/Mis"},
		{ID: 1, Label: "Mis/FS"},
		{ID: 2, Label: "FS/FS"},
	}, c.Classes())

	tests := []struct {
		missense, frameshift int
		wantID               int // -1 means omitted
	}{
		{2, 0, 0}, {1, 1, 1}, {0, 2, 2},
		{1, 0, -1}, {0, 0, -1}, {1, 2, -1}, {2, 1, -1}, {3, 0, -1},
	}
	for _, tt := range tests {
		got, ok := c.Classify(individual("P", cohort.SexUnknown, tt.missense, tt.frameshift))
		if tt.wantID < 0 {
			assert.False(t, ok, "(%d,%d)", tt.missense, tt.frameshift)
			continue
		}
		require.True(t, ok)
		assert.Equal(t, tt.wantID, got.ID)
	}

	merged, err := NewBiallelic(isMissense, isFrameshift, "Mis", "FS", [][]int{{0}, {1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []Class{{ID: 0, Label: "Mis/Mis"}, {ID: 1, Label: "Mis/FS OR FS/FS"}}, merged.Classes())
	got, ok := merged.Classify(individual("P", cohort.SexUnknown, 0, 2))
	require.True(t, ok)
	assert.Equal(t, 1, got.ID)

	for _, bad := range [][][]int{
		{{0}, {1}},        // misses 2
		{{0, 1}, {1, 2}},  // 1 twice
		{{0}, {1}, {3}},   // out of range
		{{0, 1, 2}},       // single class
		{{0}, {}, {1, 2}}, // empty part
	} {
		_, err := NewBiallelic(isMissense, isFrameshift, "A", "B", bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, "%v", bad)
	}
}

func TestAlleleCount(t *testing.T) {
	c, err := NewAlleleCount(isMissense, [][]int{{0}, {1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1 OR 2"}, labels(c.Classes()))

	for n, wantID := range map[int]int{0: 0, 1: 1, 2: 1, 3: -1} {
		got, ok := c.Classify(individual("P", cohort.SexUnknown, n, 0))
		if wantID < 0 {
			assert.False(t, ok, "count %d", n)
			continue
		}
		require.True(t, ok, "count %d", n)
		assert.Equal(t, wantID, got.ID, "count %d", n)
	}

	_, err = NewAlleleCount(isMissense, [][]int{{0, 1}, {1}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewAlleleCount(isMissense, [][]int{{1}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewAlleleCount(isMissense, [][]int{{-1}, {1}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestModeOfInheritance(t *testing.T) {
	const omit = ""
	tests := []struct {
		moi  ModeOfInheritance
		sex  cohort.Sex
		ac   int
		want string
	}{
		{AutosomalDominant, cohort.SexUnknown, 0, HomRef},
		{AutosomalDominant, cohort.SexMale, 1, Het},
		{AutosomalDominant, cohort.SexFemale, 2, omit},
		{AutosomalRecessive, cohort.SexUnknown, 0, HomRef},
		{AutosomalRecessive, cohort.SexUnknown, 1, Het},
		{AutosomalRecessive, cohort.SexMale, 2, BiallelicAlt},
		{AutosomalRecessive, cohort.SexFemale, 3, omit},
		{XLinkedDominant, cohort.SexMale, 0, HomRef},
		{XLinkedDominant, cohort.SexMale, 1, Het},
		{XLinkedDominant, cohort.SexFemale, 1, Het},
		{XLinkedDominant, cohort.SexFemale, 2, omit},
		{XLinkedRecessive, cohort.SexUnknown, 0, HomRef},
		{XLinkedRecessive, cohort.SexFemale, 1, Het},
		{XLinkedRecessive, cohort.SexFemale, 2, BiallelicAlt},
		{XLinkedRecessive, cohort.SexMale, 1, Hemi},
		{XLinkedRecessive, cohort.SexMale, 2, omit},
		{XLinkedRecessive, cohort.SexUnknown, 1, omit},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s/%d", tt.moi, tt.sex, tt.ac), func(t *testing.T) {
			c, err := NewModeOfInheritance(isMissense, tt.moi)
			require.NoError(t, err)
			got, ok := c.Classify(individual("P", tt.sex, tt.ac, 0))
			if tt.want == omit {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Label)
			assert.Contains(t, c.Classes(), got)
		})
	}

	xr, err := NewModeOfInheritance(isMissense, XLinkedRecessive)
	require.NoError(t, err)
	assert.Equal(t, []string{HomRef, Het, BiallelicAlt, Hemi}, labels(xr.Classes()))

	_, err = NewModeOfInheritance(isMissense, ModeOfInheritance(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParseModeOfInheritance("mitochondrial")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	moi, err := ParseModeOfInheritance("X-linked recessive")
	require.NoError(t, err)
	assert.Equal(t, XLinkedRecessive, moi)
}

func TestSex(t *testing.T) {
	c := NewSex()
	got, ok := c.Classify(&cohort.Individual{ID: "F", Sex: cohort.SexFemale})
	require.True(t, ok)
	assert.Equal(t, "FEMALE", got.Label)
	got, ok = c.Classify(&cohort.Individual{ID: "M", Sex: cohort.SexMale})
	require.True(t, ok)
	assert.Equal(t, "MALE", got.Label)
	_, ok = c.Classify(&cohort.Individual{ID: "U"})
	assert.False(t, ok)
}

func TestDiagnosis(t *testing.T) {
	c, err := NewDiagnosis([]string{"OMIM:148050", "OMIM:619826"}, []string{"KBGS", "Other"})
	require.NoError(t, err)

	diagnosed := func(ids ...string) *cohort.Individual {
		ind := &cohort.Individual{ID: "P"}
		for _, id := range ids {
			ind.Diseases = append(ind.Diseases, cohort.Disease{ID: id, Present: true})
		}
		return ind
	}

	got, ok := c.Classify(diagnosed("OMIM:148050"))
	require.True(t, ok)
	assert.Equal(t, "KBGS", got.Label)

	_, ok = c.Classify(diagnosed())
	assert.False(t, ok)
	_, ok = c.Classify(diagnosed("OMIM:148050", "OMIM:619826"))
	assert.False(t, ok, "ambiguous diagnoses are omitted")
	_, ok = c.Classify(&cohort.Individual{ID: "P", Diseases: []cohort.Disease{{ID: "OMIM:148050", Present: false}}})
	assert.False(t, ok)

	_, err = NewDiagnosis([]string{"OMIM:1"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewDiagnosis([]string{"OMIM:1", "OMIM:1"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewDiagnosis([]string{"OMIM:1", "OMIM:2"}, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGroups(t *testing.T) {
	c, err := NewGroups([]predicate.Predicate{isMissense, isFrameshift}, []string{"Missense", "Frameshift"})
	require.NoError(t, err)

	got, ok := c.Classify(individual("P", cohort.SexUnknown, 2, 0))
	require.True(t, ok)
	assert.Equal(t, "Missense", got.Label)

	_, ok = c.Classify(individual("P", cohort.SexUnknown, 1, 1))
	assert.False(t, ok, "matching several groups is omitted")
	_, ok = c.Classify(individual("P", cohort.SexUnknown, 0, 0))
	assert.False(t, ok)

	_, err = NewGroups([]predicate.Predicate{isMissense}, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewGroups([]predicate.Predicate{isMissense, isFrameshift}, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFiltering(t *testing.T) {
	inner, err := NewModeOfInheritance(isMissense, AutosomalRecessive)
	require.NoError(t, err)
	f, err := NewFiltering(inner, []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{HomRef, BiallelicAlt}, labels(f.Classes()))

	for ac := 0; ac <= 3; ac++ {
		ind := individual("P", cohort.SexFemale, ac, 0)
		want, wantOK := inner.Classify(ind)
		got, ok := f.Classify(ind)
		if wantOK && want.ID != 1 {
			require.True(t, ok, "ac %d", ac)
			assert.Equal(t, want, got)
		} else {
			assert.False(t, ok, "ac %d", ac)
		}
	}

	_, err = NewFiltering(inner, []int{7})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewFiltering(inner, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClassesFixedAtConstruction(t *testing.T) {
	c, err := NewMonoallelic(isMissense, isFrameshift, "A", "B")
	require.NoError(t, err)
	before := c.Classes()
	before[0].Label = "mutated"
	for i := 0; i < 3; i++ {
		c.Classify(individual("P", cohort.SexUnknown, i, 0))
	}
	assert.Equal(t, "A", c.Classes()[0].Label)
}

func TestSpec_Build(t *testing.T) {
	s := Spec{
		Type: "monoallelic",
		Predicates: []predicate.Spec{
			{Effect: "missense_variant", Transcript: tx},
			{Effect: "frameshift_variant", Transcript: tx},
		},
		Labels: []string{"Missense", "Frameshift"},
	}
	c, err := s.Build(nil)
	require.NoError(t, err)
	got, ok := c.Classify(individual("P", cohort.SexUnknown, 1, 0))
	require.True(t, ok)
	assert.Equal(t, "Missense", got.Label)
	_, ok = c.Classify(individual("P", cohort.SexUnknown, 0, 0))
	assert.False(t, ok)

	moi, err := Spec{
		Type:              "moi",
		Predicates:        []predicate.Spec{{Gene: "GENE1"}},
		ModeOfInheritance: "AR",
		Keep:              []int{0, 2},
	}.Build(nil)
	require.NoError(t, err)
	assert.Len(t, moi.Classes(), 2)

	for _, bad := range []Spec{
		{Type: "monoallelic", Predicates: []predicate.Spec{{Gene: "A"}}},
		{Type: "moi", Predicates: []predicate.Spec{{Gene: "A"}}, ModeOfInheritance: "YY"},
		{Type: "allele_count", Predicates: []predicate.Spec{{}}},
		{Type: "unknown"},
	} {
		_, err := bad.Build(nil)
		require.Error(t, err, "%+v", bad)
		assert.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)
	}
}

func labels(cs []Class) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Label
	}
	return out
}
