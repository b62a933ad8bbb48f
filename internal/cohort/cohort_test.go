package cohort

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gpa/internal/ontology"
	"github.com/inodb/vibe-gpa/internal/variant"
)

const sampleCohort = `{
  "variants": [
    {"chrom": "16", "pos": 89280752, "ref": "G", "alt": "T",
     "annotations": [{"gene_symbol": "ANKRD11", "transcript_id": "NM_013275.6",
                      "effects": ["missense_variant"], "affected_exons": [9],
                      "protein_region": {"start": 1200, "end": 1200}}]},
    {"chrom": "16", "pos": 89284140, "ref": "CT", "alt": "C",
     "annotations": [{"gene_symbol": "ANKRD11", "transcript_id": "NM_013275.6",
                      "effects": ["frameshift_variant"], "affected_exons": [9]}]}
  ],
  "individuals": [
    {"id": "P1", "sex": "FEMALE", "age_at_last_encounter": "P10Y",
     "genotypes": [{"variant": "16_89280752_G/T", "zygosity": "heterozygous"}],
     "phenotypes": [{"term_id": "HP:0001250", "present": true, "onset": 365},
                    {"term_id": "HP:0000252", "present": false}],
     "diseases": [{"id": "OMIM:148050", "present": true}],
     "measurements": [{"id": "LOINC:2986-8", "value": 4.2, "unit": "ng/mL"}]},
    {"id": "P2", "sex": "M",
     "vital_status": {"status": "DECEASED", "age_of_death": "P2Y6M"},
     "genotypes": [{"variant": "16_89284140_CT/C", "zygosity": "1/1"},
                   {"variant": "16_89280752_G/T", "zygosity": "het"}]}
  ]
}`

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(sampleCohort))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	p1 := c.ByID("P1")
	require.NotNil(t, p1)
	assert.Equal(t, SexFemale, p1.Sex)
	require.NotNil(t, p1.AgeAtLastEncounter)
	assert.InDelta(t, 10*DaysPerYear, p1.AgeAtLastEncounter.Days, 1e-9)
	assert.Equal(t, []ontology.TermID{"HP:0001250"}, p1.ObservedTerms())
	assert.Equal(t, []ontology.TermID{"HP:0000252"}, p1.ExcludedTerms())
	assert.Equal(t, []string{"OMIM:148050"}, p1.DiagnosisIDs())
	assert.True(t, p1.HasDiagnosis("OMIM:148050"))

	val, ok := p1.Measurement("LOINC:2986-8")
	assert.True(t, ok)
	assert.Equal(t, 4.2, val)
	_, ok = p1.Measurement("LOINC:0000-0")
	assert.False(t, ok)

	p2 := c.ByID("P2")
	require.NotNil(t, p2)
	assert.Equal(t, SexMale, p2.Sex)
	assert.True(t, p2.VitalStatus.IsDeceased())
	require.Len(t, p2.Variants, 2)
	assert.Equal(t, 2, p2.Variants[0].AlleleCount())

	// The shared variant is the same object for both individuals.
	assert.Same(t, p1.Variants[0].Variant, p2.Variants[1].Variant)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	c, err := Read(strings.NewReader(sampleCohort))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c))

	c2, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, c.Len(), c2.Len())
	for i := range c.Individuals {
		a, b := c.Individuals[i], c2.Individuals[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.Sex, b.Sex)
		assert.Equal(t, a.VitalStatus, b.VitalStatus)
		assert.Equal(t, a.Phenotypes, b.Phenotypes)
		require.Len(t, b.Variants, len(a.Variants))
		for j := range a.Variants {
			assert.Equal(t, a.Variants[j].Variant.Key(), b.Variants[j].Variant.Key())
			assert.Equal(t, a.Variants[j].Zygosity, b.Variants[j].Zygosity)
		}
	}
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"unknown variant", `{"individuals": [{"id": "P1", "genotypes": [{"variant": "1_1_A/G", "zygosity": "het"}]}]}`},
		{"observed and excluded", `{"individuals": [{"id": "P1", "phenotypes": [
			{"term_id": "HP:0001250", "present": true}, {"term_id": "HP:0001250", "present": false}]}]}`},
		{"duplicate id", `{"individuals": [{"id": "P1"}, {"id": "P1"}]}`},
		{"bad zygosity", `{"variants": [{"chrom": "1", "pos": 1, "ref": "A", "alt": "G"}],
			"individuals": [{"id": "P1", "genotypes": [{"variant": "1_1_A/G", "zygosity": "triploid"}]}]}`},
		{"bad sex", `{"individuals": [{"id": "P1", "sex": "X"}]}`},
		{"null variant", `{"variants": [null], "individuals": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestParseISO8601(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"P1Y", DaysPerYear, false},
		{"P1Y6M", DaysPerYear * 1.5, false},
		{"P2W", 14, false},
		{"P10D", 10, false},
		{"P0.5Y", DaysPerYear / 2, false},
		{"P", 0, true},
		{"10D", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseISO8601(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Days, 1e-9)
		})
	}
}

func TestZygosity_AlleleCount(t *testing.T) {
	assert.Equal(t, 0, HomozygousReference.AlleleCount())
	assert.Equal(t, 1, Heterozygous.AlleleCount())
	assert.Equal(t, 2, HomozygousAlternate.AlleleCount())
	assert.Equal(t, 1, Hemizygous.AlleleCount())
}

func TestIndividual_Validate(t *testing.T) {
	ind := &Individual{ID: "P1", Variants: []GenotypedVariant{{Variant: nil}}}
	assert.Error(t, ind.Validate())

	ind = &Individual{ID: "P1", Variants: []GenotypedVariant{{Variant: &variant.Variant{Chrom: "1"}}}}
	assert.NoError(t, ind.Validate())

	assert.Error(t, (&Individual{}).Validate())
}
