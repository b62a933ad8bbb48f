package duckdb

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gpa/internal/analysis"
	"github.com/inodb/vibe-gpa/internal/genotype"
	"github.com/inodb/vibe-gpa/internal/mtc"
	"github.com/inodb/vibe-gpa/internal/ontology"
	"github.com/inodb/vibe-gpa/internal/ontology/hpotest"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fp(v float64) *float64 { return &v }

func table(counts [][]int) *mtc.CountTable {
	t := mtc.NewCountTable([]string{"Yes", "No"}, []string{"A", "B"})
	t.Counts = counts
	return t
}

func seizureResult() *analysis.CategoricalResult {
	return &analysis.CategoricalResult{
		Config: analysis.Identity{
			GenotypeClassifier: "missense allele count",
			Phenotype:          "3 phenotype classifiers",
			Filter:             "HPO MTC filter",
			Correction:         "fdr_bh",
			Statistic:          "Fisher exact test",
		},
		GenotypeClasses: []genotype.Class{{ID: 0, Label: "0"}, {ID: 1, Label: "1 or 2"}},
		CandidateCount:  3,
		TotalTests:      2,
		Terms: []analysis.TermResult{
			{
				Term: hpotest.Seizure, Name: "Seizure",
				Table:    table([][]int{{11, 17}, {0, 7}}),
				Decision: mtc.Decision{Term: hpotest.Seizure, Tested: true},
				NominalP: fp(0.0721), CorrectedP: fp(0.0721), OddsRatio: fp(math.Inf(1)),
			},
			{
				Term: hpotest.Microcephaly, Name: "Microcephaly",
				Table:    table([][]int{{1, 10}, {10, 14}}),
				Decision: mtc.Decision{Term: hpotest.Microcephaly, Tested: true},
				NominalP: fp(0.01), CorrectedP: fp(0.02), OddsRatio: fp(0.14),
			},
			{
				Term: hpotest.NervousSystem, Name: "Abnormality of the nervous system",
				Table:    table([][]int{{11, 17}, {0, 7}}),
				Decision: mtc.Decision{Term: hpotest.NervousSystem, Reason: mtc.RedundantWithChild},
			},
		},
	}
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Equal(t, "", s.Path())
}

func TestWriteAndLookupRun(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteCategorical("run-1", "seizure cohort", seizureResult()))

	rows, err := s.LookupRun("run-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, string(hpotest.Seizure), rows[0].TermID)
	assert.Equal(t, 0, rows[0].Rank)
	assert.True(t, rows[0].Tested)
	assert.Equal(t, [][]int{{11, 17}, {0, 7}}, rows[0].Counts)
	require.NotNil(t, rows[0].NominalP)
	assert.InDelta(t, 0.0721, *rows[0].NominalP, 1e-12)
	require.NotNil(t, rows[0].OddsRatio)
	assert.True(t, math.IsInf(*rows[0].OddsRatio, 1))

	assert.Equal(t, string(hpotest.Microcephaly), rows[1].TermID)

	untested := rows[2]
	assert.False(t, untested.Tested)
	assert.Equal(t, string(mtc.RedundantWithChild), untested.Reason)
	assert.Nil(t, untested.NominalP)
	assert.Nil(t, untested.CorrectedP)
	assert.Nil(t, untested.OddsRatio)

	rows, err = s.LookupRun("missing")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSignificantTerms(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteCategorical("run-1", "seizure cohort", seizureResult()))

	sig, err := s.SignificantTerms("run-1", 0.05)
	require.NoError(t, err)
	require.Len(t, sig, 1)
	assert.Equal(t, string(hpotest.Microcephaly), sig[0].TermID)

	sig, err = s.SignificantTerms("run-1", 0.1)
	require.NoError(t, err)
	assert.Len(t, sig, 2)
}

func TestRuns(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteCategorical("run-1", "seizure cohort", seizureResult()))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, "run-1", r.ID)
	assert.Equal(t, "seizure cohort", r.Cohort)
	assert.Equal(t, []string{"0", "1 or 2"}, r.GenotypeClasses)
	assert.Equal(t, "fdr_bh", r.Correction)
	assert.Equal(t, 3, r.CandidateCount)
	assert.Equal(t, 2, r.TotalTests)
	assert.WithinDuration(t, time.Now(), r.CreatedAt, time.Hour)
}

func TestWriteCategoricalReplacesRun(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteCategorical("run-1", "first", seizureResult()))

	res := seizureResult()
	res.Terms = res.Terms[:1]
	require.NoError(t, s.WriteCategorical("run-1", "second", res))

	rows, err := s.LookupRun("run-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "second", runs[0].Cohort)
}

func TestClearRun(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteCategorical("run-1", "c", seizureResult()))
	require.NoError(t, s.WriteCategorical("run-2", "c", seizureResult()))

	require.NoError(t, s.ClearRun("run-1"))

	rows, err := s.LookupRun("run-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, err = s.LookupRun("run-2")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	require.NoError(t, s.ClearRun("never-written"))
}

func TestWriteCategoricalEmptyRunID(t *testing.T) {
	s := openInMemory(t)
	assert.Error(t, s.WriteCategorical("", "c", seizureResult()))
}

func TestStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteCategorical("run-1", "c", seizureResult()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	rows, err := s.LookupRun("run-1")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestParseCounts(t *testing.T) {
	m, err := parseCounts("[10,2,3;1,8,4]")
	require.NoError(t, err)
	assert.Equal(t, [][]int{{10, 2, 3}, {1, 8, 4}}, m)

	m, err = parseCounts("")
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = parseCounts("[1,x]")
	assert.Error(t, err)
}

// --- Ontology cache tests (gob) ---

func writeSource(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "hp.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOntologyCacheWriteLoad(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "{}")
	fpr, err := StatFile(src)
	require.NoError(t, err)

	oc := NewOntologyCache("", src)
	assert.False(t, oc.Valid(fpr))

	o := hpotest.Ontology()
	require.NoError(t, oc.Write(o, fpr))
	assert.True(t, oc.Valid(fpr))
	assert.FileExists(t, filepath.Join(dir, "hp.gob"))
	assert.FileExists(t, filepath.Join(dir, "hp.gob.meta"))

	loaded, err := oc.Load()
	require.NoError(t, err)
	assert.Equal(t, o.Snapshot(), loaded.Snapshot())
	assert.True(t, loaded.IsDescendantOf(hpotest.BilateralTonicClonic, hpotest.Seizure))

	changed := fpr
	changed.Size++
	assert.False(t, oc.Valid(changed))

	oc.Clear()
	assert.False(t, oc.Valid(fpr))
}

func TestOntologyCacheLoadOrParse(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "{}")
	oc := NewOntologyCache(filepath.Join(dir, "cache"), src)

	parses := 0
	parse := func(string) (*ontology.Ontology, error) {
		parses++
		return hpotest.Ontology(), nil
	}

	o, err := oc.LoadOrParse(src, parse)
	require.NoError(t, err)
	assert.Equal(t, hpotest.Version, o.Version())
	assert.Equal(t, 1, parses)

	o, err = oc.LoadOrParse(src, parse)
	require.NoError(t, err)
	assert.Equal(t, hpotest.Version, o.Version())
	assert.Equal(t, 1, parses, "second load is served from the cache")

	writeSource(t, dir, "{\"graphs\": []}")
	_, err = oc.LoadOrParse(src, parse)
	require.NoError(t, err)
	assert.Equal(t, 2, parses, "a changed source invalidates the cache")

	_, err = oc.LoadOrParse(filepath.Join(dir, "missing.json"), parse)
	assert.Error(t, err)
}
