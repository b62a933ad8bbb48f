package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/duckdb"
	"github.com/inodb/vibe-gpa/internal/mtc"
	"github.com/inodb/vibe-gpa/internal/ontology"
	"github.com/inodb/vibe-gpa/internal/ontology/hpotest"
	"github.com/inodb/vibe-gpa/internal/phenotype"
	"github.com/inodb/vibe-gpa/internal/stats"
	"github.com/inodb/vibe-gpa/internal/variant"
)

const tx = "NM_000001.1"

type fixture struct {
	dir      string
	config   string
	ontology string
	cohort   string
	analysis string
}

func oboID(id ontology.TermID) string {
	return "http://purl.obolibrary.org/obo/" + strings.Replace(string(id), ":", "_", 1)
}

// writeOBOGraphs renders the fixture ontology as obographs JSON.
func writeOBOGraphs(t *testing.T, path string) {
	t.Helper()
	snap := hpotest.Ontology().Snapshot()
	var nodes, edges []map[string]any
	for _, term := range snap.Terms {
		nodes = append(nodes, map[string]any{"id": oboID(term.ID), "lbl": term.Name, "type": "CLASS"})
	}
	for _, e := range snap.IsA {
		edges = append(edges, map[string]any{"sub": oboID(e[0]), "pred": "is_a", "obj": oboID(e[1])})
	}
	doc := map[string]any{"graphs": []any{map[string]any{
		"id":    "http://purl.obolibrary.org/obo/hp.json",
		"meta":  map[string]any{"version": "http://purl.obolibrary.org/obo/hp/releases/2024-04-26/hp.json"},
		"nodes": nodes,
		"edges": edges,
	}}}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0644))
}

// writeCohort writes 11 synonymous carriers with seizures and 24 missense
// carriers of whom 17 have seizures.
func writeCohort(t *testing.T, path string) {
	t.Helper()
	snv := func(pos int64, e variant.Effect) *variant.Variant {
		return &variant.Variant{
			Chrom: "1", Pos: pos, Ref: "C", Alt: "T",
			Annotations: []*variant.TranscriptAnnotation{{
				GeneSymbol: "GENE1", TranscriptID: tx, Effects: []variant.Effect{e},
			}},
		}
	}
	missense, synonymous := snv(1000, variant.EffectMissense), snv(2000, variant.EffectSynonymous)
	person := func(id string, v *variant.Variant, seizure bool) *cohort.Individual {
		return &cohort.Individual{
			ID:         id,
			Variants:   []cohort.GenotypedVariant{{Variant: v, Zygosity: cohort.Heterozygous}},
			Phenotypes: []cohort.Phenotype{{TermID: hpotest.Seizure, Present: seizure}},
		}
	}
	var inds []*cohort.Individual
	for i := range 11 {
		inds = append(inds, person(fmt.Sprintf("S%02d", i), synonymous, true))
	}
	for i := range 24 {
		inds = append(inds, person(fmt.Sprintf("M%02d", i), missense, i < 17))
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, cohort.Write(f, cohort.New(inds...)))
}

const analysisYAML = `name: missense
genotype:
  type: allele_count
  counts: [[0], [1, 2]]
  predicates:
    - effect: missense_variant
      transcript: NM_000001.1
score:
  type: count
  terms: [HP:0001250]
  statistic: mwu
`

func newFixture(t *testing.T, config string) fixture {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	fx := fixture{
		dir:      dir,
		config:   filepath.Join(dir, "config.yaml"),
		ontology: filepath.Join(dir, "hp.json"),
		cohort:   filepath.Join(dir, "cohort.json"),
		analysis: filepath.Join(dir, "missense.yaml"),
	}
	writeOBOGraphs(t, fx.ontology)
	writeCohort(t, fx.cohort)
	require.NoError(t, os.WriteFile(fx.analysis, []byte(analysisYAML), 0644))
	config = "cache:\n  dir: " + filepath.Join(dir, "cache") + "\n" + config
	require.NoError(t, os.WriteFile(fx.config, []byte(config), 0644))
	return fx
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (fx fixture) inputArgs(command string) []string {
	return []string{command, "--config", fx.config,
		"--cohort", fx.cohort, "--ontology", fx.ontology, "--analysis", fx.analysis}
}

func TestAnalyze(t *testing.T) {
	fx := newFixture(t, "mtc:\n  filter: all\n  correction: bonferroni\n")
	out := filepath.Join(fx.dir, "out.tsv")
	db := filepath.Join(fx.dir, "results.duckdb")
	scores := filepath.Join(fx.dir, "scores.tsv")

	args := append(fx.inputArgs("analyze"), "-o", out, "--db", db, "--scores", scores)
	_, stderr, err := execute(t, args...)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 6, "header plus five candidate terms")
	assert.True(t, strings.HasPrefix(lines[0], "#Term_ID\tName\t"))

	var seizure []string
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, string(hpotest.Seizure)) {
			seizure = strings.Split(l, "\t")
		}
	}
	require.NotNil(t, seizure)
	assert.Equal(t, []string{"HP:0001250", "Seizure", "11/11", "17/24", "YES", "-"}, seizure[:6])

	assert.Contains(t, stderr, "Analysis Summary")
	assert.Contains(t, stderr, "Stored run missense")
	assert.Contains(t, stderr, "Phenotype group count")

	assert.FileExists(t, filepath.Join(fx.dir, "cache", "ontology", "hp.gob"))

	store, err := duckdb.Open(db)
	require.NoError(t, err)
	defer store.Close()
	rows, err := store.LookupRun("missense")
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	scoreData, err := os.ReadFile(scores)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSuffix(string(scoreData), "\n"), "\n"), 36)
}

func TestAnalyzeUsesOntologyCache(t *testing.T) {
	fx := newFixture(t, "mtc:\n  filter: all\n")
	_, _, err := execute(t, fx.inputArgs("analyze")...)
	require.NoError(t, err)

	gob := filepath.Join(fx.dir, "cache", "ontology", "hp.gob")
	info, err := os.Stat(gob)
	require.NoError(t, err)

	stdout, _, err := execute(t, fx.inputArgs("analyze")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "HP:0001250\tSeizure")

	again, err := os.Stat(gob)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime(), "a valid cache is not rewritten")
}

func TestTerms(t *testing.T) {
	fx := newFixture(t, "")
	stdout, _, err := execute(t, fx.inputArgs("terms")...)
	require.NoError(t, err)

	assert.Contains(t, stdout, "HP:0001250\tSeizure\t28\tYES\t-")
	assert.Contains(t, stdout, "HP:0000001\tAll\t28\tNO\tHMF03")

	stdout, _, err = execute(t, append(fx.inputArgs("terms"), "--tested")...)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "HMF")
}

func TestResults(t *testing.T) {
	fx := newFixture(t, "mtc:\n  filter: all\n")
	db := filepath.Join(fx.dir, "results.duckdb")
	_, _, err := execute(t, append(fx.inputArgs("analyze"), "--db", db, "--run", "first")...)
	require.NoError(t, err)

	stdout, _, err := execute(t, "results", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "first\t")
	assert.Contains(t, stdout, "cohort.json")

	stdout, _, err = execute(t, "results", "--db", db, "--run", "first")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	assert.Len(t, lines, 6)
	assert.Contains(t, stdout, "HP:0001250\tSeizure\t11/11\t17/24\tYES")

	stdout, _, err = execute(t, "results", "--db", db, "--run", "first", "--significant", "0.01")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSuffix(stdout, "\n"), "\n"), 1, "nothing reaches 0.01")

	_, _, err = execute(t, "results", "--db", db, "--run", "missing")
	assert.Error(t, err)
}

func TestAnalyzeRejectsUnknownFilter(t *testing.T) {
	fx := newFixture(t, "mtc:\n  filter: bogus\n")
	_, _, err := execute(t, fx.inputArgs("analyze")...)
	assert.ErrorContains(t, err, "unknown filter")
}

func TestAnalyzeRejectsConfigBeforeReadingCohort(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		analysis string
		want     error
	}{
		{"filter", "mtc:\n  filter: bogus\n", analysisYAML, mtc.ErrInvalidConfig},
		{"correction", "mtc:\n  correction: bogus\n", analysisYAML, mtc.ErrInvalidConfig},
		{"score statistic", "", strings.Replace(analysisYAML, "statistic: mwu", "statistic: bogus", 1), stats.ErrInvalidConfig},
		{"scorer", "", strings.Replace(analysisYAML, "type: count", "type: bogus", 1), phenotype.ErrInvalidConfig},
		{"endpoint", "", analysisYAML + "survival:\n  type: bogus\n", phenotype.ErrInvalidConfig},
		{"disease onset without id", "", analysisYAML + "survival:\n  type: disease_onset\n", phenotype.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.config)
			require.NoError(t, os.WriteFile(fx.analysis, []byte(tt.analysis), 0644))
			// A configuration error must surface before the cohort is read.
			require.NoError(t, os.Remove(fx.cohort))
			db := filepath.Join(fx.dir, "results.duckdb")

			stdout, _, err := execute(t, append(fx.inputArgs("analyze"), "--db", db)...)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, stdout)
			assert.NoFileExists(t, db)
		})
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vibe-gpa version dev (none) built unknown\n", stdout)
}

func TestLoadAnalysisFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`genotype:
  type: monoallelic
  labels: [truncating, other]
  predicates:
    - any:
        - effect: stop_gained
          transcript: NM_1
        - effect: frameshift_variant
          transcript: NM_1
    - not:
        any:
          - effect: stop_gained
            transcript: NM_1
          - effect: frameshift_variant
            transcript: NM_1
diseases: [OMIM:100000]
survival:
  type: disease_onset
  id: OMIM:100000
`), 0644))

	af, err := loadAnalysisFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ad", af.Name)
	assert.Equal(t, "monoallelic", af.Genotype.Type)
	require.Len(t, af.Genotype.Predicates, 2)
	assert.Len(t, af.Genotype.Predicates[0].Any, 2)
	require.NotNil(t, af.Genotype.Predicates[1].Not)
	assert.Equal(t, []string{"OMIM:100000"}, af.Diseases)
	assert.Nil(t, af.Score)
	require.NotNil(t, af.Survival)

	gt, err := af.genotypeClassifier()
	require.NoError(t, err)
	assert.Len(t, gt.Classes(), 2)

	ep, err := af.Survival.endpoint(hpotest.Ontology())
	require.NoError(t, err)
	assert.Equal(t, "Onset of OMIM:100000", ep.Name())

	_, err = (&survivalSpec{Type: "disease_onset"}).endpoint(hpotest.Ontology())
	assert.Error(t, err)
	_, err = (&scoreSpec{Type: "bogus"}).scorer(nil)
	assert.Error(t, err)
}

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		key, value string
		want       any
		wantErr    bool
	}{
		{keyMissingImpliesExcluded, "yes", true, false},
		{keyMissingImpliesExcluded, "maybe", nil, true},
		{keyWorkers, "8", 8, false},
		{keyWorkers, "eight", nil, true},
		{keyAlpha, "0.01", 0.01, false},
		{keyTerms, "HP:0001250,HP:0000252", []string{"HP:0001250", "HP:0000252"}, false},
		{keyCorrection, "holm", "holm", false},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := parseConfigValue(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	written, err := runConfigSet(v, keyCorrection, "holm")
	require.NoError(t, err)
	assert.Equal(t, path, written)

	_, err = runConfigSet(v, "mtc.nonsense", "1")
	assert.ErrorContains(t, err, "unknown key")

	reread := viper.New()
	reread.SetConfigFile(path)
	require.NoError(t, reread.ReadInConfig())
	assert.Equal(t, "holm", loadSettings(reread).Correction)

	var buf bytes.Buffer
	require.NoError(t, runConfigGet(&buf, reread, keyCorrection))
	assert.Equal(t, "holm\n", buf.String())
	assert.Error(t, runConfigGet(&buf, viper.New(), "not.set"))

	buf.Reset()
	require.NoError(t, runConfigShow(&buf, v))
	assert.Contains(t, buf.String(), "correction: holm")
}

func TestSettingsFilter(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	s := loadSettings(v)
	assert.Equal(t, "hpo", s.Filter)
	assert.Equal(t, 0.05, s.Alpha)
	assert.Equal(t, 4096, s.ClosureSize)

	f, err := s.filter(hpotest.Ontology(), nil)
	require.NoError(t, err)
	assert.Equal(t, "HPO MTC filter", f.Name())

	s.Disabled = []string{"HMF99"}
	_, err = s.filter(hpotest.Ontology(), nil)
	assert.Error(t, err)

	s.Filter = "specified"
	s.Terms = []string{string(hpotest.Seizure)}
	f, err = s.filter(hpotest.Ontology(), nil)
	require.NoError(t, err)
	assert.Contains(t, f.Name(), "pecified")
}
