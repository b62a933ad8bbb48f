package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/inodb/vibe-gpa/internal/genotype"
	"github.com/inodb/vibe-gpa/internal/ontology"
	"github.com/inodb/vibe-gpa/internal/phenotype"
	"github.com/inodb/vibe-gpa/internal/stats"
	"github.com/inodb/vibe-gpa/internal/variant"
)

// analysisFile is the YAML description of one analysis.
//
//	name: missense-vs-rest
//	genotype:
//	  type: allele_count
//	  counts: [[0], [1, 2]]
//	  predicates:
//	    - effect: missense_variant
//	      transcript: NM_000001.1
//	diseases: [OMIM:100000]
//	score:
//	  type: count
//	  terms: [HP:0001250, HP:0000252]
//	survival:
//	  type: death
type analysisFile struct {
	Name     string                    `mapstructure:"name"`
	Genotype genotype.Spec             `mapstructure:"genotype"`
	Proteins []variant.ProteinMetadata `mapstructure:"proteins"`
	Diseases []string                  `mapstructure:"diseases"`
	Score    *scoreSpec                `mapstructure:"score"`
	Survival *survivalSpec             `mapstructure:"survival"`
}

// scoreSpec selects a phenotype scorer. Type is count, devries or
// measurement.
type scoreSpec struct {
	Type        string            `mapstructure:"type"`
	Terms       []ontology.TermID `mapstructure:"terms"`
	Measurement string            `mapstructure:"measurement"`
	Label       string            `mapstructure:"label"`
	Statistic   string            `mapstructure:"statistic"`
}

// survivalSpec selects an endpoint. Type is death, disease_onset or
// phenotype_onset; ID names the disease or term.
type survivalSpec struct {
	Type string `mapstructure:"type"`
	ID   string `mapstructure:"id"`
}

func loadAnalysisFile(path string) (*analysisFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read analysis %s: %w", path, err)
	}
	var af analysisFile
	if err := v.Unmarshal(&af); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", path, err)
	}
	if af.Name == "" {
		af.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &af, nil
}

func (af *analysisFile) genotypeClassifier() (genotype.Classifier, error) {
	proteins := make(map[string]*variant.ProteinMetadata, len(af.Proteins))
	for i := range af.Proteins {
		proteins[af.Proteins[i].ID] = &af.Proteins[i]
	}
	return af.Genotype.Build(proteins)
}

func (s *scoreSpec) scorer(r *ontology.Resolver) (phenotype.Scorer, error) {
	switch s.Type {
	case "count", "":
		return phenotype.NewCountingScorer(s.Terms, r)
	case "devries", "de_vries":
		return phenotype.NewDeVriesScorer(r)
	case "measurement":
		label := s.Label
		if label == "" {
			label = s.Measurement
		}
		return phenotype.NewMeasurementScorer(s.Measurement, label)
	}
	return nil, fmt.Errorf("%w: unknown scorer %q", phenotype.ErrInvalidConfig, s.Type)
}

func (s *scoreSpec) statistic() (stats.ScoreStatistic, error) {
	return stats.ParseScoreStatistic(s.Statistic)
}

func (s *survivalSpec) endpoint(g ontology.Graph) (phenotype.Endpoint, error) {
	switch s.Type {
	case "death", "":
		return phenotype.Death(), nil
	case "disease_onset":
		if s.ID == "" {
			return nil, fmt.Errorf("%w: disease_onset needs an id", phenotype.ErrInvalidConfig)
		}
		return phenotype.DiseaseOnset(s.ID), nil
	case "phenotype_onset":
		return phenotype.PhenotypeOnset(ontology.TermID(s.ID), g)
	}
	return nil, fmt.Errorf("%w: unknown endpoint %q", phenotype.ErrInvalidConfig, s.Type)
}
