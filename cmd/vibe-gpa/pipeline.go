package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/analysis"
	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/duckdb"
	"github.com/inodb/vibe-gpa/internal/genotype"
	"github.com/inodb/vibe-gpa/internal/mtc"
	"github.com/inodb/vibe-gpa/internal/ontology"
	"github.com/inodb/vibe-gpa/internal/phenotype"
	"github.com/inodb/vibe-gpa/internal/stats"
)

// inputs names the files an analysis reads.
type inputs struct {
	Cohort   string
	Ontology string
	Analysis string
}

// pipeline holds everything loaded and built before testing.
type pipeline struct {
	settings   settings
	log        *zap.Logger
	def        *analysisFile
	ontology   *ontology.Ontology
	cohort     *cohort.Cohort
	resolver   *ontology.Resolver
	genotype   genotype.Classifier
	phenotypes []phenotype.Classifier

	filter     mtc.Filter
	correction mtc.Correction
	scorer     phenotype.Scorer
	scoreStat  stats.ScoreStatistic
	endpoint   phenotype.Endpoint
}

func loadOntology(path string, s settings, log *zap.Logger) (*ontology.Ontology, error) {
	oc := duckdb.NewOntologyCache(s.ontologyCacheDir(), path)
	oc.SetLogger(log)
	return oc.LoadOrParse(path, ontology.LoadOBOGraphs)
}

// preparePipeline builds every configured component, then loads the cohort
// and resolves each individual's annotation closure. Configuration errors are
// reported before the cohort file is opened.
func preparePipeline(ctx context.Context, in inputs, s settings, log *zap.Logger) (*pipeline, error) {
	def, err := loadAnalysisFile(in.Analysis)
	if err != nil {
		return nil, err
	}
	p := &pipeline{settings: s, log: log, def: def}
	if p.genotype, err = def.genotypeClassifier(); err != nil {
		return nil, fmt.Errorf("genotype classifier: %w", err)
	}
	if p.correction, err = mtc.ParseCorrection(s.Correction); err != nil {
		return nil, err
	}
	if def.Score != nil {
		if p.scoreStat, err = def.Score.statistic(); err != nil {
			return nil, fmt.Errorf("score: %w", err)
		}
	}
	diseases := make([]phenotype.Classifier, 0, len(def.Diseases))
	for _, id := range def.Diseases {
		d, err := phenotype.NewDiseasePresence(id)
		if err != nil {
			return nil, err
		}
		diseases = append(diseases, d)
	}

	if p.ontology, err = loadOntology(in.Ontology, s, log); err != nil {
		return nil, err
	}
	log.Info("loaded ontology", zap.String("version", p.ontology.Version()), zap.Int("terms", p.ontology.Len()))

	if p.filter, err = s.filter(p.ontology, log); err != nil {
		return nil, err
	}
	if p.resolver, err = ontology.NewResolver(p.ontology, s.ClosureSize); err != nil {
		return nil, err
	}
	p.resolver.SetLogger(log)
	if def.Score != nil {
		if p.scorer, err = def.Score.scorer(p.resolver); err != nil {
			return nil, fmt.Errorf("score: %w", err)
		}
	}
	if def.Survival != nil {
		if p.endpoint, err = def.Survival.endpoint(p.ontology); err != nil {
			return nil, fmt.Errorf("survival: %w", err)
		}
	}

	if p.cohort, err = cohort.Load(in.Cohort); err != nil {
		return nil, err
	}
	log.Info("loaded cohort", zap.String("path", in.Cohort), zap.Int("individuals", p.cohort.Len()))
	if err := p.resolver.Warm(ctx, p.cohort.Annotated(), s.Workers); err != nil {
		return nil, fmt.Errorf("resolve annotations: %w", err)
	}

	terms, err := phenotype.PrepareTermClassifiers(p.cohort, p.resolver, phenotype.TermOptions{
		MinIndividuals:         s.MinIndividuals,
		MissingImpliesExcluded: s.MissingImpliesExcluded,
	})
	if err != nil {
		return nil, err
	}
	p.phenotypes = make([]phenotype.Classifier, 0, len(terms)+len(diseases))
	for _, t := range terms {
		p.phenotypes = append(p.phenotypes, t)
	}
	p.phenotypes = append(p.phenotypes, diseases...)
	return p, nil
}

func (p *pipeline) categorical() (*analysis.CategoricalResult, error) {
	a := &analysis.CategoricalAnalysis{
		Filter:     p.filter,
		Correction: p.correction,
		Alpha:      p.settings.Alpha,
		Workers:    p.settings.Workers,
		Logger:     p.log,
	}
	return a.Run(p.cohort, p.genotype, p.phenotypes)
}

// score runs the score analysis, or returns nil when none is configured.
func (p *pipeline) score() (*analysis.ScoreResult, error) {
	if p.scorer == nil {
		return nil, nil
	}
	a := &analysis.ScoreAnalysis{Statistic: p.scoreStat, Logger: p.log}
	return a.Run(p.cohort, p.genotype, p.scorer)
}

// survival runs the survival analysis, or returns nil when none is
// configured.
func (p *pipeline) survival() (*analysis.SurvivalResult, error) {
	if p.endpoint == nil {
		return nil, nil
	}
	a := &analysis.SurvivalAnalysis{Logger: p.log}
	return a.Run(p.cohort, p.genotype, p.endpoint)
}
