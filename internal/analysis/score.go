package analysis

import (
	"fmt"
	"math"

	mstats "github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/genotype"
	"github.com/inodb/vibe-gpa/internal/phenotype"
	"github.com/inodb/vibe-gpa/internal/stats"
)

// ScoreAnalysis compares phenotype scores between exactly two genotype
// classes. A nil Statistic selects the Mann-Whitney U test.
type ScoreAnalysis struct {
	Statistic stats.ScoreStatistic
	Logger    *zap.Logger
}

// ScorePoint is one scored individual.
type ScorePoint struct {
	IndividualID string
	Class        genotype.Class
	Score        float64
}

// Summary describes the values observed in one genotype class.
type Summary struct {
	Class  genotype.Class
	N      int
	Mean   float64
	Median float64
	SD     float64
}

// ScoreResult is the outcome of a score analysis.
type ScoreResult struct {
	Config          Identity
	GenotypeClasses []genotype.Class
	Assignments     []Assignment
	Points          []ScorePoint
	Summaries       []Summary
	P               float64
}

// Run scores every assigned individual and compares the two classes.
// Individuals without a computable score are left out.
func (a *ScoreAnalysis) Run(c *cohort.Cohort, gt genotype.Classifier, scorer phenotype.Scorer) (*ScoreResult, error) {
	statistic := a.Statistic
	if statistic == nil {
		statistic = stats.MannWhitney{}
	}
	if gt == nil || scorer == nil || c == nil {
		return nil, configError("score analysis needs a cohort, a genotype classifier and a scorer")
	}
	classes := gt.Classes()
	if len(classes) != 2 {
		return nil, configError("score analysis needs exactly 2 genotype classes, %s has %d", gt.Name(), len(classes))
	}
	log := a.Logger
	if log == nil {
		log = zap.NewNop()
	}

	assignments, groups := assign(c, gt)
	res := &ScoreResult{
		Config: Identity{
			GenotypeClassifier: gt.Name(),
			Phenotype:          scorer.Name(),
			Statistic:          statistic.Name(),
		},
		GenotypeClasses: classes,
		Assignments:     assignments,
	}
	values := make([][]float64, len(classes))
	for col, g := range groups {
		for _, ind := range g {
			v, ok := scorer.Score(ind)
			if !ok || math.IsNaN(v) {
				continue
			}
			values[col] = append(values[col], v)
			res.Points = append(res.Points, ScorePoint{IndividualID: ind.ID, Class: classes[col], Score: v})
		}
	}
	for col, v := range values {
		res.Summaries = append(res.Summaries, summarize(classes[col], v))
	}

	p, err := statistic.Compute(values[0], values[1])
	if err != nil {
		serr := &StatisticError{Key: scorer.Name(), Test: statistic.Name(), Scores: values, Err: err}
		log.Error("statistic failed", zap.Error(serr))
		return nil, serr
	}
	res.P = p
	log.Info("compared scores",
		zap.String("scorer", scorer.Name()),
		zap.Int("n1", len(values[0])),
		zap.Int("n2", len(values[1])),
		zap.Float64("p", p))
	return res, nil
}

// summarize reports NaN for statistics undefined on v.
func summarize(cl genotype.Class, v []float64) Summary {
	s := Summary{Class: cl, N: len(v), Mean: math.NaN(), Median: math.NaN(), SD: math.NaN()}
	data := mstats.LoadRawData(v)
	if m, err := mstats.Mean(data); err == nil {
		s.Mean = m
	}
	if m, err := mstats.Median(data); err == nil {
		s.Median = m
	}
	if sd, err := mstats.StandardDeviationSample(data); err == nil && len(v) > 1 {
		s.SD = sd
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: n=%d mean=%.3g median=%.3g sd=%.3g", s.Class.Label, s.N, s.Mean, s.Median, s.SD)
}
