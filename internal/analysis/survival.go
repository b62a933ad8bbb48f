package analysis

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/genotype"
	"github.com/inodb/vibe-gpa/internal/phenotype"
	"github.com/inodb/vibe-gpa/internal/stats"
)

// SurvivalAnalysis compares time-to-event endpoints across genotype classes.
// A nil Statistic selects the log-rank test.
type SurvivalAnalysis struct {
	Statistic stats.SurvivalStatistic
	Logger    *zap.Logger
}

// SurvivalPoint is one individual's endpoint.
type SurvivalPoint struct {
	IndividualID string
	Class        genotype.Class
	Survival     phenotype.Survival
}

// SurvivalSummary describes the endpoint in one genotype class.
type SurvivalSummary struct {
	Class  genotype.Class
	N      int
	Events int
	// MedianEventDays is the median time among uncensored observations.
	MedianEventDays float64
}

// SurvivalResult is the outcome of a survival analysis.
type SurvivalResult struct {
	Config          Identity
	GenotypeClasses []genotype.Class
	Assignments     []Assignment
	Points          []SurvivalPoint
	Summaries       []SurvivalSummary
	P               float64
}

// Run computes the endpoint for every assigned individual and compares the
// genotype classes. Individuals without a computable endpoint are left out.
func (a *SurvivalAnalysis) Run(c *cohort.Cohort, gt genotype.Classifier, endpoint phenotype.Endpoint) (*SurvivalResult, error) {
	statistic := a.Statistic
	if statistic == nil {
		statistic = stats.LogRankTest{}
	}
	if gt == nil || endpoint == nil || c == nil {
		return nil, configError("survival analysis needs a cohort, a genotype classifier and an endpoint")
	}
	classes := gt.Classes()
	if len(classes) < 2 {
		return nil, configError("survival analysis needs at least 2 genotype classes, %s has %d", gt.Name(), len(classes))
	}
	log := a.Logger
	if log == nil {
		log = zap.NewNop()
	}

	assignments, groups := assign(c, gt)
	res := &SurvivalResult{
		Config: Identity{
			GenotypeClassifier: gt.Name(),
			Phenotype:          endpoint.Name(),
			Statistic:          statistic.Name(),
		},
		GenotypeClasses: classes,
		Assignments:     assignments,
	}
	data := make([][]phenotype.Survival, len(classes))
	for col, g := range groups {
		for _, ind := range g {
			s, ok := endpoint.Compute(ind)
			if !ok {
				continue
			}
			data[col] = append(data[col], s)
			res.Points = append(res.Points, SurvivalPoint{IndividualID: ind.ID, Class: classes[col], Survival: s})
		}
	}
	for col, d := range data {
		sum := SurvivalSummary{Class: classes[col], N: len(d), MedianEventDays: math.NaN()}
		var events []float64
		for _, s := range d {
			if !s.Censored {
				events = append(events, s.Days)
			}
		}
		sum.Events = len(events)
		if m, err := mstats.Median(mstats.LoadRawData(events)); err == nil {
			sum.MedianEventDays = m
		}
		res.Summaries = append(res.Summaries, sum)
	}

	p, err := statistic.Compute(data)
	if err != nil {
		serr := &StatisticError{Key: endpoint.Name(), Test: statistic.Name(), Survival: data, Err: err}
		log.Error("statistic failed", zap.Error(serr))
		return nil, serr
	}
	res.P = p
	log.Info("compared survival", zap.String("endpoint", endpoint.Name()), zap.Float64("p", p))
	return res, nil
}
