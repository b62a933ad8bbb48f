// Package stats implements the hypothesis tests used to compare genotype
// classes: Fisher's exact test on count tables, Mann-Whitney U and Student's
// t-test on scores, and the log-rank test on survival data.
package stats

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-gpa/internal/phenotype"
)

var (
	// ErrDegenerate is wrapped when the input leaves the statistic undefined,
	// e.g. an empty sample or zero variance.
	ErrDegenerate = errors.New("degenerate test input")
	// ErrShape is returned for tables the test does not support.
	ErrShape = errors.New("unsupported table shape")
	// ErrInvalidConfig is wrapped when a statistic name is not recognised.
	ErrInvalidConfig = errors.New("invalid statistic configuration")
)

// CountStatistic tests a contingency table with phenotype classes as rows and
// genotype classes as columns.
type CountStatistic interface {
	Name() string
	Compute(table [][]int) (float64, error)
}

// ScoreStatistic compares the scores of two genotype classes.
type ScoreStatistic interface {
	Name() string
	Compute(x, y []float64) (float64, error)
}

// SurvivalStatistic compares time-to-event data across genotype classes.
type SurvivalStatistic interface {
	Name() string
	Compute(groups [][]phenotype.Survival) (float64, error)
}

// Fisher is the two-sided Fisher exact test.
type Fisher struct{}

func (Fisher) Name() string                           { return "Fisher exact test" }
func (Fisher) Compute(table [][]int) (float64, error) { return FisherExact(table) }

// MannWhitney is the two-sided Mann-Whitney U test.
type MannWhitney struct{}

func (MannWhitney) Name() string { return "Mann-Whitney U test" }

func (MannWhitney) Compute(x, y []float64) (float64, error) {
	r, err := MannWhitneyU(x, y)
	if err != nil {
		return 0, err
	}
	return r.P, nil
}

// Student is the two-sided pooled-variance t-test.
type Student struct{}

func (Student) Name() string { return "t-test" }

func (Student) Compute(x, y []float64) (float64, error) {
	r, err := TTest(x, y)
	if err != nil {
		return 0, err
	}
	return r.P, nil
}

// LogRankTest is the log-rank test.
type LogRankTest struct{}

func (LogRankTest) Name() string { return "Log-rank test" }

func (LogRankTest) Compute(groups [][]phenotype.Survival) (float64, error) {
	r, err := LogRank(groups)
	if err != nil {
		return 0, err
	}
	return r.P, nil
}

// ParseScoreStatistic maps "mwu"/"mann-whitney" and "t"/"t-test" to a
// statistic.
func ParseScoreStatistic(name string) (ScoreStatistic, error) {
	switch name {
	case "", "mwu", "mann-whitney":
		return MannWhitney{}, nil
	case "t", "t-test", "ttest":
		return Student{}, nil
	}
	return nil, fmt.Errorf("%w: unknown score statistic %q", ErrInvalidConfig, name)
}
