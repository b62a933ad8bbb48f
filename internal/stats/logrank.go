package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inodb/vibe-gpa/internal/phenotype"
)

// LogRankResult is the outcome of a log-rank test.
type LogRankResult struct {
	ChiSquare float64
	DF        int
	P         float64
	// Observed and Expected hold the event counts per non-empty group.
	Observed []float64
	Expected []float64
}

// LogRank compares the survival of k groups. Empty groups are ignored; at
// least two non-empty groups and one event are required, and a singular
// covariance (e.g. all observations at the same time) is degenerate.
func LogRank(groups [][]phenotype.Survival) (LogRankResult, error) {
	var gs [][]phenotype.Survival
	for _, g := range groups {
		if len(g) > 0 {
			gs = append(gs, g)
		}
	}
	k := len(gs)
	if k < 2 {
		return LogRankResult{}, fmt.Errorf("%w: log-rank needs two non-empty groups, got %d", ErrDegenerate, k)
	}

	var times []float64
	for _, g := range gs {
		for _, s := range g {
			if math.IsNaN(s.Days) {
				return LogRankResult{}, fmt.Errorf("%w: NaN survival time", ErrDegenerate)
			}
			if !s.Censored {
				times = append(times, s.Days)
			}
		}
	}
	if len(times) == 0 {
		return LogRankResult{}, fmt.Errorf("%w: no events", ErrDegenerate)
	}
	sort.Float64s(times)
	times = uniq(times)

	observed := make([]float64, k)
	expected := make([]float64, k)
	cov := mat.NewSymDense(k-1, nil)
	atRisk := make([]float64, k)
	events := make([]float64, k)
	for _, t := range times {
		var n, d float64
		for i, g := range gs {
			atRisk[i], events[i] = 0, 0
			for _, s := range g {
				if s.Days >= t {
					atRisk[i]++
					if s.Days == t && !s.Censored {
						events[i]++
					}
				}
			}
			n += atRisk[i]
			d += events[i]
		}
		for i := range gs {
			observed[i] += events[i]
			expected[i] += d * atRisk[i] / n
		}
		if n <= 1 {
			continue
		}
		f := d * (n - d) / (n - 1)
		for i := 0; i < k-1; i++ {
			for j := i; j < k-1; j++ {
				v := -f * atRisk[i] * atRisk[j] / (n * n)
				if i == j {
					v += f * atRisk[i] / n
				}
				cov.SetSym(i, j, cov.At(i, j)+v)
			}
		}
	}

	diff := mat.NewVecDense(k-1, nil)
	for i := 0; i < k-1; i++ {
		diff.SetVec(i, observed[i]-expected[i])
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return LogRankResult{}, fmt.Errorf("%w: singular log-rank covariance", ErrDegenerate)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, diff); err != nil {
		return LogRankResult{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	chi2 := mat.Dot(diff, &x)
	df := k - 1
	p := distuv.ChiSquared{K: float64(df)}.Survival(chi2)
	return LogRankResult{
		ChiSquare: chi2,
		DF:        df,
		P:         math.Min(p, 1),
		Observed:  observed,
		Expected:  expected,
	}, nil
}

func uniq(sorted []float64) []float64 {
	var out []float64
	for _, v := range sorted {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
