package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TTestResult is the outcome of a two-sample t-test.
type TTestResult struct {
	T  float64
	DF float64
	P  float64
}

// TTest runs the two-sided Student's t-test with pooled variance.
func TTest(x, y []float64) (TTestResult, error) {
	n1, n2 := float64(len(x)), float64(len(y))
	if len(x) < 2 || len(y) < 2 {
		return TTestResult{}, fmt.Errorf("%w: t-test needs two observations per sample (%d, %d)", ErrDegenerate, len(x), len(y))
	}
	m1, v1 := stat.MeanVariance(x, nil)
	m2, v2 := stat.MeanVariance(y, nil)
	df := n1 + n2 - 2
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	if pooled == 0 || math.IsNaN(pooled) {
		return TTestResult{}, fmt.Errorf("%w: zero variance", ErrDegenerate)
	}
	t := (m1 - m2) / math.Sqrt(pooled*(1/n1+1/n2))
	p := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(math.Abs(t))
	return TTestResult{T: t, DF: df, P: math.Min(p, 1)}, nil
}
