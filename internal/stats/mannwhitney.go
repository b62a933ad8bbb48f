package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// maxExactMWU bounds the sample sizes for which the exact U distribution is
// enumerated.
const maxExactMWU = 20

// MWUResult is the outcome of a Mann-Whitney U test.
type MWUResult struct {
	// U is the statistic of the first sample.
	U float64
	P float64
	// Exact is true when P comes from the exact null distribution.
	Exact bool
}

// MannWhitneyU runs the two-sided Mann-Whitney U test on x and y. Samples
// without ties and with at most 20 observations each use the exact null
// distribution; otherwise the normal approximation with tie and continuity
// correction is used.
func MannWhitneyU(x, y []float64) (MWUResult, error) {
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return MWUResult{}, fmt.Errorf("%w: empty sample (%d, %d)", ErrDegenerate, n1, n2)
	}
	for _, v := range append(append([]float64(nil), x...), y...) {
		if math.IsNaN(v) {
			return MWUResult{}, fmt.Errorf("%w: NaN in sample", ErrDegenerate)
		}
	}

	ranks, ties := rank(x, y)
	var r1 float64
	for _, r := range ranks[:n1] {
		r1 += r
	}
	u1 := r1 - float64(n1*(n1+1))/2

	if ties == 0 && n1 <= maxExactMWU && n2 <= maxExactMWU {
		return MWUResult{U: u1, P: exactMWU(n1, n2, u1), Exact: true}, nil
	}

	n := float64(n1 + n2)
	mu := float64(n1*n2) / 2
	variance := float64(n1*n2) / 12 * ((n + 1) - ties/(n*(n-1)))
	if variance <= 0 {
		return MWUResult{}, fmt.Errorf("%w: all %d observations are tied", ErrDegenerate, n1+n2)
	}
	z := (math.Abs(u1-mu) - 0.5) / math.Sqrt(variance)
	if z < 0 {
		z = 0
	}
	p := 2 * distuv.UnitNormal.Survival(z)
	return MWUResult{U: u1, P: math.Min(p, 1)}, nil
}

// rank assigns average ranks to the pooled samples (x first) and returns the
// tie term Σ(t³−t) over tie groups.
func rank(x, y []float64) ([]float64, float64) {
	type obs struct {
		v   float64
		idx int
	}
	all := make([]obs, 0, len(x)+len(y))
	for i, v := range x {
		all = append(all, obs{v, i})
	}
	for i, v := range y {
		all = append(all, obs{v, len(x) + i})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].v < all[j].v })

	ranks := make([]float64, len(all))
	var ties float64
	for i := 0; i < len(all); {
		j := i + 1
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[all[k].idx] = avg
		}
		if t := float64(j - i); t > 1 {
			ties += t*t*t - t
		}
		i = j
	}
	return ranks, ties
}

// exactMWU returns the two-sided exact p-value for U = u with sample sizes
// n1 and n2.
func exactMWU(n1, n2 int, u float64) float64 {
	counts := uCounts(n1, n2)
	var total, lower, upper float64
	for k, c := range counts {
		total += c
		if float64(k) <= u {
			lower += c
		}
		if float64(k) >= u {
			upper += c
		}
	}
	return math.Min(1, 2*math.Min(lower, upper)/total)
}

// uCounts returns, for each u, the number of orderings of n1 and n2
// observations whose U statistic is u, from the recurrence
// c(m, n, u) = c(m-1, n, u-n) + c(m, n-1, u).
func uCounts(n1, n2 int) []float64 {
	// prev[n] and cur[n] hold the distributions for m-1 and m.
	prev := make([][]float64, n2+1)
	for n := range prev {
		prev[n] = []float64{1}
	}
	for m := 1; m <= n1; m++ {
		cur := make([][]float64, n2+1)
		cur[0] = []float64{1}
		for n := 1; n <= n2; n++ {
			c := make([]float64, m*n+1)
			for u, v := range prev[n] {
				c[u+n] += v
			}
			for u, v := range cur[n-1] {
				c[u] += v
			}
			cur[n] = c
		}
		prev = cur
	}
	return prev[n2]
}
