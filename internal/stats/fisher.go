package stats

import (
	"fmt"
	"math"

	fet "github.com/glycerine/golang-fisher-exact"
	"gonum.org/v1/gonum/stat/combin"
)

// relErr is the relative tolerance used when comparing table probabilities
// against the observed one.
const relErr = 1 + 1e-7

// FisherExact returns the two-sided p-value of Fisher's exact test for a 2×C
// or R×2 table: the total probability of all tables with the same margins that
// are no more likely than the observed one.
func FisherExact(table [][]int) (float64, error) {
	t, err := twoRows(table)
	if err != nil {
		return 0, err
	}
	if len(t[0]) == 2 {
		_, _, _, p := fet.FisherExactTest(t[0][0], t[0][1], t[1][0], t[1][1])
		return math.Min(p, 1), nil
	}
	return fisher2xC(t), nil
}

// twoRows validates the table and returns it with two rows.
func twoRows(table [][]int) ([][]int, error) {
	if len(table) == 0 || len(table[0]) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrDegenerate)
	}
	cols := len(table[0])
	total := 0
	for _, row := range table {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: ragged table", ErrShape)
		}
		for _, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("%w: negative count %d", ErrShape, v)
			}
			total += v
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: table %v has no observations", ErrDegenerate, table)
	}
	switch {
	case len(table) == 2 && cols >= 2:
		return table, nil
	case cols == 2 && len(table) > 2:
		t := [][]int{make([]int, len(table)), make([]int, len(table))}
		for i, row := range table {
			t[0][i], t[1][i] = row[0], row[1]
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: %dx%d", ErrShape, len(table), cols)
}

// fisher2xC enumerates every first row consistent with the margins.
func fisher2xC(t [][]int) float64 {
	cols := len(t[0])
	colSums := make([]int, cols)
	row0, n := 0, 0
	for j := range cols {
		colSums[j] = t[0][j] + t[1][j]
		row0 += t[0][j]
		n += colSums[j]
	}
	denom := combin.LogGeneralizedBinomial(float64(n), float64(row0))
	logProb := func(x []int) float64 {
		lp := -denom
		for j, v := range x {
			lp += combin.LogGeneralizedBinomial(float64(colSums[j]), float64(v))
		}
		return lp
	}
	observed := math.Exp(logProb(t[0]))

	// remaining[j] is the largest count columns j.. can absorb.
	remaining := make([]int, cols+1)
	for j := cols - 1; j >= 0; j-- {
		remaining[j] = remaining[j+1] + colSums[j]
	}

	var p float64
	x := make([]int, cols)
	var walk func(j, left int)
	walk = func(j, left int) {
		if j == cols-1 {
			if left > colSums[j] {
				return
			}
			x[j] = left
			if q := math.Exp(logProb(x)); q <= observed*relErr {
				p += q
			}
			return
		}
		lo := max(0, left-remaining[j+1])
		hi := min(colSums[j], left)
		for v := lo; v <= hi; v++ {
			x[j] = v
			walk(j+1, left-v)
		}
	}
	walk(0, row0)
	return math.Min(p, 1)
}

// OddsRatio returns (a·d)/(b·c) for the 2×2 table [[a,b],[c,d]]. It reports
// false when the table is not 2×2 or the ratio is undefined.
func OddsRatio(table [][]int) (float64, bool) {
	if len(table) != 2 || len(table[0]) != 2 || len(table[1]) != 2 {
		return 0, false
	}
	a, b := float64(table[0][0]), float64(table[0][1])
	c, d := float64(table[1][0]), float64(table[1][1])
	num, den := a*d, b*c
	switch {
	case den == 0 && num == 0:
		return 0, false
	case den == 0:
		return math.Inf(1), true
	}
	return num / den, true
}
