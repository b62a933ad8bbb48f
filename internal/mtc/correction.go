package mtc

import (
	"math"
	"sort"
	"strings"
)

// Correction adjusts a family of p-values for multiple testing.
type Correction interface {
	Name() string
	// Correct returns the adjusted p-values in input order. Each value lies
	// between the nominal p-value and 1. alpha is only used by the two-stage
	// procedures.
	Correct(p []float64, alpha float64) []float64
}

// DefaultCorrection is the name of the Benjamini-Hochberg procedure.
const DefaultCorrection = "fdr_bh"

// procedure adjusts ascending p-values.
type procedure struct {
	name   string
	adjust func(sorted []float64, alpha float64) []float64
}

var procedures = map[string]procedure{
	"bonferroni":     {"bonferroni", bonferroni},
	"sidak":          {"sidak", sidak},
	"holm":           {"holm", holm},
	"holm-sidak":     {"holm-sidak", holmSidak},
	"simes-hochberg": {"simes-hochberg", simesHochberg},
	"hommel":         {"hommel", hommel},
	"fdr_bh":         {"fdr_bh", func(p []float64, _ float64) []float64 { return benjaminiHochberg(p) }},
	"fdr_by":         {"fdr_by", benjaminiYekutieli},
	"fdr_tsbh":       {"fdr_tsbh", func(p []float64, alpha float64) []float64 { return twoStage(p, alpha, 1) }},
	"fdr_tsbky":      {"fdr_tsbky", func(p []float64, alpha float64) []float64 { return twoStage(p, alpha, 1+alpha) }},
}

// Corrections returns the supported procedure names, sorted.
func Corrections() []string {
	out := make([]string, 0, len(procedures))
	for name := range procedures {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ParseCorrection returns the procedure with the given name. "bh" and "by"
// are accepted as aliases of fdr_bh and fdr_by.
func ParseCorrection(name string) (Correction, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "":
		n = DefaultCorrection
	case "bh", "benjamini-hochberg":
		n = "fdr_bh"
	case "by", "benjamini-yekutieli":
		n = "fdr_by"
	}
	p, ok := procedures[n]
	if !ok {
		return nil, configError("unknown correction %q (supported: %s)", name, strings.Join(Corrections(), ", "))
	}
	return p, nil
}

func (p procedure) Name() string { return p.name }

func (p procedure) Correct(pvals []float64, alpha float64) []float64 {
	n := len(pvals)
	if n == 0 {
		return nil
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })
	sorted := make([]float64, n)
	for i, idx := range order {
		sorted[i] = pvals[idx]
	}

	adjusted := p.adjust(sorted, alpha)
	out := make([]float64, n)
	for i, idx := range order {
		out[idx] = math.Min(1, math.Max(adjusted[i], pvals[idx]))
	}
	return out
}

func bonferroni(p []float64, _ float64) []float64 {
	n := float64(len(p))
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = v * n
	}
	return out
}

// sidakAdjust returns 1-(1-p)^k.
func sidakAdjust(p float64, k int) float64 {
	return -math.Expm1(float64(k) * math.Log1p(-p))
}

func sidak(p []float64, _ float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = sidakAdjust(v, len(p))
	}
	return out
}

// stepDown enforces a non-decreasing sequence from the smallest p-value up.
func stepDown(v []float64) []float64 {
	for i := 1; i < len(v); i++ {
		v[i] = math.Max(v[i], v[i-1])
	}
	return v
}

// stepUp enforces a non-decreasing sequence from the largest p-value down.
func stepUp(v []float64) []float64 {
	for i := len(v) - 2; i >= 0; i-- {
		v[i] = math.Min(v[i], v[i+1])
	}
	return v
}

func holm(p []float64, _ float64) []float64 {
	n := len(p)
	out := make([]float64, n)
	for i, v := range p {
		out[i] = v * float64(n-i)
	}
	return stepDown(out)
}

func holmSidak(p []float64, _ float64) []float64 {
	n := len(p)
	out := make([]float64, n)
	for i, v := range p {
		out[i] = sidakAdjust(v, n-i)
	}
	return stepDown(out)
}

func simesHochberg(p []float64, _ float64) []float64 {
	n := len(p)
	out := make([]float64, n)
	for i, v := range p {
		out[i] = v * float64(n-i)
	}
	return stepUp(out)
}

func hommel(p []float64, _ float64) []float64 {
	n := len(p)
	a := append([]float64(nil), p...)
	for m := n; m > 1; m-- {
		// cim = min over the m largest p-values of m*p/k.
		cim := math.Inf(1)
		for k := 1; k <= m; k++ {
			cim = math.Min(cim, float64(m)*p[n-m+k-1]/float64(k))
		}
		for i := n - m; i < n; i++ {
			a[i] = math.Max(a[i], cim)
		}
		for i := 0; i < n-m; i++ {
			a[i] = math.Max(a[i], math.Min(float64(m)*p[i], cim))
		}
	}
	return a
}

func benjaminiHochberg(p []float64) []float64 {
	n := float64(len(p))
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = v * n / float64(i+1)
	}
	return stepUp(out)
}

func benjaminiYekutieli(p []float64, _ float64) []float64 {
	var cm float64
	for k := 1; k <= len(p); k++ {
		cm += 1 / float64(k)
	}
	out := benjaminiHochberg(p)
	for i := range out {
		out[i] *= cm
	}
	return stepUp(out)
}

// twoStage is the adaptive Benjamini-Krieger-Yekutieli procedure. The first
// BH stage at alpha/fact estimates the number of true nulls, which then
// rescales the BH-adjusted p-values.
func twoStage(p []float64, alpha, fact float64) []float64 {
	n := len(p)
	bh := benjaminiHochberg(p)
	rejected := 0
	for _, v := range bh {
		if v <= alpha/fact {
			rejected++
		}
	}
	scale := fact
	if rejected > 0 && rejected < n {
		scale *= float64(n-rejected) / float64(n)
	}
	for i := range bh {
		bh[i] *= scale
	}
	return stepUp(bh)
}
