// Package genotype assigns individuals to discrete genotype classes based on
// the alleles they carry.
package genotype

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/predicate"
)

// ErrInvalidConfig is wrapped by every classifier construction error.
var ErrInvalidConfig = errors.New("invalid genotype classifier configuration")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Class is one genotype category. IDs number a classifier's classes from 0;
// a Filtering classifier keeps the IDs of the classes it retains.
type Class struct {
	ID          int
	Label       string
	Description string
}

func (c Class) String() string { return c.Label }

// Classifier maps an individual to at most one of a fixed set of classes.
// Classify returns false when the individual fits no class and must be
// omitted from the analysis.
type Classifier interface {
	Name() string
	Description() string
	Classes() []Class
	Classify(ind *cohort.Individual) (Class, bool)
}

// AlleleCounter counts the alleles of an individual matching a predicate.
type AlleleCounter struct {
	pred predicate.Predicate
}

// NewAlleleCounter returns a counter for p.
func NewAlleleCounter(p predicate.Predicate) *AlleleCounter {
	return &AlleleCounter{pred: p}
}

// Predicate returns the counted predicate.
func (c *AlleleCounter) Predicate() predicate.Predicate { return c.pred }

// Count sums the zygosity-weighted alleles of every matching variant.
func (c *AlleleCounter) Count(ind *cohort.Individual) int {
	n := 0
	for _, gv := range ind.Variants {
		if c.pred.Test(gv.Variant) {
			n += gv.AlleleCount()
		}
	}
	return n
}

// base carries the fixed class list shared by the built-in classifiers.
type base struct {
	name    string
	desc    string
	classes []Class
}

func (b *base) Name() string        { return b.name }
func (b *base) Description() string { return b.desc }

func (b *base) Classes() []Class {
	out := make([]Class, len(b.classes))
	copy(out, b.classes)
	return out
}

func newClasses(labels ...string) []Class {
	out := make([]Class, len(labels))
	for i, l := range labels {
		out[i] = Class{ID: i, Label: l}
	}
	return out
}

// Monoallelic compares individuals carrying exactly one allele matching A
// with those carrying exactly one allele matching B.
type Monoallelic struct {
	base
	a, b *AlleleCounter
}

// NewMonoallelic builds a two-class classifier. Allele count pairs other
// than (1,0) and (0,1) are omitted.
func NewMonoallelic(a, b predicate.Predicate, aLabel, bLabel string) (*Monoallelic, error) {
	if a == nil || b == nil {
		return nil, configError("monoallelic classifier needs two predicates")
	}
	if aLabel == "" {
		aLabel = "A"
	}
	if bLabel == "" {
		bLabel = "B"
	}
	if aLabel == bLabel {
		return nil, configError("monoallelic labels must differ, got %q twice", aLabel)
	}
	classes := newClasses(aLabel, bLabel)
	classes[0].Description = "one allele: " + a.Description()
	classes[1].Description = "one allele: " + b.Description()
	return &Monoallelic{
		base: base{
			name:    "Allele group",
			desc:    fmt.Sprintf("Compare %s (%s) with %s (%s) alleles", aLabel, a.Name(), bLabel, b.Name()),
			classes: classes,
		},
		a: NewAlleleCounter(a),
		b: NewAlleleCounter(b),
	}, nil
}

func (m *Monoallelic) Classify(ind *cohort.Individual) (Class, bool) {
	switch a, b := m.a.Count(ind), m.b.Count(ind); {
	case a == 1 && b == 0:
		return m.classes[0], true
	case a == 0 && b == 1:
		return m.classes[1], true
	}
	return Class{}, false
}

// Biallelic categorises individuals by the pair (count A, count B):
// (2,0) is A/A, (1,1) is A/B and (0,2) is B/B. Partitions merge these
// three categories into coarser classes.
type Biallelic struct {
	base
	a, b    *AlleleCounter
	classOf [3]int
}

// NewBiallelic builds a biallelic classifier. partitions must be a set
// partition of {0, 1, 2}; nil keeps the three categories.
func NewBiallelic(a, b predicate.Predicate, aLabel, bLabel string, partitions [][]int) (*Biallelic, error) {
	if a == nil || b == nil {
		return nil, configError("biallelic classifier needs two predicates")
	}
	if aLabel == "" {
		aLabel = "A"
	}
	if bLabel == "" {
		bLabel = "B"
	}
	if aLabel == bLabel {
		return nil, configError("biallelic labels must differ, got %q twice", aLabel)
	}
	cats := []string{aLabel + "/" + aLabel, aLabel + "/" + bLabel, bLabel + "/" + bLabel}
	if partitions == nil {
		partitions = [][]int{{0}, {1}, {2}}
	}

	bi := &Biallelic{a: NewAlleleCounter(a), b: NewAlleleCounter(b)}
	covered := [3]bool{}
	for id, part := range partitions {
		if len(part) == 0 {
			return nil, configError("biallelic partition %d is empty", id)
		}
		labels := make([]string, len(part))
		for i, idx := range part {
			if idx < 0 || idx > 2 {
				return nil, configError("biallelic partition index %d out of range [0,2]", idx)
			}
			if covered[idx] {
				return nil, configError("biallelic partition index %d appears more than once", idx)
			}
			covered[idx] = true
			bi.classOf[idx] = id
			labels[i] = cats[idx]
		}
		bi.classes = append(bi.classes, Class{ID: id, Label: strings.Join(labels, " OR ")})
	}
	for idx, ok := range covered {
		if !ok {
			return nil, configError("biallelic partitions do not cover index %d", idx)
		}
	}
	if len(bi.classes) < 2 {
		return nil, configError("biallelic partitions must yield at least two classes")
	}
	bi.name = "Biallelic allele group"
	bi.desc = fmt.Sprintf("Compare %s (%s) and %s (%s) biallelic genotypes", aLabel, a.Name(), bLabel, b.Name())
	return bi, nil
}

func (bi *Biallelic) Classify(ind *cohort.Individual) (Class, bool) {
	cat := -1
	switch a, b := bi.a.Count(ind), bi.b.Count(ind); {
	case a == 2 && b == 0:
		cat = 0
	case a == 1 && b == 1:
		cat = 1
	case a == 0 && b == 2:
		cat = 2
	}
	if cat < 0 {
		return Class{}, false
	}
	return bi.classes[bi.classOf[cat]], true
}

// AlleleCount assigns the class whose target count set contains the
// individual's allele count.
type AlleleCount struct {
	base
	counter *AlleleCounter
	classOf map[int]int
}

// NewAlleleCount builds a classifier with one class per target count set,
// e.g. [][]int{{0}, {1, 2}}. Count sets must be non-empty and disjoint.
func NewAlleleCount(p predicate.Predicate, counts [][]int) (*AlleleCount, error) {
	if p == nil {
		return nil, configError("allele count classifier needs a predicate")
	}
	if len(counts) < 2 {
		return nil, configError("allele count classifier needs at least two count sets, got %d", len(counts))
	}
	ac := &AlleleCount{counter: NewAlleleCounter(p), classOf: make(map[int]int)}
	for id, set := range counts {
		if len(set) == 0 {
			return nil, configError("allele count set %d is empty", id)
		}
		parts := make([]string, len(set))
		for i, n := range set {
			if n < 0 {
				return nil, configError("negative allele count %d", n)
			}
			if _, dup := ac.classOf[n]; dup {
				return nil, configError("allele count %d appears in more than one set", n)
			}
			ac.classOf[n] = id
			parts[i] = fmt.Sprint(n)
		}
		ac.classes = append(ac.classes, Class{
			ID:          id,
			Label:       strings.Join(parts, " OR "),
			Description: fmt.Sprintf("allele count of %s", strings.Join(parts, " or ")),
		})
	}
	ac.name = "Allele count"
	ac.desc = fmt.Sprintf("Allele count of %s", p.Name())
	return ac, nil
}

func (ac *AlleleCount) Classify(ind *cohort.Individual) (Class, bool) {
	id, ok := ac.classOf[ac.counter.Count(ind)]
	if !ok {
		return Class{}, false
	}
	return ac.classes[id], true
}
