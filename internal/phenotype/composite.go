package phenotype

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/ontology"
)

// Section is one additive component of a composite score.
type Section interface {
	Name() string
	// Max is the largest value Points can return.
	Max() float64
	Points(ind *cohort.Individual, c *ontology.Closure) float64
}

// Precedence decides how a LookupSection combines several matching terms.
type Precedence int

const (
	// MostSpecific ignores matches that are ancestors of other matches and
	// takes the highest value among the rest.
	MostSpecific Precedence = iota
	// Highest takes the highest value among all matches.
	Highest
	// Sum adds the values of the most specific matches.
	Sum
)

func (p Precedence) String() string {
	switch p {
	case MostSpecific:
		return "most-specific"
	case Highest:
		return "highest"
	case Sum:
		return "sum"
	}
	return fmt.Sprintf("Precedence(%d)", int(p))
}

// LookupSection scores implied-present terms from a fixed term -> points
// table. The result is capped at max.
type LookupSection struct {
	name       string
	graph      ontology.Graph
	points     map[ontology.TermID]float64
	precedence Precedence
	max        float64
}

// NewLookupSection validates that every table term exists in g.
func NewLookupSection(name string, g ontology.Graph, points map[ontology.TermID]float64, precedence Precedence, maxPoints float64) (*LookupSection, error) {
	if len(points) == 0 {
		return nil, configError("section %q has no terms", name)
	}
	if maxPoints <= 0 {
		return nil, configError("section %q needs a positive maximum", name)
	}
	if precedence < MostSpecific || precedence > Sum {
		return nil, configError("section %q has unknown precedence %v", name, precedence)
	}
	table := make(map[ontology.TermID]float64, len(points))
	for t, v := range points {
		term, ok := g.Term(t)
		if !ok {
			return nil, configError("section %q: term %s is not in ontology %s", name, t, g.Version())
		}
		if v < 0 {
			return nil, configError("section %q: negative points for %s", name, t)
		}
		table[term.ID] = v
	}
	return &LookupSection{name: name, graph: g, points: table, precedence: precedence, max: maxPoints}, nil
}

func (s *LookupSection) Name() string { return s.name }
func (s *LookupSection) Max() float64 { return s.max }

func (s *LookupSection) Points(_ *cohort.Individual, c *ontology.Closure) float64 {
	var matches []ontology.TermID
	for t := range s.points {
		if c.IsPresent(t) {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return 0
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })
	if s.precedence != Highest {
		matches = s.mostSpecific(matches)
	}

	var total float64
	for _, t := range matches {
		v := s.points[t]
		if s.precedence == Sum {
			total += v
		} else {
			total = math.Max(total, v)
		}
	}
	return math.Min(total, s.max)
}

func (s *LookupSection) mostSpecific(terms []ontology.TermID) []ontology.TermID {
	var out []ontology.TermID
	for _, t := range terms {
		general := false
		for _, other := range terms {
			if other != t && s.graph.IsDescendantOf(other, t) {
				general = true
				break
			}
		}
		if !general {
			out = append(out, t)
		}
	}
	return out
}

// Threshold awards Points once at least Count terms are observed.
type Threshold struct {
	Count  int
	Points float64
}

// CountSection counts the directly observed terms within the subtrees of its
// roots and awards the points of the highest threshold reached.
type CountSection struct {
	name       string
	graph      ontology.Graph
	roots      []ontology.TermID
	thresholds []Threshold
}

// NewCountSection builds a section from roots and thresholds.
func NewCountSection(name string, g ontology.Graph, roots []ontology.TermID, thresholds []Threshold) (*CountSection, error) {
	if len(roots) == 0 {
		return nil, configError("section %q has no roots", name)
	}
	if len(thresholds) == 0 {
		return nil, configError("section %q has no thresholds", name)
	}
	s := &CountSection{name: name, graph: g}
	for _, r := range roots {
		t, ok := g.Term(r)
		if !ok {
			return nil, configError("section %q: root %s is not in ontology %s", name, r, g.Version())
		}
		s.roots = append(s.roots, t.ID)
	}
	s.thresholds = append([]Threshold(nil), thresholds...)
	sort.Slice(s.thresholds, func(i, j int) bool { return s.thresholds[i].Count < s.thresholds[j].Count })
	for _, th := range s.thresholds {
		if th.Count < 1 || th.Points < 0 {
			return nil, configError("section %q: invalid threshold %+v", name, th)
		}
	}
	return s, nil
}

func (s *CountSection) Name() string { return s.name }

func (s *CountSection) Max() float64 {
	var m float64
	for _, th := range s.thresholds {
		m = math.Max(m, th.Points)
	}
	return m
}

func (s *CountSection) Points(ind *cohort.Individual, _ *ontology.Closure) float64 {
	seen := make(map[ontology.TermID]bool)
	for _, t := range ind.ObservedTerms() {
		if seen[t] {
			continue
		}
		for _, r := range s.roots {
			if t == r || s.graph.IsDescendantOf(t, r) {
				seen[t] = true
				break
			}
		}
	}
	var pts float64
	for _, th := range s.thresholds {
		if len(seen) >= th.Count {
			pts = math.Max(pts, th.Points)
		}
	}
	return pts
}

// CompositeScorer sums the points of independent sections.
type CompositeScorer struct {
	name     string
	sections []Section
	resolver *ontology.Resolver
}

// NewCompositeScorer returns a scorer summing sections.
func NewCompositeScorer(name string, r *ontology.Resolver, sections ...Section) (*CompositeScorer, error) {
	if r == nil {
		return nil, configError("composite scorer needs a resolver")
	}
	if len(sections) == 0 {
		return nil, configError("composite scorer %q has no sections", name)
	}
	return &CompositeScorer{name: name, sections: sections, resolver: r}, nil
}

func (cs *CompositeScorer) Name() string { return cs.name }

func (cs *CompositeScorer) Description() string {
	names := make([]string, len(cs.sections))
	for i, s := range cs.sections {
		names[i] = fmt.Sprintf("%s (0-%g)", s.Name(), s.Max())
	}
	return fmt.Sprintf("%s, range 0-%g: %s", cs.name, cs.Max(), strings.Join(names, ", "))
}

// Max returns the largest attainable score.
func (cs *CompositeScorer) Max() float64 {
	var m float64
	for _, s := range cs.sections {
		m += s.Max()
	}
	return m
}

func (cs *CompositeScorer) Score(ind *cohort.Individual) (float64, bool) {
	c, err := cs.resolver.Resolve(ind)
	if err != nil {
		return 0, false
	}
	var total float64
	for _, s := range cs.sections {
		total += s.Points(ind, c)
	}
	return total, true
}

// SectionScores returns each section's points, in section order.
func (cs *CompositeScorer) SectionScores(ind *cohort.Individual) ([]float64, error) {
	c, err := cs.resolver.Resolve(ind)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cs.sections))
	for i, s := range cs.sections {
		out[i] = s.Points(ind, c)
	}
	return out, nil
}

// HPO terms used by the De Vries score.
const (
	globalDevelopmentalDelay         ontology.TermID = "HP:0001263"
	mildGlobalDevelopmentalDelay     ontology.TermID = "HP:0011342"
	moderateGlobalDevelopmentalDelay ontology.TermID = "HP:0011343"
	severeGlobalDevelopmentalDelay   ontology.TermID = "HP:0011344"
	profoundGlobalDevelopmentalDelay ontology.TermID = "HP:0012736"
	intellectualDisability           ontology.TermID = "HP:0001249"
	borderlineIntellectualDisability ontology.TermID = "HP:0006889"
	mildIntellectualDisability       ontology.TermID = "HP:0001256"
	moderateIntellectualDisability   ontology.TermID = "HP:0002342"
	severeIntellectualDisability     ontology.TermID = "HP:0010864"
	profoundIntellectualDisability   ontology.TermID = "HP:0002187"

	prenatalGrowthRetardation ontology.TermID = "HP:0001511"
	microcephaly              ontology.TermID = "HP:0000252"
	macrocephaly              ontology.TermID = "HP:0000256"
	shortStature              ontology.TermID = "HP:0004322"
	tallStature               ontology.TermID = "HP:0000098"

	abnormalityOfTheFace    ontology.TermID = "HP:0000271"
	abnormalHandMorphology  ontology.TermID = "HP:0001155"
	abnormalFootMorphology  ontology.TermID = "HP:0001760"
	abnormalHeartMorphology ontology.TermID = "HP:0001627"
	hypospadias             ontology.TermID = "HP:0000047"
)

// NewDeVriesScorer builds the De Vries clinical checklist for developmental
// disorders, without the family-history item:
//
//	developmental delay                     0-2  most specific term wins
//	prenatal-onset growth retardation       0-2
//	postnatal growth abnormalities          0-2  1 per feature
//	facial dysmorphism                      0-2  2 for two or more features
//	non-facial dysmorphism/congenital anom. 0-2  1 per feature
//
// Terms absent from g are left out of the tables.
func NewDeVriesScorer(r *ontology.Resolver) (*CompositeScorer, error) {
	if r == nil {
		return nil, configError("De Vries scorer needs a resolver")
	}
	g := r.Graph()
	known := func(in map[ontology.TermID]float64) map[ontology.TermID]float64 {
		out := make(map[ontology.TermID]float64, len(in))
		for t, v := range in {
			if _, ok := g.Term(t); ok {
				out[t] = v
			}
		}
		return out
	}
	knownRoots := func(in ...ontology.TermID) []ontology.TermID {
		var out []ontology.TermID
		for _, t := range in {
			if _, ok := g.Term(t); ok {
				out = append(out, t)
			}
		}
		return out
	}

	dd, err := NewLookupSection("Developmental delay", g, known(map[ontology.TermID]float64{
		globalDevelopmentalDelay:         1,
		mildGlobalDevelopmentalDelay:     1,
		moderateGlobalDevelopmentalDelay: 2,
		severeGlobalDevelopmentalDelay:   2,
		profoundGlobalDevelopmentalDelay: 2,
		intellectualDisability:           1,
		borderlineIntellectualDisability: 1,
		mildIntellectualDisability:       1,
		moderateIntellectualDisability:   2,
		severeIntellectualDisability:     2,
		profoundIntellectualDisability:   2,
	}), MostSpecific, 2)
	if err != nil {
		return nil, err
	}
	prenatal, err := NewLookupSection("Prenatal-onset growth retardation", g, known(map[ontology.TermID]float64{
		prenatalGrowthRetardation: 2,
	}), Highest, 2)
	if err != nil {
		return nil, err
	}
	postnatal, err := NewLookupSection("Postnatal growth abnormalities", g, known(map[ontology.TermID]float64{
		microcephaly: 1,
		macrocephaly: 1,
		shortStature: 1,
		tallStature:  1,
	}), Sum, 2)
	if err != nil {
		return nil, err
	}
	facial, err := NewCountSection("Facial dysmorphism", g, knownRoots(abnormalityOfTheFace),
		[]Threshold{{Count: 2, Points: 2}})
	if err != nil {
		return nil, err
	}
	congenital, err := NewCountSection("Non-facial dysmorphism and congenital abnormalities", g,
		knownRoots(abnormalHandMorphology, abnormalFootMorphology, abnormalHeartMorphology, hypospadias),
		[]Threshold{{Count: 1, Points: 1}, {Count: 2, Points: 2}})
	if err != nil {
		return nil, err
	}
	return NewCompositeScorer("De Vries score", r, dd, prenatal, postnatal, facial, congenital)
}
