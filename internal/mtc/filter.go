package mtc

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/ontology"
)

// Reason identifies the heuristic that removed a term from testing.
type Reason string

const (
	Tested                 Reason = ""
	MinimumFrequency       Reason = "HMF01"
	MinimumCount           Reason = "HMF02"
	RedundantWithChild     Reason = "HMF03"
	EmptyGenotypeClass     Reason = "HMF05"
	Underpowered           Reason = "HMF06"
	NotPhenotypicAbnormal  Reason = "HMF07"
	GeneralTerm            Reason = "HMF08"
	RareInCohort           Reason = "HMF09"
	NotInSpecifiedTermList Reason = "NOT_SPECIFIED"
)

var reasonDescriptions = map[Reason]string{
	Tested:                 "tested",
	MinimumFrequency:       "no genotype class reaches the minimum annotation frequency",
	MinimumCount:           "no genotype class has more than one individual with the term",
	RedundantWithChild:     "counts identical to a more specific term",
	EmptyGenotypeClass:     "a genotype class has no annotated individuals",
	Underpowered:           "too few annotated individuals for the table shape",
	NotPhenotypicAbnormal:  "not a descendant of the phenotypic abnormality root",
	GeneralTerm:            "direct child of the phenotypic abnormality root",
	RareInCohort:           "annotated in too small a fraction of the cohort",
	NotInSpecifiedTermList: "not in the specified term list",
}

// Description returns a human-readable explanation.
func (r Reason) Description() string {
	if d, ok := reasonDescriptions[r]; ok {
		return d
	}
	return string(r)
}

// ParseReason maps a heuristic code such as HMF03 to a Reason.
func ParseReason(code string) (Reason, error) {
	r := Reason(code)
	if _, ok := reasonDescriptions[r]; !ok || r == Tested {
		return "", configError("unknown filter heuristic %q", code)
	}
	return r, nil
}

// Candidate is a term considered for testing with its count table.
// Table rows are phenotype classes with the term present in row 0; columns
// are genotype classes.
type Candidate struct {
	Term  ontology.TermID
	Table *CountTable
	// ClassSizes is the number of individuals assigned to each genotype
	// class, annotated or not, in column order.
	ClassSizes []int
	// CohortSize is the number of individuals in the cohort.
	CohortSize int
	// Annotated is the number of individuals in the whole cohort, classified
	// by genotype or not, with the term observed or excluded.
	Annotated int
}

// Decision records whether a candidate is tested and, if not, why.
type Decision struct {
	Term   ontology.TermID
	Tested bool
	Reason Reason
}

// Filter selects the candidates to test. Select returns one decision per
// candidate, in candidate order.
type Filter interface {
	Name() string
	Select(candidates []Candidate) []Decision
}

// AllTermsFilter tests every candidate.
type AllTermsFilter struct{}

func (AllTermsFilter) Name() string { return "All terms" }

func (AllTermsFilter) Select(candidates []Candidate) []Decision {
	out := make([]Decision, len(candidates))
	for i, c := range candidates {
		out[i] = Decision{Term: c.Term, Tested: true}
	}
	return out
}

// SpecifiedTermsFilter tests only a fixed list of terms.
type SpecifiedTermsFilter struct {
	terms map[ontology.TermID]bool
}

// NewSpecifiedTermsFilter returns a filter selecting terms.
func NewSpecifiedTermsFilter(terms []ontology.TermID) (*SpecifiedTermsFilter, error) {
	if len(terms) == 0 {
		return nil, configError("specified terms filter needs at least one term")
	}
	f := &SpecifiedTermsFilter{terms: make(map[ontology.TermID]bool, len(terms))}
	for _, t := range terms {
		f.terms[t] = true
	}
	return f, nil
}

func (f *SpecifiedTermsFilter) Name() string {
	return fmt.Sprintf("Specified terms (%d)", len(f.terms))
}

func (f *SpecifiedTermsFilter) Select(candidates []Candidate) []Decision {
	out := make([]Decision, len(candidates))
	for i, c := range candidates {
		if f.terms[c.Term] {
			out[i] = Decision{Term: c.Term, Tested: true}
		} else {
			out[i] = Decision{Term: c.Term, Reason: NotInSpecifiedTermList}
		}
	}
	return out
}

// Default HPOFilter thresholds.
const (
	DefaultTermFrequencyThreshold       = 0.4
	DefaultAnnotationFrequencyThreshold = 0.1
)

// HPOFilterOptions configures an HPOFilter.
type HPOFilterOptions struct {
	// TermFrequencyThreshold is the minimum fraction of a genotype class
	// annotated with the term (HMF01).
	TermFrequencyThreshold float64
	// AnnotationFrequencyThreshold is the minimum fraction of the cohort
	// annotated with the term (HMF09).
	AnnotationFrequencyThreshold float64
	// Disabled heuristics are skipped.
	Disabled []Reason
}

// DefaultHPOFilterOptions enables every heuristic with the default
// thresholds.
func DefaultHPOFilterOptions() HPOFilterOptions {
	return HPOFilterOptions{
		TermFrequencyThreshold:       DefaultTermFrequencyThreshold,
		AnnotationFrequencyThreshold: DefaultAnnotationFrequencyThreshold,
	}
}

type heuristic struct {
	reason Reason
	drop   func(i int, c Candidate) bool
}

// HPOFilter removes terms that are unlikely to yield informative tests. The
// heuristics run in a fixed order and the first one that applies is
// reported. Redundancy is judged against every candidate descendant, whether
// or not that descendant is tested, so disabling one heuristic never changes
// the verdict of another.
type HPOFilter struct {
	graph    ontology.Graph
	opts     HPOFilterOptions
	disabled map[Reason]bool
	logger   *zap.Logger
}

// NewHPOFilter validates opts against g.
func NewHPOFilter(g ontology.Graph, opts HPOFilterOptions) (*HPOFilter, error) {
	if g == nil {
		return nil, configError("HPO filter needs an ontology")
	}
	if opts.TermFrequencyThreshold < 0 || opts.TermFrequencyThreshold > 1 {
		return nil, configError("term frequency threshold %g is outside [0, 1]", opts.TermFrequencyThreshold)
	}
	if opts.AnnotationFrequencyThreshold < 0 || opts.AnnotationFrequencyThreshold > 1 {
		return nil, configError("annotation frequency threshold %g is outside [0, 1]", opts.AnnotationFrequencyThreshold)
	}
	f := &HPOFilter{graph: g, opts: opts, disabled: make(map[Reason]bool), logger: zap.NewNop()}
	for _, r := range opts.Disabled {
		if _, err := ParseReason(string(r)); err != nil || r == NotInSpecifiedTermList {
			return nil, configError("cannot disable %q", r)
		}
		f.disabled[r] = true
	}
	if !f.disabled[NotPhenotypicAbnormal] || !f.disabled[GeneralTerm] {
		if _, ok := g.Term(g.Root()); !ok {
			return nil, configError("root %s is not in ontology %s", g.Root(), g.Version())
		}
	}
	return f, nil
}

// SetLogger sets the logger used to report dropped terms.
func (f *HPOFilter) SetLogger(l *zap.Logger) { f.logger = l }

func (f *HPOFilter) Name() string { return "HPO MTC filter" }

func (f *HPOFilter) Select(candidates []Candidate) []Decision {
	var redundant map[int]bool
	if !f.disabled[RedundantWithChild] {
		redundant = f.redundant(candidates)
	}
	heuristics := []heuristic{
		{MinimumFrequency, f.belowFrequency},
		{MinimumCount, noCountAboveOne},
		{RedundantWithChild, func(i int, _ Candidate) bool { return redundant[i] }},
		{EmptyGenotypeClass, hasEmptyColumn},
		{Underpowered, underpowered},
		{NotPhenotypicAbnormal, f.outsideRoot},
		{GeneralTerm, f.generalTerm},
		{RareInCohort, f.rareInCohort},
	}

	out := make([]Decision, len(candidates))
	for i, c := range candidates {
		out[i] = Decision{Term: c.Term, Tested: true}
		for _, h := range heuristics {
			if f.disabled[h.reason] || !h.drop(i, c) {
				continue
			}
			out[i] = Decision{Term: c.Term, Reason: h.reason}
			f.logger.Debug("term not tested",
				zap.String("term", string(c.Term)),
				zap.String("reason", string(h.reason)),
				zap.Stringer("table", c.Table))
			break
		}
	}
	return out
}

// redundant marks candidates whose table equals that of a candidate
// descendant.
func (f *HPOFilter) redundant(candidates []Candidate) map[int]bool {
	groups := make(map[string][]int)
	for i, c := range candidates {
		k := c.Table.key()
		groups[k] = append(groups[k], i)
	}
	out := make(map[int]bool)
	for _, idx := range groups {
		if len(idx) < 2 {
			continue
		}
		sort.Ints(idx)
		for _, i := range idx {
			for _, j := range idx {
				if i != j && f.graph.IsDescendantOf(candidates[j].Term, candidates[i].Term) {
					out[i] = true
					break
				}
			}
		}
	}
	return out
}

func (f *HPOFilter) belowFrequency(_ int, c Candidate) bool {
	for j, size := range c.ClassSizes {
		if size == 0 || j >= len(c.Table.Columns) {
			continue
		}
		if float64(c.Table.ColumnTotal(j))/float64(size) >= f.opts.TermFrequencyThreshold {
			return false
		}
	}
	return true
}

func noCountAboveOne(_ int, c Candidate) bool {
	if len(c.Table.Counts) == 0 {
		return true
	}
	for _, v := range c.Table.Counts[0] {
		if v > 1 {
			return false
		}
	}
	return true
}

func hasEmptyColumn(_ int, c Candidate) bool {
	for j := range c.Table.Columns {
		if c.Table.ColumnTotal(j) == 0 {
			return true
		}
	}
	return false
}

func underpowered(_ int, c Candidate) bool {
	minimum := 6
	if len(c.Table.Columns) == 2 {
		minimum = 7
	}
	return c.Table.Total() < minimum
}

func (f *HPOFilter) outsideRoot(_ int, c Candidate) bool {
	return !f.graph.IsDescendantOf(c.Term, f.graph.Root())
}

func (f *HPOFilter) generalTerm(_ int, c Candidate) bool {
	if c.Term == f.graph.Root() {
		return true
	}
	for _, p := range f.graph.Parents(c.Term) {
		if p == f.graph.Root() {
			return true
		}
	}
	return false
}

func (f *HPOFilter) rareInCohort(_ int, c Candidate) bool {
	if c.CohortSize == 0 {
		return true
	}
	return float64(c.Annotated)/float64(c.CohortSize) < f.opts.AnnotationFrequencyThreshold
}
