// Package analysis runs genotype-phenotype association analyses: it
// classifies a cohort along both axes, filters the candidate phenotypes,
// tests the survivors and corrects their p-values.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/cohort"
	"github.com/inodb/vibe-gpa/internal/genotype"
	"github.com/inodb/vibe-gpa/internal/mtc"
	"github.com/inodb/vibe-gpa/internal/ontology"
	"github.com/inodb/vibe-gpa/internal/phenotype"
	"github.com/inodb/vibe-gpa/internal/stats"
)

// ErrInvalidConfig is wrapped by analysis configuration errors.
var ErrInvalidConfig = errors.New("invalid analysis configuration")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// DefaultAlpha is the significance level used when none is configured.
const DefaultAlpha = 0.05

// StatisticError reports a per-term test that could not be computed, with the
// data that was tested.
type StatisticError struct {
	Key      string
	Test     string
	Table    [][]int
	Scores   [][]float64
	Survival [][]phenotype.Survival
	Err      error
}

func (e *StatisticError) Error() string {
	var data any
	switch {
	case e.Table != nil:
		data = e.Table
	case e.Scores != nil:
		data = e.Scores
	default:
		data = e.Survival
	}
	return fmt.Sprintf("%s for %s on %v: %v", e.Test, e.Key, data, e.Err)
}

func (e *StatisticError) Unwrap() error { return e.Err }

// Assignment is an individual's genotype class. Individuals the classifier
// omits have Assigned == false.
type Assignment struct {
	IndividualID string
	Class        genotype.Class
	Assigned     bool
}

// Identity names the components an analysis was configured with.
type Identity struct {
	GenotypeClassifier string
	Phenotype          string
	Filter             string
	Correction         string
	Statistic          string
}

// CategoricalAnalysis tests phenotype classes against genotype classes with a
// count statistic. Zero values select Fisher's exact test, no filtering,
// Benjamini-Hochberg correction, alpha 0.05 and one worker per CPU.
type CategoricalAnalysis struct {
	Filter     mtc.Filter
	Correction mtc.Correction
	Statistic  stats.CountStatistic
	Alpha      float64
	Workers    int
	Logger     *zap.Logger
}

// TermResult is the outcome for one phenotype classifier. NominalP,
// CorrectedP and OddsRatio are nil for untested terms; OddsRatio is also nil
// for tables that are not 2x2.
type TermResult struct {
	Term       ontology.TermID
	Name       string
	Table      *mtc.CountTable
	Decision   mtc.Decision
	NominalP   *float64
	CorrectedP *float64
	OddsRatio  *float64
}

// CategoricalResult is the outcome of a categorical analysis.
type CategoricalResult struct {
	Config          Identity
	GenotypeClasses []genotype.Class
	Assignments     []Assignment
	// CandidateCount is the size of the candidate universe.
	CandidateCount int
	// TotalTests is the number of candidates that survived filtering.
	TotalTests int
	// Terms holds every candidate ordered by corrected p-value, nominal
	// p-value and term ID, untested terms last.
	Terms []TermResult
}

// Significant returns the tested terms with a corrected p-value at or below
// alpha.
func (r *CategoricalResult) Significant(alpha float64) []TermResult {
	var out []TermResult
	for _, t := range r.Terms {
		if t.CorrectedP != nil && *t.CorrectedP <= alpha {
			out = append(out, t)
		}
	}
	return out
}

// Tested returns the tested terms.
func (r *CategoricalResult) Tested() []TermResult {
	var out []TermResult
	for _, t := range r.Terms {
		if t.Decision.Tested {
			out = append(out, t)
		}
	}
	return out
}

func (a *CategoricalAnalysis) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *CategoricalAnalysis) resolved() (mtc.Filter, mtc.Correction, stats.CountStatistic, float64, error) {
	filter, correction, statistic, alpha := a.Filter, a.Correction, a.Statistic, a.Alpha
	if filter == nil {
		filter = mtc.AllTermsFilter{}
	}
	if correction == nil {
		c, err := mtc.ParseCorrection(mtc.DefaultCorrection)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		correction = c
	}
	if statistic == nil {
		statistic = stats.Fisher{}
	}
	if alpha == 0 {
		alpha = DefaultAlpha
	}
	if alpha < 0 || alpha >= 1 {
		return nil, nil, nil, 0, configError("alpha %g is outside (0, 1)", alpha)
	}
	return filter, correction, statistic, alpha, nil
}

// Run classifies the cohort, filters and tests each phenotype classifier and
// corrects the p-values of the tested ones.
func (a *CategoricalAnalysis) Run(c *cohort.Cohort, gt genotype.Classifier, phenotypes []phenotype.Classifier) (*CategoricalResult, error) {
	filter, correction, statistic, alpha, err := a.resolved()
	if err != nil {
		return nil, err
	}
	if gt == nil {
		return nil, configError("no genotype classifier")
	}
	if len(gt.Classes()) < 2 {
		return nil, configError("genotype classifier %s has %d classes, need at least 2", gt.Name(), len(gt.Classes()))
	}
	if c == nil {
		return nil, configError("no cohort")
	}
	log := a.logger()

	assignments, groups := assign(c, gt)
	classSizes := make([]int, len(groups))
	for i, g := range groups {
		classSizes[i] = len(g)
	}

	candidates, err := mapOrdered(phenotypes, a.Workers, func(pc phenotype.Classifier) (mtc.Candidate, error) {
		return mtc.Candidate{
			Term:       classifierTerm(pc),
			Table:      tabulate(pc, gt.Classes(), groups),
			ClassSizes: classSizes,
			CohortSize: c.Len(),
			Annotated:  annotated(pc, c),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	decisions := filter.Select(candidates)
	if len(decisions) != len(candidates) {
		return nil, fmt.Errorf("filter %s returned %d decisions for %d candidates", filter.Name(), len(decisions), len(candidates))
	}

	var tested []int
	for i, d := range decisions {
		if d.Tested {
			tested = append(tested, i)
		}
	}
	log.Info("filtered candidate phenotypes",
		zap.String("filter", filter.Name()),
		zap.Int("candidates", len(candidates)),
		zap.Int("tested", len(tested)))

	nominal, err := mapOrdered(tested, a.Workers, func(i int) (float64, error) {
		table := candidates[i].Table.Matrix()
		p, err := statistic.Compute(table)
		if err != nil {
			return 0, &StatisticError{Key: phenotypes[i].Key(), Test: statistic.Name(), Table: table, Err: err}
		}
		return p, nil
	})
	if err != nil {
		log.Error("statistic failed", zap.Error(err))
		return nil, err
	}
	corrected := correction.Correct(nominal, alpha)

	terms := make([]TermResult, len(candidates))
	for i, cand := range candidates {
		terms[i] = TermResult{
			Term:     cand.Term,
			Name:     phenotypes[i].Name(),
			Table:    cand.Table,
			Decision: decisions[i],
		}
	}
	for k, i := range tested {
		p, q := nominal[k], corrected[k]
		terms[i].NominalP, terms[i].CorrectedP = &p, &q
		if or, ok := stats.OddsRatio(candidates[i].Table.Matrix()); ok {
			terms[i].OddsRatio = &or
		}
	}
	sortTerms(terms)

	return &CategoricalResult{
		Config: Identity{
			GenotypeClassifier: gt.Name(),
			Phenotype:          fmt.Sprintf("%d phenotype classifiers", len(phenotypes)),
			Filter:             filter.Name(),
			Correction:         correction.Name(),
			Statistic:          statistic.Name(),
		},
		GenotypeClasses: gt.Classes(),
		Assignments:     assignments,
		CandidateCount:  len(candidates),
		TotalTests:      len(tested),
		Terms:           terms,
	}, nil
}

// assign classifies every individual and groups the assigned ones by the
// position of their class in gt.Classes().
func assign(c *cohort.Cohort, gt genotype.Classifier) ([]Assignment, [][]*cohort.Individual) {
	classes := gt.Classes()
	column := make(map[int]int, len(classes))
	for i, cl := range classes {
		column[cl.ID] = i
	}
	assignments := make([]Assignment, len(c.Individuals))
	groups := make([][]*cohort.Individual, len(classes))
	for i, ind := range c.Individuals {
		assignments[i] = Assignment{IndividualID: ind.ID}
		cl, ok := gt.Classify(ind)
		if !ok {
			continue
		}
		col, known := column[cl.ID]
		if !known {
			continue
		}
		assignments[i].Class, assignments[i].Assigned = cl, true
		groups[col] = append(groups[col], ind)
	}
	return assignments, groups
}

func tabulate(pc phenotype.Classifier, gtClasses []genotype.Class, groups [][]*cohort.Individual) *mtc.CountTable {
	pClasses := pc.Classes()
	rows := make([]string, len(pClasses))
	row := make(map[int]int, len(pClasses))
	for i, cl := range pClasses {
		rows[i] = cl.Label
		row[cl.ID] = i
	}
	cols := make([]string, len(gtClasses))
	for i, cl := range gtClasses {
		cols[i] = cl.Label
	}
	t := mtc.NewCountTable(rows, cols)
	for col, g := range groups {
		for _, ind := range g {
			if cl, ok := pc.Classify(ind); ok {
				if r, known := row[cl.ID]; known {
					t.Add(r, col)
				}
			}
		}
	}
	return t
}

// annotated counts the individuals of the whole cohort that pc classifies.
func annotated(pc phenotype.Classifier, c *cohort.Cohort) int {
	n := 0
	for _, ind := range c.Individuals {
		if _, ok := pc.Classify(ind); ok {
			n++
		}
	}
	return n
}

func classifierTerm(pc phenotype.Classifier) ontology.TermID {
	if tc, ok := pc.(phenotype.TermClassifier); ok {
		return tc.Term()
	}
	return ontology.TermID(pc.Key())
}

func sortTerms(terms []TermResult) {
	less := func(a, b *float64) (bool, bool) {
		switch {
		case a == nil && b == nil:
			return false, false
		case a == nil:
			return false, true
		case b == nil:
			return true, true
		case *a != *b:
			return *a < *b, true
		}
		return false, false
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if l, decided := less(terms[i].CorrectedP, terms[j].CorrectedP); decided {
			return l
		}
		if l, decided := less(terms[i].NominalP, terms[j].NominalP); decided {
			return l
		}
		return terms[i].Term < terms[j].Term
	})
}
