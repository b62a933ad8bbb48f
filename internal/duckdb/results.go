package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/analysis"
)

// classSep joins genotype class labels in the runs table.
const classSep = "|"

// Run describes one persisted categorical analysis.
type Run struct {
	ID                 string
	CreatedAt          time.Time
	Cohort             string
	GenotypeClassifier string
	GenotypeClasses    []string
	Phenotype          string
	Filter             string
	Correction         string
	Statistic          string
	CandidateCount     int
	TotalTests         int
}

// TermRow is a persisted per-term outcome. P-values and the odds ratio are
// nil where the run recorded none.
type TermRow struct {
	RunID      string
	Rank       int
	TermID     string
	Name       string
	Tested     bool
	Reason     string
	Counts     [][]int
	NominalP   *float64
	CorrectedP *float64
	OddsRatio  *float64
}

// WriteCategorical stores a categorical result under runID, replacing any
// earlier run with the same ID. Term rows are batch-inserted with the
// Appender API in result order.
func (s *Store) WriteCategorical(runID, cohortName string, res *analysis.CategoricalResult) error {
	if runID == "" {
		return fmt.Errorf("empty run id")
	}
	if err := s.ClearRun(runID); err != nil {
		return fmt.Errorf("clear run %s: %w", runID, err)
	}

	labels := make([]string, len(res.GenotypeClasses))
	for i, cl := range res.GenotypeClasses {
		labels[i] = cl.Label
	}
	if _, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC(), cohortName,
		res.Config.GenotypeClassifier, strings.Join(labels, classSep), res.Config.Phenotype,
		res.Config.Filter, res.Config.Correction, res.Config.Statistic,
		res.CandidateCount, res.TotalTests,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(res.Terms) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "term_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for rank, t := range res.Terms {
		var counts string
		if t.Table != nil {
			counts = t.Table.String()
		}
		if err := appender.AppendRow(
			runID, int32(rank), string(t.Term), t.Name,
			t.Decision.Tested, string(t.Decision.Reason), counts,
			nullable(t.NominalP), nullable(t.CorrectedP), nullable(t.OddsRatio),
		); err != nil {
			return fmt.Errorf("append term result: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		return fmt.Errorf("flush term results: %w", err)
	}
	s.logger.Debug("stored categorical run",
		zap.String("run", runID),
		zap.Int("terms", len(res.Terms)),
		zap.Int("tested", res.TotalTests))
	return nil
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// ClearRun removes a run and its term results. Unknown runs are ignored.
func (s *Store) ClearRun(runID string) error {
	if _, err := s.db.Exec("DELETE FROM term_results WHERE run_id=?", runID); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM runs WHERE run_id=?", runID)
	return err
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT
		run_id, created_at, cohort, genotype_classifier, genotype_classes,
		phenotype, filter, correction, statistic, candidate_count, total_tests
		FROM runs
		ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var classes string
		if err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.Cohort, &r.GenotypeClassifier, &classes,
			&r.Phenotype, &r.Filter, &r.Correction, &r.Statistic,
			&r.CandidateCount, &r.TotalTests,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if classes != "" {
			r.GenotypeClasses = strings.Split(classes, classSep)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LookupRun returns the term rows of a run in result order. An unknown run
// yields no rows.
func (s *Store) LookupRun(runID string) ([]TermRow, error) {
	rows, err := s.db.Query(`SELECT
		run_id, rank, term_id, name, tested, reason, counts,
		nominal_p, corrected_p, odds_ratio
		FROM term_results
		WHERE run_id=?
		ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	return scanTermRows(rows)
}

// SignificantTerms returns the tested terms of a run whose corrected p-value
// is at or below alpha, in result order.
func (s *Store) SignificantTerms(runID string, alpha float64) ([]TermRow, error) {
	rows, err := s.db.Query(`SELECT
		run_id, rank, term_id, name, tested, reason, counts,
		nominal_p, corrected_p, odds_ratio
		FROM term_results
		WHERE run_id=? AND tested AND corrected_p <= ?
		ORDER BY rank`, runID, alpha)
	if err != nil {
		return nil, fmt.Errorf("query significant terms: %w", err)
	}
	defer rows.Close()

	return scanTermRows(rows)
}

func scanTermRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]TermRow, error) {
	var out []TermRow
	for rows.Next() {
		var r TermRow
		var counts string
		var nominal, corrected, or sql.NullFloat64
		if err := rows.Scan(
			&r.RunID, &r.Rank, &r.TermID, &r.Name, &r.Tested, &r.Reason, &counts,
			&nominal, &corrected, &or,
		); err != nil {
			return nil, fmt.Errorf("scan term result: %w", err)
		}
		m, err := parseCounts(counts)
		if err != nil {
			return nil, fmt.Errorf("term %s: %w", r.TermID, err)
		}
		r.Counts = m
		r.NominalP, r.CorrectedP, r.OddsRatio = ptr(nominal), ptr(corrected), ptr(or)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate term results: %w", err)
	}
	return out, nil
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// parseCounts reads the "[a,b;c,d]" form written by mtc.CountTable.String.
func parseCounts(s string) ([][]int, error) {
	if s == "" {
		return nil, nil
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if body == "" {
		return nil, nil
	}
	var m [][]int
	for _, row := range strings.Split(body, ";") {
		var r []int
		for _, cell := range strings.Split(row, ",") {
			n, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("parse counts %q: %w", s, err)
			}
			r = append(r, n)
		}
		m = append(m, r)
	}
	return m, nil
}
