// Package output provides result formatters for association analyses.
package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gpa/internal/analysis"
	"github.com/inodb/vibe-gpa/internal/duckdb"
	"github.com/inodb/vibe-gpa/internal/mtc"
)

// TabWriter writes categorical term results in tab-delimited format. Each
// genotype class contributes one "present/total" column taken from the first
// row of the term's count table.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
	classes int
}

// NewTabWriter creates a tab-delimited writer for results over the given
// genotype class labels.
func NewTabWriter(w io.Writer, classLabels []string) *TabWriter {
	columns := []string{"#Term_ID", "Name"}
	columns = append(columns, classLabels...)
	columns = append(columns, "Tested", "Reason", "Nominal_P", "Corrected_P", "Odds_Ratio")
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
		classes: len(classLabels),
	}
}

// NewCategoricalTabWriter creates a writer for res's genotype classes.
func NewCategoricalTabWriter(w io.Writer, res *analysis.CategoricalResult) *TabWriter {
	labels := make([]string, len(res.GenotypeClasses))
	for i, cl := range res.GenotypeClasses {
		labels[i] = cl.Label
	}
	return NewTabWriter(w, labels)
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes one term result.
func (tw *TabWriter) Write(t analysis.TermResult) error {
	var counts [][]int
	if t.Table != nil {
		counts = t.Table.Counts
	}
	return tw.writeRow(string(t.Term), t.Name, counts, t.Decision.Tested, string(t.Decision.Reason),
		t.NominalP, t.CorrectedP, t.OddsRatio)
}

// WriteStored writes one term result read back from a result store.
func (tw *TabWriter) WriteStored(r duckdb.TermRow) error {
	return tw.writeRow(r.TermID, r.Name, r.Counts, r.Tested, r.Reason,
		r.NominalP, r.CorrectedP, r.OddsRatio)
}

// WriteAll writes the header and every term of res.
func (tw *TabWriter) WriteAll(res *analysis.CategoricalResult) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, t := range res.Terms {
		if err := tw.Write(t); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (tw *TabWriter) writeRow(id, name string, counts [][]int, tested bool, reason string, nominal, corrected, or *float64) error {
	values := []string{id, orDash(name)}
	for col := 0; col < tw.classes; col++ {
		values = append(values, fraction(counts, col))
	}
	testedStr := "NO"
	if tested {
		testedStr = "YES"
	}
	values = append(values, testedStr, orDash(reason),
		formatFloat(nominal), formatFloat(corrected), formatFloat(or))

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// fraction renders counts[0][col] over the column total.
func fraction(counts [][]int, col int) string {
	if len(counts) == 0 || col >= len(counts[0]) {
		return "-"
	}
	total := 0
	for _, row := range counts {
		if col < len(row) {
			total += row[col]
		}
	}
	return fmt.Sprintf("%d/%d", counts[0][col], total)
}

func formatFloat(p *float64) string {
	switch {
	case p == nil, math.IsNaN(*p):
		return "-"
	case math.IsInf(*p, 1):
		return "inf"
	}
	return strconv.FormatFloat(*p, 'g', 6, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteCategoricalSummary writes the run configuration, test totals and the
// number of candidates dropped for each filter reason.
func WriteCategoricalSummary(w io.Writer, res *analysis.CategoricalResult, alpha float64) {
	fmt.Fprintf(w, "\nAnalysis Summary:\n")
	fmt.Fprintf(w, "  %-22s%s\n", "Genotype classifier", res.Config.GenotypeClassifier)
	fmt.Fprintf(w, "  %-22s%s\n", "Filter", res.Config.Filter)
	fmt.Fprintf(w, "  %-22s%s\n", "Statistic", res.Config.Statistic)
	fmt.Fprintf(w, "  %-22s%s\n", "Correction", res.Config.Correction)
	fmt.Fprintf(w, "  %-22s%d\n", "Candidates", res.CandidateCount)
	fmt.Fprintf(w, "  %-22s%d\n", "Tested", res.TotalTests)
	fmt.Fprintf(w, "  %-22s%d\n", fmt.Sprintf("Significant (%g)", alpha), len(res.Significant(alpha)))

	counts := make(map[mtc.Reason]int)
	for _, t := range res.Terms {
		if !t.Decision.Tested {
			counts[t.Decision.Reason]++
		}
	}
	if len(counts) == 0 {
		return
	}

	type reasonCount struct {
		reason mtc.Reason
		count  int
	}
	var sorted []reasonCount
	for r, n := range counts {
		sorted = append(sorted, reasonCount{r, n})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].reason < sorted[j].reason
	})

	fmt.Fprintf(w, "\n  Not tested:\n")
	for _, rc := range sorted {
		fmt.Fprintf(w, "    %-16s%-6d%s\n", rc.reason, rc.count, rc.reason.Description())
	}
}
