package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gpa/internal/analysis"
)

// ScoreWriter writes per-individual phenotype scores in tab-delimited format.
type ScoreWriter struct {
	w *bufio.Writer
}

// NewScoreWriter creates a new score writer.
func NewScoreWriter(w io.Writer) *ScoreWriter {
	return &ScoreWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (sw *ScoreWriter) WriteHeader() error {
	_, err := sw.w.WriteString("#Individual_ID\tGenotype_Class\tScore\n")
	return err
}

// Write writes one scored individual.
func (sw *ScoreWriter) Write(p analysis.ScorePoint) error {
	_, err := fmt.Fprintf(sw.w, "%s\t%s\t%s\n", p.IndividualID, p.Class.Label,
		strconv.FormatFloat(p.Score, 'g', -1, 64))
	return err
}

// WriteAll writes the header and every point of res.
func (sw *ScoreWriter) WriteAll(res *analysis.ScoreResult) error {
	if err := sw.WriteHeader(); err != nil {
		return err
	}
	for _, p := range res.Points {
		if err := sw.Write(p); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (sw *ScoreWriter) Flush() error {
	return sw.w.Flush()
}

// SurvivalWriter writes per-individual endpoints in tab-delimited format.
type SurvivalWriter struct {
	w *bufio.Writer
}

// NewSurvivalWriter creates a new survival writer.
func NewSurvivalWriter(w io.Writer) *SurvivalWriter {
	return &SurvivalWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (sw *SurvivalWriter) WriteHeader() error {
	_, err := sw.w.WriteString("#Individual_ID\tGenotype_Class\tDays\tCensored\n")
	return err
}

// Write writes one individual's endpoint.
func (sw *SurvivalWriter) Write(p analysis.SurvivalPoint) error {
	censored := "NO"
	if p.Survival.Censored {
		censored = "YES"
	}
	_, err := fmt.Fprintf(sw.w, "%s\t%s\t%s\t%s\n", p.IndividualID, p.Class.Label,
		strconv.FormatFloat(p.Survival.Days, 'g', -1, 64), censored)
	return err
}

// WriteAll writes the header and every point of res.
func (sw *SurvivalWriter) WriteAll(res *analysis.SurvivalResult) error {
	if err := sw.WriteHeader(); err != nil {
		return err
	}
	for _, p := range res.Points {
		if err := sw.Write(p); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (sw *SurvivalWriter) Flush() error {
	return sw.w.Flush()
}

// WriteScoreSummary writes per-class summaries and the p-value of a score
// analysis.
func WriteScoreSummary(w io.Writer, res *analysis.ScoreResult) {
	fmt.Fprintf(w, "\n%s (%s, %s):\n", res.Config.Phenotype, res.Config.GenotypeClassifier, res.Config.Statistic)
	for _, s := range res.Summaries {
		fmt.Fprintf(w, "  %s\n", s)
	}
	fmt.Fprintf(w, "  p = %s\n", strconv.FormatFloat(res.P, 'g', 6, 64))
}

// WriteSurvivalSummary writes per-class event counts and the p-value of a
// survival analysis.
func WriteSurvivalSummary(w io.Writer, res *analysis.SurvivalResult) {
	fmt.Fprintf(w, "\n%s (%s, %s):\n", res.Config.Phenotype, res.Config.GenotypeClassifier, res.Config.Statistic)
	for _, s := range res.Summaries {
		median := "-"
		if s.Events > 0 {
			median = strconv.FormatFloat(s.MedianEventDays, 'g', 6, 64)
		}
		fmt.Fprintf(w, "  %s: n=%d events=%d median event day=%s\n",
			strings.TrimSpace(s.Class.Label), s.N, s.Events, median)
	}
	fmt.Fprintf(w, "  p = %s\n", strconv.FormatFloat(res.P, 'g', 6, 64))
}
