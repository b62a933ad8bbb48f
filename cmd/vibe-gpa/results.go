package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-gpa/internal/duckdb"
	"github.com/inodb/vibe-gpa/internal/output"
)

func newResultsCmd() *cobra.Command {
	var (
		dbPath      string
		runID       string
		significant float64
	)

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Query stored analysis results",
		Long:  "List stored runs, or print the term results of one run.",
		Example: `  vibe-gpa results --db results.duckdb
  vibe-gpa results --db results.duckdb --run missense
  vibe-gpa results --db results.duckdb --run missense --significant 0.05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID == "" {
				return writeRuns(cmd.OutOrStdout(), store)
			}
			return writeRun(cmd.OutOrStdout(), store, runID, significant)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB results file")
	cmd.Flags().StringVar(&runID, "run", "", "Run ID to print (default: list runs)")
	cmd.Flags().Float64Var(&significant, "significant", 0, "Only print terms with corrected p at or below this value")
	cmd.MarkFlagRequired("db")

	return cmd
}

func writeRuns(w io.Writer, store *duckdb.Store) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, strings.Join([]string{"#Run_ID", "Created", "Cohort", "Genotype_Classifier", "Filter", "Correction", "Candidates", "Tested"}, "\t"))
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Cohort, r.GenotypeClassifier,
			r.Filter, r.Correction, r.CandidateCount, r.TotalTests)
	}
	return nil
}

func writeRun(w io.Writer, store *duckdb.Store, runID string, significant float64) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	var labels []string
	found := false
	for _, r := range runs {
		if r.ID == runID {
			labels, found = r.GenotypeClasses, true
			break
		}
	}
	if !found {
		return fmt.Errorf("no run %q in store", runID)
	}

	var rows []duckdb.TermRow
	if significant > 0 {
		rows, err = store.SignificantTerms(runID, significant)
	} else {
		rows, err = store.LookupRun(runID)
	}
	if err != nil {
		return err
	}

	tw := output.NewTabWriter(w, labels)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tw.WriteStored(r); err != nil {
			return err
		}
	}
	return tw.Flush()
}
