package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/duckdb"
	"github.com/inodb/vibe-gpa/internal/output"
)

type analyzeOptions struct {
	inputs
	outputFile   string
	dbPath       string
	runID        string
	scoreFile    string
	survivalFile string
}

func newAnalyzeCmd(logger func() (*zap.Logger, error)) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Test phenotype associations of genotype classes",
		Long: `Classify a cohort by genotype, test every candidate phenotype against the
genotype classes and correct for multiple testing. When the analysis file
names a scorer or a survival endpoint, those analyses run as well.`,
		Example: `  vibe-gpa analyze --cohort cohort.json --ontology hp.json --analysis missense.yaml
  vibe-gpa analyze --cohort cohort.json --ontology hp.json --analysis missense.yaml \
    --db results.duckdb -o results.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger()
			if err != nil {
				return err
			}
			defer log.Sync()
			return runAnalyze(cmd, opts, loadSettings(viper.GetViper()), log)
		},
	}

	addInputFlags(cmd, &opts.inputs)
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "DuckDB file to store the results in")
	cmd.Flags().StringVar(&opts.runID, "run", "", "Run ID for stored results (default: analysis name)")
	cmd.Flags().StringVar(&opts.scoreFile, "scores", "", "Write per-individual scores to this file")
	cmd.Flags().StringVar(&opts.survivalFile, "survival", "", "Write per-individual endpoints to this file")

	return cmd
}

func addInputFlags(cmd *cobra.Command, in *inputs) {
	cmd.Flags().StringVar(&in.Cohort, "cohort", "", "Cohort JSON file")
	cmd.Flags().StringVar(&in.Ontology, "ontology", "", "Ontology in obographs JSON format (e.g. hp.json)")
	cmd.Flags().StringVar(&in.Analysis, "analysis", "", "Analysis YAML file")
	for _, name := range []string{"cohort", "ontology", "analysis"} {
		cmd.MarkFlagRequired(name)
	}
}

func runAnalyze(cmd *cobra.Command, opts analyzeOptions, s settings, log *zap.Logger) error {
	p, err := preparePipeline(cmd.Context(), opts.inputs, s, log)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()

	res, err := p.categorical()
	if err != nil {
		return err
	}
	scores, err := p.score()
	if err != nil {
		return err
	}
	surv, err := p.survival()
	if err != nil {
		return err
	}

	if err := withOutput(cmd.OutOrStdout(), opts.outputFile, func(w io.Writer) error {
		return output.NewCategoricalTabWriter(w, res).WriteAll(res)
	}); err != nil {
		return err
	}
	output.WriteCategoricalSummary(stderr, res, s.Alpha)

	if opts.dbPath != "" {
		runID := opts.runID
		if runID == "" {
			runID = p.def.Name
		}
		store, err := duckdb.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		store.SetLogger(log)
		if err := store.WriteCategorical(runID, filepath.Base(opts.Cohort), res); err != nil {
			return fmt.Errorf("store results: %w", err)
		}
		fmt.Fprintf(stderr, "\nStored run %s in %s\n", runID, opts.dbPath)
	}

	if scores != nil {
		output.WriteScoreSummary(stderr, scores)
		if opts.scoreFile != "" {
			if err := withOutput(nil, opts.scoreFile, func(w io.Writer) error {
				return output.NewScoreWriter(w).WriteAll(scores)
			}); err != nil {
				return err
			}
		}
	}
	if surv != nil {
		output.WriteSurvivalSummary(stderr, surv)
		if opts.survivalFile != "" {
			if err := withOutput(nil, opts.survivalFile, func(w io.Writer) error {
				return output.NewSurvivalWriter(w).WriteAll(surv)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// withOutput calls fn with path opened for writing, or with stdout when path
// is empty.
func withOutput(stdout io.Writer, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
