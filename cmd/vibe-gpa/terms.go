package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/analysis"
)

func newTermsCmd(logger func() (*zap.Logger, error)) *cobra.Command {
	var (
		in         inputs
		testedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "terms",
		Short: "List candidate phenotypes and filter decisions",
		Long: `List every phenotype in the candidate universe of an analysis, with the
number of individuals it applies to and whether the multiple-testing filter
keeps it.`,
		Example: `  vibe-gpa terms --cohort cohort.json --ontology hp.json --analysis missense.yaml
  vibe-gpa terms --cohort cohort.json --ontology hp.json --analysis missense.yaml --tested`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger()
			if err != nil {
				return err
			}
			defer log.Sync()

			p, err := preparePipeline(cmd.Context(), in, loadSettings(viper.GetViper()), log)
			if err != nil {
				return err
			}
			res, err := p.categorical()
			if err != nil {
				return err
			}
			return writeTerms(cmd.OutOrStdout(), res, testedOnly)
		},
	}

	addInputFlags(cmd, &in)
	cmd.Flags().BoolVar(&testedOnly, "tested", false, "Only list terms the filter keeps")

	return cmd
}

func writeTerms(w io.Writer, res *analysis.CategoricalResult, testedOnly bool) error {
	if _, err := fmt.Fprintln(w, strings.Join([]string{"#Term_ID", "Name", "Individuals", "Tested", "Reason"}, "\t")); err != nil {
		return err
	}
	for _, t := range res.Terms {
		if testedOnly && !t.Decision.Tested {
			continue
		}
		n := 0
		if t.Table != nil && len(t.Table.Counts) > 0 {
			n = t.Table.RowTotal(0)
		}
		tested, reason := "YES", "-"
		if !t.Decision.Tested {
			tested = "NO"
			reason = fmt.Sprintf("%s (%s)", t.Decision.Reason, t.Decision.Reason.Description())
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", t.Term, t.Name, n, tested, reason); err != nil {
			return err
		}
	}
	return nil
}
