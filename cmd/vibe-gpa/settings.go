package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gpa/internal/analysis"
	"github.com/inodb/vibe-gpa/internal/mtc"
	"github.com/inodb/vibe-gpa/internal/ontology"
)

// Configuration keys.
const (
	keyWorkers                = "analysis.workers"
	keyMinIndividuals         = "analysis.min_individuals"
	keyMissingImpliesExcluded = "analysis.missing_implies_excluded"
	keyFilter                 = "mtc.filter"
	keyTerms                  = "mtc.terms"
	keyDisabled               = "mtc.disabled_heuristics"
	keyTermFrequency          = "mtc.term_frequency_threshold"
	keyAnnotationFrequency    = "mtc.annotation_frequency_threshold"
	keyCorrection             = "mtc.correction"
	keyAlpha                  = "mtc.alpha"
	keyCacheDir               = "cache.dir"
	keyClosureSize            = "cache.closure_size"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyWorkers, 0)
	v.SetDefault(keyMinIndividuals, 1)
	v.SetDefault(keyMissingImpliesExcluded, false)
	v.SetDefault(keyFilter, "hpo")
	v.SetDefault(keyTerms, []string{})
	v.SetDefault(keyDisabled, []string{})
	v.SetDefault(keyTermFrequency, mtc.DefaultTermFrequencyThreshold)
	v.SetDefault(keyAnnotationFrequency, mtc.DefaultAnnotationFrequencyThreshold)
	v.SetDefault(keyCorrection, mtc.DefaultCorrection)
	v.SetDefault(keyAlpha, analysis.DefaultAlpha)
	v.SetDefault(keyCacheDir, defaultCacheDir())
	v.SetDefault(keyClosureSize, 4096)
}

// settings is the resolved analysis configuration.
type settings struct {
	Workers                int
	MinIndividuals         int
	MissingImpliesExcluded bool

	Filter                       string
	Terms                        []string
	Disabled                     []string
	TermFrequencyThreshold       float64
	AnnotationFrequencyThreshold float64
	Correction                   string
	Alpha                        float64

	CacheDir    string
	ClosureSize int
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		Workers:                      v.GetInt(keyWorkers),
		MinIndividuals:               v.GetInt(keyMinIndividuals),
		MissingImpliesExcluded:       v.GetBool(keyMissingImpliesExcluded),
		Filter:                       v.GetString(keyFilter),
		Terms:                        v.GetStringSlice(keyTerms),
		Disabled:                     v.GetStringSlice(keyDisabled),
		TermFrequencyThreshold:       v.GetFloat64(keyTermFrequency),
		AnnotationFrequencyThreshold: v.GetFloat64(keyAnnotationFrequency),
		Correction:                   v.GetString(keyCorrection),
		Alpha:                        v.GetFloat64(keyAlpha),
		CacheDir:                     v.GetString(keyCacheDir),
		ClosureSize:                  v.GetInt(keyClosureSize),
	}
}

// filter builds the configured multiple-testing filter.
func (s settings) filter(g ontology.Graph, log *zap.Logger) (mtc.Filter, error) {
	switch s.Filter {
	case "", "hpo":
		opts := mtc.HPOFilterOptions{
			TermFrequencyThreshold:       s.TermFrequencyThreshold,
			AnnotationFrequencyThreshold: s.AnnotationFrequencyThreshold,
		}
		for _, code := range s.Disabled {
			r, err := mtc.ParseReason(code)
			if err != nil {
				return nil, err
			}
			opts.Disabled = append(opts.Disabled, r)
		}
		f, err := mtc.NewHPOFilter(g, opts)
		if err != nil {
			return nil, err
		}
		if log != nil {
			f.SetLogger(log)
		}
		return f, nil
	case "all":
		return mtc.AllTermsFilter{}, nil
	case "specified":
		terms := make([]ontology.TermID, len(s.Terms))
		for i, t := range s.Terms {
			terms[i] = ontology.TermID(t)
		}
		return mtc.NewSpecifiedTermsFilter(terms)
	}
	return nil, fmt.Errorf("%w: unknown filter %q (want hpo, all or specified)", mtc.ErrInvalidConfig, s.Filter)
}

// ontologyCacheDir is where parsed ontologies are cached.
func (s settings) ontologyCacheDir() string {
	if s.CacheDir == "" {
		return ""
	}
	return filepath.Join(s.CacheDir, "ontology")
}
