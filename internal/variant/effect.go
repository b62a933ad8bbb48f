// Package variant describes functionally annotated genomic variants.
package variant

import "strings"

// Impact levels for variant effects.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Effect is a Sequence Ontology consequence term.
type Effect string

// Effects (Sequence Ontology terms).
const (
	// HIGH impact
	EffectTranscriptAblation = Effect("transcript_ablation")
	EffectStopGained         = Effect("stop_gained")
	EffectFrameshift         = Effect("frameshift_variant")
	EffectStopLost           = Effect("stop_lost")
	EffectStartLost          = Effect("start_lost")
	EffectSpliceAcceptor     = Effect("splice_acceptor_variant")
	EffectSpliceDonor        = Effect("splice_donor_variant")

	// MODERATE impact
	EffectMissense                = Effect("missense_variant")
	EffectInframeInsertion        = Effect("inframe_insertion")
	EffectInframeDeletion         = Effect("inframe_deletion")
	EffectTranscriptAmplification = Effect("transcript_amplification")

	// LOW impact
	EffectSynonymous     = Effect("synonymous_variant")
	EffectSpliceRegion   = Effect("splice_region_variant")
	EffectStopRetained   = Effect("stop_retained_variant")
	EffectStartRetained  = Effect("start_retained_variant")
	EffectCodingSequence = Effect("coding_sequence_variant")

	// MODIFIER impact
	EffectIntron        = Effect("intron_variant")
	Effect5PrimeUTR     = Effect("5_prime_UTR_variant")
	Effect3PrimeUTR     = Effect("3_prime_UTR_variant")
	EffectUpstreamGene  = Effect("upstream_gene_variant")
	EffectDownstream    = Effect("downstream_gene_variant")
	EffectIntergenic    = Effect("intergenic_variant")
	EffectNonCodingExon = Effect("non_coding_transcript_exon_variant")
)

// ParseEffect accepts an SO term name in any case, with or without the
// "_variant" suffix that some tools drop (e.g. "missense", "FRAMESHIFT").
func ParseEffect(s string) (Effect, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	for _, e := range knownEffects {
		name := strings.ToLower(string(e))
		if s == name || s+"_variant" == name {
			return e, true
		}
	}
	return "", false
}

var knownEffects = []Effect{
	EffectTranscriptAblation, EffectStopGained, EffectFrameshift, EffectStopLost,
	EffectStartLost, EffectSpliceAcceptor, EffectSpliceDonor, EffectMissense,
	EffectInframeInsertion, EffectInframeDeletion, EffectTranscriptAmplification,
	EffectSynonymous, EffectSpliceRegion, EffectStopRetained, EffectStartRetained,
	EffectCodingSequence, EffectIntron, Effect5PrimeUTR, Effect3PrimeUTR,
	EffectUpstreamGene, EffectDownstream, EffectIntergenic, EffectNonCodingExon,
}

// GetImpact returns the impact level for an effect.
func GetImpact(e Effect) string {
	switch e {
	case EffectTranscriptAblation, EffectStopGained, EffectFrameshift,
		EffectStopLost, EffectStartLost, EffectSpliceAcceptor, EffectSpliceDonor:
		return ImpactHigh
	case EffectMissense, EffectInframeInsertion, EffectInframeDeletion,
		EffectTranscriptAmplification:
		return ImpactModerate
	case EffectSynonymous, EffectSpliceRegion, EffectStopRetained,
		EffectStartRetained, EffectCodingSequence:
		return ImpactLow
	default:
		return ImpactModifier
	}
}

// ImpactRank returns numeric rank for impact comparison (higher = more severe).
func ImpactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 3
	case ImpactModerate:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}
