package variant

// FeatureType is the category of a protein feature, as reported by UniProt.
type FeatureType string

// Protein feature types.
const (
	FeatureDomain                      = FeatureType("DOMAIN")
	FeatureRegion                      = FeatureType("REGION")
	FeatureRepeat                      = FeatureType("REPEAT")
	FeatureMotif                       = FeatureType("MOTIF")
	FeatureCompositionallyBiasedRegion = FeatureType("COMPOSITIONALLY_BIASED_REGION")
	FeatureZincFinger                  = FeatureType("ZINC_FINGER")
)

// ProteinFeature is a named, typed stretch of a protein.
type ProteinFeature struct {
	Name   string      `json:"name"`
	Type   FeatureType `json:"type"`
	Region Region      `json:"region"`
}

// ProteinMetadata describes a protein and its annotated features.
type ProteinMetadata struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Length   int              `json:"length"`
	Features []ProteinFeature `json:"features,omitempty"`
}

// FeaturesOfType returns the features of the given type.
func (m *ProteinMetadata) FeaturesOfType(t FeatureType) []ProteinFeature {
	var out []ProteinFeature
	for _, f := range m.Features {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// FeaturesNamed returns the features carrying the given name.
func (m *ProteinMetadata) FeaturesNamed(name string) []ProteinFeature {
	var out []ProteinFeature
	for _, f := range m.Features {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}
