// Package hpotest provides a small HPO-shaped ontology for tests.
package hpotest

import (
	"github.com/inodb/vibe-gpa/internal/ontology"
)

// Version of the fixture ontology.
const Version = "hpotest-2024-04-26"

// Frequently used fixture terms.
const (
	All                   ontology.TermID = "HP:0000001"
	PhenotypicAbnormality ontology.TermID = "HP:0000118"
	ModeOfInheritance     ontology.TermID = "HP:0000005"
	AutosomalDominant     ontology.TermID = "HP:0000006"

	NervousSystem          ontology.TermID = "HP:0000707"
	NervousPhysiology      ontology.TermID = "HP:0012638"
	Seizure                ontology.TermID = "HP:0001250"
	MotorSeizure           ontology.TermID = "HP:0020219"
	GeneralizedSeizure     ontology.TermID = "HP:0002197"
	BilateralTonicClonic   ontology.TermID = "HP:0002069"
	FocalSeizure           ontology.TermID = "HP:0007359"
	Neurodevelopmental     ontology.TermID = "HP:0012759"
	GlobalDevelopmentDelay ontology.TermID = "HP:0001263"
	IntellectualDisability ontology.TermID = "HP:0001249"
	IDMild                 ontology.TermID = "HP:0001256"
	IDModerate             ontology.TermID = "HP:0002342"
	IDSevere               ontology.TermID = "HP:0010864"
	HeadOrNeck             ontology.TermID = "HP:0000152"
	Head                   ontology.TermID = "HP:0000234"
	Face                   ontology.TermID = "HP:0000271"
	Hypertelorism          ontology.TermID = "HP:0000316"
	DownslantedPalpebral   ontology.TermID = "HP:0000494"
	Micrognathia           ontology.TermID = "HP:0000347"
	SkullSize              ontology.TermID = "HP:0000240"
	Microcephaly           ontology.TermID = "HP:0000252"
	Macrocephaly           ontology.TermID = "HP:0000256"
	Growth                 ontology.TermID = "HP:0001507"
	GrowthDelay            ontology.TermID = "HP:0001510"
	PrenatalGrowthRetard   ontology.TermID = "HP:0001511"
	ShortStature           ontology.TermID = "HP:0004322"
	TallStature            ontology.TermID = "HP:0000098"
	Cardiovascular         ontology.TermID = "HP:0001626"
	HeartMorphology        ontology.TermID = "HP:0001627"
	AtrialSeptalDefect     ontology.TermID = "HP:0001631"
	Skeletal               ontology.TermID = "HP:0000924"
	Hand                   ontology.TermID = "HP:0001155"
	Brachydactyly          ontology.TermID = "HP:0001156"
	ObsoleteSeizureAltID   ontology.TermID = "HP:0002279"
)

var terms = []struct {
	id      ontology.TermID
	name    string
	parents []ontology.TermID
}{
	{All, "All", nil},
	{PhenotypicAbnormality, "Phenotypic abnormality", []ontology.TermID{All}},
	{ModeOfInheritance, "Mode of inheritance", []ontology.TermID{All}},
	{AutosomalDominant, "Autosomal dominant inheritance", []ontology.TermID{ModeOfInheritance}},

	{NervousSystem, "Abnormality of the nervous system", []ontology.TermID{PhenotypicAbnormality}},
	{NervousPhysiology, "Abnormal nervous system physiology", []ontology.TermID{NervousSystem}},
	{Seizure, "Seizure", []ontology.TermID{NervousPhysiology}},
	{MotorSeizure, "Motor seizure", []ontology.TermID{Seizure}},
	{GeneralizedSeizure, "Generalized-onset seizure", []ontology.TermID{Seizure}},
	{BilateralTonicClonic, "Bilateral tonic-clonic seizure", []ontology.TermID{MotorSeizure, GeneralizedSeizure}},
	{FocalSeizure, "Focal-onset seizure", []ontology.TermID{Seizure}},
	{Neurodevelopmental, "Neurodevelopmental abnormality", []ontology.TermID{NervousPhysiology}},
	{GlobalDevelopmentDelay, "Global developmental delay", []ontology.TermID{Neurodevelopmental}},
	{IntellectualDisability, "Intellectual disability", []ontology.TermID{Neurodevelopmental}},
	{IDMild, "Intellectual disability, mild", []ontology.TermID{IntellectualDisability}},
	{IDModerate, "Intellectual disability, moderate", []ontology.TermID{IntellectualDisability}},
	{IDSevere, "Intellectual disability, severe", []ontology.TermID{IntellectualDisability}},

	{HeadOrNeck, "Abnormality of head or neck", []ontology.TermID{PhenotypicAbnormality}},
	{Head, "Abnormality of the head", []ontology.TermID{HeadOrNeck}},
	{Face, "Abnormality of the face", []ontology.TermID{Head}},
	{Hypertelorism, "Hypertelorism", []ontology.TermID{Face}},
	{DownslantedPalpebral, "Downslanted palpebral fissures", []ontology.TermID{Face}},
	{Micrognathia, "Micrognathia", []ontology.TermID{Face}},
	{SkullSize, "Abnormality of skull size", []ontology.TermID{Head}},
	{Microcephaly, "Microcephaly", []ontology.TermID{SkullSize}},
	{Macrocephaly, "Macrocephaly", []ontology.TermID{SkullSize}},

	{Growth, "Growth abnormality", []ontology.TermID{PhenotypicAbnormality}},
	{GrowthDelay, "Growth delay", []ontology.TermID{Growth}},
	{PrenatalGrowthRetard, "Prenatal-onset growth retardation", []ontology.TermID{GrowthDelay}},
	{ShortStature, "Short stature", []ontology.TermID{GrowthDelay}},
	{TallStature, "Tall stature", []ontology.TermID{Growth}},

	{Cardiovascular, "Abnormality of the cardiovascular system", []ontology.TermID{PhenotypicAbnormality}},
	{HeartMorphology, "Abnormal heart morphology", []ontology.TermID{Cardiovascular}},
	{AtrialSeptalDefect, "Atrial septal defect", []ontology.TermID{HeartMorphology}},
	{Skeletal, "Abnormality of the skeletal system", []ontology.TermID{PhenotypicAbnormality}},
	{Hand, "Abnormality of the hand", []ontology.TermID{Skeletal}},
	{Brachydactyly, "Brachydactyly", []ontology.TermID{Hand}},
}

// Ontology returns a fresh fixture ontology. The seizure subtree contains a
// diamond: BilateralTonicClonic is_a both MotorSeizure and GeneralizedSeizure.
func Ontology() *ontology.Ontology {
	b := ontology.NewBuilder(Version)
	for _, t := range terms {
		b.AddTerm(t.id, t.name)
	}
	for _, t := range terms {
		for _, p := range t.parents {
			b.AddIsA(t.id, p)
		}
	}
	b.AddAltID(ObsoleteSeizureAltID, Seizure)
	o, err := b.Build()
	if err != nil {
		panic(err)
	}
	return o
}

// Subject is a minimal ontology.Annotated.
type Subject struct {
	ID       string
	Observed []ontology.TermID
	Excluded []ontology.TermID
}

func (s Subject) Identifier() string               { return s.ID }
func (s Subject) ObservedTerms() []ontology.TermID { return s.Observed }
func (s Subject) ExcludedTerms() []ontology.TermID { return s.Excluded }
