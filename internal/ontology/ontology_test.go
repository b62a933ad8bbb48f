package ontology_test

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gpa/internal/ontology"
	"github.com/inodb/vibe-gpa/internal/ontology/hpotest"
)

func TestOntology_Traversal(t *testing.T) {
	o := hpotest.Ontology()

	assert.Equal(t, hpotest.Version, o.Version())
	assert.Equal(t, ontology.PhenotypicAbnormality, o.Root())

	assert.Equal(t, []ontology.TermID{hpotest.GeneralizedSeizure, hpotest.MotorSeizure},
		o.Parents(hpotest.BilateralTonicClonic))
	assert.Equal(t, []ontology.TermID{hpotest.BilateralTonicClonic},
		o.Children(hpotest.MotorSeizure))

	assert.Equal(t, []ontology.TermID{
		hpotest.All,
		hpotest.PhenotypicAbnormality,
		hpotest.NervousSystem,
		hpotest.Seizure,
		hpotest.GeneralizedSeizure,
		hpotest.NervousPhysiology,
		hpotest.MotorSeizure,
	}, o.Ancestors(hpotest.BilateralTonicClonic))

	assert.Equal(t, []ontology.TermID{
		hpotest.BilateralTonicClonic,
		hpotest.GeneralizedSeizure,
		hpotest.FocalSeizure,
		hpotest.MotorSeizure,
	}, o.Descendants(hpotest.Seizure))

	assert.Empty(t, o.Ancestors(hpotest.All))
	assert.Empty(t, o.Descendants(hpotest.Brachydactyly))
	assert.Nil(t, o.Ancestors("HP:9999999"))
}

func TestOntology_IsDescendantOf(t *testing.T) {
	o := hpotest.Ontology()

	tests := []struct {
		t, of ontology.TermID
		want  bool
	}{
		{hpotest.BilateralTonicClonic, hpotest.Seizure, true},
		{hpotest.BilateralTonicClonic, hpotest.PhenotypicAbnormality, true},
		{hpotest.Seizure, hpotest.Seizure, false},
		{hpotest.Seizure, hpotest.BilateralTonicClonic, false},
		{hpotest.AutosomalDominant, hpotest.PhenotypicAbnormality, false},
		{hpotest.Seizure, "HP:9999999", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s<%s", tt.t, tt.of), func(t *testing.T) {
			assert.Equal(t, tt.want, o.IsDescendantOf(tt.t, tt.of))
		})
	}
}

func TestOntology_AltID(t *testing.T) {
	o := hpotest.Ontology()

	term, ok := o.Term(hpotest.ObsoleteSeizureAltID)
	require.True(t, ok)
	assert.Equal(t, hpotest.Seizure, term.ID)
	assert.Equal(t, "Seizure", term.Name)
	assert.Equal(t, hpotest.Seizure, o.Primary(hpotest.ObsoleteSeizureAltID))
	assert.Equal(t, ontology.TermID("HP:9999999"), o.Primary("HP:9999999"))
}

func TestBuilder_Errors(t *testing.T) {
	b := ontology.NewBuilder("cyclic")
	b.AddTerm("HP:1", "a")
	b.AddTerm("HP:2", "b")
	b.AddIsA("HP:1", "HP:2")
	b.AddIsA("HP:2", "HP:1")
	_, err := b.Build()
	assert.ErrorContains(t, err, "is_a cycle")

	b = ontology.NewBuilder("dangling")
	b.AddTerm("HP:1", "a")
	b.AddIsA("HP:1", "HP:2")
	_, err = b.Build()
	assert.Error(t, err)

	b = ontology.NewBuilder("self")
	b.AddTerm("HP:1", "a")
	b.AddIsA("HP:1", "HP:1")
	_, err = b.Build()
	assert.Error(t, err)
}

func TestSnapshot_GobRoundTrip(t *testing.T) {
	o := hpotest.Ontology()

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(o.Snapshot()))

	var snap ontology.Snapshot
	require.NoError(t, gob.NewDecoder(&buf).Decode(&snap))
	o2, err := ontology.FromSnapshot(snap)
	require.NoError(t, err)

	assert.Equal(t, o.Len(), o2.Len())
	assert.Equal(t, o.Terms(), o2.Terms())
	assert.Equal(t, o.Ancestors(hpotest.BilateralTonicClonic), o2.Ancestors(hpotest.BilateralTonicClonic))
	assert.Equal(t, hpotest.Seizure, o2.Primary(hpotest.ObsoleteSeizureAltID))
}

const oboJSON = `{
  "graphs": [{
    "id": "http://purl.obolibrary.org/obo/hp.json",
    "meta": {"version": "http://purl.obolibrary.org/obo/hp/releases/2024-04-26/hp.json"},
    "nodes": [
      {"id": "http://purl.obolibrary.org/obo/HP_0000001", "lbl": "All", "type": "CLASS"},
      {"id": "http://purl.obolibrary.org/obo/HP_0000118", "lbl": "Phenotypic abnormality", "type": "CLASS"},
      {"id": "http://purl.obolibrary.org/obo/HP_0001250", "lbl": "Seizure", "type": "CLASS",
       "meta": {"basicPropertyValues": [
         {"pred": "http://www.geneontology.org/formats/oboInOwl#hasAlternativeId", "val": "HP:0002279"}]}},
      {"id": "http://purl.obolibrary.org/obo/HP_0000000", "lbl": "obsolete thing", "type": "CLASS",
       "meta": {"deprecated": true}},
      {"id": "http://purl.obolibrary.org/obo/UBERON_0000062", "lbl": "organ", "type": "CLASS"},
      {"id": "http://purl.obolibrary.org/obo/hp#has_onset", "type": "PROPERTY"}
    ],
    "edges": [
      {"sub": "http://purl.obolibrary.org/obo/HP_0000118", "pred": "is_a", "obj": "http://purl.obolibrary.org/obo/HP_0000001"},
      {"sub": "http://purl.obolibrary.org/obo/HP_0001250", "pred": "is_a", "obj": "http://purl.obolibrary.org/obo/HP_0000118"},
      {"sub": "http://purl.obolibrary.org/obo/HP_0001250", "pred": "http://purl.obolibrary.org/obo/BFO_0000050", "obj": "http://purl.obolibrary.org/obo/UBERON_0000062"}
    ]
  }]
}`

func TestReadOBOGraphs(t *testing.T) {
	o, err := ontology.ReadOBOGraphs(strings.NewReader(oboJSON))
	require.NoError(t, err)

	assert.Equal(t, "2024-04-26", o.Version())
	assert.Equal(t, 3, o.Len())
	assert.Equal(t, []ontology.TermID{"HP:0000001", "HP:0000118"}, o.Ancestors("HP:0001250"))
	assert.Equal(t, ontology.TermID("HP:0001250"), o.Primary("HP:0002279"))

	_, ok := o.Term("HP:0000000")
	assert.False(t, ok, "deprecated terms are skipped")

	_, err = ontology.ReadOBOGraphs(strings.NewReader(`{"graphs": []}`))
	assert.Error(t, err)
}

func TestParseTermID(t *testing.T) {
	tests := []struct {
		in      string
		want    ontology.TermID
		wantErr bool
	}{
		{"HP:0001250", "HP:0001250", false},
		{"HP_0001250", "HP:0001250", false},
		{"http://purl.obolibrary.org/obo/HP_0001250", "HP:0001250", false},
		{"OMIM:148050", "OMIM:148050", false},
		{"nonsense", "", true},
		{"HP:", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ontology.ParseTermID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newResolver(t *testing.T) *ontology.Resolver {
	t.Helper()
	r, err := ontology.NewResolver(hpotest.Ontology(), 16)
	require.NoError(t, err)
	return r
}

func TestResolver_TruePathRule(t *testing.T) {
	o := hpotest.Ontology()
	r := newResolver(t)

	s := hpotest.Subject{
		ID:       "P1",
		Observed: []ontology.TermID{hpotest.BilateralTonicClonic, hpotest.Microcephaly},
		Excluded: []ontology.TermID{hpotest.IntellectualDisability, hpotest.HeartMorphology},
	}
	c, err := r.Resolve(s)
	require.NoError(t, err)

	for _, obs := range s.Observed {
		assert.True(t, c.IsPresent(obs))
		for _, a := range o.Ancestors(obs) {
			assert.True(t, c.IsPresent(a), "ancestor %s of %s", a, obs)
		}
	}
	for _, exc := range s.Excluded {
		assert.Equal(t, ontology.Excluded, c.Status(exc, false))
		for _, d := range o.Descendants(exc) {
			assert.Equal(t, ontology.Excluded, c.Status(d, false), "descendant %s of %s", d, exc)
		}
	}
	for p := range c.Present {
		_, both := c.Excluded[p]
		assert.False(t, both, "%s is both present and excluded", p)
	}

	assert.Equal(t, ontology.Unknown, c.Status(hpotest.FocalSeizure, false))
	assert.Equal(t, ontology.Excluded, c.Status(hpotest.FocalSeizure, true))
	assert.Empty(t, c.Conflicts)
}

func TestResolver_Conflicts(t *testing.T) {
	s := hpotest.Subject{
		ID:       "P1",
		Observed: []ontology.TermID{hpotest.BilateralTonicClonic},
		Excluded: []ontology.TermID{hpotest.Seizure, hpotest.IDMild},
	}

	r := newResolver(t)
	c, err := r.Resolve(s)
	require.NoError(t, err)
	assert.Equal(t, []ontology.TermID{hpotest.Seizure}, c.Conflicts)
	assert.Equal(t, ontology.Present, c.Status(hpotest.Seizure, false))
	assert.Equal(t, ontology.Unknown, c.Status(hpotest.FocalSeizure, false),
		"descendants of a dropped exclusion are not excluded")
	assert.Equal(t, ontology.Excluded, c.Status(hpotest.IDMild, false))

	strict := newResolver(t)
	strict.SetStrict(true)
	_, err = strict.Resolve(s)
	assert.True(t, errors.Is(err, ontology.ErrInconsistentAnnotation))
}

func TestResolver_AltIDAndMemo(t *testing.T) {
	r := newResolver(t)
	s := hpotest.Subject{ID: "P1", Observed: []ontology.TermID{hpotest.ObsoleteSeizureAltID}}

	c1, err := r.Resolve(s)
	require.NoError(t, err)
	assert.True(t, c1.IsPresent(hpotest.Seizure))
	assert.True(t, c1.IsPresent(hpotest.NervousSystem))

	c2, err := r.Resolve(s)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, r.Len())
}

func TestResolver_Warm(t *testing.T) {
	r := newResolver(t)
	subjects := make([]ontology.Annotated, 10)
	for i := range subjects {
		subjects[i] = hpotest.Subject{
			ID:       fmt.Sprintf("P%d", i),
			Observed: []ontology.TermID{hpotest.Seizure},
		}
	}
	require.NoError(t, r.Warm(context.Background(), subjects, 3))
	assert.Equal(t, 10, r.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cold := newResolver(t)
	assert.Error(t, cold.Warm(ctx, subjects, 2))
}
