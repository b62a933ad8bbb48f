// Package ontology provides HPO graph access and true-path-rule annotation
// closures.
package ontology

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// TermID is an ontology term CURIE, e.g. HP:0001250.
type TermID string

// Well-known HPO terms.
const (
	All                   TermID = "HP:0000001"
	PhenotypicAbnormality TermID = "HP:0000118"
)

// Term is an ontology concept.
type Term struct {
	ID   TermID
	Name string
}

// Graph is read-only access to an is_a hierarchy. Ancestors and Descendants
// exclude the query term itself.
type Graph interface {
	Version() string
	Root() TermID
	Term(id TermID) (Term, bool)
	Parents(id TermID) []TermID
	Children(id TermID) []TermID
	Ancestors(id TermID) []TermID
	Descendants(id TermID) []TermID
	IsDescendantOf(t, of TermID) bool
}

// Ontology is a Graph backed by a gonum directed graph with child -> parent
// edges. It is safe for concurrent reads.
type Ontology struct {
	version string
	root    TermID
	g       *simple.DirectedGraph
	terms   []Term // indexed by node ID
	ids     map[TermID]int64
	alt     map[TermID]TermID
}

// Version returns the ontology release identifier.
func (o *Ontology) Version() string { return o.version }

// Root returns the phenotypic-abnormality root used for topology decisions.
func (o *Ontology) Root() TermID { return o.root }

// Len returns the number of terms.
func (o *Ontology) Len() int { return len(o.terms) }

// Term returns the term with the given ID. Alternative IDs resolve to their
// primary term.
func (o *Ontology) Term(id TermID) (Term, bool) {
	n, ok := o.node(id)
	if !ok {
		return Term{}, false
	}
	return o.terms[n], true
}

// Primary maps an alternative ID to its primary ID. Unknown IDs are returned
// unchanged.
func (o *Ontology) Primary(id TermID) TermID {
	if p, ok := o.alt[id]; ok {
		return p
	}
	return id
}

// Terms returns all terms sorted by ID.
func (o *Ontology) Terms() []Term {
	out := make([]Term, len(o.terms))
	copy(out, o.terms)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (o *Ontology) node(id TermID) (int64, bool) {
	n, ok := o.ids[o.Primary(id)]
	return n, ok
}

// Parents returns the direct is_a parents of id.
func (o *Ontology) Parents(id TermID) []TermID {
	n, ok := o.node(id)
	if !ok {
		return nil
	}
	return o.collect(o.g.From(n))
}

// Children returns the direct is_a children of id.
func (o *Ontology) Children(id TermID) []TermID {
	n, ok := o.node(id)
	if !ok {
		return nil
	}
	return o.collect(o.g.To(n))
}

// Ancestors returns every transitive parent of id.
func (o *Ontology) Ancestors(id TermID) []TermID {
	return o.walk(o.g, id)
}

// Descendants returns every transitive child of id.
func (o *Ontology) Descendants(id TermID) []TermID {
	return o.walk(reverse{o.g}, id)
}

// IsDescendantOf reports whether t is a strict descendant of of.
func (o *Ontology) IsDescendantOf(t, of TermID) bool {
	tn, ok := o.node(t)
	if !ok {
		return false
	}
	target, ok := o.node(of)
	if !ok || tn == target {
		return false
	}
	var bf traverse.BreadthFirst
	found := bf.Walk(o.g, o.g.Node(tn), func(n graph.Node, _ int) bool {
		return n.ID() == target
	})
	return found != nil
}

func (o *Ontology) walk(g traverse.Graph, id TermID) []TermID {
	start, ok := o.node(id)
	if !ok {
		return nil
	}
	var out []TermID
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			if n.ID() != start {
				out = append(out, o.terms[n.ID()].ID)
			}
		},
	}
	bf.Walk(g, o.g.Node(start), nil)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (o *Ontology) collect(it graph.Nodes) []TermID {
	var out []TermID
	for it.Next() {
		out = append(out, o.terms[it.Node().ID()].ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// reverse walks a directed graph against its edge direction.
type reverse struct {
	g *simple.DirectedGraph
}

func (r reverse) From(id int64) graph.Nodes { return r.g.To(id) }

func (r reverse) Edge(uid, vid int64) graph.Edge {
	e := r.g.Edge(vid, uid)
	if e == nil {
		return nil
	}
	return e.ReversedEdge()
}

// Snapshot is the plain-data form of an Ontology, suitable for gob encoding.
type Snapshot struct {
	Version string
	Root    TermID
	Terms   []Term
	IsA     [][2]TermID // child, parent
	AltIDs  map[TermID]TermID
}

// Snapshot returns the plain-data form of the ontology.
func (o *Ontology) Snapshot() Snapshot {
	s := Snapshot{
		Version: o.version,
		Root:    o.root,
		Terms:   make([]Term, len(o.terms)),
		AltIDs:  make(map[TermID]TermID, len(o.alt)),
	}
	copy(s.Terms, o.terms)
	for k, v := range o.alt {
		s.AltIDs[k] = v
	}
	edges := o.g.Edges()
	for edges.Next() {
		e := edges.Edge()
		s.IsA = append(s.IsA, [2]TermID{o.terms[e.From().ID()].ID, o.terms[e.To().ID()].ID})
	}
	sort.Slice(s.IsA, func(i, j int) bool {
		if s.IsA[i][0] != s.IsA[j][0] {
			return s.IsA[i][0] < s.IsA[j][0]
		}
		return s.IsA[i][1] < s.IsA[j][1]
	})
	return s
}

// FromSnapshot rebuilds an ontology from its plain-data form.
func FromSnapshot(s Snapshot) (*Ontology, error) {
	b := NewBuilder(s.Version)
	b.SetRoot(s.Root)
	for _, t := range s.Terms {
		b.AddTerm(t.ID, t.Name)
	}
	for _, e := range s.IsA {
		b.AddIsA(e[0], e[1])
	}
	for alt, primary := range s.AltIDs {
		b.AddAltID(alt, primary)
	}
	return b.Build()
}

// Builder assembles an Ontology.
type Builder struct {
	version string
	root    TermID
	terms   []Term
	ids     map[TermID]int64
	isA     [][2]TermID
	alt     map[TermID]TermID
}

// NewBuilder returns a builder for an ontology release.
func NewBuilder(version string) *Builder {
	return &Builder{
		version: version,
		root:    PhenotypicAbnormality,
		ids:     make(map[TermID]int64),
		alt:     make(map[TermID]TermID),
	}
}

// SetRoot overrides the phenotypic-abnormality root.
func (b *Builder) SetRoot(id TermID) { b.root = id }

// AddTerm adds a term. Adding an existing ID updates its name.
func (b *Builder) AddTerm(id TermID, name string) {
	if n, ok := b.ids[id]; ok {
		b.terms[n].Name = name
		return
	}
	b.ids[id] = int64(len(b.terms))
	b.terms = append(b.terms, Term{ID: id, Name: name})
}

// AddIsA records that child is_a parent.
func (b *Builder) AddIsA(child, parent TermID) {
	b.isA = append(b.isA, [2]TermID{child, parent})
}

// AddAltID records an alternative (obsolete) ID for a primary term.
func (b *Builder) AddAltID(alt, primary TermID) {
	b.alt[alt] = primary
}

// Build validates the terms and edges and returns the ontology. Cycles are
// rejected.
func (b *Builder) Build() (*Ontology, error) {
	g := simple.NewDirectedGraph()
	for i := range b.terms {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range b.isA {
		c, ok := b.ids[e[0]]
		if !ok {
			return nil, fmt.Errorf("is_a edge from unknown term %s", e[0])
		}
		p, ok := b.ids[e[1]]
		if !ok {
			return nil, fmt.Errorf("is_a edge to unknown term %s", e[1])
		}
		if c == p {
			return nil, fmt.Errorf("term %s is_a itself", e[0])
		}
		g.SetEdge(g.NewEdge(g.Node(c), g.Node(p)))
	}
	for alt, primary := range b.alt {
		if _, ok := b.ids[primary]; !ok {
			return nil, fmt.Errorf("alternative ID %s refers to unknown term %s", alt, primary)
		}
	}

	o := &Ontology{
		version: b.version,
		root:    b.root,
		g:       g,
		terms:   append([]Term(nil), b.terms...),
		ids:     make(map[TermID]int64, len(b.ids)),
		alt:     make(map[TermID]TermID, len(b.alt)),
	}
	for k, v := range b.ids {
		o.ids[k] = v
	}
	for k, v := range b.alt {
		o.alt[k] = v
	}
	if err := o.checkAcyclic(); err != nil {
		return nil, err
	}
	return o, nil
}

// checkAcyclic rejects graphs without a topological order.
func (o *Ontology) checkAcyclic() error {
	if _, err := topo.Sort(o.g); err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) && len(cycles) > 0 && len(cycles[0]) > 0 {
			return fmt.Errorf("ontology %s contains an is_a cycle through %s", o.version, o.terms[cycles[0][0].ID()].ID)
		}
		return fmt.Errorf("ontology %s contains an is_a cycle", o.version)
	}
	return nil
}

// ParseTermID normalises a CURIE or OBO PURL to a TermID.
//
//	http://purl.obolibrary.org/obo/HP_0001250 -> HP:0001250
//	HP_0001250                                -> HP:0001250
func ParseTermID(s string) (TermID, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if !strings.Contains(s, ":") {
		s = strings.Replace(s, "_", ":", 1)
	}
	prefix, local, ok := strings.Cut(s, ":")
	if !ok || prefix == "" || local == "" {
		return "", fmt.Errorf("invalid term ID %q", s)
	}
	return TermID(s), nil
}
