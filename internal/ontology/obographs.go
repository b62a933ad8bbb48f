package ontology

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// obographs JSON (https://github.com/geneontology/obographs) subset used by
// the HPO hp.json release.
type oboDocument struct {
	Graphs []oboGraph `json:"graphs"`
}

type oboGraph struct {
	ID    string    `json:"id"`
	Meta  oboMeta   `json:"meta"`
	Nodes []oboNode `json:"nodes"`
	Edges []oboEdge `json:"edges"`
}

type oboMeta struct {
	Version             string             `json:"version"`
	Deprecated          bool               `json:"deprecated"`
	BasicPropertyValues []oboPropertyValue `json:"basicPropertyValues"`
}

type oboPropertyValue struct {
	Pred string `json:"pred"`
	Val  string `json:"val"`
}

type oboNode struct {
	ID   string  `json:"id"`
	Lbl  string  `json:"lbl"`
	Type string  `json:"type"`
	Meta oboMeta `json:"meta"`
}

type oboEdge struct {
	Sub  string `json:"sub"`
	Pred string `json:"pred"`
	Obj  string `json:"obj"`
}

const hasAlternativeID = "http://www.geneontology.org/formats/oboInOwl#hasAlternativeId"

// LoadOBOGraphs reads an ontology from an obographs JSON file.
func LoadOBOGraphs(path string) (*Ontology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	o, err := ReadOBOGraphs(f)
	if err != nil {
		return nil, fmt.Errorf("read ontology %s: %w", path, err)
	}
	return o, nil
}

// ReadOBOGraphs decodes the first graph of an obographs JSON document. Only
// non-deprecated classes whose prefix matches the root's prefix and is_a
// edges between them are kept.
func ReadOBOGraphs(r io.Reader) (*Ontology, error) {
	var doc oboDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode obographs: %w", err)
	}
	if len(doc.Graphs) == 0 {
		return nil, fmt.Errorf("obographs document has no graphs")
	}
	og := doc.Graphs[0]

	b := NewBuilder(releaseVersion(og))
	prefix, _, _ := strings.Cut(string(b.root), ":")

	known := make(map[TermID]bool, len(og.Nodes))
	var alts [][2]TermID
	for _, n := range og.Nodes {
		if n.Type != "" && n.Type != "CLASS" {
			continue
		}
		if n.Meta.Deprecated {
			continue
		}
		id, err := ParseTermID(n.ID)
		if err != nil || !strings.HasPrefix(string(id), prefix+":") {
			continue
		}
		b.AddTerm(id, n.Lbl)
		known[id] = true
		for _, pv := range n.Meta.BasicPropertyValues {
			if pv.Pred != hasAlternativeID {
				continue
			}
			if alt, err := ParseTermID(pv.Val); err == nil {
				alts = append(alts, [2]TermID{alt, id})
			}
		}
	}
	for _, a := range alts {
		if !known[a[0]] {
			b.AddAltID(a[0], a[1])
		}
	}

	for _, e := range og.Edges {
		if e.Pred != "is_a" {
			continue
		}
		sub, err := ParseTermID(e.Sub)
		if err != nil {
			continue
		}
		obj, err := ParseTermID(e.Obj)
		if err != nil {
			continue
		}
		if known[sub] && known[obj] {
			b.AddIsA(sub, obj)
		}
	}
	return b.Build()
}

// releaseVersion extracts "2024-04-26" from a versionIRI such as
// http://purl.obolibrary.org/obo/hp/releases/2024-04-26/hp.json.
func releaseVersion(g oboGraph) string {
	v := g.Meta.Version
	if v == "" {
		return g.ID
	}
	parts := strings.Split(v, "/")
	for i, p := range parts {
		if p == "releases" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return v
}
