// Package rdf turns harvested Turtle into expanded JSON-LD node objects.
package rdf

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/knakk/rdf"
)

const (
	rdfType       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	rdfLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
	xsdString     = "http://www.w3.org/2001/XMLSchema#string"
)

// ErrEmptyGraph is returned when the input holds no statements.
var ErrEmptyGraph = errors.New("rdf: graph has no statements")

// Converter converts RDF graphs to JSON-LD.
type Converter interface {
	TurtleToJSONLD(turtle string) ([]byte, error)
}

type converter struct{}

func NewConverter() Converter { return converter{} }

// TurtleToJSONLD returns an expanded JSON-LD array with one node object per subject.
// Nodes are sorted by @id and values by their JSON encoding, so equal graphs give equal bytes.
func (converter) TurtleToJSONLD(turtle string) ([]byte, error) {
	triples, err := rdf.NewTripleDecoder(strings.NewReader(turtle), rdf.Turtle).DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("decode turtle: %w", err)
	}
	if len(triples) == 0 {
		return nil, ErrEmptyGraph
	}

	nodes := map[string]*node{}
	for _, tr := range triples {
		id := termID(tr.Subj)
		n, ok := nodes[id]
		if !ok {
			n = &node{id: id, props: map[string][]any{}}
			nodes[id] = n
		}

		pred := tr.Pred.String()
		if iri, isIRI := tr.Obj.(rdf.IRI); isIRI && pred == rdfType {
			n.types = appendUnique(n.types, iri.String())
			continue
		}
		n.props[pred] = append(n.props[pred], objectValue(tr.Obj))
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, nodes[id].toJSON())
	}
	return json.Marshal(out)
}

type node struct {
	id    string
	types []string
	props map[string][]any
}

func (n *node) toJSON() map[string]any {
	m := map[string]any{"@id": n.id}
	if len(n.types) > 0 {
		sort.Strings(n.types)
		m["@type"] = n.types
	}
	for pred, values := range n.props {
		m[pred] = SortValues(values)
	}
	return m
}

func termID(t rdf.Term) string {
	if b, ok := t.(rdf.Blank); ok {
		return "_:" + strings.TrimPrefix(b.String(), "_:")
	}
	return t.String()
}

func objectValue(t rdf.Term) map[string]any {
	switch v := t.(type) {
	case rdf.Literal:
		out := map[string]any{"@value": v.String()}
		if lang := v.Lang(); lang != "" {
			out["@language"] = lang
		} else if dt := v.DataType.String(); dt != "" && dt != xsdString && dt != rdfLangString {
			out["@type"] = dt
		}
		return out
	default:
		return map[string]any{"@id": termID(t)}
	}
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// SortValues de-duplicates JSON-LD values and orders them by their JSON encoding.
func SortValues(values []any) []any {
	keyed := make(map[string]any, len(values))
	keys := make([]string, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		k := string(b)
		if _, dup := keyed[k]; dup {
			continue
		}
		keyed[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyed[k])
	}
	return out
}
