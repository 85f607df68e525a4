package rdf

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/knakk/rdf"
)

// Format is the media type of a graph serialization.
type Format string

const (
	FormatJSONLD   Format = "application/ld+json"
	FormatTurtle   Format = "text/turtle"
	FormatNTriples Format = "application/n-triples"
)

var mediaTypes = map[string]Format{
	"application/ld+json":   FormatJSONLD,
	"application/json":      FormatJSONLD,
	"application/*":         FormatJSONLD,
	"*/*":                   FormatJSONLD,
	"text/turtle":           FormatTurtle,
	"application/x-turtle":  FormatTurtle,
	"text/*":                FormatTurtle,
	"application/n-triples": FormatNTriples,
}

// prefixes used when writing Turtle. IRIs outside these namespaces are written in full.
var prefixes = map[string]string{
	"http://www.w3.org/ns/dcat#":               "dcat",
	"http://purl.org/dc/terms/":                "dct",
	"http://xmlns.com/foaf/0.1/":               "foaf",
	"http://www.w3.org/2006/vcard/ns#":         "vcard",
	"http://www.w3.org/2001/XMLSchema#":        "xsd",
	"http://www.w3.org/2000/01/rdf-schema#":    "rdfs",
	"http://www.w3.org/2004/02/skos/core#":     "skos",
	"http://www.w3.org/ns/adms#":               "adms",
	"http://data.europa.eu/m8g/":               "cv",
	"https://data.norge.no/vocabulary/dcatno#": "dcatno",
}

// Negotiate picks the serialization for an Accept header. Entries are tried in order of their
// q value; a missing header means JSON-LD. ok is false when nothing acceptable is supported.
func Negotiate(accept string) (f Format, ok bool) {
	if strings.TrimSpace(accept) == "" {
		return FormatJSONLD, true
	}

	type candidate struct {
		media string
		q     float64
	}
	var candidates []candidate
	for _, part := range strings.Split(accept, ",") {
		fields := strings.Split(part, ";")
		media := strings.ToLower(strings.TrimSpace(fields[0]))
		if media == "" {
			continue
		}
		q := 1.0
		for _, param := range fields[1:] {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || strings.TrimSpace(key) != "q" {
				continue
			}
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}
		candidates = append(candidates, candidate{media: media, q: q})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].q > candidates[j].q })

	for _, c := range candidates {
		if f, ok := mediaTypes[c.media]; ok {
			return f, true
		}
	}
	return "", false
}

// JSONLDToTriples reads expanded JSON-LD, either a node array or a {"@graph": [...]} document,
// back into triples. It is the inverse of TurtleToJSONLD.
func JSONLDToTriples(doc []byte) ([]rdf.Triple, error) {
	var raw any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode json-ld: %w", err)
	}
	nodes, err := graphNodes(raw)
	if err != nil {
		return nil, err
	}

	typePred, _ := rdf.NewIRI(rdfType)
	var triples []rdf.Triple
	for _, n := range nodes {
		id, _ := n["@id"].(string)
		subj, err := subjectTerm(id)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}

		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			switch key {
			case "@id":
				continue
			case "@type":
				for _, t := range asValues(n[key]) {
					s, ok := t.(string)
					if !ok {
						continue
					}
					obj, err := rdf.NewIRI(s)
					if err != nil {
						return nil, fmt.Errorf("node %q type: %w", id, err)
					}
					triples = append(triples, rdf.Triple{Subj: subj, Pred: typePred, Obj: obj})
				}
				continue
			}
			if strings.HasPrefix(key, "@") {
				continue
			}
			pred, err := rdf.NewIRI(key)
			if err != nil {
				return nil, fmt.Errorf("predicate %q: %w", key, err)
			}
			for _, v := range asValues(n[key]) {
				obj, err := objectTerm(v)
				if err != nil {
					return nil, fmt.Errorf("node %q predicate %q: %w", id, key, err)
				}
				triples = append(triples, rdf.Triple{Subj: subj, Pred: pred, Obj: obj})
			}
		}
	}
	return triples, nil
}

// Encode writes the JSON-LD document in the requested format. JSON-LD is written as stored.
func Encode(w io.Writer, doc []byte, f Format) error {
	var format rdf.Format
	switch f {
	case FormatJSONLD:
		_, err := w.Write(doc)
		return err
	case FormatTurtle:
		format = rdf.Turtle
	case FormatNTriples:
		format = rdf.NTriples
	default:
		return fmt.Errorf("unsupported format %q", f)
	}

	triples, err := JSONLDToTriples(doc)
	if err != nil {
		return err
	}
	enc := rdf.NewTripleEncoder(w, format)
	enc.GenerateNamespaces = false
	for ns, prefix := range prefixes {
		enc.Namespaces[ns] = prefix
	}
	for _, t := range triples {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("encode triple: %w", err)
		}
	}
	return enc.Close()
}

func graphNodes(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected node object, got %T", item)
			}
			out = append(out, obj)
		}
		return out, nil
	case map[string]any:
		if g, ok := v["@graph"]; ok {
			return graphNodes(g)
		}
		return []map[string]any{v}, nil
	default:
		return nil, fmt.Errorf("expected array or object, got %T", raw)
	}
}

func asValues(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

func subjectTerm(id string) (rdf.Subject, error) {
	if label, ok := strings.CutPrefix(id, "_:"); ok {
		return rdf.NewBlank(label)
	}
	return rdf.NewIRI(id)
}

func objectTerm(v any) (rdf.Object, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return literalTerm(v, "", "")
	}
	if value, isLiteral := obj["@value"]; isLiteral {
		lang, _ := obj["@language"].(string)
		dt, _ := obj["@type"].(string)
		return literalTerm(value, lang, dt)
	}
	id, _ := obj["@id"].(string)
	term, err := subjectTerm(id)
	if err != nil {
		return nil, err
	}
	return term.(rdf.Object), nil
}

func literalTerm(value any, lang, datatype string) (rdf.Object, error) {
	s, isString := value.(string)
	switch {
	case !isString:
		return rdf.NewLiteral(value)
	case lang != "":
		return rdf.NewLangLiteral(s, lang)
	case datatype != "":
		dt, err := rdf.NewIRI(datatype)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(s, dt), nil
	default:
		return rdf.NewLiteral(s)
	}
}
