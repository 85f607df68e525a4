package rdf

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const datasetTurtle = `
@prefix dct: <http://purl.org/dc/terms/> .
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

<https://data.example.org/datasets/1>
    a dcat:Dataset ;
    dct:title "Bysykkel"@nb , "City bikes"@en ;
    dct:identifier "1" ;
    dcat:distribution <https://data.example.org/distributions/1> ;
    dct:issued "2020-01-01"^^xsd:date .

<https://data.example.org/distributions/1>
    a dcat:Distribution ;
    dcat:accessService <https://data.example.org/services/1> .
`

func TestTurtleToJSONLD(t *testing.T) {
	out, err := NewConverter().TurtleToJSONLD(datasetTurtle)
	require.NoError(t, err)

	var nodes []map[string]any
	require.NoError(t, json.Unmarshal(out, &nodes))
	require.Len(t, nodes, 2)

	ds := nodes[0]
	require.Equal(t, "https://data.example.org/datasets/1", ds["@id"])
	require.Equal(t, []any{"http://www.w3.org/ns/dcat#Dataset"}, ds["@type"])

	titles := ds["http://purl.org/dc/terms/title"].([]any)
	require.Len(t, titles, 2)
	require.Contains(t, titles, map[string]any{"@value": "Bysykkel", "@language": "nb"})

	require.Equal(t, []any{map[string]any{"@value": "1"}}, ds["http://purl.org/dc/terms/identifier"])
	require.Equal(t,
		[]any{map[string]any{"@value": "2020-01-01", "@type": "http://www.w3.org/2001/XMLSchema#date"}},
		ds["http://purl.org/dc/terms/issued"])
	require.Equal(t,
		[]any{map[string]any{"@id": "https://data.example.org/distributions/1"}},
		ds["http://www.w3.org/ns/dcat#distribution"])
}

func TestTurtleToJSONLDIsDeterministic(t *testing.T) {
	c := NewConverter()
	a, err := c.TurtleToJSONLD(datasetTurtle)
	require.NoError(t, err)
	b, err := c.TurtleToJSONLD(datasetTurtle)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestTurtleToJSONLDBlankNodes(t *testing.T) {
	out, err := NewConverter().TurtleToJSONLD(`
@prefix dcat: <http://www.w3.org/ns/dcat#> .
@prefix vcard: <http://www.w3.org/2006/vcard/ns#> .
<https://data.example.org/datasets/2> dcat:contactPoint _:contact .
_:contact vcard:fn "Support" .
`)
	require.NoError(t, err)

	var nodes []map[string]any
	require.NoError(t, json.Unmarshal(out, &nodes))
	require.Len(t, nodes, 2)

	var blankID string
	for _, n := range nodes {
		if id := n["@id"].(string); id[:2] == "_:" {
			blankID = id
		}
	}
	require.NotEmpty(t, blankID)
	require.Contains(t, string(out), `"@id":"`+blankID+`"`)
}

func TestTurtleToJSONLDErrors(t *testing.T) {
	_, err := NewConverter().TurtleToJSONLD("")
	require.ErrorIs(t, err, ErrEmptyGraph)

	_, err = NewConverter().TurtleToJSONLD("<https://a> <https://b> .")
	require.Error(t, err)
}

func TestSortValues(t *testing.T) {
	values := []any{
		map[string]any{"@id": "b"},
		map[string]any{"@id": "a"},
		map[string]any{"@id": "b"},
	}
	require.Equal(t, []any{map[string]any{"@id": "a"}, map[string]any{"@id": "b"}}, SortValues(values))
}
