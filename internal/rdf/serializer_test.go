package rdf

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/require"
)

func ntriples(t *testing.T, triples []rdf.Triple) []string {
	t.Helper()
	out := make([]string, 0, len(triples))
	for _, tr := range triples {
		out = append(out, tr.Serialize(rdf.NTriples))
	}
	sort.Strings(out)
	return out
}

func decodeTriples(t *testing.T, body string, f rdf.Format) []rdf.Triple {
	t.Helper()
	triples, err := rdf.NewTripleDecoder(strings.NewReader(body), f).DecodeAll()
	require.NoError(t, err)
	return triples
}

func TestNegotiate(t *testing.T) {
	cases := []struct {
		accept string
		want   Format
		ok     bool
	}{
		{"", FormatJSONLD, true},
		{"*/*", FormatJSONLD, true},
		{"application/ld+json", FormatJSONLD, true},
		{"application/json", FormatJSONLD, true},
		{"text/turtle", FormatTurtle, true},
		{"text/turtle; charset=utf-8", FormatTurtle, true},
		{"application/n-triples", FormatNTriples, true},
		{"text/html, application/n-triples;q=0.5", FormatNTriples, true},
		{"application/ld+json;q=0.2, text/turtle;q=0.9", FormatTurtle, true},
		{"text/turtle;q=0, application/n-triples", FormatNTriples, true},
		{"application/rdf+xml", "", false},
		{"text/html, image/png", "", false},
	}
	for _, tc := range cases {
		got, ok := Negotiate(tc.accept)
		require.Equal(t, tc.ok, ok, tc.accept)
		require.Equal(t, tc.want, got, tc.accept)
	}
}

func TestJSONLDToTriplesInvertsTurtleToJSONLD(t *testing.T) {
	doc, err := NewConverter().TurtleToJSONLD(datasetTurtle)
	require.NoError(t, err)

	got, err := JSONLDToTriples(doc)
	require.NoError(t, err)
	require.Equal(t, ntriples(t, decodeTriples(t, datasetTurtle, rdf.Turtle)), ntriples(t, got))
}

func TestJSONLDToTriplesReadsGraphDocuments(t *testing.T) {
	doc := []byte(`{"@graph":[
		{"@id":"https://data.example.org/datasets/1",
		 "@type":["http://www.w3.org/ns/dcat#Dataset"],
		 "http://www.w3.org/ns/dcat#contactPoint":[{"@id":"_:abc-b0"}]},
		{"@id":"_:abc-b0","http://www.w3.org/2006/vcard/ns#fn":[{"@value":"Support"}]}
	]}`)

	got, err := JSONLDToTriples(doc)
	require.NoError(t, err)
	require.Equal(t, []string{
		"<https://data.example.org/datasets/1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/dcat#Dataset> .\n",
		"<https://data.example.org/datasets/1> <http://www.w3.org/ns/dcat#contactPoint> _:abc-b0 .\n",
		"_:abc-b0 <http://www.w3.org/2006/vcard/ns#fn> \"Support\" .\n",
	}, ntriples(t, got))
}

func TestJSONLDToTriplesRejectsBadInput(t *testing.T) {
	for _, doc := range []string{`{not json`, `"text"`, `[1]`, `[{"@id":"has space"}]`} {
		_, err := JSONLDToTriples([]byte(doc))
		require.Error(t, err, doc)
	}
}

func TestEncodeNTriples(t *testing.T) {
	doc, err := NewConverter().TurtleToJSONLD(datasetTurtle)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, FormatNTriples))

	want := ntriples(t, decodeTriples(t, datasetTurtle, rdf.Turtle))
	require.Equal(t, want, ntriples(t, decodeTriples(t, buf.String(), rdf.NTriples)))
}

func TestEncodeTurtle(t *testing.T) {
	doc, err := NewConverter().TurtleToJSONLD(datasetTurtle)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, FormatTurtle))
	body := buf.String()
	require.Contains(t, body, "@prefix dcat:")
	require.Contains(t, body, "dcat:Dataset")

	want := ntriples(t, decodeTriples(t, datasetTurtle, rdf.Turtle))
	require.Equal(t, want, ntriples(t, decodeTriples(t, body, rdf.Turtle)))
}

func TestEncodeJSONLDWritesDocumentAsIs(t *testing.T) {
	doc := []byte(`{"@graph":[]}`)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, FormatJSONLD))
	require.Equal(t, string(doc), buf.String())

	require.Error(t, Encode(&buf, doc, Format("application/rdf+xml")))
}
