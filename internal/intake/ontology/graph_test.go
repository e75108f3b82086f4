package ontology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTriples = `<http://example.org/Fever> <http://www.w3.org/2002/07/owl#hasDuration> "three days" .
<http://example.org/Fever> <http://www.w3.org/2002/07/owl#hasSeverity> "moderate" .
<http://example.org/Migraine> <http://www.w3.org/2002/07/owl#hasAssociatedSymptoms> "nausea" .
<http://example.org/Fever> <http://www.w3.org/2000/01/rdf-schema#comment> "A fever is a temporary rise in body temperature." .
<http://example.org/Fever> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/2002/07/owl#Class> .
`

func decodeSample(t *testing.T) *Graph {
	t.Helper()
	g, err := Decode(strings.NewReader(sampleTriples))
	require.NoError(t, err)
	return g
}

func TestDecodeKeepsOnlyLiterals(t *testing.T) {
	g := decodeSample(t)
	assert.Len(t, g.triples, 4, "the rdf:type triple has no literal object")
}

func TestLookupLiteralSubstring(t *testing.T) {
	g := decodeSample(t)

	answer, ok := g.Lookup("rise in BODY temperature")
	require.True(t, ok)
	assert.Contains(t, answer, "A fever is a temporary rise in body temperature.")
}

func TestLookupAttributePredicates(t *testing.T) {
	g := decodeSample(t)

	answer, ok := g.Lookup("three days")
	require.True(t, ok)
	assert.Equal(t, "The entity http://example.org/Fever has duration: three days", answer)

	answer, ok = g.Lookup("moderate")
	require.True(t, ok)
	assert.Equal(t, "The entity http://example.org/Fever has severity: moderate", answer)

	answer, ok = g.Lookup("nausea")
	require.True(t, ok)
	assert.Equal(t, "The entity http://example.org/Migraine is associated with symptom: nausea", answer)
}

func TestLookupAttributeTakesPrecedenceOverSubstring(t *testing.T) {
	g := decodeSample(t)

	// "moderate" matches the severity literal exactly and also as a
	// substring; the attribute form must win.
	answer, ok := g.Lookup("MODERATE")
	require.True(t, ok)
	assert.Equal(t, "The entity http://example.org/Fever has severity: moderate", answer)
}

func TestLookupMiss(t *testing.T) {
	g := decodeSample(t)

	_, ok := g.Lookup("completely unrelated text")
	assert.False(t, ok)

	_, ok = g.Lookup("   ")
	assert.False(t, ok)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	g := decodeSample(t)

	_, lower := g.Lookup("nausea")
	_, upper := g.Lookup("NAUSEA")
	assert.True(t, lower)
	assert.True(t, upper)
}
