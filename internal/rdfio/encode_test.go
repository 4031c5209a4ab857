package rdfio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

func TestEncodeTurtle_RoundTrip(t *testing.T) {
	ds := domain.IRI("https://zenodo.org/records/1234")
	triples := []domain.Triple{
		{Subject: ds, Predicate: domain.IRI(RDFType), Object: domain.IRI(DCATDataset)},
		{Subject: ds, Predicate: domain.IRI(DCTIdentifier), Object: domain.Literal(`op "600"`)},
		{Subject: ds, Predicate: domain.IRI(DCTTitle), Object: domain.Term{Kind: domain.TermLiteral, Value: "Ventilator", Lang: "de"}},
		{Subject: ds, Predicate: domain.IRI(M4IHasNumericalValue), Object: domain.TypedLiteral("600", NSXSD+"integer")},
		{Subject: ds, Predicate: domain.IRI(DCATDistribution), Object: domain.Blank("d1")},
		{Subject: domain.Blank("d1"), Predicate: domain.IRI(DCATDownloadURL), Object: domain.IRI("https://zenodo.org/records/1234/files/op-600.ttl/content")},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeTurtle(&buf, triples))
	out := buf.String()
	assert.Contains(t, out, "@prefix dcat:")
	assert.Contains(t, out, "<https://zenodo.org/records/1234>")

	decoded, err := DecodeBytes(buf.Bytes(), domain.FormatTurtle, "out.ttl")
	require.NoError(t, err, out)
	require.Len(t, decoded, len(triples))

	byPredicate := make(map[string]domain.Term)
	for _, tr := range decoded {
		byPredicate[tr.Predicate.Value] = tr.Object
	}
	assert.Equal(t, domain.IRI(DCATDataset), byPredicate[RDFType])
	assert.Equal(t, domain.Literal(`op "600"`), byPredicate[DCTIdentifier])
	assert.Equal(t, "de", byPredicate[DCTTitle].Lang)
	assert.Equal(t, "600", byPredicate[M4IHasNumericalValue].Value)
	assert.Equal(t, domain.TermBlank, byPredicate[DCATDistribution].Kind)
	assert.Equal(t, "https://zenodo.org/records/1234/files/op-600.ttl/content", byPredicate[DCATDownloadURL].Value)
}

func TestEncodeTurtle_RejectsInvalidTerms(t *testing.T) {
	var buf bytes.Buffer

	err := EncodeTurtle(&buf, []domain.Triple{{
		Subject:   domain.IRI("https://example.org/a b"),
		Predicate: domain.IRI(DCTTitle),
		Object:    domain.Literal("x"),
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = EncodeTurtle(&buf, []domain.Triple{{
		Subject:   domain.Literal("x"),
		Predicate: domain.IRI(DCTTitle),
		Object:    domain.Literal("x"),
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, buf.Len())
}

func TestEncodeTurtle_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeTurtle(&buf, nil))
	assert.Zero(t, buf.Len())
}
