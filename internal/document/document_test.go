package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

func TestSampleDocumentRoundTrips(t *testing.T) {
	doc := NewSampleDocument(&typeid.Sequence{})
	assert.Len(t, doc.Nodes, 8)
	assert.Len(t, doc.Edges, 7)
	assert.Len(t, doc.Texts, 2)
	assert.Equal(t, "node_1", doc.Nodes[0].ID)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Edges, back.Edges)
	assert.Equal(t, doc.Texts[0].Text, back.Texts[0].Text)

	r, ok := back.Bounds()
	require.True(t, ok)
	assert.Greater(t, r.Width, 0.0)
}

func TestParseRejectsDanglingEdges(t *testing.T) {
	_, err := Parse([]byte(`{"version":1,"nodes":[{"id":"a"}],"edges":[{"id":"e","node1Id":"a","node2Id":"b"}]}`))
	assert.ErrorIs(t, err, graph.ErrMissingEndpoint)

	_, err = Parse([]byte(`{"version":99}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{`))
	assert.Error(t, err)
}

func TestParseRejectsSelfLoops(t *testing.T) {
	_, err := Parse([]byte(`{"version":1,"nodes":[{"id":"a"}],"edges":[{"id":"e","node1Id":"a","node2Id":"a"}]}`))
	assert.ErrorIs(t, err, graph.ErrSelfLoop)
}

func TestEmptyDocumentHasNoBounds(t *testing.T) {
	_, ok := NewEmptyDocument(Style{}).Bounds()
	assert.False(t, ok)
}
