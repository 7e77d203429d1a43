package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texsketch/texsketch/backend-go/internal/history"
)

func altClick(t *testing.T, e *Editor, x, y float64) string {
	t.Helper()
	id, err := e.AltClick(pt(x, y))
	require.NoError(t, err)
	return id
}

func TestAltClickDrawsPolyline(t *testing.T) {
	e, rec := newEditor(t)
	e.BeginAltDraw()
	assert.Empty(t, e.AltSources())

	var first, second, third string
	assertInverse(t, e, history.KindCreateGraphElements, func() {
		first = altClick(t, e, 0, 0)
	})
	assert.Equal(t, 1, e.Graph().NodeCount())
	assert.Equal(t, 0, e.Graph().EdgeCount())

	assertInverse(t, e, history.KindCreateGraphElements, func() {
		second = altClick(t, e, 100, 0)
	})
	assert.True(t, e.Graph().EdgeExists(first, second))

	assertInverse(t, e, history.KindCreateGraphElements, func() {
		third = altClick(t, e, 100, 100)
	})
	assert.True(t, e.Graph().EdgeExists(second, third))
	assert.Equal(t, 3, e.Graph().NodeCount())
	assert.Equal(t, []string{third}, e.AltSources())
	assert.Len(t, rec.recorded, 3, "one command per click")

	cmd, _ := e.hist.Peek()
	step := cmd.(history.CreateGraphElements)
	assert.Len(t, step.Nodes, 1)
	assert.Len(t, step.Edges, 1)
	assert.Equal(t, "#000000", step.Edges[0].Color)
}

func TestAltClickOnChainSourceEndsChain(t *testing.T) {
	e, rec := newEditor(t)
	e.BeginAltDraw()
	altClick(t, e, 0, 0)
	last := altClick(t, e, 100, 0)
	require.Equal(t, []string{last}, e.AltSources())

	assert.Empty(t, altClick(t, e, 103, 0))
	assert.Empty(t, e.AltSources())
	assert.Len(t, rec.recorded, 2)

	lone := altClick(t, e, 300, 300)
	assert.Equal(t, 0, e.Graph().Degree(lone), "a fresh chain starts without an edge")
}

func TestAltClickSnapsToNearbyNode(t *testing.T) {
	e, _ := chains(t)
	e.BeginAltDraw()
	assert.Equal(t, "a", altClick(t, e, 0, 0))
	assert.False(t, e.CanUndo(), "landing on an existing node records nothing")

	// 10 away from f: outside the hit radius, inside the snap radius.
	assertInverse(t, e, history.KindCreateGraphElements, func() {
		assert.Equal(t, "f", altClick(t, e, 110, 200))
	})
	assert.Equal(t, 5, e.Graph().NodeCount())
	assert.True(t, e.Graph().EdgeExists("a", "f"))

	assertInverse(t, e, history.KindCreateGraphElements, func() {
		altClick(t, e, 115, 200)
	})
	assert.Equal(t, 6, e.Graph().NodeCount(), "beyond the snap radius a new node is placed")
}

func TestAltClickFansOutFromSelection(t *testing.T) {
	e, _ := chains(t)
	e.Click(pt(0, 0), Modifiers{})
	e.BeginAltDraw()
	assert.Equal(t, []string{"a", "b", "c"}, e.AltSources())

	var hub string
	assertInverse(t, e, history.KindCreateGraphElements, func() {
		hub = altClick(t, e, 100, 100)
		assert.Len(t, e.sel.NodeIDs(), 4, "the hub joins the active component")
	})
	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, e.Graph().EdgeExists(id, hub), id)
	}
	assert.Equal(t, []string{hub}, e.AltSources(), "fan-out sources are spent")

	assertInverse(t, e, history.KindCreateGraphElements, func() {
		assert.Equal(t, "d", altClick(t, e, 0, 200))
	})
	assert.True(t, e.Graph().EdgeExists(hub, "d"))
}

func TestAltFanOutSkipsTargetAndJoinedPairs(t *testing.T) {
	e, _ := chains(t)
	e.Click(pt(0, 0), Modifiers{})
	e.BeginAltDraw()

	assertInverse(t, e, history.KindCreateGraphElements, func() {
		assert.Equal(t, "c", altClick(t, e, 200, 0))
	})
	cmd, _ := e.hist.Peek()
	step := cmd.(history.CreateGraphElements)
	assert.Empty(t, step.Nodes)
	require.Len(t, step.Edges, 1)
	assert.ElementsMatch(t, []string{"a", "c"}, []string{step.Edges[0].Node1ID, step.Edges[0].Node2ID})
}

func TestAltDrawEndsOnRelease(t *testing.T) {
	e, _ := chains(t)
	e.BeginAltDraw()
	altClick(t, e, 0, 0)
	e.EndAltDraw()
	assert.Empty(t, e.AltSources())

	e.BeginAltDraw()
	altClick(t, e, 0, 0)
	require.NoError(t, e.BeginStroke(pt(400, 400)))
	assert.Empty(t, e.AltSources(), "a plain gesture ends alt-drawing")
	_, err := e.AltClick(pt(0, 0))
	assert.NoError(t, err, "an open stroke is finished first")

	require.NoError(t, e.BeginMarquee(pt(500, 500), false))
	_, err = e.AltClick(pt(0, 0))
	assert.ErrorIs(t, err, ErrGestureActive)
}
