package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

// twoChains builds A1-A2-A3 (edges EA1, EA2) and B1-B2 (edge EB).
func twoChains() *graph.Store {
	g := graph.NewStore(&typeid.Sequence{})
	for i, id := range []string{"A1", "A2", "A3", "B1", "B2"} {
		g.CreateNode(id, float64(i*10), 0)
	}
	g.CreateEdge("EA1", "A1", "A2", "#000", 1)
	g.CreateEdge("EA2", "A2", "A3", "#000", 1)
	g.CreateEdge("EB", "B1", "B2", "#000", 1)
	return g
}

func TestComponentSelection(t *testing.T) {
	g := twoChains()
	s := New(g)
	assert.True(t, s.Empty())

	require.True(t, s.SelectComponent("EA1", graph.KindEdge, false))
	assert.Equal(t, []string{"A1", "A2", "A3"}, s.NodeIDs())
	assert.Equal(t, []string{"EA1", "EA2"}, s.EdgeIDs())

	s.SelectText("t1", true)
	require.True(t, s.SelectComponent("B1", graph.KindNode, true))
	assert.Len(t, s.ActiveComponents(), 2)
	assert.Equal(t, []string{"t1"}, s.TextIDs())

	require.True(t, s.SelectComponent("B2", graph.KindNode, false))
	assert.Len(t, s.ActiveComponents(), 1)
	assert.Empty(t, s.TextIDs(), "plain select replaces everything")

	assert.False(t, s.SelectComponent("ghost", graph.KindNode, false))
}

func TestEdgeSeedIsKeyedByNode(t *testing.T) {
	g := twoChains()
	s := New(g)
	require.True(t, s.SelectComponent("EA2", graph.KindEdge, false))
	require.Len(t, s.ActiveComponents(), 1)
	assert.Equal(t, "A2", s.ActiveComponents()[0].RepresentativeID)

	g.CreateNode("A4", 40, 10)
	g.CreateEdge("EA3", "A3", "A4", "#000", 1)
	s.Reconcile(nil)
	assert.Equal(t, "A2", s.ActiveComponents()[0].RepresentativeID, "the key survives a recompute")
	assert.Equal(t, []string{"A1", "A2", "A3", "A4"}, s.NodeIDs())

	require.True(t, s.DrillInto("EB", graph.KindEdge))
	focus, ok := s.Focus()
	require.True(t, ok)
	assert.Equal(t, "B1", focus.RepresentativeID)
}

func TestToggleComponent(t *testing.T) {
	s := New(twoChains())
	require.True(t, s.ToggleComponent("A1", graph.KindNode))
	require.True(t, s.ToggleComponent("B1", graph.KindNode))
	assert.Len(t, s.ActiveComponents(), 2)
	require.True(t, s.ToggleComponent("A3", graph.KindNode))
	assert.Equal(t, []string{"B1", "B2"}, s.NodeIDs())
	assert.Equal(t, "B1", s.ActiveComponents()[0].RepresentativeID)
}

func TestDrillIntoAndElementScope(t *testing.T) {
	s := New(twoChains())
	s.SelectComponent("A1", graph.KindNode, false)
	s.SelectComponent("B1", graph.KindNode, true)

	require.True(t, s.DrillInto("EA2", graph.KindEdge))
	assert.Equal(t, LevelElement, s.Level())
	assert.Nil(t, s.ActiveComponents(), "multi-selection collapses to the focus")
	assert.Equal(t, []string{"EA2"}, s.EdgeIDs())
	assert.Empty(t, s.NodeIDs())

	assert.True(t, s.SelectElement("A1", graph.KindNode, true))
	assert.False(t, s.SelectElement("B1", graph.KindNode, true), "outside the focus")
	assert.False(t, s.ToggleElement("EB", graph.KindEdge))
	assert.Equal(t, []string{"A1"}, s.NodeIDs())

	assert.True(t, s.ToggleElement("A1", graph.KindNode))
	assert.Empty(t, s.NodeIDs())

	assert.True(t, s.SelectElement("A3", graph.KindNode, false))
	assert.Empty(t, s.EdgeIDs())
	assert.True(t, s.IsSelected("A3", graph.KindNode))

	assert.False(t, s.ToggleComponent("B1", graph.KindNode), "component toggles do not apply at element level")

	s.SelectComponent("B1", graph.KindNode, false)
	assert.Equal(t, LevelComponent, s.Level(), "selecting another component leaves element level")
}

func TestTextAtElementLevelLeavesFocus(t *testing.T) {
	s := New(twoChains())
	s.DrillInto("A1", graph.KindNode)
	assert.False(t, s.ToggleText("t1"))
	s.SelectText("t1", true)
	assert.Equal(t, LevelComponent, s.Level())
	assert.Equal(t, []string{"t1"}, s.TextIDs())
}

func TestSelectAllAndDeselect(t *testing.T) {
	s := New(twoChains())
	s.SelectAll([]string{"t1", "t2"})
	assert.Len(t, s.ActiveComponents(), 2)
	assert.Len(t, s.NodeIDs(), 5)
	assert.Len(t, s.TextIDs(), 2)
	s.DeselectAll()
	assert.True(t, s.Empty())
}

func TestReconcileSplitsActiveComponent(t *testing.T) {
	g := twoChains()
	s := New(g)
	s.SelectComponent("A1", graph.KindNode, false)

	_, ok := g.DeleteEdgeSmart("EA2")
	require.True(t, ok)
	// A3 was left isolated and cascaded away; A1-A2 remains.
	s.Reconcile(nil)
	require.Len(t, s.ActiveComponents(), 1)
	assert.Equal(t, []string{"A1", "A2"}, s.NodeIDs())

	g.CreateNode("A3", 20, 0)
	g.CreateEdge("EA2", "A2", "A3", "#000", 1)
	g.CreateEdge("EA3", "A3", "A1", "#000", 1)
	s.SelectComponent("A1", graph.KindNode, false)
	_, ok = g.DeleteNodeSmart("A2")
	require.True(t, ok)
	s.Reconcile(nil)
	assert.Equal(t, []string{"A1", "A3"}, s.NodeIDs())
}

func TestReconcileSplitIntoTwoFragments(t *testing.T) {
	g := twoChains()
	g.CreateNode("A4", 30, 0)
	g.CreateEdge("EA3", "A3", "A4", "#000", 1)
	s := New(g)
	s.SelectComponent("A1", graph.KindNode, false)

	// Removing only the middle edge keeps both halves alive.
	g.Remove(nil, []string{"EA2"})
	s.Reconcile(nil)
	comps := s.ActiveComponents()
	require.Len(t, comps, 2)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4"}, s.NodeIDs())
	assert.Equal(t, "A1", comps[0].RepresentativeID, "surviving representative keeps its key")
	assert.Equal(t, "A3", comps[1].RepresentativeID)
}

func TestReconcileMergesBridgedComponents(t *testing.T) {
	g := twoChains()
	s := New(g)
	s.SelectComponent("A1", graph.KindNode, false)
	s.SelectComponent("B1", graph.KindNode, true)
	require.Len(t, s.ActiveComponents(), 2)

	g.CreateEdge("BR", "A3", "B1", "#000", 1)
	s.Reconcile(nil)
	require.Len(t, s.ActiveComponents(), 1)
	assert.Contains(t, s.EdgeIDs(), "BR")
}

func TestReconcileFocusTransfer(t *testing.T) {
	g := twoChains()
	s := New(g)
	s.DrillInto("A1", graph.KindNode)
	s.SelectElement("A3", graph.KindNode, true)

	// The representative A1 survives the split, so focus stays with it.
	g.Remove(nil, []string{"EA2"})
	s.Reconcile(nil)
	focus, ok := s.Focus()
	require.True(t, ok)
	assert.Equal(t, "A1", focus.RepresentativeID)
	assert.Equal(t, []string{"A1"}, s.NodeIDs(), "picks outside the new focus are dropped")

	// The representative goes away; focus moves to the fragment holding a pick.
	g.CreateEdge("EA2", "A2", "A3", "#000", 1)
	s.DrillInto("A1", graph.KindNode)
	s.SelectElement("A3", graph.KindNode, false)
	g.Remove([]string{"A1"}, nil)
	s.Reconcile(nil)
	focus, ok = s.Focus()
	require.True(t, ok)
	assert.True(t, focus.HasNode("A3"))

	// Nothing survives: back to an empty component level.
	g.Remove([]string{"A2", "A3"}, nil)
	s.Reconcile(nil)
	assert.Equal(t, LevelComponent, s.Level())
	assert.True(t, s.Empty())
}

func TestReconcileDropsDeletedTexts(t *testing.T) {
	s := New(twoChains())
	s.SelectText("keep", true)
	s.SelectText("gone", true)
	s.Reconcile(func(id string) bool { return id == "keep" })
	assert.Equal(t, []string{"keep"}, s.TextIDs())
}
