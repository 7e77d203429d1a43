package engine

import (
	"go.uber.org/zap"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/history"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

// altSnap widens the node hit radius for alt-click targets.
const altSnap = 1.5

// altDraw lives while the alt key is held. fanOut are the nodes the next
// click joins to its target. from is the previous target of a chain.
type altDraw struct {
	fanOut []string
	from   string
}

// BeginAltDraw arms alt-drawing. The next alt-click fans out an edge from
// every selected node: the picked nodes at element level, every node of the
// active components otherwise.
func (e *Editor) BeginAltDraw() {
	e.alt = &altDraw{fanOut: e.sel.NodeIDs()}
}

// EndAltDraw drops the chain and the fan-out sources.
func (e *Editor) EndAltDraw() {
	e.alt = nil
}

// AltSources returns the nodes the next alt-click will join to its target.
func (e *Editor) AltSources() []string {
	switch {
	case e.alt == nil:
		return nil
	case e.alt.from != "":
		return []string{e.alt.from}
	}
	return e.alt.fanOut
}

// AltTarget returns the node an alt-click at p would land on.
func (e *Editor) AltTarget(p geometry.Point) (graph.Node, bool) {
	return e.graph.NodeAt(p, e.opts.NodeHitRadius*altSnap)
}

// AltClick extends alt-drawing at p. The target is the node within snapping
// distance, or a new node at p. Every source not already joined to it gets
// an edge in the current style, and the target becomes the source of the
// next click. Clicking the chain's own source ends the chain. It returns
// the target id, or "" when the chain ended.
func (e *Editor) AltClick(p geometry.Point) (string, error) {
	if _, ok := e.gesture.(*strokeGesture); ok {
		e.finishStroke()
	}
	if e.gesture != nil {
		return "", ErrGestureActive
	}
	if e.alt == nil {
		e.BeginAltDraw()
	}

	var target string
	if n, ok := e.AltTarget(p); ok {
		target = n.ID
	}
	if e.alt.from != "" && target == e.alt.from {
		e.log.Debug("alt chain ended", zap.String("node", target))
		e.alt.from = ""
		return "", nil
	}

	sources := e.AltSources()
	var cmd history.CreateGraphElements
	if target == "" {
		n := e.graph.CreateNode(e.opts.IDs.NewID(typeid.PrefixNode), p.X, p.Y)
		cmd.Nodes = append(cmd.Nodes, n)
		target = n.ID
	}
	for _, src := range sources {
		if src == target || !e.graph.HasNode(src) || e.graph.EdgeExists(src, target) {
			continue
		}
		ed, ok := e.graph.CreateEdge(e.opts.IDs.NewID(typeid.PrefixEdge), src, target, e.style.Color, e.style.LineWidth)
		if ok {
			cmd.Edges = append(cmd.Edges, ed)
		}
	}
	e.alt.fanOut = nil
	e.alt.from = target

	if len(cmd.Nodes) > 0 || len(cmd.Edges) > 0 {
		e.record(cmd)
		e.reconcile()
		e.selectionChanged()
	}
	return target, nil
}
