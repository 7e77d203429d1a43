package engine

import (
	"math"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/history"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
	"github.com/texsketch/texsketch/backend-go/internal/transform"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

const minMove = 0.1

// gesture is the pointer interaction in progress. nil means idle.
type gesture interface{ gestureName() string }

type strokeGesture struct {
	nodes  []graph.Node
	edges  []graph.Edge
	last   geometry.Point
	prev   geometry.Point
	travel float64
}

type dragGesture struct {
	start, last geometry.Point
	nodes       []transform.NodeMove
	texts       []textbox.Data
	frame       *transform.Frame
}

type transformGesture struct {
	mode transform.Mode
}

type marqueeGesture struct {
	start, current geometry.Point
	additive       bool
}

func (*strokeGesture) gestureName() string    { return "stroke" }
func (*dragGesture) gestureName() string      { return "drag" }
func (*transformGesture) gestureName() string { return "transform" }
func (*marqueeGesture) gestureName() string   { return "marquee" }

// Gesture names the gesture in progress, or "" when idle.
func (e *Editor) Gesture() string {
	if e.gesture == nil {
		return ""
	}
	return e.gesture.gestureName()
}

// begin finishes an open stroke and refuses to start over any other
// gesture. It also ends alt-drawing.
func (e *Editor) begin() error {
	e.alt = nil
	if _, ok := e.gesture.(*strokeGesture); ok {
		e.finishStroke()
	}
	if e.gesture != nil {
		return ErrGestureActive
	}
	return nil
}

// --- Freehand drawing ---

// BeginStroke starts a freehand stroke with a node at p.
func (e *Editor) BeginStroke(p geometry.Point) error {
	if err := e.begin(); err != nil {
		return err
	}
	n := e.graph.CreateNode(e.opts.IDs.NewID(typeid.PrefixNode), p.X, p.Y)
	e.gesture = &strokeGesture{nodes: []graph.Node{n}, last: p, prev: p}
	return nil
}

func (e *Editor) extendStroke(s *strokeGesture, p geometry.Point) {
	s.travel += geometry.Dist(s.prev, p)
	s.prev = p
	t := e.opts.DragThreshold
	if geometry.SqrDist(s.last, p) <= t*t*0.5 {
		return
	}
	from := s.nodes[len(s.nodes)-1]
	n := e.graph.CreateNode(e.opts.IDs.NewID(typeid.PrefixNode), p.X, p.Y)
	ed, ok := e.graph.CreateEdge(e.opts.IDs.NewID(typeid.PrefixEdge), from.ID, n.ID, e.style.Color, e.style.LineWidth)
	if !ok {
		return
	}
	s.nodes = append(s.nodes, n)
	s.edges = append(s.edges, ed)
	s.last = p
}

// finishStroke records the stroke, or discards it when it was a click.
func (e *Editor) finishStroke() bool {
	s, ok := e.gesture.(*strokeGesture)
	if !ok {
		return false
	}
	e.gesture = nil
	if len(s.edges) == 0 && s.travel < e.opts.DragThreshold {
		ids := make([]string, len(s.nodes))
		for i, n := range s.nodes {
			ids[i] = n.ID
		}
		e.graph.Remove(ids, nil)
		return false
	}
	e.record(history.CreateGraphElements{Nodes: s.nodes, Edges: s.edges})
	e.sel.SelectComponent(s.nodes[0].ID, graph.KindNode, false)
	e.selectionChanged()
	return true
}

// --- Drag ---

// BeginDrag starts moving the selection. Pressing on an unselected item
// selects it first; pressing on empty canvas starts a marquee instead.
func (e *Editor) BeginDrag(p geometry.Point, mods Modifiers) error {
	if err := e.begin(); err != nil {
		return err
	}
	hit := e.HitTest(p)
	if hit.Kind == HitNone {
		e.gesture = &marqueeGesture{start: p, current: p, additive: mods.Shift}
		return nil
	}
	if !e.hitSelected(hit) {
		e.Click(p, mods)
	}

	m := e.Members()
	if m.Empty() {
		return nil
	}
	d := &dragGesture{start: p, last: p}
	if f, ok := e.xf.Frame(); ok {
		d.frame = &f
	}
	for _, id := range m.NodeIDs {
		if n, ok := e.graph.Node(id); ok {
			d.nodes = append(d.nodes, transform.NodeMove{ID: id, From: n.Pos()})
		}
	}
	for _, id := range m.TextIDs {
		if b, ok := e.texts.Get(id); ok {
			d.texts = append(d.texts, b.Data())
		}
	}
	e.gesture = d
	return nil
}

func (e *Editor) hitSelected(h Hit) bool {
	switch h.Kind {
	case HitText:
		return e.sel.IsTextSelected(h.ID)
	case HitNode:
		return e.sel.IsSelected(h.ID, graph.KindNode)
	case HitEdge:
		return e.sel.IsSelected(h.ID, graph.KindEdge)
	}
	return false
}

func (e *Editor) drag(d *dragGesture, p geometry.Point) {
	delta := p.Sub(d.start)
	for _, n := range d.nodes {
		to := n.From.Add(delta)
		e.graph.MoveNode(n.ID, to.X, to.Y)
	}
	for _, t := range d.texts {
		if b, ok := e.texts.Get(t.ID); ok {
			b.SetCenter(t.Center().Add(delta))
		}
	}
	step := p.Sub(d.last)
	e.xf.Translate(step.X, step.Y)
	d.last = p
}

func (e *Editor) endDrag(d *dragGesture) {
	delta := d.last.Sub(d.start)
	if math.Hypot(delta.X, delta.Y) < minMove {
		e.cancelDrag(d)
		return
	}

	var next *transform.Frame
	if f, ok := e.xf.Frame(); ok {
		next = &f
	}
	var cmds []history.Command
	if len(d.nodes) > 0 {
		mv := history.MoveNodes{PrevFrame: d.frame, NextFrame: next}
		for _, n := range d.nodes {
			n.To = n.From.Add(delta)
			mv.Moves = append(mv.Moves, n)
		}
		cmds = append(cmds, mv)
	}
	if len(d.texts) > 0 {
		mv := history.MoveText{PrevFrame: d.frame, NextFrame: next}
		for _, t := range d.texts {
			if b, ok := e.texts.Get(t.ID); ok {
				mv.Moves = append(mv.Moves, transform.TextMove{ID: t.ID, From: t, To: b.Data()})
			}
		}
		cmds = append(cmds, mv)
	}
	switch len(cmds) {
	case 0:
	case 1:
		e.record(cmds[0])
	default:
		e.record(history.Group{Commands: cmds})
	}
}

func (e *Editor) cancelDrag(d *dragGesture) {
	for _, n := range d.nodes {
		e.graph.MoveNode(n.ID, n.From.X, n.From.Y)
	}
	for _, t := range d.texts {
		if _, ok := e.texts.Get(t.ID); ok {
			e.texts.Put(t)
		}
	}
	e.xf.SetFrame(d.frame)
}

// --- Rotate and scale ---

// BeginRotate starts rotating the selection about its frame center.
func (e *Editor) BeginRotate(p geometry.Point) error {
	return e.beginTransform(transform.ModeRotate, p, false)
}

// BeginScale starts scaling the selection about its frame center. lock asks
// for a uniform scale; selections with text boxes are always uniform.
func (e *Editor) BeginScale(p geometry.Point, lock bool) error {
	return e.beginTransform(transform.ModeScale, p, lock)
}

func (e *Editor) beginTransform(mode transform.Mode, p geometry.Point, lock bool) error {
	if err := e.begin(); err != nil {
		return err
	}
	if err := e.xf.Begin(mode, e.Members(), p, lock); err != nil {
		return err
	}
	e.gesture = &transformGesture{mode: mode}
	return nil
}

// --- Marquee ---

// BeginMarquee starts a rubber-band selection.
func (e *Editor) BeginMarquee(p geometry.Point, additive bool) error {
	if err := e.begin(); err != nil {
		return err
	}
	e.gesture = &marqueeGesture{start: p, current: p, additive: additive}
	return nil
}

// Marquee selects every component with a node inside r and every text box
// whose center is inside r.
func (e *Editor) Marquee(r geometry.Rect, additive bool) {
	if !additive {
		e.sel.DeselectAll()
	}
	for _, n := range e.graph.NodesIn(r) {
		if !e.sel.IsSelected(n.ID, graph.KindNode) {
			e.sel.SelectComponent(n.ID, graph.KindNode, true)
		}
	}
	for _, b := range e.texts.All() {
		if r.Contains(b.Center()) {
			e.sel.SelectText(b.ID(), true)
		}
	}
	e.selectionChanged()
}

// --- Pointer ---

// PointerMove feeds the gesture in progress.
func (e *Editor) PointerMove(p geometry.Point) error {
	switch g := e.gesture.(type) {
	case *strokeGesture:
		e.extendStroke(g, p)
	case *dragGesture:
		e.drag(g, p)
	case *transformGesture:
		return e.xf.Update(p)
	case *marqueeGesture:
		g.current = p
	default:
		return ErrNoGesture
	}
	return nil
}

// EndGesture commits the gesture in progress.
func (e *Editor) EndGesture() error {
	switch g := e.gesture.(type) {
	case *strokeGesture:
		e.finishStroke()
		return nil
	case *dragGesture:
		e.gesture = nil
		e.endDrag(g)
	case *transformGesture:
		e.gesture = nil
		ch, ok, err := e.xf.Commit()
		if err != nil {
			return err
		}
		if ok {
			e.record(history.TransformItems{Change: ch})
		}
	case *marqueeGesture:
		e.gesture = nil
		e.Marquee(geometry.RectFromPoints(g.start, g.current), g.additive)
	default:
		return ErrNoGesture
	}
	return nil
}

// CancelGesture abandons the gesture in progress. A stroke is removed
// without a trace.
func (e *Editor) CancelGesture() error {
	switch g := e.gesture.(type) {
	case *strokeGesture:
		ids := make([]string, len(g.nodes))
		for i, n := range g.nodes {
			ids[i] = n.ID
		}
		e.graph.Remove(ids, nil)
	case *dragGesture:
		e.cancelDrag(g)
	case *transformGesture:
		if err := e.xf.Cancel(); err != nil {
			return err
		}
	case *marqueeGesture:
	default:
		return ErrNoGesture
	}
	e.gesture = nil
	return nil
}

// MarqueeRect returns the rubber band while a marquee is open.
func (e *Editor) MarqueeRect() (geometry.Rect, bool) {
	g, ok := e.gesture.(*marqueeGesture)
	if !ok {
		return geometry.Rect{}, false
	}
	return geometry.RectFromPoints(g.start, g.current), true
}
