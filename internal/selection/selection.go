// Package selection tracks what the user has selected. Selection has two
// levels: whole components and text boxes, or individual nodes and edges
// inside one focused component. Each level is its own type, so element picks
// outside the focus cannot be represented.
package selection

import (
	"maps"
	"slices"

	"github.com/texsketch/texsketch/backend-go/internal/graph"
)

type Level int

const (
	LevelComponent Level = iota
	LevelElement
)

func (l Level) String() string {
	if l == LevelElement {
		return "element"
	}
	return "component"
}

// entry is one cached component. It is keyed by its representative node
// id, from which it can be recomputed.
type entry struct {
	comp graph.Component
}

type level interface{ level() Level }

type componentLevel struct {
	active map[string]entry
	texts  map[string]struct{}
}

func (*componentLevel) level() Level { return LevelComponent }

type elementLevel struct {
	focus entry
	nodes map[string]struct{}
	edges map[string]struct{}
}

func (*elementLevel) level() Level { return LevelElement }

// State is the selection of one canvas.
type State struct {
	g   *graph.Store
	cur level
}

// New starts at component level with nothing selected.
func New(g *graph.Store) *State {
	return &State{g: g, cur: emptyComponentLevel()}
}

func emptyComponentLevel() *componentLevel {
	return &componentLevel{active: make(map[string]entry), texts: make(map[string]struct{})}
}

func (s *State) Level() Level { return s.cur.level() }

func (s *State) components() (*componentLevel, bool) {
	c, ok := s.cur.(*componentLevel)
	return c, ok
}

func (s *State) elements() (*elementLevel, bool) {
	e, ok := s.cur.(*elementLevel)
	return e, ok
}

// --- Component level ---

// SelectComponent activates the component holding an element. Without
// additive, everything else is deselected first. From element level this
// returns to component level.
func (s *State) SelectComponent(id string, kind graph.Kind, additive bool) bool {
	comp := s.g.FindConnectedComponent(id, kind)
	if comp.Empty() {
		return false
	}
	cur, ok := s.components()
	if !ok || !additive {
		cur = emptyComponentLevel()
		s.cur = cur
	}
	for _, e := range cur.active {
		if e.comp.Has(id, kind) {
			return true
		}
	}
	cur.active[comp.RepresentativeID] = entry{comp: comp}
	return true
}

// ToggleComponent flips the component holding an element in or out of the
// selection. It only applies at component level.
func (s *State) ToggleComponent(id string, kind graph.Kind) bool {
	cur, ok := s.components()
	if !ok {
		return false
	}
	for key, e := range cur.active {
		if e.comp.Has(id, kind) {
			delete(cur.active, key)
			return true
		}
	}
	return s.SelectComponent(id, kind, true)
}

// SelectText selects a text box. Text boxes live at component level, so
// selecting one from element level leaves the focus.
func (s *State) SelectText(id string, additive bool) {
	cur, ok := s.components()
	if !ok || !additive {
		cur = emptyComponentLevel()
		s.cur = cur
	}
	cur.texts[id] = struct{}{}
}

// ToggleText flips a text box in or out of a component level selection.
func (s *State) ToggleText(id string) bool {
	cur, ok := s.components()
	if !ok {
		return false
	}
	if _, sel := cur.texts[id]; sel {
		delete(cur.texts, id)
	} else {
		cur.texts[id] = struct{}{}
	}
	return true
}

// DeselectText drops a text box, typically one that was deleted.
func (s *State) DeselectText(id string) {
	if cur, ok := s.components(); ok {
		delete(cur.texts, id)
	}
}

// SelectAll activates every component and the given text boxes.
func (s *State) SelectAll(textIDs []string) {
	cur := emptyComponentLevel()
	for _, c := range s.g.Components() {
		cur.active[c.RepresentativeID] = entry{comp: c}
	}
	for _, id := range textIDs {
		cur.texts[id] = struct{}{}
	}
	s.cur = cur
}

// DeselectAll clears everything and returns to component level.
func (s *State) DeselectAll() {
	s.cur = emptyComponentLevel()
}

// --- Element level ---

// DrillInto focuses the component holding an element and selects just that
// element.
func (s *State) DrillInto(id string, kind graph.Kind) bool {
	comp := s.g.FindConnectedComponent(id, kind)
	if comp.Empty() {
		return false
	}
	el := &elementLevel{
		focus: entry{comp: comp},
		nodes: make(map[string]struct{}),
		edges: make(map[string]struct{}),
	}
	el.pick(id, kind)
	s.cur = el
	return true
}

func (el *elementLevel) pick(id string, kind graph.Kind) {
	if kind == graph.KindEdge {
		el.edges[id] = struct{}{}
	} else {
		el.nodes[id] = struct{}{}
	}
}

func (el *elementLevel) picked(id string, kind graph.Kind) bool {
	if kind == graph.KindEdge {
		_, ok := el.edges[id]
		return ok
	}
	_, ok := el.nodes[id]
	return ok
}

func (el *elementLevel) unpick(id string, kind graph.Kind) {
	if kind == graph.KindEdge {
		delete(el.edges, id)
	} else {
		delete(el.nodes, id)
	}
}

// InFocus reports whether an element belongs to the focused component.
func (s *State) InFocus(id string, kind graph.Kind) bool {
	el, ok := s.elements()
	return ok && el.focus.comp.Has(id, kind)
}

// SelectElement selects a node or edge of the focused component. Without
// additive, other picks are dropped. Elements outside the focus are refused.
func (s *State) SelectElement(id string, kind graph.Kind, additive bool) bool {
	el, ok := s.elements()
	if !ok || !el.focus.comp.Has(id, kind) {
		return false
	}
	if !additive {
		clear(el.nodes)
		clear(el.edges)
	}
	el.pick(id, kind)
	return true
}

// ToggleElement flips one element of the focused component.
func (s *State) ToggleElement(id string, kind graph.Kind) bool {
	el, ok := s.elements()
	if !ok || !el.focus.comp.Has(id, kind) {
		return false
	}
	if el.picked(id, kind) {
		el.unpick(id, kind)
	} else {
		el.pick(id, kind)
	}
	return true
}

// --- Queries ---

// Focus returns the focused component at element level.
func (s *State) Focus() (graph.Component, bool) {
	el, ok := s.elements()
	if !ok {
		return graph.Component{}, false
	}
	return el.focus.comp, true
}

// ActiveComponents returns the active components at component level, ordered
// by key.
func (s *State) ActiveComponents() []graph.Component {
	cur, ok := s.components()
	if !ok {
		return nil
	}
	out := make([]graph.Component, 0, len(cur.active))
	for _, key := range sortedKeys(cur.active) {
		out = append(out, cur.active[key].comp)
	}
	return out
}

// NodeIDs returns every selected node: all nodes of active components, or
// the picked nodes at element level. Sorted.
func (s *State) NodeIDs() []string {
	switch cur := s.cur.(type) {
	case *componentLevel:
		set := make(map[string]struct{})
		for _, e := range cur.active {
			maps.Copy(set, e.comp.Nodes)
		}
		return sortedKeys(set)
	case *elementLevel:
		return sortedKeys(cur.nodes)
	}
	return nil
}

// EdgeIDs is NodeIDs for edges.
func (s *State) EdgeIDs() []string {
	switch cur := s.cur.(type) {
	case *componentLevel:
		set := make(map[string]struct{})
		for _, e := range cur.active {
			maps.Copy(set, e.comp.Edges)
		}
		return sortedKeys(set)
	case *elementLevel:
		return sortedKeys(cur.edges)
	}
	return nil
}

// TextIDs returns the selected text boxes, sorted.
func (s *State) TextIDs() []string {
	if cur, ok := s.components(); ok {
		return sortedKeys(cur.texts)
	}
	return nil
}

// IsSelected reports whether a node, edge or text box is part of the
// current selection.
func (s *State) IsSelected(id string, kind graph.Kind) bool {
	switch cur := s.cur.(type) {
	case *componentLevel:
		for _, e := range cur.active {
			if e.comp.Has(id, kind) {
				return true
			}
		}
	case *elementLevel:
		return cur.picked(id, kind)
	}
	return false
}

// IsTextSelected reports whether a text box is selected.
func (s *State) IsTextSelected(id string) bool {
	cur, ok := s.components()
	if !ok {
		return false
	}
	_, sel := cur.texts[id]
	return sel
}

// Empty reports whether nothing at all is selected.
func (s *State) Empty() bool {
	switch cur := s.cur.(type) {
	case *componentLevel:
		return len(cur.active) == 0 && len(cur.texts) == 0
	case *elementLevel:
		return len(cur.nodes) == 0 && len(cur.edges) == 0
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
