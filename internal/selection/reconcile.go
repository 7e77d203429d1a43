package selection

import (
	"maps"

	"github.com/texsketch/texsketch/backend-go/internal/graph"
)

// Reconcile brings the component cache back in line with the graph after a
// structural edit. A cached component whose nodes fell apart is replaced by
// one entry per surviving fragment; cached components that became connected
// collapse into one entry. At element level the focus moves to a surviving
// fragment, or the selection drops back to an empty component level.
// textExists filters out selected text boxes that were deleted.
func (s *State) Reconcile(textExists func(id string) bool) {
	switch cur := s.cur.(type) {
	case *componentLevel:
		next := emptyComponentLevel()
		covered := make(map[string]struct{})
		for _, key := range sortedKeys(cur.active) {
			for _, frag := range s.fragments(key, cur.active[key], covered) {
				next.active[frag.comp.RepresentativeID] = frag
			}
		}
		for id := range cur.texts {
			if textExists == nil || textExists(id) {
				next.texts[id] = struct{}{}
			}
		}
		s.cur = next

	case *elementLevel:
		frags := s.fragments(cur.focus.comp.RepresentativeID, cur.focus, make(map[string]struct{}))
		if len(frags) == 0 {
			s.cur = emptyComponentLevel()
			return
		}
		chosen := frags[0]
		for _, f := range frags {
			if f.comp.RepresentativeID == cur.focus.comp.RepresentativeID {
				chosen = f
				break
			}
		}
		if chosen.comp.RepresentativeID != cur.focus.comp.RepresentativeID {
			for _, f := range frags {
				if holdsAny(f.comp, cur) {
					chosen = f
					break
				}
			}
		}
		el := &elementLevel{
			focus: chosen,
			nodes: make(map[string]struct{}),
			edges: make(map[string]struct{}),
		}
		for id := range cur.nodes {
			if chosen.comp.HasNode(id) {
				el.nodes[id] = struct{}{}
			}
		}
		for id := range cur.edges {
			if chosen.comp.HasEdge(id) {
				el.edges[id] = struct{}{}
			}
		}
		s.cur = el
	}
}

// fragments recomputes what remains of a cached component. The old key is
// kept when the representative survives. Nodes already in covered belong to
// an earlier entry and are skipped, which merges joined components.
func (s *State) fragments(key string, old entry, covered map[string]struct{}) []entry {
	var out []entry
	take := func(seed string) {
		c := s.g.FindConnectedComponent(seed, graph.KindNode)
		if c.Empty() {
			return
		}
		for id := range c.Nodes {
			if _, ok := covered[id]; ok {
				return
			}
		}
		maps.Copy(covered, c.Nodes)
		out = append(out, entry{comp: c})
	}

	take(key)
	for _, id := range old.comp.NodeIDs() {
		if s.g.HasNode(id) {
			take(id)
		}
	}
	return out
}

func holdsAny(c graph.Component, el *elementLevel) bool {
	for id := range el.nodes {
		if c.HasNode(id) {
			return true
		}
	}
	for id := range el.edges {
		if c.HasEdge(id) {
			return true
		}
	}
	return false
}
