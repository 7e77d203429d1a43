package graph

import (
	"maps"
	"slices"
)

// Component is a maximal connected set of nodes and edges. RepresentativeID
// is a member node id: the seed node, or the first endpoint of a seed edge.
// It is only stable until the next topology edit.
type Component struct {
	Nodes            map[string]struct{}
	Edges            map[string]struct{}
	RepresentativeID string
}

func newComponent(rep string) Component {
	return Component{
		Nodes:            make(map[string]struct{}),
		Edges:            make(map[string]struct{}),
		RepresentativeID: rep,
	}
}

// Empty reports whether the lookup found nothing.
func (c Component) Empty() bool {
	return len(c.Nodes) == 0 && len(c.Edges) == 0
}

func (c Component) HasNode(id string) bool {
	_, ok := c.Nodes[id]
	return ok
}

func (c Component) HasEdge(id string) bool {
	_, ok := c.Edges[id]
	return ok
}

// Has reports whether the element of the given kind belongs to c.
func (c Component) Has(id string, kind Kind) bool {
	if kind == KindEdge {
		return c.HasEdge(id)
	}
	return c.HasNode(id)
}

// NodeIDs returns the member node ids, sorted.
func (c Component) NodeIDs() []string {
	return slices.Sorted(maps.Keys(c.Nodes))
}

// EdgeIDs returns the member edge ids, sorted.
func (c Component) EdgeIDs() []string {
	return slices.Sorted(maps.Keys(c.Edges))
}

// FindConnectedComponent walks breadth first from a node or edge seed. An
// edge seed starts the walk from both endpoints. An unknown seed yields an
// empty component with no representative.
func (s *Store) FindConnectedComponent(seedID string, kind Kind) Component {
	var queue []string
	switch kind {
	case KindNode:
		if !s.HasNode(seedID) {
			return newComponent("")
		}
		queue = append(queue, seedID)
	case KindEdge:
		e, ok := s.edges.Get(seedID)
		if !ok {
			return newComponent("")
		}
		queue = append(queue, e.Node1ID, e.Node2ID)
	default:
		return newComponent("")
	}

	c := newComponent(queue[0])
	for _, id := range queue {
		c.Nodes[id] = struct{}{}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		// Every incident edge is collected, even when both ends were already
		// visited, so cycles contribute all of their edges.
		for id := range s.incident[current] {
			e, ok := s.edges.Get(id)
			if !ok {
				continue
			}
			c.Edges[id] = struct{}{}
			next := e.Other(current)
			if _, seen := c.Nodes[next]; !seen && s.HasNode(next) {
				c.Nodes[next] = struct{}{}
				queue = append(queue, next)
			}
		}
	}
	return c
}

// Components partitions the whole graph, in node insertion order of each
// component's first node.
func (s *Store) Components() []Component {
	seen := make(map[string]struct{})
	var out []Component
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := seen[pair.Key]; ok {
			continue
		}
		c := s.FindConnectedComponent(pair.Key, KindNode)
		for id := range c.Nodes {
			seen[id] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}
