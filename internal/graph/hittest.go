package graph

import (
	"math"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
)

// NodeAt returns the node nearest to p within radius.
func (s *Store) NodeAt(p geometry.Point, radius float64) (Node, bool) {
	best := radius * radius
	var hit *Node
	for pair := s.nodes.Newest(); pair != nil; pair = pair.Prev() {
		if d := geometry.SqrDist(p, pair.Value.Pos()); d <= best {
			if hit == nil || d < best {
				best = d
				hit = pair.Value
			}
		}
	}
	if hit == nil {
		return Node{}, false
	}
	return *hit, true
}

// EdgeAt returns the edge whose stroke passes nearest to p. The reach of an
// edge is radius plus half its line width. Newer edges win ties.
func (s *Store) EdgeAt(p geometry.Point, radius float64) (Edge, bool) {
	best := math.Inf(1)
	var hit *Edge
	for pair := s.edges.Newest(); pair != nil; pair = pair.Prev() {
		e := pair.Value
		n1, ok1 := s.nodes.Get(e.Node1ID)
		n2, ok2 := s.nodes.Get(e.Node2ID)
		if !ok1 || !ok2 {
			continue
		}
		d := math.Sqrt(geometry.DistToSegmentSquared(p, n1.Pos(), n2.Pos()))
		if d <= radius+e.LineWidth/2 && d < best {
			best = d
			hit = e
		}
	}
	if hit == nil {
		return Edge{}, false
	}
	return *hit, true
}

// NodesIn returns the nodes inside r, in insertion order.
func (s *Store) NodesIn(r geometry.Rect) []Node {
	var out []Node
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		if r.Contains(pair.Value.Pos()) {
			out = append(out, *pair.Value)
		}
	}
	return out
}
