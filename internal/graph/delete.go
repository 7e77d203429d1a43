package graph

import (
	"fmt"
	"slices"
)

// NodeDeletion is the outcome of DeleteNodeSmart.
type NodeDeletion struct {
	Node    Node
	Edges   []Edge
	Created *Edge
}

// EdgeDeletion is the outcome of DeleteEdgeSmart.
type EdgeDeletion struct {
	Edge  Edge
	Nodes []Node
}

// DeleteResult is the net effect of a batch delete: everything that existed
// before and is gone now, and every replacement edge that survives the batch.
type DeleteResult struct {
	Nodes   []Node `json:"deletedNodes"`
	Edges   []Edge `json:"deletedEdges"`
	Created []Edge `json:"createdEdges"`
}

// Empty reports whether the batch changed nothing.
func (r DeleteResult) Empty() bool {
	return len(r.Nodes) == 0 && len(r.Edges) == 0 && len(r.Created) == 0
}

// DeleteNodeSmart removes a node. A degree-2 node whose two neighbours are
// distinct, present and not already joined is collapsed: its edges are
// replaced by one edge between the neighbours that inherits the style of the
// older incident edge. Any other node goes away with all its edges.
func (s *Store) DeleteNodeSmart(id string) (NodeDeletion, bool) {
	n, ok := s.Node(id)
	if !ok {
		return NodeDeletion{}, false
	}

	incident := s.IncidentEdges(id)
	if len(incident) == 2 {
		a := incident[0].Other(id)
		b := incident[1].Other(id)
		if a != b && a != id && b != id && s.HasNode(a) && s.HasNode(b) && !s.EdgeExists(a, b) {
			first := incident[0]
			_, removed, _ := s.removeNode(id)
			created, ok := s.CreateEdge(s.newEdgeID(), a, b, first.Color, first.LineWidth)
			del := NodeDeletion{Node: n, Edges: removed}
			if ok {
				del.Created = &created
			}
			return del, true
		}
	}

	_, removed, _ := s.removeNode(id)
	return NodeDeletion{Node: n, Edges: removed}, true
}

// DeleteEdgeSmart removes an edge and then any endpoint left without edges.
func (s *Store) DeleteEdgeSmart(id string) (EdgeDeletion, bool) {
	e, ok := s.removeEdge(id)
	if !ok {
		return EdgeDeletion{}, false
	}
	del := EdgeDeletion{Edge: e}
	for _, nid := range []string{e.Node1ID, e.Node2ID} {
		if !s.HasNode(nid) || s.Degree(nid) != 0 {
			continue
		}
		if nd, ok := s.DeleteNodeSmart(nid); ok {
			del.Nodes = append(del.Nodes, nd.Node)
		}
	}
	return del, true
}

// DeleteMany deletes explicit edges first, since they can cascade into node
// removals, then whatever explicit nodes are still present. The result is the
// net difference: a replacement edge created and later removed inside the same
// batch appears in neither list.
func (s *Store) DeleteMany(nodeIDs, edgeIDs []string) DeleteResult {
	pending := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		pending[id] = struct{}{}
	}

	var nodes []Node
	var edges []Edge
	created := make(map[string]Edge)

	noteEdge := func(e Edge) {
		if _, ok := created[e.ID]; ok {
			delete(created, e.ID)
			return
		}
		edges = append(edges, e)
	}

	for _, id := range edgeIDs {
		del, ok := s.DeleteEdgeSmart(id)
		if !ok {
			continue
		}
		noteEdge(del.Edge)
		for _, n := range del.Nodes {
			nodes = append(nodes, n)
			delete(pending, n.ID)
		}
	}

	for _, id := range nodeIDs {
		if _, ok := pending[id]; !ok {
			continue
		}
		del, ok := s.DeleteNodeSmart(id)
		if !ok {
			continue
		}
		nodes = append(nodes, del.Node)
		for _, e := range del.Edges {
			noteEdge(e)
		}
		if del.Created != nil {
			created[del.Created.ID] = *del.Created
		}
	}

	res := DeleteResult{
		Nodes: dedupe(nodes, func(n Node) string { return n.ID }),
		Edges: dedupe(edges, func(e Edge) string { return e.ID }),
	}
	for _, e := range s.Edges() {
		if _, ok := created[e.ID]; ok {
			res.Created = append(res.Created, e)
		}
	}
	return res
}

// Remove drops exactly the given edges and nodes with no smart behaviour.
// Edges still touching a removed node go with it.
func (s *Store) Remove(nodeIDs, edgeIDs []string) DeleteResult {
	var res DeleteResult
	for _, id := range edgeIDs {
		if e, ok := s.removeEdge(id); ok {
			res.Edges = append(res.Edges, e)
		}
	}
	for _, id := range nodeIDs {
		n, removed, ok := s.removeNode(id)
		if !ok {
			continue
		}
		res.Nodes = append(res.Nodes, n)
		res.Edges = append(res.Edges, removed...)
	}
	return res
}

// Restore re-inserts nodes and edges, typically ones captured by a delete.
// Nodes that already exist are moved back to the captured position and edges
// that already exist are left alone, so replaying is safe.
func (s *Store) Restore(nodes []Node, edges []Edge) error {
	for _, n := range nodes {
		if s.HasNode(n.ID) {
			s.MoveNode(n.ID, n.X, n.Y)
			continue
		}
		s.CreateNode(n.ID, n.X, n.Y)
	}
	for _, e := range edges {
		if s.HasEdge(e.ID) {
			continue
		}
		if _, ok := s.CreateEdge(e.ID, e.Node1ID, e.Node2ID, e.Color, e.LineWidth); !ok {
			return fmt.Errorf("restore edge %s (%s-%s): %w", e.ID, e.Node1ID, e.Node2ID, ErrMissingEndpoint)
		}
	}
	return nil
}

func dedupe[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	return slices.DeleteFunc(items, func(item T) bool {
		k := key(item)
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
		return false
	})
}
