// Package graph is the node/edge store behind freehand drawings. It tracks
// adjacency, finds connected components and implements the smart delete
// policies that keep drawn polylines continuous when interior points go away.
package graph

import (
	"errors"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

// Kind names the element type a seed id refers to.
type Kind string

const (
	KindNode Kind = "node"
	KindEdge Kind = "edge"
)

var (
	ErrMissingEndpoint = errors.New("edge endpoint missing")
	ErrSelfLoop        = errors.New("edge joins a node to itself")
)

type Node struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Pos returns the node position as a point.
func (n Node) Pos() geometry.Point { return geometry.Point{X: n.X, Y: n.Y} }

type Edge struct {
	ID        string  `json:"id"`
	Node1ID   string  `json:"node1Id"`
	Node2ID   string  `json:"node2Id"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
}

// Other returns the endpoint of e that is not nodeID.
func (e Edge) Other(nodeID string) string {
	if e.Node1ID == nodeID {
		return e.Node2ID
	}
	return e.Node1ID
}

// Store owns the node and edge registries. Iteration follows insertion order.
type Store struct {
	nodes    *orderedmap.OrderedMap[string, *Node]
	edges    *orderedmap.OrderedMap[string, *Edge]
	incident map[string]map[string]struct{}
	seq      map[string]uint64
	nextSeq  uint64
	ids      typeid.Source
}

// NewStore creates an empty store. ids supplies ids for the replacement
// edges smart delete creates; nil uses random typeids.
func NewStore(ids typeid.Source) *Store {
	if ids == nil {
		ids = typeid.Random{}
	}
	return &Store{
		nodes:    orderedmap.New[string, *Node](),
		edges:    orderedmap.New[string, *Edge](),
		incident: make(map[string]map[string]struct{}),
		seq:      make(map[string]uint64),
		ids:      ids,
	}
}

func (s *Store) newEdgeID() string { return s.ids.NewID(typeid.PrefixEdge) }

// --- Mutations ---

// CreateNode adds a node. An existing id is returned unchanged.
func (s *Store) CreateNode(id string, x, y float64) Node {
	if n, ok := s.nodes.Get(id); ok {
		return *n
	}
	n := &Node{ID: id, X: x, Y: y}
	s.nodes.Set(id, n)
	s.incident[id] = make(map[string]struct{})
	return *n
}

// CreateEdge joins two distinct existing nodes. It reports false if either
// endpoint is absent or both are the same node. An existing id is returned
// unchanged.
func (s *Store) CreateEdge(id, node1ID, node2ID, color string, lineWidth float64) (Edge, bool) {
	if e, ok := s.edges.Get(id); ok {
		return *e, true
	}
	if node1ID == node2ID || !s.HasNode(node1ID) || !s.HasNode(node2ID) {
		return Edge{}, false
	}
	e := &Edge{ID: id, Node1ID: node1ID, Node2ID: node2ID, Color: color, LineWidth: lineWidth}
	s.edges.Set(id, e)
	s.nextSeq++
	s.seq[id] = s.nextSeq
	s.incident[node1ID][id] = struct{}{}
	s.incident[node2ID][id] = struct{}{}
	return *e, true
}

// MoveNode sets a node position.
func (s *Store) MoveNode(id string, x, y float64) bool {
	n, ok := s.nodes.Get(id)
	if !ok {
		return false
	}
	n.X, n.Y = x, y
	return true
}

// SetEdgeColor updates an edge color.
func (s *Store) SetEdgeColor(id, color string) bool {
	e, ok := s.edges.Get(id)
	if !ok {
		return false
	}
	e.Color = color
	return true
}

// SetEdgeLineWidth updates an edge line width.
func (s *Store) SetEdgeLineWidth(id string, width float64) bool {
	e, ok := s.edges.Get(id)
	if !ok {
		return false
	}
	e.LineWidth = width
	return true
}

func (s *Store) removeEdge(id string) (Edge, bool) {
	e, ok := s.edges.Delete(id)
	if !ok {
		return Edge{}, false
	}
	delete(s.seq, id)
	if set, ok := s.incident[e.Node1ID]; ok {
		delete(set, id)
	}
	if set, ok := s.incident[e.Node2ID]; ok {
		delete(set, id)
	}
	return *e, true
}

// removeNode drops a node and every edge still touching it.
func (s *Store) removeNode(id string) (Node, []Edge, bool) {
	n, ok := s.nodes.Get(id)
	if !ok {
		return Node{}, nil, false
	}
	var removed []Edge
	for _, e := range s.IncidentEdges(id) {
		if re, ok := s.removeEdge(e.ID); ok {
			removed = append(removed, re)
		}
	}
	s.nodes.Delete(id)
	delete(s.incident, id)
	return *n, removed, true
}

// --- Queries ---

// Node returns a node by id.
func (s *Store) Node(id string) (Node, bool) {
	n, ok := s.nodes.Get(id)
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Edge returns an edge by id.
func (s *Store) Edge(id string) (Edge, bool) {
	e, ok := s.edges.Get(id)
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

func (s *Store) HasNode(id string) bool {
	_, ok := s.nodes.Get(id)
	return ok
}

func (s *Store) HasEdge(id string) bool {
	_, ok := s.edges.Get(id)
	return ok
}

func (s *Store) NodeCount() int { return s.nodes.Len() }
func (s *Store) EdgeCount() int { return s.edges.Len() }

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []Node {
	out := make([]Node, 0, s.nodes.Len())
	for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, *pair.Value)
	}
	return out
}

// Edges returns all edges in insertion order.
func (s *Store) Edges() []Edge {
	out := make([]Edge, 0, s.edges.Len())
	for pair := s.edges.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, *pair.Value)
	}
	return out
}

// Degree counts the edges incident to a node.
func (s *Store) Degree(nodeID string) int {
	return len(s.incident[nodeID])
}

// IncidentEdges returns the edges touching a node, oldest first.
func (s *Store) IncidentEdges(nodeID string) []Edge {
	set := s.incident[nodeID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Edge, 0, len(set))
	for id := range set {
		if e, ok := s.edges.Get(id); ok {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out
}

// EdgeExists reports whether a and b are directly joined, in either direction.
func (s *Store) EdgeExists(a, b string) bool {
	for id := range s.incident[a] {
		e, ok := s.edges.Get(id)
		if !ok {
			continue
		}
		if (e.Node1ID == a && e.Node2ID == b) || (e.Node1ID == b && e.Node2ID == a) {
			return true
		}
	}
	return false
}

// Validate checks that every edge references live nodes and that the
// adjacency index agrees with the edge registry.
func (s *Store) Validate() error {
	count, want := 0, 0
	for pair := s.edges.Oldest(); pair != nil; pair = pair.Next() {
		e := pair.Value
		want += 2
		if e.Node1ID == e.Node2ID {
			want--
		}
		for _, nid := range []string{e.Node1ID, e.Node2ID} {
			set, ok := s.incident[nid]
			if !ok || !s.HasNode(nid) {
				return fmt.Errorf("edge %s: node %s: %w", e.ID, nid, ErrMissingEndpoint)
			}
			if _, ok := set[e.ID]; !ok {
				return fmt.Errorf("edge %s missing from adjacency of %s", e.ID, nid)
			}
		}
	}
	for nid, set := range s.incident {
		if !s.HasNode(nid) {
			return fmt.Errorf("adjacency entry for missing node %s", nid)
		}
		count += len(set)
	}
	if count != want {
		return fmt.Errorf("adjacency holds %d endpoint refs, want %d", count, want)
	}
	return nil
}
