// Package document is the JSON snapshot of a canvas: the graph, the text
// boxes, the persistent transform frame, the selection and the current
// drawing style.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
	"github.com/texsketch/texsketch/backend-go/internal/transform"
)

const Version = 1

type Document struct {
	Version   int              `json:"version"`
	Scene     Scene            `json:"scene"`
	Style     Style            `json:"style"`
	Nodes     []graph.Node     `json:"nodes"`
	Edges     []graph.Edge     `json:"edges"`
	Texts     []TextBox        `json:"texts"`
	Frame     *transform.Frame `json:"frame,omitempty"`
	Selection Selection        `json:"selection"`
}

type Scene struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Background string `json:"background"`
}

// Style is what new strokes and text boxes are created with.
type Style struct {
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
	FontSize  float64 `json:"fontSize"`
}

// TextBox is a box snapshot plus its rendered markup. X, Y is always the
// top-left. A box with no width or height is unmeasured: it is measured on
// load around the center its top-left and positive extent give, so a box
// with no extent at all is centered on X, Y.
type TextBox struct {
	textbox.Data
	HTML    string `json:"html"`
	Error   string `json:"error,omitempty"`
	Editing bool   `json:"editing,omitempty"`
}

type Selection struct {
	Level   string   `json:"level"`
	Focus   string   `json:"focus,omitempty"`
	NodeIDs []string `json:"nodeIds"`
	EdgeIDs []string `json:"edgeIds"`
	TextIDs []string `json:"textIds"`
}

// NewEmptyDocument creates a blank canvas.
func NewEmptyDocument(style Style) *Document {
	return &Document{
		Version: Version,
		Scene: Scene{
			Width:      1280,
			Height:     720,
			Background: "#ffffff",
		},
		Style:     style,
		Nodes:     []graph.Node{},
		Edges:     []graph.Edge{},
		Texts:     []TextBox{},
		Selection: Selection{Level: "component"},
	}
}

// Parse decodes a snapshot and checks that every edge joins two distinct
// nodes in it.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Version > Version {
		return nil, fmt.Errorf("document version %d is newer than %d", doc.Version, Version)
	}
	nodes := make(map[string]struct{}, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes[n.ID] = struct{}{}
	}
	for _, e := range doc.Edges {
		if e.Node1ID == e.Node2ID {
			return nil, fmt.Errorf("edge %s: %w", e.ID, graph.ErrSelfLoop)
		}
		if _, ok := nodes[e.Node1ID]; !ok {
			return nil, fmt.Errorf("edge %s: %w", e.ID, graph.ErrMissingEndpoint)
		}
		if _, ok := nodes[e.Node2ID]; !ok {
			return nil, fmt.Errorf("edge %s: %w", e.ID, graph.ErrMissingEndpoint)
		}
	}
	return &doc, nil
}

// Bounds returns the box covering every node and text box, or false for an
// empty document.
func (d *Document) Bounds() (geometry.Rect, bool) {
	// Unmeasured text boxes count as their center point.
	var bb geometry.Bounds
	for _, n := range d.Nodes {
		bb.Include(n.Pos())
	}
	for _, t := range d.Texts {
		bb.Include(geometry.Point{X: t.X, Y: t.Y})
		bb.Include(geometry.Point{X: t.X + t.Width, Y: t.Y + t.Height})
	}
	if bb.Empty() {
		return geometry.Rect{}, false
	}
	return bb.Rect(), true
}
