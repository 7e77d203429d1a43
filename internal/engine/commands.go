package engine

import (
	"encoding/json"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/graph"
)

const rotateHandleOffset = 20

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string           `json:"op"`                    // "edge", "node", "text", "frame", "handle", "marquee"
	ObjectID    string           `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64        `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Points      []geometry.Point `json:"points,omitempty"`      // Polyline for edges, frames and marquees
	Rect        *geometry.Rect   `json:"rect,omitempty"`        // Untransformed box for text
	Stroke      string           `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64          `json:"strokeWidth,omitempty"` // Stroke width
	Fill        string           `json:"fill,omitempty"`        // Fill color
	Text        string           `json:"text,omitempty"`        // Raw text
	HTML        string           `json:"html,omitempty"`        // Rendered markup
	Error       string           `json:"error,omitempty"`       // Render error, drawn as a marker
	FontSize    float64          `json:"fontSize,omitempty"`
	Selected    bool             `json:"selected,omitempty"`
	Editing     bool             `json:"editing,omitempty"`
	Handle      string           `json:"handle,omitempty"` // "rotate" or "scale"
}

// CompileDrawCommands generates the draw command buffer for the canvas.
// Commands are in painter's order (back to front): edges, nodes, text boxes,
// then the selection frame with its handles and any marquee.
func (e *Editor) CompileDrawCommands() []DrawCommand {
	var commands []DrawCommand
	for _, ed := range e.graph.Edges() {
		n1, ok1 := e.graph.Node(ed.Node1ID)
		n2, ok2 := e.graph.Node(ed.Node2ID)
		if !ok1 || !ok2 {
			continue
		}
		commands = append(commands, DrawCommand{
			Op:          "edge",
			ObjectID:    ed.ID,
			Points:      []geometry.Point{n1.Pos(), n2.Pos()},
			Stroke:      ed.Color,
			StrokeWidth: ed.LineWidth,
			Selected:    e.sel.IsSelected(ed.ID, graph.KindEdge),
		})
	}
	for _, n := range e.graph.Nodes() {
		commands = append(commands, DrawCommand{
			Op:       "node",
			ObjectID: n.ID,
			Points:   []geometry.Point{n.Pos()},
			Selected: e.sel.IsSelected(n.ID, graph.KindNode),
		})
	}
	for _, b := range e.texts.All() {
		d := b.Data()
		m := b.Markup()
		commands = append(commands, DrawCommand{
			Op:        "text",
			ObjectID:  d.ID,
			Transform: b.Matrix().ToSlice(),
			Rect:      &geometry.Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height},
			Fill:      d.Color,
			Text:      d.Text,
			HTML:      m.HTML,
			Error:     m.Error,
			FontSize:  d.FontSize,
			Selected:  e.sel.IsTextSelected(d.ID),
			Editing:   b.Editing(),
		})
	}

	if f, ok := e.SelectionFrame(); ok {
		c := f.Corners()
		commands = append(commands,
			DrawCommand{Op: "frame", Points: []geometry.Point{c[0], c[1], c[2], c[3], c[0]}},
			DrawCommand{Op: "handle", Handle: "rotate", Points: []geometry.Point{f.RotateHandle(rotateHandleOffset)}},
			DrawCommand{Op: "handle", Handle: "scale", Points: []geometry.Point{f.ScaleHandle()}},
		)
	}
	if r, ok := e.MarqueeRect(); ok {
		commands = append(commands, DrawCommand{
			Op: "marquee",
			Points: []geometry.Point{
				{X: r.X, Y: r.Y},
				{X: r.X + r.Width, Y: r.Y},
				{X: r.X + r.Width, Y: r.Y + r.Height},
				{X: r.X, Y: r.Y + r.Height},
				{X: r.X, Y: r.Y},
			},
		})
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// Render compiles the canvas and returns draw commands as JSON.
func (e *Editor) Render() string {
	result, _ := DrawCommandsToJSON(e.CompileDrawCommands())
	return result
}

type HitKind string

const (
	HitNone HitKind = ""
	HitText HitKind = "text"
	HitNode HitKind = "node"
	HitEdge HitKind = "edge"
)

// Hit is the topmost item under a point.
type Hit struct {
	Kind HitKind `json:"kind"`
	ID   string  `json:"id,omitempty"`
}

func (h Hit) graphKind() graph.Kind {
	if h.Kind == HitEdge {
		return graph.KindEdge
	}
	return graph.KindNode
}

// HitTest returns the topmost item at p: text boxes first, then nodes, then
// edges, newest first within each.
func (e *Editor) HitTest(p geometry.Point) Hit {
	if b, ok := e.texts.At(p); ok {
		return Hit{Kind: HitText, ID: b.ID()}
	}
	if n, ok := e.graph.NodeAt(p, e.opts.NodeHitRadius); ok {
		return Hit{Kind: HitNode, ID: n.ID}
	}
	if ed, ok := e.graph.EdgeAt(p, e.opts.EdgeHitRadius); ok {
		return Hit{Kind: HitEdge, ID: ed.ID}
	}
	return Hit{}
}
