// Package transform rotates and scales a selection of nodes and text boxes
// about one shared oriented frame. The frame persists between gestures so
// repeated rotations and scales compose.
package transform

import (
	"math"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
)

// Frame is an oriented box: a center, a rotation and an unrotated size.
type Frame struct {
	Center   geometry.Point `json:"center"`
	Rotation float64        `json:"rotation"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
}

// Valid reports whether the frame has a positive, finite extent.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 &&
		!math.IsNaN(f.Width) && !math.IsNaN(f.Height) &&
		!math.IsInf(f.Width, 0) && !math.IsInf(f.Height, 0)
}

// Corners returns tl, tr, br, bl in world space.
func (f Frame) Corners() [4]geometry.Point {
	hw, hh := f.Width/2, f.Height/2
	local := [4]geometry.Point{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}
	var out [4]geometry.Point
	for i, p := range local {
		out[i] = geometry.RotatePoint(f.Center.Add(p), f.Center, f.Rotation)
	}
	return out
}

// RotateHandle is the point offset above the top edge where a rotate
// gesture is grabbed.
func (f Frame) RotateHandle(offset float64) geometry.Point {
	top := geometry.Point{X: f.Center.X, Y: f.Center.Y - f.Height/2 - offset}
	return geometry.RotatePoint(top, f.Center, f.Rotation)
}

// ScaleHandle is the bottom-right corner.
func (f Frame) ScaleHandle() geometry.Point {
	return f.Corners()[2]
}

// ToLocal maps a world point into the frame's unrotated coordinates,
// relative to its center.
func (f Frame) ToLocal(p geometry.Point) geometry.Point {
	return geometry.RotatePoint(p, f.Center, -f.Rotation).Sub(f.Center)
}

// Members are the items a gesture moves.
type Members struct {
	NodeIDs []string `json:"nodeIds,omitempty"`
	TextIDs []string `json:"textIds,omitempty"`
}

func (m Members) Empty() bool { return len(m.NodeIDs) == 0 && len(m.TextIDs) == 0 }

// Bounds computes the starting frame for a selection with no persistent
// frame. A lone text box uses its own rotated box; anything else gets the
// padded axis-aligned bounds of node positions and text box corners.
func Bounds(g *graph.Store, texts *textbox.Registry, m Members, padding float64) (Frame, bool) {
	if len(m.NodeIDs) == 0 && len(m.TextIDs) == 1 {
		if b, ok := texts.Get(m.TextIDs[0]); ok {
			f := Frame{Center: b.Center(), Rotation: b.Rotation(), Width: b.Size().Width, Height: b.Size().Height}
			return f, f.Valid()
		}
	}

	var bb geometry.Bounds
	for _, id := range m.NodeIDs {
		if n, ok := g.Node(id); ok {
			bb.Include(n.Pos())
		}
	}
	for _, id := range m.TextIDs {
		b, ok := texts.Get(id)
		if !ok {
			continue
		}
		if c, ok := b.RotatedCorners(); ok {
			for _, p := range c.Points() {
				bb.Include(p)
			}
		}
	}
	if bb.Empty() {
		return Frame{}, false
	}
	r := bb.Rect().Expand(padding)
	f := Frame{Center: r.Center(), Width: r.Width, Height: r.Height}
	return f, f.Valid()
}
