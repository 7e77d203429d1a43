// Package textbox models rotatable, scalable text boxes whose size comes from
// an external renderer. A box's center is its anchor: every re-measure
// re-derives the top-left from the center it had before.
package textbox

import (
	"math"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
)

const (
	DefaultMinFontSize = 1.0
	DefaultMaxFontSize = 400.0
	DefaultFontSize    = 16.0

	emptyWidth = 10.0
)

// Size is a measured extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Markup is the rendered form of a box's raw text. Error is set when the
// raw text could not be rendered; HTML then carries a visible error marker.
type Markup struct {
	HTML  string `json:"html"`
	Error string `json:"error,omitempty"`
}

// Renderer is the measuring and rendering collaborator. Implementations must
// not panic on malformed math markup.
type Renderer interface {
	Measure(raw string, fontSize float64) Size
	Render(raw string) Markup
}

// Limits bounds font sizes.
type Limits struct {
	MinFontSize float64
	MaxFontSize float64
}

// DefaultLimits returns the stock font size bounds.
func DefaultLimits() Limits {
	return Limits{MinFontSize: DefaultMinFontSize, MaxFontSize: DefaultMaxFontSize}
}

func (l Limits) clamp(size float64) float64 {
	return math.Max(l.MinFontSize, math.Min(l.MaxFontSize, size))
}

// Data is a complete snapshot of a box.
type Data struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Color    string  `json:"color"`
	FontSize float64 `json:"fontSize"`
	Rotation float64 `json:"rotation"`
	FlipX    bool    `json:"flipX,omitempty"`
	FlipY    bool    `json:"flipY,omitempty"`
}

// Center returns the snapshot's center.
func (d Data) Center() geometry.Point {
	return geometry.Point{X: d.X + d.Width/2, Y: d.Y + d.Height/2}
}

// Corners are the four rotated corners of a box plus its center.
type Corners struct {
	TL     geometry.Point `json:"tl"`
	TR     geometry.Point `json:"tr"`
	BR     geometry.Point `json:"br"`
	BL     geometry.Point `json:"bl"`
	Center geometry.Point `json:"center"`
}

// Points returns the corners in drawing order.
func (c Corners) Points() []geometry.Point {
	return []geometry.Point{c.TL, c.TR, c.BR, c.BL}
}

type scaleBasis struct {
	width, height, fontSize float64
	center                  geometry.Point
}

// EditResult reports how an edit session ended.
type EditResult struct {
	TextChanged bool
	Before      string
}

// Box is one text box.
type Box struct {
	data     Data
	markup   Markup
	renderer Renderer
	limits   Limits

	editing   bool
	editStart string
	editAt    geometry.Point

	basis        *scaleBasis
	liveX, liveY float64
}

// New creates a box centered on center and measures it.
func New(id, text string, center geometry.Point, color string, fontSize float64, r Renderer, limits Limits) *Box {
	b := &Box{
		data:     Data{ID: id, Text: text, Color: color, FontSize: limits.clamp(fontSize)},
		renderer: r,
		limits:   limits,
		liveX:    1,
		liveY:    1,
	}
	b.markup = r.Render(text)
	b.remeasure(center)
	return b
}

// FromData recreates a box exactly as captured, without re-measuring.
func FromData(d Data, r Renderer, limits Limits) *Box {
	b := &Box{renderer: r, limits: limits, liveX: 1, liveY: 1}
	b.Restore(d)
	return b
}

func (b *Box) ID() string { return b.data.ID }
func (b *Box) Text() string { return b.data.Text }
func (b *Box) Color() string { return b.data.Color }
func (b *Box) FontSize() float64 { return b.data.FontSize }
func (b *Box) Rotation() float64 { return b.data.Rotation }
func (b *Box) Editing() bool { return b.editing }
func (b *Box) Markup() Markup { return b.markup }
func (b *Box) Data() Data { return b.data }

func (b *Box) Size() Size {
	return Size{Width: b.data.Width, Height: b.data.Height}
}

// Center is the anchor point that survives re-measurement and rotation.
func (b *Box) Center() geometry.Point {
	return b.data.Center()
}

// Restore overwrites every field with a snapshot and re-renders the markup.
func (b *Box) Restore(d Data) {
	b.data = d
	b.basis = nil
	b.liveX, b.liveY = 1, 1
	b.markup = b.renderer.Render(d.Text)
}

// remeasure sizes the box from the renderer and places it around center.
func (b *Box) remeasure(center geometry.Point) {
	size := b.renderer.Measure(b.data.Text, b.data.FontSize)
	if b.data.Text == "" {
		size.Width = math.Max(size.Width, emptyWidth)
	}
	b.data.Width = math.Max(1, size.Width)
	b.data.Height = math.Max(size.Height, math.Max(1, b.data.FontSize))
	b.setCenter(center)
}

func (b *Box) setCenter(c geometry.Point) {
	b.data.X = c.X - b.data.Width/2
	b.data.Y = c.Y - b.data.Height/2
}

// SetText replaces the raw text. It reports whether the text changed.
func (b *Box) SetText(text string) bool {
	if text == b.data.Text {
		return false
	}
	center := b.Center()
	b.data.Text = text
	if !b.editing {
		b.markup = b.renderer.Render(text)
	}
	b.remeasure(center)
	return true
}

// SetStyle changes color and font size. An empty color or a non-positive
// font size leaves that field alone. It reports whether anything changed.
func (b *Box) SetStyle(color string, fontSize float64) bool {
	changed := false
	if color != "" && color != b.data.Color {
		b.data.Color = color
		changed = true
	}
	if fontSize > 0 {
		if fs := b.limits.clamp(fontSize); fs != b.data.FontSize {
			b.data.FontSize = fs
			changed = true
		}
	}
	if changed {
		b.remeasure(b.Center())
	}
	return changed
}

// SetCenter moves the box so its center lands on c.
func (b *Box) SetCenter(c geometry.Point) { b.setCenter(c) }

// SetRotation sets the rotation in radians.
func (b *Box) SetRotation(r float64) { b.data.Rotation = r }

// EnterEditMode shows raw text with transforms stripped until ExitEditMode.
func (b *Box) EnterEditMode() {
	if b.editing {
		return
	}
	b.editing = true
	b.editStart = b.data.Text
	b.editAt = b.Center()
	b.markup = Markup{HTML: b.data.Text}
}

// ExitEditMode re-renders, re-measures around the pre-edit center and reports
// whether the committed text differs from the text the edit started with.
func (b *Box) ExitEditMode() EditResult {
	if !b.editing {
		return EditResult{Before: b.data.Text}
	}
	b.editing = false
	b.markup = b.renderer.Render(b.data.Text)
	b.remeasure(b.editAt)
	return EditResult{TextChanged: b.data.Text != b.editStart, Before: b.editStart}
}

// ApplyScale scales relative to the basis captured on the first call of a
// gesture. A negative factor mirrors the box on that axis.
func (b *Box) ApplyScale(scaleX, scaleY float64, isFirst bool) {
	if isFirst || b.basis == nil {
		b.basis = &scaleBasis{
			width:    b.data.Width,
			height:   b.data.Height,
			fontSize: b.data.FontSize,
			center:   b.Center(),
		}
	}
	ax, ay := math.Abs(scaleX), math.Abs(scaleY)
	b.data.FontSize = b.limits.clamp(b.basis.fontSize * math.Sqrt(ax*ay))
	b.data.Width = math.Max(1, b.basis.width*ax)
	b.data.Height = math.Max(1, b.basis.height*ay)
	b.liveX, b.liveY = sign(scaleX), sign(scaleY)
	b.setCenter(b.basis.center)
}

// FinalizeScale ends a scale gesture: mirror state becomes permanent and the
// box is re-measured at its new font size around its current center.
func (b *Box) FinalizeScale() {
	if b.basis == nil {
		return
	}
	if b.liveX < 0 {
		b.data.FlipX = !b.data.FlipX
	}
	if b.liveY < 0 {
		b.data.FlipY = !b.data.FlipY
	}
	b.basis = nil
	b.liveX, b.liveY = 1, 1
	b.markup = b.renderer.Render(b.data.Text)
	b.remeasure(b.Center())
}

func (b *Box) mirror() (float64, float64) {
	fx, fy := b.liveX, b.liveY
	if b.data.FlipX {
		fx = -fx
	}
	if b.data.FlipY {
		fy = -fy
	}
	return fx, fy
}

// Matrix is the drawing transform: rotation and mirroring about the center.
// Edit mode draws untransformed.
func (b *Box) Matrix() geometry.Matrix2D {
	if b.editing {
		return geometry.Identity()
	}
	fx, fy := b.mirror()
	return geometry.AroundCenter(b.Center(), b.data.Rotation, fx, fy)
}

// RotatedCorners returns the transformed corners, or false before the box
// has a usable size.
func (b *Box) RotatedCorners() (Corners, bool) {
	d := b.data
	if d.Width <= 0 || d.Height <= 0 || math.IsNaN(d.Width) || math.IsNaN(d.Height) {
		return Corners{}, false
	}
	fx, fy := b.mirror()
	m := geometry.AroundCenter(b.Center(), d.Rotation, fx, fy)
	return Corners{
		TL:     m.Apply(geometry.Point{X: d.X, Y: d.Y}),
		TR:     m.Apply(geometry.Point{X: d.X + d.Width, Y: d.Y}),
		BR:     m.Apply(geometry.Point{X: d.X + d.Width, Y: d.Y + d.Height}),
		BL:     m.Apply(geometry.Point{X: d.X, Y: d.Y + d.Height}),
		Center: b.Center(),
	}, true
}

// Contains reports whether p falls inside the box as it is drawn.
func (b *Box) Contains(p geometry.Point) bool {
	local := b.Matrix().Invert().Apply(p)
	d := b.data
	return local.X >= d.X && local.X <= d.X+d.Width && local.Y >= d.Y && local.Y <= d.Y+d.Height
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
