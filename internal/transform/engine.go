package transform

import (
	"errors"
	"math"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
)

const (
	DefaultMinScale = 0.05
	DefaultPadding  = 2.0

	minHalfExtent  = 1e-6
	minAngleChange = 0.001
	minScaleChange = 0.001
)

var (
	ErrEmptySelection  = errors.New("nothing to transform")
	ErrDegenerateFrame = errors.New("selection frame has no extent")
	ErrNoGesture       = errors.New("no transform gesture in progress")
	ErrGestureActive   = errors.New("transform gesture already in progress")
)

type Mode string

const (
	ModeRotate Mode = "rotate"
	ModeScale  Mode = "scale"
)

// Options tune gesture math.
type Options struct {
	MinScale float64
	Padding  float64
}

func DefaultOptions() Options {
	return Options{MinScale: DefaultMinScale, Padding: DefaultPadding}
}

// NodeMove records where a node was and where it went.
type NodeMove struct {
	ID   string         `json:"id"`
	From geometry.Point `json:"from"`
	To   geometry.Point `json:"to"`
}

// TextMove records a text box before and after a change.
type TextMove struct {
	ID   string       `json:"id"`
	From textbox.Data `json:"from"`
	To   textbox.Data `json:"to"`
}

// Change is the outcome of a committed gesture.
type Change struct {
	Mode       Mode       `json:"mode"`
	Nodes      []NodeMove `json:"nodes,omitempty"`
	Texts      []TextMove `json:"texts,omitempty"`
	StartAngle float64    `json:"startAngle"`
	EndAngle   float64    `json:"endAngle"`
	ScaleX     float64    `json:"scaleX"`
	ScaleY     float64    `json:"scaleY"`
	StartFrame Frame      `json:"startFrame"`
	EndFrame   Frame      `json:"endFrame"`
	PrevFrame  *Frame     `json:"prevFrame,omitempty"`
}

type nodeStart struct {
	id  string
	pos geometry.Point
}

type gesture struct {
	mode       Mode
	nodes      []nodeStart
	texts      []textbox.Data
	start      Frame
	prev       *Frame
	startAngle float64
	lock       bool

	delta  float64
	sx, sy float64
	first  bool
}

// Engine owns the persistent frame and the gesture in progress.
type Engine struct {
	g     *graph.Store
	texts *textbox.Registry
	opts  Options

	frame   *Frame
	gesture *gesture
}

func New(g *graph.Store, texts *textbox.Registry, opts Options) *Engine {
	if opts.MinScale <= 0 {
		opts.MinScale = DefaultMinScale
	}
	return &Engine{g: g, texts: texts, opts: opts}
}

// --- Persistent frame ---

// Frame returns the persistent frame, if one is established.
func (e *Engine) Frame() (Frame, bool) {
	if e.frame == nil {
		return Frame{}, false
	}
	return *e.frame, true
}

// SetFrame replaces the persistent frame. nil clears it.
func (e *Engine) SetFrame(f *Frame) {
	if f == nil {
		e.frame = nil
		return
	}
	cp := *f
	e.frame = &cp
}

// Translate shifts the persistent frame, following a drag of its members.
func (e *Engine) Translate(dx, dy float64) {
	if e.frame != nil {
		e.frame.Center = e.frame.Center.Add(geometry.Point{X: dx, Y: dy})
	}
}

// FrameFor returns the live frame during a gesture, else the persistent
// frame, else the computed bounds of m.
func (e *Engine) FrameFor(m Members) (Frame, bool) {
	if e.gesture != nil {
		return e.liveFrame(), true
	}
	if e.frame != nil {
		return *e.frame, true
	}
	return Bounds(e.g, e.texts, m, e.opts.Padding)
}

// --- Gestures ---

// Active reports whether a gesture is in progress and which.
func (e *Engine) Active() (Mode, bool) {
	if e.gesture == nil {
		return "", false
	}
	return e.gesture.mode, true
}

// Begin snapshots every member and the frame. lock requests aspect-locked
// scaling; a selection holding a text box is always locked.
func (e *Engine) Begin(mode Mode, m Members, pointer geometry.Point, lock bool) error {
	if e.gesture != nil {
		return ErrGestureActive
	}
	if m.Empty() {
		return ErrEmptySelection
	}
	start, ok := e.FrameFor(m)
	if !ok || !start.Valid() {
		return ErrDegenerateFrame
	}

	gs := &gesture{
		mode:       mode,
		start:      start,
		startAngle: geometry.Angle(start.Center, pointer),
		lock:       lock,
		sx:         1,
		sy:         1,
		first:      true,
	}
	if e.frame != nil {
		prev := *e.frame
		gs.prev = &prev
	}
	for _, id := range m.NodeIDs {
		if n, ok := e.g.Node(id); ok {
			gs.nodes = append(gs.nodes, nodeStart{id: id, pos: n.Pos()})
		}
	}
	for _, id := range m.TextIDs {
		if b, ok := e.texts.Get(id); ok {
			gs.texts = append(gs.texts, b.Data())
		}
	}
	if len(gs.texts) > 0 {
		gs.lock = true
	}
	if len(gs.nodes) == 0 && len(gs.texts) == 0 {
		return ErrEmptySelection
	}
	e.gesture = gs
	return nil
}

// Update applies the gesture for the current pointer position.
func (e *Engine) Update(pointer geometry.Point) error {
	gs := e.gesture
	if gs == nil {
		return ErrNoGesture
	}
	switch gs.mode {
	case ModeRotate:
		e.rotate(gs, pointer)
	case ModeScale:
		e.scale(gs, pointer)
	}
	return nil
}

func (e *Engine) rotate(gs *gesture, pointer geometry.Point) {
	c := gs.start.Center
	gs.delta = geometry.NormalizeAngle(geometry.Angle(c, pointer) - gs.startAngle)
	for _, n := range gs.nodes {
		p := geometry.RotatePoint(n.pos, c, gs.delta)
		e.g.MoveNode(n.id, p.X, p.Y)
	}
	for _, t := range gs.texts {
		b, ok := e.texts.Get(t.ID)
		if !ok {
			continue
		}
		b.SetCenter(geometry.RotatePoint(t.Center(), c, gs.delta))
		b.SetRotation(t.Rotation + gs.delta)
	}
}

// Factors turns a pointer position into scale factors for a frame: the
// pointer's local offset over the frame's half extents, unified to the
// smaller magnitude when locked, with magnitudes floored at minScale.
func Factors(f Frame, pointer geometry.Point, lock bool, minScale float64) (float64, float64) {
	local := f.ToLocal(pointer)
	sx := local.X / math.Max(f.Width/2, minHalfExtent)
	sy := local.Y / math.Max(f.Height/2, minHalfExtent)
	if lock {
		s := math.Min(math.Abs(sx), math.Abs(sy))
		sx = math.Copysign(s, sx)
		sy = math.Copysign(s, sy)
	}
	return floor(sx, minScale), floor(sy, minScale)
}

func floor(v, minScale float64) float64 {
	if math.Abs(v) < minScale {
		return math.Copysign(minScale, v)
	}
	return v
}

func (e *Engine) scale(gs *gesture, pointer geometry.Point) {
	gs.sx, gs.sy = Factors(gs.start, pointer, gs.lock, e.opts.MinScale)
	for _, n := range gs.nodes {
		p := scalePoint(n.pos, gs.start, gs.sx, gs.sy)
		e.g.MoveNode(n.id, p.X, p.Y)
	}
	for _, t := range gs.texts {
		b, ok := e.texts.Get(t.ID)
		if !ok {
			continue
		}
		b.ApplyScale(gs.sx, gs.sy, gs.first)
		b.SetCenter(scalePoint(t.Center(), gs.start, gs.sx, gs.sy))
	}
	gs.first = false
}

// scalePoint scales p's offset from the frame center along the frame's axes.
func scalePoint(p geometry.Point, f Frame, sx, sy float64) geometry.Point {
	local := f.ToLocal(p)
	local.X *= sx
	local.Y *= sy
	return geometry.RotatePoint(f.Center.Add(local), f.Center, f.Rotation)
}

func (e *Engine) liveFrame() Frame {
	gs := e.gesture
	f := gs.start
	switch gs.mode {
	case ModeRotate:
		f.Rotation = gs.start.Rotation + gs.delta
	case ModeScale:
		f.Width = gs.start.Width * math.Abs(gs.sx)
		f.Height = gs.start.Height * math.Abs(gs.sy)
	}
	return f
}

// Commit makes the gesture permanent and reports what moved. A gesture that
// changed nothing measurable is rolled back and reports false.
func (e *Engine) Commit() (Change, bool, error) {
	gs := e.gesture
	if gs == nil {
		return Change{}, false, ErrNoGesture
	}

	changed := false
	switch gs.mode {
	case ModeRotate:
		changed = math.Abs(gs.delta) > minAngleChange
	case ModeScale:
		changed = math.Abs(gs.sx-1) > minScaleChange || math.Abs(gs.sy-1) > minScaleChange
	}
	if !changed {
		e.restore(gs)
		e.gesture = nil
		return Change{}, false, nil
	}

	if gs.mode == ModeScale {
		for _, t := range gs.texts {
			if b, ok := e.texts.Get(t.ID); ok {
				b.FinalizeScale()
			}
		}
	}

	end := e.liveFrame()
	end.Rotation = geometry.NormalizeAngle(end.Rotation)
	ch := Change{
		Mode:       gs.mode,
		StartAngle: gs.start.Rotation,
		EndAngle:   end.Rotation,
		ScaleX:     gs.sx,
		ScaleY:     gs.sy,
		StartFrame: gs.start,
		EndFrame:   end,
		PrevFrame:  gs.prev,
	}
	for _, n := range gs.nodes {
		if cur, ok := e.g.Node(n.id); ok {
			ch.Nodes = append(ch.Nodes, NodeMove{ID: n.id, From: n.pos, To: cur.Pos()})
		}
	}
	for _, t := range gs.texts {
		if b, ok := e.texts.Get(t.ID); ok {
			ch.Texts = append(ch.Texts, TextMove{ID: t.ID, From: t, To: b.Data()})
		}
	}

	e.frame = &end
	e.gesture = nil
	return ch, true, nil
}

// Cancel puts every member back and keeps the prior persistent frame.
func (e *Engine) Cancel() error {
	gs := e.gesture
	if gs == nil {
		return ErrNoGesture
	}
	e.restore(gs)
	e.frame = gs.prev
	e.gesture = nil
	return nil
}

func (e *Engine) restore(gs *gesture) {
	for _, n := range gs.nodes {
		e.g.MoveNode(n.id, n.pos.X, n.pos.Y)
	}
	for _, t := range gs.texts {
		if _, ok := e.texts.Get(t.ID); ok {
			e.texts.Put(t)
		}
	}
}
