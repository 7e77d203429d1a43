package engine

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/texsketch/texsketch/backend-go/internal/document"
	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/history"
	"github.com/texsketch/texsketch/backend-go/internal/mathtext"
	"github.com/texsketch/texsketch/backend-go/internal/selection"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
	"github.com/texsketch/texsketch/backend-go/internal/transform"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

var (
	ErrUnknownCommand    = errors.New("unknown command")
	ErrInconsistentModel = errors.New("model is inconsistent")
	ErrGestureActive     = errors.New("another gesture is in progress")
	ErrNoGesture         = errors.New("no gesture in progress")
	ErrUnknownText       = errors.New("unknown text box")
	ErrInvalidStyle      = errors.New("invalid style value")
)

// Observer is told about recorded commands and undo/redo outcomes.
type Observer interface {
	Recorded(kind history.Kind)
	Replayed(direction string, kind history.Kind, err error)
}

type nopObserver struct{}

func (nopObserver) Recorded(history.Kind)               {}
func (nopObserver) Replayed(string, history.Kind, error) {}

// Options configure an Editor.
type Options struct {
	MaxHistory    int
	NodeHitRadius float64
	EdgeHitRadius float64
	DragThreshold float64
	MinScale      float64
	FramePadding  float64
	FontLimits    textbox.Limits
	Style         document.Style

	IDs      typeid.Source
	Renderer textbox.Renderer
	Logger   *zap.Logger
	Observer Observer
}

// DefaultOptions returns stock limits. A nil Renderer means the bundled
// math renderer.
func DefaultOptions() Options {
	return Options{
		MaxHistory:    history.DefaultCapacity,
		NodeHitRadius: 8,
		EdgeHitRadius: 5,
		DragThreshold: 5,
		MinScale:      transform.DefaultMinScale,
		FramePadding:  transform.DefaultPadding,
		FontLimits:    textbox.DefaultLimits(),
		Style:         document.Style{Color: "#000000", LineWidth: 2, FontSize: textbox.DefaultFontSize},
	}
}

// Editor owns one canvas: the graph, the text boxes, the selection, the
// transform frame and the history. It is not safe for concurrent use.
type Editor struct {
	opts     Options
	log      *zap.Logger
	observer Observer

	graph *graph.Store
	texts *textbox.Registry
	sel   *selection.State
	xf    *transform.Engine
	hist  *history.History

	scene   document.Scene
	style   document.Style
	gesture gesture
	alt     *altDraw

	editingID  string
	editBefore textbox.Data
}

// New creates an editor with an empty canvas.
func New(opts Options) *Editor {
	if opts.IDs == nil {
		opts.IDs = typeid.Random{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Renderer == nil {
		opts.Renderer = mathtext.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.FontLimits.MaxFontSize <= 0 {
		opts.FontLimits = textbox.DefaultLimits()
	}
	e := &Editor{
		opts:     opts,
		log:      opts.Logger,
		observer: opts.Observer,
		hist:     history.New(opts.MaxHistory, opts.Logger),
		style:    opts.Style,
		scene:    document.NewEmptyDocument(opts.Style).Scene,
	}
	e.reset()
	return e
}

func (e *Editor) reset() {
	e.graph = graph.NewStore(e.opts.IDs)
	e.texts = textbox.NewRegistry(e.opts.Renderer, e.opts.FontLimits)
	e.sel = selection.New(e.graph)
	e.xf = transform.New(e.graph, e.texts, transform.Options{MinScale: e.opts.MinScale, Padding: e.opts.FramePadding})
	e.hist.Clear()
	e.gesture = nil
	e.alt = nil
	e.editingID = ""
}

// --- Commands (frontend → backend) ---

// LoadDocument replaces the canvas with a snapshot and clears history.
func (e *Editor) LoadDocument(doc *document.Document) error {
	e.reset()
	for _, n := range doc.Nodes {
		e.graph.CreateNode(n.ID, n.X, n.Y)
	}
	for _, ed := range doc.Edges {
		if _, ok := e.graph.CreateEdge(ed.ID, ed.Node1ID, ed.Node2ID, ed.Color, ed.LineWidth); !ok {
			e.reset()
			if ed.Node1ID == ed.Node2ID {
				return fmt.Errorf("load edge %s: %w", ed.ID, graph.ErrSelfLoop)
			}
			return fmt.Errorf("load edge %s: %w", ed.ID, graph.ErrMissingEndpoint)
		}
	}
	for _, t := range doc.Texts {
		if t.Width <= 0 || t.Height <= 0 {
			d := t.Data
			d.Width, d.Height = max(d.Width, 0), max(d.Height, 0)
			b := e.texts.Create(t.ID, t.Text, d.Center(), t.Color, t.FontSize)
			b.SetRotation(t.Rotation)
			continue
		}
		e.texts.Put(t.Data)
	}
	if doc.Style.Color != "" {
		e.style = doc.Style
	}
	if doc.Scene.Width > 0 {
		e.scene = doc.Scene
	}
	e.log.Debug("document loaded",
		zap.Int("nodes", e.graph.NodeCount()),
		zap.Int("edges", e.graph.EdgeCount()),
		zap.Int("texts", e.texts.Len()))
	return nil
}

// LoadSampleDocument loads the built-in sample diagram.
func (e *Editor) LoadSampleDocument() {
	// The sample only references its own ids.
	_ = e.LoadDocument(document.NewSampleDocument(e.opts.IDs))
}

func (e *Editor) record(cmd history.Command) {
	e.hist.Record(cmd)
	e.observer.Recorded(cmd.Kind())
	e.log.Debug("recorded", zap.String("kind", string(cmd.Kind())))
}

// Undo reverts the newest command. Pending gestures and text edits are
// settled first. On failure the redo stack is gone and the frame is reset.
func (e *Editor) Undo() error {
	e.settle()
	cmd, err := e.hist.Undo(e)
	return e.afterReplay("undo", cmd, err, false)
}

// Redo reapplies the newest undone command.
func (e *Editor) Redo() error {
	e.settle()
	cmd, err := e.hist.Redo(e)
	return e.afterReplay("redo", cmd, err, true)
}

func (e *Editor) afterReplay(direction string, cmd history.Command, err error, forward bool) error {
	if cmd == nil {
		return err
	}
	e.observer.Replayed(direction, cmd.Kind(), err)
	e.reconcile()
	if err != nil {
		e.xf.SetFrame(nil)
		return err
	}
	e.restoreFrame(cmd, forward)
	return nil
}

func (e *Editor) CanUndo() bool { return e.hist.CanUndo() }
func (e *Editor) CanRedo() bool { return e.hist.CanRedo() }

// HistoryDepth returns how many steps can be undone and redone.
func (e *Editor) HistoryDepth() (undo, redo int) { return e.hist.Depth() }

// settle ends whatever is in flight: a stroke is finished, other gestures
// are cancelled and a text edit is committed as typed.
func (e *Editor) settle() {
	switch e.gesture.(type) {
	case nil:
	case *strokeGesture:
		e.finishStroke()
	default:
		_ = e.CancelGesture()
	}
	if e.editingID != "" {
		if b, ok := e.texts.Get(e.editingID); ok {
			_ = e.CommitTextEdit(e.editingID, b.Text())
		} else {
			e.editingID = ""
		}
	}
}

// reconcile re-derives the selection after the model changed.
func (e *Editor) reconcile() {
	e.sel.Reconcile(func(id string) bool {
		_, ok := e.texts.Get(id)
		return ok
	})
	if e.editingID != "" {
		if _, ok := e.texts.Get(e.editingID); !ok {
			e.editingID = ""
		}
	}
}

// selectionChanged drops the persistent frame, which belongs to the
// selection it was built for.
func (e *Editor) selectionChanged() {
	e.xf.SetFrame(nil)
}

// --- Queries (frontend ← backend) ---

// Members returns what a drag, rotate or scale moves: every node of the
// active components and the selected text boxes, or at element level the
// picked nodes and the endpoints of picked edges.
func (e *Editor) Members() transform.Members {
	m := transform.Members{NodeIDs: e.sel.NodeIDs(), TextIDs: e.sel.TextIDs()}
	if e.sel.Level() == selection.LevelElement {
		for _, id := range e.sel.EdgeIDs() {
			if ed, ok := e.graph.Edge(id); ok {
				m.NodeIDs = append(m.NodeIDs, ed.Node1ID, ed.Node2ID)
			}
		}
		slices.Sort(m.NodeIDs)
		m.NodeIDs = slices.Compact(m.NodeIDs)
	}
	return m
}

// SelectionFrame returns the frame the handles are drawn on.
func (e *Editor) SelectionFrame() (transform.Frame, bool) {
	m := e.Members()
	if m.Empty() {
		return transform.Frame{}, false
	}
	return e.xf.FrameFor(m)
}

func (e *Editor) Style() document.Style { return e.style }

func (e *Editor) SelectionLevel() selection.Level { return e.sel.Level() }

// Graph exposes the graph store for reading.
func (e *Editor) Graph() *graph.Store { return e.graph }

func (e *Editor) Text(id string) (*textbox.Box, bool) { return e.texts.Get(id) }

// Document returns a snapshot of the canvas.
func (e *Editor) Document() *document.Document {
	doc := document.NewEmptyDocument(e.style)
	doc.Scene = e.scene
	doc.Nodes = append(doc.Nodes, e.graph.Nodes()...)
	doc.Edges = append(doc.Edges, e.graph.Edges()...)
	for _, b := range e.texts.All() {
		m := b.Markup()
		doc.Texts = append(doc.Texts, document.TextBox{Data: b.Data(), HTML: m.HTML, Error: m.Error, Editing: b.Editing()})
	}
	if f, ok := e.xf.Frame(); ok {
		doc.Frame = &f
	}
	doc.Selection = document.Selection{
		Level:   e.sel.Level().String(),
		NodeIDs: nonNil(e.sel.NodeIDs()),
		EdgeIDs: nonNil(e.sel.EdgeIDs()),
		TextIDs: nonNil(e.sel.TextIDs()),
	}
	if focus, ok := e.sel.Focus(); ok {
		doc.Selection.Focus = focus.RepresentativeID
	}
	return doc
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
