package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/history"
	"github.com/texsketch/texsketch/backend-go/internal/selection"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
	"github.com/texsketch/texsketch/backend-go/internal/transform"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

// Modifiers are the keys held during a click. Ctrl toggles, Shift adds.
type Modifiers struct {
	Ctrl  bool `json:"ctrl"`
	Shift bool `json:"shift"`
}

// --- Selection ---

// Click applies click semantics at p and returns what was hit.
func (e *Editor) Click(p geometry.Point, mods Modifiers) Hit {
	e.alt = nil
	hit := e.HitTest(p)
	defer e.selectionChanged()

	switch hit.Kind {
	case HitNone:
		if !mods.Ctrl && !mods.Shift {
			e.sel.DeselectAll()
		}
	case HitText:
		switch {
		case mods.Ctrl:
			if !e.sel.ToggleText(hit.ID) {
				e.sel.SelectText(hit.ID, false)
			}
		default:
			e.sel.SelectText(hit.ID, mods.Shift)
		}
	case HitNode, HitEdge:
		kind := hit.graphKind()
		if e.sel.Level() == selection.LevelElement && e.sel.InFocus(hit.ID, kind) {
			if mods.Ctrl {
				e.sel.ToggleElement(hit.ID, kind)
			} else {
				e.sel.SelectElement(hit.ID, kind, mods.Shift)
			}
			break
		}
		switch {
		case e.sel.Level() == selection.LevelElement:
			e.sel.SelectComponent(hit.ID, kind, false)
		case mods.Ctrl:
			e.sel.ToggleComponent(hit.ID, kind)
		default:
			e.sel.SelectComponent(hit.ID, kind, mods.Shift)
		}
	}
	return hit
}

// DoubleClick drills into the component under p, or opens a text box for
// editing.
func (e *Editor) DoubleClick(p geometry.Point) Hit {
	hit := e.HitTest(p)
	switch hit.Kind {
	case HitNode, HitEdge:
		e.sel.DrillInto(hit.ID, hit.graphKind())
		e.selectionChanged()
	case HitText:
		if err := e.BeginTextEdit(hit.ID); err != nil {
			e.log.Debug("double click edit refused", zap.Error(err))
		}
	}
	return hit
}

func (e *Editor) SelectAll() {
	ids := make([]string, 0, e.texts.Len())
	for _, b := range e.texts.All() {
		ids = append(ids, b.ID())
	}
	e.sel.SelectAll(ids)
	e.selectionChanged()
}

func (e *Editor) DeselectAll() {
	e.sel.DeselectAll()
	e.selectionChanged()
}

// --- Graph ---

// ConnectNodes joins two existing nodes with a new edge in the current
// style. It reports false when either node is missing or they are already
// joined.
func (e *Editor) ConnectNodes(a, b string) bool {
	if a == b || !e.graph.HasNode(a) || !e.graph.HasNode(b) || e.graph.EdgeExists(a, b) {
		return false
	}
	ed, ok := e.graph.CreateEdge(e.opts.IDs.NewID(typeid.PrefixEdge), a, b, e.style.Color, e.style.LineWidth)
	if !ok {
		return false
	}
	e.record(history.CreateGraphElements{Edges: []graph.Edge{ed}})
	e.reconcile()
	e.selectionChanged()
	return true
}

// DeleteSelection removes what is selected. At component level whole
// components go; at element level the picked elements are smart-deleted.
func (e *Editor) DeleteSelection() bool {
	e.settle()
	var cmd history.DeleteSelected
	cmd.Graph = e.graph.DeleteMany(e.sel.NodeIDs(), e.sel.EdgeIDs())
	for _, id := range e.sel.TextIDs() {
		if d, ok := e.texts.Remove(id); ok {
			cmd.Texts = append(cmd.Texts, d)
		}
	}
	if cmd.Graph.Empty() && len(cmd.Texts) == 0 {
		return false
	}
	e.record(cmd)
	e.reconcile()
	e.selectionChanged()
	return true
}

// --- Text ---

// CreateTextBox adds a box centered on p in the current style and selects
// it.
func (e *Editor) CreateTextBox(p geometry.Point, text string) string {
	e.settle()
	b := e.texts.Create(e.opts.IDs.NewID(typeid.PrefixText), text, p, e.style.Color, e.style.FontSize)
	e.record(history.CreateText{Box: b.Data()})
	e.sel.SelectText(b.ID(), false)
	e.selectionChanged()
	return b.ID()
}

// BeginTextEdit puts a box into edit mode. Another box being edited is
// committed first.
func (e *Editor) BeginTextEdit(id string) error {
	b, ok := e.texts.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownText, id)
	}
	if e.editingID == id {
		return nil
	}
	if e.editingID != "" {
		if cur, ok := e.texts.Get(e.editingID); ok {
			_ = e.CommitTextEdit(e.editingID, cur.Text())
		}
	}
	e.editBefore = b.Data()
	e.editingID = id
	b.EnterEditMode()
	return nil
}

// UpdateTextEdit replaces the text of the box being edited as the user
// types. Nothing is recorded until the edit is committed.
func (e *Editor) UpdateTextEdit(text string) error {
	b, ok := e.texts.Get(e.editingID)
	if !ok {
		return fmt.Errorf("%w: no text box in edit mode", ErrUnknownText)
	}
	b.SetText(text)
	return nil
}

// CommitTextEdit ends editing with the final text. A changed text records
// edit_text; an empty text deletes the box.
func (e *Editor) CommitTextEdit(id, text string) error {
	b, ok := e.texts.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownText, id)
	}
	before := b.Data()
	if e.editingID == id {
		before = e.editBefore
		e.editingID = ""
	} else {
		b.EnterEditMode()
	}
	b.SetText(text)
	res := b.ExitEditMode()

	if strings.TrimSpace(text) == "" {
		e.texts.Remove(id)
		e.record(history.DeleteSelected{Texts: []textbox.Data{before}})
		e.sel.DeselectText(id)
		e.selectionChanged()
		return nil
	}
	if res.TextChanged {
		e.record(history.EditText{Before: before, After: b.Data()})
		e.selectionChanged()
	}
	return nil
}

// EditingText returns the id of the box in edit mode.
func (e *Editor) EditingText() (string, bool) {
	return e.editingID, e.editingID != ""
}

// --- Style ---

// SetColor sets the drawing color and recolors the selected edges and text
// boxes.
func (e *Editor) SetColor(color string) (bool, error) {
	if color == "" {
		return false, fmt.Errorf("%w: empty color", ErrInvalidStyle)
	}
	e.style.Color = color
	var cmd history.ChangeColor
	for _, id := range e.sel.EdgeIDs() {
		ed, ok := e.graph.Edge(id)
		if !ok || ed.Color == color {
			continue
		}
		e.graph.SetEdgeColor(id, color)
		cmd.Edges = append(cmd.Edges, history.ValueChange[string]{ID: id, Old: ed.Color, New: color})
	}
	for _, id := range e.sel.TextIDs() {
		b, ok := e.texts.Get(id)
		if !ok || b.Color() == color {
			continue
		}
		old := b.Color()
		b.SetStyle(color, 0)
		cmd.Texts = append(cmd.Texts, history.ValueChange[string]{ID: id, Old: old, New: color})
	}
	if len(cmd.Edges) == 0 && len(cmd.Texts) == 0 {
		return false, nil
	}
	e.record(cmd)
	return true, nil
}

// SetLineWidth sets the drawing width and applies it to the selected edges.
func (e *Editor) SetLineWidth(width float64) (bool, error) {
	if width <= 0 {
		return false, fmt.Errorf("%w: line width %v", ErrInvalidStyle, width)
	}
	e.style.LineWidth = width
	var cmd history.ChangeLineWidth
	for _, id := range e.sel.EdgeIDs() {
		ed, ok := e.graph.Edge(id)
		if !ok || ed.LineWidth == width {
			continue
		}
		e.graph.SetEdgeLineWidth(id, width)
		cmd.Edges = append(cmd.Edges, history.ValueChange[float64]{ID: id, Old: ed.LineWidth, New: width})
	}
	if len(cmd.Edges) == 0 {
		return false, nil
	}
	e.record(cmd)
	return true, nil
}

// SetFontSize sets the drawing font size and resizes the selected text
// boxes.
func (e *Editor) SetFontSize(size float64) (bool, error) {
	if size <= 0 {
		return false, fmt.Errorf("%w: font size %v", ErrInvalidStyle, size)
	}
	e.style.FontSize = size
	var cmd history.ChangeFontSize
	for _, id := range e.sel.TextIDs() {
		b, ok := e.texts.Get(id)
		if !ok {
			continue
		}
		before := b.Data()
		if b.SetStyle("", size) {
			cmd.Texts = append(cmd.Texts, transform.TextMove{ID: id, From: before, To: b.Data()})
		}
	}
	if len(cmd.Texts) == 0 {
		return false, nil
	}
	e.record(cmd)
	e.selectionChanged()
	return true, nil
}
