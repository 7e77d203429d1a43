// Package ops decodes frontend intents and applies them to an editor. The
// same operations drive websocket rooms and the wasm bridge.
package ops

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/texsketch/texsketch/backend-go/internal/document"
	"github.com/texsketch/texsketch/backend-go/internal/engine"
	"github.com/texsketch/texsketch/backend-go/internal/geometry"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidPayload   = errors.New("invalid payload")
)

// Operation types.
const (
	TypeLoadSample     = "load_sample"
	TypeLoadDocument   = "load_document"
	TypeHitTest        = "hit_test"
	TypeClick          = "click"
	TypeDoubleClick    = "double_click"
	TypeSelectAll      = "select_all"
	TypeDeselectAll    = "deselect_all"
	TypeMarquee        = "marquee"
	TypeBeginStroke    = "begin_stroke"
	TypeBeginDrag      = "begin_drag"
	TypeBeginRotate    = "begin_rotate"
	TypeBeginScale     = "begin_scale"
	TypeBeginMarquee   = "begin_marquee"
	TypePointerMove    = "pointer_move"
	TypeEndGesture     = "end_gesture"
	TypeCancelGesture  = "cancel_gesture"
	TypeConnectNodes   = "connect_nodes"
	TypeBeginAltDraw   = "begin_alt_draw"
	TypeAltClick       = "alt_click"
	TypeEndAltDraw     = "end_alt_draw"
	TypeDeleteSelected = "delete_selection"
	TypeCreateText     = "create_text"
	TypeBeginTextEdit  = "begin_text_edit"
	TypeUpdateTextEdit = "update_text_edit"
	TypeCommitTextEdit = "commit_text_edit"
	TypeSetColor       = "set_color"
	TypeSetLineWidth   = "set_line_width"
	TypeSetFontSize    = "set_font_size"
	TypeUndo           = "undo"
	TypeRedo           = "redo"
)

// Operation is one intent from the frontend.
type Operation struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result reports what an operation did.
type Result struct {
	Hit     *engine.Hit `json:"hit,omitempty"`
	NodeID  string      `json:"nodeId,omitempty"`
	TextID  string      `json:"textId,omitempty"`
	Changed bool        `json:"changed"`
}

// --- Payloads ---

type Pointer struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Ctrl  bool    `json:"ctrl,omitempty"`
	Shift bool    `json:"shift,omitempty"`
	Lock  bool    `json:"lock,omitempty"`
}

func (p Pointer) point() geometry.Point { return geometry.Point{X: p.X, Y: p.Y} }
func (p Pointer) mods() engine.Modifiers {
	return engine.Modifiers{Ctrl: p.Ctrl, Shift: p.Shift}
}

type Rect struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width" validate:"gte=0"`
	Height   float64 `json:"height" validate:"gte=0"`
	Additive bool    `json:"additive,omitempty"`
}

type Connect struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required,nefield=A"`
}

type CreateText struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

type TextRef struct {
	ID string `json:"id" validate:"required"`
}

type TextEdit struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Color struct {
	Color string `json:"color" validate:"required"`
}

type Size struct {
	Value float64 `json:"value" validate:"gt=0"`
}

var validate = validator.New()

// Decode parses and validates an operation envelope.
func Decode(data []byte) (Operation, error) {
	var op Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return op, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validate.Struct(op); err != nil {
		return op, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return op, nil
}

func payload[T any](op Operation) (T, error) {
	var v T
	if len(op.Payload) > 0 {
		if err := json.Unmarshal(op.Payload, &v); err != nil {
			return v, fmt.Errorf("%s: %w: %w", op.Type, ErrInvalidPayload, err)
		}
	}
	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("%s: %w: %w", op.Type, ErrInvalidPayload, err)
	}
	return v, nil
}

// Apply runs op against ed.
func Apply(ed *engine.Editor, op Operation) (Result, error) {
	switch op.Type {
	case TypeLoadSample:
		ed.LoadSampleDocument()
		return Result{Changed: true}, nil

	case TypeLoadDocument:
		doc, err := document.Parse(op.Payload)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w: %w", op.Type, ErrInvalidPayload, err)
		}
		if err := ed.LoadDocument(doc); err != nil {
			return Result{}, err
		}
		return Result{Changed: true}, nil

	case TypeHitTest, TypeClick, TypeDoubleClick:
		p, err := payload[Pointer](op)
		if err != nil {
			return Result{}, err
		}
		var hit engine.Hit
		switch op.Type {
		case TypeHitTest:
			hit = ed.HitTest(p.point())
			return Result{Hit: &hit}, nil
		case TypeClick:
			hit = ed.Click(p.point(), p.mods())
		default:
			hit = ed.DoubleClick(p.point())
		}
		return Result{Hit: &hit, Changed: true}, nil

	case TypeSelectAll:
		ed.SelectAll()
		return Result{Changed: true}, nil

	case TypeDeselectAll:
		ed.DeselectAll()
		return Result{Changed: true}, nil

	case TypeMarquee:
		r, err := payload[Rect](op)
		if err != nil {
			return Result{}, err
		}
		ed.Marquee(geometry.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}, r.Additive)
		return Result{Changed: true}, nil

	case TypeBeginStroke, TypeBeginDrag, TypeBeginRotate, TypeBeginScale, TypeBeginMarquee, TypePointerMove:
		p, err := payload[Pointer](op)
		if err != nil {
			return Result{}, err
		}
		return changed(pointerOp(ed, op.Type, p))

	case TypeEndGesture:
		return changed(ed.EndGesture())

	case TypeCancelGesture:
		return changed(ed.CancelGesture())

	case TypeConnectNodes:
		c, err := payload[Connect](op)
		if err != nil {
			return Result{}, err
		}
		return Result{Changed: ed.ConnectNodes(c.A, c.B)}, nil

	case TypeBeginAltDraw:
		ed.BeginAltDraw()
		return Result{Changed: true}, nil

	case TypeAltClick:
		p, err := payload[Pointer](op)
		if err != nil {
			return Result{}, err
		}
		id, err := ed.AltClick(p.point())
		if err != nil {
			return Result{}, err
		}
		return Result{NodeID: id, Changed: true}, nil

	case TypeEndAltDraw:
		ed.EndAltDraw()
		return Result{Changed: true}, nil

	case TypeDeleteSelected:
		return Result{Changed: ed.DeleteSelection()}, nil

	case TypeCreateText:
		t, err := payload[CreateText](op)
		if err != nil {
			return Result{}, err
		}
		id := ed.CreateTextBox(geometry.Point{X: t.X, Y: t.Y}, t.Text)
		return Result{TextID: id, Changed: true}, nil

	case TypeBeginTextEdit:
		t, err := payload[TextRef](op)
		if err != nil {
			return Result{}, err
		}
		return changed(ed.BeginTextEdit(t.ID))

	case TypeUpdateTextEdit:
		t, err := payload[TextEdit](op)
		if err != nil {
			return Result{}, err
		}
		return changed(ed.UpdateTextEdit(t.Text))

	case TypeCommitTextEdit:
		t, err := payload[TextEdit](op)
		if err != nil {
			return Result{}, err
		}
		id := t.ID
		if id == "" {
			var ok bool
			if id, ok = ed.EditingText(); !ok {
				return Result{}, fmt.Errorf("%s: %w: no text box in edit mode", op.Type, ErrInvalidPayload)
			}
		}
		return changed(ed.CommitTextEdit(id, t.Text))

	case TypeSetColor:
		c, err := payload[Color](op)
		if err != nil {
			return Result{}, err
		}
		ok, err := ed.SetColor(c.Color)
		return Result{Changed: ok}, err

	case TypeSetLineWidth, TypeSetFontSize:
		s, err := payload[Size](op)
		if err != nil {
			return Result{}, err
		}
		set := ed.SetLineWidth
		if op.Type == TypeSetFontSize {
			set = ed.SetFontSize
		}
		ok, err := set(s.Value)
		return Result{Changed: ok}, err

	case TypeUndo:
		return changed(ed.Undo())

	case TypeRedo:
		return changed(ed.Redo())
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
}

func pointerOp(ed *engine.Editor, typ string, p Pointer) error {
	switch typ {
	case TypeBeginStroke:
		return ed.BeginStroke(p.point())
	case TypeBeginDrag:
		return ed.BeginDrag(p.point(), p.mods())
	case TypeBeginRotate:
		return ed.BeginRotate(p.point())
	case TypeBeginScale:
		return ed.BeginScale(p.point(), p.Lock || p.Shift || p.Ctrl)
	case TypeBeginMarquee:
		return ed.BeginMarquee(p.point(), p.Shift)
	default:
		return ed.PointerMove(p.point())
	}
}

func changed(err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return Result{Changed: true}, nil
}
