// Package history keeps the undo and redo stacks. Each entry is a tagged
// command that carries both its before and after state, so one payload
// serves to revert and to reapply.
package history

import (
	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
	"github.com/texsketch/texsketch/backend-go/internal/transform"
)

type Kind string

const (
	KindCreateGraphElements Kind = "create_graph_elements"
	KindCreateText          Kind = "create_text"
	KindDeleteSelected      Kind = "delete_selected"
	KindMoveNodes           Kind = "move_nodes"
	KindMoveText            Kind = "move_text"
	KindTransformItems      Kind = "transform_items"
	KindChangeColor         Kind = "change_color"
	KindChangeLineWidth     Kind = "change_linewidth"
	KindChangeFontSize      Kind = "change_fontsize"
	KindEditText            Kind = "edit_text"
	KindGroup               Kind = "group"
)

// Command is one reversible user action.
type Command interface {
	Kind() Kind
}

// CreateGraphElements adds nodes and the edges between them.
type CreateGraphElements struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// CreateText adds one text box.
type CreateText struct {
	Box textbox.Data `json:"box"`
}

// DeleteSelected is the exact cascade a smart delete produced, plus any
// text boxes removed with it.
type DeleteSelected struct {
	Texts []textbox.Data     `json:"texts,omitempty"`
	Graph graph.DeleteResult `json:"graph"`
}

// MoveNodes translates nodes. The frame fields let the persistent frame
// follow the move in both directions.
type MoveNodes struct {
	Moves     []transform.NodeMove `json:"moves"`
	PrevFrame *transform.Frame     `json:"prevFrame,omitempty"`
	NextFrame *transform.Frame     `json:"nextFrame,omitempty"`
}

// MoveText translates text boxes.
type MoveText struct {
	Moves     []transform.TextMove `json:"moves"`
	PrevFrame *transform.Frame     `json:"prevFrame,omitempty"`
	NextFrame *transform.Frame     `json:"nextFrame,omitempty"`
}

// TransformItems is a committed rotate or scale gesture.
type TransformItems struct {
	transform.Change
}

// ValueChange is one element's style before and after.
type ValueChange[T any] struct {
	ID  string `json:"id"`
	Old T      `json:"old"`
	New T      `json:"new"`
}

type ChangeColor struct {
	Edges []ValueChange[string] `json:"edges,omitempty"`
	Texts []ValueChange[string] `json:"texts,omitempty"`
}

type ChangeLineWidth struct {
	Edges []ValueChange[float64] `json:"edges"`
}

// ChangeFontSize stores whole snapshots because a font change re-measures.
type ChangeFontSize struct {
	Texts []transform.TextMove `json:"texts"`
}

type EditText struct {
	Before textbox.Data `json:"before"`
	After  textbox.Data `json:"after"`
}

// Group records several commands as one step. Revert runs them newest first.
type Group struct {
	Commands []Command `json:"commands"`
}

func (CreateGraphElements) Kind() Kind { return KindCreateGraphElements }
func (CreateText) Kind() Kind          { return KindCreateText }
func (DeleteSelected) Kind() Kind      { return KindDeleteSelected }
func (MoveNodes) Kind() Kind           { return KindMoveNodes }
func (MoveText) Kind() Kind            { return KindMoveText }
func (TransformItems) Kind() Kind      { return KindTransformItems }
func (ChangeColor) Kind() Kind         { return KindChangeColor }
func (ChangeLineWidth) Kind() Kind     { return KindChangeLineWidth }
func (ChangeFontSize) Kind() Kind      { return KindChangeFontSize }
func (EditText) Kind() Kind            { return KindEditText }
func (Group) Kind() Kind               { return KindGroup }
