package session

import (
	"sync"
	"time"

	"github.com/texsketch/texsketch/backend-go/internal/document"
	"github.com/texsketch/texsketch/backend-go/internal/engine"
	"github.com/texsketch/texsketch/backend-go/internal/ops"
)

// Room is one shared canvas. Operations from all of its clients are applied
// to the editor one at a time.
type Room struct {
	id       string
	presence *PresenceManager

	// Guarded by Hub.mu.
	clients map[string]*Client
	idle    time.Time

	mu     sync.Mutex
	editor *engine.Editor
	seq    int64
}

func NewRoom(id string, editor *engine.Editor) *Room {
	return &Room{
		id:       id,
		presence: NewPresenceManager(),
		clients:  make(map[string]*Client),
		idle:     time.Now(),
		editor:   editor,
	}
}

func (r *Room) ID() string { return r.id }

// Apply runs op and returns its result, the room sequence number after it
// and the scene to broadcast.
func (r *Room) Apply(op ops.Operation) (ops.Result, int64, ScenePayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := ops.Apply(r.editor, op)
	if err != nil {
		// A failed undo or redo still changes the stacks.
		return res, r.seq, r.sceneLocked(), err
	}
	if res.Changed {
		r.seq++
	}
	return res, r.seq, r.sceneLocked(), nil
}

// Scene returns the current state and its sequence number.
func (r *Room) Scene() (ScenePayload, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sceneLocked(), r.seq
}

func (r *Room) sceneLocked() ScenePayload {
	undo, redo := r.editor.HistoryDepth()
	return ScenePayload{
		Document:  r.editor.Document(),
		Commands:  r.editor.CompileDrawCommands(),
		CanUndo:   r.editor.CanUndo(),
		CanRedo:   r.editor.CanRedo(),
		UndoDepth: undo,
		RedoDepth: redo,
		Gesture:   r.editor.Gesture(),
	}
}

// Document returns a snapshot of the canvas.
func (r *Room) Document() *document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.editor.Document()
}
