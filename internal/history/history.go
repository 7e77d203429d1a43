package history

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const DefaultCapacity = 50

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Applier replays commands against the model. Revert undoes a command,
// Reapply redoes it. An error means the model no longer matches the command.
type Applier interface {
	Revert(cmd Command) error
	Reapply(cmd Command) error
}

// History is a bounded undo stack and its redo stack.
type History struct {
	undo     []Command
	redo     []Command
	capacity int
	log      *zap.Logger
}

func New(capacity int, log *zap.Logger) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &History{capacity: capacity, log: log}
}

// Record pushes a new action. The oldest entry is evicted past capacity and
// the redo stack is cleared.
func (h *History) Record(cmd Command) {
	h.undo = append(h.undo, cmd)
	if over := len(h.undo) - h.capacity; over > 0 {
		h.undo = append(h.undo[:0:0], h.undo[over:]...)
	}
	h.redo = nil
}

// Undo reverts the newest command. If the revert fails, the redo stack is
// discarded and the error returned; the failed command is dropped.
func (h *History) Undo(a Applier) (Command, error) {
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	cmd := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]

	if err := a.Revert(cmd); err != nil {
		h.log.Error("undo failed, clearing redo stack",
			zap.String("kind", string(cmd.Kind())),
			zap.Int("discarded", len(h.redo)),
			zap.Error(err))
		h.redo = nil
		return cmd, fmt.Errorf("undo %s: %w", cmd.Kind(), err)
	}
	h.redo = append(h.redo, cmd)
	h.log.Debug("undo", zap.String("kind", string(cmd.Kind())))
	return cmd, nil
}

// Redo reapplies the newest undone command. A failure discards the undo
// stack.
func (h *History) Redo(a Applier) (Command, error) {
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	cmd := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]

	if err := a.Reapply(cmd); err != nil {
		h.log.Error("redo failed, clearing undo stack",
			zap.String("kind", string(cmd.Kind())),
			zap.Int("discarded", len(h.undo)),
			zap.Error(err))
		h.undo = nil
		return cmd, fmt.Errorf("redo %s: %w", cmd.Kind(), err)
	}
	h.undo = append(h.undo, cmd)
	h.log.Debug("redo", zap.String("kind", string(cmd.Kind())))
	return cmd, nil
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (h *History) Depth() (undo, redo int) { return len(h.undo), len(h.redo) }

// Peek returns the newest undoable command.
func (h *History) Peek() (Command, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	return h.undo[len(h.undo)-1], true
}

func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
