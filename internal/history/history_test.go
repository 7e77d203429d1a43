package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// counter applies EditText commands to a single string.
type counter struct {
	value   string
	failOn  string
	applied []string
}

func (c *counter) Revert(cmd Command) error {
	e := cmd.(EditText)
	if e.After.Text == c.failOn {
		return errors.New("boom")
	}
	c.value = e.Before.Text
	c.applied = append(c.applied, "revert:"+e.After.Text)
	return nil
}

func (c *counter) Reapply(cmd Command) error {
	e := cmd.(EditText)
	if e.After.Text == c.failOn {
		return errors.New("boom")
	}
	c.value = e.After.Text
	c.applied = append(c.applied, "reapply:"+e.After.Text)
	return nil
}

func edit(before, after string) EditText {
	var e EditText
	e.Before.Text, e.After.Text = before, after
	return e
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h := New(10, nil)
	c := &counter{value: "b"}
	h.Record(edit("a", "b"))
	assert.True(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	cmd, err := h.Undo(c)
	require.NoError(t, err)
	assert.Equal(t, KindEditText, cmd.Kind())
	assert.Equal(t, "a", c.value)
	assert.True(t, h.CanRedo())

	_, err = h.Redo(c)
	require.NoError(t, err)
	assert.Equal(t, "b", c.value)

	_, err = h.Redo(c)
	assert.ErrorIs(t, err, ErrNothingToRedo)
}

func TestRecordClearsRedo(t *testing.T) {
	h := New(10, nil)
	c := &counter{}
	h.Record(edit("a", "b"))
	_, err := h.Undo(c)
	require.NoError(t, err)
	h.Record(edit("a", "c"))
	assert.False(t, h.CanRedo())
}

func TestCapacityEvictsOldest(t *testing.T) {
	h := New(3, nil)
	for _, s := range []string{"1", "2", "3", "4"} {
		h.Record(edit("", s))
	}
	undo, _ := h.Depth()
	assert.Equal(t, 3, undo)

	c := &counter{}
	for range 3 {
		_, err := h.Undo(c)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"revert:4", "revert:3", "revert:2"}, c.applied)
	_, err := h.Undo(c)
	assert.ErrorIs(t, err, ErrNothingToUndo)
}

func TestUndoFailureClearsRedo(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := New(10, zap.New(core))
	c := &counter{failOn: "bad"}

	h.Record(edit("", "bad"))
	h.Record(edit("bad", "ok"))
	_, err := h.Undo(c)
	require.NoError(t, err)
	require.True(t, h.CanRedo())

	_, err = h.Undo(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undo edit_text")
	assert.False(t, h.CanRedo())
	assert.False(t, h.CanUndo())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "edit_text", logs.All()[0].ContextMap()["kind"])

	// The history keeps working afterwards.
	h.Record(edit("x", "y"))
	_, err = h.Undo(c)
	assert.NoError(t, err)
}

func TestRedoFailureClearsUndo(t *testing.T) {
	h := New(10, nil)
	c := &counter{}
	h.Record(edit("", "a"))
	h.Record(edit("a", "bad"))
	_, err := h.Undo(c)
	require.NoError(t, err)

	c.failOn = "bad"
	_, err = h.Redo(c)
	require.Error(t, err)
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestPeekAndClear(t *testing.T) {
	h := New(0, nil)
	_, ok := h.Peek()
	assert.False(t, ok)
	h.Record(CreateText{})
	cmd, ok := h.Peek()
	require.True(t, ok)
	assert.Equal(t, KindCreateText, cmd.Kind())
	h.Clear()
	assert.False(t, h.CanUndo())
}
