package engine

import (
	"fmt"
	"slices"

	"github.com/texsketch/texsketch/backend-go/internal/history"
	"github.com/texsketch/texsketch/backend-go/internal/transform"
)

// Revert undoes cmd against the model. It is the history.Applier half that
// runs on undo.
func (e *Editor) Revert(cmd history.Command) error {
	if err := e.apply(cmd, false); err != nil {
		return err
	}
	return e.check()
}

// Reapply redoes cmd against the model.
func (e *Editor) Reapply(cmd history.Command) error {
	if err := e.apply(cmd, true); err != nil {
		return err
	}
	return e.check()
}

func (e *Editor) check() error {
	if err := e.graph.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistentModel, err)
	}
	return nil
}

func (e *Editor) apply(cmd history.Command, forward bool) error {
	switch c := cmd.(type) {
	case history.CreateGraphElements:
		return e.applyCreateGraph(c, forward)
	case history.CreateText:
		if forward {
			e.texts.Put(c.Box)
			return nil
		}
		if _, ok := e.texts.Remove(c.Box.ID); !ok {
			return missingText(c.Box.ID)
		}
		return nil
	case history.DeleteSelected:
		return e.applyDelete(c, forward)
	case history.MoveNodes:
		if err := e.requireNodes(moveIDs(c.Moves)); err != nil {
			return err
		}
		e.moveNodes(c.Moves, forward)
		return nil
	case history.MoveText:
		return e.putTexts(c.Moves, forward)
	case history.TransformItems:
		if err := e.requireNodes(moveIDs(c.Nodes)); err != nil {
			return err
		}
		e.moveNodes(c.Nodes, forward)
		return e.putTexts(c.Texts, forward)
	case history.ChangeColor:
		return e.applyColor(c, forward)
	case history.ChangeLineWidth:
		for _, ch := range c.Edges {
			if !e.graph.SetEdgeLineWidth(ch.ID, pick(ch.Old, ch.New, forward)) {
				return missingEdge(ch.ID)
			}
		}
		return nil
	case history.ChangeFontSize:
		return e.putTexts(c.Texts, forward)
	case history.EditText:
		id := c.Before.ID
		if _, ok := e.texts.Get(id); !ok {
			return missingText(id)
		}
		e.texts.Put(pick(c.Before, c.After, forward))
		return nil
	case history.Group:
		if forward {
			for _, sub := range c.Commands {
				if err := e.apply(sub, true); err != nil {
					return err
				}
			}
			return nil
		}
		for _, sub := range slices.Backward(c.Commands) {
			if err := e.apply(sub, false); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
}

func (e *Editor) applyCreateGraph(c history.CreateGraphElements, forward bool) error {
	nodeIDs := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		nodeIDs[i] = n.ID
	}
	edgeIDs := make([]string, len(c.Edges))
	for i, ed := range c.Edges {
		edgeIDs[i] = ed.ID
	}
	if forward {
		return e.graph.Restore(c.Nodes, c.Edges)
	}
	if err := e.requireNodes(nodeIDs); err != nil {
		return err
	}
	if err := e.requireEdges(edgeIDs); err != nil {
		return err
	}
	e.graph.Remove(nodeIDs, edgeIDs)
	return nil
}

// applyDelete replays the exact cascade: undo drops the replacement edges
// and puts back everything deleted, redo removes the same elements and
// re-adds the same replacement edges.
func (e *Editor) applyDelete(c history.DeleteSelected, forward bool) error {
	deletedNodes := make([]string, len(c.Graph.Nodes))
	for i, n := range c.Graph.Nodes {
		deletedNodes[i] = n.ID
	}
	deletedEdges := make([]string, len(c.Graph.Edges))
	for i, ed := range c.Graph.Edges {
		deletedEdges[i] = ed.ID
	}
	created := make([]string, len(c.Graph.Created))
	for i, ed := range c.Graph.Created {
		created[i] = ed.ID
	}

	if !forward {
		if err := e.requireEdges(created); err != nil {
			return err
		}
		e.graph.Remove(nil, created)
		if err := e.graph.Restore(c.Graph.Nodes, c.Graph.Edges); err != nil {
			return err
		}
		for _, t := range c.Texts {
			e.texts.Put(t)
		}
		return nil
	}

	if err := e.requireNodes(deletedNodes); err != nil {
		return err
	}
	if err := e.requireEdges(deletedEdges); err != nil {
		return err
	}
	for _, t := range c.Texts {
		if _, ok := e.texts.Get(t.ID); !ok {
			return missingText(t.ID)
		}
	}
	e.graph.Remove(deletedNodes, deletedEdges)
	if err := e.graph.Restore(nil, c.Graph.Created); err != nil {
		return err
	}
	for _, t := range c.Texts {
		e.texts.Remove(t.ID)
	}
	return nil
}

func (e *Editor) applyColor(c history.ChangeColor, forward bool) error {
	for _, ch := range c.Edges {
		if !e.graph.SetEdgeColor(ch.ID, pick(ch.Old, ch.New, forward)) {
			return missingEdge(ch.ID)
		}
	}
	for _, ch := range c.Texts {
		b, ok := e.texts.Get(ch.ID)
		if !ok {
			return missingText(ch.ID)
		}
		b.SetStyle(pick(ch.Old, ch.New, forward), 0)
	}
	return nil
}

func (e *Editor) moveNodes(moves []transform.NodeMove, forward bool) {
	for _, m := range moves {
		p := pick(m.From, m.To, forward)
		e.graph.MoveNode(m.ID, p.X, p.Y)
	}
}

func (e *Editor) putTexts(moves []transform.TextMove, forward bool) error {
	for _, m := range moves {
		if _, ok := e.texts.Get(m.ID); !ok {
			return missingText(m.ID)
		}
	}
	for _, m := range moves {
		e.texts.Put(pick(m.From, m.To, forward))
	}
	return nil
}

func (e *Editor) requireNodes(ids []string) error {
	for _, id := range ids {
		if !e.graph.HasNode(id) {
			return fmt.Errorf("%w: node %s is gone", ErrInconsistentModel, id)
		}
	}
	return nil
}

func (e *Editor) requireEdges(ids []string) error {
	for _, id := range ids {
		if !e.graph.HasEdge(id) {
			return missingEdge(id)
		}
	}
	return nil
}

func missingEdge(id string) error {
	return fmt.Errorf("%w: edge %s is gone", ErrInconsistentModel, id)
}

func missingText(id string) error {
	return fmt.Errorf("%w: text box %s is gone", ErrInconsistentModel, id)
}

func moveIDs(moves []transform.NodeMove) []string {
	ids := make([]string, len(moves))
	for i, m := range moves {
		ids[i] = m.ID
	}
	return ids
}

func pick[T any](before, after T, forward bool) T {
	if forward {
		return after
	}
	return before
}

// restoreFrame puts back the persistent frame a replayed move or transform
// left behind, provided the selection still covers exactly the same items.
// Anything else starts from a fresh frame.
func (e *Editor) restoreFrame(cmd history.Command, forward bool) {
	m, prev, next, ok := frameOf(cmd)
	if !ok || !sameMembers(m, e.Members()) {
		e.xf.SetFrame(nil)
		return
	}
	e.xf.SetFrame(pick(prev, next, forward))
}

func frameOf(cmd history.Command) (transform.Members, *transform.Frame, *transform.Frame, bool) {
	var m transform.Members
	switch c := cmd.(type) {
	case history.TransformItems:
		m.NodeIDs = moveIDs(c.Nodes)
		m.TextIDs = textIDs(c.Texts)
		end := c.EndFrame
		return m, c.PrevFrame, &end, true
	case history.MoveNodes:
		m.NodeIDs = moveIDs(c.Moves)
		return m, c.PrevFrame, c.NextFrame, true
	case history.MoveText:
		m.TextIDs = textIDs(c.Moves)
		return m, c.PrevFrame, c.NextFrame, true
	case history.Group:
		var prev, next *transform.Frame
		for _, sub := range c.Commands {
			sm, p, n, ok := frameOf(sub)
			if !ok {
				return m, nil, nil, false
			}
			m.NodeIDs = append(m.NodeIDs, sm.NodeIDs...)
			m.TextIDs = append(m.TextIDs, sm.TextIDs...)
			prev, next = p, n
		}
		return m, prev, next, len(c.Commands) > 0
	}
	return m, nil, nil, false
}

func textIDs(moves []transform.TextMove) []string {
	ids := make([]string, len(moves))
	for i, m := range moves {
		ids[i] = m.ID
	}
	return ids
}

func sameMembers(a, b transform.Members) bool {
	norm := func(ids []string) []string {
		out := slices.Clone(ids)
		slices.Sort(out)
		return slices.Compact(out)
	}
	return slices.Equal(norm(a.NodeIDs), norm(b.NodeIDs)) && slices.Equal(norm(a.TextIDs), norm(b.TextIDs))
}

var _ history.Applier = (*Editor)(nil)
