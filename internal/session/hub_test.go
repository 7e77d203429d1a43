package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/texsketch/texsketch/backend-go/internal/engine"
	"github.com/texsketch/texsketch/backend-go/internal/ops"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

type halfEm struct{}

func (halfEm) Measure(raw string, fontSize float64) textbox.Size {
	return textbox.Size{Width: float64(len(raw)) * fontSize / 2, Height: fontSize}
}

func (halfEm) Render(raw string) textbox.Markup { return textbox.Markup{HTML: raw} }

func newEditor() *engine.Editor {
	opts := engine.DefaultOptions()
	opts.IDs = &typeid.Sequence{}
	opts.Renderer = halfEm{}
	return engine.New(opts)
}

type countingMetrics struct {
	mu                    sync.Mutex
	rooms, clients, opErr int
	ops                   []string
}

func (m *countingMetrics) RoomOpened()   { m.mu.Lock(); m.rooms++; m.mu.Unlock() }
func (m *countingMetrics) RoomClosed()   { m.mu.Lock(); m.rooms--; m.mu.Unlock() }
func (m *countingMetrics) ClientJoined() { m.mu.Lock(); m.clients++; m.mu.Unlock() }
func (m *countingMetrics) ClientLeft()   { m.mu.Lock(); m.clients--; m.mu.Unlock() }
func (m *countingMetrics) ObserveOperation(opType string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, opType)
	if err != nil {
		m.opErr++
	}
}

func (m *countingMetrics) snapshot() (rooms, clients, opErr int, ops []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms, m.clients, m.opErr, append([]string(nil), m.ops...)
}

func startHub(t *testing.T, m Metrics) *Hub {
	t.Helper()
	h := NewHub(Options{
		NewEditor: newEditor,
		IdleTTL:   time.Minute,
		Logger:    zaptest.NewLogger(t),
		Metrics:   m,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s received nothing", c.ClientID)
		return nil
	}
}

func recvType(t *testing.T, c *Client, typ string) *Message {
	t.Helper()
	msg := recv(t, c)
	require.Equal(t, typ, msg.Type)
	return msg
}

func assertQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message for %s: %s", c.ClientID, data)
	case <-time.After(50 * time.Millisecond):
	}
}

func join(t *testing.T, h *Hub, clientID, name string) *Client {
	t.Helper()
	c := NewClient(h, nil, "user-"+clientID, name, PlaygroundRoomID, clientID)
	h.Register(c)

	welcome := recvType(t, c, TypeWelcome)
	var w WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &w))
	assert.Equal(t, clientID, w.ClientID)
	assert.Equal(t, name, w.DisplayName)

	recvType(t, c, TypeScene)
	recvType(t, c, TypePresenceState)
	return c
}

func submit(t *testing.T, h *Hub, c *Client, id, typ string, payload ...any) {
	t.Helper()
	op := ops.Operation{ID: id, Type: typ}
	if len(payload) > 0 {
		p, err := json.Marshal(payload[0])
		require.NoError(t, err)
		op.Payload = p
	}
	raw, err := json.Marshal(OpSubmitPayload{Operation: op})
	require.NoError(t, err)
	h.handleMessage(c, &Message{Type: TypeOpSubmit, Payload: raw})
}

type sceneNodes struct {
	Document struct {
		Nodes []json.RawMessage `json:"nodes"`
	} `json:"document"`
	CanUndo   bool `json:"canUndo"`
	UndoDepth int  `json:"undoDepth"`
	RedoDepth int  `json:"redoDepth"`
}

func TestJoinAnnouncesToOthers(t *testing.T) {
	m := &countingMetrics{}
	h := startHub(t, m)

	a := join(t, h, "c1", "Ann")
	b := join(t, h, "c2", "Bob")

	msg := recvType(t, a, TypePresenceJoin)
	var p PresenceJoinPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "c2", p.ClientID)
	assert.Equal(t, "Bob", p.DisplayName)
	assertQuiet(t, b)

	rooms, clients, _, _ := m.snapshot()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 2, clients)
}

func TestOperationAckAndBroadcast(t *testing.T) {
	m := &countingMetrics{}
	h := startHub(t, m)
	a := join(t, h, "c1", "Ann")
	b := join(t, h, "c2", "Bob")
	recvType(t, a, TypePresenceJoin)

	submit(t, h, a, "op-1", ops.TypeLoadSample)

	ack := recvType(t, a, TypeOpAck)
	var ap OpAckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &ap))
	assert.Equal(t, "op-1", ap.OperationID)
	assert.Equal(t, int64(1), ap.ServerSeq)
	assert.True(t, ap.Result.Changed)

	for _, c := range []*Client{a, b} {
		msg := recvType(t, c, TypeScene)
		assert.Equal(t, int64(1), msg.Seq)
		var scene sceneNodes
		require.NoError(t, json.Unmarshal(msg.Payload, &scene))
		assert.Len(t, scene.Document.Nodes, 8)
	}

	doc, ok := h.Snapshot(PlaygroundRoomID)
	require.True(t, ok)
	assert.Len(t, doc.Nodes, 8)

	_, _, opErr, opTypes := m.snapshot()
	assert.Equal(t, []string{ops.TypeLoadSample}, opTypes)
	assert.Zero(t, opErr)
}

func TestRejectedOperationNacksSender(t *testing.T) {
	m := &countingMetrics{}
	h := startHub(t, m)
	a := join(t, h, "c1", "Ann")
	b := join(t, h, "c2", "Bob")
	recvType(t, a, TypePresenceJoin)

	submit(t, h, a, "op-1", "paint_everything")

	nack := recvType(t, a, TypeOpNack)
	var np OpNackPayload
	require.NoError(t, json.Unmarshal(nack.Payload, &np))
	assert.Equal(t, "op-1", np.OperationID)
	assert.Contains(t, np.Reason, ops.ErrUnknownOperation.Error())
	assertQuiet(t, a)
	assertQuiet(t, b)

	_, _, opErr, _ := m.snapshot()
	assert.Equal(t, 1, opErr)
}

func TestFailedUndoBroadcastsScene(t *testing.T) {
	h := startHub(t, nil)
	a := join(t, h, "c1", "Ann")

	submit(t, h, a, "op-1", ops.TypeUndo)
	recvType(t, a, TypeOpNack)
	recvType(t, a, TypeScene)
}

func TestNoOpOperationIsAckedWithoutScene(t *testing.T) {
	h := startHub(t, nil)
	a := join(t, h, "c1", "Ann")

	submit(t, h, a, "op-1", ops.TypeConnectNodes, ops.Connect{A: "node_1", B: "node_2"})
	ack := recvType(t, a, TypeOpAck)
	var ap OpAckPayload
	require.NoError(t, json.Unmarshal(ack.Payload, &ap))
	assert.False(t, ap.Result.Changed)
	assert.Equal(t, int64(0), ap.ServerSeq)
	assertQuiet(t, a)
}

func TestSceneCarriesHistoryDepth(t *testing.T) {
	h := startHub(t, nil)
	a := join(t, h, "c1", "Ann")

	scene := func() sceneNodes {
		t.Helper()
		recvType(t, a, TypeOpAck)
		var s sceneNodes
		require.NoError(t, json.Unmarshal(recvType(t, a, TypeScene).Payload, &s))
		return s
	}
	submit(t, h, a, "op-1", ops.TypeAltClick, ops.Pointer{X: 0, Y: 0})
	submit(t, h, a, "op-2", ops.TypeAltClick, ops.Pointer{X: 100, Y: 0})
	scene()
	s := scene()
	assert.Len(t, s.Document.Nodes, 2)
	assert.True(t, s.CanUndo)
	assert.Equal(t, 2, s.UndoDepth)

	submit(t, h, a, "op-3", ops.TypeUndo)
	s = scene()
	assert.Equal(t, 1, s.UndoDepth)
	assert.Equal(t, 1, s.RedoDepth)
}

func TestPresenceUpdateReachesOthers(t *testing.T) {
	h := startHub(t, nil)
	a := join(t, h, "c1", "Ann")
	b := join(t, h, "c2", "Bob")
	recvType(t, a, TypePresenceJoin)

	raw, err := json.Marshal(PresencePayload{Cursor: &CursorPos{X: 3, Y: 4}, DisplayName: "Mallory"})
	require.NoError(t, err)
	h.handleMessage(b, &Message{Type: TypePresenceUpdate, Payload: raw})

	msg := recvType(t, a, TypePresenceUpdate)
	assert.Equal(t, "c2", msg.ClientID)
	var p PresencePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, "Bob", p.DisplayName)
	require.NotNil(t, p.Cursor)
	assert.Equal(t, CursorPos{X: 3, Y: 4}, *p.Cursor)
	assertQuiet(t, b)

	join(t, h, "c3", "Cy")
	recvType(t, a, TypePresenceJoin)
	recvType(t, b, TypePresenceJoin)

	room, ok := h.Room(PlaygroundRoomID)
	require.True(t, ok)
	assert.Contains(t, room.presence.GetAll(), "c2")
}

func TestUnknownMessageType(t *testing.T) {
	h := startHub(t, nil)
	a := join(t, h, "c1", "Ann")

	h.handleMessage(a, &Message{Type: "project.delete"})
	msg := recvType(t, a, TypeError)
	var e ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &e))
	assert.Contains(t, e.Message, "project.delete")
}

func TestLeaveAnnouncesAndKeepsCanvas(t *testing.T) {
	m := &countingMetrics{}
	h := startHub(t, m)
	a := join(t, h, "c1", "Ann")
	b := join(t, h, "c2", "Bob")
	recvType(t, a, TypePresenceJoin)

	submit(t, h, a, "op-1", ops.TypeLoadSample)
	recvType(t, a, TypeOpAck)
	recvType(t, a, TypeScene)
	recvType(t, b, TypeScene)

	h.Unregister(b)
	msg := recvType(t, a, TypePresenceLeave)
	assert.Equal(t, "c2", msg.ClientID)
	_, open := <-b.send
	assert.False(t, open)

	h.Unregister(a)
	require.Eventually(t, func() bool {
		rooms, clients, _, _ := m.snapshot()
		return rooms == 0 && clients == 0
	}, 2*time.Second, 10*time.Millisecond)

	doc, ok := h.Snapshot(PlaygroundRoomID)
	require.True(t, ok)
	assert.Len(t, doc.Nodes, 8)

	join(t, h, "c3", "Ann")
	room, _ := h.Room(PlaygroundRoomID)
	_, seq := room.Scene()
	assert.Equal(t, int64(1), seq)
}

func TestSweepDropsIdleRooms(t *testing.T) {
	h := NewHub(Options{NewEditor: newEditor, IdleTTL: time.Minute, Logger: zaptest.NewLogger(t)})
	h.OpenRoom("idle")
	busy := h.OpenRoom("busy")
	busy.clients["c1"] = NewClient(h, nil, "u", "n", "busy", "c1")

	h.sweep(time.Now().Add(30 * time.Second))
	_, ok := h.Room("idle")
	assert.True(t, ok)

	h.sweep(time.Now().Add(2 * time.Minute))
	_, ok = h.Room("idle")
	assert.False(t, ok)
	_, ok = h.Room("busy")
	assert.True(t, ok)
}

func TestValidRoomID(t *testing.T) {
	assert.NoError(t, ValidRoomID(PlaygroundRoomID))
	assert.NoError(t, ValidRoomID(typeid.NewRoomID()))
	assert.ErrorIs(t, ValidRoomID(typeid.NewNodeID()), ErrInvalidRoomID)
	assert.ErrorIs(t, ValidRoomID("not an id"), ErrInvalidRoomID)
}

func TestSubmitBroadcastsToRoom(t *testing.T) {
	h := startHub(t, nil)
	a := join(t, h, "c1", "Ann")

	res, seq, err := h.Submit(PlaygroundRoomID, ops.Operation{Type: ops.TypeLoadSample})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, int64(1), seq)

	msg := recvType(t, a, TypeScene)
	assert.Equal(t, int64(1), msg.Seq)

	_, _, err = h.Submit("room-without-clients", ops.Operation{Type: ops.TypeRedo})
	assert.Error(t, err)
	_, ok := h.Room("room-without-clients")
	assert.True(t, ok)
}
