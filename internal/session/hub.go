// Package session shares editors between websocket clients. Each room owns
// one editor; clients submit operations, the room applies them in order and
// every client receives the resulting scene.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/texsketch/texsketch/backend-go/internal/document"
	"github.com/texsketch/texsketch/backend-go/internal/engine"
	"github.com/texsketch/texsketch/backend-go/internal/ops"
)

// Metrics receives room and operation events.
type Metrics interface {
	RoomOpened()
	RoomClosed()
	ClientJoined()
	ClientLeft()
	ObserveOperation(opType string, d time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) RoomOpened()                                   {}
func (nopMetrics) RoomClosed()                                   {}
func (nopMetrics) ClientJoined()                                 {}
func (nopMetrics) ClientLeft()                                   {}
func (nopMetrics) ObserveOperation(string, time.Duration, error) {}

type Options struct {
	// NewEditor creates the editor for a new room.
	NewEditor func() *engine.Editor
	// IdleTTL is how long a room without clients keeps its canvas. Zero
	// keeps rooms forever.
	IdleTTL time.Duration
	Logger  *zap.Logger
	Metrics Metrics
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	newEditor func() *engine.Editor
	idleTTL   time.Duration
	log       *zap.Logger
	metrics   Metrics
}

func NewHub(opts Options) *Hub {
	if opts.NewEditor == nil {
		opts.NewEditor = func() *engine.Editor { return engine.New(engine.DefaultOptions()) }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		newEditor:  opts.NewEditor,
		idleTTL:    opts.IdleTTL,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Run serves registrations until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var sweep <-chan time.Time
	if h.idleTTL > 0 {
		t := time.NewTicker(h.idleTTL / 2)
		defer t.Stop()
		sweep = t.C
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case now := <-sweep:
			h.sweep(now)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Room returns an existing room.
func (h *Hub) Room(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

// OpenRoom returns the room for id, creating it if needed.
func (h *Hub) OpenRoom(id string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openRoomLocked(id)
}

func (h *Hub) openRoomLocked(id string) *Room {
	if r, ok := h.rooms[id]; ok {
		return r
	}
	r := NewRoom(id, h.newEditor())
	h.rooms[id] = r
	h.log.Info("room created", zap.String("room", id))
	return r
}

// ClientCount reports how many clients a room has.
func (h *Hub) ClientCount(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[id]; ok {
		return len(r.clients)
	}
	return 0
}

// Snapshot returns the canvas of a room.
func (h *Hub) Snapshot(id string) (*document.Document, bool) {
	r, ok := h.Room(id)
	if !ok {
		return nil, false
	}
	return r.Document(), true
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room := h.openRoomLocked(client.RoomID)
	if len(room.clients) == 0 {
		h.metrics.RoomOpened()
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()
	h.metrics.ClientJoined()

	if msg, err := newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	}); err == nil {
		client.Send(msg)
	}

	scene, seq := room.Scene()
	if msg, err := newMessage(TypeScene, scene); err == nil {
		msg.Seq = seq
		client.Send(msg)
	}

	// Send current presence state to new client
	if msg, err := room.presence.StateMessage(); err == nil {
		client.Send(msg)
	}

	// Broadcast join to other clients
	if msg, err := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		DisplayName: client.DisplayName,
	}); err == nil {
		msg.ClientID = client.ClientID
		h.broadcastToRoom(client.RoomID, msg, client.ClientID)
	}

	h.log.Info("client joined", zap.String("client", client.ClientID), zap.String("room", client.RoomID))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.RoomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)
	empty := len(room.clients) == 0
	if empty {
		room.idle = time.Now()
	}
	h.mu.Unlock()

	h.metrics.ClientLeft()
	if empty {
		h.metrics.RoomClosed()
	}

	if msg, err := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID}); err == nil {
		msg.ClientID = client.ClientID
		h.broadcastToRoom(client.RoomID, msg, "")
	}

	h.log.Info("client left", zap.String("client", client.ClientID), zap.String("room", client.RoomID))
}

// sweep drops rooms that have had no clients for longer than the idle TTL.
func (h *Hub) sweep(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		if len(r.clients) == 0 && now.Sub(r.idle) > h.idleTTL {
			delete(h.rooms, id)
			h.log.Info("room expired", zap.String("room", id))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.rooms {
		for _, c := range r.clients {
			c.close()
		}
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeOpSubmit:
		h.handleOperation(sender, msg)
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	default:
		h.log.Warn("unknown message type", zap.String("type", msg.Type), zap.String("client", sender.ClientID))
		sender.sendError("unknown message type " + msg.Type)
	}
}

func (h *Hub) handleOperation(sender *Client, msg *Message) {
	var submit OpSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		sender.sendError("invalid operation payload")
		return
	}
	op := submit.Operation

	res, seq, scene, broadcast, err := h.apply(sender.RoomID, op)
	if err != nil {
		h.log.Debug("operation rejected",
			zap.String("type", op.Type),
			zap.String("client", sender.ClientID),
			zap.Error(err))
		if nack, merr := newMessage(TypeOpNack, OpNackPayload{OperationID: op.ID, Reason: err.Error()}); merr == nil {
			sender.Send(nack)
		}
	} else if ack, merr := newMessage(TypeOpAck, OpAckPayload{OperationID: op.ID, ServerSeq: seq, Result: res}); merr == nil {
		ack.Seq = seq
		sender.Send(ack)
	}
	if broadcast {
		h.broadcastScene(sender.RoomID, scene, seq)
	}
}

// Submit applies op to a room on behalf of the server and broadcasts the
// result to its clients. The room is created if needed.
func (h *Hub) Submit(roomID string, op ops.Operation) (ops.Result, int64, error) {
	res, seq, scene, broadcast, err := h.apply(roomID, op)
	if broadcast {
		h.broadcastScene(roomID, scene, seq)
	}
	return res, seq, err
}

func (h *Hub) apply(roomID string, op ops.Operation) (res ops.Result, seq int64, scene ScenePayload, broadcast bool, err error) {
	room := h.OpenRoom(roomID)

	start := time.Now()
	res, seq, scene, err = room.Apply(op)
	h.metrics.ObserveOperation(op.Type, time.Since(start), err)

	switch {
	case err == nil:
		broadcast = res.Changed
	case op.Type == ops.TypeUndo || op.Type == ops.TypeRedo:
		// Undo and redo failures clear a stack, which every client shows.
		broadcast = true
	}
	return res, seq, scene, broadcast, err
}

func (h *Hub) broadcastScene(roomID string, scene ScenePayload, seq int64) {
	msg, err := newMessage(TypeScene, scene)
	if err != nil {
		h.log.Error("marshal scene", zap.Error(err))
		return
	}
	msg.Seq = seq
	h.broadcastToRoom(roomID, msg, "")
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		h.log.Warn("invalid presence payload", zap.Error(err))
		return
	}
	presence.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.RoomID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	room.presence.Update(sender.ClientID, &presence)

	out, err := newMessage(TypePresenceUpdate, presence)
	if err != nil {
		return
	}
	out.ClientID = sender.ClientID
	h.broadcastToRoom(sender.RoomID, out, sender.ClientID)
}

func (h *Hub) broadcastToRoom(roomID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
