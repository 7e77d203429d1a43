package session

import (
	"encoding/json"

	"github.com/texsketch/texsketch/backend-go/internal/document"
	"github.com/texsketch/texsketch/backend-go/internal/engine"
	"github.com/texsketch/texsketch/backend-go/internal/ops"
)

type Message struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Scene sync
	TypeScene = "scene"

	// Operations
	TypeOpSubmit = "op.submit"
	TypeOpAck    = "op.ack"
	TypeOpNack   = "op.nack"
)

type WelcomePayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// ScenePayload is the full state every client redraws from.
type ScenePayload struct {
	Document  *document.Document   `json:"document"`
	Commands  []engine.DrawCommand `json:"commands"`
	CanUndo   bool                 `json:"canUndo"`
	CanRedo   bool                 `json:"canRedo"`
	UndoDepth int                  `json:"undoDepth"`
	RedoDepth int                  `json:"redoDepth"`
	Gesture   string               `json:"gesture,omitempty"`
}

type OpSubmitPayload struct {
	Operation ops.Operation `json:"operation"`
}

type OpAckPayload struct {
	OperationID string     `json:"operationId"`
	ServerSeq   int64      `json:"serverSeq"`
	Result      ops.Result `json:"result"`
}

type OpNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Gesture     string     `json:"gesture,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
}

func newMessage(typ string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: raw}, nil
}
