package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

// PlaygroundRoomID is always accepted as a room id.
const PlaygroundRoomID = "playground"

const maxDisplayName = 40

var ErrInvalidRoomID = errors.New("invalid room id")

// ValidRoomID accepts the playground or a room typeid.
func ValidRoomID(id string) error {
	if id == PlaygroundRoomID {
		return nil
	}
	if err := typeid.Validate(id, typeid.PrefixRoom); err != nil {
		return errors.Join(ErrInvalidRoomID, err)
	}
	return nil
}

// ServeRoom upgrades requests on /ws/room/{roomId} and attaches the
// connection to the room. Clients are anonymous; the name query parameter
// sets the display name.
func (h *Hub) ServeRoom(origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := mux.Vars(r)["roomId"]
		if err := ValidRoomID(roomID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		userID := "anon-" + uuid.New().String()[:8]
		displayName := strings.TrimSpace(r.URL.Query().Get("name"))
		if displayName == "" {
			displayName = "Anonymous"
		}
		if runes := []rune(displayName); len(runes) > maxDisplayName {
			displayName = string(runes[:maxDisplayName])
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			h.log.Error("websocket accept", zap.Error(err))
			return
		}

		clientID := uuid.New().String()
		client := NewClient(h, conn, userID, displayName, roomID, clientID)
		h.Register(client)

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
