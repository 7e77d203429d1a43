// Package rooms serves the REST side of shared rooms: creating them and
// reading or replacing their canvas outside a websocket session.
package rooms

import (
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/texsketch/texsketch/backend-go/internal/mathtext"
	"github.com/texsketch/texsketch/backend-go/internal/ops"
	"github.com/texsketch/texsketch/backend-go/internal/raster"
	"github.com/texsketch/texsketch/backend-go/internal/session"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

const (
	maxDocumentSize  = 4 << 20
	maxSnapshotScale = 4
)

type Handler struct {
	hub      *session.Hub
	renderer *mathtext.Renderer
	log      *zap.Logger
}

func NewHandler(hub *session.Hub, renderer *mathtext.Renderer, log *zap.Logger) *Handler {
	if renderer == nil {
		renderer = mathtext.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{hub: hub, renderer: renderer, log: log}
}

// Register mounts the room routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/rooms", h.Create).Methods("POST")
	r.HandleFunc("/rooms/{roomId}", h.Get).Methods("GET")
	r.HandleFunc("/rooms/{roomId}/document", h.Document).Methods("GET")
	r.HandleFunc("/rooms/{roomId}/document", h.ReplaceDocument).Methods("PUT")
	r.HandleFunc("/rooms/{roomId}/snapshot.png", h.Snapshot).Methods("GET")
}

type createRequest struct {
	Sample bool `json:"sample"`
}

type roomInfo struct {
	ID      string `json:"id"`
	Seq     int64  `json:"seq"`
	Clients int    `json:"clients"`
	CanUndo bool   `json:"canUndo"`
	CanRedo bool   `json:"canRedo"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	id := typeid.NewRoomID()
	room := h.hub.OpenRoom(id)
	if req.Sample {
		if _, _, err := h.hub.Submit(id, ops.Operation{Type: ops.TypeLoadSample}); err != nil {
			h.log.Error("load sample failed", zap.String("room", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
	}

	writeJSON(w, http.StatusCreated, h.info(room))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.info(room))
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, room.Document())
}

// ReplaceDocument loads a document into the room. Connected clients get
// the new scene.
func (h *Handler) ReplaceDocument(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if err := session.ValidRoomID(roomID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(body) > maxDocumentSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "document too large"})
		return
	}

	_, seq, err := h.hub.Submit(roomID, ops.Operation{Type: ops.TypeLoadDocument, Payload: body})
	if err != nil {
		handleOperationError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"seq": seq})
}

// Snapshot renders the room as a PNG. Query parameters: scale (0 < s <= 4)
// and nodes (draw node dots).
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}

	opts := raster.DefaultOptions()
	q := r.URL.Query()
	if s := q.Get("scale"); s != "" {
		scale, err := strconv.ParseFloat(s, 64)
		if err != nil || scale <= 0 || scale > maxSnapshotScale {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scale"})
			return
		}
		opts.Scale = scale
	}
	if n := q.Get("nodes"); n != "" {
		draw, err := strconv.ParseBool(n)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid nodes flag"})
			return
		}
		opts.DrawNodes = draw
	}

	img, err := raster.Render(room.Document(), h.renderer, opts)
	if err != nil {
		h.log.Error("render snapshot", zap.String("room", room.ID()), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, img); err != nil {
		h.log.Debug("write snapshot", zap.Error(err))
	}
}

func (h *Handler) room(w http.ResponseWriter, r *http.Request) (*session.Room, bool) {
	roomID := mux.Vars(r)["roomId"]
	if err := session.ValidRoomID(roomID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	room, ok := h.hub.Room(roomID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return nil, false
	}
	return room, true
}

func (h *Handler) info(room *session.Room) roomInfo {
	scene, seq := room.Scene()
	return roomInfo{
		ID:      room.ID(),
		Seq:     seq,
		Clients: h.hub.ClientCount(room.ID()),
		CanUndo: scene.CanUndo,
		CanRedo: scene.CanRedo,
	}
}

func handleOperationError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, ops.ErrInvalidPayload):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Error("operation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
