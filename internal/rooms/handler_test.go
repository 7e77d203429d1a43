package rooms

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/texsketch/texsketch/backend-go/internal/document"
	"github.com/texsketch/texsketch/backend-go/internal/session"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	log := zaptest.NewLogger(t)
	hub := session.NewHub(session.Options{Logger: log})
	r := mux.NewRouter()
	NewHandler(hub, nil, log).Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateRoom(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodPost, "/rooms", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	empty := decode[roomInfo](t, rec)
	assert.NoError(t, typeid.Validate(empty.ID, typeid.PrefixRoom))
	assert.Zero(t, empty.Seq)

	rec = do(t, r, http.MethodPost, "/rooms", `{"sample":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	sample := decode[roomInfo](t, rec)
	assert.Equal(t, int64(1), sample.Seq)
	assert.NotEqual(t, empty.ID, sample.ID)

	rec = do(t, r, http.MethodGet, "/rooms/"+sample.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sample, decode[roomInfo](t, rec))

	rec = do(t, r, http.MethodGet, "/rooms/"+sample.ID+"/document", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[document.Document](t, rec)
	assert.Len(t, doc.Nodes, 8)

	rec = do(t, r, http.MethodPost, "/rooms", `{"sample":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoomLookupErrors(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"unknown room", "/rooms/" + typeid.NewRoomID(), http.StatusNotFound},
		{"wrong prefix", "/rooms/" + typeid.NewNodeID(), http.StatusBadRequest},
		{"garbage", "/rooms/nope/document", http.StatusBadRequest},
		{"unknown snapshot", "/rooms/" + typeid.NewRoomID() + "/snapshot.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, do(t, r, http.MethodGet, tt.path, "").Code)
		})
	}
}

func TestReplaceDocument(t *testing.T) {
	r := newRouter(t)

	src := document.NewSampleDocument(&typeid.Sequence{})
	body, err := json.Marshal(src)
	require.NoError(t, err)

	id := typeid.NewRoomID()
	rec := do(t, r, http.MethodPut, "/rooms/"+id+"/document", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]int64{"seq": 1}, decode[map[string]int64](t, rec))

	rec = do(t, r, http.MethodGet, "/rooms/"+id+"/document", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[document.Document](t, rec)
	assert.Len(t, doc.Nodes, len(src.Nodes))
	assert.Len(t, doc.Edges, len(src.Edges))

	rec = do(t, r, http.MethodPut, "/rooms/"+id+"/document", `{"nodes":[{"id":"n1"}],"edges":[{"id":"e1","node1Id":"n1","node2Id":"gone"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPut, "/rooms/bad/document", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshot(t *testing.T) {
	r := newRouter(t)
	info := decode[roomInfo](t, do(t, r, http.MethodPost, "/rooms", `{"sample":true}`))

	rec := do(t, r, http.MethodGet, "/rooms/"+info.ID+"/snapshot.png?scale=0.5&nodes=true", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())

	for _, q := range []string{"scale=0", "scale=9", "scale=x", "nodes=maybe"} {
		rec = do(t, r, http.MethodGet, "/rooms/"+info.ID+"/snapshot.png?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}
