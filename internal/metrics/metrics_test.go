package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texsketch/texsketch/backend-go/internal/history"
)

func TestEditorCounters(t *testing.T) {
	c := NewCollector("test")
	c.Recorded(history.KindMoveNodes)
	c.Recorded(history.KindMoveNodes)
	c.Replayed("undo", history.KindMoveNodes, nil)
	c.Replayed("redo", history.KindMoveNodes, errors.New("gone"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CommandsRecorded.WithLabelValues("move_nodes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HistoryReplays.WithLabelValues("undo", "move_nodes", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HistoryReplays.WithLabelValues("redo", "move_nodes", "failed")))
}

func TestSessionGauges(t *testing.T) {
	c := NewCollector("test")
	c.RoomOpened()
	c.ClientJoined()
	c.ClientJoined()
	c.ClientLeft()
	c.ObserveOperation("click", time.Millisecond, nil)
	c.ObserveOperation("click", time.Millisecond, errors.New("bad"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.RoomsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ClientsConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("click", "error")))
	c.RoomClosed()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.RoomsActive))
}

func TestMiddlewareAndHandler(t *testing.T) {
	c := NewCollector("test")
	r := mux.NewRouter()
	r.Use(c.Middleware)
	r.HandleFunc("/rooms/{roomId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", c.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/rooms/{roomId}", "418")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_http_requests_total"))
}
