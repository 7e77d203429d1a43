// Package metrics exposes editor and session activity to Prometheus.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/texsketch/texsketch/backend-go/internal/history"
)

// Collector holds every metric on its own registry, so several collectors
// can live side by side in tests.
type Collector struct {
	registry *prometheus.Registry

	CommandsRecorded  *prometheus.CounterVec
	HistoryReplays    *prometheus.CounterVec
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	RoomsActive       prometheus.Gauge
	ClientsConnected  prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		CommandsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_recorded_total",
			Help:      "Commands pushed onto an undo stack",
		}, []string{"kind"}),
		HistoryReplays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_replays_total",
			Help:      "Undo and redo attempts by outcome",
		}, []string{"direction", "kind", "result"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Session operations applied to an editor",
		}, []string{"type", "status"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent applying one session operation",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"type"}),
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms with at least one client",
		}),
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_connected",
			Help:      "Open websocket clients",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		c.CommandsRecorded,
		c.HistoryReplays,
		c.Operations,
		c.OperationDuration,
		c.RoomsActive,
		c.ClientsConnected,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Recorded counts a new undoable command.
func (c *Collector) Recorded(kind history.Kind) {
	c.CommandsRecorded.WithLabelValues(string(kind)).Inc()
}

// Replayed counts an undo or redo by outcome.
func (c *Collector) Replayed(direction string, kind history.Kind, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	c.HistoryReplays.WithLabelValues(direction, string(kind), result).Inc()
}

// ObserveOperation counts one session operation and its duration.
func (c *Collector) ObserveOperation(opType string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Operations.WithLabelValues(opType, status).Inc()
	c.OperationDuration.WithLabelValues(opType).Observe(d.Seconds())
}

func (c *Collector) RoomOpened()   { c.RoomsActive.Inc() }
func (c *Collector) RoomClosed()   { c.RoomsActive.Dec() }
func (c *Collector) ClientJoined() { c.ClientsConnected.Inc() }
func (c *Collector) ClientLeft()   { c.ClientsConnected.Dec() }

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot be hijacked")
	}
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Middleware records request counts and latencies labelled by route
// template rather than raw path.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
