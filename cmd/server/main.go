package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/texsketch/texsketch/backend-go/internal/config"
	"github.com/texsketch/texsketch/backend-go/internal/engine"
	"github.com/texsketch/texsketch/backend-go/internal/mathtext"
	"github.com/texsketch/texsketch/backend-go/internal/metrics"
	mw "github.com/texsketch/texsketch/backend-go/internal/middleware"
	"github.com/texsketch/texsketch/backend-go/internal/rooms"
	"github.com/texsketch/texsketch/backend-go/internal/session"
)

const roomIdleTTL = 30 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	renderer, err := mathtext.NewRendererFromFile(cfg.FontFile)
	if err != nil {
		log.Fatal("load font", zap.Error(err))
	}

	collector := metrics.NewCollector("texsketch")

	// New rooms pick up the latest editor limits.
	var current atomic.Pointer[config.Config]
	current.Store(cfg)
	if cfg.ConfigFile != "" {
		watcher, err := config.NewWatcher(cfg, log.Named("config"))
		if err != nil {
			log.Fatal("watch config", zap.Error(err))
		}
		defer watcher.Close()
		watcher.OnChange(func(next *config.Config) {
			current.Store(next)
			log.Info("editor limits reloaded", zap.Int("maxHistory", next.MaxHistory))
		})
	}

	editorLog := log.Named("editor")
	hub := session.NewHub(session.Options{
		NewEditor: func() *engine.Editor {
			opts := current.Load().EditorOptions()
			opts.Renderer = renderer
			opts.Logger = editorLog
			opts.Observer = collector
			return engine.New(opts)
		},
		IdleTTL: roomIdleTTL,
		Logger:  log.Named("session"),
		Metrics: collector,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	origins := cfg.Origins()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery(log))
	r.Use(mw.RequestID)
	r.Use(mw.Logger(log.Named("http")))
	r.Use(collector.Middleware)
	r.Use(mw.CORS(origins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.Handle("/metrics", collector.Handler()).Methods("GET")

	rooms.NewHandler(hub, renderer, log.Named("rooms")).Register(r)

	// WebSocket endpoint
	r.HandleFunc("/ws/room/{roomId}", hub.ServeRoom(origins))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
