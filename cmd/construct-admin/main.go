package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/minus-twelve/construct"
	"github.com/minus-twelve/construct/internal/logging"
)

func main() {
	configPath := flag.String("config", construct.DefaultConfigPath, "path to the YAML configuration")
	flag.Parse()

	cfg, err := construct.LoadConfig(*configPath)
	if err != nil {
		logging.New(os.Stderr, "error").Error("load configuration", "error", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.Log.Level)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	store, metrics, err := construct.CreateStore(cfg.Memory, reg)
	if err != nil {
		log.Error("create session store", "error", err)
		os.Exit(1)
	}

	dir, err := construct.CreateDirectory(ctx, cfg.Directory)
	if err != nil {
		log.Error("create permission directory", "error", err)
		os.Exit(1)
	}
	if c, ok := dir.(io.Closer); ok {
		defer c.Close()
	}

	manager := construct.NewManager(store, dir, cfg.Security,
		construct.WithLogger(log),
		construct.WithMetrics(metrics),
	)
	defer manager.Close()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           construct.NewRouter(manager, log, reg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("admin server starting",
			"addr", cfg.Server.Addr,
			"max_sessions", store.MaxSessions(),
			"max_session_duration", store.MaxSessionDuration(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
}
