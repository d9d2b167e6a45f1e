package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/config"
	"github.com/christophergentle/ratingchart-bsky/internal/metrics"
	"github.com/christophergentle/ratingchart-bsky/internal/pipeline"
	"github.com/christophergentle/ratingchart-bsky/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, closeStore, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer closeStore()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(cfg, store, metrics.NewManager()).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Chart server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down chart server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shut down cleanly: %v", err)
	}
}
