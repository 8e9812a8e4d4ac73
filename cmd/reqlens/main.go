// File path: cmd/reqlens/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nicodishanthj/reqlens/internal/agent"
	"github.com/nicodishanthj/reqlens/internal/api"
	"github.com/nicodishanthj/reqlens/internal/common"
	"github.com/nicodishanthj/reqlens/internal/embedding"
	"github.com/nicodishanthj/reqlens/internal/ingest"
	"github.com/nicodishanthj/reqlens/internal/kb"
	"github.com/nicodishanthj/reqlens/internal/vector"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("reqlens: .env file not loaded", "error", err)
	} else {
		logger.Info("reqlens: environment loaded from .env")
	}

	addr := flag.String("addr", ":8080", "listen address")
	collection := flag.String("collection", "", "vector collection name (overrides QDRANT_COLLECTION)")
	flag.Parse()

	logger.Info("reqlens: startup initiated", "addr", *addr)

	store, err := vector.NewFromEnv(ctx)
	if err != nil {
		logger.Error("reqlens: vector store configuration failed", "error", err)
		fmt.Println("vector store error:", err)
		os.Exit(1)
	}
	defer store.Close()
	if trimmed := strings.TrimSpace(*collection); trimmed != "" {
		store.SetCollection(trimmed)
	}
	if store.Available() {
		logger.Info("reqlens: qdrant available", "collection", store.Collection())
	} else {
		logger.Warn("reqlens: qdrant unreachable", "collection", store.Collection())
	}

	embedder := embedding.NewEmbedder(ctx)
	logger.Info("reqlens: embedder ready", "embedder", embedder.Name(), "dimensions", embedder.Dimensions())

	orchestrator := agent.NewOrchestratorFromEnv(ctx)

	service, err := ingest.NewService(kb.NewExtractor(nil), embedder, store, orchestrator)
	if err != nil {
		logger.Error("reqlens: service construction failed", "error", err)
		fmt.Println("service error:", err)
		os.Exit(1)
	}

	server, err := api.NewServer(service)
	if err != nil {
		logger.Error("reqlens: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reqlens: listening", "addr", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("reqlens: shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("reqlens: server failed", "error", err)
			fmt.Println("server error:", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("reqlens: graceful shutdown failed", "error", err)
	}
	logger.Info("reqlens: shutdown complete")
}
