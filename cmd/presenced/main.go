package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/burrowhq/presence/internal/config"
	"github.com/burrowhq/presence/internal/embedding"
	"github.com/burrowhq/presence/internal/geo"
	"github.com/burrowhq/presence/internal/hub"
	"github.com/burrowhq/presence/internal/icon"
	"github.com/burrowhq/presence/internal/presence"
	"github.com/burrowhq/presence/internal/server"
	"github.com/burrowhq/presence/pkg/directory"
)

func main() {
	configPath := os.Getenv("PRESENCE_CONFIG")
	if configPath == "" {
		configPath = "presence.yml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid redis_url: %v\n", err)
		os.Exit(1)
	}

	schema, err := directory.NewSchema(cfg.Tenant, cfg.KeyStyle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store := directory.NewStore(redisOpts, schema)
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Redis not accessible: %v\n", err)
		os.Exit(1)
	}

	boundary, err := geo.LoadBoundary(cfg.BoundaryFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Spatial index over the tenant's status keys. The icon index is owned
	// by the candidate loading process (presencectl load-icons).
	spatial := geo.NewQuery(store.Redis(), schema)
	if err := spatial.EnsureIndex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The embedding model loads lazily on the first non-empty status
	// message; a load failure degrades icon resolution to the default icon
	// instead of failing the daemon.
	vectorFile := cfg.VectorFile
	icons := icon.NewResolver(func() (embedding.Embedder, error) {
		return embedding.Default(vectorFile)
	}, icon.NewRedisIndex(store.Redis(), schema))

	broadcastHub := hub.New(redisOpts, schema)
	defer broadcastHub.Close()

	svc := presence.NewService(store, icons, spatial, broadcastHub, boundary)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(svc),
	}

	log.Printf("[Presenced] Serving tenant '%s' on %s (boundary: %s)",
		cfg.Tenant, cfg.ListenAddr, boundary.Name)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Printf("[Presenced] Received signal %v, shutting down gracefully...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Presenced] Shutdown error: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	log.Printf("[Presenced] Stopped")
}
