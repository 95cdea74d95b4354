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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/kindredapp/companion/backend/internal/auth"
	"github.com/kindredapp/companion/backend/internal/config"
	"github.com/kindredapp/companion/backend/internal/handler"
	"github.com/kindredapp/companion/backend/internal/service/ai"
	companionservice "github.com/kindredapp/companion/backend/internal/service/companion"
	"github.com/kindredapp/companion/backend/internal/service/gate"
	"github.com/kindredapp/companion/backend/internal/service/prompt"
	"github.com/kindredapp/companion/backend/internal/service/ratelimit"
	"github.com/kindredapp/companion/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Record store: SQLite when configured, otherwise in-memory with demo
	// seed data so the endpoint is usable out of the box.
	var recordStore store.Store
	if cfg.Store.DBPath != "" {
		sqliteStore, err := store.NewSQLiteStore(cfg.Store.DBPath)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer sqliteStore.Close()
		recordStore = sqliteStore
		log.Printf("using SQLite store at %s", cfg.Store.DBPath)
	} else {
		memStore := store.NewMemoryStore()
		token := store.SeedDemo(memStore)
		recordStore = memStore
		log.Println("COMPANION_DB not set, using in-memory store with demo data")
		log.Printf("demo session token: %s", token)
	}

	// Rate limiter: shared Redis window when configured, else in-process.
	var limiter ratelimit.Limiter
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		log.Printf("rate limiter backed by Redis at %s", cfg.Redis.Addr)
	} else {
		limiter = ratelimit.NewSlidingWindow(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}

	if !cfg.AI.Enabled() {
		log.Fatal("GEMINI_API_KEY is not set in environment variables")
	}
	generator, err := ai.NewGemini(ctx, cfg.AI, prompt.SystemInstruction)
	if err != nil {
		log.Fatalf("failed to initialize Gemini client: %v", err)
	}
	log.Printf("Gemini client initialized (model=%s)", cfg.AI.Model)

	companionSvc := companionservice.NewService(
		gate.New(recordStore, cfg.Gate.InactivityThreshold),
		limiter,
		generator,
	)

	router := handler.NewRouter(auth.NewSessionAuthenticator(recordStore), companionSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Companion backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
