// Command mirror-worker consumes circular:mirror tasks and archives each
// approved circular to object storage.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/config"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/database"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/ledger"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/s3storage"
	"github.com/dharsanguruparan/CircularNest/internal/mirror/worker"
	"github.com/dharsanguruparan/CircularNest/internal/tokenstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	store, err := s3storage.New(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		log.Fatalf("ensure buckets: %v", err)
	}

	// Approved circulars download without a token; a stored one is used when
	// present so the worker can share a session with the CLI.
	tokenPath := cfg.TokenFile
	if tokenPath == "" {
		tokenPath = tokenstore.DefaultPath()
	}
	client, err := apiclient.New(cfg.APIBaseURL, tokenstore.NewFileStore(tokenPath), apiclient.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		log.Fatalf("init api client: %v", err)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.MirrorWorkers,
	})
	processor := worker.NewProcessor(ledger.New(pool), store, client)

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Printf("mirror worker started against %s with %d workers", cfg.APIBaseURL, cfg.MirrorWorkers)
	if err := server.Run(processor.Handler()); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
