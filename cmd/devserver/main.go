// Command devserver runs the in-memory CircularNest API for local work
// against the client.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/CircularNest/internal/config"
	"github.com/dharsanguruparan/CircularNest/internal/devserver"
	"github.com/dharsanguruparan/CircularNest/internal/signing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.AdminEmail == "" {
		log.Printf("CIRCULARNEST_ADMIN_EMAIL not set, no admin account will exist")
	}
	srv, err := devserver.New(cfg, devserver.NewMemoryStore(), signing.NewSigner(cfg.SigningSecret))
	if err != nil {
		log.Fatalf("init server: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Serve(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
