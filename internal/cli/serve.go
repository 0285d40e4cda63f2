// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Proxy server command handler.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thomasmphan/inference-proxy/internal/config"
	"github.com/thomasmphan/inference-proxy/internal/pricing"
	"github.com/thomasmphan/inference-proxy/internal/server"
	"github.com/thomasmphan/inference-proxy/internal/telemetry"
)

// shutdownGrace bounds how long in-flight streams may run after a
// termination signal.
const shutdownGrace = 10 * time.Second

// HandleServeCommand handles "inferproxy serve".
func HandleServeCommand(args Args) error {
	cfg := config.Global()
	if args.Model != "" {
		if _, ok := pricing.NewTable().Resolve(args.Model); !ok {
			return fmt.Errorf("unknown model alias: %s", args.Model)
		}
		cfg.DefaultModel = args.Model
	}

	if cfg.APIKey() == "" {
		return fmt.Errorf("%s is not set; the proxy cannot reach the upstream API", cfg.Upstream.APIKeyEnv)
	}

	srv := server.NewServer(cfg)

	if cfg.Telemetry.Enabled {
		dbPath, err := cfg.TelemetryDBPath()
		if err != nil {
			return fmt.Errorf("resolving telemetry path: %w", err)
		}
		store, err := telemetry.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening telemetry store: %w", err)
		}
		defer store.Close()
		srv.WithTelemetry(store)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("SHUTDOWN_SIGNAL | grace=%s", shutdownGrace)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// HandleHashTokenCommand handles "inferproxy hash-token TOKEN".
func HandleHashTokenCommand(args Args) error {
	token := args.Token
	if token == "" {
		return fmt.Errorf("usage: inferproxy hash-token TOKEN")
	}
	hash, err := server.HashToken(token)
	if err != nil {
		return fmt.Errorf("hashing token: %w", err)
	}
	fmt.Println(hash)
	fmt.Fprintln(os.Stderr, "Set this as server.auth_token_hash in config.toml.")
	return nil
}
