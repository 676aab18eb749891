// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package main is the entry point for the Farmgate server.
//
// Farmgate is a produce marketplace connecting farmers and buyers. Farmers
// publish crop listings with photos, buyers search and negotiate over live
// chat, and an admin maintains the daily market price table. An external
// image classifier grades produce quality, and the grade feeds a suggested
// price for each listing.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file via Koanf v2
//  2. Database: embedded CloverDB document store
//  3. Upload store: image files served under /uploads/
//  4. Inference client: circuit-breaker protected quality classifier
//  5. Auth: JWT token manager and Casbin role enforcer
//  6. WebSocket hub: live chat and presence
//  7. HTTP server: REST API, metrics, and websocket endpoint
//
// The websocket hub and the HTTP server run under a suture supervisor tree,
// so a hub crash restarts the hub without restarting the API.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, then config.yaml (or CONFIG_PATH),
// then built-in defaults. Required settings:
//
//   - JWT_SECRET: 32+ character access-token secret
//   - JWT_REFRESH_SECRET: distinct refresh-token secret
//   - ML_SERVICE_URL: base URL of the quality-inference service
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, waits up to 10s for in-flight requests, closes
// websocket clients, and closes the database.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/farmgate/farmgate/internal/api"
	"github.com/farmgate/farmgate/internal/auth"
	"github.com/farmgate/farmgate/internal/authz"
	"github.com/farmgate/farmgate/internal/config"
	"github.com/farmgate/farmgate/internal/database"
	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/ml"
	"github.com/farmgate/farmgate/internal/presence"
	"github.com/farmgate/farmgate/internal/relay"
	"github.com/farmgate/farmgate/internal/supervisor"
	"github.com/farmgate/farmgate/internal/supervisor/services"
	"github.com/farmgate/farmgate/internal/uploads"
	"github.com/farmgate/farmgate/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("ml_url", cfg.ML.URL).
		Str("uploads_dir", cfg.Uploads.Dir).
		Msg("Configuration loaded")

	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	uploadStore, err := uploads.NewStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize upload store")
	}

	mlClient := ml.NewClient(&cfg.ML)
	if err := mlClient.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Inference service unreachable at startup (will retry per request)")
	} else {
		logging.Info().Msg("Connected to inference service")
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}
	enforcer, err := authz.NewEnforcer("")
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}

	tracker := presence.NewTracker()
	hub := websocket.NewHub(tracker)
	messageRelay := relay.New(store, hub, uploadStore)

	server := api.NewServer(api.Deps{
		Config:   cfg,
		Store:    store,
		JWT:      jwtManager,
		Hasher:   auth.NewHasher(cfg.Security.BcryptCost),
		Enforcer: enforcer,
		Hub:      hub,
		Presence: tracker,
		Relay:    messageRelay,
		ML:       mlClient,
		Uploads:  uploadStore,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logging.Info().Str("addr", httpServer.Addr).Msg("Farmgate server starting")
	errCh := tree.ServeBackground(ctx)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the supervisor to finish draining.
	if err := <-errCh; err != nil && err != context.Canceled {
		logging.Error().Err(err).Msg("Supervisor shutdown error")
	}
	logging.Info().Msg("Farmgate server stopped")
}
