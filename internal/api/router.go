// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farmgate/farmgate/internal/auth"
	"github.com/farmgate/farmgate/internal/authz"
	"github.com/farmgate/farmgate/internal/middleware"
	websockets "github.com/farmgate/farmgate/internal/websocket"
)

// Endpoint-specific rate limits. Auth endpoints are strict to slow down
// credential stuffing; the default limit comes from configuration.
var rateLimitAuth = struct {
	requests int
	window   time.Duration
}{requests: 5, window: time.Minute}

// Router builds the full chi routing tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(httprate.Limit(
		s.cfg.Security.RateLimitReqs,
		s.cfg.Security.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	))

	authenticate := auth.Middleware(s.jwt, s.unauthorized)
	authorize := authz.Middleware(s.enforcer, s.forbidden)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Get("/health", s.handleHealth)
		r.Get("/public/quality-prices", s.handlePublicQualityPrices)

		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(rateLimitAuth.requests, rateLimitAuth.window,
				httprate.WithKeyFuncs(httprate.KeyByIP)))
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
			r.Post("/auth/refresh", s.handleRefresh)
		})

		// Authenticated endpoints.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/account/me", s.handleGetMe)
			r.Put("/account/me", s.handleUpdateMe)
			r.Post("/account/change-password", s.handleChangePassword)

			r.Get("/users/{id}", s.handleGetUser)

			r.Get("/listings", s.handleSearchListings)
			r.Get("/listings/{id}", s.handleGetListing)

			r.Get("/messages/{peer}", s.handleListConversation)
			r.Delete("/messages/{peer}", s.handleDeleteConversation)
			r.Post("/messages/{peer}/image", s.handlePostImageMessage)

			r.Get("/quality/ping", s.handleQualityPing)
			r.Post("/quality/analyze", s.handleQualityAnalyze)

			r.Post("/assistant/chat", s.handleAssistantChat)

			// Role-gated endpoints.
			r.Group(func(r chi.Router) {
				r.Use(authorize)

				r.Post("/listings", s.handleCreateListing)
				r.Get("/my/listings", s.handleMyListings)
				r.Put("/listings/{id}", s.handleUpdateListing)
				r.Delete("/listings/{id}", s.handleDeleteListing)
				r.Post("/listings/{id}/sold", s.handleMarkSold)
				r.Post("/listings/{id}/feedback", s.handlePostFeedback)

				r.Get("/admin/market-prices", s.handleGetMarketPrices)
				r.Put("/admin/market-prices", s.handlePutMarketPrices)
				r.Get("/admin/analytics/summary", s.handleAnalyticsSummary)
			})
		})
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/ws", websockets.Handler(s.hub, s.relay, s.jwt))

	// Static serving of stored uploads.
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploads.Dir())))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	return r
}
