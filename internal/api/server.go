// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/farmgate/farmgate/internal/auth"
	"github.com/farmgate/farmgate/internal/authz"
	"github.com/farmgate/farmgate/internal/config"
	"github.com/farmgate/farmgate/internal/database"
	"github.com/farmgate/farmgate/internal/ml"
	"github.com/farmgate/farmgate/internal/presence"
	"github.com/farmgate/farmgate/internal/relay"
	"github.com/farmgate/farmgate/internal/uploads"
	"github.com/farmgate/farmgate/internal/websocket"
)

// Server bundles the collaborators every handler needs.
type Server struct {
	cfg      *config.Config
	store    *database.Store
	jwt      *auth.JWTManager
	hasher   *auth.Hasher
	enforcer *authz.Enforcer
	hub      *websocket.Hub
	presence *presence.Tracker
	relay    *relay.Relay
	ml       *ml.Client
	uploads  *uploads.Store
	validate *validator.Validate
}

// Deps are the constructor inputs for a Server.
type Deps struct {
	Config   *config.Config
	Store    *database.Store
	JWT      *auth.JWTManager
	Hasher   *auth.Hasher
	Enforcer *authz.Enforcer
	Hub      *websocket.Hub
	Presence *presence.Tracker
	Relay    *relay.Relay
	ML       *ml.Client
	Uploads  *uploads.Store
}

// NewServer wires the handler set.
func NewServer(deps Deps) *Server {
	return &Server{
		cfg:      deps.Config,
		store:    deps.Store,
		jwt:      deps.JWT,
		hasher:   deps.Hasher,
		enforcer: deps.Enforcer,
		hub:      deps.Hub,
		presence: deps.Presence,
		relay:    deps.Relay,
		ml:       deps.ML,
		uploads:  deps.Uploads,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// unauthorized is the shared 401 responder handed to the auth middleware.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Unauthorized("authentication required")
}

// forbidden is the shared 403 responder handed to the authz middleware.
func (s *Server) forbidden(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Forbidden("insufficient permissions")
}
