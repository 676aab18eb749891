// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/farmgate/farmgate/internal/auth"
	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS layer in front of the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler returns the /ws upgrade handler. Browsers cannot set headers on
// WebSocket upgrades, so the access token is accepted from the "token" query
// parameter as well as the Authorization header.
func Handler(hub *Hub, r *relay.Relay, jwt *auth.JWTManager) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token := auth.TokenFromRequest(req)
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		claims, err := jwt.ValidateAccess(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			logging.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := NewClient(hub, r, conn, claims.UserID)
		hub.Register <- client
		client.Start()
	}
}
