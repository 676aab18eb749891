// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package api

import (
	"net/http"
	"time"

	"github.com/farmgate/farmgate/internal/assistant"
	"github.com/farmgate/farmgate/internal/auth"
)

var serverStart = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(serverStart).Seconds()),
	})
}

// handleAssistantChat answers with a canned in-app help reply. The caller's
// role from the token wins over the one in the body.
func (s *Server) handleAssistantChat(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req assistantRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	role := req.Role
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		role = id.Role
	}

	rw.Success(map[string]string{"reply": assistant.Reply(req.Message, role)})
}
