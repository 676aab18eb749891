// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package authz

import (
	"net/http"

	"github.com/farmgate/farmgate/internal/auth"
	"github.com/farmgate/farmgate/internal/logging"
)

// Middleware enforces the role policy against the request path and method.
// It must run after the authentication middleware; requests without an
// identity are rejected. Failure responses are delegated so the API package
// controls the error envelope.
func Middleware(enforcer *Enforcer, forbidden http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				forbidden(w, r)
				return
			}

			allowed, err := enforcer.Allowed(id.Role, r.URL.Path, r.Method)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("authorization check failed")
				forbidden(w, r)
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Warn().
					Str("role", id.Role).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("request denied by policy")
				forbidden(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
