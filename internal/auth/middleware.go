// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/farmgate/farmgate/internal/logging"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Role   string
}

// WithIdentity attaches an identity to the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// TokenFromRequest pulls the bearer token from the Authorization header or,
// for WebSocket upgrades where browsers cannot set headers, from the "token"
// query parameter.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Middleware returns a chi middleware that requires a valid access token and
// attaches the caller's identity to the request context. Responses for
// failures are delegated so the API package controls the error envelope.
func Middleware(jwt *JWTManager, unauthorized http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				unauthorized(w, r)
				return
			}

			claims, err := jwt.ValidateAccess(token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected access token")
				unauthorized(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), &Identity{UserID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
