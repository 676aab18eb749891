// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmgate/farmgate/internal/auth"
	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/models"
)

// identity pulls the authenticated caller or writes a 401.
func (s *Server) identity(rw *ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return nil, false
	}
	return id, true
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	user, err := s.store.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		rw.NotFound("account not found")
		return
	}
	rw.Success(user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	fields := make(map[string]string)
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Locale != nil {
		fields["locale"] = *req.Locale
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}

	user, err := s.store.UpdateUserProfile(r.Context(), id.UserID, fields)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("profile update failed")
		rw.DatabaseError()
		return
	}
	rw.Success(user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	user, err := s.store.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		rw.NotFound("account not found")
		return
	}
	if err := s.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		rw.BadRequest("current password is incorrect")
		return
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("password hashing failed")
		rw.InternalError("failed to change password")
		return
	}
	if err := s.store.UpdateUserPassword(r.Context(), id.UserID, hash); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("password update failed")
		rw.DatabaseError()
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", id.UserID).Msg("password changed")
	rw.Success(map[string]bool{"changed": true})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, ok := s.identity(rw, r); !ok {
		return
	}

	userID := chi.URLParam(r, "id")
	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		rw.NotFound("user not found")
		return
	}

	// Presence is point-in-time and best effort.
	rw.Success(models.PublicProfile{
		ID:     user.ID,
		Name:   user.Name,
		Role:   user.Role,
		Online: s.presence.IsOnline(user.ID),
	})
}
