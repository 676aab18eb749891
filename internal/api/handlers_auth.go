// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package api

import (
	"errors"
	"net/http"

	"github.com/farmgate/farmgate/internal/database"
	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/models"
)

// authResponse is the payload for register, login, and refresh.
type authResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req registerRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("password hashing failed")
		rw.InternalError("failed to create account")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Name, req.Email, hash, req.Role)
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			rw.Conflict("email already registered")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("user creation failed")
		rw.DatabaseError()
		return
	}

	pair, err := s.jwt.GeneratePair(user.ID, user.Role)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("token generation failed")
		rw.InternalError("failed to create session")
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Str("role", user.Role).Msg("account registered")
	rw.Created(authResponse{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req loginRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			rw.Unauthorized("invalid credentials")
			return
		}
		rw.DatabaseError()
		return
	}
	if user.Status == models.UserBlocked {
		rw.Forbidden("account is blocked")
		return
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		rw.Unauthorized("invalid credentials")
		return
	}

	pair, err := s.jwt.GeneratePair(user.ID, user.Role)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("token generation failed")
		rw.InternalError("failed to create session")
		return
	}

	logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Msg("user logged in")
	rw.Success(authResponse{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req refreshRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	claims, err := s.jwt.ValidateRefresh(req.RefreshToken)
	if err != nil {
		rw.Unauthorized("invalid refresh token")
		return
	}

	// Re-read the account so a role change or block takes effect on refresh.
	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		rw.Unauthorized("account no longer exists")
		return
	}
	if user.Status == models.UserBlocked {
		rw.Forbidden("account is blocked")
		return
	}

	pair, err := s.jwt.GeneratePair(user.ID, user.Role)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("token generation failed")
		rw.InternalError("failed to refresh session")
		return
	}

	rw.Success(authResponse{User: user, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}
