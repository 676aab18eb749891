// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/relay"
)

func (s *Server) handleListConversation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	peer := chi.URLParam(r, "peer")
	messages, err := s.store.ListConversation(r.Context(), id.UserID, peer)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("conversation query failed")
		rw.DatabaseError()
		return
	}
	rw.Success(messages)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	peer := chi.URLParam(r, "peer")
	deleted, err := s.store.DeleteConversation(r.Context(), id.UserID, peer)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("conversation delete failed")
		rw.DatabaseError()
		return
	}
	rw.Success(map[string]int{"deleted": deleted})
}

// handlePostImageMessage stores an image and relays it as a chat message. The
// recipient gets the same live "message:new" event a text message produces.
func (s *Server) handlePostImageMessage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(s.cfg.Uploads.MaxBytes + maxJSONBody); err != nil {
		rw.BadRequest("invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		rw.BadRequest("image file is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := readMultipartFile(header)
	if err != nil {
		rw.BadRequest("unreadable image upload")
		return
	}

	peer := chi.URLParam(r, "peer")
	msg, err := s.relay.PostImageMessage(r.Context(), id.UserID, peer, data, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, relay.ErrInvalidMessage) {
			rw.BadRequest("invalid image message")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("image message failed")
		rw.DatabaseError()
		return
	}
	rw.Created(msg)
}
