// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package relay implements chat message delivery: validate, persist, then
// broadcast to both participants' delivery groups. Persistence is the source
// of truth; a message that cannot be stored is never broadcast.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farmgate/farmgate/internal/database"
	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/metrics"
	"github.com/farmgate/farmgate/internal/models"
	"github.com/farmgate/farmgate/internal/uploads"
)

// EventMessageNew is the live event name for delivered messages.
const EventMessageNew = "message:new"

// maxBodyBytes bounds a text message body.
const maxBodyBytes = 4096

// ErrInvalidMessage indicates a send that failed validation (missing
// participant, empty content, or oversized body). Invalid sends are never
// persisted or broadcast.
var ErrInvalidMessage = errors.New("invalid message")

// Emitter delivers a live event to every open connection of one user.
// Delivery is best effort; users with no open connections miss the event and
// read it from history instead.
type Emitter interface {
	EmitToUser(userID, event string, payload interface{})
}

// Store is the persistence surface the relay needs.
type Store interface {
	CreateMessage(ctx context.Context, from, to, body, imageRef string) (*models.Message, error)
}

// Relay coordinates message persistence and live fan-out.
type Relay struct {
	store   Store
	emitter Emitter
	uploads *uploads.Store
}

// New creates a relay. The uploads store may be nil when image messages are
// disabled.
func New(store Store, emitter Emitter, uploadStore *uploads.Store) *Relay {
	return &Relay{store: store, emitter: emitter, uploads: uploadStore}
}

// SendMessage validates, persists, and broadcasts a text message. The
// message reaches the recipient's delivery group and the sender's own group
// (so the sender's other devices stay in sync); a self-chat delivers exactly
// once.
func (r *Relay) SendMessage(ctx context.Context, from, to, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if err := validate(from, to, body); err != nil {
		metrics.WSMessagesRelayed.WithLabelValues("invalid").Inc()
		return nil, err
	}

	msg, err := r.store.CreateMessage(ctx, from, to, body, "")
	if err != nil {
		metrics.WSMessagesRelayed.WithLabelValues("persist_error").Inc()
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	r.broadcast(ctx, msg)
	return msg, nil
}

// PostImageMessage stores an uploaded image, persists the referencing
// message, and broadcasts it like a text message.
func (r *Relay) PostImageMessage(ctx context.Context, from, to string, image []byte, contentType string) (*models.Message, error) {
	if from == "" || to == "" {
		metrics.WSMessagesRelayed.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: missing participant", ErrInvalidMessage)
	}
	if r.uploads == nil {
		return nil, errors.New("image messages are not enabled")
	}

	ref, err := r.uploads.Save(image, contentType, "message")
	if err != nil {
		metrics.WSMessagesRelayed.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	msg, err := r.store.CreateMessage(ctx, from, to, "", ref)
	if err != nil {
		metrics.WSMessagesRelayed.WithLabelValues("persist_error").Inc()
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	r.broadcast(ctx, msg)
	return msg, nil
}

// broadcast emits the stored message to the distinct set of participant
// delivery groups.
func (r *Relay) broadcast(ctx context.Context, msg *models.Message) {
	r.emitter.EmitToUser(msg.To, EventMessageNew, msg)
	if msg.From != msg.To {
		r.emitter.EmitToUser(msg.From, EventMessageNew, msg)
	}
	metrics.WSMessagesRelayed.WithLabelValues("delivered").Inc()

	logging.Ctx(ctx).Debug().
		Str("message_id", msg.ID).
		Str("from", msg.From).
		Str("to", msg.To).
		Msg("message relayed")
}

func validate(from, to, body string) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: missing participant", ErrInvalidMessage)
	}
	if body == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("%w: body too large", ErrInvalidMessage)
	}
	return nil
}

// Ensure the concrete store satisfies the narrow interface.
var _ Store = (*database.Store)(nil)
