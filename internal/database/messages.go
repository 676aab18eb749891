// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ostafen/clover/v2/document"
	"github.com/ostafen/clover/v2/query"

	"github.com/farmgate/farmgate/internal/models"
)

// ErrEmptyMessage indicates a message with neither body nor image reference.
var ErrEmptyMessage = errors.New("message requires a body or an image")

// CreateMessage persists a new chat message. At least one of body and
// imageRef must be set. The stored message is immutable afterwards.
func (s *Store) CreateMessage(ctx context.Context, from, to, body, imageRef string) (*models.Message, error) {
	if from == "" || to == "" {
		return nil, errors.New("message requires sender and recipient")
	}
	if body == "" && imageRef == "" {
		return nil, ErrEmptyMessage
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Body:      body,
		ImageRef:  imageRef,
		CreatedAt: time.Now().UTC(),
	}

	doc := document.NewDocument()
	doc.Set("id", msg.ID)
	doc.Set("from", msg.From)
	doc.Set("to", msg.To)
	if msg.Body != "" {
		doc.Set("body", msg.Body)
	}
	if msg.ImageRef != "" {
		doc.Set("image", msg.ImageRef)
	}
	doc.Set("createdAt", msg.CreatedAt.UnixMilli())

	if _, err := s.db.InsertOne(colMessages, doc); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}
	return msg, nil
}

// conversationCriteria matches messages in either direction between a and b.
func conversationCriteria(a, b string) query.Criteria {
	return query.Field("from").Eq(a).And(query.Field("to").Eq(b)).
		Or(query.Field("from").Eq(b).And(query.Field("to").Eq(a)))
}

// ListConversation returns the full message history between two users,
// oldest first.
func (s *Store) ListConversation(ctx context.Context, a, b string) ([]*models.Message, error) {
	docs, err := s.db.FindAll(query.NewQuery(colMessages).
		Where(conversationCriteria(a, b)).
		Sort(query.SortOption{Field: "createdAt", Direction: 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}

	msgs := make([]*models.Message, 0, len(docs))
	for _, doc := range docs {
		msgs = append(msgs, messageFromDocument(doc))
	}
	return msgs, nil
}

// DeleteConversation removes all messages between two users and returns the
// number deleted.
func (s *Store) DeleteConversation(ctx context.Context, a, b string) (int, error) {
	q := query.NewQuery(colMessages).Where(conversationCriteria(a, b))

	count, err := s.db.Count(q)
	if err != nil {
		return 0, fmt.Errorf("failed to count conversation: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.db.Delete(q); err != nil {
		return 0, fmt.Errorf("failed to delete conversation: %w", err)
	}
	return count, nil
}

func messageFromDocument(doc *document.Document) *models.Message {
	return &models.Message{
		ID:        docString(doc, "id"),
		From:      docString(doc, "from"),
		To:        docString(doc, "to"),
		Body:      docString(doc, "body"),
		ImageRef:  docString(doc, "image"),
		CreatedAt: docTime(doc, "createdAt"),
	}
}
