// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ostafen/clover/v2/document"
	"github.com/ostafen/clover/v2/query"

	"github.com/farmgate/farmgate/internal/models"
)

var (
	// ErrUserNotFound indicates no user matched the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates a registration with an already-used email.
	ErrEmailTaken = errors.New("email already registered")
)

// CreateUser persists a new account. Emails are unique (case-insensitive).
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	exists, err := s.db.Exists(query.NewQuery(colUsers).Where(query.Field("email").Eq(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Locale:       "en",
		Status:       models.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.db.InsertOne(colUsers, userToDocument(user)); err != nil {
		return nil, fmt.Errorf("failed to persist user: %w", err)
	}
	return user, nil
}

// GetUserByEmail looks up an account by its (case-insensitive) email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	doc, err := s.db.FindFirst(query.NewQuery(colUsers).Where(query.Field("email").Eq(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	if doc == nil {
		return nil, ErrUserNotFound
	}
	return userFromDocument(doc), nil
}

// GetUserByID looks up an account by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := s.db.FindFirst(byID(colUsers, id))
	if err != nil {
		return nil, fmt.Errorf("failed to query user by id: %w", err)
	}
	if doc == nil {
		return nil, ErrUserNotFound
	}
	return userFromDocument(doc), nil
}

// UpdateUserProfile applies the allowed profile fields and returns the
// updated user. Empty map is a no-op read.
func (s *Store) UpdateUserProfile(ctx context.Context, id string, fields map[string]string) (*models.User, error) {
	allowed := map[string]bool{"name": true, "locale": true, "phone": true, "location": true}

	updates := make(map[string]interface{})
	for k, v := range fields {
		if allowed[k] {
			updates[k] = v
		}
	}
	if len(updates) > 0 {
		updates["updatedAt"] = time.Now().UTC().UnixMilli()
		if err := s.db.Update(byID(colUsers, id), updates); err != nil {
			return nil, fmt.Errorf("failed to update user profile: %w", err)
		}
	}
	return s.GetUserByID(ctx, id)
}

// UpdateUserPassword replaces the stored password hash.
func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	err := s.db.Update(byID(colUsers, id), map[string]interface{}{
		"passwordHash": passwordHash,
		"updatedAt":    time.Now().UTC().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// SetUserRating stores the denormalized feedback aggregate on the user.
func (s *Store) SetUserRating(ctx context.Context, id string, average float64, count int) error {
	err := s.db.Update(byID(colUsers, id), map[string]interface{}{
		"ratingAverage": average,
		"ratingCount":   count,
		"updatedAt":     time.Now().UTC().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to update rating aggregate: %w", err)
	}
	return nil
}

// CountUsers returns the total number of accounts, optionally filtered by
// role (empty role counts everyone).
func (s *Store) CountUsers(ctx context.Context, role string) (int, error) {
	q := query.NewQuery(colUsers)
	if role != "" {
		q = q.Where(query.Field("role").Eq(role))
	}
	count, err := s.db.Count(q)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func userToDocument(u *models.User) *document.Document {
	doc := document.NewDocument()
	doc.Set("id", u.ID)
	doc.Set("name", u.Name)
	doc.Set("email", u.Email)
	doc.Set("passwordHash", u.PasswordHash)
	doc.Set("role", u.Role)
	doc.Set("locale", u.Locale)
	doc.Set("phone", u.Phone)
	doc.Set("location", u.Location)
	doc.Set("ratingAverage", u.RatingAverage)
	doc.Set("ratingCount", u.RatingCount)
	doc.Set("status", u.Status)
	doc.Set("createdAt", u.CreatedAt.UnixMilli())
	doc.Set("updatedAt", u.UpdatedAt.UnixMilli())
	return doc
}

func userFromDocument(doc *document.Document) *models.User {
	return &models.User{
		ID:            docString(doc, "id"),
		Name:          docString(doc, "name"),
		Email:         docString(doc, "email"),
		PasswordHash:  docString(doc, "passwordHash"),
		Role:          docString(doc, "role"),
		Locale:        docString(doc, "locale"),
		Phone:         docString(doc, "phone"),
		Location:      docString(doc, "location"),
		RatingAverage: docFloat(doc, "ratingAverage"),
		RatingCount:   docInt(doc, "ratingCount"),
		Status:        docString(doc, "status"),
		CreatedAt:     docTime(doc, "createdAt"),
		UpdatedAt:     docTime(doc, "updatedAt"),
	}
}
