// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package database persists the marketplace collections (users, listings,
// messages, market prices, feedback) in an embedded clover document store.
//
// Documents carry an application-assigned "id" field (UUID) used for all
// lookups; clover's internal _id is ignored. Timestamps are stored as Unix
// milliseconds so range queries and sorting stay numeric.
package database

import (
	"fmt"
	"time"

	clover "github.com/ostafen/clover/v2"
	"github.com/ostafen/clover/v2/document"
	"github.com/ostafen/clover/v2/query"

	"github.com/farmgate/farmgate/internal/logging"
)

// Collection names.
const (
	colUsers        = "users"
	colListings     = "listings"
	colMessages     = "messages"
	colMarketPrices = "market_prices"
	colFeedback     = "feedback"
)

var collections = []string{colUsers, colListings, colMessages, colMarketPrices, colFeedback}

// Store wraps the clover database with typed accessors for each collection.
type Store struct {
	db *clover.DB
}

// Open opens (or creates) the document store at the given directory and
// ensures all collections exist.
func Open(path string) (*Store, error) {
	db, err := clover.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store at %s: %w", path, err)
	}

	for _, name := range collections {
		ok, err := db.HasCollection(name)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to check collection %s: %w", name, err)
		}
		if !ok {
			if err := db.CreateCollection(name); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
			}
		}
	}

	logging.Info().Str("path", path).Msg("document store opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// byID builds the standard single-document query on the application ID.
func byID(collection, id string) *query.Query {
	return query.NewQuery(collection).Where(query.Field("id").Eq(id))
}

// docString reads a string field, tolerating absent values.
func docString(doc *document.Document, field string) string {
	if v, ok := doc.Get(field).(string); ok {
		return v
	}
	return ""
}

// docFloat reads a numeric field; clover may hand back int64 or float64
// depending on how the value serialized.
func docFloat(doc *document.Document, field string) float64 {
	switch v := doc.Get(field).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 0
}

// docInt reads an integer field with the same tolerance as docFloat.
func docInt(doc *document.Document, field string) int {
	return int(docFloat(doc, field))
}

// docTime reads a Unix-millisecond timestamp field.
func docTime(doc *document.Document, field string) time.Time {
	ms := int64(docFloat(doc, field))
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// docStrings reads a string-slice field.
func docStrings(doc *document.Document, field string) []string {
	raw, ok := doc.Get(field).([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// docOptFloat reads an optional numeric field; nil when absent.
func docOptFloat(doc *document.Document, field string) *float64 {
	if doc.Get(field) == nil {
		return nil
	}
	v := docFloat(doc, field)
	return &v
}

// Today returns the UTC calendar date key used by the market price table.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}
