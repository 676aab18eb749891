// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ostafen/clover/v2/document"
	"github.com/ostafen/clover/v2/query"

	"github.com/farmgate/farmgate/internal/models"
)

// UpsertFeedback records a buyer's rating of a farmer for a listing. A second
// submission for the same (listing, buyer) pair overwrites the first. The
// farmer's denormalized rating aggregate is recomputed after the write.
func (s *Store) UpsertFeedback(ctx context.Context, listingID, farmerID, buyerID string, rating int, comment string) (*models.Feedback, error) {
	now := time.Now().UTC()
	q := query.NewQuery(colFeedback).Where(
		query.Field("listingId").Eq(listingID).And(query.Field("buyerId").Eq(buyerID)))

	existing, err := s.db.FindFirst(q)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}

	var fb *models.Feedback
	if existing != nil {
		err = s.db.Update(q, map[string]interface{}{
			"rating":    rating,
			"comment":   comment,
			"updatedAt": now.UnixMilli(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update feedback: %w", err)
		}
		fb = feedbackFromDocument(existing)
		fb.Rating = rating
		fb.Comment = comment
		fb.UpdatedAt = now
	} else {
		fb = &models.Feedback{
			ID:        uuid.NewString(),
			ListingID: listingID,
			FarmerID:  farmerID,
			BuyerID:   buyerID,
			Rating:    rating,
			Comment:   comment,
			CreatedAt: now,
			UpdatedAt: now,
		}
		doc := document.NewDocument()
		doc.Set("id", fb.ID)
		doc.Set("listingId", fb.ListingID)
		doc.Set("farmerId", fb.FarmerID)
		doc.Set("buyerId", fb.BuyerID)
		doc.Set("rating", fb.Rating)
		doc.Set("comment", fb.Comment)
		doc.Set("createdAt", now.UnixMilli())
		doc.Set("updatedAt", now.UnixMilli())
		if _, err := s.db.InsertOne(colFeedback, doc); err != nil {
			return nil, fmt.Errorf("failed to persist feedback: %w", err)
		}
	}

	avg, count, err := s.FarmerRating(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	if err := s.SetUserRating(ctx, farmerID, avg, count); err != nil {
		return nil, err
	}
	return fb, nil
}

// ListFeedbackForFarmer returns all feedback left for a farmer, newest first.
func (s *Store) ListFeedbackForFarmer(ctx context.Context, farmerID string) ([]*models.Feedback, error) {
	docs, err := s.db.FindAll(query.NewQuery(colFeedback).
		Where(query.Field("farmerId").Eq(farmerID)).
		Sort(query.SortOption{Field: "createdAt", Direction: -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	out := make([]*models.Feedback, 0, len(docs))
	for _, doc := range docs {
		out = append(out, feedbackFromDocument(doc))
	}
	return out, nil
}

// FarmerRating computes the live rating aggregate for a farmer from the
// feedback collection.
func (s *Store) FarmerRating(ctx context.Context, farmerID string) (average float64, count int, err error) {
	docs, err := s.db.FindAll(query.NewQuery(colFeedback).
		Where(query.Field("farmerId").Eq(farmerID)))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate feedback: %w", err)
	}
	if len(docs) == 0 {
		return 0, 0, nil
	}

	sum := 0
	for _, doc := range docs {
		sum += docInt(doc, "rating")
	}
	return float64(sum) / float64(len(docs)), len(docs), nil
}

// TopRatedFarmers returns up to 10 farmers with an average rating of at
// least 3 and at least one feedback, best first.
func (s *Store) TopRatedFarmers(ctx context.Context) ([]models.TopFarmer, error) {
	docs, err := s.db.FindAll(query.NewQuery(colUsers).
		Where(query.Field("role").Eq(models.RoleFarmer)))
	if err != nil {
		return nil, fmt.Errorf("failed to list farmers: %w", err)
	}

	top := make([]models.TopFarmer, 0, len(docs))
	for _, doc := range docs {
		avg := docFloat(doc, "ratingAverage")
		count := docInt(doc, "ratingCount")
		if count == 0 || avg < 3 {
			continue
		}
		top = append(top, models.TopFarmer{
			ID:            docString(doc, "id"),
			Name:          docString(doc, "name"),
			RatingAverage: avg,
			RatingCount:   count,
		})
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].RatingAverage != top[j].RatingAverage {
			return top[i].RatingAverage > top[j].RatingAverage
		}
		return top[i].RatingCount > top[j].RatingCount
	})
	if len(top) > 10 {
		top = top[:10]
	}
	return top, nil
}

// CountFeedback returns the total number of feedback records.
func (s *Store) CountFeedback(ctx context.Context) (int, error) {
	count, err := s.db.Count(query.NewQuery(colFeedback))
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

func feedbackFromDocument(doc *document.Document) *models.Feedback {
	return &models.Feedback{
		ID:        docString(doc, "id"),
		ListingID: docString(doc, "listingId"),
		FarmerID:  docString(doc, "farmerId"),
		BuyerID:   docString(doc, "buyerId"),
		Rating:    docInt(doc, "rating"),
		Comment:   docString(doc, "comment"),
		CreatedAt: docTime(doc, "createdAt"),
		UpdatedAt: docTime(doc, "updatedAt"),
	}
}
