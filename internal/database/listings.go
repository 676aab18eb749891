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

// ErrListingNotFound indicates no listing matched the lookup (or the caller
// does not own it).
var ErrListingNotFound = errors.New("listing not found")

// searchLimit caps public listing searches.
const searchLimit = 100

// ListingFilter narrows a public listing search. Zero values are ignored.
type ListingFilter struct {
	// Query is matched case-insensitively against title and crop type.
	Query string

	// CropType is matched case-insensitively against the crop type.
	CropType string

	// MinPrice/MaxPrice bound the suggested price; nil means unbounded.
	MinPrice *float64
	MaxPrice *float64
}

// CreateListing persists a new listing and returns it with its assigned ID.
func (s *Store) CreateListing(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	now := time.Now().UTC()
	listing.ID = uuid.NewString()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	if listing.Unit == "" {
		listing.Unit = "kg"
	}
	if listing.Status == "" {
		listing.Status = models.ListingAvailable
	}

	if _, err := s.db.InsertOne(colListings, listingToDocument(listing)); err != nil {
		return nil, fmt.Errorf("failed to persist listing: %w", err)
	}
	return listing, nil
}

// GetListing looks up a listing by ID.
func (s *Store) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	doc, err := s.db.FindFirst(byID(colListings, id))
	if err != nil {
		return nil, fmt.Errorf("failed to query listing: %w", err)
	}
	if doc == nil {
		return nil, ErrListingNotFound
	}
	return listingFromDocument(doc), nil
}

// GetOwnedListing looks up a listing by ID scoped to its owning farmer.
func (s *Store) GetOwnedListing(ctx context.Context, id, farmerID string) (*models.Listing, error) {
	doc, err := s.db.FindFirst(query.NewQuery(colListings).
		Where(query.Field("id").Eq(id).And(query.Field("farmerId").Eq(farmerID))))
	if err != nil {
		return nil, fmt.Errorf("failed to query listing: %w", err)
	}
	if doc == nil {
		return nil, ErrListingNotFound
	}
	return listingFromDocument(doc), nil
}

// SearchListings returns up to 100 listings newest first, filtered by the
// given criteria, with the farmer's public name and rating joined in.
//
// The price range is applied in the store query; the free-text filters are
// applied in Go because the document engine has no case-insensitive
// substring operator.
func (s *Store) SearchListings(ctx context.Context, filter ListingFilter) ([]*models.Listing, error) {
	q := query.NewQuery(colListings).
		Sort(query.SortOption{Field: "createdAt", Direction: -1})

	var criteria query.Criteria
	if filter.MinPrice != nil {
		criteria = query.Field("suggestedPrice").GtEq(*filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		c := query.Field("suggestedPrice").LtEq(*filter.MaxPrice)
		if criteria != nil {
			criteria = criteria.And(c)
		} else {
			criteria = c
		}
	}
	if criteria != nil {
		q = q.Where(criteria)
	}

	docs, err := s.db.FindAll(q)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(filter.Query))
	cropNeedle := strings.ToLower(strings.TrimSpace(filter.CropType))

	results := make([]*models.Listing, 0, len(docs))
	for _, doc := range docs {
		listing := listingFromDocument(doc)
		if needle != "" &&
			!strings.Contains(strings.ToLower(listing.Title), needle) &&
			!strings.Contains(strings.ToLower(listing.CropType), needle) {
			continue
		}
		if cropNeedle != "" && !strings.Contains(strings.ToLower(listing.CropType), cropNeedle) {
			continue
		}
		results = append(results, listing)
		if len(results) == searchLimit {
			break
		}
	}

	s.attachFarmerInfo(ctx, results)
	return results, nil
}

// attachFarmerInfo joins the farmer's public name and rating onto listings.
// Lookup failures leave the fields empty rather than failing the search.
func (s *Store) attachFarmerInfo(ctx context.Context, listings []*models.Listing) {
	cache := make(map[string]*models.User)
	for _, listing := range listings {
		farmer, ok := cache[listing.FarmerID]
		if !ok {
			var err error
			farmer, err = s.GetUserByID(ctx, listing.FarmerID)
			if err != nil {
				continue
			}
			cache[listing.FarmerID] = farmer
		}
		listing.FarmerName = farmer.Name
		listing.FarmerRatingAverage = farmer.RatingAverage
		listing.FarmerRatingCount = farmer.RatingCount
	}
}

// ListingsByFarmer returns all listings owned by a farmer, newest first.
func (s *Store) ListingsByFarmer(ctx context.Context, farmerID string) ([]*models.Listing, error) {
	docs, err := s.db.FindAll(query.NewQuery(colListings).
		Where(query.Field("farmerId").Eq(farmerID)).
		Sort(query.SortOption{Field: "createdAt", Direction: -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list farmer listings: %w", err)
	}

	listings := make([]*models.Listing, 0, len(docs))
	for _, doc := range docs {
		listings = append(listings, listingFromDocument(doc))
	}
	return listings, nil
}

// UpdateListing applies the allowed mutable fields to an owned listing and
// returns the updated record.
func (s *Store) UpdateListing(ctx context.Context, id, farmerID string, fields map[string]interface{}) (*models.Listing, error) {
	if _, err := s.GetOwnedListing(ctx, id, farmerID); err != nil {
		return nil, err
	}

	allowed := map[string]bool{
		"title": true, "cropType": true, "quantity": true,
		"unit": true, "location": true, "status": true,
	}
	updates := make(map[string]interface{})
	for k, v := range fields {
		if allowed[k] {
			updates[k] = v
		}
	}
	if len(updates) > 0 {
		updates["updatedAt"] = time.Now().UTC().UnixMilli()
		if err := s.db.Update(byID(colListings, id), updates); err != nil {
			return nil, fmt.Errorf("failed to update listing: %w", err)
		}
	}
	return s.GetListing(ctx, id)
}

// DeleteListing removes an owned listing. Returns ErrListingNotFound when
// the listing does not exist or belongs to another farmer.
func (s *Store) DeleteListing(ctx context.Context, id, farmerID string) error {
	if _, err := s.GetOwnedListing(ctx, id, farmerID); err != nil {
		return err
	}
	if err := s.db.Delete(byID(colListings, id)); err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

// CountListings returns the total number of listings, optionally filtered
// by status.
func (s *Store) CountListings(ctx context.Context, status string) (int, error) {
	q := query.NewQuery(colListings)
	if status != "" {
		q = q.Where(query.Field("status").Eq(status))
	}
	count, err := s.db.Count(q)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

func listingToDocument(l *models.Listing) *document.Document {
	doc := document.NewDocument()
	doc.Set("id", l.ID)
	doc.Set("farmerId", l.FarmerID)
	doc.Set("title", l.Title)
	doc.Set("cropType", l.CropType)
	doc.Set("quantity", l.Quantity)
	doc.Set("unit", l.Unit)
	doc.Set("images", l.Images)
	doc.Set("location", l.Location)
	doc.Set("status", l.Status)
	if l.SuggestedPrice != nil {
		doc.Set("suggestedPrice", *l.SuggestedPrice)
	}
	if l.QualityScore != nil {
		doc.Set("qualityScore", *l.QualityScore)
	}
	if l.MarketPriceSnapshot != nil {
		doc.Set("marketPriceSnapshot", *l.MarketPriceSnapshot)
	}
	doc.Set("createdAt", l.CreatedAt.UnixMilli())
	doc.Set("updatedAt", l.UpdatedAt.UnixMilli())
	return doc
}

func listingFromDocument(doc *document.Document) *models.Listing {
	return &models.Listing{
		ID:                  docString(doc, "id"),
		FarmerID:            docString(doc, "farmerId"),
		Title:               docString(doc, "title"),
		CropType:            docString(doc, "cropType"),
		Quantity:            docFloat(doc, "quantity"),
		Unit:                docString(doc, "unit"),
		Images:              docStrings(doc, "images"),
		Location:            docString(doc, "location"),
		Status:              docString(doc, "status"),
		SuggestedPrice:      docOptFloat(doc, "suggestedPrice"),
		QualityScore:        docOptFloat(doc, "qualityScore"),
		MarketPriceSnapshot: docOptFloat(doc, "marketPriceSnapshot"),
		CreatedAt:           docTime(doc, "createdAt"),
		UpdatedAt:           docTime(doc, "updatedAt"),
	}
}
