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

// ErrNoMarketPrice indicates no price table exists for the requested date.
var ErrNoMarketPrice = errors.New("no market price table for date")

// GetMarketPrice returns the admin price table for a calendar date
// ("YYYY-MM-DD", UTC).
func (s *Store) GetMarketPrice(ctx context.Context, date string) (*models.MarketPrice, error) {
	doc, err := s.db.FindFirst(query.NewQuery(colMarketPrices).
		Where(query.Field("date").Eq(date)))
	if err != nil {
		return nil, fmt.Errorf("failed to query market price: %w", err)
	}
	if doc == nil {
		return nil, ErrNoMarketPrice
	}
	return marketPriceFromDocument(doc), nil
}

// UpsertMarketPrice replaces the full item list for a date, creating the
// day's table on first write.
func (s *Store) UpsertMarketPrice(ctx context.Context, date string, items []models.PriceItem) (*models.MarketPrice, error) {
	now := time.Now().UTC()

	encoded := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		encoded = append(encoded, map[string]interface{}{
			"name":  item.Name,
			"unit":  item.Unit,
			"price": item.Price,
		})
	}

	q := query.NewQuery(colMarketPrices).Where(query.Field("date").Eq(date))
	exists, err := s.db.Exists(q)
	if err != nil {
		return nil, fmt.Errorf("failed to check market price: %w", err)
	}

	if exists {
		err = s.db.Update(q, map[string]interface{}{
			"items":     encoded,
			"updatedAt": now.UnixMilli(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update market price: %w", err)
		}
	} else {
		doc := document.NewDocument()
		doc.Set("id", uuid.NewString())
		doc.Set("date", date)
		doc.Set("items", encoded)
		doc.Set("updatedAt", now.UnixMilli())
		if _, err := s.db.InsertOne(colMarketPrices, doc); err != nil {
			return nil, fmt.Errorf("failed to persist market price: %w", err)
		}
	}
	return s.GetMarketPrice(ctx, date)
}

// QualityPriceTable projects the date's price table onto the fixed quality
// class labels, matched case-insensitively against the item names. Labels
// with no priced item are simply absent from the result.
func (s *Store) QualityPriceTable(ctx context.Context, date string) (map[string]float64, error) {
	mp, err := s.GetMarketPrice(ctx, date)
	if err != nil {
		return nil, err
	}

	table := make(map[string]float64, len(models.QualityLabels))
	for _, label := range models.QualityLabels {
		for _, item := range mp.Items {
			if strings.EqualFold(strings.TrimSpace(item.Name), label) {
				table[label] = item.Price
				break
			}
		}
	}
	return table, nil
}

// AdminCropPrice returns the date's price for a crop matched
// case-insensitively by item name. ok is false when no item matches.
func (s *Store) AdminCropPrice(ctx context.Context, date, crop string) (float64, bool, error) {
	mp, err := s.GetMarketPrice(ctx, date)
	if err != nil {
		if errors.Is(err, ErrNoMarketPrice) {
			return 0, false, nil
		}
		return 0, false, err
	}

	crop = strings.TrimSpace(crop)
	for _, item := range mp.Items {
		if strings.EqualFold(strings.TrimSpace(item.Name), crop) {
			return item.Price, true, nil
		}
	}
	return 0, false, nil
}

func marketPriceFromDocument(doc *document.Document) *models.MarketPrice {
	mp := &models.MarketPrice{
		ID:        docString(doc, "id"),
		Date:      docString(doc, "date"),
		UpdatedAt: docTime(doc, "updatedAt"),
	}

	raw, ok := doc.Get("items").([]interface{})
	if !ok {
		return mp
	}
	for _, entry := range raw {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		item := models.PriceItem{}
		if v, ok := fields["name"].(string); ok {
			item.Name = v
		}
		if v, ok := fields["unit"].(string); ok {
			item.Unit = v
		}
		switch v := fields["price"].(type) {
		case float64:
			item.Price = v
		case int64:
			item.Price = float64(v)
		case uint64:
			item.Price = float64(v)
		}
		mp.Items = append(mp.Items, item)
	}
	return mp
}
