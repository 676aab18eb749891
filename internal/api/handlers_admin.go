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

// handleGetMarketPrices returns today's price table, or an empty one if the
// admin has not priced anything yet.
func (s *Server) handleGetMarketPrices(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	today := database.Today()
	mp, err := s.store.GetMarketPrice(r.Context(), today)
	if err != nil {
		if errors.Is(err, database.ErrNoMarketPrice) {
			rw.Success(&models.MarketPrice{Date: today, Items: []models.PriceItem{}})
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("market price read failed")
		rw.DatabaseError()
		return
	}
	rw.Success(mp)
}

// handlePutMarketPrices replaces today's price table wholesale.
func (s *Server) handlePutMarketPrices(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req marketPriceRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	items := make([]models.PriceItem, 0, len(req.Items))
	for _, it := range req.Items {
		unit := it.Unit
		if unit == "" {
			unit = "kg"
		}
		items = append(items, models.PriceItem{Name: it.Name, Unit: unit, Price: it.Price})
	}

	mp, err := s.store.UpsertMarketPrice(r.Context(), database.Today(), items)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("market price upsert failed")
		rw.DatabaseError()
		return
	}

	logging.Ctx(r.Context()).Info().Int("items", len(items)).Msg("market prices updated")
	rw.Success(mp)
}

// analyticsSummary is the admin dashboard rollup.
type analyticsSummary struct {
	Farmers         int                `json:"farmers"`
	Buyers          int                `json:"buyers"`
	Listings        int                `json:"listings"`
	SoldListings    int                `json:"soldListings"`
	FeedbackEntries int                `json:"feedbackEntries"`
	OnlineUsers     int                `json:"onlineUsers"`
	TopFarmers      []models.TopFarmer `json:"topFarmers"`
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	farmers, err := s.store.CountUsers(ctx, models.RoleFarmer)
	if err != nil {
		rw.DatabaseError()
		return
	}
	buyers, err := s.store.CountUsers(ctx, models.RoleBuyer)
	if err != nil {
		rw.DatabaseError()
		return
	}
	listings, err := s.store.CountListings(ctx, "")
	if err != nil {
		rw.DatabaseError()
		return
	}
	sold, err := s.store.CountListings(ctx, models.ListingSold)
	if err != nil {
		rw.DatabaseError()
		return
	}
	feedback, err := s.store.CountFeedback(ctx)
	if err != nil {
		rw.DatabaseError()
		return
	}
	top, err := s.store.TopRatedFarmers(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("top farmer query failed")
		rw.DatabaseError()
		return
	}

	rw.Success(analyticsSummary{
		Farmers:         farmers,
		Buyers:          buyers,
		Listings:        listings,
		SoldListings:    sold,
		FeedbackEntries: feedback,
		OnlineUsers:     s.presence.Online(),
		TopFarmers:      top,
	})
}
