// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/farmgate/farmgate/internal/database"
	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/metrics"
	"github.com/farmgate/farmgate/internal/models"
	"github.com/farmgate/farmgate/internal/pricing"
)

// maxListingImages caps the images accepted per listing.
const maxListingImages = 5

// handleCreateListing accepts a multipart form with listing fields and up to
// five images. Image quality analysis and price suggestion are best effort:
// a dead classifier or a missing price table never blocks the listing.
func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(s.cfg.Uploads.MaxBytes + maxJSONBody); err != nil {
		rw.BadRequest("invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	cropType := strings.TrimSpace(r.FormValue("cropType"))
	if title == "" || cropType == "" {
		rw.BadRequest("title and cropType are required")
		return
	}
	quantity, err := strconv.ParseFloat(r.FormValue("quantity"), 64)
	if err != nil || quantity <= 0 {
		rw.BadRequest("quantity must be a positive number")
		return
	}

	var (
		refs       []string
		firstImage []byte
		firstName  string
	)
	if r.MultipartForm != nil {
		files := r.MultipartForm.File["images"]
		if len(files) > maxListingImages {
			rw.BadRequest("too many images")
			return
		}
		for i, header := range files {
			data, err := readMultipartFile(header)
			if err != nil {
				rw.BadRequest("unreadable image upload")
				return
			}
			ref, err := s.uploads.Save(data, header.Header.Get("Content-Type"), "listing")
			if err != nil {
				rw.BadRequest("rejected image: " + err.Error())
				return
			}
			refs = append(refs, ref)
			if i == 0 {
				firstImage = data
				firstName = header.Filename
			}
		}
	}

	today := database.Today()
	adminPrice, hasAdminPrice, err := s.store.AdminCropPrice(r.Context(), today, cropType)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("market price lookup failed")
		hasAdminPrice = false
	}

	qualityScore := s.scoreFirstImage(r, firstImage, firstName, refs)

	listing := &models.Listing{
		FarmerID: id.UserID,
		Title:    title,
		CropType: cropType,
		Quantity: quantity,
		Unit:     strings.TrimSpace(r.FormValue("unit")),
		Images:   refs,
		Location: strings.TrimSpace(r.FormValue("location")),
	}

	switch {
	case hasAdminPrice && qualityScore != nil:
		perKg := pricing.Round2(adminPrice * *qualityScore)
		total := pricing.Round2(perKg * quantity)
		listing.SuggestedPrice = &total
		listing.QualityScore = qualityScore
		listing.MarketPriceSnapshot = &adminPrice
		metrics.PriceSuggestions.WithLabelValues("weighted").Inc()
	case hasAdminPrice:
		total := pricing.Round2(adminPrice * quantity)
		listing.SuggestedPrice = &total
		listing.MarketPriceSnapshot = &adminPrice
		metrics.PriceSuggestions.WithLabelValues("fallback_admin").Inc()
	default:
		// No data: the suggestion stays absent, never zero.
		metrics.PriceSuggestions.WithLabelValues("none").Inc()
	}

	created, err := s.store.CreateListing(r.Context(), listing)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("listing creation failed")
		rw.DatabaseError()
		return
	}
	rw.Created(created)
}

// scoreFirstImage asks the classifier for the Good/Fresh probability of the
// first uploaded image. nil means "no quality data"; every failure path is
// absorbed after logging.
func (s *Server) scoreFirstImage(r *http.Request, image []byte, filename string, refs []string) *float64 {
	if s.ml == nil || len(image) == 0 {
		return nil
	}

	result, err := s.ml.Infer(r.Context(), filename, image)
	if err == nil {
		score := result.Scores[models.QualityGood]
		return &score
	}
	logging.Ctx(r.Context()).Warn().Err(err).Msg("quality inference failed, trying fallback")

	if len(refs) > 0 {
		if score, err := s.ml.Analyze(r.Context(), refs[0]); err == nil {
			return &score
		}
	}
	logging.Ctx(r.Context()).Warn().Msg("no quality data for listing")
	return nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(file)
}

func (s *Server) handleSearchListings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, ok := s.identity(rw, r); !ok {
		return
	}

	filter := database.ListingFilter{
		Query:    r.URL.Query().Get("q"),
		CropType: r.URL.Query().Get("cropType"),
	}
	if v := r.URL.Query().Get("minPrice"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil {
			rw.BadRequest("minPrice must be a number")
			return
		}
		filter.MinPrice = &min
	}
	if v := r.URL.Query().Get("maxPrice"); v != "" {
		max, err := strconv.ParseFloat(v, 64)
		if err != nil {
			rw.BadRequest("maxPrice must be a number")
			return
		}
		filter.MaxPrice = &max
	}

	listings, err := s.store.SearchListings(r.Context(), filter)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("listing search failed")
		rw.DatabaseError()
		return
	}
	rw.Success(listings)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, ok := s.identity(rw, r); !ok {
		return
	}

	listing, err := s.store.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rw.NotFound("listing not found")
		return
	}
	rw.Success(listing)
}

func (s *Server) handleMyListings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	listings, err := s.store.ListingsByFarmer(r.Context(), id.UserID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("listing query failed")
		rw.DatabaseError()
		return
	}
	rw.Success(listings)
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	var req updateListingRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.CropType != nil {
		fields["cropType"] = *req.CropType
	}
	if req.Quantity != nil {
		fields["quantity"] = *req.Quantity
	}
	if req.Unit != nil {
		fields["unit"] = *req.Unit
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}

	listing, err := s.store.UpdateListing(r.Context(), chi.URLParam(r, "id"), id.UserID, fields)
	if err != nil {
		if errors.Is(err, database.ErrListingNotFound) {
			rw.NotFound("listing not found")
			return
		}
		rw.DatabaseError()
		return
	}
	rw.Success(listing)
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	err := s.store.DeleteListing(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		if errors.Is(err, database.ErrListingNotFound) {
			rw.NotFound("listing not found")
			return
		}
		rw.DatabaseError()
		return
	}
	rw.Success(map[string]bool{"deleted": true})
}

func (s *Server) handleMarkSold(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	listing, err := s.store.UpdateListing(r.Context(), chi.URLParam(r, "id"), id.UserID,
		map[string]interface{}{"status": models.ListingSold})
	if err != nil {
		if errors.Is(err, database.ErrListingNotFound) {
			rw.NotFound("listing not found")
			return
		}
		rw.DatabaseError()
		return
	}
	rw.Success(listing)
}

func (s *Server) handlePostFeedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.identity(rw, r)
	if !ok {
		return
	}

	var req feedbackRequest
	if !s.decodeAndValidate(rw, r, &req) {
		return
	}

	listing, err := s.store.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rw.NotFound("listing not found")
		return
	}

	fb, err := s.store.UpsertFeedback(r.Context(), listing.ID, listing.FarmerID, id.UserID, req.Rating, req.Comment)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("feedback upsert failed")
		rw.DatabaseError()
		return
	}
	rw.Success(fb)
}

// handlePublicQualityPrices exposes today's per-kg price for the three
// quality classes; labels with no admin price come back as null.
func (s *Server) handlePublicQualityPrices(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	today := database.Today()
	prices := make(map[string]*float64, len(models.QualityLabels))
	for _, label := range models.QualityLabels {
		prices[label] = nil
	}

	table, err := s.store.QualityPriceTable(r.Context(), today)
	if err != nil && !errors.Is(err, database.ErrNoMarketPrice) {
		logging.Ctx(r.Context()).Error().Err(err).Msg("quality price lookup failed")
		rw.DatabaseError()
		return
	}
	for label, price := range table {
		p := price
		prices[label] = &p
	}

	rw.Success(map[string]interface{}{
		"date":   today,
		"prices": prices,
		"unit":   "kg",
	})
}
