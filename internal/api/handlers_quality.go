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
	"github.com/farmgate/farmgate/internal/metrics"
	"github.com/farmgate/farmgate/internal/pricing"
)

// qualityAnalysis is the classifier verdict plus an optional price hint.
type qualityAnalysis struct {
	FinalQuality        string             `json:"finalQuality"`
	Scores              map[string]float64 `json:"scores"`
	SuggestedPricePerKg *float64           `json:"suggestedPricePerKg"`
}

func (s *Server) handleQualityPing(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, ok := s.identity(rw, r); !ok {
		return
	}

	if err := s.ml.Ping(r.Context()); err != nil {
		rw.ExternalServiceError("inference service")
		return
	}
	rw.Success(map[string]bool{"ok": true})
}

// handleQualityAnalyze runs the classifier on an uploaded image. The verdict
// is mandatory; the price hint from today's quality table is best effort.
func (s *Server) handleQualityAnalyze(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if _, ok := s.identity(rw, r); !ok {
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

	result, err := s.ml.Infer(r.Context(), header.Filename, data)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("quality inference failed")
		rw.ExternalServiceError("inference service")
		return
	}

	analysis := qualityAnalysis{
		FinalQuality: result.FinalQuality,
		Scores:       result.Scores,
	}

	table, err := s.store.QualityPriceTable(r.Context(), database.Today())
	if err != nil && !errors.Is(err, database.ErrNoMarketPrice) {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("quality price lookup failed")
	}
	if price, ok := pricing.SuggestPerUnit(result.Scores, table, result.FinalQuality); ok {
		analysis.SuggestedPricePerKg = &price
		metrics.PriceSuggestions.WithLabelValues("weighted").Inc()
	} else {
		metrics.PriceSuggestions.WithLabelValues("none").Inc()
	}

	rw.Success(analysis)
}
