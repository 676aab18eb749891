// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package models defines the persisted and wire-level data types shared
// across the Farmgate server.
package models

import "time"

// Roles a user account can hold.
const (
	RoleAdmin  = "admin"
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
)

// Listing lifecycle states.
const (
	ListingAvailable = "available"
	ListingSold      = "sold"
	ListingHidden    = "hidden"
)

// User account states.
const (
	UserActive  = "active"
	UserBlocked = "blocked"
)

// Quality class labels produced by the external classifier. The price table
// and the suggester only ever operate on this fixed set.
const (
	QualityGood   = "Good/Fresh"
	QualityRotten = "Rotten/Spoiled"
	QualityBad    = "Completely Bad/Decomposed"
)

// QualityLabels lists all known quality class labels.
var QualityLabels = []string{QualityGood, QualityRotten, QualityBad}

/// User is a registered account: admin, farmer, or buyer.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Locale       string    `json:"locale,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Location     string    `json:"location,omitempty"`
	RatingAverage float64  `json:"ratingAverage"`
	RatingCount  int       `json:"ratingCount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicProfile is the reduced view of a user exposed to other users,
// including best-effort presence.
type PublicProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Online bool   `json:"online"`
}

// Listing is a crop offer created by a farmer. SuggestedPrice, QualityScore
// and MarketPriceSnapshot are absent (nil) when no data was available at
// creation time; absent means "no suggestion", never zero.
type Listing struct {
	ID                  string    `json:"id"`
	FarmerID            string    `json:"farmerId"`
	FarmerName          string    `json:"farmerName,omitempty"`
	FarmerRatingAverage float64   `json:"farmerRatingAverage,omitempty"`
	FarmerRatingCount   int       `json:"farmerRatingCount,omitempty"`
	Title               string    `json:"title"`
	CropType            string    `json:"cropType"`
	Quantity            float64   `json:"quantity"`
	Unit                string    `json:"unit"`
	Images              []string  `json:"images"`
	Location            string    `json:"location,omitempty"`
	Status              string    `json:"status"`
	SuggestedPrice      *float64  `json:"suggestedPrice,omitempty"`
	QualityScore        *float64  `json:"qualityScore,omitempty"`
	MarketPriceSnapshot *float64  `json:"marketPriceSnapshot,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Message is a single chat message between two users. Exactly one of Body
// and ImageRef is normally set; validation rejects a message with neither.
// Messages are immutable after creation except for bulk conversation delete.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body,omitempty"`
	ImageRef  string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PriceItem is one admin-set price entry for a day.
type PriceItem struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Price float64 `json:"price"`
}

// MarketPrice is the admin price table for one calendar date ("YYYY-MM-DD").
type MarketPrice struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	Items     []PriceItem `json:"items"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Feedback is a buyer's rating of a farmer, attached to a listing. One
// feedback per (listing, buyer) pair; re-submission overwrites.
type Feedback struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	FarmerID  string    `json:"farmerId"`
	BuyerID   string    `json:"buyerId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QualityResult is the structure returned by the external inference service:
// the argmax label plus the full class probability distribution.
type QualityResult struct {
	FinalQuality string             `json:"final_quality"`
	Scores       map[string]float64 `json:"scores"`
}

// TopFarmer is one entry of the admin analytics summary.
type TopFarmer struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	RatingAverage float64 `json:"ratingAverage"`
	RatingCount   int     `json:"ratingCount"`
}
