// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/farmgate/farmgate/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return store
}

func TestUserLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "Asha", "Asha@Example.COM", "hash", models.RoleFarmer)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if user.Email != "asha@example.com" {
		t.Errorf("email not lowercased: %q", user.Email)
	}
	if user.Status != models.UserActive {
		t.Errorf("status = %q, want %q", user.Status, models.UserActive)
	}

	// Duplicate email, different casing.
	if _, err := store.CreateUser(ctx, "Other", "ASHA@example.com", "h", models.RoleBuyer); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	got, err := store.GetUserByEmail(ctx, "asha@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetUserByEmail ID = %q, want %q", got.ID, user.ID)
	}

	if _, err := store.GetUserByID(ctx, "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user error = %v, want ErrUserNotFound", err)
	}

	updated, err := store.UpdateUserProfile(ctx, user.ID, map[string]string{
		"name":  "Asha K",
		"email": "evil@example.com", // not an allowed field
	})
	if err != nil {
		t.Fatalf("UpdateUserProfile() failed: %v", err)
	}
	if updated.Name != "Asha K" {
		t.Errorf("name = %q, want %q", updated.Name, "Asha K")
	}
	if updated.Email != "asha@example.com" {
		t.Errorf("email changed through profile update: %q", updated.Email)
	}

	count, err := store.CountUsers(ctx, models.RoleFarmer)
	if err != nil {
		t.Fatalf("CountUsers() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("farmer count = %d, want 1", count)
	}
}

func TestMessagePersistenceAndConversation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateMessage(ctx, "a", "b", "", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty message error = %v, want ErrEmptyMessage", err)
	}
	if _, err := store.CreateMessage(ctx, "", "b", "hi", ""); err == nil {
		t.Error("message without sender should be rejected")
	}

	if _, err := store.CreateMessage(ctx, "a", "b", "hello", ""); err != nil {
		t.Fatalf("CreateMessage() failed: %v", err)
	}
	if _, err := store.CreateMessage(ctx, "b", "a", "hi back", ""); err != nil {
		t.Fatalf("CreateMessage() failed: %v", err)
	}
	// Image-only message is valid.
	if _, err := store.CreateMessage(ctx, "a", "b", "", "/uploads/x.jpg"); err != nil {
		t.Fatalf("image-only CreateMessage() failed: %v", err)
	}
	// Unrelated conversation must not leak in.
	if _, err := store.CreateMessage(ctx, "a", "c", "other", ""); err != nil {
		t.Fatalf("CreateMessage() failed: %v", err)
	}

	msgs, err := store.ListConversation(ctx, "a", "b")
	if err != nil {
		t.Fatalf("ListConversation() failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("conversation length = %d, want 3", len(msgs))
	}
	if msgs[0].Body != "hello" || msgs[1].Body != "hi back" {
		t.Errorf("conversation not oldest-first: %q, %q", msgs[0].Body, msgs[1].Body)
	}
	if msgs[2].ImageRef != "/uploads/x.jpg" {
		t.Errorf("image ref = %q, want /uploads/x.jpg", msgs[2].ImageRef)
	}

	// Direction-agnostic: same history from the other side.
	reverse, err := store.ListConversation(ctx, "b", "a")
	if err != nil {
		t.Fatalf("ListConversation() failed: %v", err)
	}
	if len(reverse) != len(msgs) {
		t.Errorf("reverse conversation length = %d, want %d", len(reverse), len(msgs))
	}

	deleted, err := store.DeleteConversation(ctx, "b", "a")
	if err != nil {
		t.Fatalf("DeleteConversation() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	remaining, err := store.ListConversation(ctx, "a", "c")
	if err != nil {
		t.Fatalf("ListConversation() failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("unrelated conversation affected by delete: %d messages", len(remaining))
	}
}

func TestListingOwnershipAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	farmer, err := store.CreateUser(ctx, "Ravi", "ravi@example.com", "h", models.RoleFarmer)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	price := 30.20
	listing, err := store.CreateListing(ctx, &models.Listing{
		FarmerID:       farmer.ID,
		Title:          "Fresh Tomatoes",
		CropType:       "tomato",
		Quantity:       50,
		SuggestedPrice: &price,
	})
	if err != nil {
		t.Fatalf("CreateListing() failed: %v", err)
	}
	if listing.Unit != "kg" {
		t.Errorf("default unit = %q, want kg", listing.Unit)
	}
	if listing.Status != models.ListingAvailable {
		t.Errorf("default status = %q, want %q", listing.Status, models.ListingAvailable)
	}

	if _, err := store.CreateListing(ctx, &models.Listing{
		FarmerID: farmer.ID,
		Title:    "Onions",
		CropType: "onion",
		Quantity: 20,
	}); err != nil {
		t.Fatalf("CreateListing() failed: %v", err)
	}

	// Case-insensitive free-text search.
	results, err := store.SearchListings(ctx, ListingFilter{Query: "TOMATO"})
	if err != nil {
		t.Fatalf("SearchListings() failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != listing.ID {
		t.Fatalf("search by query returned %d results", len(results))
	}
	if results[0].FarmerName != "Ravi" {
		t.Errorf("farmer name not joined: %q", results[0].FarmerName)
	}

	// Price range filter.
	min, max := 25.0, 35.0
	results, err = store.SearchListings(ctx, ListingFilter{MinPrice: &min, MaxPrice: &max})
	if err != nil {
		t.Fatalf("SearchListings() failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != listing.ID {
		t.Errorf("price range search returned %d results", len(results))
	}

	// Ownership scoping.
	if _, err := store.GetOwnedListing(ctx, listing.ID, "intruder"); !errors.Is(err, ErrListingNotFound) {
		t.Errorf("foreign owner error = %v, want ErrListingNotFound", err)
	}
	if err := store.DeleteListing(ctx, listing.ID, "intruder"); !errors.Is(err, ErrListingNotFound) {
		t.Errorf("foreign delete error = %v, want ErrListingNotFound", err)
	}

	updated, err := store.UpdateListing(ctx, listing.ID, farmer.ID, map[string]interface{}{
		"status":   models.ListingSold,
		"farmerId": "intruder", // not an allowed field
	})
	if err != nil {
		t.Fatalf("UpdateListing() failed: %v", err)
	}
	if updated.Status != models.ListingSold {
		t.Errorf("status = %q, want %q", updated.Status, models.ListingSold)
	}
	if updated.FarmerID != farmer.ID {
		t.Errorf("ownership changed through update: %q", updated.FarmerID)
	}

	if err := store.DeleteListing(ctx, listing.ID, farmer.ID); err != nil {
		t.Fatalf("DeleteListing() failed: %v", err)
	}
	if _, err := store.GetListing(ctx, listing.ID); !errors.Is(err, ErrListingNotFound) {
		t.Errorf("deleted listing error = %v, want ErrListingNotFound", err)
	}
}

func TestMarketPriceTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetMarketPrice(ctx, "2026-09-01"); !errors.Is(err, ErrNoMarketPrice) {
		t.Errorf("missing table error = %v, want ErrNoMarketPrice", err)
	}

	_, err := store.UpsertMarketPrice(ctx, "2026-09-01", []models.PriceItem{
		{Name: "Good/Fresh", Unit: "kg", Price: 40},
		{Name: "rotten/spoiled", Unit: "kg", Price: 10},
		{Name: "Tomato", Unit: "kg", Price: 35},
	})
	if err != nil {
		t.Fatalf("UpsertMarketPrice() failed: %v", err)
	}

	table, err := store.QualityPriceTable(ctx, "2026-09-01")
	if err != nil {
		t.Fatalf("QualityPriceTable() failed: %v", err)
	}
	if table[models.QualityGood] != 40 {
		t.Errorf("Good/Fresh price = %v, want 40", table[models.QualityGood])
	}
	// Item names match labels case-insensitively.
	if table[models.QualityRotten] != 10 {
		t.Errorf("Rotten/Spoiled price = %v, want 10", table[models.QualityRotten])
	}
	// Unpriced labels are absent, and non-label items never leak in.
	if _, ok := table[models.QualityBad]; ok {
		t.Error("unpriced label should be absent from quality table")
	}
	if len(table) != 2 {
		t.Errorf("quality table size = %d, want 2", len(table))
	}

	price, ok, err := store.AdminCropPrice(ctx, "2026-09-01", "TOMATO")
	if err != nil {
		t.Fatalf("AdminCropPrice() failed: %v", err)
	}
	if !ok || price != 35 {
		t.Errorf("AdminCropPrice = (%v, %v), want (35, true)", price, ok)
	}
	if _, ok, _ := store.AdminCropPrice(ctx, "2026-09-01", "mango"); ok {
		t.Error("unknown crop should report no price")
	}
	// Missing date is "no data", not an error.
	if _, ok, err := store.AdminCropPrice(ctx, "1999-01-01", "tomato"); err != nil || ok {
		t.Errorf("missing date AdminCropPrice = (ok=%v, err=%v), want (false, nil)", ok, err)
	}

	// Upsert replaces the day's items wholesale.
	mp, err := store.UpsertMarketPrice(ctx, "2026-09-01", []models.PriceItem{
		{Name: "Good/Fresh", Unit: "kg", Price: 42},
	})
	if err != nil {
		t.Fatalf("second UpsertMarketPrice() failed: %v", err)
	}
	if len(mp.Items) != 1 || mp.Items[0].Price != 42 {
		t.Errorf("upsert did not replace items: %+v", mp.Items)
	}
}

func TestFeedbackUpsertAndAggregate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	farmer, err := store.CreateUser(ctx, "Ravi", "ravi@example.com", "h", models.RoleFarmer)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	if _, err := store.UpsertFeedback(ctx, "l1", farmer.ID, "buyer1", 5, "great"); err != nil {
		t.Fatalf("UpsertFeedback() failed: %v", err)
	}
	if _, err := store.UpsertFeedback(ctx, "l2", farmer.ID, "buyer2", 3, ""); err != nil {
		t.Fatalf("UpsertFeedback() failed: %v", err)
	}

	user, err := store.GetUserByID(ctx, farmer.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if user.RatingAverage != 4 || user.RatingCount != 2 {
		t.Errorf("aggregate = (%v, %d), want (4, 2)", user.RatingAverage, user.RatingCount)
	}

	// Re-submission for the same (listing, buyer) overwrites, not appends.
	if _, err := store.UpsertFeedback(ctx, "l1", farmer.ID, "buyer1", 1, "changed my mind"); err != nil {
		t.Fatalf("re-submit UpsertFeedback() failed: %v", err)
	}
	user, err = store.GetUserByID(ctx, farmer.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if user.RatingCount != 2 {
		t.Errorf("rating count after overwrite = %d, want 2", user.RatingCount)
	}
	if user.RatingAverage != 2 {
		t.Errorf("rating average after overwrite = %v, want 2", user.RatingAverage)
	}

	all, err := store.ListFeedbackForFarmer(ctx, farmer.ID)
	if err != nil {
		t.Fatalf("ListFeedbackForFarmer() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("feedback count = %d, want 2", len(all))
	}
}

func TestTopRatedFarmers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mk := func(name, email string, avg float64, count int) {
		t.Helper()
		u, err := store.CreateUser(ctx, name, email, "h", models.RoleFarmer)
		if err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
		if err := store.SetUserRating(ctx, u.ID, avg, count); err != nil {
			t.Fatalf("SetUserRating() failed: %v", err)
		}
	}

	mk("High", "high@example.com", 4.5, 10)
	mk("Mid", "mid@example.com", 3.0, 2)
	mk("Low", "low@example.com", 2.9, 50) // below cutoff
	mk("Unrated", "unrated@example.com", 0, 0)

	top, err := store.TopRatedFarmers(ctx)
	if err != nil {
		t.Fatalf("TopRatedFarmers() failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top farmers = %d, want 2", len(top))
	}
	if top[0].Name != "High" || top[1].Name != "Mid" {
		t.Errorf("top farmers order = %q, %q", top[0].Name, top[1].Name)
	}
}
