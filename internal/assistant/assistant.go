// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package assistant implements the rule-based in-app helper. Replies are
// picked by keyword matching on the lowercased message, specialized by the
// caller's role, with generic fallbacks.
package assistant

import "strings"

// Reply returns the assistant's answer for a message. The empty string is
// never returned for a non-empty message.
func Reply(message, role string) string {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return ""
	}

	var reply string
	switch role {
	case "buyer":
		switch {
		case contains(lower, "price", "pricing"):
			reply = "You can filter by price on the Listings page using Min/Max Price. Look for Top-Rated farmers (>= 3 stars) for quality."
		case contains(lower, "contact", "chat"):
			reply = "Open any listing and click to chat with the farmer. A chat badge appears when you have new messages."
		default:
			reply = "As a buyer, try search and filters on Listings. You can rate a farmer after viewing a listing using the stars below the card."
		}
	case "farmer":
		switch {
		case contains(lower, "upload", "listing"):
			reply = "Go to Upload to create a listing. Add images for a better quality score and suggested price."
		case contains(lower, "sold"):
			reply = "Open My Listings, choose a listing, and mark it as sold."
		default:
			reply = "As a farmer, use Upload to create listings and My Listings to manage them. Engage buyers via Chat."
		}
	case "admin":
		switch {
		case contains(lower, "market", "price"):
			reply = "Use Admin > Market Prices to set today's crop prices. They sync with uploads and suggestions."
		case contains(lower, "dashboard"):
			reply = "Admin Dashboard shows totals, listings, and Top-Rated Farmers (>= 3 stars) based on buyer feedback."
		default:
			reply = "As an admin, manage prices in Admin > Market Prices and review analytics in the Admin Dashboard."
		}
	}

	if reply == "" {
		if contains(lower, "help", "how") {
			reply = "Tell me what you want to do (e.g., \"filter rice under 70\", \"upload a listing\", or \"set today's prices\")."
		} else {
			reply = "I can help with navigation, pricing tips, and workflows for buyers, farmers, and admins. Try asking about filters, uploads, or dashboard."
		}
	}
	return reply
}

func contains(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
