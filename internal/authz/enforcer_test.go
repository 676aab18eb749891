// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/farmgate/farmgate/internal/auth"
	"github.com/farmgate/farmgate/internal/models"
)

func TestRoleMatrix(t *testing.T) {
	enforcer, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer() failed: %v", err)
	}

	tests := []struct {
		role   string
		path   string
		method string
		want   bool
	}{
		{models.RoleAdmin, "/api/v1/admin/market-prices", http.MethodPut, true},
		{models.RoleAdmin, "/api/v1/admin/analytics/summary", http.MethodGet, true},
		{models.RoleFarmer, "/api/v1/admin/market-prices", http.MethodGet, false},
		{models.RoleBuyer, "/api/v1/admin/analytics/summary", http.MethodGet, false},

		{models.RoleFarmer, "/api/v1/listings", http.MethodPost, true},
		{models.RoleFarmer, "/api/v1/listings/abc", http.MethodPut, true},
		{models.RoleFarmer, "/api/v1/listings/abc", http.MethodDelete, true},
		{models.RoleFarmer, "/api/v1/listings/abc/sold", http.MethodPost, true},
		{models.RoleFarmer, "/api/v1/my/listings", http.MethodGet, true},
		{models.RoleBuyer, "/api/v1/listings", http.MethodPost, false},
		{models.RoleBuyer, "/api/v1/listings/abc", http.MethodDelete, false},

		{models.RoleBuyer, "/api/v1/listings/abc/feedback", http.MethodPost, true},
		{models.RoleFarmer, "/api/v1/listings/abc/feedback", http.MethodPost, false},

		// Admins inherit both marketplace roles.
		{models.RoleAdmin, "/api/v1/listings", http.MethodPost, true},
		{models.RoleAdmin, "/api/v1/listings/abc/feedback", http.MethodPost, true},
	}

	for _, tc := range tests {
		got, err := enforcer.Allowed(tc.role, tc.path, tc.method)
		if err != nil {
			t.Fatalf("Allowed(%s, %s, %s) failed: %v", tc.role, tc.path, tc.method, err)
		}
		if got != tc.want {
			t.Errorf("Allowed(%s, %s, %s) = %v, want %v", tc.role, tc.path, tc.method, got, tc.want)
		}
	}
}

func TestMiddlewareRejectsMissingIdentity(t *testing.T) {
	enforcer, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer() failed: %v", err)
	}

	forbidden := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}
	handler := Middleware(enforcer, forbidden)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/listings", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous status = %d, want 403", rec.Code)
	}
}

func TestMiddlewareEnforcesRole(t *testing.T) {
	enforcer, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer() failed: %v", err)
	}

	forbidden := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}
	handler := Middleware(enforcer, forbidden)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "u1", Role: models.RoleBuyer}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("buyer creating listing status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/listings", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "u2", Role: models.RoleFarmer}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("farmer creating listing status = %d, want 200", rec.Code)
	}
}
