// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package auth implements account authentication: bcrypt password storage,
// HMAC-signed JWT access/refresh token pairs, and the request middleware
// that resolves the bearer token into an identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/farmgate/farmgate/internal/config"
)

// Token kinds carried in the claims so a refresh token can never be used as
// an access token (and vice versa).
const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// ErrInvalidToken covers every validation failure: bad signature, expiry,
// malformed token, or wrong token kind.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims for both token kinds.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair is the access/refresh pair handed to clients on login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// JWTManager signs and validates token pairs. Access and refresh tokens use
// separate secrets so a leaked refresh secret cannot mint access tokens.
type JWTManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTManager creates a token manager from security configuration.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, errors.New("JWT secrets are required but were empty")
	}
	return &JWTManager{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.JWTRefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
	}, nil
}

// GeneratePair mints a fresh access/refresh token pair for a user.
func (m *JWTManager) GeneratePair(userID, role string) (*TokenPair, error) {
	access, err := m.sign(userID, role, tokenKindAccess, m.accessSecret, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, role, tokenKindRefresh, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccess validates an access token and returns its claims.
func (m *JWTManager) ValidateAccess(tokenString string) (*Claims, error) {
	return m.validate(tokenString, tokenKindAccess, m.accessSecret)
}

// ValidateRefresh validates a refresh token and returns its claims.
func (m *JWTManager) ValidateRefresh(tokenString string) (*Claims, error) {
	return m.validate(tokenString, tokenKindRefresh, m.refreshSecret)
}

func (m *JWTManager) sign(userID, role, kind string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (m *JWTManager) validate(tokenString, kind string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Reject algorithm confusion: only HMAC is ever accepted.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: wrong token kind", ErrInvalidToken)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
