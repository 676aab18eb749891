// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package uploads stores user-submitted images on disk and hands back the
// public /uploads/ path clients use to retrieve them.
package uploads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/farmgate/farmgate/internal/metrics"
)

var (
	// ErrTooLarge indicates the file exceeds the configured size limit.
	ErrTooLarge = errors.New("file exceeds upload size limit")

	// ErrUnsupportedType indicates a content type outside the image allowlist.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// extByType maps accepted image content types to their stored extension.
var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store writes uploads under a single directory with random names. Original
// filenames are discarded so they can never influence the stored path.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates the upload directory if needed.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the directory files are stored in, for static file serving.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the file and returns its public path ("/uploads/<name>").
// kind labels the upload for metrics only.
func (s *Store) Save(data []byte, contentType, kind string) (string, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	ext, ok := extByType[normalizeContentType(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	metrics.UploadsStored.WithLabelValues(kind).Inc()
	metrics.UploadBytes.Add(float64(len(data)))
	return "/uploads/" + name, nil
}

// normalizeContentType strips parameters like "; charset=..." and lowercases.
func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
