// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20 // 1 MB

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"required,oneof=farmer buyer"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type updateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Locale   *string `json:"locale" validate:"omitempty,max=16"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Location *string `json:"location" validate:"omitempty,max=200"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=128"`
}

type updateListingRequest struct {
	Title    *string  `json:"title" validate:"omitempty,min=2,max=200"`
	CropType *string  `json:"cropType" validate:"omitempty,max=100"`
	Quantity *float64 `json:"quantity" validate:"omitempty,gt=0"`
	Unit     *string  `json:"unit" validate:"omitempty,max=16"`
	Location *string  `json:"location" validate:"omitempty,max=200"`
	Status   *string  `json:"status" validate:"omitempty,oneof=available sold hidden"`
}

type feedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

type marketPriceItem struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Unit  string  `json:"unit" validate:"omitempty,max=16"`
	Price float64 `json:"price" validate:"gte=0"`
}

type marketPriceRequest struct {
	Items []marketPriceItem `json:"items" validate:"required,dive"`
}

type assistantRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
	Role    string `json:"role" validate:"omitempty,oneof=admin farmer buyer"`
}

// decodeJSON reads and decodes a bounded JSON body.
func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// validationDetails converts validator errors into field->constraint details
// for the error envelope.
func validationDetails(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

// decodeAndValidate combines decodeJSON with struct validation. The returned
// bool reports whether the handler should continue; the response has been
// written otherwise.
func (s *Server) decodeAndValidate(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst); err != nil {
		rw.BadRequest(err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		rw.ValidationFailed("request validation failed", validationDetails(err))
		return false
	}
	return true
}
