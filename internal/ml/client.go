// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package ml talks to the external produce-quality inference service. The
// service runs image classification and is slow to start, so the client
// carries a long timeout, a rate limiter, and a circuit breaker. Every
// failure surfaces as a typed error that callers treat as "no quality data";
// the marketplace keeps working without the classifier.
package ml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/farmgate/farmgate/internal/config"
	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/metrics"
	"github.com/farmgate/farmgate/internal/models"
)

var (
	// ErrUnavailable indicates the inference service could not be reached,
	// timed out, or the circuit is open.
	ErrUnavailable = errors.New("inference service unavailable")

	// ErrBadResponse indicates the service answered with a non-2xx status or
	// an undecodable body.
	ErrBadResponse = errors.New("inference service returned an invalid response")
)

// maxResponseBytes bounds inference response bodies.
const maxResponseBytes = 1 << 20

// Client is the HTTP client for the inference service.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a client from configuration. The circuit opens after a
// 60% failure rate over at least 5 requests and probes again after 1 minute.
func NewClient(cfg *config.MLConfig) *Client {
	cbName := "inference-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("[CIRCUIT BREAKER] Inference client state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cb:      cb,
	}
}

// Ping verifies the service base URL is reachable.
func (c *Client) Ping(ctx context.Context) error {
	start := time.Now()
	_, err := c.do(ctx, http.MethodGet, c.baseURL+"/", "", nil)
	metrics.RecordMLRequest("ping", time.Since(start), errType(err))
	return err
}

// Infer runs image classification on raw image bytes and returns the argmax
// label together with the full class probability distribution.
func (c *Client) Infer(ctx context.Context, filename string, image []byte) (*models.QualityResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	start := time.Now()
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/infer", writer.FormDataContentType(), buf.Bytes())
	metrics.RecordMLRequest("infer", time.Since(start), errType(err))
	if err != nil {
		return nil, err
	}

	var decoded struct {
		FinalQuality string `json:"final_quality"`
		VitClass     struct {
			Scores map[string]float64 `json:"scores"`
		} `json:"vit_class"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		metrics.MLRequestErrors.WithLabelValues("infer", "decode").Inc()
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if decoded.FinalQuality == "" {
		return nil, fmt.Errorf("%w: missing final_quality", ErrBadResponse)
	}

	return &models.QualityResult{
		FinalQuality: decoded.FinalQuality,
		Scores:       decoded.VitClass.Scores,
	}, nil
}

// Analyze is the reduced fallback endpoint: a single 0..1 quality score for
// an already-uploaded image reference.
func (c *Client) Analyze(ctx context.Context, imageRef string) (float64, error) {
	payload, err := json.Marshal(map[string]string{"image": imageRef})
	if err != nil {
		return 0, fmt.Errorf("failed to encode analyze request: %w", err)
	}

	start := time.Now()
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/analyze", "application/json", payload)
	metrics.RecordMLRequest("analyze", time.Since(start), errType(err))
	if err != nil {
		return 0, err
	}

	var decoded struct {
		QualityScore float64 `json:"qualityScore"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		metrics.MLRequestErrors.WithLabelValues("analyze", "decode").Inc()
		return 0, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return decoded.QualityScore, nil
}

// do issues one rate-limited, breaker-protected request and returns the
// response body.
func (c *Client) do(ctx context.Context, method, url, contentType string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result, err := c.cb.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
		}
		return data, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues("inference-api", "rejected").Inc()
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		metrics.CircuitBreakerRequests.WithLabelValues("inference-api", "failure").Inc()
		if errors.Is(err, ErrBadResponse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues("inference-api", "success").Inc()
	return result, nil
}

// errType classifies an error for metrics labels.
func errType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadResponse):
		return "http"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unreachable"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
