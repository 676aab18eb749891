// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// mockServer blocks in ListenAndServe until Shutdown is called or a failure
// is injected.
type mockServer struct {
	failWith    error
	shutdown    chan struct{}
	shutdownErr error
}

func newMockServer() *mockServer {
	return &mockServer{shutdown: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.failWith != nil {
		return m.failWith
	}
	<-m.shutdown
	return http.ErrServerClosed
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	close(m.shutdown)
	return m.shutdownErr
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestHTTPServerServiceStartupFailure(t *testing.T) {
	srv := newMockServer()
	srv.failWith = errors.New("address already in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.failWith) {
		t.Errorf("Serve returned %v, want wrapped startup failure", err)
	}
}

type stubHub struct {
	err error
}

func (s *stubHub) RunWithContext(ctx context.Context) error {
	<-ctx.Done()
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}

func TestWebSocketHubServiceDelegates(t *testing.T) {
	svc := NewWebSocketHubService(&stubHub{})
	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q, want websocket-hub", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}
