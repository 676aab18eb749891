// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package websocket implements the live layer: one room per user ID holding
// every open connection of that user (tabs, devices). Chat delivery and
// presence both hang off room membership.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/metrics"
	"github.com/farmgate/farmgate/internal/presence"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Event types for WebSocket communication.
const (
	EventMessageSend  = "message:send"
	EventMessageNew   = "message:new"
	EventMessageError = "message:error"
	EventPing         = "ping"
	EventPong         = "pong"
)

// Message is the wire envelope for every WebSocket event.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// emitRequest targets one user's room.
type emitRequest struct {
	userID  string
	message Message
}

// Hub maintains rooms of active clients and routes per-user events.
type Hub struct {
	rooms      map[string]map[*Client]bool
	emit       chan emitRequest
	Register   chan *Client
	Unregister chan *Client
	presence   *presence.Tracker
	mu         sync.RWMutex
}

// NewHub creates a hub wired to a presence tracker.
func NewHub(tracker *presence.Tracker) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		emit:       make(chan emitRequest, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		presence:   tracker,
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// Designed for suture supervision: on cancellation every client is closed
// and ctx.Err() is returned so the supervisor sees a clean stop.
//
// Priority-based selection keeps behavior predictable when multiple channels
// are ready: shutdown first, then client lifecycle, then event delivery.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check).
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle (non-blocking check).
		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		// Priority 3: event delivery, or wait for any event.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case req := <-h.emit:
			h.emitToRoom(req)
		}
	}
}

// EmitToUser queues an event for every open connection of one user. A user
// with no open connections misses the event; durable history is the source
// of truth. The send never blocks the caller.
func (h *Hub) EmitToUser(userID, event string, payload interface{}) {
	req := emitRequest{userID: userID, message: Message{Type: event, Data: payload}}
	select {
	case h.emit <- req:
	default:
		logging.Warn().Str("event", event).Msg("emit channel full, dropping event")
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.userID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.userID] = room
	}
	room[client] = true
	h.mu.Unlock()

	h.presence.Connect(client.userID)
	metrics.WSConnectionsTotal.Inc()
	metrics.WSConnectionsActive.Set(float64(h.ClientCount()))
	metrics.PresenceOnlineUsers.Set(float64(h.presence.Online()))

	logging.Info().
		Str("user_id", client.userID).
		Int("total_clients", h.ClientCount()).
		Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	removed := false
	if room, ok := h.rooms[client.userID]; ok {
		if _, ok := room[client]; ok {
			delete(room, client)
			close(client.send)
			removed = true
		}
		if len(room) == 0 {
			delete(h.rooms, client.userID)
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}

	h.presence.Disconnect(client.userID)
	metrics.WSConnectionsActive.Set(float64(h.ClientCount()))
	metrics.PresenceOnlineUsers.Set(float64(h.presence.Online()))

	logging.Info().
		Str("user_id", client.userID).
		Int("total_clients", h.ClientCount()).
		Msg("websocket client disconnected")
}

// emitToRoom delivers an event to every connection in the target room, in
// client-ID order for predictable behavior. Clients with a full send buffer
// are dropped; they reconnect and catch up from history.
func (h *Hub) emitToRoom(req emitRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[req.userID]
	if !ok {
		return
	}

	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- req.message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(room, client)
		h.presence.Disconnect(client.userID)
		logging.Warn().Str("user_id", client.userID).Msg("dropping slow websocket client")
	}
	if len(room) == 0 {
		delete(h.rooms, req.userID)
	}
}

// logGracefulShutdown closes all clients and logs structured shutdown info.
// ctx.Err() is not logged as an error; cancellation is expected behavior.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients closes every connection in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	var clients []*Client
	for _, room := range h.rooms {
		for client := range room {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, client := range clients {
		close(client.send)
		h.presence.Disconnect(client.userID)
	}
	h.rooms = make(map[string]map[*Client]bool)
	metrics.WSConnectionsActive.Set(0)
	metrics.PresenceOnlineUsers.Set(float64(h.presence.Online()))
}

// ClientCount returns the number of open connections across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}

// RoomSize returns the number of open connections for one user.
func (h *Hub) RoomSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
