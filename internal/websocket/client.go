// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package websocket

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/farmgate/farmgate/internal/logging"
	"github.com/farmgate/farmgate/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
)

// clientIDCounter generates unique, monotonically increasing client IDs so
// room iteration can be ordered consistently.
var clientIDCounter atomic.Uint64

// sendPayload is the inbound body of a message:send event.
type sendPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// errorPayload is the body of a message:error event.
type errorPayload struct {
	Error string `json:"error"`
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	id     uint64
	userID string
	hub    *Hub
	relay  *relay.Relay
	conn   *websocket.Conn
	send   chan Message
}

// NewClient creates a client for an authenticated user's connection.
func NewClient(hub *Hub, r *relay.Relay, conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		hub:    hub,
		relay:  r,
		conn:   conn,
		send:   make(chan Message, 256),
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump pumps events from the websocket connection into the relay.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}

		switch msg.Type {
		case EventPing:
			select {
			case c.send <- Message{Type: EventPong}:
			default:
			}
		case EventMessageSend:
			c.handleSend(msg.Data)
		}
	}
}

// handleSend routes one inbound chat message through the relay. Validation
// failures come back to this connection only as a message:error event.
func (c *Client) handleSend(data interface{}) {
	var payload sendPayload
	if raw, err := json.Marshal(data); err == nil {
		_ = json.Unmarshal(raw, &payload)
	}

	_, err := c.relay.SendMessage(context.Background(), c.userID, strings.TrimSpace(payload.To), payload.Body)
	if err == nil {
		return
	}

	reason := "message could not be delivered"
	if errors.Is(err, relay.ErrInvalidMessage) {
		reason = err.Error()
	} else {
		logging.Error().Err(err).Str("user_id", c.userID).Msg("live message delivery failed")
	}

	select {
	case c.send <- Message{Type: EventMessageError, Data: errorPayload{Error: reason}}:
	default:
	}
}

// writePump pumps events from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
