// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package presence tracks how many live connections each user currently
// holds. The tracker is an injected dependency of the relay and the user
// handlers rather than a package-level singleton, so tests get isolated
// instances and a future sharded deployment can swap the implementation.
//
// Presence is process-local and resets on restart. Absence of an entry is
// the offline state; the map never holds a zero or negative count.
package presence

import "sync"

// Tracker is a concurrency-safe connection counter keyed by user ID.
type Tracker struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{counts: make(map[string]int)}
}

// Connect records one more live connection for the user and returns the new
// count.
func (t *Tracker) Connect(userID string) int {
	if userID == "" {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[userID]++
	return t.counts[userID]
}

// Disconnect records one connection closing for the user. When the count
// reaches zero the entry is removed, keeping the absence-means-offline
// invariant. Returns the remaining count.
func (t *Tracker) Disconnect(userID string) int {
	if userID == "" {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.counts[userID]
	if !ok {
		return 0
	}
	if c <= 1 {
		delete(t.counts, userID)
		return 0
	}
	t.counts[userID] = c - 1
	return c - 1
}

// IsOnline reports whether the user has at least one live connection.
// This is a point-in-time read and may race with concurrent connects and
// disconnects; presence is best effort.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counts[userID] > 0
}

// Online returns the number of users currently holding at least one
// connection. Used by metrics.
func (t *Tracker) Online() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.counts)
}
