// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package presence

import (
	"sync"
	"testing"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()

	if tr.IsOnline("u1") {
		t.Error("fresh tracker should report offline")
	}

	if got := tr.Connect("u1"); got != 1 {
		t.Errorf("first Connect = %d, want 1", got)
	}
	if !tr.IsOnline("u1") {
		t.Error("u1 should be online after Connect")
	}

	// Second tab / device for the same user.
	if got := tr.Connect("u1"); got != 2 {
		t.Errorf("second Connect = %d, want 2", got)
	}

	if got := tr.Disconnect("u1"); got != 1 {
		t.Errorf("Disconnect = %d, want 1", got)
	}
	if !tr.IsOnline("u1") {
		t.Error("u1 should remain online with one connection left")
	}

	if got := tr.Disconnect("u1"); got != 0 {
		t.Errorf("final Disconnect = %d, want 0", got)
	}
	if tr.IsOnline("u1") {
		t.Error("u1 should be offline after last disconnect")
	}

	// The entry must be removed, not left at zero.
	tr.mu.RLock()
	_, present := tr.counts["u1"]
	tr.mu.RUnlock()
	if present {
		t.Error("count entry should be removed when reaching zero")
	}
}

func TestTrackerDisconnectWithoutConnect(t *testing.T) {
	tr := NewTracker()

	// A spurious disconnect must never drive the count negative.
	if got := tr.Disconnect("ghost"); got != 0 {
		t.Errorf("Disconnect on unknown user = %d, want 0", got)
	}
	if tr.IsOnline("ghost") {
		t.Error("unknown user should be offline")
	}
}

func TestTrackerEmptyUserID(t *testing.T) {
	tr := NewTracker()
	tr.Connect("")
	if tr.Online() != 0 {
		t.Error("empty user ID must not be tracked")
	}
}

func TestTrackerOnlineCount(t *testing.T) {
	tr := NewTracker()
	tr.Connect("a")
	tr.Connect("a")
	tr.Connect("b")

	if got := tr.Online(); got != 2 {
		t.Errorf("Online() = %d, want 2 distinct users", got)
	}
}

func TestTrackerConcurrentChurn(t *testing.T) {
	tr := NewTracker()
	const workers = 16
	const iterations = 200

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				tr.Connect("shared")
				tr.IsOnline("shared")
				tr.Disconnect("shared")
			}
		}()
	}
	wg.Wait()

	if tr.IsOnline("shared") {
		t.Error("user should be offline after balanced connect/disconnect churn")
	}
	if tr.Online() != 0 {
		t.Errorf("Online() = %d, want 0 after churn", tr.Online())
	}
}
