package model

import "time"

// OverlayRecord is the persisted tracking state of an injected overlay for
// one browser tab. A tab without a record is not tracked.
type OverlayRecord struct {
	TabID     int64     `json:"tabId"`
	Visible   bool      `json:"visible"`
	Minimized bool      `json:"minimized,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SyncState is the process-local view of remote synchronization.
type SyncState struct {
	LastPulledAt  time.Time `json:"lastPulledAt"`
	LastPushedAt  time.Time `json:"lastPushedAt"`
	Authenticated bool      `json:"authenticated"`
	Principal     string    `json:"principal,omitempty"`
	AuthExpiry    time.Time `json:"authExpiry"`
	Online        bool      `json:"online"`
	Pending       bool      `json:"pending"`
}
