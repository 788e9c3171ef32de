// Package presence keeps a roster of the surfaces (popup, page overlays,
// browser bridge) that have connected to the coordinator.
//
// The websocket hub reports connects, inbound messages and disconnects
// directly. Disconnected entries stay in the roster, marked gone, until the
// evictor removes them, so `GET /v1/surfaces` can show what dropped recently.
package presence

import (
	"sort"
	"sync"
	"time"
)

// Entry is one surface's presence state.
type Entry struct {
	PeerID       string    `json:"peerId"`
	Kind         string    `json:"kind"`
	TabID        int64     `json:"tabId,omitempty"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastSeen     time.Time `json:"lastSeen"`
	LastMessage  string    `json:"lastMessage,omitempty"`
	MessageCount int64     `json:"messageCount"`
	IdleSecs     float64   `json:"idleSecs"`
	Gone         bool      `json:"gone,omitempty"`
	GoneAt       time.Time `json:"goneAt,omitzero"`
}

// EvictorConfig configures the background eviction of gone surfaces.
type EvictorConfig struct {
	// EvictAfter is how long a gone surface stays listed. Default: 10 minutes.
	EvictAfter time.Duration
	// SweepInterval is how often gone entries are scanned. Default: 60 seconds.
	SweepInterval time.Duration
}

// Tracker is safe for concurrent use.
type Tracker struct {
	now func() time.Time

	mu    sync.RWMutex
	peers map[string]*Entry

	stop chan struct{}
	done chan struct{}
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{now: time.Now, peers: make(map[string]*Entry)}
}

// Connected records a new surface connection.
func (t *Tracker) Connected(peerID, kind string, tabID int64) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[peerID] = &Entry{
		PeerID:      peerID,
		Kind:        kind,
		TabID:       tabID,
		ConnectedAt: now,
		LastSeen:    now,
	}
}

// Seen records an inbound message from a connected surface. Unknown peers
// are ignored.
func (t *Tracker) Seen(peerID, msgType string) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.peers[peerID]
	if !ok || e.Gone {
		return
	}
	e.LastSeen = now
	e.LastMessage = msgType
	e.MessageCount++
}

// Disconnected marks a surface as gone.
func (t *Tracker) Disconnected(peerID string) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.peers[peerID]; ok && !e.Gone {
		e.Gone = true
		e.GoneAt = now
	}
}

// Roster returns a snapshot of all tracked surfaces, connected ones first,
// then by most recent activity.
func (t *Tracker) Roster() []Entry {
	now := t.now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, 0, len(t.peers))
	for _, e := range t.peers {
		cp := *e
		cp.IdleSecs = now.Sub(e.LastSeen).Seconds()
		entries = append(entries, cp)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Gone != entries[j].Gone {
			return !entries[i].Gone
		}
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// StartEvictor launches a goroutine that drops gone surfaces after
// EvictAfter. Call Stop to shut it down.
func (t *Tracker) StartEvictor(cfg *EvictorConfig) {
	if cfg == nil {
		cfg = &EvictorConfig{}
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 10 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				t.evict(cfg.EvictAfter)
			}
		}
	}()
}

// Stop shuts down the evictor and waits for it to exit.
func (t *Tracker) Stop() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop = nil
}

func (t *Tracker) evict(after time.Duration) int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, e := range t.peers {
		if e.Gone && now.Sub(e.GoneAt) >= after {
			delete(t.peers, id)
			n++
		}
	}
	return n
}
