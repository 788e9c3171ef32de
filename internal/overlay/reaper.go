package overlay

import (
	"context"
	"time"
)

// ReaperConfig configures the background stale-tab reaper.
type ReaperConfig struct {
	// SweepInterval is how often tracked tabs are checked.
	// Default: 60 seconds.
	SweepInterval time.Duration

	// Grace is how long a tab must be reported gone before its record is
	// dropped, covering pages that are briefly disconnected while they
	// reload. Default: 2 minutes.
	Grace time.Duration
}

// StartReaper launches a goroutine that drops records for tabs the Pages
// layer reports as gone. It does nothing if Pages does not implement
// Liveness. Call Stop to shut it down.
func (m *Manager) StartReaper(cfg *ReaperConfig) {
	live, ok := m.pages.(Liveness)
	if !ok {
		return
	}
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}
	if cfg.Grace == 0 {
		cfg.Grace = 2 * time.Minute
	}

	m.reaperStop = make(chan struct{})
	m.reaperDone = make(chan struct{})

	go m.reapLoop(live, cfg)
	m.logger.Info("overlay: reaper started",
		"grace", cfg.Grace,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (m *Manager) Stop() {
	if m.reaperStop != nil {
		close(m.reaperStop)
		<-m.reaperDone
		m.reaperStop = nil
		m.reaperDone = nil
	}
}

func (m *Manager) reapLoop(live Liveness, cfg *ReaperConfig) {
	defer close(m.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	goneSince := make(map[int64]time.Time)
	for {
		select {
		case <-m.reaperStop:
			return
		case <-ticker.C:
			m.sweep(live, cfg.Grace, goneSince)
		}
	}
}

// sweep drops tabs reported gone for longer than grace. goneSince carries
// first-seen-gone times between sweeps.
func (m *Manager) sweep(live Liveness, grace time.Duration, goneSince map[int64]time.Time) {
	now := m.now()
	tracked := make(map[int64]bool)
	var expired []int64

	for _, rec := range m.Tracked() {
		tracked[rec.TabID] = true
		if live.Alive(rec.TabID) {
			delete(goneSince, rec.TabID)
			continue
		}
		since, seen := goneSince[rec.TabID]
		if !seen {
			goneSince[rec.TabID] = now
			continue
		}
		if now.Sub(since) >= grace {
			expired = append(expired, rec.TabID)
		}
	}
	for tab := range goneSince {
		if !tracked[tab] {
			delete(goneSince, tab)
		}
	}

	for _, tab := range expired {
		delete(goneSince, tab)
		if err := m.OnTabClosed(context.Background(), tab); err != nil {
			m.logger.Error("overlay: reaping tab failed", "tab", tab, "err", err)
			continue
		}
		m.logger.Info("overlay: reaped stale tab", "tab", tab, "grace", grace)
	}
}
