// Package overlay tracks, per browser tab, whether the injected overlay is
// shown, and drives the show/hide round trips to the page.
//
// Tracking state lives in an arena keyed by tab id and is persisted after
// every change, so a coordinator restart can re-materialize overlays when
// their pages reload.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/quickreply/internal/events"
	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/store"
)

// Pages delivers instructions to page-injected overlays.
type Pages interface {
	// Send delivers msg to the overlay in tabID. It fails when the
	// destination is not ready.
	Send(ctx context.Context, tabID int64, msg events.Message) error
	// Inject ensures the overlay script is present in tabID. Injecting
	// twice is harmless.
	Inject(ctx context.Context, tabID int64) error
}

// Liveness is optionally implemented by Pages to report whether a tab
// still exists. The reaper uses it.
type Liveness interface {
	Alive(tabID int64) bool
}

// Manager is the OverlayLifecycleManager.
type Manager struct {
	pages  Pages
	kv     store.Store
	logger *slog.Logger
	now    func() time.Time

	// opMu serializes lifecycle operations, including their page round trips.
	opMu sync.Mutex

	mu      sync.RWMutex
	records map[int64]*model.OverlayRecord

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// New creates a manager. Call Restore to load persisted tracking state.
func New(pages Pages, kv store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pages:   pages,
		kv:      kv,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		records: make(map[int64]*model.OverlayRecord),
	}
}

// Restore replaces in-memory tracking with the persisted records.
func (m *Manager) Restore(ctx context.Context) error {
	data, err := m.kv.Get(ctx, store.KeyOverlays)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &model.StorageError{Op: "get overlays", Err: err}
	}
	var recs []model.OverlayRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		m.logger.Warn("overlay records unreadable, starting empty", "err", err)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[int64]*model.OverlayRecord, len(recs))
	for i := range recs {
		r := recs[i]
		m.records[r.TabID] = &r
	}
	return nil
}

// commit persists the arena with tabID set to rec, or untracked when rec is
// nil, and only then updates memory, so a failed write leaves both unchanged.
// Callers hold opMu.
func (m *Manager) commit(ctx context.Context, tabID int64, rec *model.OverlayRecord) error {
	cur := m.Tracked()
	next := make([]model.OverlayRecord, 0, len(cur)+1)
	for _, r := range cur {
		if r.TabID != tabID {
			next = append(next, r)
		}
	}
	if rec != nil {
		rec.TabID = tabID
		rec.UpdatedAt = m.now()
		next = append(next, *rec)
		sort.Slice(next, func(i, j int) bool { return next[i].TabID < next[j].TabID })
	}

	data, err := json.Marshal(next)
	if err != nil {
		return &model.StorageError{Op: "encode overlays", Err: err}
	}
	if err := m.kv.Put(ctx, store.KeyOverlays, data); err != nil {
		return &model.StorageError{Op: "put overlays", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rec == nil {
		delete(m.records, tabID)
	} else {
		r := *rec
		m.records[tabID] = &r
	}
	return nil
}

// Tracked returns a snapshot of all tracked tabs ordered by tab id.
func (m *Manager) Tracked() []model.OverlayRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.OverlayRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

// IsVisible reports whether tabID is tracked as showing an overlay.
func (m *Manager) IsVisible(tabID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[tabID]
	return ok && r.Visible
}

func (m *Manager) record(tabID int64) (model.OverlayRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[tabID]
	if !ok {
		return model.OverlayRecord{}, false
	}
	return *r, true
}

// Toggle hides the overlay of a tracked-visible tab and stops tracking it;
// otherwise it injects and shows the overlay and starts tracking. It
// returns whether the overlay is now visible. Only storage failures are
// returned as errors; tracking is then left as it was.
func (m *Manager) Toggle(ctx context.Context, tabID int64) (bool, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if rec, ok := m.record(tabID); ok && rec.Visible {
		if err := m.pages.Send(ctx, tabID, events.Message{Type: events.KindHide, TabID: tabID}); err != nil {
			m.logger.Debug("hide not delivered", "tab", tabID, "err", err)
		}
		if err := m.commit(ctx, tabID, nil); err != nil {
			return true, err
		}
		return false, nil
	}

	if !m.show(ctx, tabID, false) {
		return false, nil
	}
	if err := m.commit(ctx, tabID, &model.OverlayRecord{Visible: true}); err != nil {
		return false, err
	}
	return true, nil
}

// show injects the overlay and sends SHOW, retrying once after a fresh
// injection. A second failure is logged and reported as false.
func (m *Manager) show(ctx context.Context, tabID int64, minimized bool) bool {
	msg := events.Message{Type: events.KindShow, TabID: tabID, Minimized: minimized}

	if err := m.pages.Inject(ctx, tabID); err != nil {
		m.logger.Debug("overlay injection failed", "tab", tabID, "err", err)
	}
	err := m.pages.Send(ctx, tabID, msg)
	if err == nil {
		return true
	}

	m.logger.Debug("show not delivered, reinjecting", "tab", tabID, "err", err)
	if err := m.pages.Inject(ctx, tabID); err != nil {
		m.logger.Debug("overlay reinjection failed", "tab", tabID, "err", err)
	}
	if err := m.pages.Send(ctx, tabID, msg); err != nil {
		m.logger.Warn("show failed after reinjection", "tab", tabID, "err", err)
		return false
	}
	return true
}

// OnNavigationComplete re-sends SHOW to a tracked-visible tab whose page has
// (re)loaded.
func (m *Manager) OnNavigationComplete(ctx context.Context, tabID int64) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	rec, ok := m.record(tabID)
	if !ok || !rec.Visible {
		return nil
	}
	m.show(ctx, tabID, rec.Minimized)
	return nil
}

// OnTabClosed drops tracking for a closed tab. Nothing is sent.
func (m *Manager) OnTabClosed(ctx context.Context, tabID int64) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if _, ok := m.record(tabID); !ok {
		return nil
	}
	return m.commit(ctx, tabID, nil)
}

// OnOverlayClosed handles a close made inside the page. Tracking is updated
// exactly as for a manager-initiated hide.
func (m *Manager) OnOverlayClosed(ctx context.Context, tabID int64) error {
	return m.OnTabClosed(ctx, tabID)
}

// OnMinimized records that the overlay in tabID was minimized or restored
// from inside the page. Minimized tabs stay tracked.
func (m *Manager) OnMinimized(ctx context.Context, tabID int64, minimized bool) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	rec, ok := m.record(tabID)
	if !ok || rec.Minimized == minimized {
		return nil
	}
	rec.Minimized = minimized
	return m.commit(ctx, tabID, &rec)
}
