// Package sync reconciles the local catalog with the optional remote mirror:
// pull on load, best-effort push on every local write and periodic
// reconciliation. Remote failures are logged here and never reach callers.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/quickreply/internal/auth"
	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/remote"
	"github.com/alfredjeanlab/quickreply/internal/store"
)

// DefaultInterval is the background reconciliation period.
const DefaultInterval = 5 * time.Minute

// LocalStore is the part of the DataStore the coordinator writes through.
type LocalStore interface {
	ApplyRemote(ctx context.Context, c *model.Catalog) (*model.Catalog, error)
}

// SessionSource yields the current auth session, if any.
type SessionSource interface {
	Current(ctx context.Context) (*auth.Session, bool)
}

// Coordinator is the SyncCoordinator. A nil mirror disables remote sync;
// every operation then returns immediately.
type Coordinator struct {
	local    LocalStore
	mirror   remote.Mirror
	sessions SessionSource
	kv       store.Store
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	state   model.SyncState
	queued  *model.Catalog // latest catalog waiting for the push worker
	unsent  *model.Catalog // last catalog whose push failed
	pushing bool
	done    chan struct{} // closed when the running worker exits

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a coordinator. kv receives the persisted sync timestamps; a
// zero interval selects DefaultInterval.
func New(local LocalStore, mirror remote.Mirror, sessions SessionSource, kv store.Store, interval time.Duration, logger *slog.Logger) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		local:    local,
		mirror:   mirror,
		sessions: sessions,
		kv:       kv,
		interval: interval,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		state:    model.SyncState{Online: true},
	}
}

// persistedState is the subset of SyncState kept across restarts.
type persistedState struct {
	LastPulledAt time.Time `json:"lastPulledAt"`
	LastPushedAt time.Time `json:"lastPushedAt"`
}

// Restore loads the persisted sync timestamps.
func (c *Coordinator) Restore(ctx context.Context) error {
	data, err := c.kv.Get(ctx, store.KeySyncState)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &model.StorageError{Op: "get sync state", Err: err}
	}
	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		c.logger.Warn("sync state unreadable, ignoring", "err", err)
		return nil
	}
	c.mu.Lock()
	c.state.LastPulledAt = ps.LastPulledAt
	c.state.LastPushedAt = ps.LastPushedAt
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) saveState(ctx context.Context) {
	c.mu.Lock()
	ps := persistedState{LastPulledAt: c.state.LastPulledAt, LastPushedAt: c.state.LastPushedAt}
	c.mu.Unlock()
	data, err := json.Marshal(ps)
	if err != nil {
		return
	}
	if err := c.kv.Put(ctx, store.KeySyncState, data); err != nil {
		c.logger.Error("persist sync state failed", "err", err)
	}
}

// identity returns the remote identity when sync is possible right now.
func (c *Coordinator) identity(ctx context.Context) (remote.Identity, bool) {
	if c.mirror == nil || c.sessions == nil {
		return remote.Identity{}, false
	}
	c.mu.Lock()
	online := c.state.Online
	c.mu.Unlock()
	if !online {
		return remote.Identity{}, false
	}
	sess, ok := c.sessions.Current(ctx)
	if !ok {
		return remote.Identity{}, false
	}
	return remote.Identity{Principal: sess.Principal, Token: sess.Token}, true
}

// PullIfAuthenticated fetches the remote catalog and, if one exists, makes
// it the local catalog (remote wins). It returns nil when unauthenticated,
// offline, when the remote document does not exist yet, or on any failure.
func (c *Coordinator) PullIfAuthenticated(ctx context.Context) *model.Catalog {
	id, ok := c.identity(ctx)
	if !ok {
		return nil
	}

	pulled, err := c.mirror.Get(ctx, id)
	if remote.IsNotFound(err) {
		c.logger.Debug("no remote catalog yet", "principal", id.Principal)
		return nil
	}
	if err != nil {
		c.logger.Warn("sync pull failed", "principal", id.Principal, "err", err)
		return nil
	}

	applied, err := c.local.ApplyRemote(ctx, pulled)
	if err != nil {
		c.logger.Error("applying pulled catalog failed", "err", err)
		return nil
	}

	c.mu.Lock()
	c.state.LastPulledAt = c.now()
	c.mu.Unlock()
	c.saveState(ctx)
	c.logger.Info("sync pull completed", "principal", id.Principal, "templates", applied.TemplateCount())
	return applied
}

// PushBestEffort schedules cat for upload and returns immediately. Pushes
// are sent one at a time in the order scheduled; if several are waiting
// only the newest is sent.
func (c *Coordinator) PushBestEffort(cat *model.Catalog) {
	if c.mirror == nil || cat == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued = cat
	if c.pushing {
		return
	}
	c.pushing = true
	c.done = make(chan struct{})
	go c.drain(c.done)
}

type pushOutcome int

const (
	pushed pushOutcome = iota
	pushSkipped
	pushFailed
)

func (c *Coordinator) drain(done chan struct{}) {
	defer close(done)
	for {
		c.mu.Lock()
		next := c.queued
		c.queued = nil
		if next == nil {
			c.pushing = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		// Dispatched pushes are not cancellable; the mirror bounds them.
		outcome := c.push(context.Background(), next)

		c.mu.Lock()
		switch outcome {
		case pushed:
			c.unsent = nil
			c.state.LastPushedAt = c.now()
		case pushSkipped:
			c.unsent = nil
		case pushFailed:
			if c.queued == nil {
				c.unsent = next
			}
		}
		c.mu.Unlock()
		if outcome == pushed {
			c.saveState(context.Background())
		}
	}
}

func (c *Coordinator) push(ctx context.Context, cat *model.Catalog) pushOutcome {
	if c.sessions == nil {
		return pushSkipped
	}
	if _, ok := c.sessions.Current(ctx); !ok {
		return pushSkipped
	}
	id, ok := c.identity(ctx)
	if !ok {
		// Authenticated but offline: keep it for the next reconcile.
		return pushFailed
	}

	err := c.mirror.Update(ctx, id, cat)
	if remote.IsNotFound(err) {
		err = c.mirror.Create(ctx, id, cat)
	}
	if err != nil {
		c.logger.Warn("sync push failed", "principal", id.Principal, "err", err)
		return pushFailed
	}
	c.logger.Debug("sync push completed", "principal", id.Principal)
	return pushed
}

// Reconcile bounds staleness: while online and authenticated it pulls the
// remote catalog, unless a local write has not reached the remote yet, in
// which case that write is retried instead.
func (c *Coordinator) Reconcile(ctx context.Context) {
	if _, ok := c.identity(ctx); !ok {
		return
	}
	c.mu.Lock()
	if c.pushing || c.queued != nil {
		c.mu.Unlock()
		c.logger.Debug("reconcile skipped, push pending")
		return
	}
	retry := c.unsent
	c.mu.Unlock()

	if retry != nil {
		c.logger.Info("reconcile retrying unsent push")
		c.PushBestEffort(retry)
		return
	}
	c.PullIfAuthenticated(ctx)
}

// SetOnline records network reachability. Coming back online reconciles
// immediately.
func (c *Coordinator) SetOnline(ctx context.Context, online bool) {
	c.mu.Lock()
	was := c.state.Online
	c.state.Online = online
	c.mu.Unlock()
	if online && !was {
		c.Reconcile(ctx)
	}
}

// State returns a snapshot of the sync state.
func (c *Coordinator) State(ctx context.Context) model.SyncState {
	c.mu.Lock()
	st := c.state
	st.Pending = c.pushing || c.queued != nil || c.unsent != nil
	c.mu.Unlock()
	if c.sessions != nil {
		if sess, ok := c.sessions.Current(ctx); ok {
			st.Authenticated = true
			st.Principal = sess.Principal
			st.AuthExpiry = sess.Expiry
		}
	}
	return st
}

// Flush waits until the push worker is idle or ctx is done.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start restores persisted state, pulls once, then reconciles on every
// tick until Stop is called.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := c.Restore(ctx); err != nil {
		c.logger.Error("restore sync state failed", "err", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current reconcile (if any)
// to finish. Queued pushes are left to Flush.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context) {
	c.PullIfAuthenticated(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Reconcile(ctx)
		}
	}
}
