package overlay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/quickreply/internal/events"
	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/store"
)

var errNotReady = errors.New("destination not ready")

// fakePages records messages and fails the first sendFailures sends.
type fakePages struct {
	mu           sync.Mutex
	sent         []events.Message
	injects      int
	sendFailures int
	gone         map[int64]bool
}

func (p *fakePages) Send(_ context.Context, _ int64, msg events.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendFailures > 0 {
		p.sendFailures--
		return errNotReady
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakePages) Inject(context.Context, int64) error {
	p.mu.Lock()
	p.injects++
	p.mu.Unlock()
	return nil
}

func (p *fakePages) Alive(tabID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.gone[tabID]
}

func (p *fakePages) messages() []events.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Message(nil), p.sent...)
}

func countKind(msgs []events.Message, kind events.Kind) int {
	n := 0
	for _, m := range msgs {
		if m.Type == kind {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T) (*Manager, *fakePages, *store.Memory) {
	t.Helper()
	pages := &fakePages{gone: map[int64]bool{}}
	kv := store.NewMemory()
	m := New(pages, kv, nil)
	t.Cleanup(m.Stop)
	return m, pages, kv
}

func TestToggleTwice_ReturnsToUntracked(t *testing.T) {
	m, pages, _ := newTestManager(t)
	ctx := context.Background()

	visible, err := m.Toggle(ctx, 42)
	if err != nil || !visible {
		t.Fatalf("first Toggle = %v, %v", visible, err)
	}
	if !m.IsVisible(42) {
		t.Error("tab should be tracked visible after first toggle")
	}

	visible, err = m.Toggle(ctx, 42)
	if err != nil || visible {
		t.Fatalf("second Toggle = %v, %v", visible, err)
	}
	if m.IsVisible(42) || len(m.Tracked()) != 0 {
		t.Error("tab should be untracked after second toggle")
	}

	msgs := pages.messages()
	if len(msgs) != 2 || msgs[0].Type != events.KindShow || msgs[1].Type != events.KindHide {
		t.Errorf("expected SHOW then HIDE, got %+v", msgs)
	}
	if pages.injects != 1 {
		t.Errorf("expected one injection, got %d", pages.injects)
	}
}

func TestNavigationComplete_ReshowsOnce(t *testing.T) {
	m, pages, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Toggle(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if err := m.OnNavigationComplete(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if got := countKind(pages.messages(), events.KindShow); got != 2 {
		t.Errorf("expected exactly one re-issued SHOW (2 total), got %d", got)
	}

	// Untracked tabs are ignored.
	if err := m.OnNavigationComplete(ctx, 8); err != nil {
		t.Fatal(err)
	}
	if got := len(pages.messages()); got != 2 {
		t.Errorf("navigation in an untracked tab should send nothing, got %d messages", got)
	}
}

func TestTabClosed_DropsSilently(t *testing.T) {
	m, pages, kv := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Toggle(ctx, 3); err != nil {
		t.Fatal(err)
	}
	before := len(pages.messages())
	if err := m.OnTabClosed(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if len(pages.messages()) != before {
		t.Error("closing a tab must not send anything")
	}
	if len(m.Tracked()) != 0 {
		t.Error("closed tab is still tracked")
	}

	restored := New(&fakePages{}, kv, nil)
	if err := restored.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	if len(restored.Tracked()) != 0 {
		t.Error("removal was not persisted")
	}
}

func TestShow_RetriesOnceAfterReinjection(t *testing.T) {
	m, pages, _ := newTestManager(t)
	ctx := context.Background()
	pages.sendFailures = 1

	visible, err := m.Toggle(ctx, 5)
	if err != nil || !visible {
		t.Fatalf("Toggle = %v, %v", visible, err)
	}
	if pages.injects != 2 {
		t.Errorf("expected a fresh injection before the retry, got %d injections", pages.injects)
	}
	if countKind(pages.messages(), events.KindShow) != 1 {
		t.Error("retried SHOW should be delivered once")
	}
}

func TestShow_SecondFailureIsNoop(t *testing.T) {
	m, pages, _ := newTestManager(t)
	ctx := context.Background()
	pages.sendFailures = 2

	visible, err := m.Toggle(ctx, 5)
	if err != nil {
		t.Fatalf("a failed show must not surface as an error: %v", err)
	}
	if visible || m.IsVisible(5) {
		t.Error("a tab whose overlay never showed must not be tracked")
	}
}

func TestOverlayClosedMatchesHide(t *testing.T) {
	m, pages, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Toggle(ctx, 9); err != nil {
		t.Fatal(err)
	}
	if err := m.OnOverlayClosed(ctx, 9); err != nil {
		t.Fatal(err)
	}
	if m.IsVisible(9) || len(m.Tracked()) != 0 {
		t.Error("in-page close should stop tracking like a hide")
	}

	// The next toggle shows again instead of hiding a closed overlay.
	visible, _ := m.Toggle(ctx, 9)
	if !visible {
		t.Error("toggle after in-page close should show")
	}
	if countKind(pages.messages(), events.KindHide) != 0 {
		t.Error("no HIDE should have been sent")
	}
}

func TestMinimized_StaysTrackedAndReshowsMinimized(t *testing.T) {
	m, pages, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Toggle(ctx, 11); err != nil {
		t.Fatal(err)
	}
	if err := m.OnMinimized(ctx, 11, true); err != nil {
		t.Fatal(err)
	}
	recs := m.Tracked()
	if len(recs) != 1 || !recs[0].Minimized || !recs[0].Visible {
		t.Fatalf("unexpected records: %+v", recs)
	}

	if err := m.OnNavigationComplete(ctx, 11); err != nil {
		t.Fatal(err)
	}
	msgs := pages.messages()
	last := msgs[len(msgs)-1]
	if last.Type != events.KindShow || !last.Minimized {
		t.Errorf("reload of a minimized overlay should re-show it minimized, got %+v", last)
	}

	// Minimize for an untracked tab is ignored.
	if err := m.OnMinimized(ctx, 99, true); err != nil {
		t.Fatal(err)
	}
	if len(m.Tracked()) != 1 {
		t.Error("minimize must not start tracking a tab")
	}
}

func TestRestore_SurvivesRestart(t *testing.T) {
	m, _, kv := newTestManager(t)
	ctx := context.Background()
	for _, tab := range []int64{30, 10, 20} {
		if _, err := m.Toggle(ctx, tab); err != nil {
			t.Fatal(err)
		}
	}

	pages := &fakePages{}
	restarted := New(pages, kv, nil)
	if err := restarted.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	recs := restarted.Tracked()
	if len(recs) != 3 || recs[0].TabID != 10 || recs[2].TabID != 30 {
		t.Fatalf("restored records = %+v", recs)
	}

	// A reload after restart re-materializes the overlay.
	if err := restarted.OnNavigationComplete(ctx, 20); err != nil {
		t.Fatal(err)
	}
	if countKind(pages.messages(), events.KindShow) != 1 {
		t.Error("restored tab should be re-shown on navigation complete")
	}
}

func TestRestore_UnreadableStartsEmpty(t *testing.T) {
	kv := store.NewMemory()
	ctx := context.Background()
	if err := kv.Put(ctx, store.KeyOverlays, []byte("{")); err != nil {
		t.Fatal(err)
	}
	m := New(&fakePages{}, kv, nil)
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(m.Tracked()) != 0 {
		t.Error("expected no records")
	}
}

func TestSweep_DropsGoneTabsAfterGrace(t *testing.T) {
	m, pages, _ := newTestManager(t)
	ctx := context.Background()
	for _, tab := range []int64{1, 2} {
		if _, err := m.Toggle(ctx, tab); err != nil {
			t.Fatal(err)
		}
	}
	pages.gone[2] = true

	goneSince := map[int64]time.Time{}
	m.sweep(pages, time.Hour, goneSince)
	if len(m.Tracked()) != 2 {
		t.Fatal("first sighting of a gone tab must only start the grace period")
	}

	goneSince[2] = time.Now().Add(-2 * time.Hour)
	m.sweep(pages, time.Hour, goneSince)
	recs := m.Tracked()
	if len(recs) != 1 || recs[0].TabID != 1 {
		t.Errorf("expected only tab 1 to remain, got %+v", recs)
	}
	if _, ok := goneSince[2]; ok {
		t.Error("reaped tab should be forgotten")
	}
}

func TestStartReaper(t *testing.T) {
	m, pages, _ := newTestManager(t)
	ctx := context.Background()
	if _, err := m.Toggle(ctx, 1); err != nil {
		t.Fatal(err)
	}
	pages.mu.Lock()
	pages.gone[1] = true
	pages.mu.Unlock()

	m.StartReaper(&ReaperConfig{SweepInterval: 10 * time.Millisecond, Grace: time.Nanosecond})
	deadline := time.Now().Add(2 * time.Second)
	for len(m.Tracked()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("reaper did not drop the gone tab")
		}
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()
	m.Stop() // idempotent
}

// failingPuts wraps a Memory store and fails Put while armed.
type failingPuts struct {
	*store.Memory
	fail bool
}

func (f *failingPuts) Put(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Put(ctx, key, value)
}

func TestStorageFailure_LeavesTrackingUnchanged(t *testing.T) {
	kv := &failingPuts{Memory: store.NewMemory()}
	m := New(&fakePages{gone: map[int64]bool{}}, kv, nil)
	ctx := context.Background()
	if _, err := m.Toggle(ctx, 1); err != nil {
		t.Fatal(err)
	}

	kv.fail = true
	visible, err := m.Toggle(ctx, 1)
	if !model.IsStorage(err) || !visible || !m.IsVisible(1) {
		t.Errorf("failed hide: visible=%v err=%v tracked=%v", visible, err, m.IsVisible(1))
	}
	visible, err = m.Toggle(ctx, 2)
	if !model.IsStorage(err) || visible || m.IsVisible(2) {
		t.Errorf("failed show: visible=%v err=%v tracked=%v", visible, err, m.IsVisible(2))
	}
	if err := m.OnMinimized(ctx, 1, true); !model.IsStorage(err) {
		t.Errorf("OnMinimized err = %v", err)
	}
	if err := m.OnTabClosed(ctx, 1); !model.IsStorage(err) {
		t.Errorf("OnTabClosed err = %v", err)
	}
	recs := m.Tracked()
	if len(recs) != 1 || recs[0].TabID != 1 || !recs[0].Visible || recs[0].Minimized {
		t.Fatalf("in-memory records changed after failed writes: %+v", recs)
	}

	kv.fail = false
	restarted := New(&fakePages{}, kv, nil)
	if err := restarted.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	got := restarted.Tracked()
	if len(got) != 1 || got[0].TabID != 1 || !got[0].Visible || got[0].Minimized {
		t.Errorf("durable records disagree with memory: %+v", got)
	}
}

func TestSweep_GraceFollowsManagerClock(t *testing.T) {
	m, pages, _ := newTestManager(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	if _, err := m.Toggle(context.Background(), 7); err != nil {
		t.Fatal(err)
	}
	pages.gone[7] = true

	goneSince := map[int64]time.Time{}
	m.sweep(pages, time.Minute, goneSince)
	if !goneSince[7].Equal(now) {
		t.Fatalf("grace should start at the manager clock, got %v", goneSince[7])
	}

	now = now.Add(59 * time.Second)
	m.sweep(pages, time.Minute, goneSince)
	if len(m.Tracked()) != 1 {
		t.Fatal("tab dropped before its grace period ended")
	}

	now = now.Add(time.Second)
	m.sweep(pages, time.Minute, goneSince)
	if len(m.Tracked()) != 0 {
		t.Error("tab should be reaped once grace has elapsed")
	}
}
