package surface

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/quickreply/internal/events"
)

// Overlays is the overlay lifecycle surface the dispatcher drives.
type Overlays interface {
	Toggle(ctx context.Context, tabID int64) (bool, error)
	OnNavigationComplete(ctx context.Context, tabID int64) error
	OnTabClosed(ctx context.Context, tabID int64) error
	OnOverlayClosed(ctx context.Context, tabID int64) error
	OnMinimized(ctx context.Context, tabID int64, minimized bool) error
}

// Dispatcher is the single inbound message handler of the coordinator.
type Dispatcher struct {
	overlays Overlays
	hub      *Hub
	logger   *slog.Logger

	mu        sync.Mutex
	activeTab int64
}

// NewDispatcher creates a dispatcher and installs it as the hub's handler.
func NewDispatcher(overlays Overlays, hub *Hub, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{overlays: overlays, hub: hub, logger: logger, activeTab: events.NoTab}
	hub.SetHandler(d)
	return d
}

// ActiveTab returns the most recently activated tab, or events.NoTab.
func (d *Dispatcher) ActiveTab() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeTab
}

// Handle routes one inbound message.
func (d *Dispatcher) Handle(ctx context.Context, p *Peer, msg events.Message) {
	var err error
	switch msg.Type {
	case events.KindToggle:
		_, err = d.overlays.Toggle(ctx, msg.TabID)
	case events.KindNavComplete:
		err = d.overlays.OnNavigationComplete(ctx, msg.TabID)
	case events.KindTabClosed:
		d.mu.Lock()
		if d.activeTab == msg.TabID {
			d.activeTab = events.NoTab
		}
		d.mu.Unlock()
		err = d.overlays.OnTabClosed(ctx, msg.TabID)
	case events.KindOverlayClosed:
		err = d.overlays.OnOverlayClosed(ctx, msg.TabID)
	case events.KindOverlayMinimized:
		err = d.overlays.OnMinimized(ctx, msg.TabID, msg.Minimized)
	case events.KindTabActivated:
		d.mu.Lock()
		d.activeTab = msg.TabID
		d.mu.Unlock()
	case events.KindPasteRequest:
		err = d.paste(ctx, msg.Text)
	case events.KindAck:
		d.hub.Ack(msg.ID)
	case events.KindShow, events.KindHide, events.KindPaste, events.KindInject, events.KindCatalogChanged:
		d.logger.Debug("ignoring outbound-only message", "type", msg.Type, "peer", peerID(p))
	default:
		d.logger.Warn("unknown message type", "type", msg.Type, "peer", peerID(p))
	}
	if err != nil {
		d.logger.Error("handling message failed", "type", msg.Type, "tab", msg.TabID, "err", err)
	}
}

// paste forwards popup text to the active tab's overlay. Without an active
// tab the request is dropped.
func (d *Dispatcher) paste(ctx context.Context, text string) error {
	tab := d.ActiveTab()
	if tab == events.NoTab {
		d.logger.Warn("paste request without an active tab")
		return nil
	}
	return d.hub.Send(ctx, tab, events.Message{Type: events.KindPaste, TabID: tab, Text: text})
}

func peerID(p *Peer) string {
	if p == nil {
		return ""
	}
	return p.ID
}
