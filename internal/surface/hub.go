// Package surface connects the coordinator to its UI surfaces (popup,
// page overlays and the privileged browser bridge) over websockets.
package surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/alfredjeanlab/quickreply/internal/events"
	"github.com/alfredjeanlab/quickreply/internal/overlay"
)

// PeerKind is the role of a connected surface.
type PeerKind string

const (
	KindPopup   PeerKind = "popup"
	KindOverlay PeerKind = "overlay"
	KindBridge  PeerKind = "bridge" // extension side: injects scripts, reports tab events
)

var (
	// ErrNotConnected means the destination surface is not ready.
	ErrNotConnected = errors.New("surface: destination not connected")
	// ErrNoBridge means no bridge is connected to perform injections.
	ErrNoBridge = errors.New("surface: no bridge connected")
	// ErrSlowPeer means the peer's send buffer is full.
	ErrSlowPeer = errors.New("surface: peer send buffer full")
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// Handler processes inbound messages. Messages are handled one at a time in
// arrival order.
type Handler interface {
	Handle(ctx context.Context, p *Peer, msg events.Message)
}

// Presence receives connection lifecycle and activity reports.
type Presence interface {
	Connected(peerID, kind string, tabID int64)
	Seen(peerID, msgType string)
	Disconnected(peerID string)
}

// Peer is one connected surface.
type Peer struct {
	ID    string
	Kind  PeerKind
	TabID int64 // set for overlays

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	once sync.Once
}

type inbound struct {
	peer *Peer
	msg  events.Message
}

// Hub tracks connected peers and routes messages to them. It implements
// overlay.Pages.
type Hub struct {
	logger        *slog.Logger
	upgrader      websocket.Upgrader
	injectTimeout time.Duration

	mu       sync.RWMutex
	peers    map[*Peer]bool
	overlays map[int64]*Peer
	bridge   *Peer
	waiters  map[string]chan struct{}
	arrivals map[int64][]chan struct{}

	handler  Handler
	presence Presence
	inbound  chan inbound
}

var _ overlay.Pages = (*Hub)(nil)
var _ overlay.Liveness = (*Hub)(nil)

// NewHub creates a hub. checkOrigin may be nil to accept any origin.
func NewHub(logger *slog.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		injectTimeout: 5 * time.Second,
		peers:         make(map[*Peer]bool),
		overlays:      make(map[int64]*Peer),
		waiters:       make(map[string]chan struct{}),
		arrivals:      make(map[int64][]chan struct{}),
		inbound:       make(chan inbound, 256),
	}
}

// SetHandler sets the inbound message handler. Call before Run.
func (h *Hub) SetHandler(handler Handler) { h.handler = handler }

// SetPresence sets the roster that is told about peers. Call before serving.
func (h *Hub) SetPresence(p Presence) { h.presence = p }

// SetInjectTimeout bounds how long Inject waits for the bridge's ACK and
// the injected overlay's connection.
func (h *Hub) SetInjectTimeout(d time.Duration) { h.injectTimeout = d }

// Run dispatches inbound messages to the handler until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-h.inbound:
			if h.handler != nil {
				h.handler.Handle(ctx, in.peer, in.msg)
			}
		}
	}
}

// ServeWS upgrades the request and registers the peer described by the
// kind and tab query parameters.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	kind := PeerKind(r.URL.Query().Get("kind"))
	var tabID int64
	switch kind {
	case KindPopup, KindBridge:
	case KindOverlay:
		id, err := strconv.ParseInt(r.URL.Query().Get("tab"), 10, 64)
		if err != nil || id < 0 {
			http.Error(w, `{"error":"overlay peers need a tab id"}`, http.StatusBadRequest)
			return
		}
		tabID = id
	default:
		http.Error(w, `{"error":"kind must be popup, overlay or bridge"}`, http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	p := &Peer{
		ID:    uuid.NewString(),
		Kind:  kind,
		TabID: tabID,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		hub:   h,
	}
	h.register(p)

	go p.writePump()
	go p.readPump()
}

func (h *Hub) register(p *Peer) {
	h.mu.Lock()
	h.peers[p] = true
	switch p.Kind {
	case KindOverlay:
		// A reloaded page replaces its previous overlay connection.
		if old := h.overlays[p.TabID]; old != nil {
			defer old.close()
		}
		h.overlays[p.TabID] = p
		for _, ch := range h.arrivals[p.TabID] {
			close(ch)
		}
		delete(h.arrivals, p.TabID)
	case KindBridge:
		if old := h.bridge; old != nil {
			defer old.close()
		}
		h.bridge = p
	}
	h.mu.Unlock()
	if h.presence != nil {
		h.presence.Connected(p.ID, string(p.Kind), p.TabID)
	}
	h.logger.Info("surface connected", "peer", p.ID, "kind", p.Kind, "tab", p.TabID)
}

func (h *Hub) unregister(p *Peer) {
	h.mu.Lock()
	if !h.peers[p] {
		h.mu.Unlock()
		return
	}
	delete(h.peers, p)
	if h.overlays[p.TabID] == p {
		delete(h.overlays, p.TabID)
	}
	if h.bridge == p {
		h.bridge = nil
	}
	h.mu.Unlock()
	p.close()
	if h.presence != nil {
		h.presence.Disconnected(p.ID)
	}
	h.logger.Info("surface disconnected", "peer", p.ID, "kind", p.Kind, "tab", p.TabID)
}

func (p *Peer) close() {
	p.once.Do(func() {
		close(p.send)
	})
}

// enqueue hands data to the peer's write pump without blocking.
func (p *Peer) enqueue(data []byte) (err error) {
	defer func() {
		// The peer may have been closed concurrently.
		if recover() != nil {
			err = ErrNotConnected
		}
	}()
	select {
	case p.send <- data:
		return nil
	default:
		return ErrSlowPeer
	}
}

// Send delivers msg to the overlay connected for tabID.
func (h *Hub) Send(ctx context.Context, tabID int64, msg events.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	p := h.overlays[tabID]
	h.mu.RUnlock()
	if p == nil {
		return fmt.Errorf("tab %d: %w", tabID, ErrNotConnected)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	return p.enqueue(data)
}

// Inject asks the bridge to inject the overlay script into tabID, then
// waits for the bridge's ACK and for the injected overlay to connect. A tab
// whose overlay is already connected needs nothing.
func (h *Hub) Inject(ctx context.Context, tabID int64) error {
	h.mu.Lock()
	if h.overlays[tabID] != nil {
		h.mu.Unlock()
		return nil
	}
	bridge := h.bridge
	if bridge == nil {
		h.mu.Unlock()
		return ErrNoBridge
	}
	id := uuid.NewString()
	ack := make(chan struct{})
	h.waiters[id] = ack
	arrived := make(chan struct{})
	h.arrivals[tabID] = append(h.arrivals[tabID], arrived)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.waiters, id)
		h.dropArrival(tabID, arrived)
		h.mu.Unlock()
	}()

	data, err := json.Marshal(events.Message{Type: events.KindInject, ID: id, TabID: tabID})
	if err != nil {
		return fmt.Errorf("marshaling inject: %w", err)
	}
	if err := bridge.enqueue(data); err != nil {
		return err
	}

	timer := time.NewTimer(h.injectTimeout)
	defer timer.Stop()
	acked := false
	for {
		select {
		case <-arrived:
			return nil
		case <-ack:
			acked = true
			ack = nil
		case <-timer.C:
			if !acked {
				return fmt.Errorf("inject tab %d: no ack within %s", tabID, h.injectTimeout)
			}
			return fmt.Errorf("inject tab %d: overlay did not connect within %s: %w", tabID, h.injectTimeout, ErrNotConnected)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dropArrival removes ch from the tab's arrival waiters. Caller holds h.mu.
func (h *Hub) dropArrival(tabID int64, ch chan struct{}) {
	list := h.arrivals[tabID]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(h.arrivals, tabID)
		return
	}
	h.arrivals[tabID] = list
}

// Ack resolves the Inject waiting on id. Unknown ids are ignored.
func (h *Hub) Ack(id string) {
	h.mu.Lock()
	ch, ok := h.waiters[id]
	if ok {
		delete(h.waiters, id)
	}
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Alive reports whether an overlay is connected for tabID.
func (h *Hub) Alive(tabID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.overlays[tabID] != nil
}

// Broadcast sends msg to every connected peer. Slow peers are skipped.
func (h *Hub) Broadcast(msg events.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshaling broadcast", "err", err)
		return
	}
	h.mu.RLock()
	peers := make([]*Peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()

	for _, p := range peers {
		if err := p.enqueue(data); err != nil {
			h.logger.Warn("broadcast skipped peer", "peer", p.ID, "err", err)
		}
	}
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (p *Peer) readPump() {
	defer func() {
		p.hub.unregister(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				p.hub.logger.Warn("surface read failed", "peer", p.ID, "err", err)
			}
			return
		}

		var msg events.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			p.hub.logger.Warn("dropping undecodable message", "peer", p.ID, "err", err)
			continue
		}
		// An overlay speaks only for its own tab.
		if p.Kind == KindOverlay {
			msg.TabID = p.TabID
		}
		if err := msg.Validate(); err != nil {
			p.hub.logger.Warn("dropping invalid message", "peer", p.ID, "err", err)
			continue
		}
		if p.hub.presence != nil {
			p.hub.presence.Seen(p.ID, string(msg.Type))
		}
		if msg.Type == events.KindAck {
			// Resolved here so an Inject blocking the dispatch loop can finish.
			p.hub.Ack(msg.ID)
			continue
		}
		p.hub.inbound <- inbound{peer: p, msg: msg}
	}
}

func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
