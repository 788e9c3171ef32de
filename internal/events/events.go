// Package events defines the cross-surface message contract and the
// ChangeBus that fans catalog changes out to every open surface.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/quickreply/internal/model"
)

// Topics published on the shared bus.
const (
	TopicCatalogChanged = "qrm.catalog.changed"
	TopicAll            = "qrm.>"
)

// NoTab marks a message that names no tab. Browser tab ids are
// non-negative; -1 is the browser's own "no tab" value.
const NoTab int64 = -1

// Kind discriminates Message.
type Kind string

// Message kinds exchanged between the coordinator, overlays and the popup.
const (
	KindShow             Kind = "SHOW"              // coordinator → page
	KindHide             Kind = "HIDE"              // coordinator → page
	KindOverlayClosed    Kind = "OVERLAY_CLOSED"    // page → coordinator
	KindOverlayMinimized Kind = "OVERLAY_MINIMIZED" // page → coordinator
	KindPasteRequest     Kind = "PASTE_REQUEST"     // popup → coordinator
	KindPaste            Kind = "PASTE"             // coordinator → page
	KindCatalogChanged   Kind = "CATALOG_CHANGED"   // coordinator → all surfaces
	KindInject           Kind = "INJECT"            // coordinator → bridge
	KindToggle           Kind = "TOGGLE"            // bridge → coordinator (icon click, shortcut)
	KindNavComplete      Kind = "NAV_COMPLETE"      // bridge → coordinator
	KindTabClosed        Kind = "TAB_CLOSED"        // bridge → coordinator
	KindTabActivated     Kind = "TAB_ACTIVATED"     // bridge → coordinator
	KindAck              Kind = "ACK"               // reply to a message carrying an ID
)

// tabScoped lists the kinds that address a single tab.
var tabScoped = map[Kind]bool{
	KindShow:             true,
	KindHide:             true,
	KindOverlayClosed:    true,
	KindOverlayMinimized: true,
	KindPaste:            true,
	KindInject:           true,
	KindToggle:           true,
	KindNavComplete:      true,
	KindTabClosed:        true,
	KindTabActivated:     true,
}

var known = map[Kind]bool{
	KindPasteRequest:   true,
	KindCatalogChanged: true,
	KindAck:            true,
}

func init() {
	for k := range tabScoped {
		known[k] = true
	}
}

// Message is the single tagged union carried over every cross-process
// channel. Only the fields relevant to Type are set.
type Message struct {
	Type      Kind           `json:"type"`
	ID        string         `json:"id,omitempty"` // correlates INJECT with its ACK
	TabID     int64          `json:"tabId"`
	Text      string         `json:"text,omitempty"`
	Minimized bool           `json:"minimized,omitempty"`
	Catalog   *model.Catalog `json:"catalog,omitempty"`
	Origin    string         `json:"origin,omitempty"` // bus instance that published it
}

// wireMessage has Message's fields without its methods.
type wireMessage Message

// UnmarshalJSON decodes a message. A missing tabId decodes as NoTab, so tab
// 0 stays distinguishable from no tab at all.
func (m *Message) UnmarshalJSON(data []byte) error {
	w := wireMessage{TabID: NoTab}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message(w)
	return nil
}

// Validate checks that the message is a known kind carrying its required fields.
func (m Message) Validate() error {
	if !known[m.Type] {
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	if tabScoped[m.Type] && m.TabID < 0 {
		return fmt.Errorf("%s: tabId is required", m.Type)
	}
	switch m.Type {
	case KindCatalogChanged:
		if m.Catalog == nil {
			return fmt.Errorf("%s: catalog is required", m.Type)
		}
	case KindAck:
		if m.ID == "" {
			return fmt.Errorf("%s: id is required", m.Type)
		}
	}
	return nil
}

