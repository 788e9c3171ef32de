// Package client provides a transport-agnostic interface for the quickreply
// coordinator and an HTTP/JSON implementation of it.
package client

import (
	"context"

	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/presence"
)

// Client is the interface the qrm CLI uses to talk to a running
// coordinator.
type Client interface {
	// Catalog
	GetCatalog(ctx context.Context) (*model.Catalog, error)
	AddCategory(ctx context.Context, name string) (*model.Category, error)
	RenameCategory(ctx context.Context, id, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) (bool, error)
	AddTemplate(ctx context.Context, categoryID string, in model.TemplateInput) (*model.Template, error)
	UpdateTemplate(ctx context.Context, categoryID, templateID string, patch model.TemplatePatch) (*model.Template, error)
	DeleteTemplate(ctx context.Context, categoryID, templateID string) (bool, error)
	MoveTemplate(ctx context.Context, templateID, toCategoryID string) (*model.Template, error)
	Search(ctx context.Context, query string) ([]model.Match, error)
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, blob []byte) (*model.Catalog, error)

	// Sync
	SyncStatus(ctx context.Context) (*model.SyncState, error)
	SyncPull(ctx context.Context) (*PullResponse, error)
	SetOnline(ctx context.Context, online bool) (*model.SyncState, error)

	// Overlays
	ListOverlays(ctx context.Context) ([]model.OverlayRecord, error)
	ToggleOverlay(ctx context.Context, tabID int64) (bool, error)
	ListSurfaces(ctx context.Context) ([]presence.Entry, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// PullResponse is the response from SyncPull.
type PullResponse struct {
	Pulled bool            `json:"pulled"`
	State  model.SyncState `json:"state"`
}
