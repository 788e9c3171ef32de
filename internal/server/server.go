// Package server exposes the coordinator's data API over HTTP and its
// health service over gRPC.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/quickreply/internal/catalog"
	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/presence"
)

// SyncService is the part of the sync coordinator the API drives.
type SyncService interface {
	State(ctx context.Context) model.SyncState
	PullIfAuthenticated(ctx context.Context) *model.Catalog
	SetOnline(ctx context.Context, online bool)
}

// OverlayService is the part of the overlay manager the API drives.
type OverlayService interface {
	Tracked() []model.OverlayRecord
	Toggle(ctx context.Context, tabID int64) (bool, error)
}

// SurfaceRoster lists the connected UI surfaces.
type SurfaceRoster interface {
	Roster() []presence.Entry
}

// Server holds the components behind the HTTP API. Sync, overlays and the
// websocket endpoint are optional; their routes answer 503 when absent.
type Server struct {
	catalog  *catalog.Store
	sync     SyncService
	overlays OverlayService
	surfaces SurfaceRoster
	ws       http.Handler
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSync attaches the sync coordinator.
func WithSync(s SyncService) Option { return func(srv *Server) { srv.sync = s } }

// WithOverlays attaches the overlay manager.
func WithOverlays(o OverlayService) Option { return func(srv *Server) { srv.overlays = o } }

// WithSurfaces attaches the surface roster served at GET /v1/surfaces.
func WithSurfaces(r SurfaceRoster) Option { return func(srv *Server) { srv.surfaces = r } }

// WithWebsocket mounts h at GET /v1/ws.
func WithWebsocket(h http.Handler) Option { return func(srv *Server) { srv.ws = h } }

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(srv *Server) { srv.logger = l } }

// New returns a Server backed by the given catalog store.
func New(cat *catalog.Store, opts ...Option) *Server {
	s := &Server{catalog: cat, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
