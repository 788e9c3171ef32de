package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/quickreply/internal/auth"
	"github.com/alfredjeanlab/quickreply/internal/catalog"
	"github.com/alfredjeanlab/quickreply/internal/config"
	"github.com/alfredjeanlab/quickreply/internal/events"
	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/overlay"
	"github.com/alfredjeanlab/quickreply/internal/presence"
	"github.com/alfredjeanlab/quickreply/internal/remote"
	"github.com/alfredjeanlab/quickreply/internal/server"
	"github.com/alfredjeanlab/quickreply/internal/store"
	"github.com/alfredjeanlab/quickreply/internal/store/postgres"
	"github.com/alfredjeanlab/quickreply/internal/store/sqlite"
	"github.com/alfredjeanlab/quickreply/internal/surface"
	qrmsync "github.com/alfredjeanlab/quickreply/internal/sync"
)

func defaultConfigPath() string {
	if s := os.Getenv("QRM_CONFIG"); s != "" {
		return s
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "quickreply", "config.yaml")
}

// openStore opens the postgres KV backend when a database URL is set and
// the sqlite file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return postgres.Open(ctx, cfg.DatabaseURL)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return sqlite.Open(cfg.DataPath)
}

// openMirror builds the configured remote mirror. A nil mirror disables sync.
func openMirror(ctx context.Context, cfg config.RemoteConfig) (remote.Mirror, error) {
	switch cfg.Kind {
	case "http":
		return remote.NewHTTPMirror(cfg.URL, cfg.Timeout), nil
	case "s3":
		return remote.NewS3Mirror(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint, cfg.Timeout)
	default:
		return nil, nil
	}
}

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Run the coordinator (data API, surfaces, sync)",
	GroupID:           "system",
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		kv, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := kv.Close(); err != nil {
				logger.Error("error closing store", "err", err)
			}
		}()

		// Bus: embedded or external NATS when configured, process-local otherwise.
		natsURL := cfg.NATSURL
		if cfg.NATSEmbedded {
			ns, err := events.StartEmbedded("127.0.0.1", nats.DefaultPort)
			if err != nil {
				return err
			}
			defer ns.Shutdown()
			natsURL = ns.ClientURL()
			logger.Info("embedded NATS started", "url", natsURL)
		}
		var bus *events.Bus
		if natsURL != "" {
			nc, err := events.DialNATS(natsURL)
			if err != nil {
				return err
			}
			defer func() {
				if err := nc.Close(); err != nil {
					logger.Error("error closing NATS connection", "err", err)
				}
			}()
			bus = events.NewBus(nc, logger)
			if err := bus.Bridge(ctx, nc); err != nil {
				return fmt.Errorf("bridging bus: %w", err)
			}
			logger.Info("events enabled", "nats_url", natsURL)
		} else {
			bus = events.NewBus(nil, logger)
			logger.Info("events are process-local (nats_url not set)")
		}

		cat := catalog.New(kv, catalog.WithNotifier(bus), catalog.WithLogger(logger))
		if _, err := cat.Load(ctx); err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}

		mirror, err := openMirror(ctx, cfg.Remote)
		if err != nil {
			return err
		}
		coord := qrmsync.New(cat, mirror, auth.NewSessions(kv), kv, cfg.SyncInterval, logger)
		cat.AddWriteHook(coord.PushBestEffort)

		hub := surface.NewHub(logger, nil)
		roster := presence.New()
		hub.SetPresence(roster)
		roster.StartEvictor(nil)
		overlays := overlay.New(hub, kv, logger)
		if err := overlays.Restore(ctx); err != nil {
			logger.Error("restoring overlay state failed", "err", err)
		}
		surface.NewDispatcher(overlays, hub, logger)
		go hub.Run(ctx)
		unsubscribe := bus.Subscribe(func(c *model.Catalog) {
			hub.Broadcast(events.Message{Type: events.KindCatalogChanged, Catalog: c})
		})
		defer unsubscribe()

		overlays.StartReaper(&overlay.ReaperConfig{
			SweepInterval: cfg.Overlay.ReapInterval,
			Grace:         cfg.Overlay.ReapGrace,
		})

		if mirror != nil && cfg.SyncInterval > 0 {
			coord.Start(ctx)
			logger.Info("sync started", "remote", cfg.Remote.Kind, "interval", cfg.SyncInterval)
		} else if mirror != nil {
			if err := coord.Restore(ctx); err != nil {
				logger.Error("restore sync state failed", "err", err)
			}
			coord.PullIfAuthenticated(ctx)
			logger.Info("sync enabled without periodic reconcile", "remote", cfg.Remote.Kind)
		}

		srv := server.New(cat,
			server.WithSync(coord),
			server.WithOverlays(overlays),
			server.WithSurfaces(roster),
			server.WithWebsocket(http.HandlerFunc(hub.ServeWS)),
			server.WithLogger(logger),
		)

		grpcServer, healthServer := server.NewGRPCServer(cfg.AuthToken, logger)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken, cfg.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		server.MarkServing(healthServer)
		logger.Info("quickreply coordinator started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		healthServer.Shutdown()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		grpcServer.GracefulStop()

		overlays.Stop()
		roster.Stop()
		coord.Stop()
		if err := coord.Flush(shutdownCtx); err != nil {
			logger.Warn("pending push not flushed", "err", err)
		}
		cancel()

		logger.Info("shutdown complete")
		return nil
	},
}
