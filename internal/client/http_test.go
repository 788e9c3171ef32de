package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/quickreply/internal/catalog"
	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/presence"
	"github.com/alfredjeanlab/quickreply/internal/server"
	"github.com/alfredjeanlab/quickreply/internal/store"
)

// newTestClient starts a coordinator API over an in-memory store.
func newTestClient(t *testing.T, token string) *HTTPClient {
	t.Helper()
	srv := server.New(catalog.New(store.NewMemory()))
	ts := httptest.NewServer(srv.NewHTTPHandler(token, nil))
	t.Cleanup(ts.Close)
	return NewHTTPClient(ts.URL+"/", token)
}

func TestHTTPClient_Surfaces(t *testing.T) {
	roster := presence.New()
	roster.Connected("peer-1", "popup", 0)
	srv := server.New(catalog.New(store.NewMemory()), server.WithSurfaces(roster))
	ts := httptest.NewServer(srv.NewHTTPHandler("", nil))
	t.Cleanup(ts.Close)
	c := NewHTTPClient(ts.URL, "")

	entries, err := c.ListSurfaces(context.Background())
	if err != nil {
		t.Fatalf("ListSurfaces: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != "popup" {
		t.Fatalf("unexpected surfaces: %+v", entries)
	}

	// Overlays were not configured on this server.
	var apiErr *APIError
	if _, err := c.ListOverlays(context.Background()); !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ListOverlays without overlays = %v", err)
	}
}

func TestHTTPClient_CatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "secret")

	cat, err := c.AddCategory(ctx, "Exams")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	tpl, err := c.AddTemplate(ctx, cat.ID, model.TemplateInput{Title: "Deadline", Text: "Friday"})
	if err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}
	text := "Monday"
	if got, err := c.UpdateTemplate(ctx, cat.ID, tpl.ID, model.TemplatePatch{Text: &text}); err != nil || got.Text != "Monday" {
		t.Fatalf("UpdateTemplate = %+v, %v", got, err)
	}
	if got, err := c.RenameCategory(ctx, cat.ID, "Examens"); err != nil || got.Name != "Examens" {
		t.Fatalf("RenameCategory = %+v, %v", got, err)
	}

	matches, err := c.Search(ctx, "monday")
	if err != nil || len(matches) != 1 || matches[0].CategoryName != "Examens" {
		t.Fatalf("Search = %+v, %v", matches, err)
	}

	full, err := c.GetCatalog(ctx)
	if err != nil {
		t.Fatal(err)
	}
	seedID := full.Categories[0].ID
	if _, err := c.MoveTemplate(ctx, tpl.ID, seedID); err != nil {
		t.Fatalf("MoveTemplate: %v", err)
	}
	if ok, err := c.DeleteTemplate(ctx, seedID, tpl.ID); err != nil || !ok {
		t.Fatalf("DeleteTemplate = %v, %v", ok, err)
	}
	if ok, err := c.DeleteCategory(ctx, cat.ID); err != nil || !ok {
		t.Fatalf("DeleteCategory = %v, %v", ok, err)
	}
	if ok, err := c.DeleteCategory(ctx, cat.ID); err != nil || ok {
		t.Fatalf("second DeleteCategory = %v, %v", ok, err)
	}
}

func TestHTTPClient_ExportImport(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "")

	if _, err := c.AddCategory(ctx, "Admin"); err != nil {
		t.Fatal(err)
	}
	blob, err := c.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	other := newTestClient(t, "")
	imported, err := other.Import(ctx, blob)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(imported.Categories) != 2 || imported.Categories[1].Name != "Admin" {
		t.Fatalf("unexpected import result: %+v", imported.Categories)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, "")

	_, err := c.AddCategory(ctx, "  ")
	var ae *APIError
	if !errors.As(err, &ae) || ae.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 APIError, got %v", err)
	}
	if len(ae.Fields) != 1 || ae.Fields[0].Field != "name" {
		t.Errorf("expected name field error, got %+v", ae.Fields)
	}

	if _, err := c.RenameCategory(ctx, "missing", "x"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	// Sync and overlays are not attached to this server.
	if _, err := c.SyncStatus(ctx); !errors.As(err, &ae) || ae.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

func TestHTTPClient_Unauthorized(t *testing.T) {
	c := newTestClient(t, "secret")
	c.token = "wrong"

	if status, err := c.Health(context.Background()); err != nil || status != "ok" {
		t.Fatalf("health should be exempt: %q, %v", status, err)
	}
	_, err := c.GetCatalog(context.Background())
	var ae *APIError
	if !errors.As(err, &ae) || ae.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHealthClient(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	gs, hs := server.NewGRPCServer("secret", nil)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	hc, err := NewHealthClient(lis.Addr().String(), "secret")
	if err != nil {
		t.Fatal(err)
	}
	defer hc.Close()

	resp, err := hc.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before MarkServing, got %v", resp.GetStatus())
	}

	server.MarkServing(hs)
	resp, err = hc.Check(context.Background())
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("Check after MarkServing = %v, %v", resp, err)
	}
}
