package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alfredjeanlab/quickreply/internal/store"
)

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Get(ctx, store.KeyCatalog); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get on empty store: got %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, store.KeyCatalog, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, store.KeyCatalog, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Put (overwrite): %v", err)
	}
	got, err := s.Get(ctx, store.KeyCatalog)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("Get = %q, want overwritten value", got)
	}

	if err := s.Delete(ctx, store.KeyCatalog); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, store.KeyCatalog); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after Delete: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "qrm.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put(ctx, store.KeyOverlays, []byte(`[{"tabId":7,"visible":true}]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, store.KeyOverlays)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != `[{"tabId":7,"visible":true}]` {
		t.Errorf("Get after reopen = %q", got)
	}
}
