// Package remote implements the optional network replica of the catalog:
// one whole document per authenticated principal.
package remote

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/quickreply/internal/model"
)

// ErrNotFound is returned (wrapped in a *model.SyncError) when the
// principal's document does not exist yet.
var ErrNotFound = errors.New("remote document not found")

// Identity addresses the remote document and authorizes access to it.
type Identity struct {
	Principal string
	Token     string
}

// Mirror is a whole-document remote replica. All errors are *model.SyncError;
// implementations enforce their own timeouts.
type Mirror interface {
	Get(ctx context.Context, id Identity) (*model.Catalog, error)
	// Update replaces an existing document, returning ErrNotFound if absent.
	Update(ctx context.Context, id Identity, c *model.Catalog) error
	// Create writes the document for the first time.
	Create(ctx context.Context, id Identity, c *model.Catalog) error
}

// IsNotFound reports whether err says the remote document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func syncErr(op string, status int, err error) error {
	return &model.SyncError{Op: op, StatusCode: status, Err: err}
}
