// Package catalog implements the local-first DataStore: the durable catalog
// of categorized templates and its load-mutate-save mutators.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/quickreply/internal/idgen"
	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/store"
)

// Notifier receives every new catalog after a successful write.
type Notifier interface {
	Publish(ctx context.Context, c *model.Catalog)
}

// WriteHook is called with the new catalog after every local write that
// should be mirrored remotely. Hooks must not block.
type WriteHook func(c *model.Catalog)

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets the change notifier (normally the ChangeBus).
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithWriteHook registers a hook run after each local write.
func WithWriteHook(h WriteHook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, h) }
}

// WithClock overrides the time source used for updatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation; newID is called with "cat" or "tpl".
func WithIDGenerator(newID func(kind string) string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is the DataStore. All mutators are serialized: each performs its
// load-mutate-save as one unit, so writes from one caller are applied in
// the order issued.
type Store struct {
	kv       store.Store
	notifier Notifier
	hooks    []WriteHook
	now      func() time.Time
	newID    func(kind string) string
	logger   *slog.Logger

	mu sync.Mutex
	// notifyMu is taken before mu is released so notifications leave in
	// write order while handlers remain free to call Load.
	notifyMu sync.Mutex
}

// New creates a DataStore over the given key-value store.
func New(kv store.Store, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  idgen.ForKind,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddWriteHook registers a write hook after construction. It is used to
// wire in the sync coordinator, which itself depends on the Store.
func (s *Store) AddWriteHook(h WriteHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, h)
	s.mu.Unlock()
}

// Load returns the current catalog. A missing or malformed value is replaced
// by the seed catalog, which is persisted before Load returns.
func (s *Store) Load(ctx context.Context) (*model.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

func (s *Store) load(ctx context.Context) (*model.Catalog, error) {
	data, err := s.kv.Get(ctx, store.KeyCatalog)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, &model.StorageError{Op: "get catalog", Err: err}
	}

	var c *model.Catalog
	if err == nil {
		var decoded model.Catalog
		if jerr := json.Unmarshal(data, &decoded); jerr != nil {
			s.logger.Warn("stored catalog is unreadable, reseeding", "err", jerr)
		} else if decoded.Categories != nil {
			c = &decoded
		}
	}

	if c == nil {
		c = model.SeedCatalog(s.now(), s.newID)
		if err := s.put(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}

	// Repaired ids must survive the next read, or id-addressed mutators
	// would never find them.
	if c.Repair(s.newID) {
		s.logger.Info("repaired stored catalog")
		if err := s.put(ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s *Store) put(ctx context.Context, c *model.Catalog) error {
	data, err := json.Marshal(c)
	if err != nil {
		return &model.StorageError{Op: "encode catalog", Err: err}
	}
	if err := s.kv.Put(ctx, store.KeyCatalog, data); err != nil {
		return &model.StorageError{Op: "put catalog", Err: err}
	}
	return nil
}

// later returns now unless prev is after it, keeping stamps non-decreasing.
func later(now, prev time.Time) time.Time {
	if prev.After(now) {
		return prev
	}
	return now
}

// mutation reports whether fn changed the catalog.
type mutation func(c *model.Catalog, now time.Time) (bool, error)

// write runs fn as one serialized load-mutate-save unit. When fn reports a
// change the catalog is stamped, persisted and then announced; push controls
// whether write hooks run.
func (s *Store) write(ctx context.Context, push bool, fn mutation) (*model.Catalog, bool, error) {
	s.mu.Lock()
	c, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	now := s.now()
	changed, err := fn(c, now)
	if err != nil || !changed {
		s.mu.Unlock()
		return c, false, err
	}
	c.UpdatedAt = later(now, c.UpdatedAt)
	return s.commit(ctx, c, push)
}

// replace swaps in a whole document, keeping its own updatedAt unless the
// stored one is later.
func (s *Store) replace(ctx context.Context, push bool, next *model.Catalog) (*model.Catalog, error) {
	s.mu.Lock()
	cur, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	c := next.Clone()
	c.Repair(s.newID)
	c.UpdatedAt = later(c.UpdatedAt, cur.UpdatedAt)
	c, _, err = s.commit(ctx, c, push)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// commit persists c and announces it. It must be called with mu held and
// releases it.
func (s *Store) commit(ctx context.Context, c *model.Catalog, push bool) (*model.Catalog, bool, error) {
	if err := s.put(ctx, c); err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	hooks := s.hooks

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if s.notifier != nil {
		s.notifier.Publish(ctx, c.Clone())
	}
	if push {
		for _, h := range hooks {
			h(c.Clone())
		}
	}
	return c, true, nil
}

// Save replaces the stored catalog with next and stamps it with the current
// time, never moving updatedAt backwards.
func (s *Store) Save(ctx context.Context, next *model.Catalog) error {
	if err := model.ValidateCatalog(next); err != nil {
		return err
	}
	_, _, err := s.write(ctx, true, func(c *model.Catalog, _ time.Time) (bool, error) {
		cp := next.Clone()
		cp.Repair(s.newID)
		c.Categories = cp.Categories
		return true, nil
	})
	return err
}

// ApplyRemote replaces the local catalog with one pulled from the remote
// mirror (remote wins). Surfaces are notified but no push is triggered.
// The stored result is returned.
func (s *Store) ApplyRemote(ctx context.Context, remote *model.Catalog) (*model.Catalog, error) {
	if remote == nil {
		return nil, errors.New("apply remote: nil catalog")
	}
	return s.replace(ctx, false, remote)
}

// AddCategory appends a new, empty category. The name is trimmed.
func (s *Store) AddCategory(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if err := model.ValidateCategoryName(name); err != nil {
		return nil, err
	}
	var added *model.Category
	_, _, err := s.write(ctx, true, func(c *model.Catalog, _ time.Time) (bool, error) {
		added = &model.Category{ID: s.newID("cat"), Name: name, Templates: []*model.Template{}}
		c.Categories = append(c.Categories, added)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return added.Clone(), nil
}

// RenameCategory renames a category. A missing id yields (nil, nil).
func (s *Store) RenameCategory(ctx context.Context, id, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if err := model.ValidateCategoryName(name); err != nil {
		return nil, err
	}
	var renamed *model.Category
	_, _, err := s.write(ctx, true, func(c *model.Catalog, _ time.Time) (bool, error) {
		cat, _ := c.FindCategory(id)
		if cat == nil {
			return false, nil
		}
		cat.Name = name
		renamed = cat
		return true, nil
	})
	if err != nil || renamed == nil {
		return nil, err
	}
	return renamed.Clone(), nil
}

// UpsertCategory inserts the category, or replaces the one with the same id
// in place. Its templates are stamped; template ids owned by other
// categories are rejected.
func (s *Store) UpsertCategory(ctx context.Context, in *model.Category) (*model.Category, error) {
	if in == nil {
		return nil, &model.ValidationError{Errors: []model.FieldError{{Field: "category", Message: "is required"}}}
	}
	next := in.Clone()
	next.Name = strings.TrimSpace(next.Name)
	if err := model.ValidateCategoryName(next.Name); err != nil {
		return nil, err
	}
	if next.ID == "" {
		next.ID = s.newID("cat")
	}

	_, _, err := s.write(ctx, true, func(c *model.Catalog, now time.Time) (bool, error) {
		seen := make(map[string]bool, len(next.Templates))
		kept := next.Templates[:0]
		for _, t := range next.Templates {
			if t == nil {
				continue
			}
			if t.ID == "" {
				t.ID = s.newID("tpl")
			}
			if seen[t.ID] {
				return false, duplicateTemplate(t.ID)
			}
			if _, owner := c.FindTemplate(t.ID); owner != nil && owner.ID != next.ID {
				return false, duplicateTemplate(t.ID)
			}
			seen[t.ID] = true
			t.UpdatedAt = later(now, t.UpdatedAt)
			kept = append(kept, t)
		}
		next.Templates = kept

		if _, idx := c.FindCategory(next.ID); idx >= 0 {
			c.Categories[idx] = next
		} else {
			c.Categories = append(c.Categories, next)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

func duplicateTemplate(id string) error {
	return &model.ValidationError{Errors: []model.FieldError{{
		Field:   "templates",
		Message: fmt.Sprintf("template id %q already exists", id),
	}}}
}

// DeleteCategory removes a category and all of its templates. Deleting a
// missing category is a no-op that returns false.
func (s *Store) DeleteCategory(ctx context.Context, id string) (bool, error) {
	_, changed, err := s.write(ctx, true, func(c *model.Catalog, _ time.Time) (bool, error) {
		_, idx := c.FindCategory(id)
		if idx < 0 {
			return false, nil
		}
		c.Categories = append(c.Categories[:idx], c.Categories[idx+1:]...)
		return true, nil
	})
	return changed, err
}

// AddTemplate appends a template to a category. A missing category yields
// (nil, nil).
func (s *Store) AddTemplate(ctx context.Context, categoryID string, in model.TemplateInput) (*model.Template, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := model.ValidateTemplateInput(in); err != nil {
		return nil, err
	}
	var added *model.Template
	_, _, err := s.write(ctx, true, func(c *model.Catalog, now time.Time) (bool, error) {
		cat, _ := c.FindCategory(categoryID)
		if cat == nil {
			return false, nil
		}
		added = &model.Template{ID: s.newID("tpl"), Title: in.Title, Text: in.Text, UpdatedAt: now}
		cat.Templates = append(cat.Templates, added)
		return true, nil
	})
	if err != nil || added == nil {
		return nil, err
	}
	return added.Clone(), nil
}

// UpdateTemplate applies a partial update. Missing ids yield (nil, nil).
func (s *Store) UpdateTemplate(ctx context.Context, categoryID, templateID string, patch model.TemplatePatch) (*model.Template, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if err := model.ValidateTemplatePatch(patch); err != nil {
		return nil, err
	}
	var updated *model.Template
	_, _, err := s.write(ctx, true, func(c *model.Catalog, now time.Time) (bool, error) {
		cat, _ := c.FindCategory(categoryID)
		if cat == nil {
			return false, nil
		}
		t, _ := cat.FindTemplate(templateID)
		if t == nil {
			return false, nil
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Text != nil {
			t.Text = *patch.Text
		}
		t.UpdatedAt = later(now, t.UpdatedAt)
		updated = t
		return true, nil
	})
	if err != nil || updated == nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// UpsertTemplate inserts the template into a category or replaces the one
// with the same id. A template with that id in another category is moved,
// so ids stay unique catalog-wide. A missing category yields (nil, nil).
func (s *Store) UpsertTemplate(ctx context.Context, categoryID string, in *model.Template) (*model.Template, error) {
	if in == nil {
		return nil, &model.ValidationError{Errors: []model.FieldError{{Field: "template", Message: "is required"}}}
	}
	next := in.Clone()
	next.Title = strings.TrimSpace(next.Title)
	if err := model.ValidateTemplateInput(model.TemplateInput{Title: next.Title, Text: next.Text}); err != nil {
		return nil, err
	}
	if next.ID == "" {
		next.ID = s.newID("tpl")
	}

	var stored *model.Template
	_, _, err := s.write(ctx, true, func(c *model.Catalog, now time.Time) (bool, error) {
		cat, _ := c.FindCategory(categoryID)
		if cat == nil {
			return false, nil
		}
		next.UpdatedAt = later(now, next.UpdatedAt)
		if _, idx := cat.FindTemplate(next.ID); idx >= 0 {
			next.UpdatedAt = later(next.UpdatedAt, cat.Templates[idx].UpdatedAt)
			cat.Templates[idx] = next
		} else {
			if _, owner := c.FindTemplate(next.ID); owner != nil {
				removeTemplate(owner, next.ID)
			}
			cat.Templates = append(cat.Templates, next)
		}
		stored = next
		return true, nil
	})
	if err != nil || stored == nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func removeTemplate(cat *model.Category, id string) *model.Template {
	t, idx := cat.FindTemplate(id)
	if idx < 0 {
		return nil
	}
	cat.Templates = append(cat.Templates[:idx], cat.Templates[idx+1:]...)
	return t
}

// DeleteTemplate removes a template. Missing ids are a no-op returning false.
func (s *Store) DeleteTemplate(ctx context.Context, categoryID, templateID string) (bool, error) {
	_, changed, err := s.write(ctx, true, func(c *model.Catalog, _ time.Time) (bool, error) {
		cat, _ := c.FindCategory(categoryID)
		if cat == nil {
			return false, nil
		}
		return removeTemplate(cat, templateID) != nil, nil
	})
	return changed, err
}

// MoveTemplate moves a template to the end of another category, keeping its
// id. Missing ids yield (nil, nil); moving into the owning category is a
// no-op that returns the template unchanged.
func (s *Store) MoveTemplate(ctx context.Context, templateID, toCategoryID string) (*model.Template, error) {
	var moved *model.Template
	_, _, err := s.write(ctx, true, func(c *model.Catalog, now time.Time) (bool, error) {
		dest, _ := c.FindCategory(toCategoryID)
		t, owner := c.FindTemplate(templateID)
		if dest == nil || t == nil {
			return false, nil
		}
		moved = t
		if owner.ID == dest.ID {
			return false, nil
		}
		removeTemplate(owner, templateID)
		t.UpdatedAt = later(now, t.UpdatedAt)
		dest.Templates = append(dest.Templates, t)
		return true, nil
	})
	if err != nil || moved == nil {
		return nil, err
	}
	return moved.Clone(), nil
}

// Search returns templates whose title, text or category name contains the
// query, ignoring case. A blank query matches nothing.
func (s *Store) Search(ctx context.Context, query string) ([]model.Match, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []model.Match{}, nil
	}
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	matches := []model.Match{}
	for _, cat := range c.Categories {
		catHit := strings.Contains(strings.ToLower(cat.Name), q)
		for _, t := range cat.Templates {
			if catHit ||
				strings.Contains(strings.ToLower(t.Title), q) ||
				strings.Contains(strings.ToLower(t.Text), q) {
				matches = append(matches, model.Match{
					CategoryID:   cat.ID,
					CategoryName: cat.Name,
					TemplateID:   t.ID,
					Title:        t.Title,
					Text:         t.Text,
				})
			}
		}
	}
	return matches, nil
}

// Export returns the catalog as an indented JSON document.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// Import replaces the catalog with a previously exported document. The blob
// must decode and carry a categories array with unique ids; otherwise a
// *model.ValidationError is returned and nothing is written.
func (s *Store) Import(ctx context.Context, blob []byte) (*model.Catalog, error) {
	var in model.Catalog
	if err := json.Unmarshal(blob, &in); err != nil {
		return nil, &model.ValidationError{Errors: []model.FieldError{{
			Field:   "body",
			Message: "must be a JSON catalog document",
		}}}
	}
	if err := model.ValidateCatalog(&in); err != nil {
		return nil, err
	}

	return s.replace(ctx, true, &in)
}
