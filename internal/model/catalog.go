package model

import (
	"time"
)

// Template is a single reusable text snippet. It belongs to exactly one
// Category by containment.
type Template struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Category is a named, ordered group of templates.
type Category struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Templates []*Template `json:"templates"`
}

// Catalog is the root aggregate: the unit of local persistence and of remote
// synchronization. Category and template order is insertion order.
type Catalog struct {
	Categories []*Category `json:"categories"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Match is a single search hit carrying enough context to render it without
// a second lookup.
type Match struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	TemplateID   string `json:"templateId"`
	Title        string `json:"title"`
	Text         string `json:"text"`
}

// TemplateInput is the payload for creating a template.
type TemplateInput struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// TemplatePatch is a partial template update. Nil fields are left unchanged.
type TemplatePatch struct {
	Title *string `json:"title,omitempty"`
	Text  *string `json:"text,omitempty"`
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// Clone returns a deep copy of the category and its templates.
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}
	cp := &Category{ID: c.ID, Name: c.Name, Templates: make([]*Template, 0, len(c.Templates))}
	for _, t := range c.Templates {
		cp.Templates = append(cp.Templates, t.Clone())
	}
	return cp
}

// Clone returns a deep copy of the catalog. Values handed across package
// boundaries are always clones so callers can never mutate stored state.
func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return nil
	}
	cp := &Catalog{UpdatedAt: c.UpdatedAt, Categories: make([]*Category, 0, len(c.Categories))}
	for _, cat := range c.Categories {
		cp.Categories = append(cp.Categories, cat.Clone())
	}
	return cp
}

// FindCategory returns the category with the given id and its index, or
// (nil, -1) when absent.
func (c *Catalog) FindCategory(id string) (*Category, int) {
	for i, cat := range c.Categories {
		if cat.ID == id {
			return cat, i
		}
	}
	return nil, -1
}

// FindTemplate looks a template up by id inside this category.
func (c *Category) FindTemplate(id string) (*Template, int) {
	for i, t := range c.Templates {
		if t.ID == id {
			return t, i
		}
	}
	return nil, -1
}

// FindTemplate looks a template up across the whole catalog and returns it
// with its owning category. Template ids are unique catalog-wide.
func (c *Catalog) FindTemplate(id string) (*Template, *Category) {
	for _, cat := range c.Categories {
		if t, _ := cat.FindTemplate(id); t != nil {
			return t, cat
		}
	}
	return nil, nil
}

// TemplateCount returns the number of templates across all categories.
func (c *Catalog) TemplateCount() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Templates)
	}
	return n
}

// Repair normalizes a decoded catalog in place: nil categories and template
// slices become empty, missing ids are regenerated and missing category names
// get a placeholder. Ids must be unique across the catalog, so a repeated
// category or template id is replaced on every occurrence after the first.
// newID is called with "cat" or "tpl". Repair reports whether it changed c.
func (c *Catalog) Repair(newID func(kind string) string) bool {
	changed := false
	if c.Categories == nil {
		c.Categories = []*Category{}
		changed = true
	}
	catIDs := make(map[string]bool, len(c.Categories))
	tplIDs := make(map[string]bool)
	kept := c.Categories[:0]
	for _, cat := range c.Categories {
		if cat == nil {
			changed = true
			continue
		}
		if cat.ID == "" || catIDs[cat.ID] {
			cat.ID = newID("cat")
			changed = true
		}
		catIDs[cat.ID] = true
		if cat.Name == "" {
			cat.Name = UnnamedCategory
			changed = true
		}
		if cat.Templates == nil {
			cat.Templates = []*Template{}
			changed = true
		}
		tpls := cat.Templates[:0]
		for _, t := range cat.Templates {
			if t == nil {
				changed = true
				continue
			}
			if t.ID == "" || tplIDs[t.ID] {
				t.ID = newID("tpl")
				changed = true
			}
			tplIDs[t.ID] = true
			tpls = append(tpls, t)
		}
		cat.Templates = tpls
		kept = append(kept, cat)
	}
	c.Categories = kept
	return changed
}

// UnnamedCategory is the placeholder name given to categories decoded
// without one.
const UnnamedCategory = "Sans nom"

// SeedCatalog returns the first-run catalog: one example category with two
// templates.
func SeedCatalog(now time.Time, newID func(kind string) string) *Catalog {
	return &Catalog{
		Categories: []*Category{
			{
				ID:   newID("cat"),
				Name: "Exemples",
				Templates: []*Template{
					{
						ID:        newID("tpl"),
						Title:     "Bienvenue",
						Text:      "Bonjour,\nMerci pour votre message. Comment puis-je vous aider ?",
						UpdatedAt: now,
					},
					{
						ID:        newID("tpl"),
						Title:     "Infos Carte Étudiant",
						Text:      "Merci de fournir votre numéro d'étudiant et une pièce d'identité.",
						UpdatedAt: now,
					},
				},
			},
		},
		UpdatedAt: now,
	}
}
