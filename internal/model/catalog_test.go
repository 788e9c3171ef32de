package model

import (
	"testing"
	"time"
)

func TestSeedCatalog(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := SeedCatalog(now, seqID())

	if len(c.Categories) != 1 {
		t.Fatalf("expected 1 seed category, got %d", len(c.Categories))
	}
	cat := c.Categories[0]
	if cat.Name != "Exemples" {
		t.Errorf("seed category name = %q", cat.Name)
	}
	if len(cat.Templates) != 2 || cat.Templates[0].Title != "Bienvenue" {
		t.Fatalf("unexpected seed templates: %+v", cat.Templates)
	}
	if !c.UpdatedAt.Equal(now) || !cat.Templates[0].UpdatedAt.Equal(now) {
		t.Error("seed timestamps should equal now")
	}
}

func TestClone_IsDeep(t *testing.T) {
	c := SeedCatalog(time.Now(), seqID())
	cp := c.Clone()

	cp.Categories[0].Name = "changed"
	cp.Categories[0].Templates[0].Title = "changed"
	cp.Categories[0].Templates = append(cp.Categories[0].Templates, &Template{ID: "x"})

	if c.Categories[0].Name != "Exemples" {
		t.Error("category name leaked through clone")
	}
	if c.Categories[0].Templates[0].Title != "Bienvenue" {
		t.Error("template title leaked through clone")
	}
	if len(c.Categories[0].Templates) != 2 {
		t.Error("template slice leaked through clone")
	}
	if (*Catalog)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestFindTemplate_AcrossCategories(t *testing.T) {
	c := &Catalog{Categories: []*Category{
		{ID: "cat-a", Templates: []*Template{{ID: "tpl-1"}}},
		{ID: "cat-b", Templates: []*Template{{ID: "tpl-2"}, {ID: "tpl-3"}}},
	}}

	tpl, owner := c.FindTemplate("tpl-3")
	if tpl == nil || owner.ID != "cat-b" {
		t.Fatalf("FindTemplate(tpl-3) = %v, %v", tpl, owner)
	}
	if tpl, owner := c.FindTemplate("missing"); tpl != nil || owner != nil {
		t.Error("missing template should return nils")
	}
	if _, idx := c.FindCategory("cat-b"); idx != 1 {
		t.Errorf("FindCategory index = %d, want 1", idx)
	}
	if c.TemplateCount() != 3 {
		t.Errorf("TemplateCount = %d, want 3", c.TemplateCount())
	}
}

func TestRepair(t *testing.T) {
	c := &Catalog{Categories: []*Category{
		{Name: "", Templates: nil},
		nil,
		{ID: "cat-x", Name: "Keep", Templates: []*Template{{Title: "no id"}, nil}},
	}}
	if !c.Repair(seqID()) {
		t.Error("Repair should report a change")
	}

	if len(c.Categories) != 2 {
		t.Fatalf("expected nil category dropped, got %d", len(c.Categories))
	}
	first := c.Categories[0]
	if first.ID == "" || first.Name != UnnamedCategory || first.Templates == nil {
		t.Errorf("first category not repaired: %+v", first)
	}
	second := c.Categories[1]
	if len(second.Templates) != 1 || second.Templates[0].ID == "" {
		t.Errorf("templates not repaired: %+v", second.Templates)
	}

	empty := &Catalog{}
	empty.Repair(seqID())
	if empty.Categories == nil {
		t.Error("nil categories should become an empty slice")
	}
}

func TestRepair_CanonicalIsUnchanged(t *testing.T) {
	c := SeedCatalog(time.Now(), seqID())
	if c.Repair(seqID()) {
		t.Error("a canonical catalog needs no repair")
	}
}

func TestRepair_ReassignsDuplicateIDs(t *testing.T) {
	c := &Catalog{Categories: []*Category{
		{ID: "cat-a", Name: "A", Templates: []*Template{{ID: "dup"}, {ID: "dup"}}},
		{ID: "cat-a", Name: "B", Templates: []*Template{{ID: "dup"}}},
	}}
	if !c.Repair(seqID()) {
		t.Fatal("duplicates should be reported as a change")
	}
	if c.Categories[0].ID != "cat-a" || c.Categories[1].ID == "cat-a" {
		t.Errorf("category ids = %s, %s", c.Categories[0].ID, c.Categories[1].ID)
	}
	if c.Categories[0].Templates[0].ID != "dup" {
		t.Error("first template occurrence should keep its id")
	}
	if err := ValidateCatalog(c); err != nil {
		t.Errorf("repaired catalog should validate: %v", err)
	}
}
