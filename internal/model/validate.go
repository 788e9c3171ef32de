package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// maxNameLen bounds category names and template titles, in runes.
const maxNameLen = 200

// ValidateCategoryName checks a (trimmed) category name.
func ValidateCategoryName(name string) error {
	var ve ValidationError
	checkName(&ve, "name", name)
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateTemplateInput checks the payload of a new template. Text may be
// empty; the title may not.
func ValidateTemplateInput(in TemplateInput) error {
	var ve ValidationError
	checkName(&ve, "title", in.Title)
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateTemplatePatch checks the fields present in a patch.
func ValidateTemplatePatch(p TemplatePatch) error {
	var ve ValidationError
	if p.Title != nil {
		checkName(&ve, "title", *p.Title)
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func checkName(ve *ValidationError, field, value string) {
	v := strings.TrimSpace(value)
	if v == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: "is required"})
	} else if len([]rune(v)) > maxNameLen {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be %d characters or fewer", maxNameLen),
		})
	}
}

// ValidateCatalog checks a decoded catalog before it replaces the stored one:
// the categories array must be present, every category and template must
// carry an id, and template ids must be unique across the whole catalog.
func ValidateCatalog(c *Catalog) error {
	var ve ValidationError
	if c == nil || c.Categories == nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "categories", Message: "must be an array"})
		return &ve
	}

	catIDs := make(map[string]bool, len(c.Categories))
	tplIDs := make(map[string]bool)
	for i, cat := range c.Categories {
		if cat == nil {
			ve.Errors = append(ve.Errors, FieldError{Field: fmt.Sprintf("categories[%d]", i), Message: "must be an object"})
			continue
		}
		if cat.ID == "" {
			ve.Errors = append(ve.Errors, FieldError{Field: fmt.Sprintf("categories[%d].id", i), Message: "is required"})
		} else if catIDs[cat.ID] {
			ve.Errors = append(ve.Errors, FieldError{Field: fmt.Sprintf("categories[%d].id", i), Message: fmt.Sprintf("duplicate id %q", cat.ID)})
		}
		catIDs[cat.ID] = true

		for j, t := range cat.Templates {
			field := fmt.Sprintf("categories[%d].templates[%d]", i, j)
			if t == nil {
				ve.Errors = append(ve.Errors, FieldError{Field: field, Message: "must be an object"})
				continue
			}
			if t.ID == "" {
				ve.Errors = append(ve.Errors, FieldError{Field: field + ".id", Message: "is required"})
				continue
			}
			if tplIDs[t.ID] {
				ve.Errors = append(ve.Errors, FieldError{Field: field + ".id", Message: fmt.Sprintf("duplicate id %q", t.ID)})
			}
			tplIDs[t.ID] = true
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
