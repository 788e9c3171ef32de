package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// seqID returns a deterministic id generator for tests.
func seqID() func(kind string) string {
	n := 0
	return func(kind string) string {
		n++
		return fmt.Sprintf("%s-%d", kind, n)
	}
}

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func TestValidateCategoryName(t *testing.T) {
	for _, tc := range []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "Exams", false},
		{"empty", "", true},
		{"whitespace only", "   \t\n ", true},
		{"too long", strings.Repeat("x", maxNameLen+1), true},
		{"at limit", strings.Repeat("é", maxNameLen), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCategoryName(tc.input)
			if tc.wantErr {
				if !hasFieldError(fieldErrors(t, err), "name") {
					t.Errorf("expected error on field 'name'")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateTemplateInput_TitleRequired(t *testing.T) {
	errs := fieldErrors(t, ValidateTemplateInput(TemplateInput{Title: " ", Text: "body"}))
	if !hasFieldError(errs, "title") {
		t.Error("expected error on field 'title'")
	}
	if err := ValidateTemplateInput(TemplateInput{Title: "Deadline"}); err != nil {
		t.Errorf("empty text should be allowed, got %v", err)
	}
}

func TestValidateTemplatePatch(t *testing.T) {
	empty := ""
	if !hasFieldError(fieldErrors(t, ValidateTemplatePatch(TemplatePatch{Title: &empty})), "title") {
		t.Error("expected error for empty title in patch")
	}
	if err := ValidateTemplatePatch(TemplatePatch{Text: &empty}); err != nil {
		t.Errorf("text-only patch should be valid, got %v", err)
	}
}

func TestValidateCatalog_MissingCategories(t *testing.T) {
	errs := fieldErrors(t, ValidateCatalog(&Catalog{}))
	if !hasFieldError(errs, "categories") {
		t.Errorf("expected categories error, got %v", errs)
	}
	fieldErrors(t, ValidateCatalog(nil))
}

func TestValidateCatalog_DuplicateTemplateAcrossCategories(t *testing.T) {
	c := &Catalog{Categories: []*Category{
		{ID: "cat-1", Name: "A", Templates: []*Template{{ID: "tpl-1", Title: "x"}}},
		{ID: "cat-2", Name: "B", Templates: []*Template{{ID: "tpl-1", Title: "y"}}},
	}}
	errs := fieldErrors(t, ValidateCatalog(c))
	if !hasFieldError(errs, "categories[1].templates[0].id") {
		t.Errorf("expected duplicate id error, got %v", errs)
	}
}

func TestValidateCatalog_Valid(t *testing.T) {
	if err := ValidateCatalog(SeedCatalog(time.Now(), seqID())); err != nil {
		t.Fatalf("seed catalog should validate: %v", err)
	}
	if err := ValidateCatalog(&Catalog{Categories: []*Category{}}); err != nil {
		t.Fatalf("empty categories array is valid: %v", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "name", Message: "is required"},
		{Field: "categories", Message: "must be an array"},
	}}
	want := "validation failed: name: is required; categories: must be an array"
	if got := ve.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("add category: %w", &StorageError{Op: "put", Err: errors.New("disk full")})
	if !IsStorage(wrapped) {
		t.Error("IsStorage should see through wrapping")
	}
	if IsValidation(wrapped) {
		t.Error("storage error is not a validation error")
	}
	if !IsValidation(fmt.Errorf("import: %w", &ValidationError{})) {
		t.Error("IsValidation should see through wrapping")
	}
	se := &SyncError{Op: "push", StatusCode: 503, Err: errors.New("unavailable")}
	if got := se.Error(); got != "sync: push: status 503: unavailable" {
		t.Errorf("SyncError.Error() = %q", got)
	}
}
