package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/rubric/internal/document"
)

// Template set validation error codes (E100-E199). Document-level problems
// keep their E2xx codes from package document.
const (
	ErrUnsupportedTarget = "E100" // unsupported value passed to Validate
	ErrDuplicateTitle    = "E101" // two templates share a title
	ErrMultipleDefaults  = "E102" // more than one template is the organization default
)

// ValidationError represents a template validation error.
type ValidationError struct {
	Template string `json:"template,omitempty"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Line     int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	field := e.Field
	if e.Template != "" {
		field = e.Template + "." + e.Field
	}
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, field, e.Message)
}

// Validate validates compiled templates.
// Returns all errors found (does not fail-fast).
// Accepts *Template or []*Template; a slice is also checked as a set.
func Validate(v any) []ValidationError {
	switch t := v.(type) {
	case *Template:
		return validateTemplate(t)
	case []*Template:
		var errs []ValidationError
		for _, tmpl := range t {
			errs = append(errs, validateTemplate(tmpl)...)
		}
		return append(errs, validateSet(t)...)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedTarget,
		}}
	}
}

// validateTemplate runs document validation on one template.
func validateTemplate(t *Template) []ValidationError {
	var errs []ValidationError
	for _, e := range t.Document.Validate() {
		errs = append(errs, fromDocument(t, e))
	}
	return errs
}

func fromDocument(t *Template, e document.ValidationError) ValidationError {
	out := ValidationError{
		Template: t.Name,
		Field:    e.Field,
		Message:  e.Message,
		Code:     e.Code,
	}
	if t.Pos.IsValid() {
		out.Line = t.Pos.Line()
	}
	return out
}

// validateSet checks rules that span templates.
func validateSet(ts []*Template) []ValidationError {
	var errs []ValidationError

	// E101: titles are unique (case-insensitive)
	seen := make(map[string]string)
	for _, t := range ts {
		key := strings.ToLower(strings.TrimSpace(t.Document.Title()))
		if key == "" {
			continue
		}
		if first, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Template: t.Name,
				Field:    "title",
				Message:  fmt.Sprintf("title %q already used by template %s", t.Document.Title(), first),
				Code:     ErrDuplicateTitle,
			})
			continue
		}
		seen[key] = t.Name
	}

	// E102: at most one organization default
	var defaults []string
	for _, t := range ts {
		if t.Document.IsOrgDefault() {
			defaults = append(defaults, t.Name)
		}
	}
	if len(defaults) > 1 {
		errs = append(errs, ValidationError{
			Field:   "orgDefault",
			Message: fmt.Sprintf("only one template may be the organization default, got %s", strings.Join(defaults, ", ")),
			Code:    ErrMultipleDefaults,
		})
	}

	return errs
}
