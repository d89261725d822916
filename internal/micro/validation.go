package micro

import "strings"

// IsRequired reports whether the value has any non-whitespace content.
func IsRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}

// IsInList reports whether value is one of list.
func IsInList[T comparable](value T, list []T) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field failures. A nil value means valid input.
type ValidationErrors []ValidationError

// Add appends a failure for field.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil when no failures were collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
