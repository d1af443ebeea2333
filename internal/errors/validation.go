package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a field-specific validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Validator collects configuration violations so a single run reports every
// problem instead of failing on the first one
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, rule, message string, value ...interface{}) {
	var valueStr string
	if len(value) > 0 {
		valueStr = fmt.Sprintf("%v", value[0])
	}

	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   valueStr,
		Rule:    rule,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// GetErrors returns all validation errors
func (v *Validator) GetErrors() []ValidationError {
	return v.errors
}

// MissingFields returns the fields that failed the required rule, in the
// order they were checked
func (v *Validator) MissingFields() []string {
	var fields []string
	for _, err := range v.errors {
		if err.Rule == "required" {
			fields = append(fields, err.Field)
		}
	}
	return fields
}

// ToAppError converts validation errors to a single configuration AppError
// whose details name every violated field
func (v *Validator) ToAppError() *AppError {
	if !v.HasErrors() {
		return nil
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}

	appErr := NewError(ErrConfigValidation, "Configuration validation failed")
	appErr.Details = strings.Join(messages, "; ")
	_ = appErr.WithContext("validation_errors", v.errors)

	return appErr
}

// RequiredEnv validates that a required environment value is set
func (v *Validator) RequiredEnv(key, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(key, "required", "required environment variable is not set", value)
	}
	return v
}

// ValidateURL validates URL format
func (v *Validator) ValidateURL(field, url string) *Validator {
	if url == "" {
		return v
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		v.AddError(field, "url_format", "URL must start with http:// or https://", url)
	}
	return v
}

// ValidateIntString validates that a raw value parses as an integer no
// smaller than min. Empty values are skipped so defaults can apply.
func (v *Validator) ValidateIntString(field, raw string, min int) *Validator {
	if raw == "" {
		return v
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		v.AddError(field, "integer_format", "must be a valid integer", raw)
		return v
	}

	if parsed < min {
		v.AddError(field, "integer_range",
			fmt.Sprintf("must be an integer >= %d", min), raw)
	}
	return v
}

// ValidateBoolString validates that a raw value parses as a boolean.
// Empty values are skipped so defaults can apply.
func (v *Validator) ValidateBoolString(field, raw string) *Validator {
	if raw == "" {
		return v
	}

	if _, err := strconv.ParseBool(raw); err != nil {
		v.AddError(field, "boolean_format", "must be a valid boolean", raw)
	}
	return v
}
