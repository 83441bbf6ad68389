package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweetpotato0/pinecone/errors"
)

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator collects field errors so a bad configuration is reported in one go.
type Validator struct {
	errors []ValidationError
}

// NewValidator returns an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) check(ok bool, field, format string, args ...any) *Validator {
	if !ok {
		v.errors = append(v.errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	return v
}

// RequireNonEmpty rejects blank strings.
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	return v.check(strings.TrimSpace(value) != "", field, "value cannot be empty")
}

// RequirePositive rejects values <= 0.
func (v *Validator) RequirePositive(field string, value int) *Validator {
	return v.check(value > 0, field, "value must be positive, got %d", value)
}

// RequirePositiveDuration rejects durations <= 0.
func (v *Validator) RequirePositiveDuration(field string, value time.Duration) *Validator {
	return v.check(value > 0, field, "value must be positive, got %s", value)
}

// ValidateRange requires min <= value <= max.
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	return v.check(value >= min && value <= max, field, "value must be between %d and %d, got %d", min, max, value)
}

// ValidateFloatRange requires min <= value <= max.
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	return v.check(value >= min && value <= max, field, "value must be between %.2f and %.2f, got %.2f", min, max, value)
}

// ValidateOneOf requires value to be one of allowed.
func (v *Validator) ValidateOneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	return v.check(false, field, "value must be one of %s, got %q", strings.Join(allowed, ", "), value)
}

// ValidateCommandNames requires a non-empty list of bare program names:
// no paths, arguments or shell metacharacters.
func (v *Validator) ValidateCommandNames(field string, names []string) *Validator {
	if len(names) == 0 {
		return v.check(false, field, "at least one command is required")
	}
	for i, name := range names {
		v.check(name != "" && !strings.ContainsAny(name, " \t/;|&`$<>"), fmt.Sprintf("%s[%d]", field, i),
			"%q is not a bare command name", name)
	}
	return v
}

// Fail records an error no helper covers.
func (v *Validator) Fail(field, message string) *Validator {
	return v.check(false, field, "%s", message)
}

// HasErrors reports whether anything failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the collected errors in the order they were found.
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error folds every failure into one error wrapping ErrInvalidInput,
// or returns nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	var b strings.Builder
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	return fmt.Errorf("configuration validation failed (%w):\n%s", errors.ErrInvalidInput, b.String())
}
