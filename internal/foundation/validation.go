// Package foundation provides small generic helpers shared by the launcher packages.
package foundation

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
)

// Validator represents a validation function.
type Validator[T any] func(T) ValidationResult

// ValidationResult contains the result of a validation operation.
type ValidationResult struct {
	Valid  bool
	Errors []FieldError
}

// FieldError represents a single validation failure.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

// Error implements the error interface.
func (fe FieldError) Error() string {
	if fe.Field != "" {
		return fmt.Sprintf("field '%s': %s", fe.Field, fe.Message)
	}
	return fe.Message
}

// Valid creates a successful validation result.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid creates a failed validation result with errors.
func Invalid(errs ...FieldError) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// NewValidationError creates a field validation error.
func NewValidationError(field, code, message string) FieldError {
	return FieldError{Field: field, Code: code, Message: message}
}

// Combine merges multiple validation results.
func (vr ValidationResult) Combine(other ValidationResult) ValidationResult {
	if vr.Valid && other.Valid {
		return Valid()
	}
	all := make([]FieldError, 0, len(vr.Errors)+len(other.Errors))
	all = append(all, vr.Errors...)
	all = append(all, other.Errors...)
	return Invalid(all...)
}

// ToError converts a validation result to a config error if invalid.
func (vr ValidationResult) ToError() error {
	if vr.Valid {
		return nil
	}
	messages := make([]string, 0, len(vr.Errors))
	for _, err := range vr.Errors {
		messages = append(messages, err.Error())
	}
	return errors.ConfigError("invalid configuration: " + strings.Join(messages, "; ")).
		WithContext("fields", len(vr.Errors)).
		Build()
}

// ValidatorChain allows chaining multiple validators.
type ValidatorChain[T any] struct {
	validators []Validator[T]
}

// NewValidatorChain creates a new validator chain.
func NewValidatorChain[T any](validators ...Validator[T]) *ValidatorChain[T] {
	return &ValidatorChain[T]{validators: validators}
}

// Add appends a validator to the chain.
func (vc *ValidatorChain[T]) Add(validator Validator[T]) *ValidatorChain[T] {
	vc.validators = append(vc.validators, validator)
	return vc
}

// Validate runs all validators in the chain.
func (vc *ValidatorChain[T]) Validate(value T) ValidationResult {
	result := Valid()
	for _, validator := range vc.validators {
		result = result.Combine(validator(value))
	}
	return result
}

// IntInRange checks min <= value <= max.
func IntInRange(field string, value, minValue, maxValue int) ValidationResult {
	if value < minValue || value > maxValue {
		return Invalid(NewValidationError(field, "range",
			fmt.Sprintf("must be between %d and %d, got %d", minValue, maxValue, value)))
	}
	return Valid()
}

// PositiveDuration checks value > 0.
func PositiveDuration(field string, value time.Duration) ValidationResult {
	if value <= 0 {
		return Invalid(NewValidationError(field, "positive", fmt.Sprintf("must be > 0, got %s", value)))
	}
	return Valid()
}

// NonNegativeDuration checks value >= 0.
func NonNegativeDuration(field string, value time.Duration) ValidationResult {
	if value < 0 {
		return Invalid(NewValidationError(field, "non_negative", fmt.Sprintf("must be >= 0, got %s", value)))
	}
	return Valid()
}

// NonEmptyCommand checks that argv has a non-blank program name.
func NonEmptyCommand(field string, argv []string) ValidationResult {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return Invalid(NewValidationError(field, "required", "command must not be empty"))
	}
	return Valid()
}
