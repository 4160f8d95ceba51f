package config

import (
	"errors"
	"fmt"
)

// Common validation errors
var (
	ErrEmptyField     = errors.New("field cannot be empty")
	ErrNonPositive    = errors.New("value must be greater than zero")
	ErrNegative       = errors.New("value must be non-negative")
	ErrInvalidOption  = errors.New("invalid option")
)

// validatePositive checks if a value is greater than zero
func validatePositive(value int, field string) error {
	if value <= 0 {
		return fmt.Errorf("%s: %w", field, ErrNonPositive)
	}
	return nil
}

// validateNonNegative checks if a value is non-negative
func validateNonNegative(value int, field string) error {
	if value < 0 {
		return fmt.Errorf("%s: %w", field, ErrNegative)
	}
	return nil
}

// validateNonEmpty checks if a string is not empty
func validateNonEmpty(value, field string) error {
	if value == "" {
		return fmt.Errorf("%s: %w", field, ErrEmptyField)
	}
	return nil
}

// validateOption checks if a value is in a set of valid options
func validateOption(value, field string, validOptions map[string]bool) error {
	if err := validateNonEmpty(value, field); err != nil {
		return err
	}
	if !validOptions[value] {
		return fmt.Errorf("%s: %w", field, ErrInvalidOption)
	}
	return nil
}

// Common validation maps
var (
	validLogLevels = map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	validLogFormats = map[string]bool{
		"json":    true,
		"console": true,
	}

	validMemoryBackends = map[string]bool{
		"sqlite":   true,
		"postgres": true,
	}
) 