package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrConfiguration = errors.New("invalid aggregation configuration")

	// Registry errors
	ErrDuplicateLabel = errors.New("duplicate curve label")
	ErrNotFound       = errors.New("resource not found")
	ErrLabelNotFound  = fmt.Errorf("%w: curve label", ErrNotFound)
	ErrRunNotFound    = fmt.Errorf("%w: run", ErrNotFound)
	ErrLengthMismatch = errors.New("sequence length mismatch")

	// Data errors
	ErrNoData            = errors.New("no data")
	ErrInvalidSample     = errors.New("invalid sample")
	ErrInvalidTrace      = errors.New("invalid trial trace")
	ErrInsufficientData  = errors.New("insufficient data for fit")
	ErrNumericDegeneracy = errors.New("numeric degeneracy")

	// Determinism errors
	ErrSeedMismatch = errors.New("seed mismatch")
)

// Error constructors with context
func NewConfigurationError(param string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, param, reason)
}

func NewDuplicateLabelError(label string) error {
	return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
}

func NewLabelNotFoundError(label string) error {
	return fmt.Errorf("%w %q", ErrLabelNotFound, label)
}

func NewRunNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

func NewLengthMismatchError(field string, got, want int) error {
	return fmt.Errorf("%w: %s has %d values, want %d", ErrLengthMismatch, field, got, want)
}

func NewInvalidSampleError(index int, reason string) error {
	return fmt.Errorf("%w at index %d: %s", ErrInvalidSample, index, reason)
}

func NewInvalidTraceError(trial int, err error) error {
	return fmt.Errorf("%w in trial %d: %v", ErrInvalidTrace, trial, err)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsDuplicateLabelError(err error) bool {
	return errors.Is(err, ErrDuplicateLabel)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSample) ||
		errors.Is(err, ErrInvalidTrace) ||
		errors.Is(err, ErrLengthMismatch)
}
