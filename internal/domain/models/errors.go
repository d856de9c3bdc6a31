package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData marks a baseline or bin computation with too few samples.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput marks rows excluded for zero/negative prices or zero volume.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrConfiguration is wrapped by every ConfigError.
	ErrConfiguration = errors.New("configuration error")
	// ErrNoMatchingRule marks a walk-forward day whose regime bucket has no trained rule.
	ErrNoMatchingRule = errors.New("no matching rule")
)

// ConfigError names the parameter that made a request invalid.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(param, format string, a ...interface{}) *ConfigError {
	return &ConfigError{Param: param, Reason: fmt.Sprintf(format, a...)}
}

// IsInsufficient reports whether err marks too little data.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
