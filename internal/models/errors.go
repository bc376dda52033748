package models

import (
	"errors"
	"fmt"
)

// ErrScoringFailure marks a single review that a sentiment backend could not score.
var ErrScoringFailure = errors.New("scoring failure")

// InputError reports a structurally invalid input, such as a missing column.
type InputError struct {
	Field  string
	Row    int
	Reason string
}

func (e *InputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("input error: field %q (row %d): %s", e.Field, e.Row, e.Reason)
	}
	return fmt.Sprintf("input error: field %q: %s", e.Field, e.Reason)
}

// ConfigurationError reports an unknown or unsupported setting.
type ConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%q: %s", e.Setting, e.Value, e.Reason)
}

func IsInputError(err error) bool {
	var target *InputError
	return errors.As(err, &target)
}

func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
