/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All engine-level errors in one place. Callers match with errors.Is();
  structured errors carry the offending value and unwrap to a sentinel.

  The engine assumes well-formed inputs (parseable dates, start <= end);
  these errors exist so that malformed input fails fast with a clear
  message instead of producing silent garbage.
*/
package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPeriod is returned when a date range ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidTimeFormat is returned when a clock time is not HH:MM.
	ErrInvalidTimeFormat = errors.New("invalid time format")
)

// InvalidTimeError reports a clock-time string that could not be parsed.
type InvalidTimeError struct {
	Value string
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("invalid time format %q (want HH:MM)", e.Value)
}

func (e *InvalidTimeError) Unwrap() error {
	return ErrInvalidTimeFormat
}
