package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNegativeDuration = errors.New("duration must be >= 0")

// FieldError ties a problem to the config key it came from, e.g.
// "tracker.poll_interval".
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// ParseDurationField parses a Go duration string. Blank means zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, &FieldError{Path: path, Err: fmt.Errorf("invalid duration %q: %w", raw, err)}
	case d < 0:
		return 0, &FieldError{Path: path, Err: ErrNegativeDuration}
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def standing in for a
// blank or zero value.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
