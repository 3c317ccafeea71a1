// Package validate provides input validation and sanitization utilities
// for directory filter input.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrEmpty             = errors.New("string is empty")
	ErrTooManyValues     = errors.New("too many values selected")
)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength      int            // Minimum length (0 = no minimum)
	MaxLength      int            // Maximum length (0 = no maximum)
	AllowedPattern *regexp.Regexp // Optional regex pattern for allowed characters
	AllowEmpty     bool           // Whether empty strings are allowed
	TrimSpace      bool           // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Character count, not byte count
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}

	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	return s, nil
}

// StripMarkup removes angle brackets and trims surrounding whitespace.
// It is applied to free text before any matching or persistence.
func StripMarkup(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	return strings.TrimSpace(s)
}

// SearchTerm validates an already sanitized free-text search term:
// - Optional (can be empty)
// - At most maxLen characters; longer input is an error, never truncated
func SearchTerm(term string, maxLen int) (string, error) {
	return String(term, StringConstraints{
		MaxLength:  maxLen,
		AllowEmpty: true,
		TrimSpace:  true,
	})
}

// CleanValues trims each value and drops the empty ones.
// A nil or empty input yields an empty, non-nil slice.
func CleanValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Selection checks that a multi-select value set has at most maxCount entries.
// maxCount <= 0 means unlimited.
func Selection(values []string, maxCount int) error {
	if maxCount > 0 && len(values) > maxCount {
		return fmt.Errorf("%w: got %d, maximum is %d", ErrTooManyValues, len(values), maxCount)
	}
	return nil
}
