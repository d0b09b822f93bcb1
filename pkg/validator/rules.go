package validator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Required fails for empty or whitespace-only strings.
func Required(field, value string) Rule {
	return newRule(field, "required", "field is required", func() bool {
		return strings.TrimSpace(value) != ""
	})
}

// RequiredComparable fails for the zero value of T.
func RequiredComparable[T comparable](field string, value T) Rule {
	var zero T
	return newRule(field, "required", "field is required", func() bool {
		return value != zero
	})
}

// MinLen fails if value has fewer than min runes.
func MinLen(field, value string, min int) Rule {
	return newRule(field, "min_length", fmt.Sprintf("must be at least %d characters long", min), func() bool {
		return utf8.RuneCountInString(value) >= min
	})
}

// MaxLen fails if value has more than max runes.
func MaxLen(field, value string, max int) Rule {
	return newRule(field, "max_length", fmt.Sprintf("must be at most %d characters long", max), func() bool {
		return utf8.RuneCountInString(value) <= max
	})
}

func MinNum[T Numeric](field string, value, min T) Rule {
	return newRule(field, "min", fmt.Sprintf("must be at least %v", min), func() bool {
		return value >= min
	})
}

// MaxBytes fails if value is longer than max bytes. Use it next to MaxLen
// where a consumer limits encoded size, such as bcrypt's 72 bytes.
func MaxBytes(field, value string, max int) Rule {
	return newRule(field, "max_bytes", fmt.Sprintf("must be at most %d bytes long", max), func() bool {
		return len(value) <= max
	})
}

// OneOf fails unless value is in options.
func OneOf[T comparable](field string, value T, options []T) Rule {
	return newRule(field, "one_of", fmt.Sprintf("must be one of: %v", options), func() bool {
		return slices.Contains(options, value)
	})
}

// Matches fails for empty values and values re does not match. description
// names the expected format in the default message.
func Matches(field, value string, re *regexp.Regexp, description string) Rule {
	return newRule(field, "pattern", "must be a valid "+description, func() bool {
		return value != "" && re.MatchString(value)
	})
}
