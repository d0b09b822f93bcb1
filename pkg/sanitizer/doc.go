// Package sanitizer normalises user-supplied strings before they are
// validated and persisted: surrounding whitespace is trimmed and case-folded
// fields such as email addresses are lowercased.
package sanitizer
