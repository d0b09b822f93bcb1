package sanitizer

import "strings"

// Trim removes leading and trailing whitespace from a string.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// TrimToLower trims whitespace and converts the string to lowercase.
func TrimToLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail trims and lowercases an email address. The local part is
// kept intact otherwise; providers differ on dot and plus semantics.
func NormalizeEmail(email string) string {
	return TrimToLower(email)
}
