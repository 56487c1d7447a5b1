package domain

import "strings"

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Emails are stored and compared in this form.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeText trims leading/trailing whitespace. Free-text event fields are stored trimmed.
func NormalizeText(s string) string {
	return strings.TrimSpace(s)
}
