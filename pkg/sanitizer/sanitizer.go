// Package sanitizer normalizes untrusted user input before validation and
// storage.
package sanitizer

import (
	"regexp"
	"strings"
)

var dotRegex = regexp.MustCompile(`\.{2,}`)

// NormalizeEmail prevents common email input errors but preserves original for
// invalid formats. Consolidates consecutive dots which can cause delivery
// issues with some email providers.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := parts[0]
	domain := parts[1]

	local = dotRegex.ReplaceAllString(local, ".")
	local = strings.Trim(local, ".")

	return local + "@" + domain
}

// NormalizeUsername trims surrounding whitespace and lowercases a username so
// uniqueness checks are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Trim removes leading and trailing whitespace from a string.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// SingleLine collapses all whitespace runs into single spaces, removing
// newlines from values destined for email subjects or headers.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
