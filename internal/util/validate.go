package util

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail reports whether email looks like local@domain.tld.
func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MaskEmail keeps the first and last character of the local part and masks
// the rest, e.g. "abcdef@x.io" -> "a****f@x.io". Local parts of one or two
// characters become the first character followed by a single '*'.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := []rune(email[:at]), email[at+1:]
	var masked string
	if len(local) <= 2 {
		masked = string(local[0]) + "*"
	} else {
		masked = string(local[0]) + strings.Repeat("*", len(local)-2) + string(local[len(local)-1])
	}
	return masked + "@" + domain
}
