package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsUUID reports whether s is a canonical 36-character UUID
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidateEmail checks if the email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

// Deref returns the value behind p or "" for nil
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// StringPtr returns nil for blank strings, otherwise a pointer to the trimmed value
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
