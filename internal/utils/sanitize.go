package utils

import (
	"regexp"
	"strings"
)

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	phoneRegex = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// StripTags removes HTML tags and surrounding whitespace from free text.
func StripTags(s string) string {
	return strings.TrimSpace(htmlTag.ReplaceAllString(s, ""))
}

// StripTagsPtr is StripTags for optional fields.
func StripTagsPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := StripTags(*s)
	return &v
}

// ValidPhone reports whether s is an 11-digit mainland mobile number.
func ValidPhone(s string) bool { return phoneRegex.MatchString(s) }
