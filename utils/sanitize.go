package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// Rich text keeps the user-generated-content subset of HTML.
	richPolicy = bluemonday.UGCPolicy()
	// Plain text fields (titles, author names) drop every tag.
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return richPolicy.Sanitize(input)
}

// SanitizePlain strips all markup and surrounding whitespace.
func SanitizePlain(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}
