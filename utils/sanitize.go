package utils

import "github.com/microcosm-cc/bluemonday"

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizeText strips all markup, leaving plain text. Chat messages are
// stored and rendered as text, so no tags survive.
func SanitizeText(input string) string {
	return stripper.Sanitize(input)
}
