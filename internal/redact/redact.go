// Package redact scrubs OAuth tokens and credentials out of text before it
// reaches the operational log, in case an upstream error message happens to
// echo back part of a request.
package redact

import "regexp"

var sensitivePatterns = []*regexp.Regexp{
	// generic api keys / secrets / tokens
	regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|client_secret|access_token|auth_token|refresh_token)\s*[=:]\s*['"]?[A-Za-z0-9_.-]{12,}['"]?`),

	// bearer tokens in Authorization headers
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{16,}`),

	// basic auth embedded in a URL
	regexp.MustCompile(`https?://[^:/\s]+:[^@/\s]+@`),

	// password=... / pwd=... catch-all
	regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{6,}['"]?`),
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces any substring of s matching a known credential shape with
// a placeholder.
func Redact(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}
