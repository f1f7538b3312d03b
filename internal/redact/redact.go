// Package redact provides utilities for redacting sensitive information from strings
// before they are logged or reported to a diagnostic sink. Delivery errors often
// embed request URLs, connection strings and bearer credentials; this package keeps
// them out of log output.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedQueryPlaceholder      = "[REDACTED_QUERY]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules are applied in order; later rules see the output of earlier ones.
var rules = []rule{
	{
		// Connection strings with embedded userinfo
		pattern:     regexp.MustCompile(`(?i)\b(postgres|postgresql|redis|rediss|mysql|mongodb)://[^@\s/]+@`),
		replacement: RedactedCredentialPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		replacement: RedactedJWTPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/=]{8,}`),
		replacement: "Bearer " + RedactedCredentialPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password)=[^&\s"']+`),
		replacement: "${1}=" + RedactionPlaceholder,
	},
	{
		// Shared URLs may carry personal identifiers in their query strings
		pattern:     regexp.MustCompile(`(https?://[^\s?#"']+)\?[^\s#"']*`),
		replacement: "${1}?" + RedactedQueryPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		replacement: RedactedEmailPlaceholder,
	},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
