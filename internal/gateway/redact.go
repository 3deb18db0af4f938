package gateway

import "regexp"

// secretPattern matches secret-like key=value substrings that must never
// appear in error text returned to callers or written to logs.
var secretPattern = regexp.MustCompile(`(?i)\b(api_key|token|secret|password)=[^\s&"']+`)

// redactSecrets replaces the value of any secret-like substring with a
// placeholder, keeping the key so the message stays debuggable.
func redactSecrets(s string) string {
	return secretPattern.ReplaceAllString(s, "$1=[REDACTED]")
}
