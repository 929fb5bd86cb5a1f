package llm

import "regexp"

var (
	reDataURL = regexp.MustCompile(`(?is)\bdata:(image|video|audio)/[a-z0-9+.-]+;base64,[a-z0-9+/=\r\n]+`)
	reAPIKey  = regexp.MustCompile(`(?i)([?&]key=)[A-Za-z0-9_\-]+`)
)

// RedactText replaces inline media payloads and API keys in s so it can be
// logged or surfaced to users.
func RedactText(s string) string {
	s = reDataURL.ReplaceAllString(s, "[REDACTED media]")
	return reAPIKey.ReplaceAllString(s, "${1}[REDACTED]")
}
