package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

// sensitiveQueryKeys are query parameters that must never reach the access log
var sensitiveQueryKeys = map[string]struct{}{
	"password":    {},
	"passcode":    {},
	"token":       {},
	"secret":      {},
	"email":       {},
	"fingerprint": {},
	"auth":        {},
}

// SanitizedEmail masks an email address for logging (e.g., "u***@*******.com")
func SanitizedEmail(email string) string {
	username, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(username) > 1 {
		username = username[:1] + strings.Repeat("*", len(username)-1)
	}

	// keep only the TLD
	if dot := strings.LastIndex(domain, "."); dot > 0 {
		domain = strings.Repeat("*", dot) + domain[dot:]
	}

	return username + "@" + domain
}

// RedactedAttr returns "[REDACTED]" for key in production and the value elsewhere
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString reports whether rawQuery names a sensitive parameter,
// in which case the whole query should be redacted. Unparseable queries are
// treated as sensitive.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}

	for key := range values {
		lower := strings.ToLower(key)
		for sensitive := range sensitiveQueryKeys {
			if strings.Contains(lower, sensitive) {
				return true
			}
		}
	}
	return false
}
