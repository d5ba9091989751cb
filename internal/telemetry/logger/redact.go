// Package logger provides structured logging for SnapKeeper.
package logger

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// URL schemes whose userinfo password is masked wherever it appears.
var sensitiveURLSchemes = []string{
	"postgres://",
	"postgresql://",
	"redis://",
	"rediss://",
}

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"credential",
	"dsn",
}

// keywordPassword matches password=... in libpq keyword/value connection strings.
var keywordPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// Connection URLs keep host and database for debugging; only the
		// password is masked.
		if masked, ok := maskConnectionString(strVal); ok {
			return slog.String(a.Key, masked)
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskConnectionString masks the password of a connection URL or a libpq
// keyword/value string. It reports false when value contains neither.
func maskConnectionString(value string) (string, bool) {
	lower := strings.ToLower(value)
	for _, scheme := range sensitiveURLSchemes {
		if strings.HasPrefix(lower, scheme) {
			u, err := url.Parse(value)
			if err != nil || u.User == nil {
				return value, true
			}
			if _, has := u.User.Password(); has {
				u.User = url.UserPassword(u.User.Username(), "xxxxx")
			}
			return u.String(), true
		}
	}

	if keywordPassword.MatchString(value) {
		return keywordPassword.ReplaceAllString(value, "${1}xxxxx"), true
	}
	return value, false
}

// RedactString manually redacts a string value.
// Use this when you need to redact a value before logging.
func RedactString(value string) string {
	masked, _ := maskConnectionString(value)
	return masked
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
