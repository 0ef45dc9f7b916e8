package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

// Attribute keys whose values are never logged verbatim.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"cookie",
}

// dsnKeyPatterns mark attributes holding connection strings: only the
// embedded password is masked.
var dsnKeyPatterns = []string{
	"dsn",
	"database_url",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		strVal := a.Value.String()
		if strVal == "" {
			return a
		}
		keyLower := strings.ToLower(a.Key)
		for _, pattern := range dsnKeyPatterns {
			if strings.Contains(keyLower, pattern) {
				return slog.String(a.Key, RedactDSN(strVal))
			}
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}

	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	return a
}

// RedactDSN masks the password of a URL-style connection string.
//
//	postgres://app:hunter2@db/pt -> postgres://app:***@db/pt
//
// Values without credentials (sqlite paths) are returned unchanged.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), "***")
	// url.String escapes the mask; keep it readable.
	return strings.Replace(u.String(), "%2A%2A%2A", "***", 1)
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
