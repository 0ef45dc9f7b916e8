package sqlstore

import (
	"fmt"
	"strings"
)

// ParseDSN converts a database URL into a SQLite driver DSN.
//
// Accepted forms:
//
//	sqlite:///./data.db     -> ./data.db
//	sqlite:////var/pt.db    -> /var/pt.db
//	sqlite:///:memory:      -> :memory:
//	sqlite://               -> :memory:
//	file:pt.db?cache=shared -> unchanged
//	./data.db               -> unchanged
func ParseDSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("sqlstore: empty database url")
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw, nil
	}

	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
	default:
		return "", fmt.Errorf("sqlstore: unsupported database scheme %q", scheme)
	}

	// The host part is always empty for sqlite URLs; what follows the third
	// slash is the path as written.
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return ":memory:", nil
	}
	return rest, nil
}
