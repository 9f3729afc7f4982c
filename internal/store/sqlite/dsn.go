package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// parseDSN converts a sqlite:// URL into a driver DSN. The second return
// value reports an in-memory database.
func parseDSN(dsn string) (string, bool, error) {
	if !strings.HasPrefix(dsn, "sqlite://") {
		return "", false, fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}

	rest := strings.TrimPrefix(dsn, "sqlite://")
	if rest == "" {
		return "", false, fmt.Errorf("sqlite DSN has no path")
	}

	if rest == ":memory:" {
		return ":memory:", true, nil
	}

	path, query, hasQuery := strings.Cut(rest, "?")
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return "", false, fmt.Errorf("unescaping path: %w", err)
	}
	path = unescaped

	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}
	if hasQuery {
		return path + "?" + query, false, nil
	}
	return path, false, nil
}
