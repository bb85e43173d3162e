package fluent

import (
	"strings"

	"github.com/Masterminds/squirrel"
)

// SQLite has no row level locks: the whole database is locked by the
// writing transaction, so lock clauses are omitted.
type sqliteDialect struct{}

func (sqliteDialect) name() string {
	return "sqlite3"
}

func (sqliteDialect) quote(segment string) string {
	return `"` + strings.ReplaceAll(segment, `"`, `""`) + `"`
}

func (sqliteDialect) date(column string) string {
	return "strftime('%Y-%m-%d', " + column + ")"
}

func (sqliteDialect) lock(lockMode) string {
	return ""
}

func (sqliteDialect) insertOrIgnore() (string, string) {
	return "INSERT OR IGNORE INTO", ""
}

func (sqliteDialect) placeholders() squirrel.PlaceholderFormat {
	return squirrel.Question
}
