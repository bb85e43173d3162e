package fluent

import (
	"strings"

	"github.com/Masterminds/squirrel"
)

type postgresDialect struct{}

func (postgresDialect) name() string {
	return "postgres"
}

func (postgresDialect) quote(segment string) string {
	return `"` + strings.ReplaceAll(segment, `"`, `""`) + `"`
}

func (postgresDialect) date(column string) string {
	return column + "::date"
}

func (postgresDialect) lock(mode lockMode) string {
	switch mode {
	case lockForUpdate:
		return "FOR UPDATE"
	case lockShared:
		return "FOR SHARE"
	}
	return ""
}

func (postgresDialect) insertOrIgnore() (string, string) {
	return "INSERT INTO", " ON CONFLICT DO NOTHING"
}

func (postgresDialect) placeholders() squirrel.PlaceholderFormat {
	return squirrel.Dollar
}
