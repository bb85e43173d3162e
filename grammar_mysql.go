package fluent

import (
	"strings"

	"github.com/Masterminds/squirrel"
)

type mysqlDialect struct{}

func (mysqlDialect) name() string {
	return "mysql"
}

func (mysqlDialect) quote(segment string) string {
	return "`" + strings.ReplaceAll(segment, "`", "``") + "`"
}

func (mysqlDialect) date(column string) string {
	return "DATE(" + column + ")"
}

func (mysqlDialect) lock(mode lockMode) string {
	switch mode {
	case lockForUpdate:
		return "FOR UPDATE"
	case lockShared:
		return "LOCK IN SHARE MODE"
	}
	return ""
}

func (mysqlDialect) insertOrIgnore() (string, string) {
	return "INSERT IGNORE INTO", ""
}

func (mysqlDialect) placeholders() squirrel.PlaceholderFormat {
	return squirrel.Question
}
