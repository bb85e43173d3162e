package connect

import (
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/gopsql/fluent"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Classify maps errors of the pgx, lib/pq, go-sqlite3 and MySQL drivers to
// the fluent error kinds. It returns nil for anything else.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fluent.ClassifySQLState(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fluent.ClassifySQLState(string(pqErr.Code))
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrConstraint:
			return fluent.ErrConstraintViolation
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrAuth:
			return fluent.ErrConnection
		}
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fluent.ClassifySQLState(string(myErr.SQLState[:]))
	}
	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, driver.ErrBadConn) {
		return fluent.ErrConnection
	}
	return nil
}
