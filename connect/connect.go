// Package connect opens fluent connections for the supported drivers.
//
// PostgreSQL is reached through the gopsql drivers:
//
//	conn, err := connect.Open("pgx", "postgres://localhost:5432/shop?sslmode=disable")
//
// "pq" and "gopg" select github.com/gopsql/pq and github.com/gopsql/gopg
// instead. SQLite and MySQL go through database/sql:
//
//	conn, err := connect.Open("sqlite3", "file:shop.db")
//	conn, err := connect.Open("mysql", "root@tcp(localhost:3306)/shop")
package connect

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/gopsql/db"
	"github.com/gopsql/fluent"
	"github.com/gopsql/fluent/config"
	"github.com/gopsql/gopg"
	"github.com/gopsql/logger"
	"github.com/gopsql/pgx"
	"github.com/gopsql/pq"
	"github.com/gopsql/standard"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Drivers lists the driver names Open accepts.
var Drivers = []string{"pgx", "postgres", "pq", "gopg", "sqlite3", "mysql"}

// Open opens dsn with the named driver and returns a connection using the
// matching grammar and Classify. Options are passed to
// fluent.NewConnection after those, so they may replace them.
//
// An in-memory SQLite database exists per connection, so Open limits such
// a pool to one connection.
func Open(driver, dsn string, options ...interface{}) (*fluent.Connection, error) {
	conn, err := openDB(driver, dsn, 0)
	if err != nil {
		return nil, err
	}
	opts := append([]interface{}{fluent.GrammarFor(driver), fluent.ErrorClassifier(Classify)}, options...)
	return fluent.NewConnection(conn, opts...), nil
}

// MustOpen is like Open but panics if the connection cannot be opened.
func MustOpen(driver, dsn string, options ...interface{}) *fluent.Connection {
	conn, err := Open(driver, dsn, options...)
	if err != nil {
		panic(err)
	}
	return conn
}

// OpenConfig opens the connection described by cfg. Statements are logged
// with logger.StandardLogger when cfg.LogSQL is set.
func OpenConfig(cfg *config.Config, options ...interface{}) (*fluent.Connection, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: no dsn configured for driver %q", fluent.ErrInvalidArgument, cfg.Driver)
	}
	conn, err := openDB(cfg.Driver, cfg.DSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	opts := []interface{}{fluent.GrammarFor(cfg.Driver), fluent.ErrorClassifier(Classify)}
	if cfg.LogSQL {
		opts = append(opts, logger.StandardLogger)
	}
	return fluent.NewConnection(conn, append(opts, options...)...), nil
}

func openDB(driver, dsn string, maxOpenConns int) (db.DB, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		conn, err := pgx.Open(dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "pq":
		conn, err := pq.Open(dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "gopg", "go-pg":
		conn, err := gopg.Open(dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "sqlite", "sqlite3":
		if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
			maxOpenConns = 1
		}
		return openStandard("sqlite3", dsn, maxOpenConns)
	case "mysql", "mariadb":
		return openStandard("mysql", dsn, maxOpenConns)
	}
	return nil, fmt.Errorf("%w: unknown driver %q, want one of %s",
		fluent.ErrInvalidArgument, driver, strings.Join(Drivers, ", "))
}

func openStandard(driver, dsn string, maxOpenConns int) (db.DB, error) {
	c, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if maxOpenConns > 0 {
		c.SetMaxOpenConns(maxOpenConns)
	}
	if err := c.Ping(); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %s", fluent.ErrConnection, err)
	}
	return standard.NewDB(driver, c), nil
}
