package fluent

import (
	"context"
	"strings"
	"time"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

type (
	// Connection runs builders and raw statements against a db.DB. It is
	// safe for concurrent use as far as the underlying db.DB is.
	Connection struct {
		Session

		db         db.DB
		grammar    Grammar
		logger     logger.Logger
		classifier ErrorClassifier
	}

	// Session is the statement surface shared by *Connection and *Tx.
	// Statements issued through a Session obtained from a Tx run inside
	// that transaction.
	Session struct {
		conn *Connection
		tx   *Tx
	}
)

// NewConnection creates a connection for the given database. Options may be
// a Grammar (Postgres by default), a logger.Logger or an ErrorClassifier.
//
//	conn := fluent.NewConnection(pgx.MustOpen(url), logger.StandardLogger)
func NewConnection(conn db.DB, options ...interface{}) *Connection {
	c := &Connection{
		db:      conn,
		grammar: Postgres,
	}
	c.Session = Session{conn: c}
	return c.SetOptions(options...)
}

// SetOptions sets the grammar, logger or error classifier.
func (c *Connection) SetOptions(options ...interface{}) *Connection {
	for _, option := range options {
		switch o := option.(type) {
		case Grammar:
			c.grammar = o
		case logger.Logger:
			c.logger = o
		case ErrorClassifier:
			c.classifier = o
		case func(error) error:
			c.classifier = o
		}
	}
	return c
}

// Quiet returns a copy of the connection without logger.
func (c *Connection) Quiet() *Connection {
	n := &Connection{
		db:         c.db,
		grammar:    c.grammar,
		classifier: c.classifier,
	}
	n.Session = Session{conn: n}
	return n
}

// DB returns the underlying database handle.
func (c *Connection) DB() db.DB {
	return c.db
}

// Grammar returns the grammar statements are compiled with.
func (c *Connection) Grammar() Grammar {
	return c.grammar
}

// Close closes the underlying database handle.
func (c *Connection) Close() error {
	if c.db == nil {
		return ErrNoConnection
	}
	return c.db.Close()
}

func (c *Connection) log(sql string, args []interface{}, elapsed time.Duration) {
	if c.logger == nil {
		return
	}
	var t string
	if elapsed > 0 {
		t = " (" + elapsed.Round(time.Microsecond).String() + ")"
	}
	if len(args) == 0 {
		c.logger.Debug(sql + t)
		return
	}
	c.logger.Debug(sql+t, args)
}

// Table starts a query on the given table, which may contain an alias
// ("products as p").
func (s Session) Table(name string) *Builder {
	return newBuilder(s, name)
}

// Model starts a query on the table of a struct, for example Product{} maps
// to "products". See ToTableName.
func (s Session) Model(object interface{}) *Builder {
	name := ToTableName(object)
	b := newBuilder(s, name)
	if name == "" {
		b.fail(invalidArgument("%T has no table name", object))
	}
	return b
}

// Connection returns the connection the session belongs to.
func (s Session) Connection() *Connection {
	return s.conn
}

// Tx returns the transaction of the session, or nil.
func (s Session) Tx() *Tx {
	return s.tx
}

func (s Session) context() context.Context {
	if s.tx != nil && s.tx.ctx != nil {
		return s.tx.ctx
	}
	return context.Background()
}

// prepare rewrites the ? placeholders of a compiled or resolved statement
// for the driver.
func (s Session) prepare(sql string, args []interface{}) (string, []interface{}, error) {
	if s.conn == nil || s.conn.db == nil {
		return "", nil, ErrNoConnection
	}
	sql, err := s.conn.grammar.Placeholders().ReplacePlaceholders(strings.TrimSpace(sql))
	if err != nil {
		return "", nil, invalidArgument("%s", err)
	}
	if c, ok := s.conn.db.(db.ConvertParameters); ok {
		sql, args = c.ConvertParameters(sql, args)
	}
	return sql, args, nil
}

func (s Session) query(ctx context.Context, sql string, args []interface{}) (db.Rows, error) {
	sql, args, err := s.prepare(sql, args)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	var rows db.Rows
	if s.tx != nil {
		if err := s.tx.usable(); err != nil {
			return nil, err
		}
		rows, err = s.tx.tx.QueryContext(ctx, sql, args...)
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err = s.conn.db.QueryContext(ctx, sql, args...)
	}
	s.conn.log(sql, args, time.Since(start))
	if err != nil {
		return nil, s.conn.wrapError(sql, args, err)
	}
	return rows, nil
}

func (s Session) queryRows(ctx context.Context, sql string, args []interface{}) ([]Row, error) {
	rows, err := s.query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	out, err := scanRows(rows)
	if err != nil {
		return nil, s.conn.wrapError(sql, args, err)
	}
	return out, nil
}

func (s Session) exec(ctx context.Context, sql string, args []interface{}) (int64, error) {
	sql, args, err := s.prepare(sql, args)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	var result db.Result
	if s.tx != nil {
		if err := s.tx.usable(); err != nil {
			return 0, err
		}
		result, err = s.tx.tx.ExecContext(ctx, sql, args...)
	} else {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		result, err = s.conn.db.ExecContext(ctx, sql, args...)
	}
	s.conn.log(sql, args, time.Since(start))
	if err != nil {
		return 0, s.conn.wrapError(sql, args, err)
	}
	var affected int64
	if err := returnRowsAffected(&affected)(result, nil); err != nil {
		return 0, s.conn.wrapError(sql, args, err)
	}
	return affected, nil
}

func returnRowsAffected(dest *int64) func(db.Result, error) error {
	return func(result db.Result, err error) error {
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		ra, err := result.RowsAffected()
		if err != nil {
			return err
		}
		*dest = ra
		return nil
	}
}
