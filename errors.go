package fluent

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConstraintViolation is reported for unique, not-null, foreign key
	// and check constraint failures raised by the database.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrInvalidArgument is reported for malformed clause arguments and
	// mismatched bind parameters. It is detected before any round trip.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConnection is reported for transport and authentication failures.
	ErrConnection = errors.New("connection error")

	// ErrTransactionState is reported when Commit or Rollback is called on
	// a finished transaction, or a transaction is nested.
	ErrTransactionState = errors.New("invalid transaction state")

	ErrNoConnection  = errors.New("no connection")
	ErrNoRows        = errors.New("no rows in result set")
	ErrInvalidTarget = errors.New("target must be pointer of a struct or a slice of structs")
)

type (
	// QueryError wraps an error returned by the database together with the
	// statement that caused it. Use errors.Is with the Err* sentinels to
	// inspect the kind:
	//
	//	if errors.Is(err, fluent.ErrConstraintViolation) {
	//		// duplicate key
	//	}
	QueryError struct {
		SQL      string
		Bindings []interface{}
		Kind     error // one of the Err* sentinels, or nil if unknown
		Err      error // error from the driver
	}

	// ErrorClassifier maps a driver error to one of the Err* sentinels. It
	// returns nil if it does not recognize the error.
	ErrorClassifier func(error) error
)

func (e *QueryError) Error() string {
	msg := e.Err.Error()
	if e.Kind != nil {
		msg = e.Kind.Error() + ": " + msg
	}
	return msg + " (SQL: " + e.SQL + ")"
}

func (e *QueryError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func transactionState(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTransactionState, fmt.Sprintf(format, args...))
}

// ClassifySQLState maps a SQLSTATE code to an error kind. Class 23 is
// integrity constraint violation, classes 08 and 28 are connection and
// authorization failures.
func ClassifySQLState(code string) error {
	switch {
	case strings.HasPrefix(code, "23"):
		return ErrConstraintViolation
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "28"):
		return ErrConnection
	}
	return nil
}

func (c *Connection) wrapError(sql string, bindings []interface{}, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	var kind error
	if c.classifier != nil {
		kind = c.classifier(err)
	}
	if kind == nil && c.db != nil {
		kind = ClassifySQLState(c.db.ErrGetCode(err))
	}
	return &QueryError{
		SQL:      sql,
		Bindings: bindings,
		Kind:     kind,
		Err:      err,
	}
}
