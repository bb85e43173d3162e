package fluent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gopsql/db"
)

type (
	// Tx is a session pinned to one database transaction. It moves from
	// active to committed or rolled back exactly once. A Tx must not be
	// shared between goroutines issuing statements concurrently.
	Tx struct {
		Session

		tx    db.Tx
		ctx   context.Context
		mu    sync.Mutex
		state txState
	}

	txState int

	// TransactionBlock is the callback run by Transaction.
	TransactionBlock func(context.Context, *Tx) error
)

const (
	txActive txState = iota
	txCommitted
	txRolledBack
)

func (s txState) String() string {
	switch s {
	case txCommitted:
		return "committed"
	case txRolledBack:
		return "rolled back"
	}
	return "active"
}

// Begin starts a transaction. The caller must call Commit or Rollback;
// a transaction left open is not closed for you. Calling Begin on a
// session that is already in a transaction returns ErrTransactionState.
func (s Session) Begin(ctx context.Context) (*Tx, error) {
	if s.tx != nil {
		return nil, transactionState("nested transactions are not supported")
	}
	if s.conn == nil || s.conn.db == nil {
		return nil, ErrNoConnection
	}
	s.conn.log("BEGIN", nil, 0)
	tx, err := s.conn.db.BeginTx(ctx, "", false)
	if err != nil {
		return nil, s.conn.wrapError("BEGIN", nil, err)
	}
	t := &Tx{tx: tx, ctx: ctx}
	t.Session = Session{conn: s.conn, tx: t}
	return t, nil
}

// Context returns the context the transaction was started with.
func (t *Tx) Context() context.Context {
	return t.ctx
}

// Active reports whether the transaction is neither committed nor rolled
// back.
func (t *Tx) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == txActive
}

func (t *Tx) usable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return transactionState("transaction already %s", t.state)
	}
	return nil
}

// Commit commits the transaction. Committing a finished transaction
// returns ErrTransactionState.
func (t *Tx) Commit() error {
	return t.finish("COMMIT", txCommitted, t.tx.Commit)
}

// Rollback rolls back the transaction. Rolling back a finished transaction
// returns ErrTransactionState.
func (t *Tx) Rollback() error {
	return t.finish("ROLLBACK", txRolledBack, t.tx.Rollback)
}

func (t *Tx) finish(statement string, state txState, fn func(context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return transactionState("%s on transaction already %s", statement, t.state)
	}
	t.conn.log(statement, nil, 0)
	// the transaction is finished even if the driver reports an error
	t.state = state
	if err := fn(t.ctx); err != nil {
		return t.conn.wrapError(statement, nil, err)
	}
	return nil
}

// MustTransaction starts a transaction, uses context.Background() internally
// and panics if transaction fails.
func (s Session) MustTransaction(block TransactionBlock) {
	if err := s.Transaction(block); err != nil {
		panic(err)
	}
}

// Transaction starts a transaction, uses context.Background() internally.
func (s Session) Transaction(block TransactionBlock) error {
	return s.TransactionCtx(context.Background(), block)
}

// MustTransactionCtx starts a transaction and panics if transaction fails.
func (s Session) MustTransactionCtx(ctx context.Context, block TransactionBlock) {
	if err := s.TransactionCtx(ctx, block); err != nil {
		panic(err)
	}
}

// TransactionCtx starts a transaction and runs block inside it. The
// transaction is committed if block returns nil and rolled back if it
// returns an error or panics; the error (or the panic converted to an
// error) is returned. If block commits or rolls back the transaction
// itself, nothing more is done.
func (s Session) TransactionCtx(ctx context.Context, block TransactionBlock) (err error) {
	var tx *Tx
	tx, err = s.Begin(ctx)
	if err != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			tx.rollbackIfActive()
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = errors.New(fmt.Sprint(r))
			}
		} else if err != nil {
			tx.rollbackIfActive()
		} else if tx.Active() {
			err = tx.Commit()
		}
	}()
	err = block(ctx, tx)
	return
}

func (t *Tx) rollbackIfActive() {
	if t.Active() {
		t.Rollback()
	}
}
